package repohost

import (
	"context"

	"github.com/pkgrisk/analyzer/internal/model"
)

// FetchRepoTree returns the set of file paths in the repository's
// default branch, fetched recursively in a single request. Used by the
// supply-chain analyzer to tell which tarball members are generated
// build output versus files genuinely absent from source control.
// Returns nil (not an error) when the tree is too large for GitHub to
// return non-truncated, since a truncated tree would produce false
// "extra file" positives.
func (c *Client) FetchRepoTree(ctx context.Context, ref model.RepoRef) (map[string]bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	repo, err := c.getRepository(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return nil, err
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}

	tree, _, err := c.gh.Git.GetTree(ctx, ref.Owner, ref.Repo, branch, true)
	if err != nil {
		return nil, err
	}
	if tree.GetTruncated() {
		return nil, nil
	}

	paths := make(map[string]bool, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() == "blob" {
			paths[e.GetPath()] = true
		}
	}
	return paths, nil
}
