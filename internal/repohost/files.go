package repohost

import (
	"context"
	"strings"

	"github.com/pkgrisk/analyzer/internal/model"
)

// fetchRepoFiles combines GitHub's community-health-files metrics
// (README/CONTRIBUTING/CODE_OF_CONDUCT/issue+PR templates) with a root
// directory listing for the files GitHub's health-metrics endpoint
// doesn't track: CHANGELOG, docs/, examples/, GOVERNANCE, CODEOWNERS,
// and a tests directory.
func (c *Client) fetchRepoFiles(ctx context.Context, ref model.RepoRef) (model.RepoFiles, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var files model.RepoFiles

	health, _, err := c.gh.Repositories.GetCommunityHealthMetrics(ctx, ref.Owner, ref.Repo)
	if err == nil && health != nil && health.Files != nil {
		f := health.Files
		files.HasReadme = f.Readme != nil
		files.HasContributing = f.Contributing != nil
		files.HasCodeOfConduct = f.CodeOfConduct != nil
		files.HasIssueTemplate = f.IssueTemplate != nil
		files.HasPRTemplate = f.PullRequestTemplate != nil
	}

	_, rootEntries, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, "", nil)
	if err != nil {
		return files, err
	}
	for _, entry := range rootEntries {
		name := strings.ToLower(entry.GetName())
		isDir := entry.GetType() == "dir"
		switch {
		case isDir && name == "docs":
			files.HasDocsDir = true
		case isDir && (name == "examples" || name == "example"):
			files.HasExamplesDir = true
		case isDir && (name == "tests" || name == "test"):
			files.HasTestsDir = true
		case strings.HasPrefix(name, "changelog"):
			files.HasChangelog = true
		case strings.HasPrefix(name, "governance"):
			files.HasGovernance = true
		case name == "codeowners":
			files.HasCodeowners = true
		}
	}
	if !files.HasCodeowners {
		if _, _, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ".github/CODEOWNERS", nil); err == nil {
			files.HasCodeowners = true
		}
	}

	return files, nil
}

// listWorkflowFiles returns the filenames under .github/workflows, used
// by both CI-depth and security-tool detection.
func (c *Client) listWorkflowFiles(ctx context.Context, ref model.RepoRef) ([]string, error) {
	_, entries, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ".github/workflows", nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.ToLower(e.GetName()))
	}
	return names, nil
}
