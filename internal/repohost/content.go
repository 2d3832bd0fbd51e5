package repohost

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/pkgrisk/analyzer/internal/model"
)

// readmeCandidates is the filename search order GitHub itself uses when
// rendering a repo's landing README.
var readmeCandidates = []string{"README.md", "README.rst", "README.txt", "README"}

// changelogCandidates mirrors the prefix match fetchRepoFiles already
// uses to detect a changelog's presence, narrowed to the names most
// repos actually use.
var changelogCandidates = []string{"CHANGELOG.md", "CHANGELOG.rst", "CHANGELOG.txt", "CHANGELOG", "HISTORY.md"}

var governanceCandidates = []string{"GOVERNANCE.md", "GOVERNANCE.rst", "GOVERNANCE.txt", "GOVERNANCE"}

// FetchReadme returns the decoded README content, or "" if none exists.
func (c *Client) FetchReadme(ctx context.Context, ref model.RepoRef) string {
	return c.fetchFirstFile(ctx, ref, readmeCandidates)
}

// FetchChangelog returns the decoded CHANGELOG content, or "" if none
// exists.
func (c *Client) FetchChangelog(ctx context.Context, ref model.RepoRef) string {
	return c.fetchFirstFile(ctx, ref, changelogCandidates)
}

// FetchGovernanceDocs returns the decoded GOVERNANCE content, or "" if
// none exists.
func (c *Client) FetchGovernanceDocs(ctx context.Context, ref model.RepoRef) string {
	return c.fetchFirstFile(ctx, ref, governanceCandidates)
}

func (c *Client) fetchFirstFile(ctx context.Context, ref model.RepoRef, candidates []string) string {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	for _, name := range candidates {
		file, _, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, name, nil)
		if err != nil || file == nil {
			continue
		}
		content, err := file.GetContent()
		if err != nil {
			continue
		}
		return content
	}
	return ""
}

// FetchMaintainerComments gathers recent maintainer/commenter text from
// the most recently updated issues, used by the sentiment and
// communication assessments as a proxy for project tone.
func (c *Client) FetchMaintainerComments(ctx context.Context, ref model.RepoRef, maxIssues, maxComments int) []string {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	issues, _, err := c.gh.Issues.ListByRepo(ctx, ref.Owner, ref.Repo, &github.IssueListByRepoOptions{
		Sort:        "updated",
		Direction:   "desc",
		State:       "all",
		ListOptions: github.ListOptions{PerPage: maxIssues},
	})
	if err != nil {
		return nil
	}

	var out []string
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		out = append(out, issue.GetTitle()+"\n"+issue.GetBody())
		comments, _, err := c.gh.Issues.ListComments(ctx, ref.Owner, ref.Repo, issue.GetNumber(), &github.IssueListCommentsOptions{
			ListOptions: github.ListOptions{PerPage: maxComments},
		})
		if err == nil {
			for _, cm := range comments {
				out = append(out, cm.GetBody())
			}
		}
		if len(out) >= maxIssues*maxComments {
			break
		}
	}
	return out
}

// languageExtensions maps a repository's primary language to the file
// extensions the security-sample walk considers source code.
var languageExtensions = map[string][]string{
	"JavaScript": {".js", ".mjs", ".cjs"},
	"TypeScript": {".ts", ".tsx"},
	"Python":     {".py"},
	"Go":         {".go"},
	"Ruby":       {".rb"},
	"Rust":       {".rs"},
	"Java":       {".java"},
}

// securityPathKeywords prioritizes sampling source files whose path
// suggests they handle an entry point, config, auth, input, a database,
// security logic, or network access.
var securityPathKeywords = []string{
	"main", "index", "entry", "config", "settings", "auth", "login",
	"session", "input", "validate", "sanitize", "db", "database", "sql",
	"security", "crypto", "secret", "token", "network", "http", "socket",
}

// SourceSample is one file pulled for the LLM security assessment.
type SourceSample struct {
	Path    string
	Content string
}

// FetchSourceSamples walks tree (as returned by FetchRepoTree), ranks
// candidate files by security-relevant path keywords, and fetches
// their content up to maxBytes total / maxFiles count — whichever
// limit is hit first.
func (c *Client) FetchSourceSamples(ctx context.Context, ref model.RepoRef, tree map[string]bool, language string, maxBytes, maxFiles int) []SourceSample {
	exts := languageExtensions[language]
	if len(exts) == 0 {
		for _, e := range languageExtensions {
			exts = append(exts, e...)
		}
	}

	type candidate struct {
		path  string
		score int
	}
	var candidates []candidate
	for path := range tree {
		if !hasAnySuffix(path, exts) {
			continue
		}
		candidates = append(candidates, candidate{path: path, score: pathSecurityScore(path)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].path < candidates[j].path
	})

	var samples []SourceSample
	totalBytes := 0
	for _, cand := range candidates {
		if len(samples) >= maxFiles || totalBytes >= maxBytes {
			break
		}
		content := c.fetchFileRaw(ctx, ref, cand.path)
		if content == "" {
			continue
		}
		if totalBytes+len(content) > maxBytes {
			content = content[:maxBytes-totalBytes]
		}
		samples = append(samples, SourceSample{Path: cand.path, Content: content})
		totalBytes += len(content)
	}
	return samples
}

func (c *Client) fetchFileRaw(ctx context.Context, ref model.RepoRef, path string) string {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	file, _, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, path, nil)
	if err != nil || file == nil {
		return ""
	}
	if file.GetEncoding() == "base64" {
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.GetContent(), "\n", ""))
		if err != nil {
			return ""
		}
		return string(raw)
	}
	content, _ := file.GetContent()
	return content
}

func pathSecurityScore(path string) int {
	lower := strings.ToLower(path)
	score := 0
	for _, kw := range securityPathKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	return score
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
