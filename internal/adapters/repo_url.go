package adapters

import (
	"regexp"
	"strings"

	"github.com/pkgrisk/analyzer/internal/model"
)

// repoURLPattern pairs a compiled regex against a platform. Each regex
// must capture owner, repo, and an optional trailing subpath in that
// order; repo must not include a trailing ".git".
type repoURLPattern struct {
	platform model.Platform
	re       *regexp.Regexp
}

var repoURLPatterns = []repoURLPattern{
	{model.PlatformGitHub, regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?(?:/tree/[^/]+(/.*)?)?/?$`)},
	{model.PlatformGitHub, regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(?:\.git)?/?$`)},
	{model.PlatformGitHub, regexp.MustCompile(`^git://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)},
	{model.PlatformGitLab, regexp.MustCompile(`^https?://gitlab\.com/([^/]+)/([^/]+?)(?:\.git)?(?:/-/tree/[^/]+(/.*)?)?/?$`)},
	{model.PlatformGitLab, regexp.MustCompile(`^git@gitlab\.com:([^/]+)/([^/]+?)(?:\.git)?/?$`)},
	{model.PlatformBitbucket, regexp.MustCompile(`^https?://bitbucket\.org/([^/]+)/([^/]+?)(?:\.git)?(?:/src/[^/]+(/.*)?)?/?$`)},
	{model.PlatformBitbucket, regexp.MustCompile(`^git@bitbucket\.org:([^/]+)/([^/]+?)(?:\.git)?/?$`)},
}

// ParseRepoURL recognizes GitHub, GitLab, and Bitbucket URLs in their
// common https, git+ssh, and git-protocol forms, including GitHub's
// /tree/<branch>/<subpath> form for monorepo subdirectories. Any other
// host, or a URL that matches none of the shapes above, reports false.
func ParseRepoURL(rawURL string) (model.RepoRef, bool) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return model.RepoRef{}, false
	}

	for _, p := range repoURLPatterns {
		m := p.re.FindStringSubmatch(url)
		if m == nil {
			continue
		}
		owner, repo := m[1], m[2]
		if owner == "" || repo == "" {
			continue
		}
		ref := model.RepoRef{Platform: p.platform, Owner: owner, Repo: repo}
		if len(m) > 3 && m[3] != "" {
			ref.Subpath = strings.TrimPrefix(m[3], "/")
		}
		return ref, true
	}
	return model.RepoRef{}, false
}
