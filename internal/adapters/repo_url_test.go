package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestParseRepoURL_GitHub(t *testing.T) {
	cases := []struct {
		url     string
		owner   string
		repo    string
		subpath string
	}{
		{"https://github.com/owner/repo", "owner", "repo", ""},
		{"https://github.com/owner/repo.git", "owner", "repo", ""},
		{"https://github.com/owner/repo/", "owner", "repo", ""},
		{"git@github.com:owner/repo.git", "owner", "repo", ""},
		{"git://github.com/owner/repo.git", "owner", "repo", ""},
		{"https://github.com/owner/repo/tree/main/packages/sub", "owner", "repo", "packages/sub"},
	}
	for _, c := range cases {
		ref, ok := ParseRepoURL(c.url)
		require.True(t, ok, c.url)
		assert.Equal(t, model.PlatformGitHub, ref.Platform, c.url)
		assert.Equal(t, c.owner, ref.Owner, c.url)
		assert.Equal(t, c.repo, ref.Repo, c.url)
		assert.Equal(t, c.subpath, ref.Subpath, c.url)
	}
}

func TestParseRepoURL_GitLabAndBitbucket(t *testing.T) {
	ref, ok := ParseRepoURL("https://gitlab.com/owner/repo")
	require.True(t, ok)
	assert.Equal(t, model.PlatformGitLab, ref.Platform)

	ref, ok = ParseRepoURL("git@gitlab.com:owner/repo.git")
	require.True(t, ok)
	assert.Equal(t, model.PlatformGitLab, ref.Platform)
	assert.Equal(t, "owner", ref.Owner)
	assert.Equal(t, "repo", ref.Repo)

	ref, ok = ParseRepoURL("https://bitbucket.org/owner/repo")
	require.True(t, ok)
	assert.Equal(t, model.PlatformBitbucket, ref.Platform)
}

func TestParseRepoURL_Unrecognized(t *testing.T) {
	_, ok := ParseRepoURL("")
	assert.False(t, ok)

	_, ok = ParseRepoURL("https://sourceforge.net/projects/owner/repo")
	assert.False(t, ok)
}
