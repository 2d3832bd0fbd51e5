package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestNpmAdapter_Ecosystem(t *testing.T) {
	assert.Equal(t, model.EcosystemNPM, NewNpmAdapter(nil).Ecosystem())
}

func TestNpmExtractLicense(t *testing.T) {
	assert.Equal(t, "MIT", npmExtractLicense("MIT", nil))
	assert.Equal(t, "ISC", npmExtractLicense(nil, "ISC"))
	assert.Equal(t, "Apache-2.0", npmExtractLicense(map[string]interface{}{"type": "Apache-2.0"}, nil))
	assert.Equal(t, "", npmExtractLicense(nil, nil))
}

func TestNpmCleanGitURL(t *testing.T) {
	assert.Equal(t, "https://github.com/owner/repo", npmCleanGitURL("git+https://github.com/owner/repo.git"))
	assert.Equal(t, "https://github.com/owner/repo", npmCleanGitURL("git://github.com/owner/repo.git"))
}

func TestNpmAdapter_GetSourceRepo(t *testing.T) {
	a := NewNpmAdapter(nil)

	ref, ok := a.GetSourceRepo(model.PackageMetadata{RepositoryURL: "github:owner/repo"})
	require.True(t, ok)
	assert.Equal(t, model.PlatformGitHub, ref.Platform)
	assert.Equal(t, "owner", ref.Owner)
	assert.Equal(t, "repo", ref.Repo)

	ref, ok = a.GetSourceRepo(model.PackageMetadata{RepositoryURL: "git+https://github.com/owner/repo.git"})
	require.True(t, ok)
	assert.Equal(t, "owner", ref.Owner)
	assert.Equal(t, "repo", ref.Repo)

	_, ok = a.GetSourceRepo(model.PackageMetadata{})
	assert.False(t, ok)
}
