package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestPyPiAdapter_NormalizeName(t *testing.T) {
	a := NewPyPiAdapter(nil)
	assert.Equal(t, "my-package", a.pypiNormalizeName("my_package"))
	assert.Equal(t, "my-package", a.pypiNormalizeName("My.Package"))
	assert.Equal(t, "my-package", a.pypiNormalizeName("my--package"))
}

func TestPyPiAdapter_ExtractLicense(t *testing.T) {
	a := NewPyPiAdapter(nil)

	assert.Equal(t, "MIT", a.extractLicense(pypiInfo{License: "MIT"}))
	assert.Equal(t, "", a.extractLicense(pypiInfo{License: "UNKNOWN"}))
	assert.Equal(t, "Apache Software License", a.extractLicense(pypiInfo{
		Classifiers: []string{"License :: OSI Approved :: Apache Software License"},
	}))
}

func TestPyPiAdapter_ParseDependencies(t *testing.T) {
	a := NewPyPiAdapter(nil)
	deps := a.parseDependencies([]string{
		"requests (>=2.0)",
		"black; extra == 'dev'",
		"click>=8.0,<9.0",
		"requests (>=2.0)",
	})
	assert.ElementsMatch(t, []string{"requests", "click"}, deps)
}

func TestPyPiAdapter_ExtractRepoURL(t *testing.T) {
	a := NewPyPiAdapter(nil)
	u := a.extractRepoURL(pypiInfo{
		ProjectURLs: map[string]string{
			"Homepage": "https://example.com",
			"Source":   "https://github.com/owner/repo",
		},
	})
	assert.Equal(t, "https://github.com/owner/repo", u)
}

func TestPyPiAdapter_GetSourceRepo(t *testing.T) {
	a := NewPyPiAdapter(nil)
	ref, ok := a.GetSourceRepo(model.PackageMetadata{RepositoryURL: "https://github.com/owner/repo/tree/main"})
	require.True(t, ok)
	assert.Equal(t, "owner", ref.Owner)
	assert.Equal(t, "repo", ref.Repo)
}
