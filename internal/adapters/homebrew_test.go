package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestHomebrewAdapter_Ecosystem(t *testing.T) {
	assert.Equal(t, model.EcosystemHomebrew, NewHomebrewAdapter(nil).Ecosystem())
}

func TestHomebrewRepoURL_FromHomepage(t *testing.T) {
	data := homebrewFormula{Homepage: "https://github.com/owner/repo"}
	assert.Equal(t, "https://github.com/owner/repo", homebrewRepoURL(data))
}

func TestHomebrewRepoURL_FromHeadURL(t *testing.T) {
	var data homebrewFormula
	data.URLs.Head.URL = "https://github.com/owner/repo.git"
	assert.Equal(t, "https://github.com/owner/repo", homebrewRepoURL(data))
}

func TestHomebrewRepoURL_FromStableTarball(t *testing.T) {
	var data homebrewFormula
	data.URLs.Stable.URL = "https://github.com/owner/repo/archive/refs/tags/v1.0.0.tar.gz"
	assert.Equal(t, "https://github.com/owner/repo", homebrewRepoURL(data))
}

func TestHomebrewRepoURL_NoGitHub(t *testing.T) {
	data := homebrewFormula{Homepage: "https://example.com"}
	assert.Equal(t, "", homebrewRepoURL(data))
}
