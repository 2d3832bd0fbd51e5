package aggregator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestProjectKeyFor(t *testing.T) {
	cases := []struct {
		ref  model.RepoRef
		want string
	}{
		{model.RepoRef{Platform: model.PlatformGitHub, Owner: "foo", Repo: "bar"}, "github.com/foo/bar"},
		{model.RepoRef{Platform: model.PlatformGitLab, Owner: "foo", Repo: "bar"}, "gitlab.com/foo/bar"},
		{model.RepoRef{Platform: model.PlatformBitbucket, Owner: "foo", Repo: "bar"}, "bitbucket.org/foo/bar"},
		{model.RepoRef{Platform: "sourcehut", Owner: "foo", Repo: "bar"}, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, projectKeyFor(c.ref))
	}
}

func TestSLSALevelFromString(t *testing.T) {
	assert.Equal(t, 3, slsaLevelFromString("https://slsa.dev/provenance/level3"))
	assert.Equal(t, 1, slsaLevelFromString("https://slsa.dev/provenance/l1"))
	assert.Equal(t, 1, slsaLevelFromString("https://in-toto.io/Statement/v1"))
	assert.Equal(t, 0, slsaLevelFromString(""))
}

func TestBFSRollup_EmptyNodesReportsKnown(t *testing.T) {
	summary := bfsRollup(depsDevDependenciesResponse{})
	assert.True(t, summary.Known)
	assert.Zero(t, summary.DirectCount)
}

func TestBFSRollup_ClassifiesDirectAndTransitive(t *testing.T) {
	resp := depsDevDependenciesResponse{}
	resp.Nodes = make([]struct {
		VersionKey struct {
			System string `json:"system"`
			Name   string `json:"name"`
		} `json:"versionKey"`
		Vulnerable bool `json:"vulnerable"`
	}, 3)
	resp.Nodes[2].Vulnerable = true
	resp.Edges = []struct {
		FromNode int `json:"fromNode"`
		ToNode   int `json:"toNode"`
	}{
		{FromNode: 0, ToNode: 1},
		{FromNode: 1, ToNode: 2},
	}

	summary := bfsRollup(resp)
	assert.True(t, summary.Known)
	assert.Equal(t, 1, summary.DirectCount)
	assert.Equal(t, 1, summary.TransitiveCount)
	assert.Equal(t, 1, summary.VulnerableCount)
	assert.Equal(t, 2, summary.MaxDepth)
}

func TestFetch_IsolatesSubQueryFailures(t *testing.T) {
	f := NewFetcher(nil)
	// No network reachable package system / repo, so every sub-query
	// either skips (unknown ecosystem) or fails; Fetch must still return
	// a zero-valued AggregatorData rather than panicking or blocking.
	data := f.Fetch(context.Background(), model.PackageRef{Ecosystem: "unknown-eco", Name: "x"}, "", model.RepoRef{})
	assert.False(t, data.SLSAAttestation)
	assert.False(t, data.DepGraph.Known)
}
