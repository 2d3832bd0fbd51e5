package supplychain

import (
	"archive/tar"
	"bytes"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/pkgrisk/analyzer/internal/model"
)

const maxScannedFileBytes = 500 * 1024 // 500 KB, per spec's JS-file scan ceiling

// AnalyzeTarball enumerates a published npm tarball's members, diffs
// them against the repository tree (when known), and scans small,
// non-minified JavaScript files against the source pattern set.
// repoTree may be nil when the repository tree could not be fetched —
// in that case there is nothing to diff against, and every
// non-allow-listed member is listed in ExtraFiles.
func AnalyzeTarball(raw []byte, repoTree map[string]bool) (model.TarballAnalysis, error) {
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return model.TarballAnalysis{}, err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	analysis := model.TarballAnalysis{Available: true}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return analysis, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		// npm tarballs nest everything under "package/".
		memberPath := strings.TrimPrefix(hdr.Name, "package/")
		analysis.FileCount++
		analysis.TotalSizeBytes += hdr.Size

		base := path.Base(memberPath)
		lowerBase := strings.ToLower(base)
		if reason, known := knownMaliciousFilenames[lowerBase]; known {
			analysis.KnownMalicious = append(analysis.KnownMalicious, memberPath)
			analysis.Patterns = append(analysis.Patterns, model.SuspiciousPattern{
				Pattern:     "known_malicious_filename",
				File:        memberPath,
				Description: reason,
			})
		}

		if !isExpectedGenerated(memberPath) && (repoTree == nil || !repoTree[memberPath]) {
			analysis.ExtraFiles = append(analysis.ExtraFiles, memberPath)
		}

		analysis.Files = append(analysis.Files, model.TarballFile{Path: memberPath, Size: hdr.Size})

		if shouldScanAsSource(memberPath, hdr.Size) {
			content := make([]byte, hdr.Size)
			if _, err := io.ReadFull(tr, content); err != nil {
				continue
			}
			if isMinified(content) {
				continue
			}
			for _, pat := range scanSource(string(content), memberPath) {
				analysis.Patterns = append(analysis.Patterns, pat)
			}
		}
	}

	analysis.Score = tarballScore(analysis)
	sort.Slice(analysis.Files, func(i, j int) bool { return analysis.Files[i].Path < analysis.Files[j].Path })
	return analysis, nil
}

func shouldScanAsSource(p string, size int64) bool {
	return strings.HasSuffix(strings.ToLower(p), ".js") && size > 0 && size < maxScannedFileBytes
}

// isMinified approximates the detection described in the spec: average
// line length over 200 characters, or a large file with very few lines.
func isMinified(content []byte) bool {
	lines := bytes.Split(content, []byte("\n"))
	nonEmpty := 0
	for _, l := range lines {
		if len(bytes.TrimSpace(l)) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	avgLen := float64(len(content)) / float64(nonEmpty)
	if avgLen > 200 {
		return true
	}
	return len(content) > 50*1024 && nonEmpty < 10
}

func scanSource(content, file string) []model.SuspiciousPattern {
	var out []model.SuspiciousPattern
	rules := append(append([]patternRule{}, tarballSourceRules...), lifecycleRules...)
	for _, rule := range rules {
		if rule.re.MatchString(content) {
			out = append(out, model.SuspiciousPattern{
				Pattern:     rule.name,
				File:        file,
				Description: rule.description,
			})
		}
	}
	return out
}

// tarballScore is additive, mirroring the lifecycle formula: +20 per
// known-malicious filename (capped at +40 total via the x2-up-to-two-
// findings rule described for suspicious tarball files), +15 per
// critical pattern, +8 per non-critical pattern, +15 for many
// non-repo-tracked files, all capped at 100.
func tarballScore(a model.TarballAnalysis) float64 {
	var score float64
	maliciousCount := len(a.KnownMalicious)
	if maliciousCount > 2 {
		maliciousCount = 2
	}
	score += float64(maliciousCount) * 20

	for _, p := range a.Patterns {
		if p.Pattern == "known_malicious_filename" {
			continue
		}
		if isCriticalPattern(p.Pattern) {
			score += 15
		} else {
			score += 8
		}
	}

	if len(a.ExtraFiles) > 10 {
		score += 15
	}

	if score > 100 {
		score = 100
	}
	return score
}

func isCriticalPattern(name string) bool {
	switch name {
	case "eval_concat", "new_function_concat", "runtime_install_bun_sh", "runtime_install_npm_bun",
		"runtime_install_deno", "runtime_install_generic", "pipe_to_shell", "credential_path_access":
		return true
	default:
		return false
	}
}
