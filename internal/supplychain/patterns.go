// Package supplychain implements the npm supply-chain analyzer: lifecycle
// script scanning, tarball-vs-repository diffing, version-jump detection,
// and publisher attestation, aggregated into a single risk score in the
// shape of the Shai-Hulud attack family (preinstall shell fetch, runtime
// install, credential exfiltration).
package supplychain

import (
	"regexp"
	"strings"
)

// patternSeverity bands a single pattern match for the additive scoring
// formula: critical +25, high +15, medium +8, low +3.
type patternSeverity string

const (
	sevCritical patternSeverity = "critical"
	sevHigh     patternSeverity = "high"
	sevMedium   patternSeverity = "medium"
	sevLow      patternSeverity = "low"
)

func (s patternSeverity) points() float64 {
	switch s {
	case sevCritical:
		return 25
	case sevHigh:
		return 15
	case sevMedium:
		return 8
	case sevLow:
		return 3
	default:
		return 0
	}
}

// patternRule is one regex-driven detector shared by the lifecycle and
// tarball scanners, differing only in which set a given rule belongs to.
type patternRule struct {
	name        string
	re          *regexp.Regexp
	severity    patternSeverity
	description string
}

// lifecycleRules scans shell command strings from package.json scripts.
// Distinct from tarballSourceRules because script bodies are shell, not
// JavaScript.
var lifecycleRules = []patternRule{
	{"network_fetch", regexp.MustCompile(`(?i)\b(curl|wget)\b`), sevHigh, "network fetch via curl/wget"},
	{"pipe_to_shell", regexp.MustCompile(`(?i)\|\s*(bash|sh|zsh)\b`), sevCritical, "piped output executed by a shell"},
	{"node_exec", regexp.MustCompile(`(?i)\bnode\s+[\w./-]+\.js\b`), sevMedium, "node file execution"},
	{"env_var_ref", regexp.MustCompile(`\$\{?[A-Z_][A-Z0-9_]*\}?`), sevLow, "environment variable reference"},
	{"url_literal", regexp.MustCompile(`https?://[^\s'"]+`), sevMedium, "hardcoded URL literal"},
	{"base64_decode", regexp.MustCompile(`(?i)base64\s+(-d|--decode)|atob\(`), sevHigh, "base64 decode"},
	{"runtime_install_bun_sh", regexp.MustCompile(`(?i)bun\.sh`), sevCritical, "downloads the Bun runtime installer"},
	{"runtime_install_npm_bun", regexp.MustCompile(`(?i)npm\s+install\s+(-g\s+)?bun\b`), sevCritical, "installs Bun via npm"},
	{"runtime_install_deno", regexp.MustCompile(`(?i)deno\.(land|com)`), sevCritical, "downloads the Deno runtime installer"},
	{"runtime_install_generic", regexp.MustCompile(`(?i)\binstall\s+(bun|deno)\b`), sevCritical, "generic alternative-runtime install"},
}

// credentialEnvPattern matches environment variables commonly used to
// hold secrets; a reference to one of these sets HasCredentialAccess
// (+25), and together with a network fetch in any lifecycle script it
// also adds the +20 network-plus-credential bonus.
var credentialEnvPattern = regexp.MustCompile(`(?i)\$\{?(NPM_TOKEN|GITHUB_TOKEN|GH_TOKEN|AWS_SECRET_ACCESS_KEY|AWS_ACCESS_KEY_ID|API_KEY|SECRET|PASSWORD|PRIVATE_KEY|SSH_(AUTH_SOCK|PRIVATE_KEY))\}?`)

// tarballSourceRules scan JavaScript source bundled in a published
// tarball. Broader than the lifecycle set because it also looks for
// obfuscation constructs that only make sense in program text.
var tarballSourceRules = []patternRule{
	{"long_base64_literal", regexp.MustCompile(`['"][A-Za-z0-9+/]{200,}={0,2}['"]`), sevHigh, "long base64 literal"},
	{"long_hex_sequence", regexp.MustCompile(`(0x[0-9a-fA-F]{2},?\s*){40,}`), sevMedium, "long hex byte sequence"},
	{"eval_var", regexp.MustCompile(`\beval\s*\(\s*[a-zA-Z_$][\w$]*\s*\)`), sevHigh, "eval of a bare variable"},
	{"eval_concat", regexp.MustCompile(`\beval\s*\([^)]*\+[^)]*\)`), sevCritical, "eval of a concatenated string"},
	{"new_function_concat", regexp.MustCompile(`new\s+Function\s*\([^)]*\+[^)]*\)`), sevCritical, "dynamic Function construction from concatenated input"},
	{"string_fromcharcode", regexp.MustCompile(`String\.fromCharCode\((\s*\d+\s*,){10,}`), sevHigh, "large String.fromCharCode sequence"},
	{"buffer_from_base64_var", regexp.MustCompile(`Buffer\.from\s*\(\s*[a-zA-Z_$][\w$]*\s*,\s*['"]base64['"]\s*\)`), sevMedium, "Buffer.from of a variable decoded as base64"},
	{"network_fetch_js", regexp.MustCompile(`(?i)\b(require\(['"]https?['"]\)|fetch\(|XMLHttpRequest|axios\.(get|post))`), sevHigh, "network call from source"},
	{"process_spawn", regexp.MustCompile(`child_process|execSync|spawnSync`), sevMedium, "process spawn"},
	{"credential_path_access", regexp.MustCompile(`(?i)\.(npmrc|aws[/\\]credentials|ssh[/\\]id_rsa|netrc)\b`), sevCritical, "reads a well-known credential file"},
}

// knownMaliciousFilenames are filenames observed in prior supply-chain
// attacks (the Shai-Hulud family); any tarball member matching one is
// flagged regardless of its content.
var knownMaliciousFilenames = map[string]string{
	"setup_bun.js":          "matches known Shai-Hulud dropper filename",
	"bun_environment.js":    "matches known Shai-Hulud runtime-install filename",
	"cloud.js":              "matches known Shai-Hulud credential-exfiltration filename",
	"migrate-repos.js":      "matches known Shai-Hulud self-propagation filename",
	"trufflesecurity-shai-hulud": "matches known Shai-Hulud marker",
}

// expectedGeneratedPrefixes are tarball member path prefixes that are
// expected to exist only in the published tarball (build output), not in
// the source repository tree, so their presence alone isn't suspicious.
var expectedGeneratedPrefixes = []string{"dist/", "build/", "lib/", "out/"}

// expectedGeneratedSuffixes similarly allow-list generated file types.
var expectedGeneratedSuffixes = []string{".d.ts", ".map"}

var expectedGeneratedNames = map[string]bool{
	"package.json": true, "readme.md": true, "readme": true,
	"license": true, "license.md": true, "license.txt": true,
	"changelog.md": true, "changelog": true,
}

func isExpectedGenerated(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, ".") {
		return true
	}
	for _, p := range expectedGeneratedPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	for _, s := range expectedGeneratedSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return expectedGeneratedNames[lower]
}
