package repohost

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/pkgrisk/analyzer/internal/model"
)

// deprecationPhrases are matched case-insensitively against a repo's
// description to catch maintainers who announce deprecation in prose
// rather than archiving the repository.
var deprecationPhrases = []string{
	"deprecated", "no longer maintained", "unmaintained", "not maintained",
	"maintenance mode", "abandoned", "end of life", "eol",
	"superseded by", "replaced by", "use instead",
}

var deprecationTopics = map[string]bool{
	"deprecated": true, "unmaintained": true, "archived": true, "abandoned": true,
}

// DeprecationSignals reports whether a repository's description or
// topics announce deprecation independent of the archived flag.
func DeprecationSignals(info model.RepoInfo) bool {
	desc := strings.ToLower(info.Description)
	for _, phrase := range deprecationPhrases {
		if strings.Contains(desc, phrase) {
			return true
		}
	}
	for _, topic := range info.Topics {
		if deprecationTopics[strings.ToLower(topic)] {
			return true
		}
	}
	return false
}

// securityToolMarkers maps a detection substring (filename or decoded
// workflow content) to the tool it indicates.
var securityToolMarkers = map[string]model.SecurityTool{
	"dependabot":    model.ToolDependabot,
	"codeql":        model.ToolCodeQL,
	"snyk":          model.ToolSnyk,
	"renovate":      model.ToolRenovate,
	"trivy":         model.ToolTrivy,
	"semgrep":       model.ToolSemgrep,
}

var slsaGeneratorMarkers = []string{"slsa-framework/slsa-github-generator", "slsa-github-generator"}
var slsaBuilderMarkers = []string{"builder-go", "verifier"}
var sigstoreMarkers = []string{"sigstore", "cosign"}
var sbomMarkers = []string{"cyclonedx", "syft", "spdx", "sbom"}

// fetchSecurityFacts inspects workflow files and the dependabot config
// for security tooling, derives an SLSA level, and carries the CVE
// history attached by a later pipeline stage (left empty here — the
// vulnerability fetcher populates it once release dates are known).
func (c *Client) fetchSecurityFacts(ctx context.Context, ref model.RepoRef, ci model.CIStatus) (model.SecurityFacts, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var facts model.SecurityFacts

	if _, _, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, "SECURITY.md", nil); err == nil {
		facts.HasSecurityPolicy = true
	} else if _, _, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ".github/SECURITY.md", nil); err == nil {
		facts.HasSecurityPolicy = true
	}

	if _, _, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ".github/dependabot.yml", nil); err == nil {
		facts.SecurityTools = appendTool(facts.SecurityTools, model.ToolDependabot)
	}

	names, err := c.listWorkflowFiles(ctx, ref)
	if err != nil {
		return facts, nil
	}

	slsaLevel := 0
	for _, name := range names {
		for marker, tool := range securityToolMarkers {
			if strings.Contains(name, marker) {
				facts.SecurityTools = appendTool(facts.SecurityTools, tool)
			}
		}

		content, err := c.getWorkflowContent(ctx, ref, name)
		if err != nil || content == "" {
			continue
		}
		lower := strings.ToLower(content)

		for marker, tool := range securityToolMarkers {
			if strings.Contains(lower, marker) {
				facts.SecurityTools = appendTool(facts.SecurityTools, tool)
			}
		}
		if containsAny(lower, sigstoreMarkers) {
			facts.HasSigstore = true
		}
		if containsAny(lower, sbomMarkers) {
			facts.HasSBOM = true
		}
		if strings.Contains(lower, "reproducible") {
			facts.ReproducibleBuild = true
		}
		if containsAny(lower, slsaGeneratorMarkers) {
			if containsAny(lower, slsaBuilderMarkers) {
				slsaLevel = maxInt(slsaLevel, 3)
			} else {
				slsaLevel = maxInt(slsaLevel, 2)
			}
		} else if strings.Contains(lower, "provenance") {
			slsaLevel = maxInt(slsaLevel, 1)
		}
		if isSecurityWorkflowName(name) || containsAny(lower, genericSecurityMarkers) {
			hasGeneric := true
			for _, t := range facts.SecurityTools {
				if t != model.ToolGeneric {
					continue
				}
				hasGeneric = false
			}
			if hasGeneric {
				facts.SecurityTools = appendTool(facts.SecurityTools, model.ToolGeneric)
			}
		}
	}
	facts.SLSALevel = slsaLevel

	return facts, nil
}

var genericSecurityMarkers = []string{"security-audit", "vulnerability", "cve-scan", "govulncheck", "npm audit", "pip-audit"}

func isSecurityWorkflowName(name string) bool {
	return strings.Contains(name, "security") || strings.Contains(name, "audit")
}

func appendTool(tools []model.SecurityTool, t model.SecurityTool) []model.SecurityTool {
	for _, existing := range tools {
		if existing == t {
			return tools
		}
	}
	return append(tools, t)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func (c *Client) getWorkflowContent(ctx context.Context, ref model.RepoRef, filename string) (string, error) {
	content, _, _, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ".github/workflows/"+filename, nil)
	if err != nil || content == nil {
		return "", err
	}
	if content.GetEncoding() == "base64" {
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.GetContent(), "\n", ""))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return content.GetContent(), nil
}

// matrixPlatforms is the set of OS runner names that, when at least two
// appear in a workflow's strategy matrix, counts as multi-platform CI.
var matrixPlatforms = []string{"ubuntu", "windows", "macos"}

// fetchCIStatus inspects workflow filenames and decoded content to
// classify CI depth: does it run tests, lint, security scans, cut
// releases, and build across multiple platforms. Pass rate comes from
// the most recent workflow runs, sampled rather than paginated in full.
func (c *Client) fetchCIStatus(ctx context.Context, ref model.RepoRef) (model.CIStatus, error) {
	names, err := c.listWorkflowFiles(ctx, ref)
	if err != nil {
		return model.CIStatus{}, err
	}

	var depth model.CIDepth
	for _, name := range names {
		switch {
		case strings.Contains(name, "test") || strings.Contains(name, "ci."):
			depth.HasTests = true
		case strings.Contains(name, "lint"):
			depth.HasLint = true
		case strings.Contains(name, "release") || strings.Contains(name, "publish"):
			depth.HasRelease = true
		case isSecurityWorkflowName(name):
			depth.HasSecurity = true
		}

		content, err := c.getWorkflowContent(ctx, ref, name)
		if err != nil || content == "" {
			continue
		}
		lower := strings.ToLower(content)
		if strings.Contains(lower, "test") || strings.Contains(lower, "jest") || strings.Contains(lower, "pytest") || strings.Contains(lower, "go test") {
			depth.HasTests = true
		}
		if strings.Contains(lower, "lint") || strings.Contains(lower, "eslint") || strings.Contains(lower, "flake8") || strings.Contains(lower, "golangci") {
			depth.HasLint = true
		}
		if containsAny(lower, genericSecurityMarkers) || strings.Contains(lower, "codeql") {
			depth.HasSecurity = true
		}
		if strings.Contains(lower, "release") || strings.Contains(lower, "publish") {
			depth.HasRelease = true
		}
		platforms := 0
		for _, p := range matrixPlatforms {
			if strings.Contains(lower, p) {
				platforms++
			}
		}
		if platforms >= 2 {
			depth.HasMultiPlatform = true
		}
	}

	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	runs, _, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx2, ref.Owner, ref.Repo, &github.ListWorkflowRunsOptions{
		ListOptions: github.ListOptions{PerPage: 30},
	})
	if err == nil && runs != nil && len(runs.WorkflowRuns) > 0 {
		var completed, success int
		for _, r := range runs.WorkflowRuns {
			if r.GetStatus() != "completed" {
				continue
			}
			completed++
			if r.GetConclusion() == "success" {
				success++
			}
		}
		if completed > 0 {
			depth.PassRatePct = float64(success) / float64(completed) * 100
			depth.PassRateKnown = true
		}
	}

	return model.CIStatus{Depth: depth}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
