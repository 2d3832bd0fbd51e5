package supplychain

import (
	"sort"

	"github.com/pkgrisk/analyzer/internal/model"
)

// dangerousLifecycleScripts is the ordered set of lifecycle points this
// analyzer inspects, in the order their fixed point contributions apply.
var dangerousLifecycleScripts = []string{
	"preinstall", "install", "postinstall", "preuninstall", "postuninstall", "prepare", "prepublish",
}

var lifecyclePointContribution = map[string]float64{
	"preinstall":  30,
	"postinstall": 20,
	"install":     15,
}

// AnalyzeLifecycle scans a package manifest's scripts mapping for
// install-time shell commands and scores them per the additive formula:
// fixed per-lifecycle-point contributions, per-pattern severity points,
// and compounding bonuses for obfuscation, credential access, runtime
// install, and a network fetch combined with credential access.
func AnalyzeLifecycle(scripts map[string]string) model.LifecycleScriptRisk {
	risk := model.LifecycleScriptRisk{Scripts: map[string]string{}}
	if len(scripts) == 0 {
		risk.Level = model.LifecycleRiskNone
		return risk
	}

	var score float64
	for _, name := range dangerousLifecycleScripts {
		cmd, ok := scripts[name]
		if !ok || cmd == "" {
			continue
		}
		risk.Scripts[name] = cmd
		switch name {
		case "preinstall":
			risk.HasPreinstall = true
		case "install":
			risk.HasInstall = true
		case "postinstall":
			risk.HasPostinstall = true
		}
		score += lifecyclePointContribution[name]

		for _, rule := range lifecycleRules {
			loc := rule.re.FindStringIndex(cmd)
			if loc == nil {
				continue
			}
			risk.Patterns = append(risk.Patterns, model.SuspiciousPattern{
				Pattern:     rule.name,
				File:        name,
				Description: rule.description,
			})
			score += rule.severity.points()

			switch rule.name {
			case "network_fetch":
				risk.HasNetworkFetch = true
			case "pipe_to_shell":
				risk.HasPipeToShell = true
			case "env_var_ref":
				risk.HasEnvVarRef = true
			case "url_literal":
				risk.HasURLLiteral = true
			case "base64_decode":
				risk.HasBase64Decode = true
				risk.HasObfuscation = true
			case "runtime_install_bun_sh", "runtime_install_npm_bun", "runtime_install_deno", "runtime_install_generic":
				risk.HasRuntimeInstall = true
			}
		}
		if credentialEnvPattern.MatchString(cmd) {
			risk.HasCredentialAccess = true
		}
	}

	if risk.HasObfuscation {
		score += 20
	}
	if risk.HasCredentialAccess {
		score += 25
	}
	if risk.HasRuntimeInstall {
		score += 30
	}
	if risk.HasNetworkFetch && risk.HasCredentialAccess {
		score += 20
	}

	if score > 100 {
		score = 100
	}
	risk.Score = score
	risk.Level = lifecycleLevelFromScore(score)

	sort.Slice(risk.Patterns, func(i, j int) bool { return risk.Patterns[i].Pattern < risk.Patterns[j].Pattern })
	return risk
}

func lifecycleLevelFromScore(score float64) model.LifecycleRiskLevel {
	switch {
	case score >= 75:
		return model.LifecycleRiskHigh
	case score >= 40:
		return model.LifecycleRiskMedium
	case score > 0:
		return model.LifecycleRiskLow
	default:
		return model.LifecycleRiskNone
	}
}
