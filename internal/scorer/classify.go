package scorer

import "github.com/pkgrisk/analyzer/internal/model"

func riskTier(in Input, overall, securityScore float64) model.RiskTier {
	sc := in.SupplyChain

	if sc.RiskLevel == model.SupplyChainRiskCritical ||
		sc.HasFlag(model.FlagInstallsAlternativeRuntime) ||
		(sc.HasFlag(model.FlagAccessesCredentials) && sc.HasFlag(model.FlagMakesNetworkCalls)) ||
		len(sc.Tarball.KnownMalicious) > 0 ||
		(in.HasRepoFacts && in.Facts.Info.Archived) ||
		hasUnpatchedCritical(in.Vulns) {
		return model.RiskTierProhibited
	}

	if securityScore < 40 || sc.RiskLevel == model.SupplyChainRiskHigh {
		return model.RiskTierRestricted
	}

	if overall >= 80 && securityScore >= 70 {
		if sc.RiskLevel == model.SupplyChainRiskMedium || sc.RiskLevel == model.SupplyChainRiskHigh || sc.RiskLevel == model.SupplyChainRiskCritical {
			return model.RiskTierConditional
		}
		return model.RiskTierApproved
	}

	if overall >= 60 {
		return model.RiskTierConditional
	}
	return model.RiskTierRestricted
}

func updateUrgency(in Input) model.UpdateUrgency {
	sc := in.SupplyChain

	if sc.RiskLevel == model.SupplyChainRiskCritical ||
		sc.HasFlag(model.FlagInstallsAlternativeRuntime) ||
		sc.HasFlag(model.FlagAccessesCredentials) ||
		len(sc.Tarball.KnownMalicious) > 0 {
		return model.UrgencyCritical
	}
	if sc.RiskLevel == model.SupplyChainRiskHigh || sc.RiskLevel == model.SupplyChainRiskMedium {
		return model.UrgencyHigh
	}

	if hasUnpatchedCritical(in.Vulns) {
		return model.UrgencyCritical
	}
	if hasAnyFixed(in.Vulns) {
		return model.UrgencyHigh
	}

	if in.HasRepoFacts && (in.Facts.Info.Archived || in.Facts.Info.Deprecated || in.Facts.Commits.CommitsLast180d == 0) {
		return model.UrgencyMedium
	}

	return model.UrgencyLow
}

func hasUnpatchedCritical(h model.CVEHistory) bool {
	for _, c := range h.Items {
		if !c.Withdrawn && c.FixedVersion == "" && c.Severity == model.SeverityCritical {
			return true
		}
	}
	return false
}

func hasAnyFixed(h model.CVEHistory) bool {
	for _, c := range h.Items {
		if !c.Withdrawn && c.FixedVersion != "" {
			return true
		}
	}
	return false
}
