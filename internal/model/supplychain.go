package model

import "time"

// LifecycleRiskLevel bands the danger of a package's install-time scripts.
type LifecycleRiskLevel string

const (
	LifecycleRiskNone   LifecycleRiskLevel = "none"
	LifecycleRiskLow    LifecycleRiskLevel = "low"
	LifecycleRiskMedium LifecycleRiskLevel = "medium"
	LifecycleRiskHigh   LifecycleRiskLevel = "high"
)

// SuspiciousPattern is a single pattern match found while scanning a
// lifecycle script or tarball member.
type SuspiciousPattern struct {
	Pattern     string
	File        string
	Line        int
	LineKnown   bool
	Description string
}

// LifecycleScriptRisk summarizes preinstall/install/postinstall scanning.
type LifecycleScriptRisk struct {
	HasPreinstall  bool
	HasInstall     bool
	HasPostinstall bool
	Scripts        map[string]string // script name -> raw command
	Patterns       []SuspiciousPattern
	Score          float64 // 0-100, additive contributions per spec
	Level          LifecycleRiskLevel

	HasNetworkFetch    bool
	HasPipeToShell     bool
	HasEnvVarRef       bool
	HasURLLiteral      bool
	HasBase64Decode    bool
	HasRuntimeInstall  bool
	HasObfuscation     bool
	HasCredentialAccess bool
}

// TarballFile is a single file entry recovered from a published tarball,
// used for tarball-vs-repo diffing.
type TarballFile struct {
	Path string
	Size int64
	SHA256 string
}

// TarballAnalysis compares the published tarball contents against the
// tagged repository tree for the same version.
type TarballAnalysis struct {
	Available        bool
	FileCount        int
	TotalSizeBytes    int64
	ExtraFiles       []string // present in tarball, absent from repo tree, not an expected-generated pattern
	MissingSourceMap bool     // no sourcemaps / no .py source for compiled-looking dist
	Files            []TarballFile
	Patterns         []SuspiciousPattern
	KnownMalicious   []string // filenames matching the known-malicious allow-list
	Score            float64 // 0-100, additive contributions per spec
}

// VersionDiff flags anomalous jumps between consecutive published
// versions (e.g. skipped a major, or published out of semver order).
type VersionDiff struct {
	FromVersion       string
	ToVersion         string
	BumpKind          string // major, minor, patch
	IsAnomalous       bool
	AnomalyReason     string
	PublishedAt       time.Time
	NewScripts        []string // scripts present in ToVersion but not FromVersion
	NewDependencies   []string
	NewDangerousScript bool // a newly introduced preinstall/install/postinstall
	Score             float64
}

// PublishingInfo records maintainer/publisher facts relevant to account
// takeover risk.
type PublishingInfo struct {
	LastPublishedAt      time.Time
	Maintainers          []string
	Publisher            string
	PublisherInMaintainers bool
	PublisherKnown       bool
	HasProvenance        bool // npm/PyPI publisher attestation present
	ProvenanceVerified   bool
	Score                float64
}

// SupplyChainRiskLevel bands the aggregated supply-chain risk score.
type SupplyChainRiskLevel string

const (
	SupplyChainRiskLow      SupplyChainRiskLevel = "low"
	SupplyChainRiskMedium   SupplyChainRiskLevel = "medium"
	SupplyChainRiskHigh     SupplyChainRiskLevel = "high"
	SupplyChainRiskCritical SupplyChainRiskLevel = "critical"
)

// SupplyChainBehavioralFlag is one of the coarse tripwires surfaced in a
// package's analysis summary independent of the numeric score.
type SupplyChainBehavioralFlag string

const (
	FlagInstallsAlternativeRuntime SupplyChainBehavioralFlag = "installs_alternative_runtime"
	FlagAccessesCredentials        SupplyChainBehavioralFlag = "accesses_credentials"
	FlagMakesNetworkCalls          SupplyChainBehavioralFlag = "makes_network_calls"
	FlagContainsObfuscation        SupplyChainBehavioralFlag = "contains_obfuscation"
)

// SupplyChainData is the composite of every supply-chain-specific signal
// gathered for a package. Sub-records the analyzer could not evaluate
// (no tarball fetched, registry omits 2FA status) are left at zero value
// with their own Available/Known flag rather than omitting the struct.
type SupplyChainData struct {
	Available            bool
	Lifecycle             LifecycleScriptRisk
	Tarball               TarballAnalysis
	VersionDiffs          []VersionDiff
	Publishing            PublishingInfo
	OverallRiskScore      float64 // max(component scores) + compounding bonus, capped at 100
	RiskLevel             SupplyChainRiskLevel
	AllSuspiciousPatterns []SuspiciousPattern
	CriticalFindings      []string
	BehavioralFlags       []SupplyChainBehavioralFlag
}

// HasFlag reports whether flag was tripped.
func (d SupplyChainData) HasFlag(flag SupplyChainBehavioralFlag) bool {
	for _, f := range d.BehavioralFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// RiskLevelFromScore bands an aggregated 0-100 supply-chain risk score.
func RiskLevelFromScore(score float64) SupplyChainRiskLevel {
	switch {
	case score >= 75:
		return SupplyChainRiskCritical
	case score >= 50:
		return SupplyChainRiskHigh
	case score >= 25:
		return SupplyChainRiskMedium
	default:
		return SupplyChainRiskLow
	}
}
