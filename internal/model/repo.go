package model

import "time"

// RepoInfo carries the repository-level identifiers, timestamps and flags.
//
// Invariant: PushedAt >= CreatedAt (enforced by the fetcher, not here —
// upstream data that violates it is clamped at ingestion).
type RepoInfo struct {
	ID          int64
	FullName    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PushedAt    time.Time
	Stars       int
	Forks       int
	OpenIssues  int
	Language    string
	Topics      []string
	Archived    bool
	Fork        bool
	HasDiscussions bool
	Deprecated  bool // derived, see DeprecationSignals
}

// ContributorStats summarizes the contributor distribution.
type ContributorStats struct {
	Total              int
	ActiveLast6Months  int
	PriorActive6Months int
	TopContributorPct  float64 // percentage, 0-100
	CountAtLeast5Pct   int
	FirstTimeLast6Mo   int
	Trend              ContributorTrend
	EntropyBits        float64
	EntropyDefined     bool
}

type ContributorTrend string

const (
	TrendGrowing   ContributorTrend = "growing"
	TrendStable    ContributorTrend = "stable"
	TrendDeclining ContributorTrend = "declining"
)

// ComputeTrend classifies active-contributor change from two six-month
// windows.
func ComputeTrend(activeNow, activePrev int) ContributorTrend {
	if activePrev == 0 {
		if activeNow > 0 {
			return TrendGrowing
		}
		return TrendStable
	}
	ratio := float64(activeNow) / float64(activePrev)
	switch {
	case ratio > 1.3:
		return TrendGrowing
	case ratio < 0.7:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// CommitActivity summarizes the commit stream.
type CommitActivity struct {
	LastCommitAt     time.Time
	CommitsLast180d  int
	CommitsLast365d  int
	SignedCommitPct  float64 // percent, rounded to 0.1
}

// IssueStats summarizes issue response behavior.
type IssueStats struct {
	OpenCount           int
	ClosedCount         int
	AvgFirstResponseHrs float64
	AvgCloseTimeHrs     float64
	SampledCount        int // open+closed issues among up to 100 most recently created; not limited to closed issues
	CloseRatePct        float64
}

// PRStats summarizes pull-request throughput.
type PRStats struct {
	OpenCount   int
	MergedCount int
	StaleCount  int // open, created 30+ days ago
}

// ReleaseStats summarizes release cadence.
type ReleaseStats struct {
	TotalReleases    int
	ReleasesLastYear int
	PrereleaseRatio  float64
	LatestIsMajorGE1 bool
}

// CIDepth records which CI capabilities were detected.
type CIDepth struct {
	HasTests        bool
	HasLint         bool
	HasSecurity     bool
	HasRelease      bool
	HasMultiPlatform bool
	PassRatePct     float64
	PassRateKnown   bool
}

// CIStatus bundles the CI signals for a repository.
type CIStatus struct {
	Depth CIDepth
}

// SecurityFacts captures repo-level security posture signals.
type SecurityFacts struct {
	HasSecurityPolicy bool
	SecurityTools     []SecurityTool
	SLSALevel         int // 0 = none detected
	HasSigstore       bool
	HasSBOM           bool
	ReproducibleBuild bool
	CVEs              CVEHistory
	VulnerableDeps    int
}

type SecurityTool string

const (
	ToolDependabot SecurityTool = "dependabot"
	ToolCodeQL     SecurityTool = "codeql"
	ToolSnyk       SecurityTool = "snyk"
	ToolRenovate   SecurityTool = "renovate"
	ToolTrivy      SecurityTool = "trivy"
	ToolSemgrep    SecurityTool = "semgrep"
	ToolGeneric    SecurityTool = "generic_security_ci"
)

// RepoFiles records the presence of well-known repository files.
type RepoFiles struct {
	HasReadme       bool
	ReadmeBytes     int
	HasDocsDir      bool
	HasExamplesDir  bool
	HasChangelog    bool
	HasContributing bool
	HasIssueTemplate bool
	HasPRTemplate   bool
	HasCodeOfConduct bool
	HasCodeowners   bool
	HasGovernance   bool
	HasTestsDir     bool
}

// RepoFacts is the composite of every GitHub-shaped fact gathered for a
// repository. Any sub-record not fetched successfully is left at its
// zero value rather than aborting the whole RepoFacts.
type RepoFacts struct {
	Info         RepoInfo
	Contributors ContributorStats
	Commits      CommitActivity
	Issues       IssueStats
	PRs          PRStats
	Releases     ReleaseStats
	Security     SecurityFacts
	Files        RepoFiles
	CI           CIStatus

	// ReleaseDates maps a tag (and v-prefixed/stripped variants) to its
	// publish timestamp, used by the OSV fetcher for days-to-patch.
	ReleaseDates map[string]time.Time
}
