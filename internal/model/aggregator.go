package model

// ScorecardCheck is a single OpenSSF Scorecard check result.
type ScorecardCheck struct {
	Name    string
	Score   int // 0-10, -1 means not applicable
	Reason  string
}

// Scorecard mirrors the subset of deps.dev's scorecard projection that
// the pipeline consumes.
type Scorecard struct {
	OverallScore  float64
	Checks        []ScorecardCheck
	FuzzingEnabled bool
	SASTEnabled   bool
	CIIBadge      bool
	Known         bool
}

// CheckScore returns the score of the named check, or (-1, false) if it
// wasn't reported.
func (s Scorecard) CheckScore(name string) (int, bool) {
	for _, c := range s.Checks {
		if c.Name == name {
			return c.Score, true
		}
	}
	return -1, false
}

// BasicProjectMetrics holds the lightweight project counters deps.dev
// exposes for non-GitHub forges that lack a full Scorecard.
type BasicProjectMetrics struct {
	Stars           int
	Forks           int
	OpenIssues      int
	License         string
	OSSFuzzCovered  bool
	Known           bool
}

// DependencyGraphSummary is a BFS-derived rollup of a package's
// dependency tree as resolved by the aggregator.
type DependencyGraphSummary struct {
	DirectCount      int
	TransitiveCount  int
	VulnerableCount  int
	MaxDepth         int
	Known            bool
}

// AggregatorData is the composite of signals sourced from a
// cross-ecosystem aggregator (deps.dev-shaped). Any component the
// aggregator did not return data for keeps its own Known flag false
// rather than the whole AggregatorData being omitted.
type AggregatorData struct {
	Scorecard      Scorecard
	Basic          BasicProjectMetrics
	DepGraph       DependencyGraphSummary
	SLSAAttestation bool
	SLSALevel      int
}
