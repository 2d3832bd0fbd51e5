package model

// Analysis is the full persisted artifact for one package: identity,
// every fact gathered about it, and the scores derived from those
// facts. It is the unit written to <data>/analyzed/<ecosystem>/<name>.json.
type Analysis struct {
	Package      PackageRef
	Metadata     PackageMetadata
	Installs     InstallStats
	Repo         RepoRef
	Availability DataAvailability
	RepoFacts    RepoFacts
	Vulns        CVEHistory
	SupplyChain  SupplyChainData
	Aggregator   AggregatorData
	LLM          *LLMAssessment
	Scores       *Scores
	Summary      Summary
	Timestamps   Timestamps
}

// Summary is the human-readable digest built from every other section of
// the analysis: good signals worth calling out, and concerns worth a
// reviewer's attention. Supply-chain critical findings are always placed
// first among Concerns, ahead of anything scoring-derived.
type Summary struct {
	Highlights []string
	Concerns   []string
}

// LLMAssessment bundles the seven independent qualitative judgments the
// local-model orchestrator produces. Any assessment the orchestrator
// could not complete (timeout, malformed JSON, model unavailable) is
// left nil rather than zero-valued, so the scorer can tell "absent" from
// "scored zero".
type LLMAssessment struct {
	Readme        *QualitativeScore
	Sentiment     *QualitativeScore
	Communication *QualitativeScore
	Maintenance   *QualitativeScore
	Changelog     *QualitativeScore
	Governance    *QualitativeScore
	Security      *QualitativeScore
	Model         string
	Skipped       bool
}

// QualitativeScore is one LLM-produced judgment: a 0-100 score, a short
// rationale, and the raw signals the model says it relied on.
type QualitativeScore struct {
	Score     float64
	Rationale string
	Signals   []string
}
