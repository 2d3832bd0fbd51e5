package llmorch

// jsonSchemaFor maps each assessment onto the JSON Schema its raw LLM
// response must validate against before being unmarshaled into its
// Go-side result struct. Keeping the schema textually separate from the
// Go struct tags means a model that returns a field with the right name
// but the wrong type (a string "85" instead of a number 85, say) is
// caught here rather than surfacing as a zero-valued score later.
var jsonSchemaFor = map[Assessment]string{
	AssessmentReadme: `{
		"type": "object",
		"required": ["score", "installation", "quick_start", "examples", "rationale"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 100},
			"installation": {"type": "number", "minimum": 0, "maximum": 100},
			"quick_start": {"type": "number", "minimum": 0, "maximum": 100},
			"examples": {"type": "number", "minimum": 0, "maximum": 100},
			"rationale": {"type": "string"}
		}
	}`,
	AssessmentSentiment: `{
		"type": "object",
		"required": ["score", "tone", "frustration_level", "rationale"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 100},
			"tone": {"type": "string", "enum": ["positive", "mixed", "negative"]},
			"frustration_level": {"type": "number", "minimum": 0, "maximum": 100},
			"rationale": {"type": "string"}
		}
	}`,
	AssessmentCommunication: `{
		"type": "object",
		"required": ["score", "rationale"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 100},
			"rationale": {"type": "string"}
		}
	}`,
	AssessmentMaintenance: `{
		"type": "object",
		"required": ["score", "status", "rationale"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 100},
			"status": {"type": "string", "enum": ["actively-maintained", "maintained", "minimal", "stale", "abandoned"]},
			"rationale": {"type": "string"}
		}
	}`,
	AssessmentChangelog: `{
		"type": "object",
		"required": ["score", "quality", "breaking_changes_marked", "has_migration_guides", "rationale"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 100},
			"quality": {"type": "number", "minimum": 0, "maximum": 100},
			"breaking_changes_marked": {"type": "boolean"},
			"has_migration_guides": {"type": "boolean"},
			"rationale": {"type": "string"}
		}
	}`,
	AssessmentGovernance: `{
		"type": "object",
		"required": ["score", "has_succession_plan", "multiple_maintainers", "bus_factor_risk", "rationale"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 100},
			"has_succession_plan": {"type": "boolean"},
			"multiple_maintainers": {"type": "boolean"},
			"bus_factor_risk": {"type": "string", "enum": ["low", "medium", "high"]},
			"rationale": {"type": "string"}
		}
	}`,
	AssessmentSecurity: `{
		"type": "object",
		"required": ["score", "critical_findings", "rationale"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 100},
			"critical_findings": {"type": "array", "items": {"type": "string"}},
			"rationale": {"type": "string"}
		}
	}`,
}

// Assessment names the seven independent qualitative judgments.
type Assessment string

const (
	AssessmentReadme        Assessment = "readme"
	AssessmentSentiment     Assessment = "sentiment"
	AssessmentCommunication Assessment = "communication"
	AssessmentMaintenance   Assessment = "maintenance"
	AssessmentChangelog     Assessment = "changelog"
	AssessmentGovernance    Assessment = "governance"
	AssessmentSecurity      Assessment = "security"
)

// All lists every assessment in the fixed order the parallel mode's
// phase-1 fetch step and phase-2 prompt step both iterate.
var All = []Assessment{
	AssessmentReadme,
	AssessmentSentiment,
	AssessmentCommunication,
	AssessmentMaintenance,
	AssessmentChangelog,
	AssessmentGovernance,
	AssessmentSecurity,
}

// readmeResult is the schema the readme prompt's JSON response must
// match; the orchestrator folds it into a QualitativeScore plus the
// raw sub-scores the documentation scorer consumes directly.
type readmeResult struct {
	Score        float64 `json:"score"`
	Installation float64 `json:"installation"`
	QuickStart   float64 `json:"quick_start"`
	Examples     float64 `json:"examples"`
	Rationale    string  `json:"rationale"`
}

type sentimentResult struct {
	Score         float64 `json:"score"`
	Tone          string  `json:"tone"` // positive, mixed, negative
	Frustration   float64 `json:"frustration_level"`
	Rationale     string  `json:"rationale"`
}

type communicationResult struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

type maintenanceResult struct {
	Score     float64 `json:"score"`
	Status    string  `json:"status"` // actively-maintained, maintained, minimal, stale, abandoned
	Rationale string  `json:"rationale"`
}

type changelogResult struct {
	Score             float64 `json:"score"`
	Quality           float64 `json:"quality"`
	BreakingMarked    bool    `json:"breaking_changes_marked"`
	HasMigrationGuide bool    `json:"has_migration_guides"`
	Rationale         string  `json:"rationale"`
}

type governanceResult struct {
	Score            float64 `json:"score"`
	HasSuccession    bool    `json:"has_succession_plan"`
	MultipleOwners   bool    `json:"multiple_maintainers"`
	BusFactorRisk    string  `json:"bus_factor_risk"` // low, medium, high
	Rationale        string  `json:"rationale"`
}

type securityResult struct {
	Score            float64  `json:"score"`
	CriticalFindings []string `json:"critical_findings"`
	Rationale        string   `json:"rationale"`
}
