package domain

// PlanStepType enumerates the four kinds of step an executor understands
// (spec.md §3, §4.10).
type PlanStepType string

const (
	StepRetrieval  PlanStepType = "retrieval"
	StepLLM        PlanStepType = "llm"
	StepTool       PlanStepType = "tool"
	StepSynthesis  PlanStepType = "synthesis"
)

// PlanStep is one node of a plan DAG.
type PlanStep struct {
	ID          string         `json:"id"`
	Type        PlanStepType   `json:"type"`
	Description string         `json:"description"`
	Action      string         `json:"action,omitempty"`
	Tool        string         `json:"tool,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	DependsOn   []string       `json:"dependsOn,omitempty"`
}

// Plan is an ordered list of PlanStep produced from an Intent.
type Plan struct {
	Intent Intent     `json:"intent"`
	Steps  []PlanStep `json:"steps"`
}

// AuthenticatedUser is the resolved scope for a request (spec.md §4.1).
type AuthenticatedUser struct {
	UserID     string
	TenantID   int32
	CustomerID int32
	Roles      []string
}
