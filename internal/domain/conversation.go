package domain

import "time"

// ConversationRole enumerates the speaker of a ConversationMessage.
type ConversationRole string

const (
	RoleSystem    ConversationRole = "system"
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
)

// ConversationMessage is one turn in a chat transcript (spec.md §3).
type ConversationMessage struct {
	ID        string           `json:"id,omitempty"`
	Role      ConversationRole `json:"role"`
	Content   string           `json:"content"`
	Timestamp *time.Time       `json:"timestamp,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// Intent is the categorical label assigned to the latest user message
// (spec.md §4.9, GLOSSARY).
type Intent string

const (
	IntentRecordTransaction Intent = "record_transaction"
	IntentBudgetSummary     Intent = "budget_summary"
	IntentGeneralQuestion   Intent = "general_question"
	IntentUnknown           Intent = "unknown"
)

// IntentClassification is the output of the intent classifier.
type IntentClassification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// LowConfidenceThreshold below which a clarifying followup is mandatory and
// tool steps are demoted to no-ops (spec.md §4.9).
const LowConfidenceThreshold = 0.4
