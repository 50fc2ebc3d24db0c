// Package plan implements the intent classifier wrapper, the fixed
// intent-to-plan mapping, and the sequential plan executor (spec.md
// §4.9/§4.10).
package plan

import "github.com/fadhilmayati/dompet-platform/internal/domain"

// Build produces the fixed plan DAG for a classification (spec.md §4.9).
// When confidence falls below domain.LowConfidenceThreshold, every tool
// step's Tool name is cleared so the executor's "unregistered tool" branch
// demotes it to a no-op, and no side-effecting step ever runs.
func Build(classification *domain.IntentClassification) *domain.Plan {
	var steps []domain.PlanStep

	switch classification.Intent {
	case domain.IntentRecordTransaction:
		steps = []domain.PlanStep{
			{ID: "extract-transaction", Type: domain.StepLLM, Action: "extract-transaction",
				Description: "Extract a structured transaction from the latest message."},
			{ID: "persist-transaction", Type: domain.StepTool, Tool: "transactions.create",
				Description: "Persist the extracted transaction.", DependsOn: []string{"extract-transaction"}},
			{ID: "respond-user", Type: domain.StepSynthesis,
				Description: "Confirm the recorded transaction.", DependsOn: []string{"persist-transaction"}},
		}
	case domain.IntentBudgetSummary:
		steps = []domain.PlanStep{
			{ID: "retrieve-context", Type: domain.StepRetrieval,
				Description: "Retrieve relevant insight history."},
			{ID: "summarize-month", Type: domain.StepLLM, Action: "summarize-month",
				Description: "Summarize the month.", DependsOn: []string{"retrieve-context"}},
			{ID: "respond-user", Type: domain.StepSynthesis,
				Description: "Deliver the summary.", DependsOn: []string{"summarize-month"}},
		}
	case domain.IntentGeneralQuestion:
		steps = []domain.PlanStep{
			{ID: "retrieve-context", Type: domain.StepRetrieval,
				Description: "Retrieve relevant context."},
			{ID: "respond-user", Type: domain.StepSynthesis,
				Description: "Answer grounded in retrieved context.", DependsOn: []string{"retrieve-context"}},
		}
	default:
		steps = []domain.PlanStep{
			{ID: "respond-user", Type: domain.StepSynthesis,
				Description: "Acknowledge the unrecognized request."},
		}
	}

	p := &domain.Plan{Intent: classification.Intent, Steps: steps}
	if classification.Confidence < domain.LowConfidenceThreshold {
		demoteToolSteps(p)
	}
	return p
}

func demoteToolSteps(p *domain.Plan) {
	for i := range p.Steps {
		if p.Steps[i].Type == domain.StepTool {
			p.Steps[i].Tool = ""
		}
	}
}
