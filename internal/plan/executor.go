package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/provider"
	"github.com/fadhilmayati/dompet-platform/internal/tool"
)

const defaultRetrievalLimit = 5

// State is the per-request bag threaded through every step (spec.md §4.10).
type State struct {
	RetrievedDocuments []domain.RetrievalDocument
	StepResults        map[string]any
	ToolResults        map[string]*tool.InvokeResult
	FinalMessage       string
	ResultData         any
}

func newState() *State {
	return &State{StepResults: make(map[string]any), ToolResults: make(map[string]*tool.InvokeResult)}
}

// ExecuteInput bundles everything the executor needs to run one plan.
type ExecuteInput struct {
	TenantID       int32
	CustomerID     int32
	UserID         string
	Month          string
	Conversation   []domain.ConversationMessage
	Classification *domain.IntentClassification
	Plan           *domain.Plan
}

// Executor runs a Plan's steps in order against the provider router, vector
// store, and tool registry (spec.md §4.10).
type Executor struct {
	Router       *provider.Router
	VectorStore  domain.VectorStoreRepository
	Tools        *tool.Registry
	Transactions domain.TransactionRepository
}

// Execute runs every step of input.Plan in order, returning the final state.
func (e *Executor) Execute(ctx context.Context, input ExecuteInput) (*State, error) {
	state := newState()

	for _, step := range input.Plan.Steps {
		for _, dep := range step.DependsOn {
			if _, ok := state.StepResults[dep]; !ok {
				return state, domain.NewCodedError(domain.ErrCodeValidation,
					fmt.Sprintf("plan step %q depends on unmet step %q", step.ID, dep), domain.ErrPlanDependencyUnmet)
			}
		}

		switch step.Type {
		case domain.StepRetrieval:
			if err := e.runRetrieval(ctx, step, input, state); err != nil {
				return state, err
			}
		case domain.StepLLM:
			if err := e.runLLM(ctx, step, input, state); err != nil {
				return state, err
			}
		case domain.StepTool:
			if err := e.runTool(ctx, step, input, state); err != nil {
				return state, err
			}
		case domain.StepSynthesis:
			e.runSynthesis(ctx, step, input, state)
		}
	}

	if state.FinalMessage == "" {
		state.FinalMessage = "I'm not sure how to help with that yet, but I'm learning more every day!"
	}
	return state, nil
}

func (e *Executor) runRetrieval(ctx context.Context, step domain.PlanStep, input ExecuteInput, state *State) error {
	query := lastUserMessage(input.Conversation)
	if q, ok := step.Input["query"].(string); ok && q != "" {
		query = q
	}

	limit := defaultRetrievalLimit
	if l, ok := step.Input["limit"].(int); ok && l > 0 {
		limit = l
	}

	embedded, err := e.Router.Embed(ctx, []string{query}, provider.EmbedOptions{})
	if err != nil {
		return err
	}
	if len(embedded.Embeddings) == 0 {
		return domain.NewCodedError(domain.ErrCodeProviderUnavailable, "embedding returned no vectors", domain.ErrProviderUnavailable)
	}

	docs, err := e.VectorStore.Search(ctx, input.UserID, embedded.Embeddings[0], limit)
	if err != nil {
		return err
	}

	var scoped []domain.RetrievalDocument
	for _, d := range docs {
		if d.UserID == input.UserID {
			scoped = append(scoped, d)
		}
	}

	state.RetrievedDocuments = append(state.RetrievedDocuments, scoped...)
	state.StepResults[step.ID] = scoped
	return nil
}

func (e *Executor) runLLM(ctx context.Context, step domain.PlanStep, input ExecuteInput, state *State) error {
	switch step.Action {
	case "extract-transaction":
		text := lastUserMessage(input.Conversation)
		extraction, err := e.Router.ExtractTransaction(ctx, text)
		if err != nil {
			return err
		}
		state.StepResults[step.ID] = extraction
		return nil

	case "summarize-month":
		var transactions []*domain.Transaction
		if e.Transactions != nil && input.Month != "" {
			txs, err := e.Transactions.ListByMonth(ctx, input.TenantID, input.CustomerID, input.Month)
			if err != nil {
				return err
			}
			transactions = txs
		}

		summary, err := e.Router.SummarizeMonth(ctx, provider.MonthlySummaryInput{
			UserID:       input.UserID,
			Month:        input.Month,
			Transactions: transactions,
			Context:      retrievedContext(state.RetrievedDocuments),
		})
		if err != nil {
			return err
		}
		state.StepResults[step.ID] = summary
		return nil
	}

	return domain.NewCodedError(domain.ErrCodeValidation, fmt.Sprintf("unknown llm step action %q", step.Action), domain.ErrValidation)
}

func (e *Executor) runTool(ctx context.Context, step domain.PlanStep, input ExecuteInput, state *State) error {
	t, ok := e.Tools.Get(step.Tool)
	if !ok {
		state.StepResults[step.ID] = map[string]any{"status": "skipped", "error": "Tool handler not registered"}
		return nil
	}

	toolInput := mergeStepInput(step.Input, state, input.CustomerID)
	idempotencyKey, _ := step.Input["idempotencyKey"].(string)

	result, err := e.Tools.Invoke(ctx, input.TenantID, t, toolInput, idempotencyKey)
	if err != nil {
		return err
	}

	state.ToolResults[step.ID] = result
	state.StepResults[step.ID] = result.Output
	return nil
}

func (e *Executor) runSynthesis(ctx context.Context, step domain.PlanStep, input ExecuteInput, state *State) {
	switch input.Classification.Intent {
	case domain.IntentRecordTransaction:
		state.FinalMessage, state.ResultData = synthesizeRecordTransaction(state)
	case domain.IntentBudgetSummary:
		state.FinalMessage, state.ResultData = synthesizeBudgetSummary(state)
	case domain.IntentGeneralQuestion:
		state.FinalMessage, state.ResultData = e.synthesizeGeneralQuestion(ctx, state)
	default:
		state.FinalMessage = "I'm not sure how to help with that yet, but I'm learning more every day!"
	}

}

func synthesizeRecordTransaction(state *State) (string, any) {
	extraction, _ := state.StepResults["extract-transaction"].(*provider.TransactionExtraction)
	if extraction == nil {
		return "I couldn't extract a transaction from that message.", nil
	}

	currency := "MYR"
	if extraction.Currency != nil {
		currency = *extraction.Currency
	}
	amount := 0.0
	if extraction.Amount != nil {
		amount = *extraction.Amount
	}
	merchant := "the merchant"
	if extraction.Merchant != nil && *extraction.Merchant != "" {
		merchant = *extraction.Merchant
	}
	occurredAt := "the specified date"
	if extraction.OccurredAt != nil && *extraction.OccurredAt != "" {
		occurredAt = *extraction.OccurredAt
	}

	message := fmt.Sprintf("Got it! I've recorded %s %.2f for %s on %s. Anything else you need?",
		currency, amount, merchant, occurredAt)
	return message, state.StepResults["persist-transaction"]
}

func synthesizeBudgetSummary(state *State) (string, any) {
	summary, _ := state.StepResults["summarize-month"].(*provider.MonthlySummary)
	if summary == nil {
		return "I couldn't put together a summary for that month.", nil
	}
	return summary.Summary, summary
}

func (e *Executor) synthesizeGeneralQuestion(ctx context.Context, state *State) (string, any) {
	retrieved := retrievedContext(state.RetrievedDocuments)
	system := "Answer the user's question using only the context below. If the context is empty or doesn't cover the question, say you don't have enough information to answer."
	if retrieved != "" {
		system += "\n\nContext:\n" + retrieved
	}

	result, err := e.Router.Chat(ctx, []provider.ChatMessage{{Role: "user", Content: "Please answer based on the available context."}}, provider.ChatOptions{SystemPrompt: system})
	if err != nil || result == nil {
		return "I don't have enough information to answer that right now.", nil
	}
	return result.Message, nil
}

func retrievedContext(docs []domain.RetrievalDocument) string {
	var sb strings.Builder
	for _, d := range docs {
		sb.WriteString(d.Content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func mergeStepInput(base map[string]any, state *State, customerID int32) map[string]any {
	merged := make(map[string]any, len(base)+4)
	for k, v := range base {
		merged[k] = v
	}
	if _, ok := merged["customerId"]; !ok {
		merged["customerId"] = customerID
	}

	extraction, ok := state.StepResults["extract-transaction"].(*provider.TransactionExtraction)
	if !ok {
		return merged
	}

	if _, ok := merged["type"]; !ok {
		merged["type"] = string(domain.TransactionTypeExpense)
	}
	if extraction.Amount != nil {
		merged["amount"] = fmt.Sprintf("%.2f", *extraction.Amount)
	}
	if extraction.Currency != nil {
		merged["currency"] = *extraction.Currency
	}
	if extraction.OccurredAt != nil {
		merged["occurredAt"] = *extraction.OccurredAt
	}
	if extraction.Category != nil {
		merged["category"] = *extraction.Category
	}
	if extraction.Description != nil {
		merged["description"] = *extraction.Description
	} else if extraction.Merchant != nil {
		merged["description"] = *extraction.Merchant
	}
	if extraction.Notes != nil {
		merged["notes"] = *extraction.Notes
	}
	return merged
}

func lastUserMessage(conversation []domain.ConversationMessage) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == domain.RoleUser {
			return conversation[i].Content
		}
	}
	return ""
}
