package plan

import (
	"context"
	"testing"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/provider"
	"github.com/fadhilmayati/dompet-platform/internal/testutil"
	"github.com/fadhilmayati/dompet-platform/internal/tool"
	"github.com/fadhilmayati/dompet-platform/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatVendor struct {
	responses []string
	calls     int
}

func (f *fakeChatVendor) Name() provider.Name { return provider.NameOpenAI }

func (f *fakeChatVendor) Chat(ctx context.Context, messages []provider.ChatMessage, opts provider.ChatOptions) (*provider.ChatResult, error) {
	resp := f.responses[f.calls%len(f.responses)]
	f.calls++
	return &provider.ChatResult{Provider: provider.NameOpenAI, Model: "fake", Message: resp}, nil
}

func (f *fakeChatVendor) SupportsEmbed() bool { return true }

func (f *fakeChatVendor) Embed(ctx context.Context, texts []string, opts provider.EmbedOptions) (*provider.EmbedResult, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{1, 0, 0, 0, 0, 0, 0}
	}
	return &provider.EmbedResult{Provider: provider.NameOpenAI, Model: "fake-embed", Embeddings: vectors}, nil
}

func newTestExecutor(responses []string) (*Executor, *testutil.MockTransactionRepository) {
	router := provider.NewRouter(provider.Config{DefaultChatProvider: provider.NameOpenAI, DefaultEmbedProvider: provider.NameOpenAI})
	router.RegisterVendor(&fakeChatVendor{responses: responses})

	store := vectorstore.New(7)
	idempotency := testutil.NewMockIdempotencyRepository()
	transactions := testutil.NewMockTransactionRepository()

	registry := tool.NewRegistry(idempotency)
	registry.Register(&tool.Tool{
		Name: tool.ToolTransactionsCreate,
		Validate: func(input map[string]any) ([]string, bool) {
			_, ok := input["amount"]
			return nil, ok
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			return map[string]any{"recorded": true, "amount": input["amount"]}, nil
		},
	})

	return &Executor{Router: router, VectorStore: store, Tools: registry, Transactions: transactions}, transactions
}

func TestPlanner_Build_RecordTransactionStepsInOrder(t *testing.T) {
	p := Build(&domain.IntentClassification{Intent: domain.IntentRecordTransaction, Confidence: 0.9})
	require.Len(t, p.Steps, 3)
	assert.Equal(t, "extract-transaction", p.Steps[0].ID)
	assert.Equal(t, "persist-transaction", p.Steps[1].ID)
	assert.Equal(t, "respond-user", p.Steps[2].ID)
	assert.Equal(t, "transactions.create", p.Steps[1].Tool)
}

func TestPlanner_Build_LowConfidenceDemotesToolSteps(t *testing.T) {
	p := Build(&domain.IntentClassification{Intent: domain.IntentRecordTransaction, Confidence: 0.1})
	assert.Empty(t, p.Steps[1].Tool)
}

func TestPlanner_Build_UnknownIntentIsSingleStep(t *testing.T) {
	p := Build(&domain.IntentClassification{Intent: domain.IntentUnknown, Confidence: 0.9})
	require.Len(t, p.Steps, 1)
	assert.Equal(t, domain.StepSynthesis, p.Steps[0].Type)
}

func TestExecutor_Execute_RecordTransactionEndToEnd(t *testing.T) {
	executor, _ := newTestExecutor([]string{
		`{"amount": 12.5, "currency": "MYR", "occurredAt": "2026-07-01", "merchant": "Kopi Shop"}`,
	})
	classification := &domain.IntentClassification{Intent: domain.IntentRecordTransaction, Confidence: 0.9}
	p := Build(classification)

	state, err := executor.Execute(context.Background(), ExecuteInput{
		TenantID: 1, CustomerID: 1, UserID: "user-1",
		Conversation:   []domain.ConversationMessage{{Role: domain.RoleUser, Content: "I spent 12.50 at Kopi Shop"}},
		Classification: classification,
		Plan:           p,
	})
	require.NoError(t, err)
	assert.Contains(t, state.FinalMessage, "MYR 12.50")
	assert.Contains(t, state.FinalMessage, "Kopi Shop")
}

func TestExecutor_Execute_UnregisteredToolIsSkippedNotFailed(t *testing.T) {
	router := provider.NewRouter(provider.Config{DefaultChatProvider: provider.NameOpenAI, DefaultEmbedProvider: provider.NameOpenAI})
	router.RegisterVendor(&fakeChatVendor{responses: []string{`{"amount": 5}`}})
	idempotency := testutil.NewMockIdempotencyRepository()
	registry := tool.NewRegistry(idempotency)
	executor := &Executor{Router: router, VectorStore: vectorstore.New(7), Tools: registry}

	classification := &domain.IntentClassification{Intent: domain.IntentRecordTransaction, Confidence: 0.9}
	p := Build(classification)

	state, err := executor.Execute(context.Background(), ExecuteInput{
		TenantID: 1, CustomerID: 1, UserID: "user-1",
		Conversation:   []domain.ConversationMessage{{Role: domain.RoleUser, Content: "I spent 5 on lunch"}},
		Classification: classification,
		Plan:           p,
	})
	require.NoError(t, err)
	skipped, ok := state.StepResults["persist-transaction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "skipped", skipped["status"])
}

func TestExecutor_Execute_UnmetDependencyFails(t *testing.T) {
	executor, _ := newTestExecutor([]string{`{}`})
	classification := &domain.IntentClassification{Intent: domain.IntentGeneralQuestion, Confidence: 0.9}
	p := &domain.Plan{Intent: domain.IntentGeneralQuestion, Steps: []domain.PlanStep{
		{ID: "respond-user", Type: domain.StepSynthesis, DependsOn: []string{"never-ran"}},
	}}

	_, err := executor.Execute(context.Background(), ExecuteInput{
		TenantID: 1, CustomerID: 1, UserID: "user-1",
		Classification: classification,
		Plan:           p,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlanDependencyUnmet)
}

func TestExecutor_Execute_LowConfidenceLeavesFinalMessageUnmodified(t *testing.T) {
	// The clarifying sentence itself is assembled by the handler layer into
	// the response's separate `followup` field (spec.md §6); the executor
	// only needs to guarantee that no tool step runs (see
	// TestPlanner_Build_LowConfidenceDemotesToolSteps).
	executor, _ := newTestExecutor([]string{`{}`})
	classification := &domain.IntentClassification{Intent: domain.IntentUnknown, Confidence: 0.1}
	p := Build(classification)

	state, err := executor.Execute(context.Background(), ExecuteInput{
		TenantID: 1, CustomerID: 1, UserID: "user-1",
		Classification: classification,
		Plan:           p,
	})
	require.NoError(t, err)
	assert.Equal(t, "I'm not sure how to help with that yet, but I'm learning more every day!", state.FinalMessage)
}

func TestExecutor_Execute_BudgetSummaryUsesSummaryVerbatim(t *testing.T) {
	executor, _ := newTestExecutor([]string{
		`{"summary": "You spent within budget this month.", "highlights": [], "savingsOpportunities": []}`,
	})
	classification := &domain.IntentClassification{Intent: domain.IntentBudgetSummary, Confidence: 0.9}
	p := Build(classification)

	state, err := executor.Execute(context.Background(), ExecuteInput{
		TenantID: 1, CustomerID: 1, UserID: "user-1", Month: "2026-07",
		Conversation:   []domain.ConversationMessage{{Role: domain.RoleUser, Content: "how did I do this month?"}},
		Classification: classification,
		Plan:           p,
	})
	require.NoError(t, err)
	assert.Equal(t, "You spent within budget this month.", state.FinalMessage)
}
