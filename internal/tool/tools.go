package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/action"
	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/fadhilmayati/dompet-platform/internal/kpi"
	"github.com/fadhilmayati/dompet-platform/internal/simulate"
	"github.com/fadhilmayati/dompet-platform/internal/util"
	"github.com/shopspring/decimal"
)

// Canonical tool names (spec.md §4.8).
const (
	ToolTransactionsCreate = "transactions.create"
	ToolTransactionsList   = "transactions.list"
	ToolInsightsCompute    = "insights.compute"
	ToolInsightsList       = "insights.list"
	ToolHealthScore        = "health.score"
	ToolActionsSuggest     = "actions.suggest"
	ToolSimulationsRun     = "simulations.run"
)

// RegisterCanonicalTools wires the seven canonical tools from spec.md §4.8
// into the registry.
func RegisterCanonicalTools(
	r *Registry,
	transactions domain.TransactionRepository,
	insights domain.InsightRepository,
	engine *kpi.Engine,
	scorer *health.Scorer,
	suggester *action.Suggester,
	simulator *simulate.Simulator,
) {
	r.Register(newTransactionsCreateTool(transactions))
	r.Register(newTransactionsListTool(transactions))
	r.Register(newInsightsComputeTool(transactions, insights, engine))
	r.Register(newInsightsListTool(insights))
	r.Register(newHealthScoreTool(insights, scorer))
	r.Register(newActionsSuggestTool(insights, scorer, suggester))
	r.Register(newSimulationsRunTool(insights, scorer, simulator))
}

func requireString(input map[string]any, key string) (string, bool) {
	v, ok := input[key].(string)
	return v, ok && v != ""
}

func newTransactionsCreateTool(repo domain.TransactionRepository) *Tool {
	return &Tool{
		Name: ToolTransactionsCreate,
		Validate: func(input map[string]any) ([]string, bool) {
			var issues []string
			if _, ok := requireString(input, "type"); !ok {
				issues = append(issues, "type is required")
			}
			if _, ok := input["amount"]; !ok {
				issues = append(issues, "amount is required")
			}
			return issues, len(issues) == 0
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			customerID, _ := input["customerId"].(int32)
			amountStr := fmt.Sprintf("%v", input["amount"])
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return nil, domain.NewCodedError(domain.ErrCodeValidation, "amount is not a valid decimal", domain.ErrValidation)
			}

			occurredAt := time.Now().UTC()
			if raw, ok := input["occurredAt"].(string); ok && raw != "" {
				if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
					occurredAt = parsed
				}
			}

			var category *string
			if c, ok := input["category"].(string); ok && c != "" {
				category = &c
			}
			var description *string
			if d, ok := input["description"].(string); ok && d != "" {
				description = &d
			}

			descriptionOrNotes := ""
			if description != nil {
				descriptionOrNotes = *description
			} else if n, ok := input["notes"].(string); ok {
				descriptionOrNotes = n
			}
			externalRef := DeriveTransactionIdempotencyKey(tenantID, customerID, occurredAt, amount.String(), descriptionOrNotes)

			tx := &domain.Transaction{
				TenantID:    tenantID,
				CustomerID:  customerID,
				Amount:      amount,
				Currency:    stringOr(input["currency"], "MYR"),
				Type:        domain.TransactionType(fmt.Sprintf("%v", input["type"])),
				Category:    category,
				Description: description,
				OccurredAt:  occurredAt,
			}

			created, _, err := repo.Create(ctx, tx, externalRef)
			return created, err
		},
	}
}

func newTransactionsListTool(repo domain.TransactionRepository) *Tool {
	return &Tool{
		Name: ToolTransactionsList,
		Validate: func(input map[string]any) ([]string, bool) {
			return nil, true
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			customerID, _ := input["customerId"].(int32)
			filters := domain.TransactionFilters{
				Month:    stringOr(input["month"], ""),
				Page:     1,
				PageSize: domain.DefaultPageSize,
			}
			return repo.List(ctx, tenantID, customerID, filters)
		},
	}
}

func newInsightsComputeTool(transactions domain.TransactionRepository, insights domain.InsightRepository, engine *kpi.Engine) *Tool {
	return &Tool{
		Name: ToolInsightsCompute,
		Validate: func(input map[string]any) ([]string, bool) {
			if _, ok := requireString(input, "month"); !ok {
				return []string{"month is required"}, false
			}
			return nil, true
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			customerID, _ := input["customerId"].(int32)
			userID := stringOr(input["userId"], "")
			month, _ := requireString(input, "month")

			txs, err := transactions.ListByMonth(ctx, tenantID, customerID, month)
			if err != nil {
				return nil, err
			}

			var previous *domain.MonthlyInsight
			if prevMonth, err := util.PreviousMonth(month); err == nil {
				previous, _ = insights.GetByUserMonth(ctx, userID, prevMonth)
			}

			insight := engine.ComputeMonthly(domain.ComputeMonthlyInput{
				UserID:       userID,
				TenantID:     tenantID,
				Month:        month,
				Transactions: txs,
				Previous:     previous,
			})
			if err := insights.Upsert(ctx, insight); err != nil {
				return nil, err
			}
			return insight, nil
		},
	}
}

func newInsightsListTool(insights domain.InsightRepository) *Tool {
	return &Tool{
		Name: ToolInsightsList,
		Validate: func(input map[string]any) ([]string, bool) {
			if _, ok := requireString(input, "userId"); !ok {
				return []string{"userId is required"}, false
			}
			return nil, true
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			userID, _ := requireString(input, "userId")
			return insights.List(ctx, userID)
		},
	}
}

func newHealthScoreTool(insights domain.InsightRepository, scorer *health.Scorer) *Tool {
	return &Tool{
		Name: ToolHealthScore,
		Validate: func(input map[string]any) ([]string, bool) {
			if _, ok := requireString(input, "userId"); !ok {
				return []string{"userId is required"}, false
			}
			if _, ok := requireString(input, "month"); !ok {
				return []string{"month is required"}, false
			}
			return nil, true
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			userID, _ := requireString(input, "userId")
			month, _ := requireString(input, "month")
			insight, err := insights.GetByUserMonth(ctx, userID, month)
			if err != nil {
				return nil, err
			}
			return scorer.Score(insight.KPIs), nil
		},
	}
}

func newActionsSuggestTool(insights domain.InsightRepository, scorer *health.Scorer, suggester *action.Suggester) *Tool {
	return &Tool{
		Name: ToolActionsSuggest,
		Validate: func(input map[string]any) ([]string, bool) {
			if _, ok := requireString(input, "userId"); !ok {
				return []string{"userId is required"}, false
			}
			if _, ok := requireString(input, "month"); !ok {
				return []string{"month is required"}, false
			}
			return nil, true
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			userID, _ := requireString(input, "userId")
			month, _ := requireString(input, "month")
			insight, err := insights.GetByUserMonth(ctx, userID, month)
			if err != nil {
				return nil, err
			}
			h := scorer.Score(insight.KPIs)
			return suggester.Suggest(insight.KPIs, h), nil
		},
	}
}

func newSimulationsRunTool(insights domain.InsightRepository, scorer *health.Scorer, simulator *simulate.Simulator) *Tool {
	return &Tool{
		Name: ToolSimulationsRun,
		Validate: func(input map[string]any) ([]string, bool) {
			if _, ok := requireString(input, "userId"); !ok {
				return []string{"userId is required"}, false
			}
			if _, ok := requireString(input, "month"); !ok {
				return []string{"month is required"}, false
			}
			return nil, true
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			userID, _ := requireString(input, "userId")
			month, _ := requireString(input, "month")
			insight, err := insights.GetByUserMonth(ctx, userID, month)
			if err != nil {
				return nil, err
			}

			var actionIDs []string
			if raw, ok := input["actions"].([]any); ok {
				for _, a := range raw {
					if s, ok := a.(string); ok {
						actionIDs = append(actionIDs, s)
					}
				}
			}

			return simulator.Simulate(insight, actionIDs), nil
		},
	}
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}
