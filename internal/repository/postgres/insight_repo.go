package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InsightRepository implements domain.InsightRepository using PostgreSQL.
// At most one row exists per (user_id, month), enforced by a unique
// constraint; Upsert replaces in place (spec.md §3 "MonthlyInsight").
type InsightRepository struct {
	pool *pgxpool.Pool
}

func NewInsightRepository(pool *pgxpool.Pool) *InsightRepository {
	return &InsightRepository{pool: pool}
}

func (r *InsightRepository) Upsert(ctx context.Context, insight *domain.MonthlyInsight) error {
	kpis, err := json.Marshal(insight.KPIs)
	if err != nil {
		return err
	}
	topExpense, err := json.Marshal(insight.TopExpense)
	if err != nil {
		return err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO monthly_insights (id, user_id, month, kpis, top_expense_category, story, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id, month) DO UPDATE SET
			kpis = EXCLUDED.kpis,
			top_expense_category = EXCLUDED.top_expense_category,
			story = EXCLUDED.story,
			created_at = now()
		RETURNING created_at
	`, insight.ID, insight.UserID, insight.Month, kpis, topExpense, insight.Story)
	return row.Scan(&insight.CreatedAt)
}

func (r *InsightRepository) GetByUserMonth(ctx context.Context, userID, month string) (*domain.MonthlyInsight, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, month, kpis, top_expense_category, story, created_at
		FROM monthly_insights WHERE user_id = $1 AND month = $2
	`, userID, month)
	insight, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInsightNotFound
	}
	return insight, err
}

// ListLatestPerUser returns the one insight per opted-in user for the given
// month, used by the benchmarks aggregator (spec.md §4.12).
func (r *InsightRepository) ListLatestPerUser(ctx context.Context, tenantID int32, month string) ([]*domain.MonthlyInsight, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT mi.id, mi.user_id, mi.month, mi.kpis, mi.top_expense_category, mi.story, mi.created_at
		FROM monthly_insights mi
		JOIN customers c ON c.external_reference = mi.user_id AND c.tenant_id = $1
		WHERE mi.month = $2 AND (c.metadata #>> '{preferences,allowBenchmarking}') = 'true'
	`, tenantID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.MonthlyInsight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, insight)
	}
	return out, rows.Err()
}

func (r *InsightRepository) List(ctx context.Context, userID string) ([]*domain.MonthlyInsight, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, month, kpis, top_expense_category, story, created_at
		FROM monthly_insights WHERE user_id = $1 ORDER BY month DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.MonthlyInsight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, insight)
	}
	return out, rows.Err()
}

func scanInsight(row pgx.Row) (*domain.MonthlyInsight, error) {
	var insight domain.MonthlyInsight
	var kpis, topExpense []byte
	if err := row.Scan(&insight.ID, &insight.UserID, &insight.Month, &kpis, &topExpense, &insight.Story, &insight.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(kpis, &insight.KPIs); err != nil {
		return nil, err
	}
	if len(topExpense) > 0 {
		_ = json.Unmarshal(topExpense, &insight.TopExpense)
	}
	return &insight, nil
}
