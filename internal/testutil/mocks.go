// Package testutil provides in-memory fakes of the domain repositories,
// used by service-level unit tests instead of a real Postgres connection.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
)

// MockTransactionRepository is an in-memory domain.TransactionRepository.
type MockTransactionRepository struct {
	Transactions map[int32]*domain.Transaction
	ByTenant     map[int32][]*domain.Transaction
	ByExternal   map[string]*domain.Transaction
	NextID       int32
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[int32]*domain.Transaction),
		ByTenant:     make(map[int32][]*domain.Transaction),
		ByExternal:   make(map[string]*domain.Transaction),
		NextID:       1,
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction, externalReference string) (*domain.Transaction, bool, error) {
	if existing, ok := m.ByExternal[externalReference]; ok {
		return existing, false, nil
	}
	tx.ID = m.NextID
	m.NextID++
	tx.IdempotencyHandle = externalReference
	m.Transactions[tx.ID] = tx
	m.ByTenant[tx.TenantID] = append(m.ByTenant[tx.TenantID], tx)
	m.ByExternal[externalReference] = tx
	return tx, true, nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, tenantID, customerID, id int32) (*domain.Transaction, error) {
	tx, ok := m.Transactions[id]
	if !ok || tx.TenantID != tenantID || tx.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	return tx, nil
}

func (m *MockTransactionRepository) List(ctx context.Context, tenantID, customerID int32, filters domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	var matched []*domain.Transaction
	for _, tx := range m.ByTenant[tenantID] {
		if tx.CustomerID != customerID {
			continue
		}
		if filters.Month != "" && tx.OccurredAt.Format("2006-01") != filters.Month {
			continue
		}
		if filters.Type != nil && tx.Type != *filters.Type {
			continue
		}
		matched = append(matched, tx)
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	return &domain.PaginatedTransactions{Data: matched, Page: page, PageSize: pageSize, TotalItems: int64(len(matched))}, nil
}

func (m *MockTransactionRepository) ListByMonth(ctx context.Context, tenantID, customerID int32, month string) ([]*domain.Transaction, error) {
	var matched []*domain.Transaction
	for _, tx := range m.ByTenant[tenantID] {
		if tx.CustomerID != customerID {
			continue
		}
		if tx.OccurredAt.Format("2006-01") == month {
			matched = append(matched, tx)
		}
	}
	return matched, nil
}

// MockInsightRepository is an in-memory domain.InsightRepository.
type MockInsightRepository struct {
	ByUserMonth map[string]*domain.MonthlyInsight
}

func NewMockInsightRepository() *MockInsightRepository {
	return &MockInsightRepository{ByUserMonth: make(map[string]*domain.MonthlyInsight)}
}

func insightKey(userID, month string) string { return userID + "|" + month }

func (m *MockInsightRepository) Upsert(ctx context.Context, insight *domain.MonthlyInsight) error {
	insight.CreatedAt = time.Now()
	m.ByUserMonth[insightKey(insight.UserID, insight.Month)] = insight
	return nil
}

func (m *MockInsightRepository) GetByUserMonth(ctx context.Context, userID, month string) (*domain.MonthlyInsight, error) {
	insight, ok := m.ByUserMonth[insightKey(userID, month)]
	if !ok {
		return nil, domain.ErrInsightNotFound
	}
	return insight, nil
}

func (m *MockInsightRepository) ListLatestPerUser(ctx context.Context, tenantID int32, month string) ([]*domain.MonthlyInsight, error) {
	var out []*domain.MonthlyInsight
	for _, insight := range m.ByUserMonth {
		if insight.Month == month {
			out = append(out, insight)
		}
	}
	return out, nil
}

func (m *MockInsightRepository) List(ctx context.Context, userID string) ([]*domain.MonthlyInsight, error) {
	var out []*domain.MonthlyInsight
	for key, insight := range m.ByUserMonth {
		if key[:len(userID)] == userID {
			out = append(out, insight)
		}
	}
	return out, nil
}

// MockIdempotencyRepository is an in-memory domain.IdempotencyRepository.
type MockIdempotencyRepository struct {
	records map[string]*domain.IdempotencyRecord
}

func NewMockIdempotencyRepository() *MockIdempotencyRepository {
	return &MockIdempotencyRepository{records: make(map[string]*domain.IdempotencyRecord)}
}

func idempotencyKey(tenantID int32, key string) string {
	return fmt.Sprintf("%d|%s", tenantID, key)
}

func (m *MockIdempotencyRepository) Claim(ctx context.Context, tenantID int32, key, requestHash string, ttl time.Duration) (*domain.IdempotencyRecord, bool, error) {
	k := idempotencyKey(tenantID, key)
	now := time.Now()
	expires := now.Add(ttl)

	existing, ok := m.records[k]
	if !ok {
		rec := &domain.IdempotencyRecord{
			TenantID: tenantID, Key: key, RequestHash: requestHash,
			LockedAt: &now, CreatedAt: now, ExpiresAt: &expires,
		}
		m.records[k] = rec
		return rec, false, nil
	}
	if existing.RequestHash != requestHash {
		return existing, true, nil
	}
	existing.LockedAt = &now
	return existing, false, nil
}

func (m *MockIdempotencyRepository) Complete(ctx context.Context, tenantID int32, key string, responsePayload []byte) error {
	k := idempotencyKey(tenantID, key)
	rec, ok := m.records[k]
	if !ok {
		return domain.ErrNotFound
	}
	rec.ResponsePayload = responsePayload
	rec.LockedAt = nil
	return nil
}

func (m *MockIdempotencyRepository) ReleaseLock(ctx context.Context, tenantID int32, key string) error {
	k := idempotencyKey(tenantID, key)
	if rec, ok := m.records[k]; ok {
		rec.LockedAt = nil
	}
	return nil
}

func (m *MockIdempotencyRepository) ReapExpired(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	for k, rec := range m.records {
		if rec.ResponsePayload == nil && rec.ExpiresAt != nil && rec.ExpiresAt.Before(before) {
			delete(m.records, k)
			count++
		}
	}
	return count, nil
}

// MockCustomerRepository is an in-memory domain.CustomerRepository.
type MockCustomerRepository struct {
	Customers map[int32]*domain.Customer
	NextID    int32
}

func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{Customers: make(map[int32]*domain.Customer), NextID: 1}
}

func (m *MockCustomerRepository) GetOrCreate(ctx context.Context, tenantID int32, externalReference string) (*domain.Customer, error) {
	for _, c := range m.Customers {
		if c.TenantID == tenantID && c.ExternalReference == externalReference {
			return c, nil
		}
	}
	c := &domain.Customer{ID: m.NextID, TenantID: tenantID, ExternalReference: externalReference, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.NextID++
	m.Customers[c.ID] = c
	return c, nil
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, tenantID, id int32) (*domain.Customer, error) {
	c, ok := m.Customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, domain.ErrCustomerNotFound
	}
	return c, nil
}

func (m *MockCustomerRepository) UpdatePreferences(ctx context.Context, tenantID, id int32, prefs domain.CustomerPreferences) (*domain.Customer, error) {
	c, err := m.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	c.Preferences = prefs
	c.UpdatedAt = time.Now()
	return c, nil
}

func (m *MockCustomerRepository) ListOptedIn(ctx context.Context, tenantID int32) ([]*domain.Customer, error) {
	var out []*domain.Customer
	for _, c := range m.Customers {
		if c.TenantID == tenantID && c.Preferences.AllowBenchmarking {
			out = append(out, c)
		}
	}
	return out, nil
}
