package domain

import (
	"context"
	"time"
)

// Tenant is the top-level scope for every other row in the system.
type Tenant struct {
	ID        int32          `json:"id"`
	Slug      string         `json:"slug"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
}

// CustomerPreferences lives at metadata.preferences on a Customer.
type CustomerPreferences struct {
	AllowBenchmarking bool           `json:"allowBenchmarking"`
	Categories        []string       `json:"categories,omitempty"`
	Notifications     map[string]any `json:"notifications,omitempty"`
	Goals             map[string]any `json:"goals,omitempty"`
}

// CustomerProfile lives at metadata.profile on a Customer; used for cohorting.
type CustomerProfile struct {
	Region      string `json:"region,omitempty"`
	IncomeBand  string `json:"incomeBand,omitempty"`
}

// Customer is a tenant-scoped user.
type Customer struct {
	ID                int32           `json:"id"`
	TenantID          int32           `json:"tenantId"`
	ExternalReference string          `json:"externalReference"`
	Preferences       CustomerPreferences `json:"preferences"`
	Profile           CustomerProfile `json:"profile"`
	Metadata          map[string]any  `json:"metadata"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// TenantRepository persists Tenant rows.
type TenantRepository interface {
	GetOrCreateBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetByID(ctx context.Context, id int32) (*Tenant, error)
}

// CustomerRepository persists Customer rows, lazily creating them on first use.
type CustomerRepository interface {
	GetOrCreate(ctx context.Context, tenantID int32, externalReference string) (*Customer, error)
	GetByID(ctx context.Context, tenantID, id int32) (*Customer, error)
	UpdatePreferences(ctx context.Context, tenantID, id int32, prefs CustomerPreferences) (*Customer, error)
	ListOptedIn(ctx context.Context, tenantID int32) ([]*Customer, error)
}
