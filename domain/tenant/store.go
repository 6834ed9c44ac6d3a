package tenant

import "context"

// Store reads the plan and usage of a tenant. The plan table itself is
// Limits; the store only records which plan a tenant is on.
type Store interface {
	// Plan returns the tenant's plan name, or "" when none is recorded.
	Plan(ctx context.Context, tenantID string) (string, error)
	// CountDistinctHosts returns how many distinct hosts the tenant has ingested.
	CountDistinctHosts(ctx context.Context, tenantID string) (int, error)
	// HasHost reports whether the tenant already has documents from host.
	HasHost(ctx context.Context, tenantID, host string) (bool, error)
	// SetPlan records the tenant's plan.
	SetPlan(ctx context.Context, tenantID, plan string) error
}
