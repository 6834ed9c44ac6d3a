package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/domain/tenant"
)

// Tenants manages tenant plan assignments.
type Tenants struct {
	store  tenant.Store
	limits tenant.Limits
}

// NewTenants creates a Tenants service.
func NewTenants(store tenant.Store, limits tenant.Limits) *Tenants {
	return &Tenants{store: store, limits: limits}
}

// SetPlan assigns plan to tenantID. The plan must exist in the limit table.
func (s *Tenants) SetPlan(ctx context.Context, tenantID, plan string) error {
	tenantID = strings.TrimSpace(tenantID)
	plan = strings.ToLower(strings.TrimSpace(plan))
	if tenantID == "" || plan == "" {
		return fmt.Errorf("%w: tenant id and plan are required", ingest.ErrValidation)
	}
	if _, ok := s.limits.Limit(plan); !ok {
		return fmt.Errorf("%w: unknown plan %q (known: %s)", ingest.ErrValidation, plan, strings.Join(s.limits.Plans(), ", "))
	}
	if err := s.store.SetPlan(ctx, tenantID, plan); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

// Plan returns the effective plan for tenantID and its site limit.
// Tenants without a stored plan are on the default plan.
func (s *Tenants) Plan(ctx context.Context, tenantID string) (string, int, error) {
	stored, err := s.store.Plan(ctx, tenantID)
	if err != nil {
		return "", 0, fmt.Errorf("get plan: %w", err)
	}
	plan := s.limits.Resolve(stored)
	limit, _ := s.limits.Limit(plan)
	return plan, limit, nil
}
