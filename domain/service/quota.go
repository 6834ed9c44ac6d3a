package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixml/harvest/domain/tenant"
)

// Quota decides whether a tenant may add a new site.
type Quota interface {
	CanAddSite(ctx context.Context, tenantID, host string) (tenant.Decision, error)
}

// QuotaService evaluates the plan's host limit against current usage.
// It reads the store on every call and keeps no state between calls.
type QuotaService struct {
	store  tenant.Store
	limits tenant.Limits
}

// NewQuota creates a quota service.
func NewQuota(store tenant.Store, limits tenant.Limits) (*QuotaService, error) {
	if store == nil {
		return nil, fmt.Errorf("NewQuota: nil store")
	}
	return &QuotaService{store: store, limits: limits}, nil
}

// CanAddSite reports whether tenantID may ingest content from host.
// A host the tenant already has never counts against the limit.
func (s *QuotaService) CanAddSite(ctx context.Context, tenantID, host string) (tenant.Decision, error) {
	host = strings.ToLower(host)

	stored, err := s.store.Plan(ctx, tenantID)
	if err != nil {
		return tenant.Decision{}, fmt.Errorf("get plan: %w", err)
	}
	plan := s.limits.Resolve(stored)
	limit, _ := s.limits.Limit(plan)

	current, err := s.store.CountDistinctHosts(ctx, tenantID)
	if err != nil {
		return tenant.Decision{}, fmt.Errorf("count hosts: %w", err)
	}

	if limit == tenant.Unlimited {
		return tenant.Allow(host, plan, current, limit), nil
	}

	known, err := s.store.HasHost(ctx, tenantID, host)
	if err != nil {
		return tenant.Decision{}, fmt.Errorf("check host: %w", err)
	}
	if known || current < limit {
		return tenant.Allow(host, plan, current, limit), nil
	}

	return tenant.Deny(host, plan, current, limit), nil
}

var _ Quota = (*QuotaService)(nil)
