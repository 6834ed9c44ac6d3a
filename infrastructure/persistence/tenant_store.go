package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/internal/database"
)

// TenantStore implements tenant.Store. Site usage is derived from the
// documents table, so no counter can drift from what is actually stored.
// A document counts under the host its seed was gated for, not the host it
// was fetched from after a redirect.
type TenantStore struct {
	db database.Database
}

// NewTenantStore creates a new TenantStore.
func NewTenantStore(db database.Database) TenantStore {
	return TenantStore{db: db}
}

// Plan returns the tenant's recorded plan, or "" when there is none.
func (s TenantStore) Plan(ctx context.Context, tenantID string) (string, error) {
	var model TenantModel
	err := s.db.Session(ctx).Where("tenant_id = ?", tenantID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("%w: read plan: %w", ingest.ErrStorage, err)
	}
	return model.Plan, nil
}

// CountDistinctHosts returns the number of distinct sites the tenant has
// documents for.
func (s TenantStore) CountDistinctHosts(ctx context.Context, tenantID string) (int, error) {
	var count int64
	err := s.db.Session(ctx).
		Model(&DocumentModel{}).
		Where("tenant_id = ?", tenantID).
		Distinct("site").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: count hosts: %w", ingest.ErrStorage, err)
	}
	return int(count), nil
}

// HasHost reports whether the tenant already has documents stored for the
// site host.
func (s TenantStore) HasHost(ctx context.Context, tenantID, host string) (bool, error) {
	var count int64
	err := s.db.Session(ctx).
		Model(&DocumentModel{}).
		Where("tenant_id = ? AND site = ?", tenantID, strings.ToLower(host)).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: lookup host: %w", ingest.ErrStorage, err)
	}
	return count > 0, nil
}

// SetPlan records the tenant's plan, replacing any previous one.
func (s TenantStore) SetPlan(ctx context.Context, tenantID, plan string) error {
	now := time.Now().UTC()
	model := TenantModel{TenantID: tenantID, Plan: plan, CreatedAt: now, UpdatedAt: now}
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("%w: set plan: %w", ingest.ErrStorage, err)
	}
	return nil
}
