// Package persistence provides database storage implementations.
package persistence

import (
	"context"
	"fmt"

	"github.com/helixml/harvest/internal/database"
)

// AutoMigrate runs GORM auto migration for all models.
func AutoMigrate(db database.Database) error {
	if err := db.Session(context.Background()).AutoMigrate(
		&TenantModel{},
		&DocumentModel{},
		&FragmentModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
