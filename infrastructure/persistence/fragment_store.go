package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/helixml/harvest/domain/fragment"
	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/internal/database"
)

const insertBatchSize = 100

// FragmentStore implements fragment.Store using GORM.
type FragmentStore struct {
	database.Repository[fragment.Fragment, FragmentModel]
}

// NewFragmentStore creates a new FragmentStore.
func NewFragmentStore(db database.Database) FragmentStore {
	return FragmentStore{
		Repository: database.NewRepository[fragment.Fragment, FragmentModel](db, FragmentMapper{}, "fragment"),
	}
}

// InsertAll writes the fragments in one transaction.
func (s FragmentStore) InsertAll(ctx context.Context, fragments []fragment.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}

	models := make([]FragmentModel, len(fragments))
	for i, f := range fragments {
		models[i] = s.Mapper().ToModel(f)
	}

	err := database.WithTransaction(ctx, s.Database(), func(tx *gorm.DB) error {
		return tx.CreateInBatches(models, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("%w: insert fragments: %w", ingest.ErrStorage, err)
	}
	return nil
}
