package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TenantModel records the plan a tenant is on.
type TenantModel struct {
	TenantID  string    `gorm:"column:tenant_id;primaryKey;size:255"`
	Plan      string    `gorm:"column:plan;size:64;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (TenantModel) TableName() string { return "tenants" }

// DocumentModel represents a persisted page. The (tenant_id, url) unique
// index is what makes ingestion of a URL happen at most once per tenant.
// Site is the gated seed host and is what quota usage counts.
type DocumentModel struct {
	ID        string    `gorm:"column:id;primaryKey;size:36"`
	TenantID  string    `gorm:"column:tenant_id;size:255;not null;uniqueIndex:ux_documents_tenant_url,priority:1;index:ix_documents_tenant_site,priority:1"`
	URL       string    `gorm:"column:url;size:2048;not null;uniqueIndex:ux_documents_tenant_url,priority:2"`
	Host      string    `gorm:"column:host;size:255;not null"`
	Site      string    `gorm:"column:site;size:255;not null;index:ix_documents_tenant_site,priority:2"`
	Title     string    `gorm:"column:title"`
	Content   string    `gorm:"column:content"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (DocumentModel) TableName() string { return "documents" }

// FragmentModel represents one embedded segment of a document.
type FragmentModel struct {
	ID         string       `gorm:"column:id;primaryKey;size:36"`
	TenantID   string       `gorm:"column:tenant_id;size:255;not null;index"`
	DocumentID string       `gorm:"column:document_id;size:36;not null;index"`
	URL        string       `gorm:"column:url;size:2048;not null"`
	Position   int          `gorm:"column:position;not null"`
	Content    string       `gorm:"column:content"`
	TokenCount int          `gorm:"column:token_count"`
	Embedding  Float64Slice `gorm:"column:embedding;type:json"`
	CreatedAt  time.Time    `gorm:"column:created_at"`
}

// TableName returns the table name.
func (FragmentModel) TableName() string { return "fragments" }

// Float64Slice stores a vector as a JSON array.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}
	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal([]float64(f))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
