package dto

import "time"

// DocumentSchema is one stored document without its content.
type DocumentSchema struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Host      string    `json:"host"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocumentListResponse is one page of a tenant's documents.
type DocumentListResponse struct {
	OK     bool             `json:"ok"`
	Data   []DocumentSchema `json:"data"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// FragmentSchema is one embedded fragment of a document.
type FragmentSchema struct {
	ID         string    `json:"id"`
	Position   int       `json:"position"`
	Content    string    `json:"content"`
	TokenCount int       `json:"tokenCount"`
	Embedding  []float64 `json:"embedding,omitempty"`
}

// FragmentListResponse lists a document's fragments in position order.
type FragmentListResponse struct {
	OK         bool             `json:"ok"`
	DocumentID string           `json:"documentId"`
	URL        string           `json:"url"`
	Data       []FragmentSchema `json:"data"`
}

// QuotaResponse previews the quota decision for adding a host.
type QuotaResponse struct {
	OK      bool   `json:"ok"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Host    string `json:"host"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
	Plan    string `json:"plan"`
}
