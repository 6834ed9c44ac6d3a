// Package dto holds the request and response bodies of the v1 HTTP API.
package dto

// IngestRequest is the body of POST /api/v1/ingest.
type IngestRequest struct {
	TenantID string `json:"tenantId"`
	Input    string `json:"input"`
}

// IngestFailure names a document that could not be stored and the step it
// failed at.
type IngestFailure struct {
	URL   string `json:"url"`
	Stage string `json:"stage"`
}

// IngestResponse is the body of a successful ingestion.
type IngestResponse struct {
	OK        bool            `json:"ok"`
	Docs      int             `json:"docs"`
	Persisted int             `json:"persisted"`
	Skipped   int             `json:"skipped"`
	Failures  []IngestFailure `json:"failures"`
	RunID     string          `json:"runId"`
}

// QuotaExceededResponse is the body of a 402 response.
type QuotaExceededResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	Host    string `json:"host"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
	Plan    string `json:"plan"`
}
