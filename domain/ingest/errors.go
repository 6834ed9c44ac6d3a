// Package ingest holds the error taxonomy and run stages shared by the
// ingestion pipeline and its callers.
package ingest

import (
	"errors"
	"fmt"

	"github.com/helixml/harvest/domain/tenant"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrQuotaDenied = errors.New("quota denied")
	ErrCrawl       = errors.New("crawl failed")
	ErrEmbedding   = errors.New("embedding failed")
	ErrStorage     = errors.New("storage failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
)

// Stage names a step of an ingestion run.
type Stage string

// Run stages, in the order a run passes through them.
const (
	StageGating     Stage = "gating"
	StageCrawling   Stage = "crawling"
	StageProcessing Stage = "processing"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Document-level steps inside StageProcessing.
const (
	StepLookup    Stage = "lookup"
	StepInsert    Stage = "insert"
	StepEmbed     Stage = "embed"
	StepFragments Stage = "fragments"
)

// QuotaDeniedError carries the gate decision that refused a run.
type QuotaDeniedError struct {
	Decision tenant.Decision
}

func (e *QuotaDeniedError) Error() string {
	return fmt.Sprintf("quota denied: %s", e.Decision.Reason())
}

// Is reports ErrQuotaDenied as matching.
func (e *QuotaDeniedError) Is(target error) bool {
	return target == ErrQuotaDenied
}

// StageError records which stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage a run failed in, or StageFailed when err
// carries no stage.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageFailed
}
