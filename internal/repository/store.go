// Package repository persists processing records, document bytes, and
// extraction results. Two backends implement the same Store interface:
// an embedded SQLite file (default) and Postgres. Both are durable and
// crash-consistent at the single-record level; callers must not assume
// multi-record atomicity.
package repository

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/document"
)

// ClaimResult reports the outcome of a Pending→Processing claim attempt.
type ClaimResult struct {
	Claimed  bool
	Existing *document.ProcessingRecord // set when the claim was lost; nil on a fresh claim
}

// Store is the persistence collaborator consumed by the orchestrator.
type Store interface {
	// GetRecord returns the record for a fingerprint, or a not-found error.
	GetRecord(ctx context.Context, fingerprint string) (*document.ProcessingRecord, error)

	// ClaimProcessing atomically creates rec in Processing state. Exactly
	// one of two concurrent claims for the same fingerprint wins. A record
	// already in Processing may be re-claimed when its last update is
	// older than staleBefore (crash recovery); terminal records are never
	// re-claimed.
	ClaimProcessing(ctx context.Context, rec document.ProcessingRecord, staleBefore time.Time) (ClaimResult, error)

	// UpdateStatus transitions a record and stores the error message
	// (empty outside Failed).
	UpdateStatus(ctx context.Context, fingerprint string, status constants.ProcessingStatus, errorMessage string) error

	// SaveBlob stores the original document bytes. Idempotent.
	SaveBlob(ctx context.Context, fingerprint string, content []byte) error

	// GetBlob returns the original document bytes.
	GetBlob(ctx context.Context, fingerprint string) ([]byte, error)

	// PutExtraction appends an extraction result. The latest row per
	// fingerprint wins on read.
	PutExtraction(ctx context.Context, rec *document.ExtractionRecord) error

	// GetExtraction returns the newest extraction for a fingerprint.
	GetExtraction(ctx context.Context, fingerprint string) (*document.ExtractionRecord, error)

	// ListCompleted returns every completed record joined with its newest
	// extraction, ordered by analysis time.
	ListCompleted(ctx context.Context) ([]CompletedDocument, error)

	Close() error
}

// CompletedDocument pairs a completed record with its extraction for
// listing and export.
type CompletedDocument struct {
	Record     document.ProcessingRecord
	Extraction document.ExtractionRecord
}

// Open selects a backend from the DSN: postgres:// or postgresql://
// schemes open a pgx pool, anything else is treated as a SQLite path.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(ctx, dsn, logger)
	}
	return NewSQLiteStore(dsn, logger)
}

// extractionPayload is the JSON stored in the payload column.
type extractionPayload struct {
	Entities []document.Entity     `json:"entities"`
	Dates    []string              `json:"dates"`
	Tables   []document.TableBlock `json:"tables"`
}
