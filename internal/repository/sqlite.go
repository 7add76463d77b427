package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/document"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processing_records (
    fingerprint TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    content_type TEXT NOT NULL,
    file_size INTEGER NOT NULL,
    status TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS document_blobs (
    fingerprint TEXT PRIMARY KEY REFERENCES processing_records(fingerprint) ON DELETE CASCADE,
    content BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS extractions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fingerprint TEXT NOT NULL REFERENCES processing_records(fingerprint) ON DELETE CASCADE,
    category TEXT NOT NULL,
    confidence REAL NOT NULL,
    payload TEXT NOT NULL,
    model_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extractions_fingerprint ON extractions(fingerprint);
`

// SQLiteStore is the default embedded backend.
type SQLiteStore struct {
	conn   *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and runs
// migrations.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("repository.open", "backend", "sqlite", "path", path)
	return &SQLiteStore{conn: conn, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) GetRecord(ctx context.Context, fingerprint string) (*document.ProcessingRecord, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT fingerprint, filename, content_type, file_size, status, error_message, created_at, updated_at
		FROM processing_records WHERE fingerprint = ?`, fingerprint)
	return scanRecord(row)
}

func (s *SQLiteStore) ClaimProcessing(ctx context.Context, rec document.ProcessingRecord, staleBefore time.Time) (ClaimResult, error) {
	now := time.Now().UTC()
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO processing_records (fingerprint, filename, content_type, file_size, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '', ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING`,
		rec.Fingerprint, rec.Filename, rec.ContentType, rec.FileSize, string(constants.StatusProcessing), now, now)
	if err != nil {
		s.logger.Error("repository.claim.insert_failed", "fingerprint", rec.Fingerprint, "error", err)
		return ClaimResult{}, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		s.logger.Info("repository.claim.won", "fingerprint", rec.Fingerprint)
		return ClaimResult{Claimed: true}, nil
	}

	existing, err := s.GetRecord(ctx, rec.Fingerprint)
	if err != nil {
		return ClaimResult{}, err
	}

	// Stale re-claim: a Processing row abandoned by a crashed run.
	if existing.Status == constants.StatusProcessing && existing.UpdatedAt.Before(staleBefore) {
		res, err := s.conn.ExecContext(ctx, `
			UPDATE processing_records SET updated_at = ?, error_message = ''
			WHERE fingerprint = ? AND status = ? AND updated_at < ?`,
			now, rec.Fingerprint, string(constants.StatusProcessing), staleBefore)
		if err != nil {
			return ClaimResult{}, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			s.logger.Warn("repository.claim.reclaimed_stale", "fingerprint", rec.Fingerprint, "stale_since", existing.UpdatedAt)
			return ClaimResult{Claimed: true}, nil
		}
		// Lost the re-claim race; fall through with a fresh read.
		if existing, err = s.GetRecord(ctx, rec.Fingerprint); err != nil {
			return ClaimResult{}, err
		}
	}

	return ClaimResult{Claimed: false, Existing: existing}, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, fingerprint string, status constants.ProcessingStatus, errorMessage string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE processing_records SET status = ?, error_message = ?, updated_at = ?
		WHERE fingerprint = ?`,
		string(status), errorMessage, time.Now().UTC(), fingerprint)
	if err != nil {
		s.logger.Error("repository.status.update_failed", "fingerprint", fingerprint, "status", status, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewNotFoundError("no record for fingerprint " + fingerprint)
	}
	s.logger.Info("repository.status.updated", "fingerprint", fingerprint, "status", status)
	return nil
}

func (s *SQLiteStore) SaveBlob(ctx context.Context, fingerprint string, content []byte) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO document_blobs (fingerprint, content) VALUES (?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET content = excluded.content`,
		fingerprint, content)
	if err != nil {
		s.logger.Error("repository.blob.save_failed", "fingerprint", fingerprint, "error", err)
	}
	return err
}

func (s *SQLiteStore) GetBlob(ctx context.Context, fingerprint string) ([]byte, error) {
	var content []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT content FROM document_blobs WHERE fingerprint = ?`, fingerprint).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFoundError("no stored bytes for fingerprint " + fingerprint)
	}
	return content, err
}

func (s *SQLiteStore) PutExtraction(ctx context.Context, rec *document.ExtractionRecord) error {
	payload, err := json.Marshal(extractionPayload{
		Entities: rec.Entities,
		Dates:    rec.Dates,
		Tables:   rec.Tables,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO extractions (fingerprint, category, confidence, payload, model_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Fingerprint, string(rec.Category), rec.Confidence, string(payload), rec.ModelID, createdAt)
	if err != nil {
		s.logger.Error("repository.extraction.put_failed", "fingerprint", rec.Fingerprint, "error", err)
	}
	return err
}

func (s *SQLiteStore) GetExtraction(ctx context.Context, fingerprint string) (*document.ExtractionRecord, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT fingerprint, category, confidence, payload, model_id, created_at
		FROM extractions WHERE fingerprint = ?
		ORDER BY id DESC LIMIT 1`, fingerprint)
	return scanExtraction(row)
}

func (s *SQLiteStore) ListCompleted(ctx context.Context) ([]CompletedDocument, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT r.fingerprint, r.filename, r.content_type, r.file_size, r.status, r.error_message, r.created_at, r.updated_at,
		       e.category, e.confidence, e.payload, e.model_id, e.created_at
		FROM processing_records r
		JOIN extractions e ON e.id = (
			SELECT id FROM extractions WHERE fingerprint = r.fingerprint ORDER BY id DESC LIMIT 1
		)
		WHERE r.status = ?
		ORDER BY e.created_at`, string(constants.StatusCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CompletedDocument
	for rows.Next() {
		var (
			cd       CompletedDocument
			status   string
			category string
			payload  string
		)
		if err := rows.Scan(
			&cd.Record.Fingerprint, &cd.Record.Filename, &cd.Record.ContentType, &cd.Record.FileSize,
			&status, &cd.Record.ErrorMessage, &cd.Record.CreatedAt, &cd.Record.UpdatedAt,
			&category, &cd.Extraction.Confidence, &payload, &cd.Extraction.ModelID, &cd.Extraction.CreatedAt,
		); err != nil {
			return nil, err
		}
		cd.Record.Status = constants.ProcessingStatus(status)
		cd.Extraction.Fingerprint = cd.Record.Fingerprint
		cd.Extraction.Category = constants.Category(category)
		if err := unmarshalPayload(payload, &cd.Extraction); err != nil {
			return nil, err
		}
		out = append(out, cd)
	}
	return out, rows.Err()
}

