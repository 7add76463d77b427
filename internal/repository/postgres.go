package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/document"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS processing_records (
    fingerprint TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    content_type TEXT NOT NULL,
    file_size BIGINT NOT NULL,
    status TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_blobs (
    fingerprint TEXT PRIMARY KEY REFERENCES processing_records(fingerprint) ON DELETE CASCADE,
    content BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS extractions (
    id BIGSERIAL PRIMARY KEY,
    fingerprint TEXT NOT NULL REFERENCES processing_records(fingerprint) ON DELETE CASCADE,
    category TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    payload TEXT NOT NULL,
    model_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extractions_fingerprint ON extractions(fingerprint);
`

// PostgresStore is the pgx-backed alternative for shared deployments.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore connects a pgx pool, pings it, and runs migrations.
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "docintel"

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("repository.open", "backend", "postgres")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, fingerprint string) (*document.ProcessingRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT fingerprint, filename, content_type, file_size, status, error_message, created_at, updated_at
		FROM processing_records WHERE fingerprint = $1`, fingerprint)
	return scanRecord(row)
}

func (s *PostgresStore) ClaimProcessing(ctx context.Context, rec document.ProcessingRecord, staleBefore time.Time) (ClaimResult, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO processing_records (fingerprint, filename, content_type, file_size, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', $6, $6)
		ON CONFLICT (fingerprint) DO NOTHING`,
		rec.Fingerprint, rec.Filename, rec.ContentType, rec.FileSize, string(constants.StatusProcessing), now)
	if err != nil {
		s.logger.Error("repository.claim.insert_failed", "fingerprint", rec.Fingerprint, "error", err)
		return ClaimResult{}, err
	}
	if tag.RowsAffected() == 1 {
		s.logger.Info("repository.claim.won", "fingerprint", rec.Fingerprint)
		return ClaimResult{Claimed: true}, nil
	}

	existing, err := s.GetRecord(ctx, rec.Fingerprint)
	if err != nil {
		return ClaimResult{}, err
	}

	if existing.Status == constants.StatusProcessing && existing.UpdatedAt.Before(staleBefore) {
		tag, err := s.pool.Exec(ctx, `
			UPDATE processing_records SET updated_at = $1, error_message = ''
			WHERE fingerprint = $2 AND status = $3 AND updated_at < $4`,
			now, rec.Fingerprint, string(constants.StatusProcessing), staleBefore)
		if err != nil {
			return ClaimResult{}, err
		}
		if tag.RowsAffected() == 1 {
			s.logger.Warn("repository.claim.reclaimed_stale", "fingerprint", rec.Fingerprint, "stale_since", existing.UpdatedAt)
			return ClaimResult{Claimed: true}, nil
		}
		if existing, err = s.GetRecord(ctx, rec.Fingerprint); err != nil {
			return ClaimResult{}, err
		}
	}

	return ClaimResult{Claimed: false, Existing: existing}, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, fingerprint string, status constants.ProcessingStatus, errorMessage string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE processing_records SET status = $1, error_message = $2, updated_at = $3
		WHERE fingerprint = $4`,
		string(status), errorMessage, time.Now().UTC(), fingerprint)
	if err != nil {
		s.logger.Error("repository.status.update_failed", "fingerprint", fingerprint, "status", status, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("no record for fingerprint " + fingerprint)
	}
	s.logger.Info("repository.status.updated", "fingerprint", fingerprint, "status", status)
	return nil
}

func (s *PostgresStore) SaveBlob(ctx context.Context, fingerprint string, content []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_blobs (fingerprint, content) VALUES ($1, $2)
		ON CONFLICT (fingerprint) DO UPDATE SET content = EXCLUDED.content`,
		fingerprint, content)
	if err != nil {
		s.logger.Error("repository.blob.save_failed", "fingerprint", fingerprint, "error", err)
	}
	return err
}

func (s *PostgresStore) GetBlob(ctx context.Context, fingerprint string) ([]byte, error) {
	var content []byte
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM document_blobs WHERE fingerprint = $1`, fingerprint).Scan(&content)
	if noRows(err) {
		return nil, common.NewNotFoundError("no stored bytes for fingerprint " + fingerprint)
	}
	return content, err
}

func (s *PostgresStore) PutExtraction(ctx context.Context, rec *document.ExtractionRecord) error {
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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO extractions (fingerprint, category, confidence, payload, model_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Fingerprint, string(rec.Category), rec.Confidence, string(payload), rec.ModelID, createdAt)
	if err != nil {
		s.logger.Error("repository.extraction.put_failed", "fingerprint", rec.Fingerprint, "error", err)
	}
	return err
}

func (s *PostgresStore) GetExtraction(ctx context.Context, fingerprint string) (*document.ExtractionRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT fingerprint, category, confidence, payload, model_id, created_at
		FROM extractions WHERE fingerprint = $1
		ORDER BY id DESC LIMIT 1`, fingerprint)
	return scanExtraction(row)
}

func (s *PostgresStore) ListCompleted(ctx context.Context) ([]CompletedDocument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.fingerprint, r.filename, r.content_type, r.file_size, r.status, r.error_message, r.created_at, r.updated_at,
		       e.category, e.confidence, e.payload, e.model_id, e.created_at
		FROM processing_records r
		JOIN LATERAL (
			SELECT * FROM extractions WHERE fingerprint = r.fingerprint ORDER BY id DESC LIMIT 1
		) e ON true
		WHERE r.status = $1
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
