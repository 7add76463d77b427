package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/document"
)

// rowScanner is satisfied by both *sql.Row and pgx.Row, so the two
// backends share one set of scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func scanRecord(row rowScanner) (*document.ProcessingRecord, error) {
	var (
		rec    document.ProcessingRecord
		status string
	)
	err := row.Scan(&rec.Fingerprint, &rec.Filename, &rec.ContentType, &rec.FileSize,
		&status, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt)
	if noRows(err) {
		return nil, common.NewNotFoundError("no record for fingerprint")
	}
	if err != nil {
		return nil, err
	}
	rec.Status = constants.ProcessingStatus(status)
	return &rec, nil
}

func scanExtraction(row rowScanner) (*document.ExtractionRecord, error) {
	var (
		rec      document.ExtractionRecord
		category string
		payload  string
	)
	err := row.Scan(&rec.Fingerprint, &category, &rec.Confidence, &payload, &rec.ModelID, &rec.CreatedAt)
	if noRows(err) {
		return nil, common.NewNotFoundError("no extraction for fingerprint")
	}
	if err != nil {
		return nil, err
	}
	rec.Category = constants.Category(category)
	if err := unmarshalPayload(payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func unmarshalPayload(payload string, rec *document.ExtractionRecord) error {
	var p extractionPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return fmt.Errorf("unmarshal extraction payload: %w", err)
	}
	rec.Entities = p.Entities
	rec.Dates = p.Dates
	rec.Tables = p.Tables
	return nil
}
