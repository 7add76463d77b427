// Package document defines the domain records shared by the orchestrator,
// the persistence layer, and the HTTP surface.
package document

import (
	"time"

	"github.com/docintel/docintel/constants"
)

// Document is an immutable upload: raw bytes plus declared metadata and
// the derived fingerprint. Created once per upload, never mutated.
type Document struct {
	Fingerprint string
	Filename    string
	ContentType string
	Size        int64
	HasImages   bool
	Content     []byte
}

// ProcessingRecord tracks a document's analysis lifecycle, keyed by
// fingerprint. Status transitions are the only mutations.
type ProcessingRecord struct {
	Fingerprint  string
	Filename     string
	ContentType  string
	FileSize     int64
	Status       constants.ProcessingStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Entity is a single extracted entity.
type Entity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// TableBlock is an extracted table. Rows may be ragged: a row's length
// need not equal the header count, and consumers must tolerate that.
type TableBlock struct {
	Name    string     `json:"name"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ExtractionRecord is the stored analysis outcome for a completed
// document. Immutable once written; the latest row per fingerprint wins.
type ExtractionRecord struct {
	Fingerprint string
	Category    constants.Category
	Confidence  float64
	Entities    []Entity
	Dates       []string
	Tables      []TableBlock
	ModelID     string
	CreatedAt   time.Time
}

// Result is the caller-visible analysis outcome.
type Result struct {
	FileID          string       `json:"fileId"`
	Filename        string       `json:"filename"`
	FileSize        int64        `json:"fileSize"`
	FileType        string       `json:"fileType"`
	Category        string       `json:"category"`
	ConfidenceScore float64      `json:"confidenceScore"`
	Entities        []Entity     `json:"entities"`
	Dates           []string     `json:"dates"`
	Tables          []TableBlock `json:"tables"`
	Status          string       `json:"status"`
	Message         string       `json:"message,omitempty"`
}

// ClampConfidence forces a model-reported score into [0,1] before storage.
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
