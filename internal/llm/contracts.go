package llm

import (
	"context"

	"github.com/docintel/docintel/internal/document"
)

// Shape identifies which response schema a model call must satisfy.
type Shape int

const (
	ShapeCategory Shape = iota
	ShapeExtraction
)

func (s Shape) String() string {
	if s == ShapeCategory {
		return "category"
	}
	return "extraction"
}

// CategoryResult is the expected shape of a categorize call.
type CategoryResult struct {
	Category        string  `json:"category"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reasoning       string  `json:"reasoning"`
}

// ExtractionResult is the expected shape of an extract call.
type ExtractionResult struct {
	Entities []document.Entity     `json:"entities"`
	Dates    []string              `json:"dates"`
	Tables   []document.TableBlock `json:"tables"`
}

// Payload is the user half of a model request: plain text, or an inlined
// image as a data URI. When ImageDataURL is set the text rides along as a
// caption part.
type Payload struct {
	Text         string
	ImageDataURL string
}

// Invoker is the interface the orchestrator depends on. CompleteJSON
// performs the full protocol: invoke, validate against the shape, and on
// validation failure issue exactly one corrective re-prompt before
// surfacing a schema error. The returned bytes are validated JSON.
type Invoker interface {
	CompleteJSON(ctx context.Context, model, systemPrompt string, payload Payload, shape Shape) ([]byte, error)
}
