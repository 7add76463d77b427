package llm

import "strings"

// ModelKind distinguishes the two model variants we route between.
type ModelKind int

const (
	ModelText ModelKind = iota
	ModelVision
)

func (k ModelKind) String() string {
	if k == ModelVision {
		return "vision"
	}
	return "text"
}

// SelectModel maps (declared content type, image-presence flag) to a model
// variant. Image content always routes to the vision model; PDFs route to
// it only when they carry images; everything else, unknown types included,
// falls through to the text model. Pure and total, no I/O.
func SelectModel(declaredType string, hasImages bool) ModelKind {
	ct := strings.ToLower(strings.TrimSpace(declaredType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return ModelVision
	case ct == "application/pdf" && hasImages:
		return ModelVision
	default:
		return ModelText
	}
}
