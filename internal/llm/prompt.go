package llm

import (
	"encoding/json"
	"strings"

	"github.com/docintel/docintel/constants"
)

// BuildCategorizePrompt composes the system message for the categorize
// call. The instruction fully specifies the required output shape so the
// model is expected to return only that shape.
func BuildCategorizePrompt() string {
	parts := []string{
		"You are a document classifier. Return ONLY JSON that matches the provided JSON Schema.",
		"Classify the document into exactly one of: " + strings.Join(constants.AsStringSlice(), ", ") + ".",
		"If none fit, use 'other'.",
		"'confidence_score' is your certainty between 0.0 and 1.0.",
		"'reasoning' is one short sentence explaining the choice.",
		"Never output null. Never wrap the JSON in markdown fences.",
		"JSON Schema:\n" + mustJSON(BuildCategorySchema()),
	}
	return strings.Join(parts, " ")
}

// BuildExtractPrompt composes the system message for the extract call.
func BuildExtractPrompt() string {
	parts := []string{
		"You are a document data extractor. Return ONLY JSON that matches the provided JSON Schema.",
		"Extract entities with 'type' one of: " + strings.Join(constants.EntityTypes(), ", ") + ".",
		"Each entity carries a 'confidence' between 0.0 and 1.0.",
		"Put every date you find in 'dates', formatted ISO-8601 (YYYY-MM-DD).",
		"Reproduce tabular data in 'tables' with a short 'name', the header row in 'headers', and body rows in 'rows'.",
		"If a row has fewer or more cells than the header, keep it as-is; do not pad or truncate.",
		"Use empty arrays when nothing of a kind is present. Never output null. Never wrap the JSON in markdown fences.",
		"JSON Schema:\n" + mustJSON(BuildExtractionSchema()),
	}
	return strings.Join(parts, " ")
}

// BuildCorrectionPrompt composes the system message for the one-shot
// self-correction re-prompt. The previous (invalid) response is sent as
// the user content.
func BuildCorrectionPrompt(shape Shape) string {
	parts := []string{
		"Your previous response did not match the required schema.",
		"Reformat it into JSON that matches this exact JSON Schema, preserving the content:",
		mustJSON(SchemaFor(shape)),
		"Return ONLY the corrected JSON. No commentary, no markdown fences.",
	}
	return strings.Join(parts, " ")
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
