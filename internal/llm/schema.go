package llm

// BuildCategorySchema returns a JSON-Schema (draft 2020-12 subset) for the
// categorize response as a generic map. We embed it in the system prompt
// and use it locally to validate.
//
// Category is deliberately a plain string here: mapping unknown labels to
// "other" happens at the orchestrator, never at validation time, so this
// layer stays purely structural. Confidence is likewise unbounded; the
// orchestrator clamps it before storage.
func BuildCategorySchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"category":         map[string]any{"type": "string", "minLength": 1},
			"confidence_score": map[string]any{"type": "number"},
			"reasoning":        map[string]any{"type": "string"},
		},
		"required": []string{"category", "confidence_score", "reasoning"},
	}
}

// BuildExtractionSchema returns the schema for the extract response.
// Table rows are arrays of string arrays with no length coupling to
// headers; ragged rows are valid.
func BuildExtractionSchema() map[string]any {
	entity := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"type":       map[string]any{"type": "string", "minLength": 1},
			"value":      map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number"},
		},
		"required": []string{"type", "value"},
	}
	table := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"headers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"rows": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
		"required": []string{"name", "headers", "rows"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"entities": map[string]any{"type": "array", "items": entity},
			"dates":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"tables":   map[string]any{"type": "array", "items": table},
		},
		"required": []string{"entities", "dates", "tables"},
	}
}

// SchemaFor returns the schema map for a shape.
func SchemaFor(shape Shape) map[string]any {
	if shape == ShapeCategory {
		return BuildCategorySchema()
	}
	return BuildExtractionSchema()
}
