package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/docintel/docintel/internal/common"
)

// StripFences removes fenced code-block markers models sometimes wrap
// around JSON output.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ValidateShape strips wrapping artifacts from rawText and validates the
// remainder against the schema for shape. On success it returns the
// cleaned JSON bytes; on failure a schema-kind AppError naming the
// offending field. Purely structural: no enum or range checks beyond what
// the schema states.
func ValidateShape(rawText string, shape Shape) ([]byte, error) {
	cleaned := []byte(StripFences(rawText))

	var v any
	if err := json.Unmarshal(cleaned, &v); err != nil {
		return nil, common.NewSchemaError(fmt.Sprintf("%s response is not valid JSON", shape), err)
	}

	schema, err := compileSchema(SchemaFor(shape))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", shape, err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, common.NewSchemaError(fmt.Sprintf("%s response does not match schema: %s", shape, schemaErrorDetail(err)), err)
	}
	return cleaned, nil
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("schema.json")
}

// schemaErrorDetail flattens a jsonschema validation error into a short
// field-locating message instead of the multi-line default.
func schemaErrorDetail(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("field %q: %s", loc, leaf.Message)
}
