package assert

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateJSONSchema validates body against a Draft-07 schema. schemaSpec
// is either an inline JSON document (starts with '{') or a file path,
// per the JsonSchema assertion kind.
func ValidateJSONSchema(schemaSpec string, body []byte) (bool, string, error) {
	var loader gojsonschema.JSONLoader
	trimmed := strings.TrimSpace(schemaSpec)
	if strings.HasPrefix(trimmed, "{") {
		loader = gojsonschema.NewStringLoader(trimmed)
	} else {
		data, err := os.ReadFile(trimmed)
		if err != nil {
			return false, "", fmt.Errorf("reading schema file %q: %w", trimmed, err)
		}
		loader = gojsonschema.NewBytesLoader(data)
	}

	doc := gojsonschema.NewBytesLoader(body)
	result, err := gojsonschema.Validate(loader, doc)
	if err != nil {
		return false, "", fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return true, "", nil
	}

	var sb strings.Builder
	for i, e := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(formatSchemaError(e))
	}
	return false, sb.String(), nil
}

// formatSchemaError renders one gojsonschema error trimmed to a single
// line for assertion messages.
func formatSchemaError(err gojsonschema.ResultError) string {
	switch err.Type() {
	case "required":
		return fmt.Sprintf("required field missing: %s", err.Field())
	case "invalid_type":
		if d := err.Details(); d != nil {
			return fmt.Sprintf("type mismatch at %q: expected %v, got %v", err.Field(), d["expected"], d["given"])
		}
	case "format":
		return fmt.Sprintf("format validation failed at %q: %s", err.Field(), err.Description())
	case "enum":
		return fmt.Sprintf("value at %q not in allowed enum values: %s", err.Field(), err.Description())
	}
	return fmt.Sprintf("%s: %s", err.Field(), err.Description())
}
