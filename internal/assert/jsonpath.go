// Package assert implements the Assertion Engine: Status, Header,
// Body (JSONPath), JsonSchema, ResponseTime, and Custom assertions.
package assert

import (
	"fmt"
	"strconv"
	"strings"
)

// GetJSONPath extracts a value from decoded JSON using the narrow custom
// dialect this project supports: `$.field`, `$.nested.field`,
// `$.array[0]`, and the `$.length` pseudo-path on arrays/strings. This is
// intentionally not a full JSONPath 9535 implementation — the .http
// assertion syntax only ever needs this subset.
func GetJSONPath(data interface{}, path string) (interface{}, error) {
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return data, nil
	}

	parts := strings.Split(path, ".")
	cur := data

	for _, part := range parts {
		if part == "length" {
			n, err := lengthOf(cur)
			if err != nil {
				return nil, err
			}
			cur = n
			continue
		}

		fieldName, indices, err := splitFieldIndices(part)
		if err != nil {
			return nil, err
		}

		if fieldName != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("expected object at %q, got %T", fieldName, cur)
			}
			v, ok := m[fieldName]
			if !ok {
				return nil, fmt.Errorf("field %q not found", fieldName)
			}
			cur = v
		}

		for _, idx := range indices {
			arr, ok := cur.([]interface{})
			if !ok {
				return nil, fmt.Errorf("expected array at %q", part)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("array index %d out of bounds", idx)
			}
			cur = arr[idx]
		}
	}

	return cur, nil
}

func lengthOf(v interface{}) (float64, error) {
	switch t := v.(type) {
	case []interface{}:
		return float64(len(t)), nil
	case string:
		return float64(len(t)), nil
	case map[string]interface{}:
		return float64(len(t)), nil
	default:
		return 0, fmt.Errorf(".length on unsupported type %T", v)
	}
}

func splitFieldIndices(part string) (string, []int, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		return part, nil, nil
	}
	name := part[:open]
	rest := part[open:]
	var indices []int
	for len(rest) > 0 {
		if rest[0] != '[' {
			break
		}
		close := strings.IndexByte(rest, ']')
		if close < 0 {
			return "", nil, fmt.Errorf("malformed index in %q", part)
		}
		idx, err := strconv.Atoi(rest[1:close])
		if err != nil {
			return "", nil, fmt.Errorf("invalid array index in %q: %w", part, err)
		}
		indices = append(indices, idx)
		rest = rest[close+1:]
	}
	return name, indices, nil
}
