package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/blackcoderx/httprun/internal/model"
)

// NamedResponseStore maps a requestId to the
// most recent Response recorded under that id.
type NamedResponseStore struct {
	responses map[string]*model.Response
}

// NewNamedResponseStore returns an empty store.
func NewNamedResponseStore() *NamedResponseStore {
	return &NamedResponseStore{responses: make(map[string]*model.Response)}
}

// Put records resp as the latest response for id.
func (s *NamedResponseStore) Put(id string, resp *model.Response) {
	s.responses[id] = resp
}

// Get returns the response recorded for id, if any.
func (s *NamedResponseStore) Get(id string) (*model.Response, bool) {
	r, ok := s.responses[id]
	return r, ok
}

// Lookup builds a ResponseLookup closure bound to this store, walking
// `status`/`headers.<name>`/`body`/`body.<path>` segments per the design
// note's common path-walker: `id.response.body` without a further path
// yields the parsed structure stringified on emission; `id.response.body.x`
// walks into it.
func (s *NamedResponseStore) Lookup() ResponseLookup {
	return func(id string, segments []string) (string, bool) {
		resp, ok := s.responses[id]
		if !ok || resp == nil {
			return "", false
		}
		if len(segments) == 0 {
			return stringifyAny(resp.Parsed), true
		}

		switch segments[0] {
		case "status":
			return strconv.Itoa(resp.StatusCode), true
		case "headers":
			if len(segments) < 2 {
				return "", false
			}
			v, ok := resp.Headers.Get(segments[1])
			return v, ok
		case "body":
			if len(segments) == 1 {
				if resp.Parsed != nil {
					return stringifyAny(resp.Parsed), true
				}
				return resp.BodyString(), true
			}
			v, ok := walkPath(resp.Parsed, segments[1:])
			if !ok {
				return "", false
			}
			return stringifyAny(v), true
		default:
			return "", false
		}
	}
}

// walkPath descends into a decoded-JSON value following dotted segments,
// supporting `[n]` array indices folded into a segment (e.g. "items[0]").
func walkPath(v interface{}, segments []string) (interface{}, bool) {
	cur := v
	for _, seg := range segments {
		name, indices := splitIndices(seg)
		if name != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false
			}
			cur, ok = m[name]
			if !ok {
				return nil, false
			}
		}
		for _, idx := range indices {
			arr, ok := cur.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// splitIndices splits "field[0][1]" into ("field", [0,1]); a bare "[0]"
// yields ("", [0]).
func splitIndices(seg string) (string, []int) {
	var indices []int
	name := seg
	for {
		open := strings.IndexByte(name, '[')
		if open < 0 {
			break
		}
		close := strings.IndexByte(name[open:], ']')
		if close < 0 {
			break
		}
		close += open
		idx, err := strconv.Atoi(name[open+1 : close])
		if err != nil {
			break
		}
		indices = append(indices, idx)
		name = name[:open] + name[close+1:]
	}
	return name, indices
}

func stringifyAny(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
