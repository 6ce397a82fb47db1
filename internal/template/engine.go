// Package template implements the `{{name}}` substitution engine:
// scope variable resolution, dynamic-directive delegation, response
// references, and a bounded cycle guard.
package template

import (
	"strings"

	"github.com/blackcoderx/httprun/internal/dynamic"
	"github.com/blackcoderx/httprun/internal/scope"
)

// maxExpansionDepth bounds nested/cyclic substitution.
const maxExpansionDepth = 16

// ResponseLookup resolves a `{{id.response...}}` reference given the
// named request id and the remaining path segments after "response".
// It returns the rendered string and whether id was known.
type ResponseLookup func(id string, segments []string) (string, bool)

// Engine expands `{{...}}` tokens against a Scope, a Resolver for
// dynamic directives, and a ResponseLookup for named-response references.
type Engine struct {
	Scope    *scope.Scope
	Dynamic  *dynamic.Resolver
	Response ResponseLookup
}

// New builds an Engine over the given scope, dynamic resolver, and
// response lookup.
func New(s *scope.Scope, d *dynamic.Resolver, lookup ResponseLookup) *Engine {
	return &Engine{Scope: s, Dynamic: d, Response: lookup}
}

// Expand substitutes every recognized `{{...}}` token in text, recursing
// into substituted values up to maxExpansionDepth, guarding against
// cycles by tracking names currently being expanded.
func (e *Engine) Expand(text string) string {
	return e.expand(text, nil, 0)
}

func (e *Engine) expand(text string, expanding map[string]bool, depth int) string {
	if depth >= maxExpansionDepth {
		return text
	}

	var out strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "{{")
		if start < 0 {
			out.WriteString(text[i:])
			break
		}
		start += i
		out.WriteString(text[i:start])

		end := strings.Index(text[start+2:], "}}")
		if end < 0 {
			// Malformed opener: no closing "}}" anywhere after; left
			// verbatim.
			out.WriteString(text[start:])
			break
		}
		end += start + 2

		name := strings.TrimSpace(text[start+2 : end])
		if name == "" {
			// {{}} left verbatim.
			out.WriteString(text[start : end+2])
			i = end + 2
			continue
		}

		if expanding[name] {
			// Cycle detected: leave this inner reference verbatim and
			// keep going; the outer expansion still completes.
			out.WriteString(text[start : end+2])
			i = end + 2
			continue
		}

		resolved, ok := e.resolveToken(name)
		if !ok {
			out.WriteString(text[start : end+2])
			i = end + 2
			continue
		}

		childExpanding := make(map[string]bool, len(expanding)+1)
		for k := range expanding {
			childExpanding[k] = true
		}
		childExpanding[name] = true
		out.WriteString(e.expand(resolved, childExpanding, depth+1))

		i = end + 2
	}
	return out.String()
}

// resolveToken resolves a single token body (without surrounding braces)
// via a three-way dispatch.
func (e *Engine) resolveToken(name string) (string, bool) {
	if strings.HasPrefix(name, "$") {
		if e.Dynamic == nil {
			return "", false
		}
		return e.Dynamic.Resolve(name)
	}

	if idx := strings.Index(name, "."); idx >= 0 {
		parts := strings.Split(name, ".")
		if len(parts) >= 2 && parts[1] == "response" && e.Response != nil {
			return e.Response(parts[0], parts[2:])
		}
	}

	if e.Scope == nil {
		return "", false
	}
	v, ok := e.Scope.Resolve(name)
	if !ok {
		return "", false
	}
	return v.Stringify(), true
}
