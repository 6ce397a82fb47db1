// Package openapi translates an OpenAPI 3 document into a skeleton
// []*model.Request: one request per (path, operation) pair, with
// path and query parameters rendered as `{{paramName}}` tokens the user
// binds via `@paramName = ...` or `--var`.
package openapi

import (
	"fmt"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/blackcoderx/httprun/internal/model"
)

// Import reads an OpenAPI 3 document (JSON or YAML) and produces one
// skeleton Request per path/operation, in document order.
func Import(content []byte, baseURL string) ([]*model.Request, error) {
	document, err := libopenapi.NewDocument(content)
	if err != nil {
		return nil, fmt.Errorf("parsing openapi document: %w", err)
	}

	doc, err := document.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building openapi v3 model: %w", err)
	}

	var out []*model.Request
	for pair := doc.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()

		ops := map[string]*v3.Operation{
			"GET": item.Get, "POST": item.Post, "PUT": item.Put,
			"DELETE": item.Delete, "PATCH": item.Patch,
			"HEAD": item.Head, "OPTIONS": item.Options,
		}
		for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"} {
			op := ops[method]
			if op == nil {
				continue
			}
			out = append(out, translate(method, path, baseURL, op))
		}
	}
	return out, nil
}

func translate(method, path, baseURL string, op *v3.Operation) *model.Request {
	name := op.OperationId
	if name == "" {
		name = method + " " + path
	}

	url, query := tokenizePath(path, op)

	req := &model.Request{
		Name:    name,
		Method:  method,
		URL:     baseURL + url + query,
		Headers: model.NewOrderedHeaders(),
	}

	if op.RequestBody != nil {
		req.Body = &model.Body{Kind: model.BodyRaw, Raw: "{}"}
		req.Headers.Set("Content-Type", "application/json")
	}

	return req
}

// tokenizePath doubles `{param}` path segments into `{{param}}` tokens
// (OpenAPI's own brace syntax coincides with this dialect's template
// syntax once doubled) and appends declared query parameters as
// `{{name}}` tokens.
func tokenizePath(path string, op *v3.Operation) (string, string) {
	url := strings.NewReplacer("{", "{{", "}", "}}").Replace(path)

	var query []string
	for _, p := range op.Parameters {
		if p == nil || p.In != "query" {
			continue
		}
		query = append(query, p.Name+"={{"+p.Name+"}}")
	}
	if len(query) == 0 {
		return url, ""
	}
	return url, "?" + strings.Join(query, "&")
}
