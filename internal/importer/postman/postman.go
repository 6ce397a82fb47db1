// Package postman translates a Postman Collection v2.1 export into
// []*model.Request, flattening folders with "/"-joined names.
// Postman's own `{{var}}` placeholder syntax already matches the
// template dialect this runner expands, so variable references pass
// through unchanged.
package postman

import (
	"fmt"
	"io"
	"strings"

	postman "github.com/rbretecher/go-postman-collection"

	"github.com/blackcoderx/httprun/internal/model"
)

// Import reads a Postman Collection v2.1 document and produces one
// Request per leaf item, in collection order.
func Import(r io.Reader) ([]*model.Request, error) {
	collection, err := postman.ParseCollection(r)
	if err != nil {
		return nil, fmt.Errorf("parsing postman collection: %w", err)
	}

	var out []*model.Request
	walkItems(collection.Items, "", &out)
	return out, nil
}

func walkItems(items []*postman.Items, prefix string, out *[]*model.Request) {
	for _, item := range items {
		name := joinName(prefix, item.Name)
		if item.IsGroup() {
			walkItems(item.Items, name, out)
			continue
		}
		if item.Request == nil {
			continue
		}
		*out = append(*out, translate(name, item.Request))
	}
}

func joinName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func translate(name string, req *postman.Request) *model.Request {
	out := &model.Request{
		Name:    name,
		Method:  strings.ToUpper(string(req.Method)),
		Headers: model.NewOrderedHeaders(),
	}

	if req.URL != nil {
		out.URL = req.URL.Raw
	}

	for _, h := range req.Header {
		out.Headers.Set(h.Key, h.Value)
	}

	if req.Body != nil && req.Body.Raw != "" {
		out.Body = &model.Body{Kind: model.BodyRaw, Raw: req.Body.Raw}
	}

	return out
}
