// Package bodyparse implements the Body Parser Family: a uniform
// shape contract over JSON, XML, URL-encoded, plain-text, and multipart
// bodies, dispatched by Content-Type.
package bodyparse

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Kind identifies which parser variant handled a body.
type Kind int

const (
	KindPlain Kind = iota
	KindJSON
	KindXML
	KindURLEncoded
	KindMultipart
)

// Parsed is the uniform result every body parser produces.
type Parsed struct {
	Kind Kind
	// Raw is the wire-ready string for JSON/XML/URL-encoded/plain bodies.
	Raw string
	// Decoded holds the JSON-decoded value when Kind == KindJSON and
	// decoding succeeded, or the field map (string values) when
	// Kind == KindURLEncoded and decoding succeeded; nil otherwise.
	Decoded interface{}
}

// KindForContentType picks a Kind from a Content-Type header value,
// stripping parameters (e.g. "; charset=utf-8"), falling through to
// plain text for anything unrecognized.
func KindForContentType(contentType string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	switch {
	case ct == "application/json" || strings.HasSuffix(ct, "+json"):
		return KindJSON
	case ct == "application/xml" || ct == "text/xml" || strings.HasSuffix(ct, "+xml"):
		return KindXML
	case ct == "application/x-www-form-urlencoded":
		return KindURLEncoded
	case strings.HasPrefix(ct, "multipart/form-data"):
		return KindMultipart
	default:
		return KindPlain
	}
}

// Parse dispatches text to the parser variant matching contentType. The
// multipart variant is handled separately by BuildMultipart and
// ParseMultipart (multipart.go) since it needs the raw field list, not a
// wire string.
func Parse(contentType, text string) Parsed {
	switch KindForContentType(contentType) {
	case KindJSON:
		return parseJSON(text)
	case KindXML:
		return Parsed{Kind: KindXML, Raw: text}
	case KindURLEncoded:
		return parseURLEncoded(text)
	default:
		return Parsed{Kind: KindPlain, Raw: text}
	}
}

func parseJSON(text string) Parsed {
	p := Parsed{Kind: KindJSON, Raw: text}
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		p.Decoded = v
	}
	return p
}

// parseURLEncoded decodes a `key=value&key2=value2` body and re-emits it
// as a JSON object of string values.
func parseURLEncoded(text string) Parsed {
	values, err := url.ParseQuery(text)
	if err != nil {
		return Parsed{Kind: KindURLEncoded, Raw: text}
	}
	obj := make(map[string]interface{}, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			obj[k] = vs[0]
		}
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return Parsed{Kind: KindURLEncoded, Raw: text}
	}
	return Parsed{Kind: KindURLEncoded, Raw: string(out), Decoded: obj}
}
