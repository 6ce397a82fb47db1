package httpfile

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/blackcoderx/httprun/internal/diag"
	"github.com/blackcoderx/httprun/internal/model"
)

type parserState int

const (
	stateOutside parserState = iota
	stateRequestLine
	stateHeaders
	stateBody
	stateAssertions
)

var requestLineRe = regexp.MustCompile(`^(\S+)\s+(\S.*)$`)

// ParseResult is the product of parsing one .http file: the requests in
// parse order, any file-top variable declarations, and non-fatal
// diagnostics (e.g. a discarded orphan assertion block).
type ParseResult struct {
	Requests      []*model.Request
	FileVariables []model.VariableUpdate
	Warnings      []*diag.Error
}

// Parse runs the request-section state machine over r, identified as filename for
// ParserError positions.
func Parse(filename string, r *bufio.Scanner) (*ParseResult, error) {
	res := &ParseResult{}

	state := stateOutside
	lineNo := 0

	var cur *model.Request
	var pendingName, pendingAuth string
	var pendingExpectError bool
	var headerLines []string
	var bodyLines []string
	var bodyFileRef string
	var scripts scriptScanner

	flush := func() {
		if cur == nil {
			return
		}
		finalizeRequest(cur, headerLines, bodyLines, bodyFileRef, &scripts)
		res.Requests = append(res.Requests, cur)
		cur = nil
		headerLines = nil
		bodyLines = nil
		bodyFileRef = ""
		scripts = scriptScanner{}
	}

	for r.Scan() {
		lineNo++
		raw := r.Text()
		c := ClassifyLine(raw, state == stateAssertions)

		// Script blocks can appear inside headers/body/assertions; try
		// the scanner first so open multi-line blocks aren't
		// misclassified by section-specific logic below.
		if state != stateOutside && scripts.TryConsume(c, raw) {
			continue
		}

		switch c.Kind {
		case LineSection:
			flush()
			state = stateOutside
			pendingName = c.Name
			continue
		case LineBlank:
			if state == stateHeaders {
				state = stateBody
			}
			continue
		case LineComment:
			continue
		case LineNameDirective:
			if state == stateOutside {
				cur = newPendingRequest(pendingName, c.Name, pendingAuth, pendingExpectError, lineNo)
				pendingAuth, pendingExpectError = "", false
			}
			continue
		case LineAuthDirective:
			pendingAuth = c.Name
			continue
		case LineExpectErrorDirective:
			pendingExpectError = true
			continue
		case LineVariable:
			upd := model.VariableUpdate{Key: c.Name, Source: c.Value}
			if state == stateOutside || cur == nil {
				res.FileVariables = append(res.FileVariables, upd)
			} else {
				cur.Updates = append(cur.Updates, upd)
			}
			continue
		}

		switch state {
		case stateOutside:
			if scripts.TryConsume(c, raw) {
				continue
			}
			if c.Kind == LineAssertHeader {
				res.Warnings = append(res.Warnings, diag.NewParserError(filename, lineNo, 1,
					"assertion block with no preceding request is discarded"))
				state = stateAssertions
				continue
			}
			if m := requestLineRe.FindStringSubmatch(strings.TrimSpace(raw)); m != nil && model.ValidMethods[strings.ToUpper(m[1])] != "" {
				if cur == nil {
					cur = newPendingRequest("", "", "", false, lineNo)
				}
				if pendingAuth != "" {
					cur.AuthName = pendingAuth
				}
				if pendingExpectError {
					cur.ExpectError = true
				}
				pendingAuth, pendingExpectError = "", false
				cur.Name = pendingName
				cur.Method = strings.ToUpper(m[1])
				cur.URL = m[2]
				pendingName = ""
				state = stateHeaders
			}
		case stateHeaders:
			if c.Kind == LineAssertHeader {
				cur.Tests = append(cur.Tests, model.Test{Name: c.Name})
				state = stateAssertions
			} else if idx := strings.Index(raw, ":"); idx > 0 {
				headerLines = append(headerLines, raw)
			}
		case stateBody:
			switch c.Kind {
			case LineAssertHeader:
				cur.Tests = append(cur.Tests, model.Test{Name: c.Name})
				state = stateAssertions
			case LineBodyFileRef:
				bodyFileRef = c.Value
			default:
				bodyLines = append(bodyLines, raw)
			}
		case stateAssertions:
			if cur == nil {
				// An orphan assertion block (no preceding request in this
				// section) is discarded entirely; the warning was already
				// recorded when its "#### Assert" header was seen.
				continue
			}
			switch c.Kind {
			case LineAssertHeader:
				cur.Tests = append(cur.Tests, model.Test{Name: c.Name})
			case LineAssertLine:
				if len(cur.Tests) == 0 {
					res.Warnings = append(res.Warnings, diag.NewParserError(filename, lineNo, 1,
						"assertion line with no preceding assertion block"))
					continue
				}
				a := parseAssertionLine(c.Value)
				last := &cur.Tests[len(cur.Tests)-1]
				last.Assertions = append(last.Assertions, a)
			}
		}
	}

	if err := r.Err(); err != nil {
		return nil, diag.NewParserError(filename, lineNo, 1, err.Error())
	}

	flush()
	return res, nil
}

func newPendingRequest(name, id, auth string, expectError bool, line int) *model.Request {
	return &model.Request{
		Name: name, RequestID: id, AuthName: auth, ExpectError: expectError,
		Line: line, Headers: model.NewOrderedHeaders(), Body: &model.Body{},
	}
}

// finalizeRequest folds the buffered header/body lines and scanned
// scripts into cur, applying the header set, body (raw or file
// reference), and pre/post scripts.
func finalizeRequest(cur *model.Request, headerLines, bodyLines []string, bodyFileRef string, scripts *scriptScanner) {
	for _, hl := range headerLines {
		idx := strings.Index(hl, ":")
		name := strings.TrimSpace(hl[:idx])
		value := strings.TrimSpace(hl[idx+1:])
		cur.Headers.Set(name, value)
	}

	if bodyFileRef != "" {
		cur.Body = &model.Body{Kind: model.BodyFile, FilePath: bodyFileRef}
	} else if text := strings.TrimRight(strings.Join(bodyLines, "\n"), "\n"); strings.TrimSpace(text) != "" {
		cur.Body = &model.Body{Kind: model.BodyRaw, Raw: text}
	} else {
		cur.Body = &model.Body{Kind: model.BodyNone}
	}

	pre, post := scripts.Results()
	cur.PreScripts = pre
	cur.PostScripts = post
}

// parseAssertionLine classifies one line found inside an assertions
// block, per the state machine's dispatch table.
func parseAssertionLine(line string) model.Assertion {
	switch {
	case strings.HasPrefix(line, "Status:"):
		return model.Assertion{Kind: model.AssertStatus, Value: strings.TrimSpace(strings.TrimPrefix(line, "Status:"))}
	case strings.HasPrefix(line, "$."):
		idx := strings.Index(line, ":")
		if idx < 0 {
			return model.Assertion{Kind: model.AssertBody, Key: line}
		}
		return model.Assertion{Kind: model.AssertBody, Key: strings.TrimSpace(line[:idx]), Value: strings.TrimSpace(line[idx+1:])}
	case strings.HasPrefix(line, "_JsonSchema:"):
		return model.Assertion{Kind: model.AssertJSONSchema, Value: strings.TrimSpace(strings.TrimPrefix(line, "_JsonSchema:"))}
	case strings.HasPrefix(line, "_CustomAssert:"):
		return model.Assertion{Kind: model.AssertCustom, Value: strings.TrimSpace(strings.TrimPrefix(line, "_CustomAssert:"))}
	case strings.HasPrefix(line, "ResponseTime:"):
		return model.Assertion{Kind: model.AssertResponseTime, Value: strings.TrimSpace(strings.TrimPrefix(line, "ResponseTime:"))}
	default:
		idx := strings.Index(line, ":")
		if idx < 0 {
			return model.Assertion{Kind: model.AssertHeader, Key: line}
		}
		return model.Assertion{Kind: model.AssertHeader, Key: strings.TrimSpace(line[:idx]), Value: strings.TrimSpace(line[idx+1:])}
	}
}
