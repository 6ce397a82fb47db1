// Package diag implements the error taxonomy and diagnostic log:
// ParserError, RequestError, AssertionError, and ConfigError as a tagged
// sum type, plus an in-memory log with filtering and metrics.
package diag

import (
	"fmt"
	"time"
)

// Kind tags which of the four error shapes an Error carries.
type Kind string

const (
	KindParser    Kind = "ParserError"
	KindRequest   Kind = "RequestError"
	KindAssertion Kind = "AssertionError"
	KindConfig    Kind = "ConfigError"
)

// Error is the common structured payload every diagnostic error kind
// shares: a tagged kind, code, message, timestamp, and a context map that
// tolerates circular references (it is never walked recursively; values
// are stored as opaque interfaces and stringified lazily).
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Timestamp time.Time
	Context   map[string]interface{}

	// ParserError fields.
	File   string
	Line   int
	Column int

	// RequestError fields.
	StatusCode int

	// AssertionError fields.
	AssertionType string
	Expected      string
	Actual        string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindParser:
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	case KindRequest:
		if e.StatusCode != 0 {
			return fmt.Sprintf("request error (status %d): %s", e.StatusCode, e.Message)
		}
		return fmt.Sprintf("request error: %s", e.Message)
	case KindAssertion:
		return fmt.Sprintf("assertion failed (%s): %s", e.AssertionType, e.Message)
	case KindConfig:
		return fmt.Sprintf("config error: %s", e.Message)
	default:
		return e.Message
	}
}

// NewParserError builds a ParserError positioned at file:line:col.
func NewParserError(file string, line, col int, msg string) *Error {
	return &Error{
		Kind: KindParser, Code: "PARSE_ERROR", Message: msg,
		Timestamp: time.Now(), File: file, Line: line, Column: col,
	}
}

// NewRequestError builds a RequestError, optionally carrying an HTTP
// status code (0 when the failure never reached the wire).
func NewRequestError(code string, statusCode int, msg string, ctx map[string]interface{}) *Error {
	return &Error{
		Kind: KindRequest, Code: code, Message: msg,
		Timestamp: time.Now(), StatusCode: statusCode, Context: ctx,
	}
}

// NewAssertionError builds an AssertionError.
func NewAssertionError(assertionType, expected, actual, msg string) *Error {
	return &Error{
		Kind: KindAssertion, Code: "ASSERTION_FAILED", Message: msg,
		Timestamp: time.Now(), AssertionType: assertionType,
		Expected: expected, Actual: actual,
	}
}

// NewConfigError builds a ConfigError.
func NewConfigError(msg string) *Error {
	return &Error{Kind: KindConfig, Code: "CONFIG_ERROR", Message: msg, Timestamp: time.Now()}
}

// As-compatible helpers so callers can narrow without reaching into the
// Kind field directly.

func IsParserError(err error) bool    { return kindOf(err) == KindParser }
func IsRequestError(err error) bool   { return kindOf(err) == KindRequest }
func IsAssertionError(err error) bool { return kindOf(err) == KindAssertion }
func IsConfigError(err error) bool    { return kindOf(err) == KindConfig }

func kindOf(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return ""
	}
	return e.Kind
}
