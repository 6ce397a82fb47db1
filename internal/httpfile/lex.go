// Package httpfile implements the .http dialect parser: the Line
// Classifier, Script Block Parser, the HTTP File Parser state machine,
// and environment-file loading.
package httpfile

import (
	"regexp"
	"strings"
)

// LineKind tags a classified line.
type LineKind int

const (
	LineBlank LineKind = iota
	LineComment
	LineSection
	LineNameDirective
	LineAuthDirective
	LineExpectErrorDirective
	LineVariable
	LineAssertHeader
	LineAssertLine
	LineScriptOpen
	LineScriptClose
	LineScriptFileRef
	LineBodyFileRef
	LineOther
)

// Classified is the result of classifying one line.
type Classified struct {
	Kind LineKind
	// Payload fields, populated according to Kind.
	Name  string // section title, directive id/auth name, variable key
	Value string // variable value, script/body file path
	IsPre bool   // for script lines: true for "<" (pre-request), false for ">" (response-handler)
}

var (
	nameDirectiveRe     = regexp.MustCompile(`^#\s*@name\s+(\S+)\s*$`)
	authDirectiveRe     = regexp.MustCompile(`^#\s*@auth\s+(\S+)\s*$`)
	expectErrorRe       = regexp.MustCompile(`^#\s*@expectError\s*$`)
	variableRe          = regexp.MustCompile(`^@([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)$`)
	assertHeaderRe      = regexp.MustCompile(`^####\s*Assert\b(?::\s*(.*))?$`)
	scriptInlineOpenRe  = regexp.MustCompile(`^([<>])\s*\{%\s*(.*)$`)
	scriptCloseRe       = regexp.MustCompile(`^(.*?)%\}\s*$`)
	scriptFileRe        = regexp.MustCompile(`^([<>])\s*(\S+\.js)\s*$`)
	bodyFileRe          = regexp.MustCompile(`^<\s*(\S+)\s*$`)
)

// ClassifyLine classifies a raw (un-trimmed) line. inAssertions tells the
// classifier whether assertion lines are currently reachable so that,
// e.g., `Status:` is only recognized as an assertion line inside an
// assertions block.
func ClassifyLine(raw string, inAssertions bool) Classified {
	trimmed := strings.TrimRight(raw, "\r\n")
	stripped := strings.TrimSpace(trimmed)

	if stripped == "" {
		return Classified{Kind: LineBlank}
	}

	if m := assertHeaderRe.FindStringSubmatch(stripped); m != nil {
		return Classified{Kind: LineAssertHeader, Name: m[1]}
	}

	if strings.HasPrefix(stripped, "###") {
		return Classified{Kind: LineSection, Name: strings.TrimSpace(strings.TrimPrefix(stripped, "###"))}
	}

	if m := nameDirectiveRe.FindStringSubmatch(stripped); m != nil {
		return Classified{Kind: LineNameDirective, Name: m[1]}
	}
	if m := authDirectiveRe.FindStringSubmatch(stripped); m != nil {
		return Classified{Kind: LineAuthDirective, Name: m[1]}
	}
	if expectErrorRe.MatchString(stripped) {
		return Classified{Kind: LineExpectErrorDirective}
	}

	// Comments: "#" or "//" at the start, but "###" was already handled
	// above so a bare "#" here is a genuine comment line.
	if strings.HasPrefix(stripped, "#") || strings.HasPrefix(stripped, "//") {
		return Classified{Kind: LineComment}
	}

	if m := scriptInlineOpenRe.FindStringSubmatch(stripped); m != nil {
		return Classified{Kind: LineScriptOpen, Value: m[2], IsPre: m[1] == "<"}
	}
	if m := scriptFileRe.FindStringSubmatch(stripped); m != nil {
		return Classified{Kind: LineScriptFileRef, Value: m[2], IsPre: m[1] == "<"}
	}

	if m := variableRe.FindStringSubmatch(stripped); m != nil {
		return Classified{Kind: LineVariable, Name: m[1], Value: m[2]}
	}

	if inAssertions {
		return Classified{Kind: LineAssertLine, Value: stripped}
	}

	if m := bodyFileRe.FindStringSubmatch(stripped); m != nil {
		return Classified{Kind: LineBodyFileRef, Value: m[1]}
	}

	return Classified{Kind: LineOther, Value: trimmed}
}

// IsScriptClose reports whether a line (inside an open inline script
// block) closes it, returning the text preceding "%}" on that same line.
func IsScriptClose(raw string) (string, bool) {
	stripped := strings.TrimSpace(raw)
	if m := scriptCloseRe.FindStringSubmatch(stripped); m != nil && strings.Contains(stripped, "%}") {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}
