package httpfile

import (
	"strings"

	"github.com/blackcoderx/httprun/internal/model"
)

// scriptScanner extracts script references from a section's raw lines,
// It is driven line-by-line by the parser state machine so it
// can coexist with header/body/assertion scanning in one pass.
type scriptScanner struct {
	pre     []model.Script
	post    []model.Script
	// open inline-block state
	open       bool
	openIsPre  bool
	openBuf    strings.Builder
}

// TryConsume attempts to interpret line as part of a script production.
// It returns true if the line was consumed (either starting, continuing,
// or closing a script block, or a single-line/file reference), false if
// the line belongs to some other production and the caller should handle
// it itself.
func (s *scriptScanner) TryConsume(c Classified, raw string) bool {
	if s.open {
		if text, ok := IsScriptClose(raw); ok {
			if text != "" {
				if s.openBuf.Len() > 0 {
					s.openBuf.WriteString("\n")
				}
				s.openBuf.WriteString(text)
			}
			s.finishOpen()
			return true
		}
		if s.openBuf.Len() > 0 {
			s.openBuf.WriteString("\n")
		}
		s.openBuf.WriteString(raw)
		return true
	}

	switch c.Kind {
	case LineScriptOpen:
		// Single-line form: "< {% ... %}" closes on the same line.
		if text, ok := IsScriptClose(c.Value); ok {
			s.append(c.IsPre, model.Script{Kind: model.ScriptInline, Source: strings.TrimSpace(text)})
			return true
		}
		s.open = true
		s.openIsPre = c.IsPre
		s.openBuf.Reset()
		if strings.TrimSpace(c.Value) != "" {
			s.openBuf.WriteString(c.Value)
		}
		return true
	case LineScriptFileRef:
		s.append(c.IsPre, model.Script{Kind: model.ScriptFile, Path: c.Value})
		return true
	default:
		return false
	}
}

func (s *scriptScanner) finishOpen() {
	s.append(s.openIsPre, model.Script{Kind: model.ScriptInline, Source: s.openBuf.String()})
	s.open = false
	s.openBuf.Reset()
}

func (s *scriptScanner) append(isPre bool, sc model.Script) {
	if isPre {
		s.pre = append(s.pre, sc)
	} else {
		s.post = append(s.post, sc)
	}
}

// Results returns the accumulated pre-request and response-handler
// scripts; any still-open block (malformed file) is flushed as-is.
func (s *scriptScanner) Results() ([]model.Script, []model.Script) {
	if s.open {
		s.finishOpen()
	}
	return s.pre, s.post
}
