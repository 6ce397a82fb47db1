package assert

import (
	"github.com/aymanbagabas/go-udiff"
)

// UnifiedDiff returns a unified line-diff of expected vs actual, used to
// attach to failed Body and Header assertion results alongside the two
// bare values.
func UnifiedDiff(expected, actual string) string {
	if expected == actual {
		return ""
	}
	edits := udiff.Strings(expected, actual)
	unified, err := udiff.ToUnified("expected", "actual", expected, edits, 3)
	if err != nil {
		return "--- expected\n+++ actual\n(diff generation failed)\n"
	}
	return unified
}
