package report

import (
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

// diffThreshold is the length above which mismatched values are shown as a
// diff instead of side by side.
const diffThreshold = 40

// ValueDiff returns a unified diff between an expected and an actual value,
// or "" when both are short single-line values that read fine side by side.
func ValueDiff(field, expected, actual string) string {
	if expected == actual {
		return ""
	}
	if len(expected) <= diffThreshold && len(actual) <= diffThreshold &&
		!strings.Contains(expected, "\n") && !strings.Contains(actual, "\n") {
		return ""
	}
	expected, actual = withNewline(expected), withNewline(actual)
	edits := udiff.Strings(expected, actual)
	unified, err := udiff.ToUnified("expected/"+field, "actual/"+field, expected, edits, 3)
	if err != nil {
		return fmt.Sprintf("--- expected/%s\n+++ actual/%s\n(diff generation failed)\n", field, field)
	}
	return unified
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
