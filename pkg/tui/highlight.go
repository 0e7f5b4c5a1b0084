package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackcoderx/stepwise/pkg/report"
)

// highlightJSON pretty-prints v and renders it as a syntax-highlighted JSON
// block. It falls back to the plain indented text if rendering fails.
func highlightJSON(v any, width int) string {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}

	var sb strings.Builder
	sb.WriteString("```json\n")
	sb.Write(pretty)
	sb.WriteString("\n```")

	out, err := report.Render(sb.String(), width)
	if err != nil {
		return string(pretty)
	}
	return strings.TrimSpace(out)
}
