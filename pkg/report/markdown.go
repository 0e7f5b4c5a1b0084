// Package report renders executions for people: Markdown for the terminal and
// spreadsheets for sharing.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

const timeLayout = "2006-01-02 15:04:05"

// Markdown renders an execution and its step records. steps may be a subset
// of the execution's steps, e.g. only the failed ones.
func Markdown(exec model.Execution, steps []model.ExecutionStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", exec.ScenarioName)
	fmt.Fprintf(&b, "**Status:** %s  \n", exec.Status)
	fmt.Fprintf(&b, "**Base URL:** `%s`  \n", exec.BaseURL)
	fmt.Fprintf(&b, "**Started:** %s  \n", exec.StartDate.Format(timeLayout))
	fmt.Fprintf(&b, "**Finished:** %s\n\n", formatTime(exec.FinishDate))

	b.WriteString("| # | Step | Method | Endpoint | Status |\n")
	b.WriteString("|---|------|--------|----------|--------|\n")
	for _, s := range exec.Steps {
		fmt.Fprintf(&b, "| %d | %s | %s | `%s` | %s |\n", s.Sequence, cell(s.Title), s.Method, s.Endpoint, s.Status)
	}

	for _, s := range steps {
		writeStep(&b, s)
	}
	return b.String()
}

// StepMarkdown renders a single step record.
func StepMarkdown(s model.ExecutionStep) string {
	var b strings.Builder
	writeStep(&b, s)
	return strings.TrimPrefix(b.String(), "\n")
}

func writeStep(b *strings.Builder, s model.ExecutionStep) {
	fmt.Fprintf(b, "\n## %d. %s (%s)\n\n", s.Sequence, s.Title, s.Status)
	fmt.Fprintf(b, "`%s %s`", s.Request.Method, s.Request.ActualEndpoint)
	if s.Request.StructureName != nil {
		fmt.Fprintf(b, " with **%s**", *s.Request.StructureName)
	}
	b.WriteString("\n\n")
	if s.Error != "" {
		fmt.Fprintf(b, "> %s\n\n", s.Error)
	}

	if len(s.Request.Fields) > 0 {
		b.WriteString("| Field | Type | Sent |\n|-------|------|------|\n")
		for _, f := range s.Request.Fields {
			fmt.Fprintf(b, "| %s | %s | %s |\n", f.Name, f.DataType, value(f.Value))
		}
		b.WriteString("\n")
	}

	if s.Status == model.StepSkipped {
		return
	}
	fmt.Fprintf(b, "Expected **%d**, got **%d**", s.Response.ExpectedHTTPStatus, s.Response.ActualHTTPStatus)
	if s.Response.StructureName != nil {
		fmt.Fprintf(b, " as **%s**", *s.Response.StructureName)
	}
	b.WriteString("\n\n")
	if len(s.Response.Fields) == 0 {
		return
	}

	b.WriteString("| Field | Mode | Expected | Actual | Result |\n|-------|------|----------|--------|--------|\n")
	var diffs []string
	for _, f := range s.Response.Fields {
		fmt.Fprintf(b, "| %s | %s | %s %s | %s %s | %s |\n",
			f.Name, mode(f.AssertionMode),
			f.ExpectedValueType, value(f.ExpectedValue),
			f.ActualValueType, value(f.ActualValue),
			f.AssertionStatus)
		if f.AssertionStatus == model.AssertionValueMismatch || f.AssertionStatus == model.AssertionWrongParameterValue {
			if d := ValueDiff(f.Name, deref(f.ExpectedValue), deref(f.ActualValue)); d != "" {
				diffs = append(diffs, d)
			}
		}
	}
	for _, d := range diffs {
		fmt.Fprintf(b, "\n```diff\n%s```\n", d)
	}
}

// style is the glamour style name used by Render; "auto" picks one from the
// terminal background.
var style = "auto"

// SetStyle selects the glamour style ("auto", "dark", "light", "notty", ...).
// An empty name keeps the current one.
func SetStyle(name string) {
	if name != "" {
		style = name
	}
}

// Render formats Markdown for a terminal of the given width.
func Render(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	styleOpt := glamour.WithStandardStyle(style)
	if style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	renderer, err := glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return binding.Placeholder
	}
	return t.Format(timeLayout)
}

func value(v *string) string {
	if v == nil {
		return binding.Placeholder
	}
	return "`" + cell(*v) + "`"
}

func mode(m model.AssertionMode) string {
	if m == "" {
		return binding.Placeholder
	}
	return string(m)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
