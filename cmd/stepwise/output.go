package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/model"
)

const dateLayout = "2006-01-02 15:04"

// listPageSize is used when a command walks a whole list to find a row.
const listPageSize = 100

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failStyle   = cellStyle.Foreground(lipgloss.Color("#f7768e"))
	passStyle   = cellStyle.Foreground(lipgloss.Color("#9ece6a"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
)

// printTable writes rows as a bordered table. A cell holding a status keyword
// is colored.
func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println(dimStyle.Render("(none)"))
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(rows) || col >= len(rows[row]) {
				return cellStyle
			}
			switch rows[row][col] {
			case string(model.ExecutionFailed), string(model.StepSkipped):
				return failStyle
			case string(model.ExecutionSuccess):
				return passStyle
			}
			return cellStyle
		})
	fmt.Println(t)
}

func printField(label, value string) {
	fmt.Printf("%s %s\n", headerStyle.Width(14).Render(label), value)
}

// findScenario resolves a scenario by ID or by name.
func findScenario(ctx context.Context, c *client.Client, ref string) (*model.ScenarioInfo, error) {
	for page := 0; ; page++ {
		p, err := c.ListScenarios(ctx, model.PageRequest{Page: page, Size: listPageSize})
		if err != nil {
			return nil, err
		}
		for i, s := range p.Rows {
			if s.ID == ref || s.Name == ref {
				return &p.Rows[i], nil
			}
		}
		if (page+1)*listPageSize >= p.Total || len(p.Rows) == 0 {
			return nil, fmt.Errorf("scenario %q not found", ref)
		}
	}
}

// findStructure resolves a structure by ID or by name.
func findStructure(ctx context.Context, c *client.Client, ref string) (*model.StructureInfo, error) {
	for page := 0; ; page++ {
		p, err := c.ListStructures(ctx, model.PageRequest{Page: page, Size: listPageSize})
		if err != nil {
			return nil, err
		}
		for i, s := range p.Rows {
			if s.ID == ref || s.Name == ref {
				return &p.Rows[i], nil
			}
		}
		if (page+1)*listPageSize >= p.Total || len(p.Rows) == 0 {
			return nil, fmt.Errorf("structure %q not found", ref)
		}
	}
}

// findStep resolves a step of a scenario by ID, title or sequence number.
func findStep(s *model.Scenario, ref string) (*model.StepInfo, error) {
	for i, st := range s.Steps {
		if st.ID == ref || st.Title == ref || fmt.Sprint(st.Sequence) == ref {
			return &s.Steps[i], nil
		}
	}
	return nil, fmt.Errorf("step %q not found in scenario %q", ref, s.Name)
}

// findParameter resolves a parameter by ID or name.
func findParameter(params []model.Parameter, ref string) (*model.Parameter, bool) {
	for i, p := range params {
		if p.ID == ref || p.Name == ref {
			return &params[i], true
		}
	}
	return nil, false
}

func usages(p model.Parameter) string {
	if len(p.Usages) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(p.Usages))
	for _, u := range p.Usages {
		parts = append(parts, fmt.Sprintf("%s (%s)", u.Title, strings.ToLower(string(u.Place))))
	}
	return strings.Join(parts, ", ")
}

// describe renders err for the terminal. Backend rejections are shown with
// the field they concern.
func describe(err error) string {
	var ve *client.ValidationError
	if errors.As(err, &ve) {
		if ve.Field != "" {
			return ve.Field + ": " + ve.Message()
		}
		return ve.Message()
	}
	var re *client.ReferentialError
	if errors.As(err, &re) {
		return fmt.Sprintf("%s: %s", re.Violation.Field, re.Violation.Code.Message())
	}
	var ne *client.NetworkError
	if errors.As(err, &ne) {
		return "backend unreachable: " + ne.Error()
	}
	return err.Error()
}
