package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/blackcoderx/stepwise/pkg/model"
)

const (
	stepsSheet  = "Steps"
	fieldsSheet = "Fields"

	patternType  = "pattern"
	patternValue = 1
	failColor    = "FFC7CE"
	skipColor    = "EDEDED"
	headerColor  = "D9E1F2"
	columnWidth  = 18
)

var (
	stepHeaders  = []string{"Sequence", "Step", "Method", "Endpoint", "Expected status", "Actual status", "Status", "Executed", "Error"}
	fieldHeaders = []string{"Sequence", "Step", "Field", "Mode", "Expected type", "Expected", "Actual type", "Actual", "Result"}
)

// WriteXLSX writes an execution to an Excel workbook: one row per step on
// the Steps sheet and one row per field verdict on the Fields sheet.
func WriteXLSX(path string, exec model.Execution, steps []model.ExecutionStep) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", stepsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	writeHeader(f, stepsSheet, stepHeaders, styles.header)
	writeHeader(f, fieldsSheet, fieldHeaders, styles.header)

	fieldRow := 2
	for i, s := range steps {
		row := []any{
			s.Sequence, s.Title, string(s.Request.Method), s.Request.ActualEndpoint,
			s.Response.ExpectedHTTPStatus, s.Response.ActualHTTPStatus, string(s.Status),
			formatTime(s.ExecutionDate), s.Error,
		}
		style := 0
		switch s.Status {
		case model.StepFailed:
			style = styles.fail
		case model.StepSkipped:
			style = styles.skip
		}
		if err := writeRow(f, stepsSheet, i+2, row, style); err != nil {
			return err
		}

		for _, fld := range s.Response.Fields {
			row := []any{
				s.Sequence, s.Title, fld.Name, string(fld.AssertionMode),
				string(fld.ExpectedValueType), deref(fld.ExpectedValue),
				string(fld.ActualValueType), deref(fld.ActualValue), string(fld.AssertionStatus),
			}
			style := 0
			if fld.AssertionStatus != model.AssertionSuccess && fld.AssertionStatus != model.AssertionUnknownField {
				style = styles.fail
			}
			if err := writeRow(f, fieldsSheet, fieldRow, row, style); err != nil {
				return err
			}
			fieldRow++
		}
	}

	summary := len(steps) + 3
	_ = f.SetCellValue(stepsSheet, fmt.Sprintf("A%d", summary), "Scenario")
	_ = f.SetCellValue(stepsSheet, fmt.Sprintf("B%d", summary), exec.ScenarioName)
	_ = f.SetCellValue(stepsSheet, fmt.Sprintf("A%d", summary+1), "Status")
	_ = f.SetCellValue(stepsSheet, fmt.Sprintf("B%d", summary+1), string(exec.Status))
	_ = f.SetCellValue(stepsSheet, fmt.Sprintf("A%d", summary+2), "Base URL")
	_ = f.SetCellValue(stepsSheet, fmt.Sprintf("B%d", summary+2), exec.BaseURL)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

type sheetStyles struct {
	header, fail, skip int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	fill := func(color string) *excelize.Style {
		return &excelize.Style{Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{color}}}
	}
	var s sheetStyles
	var err error
	header := fill(headerColor)
	header.Font = &excelize.Font{Bold: true}
	if s.header, err = f.NewStyle(header); err != nil {
		return s, fmt.Errorf("failed to create style: %w", err)
	}
	if s.fail, err = f.NewStyle(fill(failColor)); err != nil {
		return s, fmt.Errorf("failed to create style: %w", err)
	}
	if s.skip, err = f.NewStyle(fill(skipColor)); err != nil {
		return s, fmt.Errorf("failed to create style: %w", err)
	}
	return s, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheet, "A", last, columnWidth)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetCellStyle(sheet, "A1", last+"1", style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any, style int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write %s: %w", cell, err)
		}
	}
	if style == 0 {
		return nil
	}
	last, _ := excelize.CoordinatesToCellName(len(values), row)
	first, _ := excelize.CoordinatesToCellName(1, row)
	return f.SetCellStyle(sheet, first, last, style)
}
