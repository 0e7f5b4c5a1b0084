package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/blackcoderx/stepwise/pkg/model"
)

func ptr(s string) *string { return &s }

func sample() (model.Execution, []model.ExecutionStep) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	finish := start.Add(2 * time.Second)
	structure := "Token"
	steps := []model.ExecutionStep{
		{
			ID: "s1", Title: "Log in", Sequence: 1, Status: model.StepSuccess, ExecutionDate: &start,
			Request: model.ExecutionRequest{
				Method: model.MethodPost, ActualEndpoint: "/login",
				Fields: []model.ExecutionRequestField{{Name: "user", DataType: model.TypeString, Value: ptr("bob")}},
			},
			Response: model.ExecutionResponse{
				ExpectedHTTPStatus: 200, ActualHTTPStatus: 200, StructureName: &structure,
				Fields: []model.ExecutionResponseField{{
					Name: "token", AssertionMode: model.AssertionAny,
					ExpectedValueType: model.TypeString, ActualValueType: model.TypeString, ActualValue: ptr("abc"),
					AssertionStatus: model.AssertionSuccess,
				}},
			},
		},
		{
			ID: "s2", Title: "Profile", Sequence: 2, Status: model.StepFailed, ExecutionDate: &finish,
			Request: model.ExecutionRequest{Method: model.MethodGet, ActualEndpoint: "/me"},
			Response: model.ExecutionResponse{
				ExpectedHTTPStatus: 200, ActualHTTPStatus: 200,
				Fields: []model.ExecutionResponseField{{
					Name: "bio", AssertionMode: model.AssertionStrict,
					ExpectedValueType: model.TypeString, ExpectedValue: ptr(strings.Repeat("a", 50)),
					ActualValueType: model.TypeString, ActualValue: ptr(strings.Repeat("a", 49) + "b"),
					AssertionStatus: model.AssertionValueMismatch,
				}},
			},
		},
		{ID: "s3", Title: "Log out", Sequence: 3, Status: model.StepSkipped},
	}
	exec := model.Execution{
		ExecutionInfo: model.ExecutionInfo{
			ID: "e1", ScenarioName: "Login Flow", Status: model.ExecutionFailed,
			BaseURL: "http://localhost:3000", StartDate: start, FinishDate: &finish,
		},
	}
	for i := range steps {
		exec.Steps = append(exec.Steps, steps[i].Info())
	}
	return exec, steps
}

func TestValueDiff(t *testing.T) {
	tests := []struct {
		name             string
		expected, actual string
		wantDiff         bool
	}{
		{"equal", "abc", "abc", false},
		{"short values", "abc", "abd", false},
		{"long values", strings.Repeat("x", 60), strings.Repeat("x", 59) + "y", true},
		{"multiline", "a\nb", "a\nc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ValueDiff("bio", tt.expected, tt.actual)
			if !tt.wantDiff {
				assert.Empty(t, d)
				return
			}
			assert.Contains(t, d, "--- expected/bio")
			assert.Contains(t, d, "+++ actual/bio")
		})
	}
}

func TestMarkdown(t *testing.T) {
	exec, steps := sample()
	md := Markdown(exec, steps)

	assert.True(t, strings.HasPrefix(md, "# Login Flow\n"))
	assert.Contains(t, md, "**Status:** FAILED")
	assert.Contains(t, md, "| 1 | Log in | POST | `/login` | SUCCESS |")
	assert.Contains(t, md, "## 2. Profile (FAILED)")
	assert.Contains(t, md, "`POST /login`")
	assert.Contains(t, md, "Expected **200**, got **200** as **Token**")
	assert.Contains(t, md, "| user | STRING | `bob` |")
	assert.Contains(t, md, "| token | ANY | STRING - | STRING `abc` | SUCCESS |")
	assert.Contains(t, md, "```diff\n--- expected/bio")

	// Skipped steps carry no response section.
	skipped := md[strings.Index(md, "## 3. Log out"):]
	assert.NotContains(t, skipped, "Expected **")
}

func TestRender(t *testing.T) {
	out, err := Render("# Title\n\nbody", 40)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "body")
}

func TestWriteXLSX(t *testing.T) {
	exec, steps := sample()
	path := filepath.Join(t.TempDir(), "reports", "run.xlsx")
	require.NoError(t, WriteXLSX(path, exec, steps))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{stepsSheet, fieldsSheet}, f.GetSheetList())

	rows, err := f.GetRows(stepsSheet)
	require.NoError(t, err)
	assert.Equal(t, stepHeaders, rows[0])
	assert.Equal(t, "Log in", rows[1][1])
	assert.Equal(t, "FAILED", rows[2][6])
	summary, err := f.GetCellValue(stepsSheet, fmt.Sprintf("B%d", len(steps)+3))
	require.NoError(t, err)
	assert.Equal(t, "Login Flow", summary)

	fields, err := f.GetRows(fieldsSheet)
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "token", fields[1][2])
	assert.Equal(t, "VALUE_MISMATCH", fields[2][8])

	// Failed verdict rows carry the highlight style, passing rows don't.
	failed, err := f.GetCellStyle(fieldsSheet, "C3")
	require.NoError(t, err)
	passed, err := f.GetCellStyle(fieldsSheet, "C2")
	require.NoError(t, err)
	assert.NotEqual(t, failed, passed)
}
