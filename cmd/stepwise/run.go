package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/report"
	"github.com/blackcoderx/stepwise/pkg/runner"
	"github.com/blackcoderx/stepwise/pkg/storage"
	"github.com/blackcoderx/stepwise/pkg/workspace"
)

var (
	runBaseURL  string
	runWait     bool
	runTimeout  time.Duration
	showFailed  bool
	showXLSX    string
	showWidth   int
	errRunFails = errors.New("scenario failed")

	loadOpts runner.LoadOptions
)

func init() {
	for _, c := range []*cobra.Command{runCmd, previewCmd, loadCmd} {
		c.Flags().StringVar(&runBaseURL, "base-url", "", "base URL the steps run against (default: environment target)")
		c.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "give up waiting after this long")
	}
	runCmd.Flags().BoolVar(&runWait, "wait", true, "wait for the execution to finish and print its report")

	executionsCmd.AddCommand(executionsListCmd, executionsShowCmd)
	executionsListCmd.Flags().IntVar(&listPage, "page", 0, "page to show, starting at 0")
	executionsShowCmd.Flags().BoolVar(&showFailed, "failed", false, "only detail failed and skipped steps")
	executionsShowCmd.Flags().StringVar(&showXLSX, "xlsx", "", "also write the report as a spreadsheet to this path (\"-\" for the reports folder)")
	executionsShowCmd.Flags().IntVar(&showWidth, "width", 100, "word wrap width")

	loadCmd.Flags().IntVarP(&loadOpts.Iterations, "iterations", "n", 0, "total scenario runs")
	loadCmd.Flags().DurationVarP(&loadOpts.Duration, "duration", "d", 0, "stop after this long")
	loadCmd.Flags().IntVarP(&loadOpts.Concurrency, "concurrency", "c", 1, "parallel workers")
	loadCmd.Flags().Float64Var(&loadOpts.PerSecond, "rps", 0, "scenario runs started per second, 0 for no pacing")
	loadCmd.Flags().DurationVar(&loadOpts.RampUp, "ramp-up", 0, "spread worker start over this period")

	rootCmd.AddCommand(runCmd, previewCmd, loadCmd, executionsCmd)
}

var runCmd = &cobra.Command{
	Use:   "run SCENARIO",
	Short: "Execute a scenario on the backend",
	Long: `Execute a scenario on the backend against a base URL. With --wait (the
default) the command waits for the result, prints the report and exits
non-zero when the execution failed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		baseURL := runBaseURL
		if baseURL == "" {
			baseURL = a.env.Target
		}
		info, err := findScenario(ctx, a.client, args[0])
		if err != nil {
			return err
		}
		started, err := a.client.StartExecution(ctx, info.ID, baseURL)
		if err != nil {
			return err
		}
		fmt.Printf("Started %q against %s (%s)\n", info.Name, baseURL, started.ID)
		if !runWait {
			return nil
		}

		waitCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		exec, err := a.client.WaitExecution(waitCtx, started.ID, time.Second)
		if err != nil {
			return fmt.Errorf("waiting for execution %s: %w", started.ID, err)
		}
		steps, err := executionSteps(ctx, a.client, exec, true)
		if err != nil {
			return err
		}
		printReport(report.Markdown(*exec, steps), showWidth)
		if exec.Status == model.ExecutionFailed {
			return errRunFails
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Run a scenario file locally without the backend",
	Long: `Run a scenario file straight from disk against a base URL. Nothing is
recorded on the backend; the report is printed and the exit code tells whether
every step passed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := storage.LoadBundle(bundleArg(a.root, args[0]))
		if err != nil {
			return err
		}
		plan, err := runner.PlanFromBundle(b)
		if err != nil {
			return err
		}
		baseURL := runBaseURL
		if baseURL == "" {
			baseURL = a.env.Target
		}

		r := runner.New(runner.Options{
			Client: &http.Client{Timeout: client.DefaultTimeout},
			Logger: a.logger,
			Observer: func(s model.ExecutionStep) {
				fmt.Printf("%3d  %-8s %s\n", s.Sequence, s.Status, s.Title)
			},
		})
		ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
		defer cancel()
		res, err := r.Run(ctx, plan, baseURL)
		if err != nil {
			return err
		}

		var shown []model.ExecutionStep
		for _, s := range res.Steps {
			if s.Status != model.StepSuccess {
				shown = append(shown, s)
			}
		}
		fmt.Println()
		printReport(report.Markdown(res.Execution, shown), showWidth)
		if res.Execution.Status == model.ExecutionFailed {
			return errRunFails
		}
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: "Run a scenario file repeatedly from concurrent workers",
	Long: `Run a scenario file repeatedly against a base URL and report pass rate and
per-run latency percentiles. Nothing is recorded on the backend.`,
	Example: `  stepwise load login-flow -n 200 -c 10
  stepwise load login-flow -d 30s -c 5 --rps 20 --ramp-up 5s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := storage.LoadBundle(bundleArg(a.root, args[0]))
		if err != nil {
			return err
		}
		plan, err := runner.PlanFromBundle(b)
		if err != nil {
			return err
		}
		baseURL := runBaseURL
		if baseURL == "" {
			baseURL = a.env.Target
		}

		r := runner.New(runner.Options{
			Client: &http.Client{Timeout: client.DefaultTimeout},
			Logger: a.logger,
		})
		ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
		defer cancel()
		res, err := r.Load(ctx, plan, baseURL, loadOpts)
		if err != nil {
			return err
		}

		printField("Scenario", plan.ScenarioName)
		printField("Duration", res.Duration.Round(time.Millisecond).String())
		printField("Runs", fmt.Sprintf("%d (%d passed, %d failed, %.1f%% errors)", res.Iterations, res.Passed, res.Failed, res.ErrorRate()))
		printField("Throughput", fmt.Sprintf("%.2f runs/s", res.Throughput))
		fmt.Println()
		printTable([]string{"Min", "Avg", "P50", "P95", "P99", "Max"}, [][]string{{
			res.MinLatency.Round(time.Microsecond).String(),
			res.AvgLatency.Round(time.Microsecond).String(),
			res.LatencyP50.Round(time.Microsecond).String(),
			res.LatencyP95.Round(time.Microsecond).String(),
			res.LatencyP99.Round(time.Microsecond).String(),
			res.MaxLatency.Round(time.Microsecond).String(),
		}})
		if len(res.FailedSteps) > 0 {
			rows := make([][]string, 0, len(res.FailedSteps))
			for title, n := range res.FailedSteps {
				rows = append(rows, []string{title, strconv.Itoa(n)})
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
			fmt.Println()
			printTable([]string{"Failed at step", "Runs"}, rows)
			return errRunFails
		}
		return nil
	},
}

var executionsCmd = &cobra.Command{
	Use:     "executions",
	Aliases: []string{"execution", "runs"},
	Short:   "Inspect recorded executions",
}

var executionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List executions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		page, err := a.client.ListExecutions(cmd.Context(), model.PageRequest{Page: listPage, Size: a.cfg.PageSize})
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Rows))
		for _, e := range page.Rows {
			finished := "-"
			if e.FinishDate != nil {
				finished = e.FinishDate.Local().Format(dateLayout)
			}
			rows = append(rows, []string{e.ScenarioName, string(e.Status), e.BaseURL, e.StartDate.Local().Format(dateLayout), finished, e.ID})
		}
		printTable([]string{"Scenario", "Status", "Base URL", "Started", "Finished", "ID"}, rows)
		fmt.Println(dimStyle.Render(fmt.Sprintf("page %d · %d total", page.Pagination.Page, page.Total)))
		return nil
	},
}

var executionsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print the report of an execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		exec, err := a.client.GetExecution(ctx, args[0])
		if err != nil {
			return err
		}
		steps, err := executionSteps(ctx, a.client, exec, showFailed)
		if err != nil {
			return err
		}
		printReport(report.Markdown(*exec, steps), showWidth)

		if showXLSX == "" {
			return nil
		}
		all := steps
		if showFailed {
			if all, err = executionSteps(ctx, a.client, exec, false); err != nil {
				return err
			}
		}
		path := showXLSX
		if path == "-" {
			path = filepath.Join(workspace.ReportsDir(a.root), fmt.Sprintf("%s.xlsx", exec.ID))
		}
		if err := report.WriteXLSX(path, *exec, all); err != nil {
			return err
		}
		fmt.Println("Report written to", path)
		return nil
	},
}

// executionSteps fetches the step records of exec. With onlyFailed, steps
// that passed are left out.
func executionSteps(ctx context.Context, c *client.Client, exec *model.Execution, onlyFailed bool) ([]model.ExecutionStep, error) {
	steps := make([]model.ExecutionStep, 0, len(exec.Steps))
	for _, info := range exec.Steps {
		if onlyFailed && info.Status == model.StepSuccess {
			continue
		}
		st, err := c.GetExecutionStep(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", strconv.Itoa(info.Sequence), err)
		}
		steps = append(steps, *st)
	}
	return steps, nil
}

func printReport(md string, width int) {
	out, err := report.Render(md, width)
	if err != nil {
		fmt.Print(md) // Fallback to raw markdown
		return
	}
	fmt.Print(out)
}

// bundleArg accepts a path or the name of a file in the workspace's scenarios
// folder.
func bundleArg(root, arg string) string {
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	return filepath.Join(storage.GetScenariosDir(root), arg+".yaml")
}
