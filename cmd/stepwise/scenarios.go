package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

func init() {
	scenariosCmd.AddCommand(scenariosListCmd, scenariosShowCmd, scenariosCreateCmd, scenariosRenameCmd, scenariosDeleteCmd)
	scenariosListCmd.Flags().IntVar(&listPage, "page", 0, "page to show, starting at 0")

	parametersCmd.AddCommand(parametersListCmd, parametersSetCmd, parametersDeleteCmd)

	stepsCmd.AddCommand(stepsShowCmd, stepsAddCmd, stepsRetitleCmd, stepsMoveCmd, stepsDeleteCmd, stepsRequestCmd, stepsResponseCmd, stepsBindCmd)
	stepsAddCmd.Flags().IntVar(&stepSequence, "at", 0, "position to insert the step at (default: append)")
	stepsRequestCmd.Flags().StringVar(&stepMethod, "method", "", "HTTP method")
	stepsRequestCmd.Flags().StringVar(&stepEndpoint, "endpoint", "", "endpoint relative to the base URL")
	stepsRequestCmd.Flags().StringVar(&stepStructure, "structure", "", "request body structure, \"-\" to remove it")
	stepsResponseCmd.Flags().IntVar(&stepStatus, "status", 0, "expected HTTP status")
	stepsResponseCmd.Flags().StringVar(&stepStructure, "structure", "", "response body structure, \"-\" to remove it")

	f := stepsBindCmd.Flags()
	f.BoolVar(&bindResponse, "response", false, "bind a response field instead of a request field")
	f.StringVar(&bindType, "type", "", "NULL, STRICT, PARAMETER, RANDOM (request) or ANY (response)")
	f.StringVar(&bindValue, "value", "", "literal for STRICT")
	f.StringVar(&bindParameter, "parameter", "", "parameter name for PARAMETER")
	f.StringVar(&bindRange, "range", "", "FROM:TO bounds for RANDOM")
	f.StringVar(&bindSave, "save", "", "parameter name the observed response value is saved to")

	rootCmd.AddCommand(scenariosCmd, parametersCmd, stepsCmd)
}

var (
	listPage      int
	stepSequence  int
	stepMethod    string
	stepEndpoint  string
	stepStructure string
	stepStatus    int
	bindResponse  bool
	bindType      string
	bindValue     string
	bindParameter string
	bindRange     string
	bindSave      string
)

var scenariosCmd = &cobra.Command{
	Use:     "scenarios",
	Aliases: []string{"scenario", "sc"},
	Short:   "Manage test scenarios",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		page, err := a.client.ListScenarios(cmd.Context(), model.PageRequest{Page: listPage, Size: a.cfg.PageSize})
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Rows))
		for _, s := range page.Rows {
			rows = append(rows, []string{s.Name, strconv.Itoa(s.StepsAmount), strconv.Itoa(s.TestExecutionsAmount), s.UpdateDate.Local().Format(dateLayout), s.ID})
		}
		printTable([]string{"Name", "Steps", "Runs", "Updated", "ID"}, rows)
		fmt.Println(dimStyle.Render(fmt.Sprintf("page %d · %d total", page.Pagination.Page, page.Total)))
		return nil
	},
}

var scenariosShowCmd = &cobra.Command{
	Use:   "show SCENARIO",
	Short: "Show the steps and parameters of a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		info, err := findScenario(ctx, a.client, args[0])
		if err != nil {
			return err
		}
		sc, err := a.client.GetScenario(ctx, info.ID)
		if err != nil {
			return err
		}
		params, err := a.client.ListParameters(ctx, sc.ID)
		if err != nil {
			return err
		}

		printField("Scenario", sc.Name)
		printField("ID", sc.ID)
		fmt.Println()
		steps := make([][]string, 0, len(sc.Steps))
		for _, st := range sc.Steps {
			steps = append(steps, []string{strconv.Itoa(st.Sequence), st.Title, string(st.Method), st.Endpoint})
		}
		printTable([]string{"#", "Step", "Method", "Endpoint"}, steps)
		fmt.Println()
		rows := make([][]string, 0, len(params))
		for _, p := range params {
			rows = append(rows, []string{p.Name, p.InitialValue, usages(p)})
		}
		printTable([]string{"Parameter", "Initial value", "Used by"}, rows)
		return nil
	},
}

var scenariosCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		sc, err := a.client.CreateScenario(cmd.Context(), model.ScenarioWrite{Name: &args[0]})
		if err != nil {
			return err
		}
		fmt.Printf("Created scenario %q (%s)\n", sc.Name, sc.ID)
		return nil
	},
}

var scenariosRenameCmd = &cobra.Command{
	Use:   "rename SCENARIO NAME",
	Short: "Rename a scenario",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := findScenario(cmd.Context(), a.client, args[0])
		if err != nil {
			return err
		}
		sc, err := a.client.UpdateScenario(cmd.Context(), info.ID, model.ScenarioWrite{Name: &args[1]})
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %q to %q\n", info.Name, sc.Name)
		return nil
	},
}

var scenariosDeleteCmd = &cobra.Command{
	Use:   "delete SCENARIO",
	Short: "Delete a scenario with its steps and parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := findScenario(cmd.Context(), a.client, args[0])
		if err != nil {
			return err
		}
		if err := a.client.DeleteScenario(cmd.Context(), info.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted scenario %q\n", info.Name)
		return nil
	},
}

var parametersCmd = &cobra.Command{
	Use:     "parameters",
	Aliases: []string{"params"},
	Short:   "Manage scenario parameters",
}

var parametersListCmd = &cobra.Command{
	Use:   "list SCENARIO",
	Short: "List the parameters of a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := findScenario(cmd.Context(), a.client, args[0])
		if err != nil {
			return err
		}
		params, err := a.client.ListParameters(cmd.Context(), info.ID)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(params))
		for _, p := range params {
			rows = append(rows, []string{p.Name, p.InitialValue, usages(p)})
		}
		printTable([]string{"Parameter", "Initial value", "Used by"}, rows)
		return nil
	},
}

var parametersSetCmd = &cobra.Command{
	Use:   "set SCENARIO NAME VALUE",
	Short: "Create a parameter or change its initial value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		info, err := findScenario(ctx, a.client, args[0])
		if err != nil {
			return err
		}
		params, err := a.client.ListParameters(ctx, info.ID)
		if err != nil {
			return err
		}
		w := model.ParameterWrite{Name: &args[1], InitialValue: &args[2]}
		if p, ok := findParameter(params, args[1]); ok {
			if _, err := a.client.UpdateParameter(ctx, p.ID, w); err != nil {
				return err
			}
			fmt.Printf("Updated parameter %s\n", args[1])
			return nil
		}
		if _, err := a.client.CreateParameter(ctx, info.ID, w); err != nil {
			return err
		}
		fmt.Printf("Created parameter %s\n", args[1])
		return nil
	},
}

var parametersDeleteCmd = &cobra.Command{
	Use:   "delete SCENARIO NAME",
	Short: "Delete a parameter no step uses",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		info, err := findScenario(ctx, a.client, args[0])
		if err != nil {
			return err
		}
		params, err := a.client.ListParameters(ctx, info.ID)
		if err != nil {
			return err
		}
		p, ok := findParameter(params, args[1])
		if !ok {
			return fmt.Errorf("parameter %q not found in scenario %q", args[1], info.Name)
		}
		if len(p.Usages) > 0 {
			return fmt.Errorf("parameter %s is used by %s", p.Name, usages(*p))
		}
		if err := a.client.DeleteParameter(ctx, p.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted parameter %s\n", p.Name)
		return nil
	},
}

var stepsCmd = &cobra.Command{
	Use:     "steps",
	Aliases: []string{"step"},
	Short:   "Manage the steps of a scenario",
	Long: `Manage the steps of a scenario. A STEP argument is a step title, its
sequence number or its ID.`,
}

var stepsShowCmd = &cobra.Command{
	Use:   "show SCENARIO STEP",
	Short: "Show a step's request bindings and response assertions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		step, params, err := loadStep(cmd, a, args[0], args[1])
		if err != nil {
			return err
		}

		printField("Step", fmt.Sprintf("%d. %s", step.Sequence, step.Title))
		printField("Request", fmt.Sprintf("%s %s", step.Request.Method, step.Request.Endpoint))
		if step.Request.Structure != nil {
			printField("Body", step.Request.Structure.Name)
			rows := make([][]string, 0, len(step.Request.Fields))
			for _, f := range step.Request.Fields {
				vt := model.ValueNull
				if f.Value != nil {
					vt = f.Value.ValueType()
				}
				rows = append(rows, []string{f.Name, string(f.Type), string(vt), binding.DescribeRequest(f.Value, params)})
			}
			printTable([]string{"Field", "Type", "Value type", "Value"}, rows)
		}
		printField("Expect", strconv.Itoa(step.Response.HTTPStatus))
		if step.Response.Structure != nil {
			printField("Body", step.Response.Structure.Name)
			rows := make([][]string, 0, len(step.Response.Fields))
			for _, f := range step.Response.Fields {
				mode := model.AssertionAny
				if f.Assertion != nil {
					mode = f.Assertion.Mode()
				}
				rows = append(rows, []string{f.Name, string(f.Type), string(mode),
					binding.DescribeResponse(f.Assertion, params), binding.DescribeCapture(f, params)})
			}
			printTable([]string{"Field", "Type", "Check", "Expected", "Save to"}, rows)
		}
		return nil
	},
}

var stepsAddCmd = &cobra.Command{
	Use:   "add SCENARIO TITLE",
	Short: "Add a step to a scenario",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := findScenario(cmd.Context(), a.client, args[0])
		if err != nil {
			return err
		}
		w := model.StepWrite{Title: &args[1]}
		if stepSequence > 0 {
			w.Sequence = &stepSequence
		}
		st, err := a.client.CreateStep(cmd.Context(), info.ID, w)
		if err != nil {
			return err
		}
		fmt.Printf("Added step %d. %s\n", st.Sequence, st.Title)
		return nil
	},
}

var stepsRetitleCmd = &cobra.Command{
	Use:   "retitle SCENARIO STEP TITLE",
	Short: "Change a step's title",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := stepInfo(cmd, a, args[0], args[1])
		if err != nil {
			return err
		}
		st, err := a.client.UpdateStep(cmd.Context(), info.ID, model.StepWrite{Title: &args[2]})
		if err != nil {
			return err
		}
		fmt.Printf("Step %d is now %q\n", st.Sequence, st.Title)
		return nil
	},
}

var stepsMoveCmd = &cobra.Command{
	Use:   "move SCENARIO STEP SEQUENCE",
	Short: "Move a step to another position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		to, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid sequence %q", args[2])
		}
		info, err := stepInfo(cmd, a, args[0], args[1])
		if err != nil {
			return err
		}
		st, err := a.client.MoveStep(cmd.Context(), info.ID, to)
		if err != nil {
			return err
		}
		fmt.Printf("Moved %q from %d to %d\n", st.Title, info.Sequence, st.Sequence)
		return nil
	},
}

var stepsDeleteCmd = &cobra.Command{
	Use:   "delete SCENARIO STEP",
	Short: "Delete a step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := stepInfo(cmd, a, args[0], args[1])
		if err != nil {
			return err
		}
		if err := a.client.DeleteStep(cmd.Context(), info.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted step %q\n", info.Title)
		return nil
	},
}

var stepsRequestCmd = &cobra.Command{
	Use:   "request SCENARIO STEP",
	Short: "Set a step's method, endpoint or request structure",
	Long: `Set a step's method, endpoint or request structure. Changing the
structure replaces every request field binding.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		info, err := stepInfo(cmd, a, args[0], args[1])
		if err != nil {
			return err
		}
		var w model.RequestWrite
		if cmd.Flags().Changed("method") {
			m := model.HTTPMethod(strings.ToUpper(stepMethod))
			w.Method = &m
		}
		if cmd.Flags().Changed("endpoint") {
			w.Endpoint = &stepEndpoint
		}
		if cmd.Flags().Changed("structure") {
			if w.StructureID, w.ClearStructure, err = structureChoice(cmd, a); err != nil {
				return err
			}
		}
		req, err := a.client.UpdateStepRequest(ctx, info.ID, w)
		if err != nil {
			return err
		}
		fmt.Printf("Request of %q: %s %s with %d fields\n", info.Title, req.Method, req.Endpoint, len(req.Fields))
		return nil
	},
}

var stepsResponseCmd = &cobra.Command{
	Use:   "response SCENARIO STEP",
	Short: "Set a step's expected status or response structure",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		info, err := stepInfo(cmd, a, args[0], args[1])
		if err != nil {
			return err
		}
		var w model.ResponseWrite
		if cmd.Flags().Changed("status") {
			w.HTTPStatus = &stepStatus
		}
		if cmd.Flags().Changed("structure") {
			if w.StructureID, w.ClearStructure, err = structureChoice(cmd, a); err != nil {
				return err
			}
		}
		resp, err := a.client.UpdateStepResponse(ctx, info.ID, w)
		if err != nil {
			return err
		}
		fmt.Printf("Response of %q: expect %d with %d fields\n", info.Title, resp.HTTPStatus, len(resp.Fields))
		return nil
	},
}

var stepsBindCmd = &cobra.Command{
	Use:   "bind SCENARIO STEP FIELD",
	Short: "Bind a request field or set a response field's check",
	Example: `  stepwise steps bind login "Sign in" username --type STRICT --value alice
  stepwise steps bind login "Sign in" age --type RANDOM --range 18:99
  stepwise steps bind login "Sign in" token --response --type ANY --save token`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		step, params, err := loadStep(cmd, a, args[0], args[1])
		if err != nil {
			return err
		}
		paramID := func(name string) (*string, error) {
			if name == "" {
				return nil, nil
			}
			for _, p := range params.List() {
				if p.Name == name || p.ID == name {
					id := p.ID
					return &id, nil
				}
			}
			return nil, fmt.Errorf("parameter %q not found", name)
		}

		if bindResponse {
			for _, f := range step.Response.Fields {
				if f.Name != args[2] {
					continue
				}
				u := model.ResponseUpdateOf(f.Assertion, f.Capture)
				if bindType != "" {
					u = binding.SwitchResponseMode(u, model.AssertionMode(strings.ToUpper(bindType)))
				}
				if cmd.Flags().Changed("value") {
					u.StrictValue = &bindValue
				}
				if bindParameter != "" {
					if u.ParameterToReadID, err = paramID(bindParameter); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("save") {
					save, err := paramID(bindSave)
					if err != nil {
						return err
					}
					u = binding.SetCapture(u, save != nil, save)
				}
				got, err := a.client.UpdateResponseField(ctx, f, u, params)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s, saved to %s\n", got.Name,
					binding.DescribeResponse(got.Assertion, params), binding.DescribeCapture(*got, params))
				return nil
			}
			return fmt.Errorf("response of %q has no field %q", step.Title, args[2])
		}

		for _, f := range step.Request.Fields {
			if f.Name != args[2] {
				continue
			}
			u := model.RequestUpdateOf(f.Value)
			if bindType != "" {
				u = binding.SwitchRequestType(u, model.ValueType(strings.ToUpper(bindType)))
			}
			if cmd.Flags().Changed("value") {
				u.StrictValue = &bindValue
			}
			if bindParameter != "" {
				if u.ParameterID, err = paramID(bindParameter); err != nil {
					return err
				}
			}
			if bindRange != "" {
				r, err := parseRange(bindRange)
				if err != nil {
					return err
				}
				u.RandomValue = &r
			}
			got, err := a.client.UpdateRequestField(ctx, f, u, params)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", got.Name, binding.DescribeRequest(got.Value, params))
			return nil
		}
		return fmt.Errorf("request of %q has no field %q", step.Title, args[2])
	},
}

// stepInfo resolves a scenario and one of its steps.
func stepInfo(cmd *cobra.Command, a *app, scenarioRef, stepRef string) (*model.StepInfo, error) {
	info, err := findScenario(cmd.Context(), a.client, scenarioRef)
	if err != nil {
		return nil, err
	}
	sc, err := a.client.GetScenario(cmd.Context(), info.ID)
	if err != nil {
		return nil, err
	}
	return findStep(sc, stepRef)
}

// loadStep fetches a full step and the parameters of its scenario.
func loadStep(cmd *cobra.Command, a *app, scenarioRef, stepRef string) (*model.Step, binding.ParameterSet, error) {
	info, err := stepInfo(cmd, a, scenarioRef, stepRef)
	if err != nil {
		return nil, binding.ParameterSet{}, err
	}
	step, err := a.client.GetStep(cmd.Context(), info.ID)
	if err != nil {
		return nil, binding.ParameterSet{}, err
	}
	params, err := a.client.ListParameters(cmd.Context(), step.Scenario.ID)
	if err != nil {
		return nil, binding.ParameterSet{}, err
	}
	return step, binding.NewParameterSet(step.Scenario.ID, params), nil
}

// structureChoice reads --structure: "-" removes the structure, anything else
// names one.
func structureChoice(cmd *cobra.Command, a *app) (*string, bool, error) {
	if stepStructure == "-" || stepStructure == "" {
		return nil, true, nil
	}
	st, err := findStructure(cmd.Context(), a.client, stepStructure)
	if err != nil {
		return nil, false, err
	}
	return &st.ID, false, nil
}

func parseRange(s string) (model.Range, error) {
	from, to, ok := strings.Cut(s, ":")
	if !ok {
		return model.Range{}, fmt.Errorf("invalid range %q, expected FROM:TO", s)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(from), 64)
	if err != nil {
		return model.Range{}, fmt.Errorf("invalid range start %q", from)
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(to), 64)
	if err != nil {
		return model.Range{}, fmt.Errorf("invalid range end %q", to)
	}
	return model.Range{From: f, To: t}, nil
}
