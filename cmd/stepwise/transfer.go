package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/stepwise/pkg/storage"
	"github.com/blackcoderx/stepwise/pkg/transfer"
)

var exportPath string

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "file to write (default: .stepwise/scenarios/<name>.yaml)")
	envCmd.AddCommand(envListCmd, envShowCmd)
	rootCmd.AddCommand(exportCmd, importCmd, envCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export SCENARIO",
	Short: "Save a scenario with its parameters and structures to a YAML file",
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
		b, err := transfer.Export(cmd.Context(), a.client, info.ID)
		if err != nil {
			return err
		}
		path := exportPath
		if path == "" {
			path = storage.BundlePath(a.root, b.Scenario)
		}
		if err := storage.SaveBundle(b, path); err != nil {
			return err
		}
		fmt.Printf("Exported %q (%d steps) to %s\n", b.Scenario, len(b.Steps), path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [FILE]",
	Short: "Create a scenario on the backend from a YAML file",
	Long: `Create a scenario on the backend from a YAML file. FILE is a path or the
name of a file in .stepwise/scenarios. Without FILE the available files are
listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 0 {
			names, err := storage.ListBundles(a.root)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(names))
			for _, n := range names {
				rows = append(rows, []string{n})
			}
			printTable([]string{"Scenario file"}, rows)
			return nil
		}

		b, err := storage.LoadBundle(bundleArg(a.root, args[0]))
		if err != nil {
			return err
		}
		sc, err := transfer.NewImporter(a.client, a.logger).Import(cmd.Context(), b)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %q with %d steps (%s)\n", sc.Name, len(sc.Steps), sc.ID)
		return nil
	},
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect environments",
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := storage.ListEnvironments(a.root)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(names))
		for _, n := range names {
			active := ""
			if n == a.env.Name {
				active = "*"
			}
			rows = append(rows, []string{active, n})
		}
		printTable([]string{"", "Environment"}, rows)
		return nil
	},
}

var envShowCmd = &cobra.Command{
	Use:   "show [NAME]",
	Short: "Show an environment with secrets masked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		env := a.env
		if len(args) == 1 {
			if env, err = storage.LoadEnvironment(storage.EnvironmentPath(a.root, args[0])); err != nil {
				return err
			}
		}
		printField("Environment", env.Name)
		printField("Backend", env.Backend)
		printField("Target", env.Target)
		if env.Auth.Flow != "" {
			printField("Auth", env.Auth.Flow)
		}
		keys := make([]string, 0, len(env.Variables))
		for k := range env.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, mask(k, env.Variables[k])})
		}
		printTable([]string{"Variable", "Value"}, rows)
		return nil
	},
}

// mask hides values of variables whose name suggests a secret.
func mask(name, value string) string {
	lower := strings.ToLower(name)
	for _, s := range []string{"secret", "password", "token", "key"} {
		if strings.Contains(lower, s) {
			return strings.Repeat("*", min(len(value), 8))
		}
	}
	return value
}
