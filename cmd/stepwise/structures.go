package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/stepwise/pkg/model"
)

var structureDescription string

func init() {
	structuresCmd.AddCommand(structuresListCmd, structuresShowCmd, structuresCreateCmd, structuresDeleteCmd,
		structuresAddFieldCmd, structuresRemoveFieldCmd)
	structuresListCmd.Flags().IntVar(&listPage, "page", 0, "page to show, starting at 0")
	structuresCreateCmd.Flags().StringVarP(&structureDescription, "description", "d", "", "free text description")
	rootCmd.AddCommand(structuresCmd)
}

var structuresCmd = &cobra.Command{
	Use:     "structures",
	Aliases: []string{"structure", "st"},
	Short:   "Manage the typed field schemas used by step requests and responses",
}

var structuresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List structures",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		page, err := a.client.ListStructures(cmd.Context(), model.PageRequest{Page: listPage, Size: a.cfg.PageSize})
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Rows))
		for _, s := range page.Rows {
			rows = append(rows, []string{s.Name, strconv.Itoa(s.FieldsAmount), s.UpdateDate.Local().Format(dateLayout), s.ID})
		}
		printTable([]string{"Name", "Fields", "Updated", "ID"}, rows)
		fmt.Println(dimStyle.Render(fmt.Sprintf("page %d · %d total", page.Pagination.Page, page.Total)))
		return nil
	},
}

var structuresShowCmd = &cobra.Command{
	Use:   "show STRUCTURE",
	Short: "Show the fields of a structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := findStructure(cmd.Context(), a.client, args[0])
		if err != nil {
			return err
		}
		st, err := a.client.GetStructure(cmd.Context(), info.ID)
		if err != nil {
			return err
		}
		printField("Structure", st.Name)
		if st.Description != "" {
			printField("Description", st.Description)
		}
		rows := make([][]string, 0, len(st.Fields))
		for _, f := range st.Fields {
			rows = append(rows, []string{f.Name, string(f.Type)})
		}
		printTable([]string{"Field", "Type"}, rows)
		return nil
	},
}

var structuresCreateCmd = &cobra.Command{
	Use:   "create NAME [FIELD:TYPE...]",
	Short: "Create a structure, optionally with fields",
	Example: `  stepwise structures create Credentials username:STRING password:STRING
  stepwise structures create Token token:string expires:number`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(args[1:])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		w := model.StructureWrite{Name: &args[0]}
		if structureDescription != "" {
			w.Description = &structureDescription
		}
		st, err := a.client.CreateStructure(ctx, w)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if _, err := a.client.CreateStructureField(ctx, st.ID, f); err != nil {
				return fmt.Errorf("field %s: %w", *f.Name, err)
			}
		}
		fmt.Printf("Created structure %s with %d fields\n", st.Name, len(fields))
		return nil
	},
}

var structuresDeleteCmd = &cobra.Command{
	Use:   "delete STRUCTURE",
	Short: "Delete a structure; steps using it lose their field bindings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := findStructure(cmd.Context(), a.client, args[0])
		if err != nil {
			return err
		}
		if err := a.client.DeleteStructure(cmd.Context(), info.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted structure %s\n", info.Name)
		return nil
	},
}

var structuresAddFieldCmd = &cobra.Command{
	Use:   "add-field STRUCTURE FIELD:TYPE...",
	Short: "Add fields to a structure",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(args[1:])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := findStructure(cmd.Context(), a.client, args[0])
		if err != nil {
			return err
		}
		for _, f := range fields {
			got, err := a.client.CreateStructureField(cmd.Context(), info.ID, f)
			if err != nil {
				return fmt.Errorf("field %s: %w", *f.Name, err)
			}
			fmt.Printf("Added %s %s\n", got.Name, got.Type)
		}
		return nil
	},
}

var structuresRemoveFieldCmd = &cobra.Command{
	Use:   "remove-field STRUCTURE FIELD",
	Short: "Remove a field from a structure",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := findStructure(cmd.Context(), a.client, args[0])
		if err != nil {
			return err
		}
		st, err := a.client.GetStructure(cmd.Context(), info.ID)
		if err != nil {
			return err
		}
		for _, f := range st.Fields {
			if f.Name == args[1] || f.ID == args[1] {
				if err := a.client.DeleteStructureField(cmd.Context(), f.ID); err != nil {
					return err
				}
				fmt.Printf("Removed %s from %s\n", f.Name, st.Name)
				return nil
			}
		}
		return fmt.Errorf("structure %s has no field %q", st.Name, args[1])
	},
}

// parseFields reads NAME:TYPE pairs. The type is case-insensitive.
func parseFields(args []string) ([]model.StructureFieldWrite, error) {
	out := make([]model.StructureFieldWrite, 0, len(args))
	for _, arg := range args {
		name, typ, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("invalid field %q, expected NAME:TYPE", arg)
		}
		t := model.DataType(strings.ToUpper(typ))
		if !t.Valid() {
			return nil, fmt.Errorf("invalid type %q for field %s, expected STRING, NUMBER or BOOLEAN", typ, name)
		}
		out = append(out, model.StructureFieldWrite{Name: &name, Type: &t})
	}
	return out, nil
}
