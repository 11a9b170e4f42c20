package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gradeflow/gradeflow/internal/store"
	"github.com/gradeflow/gradeflow/internal/template"
	"github.com/spf13/cobra"
)

func newTemplateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage stored criteria templates",
		Long: `Manage named criteria templates in the template store.

A batch file uses a stored template with exam.criteria_template when it
does not set exam.criteria itself. Templates may use {{.Vars.name}} and
the other prompt template fields.`,
	}

	cmd.AddCommand(newTemplateListCommand())
	cmd.AddCommand(newTemplateShowCommand())
	cmd.AddCommand(newTemplateSaveCommand())
	cmd.AddCommand(newTemplateDeleteCommand())

	return cmd
}

func newTemplateListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, closeStore, err := openTemplates(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			names, err := templates.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No templates stored.") //nolint:errcheck
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n) //nolint:errcheck
			}
			return nil
		},
	}
}

func newTemplateShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, closeStore, err := openTemplates(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			text, err := templates.Get(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("template %q not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text) //nolint:errcheck
			return nil
		},
	}
}

func newTemplateSaveCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Store a template from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if file == "" || file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}
			if err := template.Validate(string(data)); err != nil {
				return err
			}

			templates, closeStore, err := openTemplates(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := templates.Save(cmd.Context(), args[0], string(data)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved template %q\n", args[0]) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the template from this file (default: stdin)")

	return cmd
}

func newTemplateDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, closeStore, err := openTemplates(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := templates.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("template %q not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %q\n", args[0]) //nolint:errcheck
			return nil
		},
	}
}
