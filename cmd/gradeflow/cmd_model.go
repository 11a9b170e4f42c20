package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newModelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Show or set the preferred model",
		Long: `Show or set the preferred model. It is used when neither the batch
file nor --model names one.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the preferred model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, closeStore, err := openTemplates(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			model, err := templates.PreferredModel(cmd.Context())
			if err != nil {
				return err
			}
			if model == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "No preferred model set.") //nolint:errcheck
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), model) //nolint:errcheck
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <model>",
		Short: "Set the preferred model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := strings.TrimSpace(args[0])
			if model == "" {
				return errors.New("model must not be empty")
			}

			templates, closeStore, err := openTemplates(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := templates.SetPreferredModel(cmd.Context(), model); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preferred model set to %s\n", model) //nolint:errcheck
			return nil
		},
	})

	return cmd
}
