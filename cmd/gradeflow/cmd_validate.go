package main

import (
	"fmt"

	"github.com/gradeflow/gradeflow/internal/validation"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <batch.yaml>...",
		Short: "Check batch files against the schema",
		Long: `Check one or more batch files against the batch schema.

When a batch file names a students_from CSV, the roster is loaded as well
and students without solutions are reported. Roster problems are warnings
unless --strict is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				batchErrs, rosterErrs, err := validation.ValidateBatchFile(path)
				if err != nil {
					return err
				}

				if len(batchErrs) == 0 && len(rosterErrs) == 0 {
					fmt.Fprintf(out, "✓ %s\n", path) //nolint:errcheck
					continue
				}

				icon := "⚠"
				if len(batchErrs) > 0 || strict {
					icon = "✗"
					invalid++
				}
				fmt.Fprintf(out, "%s %s\n", icon, path) //nolint:errcheck
				for _, e := range batchErrs {
					fmt.Fprintf(out, "    %s\n", e) //nolint:errcheck
				}
				for _, e := range rosterErrs {
					fmt.Fprintf(out, "    roster: %s\n", e) //nolint:errcheck
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d batch file(s) invalid", invalid, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat roster problems as errors")

	return cmd
}
