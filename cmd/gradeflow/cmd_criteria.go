package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gradeflow/gradeflow/internal/config"
	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/gradeflow/gradeflow/internal/reporting"
	"github.com/gradeflow/gradeflow/internal/store"
	"github.com/spf13/cobra"
)

func newCriteriaCommand() *cobra.Command {
	var (
		generatorType string
		model         string
		htmlPath      string
		saveAs        string
	)

	cmd := &cobra.Command{
		Use:   "criteria <exam description>",
		Short: "Look up scoring criteria for an exam",
		Long: `Ask the generation service, with external search enabled, for the
scoring criteria of an exam. Sources consulted are listed under a
"References" heading.

The criteria are printed as markdown. Use --html to also write them as an
HTML page, and --save to store them as a named template that batch files
can reference with exam.criteria_template.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")

			spec := &models.BatchSpec{Exam: models.ExamSpec{Description: description}}
			cfg := config.NewRunConfig(spec,
				config.WithEnv(config.FromEnv()),
				config.WithGeneratorType(generatorType),
				config.WithModel(model),
			)

			var templates *store.Templates
			if saveAs != "" || cfg.Model() == "" {
				t, closeStore, err := openTemplates(cmd)
				if err != nil {
					return err
				}
				defer closeStore()
				templates = t
			}

			modelID := cfg.Model()
			if modelID == "" {
				if pref, err := templates.PreferredModel(cmd.Context()); err == nil {
					modelID = pref
				}
			}

			client, shutdown, err := newGradingClient(cfg)
			if err != nil {
				return err
			}
			defer shutdown()

			criteria, err := client.SearchCriteria(cmd.Context(), description, modelID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), criteria) //nolint:errcheck

			if htmlPath != "" {
				page, err := reporting.RenderMarkdownPage("Criteria: "+description, criteria, time.Now())
				if err != nil {
					return err
				}
				if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", htmlPath, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", htmlPath) //nolint:errcheck
			}

			if saveAs != "" {
				if err := templates.Save(cmd.Context(), saveAs, criteria); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved template %q\n", saveAs) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&generatorType, "generator", "", "Generator backend: gemini, openai, copilot, mock (default: gemini)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (default: the stored preference)")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Also write the criteria as an HTML page to this path")
	cmd.Flags().StringVar(&saveAs, "save", "", "Save the criteria as a named template")

	return cmd
}
