package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gradeflow/gradeflow/internal/genai"
	"github.com/gradeflow/gradeflow/internal/wizard"
	"github.com/spf13/cobra"
)

const defaultBatchFile = "batch.yaml"

func newInitCommand() *cobra.Command {
	var (
		interactive bool
		force       bool
		name        string
		description string
		generator   string
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a starter batch file",
		Long: `Create a starter batch.yaml in the given directory (default: the
current directory), along with an example roster CSV.

With --interactive, or when stdin is a terminal and no --description is
given, a short form asks for the exam details.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			if name == "" {
				name = filepath.Base(absOr(dir))
			}

			var answers *wizard.BatchAnswers
			if interactive || (description == "" && wizard.IsInteractive(cmd.InOrStdin())) {
				a, err := wizard.RunBatchWizard(cmd.InOrStdin(), cmd.OutOrStdout(), name)
				if err != nil {
					return err
				}
				answers = a
			} else {
				if err := wizard.ValidateName(name); err != nil {
					return err
				}
				if description == "" {
					description = "Describe the exam here"
				}
				answers = &wizard.BatchAnswers{
					Name:            name,
					ExamDescription: description,
					Materials:       []string{"materials/exam.pdf"},
					Generator:       genai.Type(generator),
					StudentsFrom:    "students.csv",
				}
			}

			return writeStarterFiles(cmd, dir, answers, force)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Ask for the exam details")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing batch file")
	cmd.Flags().StringVar(&name, "name", "", "Batch name (default: the directory name)")
	cmd.Flags().StringVar(&description, "description", "", "Exam description")
	cmd.Flags().StringVar(&generator, "generator", string(genai.TypeGemini), "Generator backend")

	return cmd
}

const exampleRoster = `id,name,email,solutions,instructions
s1,Example Student,student@example.com,solutions/s1.pdf,
`

func writeStarterFiles(cmd *cobra.Command, dir string, answers *wizard.BatchAnswers, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	batchPath := filepath.Join(dir, defaultBatchFile)
	if _, err := os.Stat(batchPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", batchPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	content, err := wizard.GenerateBatchYAML(answers, defaultBatchFile)
	if err != nil {
		return err
	}
	if err := os.WriteFile(batchPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", batchPath, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Created:")
	fmt.Fprintf(out, "  %s\n", batchPath)

	if answers.StudentsFrom != "" {
		rosterPath := filepath.Join(dir, answers.StudentsFrom)
		if _, err := os.Stat(rosterPath); errors.Is(err, os.ErrNotExist) {
			if err := os.WriteFile(rosterPath, []byte(exampleRoster), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", rosterPath, err)
			}
			fmt.Fprintf(out, "  %s\n", rosterPath) //nolint:errcheck
		}
	}
	return nil
}

func absOr(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
