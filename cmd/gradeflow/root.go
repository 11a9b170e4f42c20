package main

import (
	"log/slog"

	"github.com/gradeflow/gradeflow/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gradeflow",
		Short: "gradeflow - batch grading reports for exam submissions",
		Long: `gradeflow grades a roster of student solutions against an exam's
criteria using a text-generation service, and writes one formatted report
per student.

A batch is described by a batch.yaml file. Use "gradeflow init" to create
one and "gradeflow run" to process it.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	envFile := cmd.PersistentFlags().String("env-file", "", "Load environment variables from this file (default: ./.env)")
	cmd.PersistentFlags().String("store", "", "Template store location: a directory, sqlite://path or postgres://dsn (default: $GRADEFLOW_STORE or ~/.gradeflow/store)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		if *envFile != "" {
			return config.LoadEnv(*envFile)
		}
		return config.LoadEnv()
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newCriteriaCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newTemplateCommand())
	cmd.AddCommand(newModelCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
