package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/gradeflow/gradeflow/internal/config"
	"github.com/gradeflow/gradeflow/internal/dataset"
	"github.com/gradeflow/gradeflow/internal/grading"
	"github.com/gradeflow/gradeflow/internal/hooks"
	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/gradeflow/gradeflow/internal/orchestration"
	"github.com/gradeflow/gradeflow/internal/reporting"
	"github.com/gradeflow/gradeflow/internal/spinner"
	"github.com/gradeflow/gradeflow/internal/validation"
	"github.com/gradeflow/gradeflow/internal/webserver"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	runOutputDir   string
	runGenerator   string
	runModel       string
	verbose        bool
	studentFilters []string
	studentRange   string
	writeXLSX      bool
	writeJUnit     bool
	writeHTML      bool
	interpret      bool
	servePort      int
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <batch.yaml>",
		Short: "Grade every student in a batch",
		Long: `Grade every student in a batch file.

Students are processed one at a time, in roster order. Each student's
solution is graded against the exam criteria and the result is formatted
into a report. A student that fails does not stop the batch.

Outputs are written to the output directory (default: ./results next to
the batch file): ledger.json always, plus per-student HTML reports, an
XLSX summary and JUnit XML when enabled.

Exit codes: 0 when every student is done, 1 when any student failed or
was not processed, 2 on configuration or runtime errors.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for batch outputs (overrides output.dir)")
	cmd.Flags().StringVar(&runGenerator, "generator", "", "Generator backend: gemini, openai, copilot, mock (overrides generator.type)")
	cmd.Flags().StringVar(&runModel, "model", "", "Model to use (overrides the batch file and the stored preference)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every stage transition")
	cmd.Flags().StringArrayVar(&studentFilters, "student", nil, "Only grade students whose name or id matches this glob (can be repeated)")
	cmd.Flags().StringVar(&studentRange, "range", "", "Only grade roster positions in this range, e.g. 3-10 or 4")
	cmd.Flags().BoolVar(&writeXLSX, "xlsx", false, "Write an XLSX summary (also enabled by output.xlsx)")
	cmd.Flags().BoolVar(&writeJUnit, "junit", false, "Write JUnit XML (also enabled by output.junit)")
	cmd.Flags().BoolVar(&writeHTML, "html", false, "Write per-student HTML reports (also enabled by output.html)")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().IntVar(&servePort, "serve", 0, "Serve a live status view on this port while the batch runs")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	specPath := args[0]

	batchErrs, rosterErrs, err := validation.ValidateBatchFile(specPath)
	if err != nil {
		return err
	}
	if len(batchErrs) > 0 {
		return fmt.Errorf("invalid batch file %s:\n  %s", specPath, strings.Join(batchErrs, "\n  "))
	}
	for _, e := range rosterErrs {
		slog.Warn("roster problem", "detail", e)
	}

	spec, err := models.LoadBatchSpec(specPath)
	if err != nil {
		return fmt.Errorf("failed to load batch file: %w", err)
	}

	specDir, err := filepath.Abs(filepath.Dir(specPath))
	if err != nil {
		specDir = filepath.Dir(specPath)
	}

	env := config.FromEnv()
	cfg := config.NewRunConfig(spec,
		config.WithSpecDir(specDir),
		config.WithEnv(env),
		config.WithGeneratorType(runGenerator),
		config.WithModel(runModel),
		config.WithOutputDir(runOutputDir),
		config.WithVerbose(verbose),
		config.WithStudentFilters(studentFilters...),
		config.WithStudentRange(studentRange),
	)

	roster, err := loadRoster(cfg)
	if err != nil {
		return err
	}

	exam, err := resolveExam(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	client, shutdown, err := newGradingClient(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	runner := orchestration.NewBatchRunner(client,
		orchestration.WithLogger(slog.Default()),
		orchestration.WithHooks(spec.Hooks, &hooks.Runner{Verbose: verbose, Logger: slog.Default()}),
	)
	if verbose {
		runner.OnProgress(verboseProgressListener(out))
	} else {
		runner.OnProgress(simpleProgressListener(out))
	}

	fmt.Fprintf(out, "Running batch: %s\n", spec.Name)
	fmt.Fprintf(out, "Generator: %s\n", cfg.Generator().Type)
	fmt.Fprintf(out, "Model: %s\n", orDash(exam.ModelID))
	fmt.Fprintf(out, "Students: %d\n\n", len(roster))

	run, err := runner.StartBatch(ctx, exam, roster)
	if err != nil {
		return fmt.Errorf("failed to start batch: %w", err)
	}

	var srv *webserver.Server
	serveErr := make(chan error, 1)
	if servePort > 0 {
		srv, err = webserver.New(webserver.Config{
			Port:       servePort,
			ResultsDir: cfg.OutputDir(),
			NoBrowser:  true,
		})
		if err != nil {
			return err
		}
		srv.Registry().Add(run.ID, run)
		go func() { serveErr <- srv.ListenAndServe(ctx) }()
		fmt.Fprintf(out, "Status view: %s/api/batches/%s/progress\n\n", srv.URL(), run.ID)
	}

	stopSpinner := func() {}
	if !verbose && isTerminal(cmd.ErrOrStderr()) {
		stopSpinner = spinner.Follow(cmd.ErrOrStderr(), func() string {
			return progressMessage(run.Progress())
		})
	}
	for range run.Updates() {
	}
	stopSpinner()

	outcome, runErr := run.Wait()
	if runErr != nil && orchestration.IsAborted(runErr) {
		return fmt.Errorf("batch aborted: %w", runErr)
	}
	outcome.Name = spec.Name

	spec.Output.XLSX = spec.Output.XLSX || writeXLSX
	spec.Output.JUnit = spec.Output.JUnit || writeJUnit
	spec.Output.HTML = spec.Output.HTML || writeHTML

	written, err := reporting.WriteAll(outcome, cfg.OutputDir(), reporting.Outputs{
		HTML:  spec.Output.HTML,
		XLSX:  spec.Output.XLSX,
		JUnit: spec.Output.JUnit,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	printSummary(out, outcome)
	if interpret {
		fmt.Fprintln(out)
		fmt.Fprint(out, reporting.FormatSummaryReport(outcome))
	}
	fmt.Fprintf(out, "\nResults saved to: %s\n", cfg.OutputDir())
	for _, p := range written {
		slog.Debug("output written", "path", p)
	}

	if srv != nil && ctx.Err() == nil {
		fmt.Fprintln(out, "Batch finished; status view still running. Press Ctrl+C to stop.")
		if err := <-serveErr; err != nil {
			return err
		}
	}

	done, failed, pending := outcome.Counts()
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return &BatchFailureError{
			Message: fmt.Sprintf("batch canceled with %d done, %d failed and %d not processed", done, failed, pending),
		}
	}
	if failed > 0 || pending > 0 {
		return &BatchFailureError{
			Message: fmt.Sprintf("batch completed with %d of %d student(s) failed", failed, len(outcome.Records)),
		}
	}
	return nil
}

// loadRoster combines inline students with the students_from CSV, then
// applies --range and --student.
func loadRoster(cfg *config.RunConfig) (models.Roster, error) {
	spec := cfg.Spec()
	roster := append(models.Roster{}, spec.Students...)

	var start, end int
	if cfg.StudentRange() != "" {
		var err error
		start, end, err = dataset.ParseRange(cfg.StudentRange())
		if err != nil {
			return nil, err
		}
	}

	if spec.StudentsFrom != "" {
		var (
			imported models.Roster
			err      error
		)
		if start > 0 && len(roster) == 0 {
			imported, err = dataset.LoadRosterRange(spec.StudentsFrom, start, end)
			start = 0
		} else {
			imported, err = dataset.LoadRoster(spec.StudentsFrom)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load students_from: %w", err)
		}
		roster = append(roster, imported...)
	}

	if start > 0 {
		roster = sliceRange(roster, start, end)
	}

	roster, err := orchestration.FilterRoster(roster, cfg.StudentFilters())
	if err != nil {
		return nil, err
	}
	if err := roster.Validate(); err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	return roster, nil
}

func sliceRange(roster models.Roster, start, end int) models.Roster {
	if start > len(roster) {
		return models.Roster{}
	}
	if end > len(roster) {
		end = len(roster)
	}
	return roster[start-1 : end]
}

// resolveExam builds the exam context. Criteria come from the batch file,
// then the named stored template. The model comes from flags and the batch
// file, then the stored preference.
func resolveExam(ctx context.Context, cmd *cobra.Command, cfg *config.RunConfig) (models.ExamContext, error) {
	spec := cfg.Spec()
	exam := spec.ExamContext("")
	exam.ModelID = cfg.Model()

	needsCriteria := strings.TrimSpace(exam.Criteria) == "" && spec.Exam.CriteriaTemplate != ""
	if !needsCriteria && exam.ModelID != "" {
		return exam, nil
	}

	templates, closeStore, err := openTemplates(cmd)
	if err != nil {
		if needsCriteria {
			return exam, err
		}
		slog.Debug("template store unavailable", "error", err)
		return exam, nil
	}
	defer closeStore()

	if needsCriteria {
		text, err := templates.Get(ctx, spec.Exam.CriteriaTemplate)
		if err != nil {
			return exam, fmt.Errorf("criteria template %q: %w", spec.Exam.CriteriaTemplate, err)
		}
		exam.Criteria = text
	}
	if exam.ModelID == "" {
		if model, err := templates.PreferredModel(ctx); err == nil {
			exam.ModelID = model
		}
	}
	return exam, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func progressMessage(p models.BatchProgress) string {
	if p.ActiveName == "" {
		return fmt.Sprintf("[%d/%d]", p.Current, p.Total)
	}
	return fmt.Sprintf("[%d/%d] grading %s", p.Current+1, p.Total, p.ActiveName)
}

func verboseProgressListener(w io.Writer) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventBatchStart:
			fmt.Fprintf(w, "Starting batch %s with %d student(s)...\n\n", event.BatchID, event.TotalStudents)
		case orchestration.EventStudentStart:
			fmt.Fprintf(w, "[%d/%d] %s\n", event.StudentNum, event.TotalStudents, event.StudentName)
		case orchestration.EventStage:
			line := fmt.Sprintf("  %s", event.Status)
			if event.Note != "" {
				line += ": " + event.Note
			}
			if event.FailureReason != "" {
				line += ": " + event.FailureReason
			}
			fmt.Fprintln(w, line)
		case orchestration.EventStudentComplete:
			fmt.Fprintf(w, "  %s in %s\n\n", event.Status, formatDurationMs(event.DurationMs))
		case orchestration.EventBatchComplete:
			fmt.Fprintf(w, "Batch completed in %s\n\n", formatDurationMs(event.DurationMs))
		case orchestration.EventBatchCanceled:
			fmt.Fprintf(w, "Batch canceled after %d of %d student(s)\n\n", event.Progress.Current, event.TotalStudents)
		}
	}
}

func simpleProgressListener(w io.Writer) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventStudentComplete:
			icon := "✓"
			if event.Status != models.StatusDone {
				icon = "✗"
			}
			fmt.Fprintf(w, "%s [%d/%d] %s\n", icon, event.StudentNum, event.TotalStudents, event.StudentName)
		case orchestration.EventBatchCanceled:
			fmt.Fprintln(w, "Batch canceled")
		}
	}
}

// newGradingClient builds the generator and encoder for a run. The returned
// func shuts the generator down.
func newGradingClient(cfg *config.RunConfig) (*grading.Client, func(), error) {
	gen, err := newGenerator(cfg.Generator())
	if err != nil {
		return nil, nil, err
	}
	enc, err := newEncoder(cfg.Env())
	if err != nil {
		_ = gen.Shutdown(context.Background())
		return nil, nil, err
	}
	client := grading.NewClient(gen, enc, grading.WithLogger(slog.Default()))
	shutdown := func() {
		if err := gen.Shutdown(context.Background()); err != nil {
			slog.Warn("generator shutdown failed", "error", err)
		}
	}
	return client, shutdown, nil
}
