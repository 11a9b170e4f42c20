package orchestration

//go:generate go tool mockgen -source=runner.go -destination=grading_client_mocks_test.go -package=orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gradeflow/gradeflow/internal/hooks"
	"github.com/gradeflow/gradeflow/internal/ledger"
	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/gradeflow/gradeflow/internal/progress"
)

// Progress notes shown while a record is in flight.
const (
	NoteAnalyzing  = "analyzing solution"
	NoteFormatting = "formatting report"
)

// GradingClient is the part of the grading service the runner drives.
type GradingClient interface {
	GradeSolution(ctx context.Context, exam *models.ExamContext, student *models.StudentTask) (string, error)
	FormatReport(ctx context.Context, rawReport string, exam *models.ExamContext, studentName string, ts time.Time) (string, error)
}

// BatchRunner processes rosters one student at a time: grade, then format,
// recording every transition in a per-batch ledger. A student's failure is
// recorded on its record and never stops the batch.
type BatchRunner struct {
	client GradingClient
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	// Lifecycle hooks
	hooksCfg   hooks.HooksConfig
	hookRunner *hooks.Runner

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventBatchStart      EventType = "batch_start"
	EventStudentStart    EventType = "student_start"
	EventStage           EventType = "stage"
	EventStudentComplete EventType = "student_complete"
	EventBatchComplete   EventType = "batch_complete"
	EventBatchCanceled   EventType = "batch_canceled"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType     EventType
	BatchID       string
	StudentID     string
	StudentName   string
	StudentNum    int
	TotalStudents int
	Status        models.Status
	Note          string
	FailureReason string
	Progress      models.BatchProgress
	DurationMs    int64
}

// RunnerOption configures a BatchRunner.
type RunnerOption func(*BatchRunner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *BatchRunner) {
		r.logger = l
	}
}

// WithHooks enables lifecycle hooks.
func WithHooks(cfg hooks.HooksConfig, runner *hooks.Runner) RunnerOption {
	return func(r *BatchRunner) {
		r.hooksCfg = cfg
		r.hookRunner = runner
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *BatchRunner) {
		r.now = now
	}
}

// WithIDGenerator overrides how batch ids are generated.
func WithIDGenerator(newID func() string) RunnerOption {
	return func(r *BatchRunner) {
		r.newID = newID
	}
}

// NewBatchRunner creates a new batch runner
func NewBatchRunner(client GradingClient, opts ...RunnerOption) *BatchRunner {
	r := &BatchRunner{
		client:    client,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
		listeners: []ProgressListener{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.hookRunner == nil {
		r.hookRunner = &hooks.Runner{Logger: r.logger}
	}
	return r
}

// OnProgress registers a progress listener. Listeners are called
// synchronously from the batch goroutine and must not block.
func (r *BatchRunner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *BatchRunner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// RunBatch processes the roster and blocks until every student has been
// handled. It returns an error only when ctx is canceled (the outcome is
// still returned, with unprocessed records left pending) or when the
// batch could not run at all.
func (r *BatchRunner) RunBatch(ctx context.Context, exam models.ExamContext, roster models.Roster) (*models.BatchOutcome, error) {
	run, err := r.StartBatch(ctx, exam, roster)
	if err != nil {
		return nil, err
	}
	for range run.Updates() {
		// drained; listeners and the ledger carry the same information
	}
	return run.Wait()
}

// StartBatch seeds a new ledger and processes the roster in the background.
// The returned BatchRun streams record updates and exposes live progress.
func (r *BatchRunner) StartBatch(ctx context.Context, exam models.ExamContext, roster models.Roster) (*BatchRun, error) {
	if err := roster.Validate(); err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	roster = slices.Clone(roster)

	led := ledger.New(ledger.WithClock(r.now))
	if err := led.SeedRoster(roster); err != nil {
		return nil, err
	}

	run := &BatchRun{
		ID:      r.newID(),
		ledger:  led,
		tracker: progress.NewTracker(len(roster)),
		// at most three transitions per student, so sends never block
		updates: make(chan models.RecordUpdate, 3*len(roster)),
		done:    make(chan struct{}),
	}

	if len(r.hooksCfg.BeforeBatch) > 0 {
		if err := r.hookRunner.Execute(ctx, hooks.BeforeBatch, r.hooksCfg.BeforeBatch, run.hookEnv()...); err != nil {
			return nil, fmt.Errorf("before_batch hook failed: %w", err)
		}
	}

	go r.run(ctx, run, exam, roster)
	return run, nil
}

func (r *BatchRunner) run(ctx context.Context, run *BatchRun, exam models.ExamContext, roster models.Roster) {
	startedAt := r.now()
	canceled := false
	var runErr error

	defer func() {
		run.finish(&models.BatchOutcome{
			BatchID:    run.ID,
			ModelID:    exam.ModelID,
			StartedAt:  startedAt,
			FinishedAt: r.now(),
			Records:    run.ledger.Snapshot(),
			Progress:   run.tracker.Snapshot(),
			Canceled:   canceled,
		}, runErr)
	}()

	// Run after_batch hooks on exit (even on error)
	defer func() {
		if len(r.hooksCfg.AfterBatch) > 0 {
			if err := r.hookRunner.Execute(context.WithoutCancel(ctx), hooks.AfterBatch, r.hooksCfg.AfterBatch, run.hookEnv()...); err != nil {
				r.logger.Warn("after_batch hook error", "batch_id", run.ID, "error", err)
			}
		}
	}()

	r.logger.Info("batch started", "batch_id", run.ID, "students", len(roster), "model", exam.ModelID)
	r.notifyProgress(ProgressEvent{
		EventType:     EventBatchStart,
		BatchID:       run.ID,
		TotalStudents: len(roster),
		Progress:      run.tracker.Snapshot(),
	})

	for i := range roster {
		if err := ctx.Err(); err != nil {
			canceled = true
			runErr = err
			r.logger.Info("batch canceled", "batch_id", run.ID, "remaining", len(roster)-i)
			r.notifyProgress(ProgressEvent{
				EventType:     EventBatchCanceled,
				BatchID:       run.ID,
				TotalStudents: len(roster),
				Progress:      run.tracker.Idle(),
			})
			return
		}

		if err := r.processStudent(ctx, run, &exam, &roster[i], i+1, len(roster)); err != nil {
			// only ledger or progress bookkeeping errors get here
			runErr = err
			r.logger.Error("batch aborted", "batch_id", run.ID, "student_id", roster[i].ID, "error", err)
			run.tracker.Idle()
			return
		}
	}

	r.logger.Info("batch complete", "batch_id", run.ID, "elapsed_ms", r.now().Sub(startedAt).Milliseconds())
	r.notifyProgress(ProgressEvent{
		EventType:     EventBatchComplete,
		BatchID:       run.ID,
		TotalStudents: len(roster),
		Progress:      run.tracker.Snapshot(),
		DurationMs:    r.now().Sub(startedAt).Milliseconds(),
	})
}

// processStudent drives one student to a terminal record. Stage failures are
// recorded, not returned.
func (r *BatchRunner) processStudent(ctx context.Context, run *BatchRun, exam *models.ExamContext, st *models.StudentTask, num, total int) error {
	start := r.now()
	log := r.logger.With("batch_id", run.ID, "student_id", st.ID)

	p, err := run.tracker.Begin(num, st.Name)
	if err != nil {
		return err
	}
	r.notifyProgress(ProgressEvent{
		EventType:     EventStudentStart,
		BatchID:       run.ID,
		StudentID:     st.ID,
		StudentName:   st.Name,
		StudentNum:    num,
		TotalStudents: total,
		Status:        models.StatusPending,
		Progress:      p,
	})

	transition := func(to models.Status, u ledger.Update) error {
		rec, err := run.ledger.Transition(st.ID, to, u)
		if err != nil {
			return err
		}
		run.updates <- models.RecordUpdate{
			ID:            rec.ID,
			Status:        rec.Status,
			Note:          rec.ProgressNote,
			FailureReason: rec.FailureReason,
		}
		log.Debug("record transition", "stage", to, "note", rec.ProgressNote)
		r.notifyProgress(ProgressEvent{
			EventType:     EventStage,
			BatchID:       run.ID,
			StudentID:     st.ID,
			StudentName:   st.Name,
			StudentNum:    num,
			TotalStudents: total,
			Status:        rec.Status,
			Note:          rec.ProgressNote,
			FailureReason: rec.FailureReason,
			Progress:      run.tracker.Snapshot(),
		})
		return nil
	}

	outcome := func() error {
		if len(r.hooksCfg.BeforeStudent) > 0 {
			if err := r.hookRunner.Execute(ctx, hooks.BeforeStudent, r.hooksCfg.BeforeStudent, run.studentEnv(st)...); err != nil {
				return transition(models.StatusFailed, ledger.Update{FailureReason: err.Error()})
			}
		}

		if err := transition(models.StatusAnalyzing, ledger.Update{Note: NoteAnalyzing}); err != nil {
			return err
		}

		raw, err := r.client.GradeSolution(ctx, exam, st)
		if err != nil {
			log.Warn("grading failed", "stage", models.StatusAnalyzing, "error", err)
			return transition(models.StatusFailed, ledger.Update{FailureReason: failureReason(err)})
		}

		if err := transition(models.StatusFormatting, ledger.Update{Note: NoteFormatting}); err != nil {
			return err
		}

		content, err := r.client.FormatReport(ctx, raw, exam, st.Name, r.now())
		if err != nil {
			log.Warn("formatting failed", "stage", models.StatusFormatting, "error", err)
			return transition(models.StatusFailed, ledger.Update{FailureReason: failureReason(err)})
		}

		return transition(models.StatusDone, ledger.Update{Result: &models.ReportResult{
			Content:         content,
			StudentName:     st.Name,
			StudentEmail:    st.Email,
			ExamDescription: exam.Description,
			GeneratedAt:     r.now(),
		}})
	}()
	if outcome != nil {
		return outcome
	}

	p, err = run.tracker.Finish(num)
	if err != nil {
		return err
	}

	rec, _ := run.ledger.Get(st.ID)

	if len(r.hooksCfg.AfterStudent) > 0 {
		env := append(run.studentEnv(st), "GRADEFLOW_STUDENT_STATUS="+string(rec.Status))
		if err := r.hookRunner.Execute(context.WithoutCancel(ctx), hooks.AfterStudent, r.hooksCfg.AfterStudent, env...); err != nil {
			log.Warn("after_student hook error", "error", err)
		}
	}

	elapsed := r.now().Sub(start).Milliseconds()
	log.Info("student processed", "status", rec.Status, "elapsed_ms", elapsed)
	r.notifyProgress(ProgressEvent{
		EventType:     EventStudentComplete,
		BatchID:       run.ID,
		StudentID:     st.ID,
		StudentName:   st.Name,
		StudentNum:    num,
		TotalStudents: total,
		Status:        rec.Status,
		FailureReason: rec.FailureReason,
		Progress:      p,
		DurationMs:    elapsed,
	})
	return nil
}

// failureReason is the text recorded on a failed record. Errors with an
// empty message still need a non-empty reason.
func failureReason(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fmt.Sprintf("%T", err)
}

// BatchRun is a batch in progress. All methods are safe for concurrent use.
type BatchRun struct {
	ID string

	ledger  *ledger.Ledger
	tracker *progress.Tracker
	updates chan models.RecordUpdate
	done    chan struct{}

	outcome *models.BatchOutcome
	err     error
}

// Updates streams every record transition in order. The channel is closed
// when the batch ends.
func (b *BatchRun) Updates() <-chan models.RecordUpdate {
	return b.updates
}

// Progress returns the current progress view.
func (b *BatchRun) Progress() models.BatchProgress {
	return b.tracker.Snapshot()
}

// Records returns a snapshot of the ledger in roster order.
func (b *BatchRun) Records() []models.ProcessingRecord {
	return b.ledger.Snapshot()
}

// Record returns one record from the ledger.
func (b *BatchRun) Record(id string) (models.ProcessingRecord, bool) {
	return b.ledger.Get(id)
}

// Done is closed when the batch ends.
func (b *BatchRun) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch ends and returns its outcome.
func (b *BatchRun) Wait() (*models.BatchOutcome, error) {
	<-b.done
	return b.outcome, b.err
}

func (b *BatchRun) finish(outcome *models.BatchOutcome, err error) {
	b.outcome = outcome
	b.err = err
	close(b.updates)
	close(b.done)
}

func (b *BatchRun) hookEnv() []string {
	return []string{"GRADEFLOW_BATCH_ID=" + b.ID}
}

func (b *BatchRun) studentEnv(st *models.StudentTask) []string {
	return append(b.hookEnv(),
		"GRADEFLOW_STUDENT_ID="+st.ID,
		"GRADEFLOW_STUDENT_NAME="+st.Name,
	)
}

// IsAborted reports whether err ended a batch because of a bookkeeping bug
// rather than cancellation.
func IsAborted(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
