package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gradeflow/gradeflow/internal/grading"
	"github.com/gradeflow/gradeflow/internal/hooks"
	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testExam() models.ExamContext {
	return models.ExamContext{
		Description: "Algebra midterm",
		Criteria:    "1. Solve for x (5 pts)",
		ModelID:     "test-model",
		Materials:   []models.Document{{Source: "exam.pdf"}},
	}
}

func testRoster() models.Roster {
	return models.Roster{
		{ID: "s1", Name: "Alice", Email: "alice@example.com", Solutions: []models.Document{{Source: "alice.pdf"}}},
		{ID: "s2", Name: "Bob"},
	}
}

func newTestRunner(client GradingClient, opts ...RunnerOption) *BatchRunner {
	n := 0
	base := []RunnerOption{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("batch-%d", n)
		}),
	}
	return NewBatchRunner(client, append(base, opts...)...)
}

// eventLog collects progress events from the batch goroutine.
type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) listen(e ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ProgressEvent(nil), l.events...)
}

func TestRunBatch_DoneAndFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	roster := testRoster()
	client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *models.ExamContext, st *models.StudentTask) (string, error) {
			if len(st.Solutions) == 0 {
				return "", &grading.ValidationError{Field: "solutions"}
			}
			return "raw A", nil
		}).Times(2)
	client.EXPECT().FormatReport(gomock.Any(), "raw A", gomock.Any(), "Alice", fixedNow).
		Return("# Report A", nil)

	runner := newTestRunner(client)
	outcome, err := runner.RunBatch(context.Background(), testExam(), roster)
	require.NoError(t, err)

	require.Len(t, outcome.Records, 2)
	a, b := outcome.Records[0], outcome.Records[1]

	assert.Equal(t, "s1", a.ID)
	assert.Equal(t, models.StatusDone, a.Status)
	require.NotNil(t, a.Result)
	assert.Equal(t, "# Report A", a.Result.Content)
	assert.Equal(t, "Alice", a.Result.StudentName)
	assert.Equal(t, "alice@example.com", a.Result.StudentEmail)
	assert.Equal(t, "Algebra midterm", a.Result.ExamDescription)
	assert.Equal(t, fixedNow, a.Result.GeneratedAt)
	assert.Empty(t, a.FailureReason)

	assert.Equal(t, "s2", b.ID)
	assert.Equal(t, models.StatusFailed, b.Status)
	assert.Equal(t, "missing required input", b.FailureReason)
	assert.Nil(t, b.Result)

	assert.Equal(t, models.BatchProgress{Current: 2, Total: 2}, outcome.Progress)
	assert.Equal(t, "batch-1", outcome.BatchID)
	assert.Equal(t, "test-model", outcome.ModelID)
	assert.False(t, outcome.Canceled)

	done, failed, pending := outcome.Counts()
	assert.Equal(t, []int{1, 1, 0}, []int{done, failed, pending})
}

func TestRunBatch_TransportErrorSkipsFormatting(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &grading.ServiceError{Op: "grade", Err: errors.New("connection refused")})
	client.EXPECT().FormatReport(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	runner := newTestRunner(client)
	outcome, err := runner.RunBatch(context.Background(), testExam(), testRoster()[:1])
	require.NoError(t, err)

	rec := outcome.Records[0]
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Equal(t, "connection refused", rec.FailureReason)
	assert.Equal(t, models.BatchProgress{Current: 1, Total: 1}, outcome.Progress)
}

func TestRunBatch_FormatFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).Return("raw", nil)
	client.EXPECT().FormatReport(gomock.Any(), "raw", gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &grading.ServiceError{Op: "format", Err: errors.New("empty response")})

	runner := newTestRunner(client)
	run, err := runner.StartBatch(context.Background(), testExam(), testRoster()[:1])
	require.NoError(t, err)

	var updates []models.RecordUpdate
	for u := range run.Updates() {
		updates = append(updates, u)
	}
	outcome, err := run.Wait()
	require.NoError(t, err)

	assert.Equal(t, []models.RecordUpdate{
		{ID: "s1", Status: models.StatusAnalyzing, Note: NoteAnalyzing},
		{ID: "s1", Status: models.StatusFormatting, Note: NoteFormatting},
		{ID: "s1", Status: models.StatusFailed, FailureReason: "empty response"},
	}, updates)
	assert.Equal(t, models.StatusFailed, outcome.Records[0].Status)
}

func TestStartBatch_UpdateStreamOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *models.ExamContext, st *models.StudentTask) (string, error) {
			if st.ID == "s2" {
				return "", &grading.ValidationError{Field: "solutions"}
			}
			return "raw", nil
		}).Times(2)
	client.EXPECT().FormatReport(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("report", nil)

	runner := newTestRunner(client)
	run, err := runner.StartBatch(context.Background(), testExam(), testRoster())
	require.NoError(t, err)

	var got []string
	for u := range run.Updates() {
		got = append(got, u.ID+":"+string(u.Status))
	}
	_, err = run.Wait()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"s1:analyzing",
		"s1:formatting",
		"s1:done",
		"s2:analyzing",
		"s2:failed",
	}, got)
}

func TestRunBatch_ProgressIsMonotonic(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	roster := models.Roster{
		{ID: "a", Name: "A", Solutions: []models.Document{{Source: "a.txt"}}},
		{ID: "b", Name: "B", Solutions: []models.Document{{Source: "b.txt"}}},
		{ID: "c", Name: "C", Solutions: []models.Document{{Source: "c.txt"}}},
	}
	client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).Return("raw", nil).Times(3)
	client.EXPECT().FormatReport(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("report", nil).Times(3)

	runner := newTestRunner(client)
	log := &eventLog{}
	runner.OnProgress(log.listen)

	_, err := runner.RunBatch(context.Background(), testExam(), roster)
	require.NoError(t, err)

	events := log.all()
	require.NotEmpty(t, events)
	assert.Equal(t, EventBatchStart, events[0].EventType)
	assert.Equal(t, EventBatchComplete, events[len(events)-1].EventType)

	last := 0
	for _, e := range events {
		assert.GreaterOrEqual(t, e.Progress.Current, last, "progress went backwards at %s", e.EventType)
		assert.Equal(t, 3, e.Progress.Total)
		last = e.Progress.Current

		switch e.EventType {
		case EventStudentStart:
			// in flight: the student is named but not counted yet
			assert.Equal(t, e.StudentNum-1, e.Progress.Current)
			assert.Equal(t, e.StudentName, e.Progress.ActiveName)
		case EventStudentComplete:
			assert.Equal(t, e.StudentNum, e.Progress.Current)
			assert.Empty(t, e.Progress.ActiveName)
			assert.Equal(t, models.StatusDone, e.Status)
		}
	}
	assert.Equal(t, 3, last)
}

func TestRunBatch_Cancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *models.ExamContext, _ *models.StudentTask) (string, error) {
			cancel()
			return "", ctx.Err()
		})

	runner := newTestRunner(client)
	log := &eventLog{}
	runner.OnProgress(log.listen)

	outcome, err := runner.RunBatch(ctx, testExam(), testRoster())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, outcome)
	assert.True(t, outcome.Canceled)
	assert.False(t, IsAborted(err))

	assert.Equal(t, models.StatusFailed, outcome.Records[0].Status)
	assert.Equal(t, context.Canceled.Error(), outcome.Records[0].FailureReason)
	assert.Equal(t, models.StatusPending, outcome.Records[1].Status)
	assert.Equal(t, models.BatchProgress{Current: 1, Total: 2}, outcome.Progress)

	events := log.all()
	assert.Equal(t, EventBatchCanceled, events[len(events)-1].EventType)
}

func TestRunBatch_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).Return("raw", nil).Times(2)
	client.EXPECT().FormatReport(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("report", nil).Times(2)

	runner := newTestRunner(client)
	roster := testRoster()[:1]

	first, err := runner.RunBatch(context.Background(), testExam(), roster)
	require.NoError(t, err)
	second, err := runner.RunBatch(context.Background(), testExam(), roster)
	require.NoError(t, err)

	assert.Equal(t, "batch-1", first.BatchID)
	assert.Equal(t, "batch-2", second.BatchID)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Progress, second.Progress)

	// outcomes do not share state
	first.Records[0].Result.Content = "changed"
	assert.Equal(t, "report", second.Records[0].Result.Content)
}

func TestRunBatch_EmptyRoster(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	runner := newTestRunner(client)
	outcome, err := runner.RunBatch(context.Background(), testExam(), nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.Records)
	assert.Equal(t, models.BatchProgress{}, outcome.Progress)
	assert.True(t, outcome.Progress.Complete())
}

func TestStartBatch_InvalidRoster(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	runner := newTestRunner(client)
	roster := models.Roster{{ID: "x", Name: "One"}, {ID: "x", Name: "Two"}}

	_, err := runner.StartBatch(context.Background(), testExam(), roster)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate student id")
}

func TestRunBatch_Hooks(t *testing.T) {
	t.Run("before_student failure fails the record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := NewMockGradingClient(ctrl)
		client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		cfg := hooks.HooksConfig{
			BeforeStudent: []hooks.HookConfig{{Command: "false", ErrorOnFail: true}},
		}
		runner := newTestRunner(client, WithHooks(cfg, &hooks.Runner{}))

		outcome, err := runner.RunBatch(context.Background(), testExam(), testRoster())
		require.NoError(t, err)
		for _, rec := range outcome.Records {
			assert.Equal(t, models.StatusFailed, rec.Status)
			assert.Contains(t, rec.FailureReason, "before_student")
		}
		assert.Equal(t, 2, outcome.Progress.Current)
	})

	t.Run("before_batch failure prevents the run", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := NewMockGradingClient(ctrl)

		cfg := hooks.HooksConfig{
			BeforeBatch: []hooks.HookConfig{{Command: "false", ErrorOnFail: true}},
		}
		runner := newTestRunner(client, WithHooks(cfg, &hooks.Runner{}))

		_, err := runner.StartBatch(context.Background(), testExam(), testRoster())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "before_batch hook failed")
	})

	t.Run("after hooks do not change outcomes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := NewMockGradingClient(ctrl)
		client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).Return("raw", nil)
		client.EXPECT().FormatReport(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("report", nil)

		cfg := hooks.HooksConfig{
			AfterStudent: []hooks.HookConfig{{Command: "false"}},
			AfterBatch:   []hooks.HookConfig{{Command: "false", ErrorOnFail: true}},
		}
		runner := newTestRunner(client, WithHooks(cfg, &hooks.Runner{}))

		outcome, err := runner.RunBatch(context.Background(), testExam(), testRoster()[:1])
		require.NoError(t, err)
		assert.Equal(t, models.StatusDone, outcome.Records[0].Status)
	})
}

func TestBatchRun_ConcurrentObservers(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockGradingClient(ctrl)

	release := make(chan struct{})
	client.EXPECT().GradeSolution(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *models.ExamContext, *models.StudentTask) (string, error) {
			<-release
			return "raw", nil
		}).Times(2)
	client.EXPECT().FormatReport(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("report", nil).Times(2)

	runner := newTestRunner(client)
	run, err := runner.StartBatch(context.Background(), testExam(), testRoster())
	require.NoError(t, err)

	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			last := 0
			for {
				p := run.Progress()
				if p.Current < last {
					return fmt.Errorf("progress went from %d to %d", last, p.Current)
				}
				last = p.Current
				for _, rec := range run.Records() {
					if rec.Status == models.StatusDone && rec.Result == nil {
						return fmt.Errorf("record %s done without result", rec.ID)
					}
				}
				select {
				case <-run.Done():
					return nil
				default:
				}
			}
		})
	}
	g.Go(func() error {
		for range run.Updates() {
		}
		return nil
	})

	close(release)
	require.NoError(t, g.Wait())

	outcome, err := run.Wait()
	require.NoError(t, err)
	assert.Equal(t, models.BatchProgress{Current: 2, Total: 2}, outcome.Progress)

	rec, ok := run.Record("s2")
	require.True(t, ok)
	assert.Equal(t, models.StatusDone, rec.Status)
}
