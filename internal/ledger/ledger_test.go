package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func fixedClock() func() time.Time {
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestSeed_PreservesOrder(t *testing.T) {
	l := New(WithClock(fixedClock()))
	require.NoError(t, l.Seed("c", "a", "b"))

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	for i, id := range []string{"c", "a", "b"} {
		assert.Equal(t, id, snap[i].ID)
		assert.Equal(t, models.StatusPending, snap[i].Status)
		assert.Nil(t, snap[i].Result)
		assert.Empty(t, snap[i].FailureReason)
	}
}

func TestSeed_Errors(t *testing.T) {
	l := New()
	require.Error(t, l.Seed("a", "a"), "duplicate ids")

	l = New()
	require.NoError(t, l.Seed("a"))
	require.Error(t, l.Seed("b"), "second seed")
}

func TestSeedRoster_EchoesNames(t *testing.T) {
	l := New()
	require.NoError(t, l.SeedRoster(models.Roster{{ID: "s1", Name: "Ada"}}))

	rec, ok := l.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "Ada", rec.Name)
}

func TestTransition_HappyPath(t *testing.T) {
	l := New(WithClock(fixedClock()))
	require.NoError(t, l.Seed("s1"))

	rec, err := l.Transition("s1", models.StatusAnalyzing, Update{Note: "analyzing"})
	require.NoError(t, err)
	assert.Equal(t, "analyzing", rec.ProgressNote)

	rec, err = l.Transition("s1", models.StatusFormatting, Update{Note: "formatting"})
	require.NoError(t, err)
	assert.Equal(t, "formatting", rec.ProgressNote)

	result := &models.ReportResult{Content: "<h1>ok</h1>", StudentName: "Ada"}
	rec, err = l.Transition("s1", models.StatusDone, Update{Note: "ignored", Result: result})
	require.NoError(t, err)
	assert.Empty(t, rec.ProgressNote, "terminal records carry no note")
	require.NotNil(t, rec.Result)
	assert.Equal(t, "<h1>ok</h1>", rec.Result.Content)

	// Mutating the caller's value must not reach the ledger.
	result.Content = "changed"
	got, _ := l.Get("s1")
	assert.Equal(t, "<h1>ok</h1>", got.Result.Content)
	assert.True(t, l.Complete())
}

func TestTransition_Invalid(t *testing.T) {
	done := &models.ReportResult{Content: "x"}

	tests := []struct {
		name  string
		setup []models.Status
		to    models.Status
		u     Update
	}{
		{name: "skip analyzing", to: models.StatusFormatting},
		{name: "pending to done", to: models.StatusDone, u: Update{Result: done}},
		{name: "backwards", setup: []models.Status{models.StatusAnalyzing, models.StatusFormatting}, to: models.StatusAnalyzing},
		{name: "done is terminal", setup: []models.Status{models.StatusAnalyzing, models.StatusFormatting, models.StatusDone}, to: models.StatusFailed, u: Update{FailureReason: "late"}},
		{name: "failed is terminal", setup: []models.Status{models.StatusFailed}, to: models.StatusAnalyzing},
		{name: "done without result", setup: []models.Status{models.StatusAnalyzing, models.StatusFormatting}, to: models.StatusDone},
		{name: "failed without reason", setup: []models.Status{models.StatusAnalyzing}, to: models.StatusFailed},
		{name: "failed with result", setup: []models.Status{models.StatusAnalyzing}, to: models.StatusFailed, u: Update{FailureReason: "x", Result: done}},
		{name: "unknown status", to: models.Status("paused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			require.NoError(t, l.Seed("s1"))
			for _, s := range tt.setup {
				u := Update{}
				switch s {
				case models.StatusDone:
					u.Result = done
				case models.StatusFailed:
					u.FailureReason = "boom"
				}
				_, err := l.Transition("s1", s, u)
				require.NoError(t, err)
			}
			before, _ := l.Get("s1")

			_, err := l.Transition("s1", tt.to, tt.u)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, "s1", te.ID)

			after, _ := l.Get("s1")
			assert.Equal(t, before, after, "failed transition must not modify the record")
		})
	}
}

func TestTransition_UnknownID(t *testing.T) {
	l := New()
	require.NoError(t, l.Seed("s1"))

	_, err := l.Transition("nope", models.StatusAnalyzing, Update{})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "not in ledger")
}

func TestPendingCanFailDirectly(t *testing.T) {
	l := New()
	require.NoError(t, l.Seed("s1"))

	rec, err := l.Transition("s1", models.StatusFailed, Update{FailureReason: "hook failed"})
	require.NoError(t, err)
	assert.Equal(t, "hook failed", rec.FailureReason)
}

func TestSnapshot_ConcurrentReaders(t *testing.T) {
	const n = 50
	l := New()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%02d", i)
	}
	require.NoError(t, l.Seed(ids...))

	var g errgroup.Group
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		g.Go(func() error {
			for {
				select {
				case <-stop:
					return nil
				default:
				}
				for _, rec := range l.Snapshot() {
					// A torn write would show a terminal record missing its payload.
					if rec.Status == models.StatusDone && rec.Result == nil {
						return fmt.Errorf("record %s done without result", rec.ID)
					}
					if rec.Status == models.StatusFailed && rec.FailureReason == "" {
						return fmt.Errorf("record %s failed without reason", rec.ID)
					}
				}
			}
		})
	}

	for i, id := range ids {
		_, err := l.Transition(id, models.StatusAnalyzing, Update{Note: "analyzing"})
		require.NoError(t, err)
		if i%3 == 0 {
			_, err = l.Transition(id, models.StatusFailed, Update{FailureReason: "boom"})
			require.NoError(t, err)
			continue
		}
		_, err = l.Transition(id, models.StatusFormatting, Update{Note: "formatting"})
		require.NoError(t, err)
		_, err = l.Transition(id, models.StatusDone, Update{Result: &models.ReportResult{Content: id}})
		require.NoError(t, err)
	}
	close(stop)
	require.NoError(t, g.Wait())
	assert.True(t, l.Complete())
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(models.StatusPending, models.StatusAnalyzing))
	require.NoError(t, ValidateTransition(models.StatusFormatting, models.StatusFailed))
	require.Error(t, ValidateTransition(models.StatusDone, models.StatusFailed))
	require.Error(t, ValidateTransition("bogus", models.StatusDone))
}
