// Package ledger holds the ordered per-student processing records of one batch.
//
// A Ledger has a single writer (the batch runner) and any number of readers.
// Readers always see whole records: Transition replaces a record under the
// write lock, and Snapshot/Get copy under the read lock.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gradeflow/gradeflow/internal/models"
)

// Update is the payload carried by a transition.
type Update struct {
	// Note is the stage label shown while the record is not terminal.
	Note string
	// Result must be set when moving to StatusDone.
	Result *models.ReportResult
	// FailureReason must be set when moving to StatusFailed.
	FailureReason string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger is an ordered set of ProcessingRecords keyed by student id.
type Ledger struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*models.ProcessingRecord
	now     func() time.Time
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		records: make(map[string]*models.ProcessingRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Seed creates one pending record per id, preserving order.
func (l *Ledger) Seed(ids ...string) error {
	roster := make(models.Roster, 0, len(ids))
	for _, id := range ids {
		roster = append(roster, models.StudentTask{ID: id})
	}
	return l.SeedRoster(roster)
}

// SeedRoster is Seed with student names echoed onto the records for display.
func (l *Ledger) SeedRoster(roster models.Roster) error {
	if err := roster.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.order) > 0 {
		return errors.New("ledger already seeded")
	}

	ts := l.now()
	for _, st := range roster {
		l.order = append(l.order, st.ID)
		l.records[st.ID] = &models.ProcessingRecord{
			ID:        st.ID,
			Name:      st.Name,
			Status:    models.StatusPending,
			UpdatedAt: ts,
		}
	}
	return nil
}

// Transition moves one record forward and returns a copy of the new record.
// Moving a terminal record, skipping a stage, or using an unknown id returns
// a *TransitionError.
func (l *Ledger) Transition(id string, to models.Status, u Update) (models.ProcessingRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.records[id]
	if !ok {
		return models.ProcessingRecord{}, &TransitionError{ID: id, To: to, Reason: "not in ledger"}
	}

	if err := ValidateTransition(cur.Status, to); err != nil {
		return models.ProcessingRecord{}, &TransitionError{ID: id, From: cur.Status, To: to, Reason: err.Error()}
	}
	if err := checkPayload(to, u); err != nil {
		return models.ProcessingRecord{}, &TransitionError{ID: id, From: cur.Status, To: to, Reason: err.Error()}
	}

	next := &models.ProcessingRecord{
		ID:        cur.ID,
		Name:      cur.Name,
		Status:    to,
		UpdatedAt: l.now(),
	}
	switch to {
	case models.StatusDone:
		res := *u.Result
		next.Result = &res
	case models.StatusFailed:
		next.FailureReason = u.FailureReason
	default:
		next.ProgressNote = u.Note
	}
	l.records[id] = next

	return copyRecord(next), nil
}

func checkPayload(to models.Status, u Update) error {
	switch to {
	case models.StatusDone:
		if u.Result == nil {
			return errors.New("result is required")
		}
		if u.FailureReason != "" {
			return errors.New("done record cannot carry a failure reason")
		}
	case models.StatusFailed:
		if u.FailureReason == "" {
			return errors.New("failure reason is required")
		}
		if u.Result != nil {
			return errors.New("failed record cannot carry a result")
		}
	default:
		if u.Result != nil || u.FailureReason != "" {
			return fmt.Errorf("%s record cannot carry a result or failure reason", to)
		}
	}
	return nil
}

// Snapshot returns a copy of every record in roster order.
func (l *Ledger) Snapshot() []models.ProcessingRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.ProcessingRecord, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, copyRecord(l.records[id]))
	}
	return out
}

// Get returns a copy of a single record.
func (l *Ledger) Get(id string) (models.ProcessingRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		return models.ProcessingRecord{}, false
	}
	return copyRecord(rec), true
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Complete reports whether every record is terminal.
func (l *Ledger) Complete() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, id := range l.order {
		if !l.records[id].Status.IsTerminal() {
			return false
		}
	}
	return true
}

func copyRecord(r *models.ProcessingRecord) models.ProcessingRecord {
	out := *r
	if r.Result != nil {
		res := *r.Result
		out.Result = &res
	}
	return out
}
