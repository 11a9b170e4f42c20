// Package progress derives the (current, total, active name) view of a batch.
package progress

import (
	"fmt"
	"sync"

	"github.com/gradeflow/gradeflow/internal/models"
)

// Tracker records batch advancement. Current only moves forward, one student
// at a time, and only once that student's record is terminal.
type Tracker struct {
	mu      sync.RWMutex
	total   int
	current int
	active  string
}

// NewTracker returns a tracker for a roster of the given size.
func NewTracker(total int) *Tracker {
	return &Tracker{total: total}
}

// Begin marks the student at the 1-based position as in flight.
func (t *Tracker) Begin(position int, name string) (models.BatchProgress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if position != t.current+1 || position > t.total {
		return t.snapshotLocked(), fmt.Errorf("cannot begin student %d of %d after %d", position, t.total, t.current)
	}
	t.active = name
	return t.snapshotLocked(), nil
}

// Finish advances current to the 1-based position and clears the active name.
func (t *Tracker) Finish(position int) (models.BatchProgress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if position != t.current+1 || position > t.total {
		return t.snapshotLocked(), fmt.Errorf("cannot finish student %d of %d after %d", position, t.total, t.current)
	}
	t.current = position
	t.active = ""
	return t.snapshotLocked(), nil
}

// Idle clears the active name without advancing, used when a batch stops early.
func (t *Tracker) Idle() models.BatchProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = ""
	return t.snapshotLocked()
}

// Snapshot returns the current view.
func (t *Tracker) Snapshot() models.BatchProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() models.BatchProgress {
	return models.BatchProgress{Current: t.current, Total: t.total, ActiveName: t.active}
}
