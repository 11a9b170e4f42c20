package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gradeflow/gradeflow/internal/models"
)

// ErrBatchNotFound is returned when a batch ID does not match any registered batch.
var ErrBatchNotFound = errors.New("batch not found")

// BatchView is read-only access to one batch. A running batch
// (orchestration.BatchRun) and a finished ledger file both satisfy it.
type BatchView interface {
	Progress() models.BatchProgress
	Records() []models.ProcessingRecord
	Record(id string) (models.ProcessingRecord, bool)
}

// Registry holds the batches exposed by the API. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	batches map[string]BatchView
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{batches: make(map[string]BatchView)}
}

// Add registers a batch, replacing any batch with the same id.
func (r *Registry) Add(id string, v BatchView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[id] = v
}

// Get returns a registered batch.
func (r *Registry) Get(id string) (BatchView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return v, nil
}

// IDs returns registered batch ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.batches))
	for id := range r.batches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OutcomeView serves a finished batch loaded from a ledger JSON file.
type OutcomeView struct {
	outcome *models.BatchOutcome
	byID    map[string]int
}

// NewOutcomeView wraps a finished outcome.
func NewOutcomeView(o *models.BatchOutcome) *OutcomeView {
	v := &OutcomeView{outcome: o, byID: make(map[string]int, len(o.Records))}
	for i, r := range o.Records {
		v.byID[r.ID] = i
	}
	return v
}

func (v *OutcomeView) Progress() models.BatchProgress { return v.outcome.Progress }

func (v *OutcomeView) Records() []models.ProcessingRecord {
	out := make([]models.ProcessingRecord, len(v.outcome.Records))
	copy(out, v.outcome.Records)
	return out
}

func (v *OutcomeView) Record(id string) (models.ProcessingRecord, bool) {
	i, ok := v.byID[id]
	if !ok {
		return models.ProcessingRecord{}, false
	}
	return v.outcome.Records[i], true
}

// LoadLedgerDir registers every ledger JSON file found directly in dir or
// one level below it (the layout written by reporting.WriteAll). Files that
// do not parse as a batch outcome are skipped. It returns the number of
// batches registered.
func (r *Registry) LoadLedgerDir(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}

	var paths []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading results directory: %w", err)
	}
	for _, e := range entries {
		switch {
		case e.IsDir():
			p := filepath.Join(dir, e.Name(), "ledger.json")
			if _, err := os.Stat(p); err == nil {
				paths = append(paths, p)
			}
		case strings.HasSuffix(e.Name(), ".json"):
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}

	n := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var outcome models.BatchOutcome
		if err := json.Unmarshal(data, &outcome); err != nil || outcome.BatchID == "" {
			continue
		}
		r.Add(outcome.BatchID, NewOutcomeView(&outcome))
		n++
	}
	return n, nil
}
