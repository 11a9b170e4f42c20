package ledger

import (
	"errors"
	"fmt"

	"github.com/gradeflow/gradeflow/internal/models"
)

// ErrInvalidTransition matches every *TransitionError via errors.Is.
var ErrInvalidTransition = errors.New("invalid record transition")

var allowedTransitions = map[models.Status]map[models.Status]struct{}{
	models.StatusPending: {
		models.StatusAnalyzing: {},
		models.StatusFailed:    {},
	},
	models.StatusAnalyzing: {
		models.StatusFormatting: {},
		models.StatusFailed:     {},
	},
	models.StatusFormatting: {
		models.StatusDone:   {},
		models.StatusFailed: {},
	},
	models.StatusDone:   {},
	models.StatusFailed: {},
}

// TransitionError is returned when a record cannot move to the requested
// status. It always indicates a bug in the caller.
type TransitionError struct {
	ID     string
	From   models.Status
	To     models.Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("record %q: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("record %q: invalid transition %s -> %s: %s", e.ID, e.From, e.To, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ValidateStatus reports whether s is a known record status.
func ValidateStatus(s models.Status) error {
	if _, ok := allowedTransitions[s]; !ok {
		return fmt.Errorf("invalid record status: %q", s)
	}
	return nil
}

// ValidateTransition reports whether a record may move from one status to another.
func ValidateTransition(from, to models.Status) error {
	if err := ValidateStatus(from); err != nil {
		return err
	}
	if err := ValidateStatus(to); err != nil {
		return err
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid record transition: %s -> %s", from, to)
	}
	return nil
}
