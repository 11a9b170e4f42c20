package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/gradeflow/gradeflow/internal/models"
)

// FilterRoster returns the students whose ID or Name matches at least one of
// the given glob patterns, in roster order. An empty patterns slice returns
// the roster unchanged. Used to re-issue a batch for selected students.
func FilterRoster(roster models.Roster, patterns []string) (models.Roster, error) {
	if len(patterns) == 0 {
		return roster, nil
	}

	var matched models.Roster
	for _, st := range roster {
		ok, err := matchesAny(st, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, st)
		}
	}
	return matched, nil
}

// matchesAny reports whether a student's Name or ID matches any pattern.
func matchesAny(st models.StudentTask, patterns []string) (bool, error) {
	for _, p := range patterns {
		nameMatch, err := filepath.Match(p, st.Name)
		if err != nil {
			return false, fmt.Errorf("invalid student filter pattern %q: %w", p, err)
		}
		if nameMatch {
			return true, nil
		}
		idMatch, err := filepath.Match(p, st.ID)
		if err != nil {
			return false, fmt.Errorf("invalid student filter pattern %q: %w", p, err)
		}
		if idMatch {
			return true, nil
		}
	}
	return false, nil
}
