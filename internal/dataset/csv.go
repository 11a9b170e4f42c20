// Package dataset imports student rosters from CSV files.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/gradeflow/gradeflow/internal/utils"
)

// Roster CSV columns. Only name is required.
const (
	ColumnID           = "id"
	ColumnName         = "name"
	ColumnEmail        = "email"
	ColumnSolutions    = "solutions"
	ColumnInstructions = "instructions"
)

// SolutionSeparator separates document sources within the solutions column.
const SolutionSeparator = ";"

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names). Header names are
// trimmed and lowercased.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = strings.TrimSpace(record[j])
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// LoadRoster reads a roster CSV. Relative solution paths are resolved
// against the CSV file's directory.
func LoadRoster(path string) (models.Roster, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}
	roster, err := RowsToRoster(rows, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", path, err)
	}
	return roster, nil
}

// RowsToRoster converts CSV rows to students in row order. Rows without an
// id get a generated one.
func RowsToRoster(rows []Row, baseDir string) (models.Roster, error) {
	roster := make(models.Roster, 0, len(rows))
	for i, row := range rows {
		name := row[ColumnName]
		if name == "" {
			return nil, fmt.Errorf("row %d: %s is required", i+2, ColumnName)
		}

		id := row[ColumnID]
		if id == "" {
			id = uuid.NewString()
		}

		st := models.StudentTask{
			ID:           id,
			Name:         name,
			Email:        row[ColumnEmail],
			Instructions: row[ColumnInstructions],
		}
		for _, src := range utils.ResolvePaths(strings.Split(row[ColumnSolutions], SolutionSeparator), baseDir) {
			st.Solutions = append(st.Solutions, models.Document{Source: src})
		}
		roster = append(roster, st)
	}

	if err := roster.Validate(); err != nil {
		return nil, err
	}
	return roster, nil
}

// LoadRosterRange returns students in the given range [start, end]
// (1-based, inclusive). Row 1 is the first data row (after headers).
func LoadRosterRange(path string, start, end int) (models.Roster, error) {
	if start < 1 {
		return nil, fmt.Errorf("csv: range start must be >= 1, got %d", start)
	}
	if end < start {
		return nil, fmt.Errorf("csv: range end (%d) must be >= start (%d)", end, start)
	}

	roster, err := LoadRoster(path)
	if err != nil {
		return nil, err
	}

	// Clamp end to available rows
	if end > len(roster) {
		end = len(roster)
	}

	// If start is beyond available rows, return empty
	if start > len(roster) {
		return models.Roster{}, nil
	}

	return roster[start-1 : end], nil
}

// ParseRange parses "start-end" or a single "n".
func ParseRange(s string) (start, end int, err error) {
	s = strings.TrimSpace(s)
	if a, b, ok := strings.Cut(s, "-"); ok {
		if _, err := fmt.Sscanf(a+" "+b, "%d %d", &start, &end); err != nil {
			return 0, 0, fmt.Errorf("invalid range %q: expected start-end", s)
		}
		return start, end, nil
	}
	if _, err := fmt.Sscanf(s, "%d", &start); err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: expected start-end", s)
	}
	return start, start, nil
}
