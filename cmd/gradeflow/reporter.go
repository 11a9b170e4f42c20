package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/mattn/go-runewidth"
)

const maxReasonWidth = 60

// statusIcon is the marker shown next to a student in CLI tables.
func statusIcon(s models.Status) string {
	switch s {
	case models.StatusDone:
		return "✓"
	case models.StatusFailed:
		return "✗"
	default:
		return "·"
	}
}

// printSummary writes the batch totals and a per-student table. Columns are
// padded by display width so names with wide characters stay aligned.
func printSummary(w io.Writer, outcome *models.BatchOutcome) {
	done, failed, pending := outcome.Counts()

	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " BATCH RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Batch:          %s\n", outcome.BatchID)
	fmt.Fprintf(w, "Students:       %d\n", len(outcome.Records))
	fmt.Fprintf(w, "Done:           %d\n", done)
	fmt.Fprintf(w, "Failed:         %d\n", failed)
	if pending > 0 {
		fmt.Fprintf(w, "Not processed:  %d\n", pending)
	}
	fmt.Fprintf(w, "Duration:       %s\n", formatDurationMs(outcome.Duration().Milliseconds()))
	if outcome.Canceled {
		fmt.Fprintln(w, "Canceled:       yes")
	}
	fmt.Fprintln(w)

	if len(outcome.Records) == 0 {
		return
	}

	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	fmt.Fprintln(w, " PER-STUDENT BREAKDOWN")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	fmt.Fprint(w, FormatStudentTable(outcome.Records))
	fmt.Fprintln(w)
}

// FormatStudentTable renders one row per record: marker, name, id, status
// and, for failures, the reason.
func FormatStudentTable(records []models.ProcessingRecord) string {
	nameWidth := runewidth.StringWidth("Student")
	idWidth := runewidth.StringWidth("ID")
	for _, r := range records {
		nameWidth = max(nameWidth, runewidth.StringWidth(r.Name))
		idWidth = max(idWidth, runewidth.StringWidth(r.ID))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    %s  %s  %s\n",
		runewidth.FillRight("Student", nameWidth),
		runewidth.FillRight("ID", idWidth),
		"Status")
	for _, r := range records {
		line := fmt.Sprintf("  %s %s  %s  %s",
			statusIcon(r.Status),
			runewidth.FillRight(r.Name, nameWidth),
			runewidth.FillRight(r.ID, idWidth),
			r.Status)
		if r.FailureReason != "" {
			line += "  " + runewidth.Truncate(r.FailureReason, maxReasonWidth, "...")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
