package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/gradeflow/gradeflow/internal/models"
)

// InterpretCompletion returns a plain-language label for the share of
// students that received a report.
func InterpretCompletion(done, total int) string {
	if total == 0 {
		return "No students in batch"
	}
	pct := float64(done) / float64(total) * 100
	switch {
	case done == total:
		return fmt.Sprintf("All reports generated (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most reports generated (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the reports generated (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few reports generated (%.0f%%)", pct)
	}
}

// FormatSummaryReport produces a plain-language summary of a batch.
func FormatSummaryReport(outcome *models.BatchOutcome) string {
	var b strings.Builder

	done, failed, pending := outcome.Counts()
	total := len(outcome.Records)

	b.WriteString("=== Batch Summary ===\n\n")
	fmt.Fprintf(&b, "Students: %d (done %d, failed %d, not processed %d)\n", total, done, failed, pending)
	fmt.Fprintf(&b, "Result: %s\n", InterpretCompletion(done, total))
	if outcome.ModelID != "" {
		fmt.Fprintf(&b, "Model: %s\n", outcome.ModelID)
	}
	fmt.Fprintf(&b, "Duration: %s\n", outcome.Duration().Round(time.Millisecond))
	if outcome.Canceled {
		b.WriteString("The batch was canceled before every student was processed.\n")
	}

	if failed > 0 {
		b.WriteString("\nFailed students:\n")
		for _, r := range outcome.Records {
			if r.Status == models.StatusFailed {
				fmt.Fprintf(&b, "  - %s (%s): %s\n", r.Name, r.ID, r.FailureReason)
			}
		}
	}

	return b.String()
}
