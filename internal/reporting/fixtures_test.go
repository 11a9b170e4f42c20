package reporting

import (
	"time"

	"github.com/gradeflow/gradeflow/internal/models"
)

var testStart = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestOutcome() *models.BatchOutcome {
	return &models.BatchOutcome{
		BatchID:    "batch-1",
		Name:       "Algebra Midterm",
		ModelID:    "gemini-2.5-pro",
		StartedAt:  testStart,
		FinishedAt: testStart.Add(3500 * time.Millisecond),
		Records: []models.ProcessingRecord{
			{
				ID:     "s1",
				Name:   "Alice",
				Status: models.StatusDone,
				Result: &models.ReportResult{
					Content:         "<h1>Alice</h1><p>Total: 18/20</p>",
					StudentName:     "Alice",
					StudentEmail:    "alice@example.com",
					ExamDescription: "Algebra midterm",
					GeneratedAt:     testStart.Add(time.Second),
				},
			},
			{
				ID:            "s2",
				Name:          "Bob",
				Status:        models.StatusFailed,
				FailureReason: "missing required input",
			},
			{
				ID:     "s3",
				Name:   "Cleo",
				Status: models.StatusPending,
			},
		},
		Progress: models.BatchProgress{Current: 2, Total: 3},
		Canceled: true,
	}
}
