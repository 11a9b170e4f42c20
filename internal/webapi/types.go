package webapi

import (
	"time"

	"github.com/gradeflow/gradeflow/internal/models"
)

// BatchSummary is the API response for a single batch in the list.
type BatchSummary struct {
	ID       string               `json:"id"`
	Progress models.BatchProgress `json:"progress"`
	Done     int                  `json:"done"`
	Failed   int                  `json:"failed"`
	Pending  int                  `json:"pending"`
	Complete bool                 `json:"complete"`
}

// RecordSummary is a ledger record without the report body.
type RecordSummary struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Status        models.Status `json:"status"`
	ProgressNote  string        `json:"progressNote,omitempty"`
	FailureReason string        `json:"failureReason,omitempty"`
	HasReport     bool          `json:"hasReport"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func summarizeRecord(r models.ProcessingRecord) RecordSummary {
	return RecordSummary{
		ID:            r.ID,
		Name:          r.Name,
		Status:        r.Status,
		ProgressNote:  r.ProgressNote,
		FailureReason: r.FailureReason,
		HasReport:     r.Result != nil,
		UpdatedAt:     r.UpdatedAt,
	}
}

func summarizeBatch(id string, v BatchView) BatchSummary {
	s := BatchSummary{ID: id, Progress: v.Progress()}
	for _, r := range v.Records() {
		switch r.Status {
		case models.StatusDone:
			s.Done++
		case models.StatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	s.Complete = s.Pending == 0
	return s
}
