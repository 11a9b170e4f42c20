package models

import "time"

// Status is the processing state of one student's record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusFormatting Status = "formatting"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// ReportResult is the final output for a student that reached StatusDone.
type ReportResult struct {
	Content         string    `json:"content"`
	StudentName     string    `json:"student_name"`
	StudentEmail    string    `json:"student_email,omitempty"`
	ExamDescription string    `json:"exam_description"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// ProcessingRecord tracks one student through the grade and format stages.
// Result is set only for StatusDone and FailureReason only for StatusFailed.
type ProcessingRecord struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Status        Status        `json:"status"`
	ProgressNote  string        `json:"progress_note,omitempty"`
	Result        *ReportResult `json:"result,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// RecordUpdate is emitted every time a record changes state.
type RecordUpdate struct {
	ID            string `json:"id"`
	Status        Status `json:"status"`
	Note          string `json:"note,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// BatchProgress is the observer view of a running batch. Current is the
// 1-based position of the student in flight or last completed.
type BatchProgress struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	ActiveName string `json:"active_name,omitempty"`
}

// Complete reports whether every student has been processed.
func (p BatchProgress) Complete() bool {
	return p.Current == p.Total && p.ActiveName == ""
}

// BatchOutcome is the final state of a batch run.
type BatchOutcome struct {
	BatchID    string             `json:"batch_id"`
	Name       string             `json:"name,omitempty"`
	ModelID    string             `json:"model_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Records    []ProcessingRecord `json:"records"`
	Progress   BatchProgress      `json:"progress"`
	Canceled   bool               `json:"canceled,omitempty"`
}

// Counts tallies records by outcome.
func (o *BatchOutcome) Counts() (done, failed, pending int) {
	for _, r := range o.Records {
		switch r.Status {
		case StatusDone:
			done++
		case StatusFailed:
			failed++
		default:
			pending++
		}
	}
	return done, failed, pending
}

// Duration is the wall time between start and finish.
func (o *BatchOutcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
