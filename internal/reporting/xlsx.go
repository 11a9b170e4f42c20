package reporting

import (
	"fmt"
	"time"

	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/xuri/excelize/v2"
)

// SummarySheet is the name of the worksheet written by BuildXLSX.
const SummarySheet = "Students"

var xlsxHeaders = []string{
	"Student ID",
	"Name",
	"Email",
	"Status",
	"Failure Reason",
	"Generated At",
}

// BuildXLSX returns a spreadsheet with one row per student in roster order.
func BuildXLSX(outcome *models.BatchOutcome) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if index, _ := f.GetSheetIndex(SummarySheet); index == -1 {
		if _, err := f.NewSheet(SummarySheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(SummarySheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet so the summary is the only one
	_ = f.DeleteSheet("Sheet1")

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SummarySheet, cell, h)
	}

	for i, r := range outcome.Records {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SummarySheet, cell, v)
		}

		write(1, r.ID)
		write(2, r.Name)
		email, generated := "", ""
		if r.Result != nil {
			email = r.Result.StudentEmail
			generated = r.Result.GeneratedAt.Format(time.RFC3339)
		}
		write(3, email)
		write(4, string(r.Status))
		write(5, r.FailureReason)
		write(6, generated)
	}

	_ = f.SetColWidth(SummarySheet, "A", "A", 16) // id
	_ = f.SetColWidth(SummarySheet, "B", "C", 28) // name, email
	_ = f.SetColWidth(SummarySheet, "D", "D", 12) // status
	_ = f.SetColWidth(SummarySheet, "E", "E", 60) // reason
	_ = f.SetColWidth(SummarySheet, "F", "F", 24) // generated

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
