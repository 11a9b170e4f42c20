// Package reporting writes batch outcomes to disk: the ledger as JSON,
// per-student HTML reports, an XLSX summary and JUnit XML.
package reporting

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gradeflow/gradeflow/internal/models"
)

// File names written under the output directory.
const (
	LedgerFile = "ledger.json"
	XLSXFile   = "summary.xlsx"
	JUnitFile  = "junit.xml"
	ReportsDir = "reports"
)

// Outputs selects optional files. The ledger is always written.
type Outputs struct {
	HTML  bool
	XLSX  bool
	JUnit bool
}

// WriteLedgerJSON writes the outcome, including every record, as indented JSON.
func WriteLedgerJSON(outcome *models.BatchOutcome, path string) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReportFileName is the file name used for a student's HTML report.
func ReportFileName(id string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
	return strings.TrimLeft(safe, ".") + ".html"
}

// WriteAll writes the selected outputs under dir and returns the paths
// written.
func WriteAll(outcome *models.BatchOutcome, dir string, out Outputs, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var written []string

	ledgerPath := filepath.Join(dir, LedgerFile)
	if err := WriteLedgerJSON(outcome, ledgerPath); err != nil {
		return written, err
	}
	written = append(written, ledgerPath)

	if out.HTML {
		reportsDir := filepath.Join(dir, ReportsDir)
		if err := os.MkdirAll(reportsDir, 0755); err != nil {
			return written, fmt.Errorf("creating reports directory: %w", err)
		}
		for i := range outcome.Records {
			rec := &outcome.Records[i]
			if rec.Status != models.StatusDone {
				continue
			}
			page, err := RenderReportPage(rec)
			if err != nil {
				return written, err
			}
			p := filepath.Join(reportsDir, ReportFileName(rec.ID))
			if err := os.WriteFile(p, []byte(page), 0644); err != nil {
				return written, fmt.Errorf("writing report for %s: %w", rec.ID, err)
			}
			written = append(written, p)
		}
	}

	if out.XLSX {
		data, err := BuildXLSX(outcome)
		if err != nil {
			return written, err
		}
		p := filepath.Join(dir, XLSXFile)
		if err := os.WriteFile(p, data, 0644); err != nil {
			return written, fmt.Errorf("writing xlsx: %w", err)
		}
		written = append(written, p)
	}

	if out.JUnit {
		p := filepath.Join(dir, JUnitFile)
		if err := WriteJUnitXML(outcome, p); err != nil {
			return written, err
		}
		written = append(written, p)
	}

	logger.Info("outputs written", "dir", dir, "files", len(written))
	return written, nil
}
