package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/gradeflow/gradeflow/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one batch.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one student.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a student whose report could not be produced.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a student that was never processed.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a BatchOutcome to JUnit XML format, one test case
// per student. Failed students are failures and unprocessed students are
// skipped.
func ConvertToJUnit(outcome *models.BatchOutcome) *JUnitTestSuites {
	durationSec := outcome.Duration().Seconds()
	done, failed, pending := outcome.Counts()

	name := outcome.Name
	if name == "" {
		name = outcome.BatchID
	}

	suite := JUnitTestSuite{
		Name:      name,
		Tests:     len(outcome.Records),
		Failures:  failed,
		Skipped:   pending,
		Time:      durationSec,
		Timestamp: outcome.StartedAt.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "batch_id", Value: outcome.BatchID},
			{Name: "model", Value: outcome.ModelID},
			{Name: "done", Value: fmt.Sprintf("%d", done)},
			{Name: "canceled", Value: fmt.Sprintf("%t", outcome.Canceled)},
		},
	}

	for i := range outcome.Records {
		suite.TestCases = append(suite.TestCases, convertRecord(name, &outcome.Records[i]))
	}

	return &JUnitTestSuites{
		Tests:      len(outcome.Records),
		Failures:   failed,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertRecord(batch string, rec *models.ProcessingRecord) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      fmt.Sprintf("%s (%s)", rec.Name, rec.ID),
		Classname: batch,
	}

	switch rec.Status {
	case models.StatusDone:
	case models.StatusFailed:
		tc.Failure = &JUnitFailure{
			Message: rec.FailureReason,
			Type:    "GradingFailure",
			Body:    rec.FailureReason,
		}
	default:
		tc.Skipped = &JUnitSkipped{Message: "not processed"}
	}

	return tc
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(outcome *models.BatchOutcome, path string) error {
	suites := ConvertToJUnit(outcome)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
