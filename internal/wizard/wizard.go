// Package wizard runs the interactive form behind `gradeflow init`.
package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/gradeflow/gradeflow/internal/genai"
	"github.com/gradeflow/gradeflow/internal/models"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// BatchAnswers holds all fields collected during the interactive wizard.
type BatchAnswers struct {
	Name            string
	ExamDescription string
	Materials       []string
	Generator       genai.Type
	Model           string
	StudentsFrom    string
}

const batchHeader = `# gradeflow batch file
# Run with: gradeflow run %s
# Students can be listed inline under "students:" instead of students_from.
`

// IsInteractive reports whether r is a terminal.
func IsInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// RunBatchWizard runs an interactive huh form to collect a starter batch.
// If initialName is non-empty, it pre-populates the name field.
func RunBatchWizard(in io.Reader, out io.Writer, initialName string) (*BatchAnswers, error) {
	var (
		name         = initialName
		description  string
		materialsRaw string
		generator    = string(genai.TypeGemini)
		model        string
		studentsFrom = "students.csv"
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Batch name").
				Placeholder("algebra-midterm").
				Value(&name).
				Validate(ValidateName),
			huh.NewInput().
				Title("Exam description").
				Description("Which exam is being graded?").
				Placeholder("Algebra I midterm, spring term").
				Value(&description).
				Validate(required("exam description")),
			huh.NewInput().
				Title("Exam materials").
				Description("Comma-separated files: the exam paper, answer key, etc.").
				Placeholder("exam.pdf, answer-key.pdf").
				Value(&materialsRaw),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Generation backend").
				Options(
					huh.NewOption("Gemini", string(genai.TypeGemini)),
					huh.NewOption("OpenAI", string(genai.TypeOpenAI)),
					huh.NewOption("GitHub Copilot", string(genai.TypeCopilot)),
					huh.NewOption("Mock (offline)", string(genai.TypeMock)),
				).
				Value(&generator),
			huh.NewInput().
				Title("Model").
				Description("Leave empty to use the preferred model").
				Value(&model),
			huh.NewInput().
				Title("Roster CSV").
				Description("Columns: id,name,email,solutions,instructions").
				Value(&studentsFrom).
				Validate(required("roster CSV")),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if !IsInteractive(in) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	return &BatchAnswers{
		Name:            strings.TrimSpace(name),
		ExamDescription: strings.TrimSpace(description),
		Materials:       splitAndTrim(materialsRaw),
		Generator:       genai.Type(generator),
		Model:           strings.TrimSpace(model),
		StudentsFrom:    strings.TrimSpace(studentsFrom),
	}, nil
}

// ValidateName checks a batch name: non-empty, no whitespace or path separators.
func ValidateName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("batch name is required")
	}
	if strings.ContainsAny(s, " \t/\\") {
		return fmt.Errorf("batch name %q must not contain spaces or path separators", s)
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// Spec converts answers into a batch spec.
func (a *BatchAnswers) Spec() *models.BatchSpec {
	spec := &models.BatchSpec{
		Name: a.Name,
		Exam: models.ExamSpec{
			Description: a.ExamDescription,
			Model:       a.Model,
		},
		Generator:    models.GeneratorSpec{Type: string(a.Generator)},
		StudentsFrom: a.StudentsFrom,
		Output:       models.OutputSpec{Dir: "results", HTML: true},
	}
	for _, m := range a.Materials {
		spec.Exam.Materials = append(spec.Exam.Materials, models.Document{Source: m})
	}
	return spec
}

// GenerateBatchYAML renders a commented batch.yaml from the answers.
func GenerateBatchYAML(a *BatchAnswers, fileName string) (string, error) {
	data, err := yaml.Marshal(a.Spec())
	if err != nil {
		return "", fmt.Errorf("failed to render batch file: %w", err)
	}
	return fmt.Sprintf(batchHeader, fileName) + string(data), nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
