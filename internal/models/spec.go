package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gradeflow/gradeflow/internal/hooks"
	"gopkg.in/yaml.v3"
)

// BatchSpec is the contents of a batch.yaml file.
type BatchSpec struct {
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description,omitempty"`
	Exam         ExamSpec          `yaml:"exam"`
	Generator    GeneratorSpec     `yaml:"generator,omitempty"`
	Students     []StudentTask     `yaml:"students,omitempty"`
	StudentsFrom string            `yaml:"students_from,omitempty"`
	Hooks        hooks.HooksConfig `yaml:"hooks,omitempty"`
	Output       OutputSpec        `yaml:"output,omitempty"`
}

// ExamSpec describes the exam shared by every student in the batch.
type ExamSpec struct {
	Description string `yaml:"description"`
	Criteria    string `yaml:"criteria,omitempty"`
	// CriteriaTemplate names a stored template used when Criteria is empty.
	CriteriaTemplate string     `yaml:"criteria_template,omitempty"`
	Model            string     `yaml:"model,omitempty"`
	Materials        []Document `yaml:"materials,omitempty"`
}

// GeneratorSpec selects the text-generation backend.
type GeneratorSpec struct {
	Type    string         `yaml:"type,omitempty"`
	Model   string         `yaml:"model,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// OutputSpec controls which files are written after the batch finishes.
type OutputSpec struct {
	Dir   string `yaml:"dir,omitempty"`
	XLSX  bool   `yaml:"xlsx,omitempty"`
	JUnit bool   `yaml:"junit,omitempty"`
	HTML  bool   `yaml:"html,omitempty"`
}

// LoadBatchSpec loads a batch file, resolving relative document paths
// against the file's directory.
func LoadBatchSpec(path string) (*BatchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec BatchSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	spec.ResolvePaths(filepath.Dir(path))
	return &spec, nil
}

// Validate checks the parts of the batch file that can be checked without
// touching the filesystem.
func (s *BatchSpec) Validate() error {
	if strings.TrimSpace(s.Exam.Description) == "" {
		return errors.New("exam.description is required")
	}
	if len(s.Students) == 0 && s.StudentsFrom == "" {
		return errors.New("either students or students_from must be set")
	}
	if err := Roster(s.Students).Validate(); err != nil {
		return fmt.Errorf("students: %w", err)
	}
	return nil
}

// ResolvePaths rewrites relative local document sources (and students_from)
// to be relative to baseDir. URIs with a scheme are left alone.
func (s *BatchSpec) ResolvePaths(baseDir string) {
	for i := range s.Exam.Materials {
		s.Exam.Materials[i].Source = resolveSource(baseDir, s.Exam.Materials[i].Source)
	}
	for i := range s.Students {
		for j := range s.Students[i].Solutions {
			s.Students[i].Solutions[j].Source = resolveSource(baseDir, s.Students[i].Solutions[j].Source)
		}
	}
	if s.StudentsFrom != "" {
		s.StudentsFrom = resolveSource(baseDir, s.StudentsFrom)
	}
	if s.Output.Dir != "" {
		s.Output.Dir = resolveSource(baseDir, s.Output.Dir)
	}
}

// ModelID is the exam model, falling back to the generator model.
func (s *BatchSpec) ModelID() string {
	if s.Exam.Model != "" {
		return s.Exam.Model
	}
	return s.Generator.Model
}

// ExamContext builds the shared context for a run. criteria overrides the
// criteria text in the file when non-empty.
func (s *BatchSpec) ExamContext(criteria string) ExamContext {
	if criteria == "" {
		criteria = s.Exam.Criteria
	}
	return ExamContext{
		Description: s.Exam.Description,
		Criteria:    criteria,
		ModelID:     s.ModelID(),
		Materials:   s.Exam.Materials,
	}
}

func resolveSource(baseDir, src string) string {
	if src == "" || strings.Contains(src, "://") || filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(baseDir, src)
}
