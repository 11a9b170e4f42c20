package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeBatch(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBatchSpec(t *testing.T) {
	path := writeBatch(t, `
name: midterm
exam:
  description: Calculus midterm
  criteria: "Problem 1: 10 pts"
  materials:
    - source: exam.pdf
    - source: azblob://exams/key.pdf
generator:
  type: mock
  model: gemini-2.5-flash
students:
  - id: s1
    name: Ada
    email: ada@example.com
    solutions:
      - source: sub/ada.pdf
hooks:
  before_batch:
    - command: "echo start"
output:
  dir: out
  xlsx: true
`)

	spec, err := LoadBatchSpec(path)
	if err != nil {
		t.Fatalf("LoadBatchSpec: %v", err)
	}
	base := filepath.Dir(path)

	if spec.Name != "midterm" {
		t.Errorf("Name = %q", spec.Name)
	}
	if got := spec.Exam.Materials[0].Source; got != filepath.Join(base, "exam.pdf") {
		t.Errorf("material source not resolved: %q", got)
	}
	if got := spec.Exam.Materials[1].Source; got != "azblob://exams/key.pdf" {
		t.Errorf("URI source should be untouched: %q", got)
	}
	if got := spec.Students[0].Solutions[0].Source; got != filepath.Join(base, "sub", "ada.pdf") {
		t.Errorf("solution source not resolved: %q", got)
	}
	if spec.Output.Dir != filepath.Join(base, "out") || !spec.Output.XLSX {
		t.Errorf("unexpected output: %+v", spec.Output)
	}
	if len(spec.Hooks.BeforeBatch) != 1 {
		t.Errorf("expected 1 before_batch hook, got %d", len(spec.Hooks.BeforeBatch))
	}
	if spec.ModelID() != "gemini-2.5-flash" {
		t.Errorf("ModelID() = %q, want generator model fallback", spec.ModelID())
	}
}

func TestLoadBatchSpec_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing description",
			yaml:    "exam: {}\nstudents:\n  - id: a\n    name: A\n",
			wantErr: "exam.description",
		},
		{
			name:    "no students",
			yaml:    "exam:\n  description: x\n",
			wantErr: "students_from",
		},
		{
			name:    "duplicate ids",
			yaml:    "exam:\n  description: x\nstudents:\n  - id: a\n    name: A\n  - id: a\n    name: B\n",
			wantErr: "duplicate student id",
		},
		{
			name:    "bad yaml",
			yaml:    "exam: [",
			wantErr: "parsing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBatchSpec(writeBatch(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBatchSpec_ExamContext(t *testing.T) {
	spec := &BatchSpec{
		Exam: ExamSpec{
			Description: "Physics final",
			Criteria:    "from file",
			Model:       "exam-model",
			Materials:   []Document{{Source: "a.pdf"}},
		},
		Generator: GeneratorSpec{Model: "generator-model"},
	}

	ec := spec.ExamContext("")
	if ec.Criteria != "from file" || ec.ModelID != "exam-model" || len(ec.Materials) != 1 {
		t.Errorf("unexpected context: %+v", ec)
	}
	if got := spec.ExamContext("override").Criteria; got != "override" {
		t.Errorf("criteria override ignored: %q", got)
	}
}
