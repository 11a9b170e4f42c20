package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/gradeflow/gradeflow/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCommand_NonInteractive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "algebra-midterm")

	stdout, _, err := executeCommand(t, "", "init", dir, "--description", "Algebra I midterm", "--generator", "mock")
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(dir, defaultBatchFile))
	assert.Contains(t, stdout, filepath.Join(dir, "students.csv"))

	batchPath := filepath.Join(dir, defaultBatchFile)
	batchErrs, rosterErrs, err := validation.ValidateBatchFile(batchPath)
	require.NoError(t, err)
	assert.Empty(t, batchErrs)
	assert.Empty(t, rosterErrs)

	spec, err := models.LoadBatchSpec(batchPath)
	require.NoError(t, err)
	assert.Equal(t, "algebra-midterm", spec.Name)
	assert.Equal(t, "Algebra I midterm", spec.Exam.Description)
	assert.Equal(t, "mock", spec.Generator.Type)
	assert.Equal(t, filepath.Join(dir, "students.csv"), spec.StudentsFrom)
}

func TestInitCommand_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()

	_, _, err := executeCommand(t, "", "init", dir, "--name", "first", "--description", "Exam")
	require.NoError(t, err)

	_, _, err = executeCommand(t, "", "init", dir, "--name", "second", "--description", "Exam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = executeCommand(t, "", "init", dir, "--name", "second", "--description", "Exam", "--force")
	require.NoError(t, err)

	spec, err := models.LoadBatchSpec(filepath.Join(dir, defaultBatchFile))
	require.NoError(t, err)
	assert.Equal(t, "second", spec.Name)
}

func TestInitCommand_KeepsExistingRoster(t *testing.T) {
	dir := t.TempDir()
	roster := "id,name,solutions\nx1,Existing,a.pdf\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "students.csv"), []byte(roster), 0o644))

	_, _, err := executeCommand(t, "", "init", dir, "--name", "keep", "--description", "Exam")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "students.csv"))
	require.NoError(t, err)
	assert.Equal(t, roster, string(data))
}

func TestInitCommand_InvalidName(t *testing.T) {
	_, _, err := executeCommand(t, "", "init", t.TempDir(), "--name", "has space", "--description", "Exam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not contain spaces")
}
