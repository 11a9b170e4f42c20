package genai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAttachments(t *testing.T) {
	dir := t.TempDir()

	names, err := writeAttachments(dir, []models.Payload{
		{Name: "same.txt", Data: "YQ=="},
		{Name: "same.txt", Data: "Yg=="},
		{Name: "../../escape.txt", Data: "Yw=="},
		{Name: `C:\docs\win.txt`, Data: "ZA=="},
		{Data: "ZQ=="},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"01-same.txt", "02-same.txt", "03-escape.txt", "04-win.txt", "05-document"}, names)

	for i, want := range []string{"a", "b", "c", "d", "e"} {
		data, err := os.ReadFile(filepath.Join(dir, names[i]))
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestWriteAttachments_Errors(t *testing.T) {
	_, err := writeAttachments("", nil)
	require.ErrorContains(t, err, "workspace is not set")

	_, err = writeAttachments(t.TempDir(), []models.Payload{{Name: "x", Data: "not base64!"}})
	require.ErrorContains(t, err, "decoding attachment")
}
