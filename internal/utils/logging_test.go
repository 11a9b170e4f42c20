package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToSlogDebugDisabled(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(old)
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	SessionToSlog(copilot.SessionEvent{Type: copilot.SessionEventType("message")})
	assert.Equal(t, 0, buf.Len())
}

func TestSessionToSlogDebugEnabled(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(old)
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	content := strings.Repeat("a", previewLen+10)
	message := "quota exceeded"

	SessionToSlog(copilot.SessionEvent{
		Type: copilot.SessionError,
		Data: copilot.Data{
			Content: &content,
			Message: &message,
		},
	})

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "copilot event", logEntry["msg"])
	assert.Equal(t, string(copilot.SessionError), logEntry["type"])
	assert.Equal(t, message, logEntry["message"])
	assert.Equal(t, strings.Repeat("a", previewLen)+"…", logEntry["content"])
	assert.NotContains(t, logEntry, "toolName")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "héll…", Preview("héllo", 4))
	assert.Equal(t, "unbounded", Preview("unbounded", 0))
}

func TestAddIf(t *testing.T) {
	attrs := []any{"existing", "value"}

	result := addIf(attrs, "missing", (*int)(nil))
	assert.Equal(t, attrs, result)

	v := 7
	result = addIf(attrs, "number", &v)
	assert.Equal(t, []any{"existing", "value", "number", 7}, result)
}
