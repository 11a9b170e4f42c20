package utils

import (
	"context"
	"log/slog"
	"unicode/utf8"

	copilot "github.com/github/copilot-sdk/go"
)

// previewLen bounds how much generated text lands in a single debug line.
const previewLen = 200

// SessionToSlog logs copilot session events at debug level. Intended to be
// passed to [copilot.Session.On].
func SessionToSlog(event copilot.SessionEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"type", event.Type,
	}

	if event.Data.Content != nil {
		attrs = append(attrs, "content", Preview(*event.Data.Content, previewLen))
	}
	attrs = addIf(attrs, "message", event.Data.Message)
	attrs = addIf(attrs, "toolName", event.Data.ToolName)
	attrs = addIf(attrs, "reasoningText", event.Data.ReasoningText)

	slog.Debug("copilot event", attrs...)
}

// Preview shortens s to at most n runes, marking the cut with an ellipsis.
func Preview(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}
