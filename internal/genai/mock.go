package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MockOptions configures the offline mock backend.
type MockOptions struct {
	// Response replaces the generated text when set.
	Response string `mapstructure:"response"`
	// FailOn makes any request whose prompt contains this text fail.
	FailOn  string   `mapstructure:"fail_on"`
	Sources []Source `mapstructure:"sources"`
}

// Mock is a deterministic backend that never leaves the process.
type Mock struct {
	modelID string
	opts    MockOptions
}

// NewMock creates a mock backend.
func NewMock(modelID string, opts MockOptions) *Mock {
	return &Mock{modelID: modelID, opts: opts}
}

func (m *Mock) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("nil req was passed to Mock.Generate")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	if m.opts.FailOn != "" && strings.Contains(req.Prompt, m.opts.FailOn) {
		return nil, fmt.Errorf("mock failure: prompt contains %q", m.opts.FailOn)
	}

	text := m.opts.Response
	if text == "" {
		first, _, _ := strings.Cut(strings.TrimSpace(req.Prompt), "\n")
		text = fmt.Sprintf("Mock response for: %s", first)
		if len(req.Attachments) > 0 {
			text += fmt.Sprintf("\nAnalyzed %d document(s)", len(req.Attachments))
		}
	}

	resp := &Response{
		Text:       text,
		Model:      modelOr(req, m.modelID),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if req.Grounding {
		resp.Sources = DedupeSources(m.opts.Sources)
	}
	return resp, nil
}

func (m *Mock) Shutdown(ctx context.Context) error {
	return nil
}
