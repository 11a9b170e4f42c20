// Package genai is the narrow request/response contract gradeflow uses to
// talk to a text-generation service, plus the backends that implement it.
package genai

//go:generate go tool mockgen -source=genai.go -destination=generator_mocks.go -package=genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gradeflow/gradeflow/internal/models"
)

// Type selects a Generator backend.
type Type string

const (
	TypeGemini  Type = "gemini"
	TypeOpenAI  Type = "openai"
	TypeCopilot Type = "copilot"
	TypeMock    Type = "mock"
)

// ErrEmptyResponse is returned when the service answered without any text.
var ErrEmptyResponse = errors.New("empty response from generation service")

// Request is one generation round trip.
type Request struct {
	Model  string
	System string
	Prompt string
	// Attachments are sent inline, in order, before the prompt text.
	Attachments []models.Payload
	// Grounding asks the service to consult external search when answering.
	Grounding bool
}

// Source is a reference the service consulted while answering a grounded request.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// Response is the service's answer.
type Response struct {
	Text       string
	Sources    []Source
	Model      string
	DurationMs int64
}

// Generator is implemented by every backend.
type Generator interface {
	// Generate performs one blocking round trip.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Shutdown releases any resources held by the backend.
	Shutdown(ctx context.Context) error
}

// APIError is a non-success status returned by a REST backend.
type APIError struct {
	Backend    Type
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Backend, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Backend, e.StatusCode, e.Message)
}

// Config selects and configures a backend. Options are backend specific and
// decoded into the backend's options struct.
type Config struct {
	Type    Type
	Model   string
	Options map[string]any
}

// New creates a Generator from config.
func New(cfg Config, logger *slog.Logger) (Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Type {
	case TypeGemini, "":
		var opts GeminiOptions
		if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("gemini options: %w", err)
		}
		return NewGemini(cfg.Model, opts, logger)
	case TypeOpenAI:
		var opts OpenAIOptions
		if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("openai options: %w", err)
		}
		return NewOpenAI(cfg.Model, opts, logger), nil
	case TypeCopilot:
		var opts CopilotOptions
		if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("copilot options: %w", err)
		}
		return NewCopilotBuilder(cfg.Model, opts, nil).WithLogger(logger).Build(), nil
	case TypeMock:
		var opts MockOptions
		if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("mock options: %w", err)
		}
		return NewMock(cfg.Model, opts), nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Type)
	}
}

// DedupeSources drops repeated URIs, keeping first-seen order.
func DedupeSources(sources []Source) []Source {
	seen := make(map[string]bool, len(sources))
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.URI == "" || seen[s.URI] {
			continue
		}
		seen[s.URI] = true
		out = append(out, s)
	}
	return out
}

func modelOr(req *Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	return fallback
}
