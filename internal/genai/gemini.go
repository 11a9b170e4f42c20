package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiOptions configures the Gemini REST backend.
type GeminiOptions struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	Temperature    float64 `mapstructure:"temperature"`
}

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	client       *resty.Client
	defaultModel string
	temperature  float64
	logger       *slog.Logger
}

// NewGemini creates a Gemini backend. An API key is required.
func NewGemini(defaultModel string, opts GeminiOptions, logger *slog.Logger) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini: api_key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGeminiBaseURL
	}
	timeout := 5 * time.Minute
	if opts.TimeoutSeconds > 0 {
		timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("x-goog-api-key", opts.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Gemini{
		client:       client,
		defaultModel: defaultModel,
		temperature:  opts.Temperature,
		logger:       logger,
	}, nil
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	Tools             []map[string]any        `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generation_config,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content           geminiContent `json:"content"`
		FinishReason      string        `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *Gemini) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("nil req was passed to Gemini.Generate")
	}
	model := modelOr(req, g.defaultModel)
	if model == "" {
		return nil, errors.New("gemini: model is required")
	}

	start := time.Now()

	parts := make([]geminiPart, 0, len(req.Attachments)+1)
	for _, a := range req.Attachments {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: a.MediaType, Data: a.Data}})
	}
	parts = append(parts, geminiPart{Text: req.Prompt})

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.Grounding {
		body.Tools = []map[string]any{{"google_search": map[string]any{}}}
	}
	if g.temperature > 0 {
		body.GenerationConfig = &geminiGenerationConfig{Temperature: g.temperature}
	}

	endpoint := fmt.Sprintf("/v1beta/models/%s:generateContent", model)
	res, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	if !res.IsSuccess() {
		apiErr := &APIError{Backend: TypeGemini, StatusCode: res.StatusCode()}
		var ge geminiError
		if json.Unmarshal(res.Body(), &ge) == nil && ge.Error.Message != "" {
			apiErr.Message = ge.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(res.String())
		}
		g.logger.Debug("gemini returned error", "status_code", res.StatusCode(), "body", res.String())
		return nil, apiErr
	}

	var parsed geminiResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("gemini: parsing response: %w", err)
	}

	resp := &Response{Model: model, DurationMs: time.Since(start).Milliseconds()}
	if parsed.ModelVersion != "" {
		resp.Model = parsed.ModelVersion
	}

	var text strings.Builder
	// only the first candidate is used
	if len(parsed.Candidates) > 0 {
		c := parsed.Candidates[0]
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
		if c.GroundingMetadata != nil {
			for _, chunk := range c.GroundingMetadata.GroundingChunks {
				if chunk.Web != nil {
					resp.Sources = append(resp.Sources, Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
				}
			}
		}
	}
	resp.Text = text.String()
	resp.Sources = DedupeSources(resp.Sources)

	if strings.TrimSpace(resp.Text) == "" {
		return nil, ErrEmptyResponse
	}

	g.logger.Debug("gemini generate", "model", resp.Model, "elapsed_ms", resp.DurationMs, "sources", len(resp.Sources))
	return resp, nil
}

func (g *Gemini) Shutdown(ctx context.Context) error {
	return nil
}
