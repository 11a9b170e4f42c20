package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIOptions configures the OpenAI chat completions backend. An empty
// APIKey falls back to the OPENAI_API_KEY environment variable.
type OpenAIOptions struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxRetries  *int    `mapstructure:"max_retries"`
}

// OpenAI generates text with chat completions. Grounding is not supported
// by the API, so grounded requests never return sources.
type OpenAI struct {
	client       openai.Client
	defaultModel string
	temperature  float64
	logger       *slog.Logger
}

// NewOpenAI creates an OpenAI backend.
func NewOpenAI(defaultModel string, opts OpenAIOptions, logger *slog.Logger) *OpenAI {
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}
	if opts.MaxRetries != nil {
		reqOpts = append(reqOpts, option.WithMaxRetries(*opts.MaxRetries))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAI{
		client:       openai.NewClient(reqOpts...),
		defaultModel: defaultModel,
		temperature:  opts.Temperature,
		logger:       logger,
	}
}

func (o *OpenAI) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("nil req was passed to OpenAI.Generate")
	}
	model := modelOr(req, o.defaultModel)
	if model == "" {
		return nil, errors.New("openai: model is required")
	}

	start := time.Now()

	parts, err := contentParts(req)
	if err != nil {
		return nil, err
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(parts))

	chatReq := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if o.temperature > 0 {
		chatReq.Temperature = openai.Float(o.temperature)
	}

	res, err := o.client.Chat.Completions.New(ctx, chatReq)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &APIError{Backend: TypeOpenAI, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("openai: %w", err)
	}

	if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	resp := &Response{
		Text:       res.Choices[0].Message.Content,
		Model:      res.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if resp.Model == "" {
		resp.Model = model
	}

	o.logger.Debug("openai generate", "model", resp.Model, "elapsed_ms", resp.DurationMs)
	return resp, nil
}

func (o *OpenAI) Shutdown(ctx context.Context) error {
	return nil
}

// contentParts maps attachments onto chat content parts: images as image
// URLs, text documents inline, anything else as a file part.
func contentParts(req *Request) ([]openai.ChatCompletionContentPartUnionParam, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.Attachments)+1)

	for _, a := range req.Attachments {
		dataURL := "data:" + a.MediaType + ";base64," + a.Data
		switch {
		case strings.HasPrefix(a.MediaType, "image/"):
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}))
		case strings.HasPrefix(a.MediaType, "text/"):
			raw, err := base64.StdEncoding.DecodeString(a.Data)
			if err != nil {
				return nil, fmt.Errorf("openai: decoding attachment %s: %w", a.Name, err)
			}
			parts = append(parts, openai.TextContentPart(fmt.Sprintf("--- %s ---\n%s", a.Name, raw)))
		default:
			parts = append(parts, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileData: openai.String(dataURL),
				Filename: openai.String(a.Name),
			}))
		}
	}

	parts = append(parts, openai.TextContentPart(req.Prompt))
	return parts, nil
}
