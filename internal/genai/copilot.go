package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/gradeflow/gradeflow/internal/utils"
)

const sessionFailedUnknown = "session failed with unknown error"

// CopilotOptions configures the Copilot backend.
type CopilotOptions struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	LogLevel       string `mapstructure:"log_level"`
}

// Copilot generates text through Copilot sessions. Attachments are written
// into a per-request workspace the session can read.
type Copilot struct {
	defaultModelID string
	timeout        time.Duration
	logger         *slog.Logger

	client copilotClient

	startOnce sync.Once
	startErr  error

	workspacesMu sync.Mutex
	workspaces   []string // workspaces to clean up at Shutdown
}

// CopilotBuilder builds a Copilot backend.
type CopilotBuilder struct {
	backend *Copilot
}

type CopilotBuilderOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotBuilder creates a builder for the Copilot backend.
//   - defaultModelID - used when a request has no model. Can be blank, which means the copilot
//     CLI will choose its own fallback model.
func NewCopilotBuilder(defaultModelID string, opts CopilotOptions, options *CopilotBuilderOptions) *CopilotBuilder {
	logLevel := opts.LogLevel
	if logLevel == "" {
		logLevel = "error"
	}

	copilotOptions := &copilot.ClientOptions{
		LogLevel:  logLevel,
		AutoStart: copilot.Bool(false),
	}

	var client copilotClient
	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	timeout := 10 * time.Minute
	if opts.TimeoutSeconds > 0 {
		timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}

	return &CopilotBuilder{
		backend: &Copilot{
			defaultModelID: defaultModelID,
			timeout:        timeout,
			logger:         slog.Default(),
			client:         client,
		},
	}
}

func (b *CopilotBuilder) WithLogger(logger *slog.Logger) *CopilotBuilder {
	if logger != nil {
		b.backend.logger = logger
	}
	return b
}

func (b *CopilotBuilder) Build() *Copilot {
	return b.backend
}

func (c *Copilot) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("nil req was passed to Copilot.Generate")
	}

	c.startOnce.Do(func() {
		// copilot's autostart runs into issues when triggered from separate goroutines.
		c.startErr = c.client.Start(ctx)
	})
	if c.startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", c.startErr)
	}

	start := time.Now()
	modelID := modelOr(req, c.defaultModelID)

	workspaceDir, err := c.newWorkspace()
	if err != nil {
		return nil, err
	}
	files, err := writeAttachments(workspaceDir, req.Attachments)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := c.client.CreateSession(ctx, &copilot.SessionConfig{
		Model:               modelID,
		OnPermissionRequest: allowAllTools,
		WorkingDirectory:    workspaceDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	collector := newMessageCollector()

	unsubscribe := session.On(collector.On)
	defer unsubscribe()

	unsubscribe = session.On(utils.SessionToSlog)
	defer unsubscribe()

	_, err = session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: copilotPrompt(req, files),
	})
	if err != nil {
		return nil, fmt.Errorf("copilot session %s: %w", session.SessionID(), err)
	}
	if msg := collector.ErrorMessage(); msg != "" {
		return nil, fmt.Errorf("copilot session %s: %s", session.SessionID(), msg)
	}

	text := collector.Text()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	resp := &Response{
		Text:       text,
		Model:      modelID,
		DurationMs: time.Since(start).Milliseconds(),
	}
	c.logger.Debug("copilot generate", "model", modelID, "session", session.SessionID(), "elapsed_ms", resp.DurationMs, "attachments", len(files))
	return resp, nil
}

// Shutdown stops the client and removes request workspaces.
func (c *Copilot) Shutdown(ctx context.Context) error {
	if err := c.client.Stop(); err != nil {
		// Log but continue cleanup
		c.logger.Info("failed to stop client", "error", err)
	}

	workspaces := func() []string {
		c.workspacesMu.Lock()
		defer c.workspacesMu.Unlock()
		workspaces := c.workspaces
		c.workspaces = nil
		return workspaces
	}()

	for _, ws := range workspaces {
		if err := os.RemoveAll(ws); err != nil {
			c.logger.Warn("failed to cleanup stale workspace", "path", ws, "error", err)
		}
	}

	return nil
}

func (c *Copilot) newWorkspace() (string, error) {
	dir, err := os.MkdirTemp("", "gradeflow-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp workspace: %w", err)
	}

	c.workspacesMu.Lock()
	c.workspaces = append(c.workspaces, dir)
	c.workspacesMu.Unlock()

	return dir, nil
}

func copilotPrompt(req *Request, files []string) string {
	var sb strings.Builder
	if req.System != "" {
		sb.WriteString(req.System)
		sb.WriteString("\n\n")
	}
	if len(files) > 0 {
		sb.WriteString("The following documents are in your working directory, in this order:\n")
		for _, f := range files {
			sb.WriteString("- ")
			sb.WriteString(f)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if req.Grounding {
		sb.WriteString("You may search the web. List every page you used under a final \"## References\" heading.\n\n")
	}
	sb.WriteString(req.Prompt)
	return sb.String()
}

func allowAllTools(request copilot.PermissionRequest, invocation copilot.PermissionInvocation) (copilot.PermissionRequestResult, error) {
	// value for 'Kind' came from the permissions_test.go in the Copilot SDK.
	return copilot.PermissionRequestResult{Kind: "approved"}, nil
}

// messageCollector gathers assistant output from session events.
type messageCollector struct {
	mu       sync.Mutex
	parts    []string
	errorMsg string
}

func newMessageCollector() *messageCollector {
	return &messageCollector{}
}

// On is intended to be passed to [copilot.Session.On].
func (m *messageCollector) On(event copilot.SessionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch event.Type {
	case copilot.AssistantMessage:
		if event.Data.Content != nil {
			m.parts = append(m.parts, *event.Data.Content)
		}
	case copilot.SessionError:
		if event.Data.Message == nil || *event.Data.Message == "" {
			m.errorMsg = sessionFailedUnknown
		} else {
			m.errorMsg = *event.Data.Message
		}
	}
}

func (m *messageCollector) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.parts, "\n")
}

func (m *messageCollector) ErrorMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorMsg
}
