// Package grading wraps the three generation-service operations gradeflow
// needs: criteria search, solution grading and report formatting. Each
// operation is a stateless request to text function.
package grading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gradeflow/gradeflow/internal/genai"
	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/gradeflow/gradeflow/internal/template"
)

// DocumentEncoder converts document handles into transport payloads.
type DocumentEncoder interface {
	EncodeAll(ctx context.Context, docs []models.Document) ([]models.Payload, error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithPrompts overrides prompt templates. Blank fields keep the defaults.
func WithPrompts(p Prompts) Option {
	return func(c *Client) {
		c.prompts = p.merge(DefaultPrompts())
	}
}

// WithVars sets user variables available to prompt templates as {{.Vars.name}}.
func WithVars(vars map[string]string) Option {
	return func(c *Client) {
		c.vars = vars
	}
}

// Client implements the grading operations on top of a genai.Generator.
type Client struct {
	gen     genai.Generator
	enc     DocumentEncoder
	prompts Prompts
	vars    map[string]string
	logger  *slog.Logger
}

// NewClient creates a grading client.
func NewClient(gen genai.Generator, enc DocumentEncoder, opts ...Option) *Client {
	c := &Client{
		gen:     gen,
		enc:     enc,
		prompts: DefaultPrompts(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchCriteria asks the service, with external lookup enabled, for the
// scoring criteria of an exam. Sources the service consulted are appended
// under a references heading.
func (c *Client) SearchCriteria(ctx context.Context, examDescription, model string) (string, error) {
	if strings.TrimSpace(examDescription) == "" {
		return "", &ValidationError{Field: "exam description"}
	}

	prompt, err := template.Render(c.prompts.Criteria, &template.Context{
		ExamDescription: examDescription,
		Vars:            c.vars,
	})
	if err != nil {
		return "", fmt.Errorf("criteria prompt: %w", err)
	}

	start := time.Now()
	c.logger.Debug("grading.criteria.start", "model", model)

	resp, err := c.gen.Generate(ctx, &genai.Request{
		Model:     model,
		Prompt:    prompt,
		Grounding: true,
	})
	if err != nil {
		return "", &ServiceError{Op: "search criteria", Err: err}
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &ServiceError{Op: "search criteria", Err: genai.ErrEmptyResponse}
	}

	c.logger.Debug("grading.criteria.done", "elapsed_ms", time.Since(start).Milliseconds(), "sources", len(resp.Sources))
	return AppendReferences(text, resp.Sources), nil
}

// GradeSolution grades one student's solution against the shared exam. It
// fails with a *ValidationError, without calling the service, when the exam
// has no materials or the student has no solution documents.
func (c *Client) GradeSolution(ctx context.Context, exam *models.ExamContext, student *models.StudentTask) (string, error) {
	if len(exam.Materials) == 0 {
		c.logger.Debug("grading.grade.invalid", "student_id", student.ID, "field", "exam materials")
		return "", &ValidationError{Field: "exam materials"}
	}
	if len(student.Solutions) == 0 {
		c.logger.Debug("grading.grade.invalid", "student_id", student.ID, "field", "solutions")
		return "", &ValidationError{Field: "solutions"}
	}

	materials, err := c.enc.EncodeAll(ctx, exam.Materials)
	if err != nil {
		return "", err
	}
	solutions, err := c.enc.EncodeAll(ctx, student.Solutions)
	if err != nil {
		return "", err
	}

	prompt, err := template.Render(c.prompts.Grade, &template.Context{
		ExamDescription: exam.Description,
		Criteria:        exam.Criteria,
		StudentName:     student.Name,
		StudentEmail:    student.Email,
		Instructions:    student.Instructions,
		Vars:            c.vars,
	})
	if err != nil {
		return "", fmt.Errorf("grade prompt: %w", err)
	}

	start := time.Now()
	c.logger.Debug("grading.grade.start", "student_id", student.ID, "documents", len(materials)+len(solutions))

	resp, err := c.gen.Generate(ctx, &genai.Request{
		Model:       exam.ModelID,
		System:      c.prompts.System,
		Prompt:      prompt,
		Attachments: append(materials, solutions...),
	})
	if err != nil {
		return "", &ServiceError{Op: "grade solution", Err: err}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", &ServiceError{Op: "grade solution", Err: genai.ErrEmptyResponse}
	}

	c.logger.Debug("grading.grade.done", "student_id", student.ID, "elapsed_ms", time.Since(start).Milliseconds())
	return resp.Text, nil
}

// FormatReport turns raw grading text into presentation-ready content.
// Wrapping code fences in the service output are stripped.
func (c *Client) FormatReport(ctx context.Context, rawReport string, exam *models.ExamContext, studentName string, ts time.Time) (string, error) {
	if strings.TrimSpace(rawReport) == "" {
		return "", &ValidationError{Field: "report"}
	}

	prompt, err := template.Render(c.prompts.Format, &template.Context{
		ExamDescription: exam.Description,
		StudentName:     studentName,
		Report:          rawReport,
		Timestamp:       ts.Format(time.RFC3339),
		Vars:            c.vars,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}

	start := time.Now()
	resp, err := c.gen.Generate(ctx, &genai.Request{
		Model:  exam.ModelID,
		Prompt: prompt,
	})
	if err != nil {
		return "", &ServiceError{Op: "format report", Err: err}
	}

	content := StripCodeFences(resp.Text)
	if content == "" {
		return "", &ServiceError{Op: "format report", Err: genai.ErrEmptyResponse}
	}

	c.logger.Debug("grading.format.done", "student", studentName, "elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}
