package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// MarkdownToHTML renders GitHub-flavored markdown. Raw HTML in the input is
// omitted.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
<footer><small>Generated {{.Generated}}</small></footer>
</body>
</html>
`))

type page struct {
	Title     string
	Body      template.HTML
	Generated string
}

func renderPage(title string, body template.HTML, ts time.Time) (string, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, page{
		Title:     title,
		Body:      body,
		Generated: ts.Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return buf.String(), nil
}

// RenderReportPage wraps a finished report in a standalone HTML document.
// The report content is trusted HTML produced by the formatting step.
func RenderReportPage(rec *models.ProcessingRecord) (string, error) {
	if rec.Status != models.StatusDone || rec.Result == nil {
		return "", fmt.Errorf("record %s has no report (status %s)", rec.ID, rec.Status)
	}
	res := rec.Result
	title := fmt.Sprintf("%s: %s", res.ExamDescription, res.StudentName)
	//nolint:gosec // content is the formatted report fragment
	return renderPage(title, template.HTML(res.Content), res.GeneratedAt)
}

// RenderMarkdownPage renders markdown (e.g. discovered criteria) as a
// standalone HTML document.
func RenderMarkdownPage(title, src string, ts time.Time) (string, error) {
	body, err := MarkdownToHTML(src)
	if err != nil {
		return "", err
	}
	//nolint:gosec // goldmark escapes raw HTML unless WithUnsafe is set
	return renderPage(title, template.HTML(body), ts)
}
