package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Context holds all variables available to a prompt template.
type Context struct {
	ExamDescription string
	Criteria        string
	StudentName     string
	StudentEmail    string
	Instructions    string
	// Report is the raw grading text handed to the formatting stage.
	Report    string
	Timestamp string

	// User-defined variables (from stored templates or the CLI)
	Vars map[string]string
}

// Render resolves template expressions in the given string.
// Uses Go's text/template syntax: {{.StudentName}}, {{.Vars.myvar}}.
// Returns the input unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	// Fast path: no template delimiters means no work to do.
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Funcs(funcs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}

// Validate parses tmpl without executing it.
func Validate(tmpl string) error {
	if _, err := template.New("").Funcs(funcs).Parse(tmpl); err != nil {
		return fmt.Errorf("template: parse: %w", err)
	}
	return nil
}

var funcs = template.FuncMap{
	"trim": strings.TrimSpace,
	// orDefault returns def when s is blank.
	"orDefault": func(def, s string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	},
}
