package grading

import (
	"strings"

	"github.com/gradeflow/gradeflow/internal/genai"
)

// ReferencesHeading introduces the list of sources appended to criteria text.
const ReferencesHeading = "## References"

// AppendReferences adds a references section listing each unique source
// URI once, in first-seen order. Text is returned unchanged when there
// are no sources.
func AppendReferences(text string, sources []genai.Source) string {
	sources = genai.DedupeSources(sources)
	if len(sources) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(ReferencesHeading)
	for _, s := range sources {
		sb.WriteString("\n- ")
		sb.WriteString(s.URI)
	}
	return sb.String()
}
