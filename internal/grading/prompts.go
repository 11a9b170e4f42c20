package grading

// Prompts holds the templates used for each operation. Templates are
// rendered with internal/template and may reference any field of
// template.Context.
type Prompts struct {
	System   string
	Criteria string
	Grade    string
	Format   string
}

// DefaultPrompts returns the built-in prompt templates.
func DefaultPrompts() Prompts {
	return Prompts{
		System:   defaultSystemPrompt,
		Criteria: defaultCriteriaPrompt,
		Grade:    defaultGradePrompt,
		Format:   defaultFormatPrompt,
	}
}

// merge fills blank fields of p from def.
func (p Prompts) merge(def Prompts) Prompts {
	if p.System == "" {
		p.System = def.System
	}
	if p.Criteria == "" {
		p.Criteria = def.Criteria
	}
	if p.Grade == "" {
		p.Grade = def.Grade
	}
	if p.Format == "" {
		p.Format = def.Format
	}
	return p
}

const defaultSystemPrompt = `You are an experienced, fair and precise examiner. You grade strictly against the scoring criteria you are given and never invent criteria of your own.`

const defaultCriteriaPrompt = `Find the official or most widely used scoring criteria (marking scheme) for the following exam.

Exam: {{.ExamDescription}}

List each problem or section with the points it is worth and what earns full, partial and zero credit. Use concise markdown.`

const defaultGradePrompt = `Grade the student's solution.

Exam: {{.ExamDescription}}
Student: {{.StudentName}}

Scoring criteria:
{{orDefault "No criteria were provided. Infer reasonable criteria from the exam materials and say that you did." .Criteria}}
{{if .Instructions}}
Additional instructions for this student:
{{.Instructions}}
{{end}}
The first attached documents are the exam materials. The remaining documents are the student's solution, in order.

Write your answer in this order:
1. Total score.
2. Score breakdown per criterion.
3. Evaluation of each problem.
4. Overall assessment.
5. Feedback on how to improve.`

const defaultFormatPrompt = `Turn the grading report below into a self-contained HTML fragment suitable for printing.

Requirements:
- Start with a header block showing the exam "{{.ExamDescription}}", the student "{{.StudentName}}" and the date {{.Timestamp}}.
- Show the total score prominently, then a table of per-criterion scores.
- Keep every piece of feedback from the report; do not add new judgments.
- Use inline styles only. Return only the HTML, with no commentary.

Grading report:
{{.Report}}`
