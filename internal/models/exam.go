package models

import (
	"fmt"
	"strings"
)

// Document is an opaque handle to an uploaded file. Source is a local path,
// a file:// URI, or an azblob://<container>/<blob> reference.
type Document struct {
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Source string `yaml:"source" json:"source"`
}

// DisplayName returns Name, falling back to the last path element of Source.
func (d Document) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	src := strings.TrimRight(d.Source, "/")
	if i := strings.LastIndexAny(src, `/\`); i >= 0 {
		return src[i+1:]
	}
	return src
}

// Payload is a document converted for transport to the generation service.
type Payload struct {
	Name      string `json:"name,omitempty"`
	MediaType string `json:"media_type"`
	// Data is the standard base64 encoding of the document bytes.
	Data string `json:"data"`
}

// ExamContext is shared, read-only input for every student in a batch.
type ExamContext struct {
	Description string     `json:"description"`
	Criteria    string     `json:"criteria"`
	ModelID     string     `json:"model_id"`
	Materials   []Document `json:"materials"`
}

// StudentTask is one roster entry.
type StudentTask struct {
	ID           string     `yaml:"id" json:"id"`
	Name         string     `yaml:"name" json:"name"`
	Email        string     `yaml:"email,omitempty" json:"email,omitempty"`
	Solutions    []Document `yaml:"solutions" json:"solutions"`
	Instructions string     `yaml:"instructions,omitempty" json:"instructions,omitempty"`
}

// Roster is the ordered list of students submitted for one batch.
type Roster []StudentTask

// IDs returns the student ids in roster order.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, st := range r {
		ids = append(ids, st.ID)
	}
	return ids
}

// Validate checks that every student has a non-empty, unique id.
func (r Roster) Validate() error {
	seen := make(map[string]int, len(r))
	for i, st := range r {
		if strings.TrimSpace(st.ID) == "" {
			return fmt.Errorf("student at position %d has no id", i+1)
		}
		if prev, ok := seen[st.ID]; ok {
			return fmt.Errorf("duplicate student id %q at positions %d and %d", st.ID, prev+1, i+1)
		}
		seen[st.ID] = i
	}
	return nil
}
