package genai

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gradeflow/gradeflow/internal/models"
)

// writeAttachments decodes payloads into workspaceDir and returns the file
// names in attachment order. Names are reduced to their base element and
// prefixed with their position so two documents with the same name can't
// overwrite each other.
func writeAttachments(workspaceDir string, attachments []models.Payload) ([]string, error) {
	baseWorkspace := filepath.Clean(workspaceDir)
	if baseWorkspace == "" || baseWorkspace == "." {
		return nil, fmt.Errorf("workspace is not set")
	}
	baseWithSep := baseWorkspace + string(os.PathSeparator)

	names := make([]string, 0, len(attachments))
	for i, a := range attachments {
		name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(a.Name, `\`, "/")))
		if name == "" || name == "." || name == string(os.PathSeparator) {
			name = "document"
		}
		name = fmt.Sprintf("%02d-%s", i+1, name)

		fullPath := filepath.Clean(filepath.Join(baseWorkspace, name))
		if !strings.HasPrefix(fullPath, baseWithSep) {
			return nil, fmt.Errorf("attachment %q escapes workspace", a.Name)
		}

		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding attachment %q: %w", a.Name, err)
		}
		if err := os.WriteFile(fullPath, data, 0644); err != nil {
			return nil, fmt.Errorf("writing attachment %q: %w", a.Name, err)
		}
		names = append(names, name)
	}
	return names, nil
}
