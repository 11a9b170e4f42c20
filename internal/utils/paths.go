package utils

import (
	"path/filepath"
	"strings"
)

// ResolvePaths resolves a list of document sources relative to a base
// directory. Absolute paths and URIs (anything with a scheme) are returned
// unchanged and blank entries are dropped.
func ResolvePaths(paths []string, baseDir string) []string {
	if len(paths) == 0 {
		return nil
	}

	resolved := make([]string, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		switch {
		case path == "":
			continue
		case filepath.IsAbs(path), strings.Contains(path, "://"):
			resolved = append(resolved, path)
		default:
			resolved = append(resolved, filepath.Join(baseDir, path))
		}
	}
	return resolved
}
