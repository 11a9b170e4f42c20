// Package schemas embeds the JSON schemas for gradeflow's YAML files.
package schemas

import _ "embed"

// BatchSchemaJSON is the JSON schema for batch.yaml files.
//
//go:embed batch.schema.json
var BatchSchemaJSON string
