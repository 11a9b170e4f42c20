// Package validation checks batch files against the embedded JSON schema.
package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gradeflow/gradeflow/internal/dataset"
	"github.com/gradeflow/gradeflow/schemas"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// batchSchema is the compiled JSON Schema for batch.yaml files.
var batchSchema *jsonschema.Schema

func init() {
	batchSchema = mustCompileSchema(schemas.BatchSchemaJSON, "batch.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateBatchFile validates a batch.yaml file at the given path against the
// JSON schema. When the file names a students_from roster, the roster is
// loaded too and its problems are returned separately.
func ValidateBatchFile(batchPath string) (batchErrs []string, rosterErrs []string, err error) {
	data, err := os.ReadFile(batchPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading batch file: %w", err)
	}

	batchErrs = ValidateBatchBytes(data)

	// Parse into a minimal struct to find the roster
	var spec struct {
		StudentsFrom string `yaml:"students_from"`
	}
	if yamlErr := yaml.Unmarshal(data, &spec); yamlErr != nil || spec.StudentsFrom == "" {
		return batchErrs, nil, nil
	}

	rosterPath := spec.StudentsFrom
	if !filepath.IsAbs(rosterPath) {
		rosterPath = filepath.Join(filepath.Dir(batchPath), rosterPath)
	}
	roster, loadErr := dataset.LoadRoster(rosterPath)
	if loadErr != nil {
		return batchErrs, []string{loadErr.Error()}, nil
	}
	for _, st := range roster {
		if len(st.Solutions) == 0 {
			rosterErrs = append(rosterErrs, fmt.Sprintf("student %s (%s): no solutions listed", st.ID, st.Name))
		}
	}

	return batchErrs, rosterErrs, nil
}

// ValidateBatchBytes validates raw YAML bytes against the batch schema.
func ValidateBatchBytes(data []byte) []string {
	return validateYAMLBytes(batchSchema, data)
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	// Parse YAML into generic any
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}

	return validateAgainstSchema(schema, convertToJSONCompatible(yamlDoc))
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible converts YAML-decoded values to the types the
// validator expects. Integers become float64 and non-string map keys are
// formatted as strings.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case map[any]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[fmt.Sprint(k)] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	case int:
		return float64(val)
	default:
		return val
	}
}
