// Package config resolves runtime settings for a batch run from the batch
// file, the environment and command-line overrides.
package config

import (
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gradeflow/gradeflow/internal/genai"
	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/joho/godotenv"
)

// Environment variables read by gradeflow.
const (
	EnvStore             = "GRADEFLOW_STORE"
	EnvPort              = "GRADEFLOW_PORT"
	EnvGeminiAPIKey      = "GEMINI_API_KEY"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvOpenAIBaseURL     = "OPENAI_BASE_URL"
	EnvStorageAccountURL = "AZURE_STORAGE_ACCOUNT_URL"
	EnvStorageConnection = "AZURE_STORAGE_CONNECTION_STRING"

	defaultStoreDirName = ".gradeflow"
	defaultPort         = 3000
)

// LoadEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
// With no arguments it reads ./.env.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Env is the subset of settings that come from the environment.
type Env struct {
	Store             string
	Port              int
	GeminiAPIKey      string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	StorageAccountURL string
	StorageConnection string
}

// FromEnv reads settings from the process environment, applying defaults.
func FromEnv() Env {
	e := Env{
		Store:             os.Getenv(EnvStore),
		Port:              defaultPort,
		GeminiAPIKey:      os.Getenv(EnvGeminiAPIKey),
		OpenAIAPIKey:      os.Getenv(EnvOpenAIAPIKey),
		OpenAIBaseURL:     os.Getenv(EnvOpenAIBaseURL),
		StorageAccountURL: os.Getenv(EnvStorageAccountURL),
		StorageConnection: os.Getenv(EnvStorageConnection),
	}
	if p, err := strconv.Atoi(os.Getenv(EnvPort)); err == nil && p > 0 {
		e.Port = p
	}
	if e.Store == "" {
		if home, err := os.UserHomeDir(); err == nil {
			e.Store = filepath.Join(home, defaultStoreDirName, "store")
		}
	}
	return e
}

// RunConfig holds configuration for a single batch run.
type RunConfig struct {
	spec          *models.BatchSpec
	specDir       string
	env           Env
	generatorType string
	model         string
	outputDir     string
	verbose       bool
	filters       []string
	studentRange  string
}

// Option configures a RunConfig.
type Option func(*RunConfig)

// WithSpecDir sets the directory containing the batch file.
func WithSpecDir(dir string) Option {
	return func(c *RunConfig) { c.specDir = dir }
}

// WithEnv sets environment-derived settings.
func WithEnv(e Env) Option {
	return func(c *RunConfig) { c.env = e }
}

// WithGeneratorType overrides generator.type from the batch file.
func WithGeneratorType(t string) Option {
	return func(c *RunConfig) { c.generatorType = t }
}

// WithModel overrides the model from the batch file.
func WithModel(model string) Option {
	return func(c *RunConfig) { c.model = model }
}

// WithOutputDir overrides output.dir from the batch file.
func WithOutputDir(dir string) Option {
	return func(c *RunConfig) { c.outputDir = dir }
}

// WithVerbose enables verbose output.
func WithVerbose(v bool) Option {
	return func(c *RunConfig) { c.verbose = v }
}

// WithStudentFilters restricts the run to students matching any glob.
func WithStudentFilters(patterns ...string) Option {
	return func(c *RunConfig) { c.filters = patterns }
}

// WithStudentRange restricts a CSV roster to a row range such as "1-10".
func WithStudentRange(r string) Option {
	return func(c *RunConfig) { c.studentRange = r }
}

// NewRunConfig creates a run configuration for spec.
func NewRunConfig(spec *models.BatchSpec, opts ...Option) *RunConfig {
	c := &RunConfig{spec: spec}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *RunConfig) Spec() *models.BatchSpec { return c.spec }
func (c *RunConfig) SpecDir() string          { return c.specDir }
func (c *RunConfig) Env() Env                 { return c.env }
func (c *RunConfig) Verbose() bool            { return c.verbose }
func (c *RunConfig) StudentFilters() []string { return c.filters }
func (c *RunConfig) StudentRange() string     { return c.studentRange }

// Model is the flag override, then the batch file's model.
func (c *RunConfig) Model() string {
	if c.model != "" {
		return c.model
	}
	return c.spec.ModelID()
}

// OutputDir is the flag override, then output.dir, then "results" next to
// the batch file.
func (c *RunConfig) OutputDir() string {
	switch {
	case c.outputDir != "":
		return c.outputDir
	case c.spec.Output.Dir != "":
		return c.spec.Output.Dir
	default:
		return filepath.Join(c.specDir, "results")
	}
}

// Generator builds the generator configuration. Credentials from the
// environment fill options the batch file leaves unset.
func (c *RunConfig) Generator() genai.Config {
	t := genai.Type(c.spec.Generator.Type)
	if c.generatorType != "" {
		t = genai.Type(c.generatorType)
	}
	if t == "" {
		t = genai.TypeGemini
	}

	opts := make(map[string]any, len(c.spec.Generator.Options)+2)
	maps.Copy(opts, c.spec.Generator.Options)

	setDefault := func(key, value string) {
		if value == "" {
			return
		}
		if _, ok := opts[key]; !ok {
			opts[key] = value
		}
	}
	switch t {
	case genai.TypeGemini:
		setDefault("api_key", c.env.GeminiAPIKey)
	case genai.TypeOpenAI:
		setDefault("api_key", c.env.OpenAIAPIKey)
		setDefault("base_url", c.env.OpenAIBaseURL)
	}

	return genai.Config{Type: t, Model: c.Model(), Options: opts}
}
