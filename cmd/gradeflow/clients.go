package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gradeflow/gradeflow/internal/config"
	"github.com/gradeflow/gradeflow/internal/encoding"
	"github.com/gradeflow/gradeflow/internal/genai"
	"github.com/gradeflow/gradeflow/internal/store"
	"github.com/spf13/cobra"
)

func newGenerator(cfg genai.Config) (genai.Generator, error) {
	gen, err := genai.New(cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s generator: %w", cfg.Type, err)
	}
	return gen, nil
}

// newEncoder returns a document encoder for local files, plus Azure Blob
// Storage when the environment names an account.
func newEncoder(env config.Env) (*encoding.Encoder, error) {
	opts := []encoding.Option{encoding.WithLogger(slog.Default())}

	var (
		blobs *encoding.BlobSource
		err   error
	)
	switch {
	case env.StorageConnection != "":
		blobs, err = encoding.NewBlobSourceFromConnectionString(env.StorageConnection)
	case env.StorageAccountURL != "":
		blobs, err = encoding.NewBlobSource(env.StorageAccountURL, nil)
	}
	if err != nil {
		return nil, err
	}
	if blobs != nil {
		opts = append(opts, encoding.WithSource(encoding.SchemeAzBlob, blobs))
	}
	return encoding.New(opts...), nil
}

// openTemplates opens the template store named by --store, falling back to
// the environment. The returned func closes it.
func openTemplates(cmd *cobra.Command) (*store.Templates, func(), error) {
	location := ""
	if f := cmd.Flag("store"); f != nil {
		location = f.Value.String()
	}
	if location == "" {
		location = config.FromEnv().Store
	}

	kv, err := store.Open(location)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open template store: %w", err)
	}
	closeFn := func() {
		if err := kv.Close(); err != nil {
			slog.Warn("closing template store", "error", err)
		}
	}
	return store.NewTemplates(kv), closeFn, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatDurationMs formats a millisecond count the same way regardless of
// Go version.
func formatDurationMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}
