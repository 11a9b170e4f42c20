// Package encoding turns document handles into base64 payloads for the
// text-generation service.
package encoding

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gradeflow/gradeflow/internal/models"
)

const (
	SchemeFile   = "file"
	SchemeAzBlob = "azblob"
)

// Encoder resolves a document's source by URI scheme and encodes its bytes.
type Encoder struct {
	sources map[string]Source
	logger  *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithSource registers a Source for a URI scheme, replacing any existing one.
func WithSource(scheme string, src Source) Option {
	return func(e *Encoder) {
		e.sources[strings.ToLower(scheme)] = src
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) {
		e.logger = l
	}
}

// New returns an Encoder that reads local files. Other schemes must be
// registered with WithSource.
func New(opts ...Option) *Encoder {
	e := &Encoder{
		sources: map[string]Source{SchemeFile: FileSource{}},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode converts one document into a payload. Every failure is an
// *EncodingError.
func (e *Encoder) Encode(ctx context.Context, doc models.Document) (models.Payload, error) {
	name := doc.DisplayName()
	fail := func(err error) (models.Payload, error) {
		return models.Payload{}, &EncodingError{Document: name, Err: err}
	}

	if strings.TrimSpace(doc.Source) == "" {
		return fail(errors.New("empty document source"))
	}

	scheme, ref := splitSource(doc.Source)
	src, ok := e.sources[scheme]
	if !ok {
		return fail(fmt.Errorf("no source registered for scheme %q", scheme))
	}

	blob, err := src.Fetch(ctx, ref)
	if err != nil {
		return fail(err)
	}
	if len(blob.Data) == 0 {
		return fail(errors.New("document is empty"))
	}

	mt := mediaType(ref, blob)
	e.logger.Debug("encoded document", "document", name, "scheme", scheme, "media_type", mt, "bytes", len(blob.Data))

	return models.Payload{
		Name:      name,
		MediaType: mt,
		Data:      base64.StdEncoding.EncodeToString(blob.Data),
	}, nil
}

// EncodeAll encodes documents in order, stopping at the first failure.
func (e *Encoder) EncodeAll(ctx context.Context, docs []models.Document) ([]models.Payload, error) {
	out := make([]models.Payload, 0, len(docs))
	for _, d := range docs {
		p, err := e.Encode(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// splitSource returns the lower-cased scheme and the remainder. Bare paths,
// including Windows drive paths, use the file scheme.
func splitSource(src string) (string, string) {
	scheme, rest, ok := strings.Cut(src, "://")
	if !ok {
		return SchemeFile, src
	}
	return strings.ToLower(scheme), rest
}

func mediaType(ref string, blob Blob) string {
	if blob.ContentType != "" && blob.ContentType != "application/octet-stream" {
		return blob.ContentType
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(ref), "."))
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return mt
	}
	// fallbacks for hosts with a sparse mime table
	switch ext {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "txt", "md":
		return "text/plain; charset=utf-8"
	}
	return http.DetectContentType(blob.Data)
}
