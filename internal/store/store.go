// Package store persists user-level preferences and named criteria
// templates across runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get and Delete for a key that is not stored.
var ErrNotFound = errors.New("not found")

// KeyValue is a string key/value store.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// List returns keys with the given prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open returns the backend named by location:
//
//	sqlite://<path>        gorm + sqlite
//	postgres://...         gorm + postgres (the URL is passed as the DSN)
//	file://<dir> or <dir>  one JSON file per key
func Open(location string) (KeyValue, error) {
	switch {
	case strings.HasPrefix(location, "sqlite://"):
		s, err := OpenSQLite(strings.TrimPrefix(location, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		s, err := OpenPostgres(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(location, "file://"):
		return NewFileStore(strings.TrimPrefix(location, "file://")), nil
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("unsupported store location %q", location)
	default:
		return NewFileStore(location), nil
	}
}

const (
	templatePrefix    = "template/"
	preferredModelKey = "pref/model"
)

// Templates stores named criteria templates and the preferred model.
type Templates struct {
	kv KeyValue
}

// NewTemplates wraps a KeyValue store.
func NewTemplates(kv KeyValue) *Templates {
	return &Templates{kv: kv}
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("template name is required")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("template name %q must not contain path separators", name)
	}
	return nil
}

// List returns the stored template names, sorted.
func (t *Templates) List(ctx context.Context) ([]string, error) {
	keys, err := t.kv.List(ctx, templatePrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, templatePrefix))
	}
	sort.Strings(names)
	return names, nil
}

// Get returns a template's text.
func (t *Templates) Get(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	text, err := t.kv.Get(ctx, templatePrefix+name)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	return text, nil
}

// Save creates or replaces a template.
func (t *Templates) Save(ctx context.Context, name, text string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("template %q is empty", name)
	}
	return t.kv.Set(ctx, templatePrefix+name, text)
}

// Delete removes a template.
func (t *Templates) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := t.kv.Delete(ctx, templatePrefix+name); err != nil {
		return fmt.Errorf("template %q: %w", name, err)
	}
	return nil
}

// PreferredModel returns the stored model id, or "" when none is set.
func (t *Templates) PreferredModel(ctx context.Context) (string, error) {
	m, err := t.kv.Get(ctx, preferredModelKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return m, err
}

// SetPreferredModel stores the model id used when a batch file names none.
// An empty model clears the preference.
func (t *Templates) SetPreferredModel(ctx context.Context, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		err := t.kv.Delete(ctx, preferredModelKey)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return t.kv.Set(ctx, preferredModelKey, model)
}
