package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goliatone/go-chainmap/internal/hydrate"
)

// FileStore persists one JSON document per scope reference under a base
// directory, keyed by Ref.Identifier(). Documents are decoded through the
// hydrate decoder so callers can normalise or validate payloads on load.
type FileStore[V any] struct {
	dir     string
	decoder *hydrate.Decoder[V]
}

// FileStoreOption configures a FileStore.
type FileStoreOption[V any] func(*FileStore[V])

// FileWithDecoder replaces the default hydrate decoder.
func FileWithDecoder[V any](decoder *hydrate.Decoder[V]) FileStoreOption[V] {
	return func(s *FileStore[V]) {
		if decoder != nil {
			s.decoder = decoder
		}
	}
}

// NewFileStore constructs a store rooted at dir; the directory is created
// lazily on first save.
func NewFileStore[V any](dir string, opts ...FileStoreOption[V]) (*FileStore[V], error) {
	if dir == "" {
		return nil, fmt.Errorf("state: file store directory is required")
	}
	s := &FileStore[V]{
		dir:     dir,
		decoder: hydrate.NewDecoder[V](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

type fileDocument struct {
	Bindings map[string]any `json:"bindings"`
	Meta     Meta           `json:"meta"`
}

func (s *FileStore[V]) Load(_ context.Context, ref Ref) (map[string]V, Meta, bool, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, Meta{}, false, err
	}

	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: read %s: %w", path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: parse %s: %w", path, err)
	}
	if doc.Bindings == nil {
		doc.Bindings = map[string]any{}
	}

	bindings, err := s.decoder.Decode(hydrate.Context{Ref: ref.Domain, Scope: ref.Scope.Name}, doc.Bindings)
	if err != nil {
		return nil, Meta{}, false, err
	}
	return bindings, doc.Meta, true, nil
}

func (s *FileStore[V]) Save(_ context.Context, ref Ref, bindings map[string]V, meta Meta) (Meta, error) {
	path, err := s.path(ref)
	if err != nil {
		return Meta{}, err
	}

	stamped := stampMeta(meta)
	raw := make(map[string]any, len(bindings))
	for key, value := range bindings {
		raw[key] = value
	}
	payload, err := json.MarshalIndent(fileDocument{Bindings: raw, Meta: stamped}, "", "  ")
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Meta{}, fmt.Errorf("state: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return Meta{}, fmt.Errorf("state: write %s: %w", path, err)
	}
	return stamped, nil
}

func (s *FileStore[V]) path(ref Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)+".json"), nil
}
