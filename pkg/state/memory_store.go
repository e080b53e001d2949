package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a minimal in-memory Store implementation intended for
// tests and examples. It uses Ref.Identifier() as its deterministic key and
// makes no persistence assumptions beyond that.
type MemoryStore[V any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[V]
}

type memoryRecord[V any] struct {
	bindings map[string]V
	meta     Meta
}

func NewMemoryStore[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{records: map[string]memoryRecord[V]{}}
}

func (s *MemoryStore[V]) Load(_ context.Context, ref Ref) (map[string]V, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return cloneBindings(record.bindings), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore[V]) Save(_ context.Context, ref Ref, bindings map[string]V, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	stamped := stampMeta(meta)
	s.mu.Lock()
	s.records[key] = memoryRecord[V]{bindings: cloneBindings(bindings), meta: cloneMeta(stamped)}
	s.mu.Unlock()
	return stamped, nil
}

// stampMeta fills in storage-owned fields: every save gets a fresh snapshot
// id and etag, and a timestamp when the caller did not supply one.
func stampMeta(meta Meta) Meta {
	out := cloneMeta(meta)
	out.SnapshotID = uuid.NewString()
	out.ETag = uuid.NewString()
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = time.Now().UTC()
	}
	return out
}
