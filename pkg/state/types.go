// Package state persists per-scope binding maps and resolves them back into
// chains: the weakest scope becomes the root level and each stronger scope
// stacks on top, so chain shadowing realises scope precedence.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("state: scope name must be provided")
	// ErrDuplicateScopeName indicates multiple scopes with the same name.
	ErrDuplicateScopeName = errors.New("state: scope names must be unique")
	// ErrPriorityOrder indicates duplicate scope priorities.
	ErrPriorityOrder = errors.New("state: scope priorities must be strictly ordered")
)

// Scope models a named precedence bucket (system, tenant, user, etc.).
// Higher priority values represent stronger scopes and land nearer the
// handle when resolved into a chain.
type Scope struct {
	Name     string
	Label    string
	Priority int
	Metadata map[string]any
}

// Recommended priorities for common layering patterns. Higher numbers win.
const (
	ScopePrioritySystem = 100
	ScopePriorityTenant = 200
	ScopePriorityOrg    = 300
	ScopePriorityTeam   = 400
	ScopePriorityUser   = 500
)

// Ref identifies one persisted bindings document for one domain.
type Ref struct {
	Domain string
	Scope  Scope
}

// Identifier returns the deterministic storage key for the reference. When
// the scope carries an "id" metadata entry it participates in the key so
// sibling tenants or users do not collide.
func (r Ref) Identifier() (string, error) {
	if r.Scope.Name == "" {
		return "", ErrScopeNameRequired
	}
	if r.Domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	if id, ok := r.Scope.Metadata["id"].(string); ok && id != "" {
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, id, r.Domain), nil
	}
	return fmt.Sprintf("%s/%s", r.Scope.Name, r.Domain), nil
}

// Meta is storage-owned metadata used for trace/audit and concurrency
// control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one bindings document for a single scope reference.
type Store[V any] interface {
	Load(ctx context.Context, ref Ref) (bindings map[string]V, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, bindings map[string]V, meta Meta) (Meta, error)
}

// Mutator edits a bindings document in place.
type Mutator[V any] func(map[string]V) error

// SortScopes validates the scopes and returns them weakest first, the order
// in which the resolver stacks chain levels.
func SortScopes(scopes []Scope) ([]Scope, error) {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]Scope, len(scopes))
	copy(out, scopes)
	for _, scope := range out {
		if scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, scope.Name)
		}
		seen[scope.Name] = struct{}{}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority == out[j].Priority {
			return out[i].Name < out[j].Name
		}
		return out[i].Priority < out[j].Priority
	})
	for i := 1; i < len(out); i++ {
		if out[i-1].Priority >= out[i].Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, out[i].Priority)
		}
	}
	return out, nil
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}

func cloneBindings[V any](bindings map[string]V) map[string]V {
	if bindings == nil {
		return nil
	}
	out := make(map[string]V, len(bindings))
	for k, v := range bindings {
		out[k] = v
	}
	return out
}
