package state

import (
	"context"
	"fmt"

	chainmap "github.com/goliatone/go-chainmap"
)

// Resolver orchestrates scoped loads and assembles them into a chain: the
// weakest scope becomes the root, each stronger scope a level above it, and
// the returned Env designates the strongest level.
type Resolver[V any] struct {
	Store Store[V]
	// EnvOptions are applied to every Env the resolver produces.
	EnvOptions []chainmap.Option
}

// Resolve loads every scope's bindings and stacks them into a chain.
// Scopes with no stored document are skipped; resolving fails when nothing
// was found at all.
func (r Resolver[V]) Resolve(ctx context.Context, domain string, scopes ...Scope) (*chainmap.Env[V], error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("state: domain is required")
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("state: at least one scope is required")
	}

	ordered, err := SortScopes(scopes)
	if err != nil {
		return nil, err
	}

	var chain *chainmap.ChainMap[string, V]
	loaded := 0
	for _, scope := range ordered {
		bindings, _, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if !ok {
			continue
		}
		if chain == nil {
			chain = chainmap.NewWith(bindings)
		} else {
			chain = chain.ExtendWith(bindings)
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("state: no bindings found for domain %q", domain)
	}
	return chainmap.NewEnv(chain, r.EnvOptions...), nil
}

// ResolveWithDefaults resolves like Resolve but seeds the root with the
// supplied defaults beneath every stored scope, so lookups always have a
// weakest level to fall through to.
func (r Resolver[V]) ResolveWithDefaults(ctx context.Context, domain string, defaults map[string]V, scopes ...Scope) (*chainmap.Env[V], error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("state: domain is required")
	}

	ordered, err := SortScopes(scopes)
	if err != nil {
		return nil, err
	}
	for _, scope := range ordered {
		if scope.Name == "defaults" {
			return nil, fmt.Errorf("state: scope name %q is reserved", "defaults")
		}
	}

	chain := chainmap.NewWith(defaults)
	for _, scope := range ordered {
		bindings, _, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if !ok {
			continue
		}
		chain = chain.ExtendWith(bindings)
	}
	return chainmap.NewEnv(chain, r.EnvOptions...), nil
}

// Mutate loads one bindings document, applies fn, then saves. The meta
// argument's ETag, when set, must match the stored ETag or the mutation is
// rejected with ErrETagMismatch.
func (r Resolver[V]) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[V]) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if ref.Domain == "" {
		return Meta{}, fmt.Errorf("state: domain is required")
	}
	if ref.Scope.Name == "" {
		return Meta{}, ErrScopeNameRequired
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("state: mutator is required")
	}

	bindings, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if !ok {
		bindings = map[string]V{}
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(bindings); err != nil {
		return loadedMeta, err
	}

	savedMeta, err := r.Store.Save(ctx, ref, bindings, mergeMeta(loadedMeta, meta))
	if err != nil {
		return loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	return savedMeta, nil
}

// SaveLocals persists the handle's own level under ref. Ancestor levels are
// deliberately excluded: each scope owns exactly one level's bindings.
func (r Resolver[V]) SaveLocals(ctx context.Context, ref Ref, handle *chainmap.ChainMap[string, V], meta Meta) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if handle == nil {
		return Meta{}, fmt.Errorf("state: handle is required")
	}
	savedMeta, err := r.Store.Save(ctx, ref, handle.Locals(), meta)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	return savedMeta, nil
}

func mergeMeta(loaded, supplied Meta) Meta {
	out := cloneMeta(loaded)
	if supplied.SnapshotID != "" {
		out.SnapshotID = supplied.SnapshotID
	}
	if supplied.ETag != "" {
		out.ETag = supplied.ETag
	}
	if !supplied.UpdatedAt.IsZero() {
		out.UpdatedAt = supplied.UpdatedAt
	}
	if len(supplied.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]string, len(supplied.Extra))
		}
		for k, v := range supplied.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
