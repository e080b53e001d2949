package chainmap

import (
	"sync"

	"github.com/google/uuid"
)

// node is one level of the chain: a mutex-guarded local store plus the
// upward link. Nodes never reference their children; the tree is only
// discoverable by walking parent links, so a node stays alive exactly as
// long as some handle or descendant still points at it.
type node[K comparable, V any] struct {
	mu sync.Mutex
	// storage is nil if and only if the node is transparent. A transparent
	// level structurally cannot hold bindings, it always delegates upward.
	storage     map[K]V
	parent      *node[K, V]
	transparent bool
	locked      bool

	// id identifies the level in traces and watch events. Assigned once at
	// construction.
	id string
}

func newRootNode[K comparable, V any]() *node[K, V] {
	return &node[K, V]{
		storage: make(map[K]V),
		id:      uuid.NewString(),
	}
}

func newRootNodeWith[K comparable, V any](bindings map[K]V) *node[K, V] {
	n := newRootNode[K, V]()
	for key, value := range bindings {
		n.storage[key] = value
	}
	return n
}

func newChildNode[K comparable, V any](parent *node[K, V]) *node[K, V] {
	return &node[K, V]{
		storage: make(map[K]V),
		parent:  parent,
		id:      uuid.NewString(),
	}
}

// newChildNodeWith copies bindings into the fresh level; the caller keeps
// ownership of the original map.
func newChildNodeWith[K comparable, V any](parent *node[K, V], bindings map[K]V) *node[K, V] {
	n := newChildNode(parent)
	for key, value := range bindings {
		n.storage[key] = value
	}
	return n
}

func newTransparentNode[K comparable, V any](parent *node[K, V]) *node[K, V] {
	return &node[K, V]{
		parent:      parent,
		transparent: true,
		id:          uuid.NewString(),
	}
}

// lock marks the level read-only. Set at most once, never cleared.
func (n *node[K, V]) lock() {
	n.mu.Lock()
	n.locked = true
	n.mu.Unlock()
}

// writeTarget returns the nearest level that can accept a local insert:
// transparent levels are skipped because they have no storage of their own.
// Returns nil when every candidate up the chain is transparent, which the
// root constructor makes impossible.
func (n *node[K, V]) writeTarget() *node[K, V] {
	for level := n; level != nil; level = level.parent {
		if !level.transparent {
			return level
		}
	}
	return nil
}

// getLocal reads the level's own storage. ok is always false on a
// transparent level.
func (n *node[K, V]) getLocal(key K) (V, bool) {
	var zero V
	if n.transparent {
		return zero, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	value, ok := n.storage[key]
	if !ok {
		return zero, false
	}
	return value, true
}

// setLocal writes into the level's own storage. The caller is responsible
// for having resolved transparency first.
func (n *node[K, V]) setLocal(key K, value V) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.locked {
		return ErrLocked
	}
	if n.storage == nil {
		return ErrDetached
	}
	n.storage[key] = value
	return nil
}

// replaceLocal mutates an existing binding in place, reporting whether the
// level owned the key. Locked levels still accept replacements: locking
// freezes a level's key set, not the values it already holds.
func (n *node[K, V]) replaceLocal(key K, value V) bool {
	if n.transparent {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.storage[key]; !ok {
		return false
	}
	n.storage[key] = value
	return true
}

// snapshotLocal copies the level's own bindings while holding its lock.
func (n *node[K, V]) snapshotLocal() map[K]V {
	if n.transparent {
		return map[K]V{}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[K]V, len(n.storage))
	for key, value := range n.storage {
		out[key] = value
	}
	return out
}
