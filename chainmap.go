// Package chainmap implements a tree of key-value levels with fall-through
// lookup: each handle designates one level, lookups walk parent links, and
// entries nearer the handle shadow entries nearer the root. Many handles can
// branch off a shared ancestor without copying it, which makes the structure
// a natural fit for interpreter scopes and hierarchical configuration.
//
// Levels are individually mutex-guarded, so distinct handles may be used
// from distinct goroutines. A single handle, however, is a mutable binding
// (Fork rebinds it in place) and is not safe for concurrent use.
package chainmap

// ChainMap is a handle onto one level of a chain. The zero value is not
// usable; construct roots with New or NewWith and derive descendants with
// the Extend and Fork families.
type ChainMap[K comparable, V any] struct {
	head *node[K, V]
}

// New returns a handle bound to a fresh empty root level.
func New[K comparable, V any]() *ChainMap[K, V] {
	return &ChainMap[K, V]{head: newRootNode[K, V]()}
}

// NewWith returns a root handle seeded with a copy of bindings.
func NewWith[K comparable, V any](bindings map[K]V) *ChainMap[K, V] {
	return &ChainMap[K, V]{head: newRootNodeWith(bindings)}
}

// Extend derives a handle one level deeper. The receiver keeps designating
// its own level; both handles coexist as parent and child.
func (c *ChainMap[K, V]) Extend() *ChainMap[K, V] {
	return &ChainMap[K, V]{head: newChildNode(c.head)}
}

// ExtendWith derives a handle one level deeper, pre-seeded with a copy of
// bindings. Seeded entries shadow same-key entries in ancestor levels; the
// ancestors themselves are untouched.
func (c *ChainMap[K, V]) ExtendWith(bindings map[K]V) *ChainMap[K, V] {
	return &ChainMap[K, V]{head: newChildNodeWith(c.head, bindings)}
}

// ExtendFallthrough derives a handle bound to a transparent level: one with
// no storage of its own that always delegates to its parent. Inserts through
// the returned handle land in the nearest non-transparent ancestor.
func (c *ChainMap[K, V]) ExtendFallthrough() *ChainMap[K, V] {
	return &ChainMap[K, V]{head: newTransparentNode(c.head)}
}

// Readonly derives a handle whose own level rejects inserts with ErrLocked.
// The lock is placed on a fresh child level rather than on the receiver's
// level, so other handles sharing the receiver's level keep their write
// access. Everything visible through the receiver stays readable, and
// Update still reaches ancestor-owned bindings: locking freezes a level's
// key set, not values owned elsewhere in the chain.
func (c *ChainMap[K, V]) Readonly() *ChainMap[K, V] {
	n := newChildNode(c.head)
	n.lock()
	return &ChainMap[K, V]{head: n}
}

// Fork freezes the receiver's current level and hands back a handle onto an
// independent sibling branch. Concretely, with the receiver bound to level A:
//
//   - the returned handle is bound to a fresh child of A (as Extend),
//   - the receiver is rebound to a fresh writable level stacked on a
//     transparent proxy of A.
//
// A's content stays readable through both handles and remains updatable in
// place, but new inserts through the receiver land above the proxy and are
// invisible to the returned branch. Other handles already bound to A are
// unaffected: rebinding replaces only what the receiver designates.
func (c *ChainMap[K, V]) Fork() *ChainMap[K, V] {
	return c.fork(newChildNode(c.head))
}

// ForkWith is Fork with the new branch pre-seeded from a copy of bindings.
func (c *ChainMap[K, V]) ForkWith(bindings map[K]V) *ChainMap[K, V] {
	return c.fork(newChildNodeWith(c.head, bindings))
}

func (c *ChainMap[K, V]) fork(newlevel *node[K, V]) *ChainMap[K, V] {
	oldlevel := newChildNode(newTransparentNode(c.head))
	c.head = oldlevel
	return &ChainMap[K, V]{head: newlevel}
}

// LevelID returns the opaque identifier of the handle's current level, as
// reported in traces and watch events.
func (c *ChainMap[K, V]) LevelID() string {
	return c.head.id
}

// Depth reports the number of levels reachable walking upward from the
// handle, transparent levels included.
func (c *ChainMap[K, V]) Depth() int {
	depth := 0
	for level := c.head; level != nil; level = level.parent {
		depth++
	}
	return depth
}
