package chainmap

// Get returns the value bound to key at the level nearest the handle,
// walking parent links until the root. Transparent levels are skipped
// structurally: they have no storage to consult. The second result is false
// when no level in the chain holds the key.
//
// Each visited level is locked on its own; the walk as a whole is not one
// atomic operation, so a concurrent insert into an intermediate level can
// determine which level an in-flight lookup settles on.
func (c *ChainMap[K, V]) Get(key K) (V, bool) {
	for level := c.head; level != nil; level = level.parent {
		if value, ok := level.getLocal(key); ok {
			return value, true
		}
	}
	var zero V
	return zero, false
}

// GetLocal is Get restricted to the handle's own level: it consults only
// the nearest non-transparent level, falling through transparent ones. It
// distinguishes a binding the handle owns from one inherited from an
// ancestor.
func (c *ChainMap[K, V]) GetLocal(key K) (V, bool) {
	level := c.head.writeTarget()
	if level == nil {
		var zero V
		return zero, false
	}
	return level.getLocal(key)
}

// Contains reports whether key is visible anywhere in the chain.
func (c *ChainMap[K, V]) Contains(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Insert binds key to value at the handle's own level without consulting
// ancestors; a same-key ancestor binding becomes shadowed, not removed.
// When the handle's level is transparent the write is redirected to the
// nearest non-transparent ancestor. Inserting through a read-only level
// fails with ErrLocked.
func (c *ChainMap[K, V]) Insert(key K, value V) error {
	target := c.head.writeTarget()
	if target == nil {
		return wrapKeyError("insert", key, ErrDetached)
	}
	return wrapKeyError("insert", key, target.setLocal(key, value))
}

// Update mutates the existing binding for key at the level nearest the
// handle that owns one. The mutation is in place: every handle and
// descendant that can see that level observes the new value. Update never
// creates a binding; it fails with ErrNotFound when no level owns the key.
func (c *ChainMap[K, V]) Update(key K, value V) error {
	for level := c.head; level != nil; level = level.parent {
		if level.replaceLocal(key, value) {
			return nil
		}
	}
	return wrapKeyError("update", key, ErrNotFound)
}

// UpdateOr updates the nearest existing binding for key, inserting at the
// handle's own level when no level owns the key. The insert leg follows
// Insert's rules, so it can fail with ErrLocked.
func (c *ChainMap[K, V]) UpdateOr(key K, value V) error {
	for level := c.head; level != nil; level = level.parent {
		if level.replaceLocal(key, value) {
			return nil
		}
	}
	target := c.head.writeTarget()
	if target == nil {
		return wrapKeyError("update", key, ErrDetached)
	}
	return wrapKeyError("update", key, target.setLocal(key, value))
}

// Locals returns a copy of the handle's own level (the nearest
// non-transparent one). Mutating the returned map does not touch the chain.
func (c *ChainMap[K, V]) Locals() map[K]V {
	level := c.head.writeTarget()
	if level == nil {
		return map[K]V{}
	}
	return level.snapshotLocal()
}

// Flatten merges every level into a single map applying the shadowing rule:
// levels nearer the handle win. The result is detached from the chain.
func (c *ChainMap[K, V]) Flatten() map[K]V {
	var levels []*node[K, V]
	for level := c.head; level != nil; level = level.parent {
		if !level.transparent {
			levels = append(levels, level)
		}
	}
	out := make(map[K]V)
	for i := len(levels) - 1; i >= 0; i-- {
		for key, value := range levels[i].snapshotLocal() {
			out[key] = value
		}
	}
	return out
}
