package chainmap

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no level in the chain holds the requested key.
	ErrNotFound = errors.New("chainmap: key not found")
	// ErrLocked indicates an insert was attempted against a read-only level.
	ErrLocked = errors.New("chainmap: level is read-only")
	// ErrDetached indicates a handle whose level storage is gone. Reachable
	// only through misuse of a zero-value handle; the ownership invariants
	// keep live chains out of this state.
	ErrDetached = errors.New("chainmap: level storage detached")
)

// KeyError carries the operation and key alongside the originating error so
// callers logging failures keep the context.
type KeyError struct {
	Op  string
	Key any
	Err error
}

func (e *KeyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("chainmap: %s key=%v: %v", e.Op, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapKeyError(op string, key any, err error) error {
	if err == nil {
		return nil
	}
	var keyErr *KeyError
	if errors.As(err, &keyErr) {
		return err
	}
	return &KeyError{Op: op, Key: key, Err: err}
}
