// Package watch fans chain mutation events out to caller-supplied hooks,
// giving interpreters and configuration loaders an audit trail of which
// level every insert and update landed on.
package watch

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Verbs reported by the chainmap Env wrapper.
const (
	VerbInsert   = "insert"
	VerbUpdate   = "update"
	VerbFork     = "fork"
	VerbReadonly = "readonly"
)

// Event describes one chain mutation.
type Event struct {
	Verb       string
	Key        string
	LevelID    string
	Source     string
	Value      any
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized mutation events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. It normalizes the event and short-circuits when the verb or level
// is missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.LevelID == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers, clones metadata, and ensures a
// timestamp is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.Key = strings.TrimSpace(event.Key)
	normalized.LevelID = strings.TrimSpace(event.LevelID)
	normalized.Source = strings.TrimSpace(event.Source)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
