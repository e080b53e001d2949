package chainmap

import (
	"context"

	"github.com/goliatone/go-chainmap/pkg/watch"
)

// Env wraps a string-keyed chain with evaluator and observability
// configuration. It is the surface interpreter scope managers and config
// loaders are expected to hold: mutations route through the chain and are
// reported to any configured watch hooks, and expressions can be evaluated
// against the chain's effective bindings.
type Env[V any] struct {
	chain *ChainMap[string, V]
	cfg   envConfig
}

// Option configures an Env.
type Option func(*envConfig)

type envConfig struct {
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       EvaluatorLogger
	hooks        watch.Hooks
}

// NewEnv wraps chain. A nil chain gets a fresh root.
func NewEnv[V any](chain *ChainMap[string, V], opts ...Option) *Env[V] {
	if chain == nil {
		chain = New[string, V]()
	}
	cfg := envConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Env[V]{chain: chain, cfg: cfg}
}

// WithEvaluator configures the evaluator used by Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *envConfig) {
		cfg.evaluator = e
	}
}

// WithHooks attaches watch hooks notified on every mutation through the
// Env. Nil entries are dropped.
func WithHooks(hooks watch.Hooks) Option {
	normalized := make(watch.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return func(cfg *envConfig) {
		if len(normalized) == 0 {
			cfg.hooks = nil
			return
		}
		cfg.hooks = normalized
	}
}

// Chain exposes the wrapped handle for direct chain operations.
func (e *Env[V]) Chain() *ChainMap[string, V] {
	return e.chain
}

// Get resolves key through the chain.
func (e *Env[V]) Get(key string) (V, bool) {
	return e.chain.Get(key)
}

// Insert binds key at the chain's own level and notifies hooks. The
// binding is applied even when a hook reports a failure; the hook error is
// returned so it is never silently dropped.
func (e *Env[V]) Insert(key string, value V) error {
	if err := e.chain.Insert(key, value); err != nil {
		return err
	}
	return e.notify(watch.VerbInsert, key, value)
}

// Update mutates the nearest binding for key and notifies hooks.
func (e *Env[V]) Update(key string, value V) error {
	if err := e.chain.Update(key, value); err != nil {
		return err
	}
	return e.notify(watch.VerbUpdate, key, value)
}

// UpdateOr updates the nearest binding or inserts locally, then notifies
// hooks.
func (e *Env[V]) UpdateOr(key string, value V) error {
	if err := e.chain.UpdateOr(key, value); err != nil {
		return err
	}
	return e.notify(watch.VerbUpdate, key, value)
}

// Extend derives an Env one level deeper sharing this Env's configuration.
func (e *Env[V]) Extend() *Env[V] {
	return &Env[V]{chain: e.chain.Extend(), cfg: e.cfg}
}

// ExtendWith derives a seeded Env one level deeper sharing this Env's
// configuration.
func (e *Env[V]) ExtendWith(bindings map[string]V) *Env[V] {
	return &Env[V]{chain: e.chain.ExtendWith(bindings), cfg: e.cfg}
}

// Readonly derives an Env whose level rejects local inserts.
func (e *Env[V]) Readonly() *Env[V] {
	child := &Env[V]{chain: e.chain.Readonly(), cfg: e.cfg}
	_ = e.notify(watch.VerbReadonly, "", nil)
	return child
}

// Fork rebinds the wrapped handle per ChainMap.Fork, notifies hooks, and
// returns the new branch wrapped with the same configuration.
func (e *Env[V]) Fork() *Env[V] {
	branch := &Env[V]{chain: e.chain.Fork(), cfg: e.cfg}
	_ = e.notify(watch.VerbFork, "", nil)
	return branch
}

func (e *Env[V]) notify(verb, key string, value any) error {
	if !e.cfg.hooks.Enabled() {
		return nil
	}
	return e.cfg.hooks.Notify(context.Background(), watch.Event{
		Verb:    verb,
		Key:     key,
		LevelID: e.chain.LevelID(),
		Value:   value,
	})
}

// bindings flattens the chain into the evaluator environment.
func (e *Env[V]) bindings() map[string]any {
	flat := e.chain.Flatten()
	out := make(map[string]any, len(flat))
	for key, value := range flat {
		out[key] = value
	}
	return out
}

func (e *Env[V]) evaluatorLogger() EvaluatorLogger {
	if e.cfg.logger != nil {
		return e.cfg.logger
	}
	return noopEvaluatorLogger{}
}
