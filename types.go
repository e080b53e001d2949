package chainmap

import (
	"time"
)

// RuleContext carries the inputs needed when evaluating an expression
// against a chain's effective bindings.
type RuleContext struct {
	// Bindings is the flattened view of the chain: nearest levels win.
	Bindings map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Level identifies the handle's level the bindings were flattened from.
	Level string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Bindings == nil {
		ctx.Bindings = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) levelLabel() string {
	if ctx.Level != "" {
		return ctx.Level
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}
