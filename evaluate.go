package chainmap

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("chainmap: evaluator not configured")

// Evaluate executes expr against the chain's effective bindings using the
// configured evaluator and wraps the result.
func (e *Env[V]) Evaluate(expr string) (Response[any], error) {
	return e.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith executes expr using ctx, falling back to the chain's
// flattened bindings when ctx.Bindings is nil.
func (e *Env[V]) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("expression must not be empty")
	}
	evaluator, err := e.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	if ctx.Bindings == nil {
		ctx.Bindings = e.bindings()
	}
	if ctx.Level == "" {
		ctx.Level = e.chain.LevelID()
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.levelLabel(), evalErr)
	e.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Level:    ctx.levelLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

func (e *Env[V]) resolveEvaluator() (Evaluator, error) {
	if e.cfg.evaluator != nil {
		return e.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := e.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := e.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	e.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*chainmap.exprEvaluator":
		return "expr"
	case "*chainmap.celEvaluator":
		return "cel"
	case "*chainmap.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
