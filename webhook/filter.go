package webhook

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Filters compiles and evaluates webhook filter expressions. Programs are
// cached by expression text.
type Filters struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewFilters creates an evaluator whose expressions see two variables:
// `event` (the event name) and `payload` (the dispatched payload).
func NewFilters() (*Filters, error) {
	env, err := cel.NewEnv(
		cel.Variable("event", cel.StringType),
		cel.Variable("payload", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("webhook: cel environment: %w", err)
	}
	return &Filters{env: env, cache: make(map[string]cel.Program)}, nil
}

// Compile checks that expr is a valid boolean expression.
func (f *Filters) Compile(expr string) error {
	_, err := f.program(expr)
	return err
}

// Match evaluates expr. An empty expression always matches.
func (f *Filters) Match(expr, eventName string, payload map[string]any) (bool, error) {
	if expr == "" {
		return true, nil
	}
	prg, err := f.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{
		"event":   eventName,
		"payload": payload,
	})
	if err != nil {
		return false, fmt.Errorf("webhook: filter eval: %w", err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("webhook: filter %q did not return a bool", expr)
	}
	return ok, nil
}

func (f *Filters) program(expr string) (cel.Program, error) {
	f.mu.RLock()
	prg, ok := f.cache[expr]
	f.mu.RUnlock()
	if ok {
		return prg, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if prg, ok := f.cache[expr]; ok {
		return prg, nil
	}

	ast, issues := f.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("webhook: filter compile: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("webhook: filter %q must be a bool expression", expr)
	}
	prg, err := f.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("webhook: filter program: %w", err)
	}
	f.cache[expr] = prg
	return prg, nil
}
