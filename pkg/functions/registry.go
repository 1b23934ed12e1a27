// Package functions implements the function registry: native callbacks and
// expression-defined functions callable from expressions.
//
// Names form a single namespace. A native binding holds a host callback; an
// expression binding holds a body AST parsed once at registration time into
// a registry-owned arena and never re-parsed at call time.
package functions

import (
	"fmt"

	"github.com/sandrolain/goreval/pkg/parser"
	"github.com/sandrolain/goreval/pkg/types"
)

// NativeFunc is the signature for native functions. The evaluator passes a
// contiguous argument slice materialised on its value stack; implementations
// must not retain it.
type NativeFunc func(args []types.Real) types.Real

// Kind discriminates the two binding variants.
type Kind uint8

const (
	// KindNative is a host callback.
	KindNative Kind = iota
	// KindExpression is a pre-parsed expression body with formal parameters.
	KindExpression
)

// MaxParams is the formal-parameter budget of an expression function. The
// evaluator binds actuals into a fixed per-depth frame of this width, which
// keeps the call path allocation-free.
const MaxParams = 8

// Binding is one registered function.
type Binding struct {
	Name   string
	Kind   Kind
	Arity  int
	Native NativeFunc     // KindNative
	Params []string       // KindExpression: formal parameter names
	Body   *types.AstExpr // KindExpression: pre-parsed body
}

// Registry maps function names to bindings. Each name holds at most one
// binding at a time. The registry owns the arena backing every expression
// body registered through it.
//
// A Registry is shared by reference between a Context and every Batch that
// evaluates against it; evaluation only reads it. Mutations must happen
// while no evaluation is in flight.
type Registry struct {
	bindings map[string]*Binding
	arena    *types.Arena
}

// NewRegistry creates an empty function registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]*Binding),
		arena:    types.NewArena(0),
	}
}

// RegisterNative binds name to a host callback with the given arity,
// overwriting any prior binding of name.
func (r *Registry) RegisterNative(name string, arity int, fn NativeFunc) {
	r.bindings[name] = &Binding{
		Name:   name,
		Kind:   KindNative,
		Arity:  arity,
		Native: fn,
	}
}

// RegisterExpression parses body into the registry's arena and binds name
// to it. It fails when a native function already holds the name (names form
// a single namespace); re-registering an expression function overwrites it.
func (r *Registry) RegisterExpression(name string, params []string, body string) error {
	if existing, ok := r.bindings[name]; ok && existing.Kind == KindNative {
		return types.NewError(types.ErrDuplicateName,
			fmt.Sprintf("Native function %q already registered", name), -1)
	}
	if len(params) > MaxParams {
		return types.NewError(types.ErrArityLimit,
			fmt.Sprintf("Function %q has %d parameters; the limit is %d", name, len(params), MaxParams), -1)
	}

	binding, err := ParseExpressionBinding(r.arena, name, params, body)
	if err != nil {
		return err
	}
	r.bindings[name] = binding
	return nil
}

// Remove deletes whichever binding holds name and reports whether one
// existed. Arena bytes backing a removed expression body are reclaimed only
// when the registry itself is dropped.
func (r *Registry) Remove(name string) bool {
	if _, ok := r.bindings[name]; !ok {
		return false
	}
	delete(r.bindings, name)
	return true
}

// Lookup returns the binding for name.
func (r *Registry) Lookup(name string) (*Binding, bool) {
	b, ok := r.bindings[name]
	return b, ok
}

// NativeCount returns the number of native bindings.
func (r *Registry) NativeCount() int {
	n := 0
	for _, b := range r.bindings {
		if b.Kind == KindNative {
			n++
		}
	}
	return n
}

// Count returns the total number of bindings.
func (r *Registry) Count() int {
	return len(r.bindings)
}

// ParseExpressionBinding parses body into arena and builds an expression
// binding. Shared with batch-local expression functions, whose bodies live
// in the batch's own arena instead of a registry's. The arena is rolled
// back when parsing fails.
func ParseExpressionBinding(arena *types.Arena, name string, params []string, body string) (*Binding, error) {
	if len(params) > MaxParams {
		return nil, types.NewError(types.ErrArityLimit,
			fmt.Sprintf("Function %q has %d parameters; the limit is %d", name, len(params), MaxParams), -1)
	}
	ast, err := parser.ParseInto(body, arena)
	if err != nil {
		return nil, err
	}
	return &Binding{
		Name:   name,
		Kind:   KindExpression,
		Arity:  len(params),
		Params: params,
		Body:   ast,
	}, nil
}
