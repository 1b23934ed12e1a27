// Package goreval provides an embeddable arithmetic-expression engine for
// realtime hosts.
//
// Expressions are parsed once into an arena and evaluated many times with
// zero allocation on the evaluation path; tearing a batch down releases
// every node it parsed in one step. The engine is single-threaded
// cooperative: a Context and its Batches belong to one goroutine at a time,
// and separate Context/Batch pairs may run on separate goroutines without
// sharing.
//
// # Quick Start
//
//	// One-shot evaluation
//	result, err := goreval.Eval("2 + 3 * 4", nil)
//
//	// Parse once, evaluate many times with zero allocation
//	ctx := goreval.NewContext()
//	batch := goreval.NewBatch()
//	idx, _ := batch.AddExpression("x + y * FACTOR")
//	batch.AddParameter("x", 5)
//	batch.AddParameter("y", 10)
//	ctx.SetConstant("FACTOR", 2.5)
//	_ = batch.Evaluate(ctx)
//	v, _ := batch.Result(idx)
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/sandrolain/goreval/pkg/parser
//   - Evaluator: github.com/sandrolain/goreval/pkg/evaluator
//   - Functions: github.com/sandrolain/goreval/pkg/functions
//   - Embedding boundary: github.com/sandrolain/goreval/pkg/ffi
package goreval

import (
	"fmt"

	"github.com/sandrolain/goreval/pkg/evaluator"
	"github.com/sandrolain/goreval/pkg/functions"
	"github.com/sandrolain/goreval/pkg/parser"
	"github.com/sandrolain/goreval/pkg/types"
)

// Version returns the current version of goreval.
func Version() string {
	return "v0.1.0-dev"
}

// Real is the engine's numeric type, selected at build time (float64 by
// default, float32 under the real32 tag).
type Real = types.Real

// NativeFunc is the signature for host callbacks registered as functions.
type NativeFunc = functions.NativeFunc

// Compile parses an expression for repeated stand-alone evaluation.
// Hosts that evaluate sets of expressions at a fixed rate should prefer
// [NewBatch], whose evaluation path is allocation-free.
func Compile(src string, opts ...parser.CompileOption) (*types.Expression, error) {
	return parser.Parse(src, opts...)
}

// MustCompile is like Compile but panics if the expression cannot be
// compiled. It simplifies safe initialization of global variables.
func MustCompile(src string) *types.Expression {
	expr, err := Compile(src)
	if err != nil {
		panic(fmt.Sprintf("goreval: Compile(%q): %v", src, err))
	}
	return expr
}

// Eval compiles and evaluates an expression in a single call, with vars
// bound as context variables. The default context carries the math
// builtins and the constants pi and e.
func Eval(src string, vars map[string]Real) (Real, error) {
	expr, err := Compile(src)
	if err != nil {
		return 0, err
	}
	ctx := evaluator.NewContext()
	for name, value := range vars {
		ctx.SetVariable(name, value)
	}
	return evaluator.EvalExpression(expr, ctx)
}

// EvalWith evaluates a compiled expression against an existing context.
func EvalWith(expr *types.Expression, ctx *evaluator.Context) (Real, error) {
	return evaluator.EvalExpression(expr, ctx)
}

// NewContext creates a context with the default math registry and the
// constants pi and e.
func NewContext() *evaluator.Context {
	return evaluator.NewContext()
}

// NewBatch creates an empty batch owning a fresh arena.
func NewBatch(opts ...evaluator.BatchOption) *evaluator.Batch {
	return evaluator.NewBatch(opts...)
}

// WithArenaSizeHint re-exports evaluator.WithArenaSizeHint for convenience.
func WithArenaSizeHint(hint int) evaluator.BatchOption {
	return evaluator.WithArenaSizeHint(hint)
}

// WithContinueOnError re-exports evaluator.WithContinueOnError.
func WithContinueOnError() evaluator.BatchOption {
	return evaluator.WithContinueOnError()
}
