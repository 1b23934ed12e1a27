package evaluator

import (
	"fmt"
	"math"

	"github.com/sandrolain/goreval/pkg/functions"
	"github.com/sandrolain/goreval/pkg/parser"
	"github.com/sandrolain/goreval/pkg/types"
)

// Batch owns one arena and the expressions parsed into it.
//
// Expressions are added once and evaluated many times; parameters are
// registered by name to stable integer slots and updated in place between
// evaluations. Evaluation writes one result slot per expression and
// performs zero allocations: the work and value stacks are re-reserved at
// expression-add time, never grown on the hot path.
//
// Dropping the Batch (or Clear) invalidates every AST node parsed into its
// arena in a single step.
type Batch struct {
	arena   *types.Arena
	sources []string
	roots   []*types.AstExpr

	paramNames  []string
	paramIndex  map[string]int
	paramValues []Real

	results  []Real
	statuses []error

	// locals shadow the context registry during this batch's evaluation
	// only; bodies are parsed into the batch's own arena.
	locals map[string]*functions.Binding

	m        machine
	maxNodes int

	continueOnError bool
	parseOpts       []parser.CompileOption
}

// BatchOption configures a Batch at creation time.
type BatchOption func(*Batch)

// WithArenaSizeHint pre-sizes the batch's arena to about hint bytes.
func WithArenaSizeHint(hint int) BatchOption {
	return func(b *Batch) {
		b.arena = types.NewArena(hint)
	}
}

// WithContinueOnError makes Evaluate record a per-expression status and
// keep going past failing expressions instead of aborting on the first
// error. Failing slots keep their previous value.
func WithContinueOnError() BatchOption {
	return func(b *Batch) {
		b.continueOnError = true
	}
}

// WithParseOptions applies parser options to every AddExpression call.
func WithParseOptions(opts ...parser.CompileOption) BatchOption {
	return func(b *Batch) {
		b.parseOpts = opts
	}
}

// NewBatch creates an empty Batch owning a fresh arena.
func NewBatch(opts ...BatchOption) *Batch {
	b := &Batch{
		paramIndex: make(map[string]int),
		locals:     make(map[string]*functions.Binding),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.arena == nil {
		b.arena = types.NewArena(0)
	}
	return b
}

// AddExpression parses src into the batch's arena and returns a stable
// expression index. A failed parse rolls the arena back to its pre-attempt
// high-water mark and leaves the batch unchanged; previously returned
// indices stay valid either way.
func (b *Batch) AddExpression(src string) (int, error) {
	root, err := parser.ParseInto(src, b.arena, b.parseOpts...)
	if err != nil {
		return -1, err
	}

	index := len(b.roots)
	b.roots = append(b.roots, root)
	b.sources = append(b.sources, src)
	b.results = append(b.results, Real(math.NaN()))
	b.statuses = append(b.statuses, nil)

	if n := root.NodeCount(); n > b.maxNodes {
		b.maxNodes = n
	}
	b.m.reserve(frameBudget(b.maxNodes), valueBudget(b.maxNodes))

	return index, nil
}

// AddParameter registers a parameter and returns its stable slot.
func (b *Batch) AddParameter(name string, value Real) (int, error) {
	if _, ok := b.paramIndex[name]; ok {
		return -1, types.NewError(types.ErrDuplicateName,
			fmt.Sprintf("Parameter %q already registered", name), -1)
	}
	slot := len(b.paramValues)
	b.paramNames = append(b.paramNames, name)
	b.paramValues = append(b.paramValues, value)
	b.paramIndex[name] = slot
	return slot, nil
}

// SetParameter updates a parameter by slot.
func (b *Batch) SetParameter(slot int, value Real) error {
	if slot < 0 || slot >= len(b.paramValues) {
		return types.NewError(types.ErrInvalidIndex,
			fmt.Sprintf("Parameter slot %d out of range", slot), -1)
	}
	b.paramValues[slot] = value
	return nil
}

// SetParameterByName updates a parameter by name.
func (b *Batch) SetParameterByName(name string, value Real) error {
	slot, ok := b.paramIndex[name]
	if !ok {
		return types.NewError(types.ErrUnknownName,
			fmt.Sprintf("Unknown parameter %q", name), -1)
	}
	b.paramValues[slot] = value
	return nil
}

// ParameterSlot returns the slot registered for name.
func (b *Batch) ParameterSlot(name string) (int, bool) {
	slot, ok := b.paramIndex[name]
	return slot, ok
}

// AddExpressionFunction registers a batch-local expression function whose
// body lives in the batch's arena. It shadows any context-registry binding
// of the same name during this batch's evaluation only.
func (b *Batch) AddExpressionFunction(name string, params []string, body string) error {
	bind, err := functions.ParseExpressionBinding(b.arena, name, params, body)
	if err != nil {
		return err
	}
	b.locals[name] = bind
	return nil
}

// RemoveExpressionFunction removes a batch-local expression function and
// reports whether one existed.
func (b *Batch) RemoveExpressionFunction(name string) bool {
	if _, ok := b.locals[name]; !ok {
		return false
	}
	delete(b.locals, name)
	return true
}

// Evaluate runs every expression in add order against ctx, writing each
// result slot. By default the first error aborts, leaving later slots at
// their previous values; with WithContinueOnError every expression runs and
// per-expression statuses are recorded.
//
// Evaluate performs no allocation: all intermediate storage was reserved at
// add time.
func (b *Batch) Evaluate(ctx *Context) error {
	var first error
	for i, root := range b.roots {
		v, err := b.m.run(root, b, ctx)
		if err != nil {
			b.statuses[i] = err
			if !b.continueOnError {
				return err
			}
			if first == nil {
				first = err
			}
			continue
		}
		b.statuses[i] = nil
		b.results[i] = v
	}
	return first
}

// Result returns the result slot for an expression index. Before the first
// successful evaluation of that slot the value is NaN.
func (b *Batch) Result(index int) (Real, error) {
	if index < 0 || index >= len(b.results) {
		return Real(math.NaN()), types.NewError(types.ErrInvalidIndex,
			fmt.Sprintf("Expression index %d out of range", index), -1)
	}
	return b.results[index], nil
}

// Status returns the per-expression error recorded by the last Evaluate
// under WithContinueOnError; nil means the slot evaluated cleanly.
func (b *Batch) Status(index int) error {
	if index < 0 || index >= len(b.statuses) {
		return types.NewError(types.ErrInvalidIndex,
			fmt.Sprintf("Expression index %d out of range", index), -1)
	}
	return b.statuses[index]
}

// Len returns the number of expressions added.
func (b *Batch) Len() int {
	return len(b.roots)
}

// ParameterCount returns the number of registered parameters.
func (b *Batch) ParameterCount() int {
	return len(b.paramValues)
}

// Clear empties expressions, parameters, results, and batch-local
// functions, and resets the arena. Bytes-used drops to zero; every node
// previously parsed into the batch becomes invalid.
func (b *Batch) Clear() {
	b.arena.Reset()
	b.sources = b.sources[:0]
	b.roots = b.roots[:0]
	b.paramNames = b.paramNames[:0]
	b.paramValues = b.paramValues[:0]
	for name := range b.paramIndex {
		delete(b.paramIndex, name)
	}
	b.results = b.results[:0]
	b.statuses = b.statuses[:0]
	for name := range b.locals {
		delete(b.locals, name)
	}
	b.maxNodes = 0
}

// BytesUsed reports the arena bytes consumed by this batch's expressions
// and local function bodies.
func (b *Batch) BytesUsed() int {
	return b.arena.BytesUsed()
}
