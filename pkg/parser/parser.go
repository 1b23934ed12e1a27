// Package parser implements the expression tokenizer and parser.
//
// The parser uses Pratt's "Top Down Operator Precedence" algorithm: every
// operator's binding power and associativity come from one table, which
// keeps host call-stack depth proportional to expression depth with a small
// per-frame footprint and makes the precedence rules easy to audit.
//
// All AST nodes, including embedded argument slices, are allocated from a
// caller-supplied [types.Arena], and a failed parse rolls the arena back to
// its pre-attempt high-water mark. The arena is not the parser's only
// storage: a call's argument roots are first gathered in a transient Go
// slice outside the arena and then copied into it.
package parser

import (
	"github.com/sandrolain/goreval/pkg/types"
)

// Parse parses an expression into a fresh arena and returns the compiled
// Expression. One-shot convenience; batch owners use ParseInto.
func Parse(src string, opts ...CompileOption) (*types.Expression, error) {
	arena := types.NewArena(0)
	root, err := ParseInto(src, arena, opts...)
	if err != nil {
		return nil, err
	}
	return types.NewExpression(root, src, arena), nil
}

// ParseInto parses an expression, allocating every node in the supplied
// arena. On failure the arena is rolled back to its state at entry.
func ParseInto(src string, arena *types.Arena, opts ...CompileOption) (*types.AstExpr, error) {
	options := CompileOptions{
		MaxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}

	mark := arena.Mark()
	p := newParser(src, arena, options)
	root, err := p.parse()
	if err != nil {
		arena.ReleaseTo(mark)
		return nil, err
	}
	return root, nil
}

// DefaultMaxDepth bounds parser nesting. Each level costs one small stack
// frame, so the default keeps worst-case parse stack usage in the tens of
// kilobytes even on constrained hosts.
const DefaultMaxDepth = 100

// CompileOption configures parsing behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits nesting depth to bound host stack usage.
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
