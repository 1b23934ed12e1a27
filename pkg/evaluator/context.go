// Package evaluator implements the evaluation side of the engine: the
// Context of variables, constants, arrays and attributes; the Batch of
// parsed expressions sharing one arena; and the iterative evaluator that
// walks the AST over an explicit work stack.
package evaluator

import (
	"fmt"

	"github.com/sandrolain/goreval/pkg/functions"
	"github.com/sandrolain/goreval/pkg/types"
)

// Real re-exports the engine's numeric type for call sites that only import
// the evaluator.
type Real = types.Real

// Context holds the name bindings an evaluation resolves against:
// variables, write-once constants, arrays, attributes, and the shared
// function registry.
//
// A Context is single-owner: it may be used by many Batches, but from one
// goroutine at a time. It takes no locks.
type Context struct {
	vars     map[string]Real
	consts   map[string]Real
	arrays   map[string][]Real
	attrs    map[string]map[string]Real
	registry *functions.Registry
}

// NewContext creates a context with the default math registry and the
// constants pi and e pre-registered.
func NewContext() *Context {
	ctx := NewEmptyContext()
	ctx.registry = functions.DefaultRegistry()
	ctx.consts["pi"] = Real(3.14159265358979323846)
	ctx.consts["e"] = Real(2.71828182845904523536)
	return ctx
}

// NewEmptyContext creates a context with no bindings and an empty registry.
func NewEmptyContext() *Context {
	return &Context{
		vars:     make(map[string]Real),
		consts:   make(map[string]Real),
		arrays:   make(map[string][]Real),
		attrs:    make(map[string]map[string]Real),
		registry: functions.NewRegistry(),
	}
}

// SetVariable sets or overwrites a variable.
func (c *Context) SetVariable(name string, value Real) {
	c.vars[name] = value
}

// Variable returns a variable's value.
func (c *Context) Variable(name string) (Real, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// SetConstant registers a constant. Constants are write-once per context.
func (c *Context) SetConstant(name string, value Real) error {
	if _, ok := c.consts[name]; ok {
		return types.NewError(types.ErrDuplicateName,
			fmt.Sprintf("Constant %q already defined", name), -1)
	}
	c.consts[name] = value
	return nil
}

// Constant returns a constant's value.
func (c *Context) Constant(name string) (Real, bool) {
	v, ok := c.consts[name]
	return v, ok
}

// SetArray sets or overwrites an array. The context keeps the slice by
// reference; the host may update elements in place between evaluations.
func (c *Context) SetArray(name string, values []Real) {
	c.arrays[name] = values
}

// Array returns an array by name.
func (c *Context) Array(name string) ([]Real, bool) {
	a, ok := c.arrays[name]
	return a, ok
}

// SetAttribute sets object.field to value, creating the object on first use.
func (c *Context) SetAttribute(object, field string, value Real) {
	fields, ok := c.attrs[object]
	if !ok {
		fields = make(map[string]Real)
		c.attrs[object] = fields
	}
	fields[field] = value
}

// Attribute returns the value of object.field.
func (c *Context) Attribute(object, field string) (Real, bool) {
	fields, ok := c.attrs[object]
	if !ok {
		return 0, false
	}
	v, ok := fields[field]
	return v, ok
}

// Registry returns the context's function registry, shared by reference
// with every Batch that evaluates against this context.
func (c *Context) Registry() *functions.Registry {
	return c.registry
}
