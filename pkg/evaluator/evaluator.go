package evaluator

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/sandrolain/goreval/pkg/functions"
	"github.com/sandrolain/goreval/pkg/types"
)

// MaxCallDepth bounds nested expression-function calls. The limit is
// enforced numerically so that self- or mutual recursion terminates with an
// error instead of overflowing the host stack.
const MaxCallDepth = 32

// opcode discriminates work-stack frames. The evaluator never recurses on
// the host stack: every pending operation is an explicit frame.
type opcode uint8

const (
	opEval     opcode = iota // evaluate frame.node
	opUnary                  // apply unary operator to the top value
	opBinary                 // pop rhs, combine with new top
	opAndRHS                 // && branch: evaluate rhs only if top is truthy
	opOrRHS                  // || branch: evaluate rhs only if top is falsy
	opToBool                 // normalize top to 1/0
	opSeq                    // list operator: drop the left value, keep the right
	opIndex                  // pop index value, load array element
	opCall                   // arguments are evaluated; dispatch the call
	opPopScope               // leave an expression-function parameter scope
)

type frame struct {
	op   opcode
	node *types.AstExpr
	bind *functions.Binding
}

// machine is the evaluator state: an explicit frame stack, a value stack,
// and a fixed array of parameter scopes for expression-function calls.
// Both stacks are pre-reserved by the owner (Batch or one-shot entry point);
// evaluation never grows them, so the hot path performs zero allocations.
// Exceeding a reserved bound is reported as ErrCapacityExceeded.
type machine struct {
	frames    []frame
	values    []Real
	scopeBind [MaxCallDepth]*functions.Binding
	scopeVals [MaxCallDepth][functions.MaxParams]Real
	depth     int
}

// reserve ensures stack capacity. Called at expression-add time, never
// during evaluation.
func (m *machine) reserve(frameCap, valueCap int) {
	if cap(m.frames) < frameCap {
		m.frames = make([]frame, 0, frameCap)
	}
	if cap(m.values) < valueCap {
		m.values = make([]Real, 0, valueCap)
	}
}

// callBudget is the fixed frame/value headroom reserved for expression
// function bodies on top of the per-expression node count.
const callBudget = MaxCallDepth * 64

// frameBudget returns the frame-stack reservation for an expression of n nodes.
func frameBudget(n int) int {
	return 4*n + callBudget + 64
}

// valueBudget returns the value-stack reservation for an expression of n nodes.
func valueBudget(n int) int {
	return 2*n + callBudget + 64
}

func (m *machine) pushFrame(f frame) bool {
	if len(m.frames) == cap(m.frames) {
		return false
	}
	m.frames = append(m.frames, f)
	return true
}

func (m *machine) pushValue(v Real) bool {
	if len(m.values) == cap(m.values) {
		return false
	}
	m.values = append(m.values, v)
	return true
}

func (m *machine) popValue() Real {
	v := m.values[len(m.values)-1]
	m.values = m.values[:len(m.values)-1]
	return v
}

func capacityError(pos int) error {
	return types.NewError(types.ErrCapacityExceeded, "Evaluation stack limit reached", pos)
}

// run evaluates root against the batch's parameter table (b may be nil for
// one-shot evaluation) and the context's bindings.
func (m *machine) run(root *types.AstExpr, b *Batch, ctx *Context) (Real, error) {
	m.frames = m.frames[:0]
	m.values = m.values[:0]
	m.depth = 0

	if !m.pushFrame(frame{op: opEval, node: root}) {
		return 0, capacityError(root.Pos)
	}

	for len(m.frames) > 0 {
		f := m.frames[len(m.frames)-1]
		m.frames = m.frames[:len(m.frames)-1]

		switch f.op {
		case opEval:
			if err := m.evalNode(f.node, b, ctx); err != nil {
				return 0, err
			}

		case opUnary:
			top := &m.values[len(m.values)-1]
			switch f.node.UnOp {
			case types.OpNeg:
				*top = -*top
			case types.OpPos:
				// identity
			case types.OpBitNot:
				*top = Real(^int64(*top))
			}

		case opBinary:
			rhs := m.popValue()
			lhs := m.values[len(m.values)-1]
			m.values[len(m.values)-1] = applyBinary(f.node.BinOp, lhs, rhs)

		case opAndRHS:
			if m.values[len(m.values)-1] == 0 {
				m.values[len(m.values)-1] = 0
			} else {
				m.popValue()
				if !m.pushFrame(frame{op: opToBool}) || !m.pushFrame(frame{op: opEval, node: f.node.Right}) {
					return 0, capacityError(f.node.Pos)
				}
			}

		case opOrRHS:
			if m.values[len(m.values)-1] != 0 {
				m.values[len(m.values)-1] = 1
			} else {
				m.popValue()
				if !m.pushFrame(frame{op: opToBool}) || !m.pushFrame(frame{op: opEval, node: f.node.Right}) {
					return 0, capacityError(f.node.Pos)
				}
			}

		case opToBool:
			if m.values[len(m.values)-1] != 0 {
				m.values[len(m.values)-1] = 1
			} else {
				m.values[len(m.values)-1] = 0
			}

		case opSeq:
			r := m.popValue()
			m.values[len(m.values)-1] = r

		case opIndex:
			idx := m.popValue()
			arr, ok := lookupArray(f.node.Name, ctx)
			if !ok {
				return 0, types.NewError(types.ErrUnknownName,
					fmt.Sprintf("Unknown array %q", f.node.Name), f.node.Pos)
			}
			i := int(idx) // truncation toward zero
			if i < 0 || i >= len(arr) {
				return 0, types.NewError(types.ErrIndexOutOfBounds,
					fmt.Sprintf("Index %d out of bounds for array %q of length %d", i, f.node.Name, len(arr)), f.node.Pos)
			}
			if !m.pushValue(arr[i]) {
				return 0, capacityError(f.node.Pos)
			}

		case opCall:
			if err := m.dispatchCall(f, b, ctx); err != nil {
				return 0, err
			}

		case opPopScope:
			m.depth--
		}
	}

	return m.values[0], nil
}

// evalNode lowers one AST node onto the work and value stacks.
func (m *machine) evalNode(n *types.AstExpr, b *Batch, ctx *Context) error {
	switch n.Kind {
	case types.NodeConstant:
		if !m.pushValue(n.Num) {
			return capacityError(n.Pos)
		}

	case types.NodeVariable:
		v, ok := m.resolveVariable(n.Name, b, ctx)
		if !ok {
			return types.NewError(types.ErrUnknownName,
				fmt.Sprintf("Unknown variable %q", n.Name), n.Pos)
		}
		if !m.pushValue(v) {
			return capacityError(n.Pos)
		}

	case types.NodeAttribute:
		v, ok := lookupAttribute(n.Name, n.Field, ctx)
		if !ok {
			return types.NewError(types.ErrUnknownAttribute,
				fmt.Sprintf("Unknown attribute %s.%s", n.Name, n.Field), n.Pos)
		}
		if !m.pushValue(v) {
			return capacityError(n.Pos)
		}

	case types.NodeUnary:
		if !m.pushFrame(frame{op: opUnary, node: n}) || !m.pushFrame(frame{op: opEval, node: n.Left}) {
			return capacityError(n.Pos)
		}

	case types.NodeBinary:
		// Logical operators lower to a conditional branch so the right
		// operand is never evaluated when the left side decides the result.
		switch n.BinOp {
		case types.OpAnd:
			if !m.pushFrame(frame{op: opAndRHS, node: n}) || !m.pushFrame(frame{op: opEval, node: n.Left}) {
				return capacityError(n.Pos)
			}
		case types.OpOr:
			if !m.pushFrame(frame{op: opOrRHS, node: n}) || !m.pushFrame(frame{op: opEval, node: n.Left}) {
				return capacityError(n.Pos)
			}
		case types.OpList:
			if !m.pushFrame(frame{op: opSeq, node: n}) ||
				!m.pushFrame(frame{op: opEval, node: n.Right}) ||
				!m.pushFrame(frame{op: opEval, node: n.Left}) {
				return capacityError(n.Pos)
			}
		default:
			if !m.pushFrame(frame{op: opBinary, node: n}) ||
				!m.pushFrame(frame{op: opEval, node: n.Right}) ||
				!m.pushFrame(frame{op: opEval, node: n.Left}) {
				return capacityError(n.Pos)
			}
		}

	case types.NodeArray:
		if !m.pushFrame(frame{op: opIndex, node: n}) || !m.pushFrame(frame{op: opEval, node: n.Left}) {
			return capacityError(n.Pos)
		}

	case types.NodeFunction:
		bind, ok := resolveFunction(n.Name, b, ctx)
		if !ok {
			return types.NewError(types.ErrUnknownFunction,
				fmt.Sprintf("Unknown function %q", n.Name), n.Pos)
		}
		if bind.Arity != len(n.Args) {
			return types.NewError(types.ErrArityMismatch,
				fmt.Sprintf("Function %q expects %d arguments, got %d", n.Name, bind.Arity, len(n.Args)), n.Pos)
		}
		if !m.pushFrame(frame{op: opCall, node: n, bind: bind}) {
			return capacityError(n.Pos)
		}
		// Arguments are pushed in reverse so they evaluate left-to-right
		// and land contiguously on the value stack.
		for i := len(n.Args) - 1; i >= 0; i-- {
			if !m.pushFrame(frame{op: opEval, node: &n.Args[i]}) {
				return capacityError(n.Pos)
			}
		}
	}

	return nil
}

// dispatchCall runs a function whose arguments are on the value stack.
func (m *machine) dispatchCall(f frame, b *Batch, ctx *Context) error {
	bind := f.bind
	n := len(f.node.Args)
	base := len(m.values) - n

	if bind.Kind == functions.KindNative {
		result := bind.Native(m.values[base:len(m.values):len(m.values)])
		m.values = m.values[:base]
		if !m.pushValue(result) {
			return capacityError(f.node.Pos)
		}
		return nil
	}

	if m.depth >= MaxCallDepth {
		return types.NewError(types.ErrRecursionLimit,
			fmt.Sprintf("Call depth limit of %d exceeded in %q", MaxCallDepth, bind.Name), f.node.Pos)
	}

	copy(m.scopeVals[m.depth][:n], m.values[base:])
	m.scopeBind[m.depth] = bind
	m.depth++
	m.values = m.values[:base]

	if !m.pushFrame(frame{op: opPopScope}) || !m.pushFrame(frame{op: opEval, node: bind.Body}) {
		return capacityError(f.node.Pos)
	}
	return nil
}

// resolveVariable looks a name up in resolution order: the innermost
// expression-function scope, the batch parameter table, context variables,
// then context constants.
func (m *machine) resolveVariable(name string, b *Batch, ctx *Context) (Real, bool) {
	if m.depth > 0 {
		bind := m.scopeBind[m.depth-1]
		for i, p := range bind.Params {
			if p == name {
				return m.scopeVals[m.depth-1][i], true
			}
		}
	}
	if b != nil {
		if slot, ok := b.paramIndex[name]; ok {
			return b.paramValues[slot], true
		}
	}
	if ctx != nil {
		if v, ok := ctx.vars[name]; ok {
			return v, true
		}
		if v, ok := ctx.consts[name]; ok {
			return v, true
		}
	}
	return 0, false
}

// resolveFunction checks batch-local expression functions before the
// context registry. The batch table shadows the registry; it never mutates
// it.
func resolveFunction(name string, b *Batch, ctx *Context) (*functions.Binding, bool) {
	if b != nil {
		if bind, ok := b.locals[name]; ok {
			return bind, true
		}
	}
	if ctx != nil {
		return ctx.registry.Lookup(name)
	}
	return nil, false
}

func lookupArray(name string, ctx *Context) ([]Real, bool) {
	if ctx == nil {
		return nil, false
	}
	a, ok := ctx.arrays[name]
	return a, ok
}

func lookupAttribute(object, field string, ctx *Context) (Real, bool) {
	if ctx == nil {
		return 0, false
	}
	return ctx.Attribute(object, field)
}

// applyBinary combines two values. Arithmetic follows IEEE 754: division by
// zero and overflow produce ±Inf/NaN values, not errors. Comparisons yield
// 1/0. Bit operations cast through a 64-bit integer; rotates use the same
// width with the count masked to it.
func applyBinary(op types.BinaryOp, a, b Real) Real {
	switch op {
	case types.OpAdd:
		return a + b
	case types.OpSub:
		return a - b
	case types.OpMul:
		return a * b
	case types.OpDiv:
		return a / b
	case types.OpMod:
		return Real(math.Mod(float64(a), float64(b)))
	case types.OpPow:
		return Real(math.Pow(float64(a), float64(b)))
	case types.OpEq:
		return boolReal(a == b)
	case types.OpNe:
		return boolReal(a != b)
	case types.OpLt:
		return boolReal(a < b)
	case types.OpGt:
		return boolReal(a > b)
	case types.OpLe:
		return boolReal(a <= b)
	case types.OpGe:
		return boolReal(a >= b)
	case types.OpBitOr:
		return Real(int64(a) | int64(b))
	case types.OpBitAnd:
		return Real(int64(a) & int64(b))
	case types.OpShl:
		return Real(int64(a) << (uint64(int64(b)) & 63))
	case types.OpShr:
		return Real(int64(a) >> (uint64(int64(b)) & 63))
	case types.OpRol:
		return Real(int64(bits.RotateLeft64(uint64(int64(a)), int(int64(b)&63))))
	case types.OpRor:
		return Real(int64(bits.RotateLeft64(uint64(int64(a)), -int(int64(b)&63))))
	default:
		return Real(math.NaN())
	}
}

func boolReal(b bool) Real {
	if b {
		return 1
	}
	return 0
}

// EvalExpression evaluates a stand-alone compiled expression against a
// context. The one-shot path reserves transient stacks per call; hosts that
// need the allocation-free path use a Batch.
func EvalExpression(expr *types.Expression, ctx *Context) (Real, error) {
	var m machine
	n := expr.AST().NodeCount()
	m.reserve(frameBudget(n), valueBudget(n))
	return m.run(expr.AST(), nil, ctx)
}
