// Package ffi is the embedding boundary of the engine: opaque handles,
// magic-tagged object headers, integer status codes, and ExprResult return
// discipline.
//
// Hosts hold Handle values instead of pointers. Every entry point first
// rejects the zero handle, then checks the object header's magic before
// touching anything else, so use-after-free, double free, and type
// confusion surface as StatusInvalidPointer instead of corruption. The
// boundary is single-threaded cooperative like the rest of the engine:
// no entry point takes a lock, and the handle table must not be mutated
// from two goroutines at once.
package ffi

import (
	"math"
	"strings"

	"github.com/sandrolain/goreval/pkg/evaluator"
	"github.com/sandrolain/goreval/pkg/functions"
	"github.com/sandrolain/goreval/pkg/types"
)

// Real re-exports the engine's numeric type.
type Real = types.Real

// NativeFunc re-exports the native callback signature.
type NativeFunc = functions.NativeFunc

// Handle is an opaque reference to an engine object. Zero is the null
// handle.
type Handle uint64

// Object header magic values. Each live type gets its own constant so a
// Batch handle passed where a Context is expected is caught by the same
// check that catches freed handles.
const (
	magicContextLive uint32 = 0x43545831 // "CTX1"
	magicBatchLive   uint32 = 0x42544831 // "BTH1"
	magicFreed       uint32 = 0xDEADFA11
)

// header is the fixed-layout prefix of every handle-backed object.
type header struct {
	magic uint32
}

type object struct {
	header
	ctx   *evaluator.Context
	batch *evaluator.Batch
}

var (
	objects    = make(map[Handle]*object)
	nextHandle Handle
)

// ExprResult carries a status plus either a value or an index, and an
// optional engine-owned error string. A non-empty Err must be released with
// FreeError.
type ExprResult struct {
	Status Status
	Value  Real
	Index  int32
	Err    string
}

func okValue(v Real) ExprResult {
	return ExprResult{Status: StatusOK, Value: v, Index: -1}
}

func okIndex(i int) ExprResult {
	return ExprResult{Status: StatusOK, Value: Real(math.NaN()), Index: int32(i)}
}

func statusResult(st Status) ExprResult {
	return ExprResult{Status: st, Value: Real(math.NaN()), Index: -1}
}

func failResult(err error) ExprResult {
	return ExprResult{Status: statusOf(err), Value: Real(math.NaN()), Index: -1, Err: err.Error()}
}

// FreeError releases the error string of a result. Paired with any entry
// point that returned a non-empty Err.
func FreeError(r *ExprResult) {
	if r != nil {
		r.Err = ""
	}
}

// lookupContext resolves a context handle, enforcing the null and magic
// checks shared by every entry point.
func lookupContext(h Handle) (*evaluator.Context, Status) {
	if h == 0 {
		return nil, StatusNullPointer
	}
	obj, ok := objects[h]
	if !ok || obj.magic != magicContextLive {
		return nil, StatusInvalidPointer
	}
	return obj.ctx, StatusOK
}

func lookupBatch(h Handle) (*evaluator.Batch, Status) {
	if h == 0 {
		return nil, StatusNullPointer
	}
	obj, ok := objects[h]
	if !ok || obj.magic != magicBatchLive {
		return nil, StatusInvalidPointer
	}
	return obj.batch, StatusOK
}

// ContextNew creates a Context with the default math registry and returns
// its handle.
func ContextNew() (h Handle) {
	defer recoverHandle(&h)
	nextHandle++
	h = nextHandle
	obj := &object{ctx: evaluator.NewContext()}
	obj.magic = magicContextLive
	objects[h] = obj
	observeObjectAlloc()
	return h
}

// ContextFree releases a context. Freeing the zero handle is a no-op;
// freeing twice is rejected with StatusInvalidPointer.
func ContextFree(h Handle) (st Status) {
	defer recoverStatus(&st)
	if h == 0 {
		return StatusOK
	}
	obj, ok := objects[h]
	if !ok || obj.magic != magicContextLive {
		return StatusInvalidPointer
	}
	obj.magic = magicFreed
	obj.ctx = nil
	observeObjectFree()
	return StatusOK
}

// BatchNew creates a Batch whose arena is pre-sized to about arenaSize
// bytes and returns its handle.
func BatchNew(arenaSize int) (h Handle) {
	defer recoverHandle(&h)
	nextHandle++
	h = nextHandle
	obj := &object{batch: evaluator.NewBatch(
		evaluator.WithArenaSizeHint(arenaSize),
	)}
	obj.magic = magicBatchLive
	objects[h] = obj
	observeObjectAlloc()
	return h
}

// BatchFree releases a batch and its arena. Freeing the zero handle is a
// no-op; freeing twice is rejected with StatusInvalidPointer. The magic is
// set to FREED before the object is released, so a stale handle keeps
// reading as freed.
func BatchFree(h Handle) (st Status) {
	defer recoverStatus(&st)
	if h == 0 {
		return StatusOK
	}
	obj, ok := objects[h]
	if !ok || obj.magic != magicBatchLive {
		return StatusInvalidPointer
	}
	obj.magic = magicFreed
	obj.batch = nil
	observeObjectFree()
	return StatusOK
}

// BatchIsValid reports whether h refers to a live batch.
func BatchIsValid(h Handle) bool {
	obj, ok := objects[h]
	return ok && obj.magic == magicBatchLive
}

// BatchClear empties a batch and resets its arena; the handle stays live.
func BatchClear(h Handle) (st Status) {
	defer recoverStatus(&st)
	b, st := lookupBatch(h)
	if st != StatusOK {
		return st
	}
	b.Clear()
	return StatusOK
}

// BatchAddExpression parses src into the batch and returns the expression
// index in Index.
func BatchAddExpression(h Handle, src string) (res ExprResult) {
	defer recoverResult(&res)
	b, st := lookupBatch(h)
	if st != StatusOK {
		return statusResult(st)
	}
	index, err := b.AddExpression(src)
	if err != nil {
		return failResult(err)
	}
	return okIndex(index)
}

// BatchAddParameter registers a parameter and returns its slot in Index.
func BatchAddParameter(h Handle, name string, value Real) (res ExprResult) {
	defer recoverResult(&res)
	b, st := lookupBatch(h)
	if st != StatusOK {
		return statusResult(st)
	}
	slot, err := b.AddParameter(name, value)
	if err != nil {
		return failResult(err)
	}
	return okIndex(slot)
}

// BatchSetParameter updates a parameter by slot.
func BatchSetParameter(h Handle, slot int, value Real) (st Status) {
	defer recoverStatus(&st)
	b, st := lookupBatch(h)
	if st != StatusOK {
		return st
	}
	return statusOf(b.SetParameter(slot, value))
}

// BatchSetParameterByName updates a parameter by name.
func BatchSetParameterByName(h Handle, name string, value Real) (st Status) {
	defer recoverStatus(&st)
	b, st := lookupBatch(h)
	if st != StatusOK {
		return st
	}
	return statusOf(b.SetParameterByName(name, value))
}

// BatchEvaluate evaluates every expression in the batch against the
// context. On success Value holds the last expression's result.
func BatchEvaluate(bh, ch Handle) (res ExprResult) {
	defer recoverResult(&res)
	b, st := lookupBatch(bh)
	if st != StatusOK {
		return statusResult(st)
	}
	ctx, st := lookupContext(ch)
	if st != StatusOK {
		return statusResult(st)
	}
	if err := b.Evaluate(ctx); err != nil {
		return failResult(err)
	}
	if n := b.Len(); n > 0 {
		v, _ := b.Result(n - 1)
		return okValue(v)
	}
	return okValue(Real(math.NaN()))
}

// BatchGetResult returns the result slot for an expression index.
func BatchGetResult(h Handle, index int) (res ExprResult) {
	defer recoverResult(&res)
	b, st := lookupBatch(h)
	if st != StatusOK {
		return statusResult(st)
	}
	v, err := b.Result(index)
	if err != nil {
		return failResult(err)
	}
	return okValue(v)
}

// BatchAddExpressionFunction registers a batch-local expression function.
// paramsCSV is a comma-separated list of formal parameter names.
func BatchAddExpressionFunction(h Handle, name, paramsCSV, body string) (res ExprResult) {
	defer recoverResult(&res)
	b, st := lookupBatch(h)
	if st != StatusOK {
		return statusResult(st)
	}
	if err := b.AddExpressionFunction(name, splitParams(paramsCSV), body); err != nil {
		return failResult(err)
	}
	return okIndex(0)
}

// BatchRemoveExpressionFunction removes a batch-local expression function.
func BatchRemoveExpressionFunction(h Handle, name string) (st Status) {
	defer recoverStatus(&st)
	b, st := lookupBatch(h)
	if st != StatusOK {
		return st
	}
	if !b.RemoveExpressionFunction(name) {
		return StatusUnknownName
	}
	return StatusOK
}

// ContextSetVariable sets or overwrites a variable.
func ContextSetVariable(h Handle, name string, value Real) (st Status) {
	defer recoverStatus(&st)
	ctx, st := lookupContext(h)
	if st != StatusOK {
		return st
	}
	ctx.SetVariable(name, value)
	return StatusOK
}

// ContextSetConstant registers a write-once constant.
func ContextSetConstant(h Handle, name string, value Real) (st Status) {
	defer recoverStatus(&st)
	ctx, st := lookupContext(h)
	if st != StatusOK {
		return st
	}
	return statusOf(ctx.SetConstant(name, value))
}

// ContextSetArray sets or overwrites an array.
func ContextSetArray(h Handle, name string, values []Real) (st Status) {
	defer recoverStatus(&st)
	ctx, st := lookupContext(h)
	if st != StatusOK {
		return st
	}
	ctx.SetArray(name, values)
	return StatusOK
}

// ContextSetAttribute sets object.field.
func ContextSetAttribute(h Handle, object, field string, value Real) (st Status) {
	defer recoverStatus(&st)
	ctx, st := lookupContext(h)
	if st != StatusOK {
		return st
	}
	ctx.SetAttribute(object, field, value)
	return StatusOK
}

// ContextAddNativeFunction binds a native callback, overwriting any prior
// binding of name.
func ContextAddNativeFunction(h Handle, name string, arity int, fn NativeFunc) (st Status) {
	defer recoverStatus(&st)
	ctx, st := lookupContext(h)
	if st != StatusOK {
		return st
	}
	ctx.Registry().RegisterNative(name, arity, fn)
	return StatusOK
}

// ContextAddExpressionFunction parses body once into the registry's arena
// and binds it. paramsCSV is a comma-separated list of formal parameter
// names.
func ContextAddExpressionFunction(h Handle, name, paramsCSV, body string) (res ExprResult) {
	defer recoverResult(&res)
	ctx, st := lookupContext(h)
	if st != StatusOK {
		return statusResult(st)
	}
	if err := ctx.Registry().RegisterExpression(name, splitParams(paramsCSV), body); err != nil {
		return failResult(err)
	}
	return okIndex(0)
}

// ContextRemoveExpressionFunction removes an expression function binding.
func ContextRemoveExpressionFunction(h Handle, name string) (st Status) {
	defer recoverStatus(&st)
	ctx, st := lookupContext(h)
	if st != StatusOK {
		return st
	}
	if !ctx.Registry().Remove(name) {
		return StatusUnknownName
	}
	return StatusOK
}

// ContextNativeFunctionCount returns the number of native bindings, or -1
// for an invalid handle.
func ContextNativeFunctionCount(h Handle) int {
	ctx, st := lookupContext(h)
	if st != StatusOK {
		return -1
	}
	return ctx.Registry().NativeCount()
}

// splitParams splits a comma-separated parameter list, trimming blanks.
// An empty string means zero parameters.
func splitParams(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
