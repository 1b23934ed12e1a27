package ffi

import (
	"fmt"
	"math"
)

// The engine never lets a panic unwind into the host: every entry point
// recovers, reports through the registered handler, and returns
// StatusInternal. When no handler is registered the message is dropped.
var (
	panicFlag   *bool
	panicLogger func(msg []byte)
)

// RegisterPanicHandler installs a flag the boundary sets and a logger it
// calls when an internal panic is recovered. Either may be nil.
func RegisterPanicHandler(flag *bool, logger func(msg []byte)) {
	panicFlag = flag
	panicLogger = logger
}

func reportPanic(r any) {
	if panicFlag != nil {
		*panicFlag = true
	}
	if panicLogger != nil {
		panicLogger([]byte(fmt.Sprint(r)))
	}
}

// recoverStatus converts a recovered panic into StatusInternal.
func recoverStatus(st *Status) {
	if r := recover(); r != nil {
		reportPanic(r)
		*st = StatusInternal
	}
}

// recoverResult converts a recovered panic into a StatusInternal result
// carrying the panic message.
func recoverResult(res *ExprResult) {
	if r := recover(); r != nil {
		reportPanic(r)
		*res = ExprResult{
			Status: StatusInternal,
			Value:  Real(math.NaN()),
			Index:  -1,
			Err:    fmt.Sprint(r),
		}
	}
}

// recoverHandle converts a recovered panic into the null handle.
func recoverHandle(h *Handle) {
	if r := recover(); r != nil {
		reportPanic(r)
		*h = 0
	}
}
