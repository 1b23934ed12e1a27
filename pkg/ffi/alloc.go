package ffi

import "github.com/sandrolain/goreval/pkg/types"

// Allocation accounting. When the host installs an allocator pair, every
// backing allocation the engine performs (arena chunks, handle objects) is
// reported through malloc, and each handle object release through free;
// releases of arena chunks are not reported. This is how hosts
// with their own heap discipline audit the engine — and how the
// zero-allocation evaluation property is verified: after a batch is
// populated, N consecutive Evaluate calls must report exactly zero malloc
// calls.
var (
	mallocHook func(size int)
	freeHook   func(size int)
)

// SetAllocator installs the accounting pair and routes arena growth
// through it. Pass nils to detach. Must be called while no parse or
// evaluation is in flight.
func SetAllocator(malloc, free func(size int)) {
	mallocHook = malloc
	freeHook = free
	if malloc != nil {
		types.SetAllocObserver(malloc)
	} else {
		types.SetAllocObserver(nil)
	}
}

// observeObjectAlloc accounts one handle-table object.
func observeObjectAlloc() {
	if mallocHook != nil {
		mallocHook(1)
	}
}

func observeObjectFree() {
	if freeHook != nil {
		freeHook(1)
	}
}
