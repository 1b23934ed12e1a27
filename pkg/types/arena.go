package types

import "unsafe"

// arenaChunkNodes is the number of AstExpr values pre-allocated per chunk.
// Most control-loop expressions fit in a single chunk.
const arenaChunkNodes = 64

var astExprSize = int(unsafe.Sizeof(AstExpr{}))

// Arena is a chunked bump allocator for AST nodes and argument slices.
//
// All nodes produced by one parse live in one arena; releasing or resetting
// the arena invalidates every node handed out from it in a single step. The
// parser stores only trivially-droppable values in it, so reset never needs
// per-node cleanup.
//
// Growth is monotone: chunks are only added, never shrunk in place. An
// Arena is single-owner and not safe for concurrent use.
type Arena struct {
	chunks [][]AstExpr
	pos    int // next free index in the last chunk
	used   int // bytes handed out across all chunks
}

// ArenaMark captures the arena's high-water mark for transactional parses.
type ArenaMark struct {
	chunk int
	pos   int
	used  int
}

// NewArena allocates an arena pre-warmed with one chunk.
// sizeHint is a byte count; it only influences the first chunk's capacity.
func NewArena(sizeHint int) *Arena {
	n := arenaChunkNodes
	if hint := sizeHint / astExprSize; hint > n {
		n = hint
	}
	observeAlloc(n * astExprSize)
	return &Arena{
		chunks: [][]AstExpr{make([]AstExpr, n)},
	}
}

// AllocNode returns a zeroed node inside the arena with Kind and Pos set.
func (a *Arena) AllocNode(kind NodeKind, pos int) *AstExpr {
	nodes := a.reserve(1)
	n := &nodes[0]
	n.Kind = kind
	n.Pos = pos
	return n
}

// AllocArgs returns a contiguous zeroed slice of n nodes for function
// arguments. The slice is filled left-to-right by the parser.
func (a *Arena) AllocArgs(n int) []AstExpr {
	if n == 0 {
		return nil
	}
	return a.reserve(n)
}

// reserve returns n contiguous zeroed nodes, growing the arena if the
// current chunk cannot hold them.
func (a *Arena) reserve(n int) []AstExpr {
	last := a.chunks[len(a.chunks)-1]
	if a.pos+n > len(last) {
		size := arenaChunkNodes
		if n > size {
			size = n
		}
		observeAlloc(size * astExprSize)
		a.chunks = append(a.chunks, make([]AstExpr, size))
		a.pos = 0
		last = a.chunks[len(a.chunks)-1]
	}
	nodes := last[a.pos : a.pos+n]
	a.pos += n
	a.used += n * astExprSize
	// Slots may be dirty after ReleaseTo or Reset.
	for i := range nodes {
		nodes[i] = AstExpr{}
	}
	return nodes
}

// Mark records the current high-water mark.
func (a *Arena) Mark() ArenaMark {
	return ArenaMark{
		chunk: len(a.chunks) - 1,
		pos:   a.pos,
		used:  a.used,
	}
}

// ReleaseTo rolls the arena back to a previously recorded mark, reclaiming
// every allocation made after it. Nodes handed out after the mark must not
// be observed again.
func (a *Arena) ReleaseTo(m ArenaMark) {
	if m.chunk+1 < len(a.chunks) {
		a.chunks = a.chunks[:m.chunk+1]
	}
	a.pos = m.pos
	a.used = m.used
}

// Reset reclaims all bytes in one step, keeping the first chunk's backing
// memory. Every node previously handed out becomes invalid.
func (a *Arena) Reset() {
	a.chunks = a.chunks[:1]
	a.pos = 0
	a.used = 0
}

// BytesUsed reports the bytes handed out since creation or the last Reset.
func (a *Arena) BytesUsed() int {
	return a.used
}
