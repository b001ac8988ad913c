package vm

import (
	"sort"

	"github.com/evmts/voltaire-sub004/core/types"
)

// Item is one slot of the predecoded instruction stream. Its shape is
// determined entirely by its position relative to the preceding handler
// slot, per the analyzer's layout discipline -- the slot carries no tag of
// its own. A handler Item's Handler field is non-nil; a metadata Item
// following it packs whichever of U64/Ptr/BlockGas/BlockMinStack/
// BlockMaxStack the preceding opcode needs.
type Item struct {
	Handler HandlerFn // set on handler slots

	// push_inline / pc_meta payload (zero-extended literal, or original PC).
	U64 uint64

	// push_pointer payload: a side-allocated 256-bit constant. Lifetime
	// equals the stream's lifetime.
	Ptr *types.Word

	// jumpdest_meta payload: basic-block gas/stack pre-accounting.
	BlockGas      uint64
	BlockMinStack int
	BlockMaxStack int

	// Op is the original opcode this handler slot represents; kept for
	// diagnostics and for handlers that need to know their own identity
	// (e.g. DUP1..DUP16 sharing one generic handler keyed by Op).
	Op OpCode
}

// Stream is the analyzer's predecoded output: a linear sequence of handler
// and metadata Items consumed by the interpreter.
type Stream []Item

// jumpEntry is one row of a JumpTable: an original bytecode PC mapped to
// the stream cursor of its JUMPDEST handler slot.
type jumpEntry struct {
	pc     uint64
	cursor int
}

// JumpTable is a sorted array of (original_pc -> cursor) pairs built
// alongside the instruction stream. JUMP/JUMPI resolve a target via
// binary search, O(log n) in the number of JUMPDESTs.
type JumpTable struct {
	entries []jumpEntry
}

// Lookup resolves a bytecode PC to a stream cursor. The second return
// value is false if pc is not a valid jump destination.
func (jt JumpTable) Lookup(pc uint64) (int, bool) {
	i := sort.Search(len(jt.entries), func(i int) bool {
		return jt.entries[i].pc >= pc
	})
	if i < len(jt.entries) && jt.entries[i].pc == pc {
		return jt.entries[i].cursor, true
	}
	return 0, false
}

// jumpTableBuilder accumulates entries during analysis and sorts them once
// at Finalize, per the analyzer's "jump table construction" step.
type jumpTableBuilder struct {
	entries []jumpEntry
}

func (b *jumpTableBuilder) add(pc uint64, cursor int) {
	b.entries = append(b.entries, jumpEntry{pc: pc, cursor: cursor})
}

func (b *jumpTableBuilder) finalize() JumpTable {
	sort.Slice(b.entries, func(i, j int) bool { return b.entries[i].pc < b.entries[j].pc })
	return JumpTable{entries: b.entries}
}
