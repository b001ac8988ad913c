package vm

import "github.com/evmts/voltaire-sub004/core/types"

// fusableOps is the set of opcodes eligible to fuse with an immediately
// preceding PUSH. Membership here, not opcode identity, is what
// opcodeCanFuse consults.
var fusableOps = map[OpCode]bool{
	ADD: true, SUB: true, MUL: true, DIV: true,
	AND: true, OR: true, XOR: true,
	JUMP: true, JUMPI: true,
	MLOAD: true, MSTORE: true, MSTORE8: true,
}

// blockEnders is the subset of OpCode.IsTerminator's set that never falls
// through to the next instruction: STOP/RETURN/REVERT/INVALID/SELFDESTRUCT
// halt the frame outright, and JUMP always diverts control to its
// destination. These are the only opcodes that can close a block AND mark
// the span up to the next JUMPDEST dead, because nothing can reach that
// span except through a JUMPDEST (which reopens accounting itself).
//
// JUMPI and the CALL/CREATE family are in IsTerminator's set too -- §4.2.3
// partitions on them as well -- but both fall through to the very next
// instruction on their non-branching path (JUMPI's false condition; CALL/
// CREATE's return to the caller frame). That fallthrough code is reachable
// and is not necessarily preceded by a JUMPDEST, yet this analyzer's only
// two charge points are block 0 (at frame entry) and a JUMPDEST landing
// (opJumpdest). Treating them as block-closers the same way as the halting
// ops would strand their fallthrough code with no charge point at all --
// silently undercharging its gas and skipping its stack validation, a worse
// bug than the one being fixed. So they close nothing here: their gas and
// stack effects keep accumulating into whichever block is currently open,
// exactly like any other non-terminating opcode.
var blockEnders = map[OpCode]bool{
	STOP: true, RETURN: true, REVERT: true, INVALID: true,
	SELFDESTRUCT: true, JUMP: true,
}

// AnalyzerConfig selects the bytecode size ceiling and whether PUSH+op
// fusion is applied. Fusion is opt-in; callers that
// want a plain 1:1 translation of bytecode to stream items leave it false.
type AnalyzerConfig struct {
	MaxCodeSize  uint64
	EnableFusion bool
}

// DefaultAnalyzerConfig is the EIP-170 deployed-code limit with fusion off.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{MaxCodeSize: MaxCodeSize}
}

// AnalysisResult is everything the analyzer hands to a Frame: the
// predecoded stream, its jump table, and block 0's pre-accounted gas and
// stack requirements (every later block carries its own in a jumpdest_meta
// slot; block 0 has no leading JUMPDEST to carry it).
type AnalysisResult struct {
	Stream         Stream
	JumpTable      JumpTable
	Block0Gas      uint64
	Block0MinStack int
	Block0MaxStack int
}

// blockAcc accumulates one basic block's static gas and net stack-depth
// requirements as the analyzer walks its opcodes in order. Blocks are
// delimited by JUMPDEST (entry) and any non-fallthrough terminator (exit)
// -- see blockEnders -- per §4.2.3. A block-ending terminator closes the
// open block; everything from there up to the next JUMPDEST (or end of
// code) is dead code the analyzer still emits into the stream but excludes
// from every block's gas/stack pre-accounting, since no entered block's
// totals may include it (see DESIGN.md, "Basic block boundary").
type blockAcc struct {
	gas      uint64
	curDelta int
	minStack int
	maxStack int
}

func (b *blockAcc) reset() { *b = blockAcc{} }

func (b *blockAcc) add(op Operation) {
	need := op.StackIn - b.curDelta
	if need > b.minStack {
		b.minStack = need
	}
	b.curDelta += op.StackOut - op.StackIn
	if b.curDelta > b.maxStack {
		b.maxStack = b.curDelta
	}
	b.gas += op.BaseGas
}

// codeStartBitmap returns, for every byte position in code, whether that
// position is the start of an opcode (as opposed to embedded PUSH literal
// data) -- the analyzer's first responsibility. A JUMPDEST byte is
// a valid jump target iff it is an opcode start.
func codeStartBitmap(code []byte) []bool {
	isOpStart := make([]bool, len(code))
	for pc := 0; pc < len(code); {
		isOpStart[pc] = true
		op := OpCode(code[pc])
		if op.IsPush() {
			pc += 1 + op.PushSize()
		} else {
			pc++
		}
	}
	return isOpStart
}

// pushLiteral reads a PUSH opcode's n-byte big-endian literal starting at
// code[pc+1], zero-extending if it runs past the end of code.
func pushLiteral(code []byte, pc, n int) []byte {
	buf := make([]byte, n)
	start := pc + 1
	if start < len(code) {
		end := start + n
		if end > len(code) {
			end = len(code)
		}
		copy(buf, code[start:end])
	}
	return buf
}

func bigEndianUint64(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

// Analyze transforms raw bytecode into a predecoded instruction stream, a
// jump table, and block 0's pre-accounting. It never fails on
// the content of code -- undefined opcodes become opUndefined handler
// slots that fail at execution, not at analysis -- the only failure mode
// is BytecodeTooLarge.
func Analyze(code []byte, metadata *OpMetadata, cfg AnalyzerConfig) (*AnalysisResult, error) {
	maxSize := cfg.MaxCodeSize
	if maxSize == 0 {
		maxSize = MaxCodeSize
	}
	if uint64(len(code)) > maxSize {
		logger.Debug("bytecode rejected", "size", len(code), "max", maxSize)
		return nil, ErrBytecodeTooLarge
	}

	isOpStart := codeStartBitmap(code)
	jtb := &jumpTableBuilder{}

	var stream Stream
	var acc blockAcc
	// blockMetaCursor is the stream index of the currently-open block's
	// leading jumpdest_meta slot, or -1 while block 0 (which has none) is
	// open.
	blockMetaCursor := -1
	var block0Gas uint64
	var block0Min, block0Max int

	// open tracks whether a block is currently accumulating: true from a
	// block's entry (pc 0, or a JUMPDEST) until a blockEnders opcode closes
	// it. Once closed, every opcode up to the next JUMPDEST (or end of code)
	// is unreachable dead code -- emitted into the stream so cursors still
	// land on valid handler slots, but contributing to no block's gas/stack
	// pre-accounting, per §4.2.3. JUMPI and the CALL/CREATE family also end
	// a block conceptually but fall through in practice, so they leave open
	// set and keep accumulating into the same block -- see blockEnders.
	open := true

	closeBlock := func() {
		if blockMetaCursor == -1 {
			block0Gas, block0Min, block0Max = acc.gas, acc.minStack, acc.maxStack
			return
		}
		stream[blockMetaCursor].BlockGas = acc.gas
		stream[blockMetaCursor].BlockMinStack = acc.minStack
		stream[blockMetaCursor].BlockMaxStack = acc.maxStack
	}

	for pc := 0; pc < len(code); {
		if !isOpStart[pc] {
			// Unreachable: isOpStart only ever advances pc to the next
			// opcode start, so the loop body never re-enters mid-literal.
			pc++
			continue
		}
		op := OpCode(code[pc])

		if op == JUMPDEST {
			if open {
				closeBlock()
			}
			acc.reset()
			jtb.add(uint64(pc), len(stream))
			opMeta := metadata.Get(op)
			stream = append(stream, Item{Handler: opMeta.Handler, Op: op})
			blockMetaCursor = len(stream)
			stream = append(stream, Item{}) // filled by the next closeBlock
			acc.add(opMeta)
			open = true
			pc++
			continue
		}

		if op.IsPush() && op != PUSH0 {
			n := op.PushSize()
			if cfg.EnableFusion {
				nextPC := pc + 1 + n
				if nextPC < len(code) {
					next := OpCode(code[nextPC])
					if fusableOps[next] {
						emitFused(&stream, &acc, metadata, code, pc, n, next, open)
						if open && blockEnders[next] {
							closeBlock()
							acc.reset()
							open = false
						}
						pc = nextPC + 1
						continue
					}
				}
			}
			emitPush(&stream, &acc, metadata, code, pc, op, n, open)
			pc += 1 + n
			continue
		}

		opMeta := metadata.Get(op)
		stream = append(stream, Item{Handler: opMeta.Handler, Op: op})
		if op == PC {
			stream = append(stream, Item{U64: uint64(pc)})
		}
		if open {
			acc.add(opMeta)
			if blockEnders[op] {
				closeBlock()
				acc.reset()
				open = false
			}
		}
		pc++
	}

	// Falling off the end of code behaves as an implicit STOP: if the last
	// block was never closed by a terminator, close it here. If it already
	// was (code ends in dead bytes after the last terminator), closeBlock
	// must not run again -- acc is zeroed since that close, and re-running
	// it would stomp the block's already-correct totals with zeroes.
	if open {
		closeBlock()
	}

	// Sentinel termination: two trailing STOP
	// handler slots so any handler may advance its cursor by 1 or 2
	// without a bounds check.
	stopMeta := metadata.Get(STOP)
	stream = append(stream, Item{Handler: stopMeta.Handler, Op: STOP})
	stream = append(stream, Item{Handler: stopMeta.Handler, Op: STOP})

	return &AnalysisResult{
		Stream:         stream,
		JumpTable:      jtb.finalize(),
		Block0Gas:      block0Gas,
		Block0MinStack: block0Min,
		Block0MaxStack: block0Max,
	}, nil
}

// open is false when this PUSH falls in a dead-code span (after a
// terminator, before the next JUMPDEST): the item still needs to land in
// the stream so cursors advance correctly, but it must not contribute gas
// or stack requirements to any block's pre-accounting.
func emitPush(stream *Stream, acc *blockAcc, metadata *OpMetadata, code []byte, pc int, op OpCode, n int, open bool) {
	opMeta := metadata.Get(op)
	buf := pushLiteral(code, pc, n)
	*stream = append(*stream, Item{Handler: opMeta.Handler, Op: op})
	if n <= 8 {
		*stream = append(*stream, Item{U64: bigEndianUint64(buf)})
	} else {
		w := new(types.Word).SetBytes(buf)
		*stream = append(*stream, Item{Ptr: w})
	}
	if open {
		acc.add(opMeta)
	}
}

// emitFused folds a PUSH<n> and its immediately-following fusable opcode
// into one synthetic instruction: one handler slot (selected by literal
// width) plus one metadata slot carrying the literal, and Op set to the
// secondary opcode so the fused handler knows which operation to perform.
// Gas and stack effects equal the sum of the two originals; acc
// accumulates both opMeta rows exactly as it would have unfused, unless
// open is false (dead-code span -- see emitPush).
func emitFused(stream *Stream, acc *blockAcc, metadata *OpMetadata, code []byte, pc, n int, secondary OpCode, open bool) {
	pushOp := PUSH1 + OpCode(n-1)
	pushMeta := metadata.Get(pushOp)
	secMeta := metadata.Get(secondary)
	buf := pushLiteral(code, pc, n)

	handler, useU64 := fusedHandlerFor(secondary, n <= 8)
	item := Item{Handler: handler, Op: secondary}
	*stream = append(*stream, item)
	if useU64 {
		*stream = append(*stream, Item{U64: bigEndianUint64(buf)})
	} else {
		w := new(types.Word).SetBytes(buf)
		*stream = append(*stream, Item{Ptr: w})
	}
	if open {
		acc.add(pushMeta)
		acc.add(secMeta)
	}
}

// fusedHandlerFor returns the fused handler for (secondary op, literal
// width) and whether its metadata slot carries the literal inline (U64) or
// via pointer.
func fusedHandlerFor(secondary OpCode, inline bool) (HandlerFn, bool) {
	switch secondary {
	case ADD, SUB, MUL, DIV, AND, OR, XOR:
		if inline {
			return opFusedArithInline, true
		}
		return opFusedArithPointer, false
	case JUMP:
		if inline {
			return opFusedJumpInline, true
		}
		return opFusedJumpPointer, false
	case JUMPI:
		if inline {
			return opFusedJumpiInline, true
		}
		return opFusedJumpiPointer, false
	case MLOAD:
		if inline {
			return opFusedMloadInline, true
		}
		return opFusedMloadPointer, false
	case MSTORE:
		if inline {
			return opFusedMstoreInline, true
		}
		return opFusedMstorePointer, false
	case MSTORE8:
		if inline {
			return opFusedMstore8Inline, true
		}
		return opFusedMstore8Pointer, false
	default:
		panic("vm: unreachable fusable opcode")
	}
}
