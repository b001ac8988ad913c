package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Fused PUSH+op handlers. Each pairs a literal-carrying metadata
// slot (inline U64 or out-of-band Ptr, selected by the analyzer at fusion
// time) with Op holding the secondary opcode, so one handler family covers
// all seven arithmetic/bitwise fusions. Gas and stack effects were already
// folded into the owning block's pre-accounting by the analyzer; these
// handlers perform only the operation itself, exactly like their unfused
// counterparts in instructions_arith.go / instructions_bitwise.go.

func fusedArith(f *Frame, lit *types.Word) {
	top := f.Stack.mustPeek(0)
	switch f.Stream[f.Cursor].Op {
	case ADD:
		top.Add(lit, top)
	case SUB:
		// SUB(a, b) = a - b where a is whatever was pushed last (here, the
		// fused literal) and b is the operand already on the stack.
		top.Sub(lit, top)
	case MUL:
		top.Mul(lit, top)
	case DIV:
		top.Div(lit, top)
	case AND:
		top.And(lit, top)
	case OR:
		top.Or(lit, top)
	case XOR:
		top.Xor(lit, top)
	}
	f.Cursor += 2
}

func opFusedArithInline(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	var lit types.Word
	lit.SetUint64(meta.U64)
	fusedArith(f, &lit)
	return nil
}

func opFusedArithPointer(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	fusedArith(f, meta.Ptr)
	return nil
}

func fusedJump(f *Frame, lit *types.Word) error {
	cursor, ok := f.JumpTable.Lookup(lit.Uint64())
	if !ok {
		return ErrInvalidJump
	}
	f.Cursor = cursor
	return nil
}

func opFusedJumpInline(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	var lit types.Word
	lit.SetUint64(meta.U64)
	return fusedJump(f, &lit)
}

func opFusedJumpPointer(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	return fusedJump(f, meta.Ptr)
}

func fusedJumpi(f *Frame, lit *types.Word) error {
	cond := f.Stack.mustPop()
	if cond.IsZero() {
		f.Cursor += 2
		return nil
	}
	cursor, ok := f.JumpTable.Lookup(lit.Uint64())
	if !ok {
		return ErrInvalidJump
	}
	f.Cursor = cursor
	return nil
}

func opFusedJumpiInline(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	var lit types.Word
	lit.SetUint64(meta.U64)
	return fusedJumpi(f, &lit)
}

func opFusedJumpiPointer(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	return fusedJumpi(f, meta.Ptr)
}

func fusedMload(f *Frame, lit *types.Word) error {
	offset := lit.Uint64()
	if err := f.chargeMemory(offset, 32); err != nil {
		return err
	}
	var w types.Word
	w.SetBytes(f.Memory.GetPtr(int64(offset), 32))
	f.Stack.mustPush(&w)
	f.Cursor += 2
	return nil
}

func opFusedMloadInline(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	var lit types.Word
	lit.SetUint64(meta.U64)
	return fusedMload(f, &lit)
}

func opFusedMloadPointer(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	return fusedMload(f, meta.Ptr)
}

func fusedMstore(f *Frame, lit *types.Word) error {
	val := f.Stack.mustPop()
	offset := lit.Uint64()
	if err := f.chargeMemory(offset, 32); err != nil {
		return err
	}
	f.Memory.Set32(offset, val)
	f.Cursor += 2
	return nil
}

func opFusedMstoreInline(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	var lit types.Word
	lit.SetUint64(meta.U64)
	return fusedMstore(f, &lit)
}

func opFusedMstorePointer(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	return fusedMstore(f, meta.Ptr)
}

func fusedMstore8(f *Frame, lit *types.Word) error {
	val := f.Stack.mustPop()
	offset := lit.Uint64()
	if err := f.chargeMemory(offset, 1); err != nil {
		return err
	}
	f.Memory.Set(offset, 1, []byte{byte(val.Uint64())})
	f.Cursor += 2
	return nil
}

func opFusedMstore8Inline(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	var lit types.Word
	lit.SetUint64(meta.U64)
	return fusedMstore8(f, &lit)
}

func opFusedMstore8Pointer(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	return fusedMstore8(f, meta.Ptr)
}
