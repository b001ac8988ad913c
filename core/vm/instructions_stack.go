package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Stack-shape opcode handlers: POP, PUSH family, DUP/SWAP, JUMPDEST, PC,
// MSIZE, GAS. PUSH/PC/JUMPDEST consume the metadata slot the analyzer
// placed immediately after their handler slot.

func opPop(f *Frame) error {
	f.Stack.mustPop()
	f.Cursor++
	return nil
}

func opPush0(f *Frame) error {
	var w types.Word
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opPushInline(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	var w types.Word
	w.SetUint64(meta.U64)
	f.Stack.mustPush(&w)
	f.Cursor += 2
	return nil
}

func opPushPointer(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	w := new(types.Word).Set(meta.Ptr)
	f.Stack.mustPush(w)
	f.Cursor += 2
	return nil
}

func opDup(f *Frame) error {
	op := f.Stream[f.Cursor].Op
	n := int(op-DUP1) + 1
	if err := f.Stack.Dup(n); err != nil {
		return err
	}
	f.Cursor++
	return nil
}

func opSwap(f *Frame) error {
	op := f.Stream[f.Cursor].Op
	n := int(op-SWAP1) + 1
	if err := f.Stack.Swap(n); err != nil {
		return err
	}
	f.Cursor++
	return nil
}

// opJumpdest performs the basic-block gas and stack pre-accounting: the
// block's total static gas and net stack-depth
// requirements were summed by the analyzer and packed into this
// JUMPDEST's metadata slot, so they are validated here exactly once per
// block entry rather than per opcode.
func opJumpdest(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	if err := f.enterBlock(meta.BlockGas, meta.BlockMinStack, meta.BlockMaxStack); err != nil {
		return err
	}
	f.Cursor += 2
	return nil
}

func opPc(f *Frame) error {
	meta := f.Stream[f.Cursor+1]
	var w types.Word
	w.SetUint64(meta.U64)
	f.Stack.mustPush(&w)
	f.Cursor += 2
	return nil
}

func opGas(f *Frame) error {
	var w types.Word
	if f.GasRemaining > 0 {
		w.SetUint64(uint64(f.GasRemaining))
	}
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}
