package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Control-flow and termination opcode handlers.

func opJump(f *Frame) error {
	dest := f.Stack.mustPop()
	cursor, ok := f.JumpTable.Lookup(dest.Uint64())
	if !ok {
		return ErrInvalidJump
	}
	f.Cursor = cursor
	return nil
}

func opJumpi(f *Frame) error {
	dest, cond := f.Stack.mustPop(), f.Stack.mustPop()
	if cond.IsZero() {
		f.Cursor++
		return nil
	}
	cursor, ok := f.JumpTable.Lookup(dest.Uint64())
	if !ok {
		return ErrInvalidJump
	}
	f.Cursor = cursor
	return nil
}

func opReturn(f *Frame) error {
	offset, size := f.Stack.mustPop(), f.Stack.mustPop()
	off, sz := offset.Uint64(), size.Uint64()
	if err := f.chargeMemory(off, sz); err != nil {
		return err
	}
	data := make([]byte, sz)
	copy(data, f.Memory.GetPtr(int64(off), int64(sz)))
	f.Halt(OutcomeReturn, data, nil)
	return nil
}

func opRevert(f *Frame) error {
	offset, size := f.Stack.mustPop(), f.Stack.mustPop()
	off, sz := offset.Uint64(), size.Uint64()
	if err := f.chargeMemory(off, sz); err != nil {
		return err
	}
	data := make([]byte, sz)
	copy(data, f.Memory.GetPtr(int64(off), int64(sz)))
	f.Halt(OutcomeRevert, data, nil)
	return nil
}

// opInvalid implements the explicit INVALID opcode (0xFE) and is also the
// handler any not-defined-for-this-hardfork opcode byte resolves to
// (opUndefined, below): both consume all remaining gas and fail.
func opInvalid(f *Frame) error {
	f.GasRemaining = 0
	f.Halt(OutcomeInvalidOpcode, nil, ErrInvalidOpcode)
	return ErrInvalidOpcode
}

func opUndefined(f *Frame) error {
	return opInvalid(f)
}

func opSelfdestruct(f *Frame) error {
	beneficiaryW := f.Stack.mustPop()
	beneficiary := types.BytesToAddress(beneficiaryW.Bytes())
	if err := f.Host.MarkForDestruction(f.ContractAddress, beneficiary); err != nil {
		return err
	}
	f.HaltSelfDestruct(beneficiary)
	return nil
}
