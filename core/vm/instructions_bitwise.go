package vm

import "github.com/evmts/voltaire-sub004/crypto"

// Comparison and bitwise opcode handlers.

func opLt(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	f.Cursor++
	return nil
}

func opGt(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	f.Cursor++
	return nil
}

func opSlt(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	f.Cursor++
	return nil
}

func opSgt(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	f.Cursor++
	return nil
}

func opEq(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	f.Cursor++
	return nil
}

func opIszero(f *Frame) error {
	x := f.Stack.mustPeek(0)
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	f.Cursor++
	return nil
}

func opAnd(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.And(x, y)
	f.Cursor++
	return nil
}

func opOr(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.Or(x, y)
	f.Cursor++
	return nil
}

func opXor(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.Xor(x, y)
	f.Cursor++
	return nil
}

func opNot(f *Frame) error {
	x := f.Stack.mustPeek(0)
	x.Not(x)
	f.Cursor++
	return nil
}

func opByte(f *Frame) error {
	th, val := f.Stack.mustPop(), f.Stack.mustPeek(0)
	val.Byte(th)
	f.Cursor++
	return nil
}

func opShl(f *Frame) error {
	shift, value := f.Stack.mustPop(), f.Stack.mustPeek(0)
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	f.Cursor++
	return nil
}

func opShr(f *Frame) error {
	shift, value := f.Stack.mustPop(), f.Stack.mustPeek(0)
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	f.Cursor++
	return nil
}

func opSar(f *Frame) error {
	shift, value := f.Stack.mustPop(), f.Stack.mustPeek(0)
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
	} else {
		value.SRsh(value, uint(shift.Uint64()))
	}
	f.Cursor++
	return nil
}

func opKeccak256(f *Frame) error {
	offset, size := f.Stack.mustPop(), f.Stack.mustPeek(0)
	off, sz := offset.Uint64(), size.Uint64()
	if err := f.chargeMemory(off, sz); err != nil {
		return err
	}
	wordGas := ((sz + 31) / 32) * GasKeccak256Word
	if err := f.UseGas(wordGas); err != nil {
		return err
	}
	data := f.Memory.GetPtr(int64(off), int64(sz))
	h := crypto.Keccak256(data)
	size.SetBytes(h)
	f.Cursor++
	return nil
}
