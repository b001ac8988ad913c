package vm

// Arithmetic opcode handlers. Stack effects and gas are enumerated in the
// opcode table (metadata.go); handlers here perform only the operation
// itself plus any dynamic gas component. Bit-level semantics of each
// operator are those of the Cancun specification; only the EVM-specific
// wiring (stack order, overflow wraparound via uint256.Int) is original
// to this module.
func opStop(f *Frame) error {
	f.Halt(OutcomeStop, nil, nil)
	return nil
}

func opAdd(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.Add(x, y)
	f.Cursor++
	return nil
}

func opMul(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.Mul(x, y)
	f.Cursor++
	return nil
}

func opSub(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.Sub(x, y)
	f.Cursor++
	return nil
}

func opDiv(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.Div(x, y)
	f.Cursor++
	return nil
}

func opSdiv(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.SDiv(x, y)
	f.Cursor++
	return nil
}

func opMod(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.Mod(x, y)
	f.Cursor++
	return nil
}

func opSmod(f *Frame) error {
	x, y := f.Stack.mustPop(), f.Stack.mustPeek(0)
	y.SMod(x, y)
	f.Cursor++
	return nil
}

func opAddmod(f *Frame) error {
	x, y, z := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPeek(0)
	if z.IsZero() {
		z.Clear()
	} else {
		z.AddMod(x, y, z)
	}
	f.Cursor++
	return nil
}

func opMulmod(f *Frame) error {
	x, y, z := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPeek(0)
	if z.IsZero() {
		z.Clear()
	} else {
		z.MulMod(x, y, z)
	}
	f.Cursor++
	return nil
}

func opExp(f *Frame) error {
	base, exponent := f.Stack.mustPop(), f.Stack.mustPeek(0)
	// Dynamic gas: GasExpByte per byte of the exponent's minimal big-endian
	// length (leading zero bytes are free; inner zero bytes are charged).
	byteLen := (exponent.BitLen() + 7) / 8
	if err := f.UseGas(uint64(byteLen) * GasExpByte); err != nil {
		return err
	}
	exponent.Exp(base, exponent)
	f.Cursor++
	return nil
}

func opSignextend(f *Frame) error {
	back, num := f.Stack.mustPop(), f.Stack.mustPeek(0)
	num.ExtendSign(num, back)
	f.Cursor++
	return nil
}
