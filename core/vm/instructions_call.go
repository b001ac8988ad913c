package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Sub-call, contract-creation, and log opcode handlers. These are the
// handlers that re-enter the host: gas forwarding follows the
// EIP-150 63/64 rule, computed here and charged against the parent frame
// before Host.InnerCall runs; whatever the child returns unspent is
// credited back.

func forwardGas(available int64, requested uint64, stipend uint64) uint64 {
	if available < 0 {
		available = 0
	}
	maxForward := uint64(available) - uint64(available)/CallGasFraction
	g := requested
	if g > maxForward {
		g = maxForward
	}
	return g + stipend
}

func (f *Frame) memoryRegion(offW, szW *types.Word) (off, sz uint64, err error) {
	off, sz = offW.Uint64(), szW.Uint64()
	if err := f.chargeMemory(off, sz); err != nil {
		return 0, 0, err
	}
	return off, sz, nil
}

// execCall is the shared implementation of CALL/CALLCODE/DELEGATECALL/
// STATICCALL: charge for the callee's memory regions and EIP-2929 account
// access, compute the forwarded gas stipend, invoke the host, and write
// the result back into the parent frame.
func execCall(f *Frame, kind CallKind, to types.Address, value types.Word, gasW, argsOffW, argsSzW, retOffW, retSzW *types.Word, isStatic bool) error {
	if err := chargeAccountAccess(f, to); err != nil {
		return err
	}
	argsOff, argsSz, err := f.memoryRegion(argsOffW, argsSzW)
	if err != nil {
		return err
	}
	retOff, retSz, err := f.memoryRegion(retOffW, retSzW)
	if err != nil {
		return err
	}
	if !value.IsZero() && kind != CallDelegate {
		if err := f.UseGas(CallValueTransferGas); err != nil {
			return err
		}
		if !f.Host.AccountExists(to) {
			if err := f.UseGas(CallNewAccountGas); err != nil {
				return err
			}
		}
	}

	stipend := uint64(0)
	if !value.IsZero() && kind == CallNormal {
		stipend = CallStipend
	}
	gas := forwardGas(f.GasRemaining, gasW.Uint64(), stipend)
	if err := f.UseGas(gas - stipend); err != nil { // the stipend itself is not charged to the caller
		return err
	}

	input := make([]byte, argsSz)
	copy(input, f.Memory.GetPtr(int64(argsOff), int64(argsSz)))

	// DELEGATECALL preserves the grandparent's msg.sender; every other kind
	// presents the current contract as the child's sender.
	sender := f.ContractAddress
	if kind == CallDelegate {
		sender = f.Caller
	}

	ctxAddr := f.ContractAddress
	if kind == CallNormal || kind == CallStatic {
		ctxAddr = to
	}

	result := f.Host.InnerCall(CallParams{
		Kind:           kind,
		Caller:         sender,
		To:             to,
		ContextAddress: ctxAddr,
		Value:          value,
		Input:          input,
		Gas:            gas,
		IsStatic:       isStatic || f.IsStatic,
	})

	f.GasRemaining += int64(result.GasLeft)
	f.ReturnBuffer = result.Output

	n := uint64(len(result.Output))
	if n > retSz {
		n = retSz
	}
	if n > 0 {
		f.Memory.Set(retOff, n, result.Output[:n])
	}

	var success types.Word
	if result.Success {
		success.SetOne()
	}
	f.Stack.mustPush(&success)
	f.Cursor++
	return nil
}

func opCall(f *Frame) error {
	gasW, addrW, valueW := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	argsOffW, argsSzW, retOffW, retSzW := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	var value types.Word
	value.Set(valueW)
	if f.IsStatic && !value.IsZero() {
		return ErrWriteProtection
	}
	to := types.BytesToAddress(addrW.Bytes())
	return execCall(f, CallNormal, to, value, gasW, argsOffW, argsSzW, retOffW, retSzW, false)
}

func opCallcode(f *Frame) error {
	gasW, addrW, valueW := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	argsOffW, argsSzW, retOffW, retSzW := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	var value types.Word
	value.Set(valueW)
	to := types.BytesToAddress(addrW.Bytes())
	return execCall(f, CallCodeKind, to, value, gasW, argsOffW, argsSzW, retOffW, retSzW, false)
}

func opDelegatecall(f *Frame) error {
	gasW, addrW := f.Stack.mustPop(), f.Stack.mustPop()
	argsOffW, argsSzW, retOffW, retSzW := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	to := types.BytesToAddress(addrW.Bytes())
	return execCall(f, CallDelegate, to, f.Value, gasW, argsOffW, argsSzW, retOffW, retSzW, false)
}

func opStaticcall(f *Frame) error {
	gasW, addrW := f.Stack.mustPop(), f.Stack.mustPop()
	argsOffW, argsSzW, retOffW, retSzW := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	var zero types.Word
	to := types.BytesToAddress(addrW.Bytes())
	return execCall(f, CallStatic, to, zero, gasW, argsOffW, argsSzW, retOffW, retSzW, true)
}

func execCreate(f *Frame, kind CallKind, value, offsetW, sizeW types.Word, salt *types.Word) error {
	off, sz := offsetW.Uint64(), sizeW.Uint64()
	if err := f.chargeMemory(off, sz); err != nil {
		return err
	}
	if sz > MaxInitCodeSize {
		return ErrBytecodeTooLarge
	}
	wordGas := ((sz + 31) / 32) * InitCodeWordGas
	if err := f.UseGas(wordGas); err != nil {
		return err
	}
	initCode := make([]byte, sz)
	copy(initCode, f.Memory.GetPtr(int64(off), int64(sz)))

	gas := forwardGas(f.GasRemaining, uint64(f.GasRemaining), 0)
	if err := f.UseGas(gas); err != nil {
		return err
	}

	params := CallParams{
		Kind:   kind,
		Caller: f.ContractAddress,
		Value:  value,
		Input:  initCode,
		Gas:    gas,
	}
	if salt != nil {
		params.Salt.Set(salt)
	}
	result := f.Host.InnerCall(params)
	f.GasRemaining += int64(result.GasLeft)

	var out types.Word
	if result.Success {
		out.SetBytes(result.Output)
	}
	f.Stack.mustPush(&out)
	f.Cursor++
	return nil
}

func opCreate(f *Frame) error {
	valueW, offsetW, sizeW := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	var value, offset, size types.Word
	value.Set(valueW)
	offset.Set(offsetW)
	size.Set(sizeW)
	return execCreate(f, CallCreate, value, offset, size, nil)
}

func opCreate2(f *Frame) error {
	valueW, offsetW, sizeW, saltW := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	var value, offset, size, salt types.Word
	value.Set(valueW)
	offset.Set(offsetW)
	size.Set(sizeW)
	salt.Set(saltW)
	return execCreate(f, CallCreate2, value, offset, size, &salt)
}

func opLog(f *Frame) error {
	op := f.Stream[f.Cursor].Op
	n := int(op - LOG0)
	offsetW, sizeW := f.Stack.mustPop(), f.Stack.mustPop()
	off, sz := offsetW.Uint64(), sizeW.Uint64()
	if err := f.chargeMemory(off, sz); err != nil {
		return err
	}
	if err := f.UseGas(uint64(n)*GasLogTopic + sz*GasLogData); err != nil {
		return err
	}
	topics := make([]types.Hash, n)
	for i := 0; i < n; i++ {
		t := f.Stack.mustPop()
		b := t.Bytes32()
		topics[i] = types.BytesToHash(b[:])
	}
	data := make([]byte, sz)
	copy(data, f.Memory.GetPtr(int64(off), int64(sz)))
	if err := f.Host.EmitLog(types.Log{Address: f.ContractAddress, Topics: topics, Data: data}); err != nil {
		return err
	}
	f.Cursor++
	return nil
}
