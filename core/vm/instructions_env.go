package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Environment and block-context opcode handlers.

func opAddress(f *Frame) error {
	var w types.Word
	w.SetBytes(f.ContractAddress.Bytes())
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func chargeAccountAccess(f *Frame, addr types.Address) error {
	alreadyWarm := f.Host.AddAddressToAccessList(addr)
	if alreadyWarm {
		return f.UseGas(WarmStorageReadCost)
	}
	return f.UseGas(ColdAccountAccessCost)
}

func opBalance(f *Frame) error {
	addrWord := f.Stack.mustPeek(0)
	addr := types.BytesToAddress(addrWord.Bytes())
	if err := chargeAccountAccess(f, addr); err != nil {
		return err
	}
	bal := f.Host.GetBalance(addr)
	addrWord.Set(&bal)
	f.Cursor++
	return nil
}

func opOrigin(f *Frame) error {
	var w types.Word
	ctx := f.Host.BlockCtx()
	w.SetBytes(ctx.Origin.Bytes())
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opCaller(f *Frame) error {
	var w types.Word
	w.SetBytes(f.Caller.Bytes())
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opCallvalue(f *Frame) error {
	w := new(types.Word).Set(&f.Value)
	f.Stack.mustPush(w)
	f.Cursor++
	return nil
}

func opCalldataload(f *Frame) error {
	offsetW := f.Stack.mustPeek(0)
	offset := offsetW.Uint64()
	buf := make([]byte, 32)
	if offset < uint64(len(f.Input)) {
		copy(buf, f.Input[offset:])
	}
	offsetW.SetBytes(buf)
	f.Cursor++
	return nil
}

func opCalldatasize(f *Frame) error {
	var w types.Word
	w.SetUint64(uint64(len(f.Input)))
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func copyToMemory(f *Frame, destOffset, offset, size uint64, src []byte) error {
	if err := f.chargeMemory(destOffset, size); err != nil {
		return err
	}
	wordGas := ((size + 31) / 32) * GasCopy
	if err := f.UseGas(wordGas); err != nil {
		return err
	}
	buf := make([]byte, size)
	if offset < uint64(len(src)) {
		copy(buf, src[offset:])
	}
	f.Memory.Set(destOffset, size, buf)
	f.Cursor++
	return nil
}

func opCalldatacopy(f *Frame) error {
	destOffset, offset, size := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	return copyToMemory(f, destOffset.Uint64(), offset.Uint64(), size.Uint64(), f.Input)
}

func opCodesize(f *Frame) error {
	var w types.Word
	w.SetUint64(uint64(len(f.Code)))
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opCodecopy(f *Frame) error {
	destOffset, offset, size := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	return copyToMemory(f, destOffset.Uint64(), offset.Uint64(), size.Uint64(), f.Code)
}

func opGasprice(f *Frame) error {
	ctx := f.Host.BlockCtx()
	w := new(types.Word).Set(&ctx.GasPrice)
	f.Stack.mustPush(w)
	f.Cursor++
	return nil
}

func opExtcodesize(f *Frame) error {
	addrWord := f.Stack.mustPeek(0)
	addr := types.BytesToAddress(addrWord.Bytes())
	if err := chargeAccountAccess(f, addr); err != nil {
		return err
	}
	addrWord.SetUint64(uint64(f.Host.GetCodeSize(addr)))
	f.Cursor++
	return nil
}

func opExtcodecopy(f *Frame) error {
	addrW, destOffset, offset, size := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	addr := types.BytesToAddress(addrW.Bytes())
	if err := chargeAccountAccess(f, addr); err != nil {
		return err
	}
	code := f.Host.GetExternalCode(addr)
	return copyToMemory(f, destOffset.Uint64(), offset.Uint64(), size.Uint64(), code)
}

func opReturndatasize(f *Frame) error {
	var w types.Word
	w.SetUint64(uint64(len(f.ReturnBuffer)))
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opReturndatacopy(f *Frame) error {
	destOffset, offset, size := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	off, sz := offset.Uint64(), size.Uint64()
	if off+sz > uint64(len(f.ReturnBuffer)) || off+sz < off {
		return ErrReturnDataOutOfBounds
	}
	return copyToMemory(f, destOffset.Uint64(), off, sz, f.ReturnBuffer)
}

func opExtcodehash(f *Frame) error {
	addrWord := f.Stack.mustPeek(0)
	addr := types.BytesToAddress(addrWord.Bytes())
	if err := chargeAccountAccess(f, addr); err != nil {
		return err
	}
	if !f.Host.AccountExists(addr) || f.Host.AccountEmpty(addr) {
		addrWord.Clear()
		f.Cursor++
		return nil
	}
	h := f.Host.GetCodeHash(addr)
	addrWord.SetBytes(h.Bytes())
	f.Cursor++
	return nil
}

func opBlockhash(f *Frame) error {
	numW := f.Stack.mustPeek(0)
	h := f.Host.BlockHash(numW.Uint64())
	numW.SetBytes(h.Bytes())
	f.Cursor++
	return nil
}

func opCoinbase(f *Frame) error {
	var w types.Word
	ctx := f.Host.BlockCtx()
	w.SetBytes(ctx.Coinbase.Bytes())
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opTimestamp(f *Frame) error {
	var w types.Word
	w.SetUint64(f.Host.BlockCtx().Timestamp)
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opNumber(f *Frame) error {
	var w types.Word
	w.SetUint64(f.Host.BlockCtx().Number)
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opPrevrandao(f *Frame) error {
	var w types.Word
	ctx := f.Host.BlockCtx()
	w.SetBytes(ctx.PrevRandao.Bytes())
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opGaslimit(f *Frame) error {
	var w types.Word
	w.SetUint64(f.Host.BlockCtx().GasLimit)
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opChainid(f *Frame) error {
	ctx := f.Host.BlockCtx()
	w := new(types.Word).Set(&ctx.ChainID)
	f.Stack.mustPush(w)
	f.Cursor++
	return nil
}

func opSelfbalance(f *Frame) error {
	bal := f.Host.GetBalance(f.ContractAddress)
	w := new(types.Word).Set(&bal)
	f.Stack.mustPush(w)
	f.Cursor++
	return nil
}

func opBasefee(f *Frame) error {
	ctx := f.Host.BlockCtx()
	w := new(types.Word).Set(&ctx.BaseFee)
	f.Stack.mustPush(w)
	f.Cursor++
	return nil
}

func opBlobhash(f *Frame) error {
	idxW := f.Stack.mustPeek(0)
	h := f.Host.BlobHash(idxW.Uint64())
	idxW.Set(&h)
	f.Cursor++
	return nil
}

func opBlobbasefee(f *Frame) error {
	ctx := f.Host.BlockCtx()
	w := new(types.Word).Set(&ctx.BlobBaseFee)
	f.Stack.mustPush(w)
	f.Cursor++
	return nil
}
