package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Memory opcode handlers.

func opMload(f *Frame) error {
	offsetW := f.Stack.mustPeek(0)
	offset := offsetW.Uint64()
	if err := f.chargeMemory(offset, 32); err != nil {
		return err
	}
	offsetW.SetBytes(f.Memory.GetPtr(int64(offset), 32))
	f.Cursor++
	return nil
}

func opMstore(f *Frame) error {
	offsetW, val := f.Stack.mustPop(), f.Stack.mustPop()
	offset := offsetW.Uint64()
	if err := f.chargeMemory(offset, 32); err != nil {
		return err
	}
	f.Memory.Set32(offset, val)
	f.Cursor++
	return nil
}

func opMstore8(f *Frame) error {
	offsetW, val := f.Stack.mustPop(), f.Stack.mustPop()
	offset := offsetW.Uint64()
	if err := f.chargeMemory(offset, 1); err != nil {
		return err
	}
	f.Memory.Set(offset, 1, []byte{byte(val.Uint64())})
	f.Cursor++
	return nil
}

func opMsize(f *Frame) error {
	var w types.Word
	w.SetUint64(uint64(f.Memory.Len()))
	f.Stack.mustPush(&w)
	f.Cursor++
	return nil
}

func opMcopy(f *Frame) error {
	destOffset, offset, size := f.Stack.mustPop(), f.Stack.mustPop(), f.Stack.mustPop()
	dst, src, sz := destOffset.Uint64(), offset.Uint64(), size.Uint64()
	if sz == 0 {
		f.Cursor++
		return nil
	}
	end := dst
	if src+sz > end {
		end = src + sz
	}
	if dst+sz > end {
		end = dst + sz
	}
	if err := f.chargeMemory(0, end); err != nil {
		return err
	}
	wordGas := ((sz + 31) / 32) * GasCopy
	if err := f.UseGas(wordGas); err != nil {
		return err
	}
	buf := make([]byte, sz)
	copy(buf, f.Memory.GetPtr(int64(src), int64(sz)))
	f.Memory.Set(dst, sz, buf)
	f.Cursor++
	return nil
}
