package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Storage and transient-storage opcode handlers. SLOAD/SSTORE implement
// the EIP-2929 cold/warm access-list pricing on top of the EIP-2200/3529
// net-gas metering rules; TLOAD/TSTORE (EIP-1153) charge a flat cost and
// are not access-list tracked.

func opSload(f *Frame) error {
	keyW := f.Stack.mustPeek(0)
	var key types.Word
	key.Set(keyW)
	_, slotWarm := f.Host.AddSlotToAccessList(f.ContractAddress, key)
	if slotWarm {
		if err := f.UseGas(WarmStorageReadCost); err != nil {
			return err
		}
	} else {
		if err := f.UseGas(ColdSloadCost); err != nil {
			return err
		}
	}
	val := f.Host.GetStorage(f.ContractAddress, key)
	keyW.Set(&val)
	f.Cursor++
	return nil
}

func opSstore(f *Frame) error {
	keyW, valW := f.Stack.mustPop(), f.Stack.mustPop()
	var key, val types.Word
	key.Set(keyW)
	val.Set(valW)

	_, slotWarm := f.Host.AddSlotToAccessList(f.ContractAddress, key)
	coldSurcharge := uint64(0)
	if !slotWarm {
		coldSurcharge = ColdSloadCost
	}

	current := f.Host.GetStorage(f.ContractAddress, key)
	original := f.Host.GetCommittedStorage(f.ContractAddress, key)

	var gas uint64
	switch {
	case current.Eq(&val):
		gas = WarmStorageReadCost
	case original.Eq(&current):
		if original.IsZero() {
			gas = SstoreSetGas
		} else {
			gas = SstoreResetGas
			if val.IsZero() {
				f.Host.AddRefund(SstoreClearRefund)
			}
		}
	default:
		gas = WarmStorageReadCost
	}
	if err := f.UseGas(gas + coldSurcharge); err != nil {
		return err
	}
	if err := f.Host.SetStorage(f.ContractAddress, key, val); err != nil {
		return err
	}
	f.Cursor++
	return nil
}

func opTload(f *Frame) error {
	keyW := f.Stack.mustPeek(0)
	var key types.Word
	key.Set(keyW)
	val := f.Host.GetTransientStorage(f.ContractAddress, key)
	keyW.Set(&val)
	f.Cursor++
	return nil
}

func opTstore(f *Frame) error {
	keyW, valW := f.Stack.mustPop(), f.Stack.mustPop()
	var key, val types.Word
	key.Set(keyW)
	val.Set(valW)
	f.Host.SetTransientStorage(f.ContractAddress, key, val)
	f.Cursor++
	return nil
}
