package state

import "github.com/evmts/voltaire-sub004/core/types"

// accessList tracks warm addresses and storage slots per EIP-2929. Slots
// are keyed by types.Word rather than types.Hash, matching this core's
// choice to key storage by Word throughout instead of treating keys as
// opaque hashes.
type accessList struct {
	addresses map[types.Address]int    // address -> index into slots, or -1 if no slots
	slots     []map[types.Word]struct{} // slot sets indexed by address entry
}

func newAccessList() *accessList {
	return &accessList{
		addresses: make(map[types.Address]int),
	}
}

// addAddress adds an address to the access list. Returns true if the
// address was already present (i.e. already warm).
func (al *accessList) addAddress(addr types.Address) bool {
	if _, ok := al.addresses[addr]; ok {
		return true
	}
	al.addresses[addr] = -1
	return false
}

// addSlot adds a (address, slot) pair. Returns whether the address and slot
// were already present.
func (al *accessList) addSlot(addr types.Address, slot types.Word) (addrPresent, slotPresent bool) {
	idx, addrPresent := al.addresses[addr]
	if addrPresent && idx != -1 {
		if _, ok := al.slots[idx][slot]; ok {
			return true, true
		}
		al.slots[idx][slot] = struct{}{}
		return true, false
	}
	al.addresses[addr] = len(al.slots)
	al.slots = append(al.slots, map[types.Word]struct{}{slot: {}})
	return addrPresent, false
}

func (al *accessList) containsAddress(addr types.Address) bool {
	_, ok := al.addresses[addr]
	return ok
}

func (al *accessList) containsSlot(addr types.Address, slot types.Word) (addressOk, slotOk bool) {
	idx, ok := al.addresses[addr]
	if !ok {
		return false, false
	}
	if idx == -1 {
		return true, false
	}
	_, slotOk = al.slots[idx][slot]
	return true, slotOk
}

// deleteAddress removes an address from the access list. Used by journal
// revert of accessListAddressEntry.
func (al *accessList) deleteAddress(addr types.Address) {
	delete(al.addresses, addr)
}

// deleteSlot removes a slot from an address's set. Used by journal revert
// of accessListSlotEntry.
func (al *accessList) deleteSlot(addr types.Address, slot types.Word) {
	idx, ok := al.addresses[addr]
	if !ok || idx == -1 {
		return
	}
	delete(al.slots[idx], slot)
}
