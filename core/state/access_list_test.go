package state

import "testing"

func TestAccessListAddAddress(t *testing.T) {
	al := newAccessList()
	a := addr(1)

	if al.addAddress(a) {
		t.Fatal("expected false for first addAddress")
	}
	if !al.addAddress(a) {
		t.Fatal("expected true for duplicate addAddress")
	}
}

func TestAccessListContainsAddress(t *testing.T) {
	al := newAccessList()
	a := addr(2)

	if al.containsAddress(a) {
		t.Fatal("address should not be present initially")
	}
	al.addAddress(a)
	if !al.containsAddress(a) {
		t.Fatal("address should be present after adding")
	}
}

func TestAccessListAddSlotNewAddress(t *testing.T) {
	al := newAccessList()
	a := addr(3)
	slot := word(1)

	addrPresent, slotPresent := al.addSlot(a, slot)
	if addrPresent || slotPresent {
		t.Fatal("neither address nor slot should be present initially")
	}
	if !al.containsAddress(a) {
		t.Fatal("address should be present after addSlot")
	}
}

func TestAccessListAddSlotExistingAddressWithSlots(t *testing.T) {
	al := newAccessList()
	a := addr(4)
	slot1, slot2 := word(1), word(2)

	al.addSlot(a, slot1)

	addrPresent, slotPresent := al.addSlot(a, slot2)
	if !addrPresent {
		t.Fatal("address should be present")
	}
	if slotPresent {
		t.Fatal("slot2 should not be present yet")
	}

	addrPresent, slotPresent = al.addSlot(a, slot2)
	if !addrPresent || !slotPresent {
		t.Fatal("slot2 should be present on second add")
	}
}

func TestAccessListContainsSlot(t *testing.T) {
	al := newAccessList()
	a := addr(5)
	slot := word(1)

	addrOk, slotOk := al.containsSlot(a, slot)
	if addrOk || slotOk {
		t.Fatal("neither should be present initially")
	}

	al.addAddress(a)
	addrOk, slotOk = al.containsSlot(a, slot)
	if !addrOk || slotOk {
		t.Fatal("address present, slot not yet")
	}

	al.addSlot(a, slot)
	addrOk, slotOk = al.containsSlot(a, slot)
	if !addrOk || !slotOk {
		t.Fatal("both should be present")
	}
}

func TestAccessListDeleteAddress(t *testing.T) {
	al := newAccessList()
	a := addr(6)
	al.addAddress(a)
	al.deleteAddress(a)
	if al.containsAddress(a) {
		t.Fatal("address should be removed after delete")
	}
}

func TestAccessListDeleteAddressNonExistent(t *testing.T) {
	al := newAccessList()
	al.deleteAddress(addr(99)) // must not panic
}

func TestAccessListDeleteSlot(t *testing.T) {
	al := newAccessList()
	a := addr(7)
	slot := word(1)
	al.addSlot(a, slot)
	al.deleteSlot(a, slot)

	addrOk, slotOk := al.containsSlot(a, slot)
	if !addrOk {
		t.Fatal("address should still be present")
	}
	if slotOk {
		t.Fatal("slot should be removed")
	}
}

func TestAccessListDeleteSlotAddressNoSlots(t *testing.T) {
	al := newAccessList()
	a := addr(8)
	al.addAddress(a) // idx == -1
	al.deleteSlot(a, word(1)) // must not panic
}

func TestAccessListMultipleAddressesIndependent(t *testing.T) {
	al := newAccessList()
	a1, a2 := addr(20), addr(21)
	slot1, slot2 := word(30), word(31)

	al.addSlot(a1, slot1)
	al.addSlot(a2, slot2)

	_, ok1 := al.containsSlot(a1, slot1)
	if !ok1 {
		t.Fatal("a1 should contain slot1")
	}
	_, ok2 := al.containsSlot(a1, slot2)
	if ok2 {
		t.Fatal("a1 should not contain slot2")
	}
	_, ok3 := al.containsSlot(a2, slot2)
	if !ok3 {
		t.Fatal("a2 should contain slot2")
	}
}
