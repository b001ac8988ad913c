package state

import (
	"testing"

	"github.com/evmts/voltaire-sub004/core/types"
	"github.com/evmts/voltaire-sub004/core/vm"
)

func newTestEVM(s *Store) *EVM {
	return NewEVM(s, vm.NewCancunMetadata(), vm.BlockContext{}, nil, nil)
}

// TestStaticCallRejectsLog verifies that a LOG0 reached under a
// static call context fails the call instead of emitting a log.
func TestStaticCallRejectsLog(t *testing.T) {
	s := NewStore()
	target := addr(1)
	// PUSH1 0 (size), PUSH1 0 (offset), LOG0, STOP
	code := []byte{
		byte(vm.PUSH1), 0,
		byte(vm.PUSH1), 0,
		byte(vm.LOG0),
		byte(vm.STOP),
	}
	s.SetAccountCode(target, code)

	e := newTestEVM(s)
	result := e.Call(addr(2), target, nil, 100000, types.Word{}, true)
	if result.Success {
		t.Fatal("expected call to fail under static write protection")
	}
	if len(s.Logs()) != 0 {
		t.Fatalf("expected no logs emitted, got %d", len(s.Logs()))
	}
}

func TestNonStaticCallAllowsLog(t *testing.T) {
	s := NewStore()
	target := addr(1)
	code := []byte{
		byte(vm.PUSH1), 0,
		byte(vm.PUSH1), 0,
		byte(vm.LOG0),
		byte(vm.STOP),
	}
	s.SetAccountCode(target, code)

	e := newTestEVM(s)
	result := e.Call(addr(2), target, nil, 100000, types.Word{}, false)
	if !result.Success {
		t.Fatal("expected call to succeed")
	}
	if len(s.Logs()) != 1 {
		t.Fatalf("expected 1 log, got %d", len(s.Logs()))
	}
}

// TestStaticCallRejectsSstore verifies write protection under a static
// call extends to storage writes, not just logs.
func TestStaticCallRejectsSstore(t *testing.T) {
	s := NewStore()
	target := addr(3)
	// PUSH1 1 (value), PUSH1 0 (key), SSTORE, STOP
	code := []byte{
		byte(vm.PUSH1), 1,
		byte(vm.PUSH1), 0,
		byte(vm.SSTORE),
		byte(vm.STOP),
	}
	s.SetAccountCode(target, code)

	e := newTestEVM(s)
	result := e.Call(addr(4), target, nil, 100000, types.Word{}, true)
	if result.Success {
		t.Fatal("expected SSTORE under static call to fail")
	}
	if !s.GetStorage(target, word(0)).IsZero() {
		t.Fatal("storage must be unchanged after a rejected static write")
	}
}

// TestCreate2AddressKnownVector checks CREATE2 address derivation against the
// canonical EIP-1014 test vector: zero address, zero salt, init_code 0x00.
func TestCreate2AddressKnownVector(t *testing.T) {
	caller := types.Address{}
	var salt types.Word
	initCode := []byte{0x00}

	got := create2Address(caller, &salt, initCode)
	want := types.HexToAddress("0x4D1A2e2bB4F88F0250f26Ffff098B0b30B26BF38")
	if got != want {
		t.Fatalf("expected %s, got %s", want.Hex(), got.Hex())
	}
}

func TestCreate2AddressChangesWithSalt(t *testing.T) {
	caller := addr(1)
	initCode := []byte{0x60, 0x00}

	var saltA, saltB types.Word
	saltA.SetUint64(1)
	saltB.SetUint64(2)

	a := create2Address(caller, &saltA, initCode)
	b := create2Address(caller, &saltB, initCode)
	if a == b {
		t.Fatal("different salts must produce different addresses")
	}
}

// TestCreateTopDeploysAndRuns covers the CREATE path end to end: init code
// that returns a runtime body results in an account carrying that body.
func TestCreateTopDeploysAndRuns(t *testing.T) {
	s := NewStore()
	caller := addr(5)
	million := word(1_000_000)
	s.AddBalance(caller, &million)

	// Runtime body: STOP (1 byte). Init code copies it to memory and returns it.
	runtime := []byte{byte(vm.STOP)}
	initCode := []byte{
		byte(vm.PUSH1), runtime[0],
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE8),
		byte(vm.PUSH1), 1,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}

	e := newTestEVM(s)
	result := e.CreateTop(caller, initCode, 200000, types.Word{})
	if !result.Success {
		t.Fatal("expected CREATE to succeed")
	}
	deployedAddr := types.BytesToAddress(result.Output)
	code := s.GetCodeByAddress(deployedAddr)
	if len(code) != 1 || code[0] != byte(vm.STOP) {
		t.Fatalf("expected deployed code [STOP], got %v", code)
	}
}

// TestDelegatedAccountExternalCodeViewIsDesignator verifies the
// designator-aware view split: GetCodeHash/GetCodeSize/GetExternalCode on a
// delegated EOA report the 0xef0100 designator, not the target's own code.
func TestDelegatedAccountExternalCodeViewIsDesignator(t *testing.T) {
	s := NewStore()
	eoa, target := addr(6), addr(7)
	s.SetAccountCode(target, []byte{0x60, 0x01})
	if err := s.SetDelegation(eoa, target); err != nil {
		t.Fatalf("SetDelegation: %v", err)
	}

	e := newTestEVM(s)
	if size := e.GetCodeSize(eoa); size != 23 {
		t.Fatalf("expected designator size 23, got %d", size)
	}
	external := e.GetExternalCode(eoa)
	if len(external) != 23 || external[0] != 0xef || external[1] != 0x01 || external[2] != 0x00 {
		t.Fatalf("expected 0xef0100 designator prefix, got %v", external)
	}
	if types.BytesToAddress(external[3:]) != target {
		t.Fatal("designator must embed the delegation target address")
	}
}
