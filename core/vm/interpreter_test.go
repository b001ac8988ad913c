package vm

import (
	"testing"

	"github.com/evmts/voltaire-sub004/core/types"
)

// runCode analyzes and executes code against a fresh frame with ample gas
// and no Host (opcodes under test never touch it).
func runCode(t *testing.T, code []byte, gas uint64) Result {
	t.Helper()
	metadata := NewCancunMetadata()
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	f := NewFrame(types.Address{}, types.Address{}, nil, nil, code, res.Stream, res.JumpTable, gas, nil, false, 0, DefaultMemoryLimit)
	f.Block0Gas, f.Block0MinStack, f.Block0MaxStack = res.Block0Gas, res.Block0MinStack, res.Block0MaxStack
	return Run(f, metadata)
}

// TestArithmeticReturn verifies that PUSH1 10 PUSH1 20 ADD, stored
// to memory and returned, yields 30.
func TestArithmeticReturn(t *testing.T) {
	code := []byte{
		byte(PUSH1), 10,
		byte(PUSH1), 20,
		byte(ADD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeReturn {
		t.Fatalf("expected OutcomeReturn, got %v (err %v)", result.Outcome, result.Err)
	}
	var got types.Word
	got.SetBytes(result.ReturnData)
	if got.Uint64() != 30 {
		t.Fatalf("expected 30, got %d", got.Uint64())
	}
}

// TestInvalidJumpDestination verifies that JUMP to a non-JUMPDEST
// location fails with ErrInvalidJump.
func TestInvalidJumpDestination(t *testing.T) {
	code := []byte{
		byte(PUSH1), 3, // destination 3 is a STOP, not a JUMPDEST
		byte(JUMP),
		byte(STOP),
		byte(JUMPDEST),
	}
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeInvalidJump {
		t.Fatalf("expected OutcomeInvalidJump, got %v (err %v)", result.Outcome, result.Err)
	}
}

func TestValidJumpToJumpdest(t *testing.T) {
	code := []byte{
		byte(PUSH1), 4,
		byte(JUMP),
		byte(INVALID), // skipped
		byte(JUMPDEST),
		byte(STOP),
	}
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeStop {
		t.Fatalf("expected OutcomeStop, got %v (err %v)", result.Outcome, result.Err)
	}
}

func TestStackUnderflow(t *testing.T) {
	code := []byte{byte(ADD)}
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeStackUnderflow {
		t.Fatalf("expected OutcomeStackUnderflow, got %v", result.Outcome)
	}
}

func TestOutOfGas(t *testing.T) {
	code := []byte{byte(PUSH1), 1, byte(STOP)}
	result := runCode(t, code, 1) // PUSH1 costs 3
	if result.Outcome != OutcomeOutOfGas {
		t.Fatalf("expected OutcomeOutOfGas, got %v", result.Outcome)
	}
}

func TestInvalidOpcode(t *testing.T) {
	code := []byte{byte(INVALID)}
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeInvalidOpcode {
		t.Fatalf("expected OutcomeInvalidOpcode, got %v", result.Outcome)
	}
}

func TestUndefinedOpcodeHaltsInvalid(t *testing.T) {
	code := []byte{0x0c} // never defined
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeInvalidOpcode {
		t.Fatalf("expected OutcomeInvalidOpcode, got %v", result.Outcome)
	}
}

func TestExplicitRevertReturnsData(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0xff,
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(REVERT),
	}
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeRevert {
		t.Fatalf("expected OutcomeRevert, got %v (err %v)", result.Outcome, result.Err)
	}
	if len(result.ReturnData) != 32 {
		t.Fatalf("expected 32 bytes of revert data, got %d", len(result.ReturnData))
	}
}

func TestDupThenAdd(t *testing.T) {
	// PUSH1 42, DUP1, ADD, then MSTORE and RETURN the sum -- 42 + 42 = 84
	code := []byte{
		byte(PUSH1), 42,
		byte(DUP1),
		byte(ADD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeReturn {
		t.Fatalf("expected OutcomeReturn, got %v (err %v)", result.Outcome, result.Err)
	}
	var got types.Word
	got.SetBytes(result.ReturnData)
	if got.Uint64() != 84 {
		t.Fatalf("expected 84, got %d", got.Uint64())
	}
}

// TestJumpiFallthroughNotTaken exercises a JUMPI whose condition is false:
// control falls through within the same basic block without re-entering
// opJumpdest.
func TestJumpiFallthroughNotTaken(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0, // condition: false
		byte(PUSH1), 9, // destination (unused)
		byte(JUMPI),
		byte(PUSH1), 7,
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	result := runCode(t, code, 100000)
	if result.Outcome != OutcomeReturn {
		t.Fatalf("expected OutcomeReturn, got %v (err %v)", result.Outcome, result.Err)
	}
	var got types.Word
	got.SetBytes(result.ReturnData)
	if got.Uint64() != 7 {
		t.Fatalf("expected 7, got %d", got.Uint64())
	}
}
