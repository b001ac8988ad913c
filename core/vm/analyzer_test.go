package vm

import "testing"

func TestCodeStartBitmapSkipsPushLiterals(t *testing.T) {
	// PUSH2 0xaa 0xbb, JUMPDEST
	code := []byte{byte(PUSH2), 0xaa, 0xbb, byte(JUMPDEST)}
	bitmap := codeStartBitmap(code)
	want := []bool{true, false, false, true}
	for i, w := range want {
		if bitmap[i] != w {
			t.Fatalf("pc %d: expected %v, got %v", i, w, bitmap[i])
		}
	}
}

// TestAnalyzePushDataNotJumpdest verifies that a JUMPDEST byte embedded in a
// PUSH's literal data is not registered as a valid jump target.
func TestAnalyzePushDataNotJumpdest(t *testing.T) {
	metadata := NewCancunMetadata()
	// PUSH1 0x5b (JUMPDEST byte as literal data), STOP
	code := []byte{byte(PUSH1), byte(JUMPDEST), byte(STOP)}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if _, ok := res.JumpTable.Lookup(1); ok {
		t.Fatal("PUSH literal byte must not resolve as a jump destination")
	}
}

func TestAnalyzeRealJumpdestIsRegistered(t *testing.T) {
	metadata := NewCancunMetadata()
	// JUMPDEST, STOP
	code := []byte{byte(JUMPDEST), byte(STOP)}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if _, ok := res.JumpTable.Lookup(0); !ok {
		t.Fatal("expected pc 0 to be a registered jump destination")
	}
}

func TestAnalyzeBytecodeTooLarge(t *testing.T) {
	metadata := NewCancunMetadata()
	code := make([]byte, 10)
	_, err := Analyze(code, metadata, AnalyzerConfig{MaxCodeSize: 5})
	if err != ErrBytecodeTooLarge {
		t.Fatalf("expected ErrBytecodeTooLarge, got %v", err)
	}
}

// TestAnalyzeBlock0GasSumsOperations verifies block 0's pre-accounted gas
// equals the sum of its operations' base gas.
func TestAnalyzeBlock0GasSumsOperations(t *testing.T) {
	metadata := NewCancunMetadata()
	// PUSH1 1, PUSH1 2, ADD, STOP -- all inside block 0 (no JUMPDEST).
	code := []byte{
		byte(PUSH1), 1,
		byte(PUSH1), 2,
		byte(ADD),
		byte(STOP),
	}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	want := GasVerylow + GasVerylow + GasVerylow // two PUSH1 + ADD; STOP is zero cost
	if res.Block0Gas != want {
		t.Fatalf("expected block0 gas %d, got %d", want, res.Block0Gas)
	}
}

// TestAnalyzeBlock0StackRequirement verifies the min/max stack pre-accounting
// for a block that pops more than it pushes partway through.
func TestAnalyzeBlock0StackRequirement(t *testing.T) {
	metadata := NewCancunMetadata()
	// ADD needs 2 stack items, has none pushed before it in this block.
	code := []byte{byte(ADD), byte(STOP)}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if res.Block0MinStack != 2 {
		t.Fatalf("expected min stack 2, got %d", res.Block0MinStack)
	}
}

func TestAnalyzeStreamEndsWithSentinelStops(t *testing.T) {
	metadata := NewCancunMetadata()
	code := []byte{byte(STOP)}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	n := len(res.Stream)
	if n < 2 || res.Stream[n-1].Op != STOP || res.Stream[n-2].Op != STOP {
		t.Fatal("expected two trailing STOP sentinel slots")
	}
}

// TestAnalyzeFusionSkipsOverLiteral verifies fused PUSH+op folds into one
// handler slot instead of two, when fusion is enabled.
func TestAnalyzeFusionSkipsOverLiteral(t *testing.T) {
	metadata := NewCancunMetadata()
	code := []byte{
		byte(PUSH1), 1,
		byte(PUSH1), 2,
		byte(ADD),
		byte(STOP),
	}
	plain, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	fused, err := Analyze(code, metadata, AnalyzerConfig{EnableFusion: true})
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if len(fused.Stream) >= len(plain.Stream) {
		t.Fatalf("expected fused stream shorter than plain: fused=%d plain=%d",
			len(fused.Stream), len(plain.Stream))
	}
}

// TestAnalyzeDeadCodeAfterStopExcludedFromBlock0Gas verifies that bytes
// after an unconditional halt are not folded into the preceding block's
// gas requirement -- the Solidity CBOR-trailer scenario: STOP, then a
// PUSH1 that belongs to no reachable block.
func TestAnalyzeDeadCodeAfterStopExcludedFromBlock0Gas(t *testing.T) {
	metadata := NewCancunMetadata()
	code := []byte{byte(STOP), byte(PUSH1), 1}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if res.Block0Gas != 0 {
		t.Fatalf("expected block0 gas 0 (STOP is free, trailing PUSH1 is dead), got %d", res.Block0Gas)
	}
}

// TestAnalyzeDeadCodeBetweenTerminatorAndJumpdest verifies dead bytes
// sitting between a halting terminator and the next JUMPDEST contribute to
// neither the block before nor the block after.
func TestAnalyzeDeadCodeBetweenTerminatorAndJumpdest(t *testing.T) {
	metadata := NewCancunMetadata()
	// block 0: STOP (dead PUSH1 follows) -- block at pc 3: JUMPDEST, STOP.
	code := []byte{
		byte(STOP),
		byte(PUSH1), 1,
		byte(JUMPDEST),
		byte(STOP),
	}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if res.Block0Gas != 0 {
		t.Fatalf("expected block0 gas 0, got %d", res.Block0Gas)
	}
	idx, ok := res.JumpTable.Lookup(3)
	if !ok {
		t.Fatal("expected pc 3 to be a registered jump destination")
	}
	meta := res.Stream[idx+1]
	if meta.BlockGas != GasJumpDest {
		t.Fatalf("expected JUMPDEST block gas %d (dead PUSH1 must not leak in), got %d", GasJumpDest, meta.BlockGas)
	}
}

// TestAnalyzeJumpiFallthroughStillChargedInOpenBlock verifies that JUMPI,
// despite ending a basic block conceptually, does not strand its
// fallthrough code as dead: that code has no JUMPDEST of its own to charge
// it, so it must keep accumulating into the block JUMPI itself belongs to.
func TestAnalyzeJumpiFallthroughStillChargedInOpenBlock(t *testing.T) {
	metadata := NewCancunMetadata()
	// PUSH1 0 (cond), PUSH1 9 (dest, unused), JUMPI, ADD (needs 2 stack items).
	code := []byte{
		byte(PUSH1), 0,
		byte(PUSH1), 9,
		byte(JUMPI),
		byte(ADD),
		byte(STOP),
	}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	want := GasVerylow + GasVerylow + GasHigh + GasVerylow // 2 PUSH1 + JUMPI + ADD
	if res.Block0Gas != want {
		t.Fatalf("expected block0 gas %d (JUMPI fallthrough must not be dropped), got %d", want, res.Block0Gas)
	}
	if res.Block0MinStack < 2 {
		t.Fatalf("expected min stack requirement to include ADD's operands, got %d", res.Block0MinStack)
	}
}

func TestAnalyzeUndefinedOpcodeStillProducesSlot(t *testing.T) {
	metadata := NewFrontierMetadata()
	// 0x0c is undefined in every fork.
	code := []byte{0x0c}
	res, err := Analyze(code, metadata, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatalf("Analyze must not fail on undefined opcodes, got %v", err)
	}
	if res.Stream[0].Handler == nil {
		t.Fatal("undefined opcode must still get a handler slot (opUndefined)")
	}
}
