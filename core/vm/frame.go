package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Outcome is the termination state of a completed frame.
type Outcome int

const (
	OutcomeStop Outcome = iota
	OutcomeReturn
	OutcomeRevert
	OutcomeSelfDestruct
	OutcomeOutOfGas
	OutcomeInvalidOpcode
	OutcomeStackUnderflow
	OutcomeStackOverflow
	OutcomeWriteProtection
	OutcomeInvalidJump
	OutcomeMemoryLimitExceeded
	OutcomeCallDepthExceeded
)

// Result is what a completed frame reports to its caller.
type Result struct {
	Outcome     Outcome
	ReturnData  []byte
	Beneficiary types.Address // valid only for OutcomeSelfDestruct
	Err         error
}

// HandlerFn executes one (possibly fused) instruction starting at the
// item the frame's cursor currently points at. It advances f.Cursor past
// its own handler slot and any metadata slot it consumed before
// returning, and returns a non-nil error only on abnormal termination.
// The interpreter's outer loop (interpreter.go) is the trampoline that
// repeatedly invokes Stream[f.Cursor].Handler until the frame is done --
// the design notes sanction this in place of guaranteed sibling-call
// elimination, which Go does not provide.
type HandlerFn func(f *Frame) error

// Frame is one EVM call frame: the execution context for a single
// contract invocation.
type Frame struct {
	Stack  *Stack
	Memory *Memory

	GasRemaining int64

	ContractAddress types.Address
	Caller          types.Address
	Value           types.Word
	Input           []byte
	Code            []byte

	// ReturnBuffer holds the most recent sub-call's return data, readable
	// by RETURNDATACOPY/RETURNDATASIZE.
	ReturnBuffer []byte
	// Output accumulates this frame's own RETURN/REVERT payload.
	Output []byte

	Host Host

	IsStatic bool
	Depth    int

	Stream    Stream
	JumpTable JumpTable

	// Cursor is the current position in Stream; handlers advance it.
	Cursor int

	// Block0Gas/MinStack/MaxStack are the analyzer's pre-accounting for the
	// stream's first basic block. Unlike every later block, block 0
	// has no leading JUMPDEST to carry its jumpdest_meta, so the interpreter
	// charges it directly from these fields before entering the dispatch
	// loop.
	Block0Gas      uint64
	Block0MinStack int
	Block0MaxStack int

	done        bool
	outcome     Outcome
	errv        error
	beneficiary types.Address
}

// NewFrame constructs a frame ready to execute stream against the given
// contract context. GasLimit seeds GasRemaining.
func NewFrame(contract, caller types.Address, value *types.Word, input, code []byte, stream Stream, jt JumpTable, gasLimit uint64, host Host, isStatic bool, depth int, memLimit uint64) *Frame {
	f := &Frame{
		Stack:           NewStack(),
		Memory:          NewMemory(memLimit),
		GasRemaining:    int64(gasLimit),
		ContractAddress: contract,
		Caller:          caller,
		Input:           input,
		Code:            code,
		Host:            host,
		IsStatic:        isStatic,
		Depth:           depth,
		Stream:          stream,
		JumpTable:       jt,
	}
	if value != nil {
		f.Value.Set(value)
	}
	return f
}

// UseGas deducts cost from the frame's remaining gas. Returns
// ErrOutOfGas (without mutating GasRemaining below zero reporting) if
// insufficient.
func (f *Frame) UseGas(cost uint64) error {
	if f.GasRemaining < 0 || uint64(f.GasRemaining) < cost {
		f.GasRemaining = 0
		return ErrOutOfGas
	}
	f.GasRemaining -= int64(cost)
	return nil
}

// Halt marks the frame done with the given outcome, return data, and error.
func (f *Frame) Halt(outcome Outcome, data []byte, err error) {
	if f.done {
		return
	}
	f.done = true
	f.outcome = outcome
	f.Output = data
	f.errv = err
}

// HaltSelfDestruct marks the frame done as a SELFDESTRUCT with beneficiary.
func (f *Frame) HaltSelfDestruct(beneficiary types.Address) {
	if f.done {
		return
	}
	f.done = true
	f.outcome = OutcomeSelfDestruct
	f.beneficiary = beneficiary
}

// Done reports whether the frame has reached a terminal state.
func (f *Frame) Done() bool { return f.done }

// chargeMemory charges and applies the gas cost of growing memory to
// cover [offset, offset+size), per the quadratic expansion formula.
// A zero-size access never grows memory (matches the EVM convention that
// e.g. CALLDATACOPY with size 0 does not charge expansion gas regardless
// of offset).
func (f *Frame) chargeMemory(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	if needed < offset {
		return ErrMemoryLimitExceeded // overflow
	}
	gas, exceeds := f.Memory.ExpansionGas(needed)
	if exceeds {
		return ErrMemoryLimitExceeded
	}
	if err := f.UseGas(gas); err != nil {
		return err
	}
	f.Memory.Resize(needed)
	return nil
}

// enterBlock charges a basic block's pre-summed static gas and validates
// the stack has at least minStack items and enough headroom for the
// block's maximum transient growth. Called once
// per block entry -- by opJumpdest for every block after the first, and
// directly by the interpreter for block 0, which has no leading JUMPDEST.
func (f *Frame) enterBlock(blockGas uint64, minStack, maxStack int) error {
	if f.Stack.Len() < minStack {
		return ErrStackUnderflow
	}
	if f.Stack.Len()+maxStack > MaxStackDepth {
		return ErrStackOverflow
	}
	return f.UseGas(blockGas)
}

// Result packages the frame's terminal state once Done() is true.
func (f *Frame) Result() Result {
	return Result{
		Outcome:     f.outcome,
		ReturnData:  f.Output,
		Beneficiary: f.beneficiary,
		Err:         f.errv,
	}
}
