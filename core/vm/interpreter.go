package vm

// Run executes a frame's predecoded stream to completion by walking it via
// tail-chained handler invocation. Go gives no guarantee of sibling-
// call elimination, so this is the trampoline the design notes sanction
//: a tight loop, not a central opcode switch -- handlers never return
// an opcode for this loop to interpret, they only signal abnormal
// termination.
//
// metadata must be the same table the frame's stream was built against
// (Analyze consults it for handlers and gas/stack shape); Run consults it
// only to look up the Writes flag for static-context enforcement.
func Run(f *Frame, metadata *OpMetadata) Result {
	logger.Debug("frame enter", "depth", f.Depth, "contract", f.ContractAddress, "gas", f.GasRemaining, "static", f.IsStatic)
	if err := f.enterBlock(f.Block0Gas, f.Block0MinStack, f.Block0MaxStack); err != nil {
		return haltWith(f, err)
	}
	for !f.Done() {
		item := f.Stream[f.Cursor]
		if f.IsStatic && metadata.Get(item.Op).Writes {
			return haltWith(f, ErrWriteProtection)
		}
		if err := item.Handler(f); err != nil {
			return haltWith(f, err)
		}
	}
	result := f.Result()
	logger.Debug("frame halt", "depth", f.Depth, "contract", f.ContractAddress, "outcome", result.Outcome, "gasLeft", f.GasRemaining)
	return result
}

// haltWith maps a handler error to the matching Outcome and returns the
// frame's Result. Every error path here implies the frame's journal
// segment must be reverted by the caller (host.go does this around
// InnerCall); Run itself has no journal access.
func haltWith(f *Frame, err error) Result {
	outcome := outcomeForError(err)
	f.Halt(outcome, nil, err)
	result := f.Result()
	logger.Debug("frame halt", "depth", f.Depth, "contract", f.ContractAddress, "outcome", outcome, "err", err, "gasLeft", f.GasRemaining)
	return result
}

func outcomeForError(err error) Outcome {
	switch err {
	case ErrOutOfGas:
		return OutcomeOutOfGas
	case ErrInvalidOpcode:
		return OutcomeInvalidOpcode
	case ErrStackUnderflow:
		return OutcomeStackUnderflow
	case ErrStackOverflow:
		return OutcomeStackOverflow
	case ErrWriteProtection:
		return OutcomeWriteProtection
	case ErrInvalidJump:
		return OutcomeInvalidJump
	case ErrMemoryLimitExceeded:
		return OutcomeMemoryLimitExceeded
	case ErrCallDepthExceeded:
		return OutcomeCallDepthExceeded
	default:
		return OutcomeInvalidOpcode
	}
}
