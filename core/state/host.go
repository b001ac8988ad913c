package state

import (
	"github.com/evmts/voltaire-sub004/core/types"
	"github.com/evmts/voltaire-sub004/core/vm"
	"github.com/evmts/voltaire-sub004/crypto"
)

// EVM composes a Store with the analyzer and interpreter into a concrete
// vm.Host: it is the "transaction driver" presence the core's modules
// assume exists but do not implement themselves. Grounded on the
// teacher's core/vm/interpreter.go EVM type (Call/CallCode/DelegateCall/
// StaticCall/Create/Create2 dispatch, snapshot-around-every-call,
// createAddress/create2Address), adapted to call through the analyzer's
// predecoded stream and this package's Store rather than go-ethereum-style
// Contract/StateDB types.
type EVM struct {
	store       *Store
	metadata    *vm.OpMetadata
	analyzerCfg vm.AnalyzerConfig
	blockCtx    vm.BlockContext
	blobHashes  []types.Word
	getHash     func(uint64) types.Hash
	depth       int
}

// NewEVM wires a Store to a pre-built opcode metadata table (pick one of
// vm.NewCancunMetadata() etc. per the active hardfork) and the environment
// values BLOCKHASH/COINBASE/... read.
func NewEVM(store *Store, metadata *vm.OpMetadata, blockCtx vm.BlockContext, blobHashes []types.Word, getHash func(uint64) types.Hash) *EVM {
	return &EVM{
		store:       store,
		metadata:    metadata,
		analyzerCfg: vm.DefaultAnalyzerConfig(),
		blockCtx:    blockCtx,
		blobHashes:  blobHashes,
		getHash:     getHash,
	}
}

var _ vm.Host = (*EVM)(nil)

// Call executes a top-level message call (depth 0), snapshotting first so
// a failing call leaves no trace. This is the entry point an
// embedder uses to run a transaction's top-level
// CALL or CREATE.
func (e *EVM) Call(caller, to types.Address, input []byte, gas uint64, value types.Word, isStatic bool) vm.CallResult {
	return e.InnerCall(vm.CallParams{
		Kind:           vm.CallNormal,
		Caller:         caller,
		To:             to,
		ContextAddress: to,
		Value:          value,
		Input:          input,
		Gas:            gas,
		IsStatic:       isStatic,
	})
}

// CreateTop executes a top-level CREATE (the transaction-creates-a-contract
// case, as opposed to the CREATE opcode reached via InnerCall from within
// running code).
func (e *EVM) CreateTop(caller types.Address, initCode []byte, gas uint64, value types.Word) vm.CallResult {
	return e.InnerCall(vm.CallParams{
		Kind:   vm.CallCreate,
		Caller: caller,
		Value:  value,
		Input:  initCode,
		Gas:    gas,
	})
}

// InnerCall implements vm.Host: dispatches to the call or create path.
func (e *EVM) InnerCall(params vm.CallParams) vm.CallResult {
	if params.Kind == vm.CallCreate || params.Kind == vm.CallCreate2 {
		return e.innerCreate(params)
	}
	return e.innerCall(params)
}

func (e *EVM) innerCall(params vm.CallParams) vm.CallResult {
	if e.depth >= vm.MaxCallDepth {
		return vm.CallResult{Success: false, GasLeft: params.Gas}
	}

	storageAddr := params.To
	if params.Kind == vm.CallCodeKind || params.Kind == vm.CallDelegate {
		storageAddr = params.ContextAddress
	}

	snap := e.store.Snapshot()

	if params.Kind == vm.CallNormal && !params.Value.IsZero() {
		bal := e.store.GetBalance(params.Caller)
		if bal.Cmp(&params.Value) < 0 {
			e.store.RevertToSnapshot(snap)
			return vm.CallResult{Success: false, GasLeft: params.Gas}
		}
		e.store.Transfer(params.Caller, params.To, &params.Value)
	}

	code := e.store.GetCodeByAddress(params.To)
	if len(code) == 0 {
		return vm.CallResult{Success: true, GasLeft: params.Gas}
	}

	result := e.runFrame(storageAddr, params.Caller, &params.Value, params.Input, code, params.Gas, params.IsStatic, snap)
	return result
}

func (e *EVM) innerCreate(params vm.CallParams) vm.CallResult {
	if e.depth >= vm.MaxCallDepth {
		return vm.CallResult{Success: false, GasLeft: params.Gas}
	}
	if uint64(len(params.Input)) > vm.MaxInitCodeSize {
		logger.Debug("create rejected: initcode too large", "caller", params.Caller, "size", len(params.Input))
		return vm.CallResult{Success: false, GasLeft: 0}
	}

	nonce := e.store.IncrementNonce(params.Caller) - 1
	var contractAddr types.Address
	if params.Kind == vm.CallCreate2 {
		contractAddr = create2Address(params.Caller, &params.Salt, params.Input)
	} else {
		contractAddr = createAddress(params.Caller, nonce)
	}

	// EIP-2929: the created address is always warmed, even on later
	// collision/failure.
	e.store.AddAddressToAccessList(contractAddr)

	existingHash := e.store.GetCodeHash(contractAddr)
	collision := e.store.GetNonce(contractAddr) != 0 ||
		(!existingHash.IsZero() && existingHash != types.EmptyCodeHash)
	if collision {
		logger.Debug("create rejected: address collision", "address", contractAddr)
		return vm.CallResult{Success: false, GasLeft: 0}
	}

	snap := e.store.Snapshot()

	if !e.store.AccountExists(contractAddr) {
		e.store.SetAccount(contractAddr, types.NewAccount(), true)
	}
	e.store.SetNonce(contractAddr, 1)

	if !params.Value.IsZero() {
		bal := e.store.GetBalance(params.Caller)
		if bal.Cmp(&params.Value) < 0 {
			e.store.RevertToSnapshot(snap)
			return vm.CallResult{Success: false, GasLeft: params.Gas}
		}
		e.store.Transfer(params.Caller, contractAddr, &params.Value)
	}

	frameResult := e.runFrame(contractAddr, params.Caller, &params.Value, nil, params.Input, params.Gas, false, snap)
	if !frameResult.Success {
		return frameResult
	}

	deployed := frameResult.Output
	if len(deployed) > 0 {
		if uint64(len(deployed)) > vm.MaxCodeSize {
			e.store.RevertToSnapshot(snap)
			return vm.CallResult{Success: false, GasLeft: 0}
		}
		depositCost := uint64(len(deployed)) * vm.CreateDataGas
		if frameResult.GasLeft < depositCost {
			e.store.RevertToSnapshot(snap)
			return vm.CallResult{Success: false, GasLeft: 0}
		}
		frameResult.GasLeft -= depositCost
		e.store.SetAccountCode(contractAddr, deployed)
	}

	return vm.CallResult{Success: true, GasLeft: frameResult.GasLeft, Output: contractAddr.Bytes()}
}

// runFrame analyzes code and runs it to completion in a child frame,
// reverting snap and zeroing remaining gas on abnormal termination, or
// reverting (but preserving remaining gas) on an explicit REVERT.
func (e *EVM) runFrame(storageAddr, caller types.Address, value *types.Word, input, code []byte, gas uint64, isStatic bool, snap int) vm.CallResult {
	analysis, err := vm.Analyze(code, e.metadata, e.analyzerCfg)
	if err != nil {
		e.store.RevertToSnapshot(snap)
		return vm.CallResult{Success: false, GasLeft: 0}
	}

	frame := vm.NewFrame(storageAddr, caller, value, input, code, analysis.Stream, analysis.JumpTable, gas, e, isStatic, e.depth+1, vm.DefaultMemoryLimit)
	frame.Block0Gas = analysis.Block0Gas
	frame.Block0MinStack = analysis.Block0MinStack
	frame.Block0MaxStack = analysis.Block0MaxStack

	e.depth++
	result := vm.Run(frame, e.metadata)
	e.depth--

	switch result.Outcome {
	case vm.OutcomeReturn, vm.OutcomeStop, vm.OutcomeSelfDestruct:
		return vm.CallResult{Success: true, GasLeft: uint64(frame.GasRemaining), Output: result.ReturnData}
	case vm.OutcomeRevert:
		e.store.RevertToSnapshot(snap)
		return vm.CallResult{Success: false, GasLeft: uint64(frame.GasRemaining), Output: result.ReturnData}
	default:
		e.store.RevertToSnapshot(snap)
		return vm.CallResult{Success: false, GasLeft: 0}
	}
}

// --- Log / self-destruct ---

func (e *EVM) EmitLog(log types.Log) error {
	e.store.AddLog(log)
	return nil
}

func (e *EVM) MarkForDestruction(contract, beneficiary types.Address) error {
	e.store.MarkForDestruction(contract, beneficiary)
	return nil
}

// --- Block / blob context ---

func (e *EVM) BlockCtx() vm.BlockContext { return e.blockCtx }

func (e *EVM) BlobHash(i uint64) types.Word {
	if i >= uint64(len(e.blobHashes)) {
		return types.Word{}
	}
	return e.blobHashes[i]
}

func (e *EVM) BlockHash(n uint64) types.Hash {
	if e.getHash == nil {
		return types.Hash{}
	}
	return e.getHash(n)
}

// --- State passthroughs ---

func (e *EVM) GetBalance(addr types.Address) types.Word { return e.store.GetBalance(addr) }

// GetCodeHash implements the EXTCODEHASH view: a delegated EOA's hash is
// the hash of its delegation designator (0xef0100 ++ target), not the
// target contract's own code hash, per EIP-7702.
func (e *EVM) GetCodeHash(addr types.Address) types.CodeHash {
	if target, ok := e.store.DelegationTarget(addr); ok {
		return crypto.Keccak256Hash(delegationDesignator(target))
	}
	return e.store.GetCodeHash(addr)
}

func (e *EVM) GetCodeSize(addr types.Address) int {
	if _, ok := e.store.DelegationTarget(addr); ok {
		return 23
	}
	return e.store.GetCodeSize(addr)
}

// GetExternalCode implements the EXTCODECOPY view, following the same
// designator rule as GetCodeHash/GetCodeSize.
func (e *EVM) GetExternalCode(addr types.Address) []byte {
	if target, ok := e.store.DelegationTarget(addr); ok {
		return delegationDesignator(target)
	}
	a, ok := e.store.GetAccount(addr)
	if !ok {
		return nil
	}
	code, _ := e.store.GetCodeByHash(a.CodeHash)
	return code
}

func (e *EVM) AccountExists(addr types.Address) bool { return e.store.AccountExists(addr) }
func (e *EVM) AccountEmpty(addr types.Address) bool  { return e.store.AccountEmpty(addr) }

func (e *EVM) GetStorage(addr types.Address, key types.Word) types.Word {
	return e.store.GetStorage(addr, key)
}

func (e *EVM) SetStorage(addr types.Address, key, val types.Word) error {
	e.store.SetStorage(addr, key, val)
	return nil
}

func (e *EVM) GetCommittedStorage(addr types.Address, key types.Word) types.Word {
	return e.store.GetCommittedStorage(addr, key)
}

func (e *EVM) GetTransientStorage(addr types.Address, key types.Word) types.Word {
	return e.store.GetTransientStorage(addr, key)
}

func (e *EVM) SetTransientStorage(addr types.Address, key, val types.Word) {
	e.store.SetTransientStorage(addr, key, val)
}

func (e *EVM) AddressInAccessList(addr types.Address) bool {
	return e.store.AddressInAccessList(addr)
}

func (e *EVM) SlotInAccessList(addr types.Address, key types.Word) (addrOk, slotOk bool) {
	return e.store.SlotInAccessList(addr, key)
}

func (e *EVM) AddAddressToAccessList(addr types.Address) bool {
	return e.store.AddAddressToAccessList(addr)
}

func (e *EVM) AddSlotToAccessList(addr types.Address, key types.Word) (addrWarm, slotWarm bool) {
	return e.store.AddSlotToAccessList(addr, key)
}

func (e *EVM) AddRefund(amount uint64) { e.store.AddRefund(amount) }
func (e *EVM) SubRefund(amount uint64) { e.store.SubRefund(amount) }

func (e *EVM) Depth() int { return e.depth }

// --- EIP-7702 delegation designator ---

// delegationDesignator is the 23-byte value (0xef0100 ++ target) an
// account carrying an EIP-7702 delegation is treated as if its code were,
// for every purpose except actually executing it (where the target's own
// code runs instead, via Store.GetCodeByAddress).
func delegationDesignator(target types.Address) []byte {
	d := make([]byte, 0, 23)
	d = append(d, 0xef, 0x01, 0x00)
	d = append(d, target.Bytes()...)
	return d
}

// --- CREATE / CREATE2 address derivation ---

// createAddress computes CREATE's target: keccak256(rlp([sender,
// nonce]))[12:]. Uses a small hand-rolled minimal RLP encoder rather than
// pulling in a general-purpose one for this single two-field encoding.
func createAddress(caller types.Address, nonce uint64) types.Address {
	addrEnc := encodeRLPBytes(caller.Bytes())
	nonceEnc := encodeRLPUint(nonce)
	payload := append(addrEnc, nonceEnc...)
	data := wrapRLPList(payload)
	hash := crypto.Keccak256(data)
	return types.BytesToAddress(hash[12:])
}

// create2Address computes CREATE2's target:
// keccak256(0xff ++ caller ++ salt ++ keccak256(init_code))[12:].
func create2Address(caller types.Address, salt *types.Word, initCode []byte) types.Address {
	saltBytes := salt.Bytes32()
	initHash := crypto.Keccak256(initCode)
	data := make([]byte, 0, 1+20+32+32)
	data = append(data, 0xff)
	data = append(data, caller.Bytes()...)
	data = append(data, saltBytes[:]...)
	data = append(data, initHash...)
	hash := crypto.Keccak256(data)
	return types.BytesToAddress(hash[12:])
}

func encodeRLPBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) < 56 {
		return append([]byte{byte(0x80 + len(b))}, b...)
	}
	lenBytes := uintToMinBytes(uint64(len(b)))
	header := append([]byte{byte(0xb7 + len(lenBytes))}, lenBytes...)
	return append(header, b...)
}

func encodeRLPUint(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	if v < 128 {
		return []byte{byte(v)}
	}
	b := uintToMinBytes(v)
	return append([]byte{byte(0x80 + len(b))}, b...)
}

func wrapRLPList(payload []byte) []byte {
	if len(payload) < 56 {
		return append([]byte{byte(0xc0 + len(payload))}, payload...)
	}
	lenBytes := uintToMinBytes(uint64(len(payload)))
	header := append([]byte{byte(0xf7 + len(lenBytes))}, lenBytes...)
	return append(header, payload...)
}

func uintToMinBytes(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var buf [8]byte
	n := 0
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
		if buf[i] != 0 || n > 0 {
			n = 8 - i
		}
	}
	return buf[8-n:]
}
