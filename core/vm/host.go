package vm

import "github.com/evmts/voltaire-sub004/core/types"

// CallKind enumerates the inner_call variants.
type CallKind int

const (
	CallNormal CallKind = iota
	CallCodeKind
	CallDelegate
	CallStatic
	CallCreate
	CallCreate2
)

// CallParams is the tagged-union parameter set for Host.InnerCall.
// Unused fields for a given Kind are ignored (e.g. Salt only applies to
// CallCreate2; Value is ignored for CallDelegate, which preserves the
// parent's value instead).
type CallParams struct {
	Kind   CallKind
	Caller types.Address // child's msg.sender
	To     types.Address // code/delegation source; ignored for CallCreate / CallCreate2
	// ContextAddress is the address whose storage and balance the child
	// frame operates under. It equals To for CallNormal/CallStatic, and
	// the current contract for CallCodeKind/CallDelegate (both run
	// another address's code against the caller's own storage) -- the
	// two kinds differ only in what Caller the child sees.
	ContextAddress types.Address
	Value          types.Word
	Input          []byte // CALL input, or CREATE/CREATE2 init code
	Gas            uint64
	Salt           types.Word // CallCreate2 only
	IsStatic       bool       // propagated static context for the child frame
}

// CallResult is what Host.InnerCall returns. For a successful
// CREATE/CREATE2, Output holds the 20-byte created address.
type CallResult struct {
	Success bool
	GasLeft uint64
	Output  []byte
}

// BlockContext supplies the block-scoped environment values the BLOCKHASH,
// COINBASE, TIMESTAMP, NUMBER, PREVRANDAO, GASLIMIT, CHAINID, BASEFEE, and
// BLOBBASEFEE opcodes read.
type BlockContext struct {
	Coinbase    types.Address
	Timestamp   uint64
	Number      uint64
	PrevRandao  types.Hash
	GasLimit    uint64
	ChainID     types.Word
	BaseFee     types.Word
	BlobBaseFee types.Word
	GasPrice    types.Word
	Origin      types.Address
}

// Host is the capability set the interpreter cannot satisfy on its own
//: sub-calls and contract creation, log emission, pending
// self-destruct registration, and read access to block/blob/state context.
// Implementations own a journal and a state store and are responsible for
// snapshotting before InnerCall and reverting on child failure.
type Host interface {
	InnerCall(params CallParams) CallResult
	EmitLog(log types.Log) error
	MarkForDestruction(contract, beneficiary types.Address) error

	BlockCtx() BlockContext
	BlobHash(i uint64) types.Word
	BlockHash(n uint64) types.Hash

	GetBalance(addr types.Address) types.Word
	GetCodeHash(addr types.Address) types.CodeHash
	GetCodeSize(addr types.Address) int
	GetExternalCode(addr types.Address) []byte
	AccountExists(addr types.Address) bool
	AccountEmpty(addr types.Address) bool

	GetStorage(addr types.Address, key types.Word) types.Word
	SetStorage(addr types.Address, key, val types.Word) error
	GetCommittedStorage(addr types.Address, key types.Word) types.Word

	GetTransientStorage(addr types.Address, key types.Word) types.Word
	SetTransientStorage(addr types.Address, key, val types.Word)

	AddressInAccessList(addr types.Address) bool
	SlotInAccessList(addr types.Address, key types.Word) (addrOk, slotOk bool)
	AddAddressToAccessList(addr types.Address) (alreadyWarm bool)
	AddSlotToAccessList(addr types.Address, key types.Word) (addrWarm, slotWarm bool)

	AddRefund(amount uint64)
	SubRefund(amount uint64)

	Depth() int
}
