// Package types defines the core data vocabulary shared by the state store,
// journal, analyzer, and interpreter: addresses, 256-bit words, code hashes,
// and the in-memory account shape.
package types

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	HashLength    = 32
	AddressLength = 20
)

// Hash is an opaque 32-byte content identifier (e.g. a CodeHash or a log topic).
// Unlike Word it carries no arithmetic; it is compared, not computed on.
type Hash [HashLength]byte

// Address is the 20-byte identifier of an externally-owned or contract account.
type Address [AddressLength]byte

// Word is the fixed-width 256-bit unsigned integer the EVM operates on: stack
// entries, storage values, and memory words are all Words. Word is an alias
// for uint256.Int so the stack and storage maps can use it directly without
// wrapper-type indirection in the hot path.
type Word = uint256.Int

// CodeHash is the Keccak256 content hash of a contract's bytecode. The zero
// CodeHash means "no code" (see Account).
type CodeHash = Hash

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// BytesToAddress converts bytes to Address, left-padding if shorter than 20 bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string to Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the hex string representation of the address.
func (a Address) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// SetBytes sets the address from a byte slice.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero returns whether the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// Account is the tuple the state store keeps per address. An account is an
// EOA iff CodeHash is the zero hash AND DelegatedAddress is nil; only an EOA
// may carry a DelegatedAddress (EIP-7702).
type Account struct {
	Balance          Word
	Nonce            uint64
	CodeHash         CodeHash
	StorageRoot      Hash
	DelegatedAddress *Address
}

// NewAccount returns a fresh, empty account (zero balance, no code).
func NewAccount() Account {
	return Account{
		StorageRoot: EmptyRootHash,
	}
}

// IsEOA reports whether the account has no contract code and no delegation.
func (a Account) IsEOA() bool {
	return a.CodeHash.IsZero() && a.DelegatedAddress == nil
}

// Empty reports whether the account is "empty" per EIP-161: zero nonce, zero
// balance, and no code.
func (a Account) Empty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && (a.CodeHash.IsZero() || a.CodeHash == EmptyCodeHash)
}

// Log is the record emitted by LOG0..LOG4: an address, 0-4 indexed topics,
// and an opaque data payload.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

var (
	// EmptyRootHash is the placeholder storage root for an account with no
	// storage. State-root (Merkle trie) computation is out of scope for this
	// core; any constant placeholder is conformant.
	EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyCodeHash is keccak256 of the empty byte string: the CodeHash of
	// any account whose code was explicitly set to empty. A fresh account
	// (NewAccount) carries the zero CodeHash instead; Account.Empty treats
	// both as "no code".
	EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
)

// fromHex decodes a hex string, stripping an optional "0x" prefix.
func fromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
