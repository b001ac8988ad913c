package vm

import "github.com/evmts/voltaire-sub004/core/types"

// Memory is the frame's byte-addressable scratch space. It grows on demand
// to the smallest 32-byte-aligned size sufficient to contain any accessed
// byte. Growth beyond the configured limit fails with
// ErrMemoryLimitExceeded.
type Memory struct {
	store       []byte
	limit       uint64
	lastGasCost uint64
}

// NewMemory returns an empty Memory bounded by limit bytes.
func NewMemory(limit uint64) *Memory {
	return &Memory{limit: limit}
}

// Len returns the current size of memory in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Data returns the underlying byte slice. Callers must not retain it across
// a subsequent Resize.
func (m *Memory) Data() []byte { return m.store }

// wordCount returns the number of 32-byte words needed to hold size bytes.
func wordCount(size uint64) uint64 {
	return (size + 31) / 32
}

// MemoryGasCost computes the total quadratic-expansion gas cost of growing
// memory to newSize bytes, per the well-known EVM formula:
//
//	cost(words) = 3*words + words*words/512
//
// The caller is responsible for charging only the delta versus the
// previously charged cost (tracked in lastGasCost).
func MemoryGasCost(newSize uint64) uint64 {
	words := wordCount(newSize)
	linear := words * GasMemory
	quadratic := (words * words) / 512
	return linear + quadratic
}

// ExpansionGas returns the additional gas required to grow memory to
// newSize bytes (0 if newSize does not exceed the current size), and
// whether newSize would exceed the configured memory limit.
func (m *Memory) ExpansionGas(newSize uint64) (gas uint64, exceedsLimit bool) {
	if newSize <= uint64(len(m.store)) {
		return 0, false
	}
	if m.limit > 0 && newSize > m.limit {
		return 0, true
	}
	rounded := wordCount(newSize) * 32
	total := MemoryGasCost(rounded)
	delta := total - m.lastGasCost
	return delta, false
}

// Resize grows memory to newSize bytes (rounded up to a 32-byte word),
// zero-filling the new region. It does not charge gas; call ExpansionGas
// first and charge the frame's gas counter.
func (m *Memory) Resize(newSize uint64) {
	if newSize <= uint64(len(m.store)) {
		return
	}
	rounded := wordCount(newSize) * 32
	if rounded > uint64(cap(m.store)) {
		grown := make([]byte, rounded)
		copy(grown, m.store)
		m.store = grown
	} else {
		m.store = m.store[:rounded]
	}
	m.lastGasCost = MemoryGasCost(rounded)
}

// Set writes data into memory starting at offset. The caller must have
// already resized memory to cover [offset, offset+len(data)).
func (m *Memory) Set(offset, size uint64, data []byte) {
	if size == 0 {
		return
	}
	copy(m.store[offset:offset+size], data)
}

// Set32 writes a Word to memory at offset, big-endian, as 32 bytes.
func (m *Memory) Set32(offset uint64, val *types.Word) {
	b := val.Bytes32()
	copy(m.store[offset:offset+32], b[:])
}

// Get returns a copy of size bytes starting at offset. Reads past the end
// of allocated memory return zero bytes (memory is conceptually infinite
// and zero-filled; only writes force growth).
func (m *Memory) Get(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	if offset >= int64(len(m.store)) {
		return out
	}
	copy(out, m.store[offset:])
	return out
}

// GetPtr returns a slice view (not a copy) of size bytes starting at
// offset. The caller must not hold onto it across a subsequent Resize.
func (m *Memory) GetPtr(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}
