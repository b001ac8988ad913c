// Package state implements the journaled, in-memory state store: accounts, storage, transient storage, and content-addressed code,
// with snapshot/revert support for nested call rollback.
package state

import "github.com/evmts/voltaire-sub004/core/types"

// entry is one revertible journal record. Each variant knows
// how to undo itself against a Store; Store never inspects entry contents
// directly, only calls revert.
type entry interface {
	revert(s *Store)
}

// journal is an append-only log of state-change records. Each snapshot id
// maps to the journal length at the moment it was taken; revert pops
// entries from the tail back to that length, applying each entry's
// pre-change value back to the live state -- reverting in reverse order is
// what makes it a true inverse of the writes it undoes.
type journal struct {
	entries   []entry
	snapshots map[int]int // snapshot id -> entries index at creation time
	nextID    int
}

func newJournal() *journal {
	return &journal{snapshots: make(map[int]int)}
}

func (j *journal) append(e entry) {
	j.entries = append(j.entries, e)
}

// snapshot records the current journal length under a fresh, monotonically
// increasing id.
func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.snapshots[id] = len(j.entries)
	return id
}

// revertToSnapshot undoes every entry appended since id was created, in
// reverse order, then forgets id and every snapshot taken after it (they
// no longer name a valid position once their tail has been discarded).
func (j *journal) revertToSnapshot(id int, s *Store) (ok bool) {
	idx, ok := j.snapshots[id]
	if !ok {
		return false
	}
	for i := len(j.entries) - 1; i >= idx; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:idx]
	for sid := range j.snapshots {
		if sid >= id {
			delete(j.snapshots, sid)
		}
	}
	return true
}

// --- Concrete entries ---

type accountCreatedEntry struct {
	addr types.Address
	prev *types.Account // nil if no account existed before
}

func (e accountCreatedEntry) revert(s *Store) {
	if e.prev == nil {
		delete(s.accounts, e.addr)
	} else {
		s.accounts[e.addr] = e.prev
	}
}

type balanceChangeEntry struct {
	addr types.Address
	prev types.Word
}

func (e balanceChangeEntry) revert(s *Store) {
	if a := s.accounts[e.addr]; a != nil {
		a.Balance.Set(&e.prev)
	}
}

type nonceChangeEntry struct {
	addr types.Address
	prev uint64
}

func (e nonceChangeEntry) revert(s *Store) {
	if a := s.accounts[e.addr]; a != nil {
		a.Nonce = e.prev
	}
}

type codeChangeEntry struct {
	addr types.Address
	prev types.CodeHash
}

func (e codeChangeEntry) revert(s *Store) {
	if a := s.accounts[e.addr]; a != nil {
		a.CodeHash = e.prev
	}
}

type delegationChangeEntry struct {
	addr types.Address
	prev *types.Address
}

func (e delegationChangeEntry) revert(s *Store) {
	if a := s.accounts[e.addr]; a != nil {
		a.DelegatedAddress = e.prev
	}
}

// storageChangeEntry records the pre-write value of one (address, key)
// storage cell, and whether the cell had a recorded value at all (absence
// means "zero").
type storageChangeEntry struct {
	addr    types.Address
	key     types.Word
	prev    types.Word
	existed bool
}

func (e storageChangeEntry) revert(s *Store) {
	slots := s.dirtyStorage[e.addr]
	if slots == nil {
		return
	}
	if e.existed {
		slots[e.key] = e.prev
	} else {
		delete(slots, e.key)
	}
}

type transientChangeEntry struct {
	addr    types.Address
	key     types.Word
	prev    types.Word
	existed bool
}

func (e transientChangeEntry) revert(s *Store) {
	slots := s.transient[e.addr]
	if slots == nil {
		return
	}
	if e.existed {
		slots[e.key] = e.prev
	} else {
		delete(slots, e.key)
	}
}

// accountDestroyedEntry undoes a pending SELFDESTRUCT: it clears the
// pending-destruction mark and debits the beneficiary by the transferred
// balance. The balance transfer itself is journaled separately by
// Store.Transfer; those entries sit before this one, so they are reverted
// after it and restore both balances to their exact pre-destruct values.
type accountDestroyedEntry struct {
	addr              types.Address
	beneficiary       types.Address
	balanceAtDestruct types.Word
	wasPending        bool
}

func (e accountDestroyedEntry) revert(s *Store) {
	delete(s.pendingDestruction, e.addr)
	if b := s.accounts[e.beneficiary]; b != nil {
		b.Balance.Sub(&b.Balance, &e.balanceAtDestruct)
	}
}

type accessListAddressEntry struct {
	addr types.Address
}

func (e accessListAddressEntry) revert(s *Store) {
	s.accessList.deleteAddress(e.addr)
}

type accessListSlotEntry struct {
	addr types.Address
	key  types.Word
}

func (e accessListSlotEntry) revert(s *Store) {
	s.accessList.deleteSlot(e.addr, e.key)
}

type refundChangeEntry struct {
	prev uint64
}

func (e refundChangeEntry) revert(s *Store) {
	s.refund = e.prev
}

type logEntry struct {
	prevLen int
}

func (e logEntry) revert(s *Store) {
	s.logs = s.logs[:e.prevLen]
}
