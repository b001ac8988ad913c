package state

import (
	"github.com/evmts/voltaire-sub004/core/types"
	"github.com/evmts/voltaire-sub004/core/vm"
	"github.com/evmts/voltaire-sub004/crypto"
)

// maxDelegationDepth bounds EIP-7702 delegation resolution: code lookup through delegation must terminate in O(1) and
// cannot infinite-loop even on a maliciously constructed delegation cycle.
const maxDelegationDepth = 4

// Store is the in-memory, journaled state store: accounts,
// per-address storage and transient storage, content-addressed code, the
// EIP-2929 access list, the EIP-3529 refund counter, and the pending log
// buffer, all wrapped by one journal so every mutation is revertible to a
// prior snapshot, with these concerns combined into one type rather than
// threading a separate journal object through every call site.
type Store struct {
	accounts map[types.Address]*types.Account

	// Storage is split into dirty (written this transaction) and committed
	// (as of the start of the current transaction) per address: GetStorage
	// reads dirty-over-committed, GetCommittedStorage reads committed only (the
	// "original value" SSTORE's net-gas formula needs), and FinalizeTransaction
	// flushes dirty into committed at the end of each transaction.
	dirtyStorage     map[types.Address]map[types.Word]types.Word
	committedStorage map[types.Address]map[types.Word]types.Word

	transient map[types.Address]map[types.Word]types.Word
	code      map[types.CodeHash][]byte

	journal    *journal
	accessList *accessList
	refund     uint64
	logs       []types.Log

	// pendingDestruction and createdThisTx back SELFDESTRUCT's EIP-6780
	// semantics: full deletion only applies to accounts created within the
	// current transaction.
	pendingDestruction map[types.Address]types.Address // addr -> beneficiary
	createdThisTx      map[types.Address]bool
}

// NewStore returns an empty state store.
func NewStore() *Store {
	return &Store{
		accounts:           make(map[types.Address]*types.Account),
		dirtyStorage:       make(map[types.Address]map[types.Word]types.Word),
		committedStorage:   make(map[types.Address]map[types.Word]types.Word),
		transient:          make(map[types.Address]map[types.Word]types.Word),
		code:               make(map[types.CodeHash][]byte),
		journal:            newJournal(),
		accessList:         newAccessList(),
		pendingDestruction: make(map[types.Address]types.Address),
		createdThisTx:      make(map[types.Address]bool),
	}
}

// --- Accounts ---

// GetAccount returns a copy of the account at addr, and whether it exists.
func (s *Store) GetAccount(addr types.Address) (types.Account, bool) {
	a := s.accounts[addr]
	if a == nil {
		return types.Account{}, false
	}
	return *a, true
}

// AccountExists reports whether addr has ever been written.
func (s *Store) AccountExists(addr types.Address) bool {
	return s.accounts[addr] != nil
}

// AccountEmpty reports EIP-161 emptiness: zero nonce, zero balance, no code.
func (s *Store) AccountEmpty(addr types.Address) bool {
	a := s.accounts[addr]
	if a == nil {
		return true
	}
	return a.Empty()
}

// SetAccount creates or overwrites the account at addr. created controls whether this account is tracked as
// created-within-the-current-transaction for EIP-6780 purposes; callers
// implementing CREATE/CREATE2 pass true.
func (s *Store) SetAccount(addr types.Address, acct types.Account, created bool) {
	prev := s.accounts[addr]
	var prevCopy *types.Account
	if prev != nil {
		c := *prev
		prevCopy = &c
	}
	s.journal.append(accountCreatedEntry{addr: addr, prev: prevCopy})
	cp := acct
	s.accounts[addr] = &cp
	if created {
		s.createdThisTx[addr] = true
	}
}

// DeleteAccount removes addr entirely, journaling the removal as an
// accountCreatedEntry that holds the prior account so a revert restores it.
// The journal's own revert of account creation deletes from the account map
// directly and does not go through this method.
func (s *Store) DeleteAccount(addr types.Address) {
	prev := s.accounts[addr]
	if prev == nil {
		return
	}
	c := *prev
	s.journal.append(accountCreatedEntry{addr: addr, prev: &c})
	delete(s.accounts, addr)
}

func (s *Store) getOrCreate(addr types.Address) *types.Account {
	if a := s.accounts[addr]; a != nil {
		return a
	}
	a := types.NewAccount()
	s.journal.append(accountCreatedEntry{addr: addr, prev: nil})
	obj := &a
	s.accounts[addr] = obj
	return obj
}

// --- Balance ---

// GetBalance returns addr's balance, or zero if the account does not exist.
func (s *Store) GetBalance(addr types.Address) types.Word {
	if a := s.accounts[addr]; a != nil {
		var w types.Word
		w.Set(&a.Balance)
		return w
	}
	return types.Word{}
}

// AddBalance credits amount to addr, creating the account if necessary.
func (s *Store) AddBalance(addr types.Address, amount *types.Word) {
	a := s.getOrCreate(addr)
	s.journal.append(balanceChangeEntry{addr: addr, prev: a.Balance})
	a.Balance.Add(&a.Balance, amount)
}

// SubBalance debits amount from addr. Callers are responsible for checking
// sufficient balance before calling (the store does not reject negative
// results; it is a dumb ledger).
func (s *Store) SubBalance(addr types.Address, amount *types.Word) {
	a := s.getOrCreate(addr)
	s.journal.append(balanceChangeEntry{addr: addr, prev: a.Balance})
	a.Balance.Sub(&a.Balance, amount)
}

// Transfer moves amount from -> to, journaled as two balance changes.
func (s *Store) Transfer(from, to types.Address, amount *types.Word) {
	s.SubBalance(from, amount)
	s.AddBalance(to, amount)
}

// --- Nonce ---

func (s *Store) GetNonce(addr types.Address) uint64 {
	if a := s.accounts[addr]; a != nil {
		return a.Nonce
	}
	return 0
}

func (s *Store) SetNonce(addr types.Address, nonce uint64) {
	a := s.getOrCreate(addr)
	s.journal.append(nonceChangeEntry{addr: addr, prev: a.Nonce})
	a.Nonce = nonce
}

// IncrementNonce bumps addr's nonce by one (CREATE's caller-nonce rule).
func (s *Store) IncrementNonce(addr types.Address) uint64 {
	a := s.getOrCreate(addr)
	s.journal.append(nonceChangeEntry{addr: addr, prev: a.Nonce})
	a.Nonce++
	return a.Nonce
}

// --- Code (content-addressed) ---

// SetCode stores code under its Keccak256 hash, idempotently, and returns
// the hash. The hash is what an account's CodeHash field points at; code
// bytes themselves are never journaled per-account because the code table
// is append-only and content-addressed (writing the same code twice is a
// no-op on the table, so there is nothing to revert there -- only the
// account's CodeHash field, via SetAccountCode, is journaled).
func (s *Store) SetCode(code []byte) types.CodeHash {
	h := types.BytesToHash(crypto.Keccak256(code))
	if _, ok := s.code[h]; !ok {
		cp := make([]byte, len(code))
		copy(cp, code)
		s.code[h] = cp
	}
	return h
}

// GetCodeByHash returns the code for hash, or (nil, false) if not present.
func (s *Store) GetCodeByHash(h types.CodeHash) ([]byte, bool) {
	c, ok := s.code[h]
	return c, ok
}

// SetAccountCode stores code and points addr's account at its hash,
// creating the account if necessary. This is the operation CREATE/CREATE2
// use once the callee's init code returns its deployed code.
func (s *Store) SetAccountCode(addr types.Address, code []byte) types.CodeHash {
	h := s.SetCode(code)
	a := s.getOrCreate(addr)
	s.journal.append(codeChangeEntry{addr: addr, prev: a.CodeHash})
	a.CodeHash = h
	return h
}

// GetCodeByAddress returns addr's code, resolving EIP-7702 delegation: if
// the account delegates to another address, recursion follows
// DelegatedAddress up to maxDelegationDepth hops, short-circuiting on a
// repeated address to guarantee termination regardless of
// how the delegation graph was constructed.
func (s *Store) GetCodeByAddress(addr types.Address) []byte {
	cur := addr
	seen := make(map[types.Address]bool, maxDelegationDepth)
	for i := 0; i < maxDelegationDepth; i++ {
		a := s.accounts[cur]
		if a == nil {
			return nil
		}
		if a.DelegatedAddress == nil {
			code, _ := s.code[a.CodeHash]
			return code
		}
		if seen[cur] {
			return nil
		}
		seen[cur] = true
		cur = *a.DelegatedAddress
	}
	return nil
}

// GetCodeSize returns the length of addr's own (unresolved) code -- the
// EXTCODESIZE-relevant view, not the delegation-resolved one CALL uses.
func (s *Store) GetCodeSize(addr types.Address) int {
	a := s.accounts[addr]
	if a == nil {
		return 0
	}
	code, _ := s.code[a.CodeHash]
	return len(code)
}

// GetCodeHash returns addr's own CodeHash, or EmptyCodeHash for an
// existing account that carries none (matching Account.Empty's notion of
// "no code"), or the zero hash if addr has never been written.
func (s *Store) GetCodeHash(addr types.Address) types.CodeHash {
	a := s.accounts[addr]
	if a == nil {
		return types.CodeHash{}
	}
	if a.CodeHash.IsZero() {
		return types.EmptyCodeHash
	}
	return a.CodeHash
}

// DelegationTarget returns addr's one-hop EIP-7702 delegation target, if
// any. Unlike GetCodeByAddress this does not follow the chain further --
// callers needing the delegation designator (EXTCODE* opcodes) only ever
// need the immediate target, not the fully resolved code.
func (s *Store) DelegationTarget(addr types.Address) (types.Address, bool) {
	a := s.accounts[addr]
	if a == nil || a.DelegatedAddress == nil {
		return types.Address{}, false
	}
	return *a.DelegatedAddress, true
}

// --- EIP-7702 delegation ---

// SetDelegation designates target as the code EOA will execute as.
// Requires eoa to currently have no code: a contract account may
// not additionally carry a delegation.
func (s *Store) SetDelegation(eoa, target types.Address) error {
	a := s.getOrCreate(eoa)
	if !a.CodeHash.IsZero() {
		return vm.ErrInvalidAddress
	}
	prev := a.DelegatedAddress
	s.journal.append(delegationChangeEntry{addr: eoa, prev: prev})
	t := target
	a.DelegatedAddress = &t
	return nil
}

func (s *Store) ClearDelegation(eoa types.Address) {
	a := s.getOrCreate(eoa)
	if a.DelegatedAddress == nil {
		return
	}
	prev := a.DelegatedAddress
	s.journal.append(delegationChangeEntry{addr: eoa, prev: prev})
	a.DelegatedAddress = nil
}

func (s *Store) HasDelegation(addr types.Address) bool {
	a := s.accounts[addr]
	return a != nil && a.DelegatedAddress != nil
}

// --- Storage ---

// GetStorage returns addr's value at key: the dirty (this-transaction)
// value if one was written, else the committed value, else zero.
func (s *Store) GetStorage(addr types.Address, key types.Word) types.Word {
	if v, ok := s.dirtyStorage[addr][key]; ok {
		return v
	}
	return s.committedStorage[addr][key]
}

// SetStorage writes value at (addr, key) into the dirty map. A value equal
// to the committed value removes the dirty entry instead -- this is
// purely a memory-footprint optimization; GetStorage already treats
// absence in dirty as "fall through to committed", not as a forced zero,
// so a zero-valued dirty write still needs its own entry when the
// committed value is non-zero. It therefore stores an explicit zero
// rather than deleting when committed holds something else, and only
// deletes the dirty entry outright when doing so would not change what
// GetStorage reports.
func (s *Store) SetStorage(addr types.Address, key, value types.Word) {
	slots := s.dirtyStorage[addr]
	prev, existed := slots[key]
	s.journal.append(storageChangeEntry{addr: addr, key: key, prev: prev, existed: existed})
	committed := s.committedStorage[addr][key]
	if value.Eq(&committed) {
		if existed {
			delete(slots, key)
		}
		return
	}
	if slots == nil {
		slots = make(map[types.Word]types.Word)
		s.dirtyStorage[addr] = slots
	}
	slots[key] = value
}

// GetCommittedStorage returns addr's value at key as of the start of the
// current transaction -- the "original value" SSTORE's EIP-2200/3529
// net-gas formula compares against. It is flushed from dirty
// storage by FinalizeTransaction, folding this transaction's writes into
// the committed baseline.
func (s *Store) GetCommittedStorage(addr types.Address, key types.Word) types.Word {
	return s.committedStorage[addr][key]
}

// --- Transient storage ---

func (s *Store) GetTransientStorage(addr types.Address, key types.Word) types.Word {
	return s.transient[addr][key]
}

func (s *Store) SetTransientStorage(addr types.Address, key, value types.Word) {
	slots := s.transient[addr]
	prev, existed := slots[key]
	s.journal.append(transientChangeEntry{addr: addr, key: key, prev: prev, existed: existed})
	if value.IsZero() {
		if existed {
			delete(slots, key)
		}
		return
	}
	if slots == nil {
		slots = make(map[types.Word]types.Word)
		s.transient[addr] = slots
	}
	slots[key] = value
}

// ClearTransientStorage wipes all transient storage unconditionally. Unlike
// every other mutation here, this is not journaled -- it is a transaction
// boundary operation, not a frame-local one; it is the transaction driver's
// job to call it exactly once per transaction, after the last snapshot of
// that transaction has either committed or reverted.
func (s *Store) ClearTransientStorage() {
	s.transient = make(map[types.Address]map[types.Word]types.Word)
}

// --- Access list (EIP-2929) ---

func (s *Store) AddressInAccessList(addr types.Address) bool {
	return s.accessList.containsAddress(addr)
}

func (s *Store) SlotInAccessList(addr types.Address, key types.Word) (addrOk, slotOk bool) {
	return s.accessList.containsSlot(addr, key)
}

func (s *Store) AddAddressToAccessList(addr types.Address) (alreadyWarm bool) {
	if s.accessList.addAddress(addr) {
		return true
	}
	s.journal.append(accessListAddressEntry{addr: addr})
	return false
}

func (s *Store) AddSlotToAccessList(addr types.Address, key types.Word) (addrWarm, slotWarm bool) {
	addrPresent, slotPresent := s.accessList.addSlot(addr, key)
	if !addrPresent {
		s.journal.append(accessListAddressEntry{addr: addr})
	}
	if !slotPresent {
		s.journal.append(accessListSlotEntry{addr: addr, key: key})
	}
	return addrPresent, slotPresent
}

// --- Refund counter (EIP-3529) ---

func (s *Store) AddRefund(amount uint64) {
	s.journal.append(refundChangeEntry{prev: s.refund})
	s.refund += amount
}

func (s *Store) SubRefund(amount uint64) {
	s.journal.append(refundChangeEntry{prev: s.refund})
	if amount > s.refund {
		s.refund = 0
		return
	}
	s.refund -= amount
}

func (s *Store) GetRefund() uint64 { return s.refund }

// --- Logs ---

func (s *Store) AddLog(log types.Log) {
	s.journal.append(logEntry{prevLen: len(s.logs)})
	s.logs = append(s.logs, log)
}

func (s *Store) Logs() []types.Log { return s.logs }

// --- Self-destruct (EIP-6780) ---

// MarkForDestruction transfers contract's entire balance to beneficiary
// immediately and records a pending destruction. Full account deletion
// happens only at FinalizeTransaction, and only if contract was created
// earlier in the same transaction (EIP-6780); otherwise only the balance
// transfer survives.
func (s *Store) MarkForDestruction(contract, beneficiary types.Address) {
	bal := s.GetBalance(contract)
	if !bal.IsZero() {
		s.Transfer(contract, beneficiary, &bal)
	}
	s.journal.append(accountDestroyedEntry{
		addr:              contract,
		beneficiary:       beneficiary,
		balanceAtDestruct: bal,
	})
	s.pendingDestruction[contract] = beneficiary
	logger.Debug("marked for destruction", "contract", contract, "beneficiary", beneficiary)
}

// CreatedThisTx reports whether addr was created (via SetAccount(...,
// created=true)) during the current transaction -- the condition EIP-6780
// gates full SELFDESTRUCT deletion on.
func (s *Store) CreatedThisTx(addr types.Address) bool {
	return s.createdThisTx[addr]
}

// FinalizeTransaction applies every pending SELFDESTRUCT that targeted a
// same-transaction creation (deleting those accounts outright) and clears
// per-transaction bookkeeping: transient storage, the created-this-tx set,
// and the pending-destruction list. Transaction-level orchestration is out
// of this core's scope, but something has to call this exactly once
// at transaction end, after the final snapshot of the transaction has
// resolved -- the embedder's transaction driver does so.
func (s *Store) FinalizeTransaction() {
	destroyed := 0
	for addr := range s.pendingDestruction {
		if s.createdThisTx[addr] {
			delete(s.accounts, addr)
			delete(s.dirtyStorage, addr)
			delete(s.committedStorage, addr)
			destroyed++
		}
	}
	s.pendingDestruction = make(map[types.Address]types.Address)
	s.createdThisTx = make(map[types.Address]bool)
	s.flushStorage()
	s.ClearTransientStorage()
	logger.Debug("transaction finalized", "accountsDestroyed", destroyed)
}

// flushStorage folds dirty storage into committed storage for every
// address, so the next transaction's GetCommittedStorage calls see this
// transaction's writes as their baseline.
func (s *Store) flushStorage() {
	for addr, dirty := range s.dirtyStorage {
		committed := s.committedStorage[addr]
		if committed == nil {
			committed = make(map[types.Word]types.Word)
			s.committedStorage[addr] = committed
		}
		for key, val := range dirty {
			committed[key] = val
		}
	}
	s.dirtyStorage = make(map[types.Address]map[types.Word]types.Word)
}

// --- Snapshot / revert ---

func (s *Store) Snapshot() int {
	return s.journal.snapshot()
}

// RevertToSnapshot undoes every state change recorded since id was
// created. Reverting transient-storage writes is handled the same way as
// any other journal entry (transientChangeEntry): transient storage
// participates in snapshot rollback through the same mechanism as
// persistent storage, on top of the separate transaction-end clear in
// FinalizeTransaction.
func (s *Store) RevertToSnapshot(id int) {
	s.journal.revertToSnapshot(id, s)
	logger.Debug("reverted to snapshot", "id", id)
}
