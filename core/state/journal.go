package state

import (
	"github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/crypto"
	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// JournalEntry is the tagged-union member of the reversible mutation log
// (§3 JournalEntry, §4.8). Each concrete entry knows how to undo itself;
// reverting a checkpoint walks entries back-to-front within that
// checkpoint's range, mirroring the teacher's state/state_journal.go
// Revert(statedb) contract.
type JournalEntry interface {
	revert(js *JournaledState)
}

type entryAccountLoaded struct{ addr types.Address }

func (e entryAccountLoaded) revert(js *JournaledState) { delete(js.state, e.addr) }

type entryAccountTouched struct{ addr types.Address }

func (e entryAccountTouched) revert(js *JournaledState) {
	if acc, ok := js.state[e.addr]; ok {
		acc.Status &^= StatusTouched
	}
}

type entryAccountCreated struct{ addr types.Address }

func (e entryAccountCreated) revert(js *JournaledState) {
	if acc, ok := js.state[e.addr]; ok {
		acc.Status &^= StatusCreated
		acc.Info = AccountInfo{}
		acc.Storage = make(map[uint256.Int]*StorageSlot)
	}
}

// entryAccountDestroyed records a SELFDESTRUCT. createdInSameTx (EIP-6780)
// distinguishes "contract created and destroyed in the same tx" (code and
// storage really are wiped) from "destroyed only" (post-Cancun, only the
// balance moves; code/storage survive until the account is later deleted by
// outside state-clearing).
type entryAccountDestroyed struct {
	addr                 types.Address
	target               types.Address
	hadBalance           uint256.Int
	wasAlreadyDestructed bool
	createdInSameTx      bool
}

func (e entryAccountDestroyed) revert(js *JournaledState) {
	acc, ok := js.state[e.addr]
	if !ok {
		return
	}
	if !e.wasAlreadyDestructed {
		acc.Status &^= StatusSelfDestructed
	}
	if e.target != e.addr {
		acc.Info.Balance.Add(&acc.Info.Balance, &e.hadBalance)
		if tgt, ok := js.state[e.target]; ok {
			tgt.Info.Balance.Sub(&tgt.Info.Balance, &e.hadBalance)
		}
	}
}

type entryBalanceTransfer struct {
	from, to types.Address
	amount   uint256.Int
}

func (e entryBalanceTransfer) revert(js *JournaledState) {
	if acc, ok := js.state[e.from]; ok {
		acc.Info.Balance.Add(&acc.Info.Balance, &e.amount)
	}
	if acc, ok := js.state[e.to]; ok {
		acc.Info.Balance.Sub(&acc.Info.Balance, &e.amount)
	}
}

type entryNonceChange struct {
	addr types.Address
	old  uint64
}

func (e entryNonceChange) revert(js *JournaledState) {
	if acc, ok := js.state[e.addr]; ok {
		acc.Info.Nonce = e.old
	}
}

type entryCodeChange struct {
	addr        types.Address
	oldCode     *vm.Bytecode
	oldCodeHash types.Hash
}

func (e entryCodeChange) revert(js *JournaledState) {
	if acc, ok := js.state[e.addr]; ok {
		acc.Info.Code = e.oldCode
		acc.Info.CodeHash = e.oldCodeHash
	}
}

type entryStorageChange struct {
	addr        types.Address
	key         uint256.Int
	hadOriginal bool
	old         uint256.Int
}

func (e entryStorageChange) revert(js *JournaledState) {
	acc, ok := js.state[e.addr]
	if !ok {
		return
	}
	if !e.hadOriginal {
		delete(acc.Storage, e.key)
		return
	}
	acc.Storage[e.key].Present = e.old
}

type entryTransientStorageChange struct {
	addr types.Address
	key  uint256.Int
	old  uint256.Int
}

func (e entryTransientStorageChange) revert(js *JournaledState) {
	slots := js.transientStorage[e.addr]
	if slots == nil {
		return
	}
	if e.old.IsZero() {
		delete(slots, e.key)
		return
	}
	slots[e.key] = e.old
}

type entryLog struct{}

func (e entryLog) revert(js *JournaledState) {
	js.logs = js.logs[:len(js.logs)-1]
}

type entryAddressWarmed struct{ addr types.Address }

func (e entryAddressWarmed) revert(js *JournaledState) { js.warmAddresses.Remove(e.addr) }

type storageKey struct {
	addr types.Address
	key  uint256.Int
}

type entrySlotWarmed struct{ k storageKey }

func (e entrySlotWarmed) revert(js *JournaledState) { js.warmSlots.Remove(e.k) }

// Checkpoint is the opaque mark returned by JournaledState.Checkpoint
// (§3 JournaledState, §4.8): a journal-stack depth plus a log-length, so a
// revert can both unwind journal entries and truncate logs emitted after
// the mark.
type Checkpoint struct {
	LogIndex     int
	JournalIndex int
}

// JournaledState is the per-transaction reversible state model (§3
// JournaledState). Depth tracks nesting for diagnostics only; checkpointing
// itself is done via the journal slice's length, not a separate counter,
// since every frame's first mutation after Checkpoint() naturally starts
// appending past the mark.
type JournaledState struct {
	spec    params.SpecId
	db      Database
	state   map[types.Address]*Account
	journal []JournalEntry

	transientStorage map[types.Address]map[uint256.Int]uint256.Int
	logs             []types.Log

	warmAddresses mapset.Set[types.Address]
	warmSlots     mapset.Set[storageKey]

	depth int
}

// New creates a JournaledState with the fork's mandatory warm set
// pre-populated (precompile addresses, per §3 invariant "warm set always
// ⊇ precompile addresses + coinbase (Shanghai+) + access list").
func New(spec params.SpecId, db Database, precompiles []types.Address) *JournaledState {
	js := &JournaledState{
		spec:             spec,
		db:               db,
		state:            make(map[types.Address]*Account),
		transientStorage: make(map[types.Address]map[uint256.Int]uint256.Int),
		warmAddresses:    mapset.NewSet[types.Address](),
		warmSlots:        mapset.NewSet[storageKey](),
	}
	for _, p := range precompiles {
		js.warmAddresses.Add(p)
	}
	return js
}

// Checkpoint returns a mark that CheckpointRevert can later unwind to.
func (js *JournaledState) Checkpoint() Checkpoint {
	js.depth++
	return Checkpoint{LogIndex: len(js.logs), JournalIndex: len(js.journal)}
}

// CheckpointCommit folds the current level into its parent: nothing to
// undo, entries simply stay in the journal for an outer revert to find.
func (js *JournaledState) CheckpointCommit() {
	js.depth--
}

// CheckpointRevert undoes every entry appended since cp, in reverse order,
// and truncates logs back to cp.LogIndex (§4.8, §8 invariant 3).
func (js *JournaledState) CheckpointRevert(cp Checkpoint) {
	for i := len(js.journal) - 1; i >= cp.JournalIndex; i-- {
		js.journal[i].revert(js)
	}
	js.journal = js.journal[:cp.JournalIndex]
	js.logs = js.logs[:cp.LogIndex]
	js.depth--
}

func (js *JournaledState) append(e JournalEntry) {
	js.journal = append(js.journal, e)
}

// LoadAccount loads addr from the database on first touch, recording an
// AccountLoaded entry so a revert can forget it again (matching the
// teacher's lazy state_object loading, but reversible).
func (js *JournaledState) LoadAccount(addr types.Address) (*Account, bool, error) {
	if acc, ok := js.state[addr]; ok {
		wasCold := js.warmAddresses.Add(addr)
		if wasCold {
			js.append(entryAddressWarmed{addr})
		}
		return acc, wasCold, nil
	}
	info, err := js.db.Basic(addr)
	if err != nil {
		return nil, false, err
	}
	var acc *Account
	if info == nil {
		acc = NewAccount(AccountInfo{})
		acc.Status = StatusLoadedAsNotExisting
	} else {
		acc = NewAccount(*info)
		acc.Status = StatusLoaded
	}
	js.state[addr] = acc
	js.append(entryAccountLoaded{addr})
	wasCold := js.warmAddresses.Add(addr)
	if wasCold {
		js.append(entryAddressWarmed{addr})
	}
	return acc, wasCold, nil
}

// IsAddressWarm reports whether addr has been accessed this tx, without
// mutating warmth (a pure check used by gas estimation before the charging
// access itself).
func (js *JournaledState) IsAddressWarm(addr types.Address) bool {
	return js.warmAddresses.Contains(addr)
}

// WarmAddress marks addr warm, returning true if it was cold (EIP-2929).
func (js *JournaledState) WarmAddress(addr types.Address) (wasCold bool) {
	wasCold = js.warmAddresses.Add(addr)
	if wasCold {
		js.append(entryAddressWarmed{addr})
	}
	return wasCold
}

// WarmSlot marks (addr,key) warm, returning true if it was cold.
func (js *JournaledState) WarmSlot(addr types.Address, key uint256.Int) (wasCold bool) {
	k := storageKey{addr, key}
	wasCold = js.warmSlots.Add(k)
	if wasCold {
		js.append(entrySlotWarmed{k})
	}
	return wasCold
}

// TouchAccount marks addr touched (EIP-161 bookkeeping, so empty accounts
// touched during execution are swept at tx end by the caller).
func (js *JournaledState) TouchAccount(addr types.Address) {
	acc := js.state[addr]
	if acc == nil || acc.Status.Has(StatusTouched) {
		return
	}
	js.append(entryAccountTouched{addr})
	acc.Status |= StatusTouched
}

// ResolveCode returns addr's code, lazily resolving it from the database by
// code hash on first access and caching the (possibly newly-analyzed)
// result on the account. This mirrors LoadAccount's lazy-fetch pattern but
// is not journaled: the resolved bytes are exactly what the database
// already holds, so there is nothing for a revert to undo.
func (js *JournaledState) ResolveCode(addr types.Address) (*vm.Bytecode, error) {
	acc := js.state[addr]
	if acc.Info.Code != nil {
		return acc.Info.Code, nil
	}
	if acc.Info.CodeHash == (types.Hash{}) || acc.Info.CodeHash == crypto.EmptyCodeHash {
		acc.Info.Code = vm.NewLegacyRawBytecode(nil)
		return acc.Info.Code, nil
	}
	code, err := js.db.CodeByHash(acc.Info.CodeHash)
	if err != nil {
		return nil, err
	}
	if code.Kind == vm.LegacyRaw {
		code = code.ToAnalysed()
	}
	acc.Info.Code = code
	return code, nil
}

// BlockHash delegates to the database, for the BLOCKHASH opcode and Host's
// own BlockHash method.
func (js *JournaledState) BlockHash(number uint64) (types.Hash, error) {
	return js.db.BlockHash(number)
}

// Balance returns addr's current balance (zero if never loaded).
func (js *JournaledState) Balance(addr types.Address) uint256.Int {
	if acc, ok := js.state[addr]; ok {
		return acc.Info.Balance
	}
	return uint256.Int{}
}

// TransferBalance moves amount from -> to, recording an entry that undoes
// the transfer symmetrically on revert. Caller must have already checked
// sufficient balance.
func (js *JournaledState) TransferBalance(from, to types.Address, amount *uint256.Int) {
	fromAcc, toAcc := js.state[from], js.state[to]
	fromAcc.Info.Balance.Sub(&fromAcc.Info.Balance, amount)
	toAcc.Info.Balance.Add(&toAcc.Info.Balance, amount)
	js.append(entryBalanceTransfer{from: from, to: to, amount: *amount})
	js.TouchAccount(to)
}

// IncrementNonce bumps addr's nonce by one (CREATE, and the tx sender at
// pre-execution), recording the prior value for revert.
func (js *JournaledState) IncrementNonce(addr types.Address) uint64 {
	acc := js.state[addr]
	old := acc.Info.Nonce
	acc.Info.Nonce++
	js.append(entryNonceChange{addr: addr, old: old})
	return old
}

// MarkCreated flags addr as freshly created this tx (used by CREATE/
// CREATE2/EOFCREATE before code is installed, and consulted by
// entryAccountDestroyed to decide EIP-6780's createdInSameTx nuance).
func (js *JournaledState) MarkCreated(addr types.Address) {
	acc := js.state[addr]
	acc.Status |= StatusCreated | StatusTouched
	js.append(entryAccountCreated{addr})
}

// WasCreatedThisTx reports whether addr was created earlier in the current
// transaction (EIP-6780 gate on SELFDESTRUCT's storage-wipe behavior).
func (js *JournaledState) WasCreatedThisTx(addr types.Address) bool {
	acc := js.state[addr]
	return acc != nil && acc.Status.Has(StatusCreated)
}

// SetCode installs code (and its hash) on addr, as the final step of a
// successful CREATE/CREATE2/EOFCREATE.
func (js *JournaledState) SetCode(addr types.Address, code *vm.Bytecode, hash types.Hash) {
	acc := js.state[addr]
	js.append(entryCodeChange{addr: addr, oldCode: acc.Info.Code, oldCodeHash: acc.Info.CodeHash})
	acc.Info.Code = code
	acc.Info.CodeHash = hash
}

// SLoad returns the slot's present value and whether it was cold before
// this access (§4.7 "(value, was_cold)").
func (js *JournaledState) SLoad(addr types.Address, key uint256.Int) (uint256.Int, bool, error) {
	acc := js.state[addr]
	wasCold := js.WarmSlot(addr, key)
	if slot, ok := acc.Storage[key]; ok {
		return slot.Present, wasCold, nil
	}
	val, err := js.db.Storage(addr, key)
	if err != nil {
		return uint256.Int{}, wasCold, err
	}
	acc.Storage[key] = &StorageSlot{Original: val, Present: val}
	// Journaled so a revert drops the cached slot again.
	js.append(entryStorageChange{addr: addr, key: key, hadOriginal: false})
	return val, wasCold, nil
}

// OriginalStorage returns the slot's value as of the start of the
// transaction, if the slot has been touched at all this tx.
func (js *JournaledState) OriginalStorage(addr types.Address, key uint256.Int) (uint256.Int, bool) {
	acc := js.state[addr]
	if acc == nil {
		return uint256.Int{}, false
	}
	slot, ok := acc.Storage[key]
	if !ok {
		return uint256.Int{}, false
	}
	return slot.Original, true
}

// SStore writes a new value to a storage slot, recording the slot's
// pre-write present value for revert (§3 StorageChange{had,key,old}).
func (js *JournaledState) SStore(addr types.Address, key, value uint256.Int) error {
	acc := js.state[addr]
	slot, had := acc.Storage[key]
	var old uint256.Int
	if !had {
		orig, err := js.db.Storage(addr, key)
		if err != nil {
			return err
		}
		slot = &StorageSlot{Original: orig, Present: orig}
		acc.Storage[key] = slot
	}
	old = slot.Present
	slot.Present = value
	js.append(entryStorageChange{addr: addr, key: key, hadOriginal: had, old: old})
	return nil
}

// TLoad/TStore implement EIP-1153 transient storage: a plain in-memory map
// with no database fallback. Finalize does not clear it: it lives as long as
// the JournaledState, which Transact builds fresh for every transaction.
func (js *JournaledState) TLoad(addr types.Address, key uint256.Int) uint256.Int {
	return js.transientStorage[addr][key]
}

func (js *JournaledState) TStore(addr types.Address, key, value uint256.Int) {
	slots := js.transientStorage[addr]
	if slots == nil {
		slots = make(map[uint256.Int]uint256.Int)
		js.transientStorage[addr] = slots
	}
	old := slots[key]
	slots[key] = value
	js.append(entryTransientStorageChange{addr: addr, key: key, old: old})
}

// AddLog appends a log record, recording an entry so a revert pops it.
func (js *JournaledState) AddLog(log types.Log) {
	js.logs = append(js.logs, log)
	js.append(entryLog{})
}

// SelfDestruct marks addr destroyed and moves its balance to target,
// recording EIP-6780's createdInSameTx flag alongside the reversible
// balance move.
func (js *JournaledState) SelfDestruct(addr, target types.Address) {
	acc := js.state[addr]
	alreadyDestructed := acc.Status.Has(StatusSelfDestructed)
	bal := acc.Info.Balance
	js.append(entryAccountDestroyed{
		addr:                 addr,
		target:               target,
		hadBalance:           bal,
		wasAlreadyDestructed: alreadyDestructed,
		createdInSameTx:      js.WasCreatedThisTx(addr),
	})
	if target != addr {
		if tgt, ok := js.state[target]; ok {
			tgt.Info.Balance.Add(&tgt.Info.Balance, &bal)
		}
		acc.Info.Balance = uint256.Int{}
	}
	acc.Status |= StatusSelfDestructed | StatusTouched
}

// StateDiff is the finalized set of touched accounts (§4.8 "finalize()"),
// ready for a Database to commit.
type StateDiff struct {
	Accounts map[types.Address]*Account
	Logs     []types.Log
}

// Finalize sweeps self-destructed accounts, then returns the accumulated
// diff and logs and empties the journal (it does not clear js.state —
// callers needing a fresh JournaledState for the next tx should construct a
// new one). The sweep implements EIP-6780: post-Cancun, only an account
// both created and destroyed in the same transaction is removed outright;
// a pre-existing account that ran SELFDESTRUCT keeps its code and storage
// (its balance already moved at destruct time). Pre-Cancun, every
// destructed account is removed. Reverted destructs never reach the sweep:
// CheckpointRevert truncates their journal entries away.
func (js *JournaledState) Finalize() StateDiff {
	cancun := js.spec.IsEnabledIn(params.CANCUN)
	for _, e := range js.journal {
		d, ok := e.(entryAccountDestroyed)
		if !ok {
			continue
		}
		acc := js.state[d.addr]
		if acc == nil || !acc.Status.Has(StatusSelfDestructed) {
			continue
		}
		if !cancun || d.createdInSameTx {
			delete(js.state, d.addr)
		}
	}
	diff := StateDiff{Accounts: js.state, Logs: js.logs}
	js.journal = nil
	js.logs = nil
	return diff
}

func (js *JournaledState) Depth() int { return js.depth }
func (js *JournaledState) Spec() params.SpecId { return js.spec }
