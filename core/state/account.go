// Package state implements the journaled world-state model (§3, §4.8):
// accounts, storage slots, and the checkpoint/revert log that backs nested
// call/create semantics.
package state

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/crypto"
	"github.com/baron-chain/baron-evm/types"
)

// AccountStatus tracks the per-tx flags a journaled Account carries (§3
// Account). These are independent bits, not a state machine, mirroring the
// teacher's state/state_object.go dirty-flag fields.
type AccountStatus uint8

const (
	StatusLoaded AccountStatus = 1 << iota
	StatusCreated
	StatusSelfDestructed
	StatusTouched
	StatusLoadedAsNotExisting
)

func (s AccountStatus) Has(flag AccountStatus) bool { return s&flag != 0 }

// AccountInfo is the account metadata persisted by a Database (§3
// AccountInfo).
type AccountInfo struct {
	Balance  uint256.Int
	Nonce    uint64
	CodeHash types.Hash
	Code     *vm.Bytecode // nil until loaded on first code access
}

// IsEmpty reports the EIP-161 "empty account" predicate: zero balance, zero
// nonce, no code.
func (a *AccountInfo) IsEmpty() bool {
	return a.Balance.IsZero() && a.Nonce == 0 && (a.CodeHash == types.Hash{} || a.CodeHash == crypto.EmptyCodeHash)
}

// StorageSlot tracks both the value present when the tx first touched the
// slot and its current value (§3 StorageSlot); is_changed is derived, never
// stored, so a slot written back to its original value in the same tx is
// not wrongly reported as dirty.
type StorageSlot struct {
	Original uint256.Int
	Present  uint256.Int
}

func (s *StorageSlot) IsChanged() bool { return s.Original != s.Present }

// Account is one address's full in-memory record for the duration of a
// transaction (§3 Account).
type Account struct {
	Info    AccountInfo
	Storage map[uint256.Int]*StorageSlot
	Status  AccountStatus
}

func NewAccount(info AccountInfo) *Account {
	return &Account{Info: info, Storage: make(map[uint256.Int]*StorageSlot)}
}
