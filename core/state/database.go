package state

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/types"
)

// Database is the only mandatory external dependency (§6): account
// metadata, deferred code, storage slots, and historical block hashes.
// Every operation may fail; a failure propagates as a fatal error and
// aborts the transaction (§7 "FatalExternalError").
//
// Specific backends (RPC-backed caches, Merkle-trie-hashing stores) are
// explicitly out of scope (§1); this module only depends on the contract.
type Database interface {
	// Basic loads account metadata, or (nil, nil) if the account does not
	// exist.
	Basic(addr types.Address) (*AccountInfo, error)

	// CodeByHash resolves deferred code by its hash, for accounts whose
	// AccountInfo was loaded without inlined code.
	CodeByHash(hash types.Hash) (*vm.Bytecode, error)

	// Storage loads a slot's value, defaulting to zero for an untouched
	// slot.
	Storage(addr types.Address, slot uint256.Int) (uint256.Int, error)

	// BlockHash resolves a historical block hash for the BLOCKHASH opcode.
	BlockHash(number uint64) (types.Hash, error)
}

// CommitDatabase is the optional extension (§6 "An optional commit(diff)
// operation") a Database may implement to accept a finalized state diff.
type CommitDatabase interface {
	Database
	Commit(diff StateDiff) error
}
