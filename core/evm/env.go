// Package evm is the frame driver and transaction pipeline (§3 Env, §4.10,
// §4.11): it owns the journaled state, builds the vm.Host adapter, and
// drives the iterative call-stack loop that vm.Interpreter.Step suspends
// into at every nested call/create.
package evm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// CfgEnv carries chain-wide configuration that does not change block to
// block (§3 Env "CfgEnv (chain id, limits, fork toggles)").
type CfgEnv struct {
	ChainID               uint64
	Spec                  params.SpecId
	MemoryLimit           uint64 // not read by the driver or interpreter: memory growth is bounded by gas alone
	DisableBaseFee        bool
	LimitContractCodeSize int // 0 means MaxCodeSize
}

// BlockEnv carries the values COINBASE/TIMESTAMP/NUMBER/PREVRANDAO/
// GASLIMIT/BASEFEE/BLOBBASEFEE read (§3 Env "BlockEnv").
type BlockEnv struct {
	Number      uint64
	Coinbase    types.Address
	Timestamp   uint64
	GasLimit    uint64
	BaseFee     uint256.Int
	PrevRandao  types.Hash
	BlobBaseFee uint256.Int
}

// TxEnv carries the per-transaction values the pipeline's validation and
// pre-execution stages consult (§3 Env "TxEnv", §4.11).
type TxEnv struct {
	Caller      types.Address
	GasLimit    uint64
	GasPrice    uint256.Int
	PriorityFee *uint256.Int   // EIP-1559 max priority fee; nil for legacy txs
	To          *types.Address // nil selects contract creation
	Value       uint256.Int
	Data        []byte
	Nonce       uint64
	AccessList  []AccessTuple
	BlobHashes  []types.Hash
	BlobMaxFee  *uint256.Int

	// EOFInitCode, when set, is a pre-parsed EOF container presented as the
	// create transaction's init code (EIP-7620 "EOF initcodes" deployment
	// path, distinct from EOFCREATE which is reachable only from already
	// running EOF code).
	EOFInitCode *vm.EOFContainer
}

// AccessTuple is one EIP-2930 access-list entry: an address plus the
// storage slots the tx declares it will touch, both pre-warmed during
// pre-execution (§4.11 stage 2).
type AccessTuple struct {
	Address     types.Address
	StorageKeys []uint256.Int
}

// Env bundles the three environments the pipeline threads through every
// stage, mirroring the source's Env{cfg, block, tx} grouping (§3).
type Env struct {
	Cfg   CfgEnv
	Block BlockEnv
	Tx    TxEnv
}

// blockContext/txContext project Env's block/tx halves into the plain
// value structs vm.Host exposes to instruction handlers (§4.7).
func (e *Env) blockContext() vm.BlockContext {
	return vm.BlockContext{
		Coinbase:    e.Block.Coinbase,
		GasLimit:    e.Block.GasLimit,
		BlockNumber: e.Block.Number,
		Timestamp:   e.Block.Timestamp,
		PrevRandao:  e.Block.PrevRandao,
		BaseFee:     e.Block.BaseFee,
		BlobBaseFee: e.Block.BlobBaseFee,
	}
}

func (e *Env) txContext() vm.TxContext {
	return vm.TxContext{
		Origin:     e.Tx.Caller,
		GasPrice:   e.Tx.GasPrice,
		BlobHashes: e.Tx.BlobHashes,
	}
}
