package vm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// BlockContext carries the block-level values COINBASE/TIMESTAMP/NUMBER/
// PREVRANDAO/GASLIMIT/BASEFEE/BLOBBASEFEE read, mirroring the teacher's
// core/vm.BlockContext: a plain value struct built once per block by the
// caller and handed to every EVM invocation within it, rather than fetched
// field-by-field through Host.
type BlockContext struct {
	Coinbase    types.Address
	GasLimit    uint64
	BlockNumber uint64
	Timestamp   uint64
	PrevRandao  types.Hash // post-Merge RANDAO; DIFFICULTY reads this since EIP-4399
	BaseFee     uint256.Int
	BlobBaseFee uint256.Int
}

// TxContext carries the transaction-level values ORIGIN/GASPRICE/BLOBHASH
// read, mirroring the teacher's core/vm.TxContext.
type TxContext struct {
	Origin     types.Address
	GasPrice   uint256.Int
	BlobHashes []types.Hash
}

// Host is the capability interface through which the interpreter reaches
// outside its own frame (§4.7). It is defined here, in vm, so instruction
// handlers can depend on it without vm importing the state/evm packages
// that implement it — the journaled state lives above this package and
// satisfies Host by adapting its own richer API.
type Host interface {
	Rules() params.Rules
	Block() *BlockContext
	Tx() *TxContext
	ChainID() uint256.Int

	BlockHash(number uint64) (types.Hash, error)

	// LoadAccount warms addr and reports whether it existed, for BALANCE/
	// EXTCODE*/CALL-family cold-access accounting.
	LoadAccount(addr types.Address) (exists bool, wasCold bool, err error)
	Balance(addr types.Address) (balance uint256.Int, wasCold bool, err error)
	Code(addr types.Address) (code *Bytecode, wasCold bool, err error)
	CodeHash(addr types.Address) (hash types.Hash, wasCold bool, err error)

	SLoad(addr types.Address, key uint256.Int) (value uint256.Int, wasCold bool, err error)
	SStore(addr types.Address, key, value uint256.Int) (original, current uint256.Int, wasCold bool, err error)

	TLoad(addr types.Address, key uint256.Int) uint256.Int
	TStore(addr types.Address, key, value uint256.Int)

	Log(log types.Log)
	SelfDestruct(addr, target types.Address) (hadBalance uint256.Int, wasCold bool, err error)
}
