package vm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/types"
)

// Contract carries one frame's immutable call context: who called, which
// address's storage/balance frame this is, the value attached, and the
// calldata (§3 Interpreter "contract (input, bytecode, target/caller/
// value)"). Code/CodeHash live alongside it since CODESIZE/CODECOPY/
// EXTCODEHASH all read the currently-executing contract's own code.
type Contract struct {
	CallerAddress types.Address
	Address       types.Address
	Value         uint256.Int
	Input         []byte

	Code     *Bytecode
	CodeHash types.Hash
}

func NewContract(caller, addr types.Address, value uint256.Int, input []byte, code *Bytecode, codeHash types.Hash) *Contract {
	return &Contract{CallerAddress: caller, Address: addr, Value: value, Input: input, Code: code, CodeHash: codeHash}
}
