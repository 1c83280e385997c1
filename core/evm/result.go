package evm

import (
	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/types"
)

// ResultKind tags which of Success/Revert/Halt an ExecutionResult is (§6
// "ExecutionResult ∈ {Success, Revert, Halt}").
type ResultKind uint8

const (
	Success ResultKind = iota
	Revert
	Halt
)

// Output is the tagged Call(bytes)/Create(bytes, Option<address>) payload a
// successful or reverted top-level execution produces (§6).
type Output struct {
	IsCreate bool
	Data     []byte
	Address  *types.Address // set iff IsCreate and the deployment succeeded
}

// ExecutionResult is the transaction pipeline's final return value (§6,
// §7). Reason carries the InstructionResult the top frame stopped with,
// meaningful for both Success (Stop/Return/SelfDestruct/ReturnContract) and
// Halt (OutOfGas/InvalidJump/...); Revert has no reason beyond "Revert"
// itself.
type ExecutionResult struct {
	Kind        ResultKind
	Reason      vm.InstructionResult
	GasUsed     uint64
	GasRefunded uint64
	Logs        []types.Log
	Output      Output
}
