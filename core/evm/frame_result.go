package evm

import (
	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/types"
)

// FrameResult is one completed frame's outcome, handed to its parent's
// return handler (§4.10 "Return(result)", §9 supplemented feature "the
// FrameResult tri-state"). It generalizes vm.InterpreterResult with the
// bookkeeping the driver needs that an interpreter alone can't know: which
// address a Create/EOFCreate frame deployed to, if it succeeded.
type FrameResult struct {
	Kind           ResultKind
	Reason         vm.InstructionResult
	Output         []byte
	GasUsed        uint64
	GasRemaining   uint64
	GasRefunded    int64
	CreatedAddress *types.Address
}

// fromInterpreterResult classifies a raw vm.InterpreterResult into the
// Success/Revert/Halt tri-state (§7 propagation policy).
func fromInterpreterResult(r *vm.InterpreterResult) FrameResult {
	fr := FrameResult{
		Reason:       r.Result,
		Output:       r.Output,
		GasRemaining: r.GasRemaining,
		GasRefunded:  r.GasRefunded,
	}
	switch {
	case r.Result.IsSuccess():
		fr.Kind = Success
	case r.Result.IsRevert():
		fr.Kind = Revert
	default:
		fr.Kind = Halt
	}
	return fr
}
