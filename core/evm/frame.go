package evm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/state"
	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/types"
)

// FrameKind tags which of Call/Create/EOFCreate a Frame is (§3 Frame).
type FrameKind uint8

const (
	FrameCall FrameKind = iota
	FrameCreate
	FrameEOFCreate
)

// Frame is one nested execution on the driver's call stack (§3 Frame):
// its own interpreter, the checkpoint to revert to on failure, and the
// variant-specific bookkeeping the driver needs once the frame returns.
type Frame struct {
	Kind        FrameKind
	Interpreter *vm.Interpreter
	Checkpoint  state.Checkpoint

	// Call-only: where to copy return data back into the parent's memory.
	RetOffset uint64
	RetSize   uint64

	// Create/EOFCreate-only: the address being deployed to, computed before
	// the child frame runs so CREATE's address is stable even if the
	// init code itself queries it (it can't, but EOFCREATE's sub-container
	// frame needs to know the target for RETURNCONTRACT's SetCode call).
	CreatedAddress types.Address

	// IsStatic mirrors Interpreter.IsStatic. The driver does not read it:
	// a nested call takes its static flag from the CallInputs its caller's
	// interpreter builds.
	IsStatic bool

	// Value is the wei amount attached to this frame's call/create. It is
	// recorded only; no return handler reads it.
	Value uint256.Int
}
