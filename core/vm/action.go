package vm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/types"
)

// CallScheme distinguishes the four legacy call-family opcodes and the
// three EOF EXT* variants, since they share almost all frame-construction
// logic (§4.10) but differ in value transfer, caller/address substitution,
// and staticness.
type CallScheme uint8

const (
	SchemeCall CallScheme = iota
	SchemeCallCode
	SchemeDelegateCall
	SchemeStaticCall
	SchemeExtCall
	SchemeExtDelegateCall
	SchemeExtStaticCall
)

// CallInputs describes a pending CALL/CALLCODE/DELEGATECALL/STATICCALL (or
// EOF EXT* equivalent), built by an instruction handler and handed to the
// frame driver via InterpreterAction (§4.6, §4.10).
type CallInputs struct {
	Scheme       CallScheme
	Caller       types.Address
	Address      types.Address // contract whose code runs
	Target       types.Address // account whose storage/balance is affected
	Value        uint256.Int
	Input        []byte
	GasLimit     uint64
	IsStatic     bool
	RetOffset    uint64 // caller memory offset to receive return data
	RetSize      uint64
}

// CreateScheme distinguishes CREATE, CREATE2, and the EOF EOFCREATE.
type CreateScheme uint8

const (
	SchemeCreate CreateScheme = iota
	SchemeCreate2
	SchemeEOFCreate
)

// CreateInputs describes a pending CREATE/CREATE2/EOFCREATE (§4.10).
type CreateInputs struct {
	Scheme   CreateScheme
	Caller   types.Address
	Value    uint256.Int
	InitCode []byte        // CREATE/CREATE2
	Container *EOFContainer // EOFCREATE: sub-container already validated
	Salt     uint256.Int   // CREATE2/EOFCREATE
	GasLimit uint64
}

// InstructionResult classifies how a frame's interpreter stopped (§7).
type InstructionResult uint8

const (
	Continue InstructionResult = iota

	ResultStop
	ResultReturn
	ResultSelfDestruct
	ResultReturnContract

	ResultRevert
	ResultCallTooDeep
	ResultOutOfFunds

	ResultOutOfGas
	ResultOpcodeNotFound
	ResultInvalidJump
	ResultStackOverflow
	ResultStackUnderflow
	ResultStateChangeDuringStaticCall
	ResultCreateContractSizeLimit
	ResultCreateContractStartingWithEF
	ResultCreateCollision
	ResultNonceOverflow
	ResultPrecompileError
	ResultInvalidEFOpcode
	ResultEOFFunctionStackOverflow
	ResultFatalExternalError
)

// IsSuccess, IsRevert, IsHalt partition InstructionResult into the three
// families §7 describes: Success/Revert commit or revert the checkpoint
// and pass data upward; Halt reverts and forfeits all remaining gas.
func (r InstructionResult) IsSuccess() bool {
	switch r {
	case ResultStop, ResultReturn, ResultSelfDestruct, ResultReturnContract:
		return true
	}
	return false
}

func (r InstructionResult) IsRevert() bool {
	switch r {
	case ResultRevert, ResultCallTooDeep, ResultOutOfFunds:
		return true
	}
	return false
}

func (r InstructionResult) IsHalt() bool {
	return r != Continue && !r.IsSuccess() && !r.IsRevert()
}

// ActionKind tags which variant of InterpreterAction a step produced.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionCall
	ActionCreate
	ActionEOFCreate
	ActionReturn
)

// InterpreterResult is the payload of an ActionReturn: what the inner loop
// decided, how much gas remains, and any output bytes (§4.6, §7).
type InterpreterResult struct {
	Result       InstructionResult
	Output       []byte
	GasUsed      uint64
	GasRemaining uint64
	GasRefunded  int64
}

// InterpreterAction is the tagged union an Interpreter.Step returns at a
// suspension point (§9 "the interpreter returns an InterpreterAction value
// at suspension points"): exactly one of Call/Create/EOFCreate/Return is
// meaningful, selected by Kind.
type InterpreterAction struct {
	Kind   ActionKind
	Call   *CallInputs
	Create *CreateInputs
	Return *InterpreterResult
}
