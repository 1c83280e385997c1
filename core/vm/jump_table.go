package vm

import (
	"github.com/baron-chain/baron-evm/params"
)

type executionFunc func(in *Interpreter, host Host, mem *SharedMemory)
type dynamicGasFunc func(in *Interpreter, host Host, mem *SharedMemory) (uint64, error)
type memorySizeFunc func(stack *Stack) (size uint64, overflow bool)

// operation is one dispatch-table entry (§3 "Instruction table &
// interpreter", §9 "a handler struct containing typed function references
// for the pipeline stages" — the same tagged-struct approach applied here
// to opcodes instead of handler stages). constantGas is charged before
// memorySize/dynamicGas run, matching the teacher's jump_table.go ordering.
type operation struct {
	execute     executionFunc
	constantGas uint64
	dynamicGas  dynamicGasFunc
	minStack    int
	maxStack    int
	memorySize  memorySizeFunc
	writes      bool // rejected with StateChangeDuringStaticCall when is_static
}

// JumpTable is the 256-entry dispatch table, one per fork (§3, §4.6).
type JumpTable [256]*operation

// minS/maxS bound the stack length *before* an operation consuming pops
// words and producing pushes words may run: minS guards underflow, maxS
// guards the post-execution length from exceeding StackLimit.
func minS(pops int) int            { return pops }
func maxS(pops, pushes int) int    { return StackLimit - pushes + pops }

// NewJumpTable builds the dispatch table selected by rules (§4.6, §9 open
// question (a): fork-gated opcodes are configuration here, not hard-coded
// ifs scattered through handlers — PUSH0/MCOPY/TLOAD/TSTORE/BLOBHASH/
// BLOBBASEFEE entries are simply omitted pre-fork, and EOF opcodes are only
// installed from Cancun's EOF-capable forks onward).
func NewJumpTable(rules params.Rules) *JumpTable {
	var t JumpTable
	set := func(op OpCode, o operation) { t[op] = &o }

	set(STOP, operation{execute: opStop, minStack: 0, maxStack: StackLimit})

	binop := func(op OpCode, gas uint64, fn executionFunc) {
		set(op, operation{execute: fn, constantGas: gas, minStack: minS(2), maxStack: maxS(2, 1)})
	}
	binop(ADD, GasVerylow, opAdd)
	binop(MUL, GasLow, opMul)
	binop(SUB, GasVerylow, opSub)
	binop(DIV, GasLow, opDiv)
	binop(SDIV, GasLow, opSdiv)
	binop(MOD, GasLow, opMod)
	binop(SMOD, GasLow, opSmod)
	set(EXP, operation{execute: opExp, constantGas: GasHigh, dynamicGas: gasExp, minStack: minS(2), maxStack: maxS(2, 1)})
	binop(LT, GasVerylow, opLt)
	binop(GT, GasVerylow, opGt)
	binop(SLT, GasVerylow, opSlt)
	binop(SGT, GasVerylow, opSgt)
	binop(EQ, GasVerylow, opEq)
	binop(AND, GasVerylow, opAnd)
	binop(OR, GasVerylow, opOr)
	binop(XOR, GasVerylow, opXor)
	binop(BYTE, GasVerylow, opByte)
	binop(SHL, GasVerylow, opShl)
	binop(SHR, GasVerylow, opShr)
	binop(SAR, GasVerylow, opSar)

	triop := func(op OpCode, gas uint64, fn executionFunc) {
		set(op, operation{execute: fn, constantGas: gas, minStack: minS(3), maxStack: maxS(3, 1)})
	}
	triop(ADDMOD, GasMid, opAddmod)
	triop(MULMOD, GasMid, opMulmod)

	unop := func(op OpCode, gas uint64, fn executionFunc) {
		set(op, operation{execute: fn, constantGas: gas, minStack: minS(1), maxStack: maxS(1, 1)})
	}
	unop(ISZERO, GasVerylow, opIszero)
	unop(NOT, GasVerylow, opNot)
	unop(SIGNEXTEND, GasLow, opSignExtend)

	set(KECCAK256, operation{execute: opKeccak256, constantGas: GasKeccak256, dynamicGas: gasKeccak256,
		memorySize: memoryOffsetSize(0, 1), minStack: minS(2), maxStack: maxS(2, 1)})

	nullop := func(op OpCode, gas uint64, fn executionFunc) {
		set(op, operation{execute: fn, constantGas: gas, minStack: minS(0), maxStack: maxS(0, 1)})
	}
	nullop(ADDRESS, GasBase, opAddress)
	nullop(ORIGIN, GasBase, opOrigin)
	nullop(CALLER, GasBase, opCaller)
	nullop(CALLVALUE, GasBase, opCallValue)
	nullop(CALLDATASIZE, GasBase, opCallDataSize)
	nullop(CODESIZE, GasBase, opCodeSize)
	nullop(GASPRICE, GasBase, opGasPrice)
	nullop(RETURNDATASIZE, GasBase, opReturnDataSize)
	nullop(COINBASE, GasBase, opCoinbase)
	nullop(TIMESTAMP, GasBase, opTimestamp)
	nullop(NUMBER, GasBase, opNumber)
	nullop(PREVRANDAO, GasBase, opPrevRandao)
	nullop(GASLIMIT, GasBase, opGasLimit)
	nullop(CHAINID, GasBase, opChainID)
	nullop(SELFBALANCE, GasLow, opSelfBalance)
	nullop(BASEFEE, GasBase, opBaseFee)
	nullop(MSIZE, GasBase, opMsize)
	nullop(GAS, GasBase, opGas)
	if rules.Spec.IsEnabledIn(params.CANCUN) {
		nullop(BLOBHASH, GasBlobHash, opBlobHash)
		nullop(BLOBBASEFEE, GasBlobBaseFee, opBlobBaseFee)
	}

	set(CALLDATALOAD, operation{execute: opCallDataLoad, constantGas: GasVerylow, minStack: minS(1), maxStack: maxS(1, 1)})
	set(CALLDATACOPY, operation{execute: opCallDataCopy, constantGas: GasVerylow, dynamicGas: gasCopy, memorySize: memoryOffsetSize(0, 2), minStack: minS(3), maxStack: maxS(3, 0)})
	set(CODECOPY, operation{execute: opCodeCopy, constantGas: GasVerylow, dynamicGas: gasCopy, memorySize: memoryOffsetSize(0, 2), minStack: minS(3), maxStack: maxS(3, 0)})
	set(RETURNDATACOPY, operation{execute: opReturnDataCopy, constantGas: GasVerylow, dynamicGas: gasReturnDataCopy, memorySize: memoryOffsetSize(0, 2), minStack: minS(3), maxStack: maxS(3, 0)})
	set(EXTCODESIZE, operation{execute: opExtCodeSize, dynamicGas: gasExtCodeSize, minStack: minS(1), maxStack: maxS(1, 1)})
	set(EXTCODECOPY, operation{execute: opExtCodeCopy, dynamicGas: gasExtCodeCopy, memorySize: memoryOffsetSize(1, 3), minStack: minS(4), maxStack: maxS(4, 0)})
	set(EXTCODEHASH, operation{execute: opExtCodeHash, dynamicGas: gasExtCodeHash, minStack: minS(1), maxStack: maxS(1, 1)})
	set(BLOCKHASH, operation{execute: opBlockHash, constantGas: GasExt, minStack: minS(1), maxStack: maxS(1, 1)})
	set(BALANCE, operation{execute: opBalance, dynamicGas: gasBalance, minStack: minS(1), maxStack: maxS(1, 1)})

	set(POP, operation{execute: opPop, constantGas: GasBase, minStack: minS(1), maxStack: maxS(1, 0)})
	set(MLOAD, operation{execute: opMload, constantGas: GasMload, memorySize: memoryWordSize(0), minStack: minS(1), maxStack: maxS(1, 1)})
	set(MSTORE, operation{execute: opMstore, constantGas: GasMstore, memorySize: memoryWordSize(0), minStack: minS(2), maxStack: maxS(2, 0)})
	set(MSTORE8, operation{execute: opMstore8, constantGas: GasMstore8, memorySize: memoryByteSize(0), minStack: minS(2), maxStack: maxS(2, 0)})
	set(SLOAD, operation{execute: opSload, dynamicGas: gasSload, minStack: minS(1), maxStack: maxS(1, 1)})
	set(SSTORE, operation{execute: opSstore, dynamicGas: gasSstore, minStack: minS(2), maxStack: maxS(2, 0), writes: true})
	set(JUMP, operation{execute: opJump, constantGas: GasJump, minStack: minS(1), maxStack: maxS(1, 0)})
	set(JUMPI, operation{execute: opJumpi, constantGas: GasJumpi, minStack: minS(2), maxStack: maxS(2, 0)})
	set(PC, operation{execute: opPc, constantGas: GasPc, minStack: minS(0), maxStack: maxS(0, 1)})
	set(JUMPDEST, operation{execute: opJumpdest, constantGas: GasJumpDest, minStack: minS(0), maxStack: maxS(0, 0)})
	if rules.Spec.IsEnabledIn(params.CANCUN) {
		set(TLOAD, operation{execute: opTload, constantGas: GasTload, minStack: minS(1), maxStack: maxS(1, 1)})
		set(TSTORE, operation{execute: opTstore, constantGas: GasTstore, minStack: minS(2), maxStack: maxS(2, 0), writes: true})
		set(MCOPY, operation{execute: opMcopy, constantGas: GasMcopyBase, dynamicGas: gasMcopy, memorySize: memoryMcopySize, minStack: minS(3), maxStack: maxS(3, 0)})
	}

	if rules.Spec.IsEnabledIn(params.SHANGHAI) {
		set(PUSH0, operation{execute: opPush0, constantGas: GasPush0, minStack: minS(0), maxStack: maxS(0, 1)})
	}
	for n := 1; n <= 32; n++ {
		op := OpCode(int(PUSH1) + n - 1)
		size := n
		set(op, operation{execute: makePush(size), constantGas: GasPush, minStack: minS(0), maxStack: maxS(0, 1)})
	}
	for n := 1; n <= 16; n++ {
		op := OpCode(int(DUP1) + n - 1)
		depth := n
		set(op, operation{execute: makeDup(depth), constantGas: GasDup, minStack: minS(depth), maxStack: maxS(0, 1)})
	}
	for n := 1; n <= 16; n++ {
		op := OpCode(int(SWAP1) + n - 1)
		depth := n
		set(op, operation{execute: makeSwap(depth), constantGas: GasSwap, minStack: minS(depth + 1), maxStack: maxS(0, 0)})
	}
	for n := 0; n <= 4; n++ {
		op := OpCode(int(LOG0) + n)
		topics := n
		set(op, operation{execute: makeLog(topics), constantGas: GasLog, dynamicGas: gasLog(topics),
			memorySize: memoryOffsetSize(0, 1), minStack: minS(2 + topics), maxStack: maxS(2+topics, 0), writes: true})
	}

	set(CREATE, operation{execute: opCreate, constantGas: GasCreate, dynamicGas: gasCreate, memorySize: memoryOffsetSize(1, 2), minStack: minS(3), maxStack: maxS(3, 1), writes: true})
	set(CREATE2, operation{execute: opCreate2, constantGas: GasCreate, dynamicGas: gasCreate2, memorySize: memoryOffsetSize(1, 2), minStack: minS(4), maxStack: maxS(4, 1), writes: true})
	set(CALL, operation{execute: opCall, dynamicGas: gasCall, memorySize: memoryCallSize, minStack: minS(7), maxStack: maxS(7, 1)})
	set(CALLCODE, operation{execute: opCallCode, dynamicGas: gasCall, memorySize: memoryCallSize, minStack: minS(7), maxStack: maxS(7, 1)})
	set(DELEGATECALL, operation{execute: opDelegateCall, dynamicGas: gasCallNoValue, memorySize: memoryCallNoValueSize, minStack: minS(6), maxStack: maxS(6, 1)})
	set(STATICCALL, operation{execute: opStaticCall, dynamicGas: gasCallNoValue, memorySize: memoryCallNoValueSize, minStack: minS(6), maxStack: maxS(6, 1)})
	set(RETURN, operation{execute: opReturn, memorySize: memoryOffsetSize(0, 1), minStack: minS(2), maxStack: maxS(2, 0)})
	set(REVERT, operation{execute: opRevert, memorySize: memoryOffsetSize(0, 1), minStack: minS(2), maxStack: maxS(2, 0)})
	set(INVALID, operation{execute: opInvalid, minStack: minS(0), maxStack: maxS(0, 0)})
	set(SELFDESTRUCT, operation{execute: opSelfDestruct, constantGas: GasSelfdestruct, dynamicGas: gasSelfDestruct, minStack: minS(1), maxStack: maxS(1, 0), writes: true})

	if rules.Spec.IsEnabledIn(params.CANCUN) {
		setEOFOps(&t)
	}

	return &t
}
