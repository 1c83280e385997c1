package vm

import (
	"encoding/binary"

	"github.com/holiman/uint256"
)

// setEOFOps installs the EOF-only opcodes into t (§4.3, §4.6): relative
// jumps, the CALLF/RETF/JUMPF function-call protocol, DATA* section
// access, the generalized DUPN/SWAPN/EXCHANGE stack ops, EOFCREATE/
// RETURNCONTRACT deployment, and the EXTCALL family. Installed only for
// Cancun+ rule sets that enable EOF containers (§9 open question (a)); the
// legacy JUMP/JUMPI/JUMPDEST/PC/GAS/SELFDESTRUCT/CALL family these replace
// are still present in the table for legacy (non-EOF) code running under
// the same fork, since EOF-ness is a property of the bytecode, not the
// fork — the validator, not the jump table, is what forbids mixing them.
func setEOFOps(t *JumpTable) {
	set := func(op OpCode, o operation) { t[op] = &o }

	set(RJUMP, operation{execute: opRjump, constantGas: GasBase, minStack: minS(0), maxStack: maxS(0, 0)})
	set(RJUMPI, operation{execute: opRjumpi, constantGas: GasVerylow, minStack: minS(1), maxStack: maxS(1, 0)})
	set(RJUMPV, operation{execute: opRjumpv, constantGas: GasVerylow, minStack: minS(1), maxStack: maxS(1, 0)})
	set(CALLF, operation{execute: opCallf, constantGas: GasBase, minStack: minS(0), maxStack: maxS(0, 0)})
	set(RETF, operation{execute: opRetf, constantGas: GasBase, minStack: minS(0), maxStack: maxS(0, 0)})
	set(JUMPF, operation{execute: opJumpf, constantGas: GasBase, minStack: minS(0), maxStack: maxS(0, 0)})

	set(DATALOAD, operation{execute: opDataload, constantGas: GasVerylow, minStack: minS(1), maxStack: maxS(1, 1)})
	set(DATALOADN, operation{execute: opDataloadn, constantGas: GasVerylow, minStack: minS(0), maxStack: maxS(0, 1)})
	set(DATASIZE, operation{execute: opDatasize, constantGas: GasBase, minStack: minS(0), maxStack: maxS(0, 1)})
	set(DATACOPY, operation{execute: opDatacopy, constantGas: GasVerylow, dynamicGas: gasCopy, memorySize: memoryOffsetSize(0, 2), minStack: minS(3), maxStack: maxS(3, 0)})

	// DUPN/SWAPN/EXCHANGE's actual depth comes from their immediate byte,
	// resolved per call at runtime; minStack here only guards the cheapest
	// case (depth 1), the same way CALLF's real arity is resolved from its
	// target's type section rather than a static table entry.
	set(DUPN, operation{execute: opDupn, constantGas: GasVerylow, minStack: minS(1), maxStack: maxS(0, 1)})
	set(SWAPN, operation{execute: opSwapn, constantGas: GasVerylow, minStack: minS(2), maxStack: maxS(0, 0)})
	set(EXCHANGE, operation{execute: opExchange, constantGas: GasVerylow, minStack: minS(2), maxStack: maxS(0, 0)})

	set(EOFCREATE, operation{execute: opEofcreate, constantGas: GasCreate, dynamicGas: gasEOFCreate,
		memorySize: memoryOffsetSize(2, 3), minStack: minS(4), maxStack: maxS(4, 1), writes: true})
	set(RETURNCONTRACT, operation{execute: opReturncontract, memorySize: memoryOffsetSize(0, 1), minStack: minS(2), maxStack: maxS(2, 0)})

	set(EXTCALL, operation{execute: opExtcall, dynamicGas: gasExtCall, memorySize: memoryOffsetSize(1, 2), minStack: minS(4), maxStack: maxS(4, 1), writes: true})
	set(EXTDELEGATECALL, operation{execute: opExtdelegatecall, dynamicGas: gasExtCallNoValue, memorySize: memoryOffsetSize(1, 2), minStack: minS(3), maxStack: maxS(3, 1)})
	set(EXTSTATICCALL, operation{execute: opExtstaticcall, dynamicGas: gasExtCallNoValue, memorySize: memoryOffsetSize(1, 2), minStack: minS(3), maxStack: maxS(3, 1)})
}

// opRjump is the unconditional relative jump (EIP-4200): a signed 16-bit
// offset from the byte immediately following the immediate.
func opRjump(in *Interpreter, host Host, mem *SharedMemory) {
	offset := int16(binary.BigEndian.Uint16(in.immediateData(in.ip-1, 2)))
	in.ip = uint64(int64(in.ip) + 2 + int64(offset))
}

func opRjumpi(in *Interpreter, host Host, mem *SharedMemory) {
	cond := in.Stack.Pop()
	offset := int16(binary.BigEndian.Uint16(in.immediateData(in.ip-1, 2)))
	if cond.IsZero() {
		in.ip += 2
		return
	}
	in.ip = uint64(int64(in.ip) + 2 + int64(offset))
}

// opRjumpv is the case-table jump (EIP-4200): a 1-byte case count minus one,
// followed by that many signed 16-bit offsets; the top-of-stack selects
// which offset to take, falling through to the byte after the table when
// the index is out of range.
func opRjumpv(in *Interpreter, host Host, mem *SharedMemory) {
	idx := in.Stack.Pop()
	countByte := in.immediateData(in.ip-1, 1)
	count := int(countByte[0]) + 1
	tableLen := 1 + count*2

	if !idx.IsUint64() || idx.Uint64() >= uint64(count) {
		in.ip += uint64(tableLen)
		return
	}
	full := in.immediateData(in.ip-1, tableLen)
	start := 1 + int(idx.Uint64())*2
	offset := int16(binary.BigEndian.Uint16(full[start : start+2]))
	in.ip = uint64(int64(in.ip) + int64(tableLen) + int64(offset))
}

// opCallf enters the code section named by its 2-byte immediate (EIP-4750),
// pushing a return address so RETF can resume here. The target's declared
// input/output/max-stack-height shape was already checked statically by
// EOFValidator, so no runtime stack check beyond function-stack depth is
// needed.
func opCallf(in *Interpreter, host Host, mem *SharedMemory) {
	target := binary.BigEndian.Uint16(in.immediateData(in.ip-1, 2))
	if len(in.functionStack) >= EOFFunctionStackLimit {
		in.Halt(ResultEOFFunctionStackOverflow)
		return
	}
	in.functionStack = append(in.functionStack, functionStackEntry{
		returnSection: in.currentSection,
		returnPC:      in.ip + 2,
		stackHeight:   in.Stack.Len(),
	})
	in.currentSection = target
	in.ip = 0
}

// opRetf returns to the caller recorded by the matching CALLF.
func opRetf(in *Interpreter, host Host, mem *SharedMemory) {
	n := len(in.functionStack) - 1
	entry := in.functionStack[n]
	in.functionStack = in.functionStack[:n]
	in.currentSection = entry.returnSection
	in.ip = entry.returnPC
}

// opJumpf is CALLF's tail-call sibling (EIP-6206): it switches section
// without growing the function stack, so the eventual RETF returns to
// this function's own caller.
func opJumpf(in *Interpreter, host Host, mem *SharedMemory) {
	target := binary.BigEndian.Uint16(in.immediateData(in.ip-1, 2))
	in.currentSection = target
	in.ip = 0
}

func opDataload(in *Interpreter, host Host, mem *SharedMemory) {
	offset := in.Stack.Peek()
	data := in.Bytecode.Container.DataSection
	var word [32]byte
	if offset.IsUint64() {
		if off := offset.Uint64(); off < uint64(len(data)) {
			copy(word[:], data[off:])
		}
	}
	offset.SetBytes(word[:])
}

func opDataloadn(in *Interpreter, host Host, mem *SharedMemory) {
	off := uint64(binary.BigEndian.Uint16(in.immediateData(in.ip-1, 2)))
	in.ip += 2
	data := in.Bytecode.Container.DataSection
	var word [32]byte
	if off < uint64(len(data)) {
		copy(word[:], data[off:])
	}
	_ = in.Stack.PushSlice(word[:])
}

func opDatasize(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, uint64(len(in.Bytecode.Container.DataSection)))
}

func opDatacopy(in *Interpreter, host Host, mem *SharedMemory) {
	memOffset, offset, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	mem.SetData(memOffset.Uint64(), offset.Uint64(), size.Uint64(), in.Bytecode.Container.DataSection)
}

// opDupn and opSwapn (EIP-663) generalize DUP/SWAP past depth 16: the
// immediate byte encodes depth-1, for a 1..256 range.
func opDupn(in *Interpreter, host Host, mem *SharedMemory) {
	n := int(in.immediateData(in.ip-1, 1)[0]) + 1
	in.ip++
	in.Stack.Dup(n)
}

func opSwapn(in *Interpreter, host Host, mem *SharedMemory) {
	n := int(in.immediateData(in.ip-1, 1)[0]) + 1
	in.ip++
	in.Stack.Swap(n)
}

// opExchange (EIP-663) swaps two stack items below the top, selected by the
// immediate byte's two nibbles.
func opExchange(in *Interpreter, host Host, mem *SharedMemory) {
	raw := in.immediateData(in.ip-1, 1)[0]
	in.ip++
	n := int(raw>>4) + 1
	m := int(raw&0x0f) + 1
	in.Stack.Exchange(n, m)
}

// opEofcreate (EIP-7620) deploys one of the current container's referenced
// sub-containers, appending memory-resident auxdata the way RETURNCONTRACT
// produces it. Like CREATE/CREATE2 it only schedules the nested frame; the
// frame driver pushes the resulting address once it resumes this frame.
func opEofcreate(in *Interpreter, host Host, mem *SharedMemory) {
	idx := int(in.immediateData(in.ip-1, 1)[0])
	in.ip++
	value, salt := in.Stack.Pop(), in.Stack.Pop()
	inputOffset, inputSize := in.Stack.Pop(), in.Stack.Pop()
	auxData := mem.Slice(inputOffset.Uint64(), inputSize.Uint64())

	var container *EOFContainer
	if idx < len(in.Bytecode.Container.ContainerSections) {
		if sub, err := ParseEOF(in.Bytecode.Container.ContainerSections[idx]); err == nil {
			container = sub
		}
	}
	in.ScheduleCreate(&CreateInputs{
		Scheme:    SchemeEOFCreate,
		Caller:    in.Contract.Address,
		Value:     value,
		InitCode:  auxData,
		Container: container,
		Salt:      salt,
		GasLimit:  callGasStipend(in),
	})
}

// opReturncontract (EIP-7620) ends EOFCREATE's init code, selecting one of
// the creating container's sub-containers as the deployed code and
// appending the given memory range as trailing auxdata.
func opReturncontract(in *Interpreter, host Host, mem *SharedMemory) {
	idx := int(in.immediateData(in.ip-1, 1)[0])
	auxOffset, auxSize := in.Stack.Pop(), in.Stack.Pop()
	aux := mem.Slice(auxOffset.Uint64(), auxSize.Uint64())

	var sub []byte
	if idx < len(in.Bytecode.Container.ContainerSections) {
		sub = in.Bytecode.Container.ContainerSections[idx]
	}
	out := make([]byte, 0, len(sub)+len(aux))
	out = append(out, sub...)
	out = append(out, aux...)
	in.HaltWithOutput(ResultReturnContract, out)
}

// buildExtCallInputs reads the EXTCALL-family's operands (EIP-7069): unlike
// legacy CALL, the target address is the full top-of-stack word, and any
// set bit above the low 20 bytes is a "light failure" the caller observes
// as a 1 pushed to the stack without a call ever being attempted.
func buildExtCallInputs(in *Interpreter, mem *SharedMemory, scheme CallScheme, hasValue bool) (*CallInputs, bool) {
	targetWord := in.Stack.Pop()
	inputOffset, inputSize := in.Stack.Pop(), in.Stack.Pop()
	var value uint256.Int
	if hasValue {
		value = in.Stack.Pop()
	}
	hi := targetWord.Bytes32()
	for _, b := range hi[:12] {
		if b != 0 {
			return nil, false
		}
	}
	addr := addressFromWord(&targetWord)
	input := mem.Slice(inputOffset.Uint64(), inputSize.Uint64())

	caller := in.Contract.Address
	target := addr
	if scheme == SchemeExtDelegateCall {
		caller = in.Contract.CallerAddress
		target = in.Contract.Address
		value = in.Contract.Value
	}
	return &CallInputs{
		Scheme: scheme, Caller: caller, Address: addr, Target: target, Value: value,
		Input: input, GasLimit: callGasStipend(in), IsStatic: scheme == SchemeExtStaticCall || in.IsStatic,
	}, true
}

func opExtcall(in *Interpreter, host Host, mem *SharedMemory) {
	inputs, ok := buildExtCallInputs(in, mem, SchemeExtCall, true)
	if !ok {
		pushUint64(in, 1)
		return
	}
	in.ScheduleCall(inputs)
}

func opExtdelegatecall(in *Interpreter, host Host, mem *SharedMemory) {
	inputs, ok := buildExtCallInputs(in, mem, SchemeExtDelegateCall, false)
	if !ok {
		pushUint64(in, 1)
		return
	}
	in.ScheduleCall(inputs)
}

func opExtstaticcall(in *Interpreter, host Host, mem *SharedMemory) {
	inputs, ok := buildExtCallInputs(in, mem, SchemeExtStaticCall, false)
	if !ok {
		pushUint64(in, 1)
		return
	}
	in.ScheduleCall(inputs)
}
