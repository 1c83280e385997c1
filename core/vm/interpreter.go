package vm

// functionStackEntry is one EOF CALLF return address (§4.6 "function_stack
// (EOF)"): the section and instruction pointer to resume at, and the
// caller's stack height so RETF can verify the callee left the stack at
// exactly the height the callee's type section promised.
type functionStackEntry struct {
	returnSection uint16
	returnPC      uint64
	stackHeight   int
}

// Interpreter runs one frame's bytecode to the next suspension point
// (§3 Interpreter, §4.6). It owns its stack and registers; the shared
// memory and the instruction table are lent to it per Step call by the
// frame driver, matching §3's ownership note ("shared memory is owned by
// the frame driver and passed by exclusive reference into whichever
// interpreter is currently running").
type Interpreter struct {
	ip       uint64
	Bytecode *Bytecode
	Gas      *Gas
	Contract *Contract
	Stack    *Stack

	currentSection uint16 // EOF: which code section ip indexes into
	functionStack  []functionStackEntry

	ReturnData []byte
	IsStatic   bool

	// Tracer, when set, observes every opcode step (§9 AMBIENT STACK
	// tracer hook). Depth is the frame's position in the driver's call
	// stack, set once at frame construction purely for the tracer's
	// CaptureState argument.
	Tracer EVMLogger
	Depth  int

	result InstructionResult
	action InterpreterAction
}

func NewInterpreter(contract *Contract, gas *Gas, isStatic bool) *Interpreter {
	return &Interpreter{
		Bytecode: contract.Code,
		Gas:      gas,
		Contract: contract,
		Stack:    NewStack(),
		IsStatic: isStatic,
	}
}

// PC returns the current instruction pointer, for PC and tracers.
func (in *Interpreter) PC() uint64 { return in.ip }

// currentCode returns the byte slice ip indexes into: the single legacy
// buffer, or the current EOF code section.
func (in *Interpreter) currentCode() []byte {
	if in.Bytecode.Kind == EOFCode {
		return in.Bytecode.Container.CodeSections[in.currentSection]
	}
	return nil // legacy reads go through Bytecode.CodeAt/PushData directly
}

// opcodeAt reads the opcode byte at pc. Legacy code delegates to
// Bytecode.CodeAt (which knows about analysis padding); EOF code reads
// straight from the active code section, since Bytecode itself has no
// notion of which of a container's sections is currently executing.
func (in *Interpreter) opcodeAt(pc uint64) OpCode {
	if in.Bytecode.Kind == EOFCode {
		sec := in.currentCode()
		if pc < uint64(len(sec)) {
			return OpCode(sec[pc])
		}
		return STOP
	}
	return in.Bytecode.CodeAt(pc)
}

// immediateData reads the n immediate bytes following the opcode at pc,
// zero-extended past the end of the section — the EOF-aware counterpart to
// Bytecode.PushData, used by every EOF opcode with fixed-size immediates
// (RJUMP/RJUMPI/CALLF/JUMPF/DATALOADN/DUPN/SWAPN/EXCHANGE/EOFCREATE/
// RETURNCONTRACT) as well as legacy PUSH1-32.
func (in *Interpreter) immediateData(pc uint64, n int) []byte {
	if in.Bytecode.Kind != EOFCode {
		return in.Bytecode.PushData(pc, n)
	}
	sec := in.currentCode()
	start := pc + 1
	if start >= uint64(len(sec)) {
		return make([]byte, n)
	}
	end := start + uint64(n)
	if end > uint64(len(sec)) {
		out := make([]byte, n)
		copy(out, sec[start:])
		return out
	}
	return sec[start:end]
}

// Halt sets a terminal result for the current step; Step returns
// immediately after a handler calls this.
func (in *Interpreter) Halt(result InstructionResult) {
	in.result = result
	in.action = InterpreterAction{Kind: ActionReturn, Return: &InterpreterResult{
		Result:       result,
		GasRemaining: in.Gas.Remaining(),
		GasRefunded:  in.Gas.Refunded(),
	}}
}

// HaltWithOutput is Halt plus an output buffer (RETURN/REVERT/
// RETURNCONTRACT).
func (in *Interpreter) HaltWithOutput(result InstructionResult, output []byte) {
	in.result = result
	in.action = InterpreterAction{Kind: ActionReturn, Return: &InterpreterResult{
		Result:       result,
		Output:       output,
		GasRemaining: in.Gas.Remaining(),
		GasRefunded:  in.Gas.Refunded(),
	}}
}

// ScheduleCall/ScheduleCreate set next_action to delegate to the frame
// driver (§4.6 "set next_action to Call/Create/EOFCreate... delegates to
// frame driver"); the current Step call returns immediately after.
func (in *Interpreter) ScheduleCall(c *CallInputs) {
	in.action = InterpreterAction{Kind: ActionCall, Call: c}
}

func (in *Interpreter) ScheduleCreate(c *CreateInputs) {
	in.action = InterpreterAction{Kind: ActionCreate, Create: c}
}

// Step runs instructions until a suspension point (halt or a scheduled
// call/create) and returns the resulting action (§9 "the interpreter
// returns an InterpreterAction value at suspension points"; no recursion
// between frames is introduced here — nested calls are always handed back
// to the caller).
func (in *Interpreter) Step(memory *SharedMemory, table *JumpTable, host Host) InterpreterAction {
	in.action = InterpreterAction{}
	for in.action.Kind == ActionNone {
		pc := in.ip
		gasBefore := in.Gas.Remaining()
		op := in.opcodeAt(pc)
		op_ := table[op]
		if op_ == nil {
			in.Halt(ResultOpcodeNotFound)
			in.trace(pc, op, gasBefore, memory, ErrOpcodeNotFound)
			break
		}
		if op_.writes && in.IsStatic {
			in.Halt(ResultStateChangeDuringStaticCall)
			in.trace(pc, op, gasBefore, memory, ErrWriteProtection)
			break
		}
		if in.Stack.Len() < op_.minStack {
			in.Halt(ResultStackUnderflow)
			in.trace(pc, op, gasBefore, memory, ErrStackUnderflow)
			break
		}
		if in.Stack.Len() > op_.maxStack {
			in.Halt(ResultStackOverflow)
			in.trace(pc, op, gasBefore, memory, ErrStackOverflow)
			break
		}
		if !in.Gas.RecordCost(op_.constantGas) {
			in.Halt(ResultOutOfGas)
			in.trace(pc, op, gasBefore, memory, ErrOutOfGas)
			break
		}
		if op_.memorySize != nil {
			size, overflow := op_.memorySize(in.Stack)
			if overflow {
				in.Halt(ResultOutOfGas)
				in.trace(pc, op, gasBefore, memory, ErrOutOfGas)
				break
			}
			wordSize := toWordSize(size)
			if wordSize > uint64(memory.Len()) {
				cost := MemoryGasCost(wordSize) - MemoryGasCost(uint64(memory.Len()))
				if !in.Gas.RecordCost(cost) {
					in.Halt(ResultOutOfGas)
					in.trace(pc, op, gasBefore, memory, ErrOutOfGas)
					break
				}
				memory.Resize(wordSize)
			}
		}
		if op_.dynamicGas != nil {
			cost, err := op_.dynamicGas(in, host, memory)
			if err != nil {
				in.Halt(ResultFatalExternalError)
				in.trace(pc, op, gasBefore, memory, err)
				break
			}
			if !in.Gas.RecordCost(cost) {
				in.Halt(ResultOutOfGas)
				in.trace(pc, op, gasBefore, memory, ErrOutOfGas)
				break
			}
		}

		in.ip++
		op_.execute(in, host, memory)
		in.trace(pc, op, gasBefore, memory, nil)
	}
	return in.action
}

// trace reports one opcode step to the attached tracer, if any (§9 AMBIENT
// STACK). gasBefore is the gas remaining when the step started; the cost
// reported is whatever was actually charged before the step ended, success
// or not.
func (in *Interpreter) trace(pc uint64, op OpCode, gasBefore uint64, memory *SharedMemory, err error) {
	if in.Tracer == nil {
		return
	}
	cost := gasBefore - in.Gas.Remaining()
	in.Tracer.CaptureState(pc, op, gasBefore, cost, in.Stack, memory, in.Depth, err)
}

// isEOF reports whether the frame is running an EOF container, used by
// handlers shared between legacy and EOF (e.g. DATALOAD only valid there).
func (in *Interpreter) isEOF() bool { return in.Bytecode.Kind == EOFCode }
