package vm

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// runLegacy steps a standalone legacy program to its first suspension point.
// None of the programs under test touch the host, so a nil Host is fine.
func runLegacy(t *testing.T, code []byte, gas uint64) (*Interpreter, *InterpreterResult) {
	t.Helper()
	contract := NewContract(types.Address{0x01}, types.Address{0x02}, uint256.Int{}, nil,
		NewLegacyRawBytecode(code).ToAnalysed(), types.Hash{})
	in := NewInterpreter(contract, NewGas(gas), false)
	mem := NewSharedMemory()
	table := NewJumpTable(params.RulesFor(params.CANCUN))
	action := in.Step(mem, table, nil)
	if action.Kind != ActionReturn {
		t.Fatalf("action.Kind = %v, want ActionReturn", action.Kind)
	}
	return in, action.Return
}

func TestInterpreterArithmetic(t *testing.T) {
	// PUSH1 2 PUSH1 3 ADD STOP
	code := []byte{byte(PUSH1), 0x02, byte(PUSH1), 0x03, byte(ADD), byte(STOP)}
	in, ret := runLegacy(t, code, 100)

	if ret.Result != ResultStop {
		t.Fatalf("Result = %v, want ResultStop", ret.Result)
	}
	if top := in.Stack.Peek(); top.Uint64() != 5 {
		t.Errorf("stack top = %d, want 5", top.Uint64())
	}
	if spent := in.Gas.Spent(); spent != 9 {
		t.Errorf("gas spent = %d, want 9 (3+3+3)", spent)
	}
}

func TestInterpreterValidJump(t *testing.T) {
	// PUSH1 3 JUMP JUMPDEST STOP
	code := []byte{byte(PUSH1), 0x03, byte(JUMP), byte(JUMPDEST), byte(STOP)}
	_, ret := runLegacy(t, code, 100)
	if ret.Result != ResultStop {
		t.Errorf("Result = %v, want ResultStop", ret.Result)
	}
}

func TestInterpreterInvalidJump(t *testing.T) {
	// PUSH1 4 JUMP — destination 4 is STOP, not a JUMPDEST.
	code := []byte{byte(PUSH1), 0x04, byte(JUMP), byte(JUMPDEST), byte(STOP)}
	_, ret := runLegacy(t, code, 100)
	if ret.Result != ResultInvalidJump {
		t.Errorf("Result = %v, want ResultInvalidJump", ret.Result)
	}
}

func TestInterpreterOutOfGas(t *testing.T) {
	code := []byte{byte(PUSH1), 0x01, byte(PUSH1), 0x02, byte(ADD), byte(STOP)}
	_, ret := runLegacy(t, code, 5)
	if ret.Result != ResultOutOfGas {
		t.Errorf("Result = %v, want ResultOutOfGas", ret.Result)
	}
}

func TestInterpreterStackOverflow(t *testing.T) {
	code := make([]byte, 0, 2*(StackLimit+1))
	for i := 0; i <= StackLimit; i++ {
		code = append(code, byte(PUSH1), 0x00)
	}
	in, ret := runLegacy(t, code, 10000)
	if ret.Result != ResultStackOverflow {
		t.Fatalf("Result = %v, want ResultStackOverflow", ret.Result)
	}
	if in.Stack.Len() != StackLimit {
		t.Errorf("stack len = %d, want %d at overflow", in.Stack.Len(), StackLimit)
	}
}

func TestInterpreterStackUnderflow(t *testing.T) {
	code := []byte{byte(ADD), byte(STOP)}
	_, ret := runLegacy(t, code, 100)
	if ret.Result != ResultStackUnderflow {
		t.Errorf("Result = %v, want ResultStackUnderflow", ret.Result)
	}
}

func TestInterpreterReturnOutput(t *testing.T) {
	// PUSH1 0x2A PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN
	code := []byte{
		byte(PUSH1), 0x2a, byte(PUSH1), 0x00, byte(MSTORE),
		byte(PUSH1), 0x20, byte(PUSH1), 0x00, byte(RETURN),
	}
	_, ret := runLegacy(t, code, 1000)
	if ret.Result != ResultReturn {
		t.Fatalf("Result = %v, want ResultReturn", ret.Result)
	}
	if len(ret.Output) != 32 || ret.Output[31] != 0x2a {
		t.Errorf("Output = %x, want 32 bytes ending in 2a", ret.Output)
	}
}

// runEOF steps a single-section EOF program built from code.
func runEOF(t *testing.T, container *EOFContainer, gas uint64) (*Interpreter, *InterpreterResult) {
	t.Helper()
	bytecode := NewEOFBytecode(container, SerializeEOF(container))
	contract := NewContract(types.Address{0x01}, types.Address{0x02}, uint256.Int{}, nil, bytecode, types.Hash{})
	in := NewInterpreter(contract, NewGas(gas), false)
	mem := NewSharedMemory()
	table := NewJumpTable(params.RulesFor(params.CANCUN))
	action := in.Step(mem, table, nil)
	if action.Kind != ActionReturn {
		t.Fatalf("action.Kind = %v, want ActionReturn", action.Kind)
	}
	return in, action.Return
}

// TestInterpreterRjumpv pins down RJUMPV's dispatch: each in-range selector
// lands on its case target, and an out-of-range selector falls through to
// the instruction after the jump table.
func TestInterpreterRjumpv(t *testing.T) {
	program := func(selector byte) *EOFContainer {
		return &EOFContainer{
			Version:      EOFVersion,
			TypeSections: []TypeSection{{Inputs: 0, Outputs: eofNonReturning, MaxStackHeight: 1}},
			CodeSections: [][]byte{{
				byte(PUSH1), selector,
				byte(RJUMPV), 0x01, 0x00, 0x03, 0x00, 0x06,
				byte(PUSH1), 0xcc, byte(STOP), // fall-through
				byte(PUSH1), 0xaa, byte(STOP), // case 0
				byte(PUSH1), 0xbb, byte(STOP), // case 1
			}},
		}
	}

	cases := []struct {
		selector byte
		want     uint64
	}{
		{0, 0xaa},
		{1, 0xbb},
		{2, 0xcc}, // past the last case index: falls through
		{9, 0xcc},
	}
	for _, c := range cases {
		container := program(c.selector)
		in, ret := runEOF(t, container, 1000)
		if ret.Result != ResultStop {
			t.Fatalf("selector %d: Result = %v, want ResultStop", c.selector, ret.Result)
		}
		if top := in.Stack.Peek(); top.Uint64() != c.want {
			t.Errorf("selector %d: stack top = %#x, want %#x", c.selector, top.Uint64(), c.want)
		}
	}
}

func TestInterpreterRjump(t *testing.T) {
	// RJUMP +3 skips the PUSH1 0xCC STOP tail; the backward RJUMPI loop is
	// not exercised here, only the forward displacement math.
	container := &EOFContainer{
		Version:      EOFVersion,
		TypeSections: []TypeSection{{Inputs: 0, Outputs: eofNonReturning, MaxStackHeight: 1}},
		CodeSections: [][]byte{{
			byte(RJUMP), 0x00, 0x03,
			byte(PUSH1), 0xcc, byte(STOP),
			byte(PUSH1), 0xaa, byte(STOP),
		}},
	}
	in, ret := runEOF(t, container, 1000)
	if ret.Result != ResultStop {
		t.Fatalf("Result = %v, want ResultStop", ret.Result)
	}
	if top := in.Stack.Peek(); top.Uint64() != 0xaa {
		t.Errorf("stack top = %#x, want 0xaa", top.Uint64())
	}
}

func TestInterpreterCallfRetf(t *testing.T) {
	container := &EOFContainer{
		Version: EOFVersion,
		TypeSections: []TypeSection{
			{Inputs: 0, Outputs: eofNonReturning, MaxStackHeight: 1},
			{Inputs: 0, Outputs: 1, MaxStackHeight: 1},
		},
		CodeSections: [][]byte{
			{byte(CALLF), 0x00, 0x01, byte(STOP)},
			{byte(PUSH1), 0x2a, byte(RETF)},
		},
	}
	in, ret := runEOF(t, container, 1000)
	if ret.Result != ResultStop {
		t.Fatalf("Result = %v, want ResultStop", ret.Result)
	}
	if top := in.Stack.Peek(); top.Uint64() != 0x2a {
		t.Errorf("stack top = %#x, want 0x2a", top.Uint64())
	}
	if len(in.functionStack) != 0 {
		t.Errorf("function stack depth = %d after RETF, want 0", len(in.functionStack))
	}
}

func TestInterpreterDataSection(t *testing.T) {
	container := &EOFContainer{
		Version:      EOFVersion,
		TypeSections: []TypeSection{{Inputs: 0, Outputs: eofNonReturning, MaxStackHeight: 1}},
		CodeSections: [][]byte{{byte(DATASIZE), byte(STOP)}},
		DataSection:  []byte{0x01, 0x02, 0x03, 0x04},
	}
	in, ret := runEOF(t, container, 1000)
	if ret.Result != ResultStop {
		t.Fatalf("Result = %v, want ResultStop", ret.Result)
	}
	if top := in.Stack.Peek(); top.Uint64() != 4 {
		t.Errorf("DATASIZE = %d, want 4", top.Uint64())
	}
}

func TestInterpreterStaticWriteRejected(t *testing.T) {
	code := []byte{byte(PUSH1), 0x01, byte(PUSH1), 0x00, byte(SSTORE)}
	contract := NewContract(types.Address{0x01}, types.Address{0x02}, uint256.Int{}, nil,
		NewLegacyRawBytecode(code).ToAnalysed(), types.Hash{})
	in := NewInterpreter(contract, NewGas(100000), true)
	mem := NewSharedMemory()
	table := NewJumpTable(params.RulesFor(params.CANCUN))
	action := in.Step(mem, table, nil)
	if action.Kind != ActionReturn || action.Return.Result != ResultStateChangeDuringStaticCall {
		t.Errorf("static SSTORE result = %v, want ResultStateChangeDuringStaticCall", action.Return.Result)
	}
}
