package vm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/types"
)

// EVMLogger captures EVM execution traces step by step (§9 AMBIENT STACK
// "the one place the teacher does log from inside core/vm"). It is the
// only observation point the interpreter itself exposes; everything else
// about a transaction is reconstructed from its ExecutionResult and
// StateDiff, never logged.
type EVMLogger interface {
	// CaptureStart is called once, at the beginning of the top-level frame.
	CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *uint256.Int)
	// CaptureState is called after each opcode step (§4.6), whether it
	// succeeded or ended the frame.
	CaptureState(pc uint64, op OpCode, gas, cost uint64, stack *Stack, memory *SharedMemory, depth int, err error)
	// CaptureEnd is called once, at the end of the top-level frame.
	CaptureEnd(output []byte, gasUsed uint64, err error)
}

// StructLogEntry is a single step recorded by StructuredLogger, mirroring
// the teacher's StructLogEntry (pkg/core/vm/tracer.go) with uint256.Int
// stack words in place of *big.Int.
type StructLogEntry struct {
	Pc      uint64
	Op      OpCode
	Gas     uint64
	GasCost uint64
	Depth   int
	Stack   []uint256.Int
	Err     error
}

// StructuredLogger collects step-by-step EVM execution logs in memory,
// the simplest EVMLogger implementation (§9 AMBIENT STACK "vm.EVMLogger /
// vm.StructuredLogger, a pluggable step tracer, exactly in the teacher's
// shape").
type StructuredLogger struct {
	Logs    []StructLogEntry
	output  []byte
	err     error
	gasUsed uint64
}

// NewStructuredLogger returns a new StructuredLogger.
func NewStructuredLogger() *StructuredLogger {
	return &StructuredLogger{}
}

func (t *StructuredLogger) CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *uint256.Int) {
}

func (t *StructuredLogger) CaptureState(pc uint64, op OpCode, gas, cost uint64, stack *Stack, memory *SharedMemory, depth int, err error) {
	data := stack.Data()
	stackCopy := make([]uint256.Int, len(data))
	copy(stackCopy, data)

	t.Logs = append(t.Logs, StructLogEntry{
		Pc:      pc,
		Op:      op,
		Gas:     gas,
		GasCost: cost,
		Depth:   depth,
		Stack:   stackCopy,
		Err:     err,
	})
}

func (t *StructuredLogger) CaptureEnd(output []byte, gasUsed uint64, err error) {
	t.output = output
	t.gasUsed = gasUsed
	t.err = err
}

// Output returns the return data from the traced execution.
func (t *StructuredLogger) Output() []byte { return t.output }

// GasUsed returns the total gas consumed by the traced execution.
func (t *StructuredLogger) GasUsed() uint64 { return t.gasUsed }

// Error returns the error from the traced execution, if any.
func (t *StructuredLogger) Error() error { return t.err }
