package vm

import (
	"errors"

	"github.com/holiman/uint256"
)

// StackLimit is the maximum number of 256-bit words the operand stack can
// hold (§3, §4.5, §8 invariant 2).
const StackLimit = 1024

var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
)

// Stack is the EVM's fixed-capacity LIFO of 256-bit words (§4.5). Unlike
// the teacher's core/vm/stack.go, which stores *big.Int, words here are
// uint256.Int values held by-value in the backing slice: uint256.Int is a
// fixed [4]uint64 array with no heap indirection per word, so Push/Pop/Dup
// never allocate, and wraparound (mod 2**256) arithmetic is exact without a
// trip through big.Int's arbitrary-precision machinery. The rest of the
// teacher's module already depends on holiman/uint256 for this exact
// purpose (see SPEC_FULL.md DOMAIN STACK).
type Stack struct {
	data []uint256.Int
}

// NewStack returns a new empty stack with headroom for common cases,
// mirroring the teacher's pre-sized backing slice.
func NewStack() *Stack {
	return &Stack{data: make([]uint256.Int, 0, 16)}
}

func (st *Stack) Len() int { return len(st.data) }

// Push appends v to the top of the stack.
func (st *Stack) Push(v *uint256.Int) error {
	if len(st.data) >= StackLimit {
		return ErrStackOverflow
	}
	st.data = append(st.data, *v)
	return nil
}

// Pop removes and returns the top of the stack. Callers must check Len()
// first; Pop on an empty stack panics, matching the teacher's contract that
// the interpreter loop validates minStack before ever calling an operation.
func (st *Stack) Pop() uint256.Int {
	n := len(st.data) - 1
	v := st.data[n]
	st.data = st.data[:n]
	return v
}

// Peek returns a pointer to the top element without removing it.
func (st *Stack) Peek() *uint256.Int {
	return &st.data[len(st.data)-1]
}

// Back returns a pointer to the n-th element from the top (0 = top).
func (st *Stack) Back(n int) *uint256.Int {
	return &st.data[len(st.data)-1-n]
}

// Dup duplicates the n-th element from the top (1-indexed, as in DUPn) and
// pushes the copy.
func (st *Stack) Dup(n int) {
	st.data = append(st.data, st.data[len(st.data)-n])
}

// Swap exchanges the top element with the n-th element below it (as in
// SWAPn, n=1..16 swaps top with the (n+1)-th entry).
func (st *Stack) Swap(n int) {
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
}

// Exchange performs the EOF EXCHANGE opcode's general swap: exchanges the
// (n+1)-th and (n+m+1)-th elements from the top, leaving the top unchanged.
func (st *Stack) Exchange(n, m int) {
	top := len(st.data) - 1
	st.data[top-n], st.data[top-n-m] = st.data[top-n-m], st.data[top-n]
}

// PushSlice fills the stack top with a big-endian byte slice (PUSH1..32),
// zero-extended to 32 bytes.
func (st *Stack) PushSlice(b []byte) error {
	var v uint256.Int
	v.SetBytes(b)
	return st.Push(&v)
}

// Data exposes the backing slice bottom-to-top, for tracers.
func (st *Stack) Data() []uint256.Int { return st.data }
