package vm

import "github.com/holiman/uint256"

// SharedMemory is the single growable byte buffer the frame driver hands to
// whichever interpreter is currently running (§3, §4.4). Unlike the
// teacher's core/vm/memory.go, which allocates a fresh Memory per Run call,
// SharedMemory spans the entire call-loop invocation: every nested frame
// pushes a checkpoint marking where its private context begins, and
// free_context drops that context's bytes at no gas cost by simply
// truncating the buffer back to the checkpoint. This lets sibling frames
// reuse the same backing array instead of allocating a new buffer per call
// depth, the design §4.4 and §9 ("Scoped resources") both call for.
type SharedMemory struct {
	buffer         []byte
	checkpoints    []int
	lastCheckpoint int
}

// NewSharedMemory returns an empty SharedMemory with one implicit top-level
// context starting at offset 0.
func NewSharedMemory() *SharedMemory {
	return &SharedMemory{buffer: make([]byte, 0, 4096)}
}

// NewContext pushes the current buffer length as a new checkpoint: the
// callee's memory context begins empty, from that offset.
func (m *SharedMemory) NewContext() {
	m.checkpoints = append(m.checkpoints, m.lastCheckpoint)
	m.lastCheckpoint = len(m.buffer)
}

// FreeContext pops the most recent checkpoint, truncating the buffer back
// to it. The callee's memory is discarded at no gas cost (§4.4 invariant 4:
// after FreeContext, the parent's context memory is exactly what it was
// before the matching NewContext).
func (m *SharedMemory) FreeContext() {
	m.buffer = m.buffer[:m.lastCheckpoint]
	n := len(m.checkpoints)
	m.lastCheckpoint = m.checkpoints[n-1]
	m.checkpoints = m.checkpoints[:n-1]
}

// Len returns the length of the current context's memory, in bytes.
func (m *SharedMemory) Len() int { return len(m.buffer) - m.lastCheckpoint }

// Resize grows the current context to n bytes (zero-filled), rounded by the
// caller to a 32-byte word boundary before calling. Resize never shrinks.
func (m *SharedMemory) Resize(n uint64) {
	target := m.lastCheckpoint + int(n)
	if target <= len(m.buffer) {
		return
	}
	if target <= cap(m.buffer) {
		old := len(m.buffer)
		m.buffer = m.buffer[:target]
		clear(m.buffer[old:])
		return
	}
	grown := make([]byte, target)
	copy(grown, m.buffer)
	m.buffer = grown
}

// context returns the slice of the buffer belonging to the current context.
func (m *SharedMemory) context() []byte { return m.buffer[m.lastCheckpoint:] }

// Slice returns a copy of context bytes [offset, offset+size).
func (m *SharedMemory) Slice(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, m.context()[offset:offset+size])
	return out
}

// SliceRef returns a direct reference into the context bytes
// [offset, offset+size), valid until the next Resize/FreeContext.
func (m *SharedMemory) SliceRef(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.context()[offset : offset+size]
}

// Set copies value into the context at offset.
func (m *SharedMemory) Set(offset uint64, value []byte) {
	if len(value) == 0 {
		return
	}
	copy(m.context()[offset:offset+uint64(len(value))], value)
}

// SetData copies value[dataOffset:dataOffset+size] into the context at
// memOffset, zero-filling any portion of the source that runs past the end
// of value (as CALLDATACOPY/CODECOPY/EXTCODECOPY require).
func (m *SharedMemory) SetData(memOffset, dataOffset, size uint64, value []byte) {
	dst := m.context()[memOffset : memOffset+size]
	if dataOffset >= uint64(len(value)) {
		clear(dst)
		return
	}
	n := copy(dst, value[dataOffset:])
	clear(dst[n:])
}

// Set32 writes a 256-bit word at offset, big-endian, zero-padded to 32
// bytes (used by MSTORE).
func (m *SharedMemory) Set32(offset uint64, val *uint256.Int) {
	dst := m.context()[offset : offset+32]
	clear(dst)
	val.WriteToSlice(dst)
}

// Copy performs MCOPY-style overlap-safe copying within the current
// context.
func (m *SharedMemory) Copy(dst, src, size uint64) {
	if size == 0 {
		return
	}
	ctx := m.context()
	copy(ctx[dst:dst+size], ctx[src:src+size])
}

// MemoryGasCost computes the quadratic memory-expansion cost for growing to
// `size` bytes, per §4.1: 3*w + w**2/512 where w = ceil(size/32).
func MemoryGasCost(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	w := (size + 31) / 32
	linear := w * GasMemory
	quadratic := (w * w) / 512
	return linear + quadratic
}

// toWordSize rounds size up to the next 32-byte boundary.
func toWordSize(size uint64) uint64 {
	if size > (1<<64-1)-31 {
		return (1<<64 - 1) / 32
	}
	return (size + 31) / 32 * 32
}
