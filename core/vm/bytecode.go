package vm

import "github.com/bits-and-blooms/bitset"

// BytecodeKind tags which of the three bytecode variants (§3 "Bytecode") a
// Bytecode value holds.
type BytecodeKind uint8

const (
	LegacyRaw BytecodeKind = iota
	LegacyAnalyzed
	EOFCode
)

// bytecodePad is the number of trailing zero bytes appended after analysis
// so a PUSH32 at the very end of the code can always read 32 lookahead
// bytes without a bounds check (§4.2).
const bytecodePad = 33

// Bytecode is the tagged union described in §3. A LegacyRaw value is
// exactly what was read from (or about to be written to) the database; it
// is analyzed exactly once, on first execution, into LegacyAnalyzed, whose
// jump bitmap and padded bytes are then immutable and shareable across
// every future invocation of that code (§9 "Shared-ownership graphs").
type Bytecode struct {
	Kind BytecodeKind

	// LegacyRaw / LegacyAnalyzed
	raw        []byte // original, unpadded bytes (both variants)
	padded     []byte // only set once analyzed: raw + 33 zero bytes
	jumpBitmap *bitset.BitSet

	// EOF
	Container *EOFContainer
}

// NewLegacyRawBytecode wraps raw, unanalyzed code.
func NewLegacyRawBytecode(code []byte) *Bytecode {
	return &Bytecode{Kind: LegacyRaw, raw: code}
}

// NewEOFBytecode wraps an already-parsed, already-validated EOF container.
func NewEOFBytecode(c *EOFContainer, raw []byte) *Bytecode {
	return &Bytecode{Kind: EOFCode, Container: c, raw: raw}
}

// Original returns the code as originally stored (unpadded, for CODECOPY /
// EXTCODECOPY / EXTCODEHASH, which must not see the analysis padding).
func (b *Bytecode) Original() []byte { return b.raw }

// Len returns len(Original()).
func (b *Bytecode) Len() int { return len(b.raw) }

// ToAnalysed produces (or returns the cached) LegacyAnalyzed form: padded
// bytes plus a jump-destination bitmap, per §4.2's algorithm. Calling this
// on an already-analyzed or EOF bytecode is a no-op.
func (b *Bytecode) ToAnalysed() *Bytecode {
	if b.Kind != LegacyRaw {
		return b
	}
	padded := make([]byte, len(b.raw)+bytecodePad)
	copy(padded, b.raw)
	bm := analyzeJumpdests(b.raw)
	return &Bytecode{Kind: LegacyAnalyzed, raw: b.raw, padded: padded, jumpBitmap: bm}
}

// analyzeJumpdests walks the code once, producing a bitmap where bit i is
// set iff byte i is a JUMPDEST opcode and was not consumed as PUSH
// immediate data of a preceding instruction (§4.2, §8 invariant 5).
func analyzeJumpdests(code []byte) *bitset.BitSet {
	bm := bitset.New(uint(len(code)))
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		if op == JUMPDEST {
			bm.Set(uint(pc))
			pc++
			continue
		}
		if op.IsPush() {
			pc += uint64(op.PushSize()) + 1
			continue
		}
		pc++
	}
	return bm
}

// IsValidJump reports whether dest is a valid JUMPDEST in analyzed legacy
// code (§8 invariant 5). Unanalyzed/EOF bytecode has no jump bitmap and
// always reports false; callers must analyze before jumping.
func (b *Bytecode) IsValidJump(dest uint64) bool {
	if b.Kind != LegacyAnalyzed || dest >= uint64(len(b.raw)) {
		return false
	}
	return b.jumpBitmap.Test(uint(dest))
}

// CodeAt returns the opcode at pc, reading from the zero-padded buffer when
// analyzed (so PUSH lookahead near the end never needs a bounds check) and
// falling back to STOP past the end of raw/EOF code.
func (b *Bytecode) CodeAt(pc uint64) OpCode {
	if b.Kind == LegacyAnalyzed {
		return OpCode(b.padded[pc])
	}
	if pc < uint64(len(b.raw)) {
		return OpCode(b.raw[pc])
	}
	return STOP
}

// PushData returns the n bytes of immediate data following a PUSH opcode at
// pc+1..pc+n, zero-extended past the end of code.
func (b *Bytecode) PushData(pc uint64, n int) []byte {
	src := b.raw
	if b.Kind == LegacyAnalyzed {
		src = b.padded
	}
	start := pc + 1
	if start >= uint64(len(src)) {
		return make([]byte, n)
	}
	end := start + uint64(n)
	if end > uint64(len(src)) {
		out := make([]byte, n)
		copy(out, src[start:])
		return out
	}
	return src[start:end]
}
