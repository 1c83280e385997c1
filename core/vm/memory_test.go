package vm

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

func TestSharedMemoryContextLocality(t *testing.T) {
	m := NewSharedMemory()
	m.Resize(64)
	pattern := bytes.Repeat([]byte{0xab}, 64)
	m.Set(0, pattern)

	m.NewContext()
	if m.Len() != 0 {
		t.Fatalf("child context Len() = %d, want 0", m.Len())
	}
	m.Resize(32)
	m.Set(0, bytes.Repeat([]byte{0xff}, 32))
	m.FreeContext()

	if m.Len() != 64 {
		t.Fatalf("parent Len() after FreeContext = %d, want 64", m.Len())
	}
	if !bytes.Equal(m.Slice(0, 64), pattern) {
		t.Error("parent context memory changed across a child context lifetime")
	}
}

func TestSharedMemoryNestedContexts(t *testing.T) {
	m := NewSharedMemory()
	m.Resize(32)
	m.Set(0, []byte{0x01})

	m.NewContext()
	m.Resize(32)
	m.Set(0, []byte{0x02})

	m.NewContext()
	m.Resize(32)
	m.Set(0, []byte{0x03})
	if m.Slice(0, 1)[0] != 0x03 {
		t.Fatal("innermost context does not see its own write")
	}

	m.FreeContext()
	if m.Slice(0, 1)[0] != 0x02 {
		t.Fatal("middle context corrupted by inner context")
	}
	m.FreeContext()
	if m.Slice(0, 1)[0] != 0x01 {
		t.Fatal("outer context corrupted by nested contexts")
	}
}

func TestSharedMemorySetData(t *testing.T) {
	m := NewSharedMemory()
	m.Resize(32)

	src := []byte{0x11, 0x22, 0x33}
	m.SetData(0, 1, 4, src)
	want := []byte{0x22, 0x33, 0x00, 0x00}
	if !bytes.Equal(m.Slice(0, 4), want) {
		t.Errorf("SetData = %x, want %x", m.Slice(0, 4), want)
	}

	// Source offset entirely past the data zero-fills.
	m.SetData(8, 10, 4, src)
	if !bytes.Equal(m.Slice(8, 4), make([]byte, 4)) {
		t.Error("SetData past source end must zero-fill")
	}
}

func TestSharedMemorySet32(t *testing.T) {
	m := NewSharedMemory()
	m.Resize(64)
	v := uint256.NewInt(0xdeadbeef)
	m.Set32(16, v)

	got := m.Slice(16, 32)
	if got[31] != 0xef || got[30] != 0xbe || got[29] != 0xad || got[28] != 0xde {
		t.Errorf("Set32 wrote %x", got)
	}
	for _, b := range got[:28] {
		if b != 0 {
			t.Fatal("Set32 must zero-pad the leading bytes")
		}
	}
}

func TestMemoryGasCost(t *testing.T) {
	cases := []struct {
		size uint64
		want uint64
	}{
		{0, 0},
		{1, 3},        // 1 word: 3*1 + 1/512
		{32, 3},       // still 1 word
		{33, 6},       // 2 words
		{1024, 98},    // 32 words: 96 + 1024/512
		{32 * 1024, 5120}, // 1024 words: 3072 + 2048
	}
	for _, c := range cases {
		if got := MemoryGasCost(c.size); got != c.want {
			t.Errorf("MemoryGasCost(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestToWordSize(t *testing.T) {
	if toWordSize(0) != 0 || toWordSize(1) != 32 || toWordSize(32) != 32 || toWordSize(33) != 64 {
		t.Error("toWordSize rounding is wrong")
	}
}
