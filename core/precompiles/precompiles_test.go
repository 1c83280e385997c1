package precompiles

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestSha256Precompile(t *testing.T) {
	c := &sha256Contract{}
	if g := c.RequiredGas(nil); g != 60 {
		t.Errorf("RequiredGas(empty) = %d, want 60", g)
	}
	if g := c.RequiredGas(make([]byte, 33)); g != 60+2*12 {
		t.Errorf("RequiredGas(33 bytes) = %d, want 84", g)
	}

	out, err := c.Run([]byte("abc"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := fromHex(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	if !bytes.Equal(out, want) {
		t.Errorf("sha256(abc) = %x, want %x", out, want)
	}
}

func TestRipemd160Precompile(t *testing.T) {
	c := &ripemd160Contract{}
	out, err := c.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := make([]byte, 32)
	copy(want[12:], fromHex(t, "9c1185a5c5e9fc54612808977ee8f548b2258d31"))
	if !bytes.Equal(out, want) {
		t.Errorf("ripemd160(empty) = %x, want %x", out, want)
	}
	if g := c.RequiredGas(nil); g != 600 {
		t.Errorf("RequiredGas(empty) = %d, want 600", g)
	}
}

func TestIdentityPrecompile(t *testing.T) {
	c := &identityContract{}
	in := []byte{0x01, 0x02, 0x03}
	out, err := c.Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Errorf("identity = %x, want %x", out, in)
	}
	if g := c.RequiredGas(in); g != 15+3 {
		t.Errorf("RequiredGas(3 bytes) = %d, want 18", g)
	}
}

func TestModexpPrecompile(t *testing.T) {
	// 3^2 mod 5 = 4, all operands one byte long.
	input := make([]byte, 96, 99)
	input[31] = 1 // base length
	input[63] = 1 // exponent length
	input[95] = 1 // modulus length
	input = append(input, 0x03, 0x02, 0x05)

	c := &modexpContract{eip2565: true}
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != 0x04 {
		t.Errorf("3^2 mod 5 = %x, want 04", out)
	}
	if g := c.RequiredGas(input); g != 200 {
		t.Errorf("RequiredGas = %d, want the EIP-2565 floor of 200", g)
	}
}

func TestModexpZeroModulus(t *testing.T) {
	input := make([]byte, 96, 98)
	input[31] = 1
	input[63] = 1
	input[95] = 1
	input = append(input, 0x03, 0x02) // modulus bytes absent: zero

	c := &modexpContract{eip2565: true}
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != 0x00 {
		t.Errorf("x mod 0 output = %x, want a zero byte", out)
	}
}

func TestSetForkGating(t *testing.T) {
	cases := []struct {
		spec params.SpecId
		want int
	}{
		{params.FRONTIER, 4},
		{params.BYZANTIUM, 8},
		{params.ISTANBUL, 9},
		{params.CANCUN, 10},
		{params.PRAGUE, 17},
	}
	for _, c := range cases {
		s := NewSet(params.RulesFor(c.spec))
		if got := len(s.Addresses()); got != c.want {
			t.Errorf("%v: %d precompiles, want %d", c.spec, got, c.want)
		}
	}
}

func TestSetAddressing(t *testing.T) {
	s := NewSet(params.RulesFor(params.CANCUN))
	if !s.IsPrecompile(types.BytesToAddress([]byte{0x01})) {
		t.Error("0x01 must be a precompile")
	}
	if s.IsPrecompile(types.BytesToAddress([]byte{0x0b})) {
		t.Error("0x0b must not exist before Prague")
	}
	if s.IsPrecompile(types.Address{0xaa}) {
		t.Error("arbitrary address reported as precompile")
	}
}

func TestSetRunGasAccounting(t *testing.T) {
	s := NewSet(params.RulesFor(params.CANCUN))
	identity := types.BytesToAddress([]byte{0x04})

	out, gasLeft, err := s.Run(identity, []byte{0xab}, 100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0] != 0xab || gasLeft != 100-18 {
		t.Errorf("Run = (%x, %d), want (ab, 82)", out, gasLeft)
	}

	if _, _, err := s.Run(identity, []byte{0xab}, 10); err != ErrOutOfGas {
		t.Errorf("underfunded Run error = %v, want ErrOutOfGas", err)
	}
	if _, _, err := s.Run(types.Address{0xaa}, nil, 100); err != ErrNotAPrecompile {
		t.Errorf("unknown address error = %v, want ErrNotAPrecompile", err)
	}
}

func TestBLSInputValidation(t *testing.T) {
	g1add := &blsG1AddContract{}
	if _, err := g1add.Run(make([]byte, 10)); err != errBLSInvalidInputLength {
		t.Errorf("short G1 add input error = %v, want errBLSInvalidInputLength", err)
	}

	// A nonzero high half of a padded field element is malformed.
	bad := make([]byte, 2*blsG1PointSize)
	bad[0] = 0x01
	if _, err := g1add.Run(bad); err == nil {
		t.Error("G1 add accepted a field element with nonzero padding")
	}

	pairing := &blsPairingCheckContract{}
	if _, err := pairing.Run(nil); err != errBLSInvalidInputLength {
		t.Errorf("empty pairing input error = %v, want errBLSInvalidInputLength", err)
	}
	if g := pairing.RequiredGas(make([]byte, blsG1PointSize+blsG2PointSize)); g != gasBLSPairingBase+gasBLSPairingPer {
		t.Errorf("pairing gas for one pair = %d, want %d", g, gasBLSPairingBase+gasBLSPairingPer)
	}
}

func TestBLSG1AddInfinity(t *testing.T) {
	// inf + inf = inf: the all-zero encoding is the point at infinity and
	// must round-trip through the add contract unchanged.
	in := make([]byte, 2*blsG1PointSize)
	out, err := (&blsG1AddContract{}).Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(out, make([]byte, blsG1PointSize)) {
		t.Errorf("inf+inf = %x, want all zeros", out)
	}
}

func TestBLSMSMDiscount(t *testing.T) {
	if d := blsMSMDiscount(1, 519); d != 1000 {
		t.Errorf("discount(1) = %d, want 1000 (no discount for a single pair)", d)
	}
	if d := blsMSMDiscount(128, 519); d != 519 {
		t.Errorf("discount(128) = %d, want the table floor 519", d)
	}
	if d := blsMSMDiscount(1000, 524); d != 524 {
		t.Errorf("discount beyond the table = %d, want the floor 524", d)
	}
	for k := uint64(2); k < 128; k++ {
		d := blsMSMDiscount(k, 519)
		if d >= 1000 || d < 519 {
			t.Fatalf("discount(%d) = %d out of range", k, d)
		}
	}
}

// alt_bn128 test points: the G1 generator (1, 2), its double, its negation,
// and the standard G2 generator.
var (
	bn254G1Gen = "0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002"
	bn254G1GenDoubled = "030644e72e131a029b85045b68181585d97816a916871ca8d3c208c16d87cfd3" +
		"15ed738c0e0a7c92e7845f96b2ae9c0a68a6a449e3538fc7ff3ebf7a5a18a2c4"
	bn254G1GenNeg = "0000000000000000000000000000000000000000000000000000000000000001" +
		"30644e72e131a029b85045b68181585d97816a916871ca8d3c208c16d87cfd45"
	bn254G2Gen = "198e9393920d483a7260bfb731fb5d25f1aa493335a9e71297e485b7aef312c2" +
		"1800deef121f1e76426a00665e5c4479674322d4f75edadd46debd5cd992f6ed" +
		"090689d0585ff075ec9e99ad690c3395bc4b313370b38ef355acdadcd122975b" +
		"12c85ea5db8c6deb4aab71808dcb408fe3d1e7690c43d37b4ce6cc0166fa7daa"
)

func TestBn254Add(t *testing.T) {
	c := &bn254AddContract{}

	// G + G = 2G.
	out, err := c.Run(fromHex(t, bn254G1Gen+bn254G1Gen))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(out, fromHex(t, bn254G1GenDoubled)) {
		t.Errorf("G+G = %x, want %s", out, bn254G1GenDoubled)
	}

	// inf + inf = inf; a short (zero-padded) input is the same point.
	out, err = c.Run(nil)
	if err != nil {
		t.Fatalf("Run(empty): %v", err)
	}
	if !bytes.Equal(out, make([]byte, 64)) {
		t.Errorf("inf+inf = %x, want all zeros", out)
	}

	// A point off the curve is rejected.
	bad := fromHex(t, bn254G1Gen)
	bad[63] = 0x03
	if _, err := c.Run(append(bad, fromHex(t, bn254G1Gen)...)); err == nil {
		t.Error("off-curve point accepted")
	}
}

func TestBn254ScalarMul(t *testing.T) {
	c := &bn254MulContract{}
	input := append(fromHex(t, bn254G1Gen), make([]byte, 32)...)
	input[len(input)-1] = 2 // scalar 2
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(out, fromHex(t, bn254G1GenDoubled)) {
		t.Errorf("2*G = %x, want %s", out, bn254G1GenDoubled)
	}
}

func TestBn254Pairing(t *testing.T) {
	c := &bn254PairingContract{}

	one32 := make([]byte, 32)
	one32[31] = 1

	// Empty input is the empty product: success.
	out, err := c.Run(nil)
	if err != nil {
		t.Fatalf("Run(empty): %v", err)
	}
	if !bytes.Equal(out, one32) {
		t.Errorf("empty pairing = %x, want 1", out)
	}

	// e(G, H) * e(-G, H) == 1.
	input := fromHex(t, bn254G1Gen+bn254G2Gen+bn254G1GenNeg+bn254G2Gen)
	out, err = c.Run(input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(out, one32) {
		t.Errorf("e(G,H)*e(-G,H) = %x, want 1", out)
	}

	// A single pair of generators does not pair to one.
	out, err = c.Run(fromHex(t, bn254G1Gen+bn254G2Gen))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(out, make([]byte, 32)) {
		t.Errorf("e(G,H) = %x, want 0", out)
	}

	// Length not a multiple of a pair is rejected outright.
	if _, err := c.Run(make([]byte, 191)); err == nil {
		t.Error("ragged pairing input accepted")
	}

	if g := c.RequiredGas(input); g != 45000+2*34000 {
		t.Errorf("RequiredGas(2 pairs) = %d, want %d", g, 45000+2*34000)
	}
}
