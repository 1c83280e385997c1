package precompiles

import (
	"math/big"

	"github.com/cockroachdb/errors"
	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
)

// BN254 (alt_bn128) precompiles, addresses 0x06-0x08 (EIP-196/197, gas per
// EIP-1108), backed by github.com/consensys/gnark-crypto like the EIP-2537
// contracts in bls12381.go — the pack's go-ethereum and erigon lineages use
// the same library for both curve families. The teacher's own
// pkg/core/vm/precompiles.go bn256 entries are explicit stubs; its
// pkg/crypto/bn254*.go pure-math/big field tower is not carried here (see
// DESIGN.md). gnark's bn254 wire format matches the EVM's exactly: 32-byte
// big-endian affine coordinates, G2 with the imaginary Fp2 component first,
// all-zero encoding for the point at infinity, and SetBytes rejecting
// off-curve and (for G2) out-of-subgroup points.

const (
	bn254G1PointSize = 64
	bn254G2PointSize = 128
	bn254PairSize    = bn254G1PointSize + bn254G2PointSize
)

var (
	errBN254InvalidInput = errors.New("bn254: invalid input length")
	errBN254InvalidPoint = errors.New("bn254: invalid point encoding")
)

func bn254DecodeG1(in []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if _, err := p.SetBytes(in); err != nil {
		return p, errors.Mark(err, errBN254InvalidPoint)
	}
	return p, nil
}

func bn254DecodeG2(in []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if _, err := p.SetBytes(in); err != nil {
		return p, errors.Mark(err, errBN254InvalidPoint)
	}
	return p, nil
}

type bn254AddContract struct{}

func (c *bn254AddContract) RequiredGas(input []byte) uint64 { return 150 }

// Run adds two G1 points. Short input is zero-padded (EIP-196: missing
// trailing bytes read as zero, and the all-zero point is infinity).
func (c *bn254AddContract) Run(input []byte) ([]byte, error) {
	input = padRight(input, 2*bn254G1PointSize)
	a, err := bn254DecodeG1(input[:bn254G1PointSize])
	if err != nil {
		return nil, err
	}
	b, err := bn254DecodeG1(input[bn254G1PointSize : 2*bn254G1PointSize])
	if err != nil {
		return nil, err
	}
	var sum bn254.G1Affine
	sum.Add(&a, &b)
	raw := sum.RawBytes()
	return raw[:], nil
}

type bn254MulContract struct{}

func (c *bn254MulContract) RequiredGas(input []byte) uint64 { return 6000 }

func (c *bn254MulContract) Run(input []byte) ([]byte, error) {
	input = padRight(input, bn254G1PointSize+32)
	p, err := bn254DecodeG1(input[:bn254G1PointSize])
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(input[bn254G1PointSize : bn254G1PointSize+32])
	var res bn254.G1Affine
	res.ScalarMultiplication(&p, scalar)
	raw := res.RawBytes()
	return raw[:], nil
}

type bn254PairingContract struct{}

func (c *bn254PairingContract) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / bn254PairSize
	return 45000 + 34000*k
}

// Run checks Π e(a_i, b_i) == 1 over k (G1, G2) pairs. Empty input is the
// empty product and succeeds (EIP-197).
func (c *bn254PairingContract) Run(input []byte) ([]byte, error) {
	if len(input)%bn254PairSize != 0 {
		return nil, errBN254InvalidInput
	}
	k := len(input) / bn254PairSize
	if k == 0 {
		out := make([]byte, 32)
		out[31] = 1
		return out, nil
	}
	g1s := make([]bn254.G1Affine, 0, k)
	g2s := make([]bn254.G2Affine, 0, k)
	for off := 0; off < len(input); off += bn254PairSize {
		p, err := bn254DecodeG1(input[off : off+bn254G1PointSize])
		if err != nil {
			return nil, err
		}
		q, err := bn254DecodeG2(input[off+bn254G1PointSize : off+bn254PairSize])
		if err != nil {
			return nil, err
		}
		g1s = append(g1s, p)
		g2s = append(g2s, q)
	}
	out := make([]byte, 32)
	ok, err := bn254.PairingCheck(g1s, g2s)
	if err != nil {
		return nil, err
	}
	if ok {
		out[31] = 1
	}
	return out, nil
}
