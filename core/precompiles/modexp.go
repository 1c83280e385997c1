package precompiles

import "math/big"

// modexpContract is address 0x05 (EIP-198, gas formula updated by EIP-2565
// post-Berlin), grounded on the teacher's pkg/core/vm/precompiles.go
// bigModExp. eip2565 selects the cheaper post-Berlin multiplication
// complexity; the iteration-count (adjusted exponent length) formula is
// unchanged across both versions, as is the teacher's.
type modexpContract struct {
	eip2565 bool
}

func (c *modexpContract) RequiredGas(input []byte) uint64 {
	input = padRight(input, 96)

	baseLen := new(big.Int).SetBytes(input[0:32]).Uint64()
	expLen := new(big.Int).SetBytes(input[32:64]).Uint64()
	modLen := new(big.Int).SetBytes(input[64:96]).Uint64()

	adjExpLen := adjustedExpLen(expLen, baseLen, input[96:])

	maxLen := baseLen
	if modLen > maxLen {
		maxLen = modLen
	}

	if c.eip2565 {
		words := (maxLen + 7) / 8
		gas := words * words * maxUint64(adjExpLen, 1) / 3
		if gas < 200 {
			gas = 200
		}
		return gas
	}

	// Pre-Berlin EIP-198 schedule: a piecewise multiplication complexity and
	// a divisor of 20, with no 200-gas floor.
	gas := multComplexityEIP198(maxLen) * maxUint64(adjExpLen, 1) / 20
	return gas
}

// multComplexityEIP198 is EIP-198's original piecewise mult_complexity,
// superseded post-Berlin by EIP-2565's ceil(x/8)^2 above.
func multComplexityEIP198(x uint64) uint64 {
	switch {
	case x <= 64:
		return x * x
	case x <= 1024:
		return x*x/4 + 96*x - 3072
	default:
		return x*x/16 + 480*x - 199680
	}
}

func (c *modexpContract) Run(input []byte) ([]byte, error) {
	input = padRight(input, 96)

	baseLen := new(big.Int).SetBytes(input[0:32])
	expLen := new(big.Int).SetBytes(input[32:64])
	modLen := new(big.Int).SetBytes(input[64:96])

	if baseLen.BitLen() > 32 || expLen.BitLen() > 32 || modLen.BitLen() > 32 {
		return nil, errTooLarge
	}
	bLen := baseLen.Uint64()
	eLen := expLen.Uint64()
	mLen := modLen.Uint64()

	data := input[96:]
	base := getDataSlice(data, 0, bLen)
	exp := getDataSlice(data, bLen, eLen)
	mod := getDataSlice(data, bLen+eLen, mLen)

	modVal := new(big.Int).SetBytes(mod)
	if modVal.Sign() == 0 {
		return make([]byte, mLen), nil
	}

	baseVal := new(big.Int).SetBytes(base)
	expVal := new(big.Int).SetBytes(exp)

	result := new(big.Int).Exp(baseVal, expVal, modVal)

	out := result.Bytes()
	if uint64(len(out)) < mLen {
		padded := make([]byte, mLen)
		copy(padded[mLen-uint64(len(out)):], out)
		return padded, nil
	}
	return out[:mLen], nil
}

func adjustedExpLen(expLen, baseLen uint64, data []byte) uint64 {
	if expLen <= 32 {
		expData := getDataSlice(data, baseLen, expLen)
		exp := new(big.Int).SetBytes(expData)
		if exp.Sign() == 0 {
			return 0
		}
		return uint64(exp.BitLen() - 1)
	}
	firstExpData := getDataSlice(data, baseLen, 32)
	firstExp := new(big.Int).SetBytes(firstExpData)
	adj := uint64(0)
	if firstExp.Sign() > 0 {
		adj = uint64(firstExp.BitLen() - 1)
	}
	return adj + 8*(expLen-32)
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

var errTooLarge = modexpLenError{}

type modexpLenError struct{}

func (modexpLenError) Error() string { return "modexp: length overflow" }
