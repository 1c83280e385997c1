package precompiles

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required by the RIPEMD160 precompile (0x03)
)

// sha256Contract is address 0x02 (§4.9), grounded on the teacher's
// pkg/core/vm/precompiles.go sha256hash.
type sha256Contract struct{}

func (c *sha256Contract) RequiredGas(input []byte) uint64 {
	return 60 + 12*wordCount(len(input))
}

func (c *sha256Contract) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// ripemd160Contract is address 0x03, grounded on the teacher's
// ripemd160hash.
type ripemd160Contract struct{}

func (c *ripemd160Contract) RequiredGas(input []byte) uint64 {
	return 600 + 120*wordCount(len(input))
}

func (c *ripemd160Contract) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	digest := h.Sum(nil)
	out := make([]byte, 32)
	copy(out[12:], digest)
	return out, nil
}

// identityContract is address 0x04 (the teacher names it dataCopy): a
// straight echo of the input, used by contracts as a cheap memcopy.
type identityContract struct{}

func (c *identityContract) RequiredGas(input []byte) uint64 {
	return 15 + 3*wordCount(len(input))
}

func (c *identityContract) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}
