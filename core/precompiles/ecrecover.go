package precompiles

import (
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/baron-chain/baron-evm/crypto"
)

// ecrecoverContract is address 0x01 (§4.9), grounded on the teacher's
// pkg/core/vm/precompiles.go ecrecover for input layout and gas, but backed
// by github.com/decred/dcrd/dcrec/secp256k1/v4's signature recovery instead
// of the teacher's own pkg/crypto/secp256k1.go: that file's SigToPub is an
// explicit placeholder built on elliptic.P256 (the wrong curve entirely)
// and always returns an error, so it cannot recover a real secp256k1
// signature. decred's library is a complete, audited secp256k1
// implementation already present in the retrieval pack (as an indirect
// dependency of the sibling n42blockchain-N42-gov5 repo) and is the
// standard Go ECRECOVER backend outside of cgo-based libsecp256k1
// bindings.
type ecrecoverContract struct{}

func (c *ecrecoverContract) RequiredGas(input []byte) uint64 {
	return 3000
}

func (c *ecrecoverContract) Run(input []byte) ([]byte, error) {
	input = padRight(input, 128)

	hash := input[0:32]
	v := new(big.Int).SetBytes(input[32:64])
	r := input[64:96]
	s := input[96:128]

	if v.BitLen() > 8 {
		return nil, nil
	}
	vByte := byte(v.Uint64())
	if vByte != 27 && vByte != 28 {
		return nil, nil
	}

	// decred's compact-signature format is [27+recovery_id || R || S],
	// unlike Ethereum's [R || S || V]; V is already 27/28, matching that
	// leading byte directly.
	sig := make([]byte, 65)
	sig[0] = vByte
	copy(sig[1:33], r)
	copy(sig[33:65], s)

	pub, _, err := ecdsa.RecoverCompact(sig, hash)
	if err != nil {
		return nil, nil
	}

	addrHash := crypto.Keccak256(pub.SerializeUncompressed()[1:])
	out := make([]byte, 32)
	copy(out[12:], addrHash[12:])
	return out, nil
}
