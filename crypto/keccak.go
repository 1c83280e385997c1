// Package crypto provides the hash primitives the interpreter and frame
// driver need: Keccak256 for KECCAK256/CREATE/CREATE2, plus a RipeMD160
// helper. The SHA256 and RIPEMD160 precompiles in core/precompiles hash with
// crypto/sha256 and golang.org/x/crypto/ripemd160 directly and do not call
// this package. All cryptographic heavy lifting is
// delegated to golang.org/x/crypto, matching the teacher's own
// crypto/keccak.go; this package never reimplements a hash function.
package crypto

import (
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // backs RipeMD160 below
	"golang.org/x/crypto/sha3"

	"github.com/baron-chain/baron-evm/types"
)

// Keccak256 hashes the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash hashes the concatenation of data and returns it as a Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}

// RipeMD160 hashes data with RIPEMD-160, left-padded to 32 bytes by callers
// that need the precompile's word-aligned output.
func RipeMD160(data []byte) []byte {
	d := ripemd160.New()
	d.Write(data)
	return d.Sum(nil)
}

// EmptyCodeHash is Keccak256(""), the code hash of every account that has
// no code. AccountInfo.CodeHash must equal this value iff Code is empty.
var EmptyCodeHash = Keccak256Hash()
