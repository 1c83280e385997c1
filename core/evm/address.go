package evm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/crypto"
	"github.com/baron-chain/baron-evm/rlp"
	"github.com/baron-chain/baron-evm/types"
)

// createAddress computes CREATE's target (§4.10, §6): the low 20 bytes of
// keccak256(rlp([caller, nonce])), the nonce being the caller's value
// *before* the increment this same frame construction performs.
func createAddress(caller types.Address, nonce uint64) types.Address {
	enc := rlp.EncodeToBytes([]interface{}{caller, nonce})
	return types.BytesToAddress(crypto.Keccak256(enc)[12:])
}

// create2Address computes CREATE2/EOFCREATE's target: the low 20 bytes of
// keccak256(0xff ++ caller ++ salt ++ keccak256(initCodeOrContainer)).
func create2Address(caller types.Address, salt uint256.Int, codeHash []byte) types.Address {
	var saltBytes [32]byte
	salt.WriteToSlice(saltBytes[:])
	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, caller.Bytes()...)
	buf = append(buf, saltBytes[:]...)
	buf = append(buf, codeHash...)
	return types.BytesToAddress(crypto.Keccak256(buf)[12:])
}
