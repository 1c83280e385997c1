package evm

import "github.com/baron-chain/baron-evm/core/vm"

// Flat per-transaction gas costs (§4.11 stage 1 "initial tx gas"), ported
// from the teacher's pkg/core/processor.go constants (themselves Yellow
// Paper Appendix G plus EIP-2930/3860/7702).
const (
	txGas                  uint64 = 21000
	txGasContractCreation  uint64 = 53000 // txGas + 32000, EIP-2 constant
	txDataZeroGas          uint64 = 4
	txDataNonZeroGas       uint64 = 16
	txAccessListAddressGas uint64 = 2400
	txAccessListStorageGas uint64 = 1900
)

// IntrinsicGas computes the gas a transaction's envelope costs before the
// first opcode runs: the flat base (21000, or 53000 for a creation tx at
// every fork — the teacher's own base already folds the 32000 CREATE
// surcharge into a single constant rather than adding it conditionally),
// calldata bytes, EIP-2930 access-list entries, and EIP-3860 initcode words
// for a creation tx (§4.11 stage 1).
func IntrinsicGas(tx *TxEnv, shanghaiOrLater bool) uint64 {
	isCreate := tx.To == nil
	gas := txGas
	if isCreate {
		gas += txGasContractCreation - txGas
	}
	for _, b := range tx.Data {
		if b == 0 {
			gas += txDataZeroGas
		} else {
			gas += txDataNonZeroGas
		}
	}
	for _, at := range tx.AccessList {
		gas += txAccessListAddressGas
		gas += uint64(len(at.StorageKeys)) * txAccessListStorageGas
	}
	if isCreate && shanghaiOrLater {
		gas += wordCount(len(tx.Data)) * vm.GasInitcodeWord
	}
	return gas
}

func wordCount(n int) uint64 {
	return uint64((n + 31) / 32)
}
