package evm

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/state"
	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/crypto"
	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// memoryDatabase is the same minimal in-memory Database test double used by
// core/state's journal tests, duplicated here since the two packages don't
// share a test-only dependency.
type memoryDatabase struct {
	accounts map[types.Address]*state.AccountInfo
	code     map[types.Hash]*vm.Bytecode
}

func newMemoryDatabase() *memoryDatabase {
	return &memoryDatabase{
		accounts: make(map[types.Address]*state.AccountInfo),
		code:     make(map[types.Hash]*vm.Bytecode),
	}
}

func (m *memoryDatabase) Basic(addr types.Address) (*state.AccountInfo, error) {
	return m.accounts[addr], nil
}

func (m *memoryDatabase) CodeByHash(hash types.Hash) (*vm.Bytecode, error) {
	return m.code[hash], nil
}

func (m *memoryDatabase) Storage(addr types.Address, slot uint256.Int) (uint256.Int, error) {
	return uint256.Int{}, nil
}

func (m *memoryDatabase) BlockHash(number uint64) (types.Hash, error) {
	return types.Hash{}, nil
}

func (m *memoryDatabase) setBalance(addr types.Address, amount uint64) {
	acc := m.accounts[addr]
	if acc == nil {
		acc = &state.AccountInfo{}
		m.accounts[addr] = acc
	}
	acc.Balance = *uint256.NewInt(amount)
}

func baseEnv() *Env {
	return &Env{
		Cfg: CfgEnv{ChainID: 1, Spec: params.CANCUN},
		Block: BlockEnv{
			Number:     1,
			Coinbase:   types.Address{0xc0},
			Timestamp:  1000,
			GasLimit:   30_000_000,
			BaseFee:    *uint256.NewInt(0), // DisableBaseFee-equivalent: zero base fee keeps the math simple
			PrevRandao: types.Hash{0x01},   // required post-Merge by block validation
		},
	}
}

func TestTransactSimpleValueTransfer(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(caller, 1_000_000)

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &to,
		Value:    *uint256.NewInt(100),
		GasLimit: 21000,
		GasPrice: *uint256.NewInt(1),
		Nonce:    0,
	}

	result, _, err := Transact(db, env, nil)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if result.Kind != Success {
		t.Fatalf("result.Kind = %v, want Success", result.Kind)
	}
	if result.GasUsed != 21000 {
		t.Errorf("GasUsed = %d, want 21000", result.GasUsed)
	}
}

func TestTransactStorageRoundTrip(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(caller, 1_000_000)

	// PUSH1 0x2A PUSH1 0x00 SSTORE PUSH1 0x00 SLOAD STOP
	code := []byte{
		byte(vm.PUSH1), 0x2a,
		byte(vm.PUSH1), 0x00,
		byte(vm.SSTORE),
		byte(vm.PUSH1), 0x00,
		byte(vm.SLOAD),
		byte(vm.STOP),
	}
	codeHash := crypto.Keccak256Hash(code)
	db.accounts[to] = &state.AccountInfo{CodeHash: codeHash}
	db.code[codeHash] = vm.NewLegacyRawBytecode(code).ToAnalysed()

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &to,
		Value:    *uint256.NewInt(0),
		GasLimit: 100000,
		GasPrice: *uint256.NewInt(1),
		Nonce:    0,
	}

	result, diff, err := Transact(db, env, nil)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if result.Kind != Success {
		t.Fatalf("result.Kind = %v, reason %v, want Success", result.Kind, result.Reason)
	}
	acc, ok := diff.Accounts[to]
	if !ok || len(acc.Storage) == 0 {
		t.Fatal("expected a storage write in the resulting StateDiff")
	}
	var key uint256.Int
	key.SetUint64(0)
	slot, ok := acc.Storage[key]
	if !ok || slot.Present.Uint64() != 0x2a {
		t.Errorf("storage slot 0 = %v, want 0x2a", slot)
	}
}

func TestTransactRevertPreservesState(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(caller, 1_000_000)

	// PUSH1 0x2A PUSH1 0x00 SSTORE PUSH1 0x00 PUSH1 0x00 REVERT
	code := []byte{
		byte(vm.PUSH1), 0x2a,
		byte(vm.PUSH1), 0x00,
		byte(vm.SSTORE),
		byte(vm.PUSH1), 0x00,
		byte(vm.PUSH1), 0x00,
		byte(vm.REVERT),
	}
	codeHash := crypto.Keccak256Hash(code)
	db.accounts[to] = &state.AccountInfo{CodeHash: codeHash}
	db.code[codeHash] = vm.NewLegacyRawBytecode(code).ToAnalysed()

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &to,
		Value:    *uint256.NewInt(0),
		GasLimit: 100000,
		GasPrice: *uint256.NewInt(1),
		Nonce:    0,
	}

	result, diff, err := Transact(db, env, nil)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if result.Kind != Revert {
		t.Fatalf("result.Kind = %v, want Revert", result.Kind)
	}
	if acc, ok := diff.Accounts[to]; ok && len(acc.Storage) != 0 {
		t.Errorf("Storage = %v, want empty after a reverted SSTORE", acc.Storage)
	}
}

func TestTransactIntrinsicGasTooLowRejected(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(caller, 1_000_000)

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &to,
		GasLimit: 20000, // below the 21000 floor
		GasPrice: *uint256.NewInt(1),
	}

	_, _, err := Transact(db, env, nil)
	if err == nil {
		t.Fatal("expected a validation error for gas limit below intrinsic gas")
	}
}

func TestTransactInsufficientBalanceRejected(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(caller, 100) // far less than value + gas cost

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &to,
		Value:    *uint256.NewInt(1_000_000),
		GasLimit: 21000,
		GasPrice: *uint256.NewInt(1),
	}

	_, _, err := Transact(db, env, nil)
	if err == nil {
		t.Fatal("expected a validation error for insufficient balance")
	}
}
