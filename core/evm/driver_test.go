package evm

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/state"
	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/crypto"
	"github.com/baron-chain/baron-evm/types"
)

func installCode(db *memoryDatabase, addr types.Address, code []byte) {
	codeHash := crypto.Keccak256Hash(code)
	acc := db.accounts[addr]
	if acc == nil {
		acc = &state.AccountInfo{}
		db.accounts[addr] = acc
	}
	acc.CodeHash = codeHash
	db.code[codeHash] = vm.NewLegacyRawBytecode(code).ToAnalysed()
}

// TestTransactStackOverflowForfeitsGas pushes one word past the 1024 limit:
// the transaction halts with StackOverflow and every unit of gas is
// consumed.
func TestTransactStackOverflowForfeitsGas(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(caller, 10_000_000)

	code := make([]byte, 0, 2*(vm.StackLimit+1))
	for i := 0; i <= vm.StackLimit; i++ {
		code = append(code, byte(vm.PUSH1), 0x00)
	}
	installCode(db, to, code)

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &to,
		GasLimit: 100000,
		GasPrice: *uint256.NewInt(1),
	}

	result, _, err := Transact(db, env, nil)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if result.Kind != Halt {
		t.Fatalf("result.Kind = %v, want Halt", result.Kind)
	}
	if result.Reason != vm.ResultStackOverflow {
		t.Errorf("Reason = %v, want ResultStackOverflow", result.Reason)
	}
	if result.GasUsed != env.Tx.GasLimit {
		t.Errorf("GasUsed = %d, want the full gas limit %d", result.GasUsed, env.Tx.GasLimit)
	}
}

// TestTransactCreate deploys with empty init code: the created address
// follows rlp([caller, nonce]) and the fresh account carries nonce 1.
func TestTransactCreate(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	db.setBalance(caller, 10_000_000)

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       nil,
		GasLimit: 100000,
		GasPrice: *uint256.NewInt(1),
	}

	result, diff, err := Transact(db, env, nil)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if result.Kind != Success {
		t.Fatalf("result.Kind = %v, reason %v, want Success", result.Kind, result.Reason)
	}
	if !result.Output.IsCreate || result.Output.Address == nil {
		t.Fatal("create transaction must report a created address")
	}
	want := createAddress(caller, 0)
	if *result.Output.Address != want {
		t.Errorf("created address = %v, want %v", result.Output.Address, want)
	}
	created, ok := diff.Accounts[want]
	if !ok {
		t.Fatal("created account missing from the state diff")
	}
	if created.Info.Nonce != 1 {
		t.Errorf("created account nonce = %d, want 1", created.Info.Nonce)
	}
}

// TestTransactNestedCall runs caller -> A -> B: A CALLs B, B writes storage,
// and the write must survive in the final diff under B's address.
func TestTransactNestedCall(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	a := types.Address{0x0a}
	b := types.Address{0x0b}
	db.setBalance(caller, 10_000_000)

	// B: PUSH1 0x2A PUSH1 0x00 SSTORE STOP
	bCode := []byte{byte(vm.PUSH1), 0x2a, byte(vm.PUSH1), 0x00, byte(vm.SSTORE), byte(vm.STOP)}
	installCode(db, b, bCode)

	// A: CALL(gas=0xFFFF, addr=B, value=0, args=(0,0), ret=(0,0)), then
	// store the call's success flag at slot 1 so the test can observe it.
	aCode := []byte{
		byte(vm.PUSH1), 0x00, // retSize
		byte(vm.PUSH1), 0x00, // retOffset
		byte(vm.PUSH1), 0x00, // argsSize
		byte(vm.PUSH1), 0x00, // argsOffset
		byte(vm.PUSH1), 0x00, // value
		byte(vm.PUSH1) + 19, // PUSH20
	}
	aCode = append(aCode, b.Bytes()...)
	aCode = append(aCode,
		byte(vm.PUSH1) + 1, 0xff, 0xff, // PUSH2: gas
		byte(vm.CALL),
		byte(vm.PUSH1), 0x01,
		byte(vm.SSTORE),
		byte(vm.STOP),
	)
	installCode(db, a, aCode)

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &a,
		GasLimit: 500000,
		GasPrice: *uint256.NewInt(1),
	}

	result, diff, err := Transact(db, env, nil)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if result.Kind != Success {
		t.Fatalf("result.Kind = %v, reason %v, want Success", result.Kind, result.Reason)
	}

	bAcc, ok := diff.Accounts[b]
	if !ok {
		t.Fatal("callee account missing from the state diff")
	}
	slot0 := *uint256.NewInt(0)
	if s, ok := bAcc.Storage[slot0]; !ok || s.Present.Uint64() != 0x2a {
		t.Errorf("callee storage slot 0 = %v, want 0x2a", s)
	}

	aAcc, ok := diff.Accounts[a]
	if !ok {
		t.Fatal("caller contract missing from the state diff")
	}
	slot1 := *uint256.NewInt(1)
	if s, ok := aAcc.Storage[slot1]; !ok || s.Present.Uint64() != 1 {
		t.Errorf("call success flag in slot 1 = %v, want 1", s)
	}
}

// TestTransactNestedRevertIsolated: A calls B, B writes then REVERTs; B's
// write must not survive, while A continues and commits its own write.
func TestTransactNestedRevertIsolated(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	a := types.Address{0x0a}
	b := types.Address{0x0b}
	db.setBalance(caller, 10_000_000)

	// B: PUSH1 0x2A PUSH1 0x00 SSTORE PUSH1 0 PUSH1 0 REVERT
	bCode := []byte{
		byte(vm.PUSH1), 0x2a, byte(vm.PUSH1), 0x00, byte(vm.SSTORE),
		byte(vm.PUSH1), 0x00, byte(vm.PUSH1), 0x00, byte(vm.REVERT),
	}
	installCode(db, b, bCode)

	aCode := []byte{
		byte(vm.PUSH1), 0x00,
		byte(vm.PUSH1), 0x00,
		byte(vm.PUSH1), 0x00,
		byte(vm.PUSH1), 0x00,
		byte(vm.PUSH1), 0x00,
		byte(vm.PUSH1) + 19, // PUSH20
	}
	aCode = append(aCode, b.Bytes()...)
	aCode = append(aCode,
		byte(vm.PUSH1) + 1, 0xff, 0xff, // PUSH2: gas
		byte(vm.CALL),
		byte(vm.PUSH1), 0x01,
		byte(vm.SSTORE), // records the call's 0 result
		byte(vm.STOP),
	)
	installCode(db, a, aCode)

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &a,
		GasLimit: 500000,
		GasPrice: *uint256.NewInt(1),
	}

	result, diff, err := Transact(db, env, nil)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if result.Kind != Success {
		t.Fatalf("result.Kind = %v, reason %v, want Success (outer frame succeeds)", result.Kind, result.Reason)
	}

	if bAcc, ok := diff.Accounts[b]; ok {
		if s, exists := bAcc.Storage[*uint256.NewInt(0)]; exists && s.Present.Uint64() != 0 {
			t.Errorf("reverted callee write survived: slot 0 = %v", s)
		}
	}
	aAcc, ok := diff.Accounts[a]
	if !ok {
		t.Fatal("caller contract missing from the state diff")
	}
	if s, ok := aAcc.Storage[*uint256.NewInt(1)]; !ok || !s.Present.IsZero() {
		t.Errorf("call result flag = %v, want 0 for a reverted callee", s)
	}
}

// TestTransactValueTransferBalances pins the seed scenario's balance
// accounting: caller debited value plus gas at the effective price,
// recipient credited exactly the value.
func TestTransactValueTransferBalances(t *testing.T) {
	db := newMemoryDatabase()
	caller := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(caller, 1_000_000)

	env := baseEnv()
	env.Tx = TxEnv{
		Caller:   caller,
		To:       &to,
		Value:    *uint256.NewInt(10),
		GasLimit: 21000,
		GasPrice: *uint256.NewInt(2),
	}

	result, diff, err := Transact(db, env, nil)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if result.Kind != Success || result.GasUsed != 21000 {
		t.Fatalf("result = %+v, want Success with GasUsed 21000", result)
	}

	callerAcc := diff.Accounts[caller]
	wantCaller := uint64(1_000_000 - 21000*2 - 10)
	if callerAcc.Info.Balance.Uint64() != wantCaller {
		t.Errorf("caller balance = %d, want %d", callerAcc.Info.Balance.Uint64(), wantCaller)
	}
	toAcc := diff.Accounts[to]
	if toAcc.Info.Balance.Uint64() != 10 {
		t.Errorf("recipient balance = %d, want 10", toAcc.Info.Balance.Uint64())
	}
	if callerAcc.Info.Nonce != 1 {
		t.Errorf("caller nonce = %d, want 1", callerAcc.Info.Nonce)
	}
}
