package state

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// memoryDatabase is a minimal in-memory Database test double, grounded on
// the teacher's NewMemoryStateDB test helper: enough to back the journal in
// isolation without a trie or RPC-backed cache.
type memoryDatabase struct {
	accounts map[types.Address]*AccountInfo
	storage  map[types.Address]map[uint256.Int]uint256.Int
}

func newMemoryDatabase() *memoryDatabase {
	return &memoryDatabase{
		accounts: make(map[types.Address]*AccountInfo),
		storage:  make(map[types.Address]map[uint256.Int]uint256.Int),
	}
}

func (m *memoryDatabase) Basic(addr types.Address) (*AccountInfo, error) {
	return m.accounts[addr], nil
}

func (m *memoryDatabase) CodeByHash(hash types.Hash) (*vm.Bytecode, error) {
	return nil, nil
}

func (m *memoryDatabase) Storage(addr types.Address, slot uint256.Int) (uint256.Int, error) {
	if slots, ok := m.storage[addr]; ok {
		return slots[slot], nil
	}
	return uint256.Int{}, nil
}

func (m *memoryDatabase) BlockHash(number uint64) (types.Hash, error) {
	return types.Hash{}, nil
}

func (m *memoryDatabase) setBalance(addr types.Address, amount uint64) {
	m.accounts[addr] = &AccountInfo{Balance: *uint256.NewInt(amount)}
}

func TestJournalTransferBalanceRequiresLoadedAccounts(t *testing.T) {
	db := newMemoryDatabase()
	from := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(from, 100)

	js := New(params.CANCUN, db, nil)
	if _, _, err := js.LoadAccount(from); err != nil {
		t.Fatalf("LoadAccount(from): %v", err)
	}
	if _, _, err := js.LoadAccount(to); err != nil {
		t.Fatalf("LoadAccount(to): %v", err)
	}

	amount := uint256.NewInt(40)
	js.TransferBalance(from, to, amount)

	if got := js.Balance(from); got.Uint64() != 60 {
		t.Errorf("Balance(from) = %d, want 60", got.Uint64())
	}
	if got := js.Balance(to); got.Uint64() != 40 {
		t.Errorf("Balance(to) = %d, want 40", got.Uint64())
	}
}

func TestJournalCheckpointRevertUndoesBalanceChange(t *testing.T) {
	db := newMemoryDatabase()
	from := types.Address{0x01}
	to := types.Address{0x02}
	db.setBalance(from, 100)

	js := New(params.CANCUN, db, nil)
	_, _, _ = js.LoadAccount(from)
	_, _, _ = js.LoadAccount(to)

	cp := js.Checkpoint()
	js.TransferBalance(from, to, uint256.NewInt(40))
	if got := js.Balance(to); got.Uint64() != 40 {
		t.Fatalf("Balance(to) after transfer = %d, want 40", got.Uint64())
	}

	js.CheckpointRevert(cp)
	if got := js.Balance(from); got.Uint64() != 100 {
		t.Errorf("Balance(from) after revert = %d, want 100 (unchanged)", got.Uint64())
	}
	if got := js.Balance(to); got.Uint64() != 0 {
		t.Errorf("Balance(to) after revert = %d, want 0", got.Uint64())
	}
}

func TestJournalSStoreRoundTrip(t *testing.T) {
	db := newMemoryDatabase()
	addr := types.Address{0x01}
	db.setBalance(addr, 0)

	js := New(params.CANCUN, db, nil)
	_, _, _ = js.LoadAccount(addr)

	var key, value uint256.Int
	key.SetUint64(0)
	value.SetUint64(0x2a)

	if err := js.SStore(addr, key, value); err != nil {
		t.Fatalf("SStore: %v", err)
	}
	got, _, err := js.SLoad(addr, key)
	if err != nil {
		t.Fatalf("SLoad: %v", err)
	}
	if got.Uint64() != 0x2a {
		t.Errorf("SLoad() = %#x, want 0x2a", got.Uint64())
	}
}

func TestJournalWarmColdAccess(t *testing.T) {
	db := newMemoryDatabase()
	addr := types.Address{0x01}

	js := New(params.CANCUN, db, nil)
	if js.IsAddressWarm(addr) {
		t.Fatal("address should start cold")
	}
	wasCold := js.WarmAddress(addr)
	if !wasCold {
		t.Error("first WarmAddress call should report wasCold=true")
	}
	if !js.IsAddressWarm(addr) {
		t.Error("address should be warm after WarmAddress")
	}
	if js.WarmAddress(addr) {
		t.Error("second WarmAddress call should report wasCold=false")
	}
}

func TestJournalIncrementNonce(t *testing.T) {
	db := newMemoryDatabase()
	addr := types.Address{0x01}
	db.setBalance(addr, 0)

	js := New(params.CANCUN, db, nil)
	_, _, _ = js.LoadAccount(addr)
	if got := js.IncrementNonce(addr); got != 0 {
		t.Errorf("first IncrementNonce returned %d, want 0 (pre-increment nonce)", got)
	}
	if got := js.IncrementNonce(addr); got != 1 {
		t.Errorf("second IncrementNonce returned %d, want 1", got)
	}
}

func TestJournalSelfDestructTransfersBalance(t *testing.T) {
	db := newMemoryDatabase()
	addr := types.Address{0x01}
	target := types.Address{0x02}
	db.setBalance(addr, 50)

	js := New(params.CANCUN, db, nil)
	_, _, _ = js.LoadAccount(addr)
	_, _, _ = js.LoadAccount(target)

	js.SelfDestruct(addr, target)

	if got := js.Balance(target); got.Uint64() != 50 {
		t.Errorf("Balance(target) after selfdestruct = %d, want 50", got.Uint64())
	}
}

func TestFinalizeRemovesAccountCreatedAndDestroyedSameTx(t *testing.T) {
	db := newMemoryDatabase()
	addr := types.Address{0x01}
	target := types.Address{0x02}

	js := New(params.CANCUN, db, nil)
	_, _, _ = js.LoadAccount(addr)
	_, _, _ = js.LoadAccount(target)
	js.MarkCreated(addr)

	js.SelfDestruct(addr, target)

	diff := js.Finalize()
	if _, ok := diff.Accounts[addr]; ok {
		t.Error("account created and destroyed in the same tx must be removed from the diff")
	}
}

func TestFinalizeKeepsPreexistingDestructedAccountPostCancun(t *testing.T) {
	db := newMemoryDatabase()
	addr := types.Address{0x01}
	target := types.Address{0x02}
	db.setBalance(addr, 50)

	js := New(params.CANCUN, db, nil)
	_, _, _ = js.LoadAccount(addr)
	_, _, _ = js.LoadAccount(target)

	js.SelfDestruct(addr, target)

	diff := js.Finalize()
	acc, ok := diff.Accounts[addr]
	if !ok {
		t.Fatal("pre-existing destructed account must survive post-Cancun (EIP-6780)")
	}
	if !acc.Info.Balance.IsZero() {
		t.Errorf("destructed account balance = %v, want 0", acc.Info.Balance)
	}
	if tgt := diff.Accounts[target]; tgt.Info.Balance.Uint64() != 50 {
		t.Errorf("target balance = %d, want 50", tgt.Info.Balance.Uint64())
	}
}

func TestFinalizeRemovesDestructedAccountPreCancun(t *testing.T) {
	db := newMemoryDatabase()
	addr := types.Address{0x01}
	target := types.Address{0x02}
	db.setBalance(addr, 50)

	js := New(params.LONDON, db, nil)
	_, _, _ = js.LoadAccount(addr)
	_, _, _ = js.LoadAccount(target)

	js.SelfDestruct(addr, target)

	diff := js.Finalize()
	if _, ok := diff.Accounts[addr]; ok {
		t.Error("pre-Cancun, a destructed account must be removed from the diff")
	}
}

func TestFinalizeIgnoresRevertedSelfDestruct(t *testing.T) {
	db := newMemoryDatabase()
	addr := types.Address{0x01}
	target := types.Address{0x02}
	db.setBalance(addr, 50)

	js := New(params.CANCUN, db, nil)
	_, _, _ = js.LoadAccount(addr)
	_, _, _ = js.LoadAccount(target)

	cp := js.Checkpoint()
	js.SelfDestruct(addr, target)
	js.CheckpointRevert(cp)

	diff := js.Finalize()
	acc, ok := diff.Accounts[addr]
	if !ok {
		t.Fatal("account with a reverted selfdestruct must survive finalization")
	}
	if acc.Info.Balance.Uint64() != 50 {
		t.Errorf("balance after reverted selfdestruct = %d, want 50", acc.Info.Balance.Uint64())
	}
}
