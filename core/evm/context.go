package evm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/precompiles"
	"github.com/baron-chain/baron-evm/core/state"
	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// Context is the per-transaction EVM context (§3, §4.10): the journaled
// state, the environment, and the precompile set, bundled so the driver can
// build a fresh hostAdapter for every frame without re-threading arguments
// through each nested call.
type Context struct {
	Journal     *state.JournaledState
	DB          state.Database
	Env         *Env
	Precompiles *precompiles.Set
	Rules       params.Rules

	// Tracer, when set by the caller after NewContext, is handed to every
	// frame's Interpreter so a single attached EVMLogger observes the whole
	// call tree (§9 AMBIENT STACK tracer hook).
	Tracer vm.EVMLogger
}

// NewContext constructs a Context with a fresh JournaledState, its warm set
// seeded with the active fork's precompile addresses and (post-Shanghai)
// the block's coinbase (EIP-3651).
func NewContext(db state.Database, env *Env, ps *precompiles.Set) *Context {
	rules := params.RulesFor(env.Cfg.Spec)
	js := state.New(env.Cfg.Spec, db, ps.Addresses())
	if rules.IsShanghai {
		js.WarmAddress(env.Block.Coinbase)
	}
	for _, at := range env.Tx.AccessList {
		js.WarmAddress(at.Address)
		for _, key := range at.StorageKeys {
			js.WarmSlot(at.Address, key)
		}
	}
	return &Context{Journal: js, DB: db, Env: env, Precompiles: ps, Rules: rules}
}

// host builds a vm.Host view of this Context for one frame's interpreter.
// Cheap enough to build per-frame: it carries no state of its own beyond
// the pointers already on Context.
func (c *Context) host() vm.Host {
	return &hostAdapter{ctx: c}
}

// hostAdapter implements vm.Host by delegating to the journaled state and
// the environment's projected Block/Tx contexts (§4.7). It is the sole
// bridge between the sandboxed instruction layer in core/vm and the richer
// world-state API in core/state.
type hostAdapter struct {
	ctx *Context
}

func (h *hostAdapter) Rules() params.Rules { return h.ctx.Rules }

func (h *hostAdapter) Block() *vm.BlockContext {
	bc := h.ctx.Env.blockContext()
	return &bc
}

func (h *hostAdapter) Tx() *vm.TxContext {
	tc := h.ctx.Env.txContext()
	return &tc
}

func (h *hostAdapter) ChainID() uint256.Int {
	var id uint256.Int
	id.SetUint64(h.ctx.Env.Cfg.ChainID)
	return id
}

func (h *hostAdapter) BlockHash(number uint64) (types.Hash, error) {
	return h.ctx.Journal.BlockHash(number)
}

func (h *hostAdapter) LoadAccount(addr types.Address) (bool, bool, error) {
	acc, wasCold, err := h.ctx.Journal.LoadAccount(addr)
	if err != nil {
		return false, false, err
	}
	exists := acc.Status&(state.StatusLoadedAsNotExisting) == 0
	return exists, wasCold, nil
}

func (h *hostAdapter) Balance(addr types.Address) (uint256.Int, bool, error) {
	_, wasCold, err := h.ctx.Journal.LoadAccount(addr)
	if err != nil {
		return uint256.Int{}, false, err
	}
	return h.ctx.Journal.Balance(addr), wasCold, nil
}

func (h *hostAdapter) Code(addr types.Address) (*vm.Bytecode, bool, error) {
	_, wasCold, err := h.ctx.Journal.LoadAccount(addr)
	if err != nil {
		return nil, false, err
	}
	code, err := h.ctx.Journal.ResolveCode(addr)
	if err != nil {
		return nil, false, err
	}
	return code, wasCold, nil
}

func (h *hostAdapter) CodeHash(addr types.Address) (types.Hash, bool, error) {
	acc, wasCold, err := h.ctx.Journal.LoadAccount(addr)
	if err != nil {
		return types.Hash{}, false, err
	}
	if acc.Status&state.StatusLoadedAsNotExisting != 0 {
		return types.Hash{}, wasCold, nil
	}
	return acc.Info.CodeHash, wasCold, nil
}

func (h *hostAdapter) SLoad(addr types.Address, key uint256.Int) (uint256.Int, bool, error) {
	return h.ctx.Journal.SLoad(addr, key)
}

func (h *hostAdapter) SStore(addr types.Address, key, value uint256.Int) (uint256.Int, uint256.Int, bool, error) {
	// original must be read before the write to report EIP-2200's
	// (original, current) pair; SLoad also performs the cold-access warm-up
	// gasSstore needs.
	current, wasCold, err := h.ctx.Journal.SLoad(addr, key)
	if err != nil {
		return uint256.Int{}, uint256.Int{}, false, err
	}
	original := h.storageOriginal(addr, key, current)
	if err := h.ctx.Journal.SStore(addr, key, value); err != nil {
		return uint256.Int{}, uint256.Int{}, false, err
	}
	return original, current, wasCold, nil
}

// storageOriginal looks up the slot's original-at-tx-start value. SLoad has
// already ensured the slot entry exists by the time this runs.
func (h *hostAdapter) storageOriginal(addr types.Address, key, fallback uint256.Int) uint256.Int {
	if original, ok := h.ctx.Journal.OriginalStorage(addr, key); ok {
		return original
	}
	return fallback
}

func (h *hostAdapter) TLoad(addr types.Address, key uint256.Int) uint256.Int {
	return h.ctx.Journal.TLoad(addr, key)
}

func (h *hostAdapter) TStore(addr types.Address, key, value uint256.Int) {
	h.ctx.Journal.TStore(addr, key, value)
}

func (h *hostAdapter) Log(log types.Log) {
	h.ctx.Journal.AddLog(log)
}

func (h *hostAdapter) SelfDestruct(addr, target types.Address) (uint256.Int, bool, error) {
	_, wasCold, err := h.ctx.Journal.LoadAccount(target)
	if err != nil {
		return uint256.Int{}, false, err
	}
	hadBalance := h.ctx.Journal.Balance(addr)
	h.ctx.Journal.SelfDestruct(addr, target)
	return hadBalance, wasCold, nil
}
