package evm

import (
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/precompiles"
	"github.com/baron-chain/baron-evm/core/state"
	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/crypto"
	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// Transaction validation failures (§7 "Validation failures: rejected
// before execution; no state change"). Unlike the interpreter's hot-path
// sentinels (core/vm's bare errors.New values), these are wrapped with
// cockroachdb/errors since they carry the offending field/value and are
// never compared on a hot loop.
var (
	ErrNonceTooLow            = errors.New("evm: nonce too low")
	ErrNonceTooHigh           = errors.New("evm: nonce too high")
	ErrSenderNotEOA           = errors.New("evm: sender has deployed code") // EIP-3607
	ErrInsufficientBalance    = errors.New("evm: insufficient balance to cover gas and value")
	ErrGasLimitExceedsBlock   = errors.New("evm: tx gas limit exceeds block gas limit")
	ErrIntrinsicGasTooLow     = errors.New("evm: gas limit below intrinsic gas")
	ErrFeeCapBelowBaseFee     = errors.New("evm: max fee per gas below block base fee")
	ErrTipAboveFeeCap         = errors.New("evm: priority fee exceeds max fee per gas")
	ErrMissingPrevRandao      = errors.New("evm: block env missing prevrandao post-merge")
	ErrEOFInitcodeUnsupported = errors.New("evm: EOF initcode presented pre-Prague")
)

// burnAddress is where gas prepayment is parked between PreExecution and
// the post-execution reimburse/reward steps: the core has no block-level
// fee-pool account of its own, so the caller's prepay is modeled as moving
// to this fixed address and back out to the caller/coinbase explicitly,
// rather than staying implicit in caller-side bookkeeping.
var burnAddress = types.Address{0xff}

// Handlers is the pipeline's table of function pointers (§4.11, §9 "handler
// struct containing typed function references for the pipeline stages"): a
// per-fork or per-chain implementation overrides whichever stage it needs
// to specialize (e.g. a rollup swapping ValidateTxAgainstState to accept
// deposit transactions) and leaves the rest at their defaults.
type Handlers struct {
	ValidateBlockEnv       func(env *Env, rules params.Rules) error
	ValidateTx             func(env *Env, rules params.Rules) error
	ValidateTxAgainstState func(ctx *Context) error
	PreExecution           func(ctx *Context) (effectivePrice uint256.Int, err error)
	End                    func(ctx *Context, res *ExecutionResult) *ExecutionResult
}

// DefaultHandlers returns the standard Ethereum-mainnet handler table
// (§4.11). A chain-specific caller starts from this and overrides only the
// stages it needs, per §4.11's rollup example (bypassing signer checks and
// minting balance for deposit transactions, routing an L1 data fee,
// converting halts into a specific result).
func DefaultHandlers() *Handlers {
	return &Handlers{
		ValidateBlockEnv:       defaultValidateBlockEnv,
		ValidateTx:             defaultValidateTx,
		ValidateTxAgainstState: defaultValidateTxAgainstState,
		PreExecution:           defaultPreExecution,
		End:                    defaultEnd,
	}
}

func defaultValidateBlockEnv(env *Env, rules params.Rules) error {
	if rules.IsMerge && env.Block.PrevRandao.IsZero() {
		return ErrMissingPrevRandao
	}
	return nil
}

func defaultValidateTx(env *Env, rules params.Rules) error {
	tx := &env.Tx
	if tx.PriorityFee != nil && tx.PriorityFee.Cmp(&tx.GasPrice) > 0 {
		return ErrTipAboveFeeCap
	}
	if rules.IsLondon && !env.Cfg.DisableBaseFee {
		if tx.GasPrice.Cmp(&env.Block.BaseFee) < 0 {
			return ErrFeeCapBelowBaseFee
		}
	}
	if tx.GasLimit > env.Block.GasLimit {
		return ErrGasLimitExceedsBlock
	}
	if tx.EOFInitCode != nil && !rules.IsPrague {
		return ErrEOFInitcodeUnsupported
	}
	if tx.GasLimit < IntrinsicGas(tx, rules.IsShanghai) {
		return ErrIntrinsicGasTooLow
	}
	return nil
}

// defaultValidateTxAgainstState checks the sender's on-chain state against
// the tx envelope (§4.11 stage 1 "nonce match, balance ≥ ..., EIP-3607").
func defaultValidateTxAgainstState(ctx *Context) error {
	tx := &ctx.Env.Tx
	acc, _, err := ctx.Journal.LoadAccount(tx.Caller)
	if err != nil {
		return err
	}
	if acc.Info.Nonce < tx.Nonce {
		return errors.Wrapf(ErrNonceTooHigh, "tx nonce %d, account nonce %d", tx.Nonce, acc.Info.Nonce)
	}
	if acc.Info.Nonce > tx.Nonce {
		return errors.Wrapf(ErrNonceTooLow, "tx nonce %d, account nonce %d", tx.Nonce, acc.Info.Nonce)
	}
	if !acc.Info.CodeHash.IsZero() && acc.Info.CodeHash != crypto.EmptyCodeHash {
		return ErrSenderNotEOA
	}

	cost := txMaxCost(tx)
	balance := ctx.Journal.Balance(tx.Caller)
	if balance.Cmp(&cost) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "have %s, want %s", balance.String(), cost.String())
	}
	return nil
}

// txMaxCost is the maximum a transaction can draw: value plus gas_limit at
// the fee cap (§4.11 stage 1 "balance ≥ gas_limit·gas_price + value").
func txMaxCost(tx *TxEnv) uint256.Int {
	var gasCost, cost uint256.Int
	gasCost.SetUint64(tx.GasLimit)
	gasCost.Mul(&gasCost, &tx.GasPrice)
	cost.Add(&gasCost, &tx.Value)
	return cost
}

// defaultPreExecution deducts gas_limit * effective_price from the caller
// and, for a plain call, bumps its nonce (§4.11 stage 2); access-list and
// precompile warming already happened in NewContext, since both only need
// the Env and don't depend on the resolved effective gas price.
func defaultPreExecution(ctx *Context) (uint256.Int, error) {
	tx := &ctx.Env.Tx
	effective := effectiveGasPrice(tx, &ctx.Env.Block.BaseFee, ctx.Rules.IsLondon)

	var prepay uint256.Int
	prepay.SetUint64(tx.GasLimit)
	prepay.Mul(&prepay, &effective)

	balance := ctx.Journal.Balance(tx.Caller)
	if balance.Cmp(&prepay) < 0 {
		return effective, errors.Wrapf(ErrInsufficientBalance, "cannot prepay %s gas", prepay.String())
	}
	ctx.Journal.TransferBalance(tx.Caller, burnAddress, &prepay)
	// The nonce bump for a creation tx happens inside the frame driver's
	// create path instead, where the pre-bump value also derives the
	// created address.
	if tx.To != nil {
		ctx.Journal.IncrementNonce(tx.Caller)
	}
	return effective, nil
}

// effectiveGasPrice implements EIP-1559: min(fee_cap, base_fee + tip) once
// London is active, otherwise the legacy flat gas price (§4.11, §6
// "EffectiveGasPrice").
func effectiveGasPrice(tx *TxEnv, baseFee *uint256.Int, isLondon bool) uint256.Int {
	if !isLondon || tx.PriorityFee == nil {
		return tx.GasPrice
	}
	var sum uint256.Int
	sum.Add(baseFee, tx.PriorityFee)
	if sum.Cmp(&tx.GasPrice) > 0 {
		return tx.GasPrice
	}
	return sum
}

// defaultEnd is the identity post-execution hook; rollups override it to
// convert a deposit transaction's halt into a specific non-failing result
// (§4.11 stage 5 "end: chain-specific fixup").
func defaultEnd(ctx *Context, res *ExecutionResult) *ExecutionResult {
	return res
}

// Transact runs the full five-stage pipeline for one transaction against
// db (§4.11): validate, pre-execute, run the frame loop, then
// post-execute (refund cap, caller reimbursement, beneficiary reward).
// It returns the packaged ExecutionResult and the accumulated StateDiff
// ready for a Database to commit, or a validation error with no state
// change at all.
func Transact(db state.Database, env *Env, h *Handlers) (*ExecutionResult, state.StateDiff, error) {
	if h == nil {
		h = DefaultHandlers()
	}
	rules := params.RulesFor(env.Cfg.Spec)

	if err := h.ValidateBlockEnv(env, rules); err != nil {
		return nil, state.StateDiff{}, err
	}
	if err := h.ValidateTx(env, rules); err != nil {
		return nil, state.StateDiff{}, err
	}

	ps := precompiles.NewSet(rules)
	ctx := NewContext(db, env, ps)

	// burnAddress and the coinbase both need a loaded account entry before
	// TransferBalance can touch them in pre/post-execution; NewContext at
	// most warms the coinbase (post-Shanghai) and loads neither account.
	if _, _, err := ctx.Journal.LoadAccount(burnAddress); err != nil {
		return nil, state.StateDiff{}, err
	}
	if _, _, err := ctx.Journal.LoadAccount(env.Block.Coinbase); err != nil {
		return nil, state.StateDiff{}, err
	}

	if err := h.ValidateTxAgainstState(ctx); err != nil {
		return nil, state.StateDiff{}, err
	}

	effectivePrice, err := h.PreExecution(ctx)
	if err != nil {
		return nil, state.StateDiff{}, err
	}

	intrinsic := IntrinsicGas(&env.Tx, rules.IsShanghai)
	execGas := env.Tx.GasLimit - intrinsic
	frame, err := ctx.NewTopFrame(env.Tx.Caller, env.Tx.To, env.Tx.Value, env.Tx.Data, execGas, env.Tx.EOFInitCode)
	if err != nil {
		return nil, state.StateDiff{}, err
	}

	memory := vm.NewSharedMemory()
	memory.NewContext()
	table := vm.NewJumpTable(rules)

	if ctx.Tracer != nil {
		ctx.Tracer.CaptureStart(env.Tx.Caller, frame.Interpreter.Contract.Address, env.Tx.To == nil, env.Tx.Data, execGas, &env.Tx.Value)
	}

	result, err := ctx.Run(memory, table, frame)
	if err != nil {
		if ctx.Tracer != nil {
			ctx.Tracer.CaptureEnd(nil, 0, err)
		}
		return nil, state.StateDiff{}, err
	}
	if ctx.Tracer != nil {
		var traceErr error
		if result.Kind != Success {
			traceErr = errors.Newf("evm: frame ended with %v", result.Reason)
		}
		ctx.Tracer.CaptureEnd(result.Output.Data, result.GasUsed, traceErr)
	}
	result.GasUsed += intrinsic

	// Refunds only apply to a successful top frame: a revert credits unused
	// gas but no refund, a halt forfeits both (§7).
	var finalRefund uint64
	if result.Kind == Success {
		finalRefund = frame.Interpreter.Gas.SetFinalRefund(rules.IsLondon)
	}
	result.GasRefunded = finalRefund
	totalGasUsed := result.GasUsed - finalRefund

	reimburseCaller(ctx, env.Tx.Caller, env.Tx.GasLimit, totalGasUsed, &effectivePrice)
	rewardBeneficiary(ctx, env.Block.Coinbase, totalGasUsed, &effectivePrice, &env.Block.BaseFee, rules.IsLondon)

	diff := ctx.Journal.Finalize()
	result.Logs = diff.Logs
	result = h.End(ctx, result)

	return result, diff, nil
}

// reimburseCaller credits back (gas_limit - gas_used) at the effective
// price (§4.11 stage 5 "reimburse_caller"). defaultPreExecution moved
// gas_limit * effective_price out of the caller, so this leaves exactly
// gas_used * effective_price spent.
func reimburseCaller(ctx *Context, caller types.Address, gasLimit, gasUsed uint64, effectivePrice *uint256.Int) {
	remaining := gasLimit - gasUsed
	var refund uint256.Int
	refund.SetUint64(remaining)
	refund.Mul(&refund, effectivePrice)
	ctx.Journal.TransferBalance(burnAddress, caller, &refund)
}

// rewardBeneficiary credits the coinbase at (effective_price - base_fee)
// per unit of gas used post-London — the base fee portion stays burned in
// burnAddress rather than reaching any account — or the full effective
// price pre-London (§4.11 stage 5 "reward_beneficiary").
func rewardBeneficiary(ctx *Context, coinbase types.Address, gasUsed uint64, effectivePrice, baseFee *uint256.Int, isLondon bool) {
	tip := *effectivePrice
	if isLondon {
		tip = uint256.Int{}
		tip.Sub(effectivePrice, baseFee)
	}
	var reward uint256.Int
	reward.SetUint64(gasUsed)
	reward.Mul(&reward, &tip)
	ctx.Journal.TransferBalance(burnAddress, coinbase, &reward)
}
