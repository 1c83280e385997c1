package evm

import (
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/core/precompiles"
	"github.com/baron-chain/baron-evm/core/vm"
	"github.com/baron-chain/baron-evm/crypto"
	"github.com/baron-chain/baron-evm/types"
)

// errInsufficientBalance and errCreateCollision reject a top-level creation
// transaction outright (§4.11 stage 1 validation), unlike the same failures
// mid-execution from a nested CREATE, which fold into the caller's stack as
// a 0 push instead of aborting the transaction.
var (
	errInsufficientBalance = errors.New("evm: insufficient balance for value transfer")
	errCreateCollision     = errors.New("evm: create collision with existing account")
)

// Run drives the iterative, non-recursive frame loop (§4.10, §9
// "coroutine-free nested execution"): it repeatedly steps the top frame's
// interpreter and, on every suspension, either folds an immediate outcome
// back into the same frame's stack or pushes/pops a nested frame. No Go
// call stack frame is ever added per EVM call depth; CallStackLimit (1024)
// is enforced against len(frames), not against the Go stack.
func (c *Context) Run(memory *vm.SharedMemory, table *vm.JumpTable, initial *Frame) (*ExecutionResult, error) {
	host := c.host()
	frames := []*Frame{initial}

	for {
		top := frames[len(frames)-1]
		action := top.Interpreter.Step(memory, table, host)

		switch action.Kind {
		case vm.ActionCall:
			pushed, err := c.dispatchCall(&frames, memory, top, action.Call)
			if err != nil {
				return nil, err
			}
			if pushed {
				memory.NewContext()
			}

		case vm.ActionCreate:
			pushed, err := c.dispatchCreate(&frames, memory, top, action.Create, action.Create.Scheme)
			if err != nil {
				return nil, err
			}
			if pushed {
				memory.NewContext()
			}

		case vm.ActionEOFCreate:
			pushed, err := c.dispatchCreate(&frames, memory, top, action.Create, vm.SchemeEOFCreate)
			if err != nil {
				return nil, err
			}
			if pushed {
				memory.NewContext()
			}

		case vm.ActionReturn:
			memory.FreeContext()
			frames = frames[:len(frames)-1]
			fr := c.settleFrame(top, action.Return)

			if len(frames) == 0 {
				return c.buildExecutionResult(top, fr), nil
			}

			parent := frames[len(frames)-1]
			switch top.Kind {
			case FrameCall:
				c.applyCallResult(parent, memory, top, fr)
			case FrameCreate, FrameEOFCreate:
				c.applyCreateResult(parent, fr)
			}
		}
	}
}

// settleFrame commits or reverts a just-finished frame's checkpoint and
// classifies its outcome into the Success/Revert/Halt tri-state (§4.10
// "on Success: ...; on Revert: ...; on Halt: ...", §8 invariant 3). A
// Create/EOFCreate frame's checkpoint is not committed here even on a
// Success instruction result: the deployed code still has to pass §4.10's
// structural checks and pay its code-deposit gas, and either can turn a
// successful init-code run into a reverted creation, so that decision is
// deferred to finalizeCreate.
func (c *Context) settleFrame(f *Frame, ret *vm.InterpreterResult) FrameResult {
	fr := fromInterpreterResult(ret)
	switch {
	case f.Kind == FrameCreate || f.Kind == FrameEOFCreate:
		fr = c.finalizeCreate(f, fr)
	case fr.Kind == Success:
		c.Journal.CheckpointCommit()
	default:
		c.Journal.CheckpointRevert(f.Checkpoint)
	}
	return fr
}

// finalizeCreate applies §4.10's "on creation return, the output becomes
// code" rule: a successful init-code run (Stop/Return/ReturnContract)
// still has to clear the 0xEF-prefix reject, the 24576-byte size ceiling,
// and the code-deposit gas charge before the checkpoint commits; failing
// any of those demotes the outcome to a Halt and reverts the checkpoint
// exactly like a genuine interpreter halt would.
func (c *Context) finalizeCreate(f *Frame, fr FrameResult) FrameResult {
	if fr.Kind != Success {
		c.Journal.CheckpointRevert(f.Checkpoint)
		return fr
	}

	switch fr.Reason {
	case vm.ResultReturn:
		deployed := fr.Output
		if bad := c.validateDeployedCode(deployed); bad != vm.Continue {
			c.Journal.CheckpointRevert(f.Checkpoint)
			return FrameResult{Kind: Halt, Reason: bad}
		}
		depositCost := uint64(len(deployed)) * vm.CreateDataGas
		if fr.GasRemaining < depositCost {
			c.Journal.CheckpointRevert(f.Checkpoint)
			return FrameResult{Kind: Halt, Reason: vm.ResultOutOfGas}
		}
		fr.GasRemaining -= depositCost
		c.Journal.SetCode(f.CreatedAddress, vm.NewLegacyRawBytecode(deployed).ToAnalysed(), crypto.Keccak256Hash(deployed))
	case vm.ResultReturnContract:
		deployed := fr.Output
		c.Journal.SetCode(f.CreatedAddress, vm.NewEOFBytecode(nil, deployed), crypto.Keccak256Hash(deployed))
	default:
		// Stop/SelfDestruct: the contract deploys with empty code.
	}

	c.Journal.CheckpointCommit()
	fr.CreatedAddress = &f.CreatedAddress
	return fr
}

// validateDeployedCode applies the two structural CREATE rejects §4.10
// names beyond the deposit-gas check: a 0xEF prefix (reserved for EOF,
// EIP-3541) and the code-size ceiling (EIP-170's 24576 bytes, or
// CfgEnv.LimitContractCodeSize when that is nonzero).
func (c *Context) validateDeployedCode(code []byte) vm.InstructionResult {
	if c.Rules.IsLondon && len(code) > 0 && code[0] == 0xEF {
		return vm.ResultCreateContractStartingWithEF
	}
	limit := vm.MaxCodeSize
	if c.Env.Cfg.LimitContractCodeSize > 0 {
		limit = c.Env.Cfg.LimitContractCodeSize
	}
	if len(code) > limit {
		return vm.ResultCreateContractSizeLimit
	}
	return vm.Continue
}

// buildExecutionResult packages the top-level frame's outcome as the
// pipeline's ExecutionResult (§6 "ExecutionResult"), refunds not yet
// capped (that is a post-execution step, §4.11 stage 5).
func (c *Context) buildExecutionResult(f *Frame, fr FrameResult) *ExecutionResult {
	res := &ExecutionResult{
		Kind:    fr.Kind,
		Reason:  fr.Reason,
		GasUsed: f.Interpreter.Gas.Spent(),
	}
	if fr.Kind == Halt {
		// A top-level halt forfeits all remaining gas (§7).
		res.GasUsed = f.Interpreter.Gas.Limit()
	}
	if fr.Kind == Success {
		res.GasRefunded = uint64(f.Interpreter.Gas.Refunded())
	}
	switch f.Kind {
	case FrameCall:
		res.Output = Output{IsCreate: false, Data: fr.Output}
	case FrameCreate, FrameEOFCreate:
		res.Output = Output{IsCreate: true, Data: fr.Output, Address: fr.CreatedAddress}
	}
	return res
}

// --- CALL family -----------------------------------------------------

// dispatchCall resolves one CallInputs action: depth/static/balance
// failures and precompile invocations are folded directly into the
// calling frame's stack without ever pushing a new Frame (the "push or
// unwind" branch of §4.10's pseudocode); an ordinary call to a contract
// pushes a new Frame and reports pushed=true so Run knows to open a new
// shared-memory context for it.
func (c *Context) dispatchCall(frames *[]*Frame, memory *vm.SharedMemory, parent *Frame, in *vm.CallInputs) (pushed bool, err error) {
	host := c.host()

	if len(*frames) >= vm.CallStackLimit {
		c.applyCallResult(parent, memory, &Frame{RetOffset: in.RetOffset, RetSize: in.RetSize}, FrameResult{Kind: Revert, Reason: vm.ResultCallTooDeep})
		return false, nil
	}
	if in.IsStatic && !in.Value.IsZero() {
		c.applyCallResult(parent, memory, &Frame{RetOffset: in.RetOffset, RetSize: in.RetSize}, FrameResult{Kind: Halt, Reason: vm.ResultStateChangeDuringStaticCall})
		return false, nil
	}

	transfersValue := in.Scheme == vm.SchemeCall || in.Scheme == vm.SchemeCallCode || in.Scheme == vm.SchemeExtCall
	if transfersValue && !in.Value.IsZero() {
		if _, _, e := host.LoadAccount(in.Target); e != nil {
			return false, e
		}
		callerBalance := c.Journal.Balance(in.Caller)
		if callerBalance.Cmp(&in.Value) < 0 {
			c.applyCallResult(parent, memory, &Frame{RetOffset: in.RetOffset, RetSize: in.RetSize}, FrameResult{Kind: Revert, Reason: vm.ResultOutOfFunds})
			return false, nil
		}
	}

	// The forwarded gas is charged to the caller now, regardless of
	// whether the callee turns out to be a precompile, empty code, or a
	// real contract; EIP-150's stipend (added only for value-bearing
	// CALL/CALLCODE) is never charged to the caller, only credited to
	// the callee, mirroring the teacher's call gas accounting.
	if !parent.Interpreter.Gas.RecordCost(in.GasLimit) {
		c.applyCallResult(parent, memory, &Frame{RetOffset: in.RetOffset, RetSize: in.RetSize}, FrameResult{Kind: Halt, Reason: vm.ResultOutOfGas})
		return false, nil
	}
	childGas := in.GasLimit
	if (in.Scheme == vm.SchemeCall || in.Scheme == vm.SchemeCallCode) && !in.Value.IsZero() {
		childGas += vm.GasCallStipend
	}

	if c.Precompiles.IsPrecompile(in.Address) {
		fr := c.runPrecompile(in, childGas)
		c.applyCallResult(parent, memory, &Frame{RetOffset: in.RetOffset, RetSize: in.RetSize}, fr)
		return false, nil
	}

	if _, _, e := host.LoadAccount(in.Address); e != nil {
		return false, e
	}
	code, e := c.Journal.ResolveCode(in.Address)
	if e != nil {
		return false, e
	}
	codeHash, _, e := host.CodeHash(in.Address)
	if e != nil {
		return false, e
	}

	checkpoint := c.Journal.Checkpoint()
	if transfersValue && !in.Value.IsZero() {
		c.Journal.TransferBalance(in.Caller, in.Target, &in.Value)
	} else if in.Scheme != vm.SchemeDelegateCall && in.Scheme != vm.SchemeExtDelegateCall {
		c.Journal.TouchAccount(in.Target)
	}

	if code.Len() == 0 && code.Kind != vm.EOFCode {
		c.Journal.CheckpointCommit()
		c.applyCallResult(parent, memory, &Frame{RetOffset: in.RetOffset, RetSize: in.RetSize}, FrameResult{Kind: Success, GasRemaining: childGas})
		return false, nil
	}

	contract := vm.NewContract(in.Caller, in.Target, in.Value, in.Input, code, codeHash)
	interp := vm.NewInterpreter(contract, vm.NewGas(childGas), in.IsStatic)
	interp.Tracer = c.Tracer
	interp.Depth = len(*frames)
	frame := &Frame{
		Kind:        FrameCall,
		Interpreter: interp,
		Checkpoint:  checkpoint,
		RetOffset:   in.RetOffset,
		RetSize:     in.RetSize,
		IsStatic:    in.IsStatic,
		Value:       in.Value,
	}
	*frames = append(*frames, frame)
	return true, nil
}

// runPrecompile dispatches a precompile synchronously: it never becomes a
// Frame on the driver's stack since it has no interpreter of its own
// (§4.9). A checkpoint still brackets it since CALL may have transferred
// value to the precompile's address before this runs.
func (c *Context) runPrecompile(in *vm.CallInputs, childGas uint64) FrameResult {
	checkpoint := c.Journal.Checkpoint()
	if !in.Value.IsZero() {
		c.Journal.TransferBalance(in.Caller, in.Target, &in.Value)
	}
	out, gasLeft, err := c.Precompiles.Run(in.Address, in.Input, childGas)
	if err != nil {
		c.Journal.CheckpointRevert(checkpoint)
		reason := vm.ResultPrecompileError
		if errors.Is(err, precompiles.ErrOutOfGas) {
			reason = vm.ResultOutOfGas
		}
		return FrameResult{Kind: Halt, Reason: reason}
	}
	c.Journal.CheckpointCommit()
	return FrameResult{Kind: Success, Reason: vm.ResultReturn, Output: out, GasRemaining: gasLeft}
}

// applyCallResult folds a completed (or never-started) call's outcome into
// the calling frame's own interpreter: stack push, return-data buffer, gas
// credit, and the caller-memory copy at the call's (RetOffset, RetSize)
// window (§4.10 "push result on parent stack... copy return data").
func (c *Context) applyCallResult(parent *Frame, memory *vm.SharedMemory, child *Frame, fr FrameResult) {
	stack := parent.Interpreter.Stack
	switch fr.Kind {
	case Success:
		parent.Interpreter.Gas.EraseCost(fr.GasRemaining)
		if fr.GasRefunded > 0 {
			parent.Interpreter.Gas.RecordRefund(fr.GasRefunded)
		}
		pushBool(stack, true)
		parent.Interpreter.ReturnData = fr.Output
		writeCallReturn(memory, child, fr.Output)
	case Revert:
		parent.Interpreter.Gas.EraseCost(fr.GasRemaining)
		pushBool(stack, false)
		parent.Interpreter.ReturnData = fr.Output
		writeCallReturn(memory, child, fr.Output)
	case Halt:
		pushBool(stack, false)
		parent.Interpreter.ReturnData = nil
	}
}

func writeCallReturn(memory *vm.SharedMemory, child *Frame, output []byte) {
	if child.RetSize == 0 {
		return
	}
	memory.SetData(child.RetOffset, 0, child.RetSize, output)
}

func pushBool(stack *vm.Stack, v bool) {
	var w uint256.Int
	if v {
		w.SetOne()
	}
	_ = stack.Push(&w)
}

// --- CREATE / CREATE2 / EOFCREATE -------------------------------------

// dispatchCreate resolves one CreateInputs action (§4.10): nonce overflow,
// depth, balance and address-collision failures are folded directly into
// the caller's stack; otherwise a new Frame is pushed for the init code
// (or, for EOFCREATE, the already-validated sub-container).
func (c *Context) dispatchCreate(frames *[]*Frame, memory *vm.SharedMemory, parent *Frame, in *vm.CreateInputs, scheme vm.CreateScheme) (pushed bool, err error) {
	host := c.host()

	fail := func(reason vm.InstructionResult) {
		c.applyCreateResult(parent, FrameResult{Kind: Halt, Reason: reason})
	}
	failRevert := func(reason vm.InstructionResult) {
		c.applyCreateResult(parent, FrameResult{Kind: Revert, Reason: reason, GasRemaining: in.GasLimit})
	}

	if len(*frames) >= vm.CallStackLimit {
		fail(vm.ResultCallTooDeep)
		return false, nil
	}

	if _, _, e := host.LoadAccount(in.Caller); e != nil {
		return false, e
	}
	balance := c.Journal.Balance(in.Caller)
	if balance.Cmp(&in.Value) < 0 {
		failRevert(vm.ResultOutOfFunds)
		return false, nil
	}

	nonce := c.Journal.IncrementNonce(in.Caller)
	if nonce == ^uint64(0) {
		fail(vm.ResultNonceOverflow)
		return false, nil
	}

	var createdAddr types.Address
	var initCode []byte
	switch scheme {
	case vm.SchemeCreate:
		createdAddr = createAddress(in.Caller, nonce)
		initCode = in.InitCode
	case vm.SchemeCreate2:
		createdAddr = create2Address(in.Caller, in.Salt, crypto.Keccak256(in.InitCode))
		initCode = in.InitCode
	case vm.SchemeEOFCreate:
		var containerBytes []byte
		if in.Container != nil {
			containerBytes = vm.SerializeEOF(in.Container)
		}
		createdAddr = create2Address(in.Caller, in.Salt, crypto.Keccak256(containerBytes))
	}

	if host.Rules().IsShanghai && len(initCode) > vm.MaxInitCodeSize {
		fail(vm.ResultCreateContractSizeLimit)
		return false, nil
	}

	existing, _, e := host.LoadAccount(createdAddr)
	if e != nil {
		return false, e
	}
	if existing {
		acc, _, e := c.Journal.LoadAccount(createdAddr)
		if e != nil {
			return false, e
		}
		if acc.Info.Nonce != 0 || (acc.Info.CodeHash != types.Hash{} && acc.Info.CodeHash != crypto.EmptyCodeHash) {
			fail(vm.ResultCreateCollision)
			return false, nil
		}
	}

	checkpoint := c.Journal.Checkpoint()
	c.Journal.MarkCreated(createdAddr)
	if host.Rules().IsEIP158 {
		c.Journal.IncrementNonce(createdAddr)
	}
	if !in.Value.IsZero() {
		c.Journal.TransferBalance(in.Caller, createdAddr, &in.Value)
	} else {
		c.Journal.TouchAccount(createdAddr)
	}

	var code *vm.Bytecode
	var frameKind FrameKind
	switch scheme {
	case vm.SchemeEOFCreate:
		code = vm.NewEOFBytecode(in.Container, nil)
		frameKind = FrameEOFCreate
	default:
		code = vm.NewLegacyRawBytecode(initCode).ToAnalysed()
		frameKind = FrameCreate
	}

	contract := vm.NewContract(in.Caller, createdAddr, in.Value, nil, code, types.Hash{})
	interp := vm.NewInterpreter(contract, vm.NewGas(in.GasLimit), false)
	interp.Tracer = c.Tracer
	interp.Depth = len(*frames)
	frame := &Frame{
		Kind:           frameKind,
		Interpreter:    interp,
		Checkpoint:     checkpoint,
		CreatedAddress: createdAddr,
		Value:          in.Value,
	}
	*frames = append(*frames, frame)
	return true, nil
}

// applyCreateResult folds a finished CREATE/CREATE2/EOFCREATE outcome into
// the caller's stack: the created address on success, zero otherwise
// (§4.10). By the time this runs, finalizeCreate has already committed or
// reverted the checkpoint and installed code on success, so this is pure
// stack/gas bookkeeping.
func (c *Context) applyCreateResult(parent *Frame, fr FrameResult) {
	stack := parent.Interpreter.Stack

	if fr.Kind != Success {
		if fr.Kind == Revert {
			parent.Interpreter.Gas.EraseCost(fr.GasRemaining)
			parent.Interpreter.ReturnData = fr.Output
		} else {
			parent.Interpreter.ReturnData = nil
		}
		pushBool(stack, false)
		return
	}

	parent.Interpreter.Gas.EraseCost(fr.GasRemaining)
	if fr.GasRefunded > 0 {
		parent.Interpreter.Gas.RecordRefund(fr.GasRefunded)
	}
	var w uint256.Int
	w.SetBytes(fr.CreatedAddress.Bytes())
	_ = stack.Push(&w)
	parent.Interpreter.ReturnData = nil
}

// NewTopFrame builds the first Frame of a transaction from its to/create
// selection (§4.10 "Initial frame is built from the tx to/create").
func (c *Context) NewTopFrame(caller types.Address, to *types.Address, value uint256.Int, input []byte, gasLimit uint64, eofInit *vm.EOFContainer) (*Frame, error) {
	if to == nil {
		return c.newCreateTopFrame(caller, value, input, gasLimit, eofInit)
	}
	host := c.host()
	if _, _, err := host.LoadAccount(caller); err != nil {
		return nil, err
	}
	if _, _, err := host.LoadAccount(*to); err != nil {
		return nil, err
	}
	code, err := c.Journal.ResolveCode(*to)
	if err != nil {
		return nil, err
	}
	codeHash, _, err := host.CodeHash(*to)
	if err != nil {
		return nil, err
	}
	callerBalance := c.Journal.Balance(caller)
	if !value.IsZero() && callerBalance.Cmp(&value) < 0 {
		return nil, errInsufficientBalance
	}
	checkpoint := c.Journal.Checkpoint()
	if !value.IsZero() {
		c.Journal.TransferBalance(caller, *to, &value)
	} else {
		c.Journal.TouchAccount(*to)
	}
	contract := vm.NewContract(caller, *to, value, input, code, codeHash)
	interp := vm.NewInterpreter(contract, vm.NewGas(gasLimit), false)
	interp.Tracer = c.Tracer
	return &Frame{Kind: FrameCall, Interpreter: interp, Checkpoint: checkpoint}, nil
}

func (c *Context) newCreateTopFrame(caller types.Address, value uint256.Int, input []byte, gasLimit uint64, eofInit *vm.EOFContainer) (*Frame, error) {
	host := c.host()
	if _, _, err := host.LoadAccount(caller); err != nil {
		return nil, err
	}
	callerBalance := c.Journal.Balance(caller)
	if callerBalance.Cmp(&value) < 0 {
		return nil, errInsufficientBalance
	}

	nonce := c.Journal.IncrementNonce(caller)
	addr := createAddress(caller, nonce)

	existing, _, err := host.LoadAccount(addr)
	if err != nil {
		return nil, err
	}
	if existing {
		acc, _, err := c.Journal.LoadAccount(addr)
		if err != nil {
			return nil, err
		}
		if acc.Info.Nonce != 0 || (acc.Info.CodeHash != types.Hash{} && acc.Info.CodeHash != crypto.EmptyCodeHash) {
			return nil, errCreateCollision
		}
	}

	checkpoint := c.Journal.Checkpoint()
	c.Journal.MarkCreated(addr)
	if c.Rules.IsEIP158 {
		c.Journal.IncrementNonce(addr)
	}
	if !value.IsZero() {
		c.Journal.TransferBalance(caller, addr, &value)
	} else {
		c.Journal.TouchAccount(addr)
	}

	var code *vm.Bytecode
	var kind FrameKind
	if eofInit != nil {
		code = vm.NewEOFBytecode(eofInit, nil)
		kind = FrameEOFCreate
	} else {
		code = vm.NewLegacyRawBytecode(input).ToAnalysed()
		kind = FrameCreate
	}
	contract := vm.NewContract(caller, addr, value, nil, code, types.Hash{})
	interp := vm.NewInterpreter(contract, vm.NewGas(gasLimit), false)
	interp.Tracer = c.Tracer
	return &Frame{Kind: kind, Interpreter: interp, Checkpoint: checkpoint, CreatedAddress: addr, Value: value}, nil
}
