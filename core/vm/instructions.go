package vm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/crypto"
	"github.com/baron-chain/baron-evm/types"
)

// Instruction handlers follow the teacher's core/vm/instructions.go shape:
// pop operands from the interpreter's own Stack, compute in place on
// uint256.Int, and push the result back. None of these ever return an
// error directly; a handler that needs to halt calls in.Halt(...) and
// relies on Step's loop to notice in.action.Kind != ActionNone.

func opStop(in *Interpreter, host Host, mem *SharedMemory) { in.Halt(ResultStop) }

func opAdd(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Add(&x, y)
}

func opMul(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Mul(&x, y)
}

func opSub(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Sub(&x, y)
}

func opDiv(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Div(&x, y)
}

func opSdiv(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.SDiv(&x, y)
}

func opMod(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Mod(&x, y)
}

func opSmod(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.SMod(&x, y)
}

func opExp(in *Interpreter, host Host, mem *SharedMemory) {
	base, exponent := in.Stack.Pop(), in.Stack.Peek()
	exponent.Exp(&base, exponent)
}

func opSignExtend(in *Interpreter, host Host, mem *SharedMemory) {
	back, num := in.Stack.Pop(), in.Stack.Peek()
	num.ExtendSign(num, &back)
}

func opLt(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
}

func opGt(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
}

func opSlt(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
}

func opSgt(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
}

func opEq(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	if x == *y {
		y.SetOne()
	} else {
		y.Clear()
	}
}

func opIszero(in *Interpreter, host Host, mem *SharedMemory) {
	x := in.Stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
}

func opAnd(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.And(&x, y)
}

func opOr(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Or(&x, y)
}

func opXor(in *Interpreter, host Host, mem *SharedMemory) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Xor(&x, y)
}

func opNot(in *Interpreter, host Host, mem *SharedMemory) {
	x := in.Stack.Peek()
	x.Not(x)
}

func opByte(in *Interpreter, host Host, mem *SharedMemory) {
	th, val := in.Stack.Pop(), in.Stack.Peek()
	val.Byte(&th)
}

func opShl(in *Interpreter, host Host, mem *SharedMemory) {
	shift, val := in.Stack.Pop(), in.Stack.Peek()
	if shift.LtUint64(256) {
		val.Lsh(val, uint(shift.Uint64()))
	} else {
		val.Clear()
	}
}

func opShr(in *Interpreter, host Host, mem *SharedMemory) {
	shift, val := in.Stack.Pop(), in.Stack.Peek()
	if shift.LtUint64(256) {
		val.Rsh(val, uint(shift.Uint64()))
	} else {
		val.Clear()
	}
}

func opSar(in *Interpreter, host Host, mem *SharedMemory) {
	shift, val := in.Stack.Pop(), in.Stack.Peek()
	if shift.GtUint64(255) {
		if val.Sign() >= 0 {
			val.Clear()
		} else {
			val.SetAllOne()
		}
		return
	}
	val.SRsh(val, uint(shift.Uint64()))
}

func opAddmod(in *Interpreter, host Host, mem *SharedMemory) {
	x, y, z := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Peek()
	if z.IsZero() {
		z.Clear()
	} else {
		z.AddMod(&x, &y, z)
	}
}

func opMulmod(in *Interpreter, host Host, mem *SharedMemory) {
	x, y, z := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Peek()
	if z.IsZero() {
		z.Clear()
	} else {
		z.MulMod(&x, &y, z)
	}
}

func opKeccak256(in *Interpreter, host Host, mem *SharedMemory) {
	offset, size := in.Stack.Pop(), in.Stack.Peek()
	data := mem.SliceRef(offset.Uint64(), size.Uint64())
	size.SetBytes(crypto.Keccak256(data))
}

func opAddress(in *Interpreter, host Host, mem *SharedMemory) {
	pushAddress(in, in.Contract.Address)
}

func opOrigin(in *Interpreter, host Host, mem *SharedMemory) {
	pushAddress(in, host.Tx().Origin)
}

func opCaller(in *Interpreter, host Host, mem *SharedMemory) {
	pushAddress(in, in.Contract.CallerAddress)
}

func opCallValue(in *Interpreter, host Host, mem *SharedMemory) {
	_ = in.Stack.Push(&in.Contract.Value)
}

func opCallDataLoad(in *Interpreter, host Host, mem *SharedMemory) {
	offset := in.Stack.Peek()
	var word [32]byte
	if offset.IsUint64() {
		off := offset.Uint64()
		if off < uint64(len(in.Contract.Input)) {
			copy(word[:], in.Contract.Input[off:])
		}
	}
	offset.SetBytes(word[:])
}

func opCallDataSize(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, uint64(len(in.Contract.Input)))
}

func opCallDataCopy(in *Interpreter, host Host, mem *SharedMemory) {
	memOffset, dataOffset, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	mem.SetData(memOffset.Uint64(), dataOffset.Uint64(), size.Uint64(), in.Contract.Input)
}

func opCodeSize(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, uint64(in.Contract.Code.Len()))
}

func opCodeCopy(in *Interpreter, host Host, mem *SharedMemory) {
	memOffset, codeOffset, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	mem.SetData(memOffset.Uint64(), codeOffset.Uint64(), size.Uint64(), in.Contract.Code.Original())
}

func opGasPrice(in *Interpreter, host Host, mem *SharedMemory) {
	v := host.Tx().GasPrice
	_ = in.Stack.Push(&v)
}

func opExtCodeSize(in *Interpreter, host Host, mem *SharedMemory) {
	addr := addressFromWord(in.Stack.Peek())
	code, _, err := host.Code(addr)
	if err != nil {
		in.Halt(ResultFatalExternalError)
		return
	}
	size := uint64(0)
	if code != nil {
		size = uint64(code.Len())
	}
	pushUint64(in, size)
}

func opExtCodeCopy(in *Interpreter, host Host, mem *SharedMemory) {
	addrWord := in.Stack.Pop()
	addr := addressFromWord(&addrWord)
	memOffset, codeOffset, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	code, _, err := host.Code(addr)
	if err != nil {
		in.Halt(ResultFatalExternalError)
		return
	}
	var src []byte
	if code != nil {
		src = code.Original()
	}
	mem.SetData(memOffset.Uint64(), codeOffset.Uint64(), size.Uint64(), src)
}

func opReturnDataSize(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, uint64(len(in.ReturnData)))
}

func opReturnDataCopy(in *Interpreter, host Host, mem *SharedMemory) {
	memOffset, dataOffset, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	end, overflow := addSize(dataOffset.Uint64(), size.Uint64())
	if overflow || end > uint64(len(in.ReturnData)) {
		in.Halt(ResultOutOfGas)
		return
	}
	mem.Set(memOffset.Uint64(), in.ReturnData[dataOffset.Uint64():end])
}

func opExtCodeHash(in *Interpreter, host Host, mem *SharedMemory) {
	addr := addressFromWord(in.Stack.Peek())
	hash, _, err := host.CodeHash(addr)
	if err != nil {
		in.Halt(ResultFatalExternalError)
		return
	}
	in.Stack.Peek().SetBytes(hash.Bytes())
}

func opBlockHash(in *Interpreter, host Host, mem *SharedMemory) {
	num := in.Stack.Peek()
	hash, err := host.BlockHash(num.Uint64())
	if err != nil {
		in.Halt(ResultFatalExternalError)
		return
	}
	num.SetBytes(hash.Bytes())
}

func opBalance(in *Interpreter, host Host, mem *SharedMemory) {
	addr := addressFromWord(in.Stack.Peek())
	bal, _, err := host.Balance(addr)
	if err != nil {
		in.Halt(ResultFatalExternalError)
		return
	}
	in.Stack.Peek().Set(&bal)
}

func opPop(in *Interpreter, host Host, mem *SharedMemory) { in.Stack.Pop() }

func opMload(in *Interpreter, host Host, mem *SharedMemory) {
	offset := in.Stack.Peek()
	offset.SetBytes(mem.SliceRef(offset.Uint64(), 32))
}

func opMstore(in *Interpreter, host Host, mem *SharedMemory) {
	offset, val := in.Stack.Pop(), in.Stack.Pop()
	mem.Set32(offset.Uint64(), &val)
}

func opMstore8(in *Interpreter, host Host, mem *SharedMemory) {
	offset, val := in.Stack.Pop(), in.Stack.Pop()
	mem.Set(offset.Uint64(), []byte{byte(val.Uint64())})
}

func opSload(in *Interpreter, host Host, mem *SharedMemory) {
	key := in.Stack.Peek()
	val, _, err := host.SLoad(in.Contract.Address, *key)
	if err != nil {
		in.Halt(ResultFatalExternalError)
		return
	}
	key.Set(&val)
}

// opSstore only consumes its operands: the store itself already happened in
// gasSstore, which needs the slot's (original, current, new) triple anyway
// to price the write and track refunds.
func opSstore(in *Interpreter, host Host, mem *SharedMemory) {
	in.Stack.Pop()
	in.Stack.Pop()
}

func opJump(in *Interpreter, host Host, mem *SharedMemory) {
	dest := in.Stack.Pop()
	if !dest.IsUint64() || !in.Bytecode.IsValidJump(dest.Uint64()) {
		in.Halt(ResultInvalidJump)
		return
	}
	in.ip = dest.Uint64()
}

func opJumpi(in *Interpreter, host Host, mem *SharedMemory) {
	dest, cond := in.Stack.Pop(), in.Stack.Pop()
	if cond.IsZero() {
		return
	}
	if !dest.IsUint64() || !in.Bytecode.IsValidJump(dest.Uint64()) {
		in.Halt(ResultInvalidJump)
		return
	}
	in.ip = dest.Uint64()
}

func opPc(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, in.ip-1)
}

func opJumpdest(in *Interpreter, host Host, mem *SharedMemory) {}

func opMsize(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, uint64(mem.Len()))
}

func opGas(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, in.Gas.Remaining())
}

func opTload(in *Interpreter, host Host, mem *SharedMemory) {
	key := in.Stack.Peek()
	val := host.TLoad(in.Contract.Address, *key)
	key.Set(&val)
}

func opTstore(in *Interpreter, host Host, mem *SharedMemory) {
	key, val := in.Stack.Pop(), in.Stack.Pop()
	host.TStore(in.Contract.Address, key, val)
}

func opMcopy(in *Interpreter, host Host, mem *SharedMemory) {
	dst, src, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	mem.Copy(dst.Uint64(), src.Uint64(), size.Uint64())
}

func opPush0(in *Interpreter, host Host, mem *SharedMemory) {
	var z uint256.Int
	_ = in.Stack.Push(&z)
}

func makePush(size int) executionFunc {
	return func(in *Interpreter, host Host, mem *SharedMemory) {
		data := in.immediateData(in.ip-1, size)
		_ = in.Stack.PushSlice(data)
		in.ip += uint64(size)
	}
}

func makeDup(n int) executionFunc {
	return func(in *Interpreter, host Host, mem *SharedMemory) { in.Stack.Dup(n) }
}

func makeSwap(n int) executionFunc {
	return func(in *Interpreter, host Host, mem *SharedMemory) { in.Stack.Swap(n) }
}

func makeLog(topics int) executionFunc {
	return func(in *Interpreter, host Host, mem *SharedMemory) {
		offset, size := in.Stack.Pop(), in.Stack.Pop()
		data := mem.Slice(offset.Uint64(), size.Uint64())
		hashes := make([]types.Hash, topics)
		for i := 0; i < topics; i++ {
			t := in.Stack.Pop()
			hashes[i] = types.BytesToHash(t.Bytes())
		}
		host.Log(types.Log{Address: in.Contract.Address, Topics: hashes, Data: data})
	}
}

func opReturn(in *Interpreter, host Host, mem *SharedMemory) {
	offset, size := in.Stack.Pop(), in.Stack.Pop()
	in.HaltWithOutput(ResultReturn, mem.Slice(offset.Uint64(), size.Uint64()))
}

func opRevert(in *Interpreter, host Host, mem *SharedMemory) {
	offset, size := in.Stack.Pop(), in.Stack.Pop()
	in.HaltWithOutput(ResultRevert, mem.Slice(offset.Uint64(), size.Uint64()))
}

func opInvalid(in *Interpreter, host Host, mem *SharedMemory) { in.Halt(ResultInvalidEFOpcode) }

func opSelfDestruct(in *Interpreter, host Host, mem *SharedMemory) {
	targetWord := in.Stack.Pop()
	target := addressFromWord(&targetWord)
	_, _, err := host.SelfDestruct(in.Contract.Address, target)
	if err != nil {
		in.Halt(ResultFatalExternalError)
		return
	}
	in.Halt(ResultSelfDestruct)
}

func opCreate(in *Interpreter, host Host, mem *SharedMemory) {
	value, offset, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	initCode := mem.Slice(offset.Uint64(), size.Uint64())
	in.ScheduleCreate(&CreateInputs{
		Scheme:   SchemeCreate,
		Caller:   in.Contract.Address,
		Value:    value,
		InitCode: initCode,
		GasLimit: callGasStipend(in),
	})
}

func opCreate2(in *Interpreter, host Host, mem *SharedMemory) {
	value, offset, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	salt := in.Stack.Pop()
	initCode := mem.Slice(offset.Uint64(), size.Uint64())
	in.ScheduleCreate(&CreateInputs{
		Scheme:   SchemeCreate2,
		Caller:   in.Contract.Address,
		Value:    value,
		InitCode: initCode,
		Salt:     salt,
		GasLimit: callGasStipend(in),
	})
}

// callGasStipend applies EIP-150's 63/64 rule: the child frame may keep
// at most all-but-one-64th of the remaining gas.
func callGasStipend(in *Interpreter) uint64 {
	remaining := in.Gas.Remaining()
	return remaining - remaining/CallGasFraction
}

// buildCallInputs reads the CALL-family's operands off the stack (the
// gas/address/[value]/argsOffset/argsSize/retOffset/retSize shape shared by
// CALL, CALLCODE, DELEGATECALL and STATICCALL) and copies the call's input
// data out of the current frame's memory before that memory is reused by
// the callee.
func buildCallInputs(in *Interpreter, mem *SharedMemory, scheme CallScheme, hasValue bool) *CallInputs {
	gasArg := in.Stack.Pop()
	addrWord := in.Stack.Pop()
	addr := addressFromWord(&addrWord)
	var value uint256.Int
	if hasValue {
		value = in.Stack.Pop()
	}
	argsOffset, argsSize := in.Stack.Pop(), in.Stack.Pop()
	retOffset, retSize := in.Stack.Pop(), in.Stack.Pop()
	input := mem.Slice(argsOffset.Uint64(), argsSize.Uint64())

	requested := gasArg.Uint64()
	stipend := callGasStipend(in)
	if requested > stipend {
		requested = stipend
	}

	caller := in.Contract.Address
	target := addr
	callee := addr
	if scheme == SchemeCallCode || scheme == SchemeDelegateCall {
		target = in.Contract.Address
	}
	if scheme == SchemeDelegateCall {
		caller = in.Contract.CallerAddress
		value = in.Contract.Value
	}

	return &CallInputs{
		Scheme: scheme, Caller: caller, Address: callee, Target: target, Value: value,
		Input: input, GasLimit: requested, IsStatic: scheme == SchemeStaticCall || in.IsStatic,
		RetOffset: retOffset.Uint64(), RetSize: retSize.Uint64(),
	}
}

func opCall(in *Interpreter, host Host, mem *SharedMemory) {
	in.ScheduleCall(buildCallInputs(in, mem, SchemeCall, true))
}

func opCallCode(in *Interpreter, host Host, mem *SharedMemory) {
	in.ScheduleCall(buildCallInputs(in, mem, SchemeCallCode, true))
}

func opDelegateCall(in *Interpreter, host Host, mem *SharedMemory) {
	in.ScheduleCall(buildCallInputs(in, mem, SchemeDelegateCall, false))
}

func opStaticCall(in *Interpreter, host Host, mem *SharedMemory) {
	in.ScheduleCall(buildCallInputs(in, mem, SchemeStaticCall, false))
}

func opBlobHash(in *Interpreter, host Host, mem *SharedMemory) {
	idx := in.Stack.Peek()
	hashes := host.Tx().BlobHashes
	if idx.IsUint64() && idx.Uint64() < uint64(len(hashes)) {
		idx.SetBytes(hashes[idx.Uint64()].Bytes())
	} else {
		idx.Clear()
	}
}

func opBlobBaseFee(in *Interpreter, host Host, mem *SharedMemory) {
	v := host.Block().BlobBaseFee
	_ = in.Stack.Push(&v)
}

func opCoinbase(in *Interpreter, host Host, mem *SharedMemory) {
	pushAddress(in, host.Block().Coinbase)
}

func opTimestamp(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, host.Block().Timestamp)
}

func opNumber(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, host.Block().BlockNumber)
}

func opPrevRandao(in *Interpreter, host Host, mem *SharedMemory) {
	var z uint256.Int
	z.SetBytes(host.Block().PrevRandao.Bytes())
	_ = in.Stack.Push(&z)
}

func opGasLimit(in *Interpreter, host Host, mem *SharedMemory) {
	pushUint64(in, host.Block().GasLimit)
}

func opChainID(in *Interpreter, host Host, mem *SharedMemory) {
	v := host.ChainID()
	_ = in.Stack.Push(&v)
}

func opSelfBalance(in *Interpreter, host Host, mem *SharedMemory) {
	bal, _, err := host.Balance(in.Contract.Address)
	if err != nil {
		in.Halt(ResultFatalExternalError)
		return
	}
	_ = in.Stack.Push(&bal)
}

func opBaseFee(in *Interpreter, host Host, mem *SharedMemory) {
	v := host.Block().BaseFee
	_ = in.Stack.Push(&v)
}

func pushAddress(in *Interpreter, addr types.Address) {
	var z uint256.Int
	z.SetBytes(addr.Bytes())
	_ = in.Stack.Push(&z)
}

func pushUint64(in *Interpreter, v uint64) {
	var z uint256.Int
	z.SetUint64(v)
	_ = in.Stack.Push(&z)
}
