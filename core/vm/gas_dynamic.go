package vm

import (
	"github.com/holiman/uint256"

	"github.com/baron-chain/baron-evm/types"
)

// The dynamicGas functions below run after constant gas and memory
// expansion have already been charged (§4.1, §4.6): they read Host for
// cold/warm bookkeeping and the stack for size-dependent formulas, then
// return the additional cost for Interpreter.Step to record.

func gasExp(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	exponent := in.Stack.Back(1)
	byteLen := (exponent.BitLen() + 7) / 8
	return uint64(byteLen) * GasExpByte, nil
}

func gasKeccak256(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	size := in.Stack.Back(1).Uint64()
	return toWordSize(size) / 32 * GasKeccak256Word, nil
}

func gasCopy(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	size := in.Stack.Back(2).Uint64()
	return toWordSize(size) / 32 * GasCopy, nil
}

func gasReturnDataCopy(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	return gasCopy(in, host, mem)
}

func gasMcopy(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	size := in.Stack.Back(2).Uint64()
	return toWordSize(size) / 32 * GasCopy, nil
}

func gasLog(topics int) dynamicGasFunc {
	return func(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
		size := in.Stack.Back(1).Uint64()
		return uint64(topics)*GasLogTopic + size*GasLogData, nil
	}
}

func gasBalance(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	addr := addressFromWord(in.Stack.Peek())
	_, wasCold, err := host.Balance(addr)
	if err != nil {
		return 0, err
	}
	return coldWarmCost(wasCold, GasBalanceCold, GasBalanceWarm), nil
}

func gasExtCodeSize(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	addr := addressFromWord(in.Stack.Peek())
	_, wasCold, err := host.Code(addr)
	if err != nil {
		return 0, err
	}
	return coldWarmCost(wasCold, GasBalanceCold, GasBalanceWarm), nil
}

func gasExtCodeHash(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	addr := addressFromWord(in.Stack.Peek())
	_, wasCold, err := host.CodeHash(addr)
	if err != nil {
		return 0, err
	}
	return coldWarmCost(wasCold, GasBalanceCold, GasBalanceWarm), nil
}

func gasExtCodeCopy(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	addr := addressFromWord(in.Stack.Back(0))
	_, wasCold, err := host.Code(addr)
	if err != nil {
		return 0, err
	}
	size := in.Stack.Back(3).Uint64()
	return coldWarmCost(wasCold, GasBalanceCold, GasBalanceWarm) + toWordSize(size)/32*GasCopy, nil
}

func gasSload(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	key := *in.Stack.Peek()
	_, wasCold, err := host.SLoad(in.Contract.Address, key)
	if err != nil {
		return 0, err
	}
	return coldWarmCost(wasCold, GasSloadCold, GasSloadWarm), nil
}

// gasSstore follows the EIP-2200/EIP-3529 schedule: cost depends on the
// relationship between the slot's original, current, and new value, with
// an additional cold-access surcharge (EIP-2929) folded in by SStore's
// was_cold result.
func gasSstore(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	// EIP-2200 sentry: with no more than the call stipend remaining, SSTORE
	// must fail without touching state. An impossible cost makes RecordCost
	// fail, which the step loop classifies as out-of-gas.
	if in.Gas.Remaining() <= GasCallStipend {
		return ^uint64(0), nil
	}
	key := *in.Stack.Back(0)
	newVal := *in.Stack.Back(1)
	original, current, wasCold, err := host.SStore(in.Contract.Address, key, newVal)
	if err != nil {
		return 0, err
	}
	var cost uint64
	switch {
	case current == newVal:
		cost = GasSloadWarm
	case original == current:
		if original.IsZero() {
			cost = GasSstoreSet
		} else {
			cost = GasSstoreReset
			if newVal.IsZero() {
				in.Gas.RecordRefund(int64(GasSstoreClearsScheduleRefund))
			}
		}
	default:
		cost = GasSloadWarm
		if !original.IsZero() {
			if current.IsZero() {
				in.Gas.RecordRefund(-int64(GasSstoreClearsScheduleRefund))
			}
			if newVal.IsZero() {
				in.Gas.RecordRefund(int64(GasSstoreClearsScheduleRefund))
			}
		}
		if original == newVal {
			if original.IsZero() {
				in.Gas.RecordRefund(int64(GasSstoreSet - GasSloadWarm))
			} else {
				in.Gas.RecordRefund(int64(GasSstoreReset - GasSloadWarm))
			}
		}
	}
	if wasCold {
		cost += GasSloadCold - GasSloadWarm
	}
	return cost, nil
}

func gasCreate(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	size := in.Stack.Back(2).Uint64()
	return toWordSize(size) / 32 * GasInitcodeWord, nil
}

func gasCreate2(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	size := in.Stack.Back(2).Uint64()
	words := toWordSize(size) / 32
	return words*GasInitcodeWord + words*GasKeccak256Word, nil
}

// gasEOFCreate charges for EOFCREATE's auxdata (§4.3 EIP-7620): unlike
// CREATE2, the sub-container itself was already paid for at deploy time of
// the creating contract, so only the memory-resident auxdata's word count
// is charged here. Stack order is (value, salt, input_offset, input_size)
// top-to-bottom, so size sits at Back(3), not CREATE2's Back(2).
func gasEOFCreate(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	size := in.Stack.Back(3).Uint64()
	return toWordSize(size) / 32 * GasInitcodeWord, nil
}

func gasCall(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	return gasCallGeneric(in, host, true)
}

func gasCallNoValue(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	return gasCallGeneric(in, host, false)
}

func gasCallGeneric(in *Interpreter, host Host, hasValue bool) (uint64, error) {
	addrPos := 1
	addr := addressFromWord(in.Stack.Back(addrPos))
	exists, wasCold, err := host.LoadAccount(addr)
	if err != nil {
		return 0, err
	}
	cost := coldWarmCost(wasCold, GasCallCold, GasCallWarm)
	if hasValue {
		value := in.Stack.Back(2)
		if !value.IsZero() {
			cost += GasCallValue
			if !exists {
				cost += GasNewAccount
			}
		}
	}
	return cost, nil
}

// gasExtCall/gasExtCallNoValue are gasCallGeneric's EIP-7069 counterparts:
// EXTCALL's stack has no caller-supplied gas operand and puts the target
// address at Back(0) instead of legacy CALL's Back(1).
func gasExtCall(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	return gasExtCallGeneric(in, host, true)
}

func gasExtCallNoValue(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	return gasExtCallGeneric(in, host, false)
}

func gasExtCallGeneric(in *Interpreter, host Host, hasValue bool) (uint64, error) {
	addr := addressFromWord(in.Stack.Back(0))
	exists, wasCold, err := host.LoadAccount(addr)
	if err != nil {
		return 0, err
	}
	cost := coldWarmCost(wasCold, GasCallCold, GasCallWarm)
	if hasValue {
		value := in.Stack.Back(3)
		if !value.IsZero() {
			cost += GasCallValue
			if !exists {
				cost += GasNewAccount
			}
		}
	}
	return cost, nil
}

func gasSelfDestruct(in *Interpreter, host Host, mem *SharedMemory) (uint64, error) {
	target := addressFromWord(in.Stack.Peek())
	exists, wasCold, err := host.LoadAccount(target)
	if err != nil {
		return 0, err
	}
	var cost uint64
	if wasCold {
		cost += GasBalanceCold
	}
	if !exists && !host.Rules().IsEIP158 {
		cost += GasNewAccount
	} else if !exists {
		bal, _, _ := host.Balance(in.Contract.Address)
		if !bal.IsZero() {
			cost += GasNewAccount
		}
	}
	return cost, nil
}

func coldWarmCost(wasCold bool, cold, warm uint64) uint64 {
	if wasCold {
		return cold
	}
	return warm
}

func addressFromWord(w *uint256.Int) (a types.Address) {
	b := w.Bytes32()
	copy(a[:], b[12:])
	return a
}
