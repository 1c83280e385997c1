// Package precompiles implements the native contracts living at addresses
// 0x01-0x11 (§4.9 "Precompiled contracts"): each is dispatched in place of
// running EVM bytecode, charged its own gas schedule instead of the
// per-opcode one, and fork-gated the same way opcodes are.
package precompiles

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/baron-chain/baron-evm/params"
	"github.com/baron-chain/baron-evm/types"
)

// Contract is the interface every native contract implements, mirroring the
// teacher's core/vm.PrecompiledContract (pkg/core/vm/precompiles.go).
type Contract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// ErrOutOfGas is returned by Set.Run when the caller supplied less gas than
// RequiredGas demands, mirroring the interpreter's own out-of-gas result
// rather than returning it as the contract's own error.
var ErrOutOfGas = errors.New("precompile: out of gas")

// ErrNotAPrecompile is returned by Set.Run for an address with no entry.
var ErrNotAPrecompile = errors.New("precompile: not a precompiled contract")

// Set is the fork-gated address -> Contract table active under one Rules
// value (§4.9's fork-gating: Frontier starts with {0x01-0x04}, Byzantium adds
// {0x05-0x08}, Istanbul adds {0x09}, Cancun adds {0x0a}, Prague adds
// {0x0b-0x11}).
type Set struct {
	contracts map[types.Address]Contract
}

// setCache holds one read-only Set per Rules value, shared process-wide.
var setCache sync.Map // params.Rules -> *Set

// NewSet returns the precompile table active under rules. The first call
// for a given Rules value builds it by starting from Frontier's four and
// layering in each fork's additions exactly once, rather than hardcoding a
// single latest set the way the teacher's PrecompiledContractsCancun global
// does — this module supports the full fork range. The built table is
// cached in setCache, and every later call with the same Rules returns it.
func NewSet(rules params.Rules) *Set {
	if cached, ok := setCache.Load(rules); ok {
		return cached.(*Set)
	}
	s := &Set{contracts: make(map[types.Address]Contract)}
	s.add(1, &ecrecoverContract{})
	s.add(2, &sha256Contract{})
	s.add(3, &ripemd160Contract{})
	s.add(4, &identityContract{})
	if rules.IsByzantium {
		s.add(5, &modexpContract{eip2565: rules.IsBerlin})
		s.add(6, &bn254AddContract{})
		s.add(7, &bn254MulContract{})
		s.add(8, &bn254PairingContract{})
	}
	if rules.IsIstanbul {
		s.add(9, &blake2FContract{})
	}
	if rules.IsCancun {
		s.add(0x0a, newKZGPointEvaluationContract())
	}
	if rules.IsPrague {
		s.add(0x0b, &blsG1AddContract{})
		s.add(0x0c, &blsG1MSMContract{})
		s.add(0x0d, &blsG2AddContract{})
		s.add(0x0e, &blsG2MSMContract{})
		s.add(0x0f, &blsPairingCheckContract{})
		s.add(0x10, &blsMapFPToG1Contract{})
		s.add(0x11, &blsMapFP2ToG2Contract{})
	}
	cached, _ := setCache.LoadOrStore(rules, s)
	return cached.(*Set)
}

func (s *Set) add(lastByte byte, c Contract) {
	s.contracts[types.BytesToAddress([]byte{lastByte})] = c
}

// Addresses returns every address in the set, for seeding the journaled
// state's mandatory warm set (§3 invariant "warm set always ⊇ precompile
// addresses").
func (s *Set) Addresses() []types.Address {
	addrs := make([]types.Address, 0, len(s.contracts))
	for a := range s.contracts {
		addrs = append(addrs, a)
	}
	return addrs
}

// IsPrecompile reports whether addr names a contract in this set.
func (s *Set) IsPrecompile(addr types.Address) bool {
	_, ok := s.contracts[addr]
	return ok
}

// Run dispatches to addr's contract, charging RequiredGas(input) before
// executing (§4.9), and returns the gas left after that charge alongside
// the contract's own error. The frame driver turns any error into a halt,
// not a revert, so a failed precompile call gives no gas back to the caller.
func (s *Set) Run(addr types.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	c, ok := s.contracts[addr]
	if !ok {
		return nil, gas, ErrNotAPrecompile
	}
	cost := c.RequiredGas(input)
	if gas < cost {
		return nil, 0, ErrOutOfGas
	}
	out, err := c.Run(input)
	return out, gas - cost, err
}

func wordCount(size int) uint64 {
	if size == 0 {
		return 0
	}
	return uint64((size + 31) / 32)
}

func padRight(data []byte, minLen int) []byte {
	if len(data) >= minLen {
		return data
	}
	padded := make([]byte, minLen)
	copy(padded, data)
	return padded
}

func getDataSlice(data []byte, offset, length uint64) []byte {
	if length == 0 {
		return nil
	}
	result := make([]byte, length)
	if offset >= uint64(len(data)) {
		return result
	}
	end := offset + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	copy(result, data[offset:end])
	return result
}
