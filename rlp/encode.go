// Package rlp is a minimal RLP encoder, trimmed from the teacher's own
// pkg/rlp to the subset the EVM core needs: encoding the [sender, nonce]
// pair for CREATE address derivation (§4.10, §6) and arbitrary byte
// strings/lists for callers outside the interpreter's hot path. It is
// reflection-based like the teacher's encoder, which the interpreter does
// not call per-opcode (only once per CREATE), so the reflection cost is
// immaterial.
package rlp

import (
	"reflect"

	"github.com/holiman/uint256"
)

// EncodeToBytes returns the RLP encoding of val. Supported kinds: uint64,
// *uint256.Int, []byte, fixed-size byte arrays (e.g. types.Address), and
// slices/arrays of the above (encoded as an RLP list).
func EncodeToBytes(val interface{}) []byte {
	return encodeValue(reflect.ValueOf(val))
}

func encodeValue(v reflect.Value) []byte {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return []byte{0x80}
		}
		v = v.Elem()
	}

	if u, ok := v.Interface().(uint256.Int); ok {
		return encodeBytes(minimalBigEndian(u.Bytes()))
	}

	switch v.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return encodeUint(v.Uint())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return encodeBytes(v.Bytes())
		}
		return encodeList(v)
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			for i := 0; i < v.Len(); i++ {
				b[i] = byte(v.Index(i).Uint())
			}
			return encodeBytes(b)
		}
		return encodeList(v)
	default:
		return []byte{0x80}
	}
}

func encodeList(v reflect.Value) []byte {
	var payload []byte
	for i := 0; i < v.Len(); i++ {
		payload = append(payload, encodeValue(v.Index(i))...)
	}
	return wrapList(payload)
}

func encodeUint(u uint64) []byte {
	if u == 0 {
		return []byte{0x80}
	}
	return encodeBytes(minimalBigEndian(uint64ToBytes(u)))
}

func encodeBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) < 56 {
		return append([]byte{byte(0x80 + len(b))}, b...)
	}
	lenBytes := minimalBigEndian(uint64ToBytes(uint64(len(b))))
	header := append([]byte{byte(0xb7 + len(lenBytes))}, lenBytes...)
	return append(header, b...)
}

func wrapList(payload []byte) []byte {
	if len(payload) < 56 {
		return append([]byte{byte(0xc0 + len(payload))}, payload...)
	}
	lenBytes := minimalBigEndian(uint64ToBytes(uint64(len(payload))))
	header := append([]byte{byte(0xf7 + len(lenBytes))}, lenBytes...)
	return append(header, payload...)
}

func uint64ToBytes(v uint64) []byte {
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf[:]
}

// minimalBigEndian strips leading zero bytes.
func minimalBigEndian(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}
