package casper

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// EncodeIndex serializes a field index as 4 fixed-width big-endian bytes.
// This encoding exists only for storage-key derivation; it is independent of
// the platform's general little-endian integer serialization.
func EncodeIndex(index uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, index)
	return out
}

// EncodeU32 serializes a u32 in the platform's general little-endian form,
// the encoding mapping lookup keys use for integer keys.
func EncodeU32(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

// DecodeUint decodes a variable-length little-endian unsigned integer.
// The byte list may be shorter than the value's nominal bit width; missing
// high bytes are zero. An empty slice decodes to zero.
func DecodeUint(raw []byte) *big.Int {
	// big.Int wants big-endian, the wire is little-endian
	be := make([]byte, len(raw))
	for i, b := range raw {
		be[len(raw)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

// DecodeBigNum decodes the node's length-prefixed big number form:
// one byte giving the significant-byte count, then that many
// little-endian bytes. U256/U512 values arrive this way.
func DecodeBigNum(raw []byte) (*big.Int, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("big number: empty input")
	}
	n := int(raw[0])
	if len(raw) < 1+n {
		return nil, fmt.Errorf("big number: declared %d bytes, have %d", n, len(raw)-1)
	}
	return DecodeUint(raw[1 : 1+n]), nil
}

// DecodeU64 decodes a fixed-width 8-byte little-endian value
func DecodeU64(raw []byte) (uint64, error) {
	if len(raw) < 8 {
		return 0, fmt.Errorf("u64: expected 8 bytes, got %d", len(raw))
	}
	return binary.LittleEndian.Uint64(raw[:8]), nil
}

// DecodeU32 decodes a fixed-width 4-byte little-endian value
func DecodeU32(raw []byte) (uint32, error) {
	if raw == nil || len(raw) < 4 {
		return 0, fmt.Errorf("u32: expected 4 bytes, got %d", len(raw))
	}
	return binary.LittleEndian.Uint32(raw[:4]), nil
}

// DecodeBool decodes a single-byte boolean
func DecodeBool(raw []byte) (bool, error) {
	if len(raw) < 1 {
		return false, fmt.Errorf("bool: empty input")
	}
	switch raw[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("bool: invalid byte %d", raw[0])
	}
}

// DecodeString consumes a u32 little-endian length prefix followed by that
// many bytes of UTF-8. Returns the string and the number of bytes consumed.
func DecodeString(raw []byte) (string, int, error) {
	if len(raw) < 4 {
		return "", 0, fmt.Errorf("string: missing length prefix")
	}
	n := int(binary.LittleEndian.Uint32(raw[:4]))
	if len(raw) < 4+n {
		return "", 0, fmt.Errorf("string: declared %d bytes, have %d", n, len(raw)-4)
	}
	return string(raw[4 : 4+n]), 4 + n, nil
}
