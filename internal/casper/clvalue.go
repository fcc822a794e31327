package casper

import (
	"encoding/binary"
	"fmt"
)

// CLType names the wire type reported by the node alongside a stored value
type CLType string

const (
	CLTypeKey      CLType = "Key"
	CLTypeByteList CLType = "List(U8)"
	CLTypeU32      CLType = "U32"
	CLTypeU64      CLType = "U64"
	CLTypeU256     CLType = "U256"
	CLTypeU512     CLType = "U512"
	CLTypeBool     CLType = "Bool"
	CLTypeString   CLType = "String"
	CLTypeAny      CLType = "Any"
)

// CLValue is a raw typed value as returned by a dictionary or global-state
// lookup. Bytes is the node's serialized payload, hex-decoded.
type CLValue struct {
	Type  CLType
	Bytes []byte
}

// DecodeAmbiguousIdentifier decodes a logical Identifier from either wire
// shape the node produces for the same field type: a native Key value
// (33 raw bytes), or an opaque byte list that carries a 4-byte little-endian
// length prefix in front of the same 33 bytes. Mapping values tend to arrive
// as the latter, plain values as the former; callers never see the difference.
func DecodeAmbiguousIdentifier(v CLValue) (Identifier, error) {
	switch v.Type {
	case CLTypeKey:
		return DecodeIdentifier(v.Bytes)
	case CLTypeByteList, CLTypeAny:
		raw := v.Bytes
		if len(raw) == IdentifierLength+4 {
			prefix := binary.LittleEndian.Uint32(raw[:4])
			if prefix != IdentifierLength {
				return Identifier{}, fmt.Errorf("%w: byte list length prefix %d", ErrMalformedIdentifier, prefix)
			}
			raw = raw[4:]
		}
		return DecodeIdentifier(raw)
	default:
		return Identifier{}, fmt.Errorf("%w: cannot decode identifier from %s value", ErrMalformedIdentifier, v.Type)
	}
}
