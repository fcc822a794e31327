package casper

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// StorageKey is the 32-byte dictionary address of one stored value
type StorageKey [32]byte

// Hex returns the lowercase hex form the node's dictionary lookup expects
func (k StorageKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// PlainKey derives the storage key of a plain field:
// blake2b-256 over the big-endian index alone.
func PlainKey(index uint32) StorageKey {
	return StorageKey(blake2b.Sum256(EncodeIndex(index)))
}

// MappingKey derives the storage key of one mapping entry:
// blake2b-256 over the big-endian index immediately followed by the
// serialized lookup key. No separator or tag byte sits between the two;
// the index width alone keeps the preimage unambiguous.
func MappingKey(index uint32, lookupKey []byte) StorageKey {
	preimage := make([]byte, 0, 4+len(lookupKey))
	preimage = append(preimage, EncodeIndex(index)...)
	preimage = append(preimage, lookupKey...)
	return StorageKey(blake2b.Sum256(preimage))
}
