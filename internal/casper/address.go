package casper

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// Tag identifies the kind of on-chain entity an Identifier points at.
type Tag byte

const (
	// TagAccount marks an account hash
	TagAccount Tag = 0
	// TagContract marks a contract package hash
	TagContract Tag = 1
)

// IdentifierLength is the serialized size: one tag byte plus a 32-byte hash
const IdentifierLength = 33

// ErrMalformedIdentifier is returned when bytes cannot be decoded as an Identifier
var ErrMalformedIdentifier = fmt.Errorf("malformed identifier")

// Identifier is a tagged 33-byte reference to an account or a contract package.
// Ordering (Compare) is over the full serialized form, tag byte included,
// which is what canonicalizes unordered token pairs.
type Identifier struct {
	Tag  Tag
	Hash [32]byte
}

// Encode returns the 33-byte serialized form: tag byte followed by the hash verbatim
func (id Identifier) Encode() []byte {
	out := make([]byte, IdentifierLength)
	out[0] = byte(id.Tag)
	copy(out[1:], id.Hash[:])
	return out
}

// Compare orders two identifiers byte-wise over their serialized form.
// Returns -1, 0 or 1.
func (id Identifier) Compare(other Identifier) int {
	return bytes.Compare(id.Encode(), other.Encode())
}

// Equal reports whether two identifiers are the same entity
func (id Identifier) Equal(other Identifier) bool {
	return id.Tag == other.Tag && id.Hash == other.Hash
}

// IsZero reports whether the identifier is the zero value
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

// HexHash returns the lowercase hex of the 32-byte hash (no tag, no prefix)
func (id Identifier) HexHash() string {
	return hex.EncodeToString(id.Hash[:])
}

// String formats the identifier the way the node's tooling does:
// "account-hash-<hex>" for accounts, "hash-<hex>" for contract packages
func (id Identifier) String() string {
	if id.Tag == TagAccount {
		return "account-hash-" + id.HexHash()
	}
	return "hash-" + id.HexHash()
}

// DecodeIdentifier parses the 33-byte serialized form.
// Fails unless the length is exactly 33 and the tag is a known value.
func DecodeIdentifier(raw []byte) (Identifier, error) {
	if len(raw) != IdentifierLength {
		return Identifier{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedIdentifier, IdentifierLength, len(raw))
	}
	tag := Tag(raw[0])
	if tag != TagAccount && tag != TagContract {
		return Identifier{}, fmt.Errorf("%w: unknown tag %d", ErrMalformedIdentifier, raw[0])
	}
	id := Identifier{Tag: tag}
	copy(id.Hash[:], raw[1:])
	return id, nil
}

// ParseIdentifier accepts the formatted string forms used across deploy
// scripts and env files: "account-hash-<hex>", "hash-<hex>", "package-<hex>",
// "contract-<hex>", or a bare 64-char hex string (treated as a contract hash).
func ParseIdentifier(s string) (Identifier, error) {
	tag := TagContract
	hexPart := s
	switch {
	case strings.HasPrefix(s, "account-hash-"):
		tag = TagAccount
		hexPart = strings.TrimPrefix(s, "account-hash-")
	case strings.HasPrefix(s, "hash-"):
		hexPart = strings.TrimPrefix(s, "hash-")
	case strings.HasPrefix(s, "contract-package-"):
		hexPart = strings.TrimPrefix(s, "contract-package-")
	case strings.HasPrefix(s, "package-"):
		hexPart = strings.TrimPrefix(s, "package-")
	case strings.HasPrefix(s, "contract-"):
		hexPart = strings.TrimPrefix(s, "contract-")
	}

	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %q is not hex: %v", ErrMalformedIdentifier, s, err)
	}
	if len(raw) != 32 {
		return Identifier{}, fmt.Errorf("%w: expected 32 hash bytes, got %d", ErrMalformedIdentifier, len(raw))
	}
	id := Identifier{Tag: tag}
	copy(id.Hash[:], raw)
	return id, nil
}

// SortIdentifiers returns the pair ordered ascending by serialized bytes.
// Lookup keys built from the sorted pair are invariant under argument order.
func SortIdentifiers(a, b Identifier) (Identifier, Identifier) {
	if a.Compare(b) <= 0 {
		return a, b
	}
	return b, a
}
