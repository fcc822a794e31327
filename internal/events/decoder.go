// Package events decodes the platform's packed event byte records.
//
// A record is u32_le(len(name)) ++ name ++ field bytes in schema order ++
// u32_le(sequence). The field bytes carry no per-field tags, so decoding is
// only possible against a known schema; a schema mismatch shows up as a
// truncation or as garbage values, never as a type error.
package events

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"dexops/internal/casper"
)

// ErrTruncatedEvent is returned when a record ends before its schema does
var ErrTruncatedEvent = fmt.Errorf("truncated event record")

// FieldType declares how one event field decodes
type FieldType int

const (
	FieldIdentifier FieldType = iota
	FieldUint
	FieldU64
	FieldU32
	FieldBool
	FieldString
)

// Schema is the ordered field list of one event type
type Schema struct {
	Name   string
	Fields []FieldType
}

// Value is one decoded event field. Exactly one member is set, per the
// schema's declared type.
type Value struct {
	Identifier *casper.Identifier
	Uint       *big.Int
	U64        uint64
	U32        uint32
	Bool       bool
	String     string
}

// Record is a fully decoded event
type Record struct {
	Name     string
	Fields   []Value
	Sequence uint32
}

// Gap marks an index in the event store whose record could not be fetched or
// decoded. Gaps do not abort decoding of later indices; whether a gap is
// fatal is the caller's call.
type Gap struct {
	Index uint32
	Err   error
}

// Decode walks raw once against schema. Any shortfall at any step fails with
// ErrTruncatedEvent; there is no partial recovery.
func Decode(raw []byte, schema Schema) (Record, error) {
	name, n, err := casper.DecodeString(raw)
	if err != nil {
		return Record{}, fmt.Errorf("%w: name: %v", ErrTruncatedEvent, err)
	}
	rest := raw[n:]

	rec := Record{Name: name, Fields: make([]Value, 0, len(schema.Fields))}

	for i, ft := range schema.Fields {
		var v Value
		var consumed int

		switch ft {
		case FieldIdentifier:
			if len(rest) < casper.IdentifierLength {
				return Record{}, fieldErr(i, "identifier")
			}
			id, err := casper.DecodeIdentifier(rest[:casper.IdentifierLength])
			if err != nil {
				return Record{}, fmt.Errorf("field %d: %w", i, err)
			}
			v.Identifier = &id
			consumed = casper.IdentifierLength

		case FieldUint:
			u, err := casper.DecodeBigNum(rest)
			if err != nil {
				return Record{}, fieldErr(i, "uint")
			}
			v.Uint = u
			consumed = 1 + int(rest[0])

		case FieldU64:
			u, err := casper.DecodeU64(rest)
			if err != nil {
				return Record{}, fieldErr(i, "u64")
			}
			v.U64 = u
			consumed = 8

		case FieldU32:
			u, err := casper.DecodeU32(rest)
			if err != nil {
				return Record{}, fieldErr(i, "u32")
			}
			v.U32 = u
			consumed = 4

		case FieldBool:
			b, err := casper.DecodeBool(rest)
			if err != nil {
				return Record{}, fieldErr(i, "bool")
			}
			v.Bool = b
			consumed = 1

		case FieldString:
			s, n, err := casper.DecodeString(rest)
			if err != nil {
				return Record{}, fieldErr(i, "string")
			}
			v.String = s
			consumed = n

		default:
			return Record{}, fmt.Errorf("unknown field type %d at position %d", ft, i)
		}

		rec.Fields = append(rec.Fields, v)
		rest = rest[consumed:]
	}

	if len(rest) < 4 {
		return Record{}, fmt.Errorf("%w: missing sequence number", ErrTruncatedEvent)
	}
	rec.Sequence = binary.LittleEndian.Uint32(rest[:4])

	return rec, nil
}

func fieldErr(i int, typ string) error {
	return fmt.Errorf("%w: field %d (%s)", ErrTruncatedEvent, i, typ)
}

// PeekName reads only the leading name of a packed record, which is enough
// to pick the right schema before a full Decode.
func PeekName(raw []byte) (string, error) {
	name, _, err := casper.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: name: %v", ErrTruncatedEvent, err)
	}
	return name, nil
}

// DecodeAll fetches and decodes indices 0..count-1 in ascending order.
// fetch returns the raw record bytes for one index; schemaFor maps a record
// (by its peeked name) to its schema. An index that cannot be fetched,
// named, matched or decoded is reported as a Gap and skipped.
func DecodeAll(count uint32, fetch func(uint32) ([]byte, error), schemaFor func(name string) (Schema, bool)) ([]Record, []Gap) {
	var records []Record
	var gaps []Gap

	for i := uint32(0); i < count; i++ {
		raw, err := fetch(i)
		if err != nil {
			gaps = append(gaps, Gap{Index: i, Err: err})
			continue
		}

		name, err := PeekName(raw)
		if err != nil {
			gaps = append(gaps, Gap{Index: i, Err: err})
			continue
		}

		schema, ok := schemaFor(name)
		if !ok {
			gaps = append(gaps, Gap{Index: i, Err: fmt.Errorf("no schema for event %q", name)})
			continue
		}

		rec, err := Decode(raw, schema)
		if err != nil {
			gaps = append(gaps, Gap{Index: i, Err: err})
			continue
		}
		records = append(records, rec)
	}

	return records, gaps
}
