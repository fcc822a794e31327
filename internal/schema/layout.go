// Package schema describes contract storage layouts: which logical field
// lives at which dictionary index, and how its bytes should be interpreted.
//
// Index assignment is positional and cumulative. A submodule embedded in a
// contract consumes a contiguous run of indices equal to its own recursive
// field count, shifting every later sibling by that run length; an
// optional-wrapped plain value consumes 2 indices. The layout tables in this
// package are the single place those rules are applied; nothing else in the
// codebase computes indices. The consumption rules are empirically observed
// against live deployments, not published by the platform, so a platform
// upgrade means re-verifying the constants here and nowhere else.
package schema

// FieldKind distinguishes single values from keyed tables
type FieldKind int

const (
	// Plain is a single value stored under its index alone
	Plain FieldKind = iota
	// Mapping is a key-value table stored under index plus lookup key
	Mapping
)

// ValueType declares how a field's raw bytes decode. The wire shape alone is
// ambiguous (an identifier may arrive as a native key or an opaque byte
// list), so decoding always follows the declared type, never the shape.
type ValueType int

const (
	TypeUint ValueType = iota
	TypeIdentifier
	TypeU64
	TypeU32
	TypeBool
	TypeString
	TypeBytes
)

// Field is one resolvable storage slot of a contract
type Field struct {
	Name  string
	Kind  FieldKind
	Index uint32
	Type  ValueType
}

// Layout assigns indices to a contract's fields in declaration order
type Layout struct {
	fields []Field
	byName map[string]int
	next   uint32
}

// NewLayout starts an empty layout
func NewLayout() *Layout {
	return &Layout{byName: make(map[string]int)}
}

func (l *Layout) add(f Field, consumed uint32) *Layout {
	f.Index = l.next
	l.byName[f.Name] = len(l.fields)
	l.fields = append(l.fields, f)
	l.next += consumed
	return l
}

// Plain appends a single-value field consuming one index
func (l *Layout) Plain(name string, typ ValueType) *Layout {
	return l.add(Field{Name: name, Kind: Plain, Type: typ}, 1)
}

// Mapping appends a keyed-table field consuming one index
func (l *Layout) Mapping(name string, typ ValueType) *Layout {
	return l.add(Field{Name: name, Kind: Mapping, Type: typ}, 1)
}

// Optional appends an optional-wrapped plain field. The wrapper consumes two
// consecutive indices; the field reads at the first of them.
func (l *Layout) Optional(name string, typ ValueType) *Layout {
	return l.add(Field{Name: name, Kind: Plain, Type: typ}, 2)
}

// Submodule reserves the index run of an embedded composite. fieldCount is
// the composite's own recursive consumption, i.e. the sum of what each of
// its fields consumes under the same rules. The run is opaque here: a
// submodule's fields are addressed through its own Layout offset by Base.
func (l *Layout) Submodule(name string, fieldCount uint32) *Layout {
	return l.add(Field{Name: name, Kind: Plain, Type: TypeBytes}, fieldCount)
}

// Field returns the descriptor for a declared field name
func (l *Layout) Field(name string) (Field, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Field{}, false
	}
	return l.fields[i], true
}

// MustField is Field for names known at compile time
func (l *Layout) MustField(name string) Field {
	f, ok := l.Field(name)
	if !ok {
		panic("schema: unknown field " + name)
	}
	return f
}

// Fields returns all declared fields in order
func (l *Layout) Fields() []Field {
	return l.fields
}

// Consumed reports the total index run of the layout, which is what a parent
// layout passes to Submodule when embedding it.
func (l *Layout) Consumed() uint32 {
	return l.next
}
