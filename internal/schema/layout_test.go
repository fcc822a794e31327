package schema

import "testing"

func TestCumulativeIndexAssignment(t *testing.T) {
	// One 1-index field, one optional (2 indices), one 3-index composite:
	// the fourth field must land at index 6.
	l := NewLayout().
		Plain("a", TypeUint).
		Optional("b", TypeIdentifier).
		Submodule("c", 3).
		Plain("d", TypeUint)

	tests := []struct {
		name string
		want uint32
	}{
		{"a", 0},
		{"b", 1},
		{"c", 3},
		{"d", 6},
	}

	for _, tt := range tests {
		f, ok := l.Field(tt.name)
		if !ok {
			t.Fatalf("field %q not declared", tt.name)
		}
		if f.Index != tt.want {
			t.Errorf("field %q at index %d, want %d", tt.name, f.Index, tt.want)
		}
	}

	if got := l.Consumed(); got != 7 {
		t.Errorf("Consumed() = %d, want 7", got)
	}
}

func TestNestedCompositeShiftsSiblings(t *testing.T) {
	inner := NewLayout().
		Plain("x", TypeUint).
		Optional("y", TypeUint)
	if inner.Consumed() != 3 {
		t.Fatalf("inner consumption = %d, want 3", inner.Consumed())
	}

	outer := NewLayout().
		Submodule("inner", inner.Consumed()).
		Plain("after", TypeUint)

	f := outer.MustField("after")
	if f.Index != 3 {
		t.Errorf("sibling after composite at index %d, want 3", f.Index)
	}
}

func TestPairLayoutIndices(t *testing.T) {
	pair := PairLayout()

	// lp_token submodule holds indices 0..5, pair fields follow
	tests := []struct {
		name string
		want uint32
	}{
		{"lp_token", 0},
		{"token0", 6},
		{"token1", 7},
		{"reserve0", 8},
		{"reserve1", 9},
		{"block_timestamp_last", 10},
		{"k_last", 13},
		{"factory", 14},
		{"locked", 15},
	}

	for _, tt := range tests {
		f := pair.MustField(tt.name)
		if f.Index != tt.want {
			t.Errorf("pair field %q at index %d, want %d", tt.name, f.Index, tt.want)
		}
	}

	if f := pair.MustField("reserve1"); f.Index != pair.MustField("reserve0").Index+1 {
		t.Error("reserves must occupy adjacent indices")
	}
}

func TestFactoryLayoutIndices(t *testing.T) {
	factory := FactoryLayout()

	// fee_to is optional-wrapped: it consumes 0 and 1
	if f := factory.MustField("fee_to"); f.Index != 0 {
		t.Errorf("fee_to at index %d, want 0", f.Index)
	}
	if f := factory.MustField("fee_to_setter"); f.Index != 2 {
		t.Errorf("fee_to_setter at index %d, want 2", f.Index)
	}

	pairs := factory.MustField("pairs")
	if pairs.Index != 4 {
		t.Errorf("pairs mapping at index %d, want 4", pairs.Index)
	}
	if pairs.Kind != Mapping {
		t.Error("pairs must be a mapping field")
	}
}

func TestUnknownField(t *testing.T) {
	l := NewLayout().Plain("known", TypeUint)
	if _, ok := l.Field("unknown"); ok {
		t.Error("Field should report unknown names")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustField should panic on unknown name")
		}
	}()
	l.MustField("unknown")
}
