package state

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"dexops/internal/casper"
	"dexops/internal/rpc"
	"dexops/internal/schema"
)

// fakeNode serves dictionary items keyed by (stateRoot, contract hex, item key)
type fakeNode struct {
	root      string
	rootCalls int
	items     map[string]casper.CLValue
	packages  map[string]rpc.ContractPackage
	namedKeys map[string]casper.Identifier
}

func itemKey(root string, contract casper.Identifier, key string) string {
	return root + "/" + contract.HexHash() + "/" + key
}

func (f *fakeNode) StateRootHash(ctx context.Context) (string, error) {
	f.rootCalls++
	return f.root, nil
}

func (f *fakeNode) DictionaryItem(ctx context.Context, stateRoot string, contract casper.Identifier, key string) (casper.CLValue, error) {
	v, ok := f.items[itemKey(stateRoot, contract, key)]
	if !ok {
		return casper.CLValue{}, fmt.Errorf("state_get_dictionary_item: %w", rpc.ErrNotFound)
	}
	return v, nil
}

func (f *fakeNode) ContractPackage(ctx context.Context, stateRoot string, pkg casper.Identifier) (rpc.ContractPackage, error) {
	p, ok := f.packages[pkg.HexHash()]
	if !ok {
		return rpc.ContractPackage{}, fmt.Errorf("query_global_state: %w", rpc.ErrNotFound)
	}
	return p, nil
}

func (f *fakeNode) AccountNamedKeys(ctx context.Context, stateRoot string, account casper.Identifier) (map[string]casper.Identifier, error) {
	return f.namedKeys, nil
}

func ident(tag casper.Tag, fill byte) casper.Identifier {
	id := casper.Identifier{Tag: tag}
	for i := range id.Hash {
		id.Hash[i] = fill
	}
	return id
}

// seedPlain stores an already-encoded value at a plain field's derived key
func (f *fakeNode) seedPlain(contract casper.Identifier, index uint32, v casper.CLValue) {
	f.items[itemKey(f.root, contract, casper.PlainKey(index).Hex())] = v
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		root:     "root-1",
		items:    make(map[string]casper.CLValue),
		packages: make(map[string]rpc.ContractPackage),
	}
}

func TestResolveActiveContractPicksHighestVersion(t *testing.T) {
	pkg := ident(casper.TagContract, 0x01)
	v1 := ident(casper.TagContract, 0x11)
	v3 := ident(casper.TagContract, 0x33)
	v2 := ident(casper.TagContract, 0x22)

	node := newFakeNode()
	node.packages[pkg.HexHash()] = rpc.ContractPackage{
		Versions: []rpc.ContractVersion{
			{ContractHash: v1, Version: 1},
			{ContractHash: v3, Version: 3},
			{ContractHash: v2, Version: 2},
		},
	}

	resolver := NewResolver(node)
	got, err := resolver.ResolveActiveContract(context.Background(), pkg)
	if err != nil {
		t.Fatalf("ResolveActiveContract failed: %v", err)
	}
	if !got.Equal(v3) {
		t.Errorf("resolved %v, want version 3 contract", got)
	}
}

func TestResolveActiveContractEmptyPackage(t *testing.T) {
	pkg := ident(casper.TagContract, 0x02)

	node := newFakeNode()
	node.packages[pkg.HexHash()] = rpc.ContractPackage{}

	resolver := NewResolver(node)
	_, err := resolver.ResolveActiveContract(context.Background(), pkg)
	if !errors.Is(err, ErrNoActiveVersion) {
		t.Errorf("expected ErrNoActiveVersion, got %v", err)
	}
}

func TestReadUintPlainField(t *testing.T) {
	contract := ident(casper.TagContract, 0x0a)
	node := newFakeNode()

	// U256 dictionary value: length-prefixed little-endian
	node.seedPlain(contract, 8, casper.CLValue{
		Type:  casper.CLTypeU256,
		Bytes: []byte{0x02, 0x39, 0x30}, // 12345
	})

	resolver := NewResolver(node)
	ref := resolver.At(contract, node.root)

	field := schema.Field{Name: "reserve0", Kind: schema.Plain, Index: 8, Type: schema.TypeUint}
	got, err := resolver.ReadUint(context.Background(), ref, field, nil)
	if err != nil {
		t.Fatalf("ReadUint failed: %v", err)
	}
	if got.Cmp(big.NewInt(12345)) != 0 {
		t.Errorf("value = %s, want 12345", got)
	}
}

func TestReadMissingFieldIsNotFound(t *testing.T) {
	contract := ident(casper.TagContract, 0x0b)
	node := newFakeNode()
	resolver := NewResolver(node)
	ref := resolver.At(contract, node.root)

	field := schema.Field{Name: "fee_to", Kind: schema.Plain, Index: 0, Type: schema.TypeIdentifier}
	_, err := resolver.Read(context.Background(), ref, field, nil)
	if !errors.Is(err, rpc.ErrNotFound) {
		t.Errorf("expected rpc.ErrNotFound to propagate, got %v", err)
	}
}

func TestReadIdentifierBothWireShapes(t *testing.T) {
	contract := ident(casper.TagContract, 0x0c)
	want := ident(casper.TagContract, 0x77)

	node := newFakeNode()
	node.seedPlain(contract, 6, casper.CLValue{Type: casper.CLTypeKey, Bytes: want.Encode()})
	node.seedPlain(contract, 7, casper.CLValue{
		Type:  casper.CLTypeByteList,
		Bytes: append([]byte{33, 0, 0, 0}, want.Encode()...),
	})

	resolver := NewResolver(node)
	ref := resolver.At(contract, node.root)

	for _, index := range []uint32{6, 7} {
		field := schema.Field{Name: "token", Kind: schema.Plain, Index: index, Type: schema.TypeIdentifier}
		got, err := resolver.ReadIdentifier(context.Background(), ref, field, nil)
		if err != nil {
			t.Fatalf("ReadIdentifier index %d failed: %v", index, err)
		}
		if !got.Equal(want) {
			t.Errorf("index %d: decoded %v, want %v", index, got, want)
		}
	}
}

func TestMappingReadRequiresLookupKey(t *testing.T) {
	contract := ident(casper.TagContract, 0x0d)
	resolver := NewResolver(newFakeNode())
	ref := resolver.At(contract, "root-1")

	mapping := schema.Field{Name: "pairs", Kind: schema.Mapping, Index: 4, Type: schema.TypeIdentifier}
	if _, err := resolver.Read(context.Background(), ref, mapping, nil); err == nil {
		t.Error("mapping read without lookup key should fail")
	}

	plain := schema.Field{Name: "reserve0", Kind: schema.Plain, Index: 8, Type: schema.TypeUint}
	if _, err := resolver.Read(context.Background(), ref, plain, []byte{1}); err == nil {
		t.Error("plain read with lookup key should fail")
	}
}

func TestSnapshotPinsOneRoot(t *testing.T) {
	contract := ident(casper.TagContract, 0x0e)
	node := newFakeNode()
	resolver := NewResolver(node)

	ref, err := resolver.Snapshot(context.Background(), contract)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if ref.StateRoot != "root-1" {
		t.Errorf("pinned root = %q", ref.StateRoot)
	}

	// the node moves on; reads through ref keep using the pinned root
	node.seedPlain(contract, 9, casper.CLValue{Type: casper.CLTypeU256, Bytes: []byte{0x01, 0x05}})
	node.root = "root-2"

	field := schema.Field{Name: "reserve1", Kind: schema.Plain, Index: 9, Type: schema.TypeUint}
	got, err := resolver.ReadUint(context.Background(), ref, field, nil)
	if err != nil {
		t.Fatalf("ReadUint through snapshot failed: %v", err)
	}
	if got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("value = %s, want 5", got)
	}
}
