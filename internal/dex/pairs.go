// Package dex is the domain layer over the state resolver: pair registry
// lookups, reserve snapshots and client-side quote math for the deployed
// DEX contract suite.
package dex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"dexops/internal/casper"
	"dexops/internal/events"
	"dexops/internal/metrics"
	"dexops/internal/rpc"
	"dexops/internal/schema"
	"dexops/internal/state"
)

// ErrIdenticalTokens rejects a pair lookup of a token against itself
var ErrIdenticalTokens = errors.New("identical token addresses")

// Service answers pair questions against one factory deployment
type Service struct {
	resolver   *state.Resolver
	factoryPkg casper.Identifier
	factory    *schema.Layout
	pair       *schema.Layout
}

// NewService creates a Service bound to a factory package reference
func NewService(resolver *state.Resolver, factoryPkg casper.Identifier) *Service {
	return &Service{
		resolver:   resolver,
		factoryPkg: factoryPkg,
		factory:    schema.FactoryLayout(),
		pair:       schema.PairLayout(),
	}
}

// PairLookupKey builds the serialized mapping key for a token pair: both
// identifiers sorted ascending on their serialized bytes, concatenated.
// Sorting here is what keeps swap direction out of the storage key; the
// caller's input/output order never reaches the registry.
func PairLookupKey(tokenA, tokenB casper.Identifier) []byte {
	t0, t1 := casper.SortIdentifiers(tokenA, tokenB)
	return append(t0.Encode(), t1.Encode()...)
}

// FindPair looks a token pair up in the factory registry and resolves the
// registered package to its active contract instance. The boolean is false
// when no pair exists for the two tokens; that is not an error. The returned
// identifier addresses contract storage and feeds State and GetReserves
// directly.
func (s *Service) FindPair(ctx context.Context, tokenA, tokenB casper.Identifier) (casper.Identifier, bool, error) {
	metrics.PairLookups.Inc()

	if tokenA.Equal(tokenB) {
		return casper.Identifier{}, false, ErrIdenticalTokens
	}

	factoryContract, err := s.resolver.ResolveActiveContract(ctx, s.factoryPkg)
	if err != nil {
		return casper.Identifier{}, false, fmt.Errorf("find pair: %w", err)
	}

	ref, err := s.resolver.Snapshot(ctx, factoryContract)
	if err != nil {
		return casper.Identifier{}, false, fmt.Errorf("find pair: %w", err)
	}

	pairPkg, err := s.resolver.ReadIdentifier(ctx, ref, s.factory.MustField("pairs"), PairLookupKey(tokenA, tokenB))
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return casper.Identifier{}, false, nil
		}
		return casper.Identifier{}, false, fmt.Errorf("find pair: %w", err)
	}

	// The registry stores the pair's package hash; its storage lives under
	// the active contract instance.
	pair, err := s.resolver.ResolveActiveContractAt(ctx, pairPkg, ref.StateRoot)
	if err != nil {
		return casper.Identifier{}, false, fmt.Errorf("find pair: %w", err)
	}

	slog.Debug("Pair resolved from registry",
		"token_a", tokenA.String(),
		"token_b", tokenB.String(),
		"pair", pair.String(),
	)
	return pair, true, nil
}

// GetReserves reads a pair contract's two reserves. Both plain fields sit at
// adjacent schema-implied indices and are read under one pinned root, so the
// two values are a consistent snapshot.
func (s *Service) GetReserves(ctx context.Context, pairContract casper.Identifier) (*big.Int, *big.Int, error) {
	ref, err := s.resolver.Snapshot(ctx, pairContract)
	if err != nil {
		return nil, nil, fmt.Errorf("get reserves: %w", err)
	}
	return s.reservesAt(ctx, ref)
}

func (s *Service) reservesAt(ctx context.Context, ref state.ContractRef) (*big.Int, *big.Int, error) {
	reserve0, err := s.resolver.ReadUint(ctx, ref, s.pair.MustField("reserve0"), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("get reserves: %w", err)
	}
	reserve1, err := s.resolver.ReadUint(ctx, ref, s.pair.MustField("reserve1"), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("get reserves: %w", err)
	}
	return reserve0, reserve1, nil
}

// PairState is a consistent multi-field snapshot of one pair
type PairState struct {
	Pair               casper.Identifier
	Token0             casper.Identifier
	Token1             casper.Identifier
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint64
	StateRoot          string
}

// State reads token0, token1, both reserves and the last update timestamp of
// a pair contract under a single pinned root.
func (s *Service) State(ctx context.Context, pairContract casper.Identifier) (PairState, error) {
	ref, err := s.resolver.Snapshot(ctx, pairContract)
	if err != nil {
		return PairState{}, fmt.Errorf("pair state: %w", err)
	}

	token0, err := s.resolver.ReadIdentifier(ctx, ref, s.pair.MustField("token0"), nil)
	if err != nil {
		return PairState{}, fmt.Errorf("pair state: %w", err)
	}
	token1, err := s.resolver.ReadIdentifier(ctx, ref, s.pair.MustField("token1"), nil)
	if err != nil {
		return PairState{}, fmt.Errorf("pair state: %w", err)
	}
	reserve0, reserve1, err := s.reservesAt(ctx, ref)
	if err != nil {
		return PairState{}, err
	}

	ts, err := s.resolver.ReadU64(ctx, ref, s.pair.MustField("block_timestamp_last"))
	if err != nil && !errors.Is(err, rpc.ErrNotFound) {
		return PairState{}, fmt.Errorf("pair state: %w", err)
	}

	return PairState{
		Pair:               pairContract,
		Token0:             token0,
		Token1:             token1,
		Reserve0:           reserve0,
		Reserve1:           reserve1,
		BlockTimestampLast: ts,
		StateRoot:          ref.StateRoot,
	}, nil
}

// ReservesFor returns the reserves of the (tokenIn, tokenOut) pair oriented
// to the caller's order: the first value is the reserve of tokenIn.
func (s *Service) ReservesFor(ctx context.Context, tokenIn, tokenOut casper.Identifier) (*big.Int, *big.Int, error) {
	pair, found, err := s.FindPair(ctx, tokenIn, tokenOut)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, fmt.Errorf("no pair for %s / %s", tokenIn, tokenOut)
	}

	st, err := s.State(ctx, pair)
	if err != nil {
		return nil, nil, err
	}

	t0, _ := casper.SortIdentifiers(tokenIn, tokenOut)
	if tokenIn.Equal(t0) {
		if !st.Token0.IsZero() && !st.Token0.Equal(t0) {
			return nil, nil, fmt.Errorf("pair %s token order disagrees with registry key", st.Pair)
		}
		return st.Reserve0, st.Reserve1, nil
	}
	return st.Reserve1, st.Reserve0, nil
}

// Events decodes a pair contract's event store. Gaps are returned alongside
// the records; the caller decides whether they matter.
func (s *Service) Events(ctx context.Context, pairContract casper.Identifier) ([]events.Record, []events.Gap, error) {
	ref, err := s.resolver.Snapshot(ctx, pairContract)
	if err != nil {
		return nil, nil, fmt.Errorf("pair events: %w", err)
	}

	count, err := s.resolver.ReadU32(ctx, ref, s.pair.MustField(schema.EventCountField))
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("pair events: %w", err)
	}

	eventsField := s.pair.MustField(schema.EventsField)
	fetch := func(i uint32) ([]byte, error) {
		return s.resolver.ReadBytes(ctx, ref, eventsField, casper.EncodeU32(i))
	}

	records, gaps := events.DecodeAll(count, fetch, events.KnownSchema)
	return records, gaps, nil
}
