package schema

// Layout tables for the deployed DEX contract suite. Field order follows the
// contract struct declarations; index constants fall out of the consumption
// rules in this package. Verified against the live testnet deployment; a
// contract upgrade that reorders fields invalidates the table for that
// contract only.

// LpTokenLayout is the CEP-18 style token submodule embedded at the head of
// every pair. It is also the layout of the standalone test tokens.
func LpTokenLayout() *Layout {
	return NewLayout().
		Plain("name", TypeString).
		Plain("symbol", TypeString).
		Plain("decimals", TypeU32).
		Plain("total_supply", TypeUint).
		Mapping("balances", TypeUint).
		Mapping("allowances", TypeUint)
}

// PairLayout addresses a deployed pair contract. The embedded LP token
// consumes the leading index run, shifting every pair-level field after it.
func PairLayout() *Layout {
	return withEventStore(NewLayout().
		Submodule("lp_token", LpTokenLayout().Consumed()).
		Plain("token0", TypeIdentifier).
		Plain("token1", TypeIdentifier).
		Plain("reserve0", TypeUint).
		Plain("reserve1", TypeUint).
		Plain("block_timestamp_last", TypeU64).
		Plain("price0_cumulative_last", TypeUint).
		Plain("price1_cumulative_last", TypeUint).
		Plain("k_last", TypeUint).
		Plain("factory", TypeIdentifier).
		Plain("locked", TypeBool))
}

// FactoryLayout addresses the pair registry. fee_to is optional-wrapped and
// consumes two indices, which is why pairs sits at 4 and not 3.
func FactoryLayout() *Layout {
	return withEventStore(NewLayout().
		Optional("fee_to", TypeIdentifier).
		Plain("fee_to_setter", TypeIdentifier).
		Plain("pair_factory", TypeIdentifier).
		Mapping("pairs", TypeIdentifier).
		Plain("all_pairs_length", TypeU32))
}

// RouterLayout addresses the user-facing router contract
func RouterLayout() *Layout {
	return withEventStore(NewLayout().
		Plain("factory", TypeIdentifier).
		Plain("wcspr", TypeIdentifier))
}

// EventsField and EventCountField name the per-contract append-only event
// collection. Every contract carries it in the index run directly after its
// own fields: a mapping of u32 index to packed event record, plus the total
// count stored as an ordinary plain field.
const (
	EventsField     = "events"
	EventCountField = "events_length"
)

func withEventStore(l *Layout) *Layout {
	return l.
		Mapping(EventsField, TypeBytes).
		Plain(EventCountField, TypeU32)
}
