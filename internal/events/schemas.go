package events

// Schemas of the DEX contract suite's events. Field order mirrors the
// on-chain event struct declarations.
var (
	// Sync{pair, reserve0, reserve1}, emitted on every reserve update
	SyncSchema = Schema{
		Name:   "Sync",
		Fields: []FieldType{FieldIdentifier, FieldUint, FieldUint},
	}

	// PairCreated{token0, token1, pair, pair_count}
	PairCreatedSchema = Schema{
		Name:   "PairCreated",
		Fields: []FieldType{FieldIdentifier, FieldIdentifier, FieldIdentifier, FieldU32},
	}

	// Swap{sender, pair, amount0_in, amount1_in, amount0_out, amount1_out, to}
	SwapSchema = Schema{
		Name: "Swap",
		Fields: []FieldType{
			FieldIdentifier, FieldIdentifier,
			FieldUint, FieldUint, FieldUint, FieldUint,
			FieldIdentifier,
		},
	}

	// LiquidityAdded{provider, pair, amount0, amount1, liquidity}
	LiquidityAddedSchema = Schema{
		Name:   "LiquidityAdded",
		Fields: []FieldType{FieldIdentifier, FieldIdentifier, FieldUint, FieldUint, FieldUint},
	}

	// LiquidityRemoved{provider, pair, amount0, amount1, liquidity}
	LiquidityRemovedSchema = Schema{
		Name:   "LiquidityRemoved",
		Fields: []FieldType{FieldIdentifier, FieldIdentifier, FieldUint, FieldUint, FieldUint},
	}
)

var knownSchemas = map[string]Schema{
	SyncSchema.Name:             SyncSchema,
	PairCreatedSchema.Name:      PairCreatedSchema,
	SwapSchema.Name:             SwapSchema,
	LiquidityAddedSchema.Name:   LiquidityAddedSchema,
	LiquidityRemovedSchema.Name: LiquidityRemovedSchema,
}

// KnownSchema resolves a schema by event name. Suitable as the schemaFor
// argument of DecodeAll when decoding the DEX event stores.
func KnownSchema(name string) (Schema, bool) {
	s, ok := knownSchemas[name]
	return s, ok
}
