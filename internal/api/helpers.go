package api

import (
	"fmt"
	"net/http"
	"strconv"

	"dexops/internal/casper"
	"dexops/internal/dex"
	"dexops/internal/events"
	"dexops/internal/models"
)

// parseIdentifierParam parses a query parameter into an Identifier.
// Accepts the prefixed forms (hash-, contract-, account-hash-) and bare hex.
func parseIdentifierParam(raw string) (casper.Identifier, error) {
	if raw == "" {
		return casper.Identifier{}, fmt.Errorf("parameter is required")
	}
	return casper.ParseIdentifier(raw)
}

// parsePagination reads ?limit= and ?offset= with sane bounds
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	offset = 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

// buildPairResponse converts a pair state snapshot to its API form
func buildPairResponse(state dex.PairState) models.PairResponse {
	return models.PairResponse{
		Pair:               state.Pair.String(),
		Token0:             state.Token0.String(),
		Token1:             state.Token1.String(),
		Reserve0:           state.Reserve0.String(),
		Reserve1:           state.Reserve1.String(),
		BlockTimestampLast: state.BlockTimestampLast,
		StateRoot:          state.StateRoot,
	}
}

// renderEventFields renders a record's fields as strings, in schema order.
// Unknown event names cannot reach here: decoding already required a schema.
func renderEventFields(rec events.Record) []string {
	schema, ok := events.KnownSchema(rec.Name)
	if !ok || len(schema.Fields) != len(rec.Fields) {
		// Fall back to rendering what the decoder produced.
		out := make([]string, len(rec.Fields))
		for i, v := range rec.Fields {
			out[i] = renderValue(events.FieldString, v)
		}
		return out
	}

	out := make([]string, len(rec.Fields))
	for i, v := range rec.Fields {
		out[i] = renderValue(schema.Fields[i], v)
	}
	return out
}

// renderValue formats one decoded field per its declared type
func renderValue(ft events.FieldType, v events.Value) string {
	switch ft {
	case events.FieldIdentifier:
		if v.Identifier != nil {
			return v.Identifier.String()
		}
	case events.FieldUint:
		if v.Uint != nil {
			return v.Uint.String()
		}
	case events.FieldU64:
		return strconv.FormatUint(v.U64, 10)
	case events.FieldU32:
		return strconv.FormatUint(uint64(v.U32), 10)
	case events.FieldBool:
		return strconv.FormatBool(v.Bool)
	case events.FieldString:
		return v.String
	}

	// Mismatched schema and value; show what is present.
	if v.Identifier != nil {
		return v.Identifier.String()
	}
	if v.Uint != nil {
		return v.Uint.String()
	}
	return v.String
}
