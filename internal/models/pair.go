package models

import "time"

// PairSnapshot is one observed reserve state of a pair, as served by the API
// and optionally recorded for history.
type PairSnapshot struct {
	PairContract string    `json:"pair_contract"`
	Token0       string    `json:"token0"`
	Token1       string    `json:"token1"`
	Reserve0     string    `json:"reserve0"` // decimal string, exact
	Reserve1     string    `json:"reserve1"`
	StateRoot    string    `json:"state_root,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
}
