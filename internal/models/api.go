package models

import "time"

// ErrorResponse is the API error format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PairResponse is the API view of one pair's current state
type PairResponse struct {
	Pair               string `json:"pair"`
	Token0             string `json:"token0"`
	Token1             string `json:"token1"`
	Reserve0           string `json:"reserve0"`
	Reserve1           string `json:"reserve1"`
	BlockTimestampLast uint64 `json:"block_timestamp_last,omitempty"`
	StateRoot          string `json:"state_root"`
}

// QuoteResponse is the API view of one swap quote
type QuoteResponse struct {
	TokenIn    string `json:"token_in"`
	TokenOut   string `json:"token_out"`
	AmountIn   string `json:"amount_in"`
	AmountOut  string `json:"amount_out"`
	ReserveIn  string `json:"reserve_in"`
	ReserveOut string `json:"reserve_out"`
}

// EventResponse is one decoded event of a pair's event store
type EventResponse struct {
	Name     string   `json:"name"`
	Fields   []string `json:"fields"`
	Sequence uint32   `json:"sequence"`
}

// EventsResponse is the event log of one pair
type EventsResponse struct {
	Pair   string          `json:"pair"`
	Events []EventResponse `json:"events"`
	Gaps   []uint32        `json:"gaps,omitempty"`
	Total  int             `json:"total"`
}

// DeploymentListResponse is a page of recorded contract deployments
type DeploymentListResponse struct {
	Contracts []*DeployedContract `json:"contracts"`
	Total     int                 `json:"total"`
	Page      int                 `json:"page"`
	PageSize  int                 `json:"page_size"`
}

// StepsResponse is the step log of one deployment run
type StepsResponse struct {
	RunID string            `json:"run_id"`
	Steps []*DeploymentStep `json:"steps"`
	Total int               `json:"total"`
}

// HealthResponse is the health check payload
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Database  string    `json:"database,omitempty"`
}
