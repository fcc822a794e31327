package models

import "time"

// DeployedContract is one contract of the suite as recorded after its
// installation was confirmed (or found already on chain).
type DeployedContract struct {
	// Identification
	Name         string `json:"name"`
	PackageHash  string `json:"package_hash"`
	ContractHash string `json:"contract_hash"`

	// How this run obtained it
	AlreadyDeployed bool   `json:"already_deployed"`
	DeployHash      string `json:"deploy_hash,omitempty"`

	// Context
	Account    string    `json:"account"`
	NodeURL    string    `json:"node_url"`
	DeployedAt time.Time `json:"deployed_at"`
}

// DeploymentStep is one orchestration step's terminal record
type DeploymentStep struct {
	RunID        string    `json:"run_id"`
	ContractName string    `json:"contract_name"`
	Action       string    `json:"action"` // "install", "init", "skip"
	Status       string    `json:"status"` // "success", "failure", "timeout"
	DeployHash   string    `json:"deploy_hash,omitempty"`
	Message      string    `json:"message,omitempty"`
	Attempts     int       `json:"attempts"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Step status values
const (
	StepSuccess = "success"
	StepFailure = "failure"
	StepTimeout = "timeout"
)
