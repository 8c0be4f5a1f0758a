package orchestrator

import (
	"errors"
	"time"

	"github.com/agentswarm/agentpay/internal/contribution"
)

var (
	ErrNoSteps            = errors.New("workflow has no steps")
	ErrUnknownServiceType = errors.New("unknown service type")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrNoAgentAvailable   = errors.New("no agent available for service type")
)

// Step is one caller-supplied unit of work. Input is only honored on
// the first step; later steps receive the previous step's raw output.
// AgentID pins the step to a specific agent instead of price-based
// selection.
type Step struct {
	ServiceType string `json:"service_type"`
	Input       string `json:"input,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
}

// StepResult records one executed step. It is immutable once appended
// to the workflow's result list. AgentID attributes the work to its
// true performer even though the payment itself routes to the pool
// address.
type StepResult struct {
	Index            int                  `json:"index"`
	ServiceType      string               `json:"service_type"`
	AgentID          string               `json:"agent_id"`
	AgentName        string               `json:"agent_name"`
	Input            string               `json:"input"`
	Output           string               `json:"output"`
	CostUnits        float64              `json:"cost_units"`
	DurationMs       int64                `json:"duration_ms"`
	OutputSizeBytes  int                  `json:"output_size_bytes"`
	PaymentReference string               `json:"payment_reference,omitempty"`
	Metrics          contribution.Metrics `json:"metrics"`
}

// Result is the outcome of one workflow execution. On failure it still
// carries every step completed before the failing one, plus the cost
// and duration accumulated so far.
type Result struct {
	WorkflowID      string               `json:"workflow_id"`
	PayerID         string               `json:"payer_id"`
	ChannelID       string               `json:"channel_id"`
	SessionID       string               `json:"session_id,omitempty"`
	Success         bool                 `json:"success"`
	Steps           []StepResult         `json:"steps"`
	Shares          []contribution.Share `json:"shares,omitempty"`
	TotalCost       float64              `json:"total_cost"`
	TotalDurationMs int64                `json:"total_duration_ms"`
	FailedStep      int                  `json:"failed_step,omitempty"`
	Error           string               `json:"error,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// PriceQuote is one row of a pricing comparison.
type PriceQuote struct {
	AgentID    string  `json:"agent_id"`
	AgentName  string  `json:"agent_name"`
	Price      float64 `json:"price"`
	Reputation float64 `json:"reputation"`
}
