package executor

import (
	"context"
	"errors"

	"github.com/agentswarm/agentpay/internal/registry"
)

var ErrUnsupportedService = errors.New("unsupported service type")

// Result is the opaque outcome of one task: the raw output handed to
// the next step, and the cost units the run consumed. A zero CostUnits
// means the executor does not meter usage and the agent's listed price
// applies.
type Result struct {
	Output    string  `json:"output"`
	CostUnits float64 `json:"cost_units"`
}

// Executor runs one task for a service type. Implementations may block
// for arbitrary durations; callers bound them with ctx.
type Executor interface {
	Run(ctx context.Context, serviceType registry.ServiceType, input string) (*Result, error)
}
