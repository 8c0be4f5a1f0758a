// Package reputation adjusts agent trust scores after task executions.
package reputation

import (
	"context"
	"fmt"

	"github.com/agentswarm/agentpay/internal/registry"
)

// SuccessDelta is the fixed score increment for a completed task.
const SuccessDelta = 0.1

// Updater applies post-execution adjustments against the agent
// directory.
type Updater struct {
	directory registry.Directory
}

func NewUpdater(directory registry.Directory) *Updater {
	return &Updater{directory: directory}
}

// Record applies the outcome of one execution. Success bumps the score
// by the fixed delta and credits the earnings; failure applies no
// decay, only what the directory already stores.
func (u *Updater) Record(ctx context.Context, agentID string, success bool, earned float64) error {
	if !success {
		return nil
	}
	if err := u.directory.UpdateReputation(ctx, agentID, SuccessDelta); err != nil {
		return fmt.Errorf("failed to update reputation for %s: %w", agentID, err)
	}
	if err := u.directory.RecordJob(ctx, agentID, earned); err != nil {
		return fmt.Errorf("failed to record job for %s: %w", agentID, err)
	}
	return nil
}
