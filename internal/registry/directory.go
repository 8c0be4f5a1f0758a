package registry

import "context"

// Directory is the agent lookup surface the orchestrator and reputation
// updater consume.
type Directory interface {
	// FindByServiceType returns every active agent offering the service.
	FindByServiceType(ctx context.Context, serviceType ServiceType) ([]Agent, error)

	// FindByID returns the agent or ErrAgentNotFound.
	FindByID(ctx context.Context, id string) (*Agent, error)

	// UpdateReputation adds delta to the agent's trust score, clamped to
	// [0, 5].
	UpdateReputation(ctx context.Context, id string, delta float64) error

	// Register stores a new agent record.
	Register(ctx context.Context, agent *Agent) error

	// RecordJob bumps the agent's completion counter and earnings.
	RecordJob(ctx context.Context, id string, earned float64) error

	// SetPrice updates the agent's per-request price.
	SetPrice(ctx context.Context, id string, price float64) error

	// SetActive flips the agent's availability.
	SetActive(ctx context.Context, id string, active bool) error
}

const (
	// ReputationMin and ReputationMax bound the trust score.
	ReputationMin = 0.0
	ReputationMax = 5.0
)

func clampReputation(v float64) float64 {
	if v < ReputationMin {
		return ReputationMin
	}
	if v > ReputationMax {
		return ReputationMax
	}
	return v
}
