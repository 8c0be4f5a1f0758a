package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agentswarm/agentpay/internal/db"
)

// PG is the Postgres-backed directory used when a database is
// configured.
type PG struct {
	db *db.DB
}

func NewPG(database *db.DB) *PG {
	return &PG{db: database}
}

const agentColumns = "id, name, wallet, service_type, price, reputation, active, jobs_completed, total_earned, created_at"

func scanAgent(row pgx.Row) (*Agent, error) {
	var a Agent
	var wallet *string
	err := row.Scan(&a.ID, &a.Name, &wallet, &a.ServiceType, &a.Price, &a.Reputation,
		&a.Active, &a.JobsCompleted, &a.TotalEarned, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		a.Wallet = *wallet
	}
	return &a, nil
}

func (p *PG) Register(ctx context.Context, agent *Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now()
	}
	var wallet *string
	if agent.Wallet != "" {
		wallet = &agent.Wallet
	}
	_, err := p.db.Pool().Exec(ctx, `
		INSERT INTO agents (id, name, wallet, service_type, price, reputation, active, jobs_completed, total_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		agent.ID, agent.Name, wallet, agent.ServiceType, agent.Price, agent.Reputation,
		agent.Active, agent.JobsCompleted, agent.TotalEarned, agent.CreatedAt,
	)
	if err != nil {
		// Check for unique constraint violation
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrWalletTaken
		}
		return err
	}
	return nil
}

func (p *PG) FindByServiceType(ctx context.Context, serviceType ServiceType) ([]Agent, error) {
	rows, err := p.db.Pool().Query(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE service_type = $1 AND active ORDER BY price, reputation DESC",
		serviceType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return agents, nil
}

func (p *PG) FindByID(ctx context.Context, id string) (*Agent, error) {
	a, err := scanAgent(p.db.Pool().QueryRow(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE id = $1", id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (p *PG) UpdateReputation(ctx context.Context, id string, delta float64) error {
	result, err := p.db.Pool().Exec(ctx,
		"UPDATE agents SET reputation = LEAST(GREATEST(reputation + $2, $3), $4) WHERE id = $1",
		id, delta, ReputationMin, ReputationMax,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAgentNotFound
	}
	return nil
}

func (p *PG) RecordJob(ctx context.Context, id string, earned float64) error {
	result, err := p.db.Pool().Exec(ctx,
		"UPDATE agents SET jobs_completed = jobs_completed + 1, total_earned = total_earned + $2 WHERE id = $1",
		id, earned,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAgentNotFound
	}
	return nil
}

func (p *PG) SetPrice(ctx context.Context, id string, price float64) error {
	result, err := p.db.Pool().Exec(ctx,
		"UPDATE agents SET price = $2 WHERE id = $1", id, price,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAgentNotFound
	}
	return nil
}

func (p *PG) SetActive(ctx context.Context, id string, active bool) error {
	result, err := p.db.Pool().Exec(ctx,
		"UPDATE agents SET active = $2 WHERE id = $1", id, active,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAgentNotFound
	}
	return nil
}
