package db

import (
	"context"

	"github.com/agentswarm/agentpay/internal/ledger"
)

// AppendTransactionLog durably records one applied payment. Callers
// treat failures as best-effort: the in-memory ledger stays
// authoritative.
func (db *DB) AppendTransactionLog(ctx context.Context, tx ledger.Transaction) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO transaction_logs (id, channel_id, from_address, to_address, amount, state_nonce, service_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (channel_id, state_nonce) DO NOTHING`,
		tx.ID, tx.ChannelID, tx.From, tx.To, tx.Amount, tx.StateNonce, tx.ServiceType, tx.CreatedAt,
	)
	return err
}

// WorkflowLog is the durable summary row for one workflow execution.
type WorkflowLog struct {
	ID              string
	PayerID         string
	ChannelID       string
	Success         bool
	StepsCompleted  int
	TotalCost       float64
	TotalDurationMs int64
	Error           string
}

// AppendWorkflowLog records a finished workflow, successful or not.
func (db *DB) AppendWorkflowLog(ctx context.Context, wl WorkflowLog) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO workflow_logs (id, payer_id, channel_id, success, steps_completed, total_cost, total_duration_ms, error)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, NULLIF($8, ''))`,
		wl.ID, wl.PayerID, wl.ChannelID, wl.Success, wl.StepsCompleted, wl.TotalCost, wl.TotalDurationMs, wl.Error,
	)
	return err
}
