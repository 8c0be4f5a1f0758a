package chain

import (
	"context"
	"time"
)

// Confirmation describes an anchored settlement transaction.
type Confirmation struct {
	TxReference string    `json:"tx_reference"`
	BlockNumber uint64    `json:"block_number"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// Client submits final channel allocations to an external ledger and
// waits for inclusion. Implementations own signing; the caller never
// sees key material.
type Client interface {
	// SubmitSettlement broadcasts the settlement and returns a
	// transaction reference immediately, before confirmation.
	SubmitSettlement(ctx context.Context, channelID string, allocations map[string]float64) (string, error)

	// WaitConfirmed blocks until the transaction is confirmed or ctx
	// expires.
	WaitConfirmed(ctx context.Context, txRef string) (*Confirmation, error)
}
