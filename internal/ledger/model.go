package ledger

import "time"

type ChannelStatus string

const (
	StatusOpen     ChannelStatus = "open"
	StatusSettled  ChannelStatus = "settled"
	StatusDisputed ChannelStatus = "disputed"
)

// Terminal reports whether no further state transition is allowed.
func (s ChannelStatus) Terminal() bool {
	return s == StatusSettled || s == StatusDisputed
}

// Channel is a bilateral off-chain account pairing two parties' balances.
// Balances move between the parties through signed state updates ordered
// by Nonce; the channel is finalized once by a settlement.
type Channel struct {
	ID              string        `json:"id"`
	PartyA          string        `json:"party_a"`
	PartyB          string        `json:"party_b"`
	BalanceA        float64       `json:"balance_a"`
	BalanceB        float64       `json:"balance_b"`
	Nonce           uint64        `json:"nonce"`
	Status          ChannelStatus `json:"status"`
	OpenReference   string        `json:"open_reference"`
	SettleReference string        `json:"settle_reference,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Transaction is one applied balance update. StateNonce equals the
// channel nonce after the update that produced it, so the entries for a
// channel form a gap-free strictly increasing sequence.
type Transaction struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Amount      float64   `json:"amount"`
	StateNonce  uint64    `json:"state_nonce"`
	ServiceType string    `json:"service_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
