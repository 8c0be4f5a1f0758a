package channel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/agentswarm/agentpay/internal/chain"
	"github.com/agentswarm/agentpay/internal/clearnode"
	"github.com/agentswarm/agentpay/internal/ledger"
)

// Gateway is the settlement counterparty reached over a message channel.
type Gateway interface {
	NotifySessionOpen(ctx context.Context, def clearnode.SessionDef) error
	RequestClose(ctx context.Context, sessionID string, finalAllocations map[string]float64) error
}

// TxLogger durably records applied payments. Calls are best-effort: a
// logging failure never rolls back the in-memory ledger.
type TxLogger interface {
	AppendTransactionLog(ctx context.Context, tx ledger.Transaction) error
}

const DefaultSettleTimeout = 30 * time.Second

// Manager owns all channel and transaction state. Every mutation of one
// channel's balances runs under that channel's lock, so concurrent
// payments keep the conservation and nonce invariants; independent
// channels never contend.
type Manager struct {
	store   *ledger.Store
	gateway Gateway
	chain   chain.Client
	txlog   TxLogger

	// SettleTimeout bounds the wait for on-chain confirmation.
	SettleTimeout time.Duration

	sessions *sessionTable
}

// New builds a Manager. gateway, chainClient and txlog may each be nil:
// a nil gateway skips clearnode notifications, a nil chain client makes
// SettleOnChain fail with ErrNoSigner, a nil txlog skips persistence.
func New(store *ledger.Store, gateway Gateway, chainClient chain.Client, txlog TxLogger) *Manager {
	return &Manager{
		store:         store,
		gateway:       gateway,
		chain:         chainClient,
		txlog:         txlog,
		SettleTimeout: DefaultSettleTimeout,
		sessions:      newSessionTable(),
	}
}

type OpenResult struct {
	Channel   ledger.Channel `json:"channel"`
	SessionID string         `json:"session_id"`
}

type PayResult struct {
	Transaction ledger.Transaction `json:"transaction"`
	Channel     ledger.Channel     `json:"channel"`
}

type SettleResult struct {
	Channel ledger.Channel `json:"channel"`
	// Fallback is set when the clearnode did not acknowledge the close
	// and the settlement marker is local-only. Finality is then not
	// externally confirmed.
	Fallback bool `json:"fallback"`
}

type OnChainResult struct {
	TxReference  string             `json:"tx_reference"`
	Confirmation chain.Confirmation `json:"confirmation"`
	Channel      ledger.Channel     `json:"channel"`
}

// State is a read-only snapshot for polling clients.
type State struct {
	ChannelID string               `json:"channel_id"`
	Status    ledger.ChannelStatus `json:"status"`
	Nonce     uint64               `json:"nonce"`
	Balances  map[string]float64   `json:"balances"`
	AsOf      time.Time            `json:"as_of"`
}

// Open creates a channel funded with the given initial balances and
// announces the session to the clearnode. The announcement is
// fire-and-forget: the local ledger is authoritative, and a clearnode
// outage must not block channel creation.
func (m *Manager) Open(ctx context.Context, partyA, partyB string, balanceA, balanceB float64) (*OpenResult, error) {
	if partyA == "" || partyB == "" || partyA == partyB {
		return nil, ErrUnknownParty
	}
	if balanceA < 0 || balanceB < 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	ch := ledger.Channel{
		ID:            uuid.NewString(),
		PartyA:        partyA,
		PartyB:        partyB,
		BalanceA:      balanceA,
		BalanceB:      balanceB,
		Nonce:         0,
		Status:        ledger.StatusOpen,
		OpenReference: generateChannelNonce(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.store.PutChannel(ch)

	sessionID := "sess-" + uuid.NewString()
	m.sessions.put(ch.ID, sessionID)

	if m.gateway != nil {
		def := clearnode.SessionDef{
			SessionID:    sessionID,
			ChannelID:    ch.ID,
			Participants: []string{partyA, partyB},
			Allocations:  map[string]float64{partyA: balanceA, partyB: balanceB},
		}
		go func() {
			if err := m.gateway.NotifySessionOpen(context.Background(), def); err != nil {
				log.Printf("clearnode session_open for channel %s failed: %v", ch.ID, err)
			}
		}()
	}

	return &OpenResult{Channel: ch, SessionID: sessionID}, nil
}

// Pay moves amount from one party to the other. The read-modify-write
// runs under the channel lock; on any precondition failure the channel
// is left untouched. serviceType is an optional attribution label stored
// on the ledger entry.
func (m *Manager) Pay(ctx context.Context, channelID, from, to string, amount float64, serviceType string) (*PayResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	lock, ok := m.store.LockChannel(channelID)
	if !ok {
		return nil, ErrChannelNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	ch, ok := m.store.Channel(channelID)
	if !ok {
		return nil, ErrChannelNotFound
	}
	if ch.Status != ledger.StatusOpen {
		return nil, ErrChannelClosed
	}
	if from == to {
		return nil, ErrUnknownParty
	}

	switch from {
	case ch.PartyA:
		if to != ch.PartyB {
			return nil, ErrUnknownParty
		}
		if ch.BalanceA < amount {
			return nil, ErrInsufficientBalance
		}
		ch.BalanceA -= amount
		ch.BalanceB += amount
	case ch.PartyB:
		if to != ch.PartyA {
			return nil, ErrUnknownParty
		}
		if ch.BalanceB < amount {
			return nil, ErrInsufficientBalance
		}
		ch.BalanceB -= amount
		ch.BalanceA += amount
	default:
		return nil, ErrUnknownParty
	}

	ch.Nonce++
	ch.UpdatedAt = time.Now()
	m.store.PutChannel(ch)

	tx := ledger.Transaction{
		ID:          uuid.NewString(),
		ChannelID:   ch.ID,
		From:        from,
		To:          to,
		Amount:      amount,
		StateNonce:  ch.Nonce,
		ServiceType: serviceType,
		CreatedAt:   ch.UpdatedAt,
	}
	m.store.AppendTransaction(tx)

	if m.txlog != nil {
		if err := m.txlog.AppendTransactionLog(ctx, tx); err != nil {
			log.Printf("transaction log append for channel %s failed: %v", ch.ID, err)
		}
	}

	return &PayResult{Transaction: tx, Channel: ch}, nil
}

// Settle finalizes the channel off-chain. The clearnode is asked to
// co-sign the final allocations; if it does not acknowledge within the
// settle timeout the channel is still marked settled locally, with a
// fallback reference so callers know finality is unconfirmed. While an
// on-chain settlement is pending confirmation the close is rejected, so
// only one finalization path can complete.
func (m *Manager) Settle(ctx context.Context, channelID string) (*SettleResult, error) {
	lock, ok := m.store.LockChannel(channelID)
	if !ok {
		return nil, ErrChannelNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	ch, ok := m.store.Channel(channelID)
	if !ok {
		return nil, ErrChannelNotFound
	}
	if ch.Status.Terminal() {
		return nil, ErrAlreadySettled
	}
	if m.sessions.inFlight(ch.ID) {
		return nil, ErrSettleInFlight
	}

	sessionID := m.sessions.get(ch.ID)
	allocations := map[string]float64{ch.PartyA: ch.BalanceA, ch.PartyB: ch.BalanceB}

	fallback := false
	if m.gateway == nil {
		fallback = true
	} else {
		closeCtx, cancel := context.WithTimeout(ctx, m.SettleTimeout)
		err := m.gateway.RequestClose(closeCtx, sessionID, allocations)
		cancel()
		if err != nil {
			log.Printf("clearnode close for channel %s failed, settling locally: %v", ch.ID, err)
			fallback = true
		}
	}

	ch.Status = ledger.StatusSettled
	ch.UpdatedAt = time.Now()
	if fallback {
		ch.SettleReference = fmt.Sprintf("fallback:local-%d", ch.UpdatedAt.Unix())
	} else {
		ch.SettleReference = "clearnode:" + sessionID
	}
	m.store.PutChannel(ch)

	return &SettleResult{Channel: ch, Fallback: fallback}, nil
}

// SettleOnChain anchors the final allocations on the external ledger and
// waits for confirmation, bounded by SettleTimeout. On timeout the
// channel stays open so a retry is safe locally; an in-flight guard
// prevents a duplicate submission while the first is pending.
func (m *Manager) SettleOnChain(ctx context.Context, channelID string) (*OnChainResult, error) {
	if m.chain == nil {
		return nil, ErrNoSigner
	}

	lock, ok := m.store.LockChannel(channelID)
	if !ok {
		return nil, ErrChannelNotFound
	}

	lock.Lock()
	ch, ok := m.store.Channel(channelID)
	if !ok {
		lock.Unlock()
		return nil, ErrChannelNotFound
	}
	if ch.Status.Terminal() {
		lock.Unlock()
		return nil, ErrAlreadySettled
	}
	if !m.sessions.markInFlight(ch.ID) {
		lock.Unlock()
		return nil, ErrSettleInFlight
	}
	allocations := map[string]float64{ch.PartyA: ch.BalanceA, ch.PartyB: ch.BalanceB}
	lock.Unlock()

	// The confirmation wait happens outside the channel lock so payments
	// on the channel are not blocked while the transaction is pending.
	txRef, err := m.chain.SubmitSettlement(ctx, ch.ID, allocations)
	if err != nil {
		m.sessions.clearInFlight(ch.ID)
		return nil, fmt.Errorf("failed to submit settlement: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.SettleTimeout)
	conf, err := m.chain.WaitConfirmed(waitCtx, txRef)
	cancel()
	if err != nil {
		m.sessions.clearInFlight(ch.ID)
		if waitCtx.Err() != nil {
			return nil, ErrSettleTimeout
		}
		return nil, fmt.Errorf("failed to confirm settlement: %w", err)
	}

	lock.Lock()
	ch, _ = m.store.Channel(channelID)
	if ch.Status.Terminal() {
		lock.Unlock()
		m.sessions.clearInFlight(ch.ID)
		return nil, ErrAlreadySettled
	}
	ch.Status = ledger.StatusSettled
	ch.SettleReference = txRef
	ch.UpdatedAt = time.Now()
	m.store.PutChannel(ch)
	lock.Unlock()
	m.sessions.clearInFlight(ch.ID)

	return &OnChainResult{TxReference: txRef, Confirmation: *conf, Channel: ch}, nil
}

// Get returns a copy of the channel, or nil when unknown.
func (m *Manager) Get(channelID string) *ledger.Channel {
	ch, ok := m.store.Channel(channelID)
	if !ok {
		return nil
	}
	return &ch
}

// State exposes the current balances keyed by party address.
func (m *Manager) State(channelID string) (*State, error) {
	ch, ok := m.store.Channel(channelID)
	if !ok {
		return nil, ErrChannelNotFound
	}
	return &State{
		ChannelID: ch.ID,
		Status:    ch.Status,
		Nonce:     ch.Nonce,
		Balances:  map[string]float64{ch.PartyA: ch.BalanceA, ch.PartyB: ch.BalanceB},
		AsOf:      time.Now(),
	}, nil
}

// Transactions returns the channel's ledger entries in applied order.
func (m *Manager) Transactions(channelID string) []ledger.Transaction {
	return m.store.Transactions(channelID)
}

// SessionID returns the clearnode session created for a channel.
func (m *Manager) SessionID(channelID string) string {
	return m.sessions.get(channelID)
}

// generateChannelNonce produces the short opening reference carried in
// the session announcement.
func generateChannelNonce() string {
	data := fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Intn(1000000))
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])[:16]
}
