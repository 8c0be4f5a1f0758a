package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Simulated is an in-process chain client for demo mode and tests.
// Confirmation arrives after a configurable latency; a zero latency
// confirms on the first poll.
type Simulated struct {
	Latency time.Duration

	mu        sync.Mutex
	submitted map[string]time.Time
	block     uint64
}

func NewSimulated(latency time.Duration) *Simulated {
	return &Simulated{
		Latency:   latency,
		submitted: make(map[string]time.Time),
	}
}

func (s *Simulated) SubmitSettlement(ctx context.Context, channelID string, allocations map[string]float64) (string, error) {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", channelID, time.Now().UnixNano())))
	txRef := "0x" + hex.EncodeToString(sum[:])

	s.mu.Lock()
	s.submitted[txRef] = time.Now()
	s.mu.Unlock()
	return txRef, nil
}

func (s *Simulated) WaitConfirmed(ctx context.Context, txRef string) (*Confirmation, error) {
	s.mu.Lock()
	at, ok := s.submitted[txRef]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown transaction %s", txRef)
	}

	ready := at.Add(s.Latency)
	if wait := time.Until(ready); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	s.block++
	block := s.block
	s.mu.Unlock()

	return &Confirmation{
		TxReference: txRef,
		BlockNumber: block,
		ConfirmedAt: time.Now(),
	}, nil
}
