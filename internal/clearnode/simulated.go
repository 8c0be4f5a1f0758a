package clearnode

import (
	"context"
	"sync"
)

// Simulated is an in-process gateway for demo mode and tests. It acks
// every close request unless FailClose is set.
type Simulated struct {
	FailClose bool

	mu       sync.Mutex
	sessions map[string]SessionDef
	closed   map[string]map[string]float64
}

func NewSimulated() *Simulated {
	return &Simulated{
		sessions: make(map[string]SessionDef),
		closed:   make(map[string]map[string]float64),
	}
}

func (s *Simulated) NotifySessionOpen(ctx context.Context, def SessionDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[def.SessionID] = def
	return nil
}

func (s *Simulated) RequestClose(ctx context.Context, sessionID string, finalAllocations map[string]float64) error {
	if s.FailClose {
		return ErrCloseTimeout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed[sessionID] = finalAllocations
	return nil
}

// Session returns the recorded definition for a session id.
func (s *Simulated) Session(sessionID string) (SessionDef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.sessions[sessionID]
	return def, ok
}

// ClosedAllocations returns the allocations a close request carried.
func (s *Simulated) ClosedAllocations(sessionID string) (map[string]float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.closed[sessionID]
	return a, ok
}
