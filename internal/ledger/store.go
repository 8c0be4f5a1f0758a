package ledger

import (
	"sort"
	"sync"
)

// Store keeps channel state and the per-channel transaction log in memory.
// It is an injected instance, not a package-level singleton, so test suites
// can run against isolated stores.
//
// The store-wide RWMutex only guards the maps; mutations to a single
// channel's balances are serialized by that channel's own lock (see
// LockChannel), so payments on independent channels never contend.
type Store struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	txs      map[string][]Transaction
	locks    map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		channels: make(map[string]*Channel),
		txs:      make(map[string][]Transaction),
		locks:    make(map[string]*sync.Mutex),
	}
}

// PutChannel inserts or replaces a channel record. The stored value is a
// copy, so the caller keeps ownership of the argument.
func (s *Store) PutChannel(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := ch
	s.channels[ch.ID] = &stored
	if _, ok := s.locks[ch.ID]; !ok {
		s.locks[ch.ID] = &sync.Mutex{}
	}
}

// Channel returns a copy of the channel record, if present.
func (s *Store) Channel(id string) (Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return Channel{}, false
	}
	return *ch, true
}

// LockChannel returns the mutex serializing mutations to one channel.
// Channels are never deleted, so a returned lock stays valid for the
// store's lifetime. ok is false when the channel is unknown.
func (s *Store) LockChannel(id string) (*sync.Mutex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.locks[id]
	return l, ok
}

// AppendTransaction records one applied payment. Entries are immutable
// once appended.
func (s *Store) AppendTransaction(tx Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ChannelID] = append(s.txs[tx.ChannelID], tx)
}

// Transactions returns a copy of the channel's log in append order.
func (s *Store) Transactions(channelID string) []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.txs[channelID]
	out := make([]Transaction, len(src))
	copy(out, src)
	return out
}

// Channels returns a snapshot of all channel records sorted by creation
// time, oldest first.
func (s *Store) Channels() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
