package channel

import "sync"

// sessionTable maps channel ids to their clearnode session and tracks
// which channels have an on-chain settlement pending confirmation.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]string
	inflight map[string]bool
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		sessions: make(map[string]string),
		inflight: make(map[string]bool),
	}
}

func (t *sessionTable) put(channelID, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[channelID] = sessionID
}

func (t *sessionTable) get(channelID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[channelID]
}

// markInFlight claims the settlement slot for a channel. It returns
// false when a settlement is already pending.
func (t *sessionTable) markInFlight(channelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight[channelID] {
		return false
	}
	t.inflight[channelID] = true
	return true
}

func (t *sessionTable) inFlight(channelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight[channelID]
}

func (t *sessionTable) clearInFlight(channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, channelID)
}
