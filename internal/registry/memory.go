package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a map-backed directory used in demo mode and tests.
type Memory struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

func NewMemory() *Memory {
	return &Memory{agents: make(map[string]*Agent)}
}

// Seed registers the demo agent fleet with its standard prices.
func (m *Memory) Seed() {
	fleet := []struct {
		name    string
		service ServiceType
		price   float64
	}{
		{"Scraper", ServiceScraper, 0.02},
		{"Summarizer", ServiceSummarizer, 0.03},
		{"Translator", ServiceTranslation, 0.05},
		{"ImageGenerator", ServiceImageGen, 0.10},
		{"PDFLoader", ServicePDFLoader, 0.01},
	}
	for _, f := range fleet {
		_ = m.Register(context.Background(), &Agent{
			Name:        f.name,
			ServiceType: f.service,
			Price:       f.price,
			Reputation:  3.0,
			Active:      true,
		})
	}
}

func (m *Memory) Register(ctx context.Context, agent *Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if agent.Wallet != "" {
		for _, a := range m.agents {
			if a.Wallet == agent.Wallet {
				return ErrWalletTaken
			}
		}
	}
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now()
	}
	stored := *agent
	m.agents[agent.ID] = &stored
	return nil
}

func (m *Memory) FindByServiceType(ctx context.Context, serviceType ServiceType) ([]Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Agent
	for _, a := range m.agents {
		if a.ServiceType == serviceType && a.Active {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *Memory) FindByID(ctx context.Context, id string) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *Memory) UpdateReputation(ctx context.Context, id string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	a.Reputation = clampReputation(a.Reputation + delta)
	return nil
}

func (m *Memory) RecordJob(ctx context.Context, id string, earned float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	a.JobsCompleted++
	a.TotalEarned += earned
	return nil
}

func (m *Memory) SetPrice(ctx context.Context, id string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	a.Price = price
	return nil
}

func (m *Memory) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	a.Active = active
	return nil
}
