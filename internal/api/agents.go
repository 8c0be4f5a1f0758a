package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agentswarm/agentpay/internal/registry"
)

// handleRegisterAgent enrolls a new agent and returns its record, a
// generated wallet address, and the bearer token for the /agents/me
// surface.
func (a *API) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		ServiceType string  `json:"service_type"`
		Price       float64 `json:"price"`
		Wallet      string  `json:"wallet,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if !registry.ValidServiceType(req.ServiceType) {
		http.Error(w, "unknown service type", http.StatusBadRequest)
		return
	}
	if req.Price < 0 {
		http.Error(w, "price must not be negative", http.StatusBadRequest)
		return
	}

	wallet := req.Wallet
	if wallet == "" {
		wallet = generateWalletAddress()
	}

	agent := &registry.Agent{
		Name:        req.Name,
		Wallet:      wallet,
		ServiceType: registry.ServiceType(req.ServiceType),
		Price:       req.Price,
		Reputation:  3.0,
		Active:      true,
	}
	if err := a.directory.Register(r.Context(), agent); err != nil {
		if errors.Is(err, registry.ErrWalletTaken) {
			http.Error(w, "wallet already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to register agent", http.StatusInternalServerError)
		return
	}

	token, err := a.issueToken(agent.ID, agent.Wallet)
	if err != nil {
		http.Error(w, "failed to create token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"agent": agent,
		"token": token,
	})
}

func (a *API) handleAgentMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	agent, err := a.directory.FindByID(r.Context(), claims.AgentID)
	if err != nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, agent)
}

func (a *API) handleAgentSetPrice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Price < 0 {
		http.Error(w, "price must not be negative", http.StatusBadRequest)
		return
	}

	if err := a.directory.SetPrice(r.Context(), claims.AgentID, req.Price); err != nil {
		http.Error(w, "failed to update price", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "price updated"})
}

func (a *API) handleAgentDeactivate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if err := a.directory.SetActive(r.Context(), claims.AgentID, false); err != nil {
		http.Error(w, "failed to deactivate agent", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "agent deactivated"})
}
