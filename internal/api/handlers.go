package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentswarm/agentpay/internal/channel"
	"github.com/agentswarm/agentpay/internal/orchestrator"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeChannelError maps the channel manager's failure taxonomy onto
// HTTP statuses: validation 400, missing 404, state conflict 409,
// external degradation 502.
func writeChannelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, channel.ErrChannelNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, channel.ErrInvalidAmount),
		errors.Is(err, channel.ErrUnknownParty):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, channel.ErrChannelClosed),
		errors.Is(err, channel.ErrInsufficientBalance),
		errors.Is(err, channel.ErrAlreadySettled),
		errors.Is(err, channel.ErrSettleInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, channel.ErrNoSigner),
		errors.Is(err, channel.ErrSettleTimeout):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (a *API) handleOpenChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartyA   string  `json:"party_a"`
		PartyB   string  `json:"party_b"`
		BalanceA float64 `json:"balance_a"`
		BalanceB float64 `json:"balance_b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PartyA == "" || req.PartyB == "" {
		http.Error(w, "party_a and party_b are required", http.StatusBadRequest)
		return
	}

	result, err := a.channels.Open(r.Context(), req.PartyA, req.PartyB, req.BalanceA, req.BalanceB)
	if err != nil {
		writeChannelError(w, err)
		return
	}
	writeJSON(w, result)
}

func (a *API) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	ch := a.channels.Get(mux.Vars(r)["id"])
	if ch == nil {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}
	writeJSON(w, ch)
}

func (a *API) handleChannelState(w http.ResponseWriter, r *http.Request) {
	state, err := a.channels.State(mux.Vars(r)["id"])
	if err != nil {
		writeChannelError(w, err)
		return
	}
	writeJSON(w, state)
}

func (a *API) handleChannelTransactions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if a.channels.Get(id) == nil {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}
	writeJSON(w, a.channels.Transactions(id))
}

func (a *API) handlePay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From        string  `json:"from"`
		To          string  `json:"to"`
		Amount      float64 `json:"amount"`
		ServiceType string  `json:"service_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.From == "" || req.To == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}

	result, err := a.channels.Pay(r.Context(), mux.Vars(r)["id"], req.From, req.To, req.Amount, req.ServiceType)
	if err != nil {
		writeChannelError(w, err)
		return
	}
	writeJSON(w, result)
}

func (a *API) handleSettle(w http.ResponseWriter, r *http.Request) {
	result, err := a.channels.Settle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeChannelError(w, err)
		return
	}
	writeJSON(w, result)
}

func (a *API) handleSettleOnChain(w http.ResponseWriter, r *http.Request) {
	result, err := a.channels.SettleOnChain(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeChannelError(w, err)
		return
	}
	writeJSON(w, result)
}

func (a *API) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PayerID   string              `json:"payer_id"`
		Steps     []orchestrator.Step `json:"steps"`
		ChannelID string              `json:"channel_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := a.orch.Execute(r.Context(), req.PayerID, req.Steps, req.ChannelID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, result)
}

func (a *API) handlePricing(w http.ResponseWriter, r *http.Request) {
	quotes, err := a.orch.PricingComparison(r.Context(), mux.Vars(r)["service_type"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, quotes)
}
