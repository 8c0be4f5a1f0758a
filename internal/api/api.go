package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/agentswarm/agentpay/internal/channel"
	"github.com/agentswarm/agentpay/internal/config"
	"github.com/agentswarm/agentpay/internal/orchestrator"
	"github.com/agentswarm/agentpay/internal/registry"
)

type API struct {
	router    *mux.Router
	config    *config.Config
	channels  *channel.Manager
	orch      *orchestrator.Orchestrator
	directory registry.Directory
	jwtSecret []byte
}

func New(cfg *config.Config, channels *channel.Manager, orch *orchestrator.Orchestrator, directory registry.Directory) *API {
	api := &API{
		router:    mux.NewRouter(),
		config:    cfg,
		channels:  channels,
		orch:      orch,
		directory: directory,
		jwtSecret: []byte(cfg.JWTSecret),
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Public endpoints
	a.router.HandleFunc("/api/health", a.handleHealth).Methods("GET")
	a.router.HandleFunc("/api/agents/register", a.handleRegisterAgent).Methods("POST")
	a.router.HandleFunc("/api/agents/pricing/{service_type}", a.handlePricing).Methods("GET")

	a.router.HandleFunc("/api/channels/open", a.handleOpenChannel).Methods("POST")
	a.router.HandleFunc("/api/channels/{id}", a.handleGetChannel).Methods("GET")
	a.router.HandleFunc("/api/channels/{id}/state", a.handleChannelState).Methods("GET")
	a.router.HandleFunc("/api/channels/{id}/transactions", a.handleChannelTransactions).Methods("GET")
	a.router.HandleFunc("/api/channels/{id}/pay", a.handlePay).Methods("POST")
	a.router.HandleFunc("/api/channels/{id}/settle", a.handleSettle).Methods("POST")
	a.router.HandleFunc("/api/channels/{id}/settle-onchain", a.handleSettleOnChain).Methods("POST")

	a.router.HandleFunc("/api/workflows/execute", a.handleExecuteWorkflow).Methods("POST")

	// Protected endpoints (agent identity from the registration token)
	protected := a.router.PathPrefix("/api/agents/me").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("", a.handleAgentMe).Methods("GET")
	protected.HandleFunc("/price", a.handleAgentSetPrice).Methods("PUT")
	protected.HandleFunc("/deactivate", a.handleAgentDeactivate).Methods("POST")
}

func (a *API) Start() error {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}

// Router exposes the handler for tests.
func (a *API) Router() http.Handler {
	return a.router
}
