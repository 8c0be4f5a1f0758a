package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentswarm/agentpay/internal/api"
	"github.com/agentswarm/agentpay/internal/chain"
	"github.com/agentswarm/agentpay/internal/channel"
	"github.com/agentswarm/agentpay/internal/clearnode"
	"github.com/agentswarm/agentpay/internal/config"
	"github.com/agentswarm/agentpay/internal/db"
	"github.com/agentswarm/agentpay/internal/executor"
	"github.com/agentswarm/agentpay/internal/ledger"
	"github.com/agentswarm/agentpay/internal/orchestrator"
	"github.com/agentswarm/agentpay/internal/registry"
	"github.com/agentswarm/agentpay/internal/reputation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database; without one the server runs in demo mode on
	// the in-memory directory without durable logs.
	var database *db.DB
	var directory registry.Directory
	if cfg.DatabaseURL != "" {
		database, err = db.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.RunMigrations(context.Background()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		directory = registry.NewPG(database)
	} else {
		log.Println("DATABASE_URL not set, running with in-memory agent directory")
		mem := registry.NewMemory()
		mem.Seed()
		directory = mem
	}

	// Settlement gateway
	var gateway channel.Gateway
	if cfg.ClearNodeURL != "" {
		client, err := clearnode.Dial(cfg.ClearNodeURL, cfg.SettleTimeout)
		if err != nil {
			log.Fatalf("Failed to connect to clearnode: %v", err)
		}
		defer client.Close()
		gateway = client
	} else {
		log.Println("CLEARNODE_URL not set, using simulated settlement gateway")
		gateway = clearnode.NewSimulated()
	}

	// Task executor
	var exec executor.Executor
	if cfg.OpenAIKey != "" {
		exec = executor.NewOpenAI(cfg.OpenAIKey)
	} else {
		log.Println("OPENAI_API_KEY not set, using static task executor")
		exec = executor.NewStatic()
	}

	// Channel manager over its own ledger store; a simulated chain
	// client stands in for the real submitter.
	store := ledger.NewStore()
	var txlog channel.TxLogger
	if database != nil {
		txlog = database
	}
	channels := channel.New(store, gateway, chain.NewSimulated(2*time.Second), txlog)
	channels.SettleTimeout = cfg.SettleTimeout

	// Workflow orchestrator
	rep := reputation.NewUpdater(directory)
	var wlog orchestrator.Logger
	if database != nil {
		wlog = database
	}
	orch := orchestrator.New(directory, exec, channels, rep, wlog, cfg.PoolAddress)
	orch.Funding = cfg.DefaultFunding

	// Start API server
	apiServer := api.New(cfg, channels, orch, directory)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
