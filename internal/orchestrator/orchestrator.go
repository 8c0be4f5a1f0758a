// Package orchestrator chains paid agent invocations into one workflow
// session: it ensures a funded channel, selects and invokes an agent per
// step, pays per step through the channel manager, and splits the total
// proceeds across the performers when every step has completed.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agentswarm/agentpay/internal/channel"
	"github.com/agentswarm/agentpay/internal/contribution"
	"github.com/agentswarm/agentpay/internal/db"
	"github.com/agentswarm/agentpay/internal/executor"
	"github.com/agentswarm/agentpay/internal/ledger"
	"github.com/agentswarm/agentpay/internal/registry"
	"github.com/agentswarm/agentpay/internal/reputation"
)

// Logger durably records finished workflows, best-effort.
type Logger interface {
	AppendWorkflowLog(ctx context.Context, wl db.WorkflowLog) error
}

// DefaultFunding is the initial payer balance when the orchestrator has
// to open a channel itself.
const DefaultFunding = 1.0

// Orchestrator executes workflows. Steps within one workflow run
// strictly sequentially (output chaining requires it); independent
// workflows may run concurrently, each against its own channel.
type Orchestrator struct {
	directory  registry.Directory
	exec       executor.Executor
	channels   *channel.Manager
	reputation *reputation.Updater
	logs       Logger

	// PoolAddress receives every step payment; agents are credited from
	// the pool at distribution time, not paid directly.
	PoolAddress string
	// Funding is the payer-side balance for channels the orchestrator
	// opens on demand.
	Funding float64
}

func New(directory registry.Directory, exec executor.Executor, channels *channel.Manager, rep *reputation.Updater, logs Logger, poolAddress string) *Orchestrator {
	return &Orchestrator{
		directory:   directory,
		exec:        exec,
		channels:    channels,
		reputation:  rep,
		logs:        logs,
		PoolAddress: poolAddress,
		Funding:     DefaultFunding,
	}
}

// Execute runs the steps in order. channelID may name an existing open
// channel between the payer and the pool; when empty or invalid a fresh
// channel is opened before the first step runs, since payment cannot be
// deferred past the point a task has already incurred cost.
func (o *Orchestrator) Execute(ctx context.Context, payerID string, steps []Step, channelID string) (*Result, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	if payerID == "" {
		return nil, fmt.Errorf("payer id is required")
	}
	for _, st := range steps {
		if !registry.ValidServiceType(st.ServiceType) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownServiceType, st.ServiceType)
		}
	}

	res := &Result{
		WorkflowID: uuid.NewString(),
		PayerID:    payerID,
		FailedStep: -1,
		CreatedAt:  time.Now(),
	}

	chID, sessionID, err := o.ensureChannel(ctx, payerID, channelID)
	if err != nil {
		return nil, err
	}
	res.ChannelID = chID
	res.SessionID = sessionID

	input := steps[0].Input
	for i, st := range steps {
		stepRes, err := o.runStep(ctx, res, i, st, payerID, input)
		if err != nil {
			res.Success = false
			res.FailedStep = i
			res.Error = err.Error()
			o.appendLog(ctx, res)
			return res, nil
		}
		res.Steps = append(res.Steps, *stepRes)
		res.TotalCost += stepRes.CostUnits
		res.TotalDurationMs += stepRes.DurationMs
		input = stepRes.Output
	}

	res.Success = true
	res.Shares = o.distribute(res)
	o.appendLog(ctx, res)
	return res, nil
}

// ensureChannel reuses the supplied channel when it is open and pairs
// the payer with the pool; anything else gets a fresh channel.
func (o *Orchestrator) ensureChannel(ctx context.Context, payerID, channelID string) (string, string, error) {
	if channelID != "" {
		ch := o.channels.Get(channelID)
		if ch != nil && ch.Status == ledger.StatusOpen && channelParties(ch, payerID, o.PoolAddress) {
			return ch.ID, o.channels.SessionID(ch.ID), nil
		}
		log.Printf("workflow channel %s unusable, opening a fresh one", channelID)
	}

	opened, err := o.channels.Open(ctx, payerID, o.PoolAddress, o.Funding, 0)
	if err != nil {
		return "", "", fmt.Errorf("failed to open workflow channel: %w", err)
	}
	return opened.Channel.ID, opened.SessionID, nil
}

func channelParties(ch *ledger.Channel, a, b string) bool {
	return (ch.PartyA == a && ch.PartyB == b) || (ch.PartyA == b && ch.PartyB == a)
}

func (o *Orchestrator) runStep(ctx context.Context, res *Result, index int, st Step, payerID, input string) (*StepResult, error) {
	agent, err := o.selectAgent(ctx, st)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := o.exec.Run(ctx, registry.ServiceType(st.ServiceType), input)
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("step %d (%s) failed: %w", index, st.ServiceType, err)
	}

	cost := out.CostUnits
	if cost <= 0 {
		cost = agent.Price
	}

	stepRes := &StepResult{
		Index:           index,
		ServiceType:     st.ServiceType,
		AgentID:         agent.ID,
		AgentName:       agent.Name,
		Input:           input,
		Output:          out.Output,
		CostUnits:       cost,
		DurationMs:      duration.Milliseconds(),
		OutputSizeBytes: len(out.Output),
	}

	if cost > 0 {
		// The payment routes to the pool; the agent stays on the step
		// result so auditing can attribute the funds to the performer.
		pay, err := o.channels.Pay(ctx, res.ChannelID, payerID, o.PoolAddress, cost, st.ServiceType)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s) payment failed: %w", index, st.ServiceType, err)
		}
		stepRes.PaymentReference = pay.Transaction.ID
	}

	if err := o.reputation.Record(ctx, agent.ID, true, cost); err != nil {
		log.Printf("reputation update for agent %s failed: %v", agent.ID, err)
	}

	stepRes.Metrics = contribution.Metrics{
		Complexity:       contribution.ComplexityFor(st.ServiceType),
		ProcessingTimeMs: float64(stepRes.DurationMs),
		OutputSizeBytes:  float64(stepRes.OutputSizeBytes),
		Quality:          1.0,
	}
	return stepRes, nil
}

// selectAgent resolves the explicit agent when the step names one,
// otherwise picks the cheapest active agent for the service type, ties
// broken by higher reputation. The order is total and deterministic.
func (o *Orchestrator) selectAgent(ctx context.Context, st Step) (*registry.Agent, error) {
	if st.AgentID != "" {
		agent, err := o.directory.FindByID(ctx, st.AgentID)
		if err != nil {
			if err == registry.ErrAgentNotFound {
				return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, st.AgentID)
			}
			return nil, err
		}
		return agent, nil
	}

	agents, err := o.directory.FindByServiceType(ctx, registry.ServiceType(st.ServiceType))
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAgentAvailable, st.ServiceType)
	}
	sortAgents(agents)
	return &agents[0], nil
}

func sortAgents(agents []registry.Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].Price != agents[j].Price {
			return agents[i].Price < agents[j].Price
		}
		if agents[i].Reputation != agents[j].Reputation {
			return agents[i].Reputation > agents[j].Reputation
		}
		return agents[i].ID < agents[j].ID
	})
}

func (o *Orchestrator) distribute(res *Result) []contribution.Share {
	participants := make([]contribution.Participant, 0, len(res.Steps))
	for _, st := range res.Steps {
		participants = append(participants, contribution.Participant{
			AgentID:     st.AgentID,
			ServiceType: st.ServiceType,
			Metrics:     st.Metrics,
		})
	}
	return contribution.Distribute(res.TotalCost, participants)
}

// PricingComparison lists every active agent for a service type in the
// selection order.
func (o *Orchestrator) PricingComparison(ctx context.Context, serviceType string) ([]PriceQuote, error) {
	if !registry.ValidServiceType(serviceType) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownServiceType, serviceType)
	}
	agents, err := o.directory.FindByServiceType(ctx, registry.ServiceType(serviceType))
	if err != nil {
		return nil, err
	}
	sortAgents(agents)
	quotes := make([]PriceQuote, 0, len(agents))
	for _, a := range agents {
		quotes = append(quotes, PriceQuote{
			AgentID:    a.ID,
			AgentName:  a.Name,
			Price:      a.Price,
			Reputation: a.Reputation,
		})
	}
	return quotes, nil
}

func (o *Orchestrator) appendLog(ctx context.Context, res *Result) {
	if o.logs == nil {
		return
	}
	wl := db.WorkflowLog{
		ID:              res.WorkflowID,
		PayerID:         res.PayerID,
		ChannelID:       res.ChannelID,
		Success:         res.Success,
		StepsCompleted:  len(res.Steps),
		TotalCost:       res.TotalCost,
		TotalDurationMs: res.TotalDurationMs,
		Error:           res.Error,
	}
	if err := o.logs.AppendWorkflowLog(ctx, wl); err != nil {
		log.Printf("workflow log append for %s failed: %v", res.WorkflowID, err)
	}
}
