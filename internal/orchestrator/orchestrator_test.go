package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/agentswarm/agentpay/internal/chain"
	"github.com/agentswarm/agentpay/internal/channel"
	"github.com/agentswarm/agentpay/internal/clearnode"
	"github.com/agentswarm/agentpay/internal/executor"
	"github.com/agentswarm/agentpay/internal/ledger"
	"github.com/agentswarm/agentpay/internal/registry"
	"github.com/agentswarm/agentpay/internal/reputation"
)

// failingExecutor fails every run for one service type and delegates
// the rest to the static executor.
type failingExecutor struct {
	inner  executor.Executor
	failOn registry.ServiceType
}

func (f *failingExecutor) Run(ctx context.Context, serviceType registry.ServiceType, input string) (*executor.Result, error) {
	if serviceType == f.failOn {
		return nil, fmt.Errorf("simulated %s outage", serviceType)
	}
	return f.inner.Run(ctx, serviceType, input)
}

func newTestOrchestrator(t *testing.T, exec executor.Executor) (*Orchestrator, *registry.Memory, *channel.Manager) {
	t.Helper()
	dir := registry.NewMemory()
	dir.Seed()
	channels := channel.New(ledger.NewStore(), clearnode.NewSimulated(), chain.NewSimulated(0), nil)
	orch := New(dir, exec, channels, reputation.NewUpdater(dir), nil, "0xpool")
	return orch, dir, channels
}

func TestExecuteValidation(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, executor.NewStatic())

	if _, err := orch.Execute(context.Background(), "0xpayer", nil, ""); !errors.Is(err, ErrNoSteps) {
		t.Errorf("expected ErrNoSteps, got %v", err)
	}
	if _, err := orch.Execute(context.Background(), "", []Step{{ServiceType: "scraper"}}, ""); err == nil {
		t.Error("expected error for empty payer")
	}
	if _, err := orch.Execute(context.Background(), "0xpayer", []Step{{ServiceType: "mining"}}, ""); !errors.Is(err, ErrUnknownServiceType) {
		t.Errorf("expected ErrUnknownServiceType, got %v", err)
	}
}

func TestExecuteChainsStepOutputs(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, executor.NewStatic())

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "pdf_loader", Input: "report.pdf"},
		{ServiceType: "summarizer"},
		{ServiceType: "translation"},
	}, "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("workflow failed: %s", res.Error)
	}
	if len(res.Steps) != 3 {
		t.Fatalf("expected 3 step results, got %d", len(res.Steps))
	}

	if res.Steps[0].Input != "report.pdf" {
		t.Errorf("first step input %q, want the caller input", res.Steps[0].Input)
	}
	for i := 1; i < len(res.Steps); i++ {
		if res.Steps[i].Input != res.Steps[i-1].Output {
			t.Errorf("step %d input is not step %d output: %q vs %q",
				i, i-1, res.Steps[i].Input, res.Steps[i-1].Output)
		}
	}
}

func TestExecutePaysPerStepThroughChannel(t *testing.T) {
	orch, _, channels := newTestOrchestrator(t, executor.NewStatic())

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "https://example.com"},
		{ServiceType: "summarizer"},
	}, "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("workflow failed: %s", res.Error)
	}

	// scraper 0.02 + summarizer 0.03
	if diff := res.TotalCost - 0.05; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("total cost %v, want 0.05", res.TotalCost)
	}

	txs := channels.Transactions(res.ChannelID)
	if len(txs) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(txs))
	}
	for i, tx := range txs {
		if tx.To != "0xpool" {
			t.Errorf("payment %d routed to %q, want the pool", i, tx.To)
		}
		if tx.ID != res.Steps[i].PaymentReference {
			t.Errorf("step %d payment reference mismatch", i)
		}
	}

	ch := channels.Get(res.ChannelID)
	if diff := (ch.BalanceA + ch.BalanceB) - DefaultFunding; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("conservation broken: total %v", ch.BalanceA+ch.BalanceB)
	}
}

func TestExecuteStopsOnStepFailure(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, &failingExecutor{
		inner:  executor.NewStatic(),
		failOn: registry.ServiceSummarizer,
	})

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "https://example.com"},
		{ServiceType: "summarizer"},
		{ServiceType: "translation"},
	}, "")
	if err != nil {
		t.Fatalf("Execute returned a hard error: %v", err)
	}

	if res.Success {
		t.Fatal("expected a failed workflow")
	}
	if res.FailedStep != 1 {
		t.Errorf("expected failure at step 1, got %d", res.FailedStep)
	}
	if len(res.Steps) != 1 {
		t.Fatalf("expected exactly 1 completed step, got %d", len(res.Steps))
	}
	if res.Steps[0].ServiceType != "scraper" {
		t.Errorf("kept step is %s, want scraper", res.Steps[0].ServiceType)
	}
	if res.TotalCost != 0.02 {
		t.Errorf("accumulated cost %v, want the scraper's 0.02", res.TotalCost)
	}
	if res.Error == "" {
		t.Error("expected the triggering error message")
	}
	if res.Shares != nil {
		t.Error("failed workflows must not distribute shares")
	}
}

func TestExecuteDistributesSharesOnSuccess(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, executor.NewStatic())

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "https://example.com"},
		{ServiceType: "image_gen"},
	}, "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(res.Shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(res.Shares))
	}

	var weightSum, paySum float64
	for _, s := range res.Shares {
		weightSum += s.NormalizedWeight
		paySum += s.FinalPayment
	}
	if weightSum < 0.999999 || weightSum > 1.000001 {
		t.Errorf("normalized weights sum to %v", weightSum)
	}
	if diff := paySum - res.TotalCost; diff > 1e-5 || diff < -1e-5 {
		t.Errorf("payments sum %v != total cost %v", paySum, res.TotalCost)
	}
}

func TestExecuteReusesSuppliedChannel(t *testing.T) {
	orch, _, channels := newTestOrchestrator(t, executor.NewStatic())

	opened, err := channels.Open(context.Background(), "0xpayer", "0xpool", 5, 0)
	if err != nil {
		t.Fatal(err)
	}

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "x"},
	}, opened.Channel.ID)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.ChannelID != opened.Channel.ID {
		t.Errorf("expected supplied channel %s to be reused, got %s", opened.Channel.ID, res.ChannelID)
	}
}

func TestExecuteReplacesUnusableChannel(t *testing.T) {
	orch, _, channels := newTestOrchestrator(t, executor.NewStatic())

	// A settled channel is unusable; a channel between other parties is too.
	opened, err := channels.Open(context.Background(), "0xpayer", "0xpool", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := channels.Settle(context.Background(), opened.Channel.ID); err != nil {
		t.Fatal(err)
	}

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "x"},
	}, opened.Channel.ID)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.ChannelID == opened.Channel.ID {
		t.Error("settled channel must not be reused")
	}
	if !res.Success {
		t.Errorf("workflow failed: %s", res.Error)
	}
}

func TestSelectAgentPriceThenReputation(t *testing.T) {
	orch, dir, _ := newTestOrchestrator(t, executor.NewStatic())

	// Undercut the seeded scraper twice at the same price with
	// different reputations.
	cheapLow := &registry.Agent{Name: "CheapLow", ServiceType: registry.ServiceScraper, Price: 0.01, Reputation: 2.0, Active: true}
	cheapHigh := &registry.Agent{Name: "CheapHigh", ServiceType: registry.ServiceScraper, Price: 0.01, Reputation: 4.5, Active: true}
	if err := dir.Register(context.Background(), cheapLow); err != nil {
		t.Fatal(err)
	}
	if err := dir.Register(context.Background(), cheapHigh); err != nil {
		t.Fatal(err)
	}

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "x"},
	}, "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Steps[0].AgentID != cheapHigh.ID {
		t.Errorf("selected %s, want the cheapest agent with the higher reputation", res.Steps[0].AgentName)
	}
}

func TestSelectExplicitAgent(t *testing.T) {
	orch, dir, _ := newTestOrchestrator(t, executor.NewStatic())

	pricey := &registry.Agent{Name: "Pricey", ServiceType: registry.ServiceScraper, Price: 9.99, Reputation: 1.0, Active: true}
	if err := dir.Register(context.Background(), pricey); err != nil {
		t.Fatal(err)
	}

	// The funding must cover the expensive agent.
	orch.Funding = 20

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "x", AgentID: pricey.ID},
	}, "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Steps[0].AgentID != pricey.ID {
		t.Errorf("explicit agent ignored: got %s", res.Steps[0].AgentID)
	}

	// Unknown explicit agent fails the step.
	res, err = orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "x", AgentID: "missing"},
	}, "")
	if err != nil {
		t.Fatalf("Execute returned a hard error: %v", err)
	}
	if res.Success || res.FailedStep != 0 {
		t.Errorf("expected failure at step 0, got success=%v step=%d", res.Success, res.FailedStep)
	}
}

func TestExplicitAgentRunsStepServiceType(t *testing.T) {
	orch, dir, _ := newTestOrchestrator(t, executor.NewStatic())

	translator, err := dir.FindByServiceType(context.Background(), registry.ServiceTranslation)
	if err != nil {
		t.Fatal(err)
	}

	// The step asks for a summary; the explicit agent is a translator.
	// The work performed must follow the step, not the agent.
	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "summarizer", Input: "long text", AgentID: translator[0].ID},
	}, "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("workflow failed: %s", res.Error)
	}
	if res.Steps[0].ServiceType != "summarizer" {
		t.Errorf("step recorded as %s, want summarizer", res.Steps[0].ServiceType)
	}
	if got := res.Steps[0].Output; len(got) < 8 || got[:8] != "summary:" {
		t.Errorf("executor ran the wrong service type, output %q", got)
	}
}

func TestExecuteNoAgentAvailable(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, executor.NewStatic())
	// Fresh directory without the fleet.
	orch.directory = registry.NewMemory()

	res, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "x"},
	}, "")
	if err != nil {
		t.Fatalf("Execute returned a hard error: %v", err)
	}
	if res.Success {
		t.Fatal("expected a failed workflow")
	}
	if res.FailedStep != 0 {
		t.Errorf("expected failure at step 0, got %d", res.FailedStep)
	}
}

func TestExecuteBumpsReputation(t *testing.T) {
	orch, dir, _ := newTestOrchestrator(t, executor.NewStatic())

	quotes, err := orch.PricingComparison(context.Background(), "scraper")
	if err != nil {
		t.Fatal(err)
	}
	before := quotes[0].Reputation

	if _, err := orch.Execute(context.Background(), "0xpayer", []Step{
		{ServiceType: "scraper", Input: "x"},
	}, ""); err != nil {
		t.Fatal(err)
	}

	agent, err := dir.FindByID(context.Background(), quotes[0].AgentID)
	if err != nil {
		t.Fatal(err)
	}
	if agent.Reputation != before+reputation.SuccessDelta {
		t.Errorf("reputation %v, want %v", agent.Reputation, before+reputation.SuccessDelta)
	}
	if agent.JobsCompleted != 1 {
		t.Errorf("jobs completed %d, want 1", agent.JobsCompleted)
	}
}

func TestPricingComparisonOrder(t *testing.T) {
	orch, dir, _ := newTestOrchestrator(t, executor.NewStatic())

	extra := &registry.Agent{Name: "BudgetScraper", ServiceType: registry.ServiceScraper, Price: 0.015, Reputation: 4.0, Active: true}
	if err := dir.Register(context.Background(), extra); err != nil {
		t.Fatal(err)
	}

	quotes, err := orch.PricingComparison(context.Background(), "scraper")
	if err != nil {
		t.Fatalf("PricingComparison failed: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	for i := 1; i < len(quotes); i++ {
		if quotes[i].Price < quotes[i-1].Price {
			t.Errorf("quotes not sorted by price: %v before %v", quotes[i-1].Price, quotes[i].Price)
		}
	}

	if _, err := orch.PricingComparison(context.Background(), "mining"); !errors.Is(err, ErrUnknownServiceType) {
		t.Errorf("expected ErrUnknownServiceType, got %v", err)
	}
}
