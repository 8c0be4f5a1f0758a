package contribution

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDistributeEmpty(t *testing.T) {
	if shares := Distribute(1.0, nil); shares != nil {
		t.Errorf("expected nil shares for no participants, got %v", shares)
	}
}

func TestDistributeNormalization(t *testing.T) {
	participants := []Participant{
		{AgentID: "a1", ServiceType: "scraper", Metrics: Metrics{Complexity: 0.4, ProcessingTimeMs: 120, OutputSizeBytes: 2048, Quality: 0.9}},
		{AgentID: "a2", ServiceType: "summarizer", Metrics: Metrics{Complexity: 0.6, ProcessingTimeMs: 300, OutputSizeBytes: 512, Quality: 1.0}},
		{AgentID: "a3", ServiceType: "translation", Metrics: Metrics{Complexity: 0.5, ProcessingTimeMs: 80, OutputSizeBytes: 1024, Quality: 0.7}},
	}

	shares := Distribute(2.5, participants)
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}

	var weightSum, paySum float64
	for _, s := range shares {
		weightSum += s.NormalizedWeight
		paySum += s.FinalPayment
	}
	if !almostEqual(weightSum, 1.0, 1e-9) {
		t.Errorf("normalized weights sum to %v, want 1", weightSum)
	}
	if !almostEqual(paySum, 2.5, 1e-5) {
		t.Errorf("payments sum to %v, want 2.5", paySum)
	}
}

func TestDistributeOrderIndependent(t *testing.T) {
	a := Participant{AgentID: "a1", ServiceType: "scraper", Metrics: Metrics{Complexity: 0.4, ProcessingTimeMs: 100, OutputSizeBytes: 50, Quality: 0.8}}
	b := Participant{AgentID: "a2", ServiceType: "image_gen", Metrics: Metrics{Complexity: 0.8, ProcessingTimeMs: 900, OutputSizeBytes: 4000, Quality: 1.0}}
	c := Participant{AgentID: "a3", ServiceType: "pdf_loader", Metrics: Metrics{Complexity: 0.3, ProcessingTimeMs: 40, OutputSizeBytes: 700, Quality: 0.6}}

	first := Distribute(1.0, []Participant{a, b, c})
	second := Distribute(1.0, []Participant{c, a, b})

	if len(first) != len(second) {
		t.Fatalf("share counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].AgentID != second[i].AgentID ||
			first[i].NormalizedWeight != second[i].NormalizedWeight ||
			first[i].FinalPayment != second[i].FinalPayment {
			t.Errorf("share %d differs across input orders: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDistributeTwoParticipantScenario(t *testing.T) {
	shares := Distribute(1.0, []Participant{
		{AgentID: "small", Metrics: Metrics{Complexity: 0.3, ProcessingTimeMs: 100, OutputSizeBytes: 50, Quality: 1.0}},
		{AgentID: "large", Metrics: Metrics{Complexity: 0.8, ProcessingTimeMs: 400, OutputSizeBytes: 200, Quality: 1.0}},
	})
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}

	byID := make(map[string]Share)
	for _, s := range shares {
		byID[s.AgentID] = s
	}
	if byID["large"].NormalizedWeight <= byID["small"].NormalizedWeight {
		t.Errorf("expected the heavier contributor to earn the larger weight: %v vs %v",
			byID["large"].NormalizedWeight, byID["small"].NormalizedWeight)
	}
	if total := byID["large"].FinalPayment + byID["small"].FinalPayment; !almostEqual(total, 1.0, 1e-5) {
		t.Errorf("payments sum to %v, want 1.0", total)
	}
}

func TestDistributeZeroOutputUsesNeutralScore(t *testing.T) {
	shares := Distribute(1.0, []Participant{
		{AgentID: "a1", Metrics: Metrics{Complexity: 0.5, ProcessingTimeMs: 100, OutputSizeBytes: 0, Quality: 0.5}},
		{AgentID: "a2", Metrics: Metrics{Complexity: 0.5, ProcessingTimeMs: 100, OutputSizeBytes: 0, Quality: 0.5}},
	})

	want := ComplexityWeight*0.5 + TimeWeight*1.0 + QualityWeight*0.5 + OutputWeight*NeutralOutputScore
	for _, s := range shares {
		if !almostEqual(s.RawWeight, want, 1e-9) {
			t.Errorf("raw weight %v, want %v", s.RawWeight, want)
		}
	}
}

func TestDistributeIdenticalMetricsSplitEvenly(t *testing.T) {
	shares := Distribute(0.9, []Participant{
		{AgentID: "a1"},
		{AgentID: "a2"},
		{AgentID: "a3"},
	})
	for _, s := range shares {
		if !almostEqual(s.NormalizedWeight, 1.0/3.0, 1e-9) {
			t.Errorf("expected uniform 1/3 weight, got %v", s.NormalizedWeight)
		}
		if !almostEqual(s.FinalPayment, 0.3, 1e-6) {
			t.Errorf("expected 0.3 payment, got %v", s.FinalPayment)
		}
	}
}

func TestComplexityFor(t *testing.T) {
	tests := []struct {
		serviceType string
		want        float64
	}{
		{"scraper", 0.4},
		{"summarizer", 0.6},
		{"translation", 0.5},
		{"image_gen", 0.8},
		{"pdf_loader", 0.3},
		{"unknown", DefaultComplexity},
	}
	for _, tt := range tests {
		if got := ComplexityFor(tt.serviceType); got != tt.want {
			t.Errorf("ComplexityFor(%q) = %v, want %v", tt.serviceType, got, tt.want)
		}
	}
}
