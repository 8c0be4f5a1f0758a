// Package contribution apportions a workflow's total cost among the
// agents that performed its steps. Scoring is a pure function over the
// per-step metrics; the same participant set yields the same shares
// regardless of input order.
package contribution

import (
	"math"
	"sort"
)

// Weight coefficients. Complexity dominates, with execution time,
// output quality and output volume sharing the remainder.
const (
	ComplexityWeight = 0.30
	TimeWeight       = 0.25
	QualityWeight    = 0.25
	OutputWeight     = 0.20
)

// NeutralOutputScore is used for every participant when the largest
// output in the set is zero bytes, so the output term never divides by
// zero and no participant is favored on it.
const NeutralOutputScore = 0.5

// PaymentDecimals is the currency precision final payments are rounded
// to.
const PaymentDecimals = 6

// Metrics captures one participant's measured contribution.
// Complexity and Quality are in [0,1]; times and sizes are raw
// measurements normalized against the participant set's maximum.
type Metrics struct {
	Complexity       float64 `json:"complexity"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
	OutputSizeBytes  float64 `json:"output_size_bytes"`
	Quality          float64 `json:"quality"`
}

// Participant identifies one performer in a workflow.
type Participant struct {
	AgentID     string  `json:"agent_id"`
	ServiceType string  `json:"service_type"`
	Metrics     Metrics `json:"metrics"`
}

// Share is one participant's computed cut of the total.
type Share struct {
	AgentID          string  `json:"agent_id"`
	ServiceType      string  `json:"service_type"`
	RawWeight        float64 `json:"raw_weight"`
	NormalizedWeight float64 `json:"normalized_weight"`
	FinalPayment     float64 `json:"final_payment"`
	Metrics          Metrics `json:"metrics"`
}

// complexityTable rates each service type's intrinsic difficulty,
// mirroring the relative pricing of the original agent fleet.
var complexityTable = map[string]float64{
	"scraper":     0.4,
	"summarizer":  0.6,
	"translation": 0.5,
	"image_gen":   0.8,
	"pdf_loader":  0.3,
}

// DefaultComplexity applies to service types missing from the table.
const DefaultComplexity = 0.5

// ComplexityFor returns the static complexity score for a service type.
func ComplexityFor(serviceType string) float64 {
	if c, ok := complexityTable[serviceType]; ok {
		return c
	}
	return DefaultComplexity
}

// Distribute splits totalAmount over the participants in proportion to
// their weighted contribution. Normalized weights sum to 1 (uniform 1/n
// when every raw weight is zero) and final payments sum to totalAmount
// up to 6-decimal rounding.
func Distribute(totalAmount float64, participants []Participant) []Share {
	if len(participants) == 0 {
		return nil
	}

	var maxTime, maxOutput float64
	for _, p := range participants {
		if p.Metrics.ProcessingTimeMs > maxTime {
			maxTime = p.Metrics.ProcessingTimeMs
		}
		if p.Metrics.OutputSizeBytes > maxOutput {
			maxOutput = p.Metrics.OutputSizeBytes
		}
	}

	shares := make([]Share, len(participants))
	var weightSum float64
	for i, p := range participants {
		timeScore := 0.0
		if maxTime > 0 {
			timeScore = math.Min(p.Metrics.ProcessingTimeMs/maxTime, 1.0)
		}
		outputScore := NeutralOutputScore
		if maxOutput > 0 {
			outputScore = math.Min(p.Metrics.OutputSizeBytes/maxOutput, 1.0)
		}

		w := ComplexityWeight*p.Metrics.Complexity +
			TimeWeight*timeScore +
			QualityWeight*p.Metrics.Quality +
			OutputWeight*outputScore

		shares[i] = Share{
			AgentID:     p.AgentID,
			ServiceType: p.ServiceType,
			RawWeight:   w,
			Metrics:     p.Metrics,
		}
		weightSum += w
	}

	for i := range shares {
		if weightSum > 0 {
			shares[i].NormalizedWeight = shares[i].RawWeight / weightSum
		} else {
			shares[i].NormalizedWeight = 1.0 / float64(len(shares))
		}
		shares[i].FinalPayment = roundTo(totalAmount*shares[i].NormalizedWeight, PaymentDecimals)
	}

	// Stable output order independent of input order.
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].AgentID < shares[j].AgentID })
	return shares
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
