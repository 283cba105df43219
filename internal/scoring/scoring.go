// Package scoring turns enriched probe results and analyzer outputs into
// the readiness score breakdown. Pure arithmetic: deterministic and
// bounded to [0, 100] for any input, which the tests pin down at the empty
// and maximal signal sets.
package scoring

import (
	"math"

	"github.com/paylens/paylens/internal/model"
)

// protocolWeights splits the protocol sub-score across the known
// protocols. Weights sum to 1.0; x402 dominates because metered payment
// support is the strongest prospect signal.
var protocolWeights = map[model.Protocol]float64{
	model.ProtocolX402: 0.50,
	model.ProtocolACP:  0.35,
	model.ProtocolAP2:  0.15,
}

// Composite weights over the four sub-scores.
const (
	weightProtocol      = 0.40
	weightData          = 0.25
	weightAccessibility = 0.20
	weightCheckout      = 0.15
)

// Calculate produces the full score breakdown. results must contain one
// entry per known protocol (the orchestrator guarantees it); unknown
// protocols contribute nothing.
func Calculate(results []model.ProbeResult, structured model.StructuredDataResult, access model.AccessibilityResult) model.ScoreBreakdown {
	breakdown := model.ScoreBreakdown{
		Protocol:      protocolScore(results),
		Data:          dataScore(structured),
		Accessibility: accessibilityScore(access),
		Checkout:      checkoutScore(structured, access),
	}

	composite := weightProtocol*float64(breakdown.Protocol) +
		weightData*float64(breakdown.Data) +
		weightAccessibility*float64(breakdown.Accessibility) +
		weightCheckout*float64(breakdown.Checkout)
	breakdown.Readiness = clamp(int(math.Round(composite)))

	return breakdown
}

// statusPoints grades one probe result on the 0-100 tier ladder.
func statusPoints(r model.ProbeResult) float64 {
	switch r.Status {
	case model.StatusConfirmed:
		switch r.Confidence {
		case model.ConfidenceHigh:
			return 100
		case model.ConfidenceMedium:
			return 85
		default:
			return 60
		}
	case model.StatusPlatformEnabled:
		return 70
	case model.StatusEligible:
		switch r.Confidence {
		case model.ConfidenceHigh:
			return 40
		case model.ConfidenceMedium:
			return 30
		default:
			return 20
		}
	}
	return 0
}

func protocolScore(results []model.ProbeResult) int {
	score := 0.0
	for _, r := range results {
		score += protocolWeights[r.Protocol] * statusPoints(r)
	}
	return clamp(int(math.Round(score)))
}

func dataScore(s model.StructuredDataResult) int {
	score := 0
	if s.HasProductMarkup {
		score += 30
	}
	if s.HasOfferMarkup {
		score += 15
	}
	if s.HasPriceMarkup {
		score += 20
	}
	if s.HasAvailabilityMarkup {
		score += 15
	}
	if s.HasOrganizationMarkup {
		score += 5
	}
	if s.HasOpenGraph {
		score += 5
	}
	if len(s.JSONLDTypes) >= 2 {
		score += 10
	}
	return clamp(score)
}

func accessibilityScore(a model.AccessibilityResult) int {
	score := 0
	if a.Reachable {
		score += 50
	}
	if !a.BotsBlocked {
		score += 35
	}
	if a.HasLLMsTxt {
		score += 15
	}
	return clamp(score)
}

func checkoutScore(s model.StructuredDataResult, a model.AccessibilityResult) int {
	score := 0
	if a.Reachable {
		score += 20
	}
	if a.CheckoutReachable {
		score += 50
	}
	if s.Platform != "" {
		score += 30
	}
	if a.LoginWall {
		score -= 30
	}
	return clamp(score)
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
