package classifier

import "github.com/paylens/paylens/internal/model"

// Eligibility signal names attached by enrichment and filtering.
const (
	SignalBotAccessRestricted       = "bot_access_restricted"
	SignalCheckoutLoginWall         = "checkout_login_wall"
	SignalPlatformCheckoutAvailable = "platform_checkout_available"
	SignalImplausibleForModel       = "implausible_for_business_model"
)

// checkoutPlatforms are platforms with hosted agentic checkout support, so
// a merchant on one is platform_enabled for ACP even with no direct signal.
var checkoutPlatforms = map[string]bool{
	"shopify":     true,
	"bigcommerce": true,
}

// EnrichEligibility annotates each probe result with eligibility signals
// derived from the analyzer outputs. It operates on copies: inputs are
// never mutated, and the result slice always has the same length and
// protocol order as the input.
func EnrichEligibility(results []model.ProbeResult, access model.AccessibilityResult, structured model.StructuredDataResult) []model.ProbeResult {
	out := make([]model.ProbeResult, len(results))
	for i, r := range results {
		if access.BotsBlocked {
			r.EligibilitySignals = append(r.EligibilitySignals, SignalBotAccessRestricted)
		}
		if access.LoginWall {
			r.EligibilitySignals = append(r.EligibilitySignals, SignalCheckoutLoginWall)
		}

		// A supported platform upgrades an undetected checkout protocol:
		// the merchant can flip it on without deploying anything.
		if r.Protocol == model.ProtocolACP &&
			r.Status == model.StatusNotDetected &&
			access.Reachable &&
			checkoutPlatforms[structured.Platform] {
			r.Status = model.StatusPlatformEnabled
			r.Confidence = model.ConfidenceMedium
			r.EligibilitySignals = append(r.EligibilitySignals, SignalPlatformCheckoutAvailable)
		}

		out[i] = r
	}
	return out
}

// FilterByBusinessModel downgrades protocol results that are structurally
// implausible for the classified business model. Suppression never deletes
// a result: only status, confidence and signals are adjusted, preserving
// the one-row-per-protocol invariant.
func FilterByBusinessModel(results []model.ProbeResult, businessModel model.BusinessModel) []model.ProbeResult {
	out := make([]model.ProbeResult, len(results))
	for i, r := range results {
		switch {
		// A consumption-metered protocol on a pure-subscription business
		// with no metering evidence is almost always a stale or vanity
		// manifest.
		case businessModel == model.ModelSubscription &&
			r.Protocol == model.ProtocolX402 &&
			r.Status == model.StatusConfirmed &&
			!hasMeteringSignal(r):
			r.Status = model.StatusEligible
			r.Confidence = model.ConfidenceLow
			r.EligibilitySignals = append(r.EligibilitySignals, SignalImplausibleForModel)

		// Hosted checkout on a content/media property with no product
		// markup is a weaker claim than its probe confidence suggests.
		case businessModel == model.ModelContentMedia &&
			r.Protocol == model.ProtocolACP &&
			r.Status == model.StatusConfirmed &&
			r.Confidence == model.ConfidenceHigh:
			r.Confidence = model.ConfidenceMedium
			r.EligibilitySignals = append(r.EligibilitySignals, SignalImplausibleForModel)
		}
		out[i] = r
	}
	return out
}

// hasMeteringSignal reports whether the result's evidence shows actual
// per-request pricing: priced registry samples, manifest resources, or an
// accepts-list.
func hasMeteringSignal(r model.ProbeResult) bool {
	if ev := r.Evidence.Registry; ev != nil && ev.MatchCount > 0 {
		return true
	}
	if ev := r.Evidence.Manifest; ev != nil && (ev.ResourceCount > 0 || len(ev.Accepts) > 0) {
		return true
	}
	if ev := r.Evidence.Header; ev != nil && (ev.StatusCode == 402 || len(ev.Accepts) > 0) {
		return true
	}
	return false
}
