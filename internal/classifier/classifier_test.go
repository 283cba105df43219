package classifier_test

import (
	"testing"

	"github.com/paylens/paylens/internal/classifier"
	"github.com/paylens/paylens/internal/model"
)

// ─── Classify ──────────────────────────────────────────────────────────

func TestClassify_DeclaredCategoryWins(t *testing.T) {
	t.Parallel()

	got := classifier.Classify(classifier.Signals{
		DeclaredCategory: "Online Marketplace",
		Structured:       model.StructuredDataResult{HasProductMarkup: true, ProductCount: 3},
	})
	if got != model.ModelMarketplace {
		t.Errorf("declared category must win over markup, got %s", got)
	}
}

func TestClassify_X402ConfirmedImpliesSaaSAPI(t *testing.T) {
	t.Parallel()

	got := classifier.Classify(classifier.Signals{
		Structured:         model.StructuredDataResult{HasProductMarkup: true, ProductCount: 100},
		ConfirmedProtocols: []model.Protocol{model.ProtocolX402},
	})
	if got != model.ModelSaaSAPI {
		t.Errorf("confirmed x402 must win over markup, got %s", got)
	}
}

func TestClassify_ProductMarkup(t *testing.T) {
	t.Parallel()

	few := classifier.Classify(classifier.Signals{
		Structured: model.StructuredDataResult{HasProductMarkup: true, ProductCount: 5},
	})
	if few != model.ModelRetail {
		t.Errorf("small catalog should classify retail, got %s", few)
	}

	many := classifier.Classify(classifier.Signals{
		Structured: model.StructuredDataResult{HasProductMarkup: true, ProductCount: 25},
	})
	if many != model.ModelMarketplace {
		t.Errorf("25+ products should classify marketplace, got %s", many)
	}
}

func TestClassify_PlatformWithoutMarkupIsRetail(t *testing.T) {
	t.Parallel()

	got := classifier.Classify(classifier.Signals{
		Structured: model.StructuredDataResult{Platform: "shopify"},
	})
	if got != model.ModelRetail {
		t.Errorf("platform storefront should classify retail, got %s", got)
	}
}

func TestClassify_ArticleTypesAreContentMedia(t *testing.T) {
	t.Parallel()

	got := classifier.Classify(classifier.Signals{
		Structured: model.StructuredDataResult{JSONLDTypes: []string{"WebSite", "NewsArticle"}},
	})
	if got != model.ModelContentMedia {
		t.Errorf("article markup should classify content_media, got %s", got)
	}
}

func TestClassify_OrganizationOnlyIsServices(t *testing.T) {
	t.Parallel()

	got := classifier.Classify(classifier.Signals{
		Structured: model.StructuredDataResult{HasOrganizationMarkup: true},
	})
	if got != model.ModelServices {
		t.Errorf("organization-only markup should classify services, got %s", got)
	}
}

func TestClassify_NoSignalsIsUnknown(t *testing.T) {
	t.Parallel()

	if got := classifier.Classify(classifier.Signals{}); got != model.ModelUnknown {
		t.Errorf("empty signals should classify unknown, got %s", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()

	s := classifier.Signals{
		DeclaredCategory:   "news and media",
		Structured:         model.StructuredDataResult{HasProductMarkup: true},
		ConfirmedProtocols: []model.Protocol{model.ProtocolACP},
	}
	first := classifier.Classify(s)
	for range 10 {
		if got := classifier.Classify(s); got != first {
			t.Fatalf("classification not deterministic: %s then %s", first, got)
		}
	}
}

// ─── EnrichEligibility ─────────────────────────────────────────────────

func allNotDetected() []model.ProbeResult {
	results := make([]model.ProbeResult, 0, 3)
	for _, p := range model.KnownProtocols() {
		results = append(results, model.NotDetected(p))
	}
	return results
}

func TestEnrichEligibility_PlatformUpgradesACP(t *testing.T) {
	t.Parallel()

	in := allNotDetected()
	out := classifier.EnrichEligibility(in,
		model.AccessibilityResult{Reachable: true},
		model.StructuredDataResult{Platform: "shopify"},
	)

	if len(out) != len(in) {
		t.Fatalf("enrichment changed result count: %d -> %d", len(in), len(out))
	}
	for _, r := range out {
		if r.Protocol != model.ProtocolACP {
			if r.Status != model.StatusNotDetected {
				t.Errorf("%s should stay not_detected, got %s", r.Protocol, r.Status)
			}
			continue
		}
		if r.Status != model.StatusPlatformEnabled || r.Confidence != model.ConfidenceMedium {
			t.Errorf("ACP on shopify should be platform_enabled/medium, got %s/%s", r.Status, r.Confidence)
		}
		if len(r.EligibilitySignals) != 1 || r.EligibilitySignals[0] != classifier.SignalPlatformCheckoutAvailable {
			t.Errorf("unexpected signals: %v", r.EligibilitySignals)
		}
	}

	// Inputs must be untouched.
	for _, r := range in {
		if r.Status != model.StatusNotDetected || r.EligibilitySignals != nil {
			t.Errorf("input mutated: %+v", r)
		}
	}
}

func TestEnrichEligibility_UnsupportedPlatformNoUpgrade(t *testing.T) {
	t.Parallel()

	out := classifier.EnrichEligibility(allNotDetected(),
		model.AccessibilityResult{Reachable: true},
		model.StructuredDataResult{Platform: "magento"},
	)
	for _, r := range out {
		if r.Status != model.StatusNotDetected {
			t.Errorf("%s should stay not_detected on unsupported platform, got %s", r.Protocol, r.Status)
		}
	}
}

func TestEnrichEligibility_AccessSignalsAttached(t *testing.T) {
	t.Parallel()

	out := classifier.EnrichEligibility(allNotDetected(),
		model.AccessibilityResult{BotsBlocked: true, LoginWall: true},
		model.StructuredDataResult{},
	)
	for _, r := range out {
		has := map[string]bool{}
		for _, s := range r.EligibilitySignals {
			has[s] = true
		}
		if !has[classifier.SignalBotAccessRestricted] || !has[classifier.SignalCheckoutLoginWall] {
			t.Errorf("%s missing access signals: %v", r.Protocol, r.EligibilitySignals)
		}
	}
}

// ─── FilterByBusinessModel ─────────────────────────────────────────────

func TestFilterByBusinessModel_SubscriptionDowngradesBareX402(t *testing.T) {
	t.Parallel()

	in := []model.ProbeResult{{
		Protocol:   model.ProtocolX402,
		Status:     model.StatusConfirmed,
		Confidence: model.ConfidenceHigh,
		Evidence:   model.Evidence{Manifest: &model.ManifestEvidence{Version: 1}},
	}}

	out := classifier.FilterByBusinessModel(in, model.ModelSubscription)

	if len(out) != 1 {
		t.Fatalf("suppression must not delete results, got %d", len(out))
	}
	r := out[0]
	if r.Status != model.StatusEligible || r.Confidence != model.ConfidenceLow {
		t.Errorf("expected eligible/low downgrade, got %s/%s", r.Status, r.Confidence)
	}
	if len(r.EligibilitySignals) != 1 || r.EligibilitySignals[0] != classifier.SignalImplausibleForModel {
		t.Errorf("unexpected signals: %v", r.EligibilitySignals)
	}
}

func TestFilterByBusinessModel_MeteringEvidenceSurvives(t *testing.T) {
	t.Parallel()

	in := []model.ProbeResult{{
		Protocol:   model.ProtocolX402,
		Status:     model.StatusConfirmed,
		Confidence: model.ConfidenceHigh,
		Evidence: model.Evidence{Manifest: &model.ManifestEvidence{
			Version:       1,
			ResourceCount: 3,
		}},
	}}

	out := classifier.FilterByBusinessModel(in, model.ModelSubscription)

	if out[0].Status != model.StatusConfirmed {
		t.Errorf("priced resources are metering evidence, result should survive, got %s", out[0].Status)
	}
}

func TestFilterByBusinessModel_ContentMediaSoftensACP(t *testing.T) {
	t.Parallel()

	in := []model.ProbeResult{{
		Protocol:   model.ProtocolACP,
		Status:     model.StatusConfirmed,
		Confidence: model.ConfidenceHigh,
	}}

	out := classifier.FilterByBusinessModel(in, model.ModelContentMedia)

	if out[0].Status != model.StatusConfirmed {
		t.Errorf("status must survive, got %s", out[0].Status)
	}
	if out[0].Confidence != model.ConfidenceMedium {
		t.Errorf("expected medium confidence, got %s", out[0].Confidence)
	}
}

func TestFilterByBusinessModel_RetailUntouched(t *testing.T) {
	t.Parallel()

	in := []model.ProbeResult{
		{Protocol: model.ProtocolX402, Status: model.StatusConfirmed, Confidence: model.ConfidenceHigh},
		{Protocol: model.ProtocolACP, Status: model.StatusConfirmed, Confidence: model.ConfidenceHigh},
	}
	out := classifier.FilterByBusinessModel(in, model.ModelRetail)
	for i, r := range out {
		if r.Status != in[i].Status || r.Confidence != in[i].Confidence {
			t.Errorf("retail filtering changed %s: %+v", r.Protocol, r)
		}
	}
}

// ─── ConfirmedProtocols ────────────────────────────────────────────────

func TestConfirmedProtocols(t *testing.T) {
	t.Parallel()

	results := []model.ProbeResult{
		{Protocol: model.ProtocolX402, Status: model.StatusConfirmed},
		{Protocol: model.ProtocolACP, Status: model.StatusNotDetected},
		{Protocol: model.ProtocolAP2, Status: model.StatusConfirmed},
	}
	got := classifier.ConfirmedProtocols(results)
	if len(got) != 2 || got[0] != model.ProtocolX402 || got[1] != model.ProtocolAP2 {
		t.Errorf("unexpected confirmed set: %v", got)
	}
}
