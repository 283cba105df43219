// Package classifier derives a business-model tag from scan signals and
// uses it to contextualize probe results. Everything here is a pure
// function: same inputs, same outputs, no clock, no I/O. Scan result
// determinism depends on that.
package classifier

import (
	"strings"

	"github.com/paylens/paylens/internal/model"
)

// Signals is the input to classification: everything the scan learned
// about the merchant before scoring.
type Signals struct {
	// DeclaredCategory is the caller-supplied merchant category hint, if
	// any ("marketplace", "news", ...). Free-form, matched loosely.
	DeclaredCategory string

	Structured    model.StructuredDataResult
	Accessibility model.AccessibilityResult

	// ConfirmedProtocols lists protocols whose probes came back confirmed.
	ConfirmedProtocols []model.Protocol
}

// declaredCategoryTags maps category hint substrings to a model tag.
// First match wins; the order encodes specificity.
var declaredCategoryTags = []struct {
	needle string
	tag    model.BusinessModel
}{
	{"marketplace", model.ModelMarketplace},
	{"subscription", model.ModelSubscription},
	{"membership", model.ModelSubscription},
	{"saas", model.ModelSaaSAPI},
	{"api", model.ModelSaaSAPI},
	{"software", model.ModelSaaSAPI},
	{"news", model.ModelContentMedia},
	{"media", model.ModelContentMedia},
	{"publisher", model.ModelContentMedia},
	{"content", model.ModelContentMedia},
	{"retail", model.ModelRetail},
	{"shop", model.ModelRetail},
	{"store", model.ModelRetail},
	{"ecommerce", model.ModelRetail},
	{"service", model.ModelServices},
	{"agency", model.ModelServices},
	{"consulting", model.ModelServices},
}

// Classify maps signals to a business-model tag via an ordered decision
// table. Declared category wins over inference; protocol evidence wins
// over markup; markup wins over reachability.
func Classify(s Signals) model.BusinessModel {
	if category := strings.ToLower(s.DeclaredCategory); category != "" {
		for _, entry := range declaredCategoryTags {
			if strings.Contains(category, entry.needle) {
				return entry.tag
			}
		}
	}

	for _, p := range s.ConfirmedProtocols {
		if p == model.ProtocolX402 {
			// A live metered-payment API is the defining saas_api signal.
			return model.ModelSaaSAPI
		}
	}

	if s.Structured.HasProductMarkup {
		if s.Structured.ProductCount >= 25 {
			return model.ModelMarketplace
		}
		return model.ModelRetail
	}
	if s.Structured.Platform != "" {
		// Platform storefront without visible product markup is still a
		// retail site, just one hiding its catalog from the homepage.
		return model.ModelRetail
	}

	for _, t := range s.Structured.JSONLDTypes {
		switch t {
		case "Article", "NewsArticle", "BlogPosting":
			return model.ModelContentMedia
		}
	}

	if s.Structured.HasOrganizationMarkup {
		return model.ModelServices
	}
	return model.ModelUnknown
}

// ConfirmedProtocols extracts the protocols whose probes came back
// confirmed, in input order. Convenience for building Signals.
func ConfirmedProtocols(results []model.ProbeResult) []model.Protocol {
	var confirmed []model.Protocol
	for _, r := range results {
		if r.Status == model.StatusConfirmed {
			confirmed = append(confirmed, r.Protocol)
		}
	}
	return confirmed
}
