package model

// ResourceSample is one paid/protected resource observed during detection,
// either from the discovery registry or from a merchant manifest.
type ResourceSample struct {
	// URL or path of the resource as declared by the source.
	URL string `json:"url"`

	// Method is the declared HTTP method, if any.
	Method string `json:"method,omitempty"`

	// Price is the declared price as a display string (e.g. "0.01").
	Price string `json:"price,omitempty"`

	// Currency or asset identifier accompanying the price.
	Currency string `json:"currency,omitempty"`

	// Network is the settlement network identifier, if declared.
	Network string `json:"network,omitempty"`

	// Description is a short human-readable label from the source.
	Description string `json:"description,omitempty"`
}

// AcceptEntry mirrors one element of a protocol accepts-list: a payment
// method the resource owner will settle on.
type AcceptEntry struct {
	Network           string         `json:"network,omitempty"`
	MaxAmountRequired string         `json:"maxAmountRequired,omitempty"`
	Asset             string         `json:"asset,omitempty"`
	PayTo             string         `json:"payTo,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// RegistryEvidence is evidence gathered from a third-party discovery
// registry: the strongest signal, since a listed resource opted in.
type RegistryEvidence struct {
	MatchCount int              `json:"match_count"`
	Samples    []ResourceSample `json:"samples,omitempty"`
	Networks   []string         `json:"networks,omitempty"`
}

// ManifestEvidence is evidence extracted from a well-known manifest the
// merchant publishes on its own origin.
type ManifestEvidence struct {
	Version       int              `json:"version,omitempty"`
	ServiceName   string           `json:"service_name,omitempty"`
	BaseURL       string           `json:"base_url,omitempty"`
	ResourceCount int              `json:"resource_count"`
	Samples       []ResourceSample `json:"samples,omitempty"`
	Networks      []string         `json:"networks,omitempty"`
	Accepts       []AcceptEntry    `json:"accepts,omitempty"`
}

// HeaderEvidence is evidence from direct path probing: a reserved status
// code, plus whatever the response headers and body volunteered.
type HeaderEvidence struct {
	StatusCode int           `json:"status_code"`
	Version    int           `json:"version,omitempty"`
	Accepts    []AcceptEntry `json:"accepts,omitempty"`
	Headers    []string      `json:"headers,omitempty"`
}

// Evidence is a tagged union over the three detection methods. Exactly one
// of the pointers is set on a positive result; all are nil on not_detected.
type Evidence struct {
	Registry *RegistryEvidence `json:"registry,omitempty"`
	Manifest *ManifestEvidence `json:"manifest,omitempty"`
	Header   *HeaderEvidence   `json:"header,omitempty"`
}

// ProbeResult is the immutable outcome of exactly one probe strategy
// invocation for one protocol on one domain.
type ProbeResult struct {
	Protocol   Protocol    `json:"protocol"`
	Status     ProbeStatus `json:"status"`
	Confidence Confidence  `json:"confidence"`

	// DetectionMethod names the evidence source, e.g.
	// ".well-known/x402.json manifest" or "registry".
	DetectionMethod string `json:"detection_method,omitempty"`

	// EndpointURL is the URL where the positive signal was observed.
	EndpointURL string `json:"endpoint_url,omitempty"`

	// Evidence holds the typed capability bag for this detection.
	Evidence Evidence `json:"evidence,omitempty"`

	// ResponseTimeMs is how long the winning check took, when measured.
	ResponseTimeMs int64 `json:"response_time_ms,omitempty"`

	// IsFunctional reports whether the protocol endpoint answered a live
	// request (as opposed to only being declared in a manifest/registry).
	IsFunctional bool `json:"is_functional,omitempty"`

	// EligibilitySignals is populated by enrichment, never by probes.
	EligibilitySignals []string `json:"eligibility_signals,omitempty"`
}

// NotDetected returns the canned negative result for a protocol. The high
// confidence is deliberate: callers use it both for exhausted searches and
// as the timeout fallback value.
func NotDetected(p Protocol) ProbeResult {
	return ProbeResult{
		Protocol:   p,
		Status:     StatusNotDetected,
		Confidence: ConfidenceHigh,
	}
}

// Capabilities flattens the evidence union into a well-typed display
// projection for scoring and persistence. Keys are stable.
func (r ProbeResult) Capabilities() map[string]any {
	caps := make(map[string]any)
	if ev := r.Evidence.Registry; ev != nil {
		caps["match_count"] = ev.MatchCount
		if len(ev.Samples) > 0 {
			caps["samples"] = ev.Samples
		}
		if len(ev.Networks) > 0 {
			caps["networks"] = ev.Networks
		}
	}
	if ev := r.Evidence.Manifest; ev != nil {
		if ev.Version != 0 {
			caps["version"] = ev.Version
		}
		if ev.ServiceName != "" {
			caps["service_name"] = ev.ServiceName
		}
		if ev.BaseURL != "" {
			caps["base_url"] = ev.BaseURL
		}
		caps["resource_count"] = ev.ResourceCount
		if len(ev.Samples) > 0 {
			caps["samples"] = ev.Samples
		}
		if len(ev.Networks) > 0 {
			caps["networks"] = ev.Networks
		}
		if len(ev.Accepts) > 0 {
			caps["accepts"] = ev.Accepts
		}
	}
	if ev := r.Evidence.Header; ev != nil {
		caps["status_code"] = ev.StatusCode
		if ev.Version != 0 {
			caps["version"] = ev.Version
		}
		if len(ev.Accepts) > 0 {
			caps["accepts"] = ev.Accepts
		}
		if len(ev.Headers) > 0 {
			caps["headers"] = ev.Headers
		}
	}
	return caps
}
