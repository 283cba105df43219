package model

import "time"

// StructuredDataResult summarizes the machine-readable commerce markup a
// merchant exposes on its homepage.
type StructuredDataResult struct {
	// Platform is the detected e-commerce platform ("shopify",
	// "woocommerce", ...), empty when none was fingerprinted.
	Platform string `json:"platform,omitempty"`

	// ProductCount is how many Product entities were found in JSON-LD.
	ProductCount int `json:"product_count"`

	HasProductMarkup      bool `json:"has_product_markup"`
	HasOfferMarkup        bool `json:"has_offer_markup"`
	HasPriceMarkup        bool `json:"has_price_markup"`
	HasAvailabilityMarkup bool `json:"has_availability_markup"`
	HasOrganizationMarkup bool `json:"has_organization_markup"`

	// JSONLDTypes lists the distinct @type values observed.
	JSONLDTypes []string `json:"jsonld_types,omitempty"`

	HasOpenGraph bool `json:"has_open_graph"`
}

// AccessibilityResult summarizes how reachable the merchant site is for
// automated agents: homepage status, robots policy and checkout friction.
type AccessibilityResult struct {
	Reachable  bool `json:"reachable"`
	StatusCode int  `json:"status_code,omitempty"`

	// BotsBlocked is true when robots.txt disallows the agent user agents
	// the scanner cares about (or disallows everything).
	BotsBlocked bool `json:"bots_blocked"`

	// BlockedAgents lists the specific agent names robots.txt disallows.
	BlockedAgents []string `json:"blocked_agents,omitempty"`

	HasLLMsTxt bool `json:"has_llms_txt"`

	// CheckoutReachable reports whether a common checkout path answered
	// without an auth wall.
	CheckoutReachable bool `json:"checkout_reachable"`

	// LoginWall is true when checkout redirects into authentication.
	LoginWall bool `json:"login_wall"`
}

// DomainInfo is advisory WHOIS-derived metadata. It never contributes to
// scores; it is surfaced for prospect research only.
type DomainInfo struct {
	Registered bool   `json:"registered"`
	Registrar  string `json:"registrar,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// ScoreBreakdown holds the four sub-scores and the composite readiness
// score. All values are integers in [0, 100].
type ScoreBreakdown struct {
	Readiness     int `json:"readiness_score"`
	Protocol      int `json:"protocol_score"`
	Data          int `json:"data_score"`
	Accessibility int `json:"accessibility_score"`
	Checkout      int `json:"checkout_score"`
}

// ScanProtocolResult is the persisted child row of a MerchantScan: one row
// per protocol per scan, replaced wholesale on each new scan.
type ScanProtocolResult struct {
	ScanID          string      `json:"scan_id"`
	Protocol        Protocol    `json:"protocol"`
	Status          ProbeStatus `json:"status"`
	Confidence      Confidence  `json:"confidence"`
	DetectionMethod string      `json:"detection_method,omitempty"`
	EndpointURL     string      `json:"endpoint_url,omitempty"`

	// CapabilitiesJSON is the serialized Capabilities() projection.
	CapabilitiesJSON string `json:"capabilities_json,omitempty"`

	ResponseTimeMs     int64    `json:"response_time_ms,omitempty"`
	IsFunctional       bool     `json:"is_functional"`
	EligibilitySignals []string `json:"eligibility_signals,omitempty"`
}

// MerchantScan is the aggregate root: one row per tenant+domain, created on
// first scan request and mutated through its status lifecycle. A scan in
// completed status always carries exactly one protocol result per known
// protocol plus populated structured-data and accessibility records.
type MerchantScan struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`

	// Domain is the normalized domain, unique per tenant.
	Domain string `json:"domain"`
	URL    string `json:"url"`

	Status ScanStatus `json:"scan_status"`

	Scores        ScoreBreakdown `json:"scores"`
	BusinessModel BusinessModel  `json:"business_model,omitempty"`

	LastScannedAt  time.Time `json:"last_scanned_at,omitempty"`
	ScanDurationMs int64     `json:"scan_duration_ms,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`

	// Composed sub-objects, populated on completed scans.
	ProtocolResults []ProbeResult         `json:"protocol_results,omitempty"`
	StructuredData  *StructuredDataResult `json:"structured_data,omitempty"`
	Accessibility   *AccessibilityResult  `json:"accessibility,omitempty"`
	DomainInfo      *DomainInfo           `json:"domain_info,omitempty"`
}
