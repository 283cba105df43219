package model

// Protocol identifies one agentic-commerce payment protocol the scanner
// knows how to detect.
type Protocol string

const (
	// ProtocolX402 is the pay-per-request protocol signaled by HTTP 402
	// and /.well-known/x402.json manifests.
	ProtocolX402 Protocol = "x402"

	// ProtocolACP is the hosted agentic checkout protocol signaled by
	// /.well-known/agentic-commerce.json manifests and ACP-Version headers.
	ProtocolACP Protocol = "acp"

	// ProtocolAP2 is the agent payments mandate protocol signaled by
	// /.well-known/ap2.json manifests.
	ProtocolAP2 Protocol = "ap2"
)

// KnownProtocols returns the fixed set of protocols every completed scan
// must carry exactly one result for. Order is stable for deterministic
// persistence and display.
func KnownProtocols() []Protocol {
	return []Protocol{ProtocolX402, ProtocolACP, ProtocolAP2}
}

// ProbeStatus is the detection outcome for one protocol on one domain.
type ProbeStatus string

const (
	// StatusNotDetected means the exhaustive probe found no evidence.
	StatusNotDetected ProbeStatus = "not_detected"

	// StatusConfirmed means direct evidence of the protocol was observed.
	StatusConfirmed ProbeStatus = "confirmed"

	// StatusPlatformEnabled means the merchant's e-commerce platform is
	// known to support the protocol even though the merchant shows no
	// direct signal of its own.
	StatusPlatformEnabled ProbeStatus = "platform_enabled"

	// StatusEligible means the merchant could plausibly adopt the protocol
	// but no deployment evidence exists.
	StatusEligible ProbeStatus = "eligible"
)

// Confidence grades how certain a detection result is, independent of its
// status. A not_detected result can legitimately carry high confidence when
// the full search space was covered.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// BusinessModel tags how a merchant makes money, used to contextualize
// which protocols are plausible for it.
type BusinessModel string

const (
	ModelRetail       BusinessModel = "retail"
	ModelMarketplace  BusinessModel = "marketplace"
	ModelSubscription BusinessModel = "subscription"
	ModelSaaSAPI      BusinessModel = "saas_api"
	ModelContentMedia BusinessModel = "content_media"
	ModelServices     BusinessModel = "services"
	ModelUnknown      BusinessModel = "unknown"
)

// ScanStatus is the lifecycle state of a MerchantScan row. Transitions are
// pending|previous -> scanning -> completed|failed.
type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanScanning  ScanStatus = "scanning"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)
