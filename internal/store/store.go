// Package store persists merchant scans and their child records in
// SQLite. The orchestrator only sees the ScanStore interface; everything
// else here is the concrete implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/paylens/paylens/internal/model"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("scan not found")

// DriftReport summarizes how a protocol's declared capabilities changed
// between the two most recent completed scans of a domain.
type DriftReport struct {
	Protocol   model.Protocol `json:"protocol"`
	PreviousAt time.Time      `json:"previous_at"`
	CurrentAt  time.Time      `json:"current_at"`
	Changed    bool           `json:"changed"`

	// Inserted/Deleted are character counts from the text diff, a cheap
	// magnitude signal for ranking churn.
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`

	// Patch is the textual patch between the two capability snapshots.
	Patch string `json:"patch,omitempty"`
}

// ScanStore is the persistence contract the orchestrator depends on.
// Replace operations are transactional: a reader can never observe a
// half-written protocol result set.
type ScanStore interface {
	// UpsertScanning creates or refreshes the scan row for tenant+domain
	// and moves it to scanning status. Returns the scan id.
	UpsertScanning(ctx context.Context, tenantID, domain, url string) (string, error)

	// CompleteScan finalizes a successful scan.
	CompleteScan(ctx context.Context, scanID string, scores model.ScoreBreakdown, businessModel model.BusinessModel, scannedAt time.Time, durationMs int64) error

	// FailScan records a failed attempt with a human-readable message.
	FailScan(ctx context.Context, scanID, errorMessage string, durationMs int64) error

	// GetScanByDomain loads the scan row with composed children, or
	// ErrNotFound.
	GetScanByDomain(ctx context.Context, tenantID, domain string) (*model.MerchantScan, error)

	// ReplaceProtocolResults swaps the full protocol result set for a scan.
	ReplaceProtocolResults(ctx context.Context, scanID string, results []model.ProbeResult) error

	ReplaceStructuredData(ctx context.Context, scanID string, data model.StructuredDataResult) error
	ReplaceAccessibility(ctx context.Context, scanID string, data model.AccessibilityResult) error

	// AppendCapabilitySnapshots records per-protocol capability JSON for
	// drift tracking across scans.
	AppendCapabilitySnapshots(ctx context.Context, tenantID, domain string, results []model.ProbeResult, at time.Time) error

	// ManifestDrift diffs the two latest capability snapshots for one
	// protocol, or returns ErrNotFound when fewer than one exists.
	ManifestDrift(ctx context.Context, tenantID, domain string, protocol model.Protocol) (*DriftReport, error)

	// ListScans returns a tenant's scans ordered by readiness, best first.
	ListScans(ctx context.Context, tenantID string) ([]model.MerchantScan, error)

	Close() error
}
