package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/store"
	"github.com/paylens/paylens/internal/testutil"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:", &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func confirmedResults() []model.ProbeResult {
	return []model.ProbeResult{
		{
			Protocol:        model.ProtocolX402,
			Status:          model.StatusConfirmed,
			Confidence:      model.ConfidenceHigh,
			DetectionMethod: ".well-known/x402.json manifest",
			EndpointURL:     "https://example.com/.well-known/x402.json",
			Evidence:        model.Evidence{Manifest: &model.ManifestEvidence{Version: 1, ResourceCount: 2}},
			ResponseTimeMs:  42,
		},
		model.NotDetected(model.ProtocolACP),
		model.NotDetected(model.ProtocolAP2),
	}
}

// ─── Scan lifecycle ────────────────────────────────────────────────────

func TestUpsertScanning_CreateThenReuse(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertScanning(ctx, "acme", "example.com", "https://example.com")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	id2, err := s.UpsertScanning(ctx, "acme", "example.com", "https://example.com")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("re-scanning the same tenant+domain must reuse the row: %q vs %q", id1, id2)
	}

	// A different tenant scanning the same domain gets its own row.
	id3, err := s.UpsertScanning(ctx, "globex", "example.com", "https://example.com")
	if err != nil {
		t.Fatalf("other tenant upsert: %v", err)
	}
	if id3 == id1 {
		t.Error("tenants must not share scan rows")
	}
}

func TestCompleteScan_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertScanning(ctx, "acme", "example.com", "https://example.com")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	scores := model.ScoreBreakdown{Readiness: 73, Protocol: 80, Data: 60, Accessibility: 85, Checkout: 50}
	scannedAt := time.Now().UTC().Truncate(time.Second)
	if err := s.CompleteScan(ctx, id, scores, model.ModelRetail, scannedAt, 1234); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := s.GetScanByDomain(ctx, "acme", "example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.ScanCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.Scores != scores {
		t.Errorf("scores round trip: %+v vs %+v", got.Scores, scores)
	}
	if got.BusinessModel != model.ModelRetail {
		t.Errorf("business model round trip: %s", got.BusinessModel)
	}
	if !got.LastScannedAt.Equal(scannedAt) {
		t.Errorf("last scanned at round trip: %s vs %s", got.LastScannedAt, scannedAt)
	}
	if got.ScanDurationMs != 1234 {
		t.Errorf("duration round trip: %d", got.ScanDurationMs)
	}
}

func TestFailScan_RecordsMessage(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.UpsertScanning(ctx, "acme", "down.example.com", "https://down.example.com")
	if err := s.FailScan(ctx, id, "scan exceeded global deadline of 15s", 15000); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, err := s.GetScanByDomain(ctx, "acme", "down.example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.ScanFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Error("error message not persisted")
	}
}

func TestGetScanByDomain_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.GetScanByDomain(context.Background(), "acme", "nope.example.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ─── Protocol results ──────────────────────────────────────────────────

func TestReplaceProtocolResults_OneRowPerProtocol(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.UpsertScanning(ctx, "acme", "example.com", "https://example.com")

	if err := s.ReplaceProtocolResults(ctx, id, confirmedResults()); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	// Second replace must swap, not accumulate.
	if err := s.ReplaceProtocolResults(ctx, id, confirmedResults()); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := s.GetScanByDomain(ctx, "acme", "example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.ProtocolResults) != 3 {
		t.Fatalf("expected one row per protocol, got %d", len(got.ProtocolResults))
	}

	seen := map[model.Protocol]model.ProbeResult{}
	for _, r := range got.ProtocolResults {
		seen[r.Protocol] = r
	}
	x := seen[model.ProtocolX402]
	if x.Status != model.StatusConfirmed || x.DetectionMethod != ".well-known/x402.json manifest" {
		t.Errorf("x402 row did not round trip: %+v", x)
	}
	if seen[model.ProtocolACP].Status != model.StatusNotDetected {
		t.Errorf("acp row did not round trip: %+v", seen[model.ProtocolACP])
	}
}

func TestReplaceStructuredDataAndAccessibility(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.UpsertScanning(ctx, "acme", "example.com", "https://example.com")

	structured := model.StructuredDataResult{Platform: "shopify", HasProductMarkup: true, ProductCount: 7}
	if err := s.ReplaceStructuredData(ctx, id, structured); err != nil {
		t.Fatalf("structured: %v", err)
	}
	access := model.AccessibilityResult{Reachable: true, HasLLMsTxt: true}
	if err := s.ReplaceAccessibility(ctx, id, access); err != nil {
		t.Fatalf("accessibility: %v", err)
	}

	got, err := s.GetScanByDomain(ctx, "acme", "example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StructuredData == nil || got.StructuredData.Platform != "shopify" || got.StructuredData.ProductCount != 7 {
		t.Errorf("structured data did not round trip: %+v", got.StructuredData)
	}
	if got.Accessibility == nil || !got.Accessibility.Reachable || !got.Accessibility.HasLLMsTxt {
		t.Errorf("accessibility did not round trip: %+v", got.Accessibility)
	}
}

// ─── Listing ───────────────────────────────────────────────────────────

func TestListScans_RankedByReadiness(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	for _, entry := range []struct {
		domain    string
		readiness int
	}{
		{"low.example.com", 20},
		{"high.example.com", 90},
		{"mid.example.com", 55},
	} {
		id, _ := s.UpsertScanning(ctx, "acme", entry.domain, "https://"+entry.domain)
		scores := model.ScoreBreakdown{Readiness: entry.readiness}
		if err := s.CompleteScan(ctx, id, scores, model.ModelRetail, time.Now(), 100); err != nil {
			t.Fatalf("complete %s: %v", entry.domain, err)
		}
	}

	scans, err := s.ListScans(ctx, "acme")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scans) != 3 {
		t.Fatalf("expected 3 scans, got %d", len(scans))
	}
	if scans[0].Domain != "high.example.com" || scans[2].Domain != "low.example.com" {
		t.Errorf("not ranked best first: %s, %s, %s", scans[0].Domain, scans[1].Domain, scans[2].Domain)
	}

	// Tenant isolation.
	other, err := s.ListScans(ctx, "globex")
	if err != nil {
		t.Fatalf("list other tenant: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("tenant isolation broken, got %d scans", len(other))
	}
}

// ─── Capability snapshots and drift ────────────────────────────────────

func TestManifestDrift_NoSnapshots(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.ManifestDrift(context.Background(), "acme", "example.com", model.ProtocolX402)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManifestDrift_SingleSnapshotUnchanged(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Now().UTC()
	if err := s.AppendCapabilitySnapshots(ctx, "acme", "example.com", confirmedResults(), at); err != nil {
		t.Fatalf("append: %v", err)
	}

	report, err := s.ManifestDrift(ctx, "acme", "example.com", model.ProtocolX402)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if report.Changed {
		t.Error("a single snapshot cannot have drifted")
	}
	if !report.PreviousAt.Equal(report.CurrentAt) {
		t.Errorf("single snapshot timestamps should match: %s vs %s", report.PreviousAt, report.CurrentAt)
	}
}

func TestManifestDrift_DetectsChange(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first := confirmedResults()
	if err := s.AppendCapabilitySnapshots(ctx, "acme", "example.com", first, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("append first: %v", err)
	}

	second := confirmedResults()
	second[0].Evidence.Manifest.ResourceCount = 9
	if err := s.AppendCapabilitySnapshots(ctx, "acme", "example.com", second, time.Now()); err != nil {
		t.Fatalf("append second: %v", err)
	}

	report, err := s.ManifestDrift(ctx, "acme", "example.com", model.ProtocolX402)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if !report.Changed {
		t.Fatal("resource count change not detected")
	}
	if report.Patch == "" {
		t.Error("changed report should carry a patch")
	}
	if report.Inserted == 0 && report.Deleted == 0 {
		t.Error("changed report should count churn")
	}
	if !report.CurrentAt.After(report.PreviousAt) {
		t.Errorf("snapshot ordering wrong: %s vs %s", report.PreviousAt, report.CurrentAt)
	}
}

func TestManifestDrift_UnchangedBetweenScans(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	results := confirmedResults()
	_ = s.AppendCapabilitySnapshots(ctx, "acme", "example.com", results, time.Now().Add(-time.Hour))
	_ = s.AppendCapabilitySnapshots(ctx, "acme", "example.com", results, time.Now())

	report, err := s.ManifestDrift(ctx, "acme", "example.com", model.ProtocolX402)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if report.Changed {
		t.Error("identical capabilities reported as drifted")
	}
}
