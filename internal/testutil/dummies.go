// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/paylens/paylens/internal/analyzer"
	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/store"
	"github.com/paylens/paylens/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyResponse is one scripted HTTP exchange.
type DummyResponse struct {
	StatusCode int
	Body       string
	Headers    http.Header
}

// DummyWebClient implements webclient.WebClient with a script keyed by
// URL. Unscripted URLs get a plain 404 so probe fallback chains walk the
// way they would against a site without the probed surface. Set
// FailURLs[url] = true to force a transport error for a specific URL.
type DummyWebClient struct {
	Responses     map[string]DummyResponse
	FailURLs      map[string]bool
	ResponseDelay time.Duration

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, &errString{"dummy fetch fail for " + req.URL}
	}

	if scripted, ok := d.Responses[req.URL]; ok {
		status := scripted.StatusCode
		if status == 0 {
			status = 200
		}
		return &webclient.Response{
			Request:    req,
			Headers:    scripted.Headers,
			Body:       []byte(scripted.Body),
			StatusCode: status,
			FetchedAt:  time.Now(),
		}, nil
	}

	return &webclient.Response{
		Request:    req,
		Body:       []byte("not found"),
		StatusCode: 404,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Close() error { return nil }

// RequestCount returns how many requests hit URLs containing substr.
func (d *DummyWebClient) RequestCount(substr string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, req := range d.Requests {
		if strings.Contains(req.URL, substr) {
			n++
		}
	}
	return n
}

// ─── Probe strategy ────────────────────────────────────────────────────

// DummyStrategy implements probe.Strategy with a canned result.
type DummyStrategy struct {
	Proto  model.Protocol
	Result model.ProbeResult
	Delay  time.Duration

	mu    sync.Mutex
	Calls int
}

func (d *DummyStrategy) Protocol() model.Protocol { return d.Proto }

func (d *DummyStrategy) Probe(ctx context.Context, domain string) model.ProbeResult {
	d.mu.Lock()
	d.Calls++
	d.mu.Unlock()

	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return model.NotDetected(d.Proto)
		}
	}
	res := d.Result
	if res.Protocol == "" {
		res = model.NotDetected(d.Proto)
	}
	return res
}

func (d *DummyStrategy) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Calls
}

// ─── Analyzers ─────────────────────────────────────────────────────────

// StaticStructuredData returns an analyzer func with a fixed result.
func StaticStructuredData(res model.StructuredDataResult) analyzer.StructuredDataFunc {
	return func(_ context.Context, _ string) model.StructuredDataResult { return res }
}

// StaticAccessibility returns an analyzer func with a fixed result.
func StaticAccessibility(res model.AccessibilityResult) analyzer.AccessibilityFunc {
	return func(_ context.Context, _ string) model.AccessibilityResult { return res }
}

// StaticDomainInfo returns an analyzer func with a fixed result.
func StaticDomainInfo(info *model.DomainInfo) analyzer.DomainInfoFunc {
	return func(_ context.Context, _ string) *model.DomainInfo { return info }
}

// ─── ScanStore ─────────────────────────────────────────────────────────

type storedScan struct {
	scan      model.MerchantScan
	results   []model.ProbeResult
	snapshots int
}

// DummyStore implements store.ScanStore in memory. It records every call
// so orchestrator tests can assert on the persistence sequence, and the
// Err* fields inject failures per operation.
type DummyStore struct {
	mu    sync.Mutex
	seq   int
	scans map[string]*storedScan // scanID -> scan
	byKey map[string]string      // tenant|domain -> scanID

	Upserts           int
	Completes         int
	Fails             int
	ProtocolReplaces  int
	StructuredWrites  int
	AccessWrites      int
	SnapshotAppends   int
	LastProtocolCount int

	ErrUpsert    error
	ErrComplete  error
	ErrReplace   error
	ErrSnapshots error
}

func NewDummyStore() *DummyStore {
	return &DummyStore{
		scans: make(map[string]*storedScan),
		byKey: make(map[string]string),
	}
}

// Seed installs an existing scan, for freshness tests.
func (d *DummyStore) Seed(scan model.MerchantScan) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := scan.ID
	if id == "" {
		id = "seed-" + scan.Domain
	}
	stored := scan
	stored.ID = id
	d.scans[id] = &storedScan{scan: stored}
	d.byKey[scan.TenantID+"|"+scan.Domain] = id
}

func (d *DummyStore) UpsertScanning(_ context.Context, tenantID, domain, url string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Upserts++
	if d.ErrUpsert != nil {
		return "", d.ErrUpsert
	}
	key := tenantID + "|" + domain
	if id, ok := d.byKey[key]; ok {
		d.scans[id].scan.Status = model.ScanScanning
		return id, nil
	}
	d.seq++
	id := "scan-" + domain
	d.scans[id] = &storedScan{scan: model.MerchantScan{
		ID:       id,
		TenantID: tenantID,
		Domain:   domain,
		URL:      url,
		Status:   model.ScanScanning,
	}}
	d.byKey[key] = id
	return id, nil
}

func (d *DummyStore) CompleteScan(_ context.Context, scanID string, scores model.ScoreBreakdown, businessModel model.BusinessModel, scannedAt time.Time, durationMs int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Completes++
	if d.ErrComplete != nil {
		return d.ErrComplete
	}
	if s, ok := d.scans[scanID]; ok {
		s.scan.Status = model.ScanCompleted
		s.scan.Scores = scores
		s.scan.BusinessModel = businessModel
		s.scan.LastScannedAt = scannedAt
		s.scan.ScanDurationMs = durationMs
	}
	return nil
}

func (d *DummyStore) FailScan(_ context.Context, scanID, errorMessage string, durationMs int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Fails++
	if s, ok := d.scans[scanID]; ok {
		s.scan.Status = model.ScanFailed
		s.scan.ErrorMessage = errorMessage
		s.scan.ScanDurationMs = durationMs
	}
	return nil
}

func (d *DummyStore) GetScanByDomain(_ context.Context, tenantID, domain string) (*model.MerchantScan, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.byKey[tenantID+"|"+domain]
	if !ok {
		return nil, store.ErrNotFound
	}
	scan := d.scans[id].scan
	scan.ProtocolResults = append([]model.ProbeResult(nil), d.scans[id].results...)
	return &scan, nil
}

func (d *DummyStore) ReplaceProtocolResults(_ context.Context, scanID string, results []model.ProbeResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ProtocolReplaces++
	d.LastProtocolCount = len(results)
	if d.ErrReplace != nil {
		return d.ErrReplace
	}
	if s, ok := d.scans[scanID]; ok {
		s.results = append([]model.ProbeResult(nil), results...)
	}
	return nil
}

func (d *DummyStore) ReplaceStructuredData(_ context.Context, scanID string, data model.StructuredDataResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.StructuredWrites++
	if s, ok := d.scans[scanID]; ok {
		s.scan.StructuredData = &data
	}
	return nil
}

func (d *DummyStore) ReplaceAccessibility(_ context.Context, scanID string, data model.AccessibilityResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.AccessWrites++
	if s, ok := d.scans[scanID]; ok {
		s.scan.Accessibility = &data
	}
	return nil
}

func (d *DummyStore) AppendCapabilitySnapshots(_ context.Context, tenantID, domain string, results []model.ProbeResult, _ time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.SnapshotAppends++
	if d.ErrSnapshots != nil {
		return d.ErrSnapshots
	}
	if id, ok := d.byKey[tenantID+"|"+domain]; ok {
		d.scans[id].snapshots += len(results)
	}
	return nil
}

func (d *DummyStore) ManifestDrift(context.Context, string, string, model.Protocol) (*store.DriftReport, error) {
	return nil, store.ErrNotFound
}

func (d *DummyStore) ListScans(_ context.Context, tenantID string) ([]model.MerchantScan, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.MerchantScan
	for _, s := range d.scans {
		if s.scan.TenantID == tenantID {
			out = append(out, s.scan)
		}
	}
	return out, nil
}

func (d *DummyStore) Close() error { return nil }

// SnapshotCount returns how many capability snapshots were appended for
// tenant+domain.
func (d *DummyStore) SnapshotCount(tenantID, domain string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.byKey[tenantID+"|"+domain]; ok {
		return d.scans[id].snapshots
	}
	return 0
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
