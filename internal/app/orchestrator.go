package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paylens/paylens/internal/analyzer"
	"github.com/paylens/paylens/internal/classifier"
	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/probe"
	"github.com/paylens/paylens/internal/scoring"
	"github.com/paylens/paylens/internal/store"
	"github.com/paylens/paylens/internal/utils"
)

// ScanOptions describes one scan request.
type ScanOptions struct {
	TenantID string `json:"tenant_id"`

	// URL is the merchant site as supplied by the caller; it is
	// normalized before anything else happens.
	URL string `json:"url"`

	// DeclaredCategory is an optional business-category hint that feeds
	// classification.
	DeclaredCategory string `json:"declared_category,omitempty"`

	// SkipIfFresh returns the stored scan unchanged when a completed one
	// younger than the freshness window exists.
	SkipIfFresh bool `json:"skip_if_fresh,omitempty"`
}

// Orchestrator runs the scan pipeline: fan out every protocol probe plus
// the analyzers under one global deadline, classify, enrich, score,
// persist. It owns no per-scan mutable state; concurrent scans of
// different domains share nothing.
type Orchestrator struct {
	cfg        *Config
	st         store.ScanStore
	strategies []probe.Strategy

	structuredData analyzer.StructuredDataFunc
	accessibility  analyzer.AccessibilityFunc
	domainInfo     analyzer.DomainInfoFunc

	logger logging.Logger

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
}

// NewOrchestrator ties together config, store, probe strategies and the
// two analyzers. domainInfo may be nil to disable the advisory WHOIS
// lookup.
func NewOrchestrator(cfg *Config, st store.ScanStore, strategies []probe.Strategy,
	structuredData analyzer.StructuredDataFunc, accessibility analyzer.AccessibilityFunc,
	domainInfo analyzer.DomainInfoFunc, logger logging.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		cfg:            cfg,
		st:             st,
		strategies:     strategies,
		structuredData: structuredData,
		accessibility:  accessibility,
		domainInfo:     domainInfo,
		logger:         logger,
	}
}

// bundle is everything the concurrent fan-out produces.
type bundle struct {
	probes     []model.ProbeResult
	structured model.StructuredDataResult
	access     model.AccessibilityResult
	info       *model.DomainInfo
}

// Scan runs one full scan. It never returns an error: every failure mode
// ends in a MerchantScan with scan_status=failed and a human-readable
// message.
func (o *Orchestrator) Scan(ctx context.Context, opts ScanOptions) *model.MerchantScan {
	domain := utils.NormalizeDomain(opts.URL)
	targetURL := "https://" + domain
	start := time.Now()

	// Freshness short-circuit: advisory only. Two concurrent scans of the
	// same tenant+domain can both pass this check and both do full work;
	// the later persist wins. Accepted race.
	if opts.SkipIfFresh {
		if existing, err := o.st.GetScanByDomain(ctx, opts.TenantID, domain); err == nil {
			if existing.Status == model.ScanCompleted &&
				time.Since(existing.LastScannedAt) < o.cfg.Scan.FreshnessWindow {
				o.logger.Info("scan is fresh, skipping",
					logging.Field{Key: "tenant_id", Value: opts.TenantID},
					logging.Field{Key: "domain", Value: domain})
				return existing
			}
		}
	}

	scanID, err := o.st.UpsertScanning(ctx, opts.TenantID, domain, targetURL)
	if err != nil {
		// Could not even claim a scan row; return an unpersisted failure.
		o.logger.Error("upsert scan failed",
			logging.Field{Key: "domain", Value: domain},
			logging.Field{Key: "error", Value: err.Error()})
		return &model.MerchantScan{
			TenantID:       opts.TenantID,
			Domain:         domain,
			URL:            targetURL,
			Status:         model.ScanFailed,
			ErrorMessage:   fmt.Sprintf("claiming scan record: %v", err),
			ScanDurationMs: time.Since(start).Milliseconds(),
		}
	}

	o.logger.Info("scan started",
		logging.Field{Key: "scan_id", Value: scanID},
		logging.Field{Key: "tenant_id", Value: opts.TenantID},
		logging.Field{Key: "domain", Value: domain})

	res, err := o.runBundle(ctx, domain)
	if err != nil {
		return o.failScan(scanID, opts, domain, targetURL, err.Error(), start)
	}

	businessModel := classifier.Classify(classifier.Signals{
		DeclaredCategory:   opts.DeclaredCategory,
		Structured:         res.structured,
		Accessibility:      res.access,
		ConfirmedProtocols: classifier.ConfirmedProtocols(res.probes),
	})

	enriched := classifier.EnrichEligibility(res.probes, res.access, res.structured)
	enriched = classifier.FilterByBusinessModel(enriched, businessModel)

	scores := scoring.Calculate(enriched, res.structured, res.access)
	scannedAt := time.Now().UTC()
	duration := time.Since(start).Milliseconds()

	if err := o.persist(ctx, scanID, opts.TenantID, domain, enriched, res, scores, businessModel, scannedAt, duration); err != nil {
		return o.failScan(scanID, opts, domain, targetURL, err.Error(), start)
	}

	o.logger.Info("scan completed",
		logging.Field{Key: "scan_id", Value: scanID},
		logging.Field{Key: "domain", Value: domain},
		logging.Field{Key: "readiness_score", Value: scores.Readiness},
		logging.Field{Key: "business_model", Value: string(businessModel)},
		logging.Field{Key: "duration_ms", Value: duration})

	return &model.MerchantScan{
		ID:              scanID,
		TenantID:        opts.TenantID,
		Domain:          domain,
		URL:             targetURL,
		Status:          model.ScanCompleted,
		Scores:          scores,
		BusinessModel:   businessModel,
		LastScannedAt:   scannedAt,
		ScanDurationMs:  duration,
		ProtocolResults: enriched,
		StructuredData:  &res.structured,
		Accessibility:   &res.access,
		DomainInfo:      res.info,
	}
}

// runBundle fans out probes and analyzers and races the whole bundle
// against the global deadline. On deadline the bundle context is
// cancelled so in-flight work tears down; partial results are discarded.
func (o *Orchestrator) runBundle(ctx context.Context, domain string) (*bundle, error) {
	bundleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan *bundle, 1)
	go func() {
		var wg sync.WaitGroup
		res := &bundle{probes: make([]model.ProbeResult, len(o.strategies))}

		for i, strategy := range o.strategies {
			wg.Add(1)
			go func(i int, strategy probe.Strategy) {
				defer wg.Done()
				res.probes[i] = probe.WithTimeout(bundleCtx, strategy, domain, o.cfg.Scan.ProbeTimeout)
			}(i, strategy)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			res.structured = o.structuredData(bundleCtx, domain)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			res.access = o.accessibility(bundleCtx, domain)
		}()

		if o.domainInfo != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res.info = o.domainInfo(bundleCtx, domain)
			}()
		}

		wg.Wait()
		done <- res
	}()

	timer := time.NewTimer(o.cfg.Scan.GlobalTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res, nil
	case <-timer.C:
		return nil, fmt.Errorf("scan exceeded global deadline of %s", o.cfg.Scan.GlobalTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("scan cancelled: %v", ctx.Err())
	}
}

// persist replaces all child rows and finalizes the scan row. Store errors
// propagate so the caller converts them into the failure path.
func (o *Orchestrator) persist(ctx context.Context, scanID, tenantID, domain string,
	results []model.ProbeResult, res *bundle, scores model.ScoreBreakdown,
	businessModel model.BusinessModel, scannedAt time.Time, durationMs int64) error {

	if err := o.st.ReplaceProtocolResults(ctx, scanID, results); err != nil {
		return fmt.Errorf("persisting protocol results: %w", err)
	}
	if err := o.st.ReplaceStructuredData(ctx, scanID, res.structured); err != nil {
		return fmt.Errorf("persisting structured data: %w", err)
	}
	if err := o.st.ReplaceAccessibility(ctx, scanID, res.access); err != nil {
		return fmt.Errorf("persisting accessibility: %w", err)
	}
	if err := o.st.AppendCapabilitySnapshots(ctx, tenantID, domain, results, scannedAt); err != nil {
		return fmt.Errorf("persisting capability snapshots: %w", err)
	}
	if err := o.st.CompleteScan(ctx, scanID, scores, businessModel, scannedAt, durationMs); err != nil {
		return fmt.Errorf("finalizing scan: %w", err)
	}
	return nil
}

// failScan records the failure and composes the failed scan object. The
// update runs on a fresh context: the scan context may already be dead,
// and a failed scan that cannot be recorded should still be reported to
// the caller.
func (o *Orchestrator) failScan(scanID string, opts ScanOptions, domain, targetURL, message string, start time.Time) *model.MerchantScan {
	duration := time.Since(start).Milliseconds()

	failCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.st.FailScan(failCtx, scanID, message, duration); err != nil {
		o.logger.Error("recording scan failure",
			logging.Field{Key: "scan_id", Value: scanID},
			logging.Field{Key: "error", Value: err.Error()})
	}

	o.logger.Warn("scan failed",
		logging.Field{Key: "scan_id", Value: scanID},
		logging.Field{Key: "domain", Value: domain},
		logging.Field{Key: "error", Value: message})

	return &model.MerchantScan{
		ID:             scanID,
		TenantID:       opts.TenantID,
		Domain:         domain,
		URL:            targetURL,
		Status:         model.ScanFailed,
		ErrorMessage:   message,
		ScanDurationMs: duration,
	}
}

// ListScans proxies the store's ranked listing.
func (o *Orchestrator) ListScans(ctx context.Context, tenantID string) ([]model.MerchantScan, error) {
	return o.st.ListScans(ctx, tenantID)
}

// GetScan loads one scan with composed children.
func (o *Orchestrator) GetScan(ctx context.Context, tenantID, rawDomain string) (*model.MerchantScan, error) {
	return o.st.GetScanByDomain(ctx, tenantID, utils.NormalizeDomain(rawDomain))
}

// ManifestDrift proxies the store's capability drift report.
func (o *Orchestrator) ManifestDrift(ctx context.Context, tenantID, rawDomain string, protocol model.Protocol) (*store.DriftReport, error) {
	return o.st.ManifestDrift(ctx, tenantID, utils.NormalizeDomain(rawDomain), protocol)
}
