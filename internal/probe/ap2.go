package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/utils"
	"github.com/paylens/paylens/internal/webclient"
)

const ap2WellKnownPath = "/.well-known/ap2.json"

// AP2Strategy detects the agent payments mandate protocol. The ecosystem
// only signals via the well-known manifest today, so this is a single-step
// chain; a manifest match earns medium confidence because AP2 manifests
// are frequently published speculatively ahead of a live deployment.
type AP2Strategy struct {
	wc     webclient.WebClient
	cfg    model.ScanConfig
	logger logging.Logger
}

func NewAP2Strategy(wc webclient.WebClient, cfg model.ScanConfig, logger logging.Logger) *AP2Strategy {
	return &AP2Strategy{
		wc:     wc,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "probe.ap2"}),
	}
}

func (s *AP2Strategy) Protocol() model.Protocol { return model.ProtocolAP2 }

func (s *AP2Strategy) Probe(ctx context.Context, domain string) model.ProbeResult {
	return runChain(ctx, model.ProtocolAP2, domain, []step{
		s.checkManifests,
	})
}

func (s *AP2Strategy) checkManifests(ctx context.Context, domain string) (model.ProbeResult, bool) {
	for _, origin := range utils.CandidateOrigins(domain) {
		if ctx.Err() != nil {
			return model.ProbeResult{}, false
		}

		start := time.Now()
		manifestURL := origin + ap2WellKnownPath
		resp, err := s.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: manifestURL})
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}

		ev, ok := parseManifest(resp.Body, ap2ManifestSignature)
		if !ok {
			continue
		}

		s.logger.Debug("manifest match",
			logging.Field{Key: "domain", Value: domain},
			logging.Field{Key: "url", Value: manifestURL})

		return model.ProbeResult{
			Protocol:        model.ProtocolAP2,
			Status:          model.StatusConfirmed,
			Confidence:      model.ConfidenceMedium,
			DetectionMethod: ".well-known/ap2.json manifest",
			EndpointURL:     manifestURL,
			Evidence:        model.Evidence{Manifest: ev},
			ResponseTimeMs:  time.Since(start).Milliseconds(),
		}, true
	}
	return model.ProbeResult{}, false
}
