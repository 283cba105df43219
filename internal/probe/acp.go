package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/utils"
	"github.com/paylens/paylens/internal/webclient"
)

// acpWellKnownPaths are tried in order; the short alias came later and a
// few early adopters only serve it.
var acpWellKnownPaths = []string{
	"/.well-known/agentic-commerce.json",
	"/.well-known/acp.json",
}

// acpProbePaths are checkout endpoints that signal hosted agentic checkout
// via the ACP-Version response header.
var acpProbePaths = []string{"/checkout", "/api/checkout", "/cart/checkout"}

// ACPStrategy detects the hosted agentic checkout protocol. Same chain
// shape as x402 with different signatures; there is no third-party
// discovery registry for ACP yet, so the chain starts at the manifest.
type ACPStrategy struct {
	wc     webclient.WebClient
	cfg    model.ScanConfig
	logger logging.Logger
}

func NewACPStrategy(wc webclient.WebClient, cfg model.ScanConfig, logger logging.Logger) *ACPStrategy {
	return &ACPStrategy{
		wc:     wc,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "probe.acp"}),
	}
}

func (s *ACPStrategy) Protocol() model.Protocol { return model.ProtocolACP }

func (s *ACPStrategy) Probe(ctx context.Context, domain string) model.ProbeResult {
	return runChain(ctx, model.ProtocolACP, domain, []step{
		s.checkManifests,
		s.probePaths,
	})
}

func (s *ACPStrategy) checkManifests(ctx context.Context, domain string) (model.ProbeResult, bool) {
	for _, origin := range utils.CandidateOrigins(domain) {
		for _, path := range acpWellKnownPaths {
			if ctx.Err() != nil {
				return model.ProbeResult{}, false
			}

			start := time.Now()
			manifestURL := origin + path
			resp, err := s.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: manifestURL})
			if err != nil || resp.StatusCode != http.StatusOK {
				continue
			}

			ev, ok := parseManifest(resp.Body, acpManifestSignature)
			if !ok {
				continue
			}

			s.logger.Debug("manifest match",
				logging.Field{Key: "domain", Value: domain},
				logging.Field{Key: "url", Value: manifestURL})

			return model.ProbeResult{
				Protocol:        model.ProtocolACP,
				Status:          model.StatusConfirmed,
				Confidence:      model.ConfidenceHigh,
				DetectionMethod: path[1:] + " manifest",
				EndpointURL:     manifestURL,
				Evidence:        model.Evidence{Manifest: ev},
				ResponseTimeMs:  time.Since(start).Milliseconds(),
			}, true
		}
	}
	return model.ProbeResult{}, false
}

func (s *ACPStrategy) probePaths(ctx context.Context, domain string) (model.ProbeResult, bool) {
	for _, origin := range utils.CandidateOrigins(domain) {
		for _, path := range acpProbePaths {
			if ctx.Err() != nil {
				return model.ProbeResult{}, false
			}

			start := time.Now()
			probeURL := origin + path
			resp, err := s.wc.Do(ctx, &webclient.Request{
				Method:           http.MethodGet,
				URL:              probeURL,
				DisableRedirects: true,
			})
			if err != nil {
				continue
			}

			ev, ok := acpResponseEvidence(resp)
			if !ok {
				continue
			}

			s.logger.Debug("path probe match",
				logging.Field{Key: "domain", Value: domain},
				logging.Field{Key: "url", Value: probeURL})

			return model.ProbeResult{
				Protocol:        model.ProtocolACP,
				Status:          model.StatusConfirmed,
				Confidence:      model.ConfidenceHigh,
				DetectionMethod: "ACP-Version header",
				EndpointURL:     probeURL,
				Evidence:        model.Evidence{Header: ev},
				ResponseTimeMs:  time.Since(start).Milliseconds(),
				IsFunctional:    true,
			}, true
		}
	}
	return model.ProbeResult{}, false
}

// acpResponseEvidence accepts any response carrying the ACP-Version
// header, or a JSON body declaring acpVersion.
func acpResponseEvidence(resp *webclient.Response) (*model.HeaderEvidence, bool) {
	ev := &model.HeaderEvidence{StatusCode: resp.StatusCode}
	if resp.Headers.Get("ACP-Version") != "" {
		ev.Headers = append(ev.Headers, "ACP-Version")
	}

	var body struct {
		ACPVersion int `json:"acpVersion"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		ev.Version = body.ACPVersion
	}

	if len(ev.Headers) > 0 || ev.Version != 0 {
		return ev, true
	}
	return nil, false
}
