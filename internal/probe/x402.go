package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/utils"
	"github.com/paylens/paylens/internal/webclient"
)

// x402WellKnownPath is the manifest location the protocol reserves.
const x402WellKnownPath = "/.well-known/x402.json"

// x402ProbePaths are the common API path suffixes tried during direct
// probing, in order. The first origin+path combination to match wins.
var x402ProbePaths = []string{"/api", "/api/v1", "/api/paid", "/paid", "/premium", "/x402"}

// X402Strategy detects the pay-per-request protocol via its three evidence
// sources: the public discovery registry, the well-known manifest, and the
// reserved HTTP 402 status on common API paths.
type X402Strategy struct {
	wc     webclient.WebClient
	cfg    model.ScanConfig
	logger logging.Logger
}

func NewX402Strategy(wc webclient.WebClient, cfg model.ScanConfig, logger logging.Logger) *X402Strategy {
	return &X402Strategy{
		wc:     wc,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "probe.x402"}),
	}
}

func (s *X402Strategy) Protocol() model.Protocol { return model.ProtocolX402 }

func (s *X402Strategy) Probe(ctx context.Context, domain string) model.ProbeResult {
	return runChain(ctx, model.ProtocolX402, domain, []step{
		s.checkRegistry,
		s.checkManifests,
		s.probePaths,
	})
}

// ─── Step 1: registry ───────────────────────────────────────────────────

type registryPage struct {
	Items      []registryItem `json:"items"`
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
}

type registryItem struct {
	Resource    string              `json:"resource"`
	X402Version int                 `json:"x402Version,omitempty"`
	Description string              `json:"description,omitempty"`
	Accepts     []model.AcceptEntry `json:"accepts,omitempty"`
}

// checkRegistry queries one page of the discovery registry and filters
// client-side for resources whose hostname equals the domain or is a
// subdomain of it. Any match confirms the protocol outright.
func (s *X402Strategy) checkRegistry(ctx context.Context, domain string) (model.ProbeResult, bool) {
	start := time.Now()

	resp, err := s.wc.Do(ctx, &webclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s?limit=100&offset=0", s.cfg.RegistryURL),
	})
	if err != nil || resp.StatusCode != http.StatusOK {
		return model.ProbeResult{}, false
	}

	var page registryPage
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return model.ProbeResult{}, false
	}

	var matches []registryItem
	for _, item := range page.Items {
		u, err := url.Parse(item.Resource)
		if err != nil {
			continue
		}
		if utils.HostMatchesDomain(u.Hostname(), domain) {
			matches = append(matches, item)
		}
	}
	if len(matches) == 0 {
		return model.ProbeResult{}, false
	}

	ev := &model.RegistryEvidence{MatchCount: len(matches)}
	networks := make(map[string]struct{})
	for _, item := range matches {
		sample := model.ResourceSample{
			URL:         item.Resource,
			Description: item.Description,
		}
		for _, accept := range item.Accepts {
			if sample.Price == "" {
				sample.Price = accept.MaxAmountRequired
				sample.Currency = accept.Asset
				sample.Network = accept.Network
			}
			if accept.Network != "" {
				networks[accept.Network] = struct{}{}
			}
		}
		if len(ev.Samples) < maxManifestSamples {
			ev.Samples = append(ev.Samples, sample)
		}
	}
	for network := range networks {
		ev.Networks = append(ev.Networks, network)
	}
	sort.Strings(ev.Networks)

	s.logger.Debug("registry match",
		logging.Field{Key: "domain", Value: domain},
		logging.Field{Key: "matches", Value: len(matches)})

	return model.ProbeResult{
		Protocol:        model.ProtocolX402,
		Status:          model.StatusConfirmed,
		Confidence:      model.ConfidenceHigh,
		DetectionMethod: "registry",
		EndpointURL:     matches[0].Resource,
		Evidence:        model.Evidence{Registry: ev},
		ResponseTimeMs:  time.Since(start).Milliseconds(),
	}, true
}

// ─── Step 2: well-known manifest ────────────────────────────────────────

// checkManifests fetches the well-known manifest from the domain and its
// common API subdomains, in strict sequential order. First qualifying
// origin wins.
func (s *X402Strategy) checkManifests(ctx context.Context, domain string) (model.ProbeResult, bool) {
	for _, origin := range utils.CandidateOrigins(domain) {
		if ctx.Err() != nil {
			return model.ProbeResult{}, false
		}

		start := time.Now()
		manifestURL := origin + x402WellKnownPath
		resp, err := s.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: manifestURL})
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}

		ev, ok := parseManifest(resp.Body, x402ManifestSignature)
		if !ok {
			continue
		}

		s.logger.Debug("manifest match",
			logging.Field{Key: "domain", Value: domain},
			logging.Field{Key: "url", Value: manifestURL})

		return model.ProbeResult{
			Protocol:        model.ProtocolX402,
			Status:          model.StatusConfirmed,
			Confidence:      model.ConfidenceHigh,
			DetectionMethod: ".well-known/x402.json manifest",
			EndpointURL:     manifestURL,
			Evidence:        model.Evidence{Manifest: ev},
			ResponseTimeMs:  time.Since(start).Milliseconds(),
		}, true
	}
	return model.ProbeResult{}, false
}

// ─── Step 3: direct path probing ────────────────────────────────────────

// probePaths issues redirect-disabled requests against common API paths.
// The reserved 402 status is definitive; a 200 is accepted only when its
// JSON body carries the protocol version or an accepts-list (providers who
// signal on the adjacent status code).
func (s *X402Strategy) probePaths(ctx context.Context, domain string) (model.ProbeResult, bool) {
	for _, origin := range utils.CandidateOrigins(domain) {
		for _, path := range x402ProbePaths {
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

			ev, ok := x402ResponseEvidence(resp)
			if !ok {
				continue
			}

			s.logger.Debug("path probe match",
				logging.Field{Key: "domain", Value: domain},
				logging.Field{Key: "url", Value: probeURL},
				logging.Field{Key: "status_code", Value: resp.StatusCode})

			method := "402 status code"
			if resp.StatusCode == http.StatusOK {
				method = "x402 response body"
			}

			return model.ProbeResult{
				Protocol:        model.ProtocolX402,
				Status:          model.StatusConfirmed,
				Confidence:      model.ConfidenceHigh,
				DetectionMethod: method,
				EndpointURL:     probeURL,
				Evidence:        model.Evidence{Header: ev},
				ResponseTimeMs:  time.Since(start).Milliseconds(),
				IsFunctional:    resp.StatusCode == http.StatusPaymentRequired,
			}, true
		}
	}
	return model.ProbeResult{}, false
}

// x402ResponseEvidence decides whether one probed response confirms the
// protocol, and extracts capabilities: headers first, enriched by body
// fields when the body parses as JSON.
func x402ResponseEvidence(resp *webclient.Response) (*model.HeaderEvidence, bool) {
	ev := &model.HeaderEvidence{StatusCode: resp.StatusCode}
	for _, name := range []string{"X-Payment", "X-402-Version", "X-402-Accepts", "WWW-Authenticate"} {
		if resp.Headers.Get(name) != "" {
			ev.Headers = append(ev.Headers, name)
		}
	}

	var body struct {
		X402Version int                 `json:"x402Version"`
		Accepts     []model.AcceptEntry `json:"accepts"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		ev.Version = body.X402Version
		ev.Accepts = body.Accepts
	}

	switch resp.StatusCode {
	case http.StatusPaymentRequired:
		// The reserved status code is definitive on its own.
		return ev, true
	case http.StatusOK:
		if ev.Version != 0 || len(ev.Accepts) > 0 {
			return ev, true
		}
	}
	return nil, false
}
