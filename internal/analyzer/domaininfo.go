package analyzer

import (
	"context"
	"strings"

	"github.com/likexian/whois"

	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
)

// DomainInfoFunc is the orchestrator-facing contract for the advisory
// WHOIS lookup.
type DomainInfoFunc func(ctx context.Context, domain string) *model.DomainInfo

// registeredPatterns indicate a domain IS registered. Checked before the
// availability patterns since registries phrase positives more uniformly.
var registeredPatterns = []string{
	"registrar:",
	"registrant:",
	"creation date:",
	"created:",
	"registry expiry date:",
	"name server:",
	"nameserver:",
	"domain status:",
}

var availablePatterns = []string{
	"no match for",
	"not found",
	"no entries found",
	"domain not found",
	"no data found",
	"status: free",
	"status: available",
	"no object found",
	"the queried object does not exist",
}

// DomainInfoAnalyzer does a WHOIS lookup for prospect research context.
// Its output never feeds scoring; a failed lookup returns nil.
type DomainInfoAnalyzer struct {
	logger logging.Logger
}

func NewDomainInfoAnalyzer(logger logging.Logger) *DomainInfoAnalyzer {
	return &DomainInfoAnalyzer{
		logger: logger.With(logging.Field{Key: "component", Value: "analyzer.domaininfo"}),
	}
}

func (a *DomainInfoAnalyzer) Analyze(ctx context.Context, domain string) *model.DomainInfo {
	type lookup struct {
		raw string
		err error
	}
	done := make(chan lookup, 1)

	// The whois client has no context hook; run it on the side so a slow
	// registry cannot outlive the scan deadline.
	go func() {
		raw, err := whois.Whois(domain)
		done <- lookup{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil
	case res := <-done:
		if res.err != nil {
			a.logger.Debug("whois lookup failed",
				logging.Field{Key: "domain", Value: domain},
				logging.Field{Key: "error", Value: res.err.Error()})
			return nil
		}
		return parseWhois(res.raw)
	}
}

func parseWhois(raw string) *model.DomainInfo {
	lower := strings.ToLower(raw)

	info := &model.DomainInfo{}
	for _, pattern := range registeredPatterns {
		if strings.Contains(lower, pattern) {
			info.Registered = true
			break
		}
	}
	if !info.Registered {
		for _, pattern := range availablePatterns {
			if strings.Contains(lower, pattern) {
				return info
			}
		}
		// No signal either way; treat as registered (conservative).
		info.Registered = true
	}

	info.Registrar = whoisField(raw, "registrar:")
	info.CreatedAt = whoisField(raw, "creation date:")
	if info.CreatedAt == "" {
		info.CreatedAt = whoisField(raw, "created:")
	}
	return info
}

// whoisField returns the value of the first line whose key matches,
// case-insensitively.
func whoisField(raw, key string) string {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) >= len(key) && strings.EqualFold(trimmed[:len(key)], key) {
			return strings.TrimSpace(trimmed[len(key):])
		}
	}
	return ""
}
