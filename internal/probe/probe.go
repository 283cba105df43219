// Package probe implements the protocol detection strategies: pluggable
// units that decide whether a merchant domain exposes one agentic-commerce
// payment protocol, and with what confidence and capability metadata.
//
// Every strategy is a strict fallback chain (registry -> manifest -> path
// probing) evaluated in order, first sufficient evidence wins. Network and
// parse failures inside a single step degrade to "try the next step"; a
// strategy never returns an error and never fails the scan.
package probe

import (
	"context"
	"time"

	"github.com/paylens/paylens/internal/model"
)

// Strategy is one protocol's detector.
type Strategy interface {
	// Protocol identifies which protocol this strategy detects.
	Protocol() model.Protocol

	// Probe runs the fallback chain against a normalized domain. It
	// blocks until a conclusion is reached or ctx is cancelled, and by
	// contract never returns an error: failures degrade to not_detected.
	Probe(ctx context.Context, domain string) model.ProbeResult
}

// WithTimeout bounds a strategy invocation. If the strategy does not
// conclude within timeout, the canned not_detected/high fallback is
// returned and the probe's context is cancelled so in-flight requests are
// torn down rather than leaked.
//
// The timeout must be configured strictly greater than the webclient's
// per-request timeout so at least one full probe step can complete.
func WithTimeout(ctx context.Context, s Strategy, domain string, timeout time.Duration) model.ProbeResult {
	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resCh := make(chan model.ProbeResult, 1)
	go func() {
		resCh <- s.Probe(probeCtx, domain)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resCh:
		return res
	case <-timer.C:
		return model.NotDetected(s.Protocol())
	case <-ctx.Done():
		return model.NotDetected(s.Protocol())
	}
}

// step is one evidence-producing link of a fallback chain. It reports the
// positive result and true on a match; (zero, false) means "no match,
// continue". Errors are handled inside the step, never returned.
type step func(ctx context.Context, domain string) (model.ProbeResult, bool)

// runChain evaluates steps in order with short-circuiting composition and
// falls back to the canned negative result when every step misses. The
// negative carries high confidence: the exhaustive search space was
// covered.
func runChain(ctx context.Context, p model.Protocol, domain string, steps []step) model.ProbeResult {
	for _, st := range steps {
		if ctx.Err() != nil {
			break
		}
		if res, ok := st(ctx, domain); ok {
			return res
		}
	}
	return model.NotDetected(p)
}
