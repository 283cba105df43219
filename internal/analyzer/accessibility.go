package analyzer

import (
	"context"
	"net/http"
	"strings"

	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/webclient"
)

// AccessibilityFunc is the orchestrator-facing analyzer contract.
type AccessibilityFunc func(ctx context.Context, domain string) model.AccessibilityResult

// agentUserAgents are the crawler/agent names whose robots treatment
// matters for agentic commerce. "*" covers blanket disallows.
var agentUserAgents = []string{"gptbot", "claudebot", "anthropic-ai", "ccbot", "google-extended", "*"}

// AccessibilityAnalyzer measures how reachable a merchant site is for
// automated agents: homepage status, robots policy, llms.txt, and checkout
// friction.
type AccessibilityAnalyzer struct {
	wc     webclient.WebClient
	logger logging.Logger
}

func NewAccessibilityAnalyzer(wc webclient.WebClient, logger logging.Logger) *AccessibilityAnalyzer {
	return &AccessibilityAnalyzer{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "analyzer.accessibility"}),
	}
}

func (a *AccessibilityAnalyzer) Analyze(ctx context.Context, domain string) model.AccessibilityResult {
	var result model.AccessibilityResult
	origin := "https://" + domain

	if resp, err := a.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: origin + "/"}); err == nil {
		result.StatusCode = resp.StatusCode
		result.Reachable = resp.StatusCode >= 200 && resp.StatusCode < 400
	}

	if resp, err := a.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: origin + "/robots.txt"}); err == nil && resp.StatusCode == http.StatusOK {
		result.BlockedAgents = blockedAgents(string(resp.Body))
		result.BotsBlocked = len(result.BlockedAgents) > 0
	}

	if resp, err := a.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: origin + "/llms.txt"}); err == nil {
		result.HasLLMsTxt = resp.StatusCode == http.StatusOK
	}

	a.checkCheckout(ctx, origin, &result)
	return result
}

// checkCheckout probes common checkout paths with redirects disabled: a
// direct 200 counts as reachable, a redirect into authentication counts as
// a login wall.
func (a *AccessibilityAnalyzer) checkCheckout(ctx context.Context, origin string, result *model.AccessibilityResult) {
	for _, path := range []string{"/checkout", "/cart"} {
		resp, err := a.wc.Do(ctx, &webclient.Request{
			Method:           http.MethodGet,
			URL:              origin + path,
			DisableRedirects: true,
		})
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusOK {
			result.CheckoutReachable = true
			return
		}
		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := strings.ToLower(resp.Headers.Get("Location"))
			for _, hint := range []string{"login", "signin", "sign-in", "account", "auth"} {
				if strings.Contains(location, hint) {
					result.LoginWall = true
					return
				}
			}
		}
	}
}

// blockedAgents parses robots.txt just far enough to know which of the
// agent user agents are disallowed from the site root. Not a full robots
// parser: grouped user-agent lines followed by a "Disallow: /" is the only
// pattern that matters here.
func blockedAgents(robots string) []string {
	var blocked []string
	var currentAgents []string
	seen := make(map[string]struct{})

	flush := func(disallowRoot bool) {
		if !disallowRoot {
			return
		}
		for _, agent := range currentAgents {
			for _, watched := range agentUserAgents {
				if agent == watched {
					if _, dup := seen[agent]; !dup {
						seen[agent] = struct{}{}
						blocked = append(blocked, agent)
					}
				}
			}
		}
	}

	disallowRoot := false
	for _, line := range strings.Split(robots, "\n") {
		line = strings.TrimSpace(strings.ToLower(line))
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		switch {
		case strings.HasPrefix(line, "user-agent:"):
			if disallowRoot {
				flush(true)
				currentAgents = nil
				disallowRoot = false
			}
			currentAgents = append(currentAgents, strings.TrimSpace(strings.TrimPrefix(line, "user-agent:")))
		case strings.HasPrefix(line, "disallow:"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "disallow:"))
			if path == "/" {
				disallowRoot = true
			}
		case line == "":
			flush(disallowRoot)
			currentAgents = nil
			disallowRoot = false
		}
	}
	flush(disallowRoot)
	return blocked
}
