package analyzer_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/paylens/paylens/internal/analyzer"
	"github.com/paylens/paylens/internal/testutil"
)

func TestAccessibility_OpenSite(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{Responses: map[string]testutil.DummyResponse{
		"https://example.com/":         {Body: "<html>home</html>"},
		"https://example.com/llms.txt": {Body: "# example.com"},
		"https://example.com/checkout": {Body: "<html>checkout</html>"},
	}}
	a := analyzer.NewAccessibilityAnalyzer(wc, &testutil.DummyLogger{})

	res := a.Analyze(context.Background(), "example.com")

	if !res.Reachable || res.StatusCode != http.StatusOK {
		t.Errorf("expected reachable site, got %+v", res)
	}
	if res.BotsBlocked {
		t.Error("no robots.txt means nothing is blocked")
	}
	if !res.HasLLMsTxt {
		t.Error("llms.txt not detected")
	}
	if !res.CheckoutReachable {
		t.Error("open checkout not detected")
	}
	if res.LoginWall {
		t.Error("no login wall on an open checkout")
	}
}

func TestAccessibility_AgentsBlockedByRobots(t *testing.T) {
	t.Parallel()

	robots := `User-agent: GPTBot
User-agent: ClaudeBot
Disallow: /

User-agent: Googlebot
Disallow: /private
`
	wc := &testutil.DummyWebClient{Responses: map[string]testutil.DummyResponse{
		"https://example.com/":           {Body: "<html></html>"},
		"https://example.com/robots.txt": {Body: robots},
	}}
	a := analyzer.NewAccessibilityAnalyzer(wc, &testutil.DummyLogger{})

	res := a.Analyze(context.Background(), "example.com")

	if !res.BotsBlocked {
		t.Fatal("root disallow for agent bots not detected")
	}
	if len(res.BlockedAgents) != 2 {
		t.Errorf("expected gptbot and claudebot blocked, got %v", res.BlockedAgents)
	}
	for _, agent := range res.BlockedAgents {
		if agent != "gptbot" && agent != "claudebot" {
			t.Errorf("unexpected blocked agent %q", agent)
		}
	}
}

func TestAccessibility_BlanketDisallow(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{Responses: map[string]testutil.DummyResponse{
		"https://example.com/":           {Body: "<html></html>"},
		"https://example.com/robots.txt": {Body: "User-agent: *\nDisallow: /\n"},
	}}
	a := analyzer.NewAccessibilityAnalyzer(wc, &testutil.DummyLogger{})

	res := a.Analyze(context.Background(), "example.com")

	if !res.BotsBlocked || len(res.BlockedAgents) != 1 || res.BlockedAgents[0] != "*" {
		t.Errorf("blanket disallow not detected: %+v", res)
	}
}

func TestAccessibility_LoginWallOnCheckoutRedirect(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{Responses: map[string]testutil.DummyResponse{
		"https://example.com/": {Body: "<html></html>"},
		"https://example.com/checkout": {
			StatusCode: http.StatusFound,
			Headers:    http.Header{"Location": []string{"https://example.com/account/login?return=/checkout"}},
		},
	}}
	a := analyzer.NewAccessibilityAnalyzer(wc, &testutil.DummyLogger{})

	res := a.Analyze(context.Background(), "example.com")

	if res.CheckoutReachable {
		t.Error("redirected checkout is not directly reachable")
	}
	if !res.LoginWall {
		t.Error("login redirect not flagged as a login wall")
	}
}

func TestDomainInfo_CancelledContextReturnsNil(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := analyzer.NewDomainInfoAnalyzer(&testutil.DummyLogger{})
	if info := a.Analyze(ctx, "example.com"); info != nil {
		t.Errorf("cancelled lookup must return nil, got %+v", info)
	}
}

func TestAccessibility_UnreachableSite(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{FailURLs: map[string]bool{
		"https://down.example.com/":           true,
		"https://down.example.com/robots.txt": true,
		"https://down.example.com/llms.txt":   true,
		"https://down.example.com/checkout":   true,
		"https://down.example.com/cart":       true,
	}}
	a := analyzer.NewAccessibilityAnalyzer(wc, &testutil.DummyLogger{})

	res := a.Analyze(context.Background(), "down.example.com")

	if res.Reachable || res.CheckoutReachable || res.HasLLMsTxt {
		t.Errorf("unreachable site should yield a negative result, got %+v", res)
	}
}
