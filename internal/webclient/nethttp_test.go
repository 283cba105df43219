package webclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paylens/paylens/internal/testutil"
	"github.com/paylens/paylens/internal/webclient"
)

func newClient(t *testing.T, cfg webclient.Config) *webclient.NetHTTPClient {
	t.Helper()
	c, err := webclient.NewNetHTTPClient(cfg, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNetHTTPClient_UserAgentInjected(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := newClient(t, webclient.Config{UserAgent: "paylens-test/1.0"})
	if _, err := c.Do(context.Background(), &webclient.Request{URL: srv.URL}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotUA != "paylens-test/1.0" {
		t.Errorf("user agent not injected, got %q", gotUA)
	}
}

func TestNetHTTPClient_RequestHeaderWinsOverDefaultUA(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := newClient(t, webclient.Config{UserAgent: "default/1.0"})
	_, err := c.Do(context.Background(), &webclient.Request{
		URL:     srv.URL,
		Headers: http.Header{"User-Agent": []string{"override/2.0"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotUA != "override/2.0" {
		t.Errorf("explicit header must win, got %q", gotUA)
	}
}

func TestNetHTTPClient_DisableRedirects(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/checkout" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newClient(t, webclient.Config{})

	followed, err := c.Do(context.Background(), &webclient.Request{URL: srv.URL + "/checkout"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if followed.StatusCode != http.StatusOK {
		t.Errorf("redirects should be followed by default, got %d", followed.StatusCode)
	}

	raw, err := c.Do(context.Background(), &webclient.Request{URL: srv.URL + "/checkout", DisableRedirects: true})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if raw.StatusCode != http.StatusFound {
		t.Errorf("expected the raw 302, got %d", raw.StatusCode)
	}
	if loc := raw.Headers.Get("Location"); loc != "/login" {
		t.Errorf("location header lost: %q", loc)
	}
}

func TestNetHTTPClient_StatusAndBodyCaptured(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-402-Version", "1")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"x402Version":1}`))
	}))
	defer srv.Close()

	c := newClient(t, webclient.Config{})
	resp, err := c.Do(context.Background(), &webclient.Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status not captured: %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"x402Version":1}` {
		t.Errorf("body not captured: %q", resp.Body)
	}
	if resp.Headers.Get("X-402-Version") != "1" {
		t.Error("headers not captured")
	}
}

func TestNetHTTPClient_NilRequest(t *testing.T) {
	t.Parallel()

	c := newClient(t, webclient.Config{})
	if _, err := c.Do(context.Background(), nil); err == nil {
		t.Error("nil request must error")
	}
}
