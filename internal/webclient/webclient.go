package webclient

import (
	"context"
	"net/http"
	"time"
)

// Request is a backend-agnostic HTTP request description.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte

	// DisableRedirects makes the client return the first response as-is
	// instead of following 3xx. Path probing depends on this: a redirect
	// to a generic 200 page must not mask the probed status code.
	DisableRedirects bool
}

// Response is the captured result of one request.
type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// WebClient is the outbound HTTP contract every probe and analyzer uses.
// Implementations apply the per-request timeout and user agent themselves.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Close() error
}

// Config controls webclient construction.
type Config struct {
	// Timeout bounds one request end-to-end (dial through body read).
	Timeout time.Duration

	// UserAgent is set on every request unless the request overrides it.
	UserAgent string
}
