package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProbe issues a GET against a URL and reports OK only for an exact 200
// response. Any other status code, including other 2xx, is a failure. The
// timeout must be generous for health endpoints: the supervised service may
// be legitimately busy with long-running work.
type HTTPProbe struct {
	URL     string
	Timeout time.Duration
	client  *http.Client
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProbe{URL: url, Timeout: timeout, client: &http.Client{}}
}

func (p *HTTPProbe) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fail(fmt.Sprintf("invalid request: %v", err))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fail("request timed out")
		}
		return fail(fmt.Sprintf("connection failed: %v", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	return ok("OK")
}
