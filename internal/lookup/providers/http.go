// Package providers holds the HTTP plumbing and error taxonomy shared by the
// postal and geocoding lookup clients.
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBodyBytes = 1 << 20

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client with the lookup timeout applied.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Get issues a GET with JSON accept headers and returns status and body.
// Transport failures come back as ProviderErrors; the status is left to the
// caller's parser.
func Get(ctx context.Context, client HTTPDoer, providerID, url, userAgent string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, NewProviderError(ErrorInternal, providerID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, ClassifyTransport(providerID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, ClassifyTransport(providerID, fmt.Errorf("read body: %w", err))
	}
	return resp.StatusCode, body, nil
}
