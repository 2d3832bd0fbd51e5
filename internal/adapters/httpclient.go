package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	pkgerrors "github.com/pkgrisk/analyzer/pkg/common/errors"
)

// newHTTPClient returns a retrying HTTP client tuned for registry APIs:
// short backoff, a handful of retries, and its own logging silenced so
// retry noise doesn't leak into the pipeline's structured logs.
func newHTTPClient(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 250 * time.Millisecond
	c.RetryWaitMax = 4 * time.Second
	c.Logger = nil
	c.HTTPClient.Timeout = timeout
	return c
}

// fetchJSON GETs url and decodes the body into out. A 4xx/5xx response is
// returned as a *pkgerrors.AdapterError via FromHTTPError so callers can
// distinguish not-found from transient failure. out may be nil to read
// the body without decoding it.
func fetchJSON(ctx context.Context, client *retryablehttp.Client, url string, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", url, err)
	}
	if resp.StatusCode >= 400 {
		return pkgerrors.FromHTTPError(resp.StatusCode, string(body), url)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// headExists issues a HEAD request and reports whether it returned 200.
func headExists(ctx context.Context, client *retryablehttp.Client, url string) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func int64Ptr(v int64) *int64 { return &v }
