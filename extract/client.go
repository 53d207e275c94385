package extract

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
)

// newRetryableClient builds the shared HTTP client with the backoff settings
// from configuration. Transport-level retries are the only retry policy in
// the system; a request that still fails afterwards is fatal to its source
// for that run.
func newRetryableClient(cfg *config.Config, logger *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryWaitMin = cfg.Extract.Backoff.RetryWaitMin
	client.RetryWaitMax = cfg.Extract.Backoff.RetryWaitMax
	client.RetryMax = cfg.Extract.Backoff.RetryMax
	client.Logger = logger
	return client
}

// doRequest executes the request and returns the response body. Non-2xx
// statuses are returned as errors with the body included for diagnosis.
func doRequest(client *retryablehttp.Client, req *retryablehttp.Request, description string) ([]byte, http.Header, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request for %s failed: %w", description, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response for %s: %w", description, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("failed to fetch %s, status: %s, body: %s", description, resp.Status, string(body))
	}

	return body, resp.Header, nil
}
