package backend

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthResult is the outcome of a backend health probe
type HealthResult struct {
	URL        string        `json:"url"`
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"statusCode,omitempty"`
	Latency    time.Duration `json:"-"`
	LatencyMS  int64         `json:"latencyMs"`
	Error      string        `json:"error,omitempty"`
}

// Health probes the backend's health endpoint (outside the API prefix).
// A transport failure is reported in the result rather than as an error.
func (c *Client) Health(ctx context.Context, timeout time.Duration) HealthResult {
	target := c.cfg.BaseURL + c.cfg.HealthPath
	result := HealthResult{URL: target}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	c.ApplyServiceHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	result.Latency = time.Since(start)
	result.LatencyMS = result.Latency.Milliseconds()
	if err != nil {
		result.Error = classify(err).Error()
		c.logger.Debug("Backend health probe failed", zap.String("url", target), zap.Error(err))
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.Reachable = true
	result.StatusCode = resp.StatusCode
	return result
}
