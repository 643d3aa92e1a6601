// Package trainer provides ModelTrainer implementations: an HTTP client
// for the external model-execution service and an in-process baseline
// forecaster for tests and offline fallback.
package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// DefaultHTTPTimeout bounds one model-execution request when the caller
// supplies no deadline.
const DefaultHTTPTimeout = 60 * time.Second

// HTTPTrainer calls a model-execution service speaking the TrainRequest /
// TrainResponse JSON contract over POST {base}/v1/forecast/{family}.
//
// Every call carries an explicit deadline; a request past its timeout is
// surfaced as an error, never left hanging.
type HTTPTrainer struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewHTTPTrainer creates a trainer client for the given base URL.
// A zero timeout selects DefaultHTTPTimeout.
func NewHTTPTrainer(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPTrainer {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPTrainer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Name identifies the backing runtime.
func (t *HTTPTrainer) Name() string {
	return "http:" + t.baseURL
}

// Train posts the request to the service and decodes the response.
func (t *HTTPTrainer) Train(ctx context.Context, family forecastkit.ModelFamily, req *forecastkit.TrainRequest) (*forecastkit.TrainResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode train request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/forecast/%s", t.baseURL, family)
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", url, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("model-execution request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("model-execution service returned HTTP %d: %s",
			httpResp.StatusCode, strings.TrimSpace(string(data)))
	}

	var resp forecastkit.TrainResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode train response: %w", err)
	}

	t.logger.Debug("model-execution call finished",
		"family", family,
		"url", url,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"success", resp.Success)

	return &resp, nil
}
