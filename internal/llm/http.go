package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// RetryPolicy governs network-level retries in SendJSON.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration // doubled after every failed attempt
	RetryStatuses  map[int]struct{}
}

// DefaultRetryPolicy: 3 attempts, 0.5s then 1s backoff, retry on 429 and 5xx gateway errors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		RetryStatuses: map[int]struct{}{
			http.StatusTooManyRequests:     {},
			http.StatusInternalServerError: {},
			http.StatusBadGateway:          {},
			http.StatusServiceUnavailable:  {},
			http.StatusGatewayTimeout:      {},
		},
	}
}

func (p RetryPolicy) retryable(status int) bool {
	_, ok := p.RetryStatuses[status]
	return ok
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.InitialBackoff * time.Duration(1<<uint(attempt))
}

// Response is a successful (2xx) HTTP exchange.
type Response struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Attempts   int
}

// SendJSON POSTs body as JSON to url, retrying connection failures, timeouts
// and the policy's statuses with exponential backoff. Any other non-2xx status
// fails immediately. Failures are returned as *TransportError.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, policy RetryPolicy, logger *slog.Logger) (*Response, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("encode json: %w", err)
	}

	fail := &TransportError{URL: url}
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := policy.Backoff(attempt - 1)
			logger.WarnContext(ctx, "llm.http.retry",
				"req_id", reqID,
				"attempt", attempt+1,
				"backoff_ms", wait.Milliseconds(),
				"status", fail.StatusCode,
				"error", fail.Err,
			)
			select {
			case <-ctx.Done():
				fail.Err = ctx.Err()
				return nil, fail
			case <-time.After(wait):
			}
		}
		fail.Attempts = attempt + 1

		resp, retry, err := sendOnce(ctx, client, url, bs, headers, reqID, logger)
		if err == nil {
			resp.Attempts = attempt + 1
			return resp, nil
		}
		fail.Err = err
		fail.StatusCode, fail.Body = 0, ""
		var se *statusError
		if errors.As(err, &se) {
			fail.StatusCode, fail.Body = se.status, truncateBody(se.body)
			retry = policy.retryable(se.status)
		}
		if !retry || ctx.Err() != nil {
			return nil, fail
		}
	}
	return nil, fail
}

type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string { return fmt.Sprintf("non-2xx status: %d", e.status) }

// sendOnce performs one POST. retry reports whether a transport-level error
// (no usable response) happened.
func sendOnce(ctx context.Context, client *http.Client, url string, bs []byte, headers map[string]string, reqID string, logger *slog.Logger) (*Response, bool, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	// Default headers; allow caller overrides.
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Info("llm.http.request",
		"req_id", reqID,
		"url", url,
		"content_length", len(bs),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, true, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, false, &statusError{status: resp.StatusCode, body: raw}
	}
	return &Response{Body: raw, StatusCode: resp.StatusCode, Header: resp.Header.Clone()}, false, nil
}

var rateLimitHeaders = []string{
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	"Retry-After",
}

// RateLimitHeaders picks the rate-limit headers worth logging.
func RateLimitHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(rateLimitHeaders))
	for _, k := range rateLimitHeaders {
		if v := h.Get(k); v != "" {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}
