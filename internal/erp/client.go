package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mebleko/backend-oferta/internal/draft"
	"github.com/mebleko/backend-oferta/internal/obs"
	"github.com/mebleko/backend-oferta/internal/resilience"
)

var (
	// ErrUnavailable marks transient transport or server-side failures. The
	// session stays configuring; no retries are performed here beyond the
	// configured attempts.
	ErrUnavailable = errors.New("order platform unavailable")
	// ErrRejected marks a submission the platform refused as invalid.
	ErrRejected = errors.New("order rejected by platform")
)

// Client submits validated order drafts to the external order-management
// platform over HTTP, guarded by a circuit breaker.
type Client struct {
	BaseURL     string
	APIKey      string
	HTTPClient  *http.Client
	Breaker     *resilience.Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Logger      zerolog.Logger
}

// New wires a submit client with sane defaults.
func New(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
		Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("erp").WithLogger(logger),
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		Logger:      logger,
	}
}

type submitResponse struct {
	OrderID     int64  `json:"orderId"`
	QuoteNumber string `json:"quoteNumber"`
	Message     string `json:"message"`
}

// SubmitOrder posts the draft to the platform. 5xx responses and transport
// errors are retried with exponential backoff and reported to the breaker;
// 4xx responses are terminal.
func (c *Client) SubmitOrder(ctx context.Context, d draft.Draft) (draft.Receipt, error) {
	if c == nil || c.HTTPClient == nil {
		return draft.Receipt{}, errors.New("erp client not configured")
	}
	body, err := json.Marshal(d)
	if err != nil {
		return draft.Receipt{}, fmt.Errorf("encode order draft: %w", err)
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Breaker != nil && !c.Breaker.Allow(ctx) {
			obs.OrderSubmitTotal.WithLabelValues("breaker_open").Inc()
			return draft.Receipt{}, fmt.Errorf("%w: %v", ErrUnavailable, resilience.ErrOpenCircuit)
		}
		res, retryable, err := c.submitOnce(ctx, body)
		if err == nil {
			c.report(ctx, false)
			obs.OrderSubmitTotal.WithLabelValues("ok").Inc()
			return res, nil
		}
		c.report(ctx, retryable)
		lastErr = err
		if !retryable {
			obs.OrderSubmitTotal.WithLabelValues("rejected").Inc()
			return draft.Receipt{}, err
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return draft.Receipt{}, ctx.Err()
			case <-time.After(resilience.Backoff(c.BaseBackoff, attempt, 0.2)):
			}
		}
	}
	obs.OrderSubmitTotal.WithLabelValues("unavailable").Inc()
	return draft.Receipt{}, lastErr
}

// report feeds the breaker. Rejections (4xx) count as successful transport:
// the platform answered, it is not failing.
func (c *Client) report(ctx context.Context, retryableFailure bool) {
	if c.Breaker == nil {
		return
	}
	c.Breaker.Report(ctx, !retryableFailure)
}

func (c *Client) submitOnce(ctx context.Context, body []byte) (draft.Receipt, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return draft.Receipt{}, false, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return draft.Receipt{}, true, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.Logger.Debug().
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("erp submit attempt")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out submitResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return draft.Receipt{}, false, fmt.Errorf("decode submit response: %w", err)
		}
		return draft.Receipt{OrderID: out.OrderID, QuoteNumber: out.QuoteNumber}, false, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var out submitResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return draft.Receipt{}, false, fmt.Errorf("%w: %s", ErrRejected, msg)
	default:
		return draft.Receipt{}, true, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}
