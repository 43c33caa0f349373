package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mbd888/fraudwatch/internal/circuitbreaker"
	"github.com/mbd888/fraudwatch/internal/retry"
	"github.com/mbd888/fraudwatch/internal/transaction"
)

// Config holds the configuration for connecting to a fraudwatch API.
type Config struct {
	APIURL      string        // Base URL, e.g. "http://localhost:8000"
	Timeout     time.Duration // per-request timeout, default 30s
	MaxAttempts int           // attempts per call on 5xx or transport errors, default 3
}

// Client is a plain HTTP client for the fraudwatch API. Transient failures
// are retried; repeated failures trip a breaker so tools fail fast while the
// API is down.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retry.Policy
	breaker    *circuitbreaker.Breaker
}

// NewClient creates a client for the API at cfg.APIURL.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	policy := retry.DefaultPolicy
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      policy,
		breaker:    circuitbreaker.New(5, 30*time.Second),
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// serverFault reports whether err says the API itself is unhealthy.
func serverFault(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return true
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var out json.RawMessage
	err = c.retry.Do(ctx, func(int) error {
		err := c.breaker.Do(c.cfg.APIURL, serverFault, func() error {
			var err error
			out, err = c.send(ctx, method, u.String(), payload)
			return err
		})
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode < 500 {
			return retry.Permanent(err)
		}
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return retry.Permanent(fmt.Errorf("API unavailable: %w", err))
		}
		return err
	})
	return out, err
}

func (c *Client) send(ctx context.Context, method, rawURL string, payload []byte) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	return json.RawMessage(respBody), nil
}

// Analyze scores a single transaction.
func (c *Client) Analyze(ctx context.Context, tx transaction.Transaction) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/analyze", nil, tx)
}

// Stats returns the detector's running statistics.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/stats", nil, nil)
}

// GenerateTransactions draws synthetic transactions, optionally for one profile.
func (c *Client) GenerateTransactions(ctx context.Context, count int, profile string) (json.RawMessage, error) {
	q := url.Values{}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}
	if profile != "" {
		q.Set("profile", profile)
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/transactions/generate", q, nil)
}

// MerchantStatistics returns the generator's static merchant table.
func (c *Client) MerchantStatistics(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/merchants/stats", nil, nil)
}

// RecentAnalyses lists the newest scored transactions.
func (c *Client) RecentAnalyses(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/analyses/recent", q, nil)
}

// SimulateBatch generates and scores count transactions server-side.
func (c *Client) SimulateBatch(ctx context.Context, count int) (json.RawMessage, error) {
	q := url.Values{}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/simulate/batch", q, nil)
}
