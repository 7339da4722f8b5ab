package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("provider: api key is required")

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second

	backoffBase = 1000 * time.Millisecond
	backoffCap  = 10 * time.Second
)

// APIError is a non-2xx provider response, or a 2xx response whose envelope
// carries a non-success code. Status is the HTTP status, Code the numeric
// code from the provider envelope.
type APIError struct {
	Status  int
	Code    int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider: %s (code %d, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("provider: request failed (code %d, status %d)", e.Code, e.Status)
}

// Retryable reports whether the error is worth another attempt. Only rate
// limiting and server errors qualify; every other status is terminal.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusInternalServerError ||
		e.Code == http.StatusTooManyRequests || e.Code == http.StatusInternalServerError
}

// Options configures the provider transport client.
type Options struct {
	APIKey      string
	BaseURL     string
	HTTPClient  *http.Client
	MaxRetries  int
	Timeout     time.Duration
	BackoffBase time.Duration
	Logger      *infra.Logger
}

// CallOptions overrides retry and timeout behaviour for a single call.
type CallOptions struct {
	MaxRetries *int
	Timeout    time.Duration
}

// Client performs authenticated JSON calls against the generation provider,
// retrying rate-limit, server and network failures with exponential backoff.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxRetries  int
	timeout     time.Duration
	backoffBase time.Duration
	logger      *infra.Logger
}

// NewClient constructs a client. The credential is mandatory; a missing key
// fails here rather than on the first call.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.kie.ai"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := opts.BackoffBase
	if base <= 0 {
		base = backoffBase
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		apiKey:      apiKey,
		maxRetries:  maxRetries,
		timeout:     timeout,
		backoffBase: base,
		logger:      logger,
	}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Send performs one provider call and returns the envelope data payload.
// 429/500 responses and network failures are retried up to maxRetries with
// exponential backoff; all other error statuses are raised immediately.
func (c *Client) Send(ctx context.Context, method, path string, query url.Values, body any, opts *CallOptions) (json.RawMessage, error) {
	maxRetries := c.maxRetries
	timeout := c.timeout
	if opts != nil {
		if opts.MaxRetries != nil && *opts.MaxRetries >= 0 {
			maxRetries = *opts.MaxRetries
		}
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
	}

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("provider: encode request: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.backoff(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, err := c.attempt(ctx, method, endpoint, encoded, timeout)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
		c.logger.Warn().Err(err).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Msg("provider: attempt failed")
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, body []byte, timeout time.Duration) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("provider: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("provider: read response: %w", err)
	}

	var env envelope
	if decodeErr := json.Unmarshal(raw, &env); decodeErr != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return nil, fmt.Errorf("provider: decode response: %w", decodeErr)
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Msg, Details: env.Details}
	}
	if env.Code != 0 && env.Code != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Msg, Details: env.Details}
	}
	return env.Data, nil
}

// backoff returns the delay applied before retry number n (1-based):
// base, 2*base, 4*base... capped at 10s.
func (c *Client) backoff(n int) time.Duration {
	d := c.backoffBase
	for i := 1; i < n; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	if d > backoffCap {
		return backoffCap
	}
	return d
}
