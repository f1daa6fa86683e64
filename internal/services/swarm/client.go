package swarm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyart/internal/beats"
	"storyart/internal/config"
	"storyart/internal/services"
)

const (
	defaultHTTPTimeout = 300 * time.Second
	retryMaxAttempts   = 3
	retryBaseDelay     = 2 * time.Second
)

// RawArtifact is exactly what the backend returned for one prompt: an ordered
// list of output references plus the wall-clock time the request was issued,
// needed later for date-bucket resolution.
type RawArtifact struct {
	Refs         []string
	RequestStart time.Time
}

// QueueStatus is the advisory backend queue snapshot. All zero values is the
// conservative default returned when the status endpoint is unavailable.
type QueueStatus struct {
	WaitingGens     int `json:"waiting_gens"`
	LoadingModels   int `json:"loading_models"`
	WaitingBackends int `json:"waiting_backends"`
	LiveGens        int `json:"live_gens"`
}

// GenerateRequest describes one generation call.
type GenerateRequest struct {
	SessionID string
	Prompt    string
	Images    int
	Params    beats.GenerationParams
}

// HTTPDoer describes the HTTP client used by the swarm client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one SwarmUI instance.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	sleeper    func(time.Duration)
	now        func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (used in tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithClock overrides the request-start timestamp source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient constructs a client for the configured backend.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	baseURL := ""
	if cfg != nil {
		if cfg.Backend.RequestTimeout > 0 {
			timeout = time.Duration(cfg.Backend.RequestTimeout) * time.Second
		}
		baseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.URL), "/")
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewSession initializes a backend session. A failure here is fatal for the
// whole run; there is nothing to generate into without a session.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := c.postWithRetry(ctx, "/API/GetNewSession", map[string]any{}, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.SessionID) == "" {
		return "", services.Wrap(services.ErrBackend, "swarm", "new session", "backend returned no session id", nil)
	}
	return resp.SessionID, nil
}

// Generate submits one prompt and waits for the backend to finish. The
// returned references are not resolved or verified here.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (RawArtifact, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return RawArtifact{}, services.Wrap(services.ErrValidation, "swarm", "generate", "prompt must not be empty", nil)
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return RawArtifact{}, services.Wrap(services.ErrValidation, "swarm", "generate", "backend session id required", nil)
	}
	images := req.Images
	if images <= 0 {
		images = 1
	}

	payload := map[string]any{
		"session_id": req.SessionID,
		"prompt":     req.Prompt,
		"images":     images,
	}
	if req.Params.Model != "" {
		payload["model"] = req.Params.Model
	}
	if req.Params.Width > 0 {
		payload["width"] = req.Params.Width
	}
	if req.Params.Height > 0 {
		payload["height"] = req.Params.Height
	}
	if req.Params.Steps > 0 {
		payload["steps"] = req.Params.Steps
	}
	if req.Params.CFGScale > 0 {
		payload["cfgscale"] = req.Params.CFGScale
	}
	if req.Params.Seed != 0 {
		payload["seed"] = req.Params.Seed
	}

	start := c.now()
	var resp struct {
		Images []string `json:"images"`
	}
	if err := c.postWithRetry(ctx, "/API/GenerateText2Image", payload, &resp); err != nil {
		return RawArtifact{}, err
	}
	if len(resp.Images) == 0 {
		return RawArtifact{}, services.Wrap(services.ErrBackend, "swarm", "generate", "backend returned no artifact references", nil)
	}
	return RawArtifact{Refs: resp.Images, RequestStart: start}, nil
}

// Status queries the backend's in-flight queue depth. The information is
// advisory only, so every failure degrades to the zero-value default instead
// of an error.
func (c *Client) Status(ctx context.Context, sessionID string) QueueStatus {
	var resp struct {
		Status QueueStatus `json:"status"`
	}
	payload := map[string]any{"session_id": sessionID}
	if err := c.postOnce(ctx, "/API/GetCurrentStatus", payload, &resp); err != nil {
		return QueueStatus{}
	}
	return resp.Status
}

// postWithRetry runs the bounded retry ladder: up to 3 attempts with 2s/4s/8s
// backoff, transient failures only. Non-transient failures return
// immediately.
func (c *Client) postWithRetry(ctx context.Context, path string, payload any, out any) error {
	var lastErr error
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		lastErr = c.postOnce(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if err := c.sleep(ctx, retryBaseDelay<<(attempt-1)); err != nil {
			return err
		}
	}
	if isTimeout(lastErr) {
		return services.Wrap(services.ErrTimeout, "swarm", path, fmt.Sprintf("failed after %d attempts", retryMaxAttempts), lastErr)
	}
	return services.Wrap(services.ErrTransient, "swarm", path, fmt.Sprintf("failed after %d attempts", retryMaxAttempts), lastErr)
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("swarm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) postOnce(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, "swarm", path, "encode request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrValidation, "swarm", path, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("swarm request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("swarm request %s: read body: %w", path, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return statusErr
		}
		// 4xx is a rejection, not worth retrying.
		return services.Wrap(services.ErrBackend, "swarm", path, statusErr.Error(), nil)
	}

	var envelope struct {
		Error   string `json:"error"`
		ErrorID string `json:"error_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return services.Wrap(services.ErrBackend, "swarm", path, "decode response", err)
	}
	if envelope.Error != "" || envelope.ErrorID != "" {
		detail := strings.TrimSpace(envelope.Error)
		if detail == "" {
			detail = envelope.ErrorID
		}
		return services.Wrap(services.ErrBackend, "swarm", path, "backend rejected request: "+detail, nil)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return services.Wrap(services.ErrBackend, "swarm", path, "decode response", err)
		}
	}
	return nil
}

// isTransient reports whether the failure is worth another attempt:
// connection errors, timeouts, 5xx, and 429.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, services.ErrBackend) || errors.Is(err, services.ErrValidation) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return false
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
