package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/syntrixbase/intelsync/internal/feed/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Executor is the authenticated request executor the client depends on.
type Executor interface {
	// Authenticate establishes the session credential.
	Authenticate(ctx context.Context) error

	// Execute runs one operation and returns the decoded response. Status
	// codes are not interpreted; that is the client's job.
	Execute(ctx context.Context, req Request) (*Response, error)
}

// operations maps operation names to API paths.
var operations = map[string]string{
	OpQueryIndicators: "/intel/combined/indicators/v1",
}

// maxBodySize caps how much of a response body is decoded.
const maxBodySize = 256 << 20

// HTTPExecutor executes operations against the Falcon API over HTTPS with an
// OAuth2 client-credentials token. The token source renews the token
// silently when it expires.
type HTTPExecutor struct {
	baseURL   string
	creds     clientcredentials.Config
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	maxWait   time.Duration
	logger    *slog.Logger

	mu     sync.RWMutex
	client *http.Client

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHTTPExecutor creates an executor for the configured region.
func NewHTTPExecutor(cfg config.Config, logger *slog.Logger) *HTTPExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.URL()
	retries := cfg.RetryCount
	if retries < 1 {
		retries = 1
	}
	maxWait := cfg.MaxRetryWait
	if maxWait <= 0 {
		maxWait = config.DefaultConfig().MaxRetryWait
	}
	return &HTTPExecutor{
		baseURL: base,
		creds: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     base + "/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		timeout:   cfg.Timeout,
		retries:   retries,
		retryWait: cfg.RetryWait,
		maxWait:   maxWait,
		logger:    logger.With("component", "falcon-executor"),
		sleep:     sleepContext,
	}
}

// Authenticate implements Executor. It fetches the first token eagerly so
// bad credentials fail here rather than on the first query.
func (e *HTTPExecutor) Authenticate(ctx context.Context) error {
	base := &http.Client{Timeout: e.timeout}
	// The token source outlives ctx; it only carries the HTTP client.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := e.creds.TokenSource(tokenCtx)

	done := make(chan error, 1)
	go func() {
		_, err := ts.Token()
		done <- err
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrAuthentication, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: token request to %s: %w", ErrAuthentication, e.creds.TokenURL, err)
		}
	}

	client := oauth2.NewClient(tokenCtx, ts)
	client.Timeout = e.timeout

	e.mu.Lock()
	e.client = client
	e.mu.Unlock()

	e.logger.Info("authenticated", "baseURL", e.baseURL)
	return nil
}

func (e *HTTPExecutor) httpClient() *http.Client {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.client
}

func (e *HTTPExecutor) target(req Request) (string, error) {
	if req.Cursor != "" {
		if strings.HasPrefix(req.Cursor, "http://") || strings.HasPrefix(req.Cursor, "https://") {
			if err := e.sameOrigin(req.Cursor); err != nil {
				return "", err
			}
			return req.Cursor, nil
		}
		return e.baseURL + "/" + strings.TrimLeft(req.Cursor, "/"), nil
	}
	path, ok := operations[req.Operation]
	if !ok {
		return "", fmt.Errorf("falcon: unknown operation %q", req.Operation)
	}
	return e.baseURL + path + "?" + req.Params.values().Encode(), nil
}

// sameOrigin rejects absolute cursors pointing away from the API host, so
// the bearer token is never sent elsewhere.
func (e *HTTPExecutor) sameOrigin(cursor string) error {
	u, err := url.Parse(cursor)
	if err != nil {
		return fmt.Errorf("falcon: invalid Next-Page %q: %w", cursor, err)
	}
	base, err := url.Parse(e.baseURL)
	if err != nil {
		return fmt.Errorf("falcon: invalid base URL %q: %w", e.baseURL, err)
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return fmt.Errorf("falcon: Next-Page %s://%s does not match API host %s://%s", u.Scheme, u.Host, base.Scheme, base.Host)
	}
	return nil
}

// Execute implements Executor. Transport faults, 429 and 5xx responses are
// retried up to the configured count, honouring Retry-After.
func (e *HTTPExecutor) Execute(ctx context.Context, req Request) (*Response, error) {
	client := e.httpClient()
	if client == nil {
		return nil, fmt.Errorf("%w: executor is not authenticated", ErrAuthentication)
	}

	target, err := e.target(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < e.retries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, e.backoff(attempt, lastErr)); err != nil {
				return nil, err
			}
		}

		resp, err := e.do(ctx, client, target)
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) {
				return nil, fmt.Errorf("%w: token renewal: %w", ErrAuthentication, err)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			e.logger.Warn("request failed, retrying", "endpoint", endpointOf(target), "attempt", attempt+1, "error", err)
			continue
		}

		if retryable(resp.StatusCode) && attempt+1 < e.retries {
			lastErr = &retryAfterError{status: resp.StatusCode, wait: retryAfter(resp.Header)}
			e.logger.Warn("retryable response", "endpoint", resp.Endpoint, "status", resp.StatusCode, "attempt", attempt+1)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("falcon: request to %s failed after %d attempts: %w", endpointOf(target), e.retries, lastErr)
}

func (e *HTTPExecutor) do(ctx context.Context, client *http.Client, target string) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	resp := &Response{
		Endpoint:   endpointOf(target),
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
	}

	var body struct {
		Resources []json.RawMessage `json:"resources"`
		Errors    []APIMessage      `json:"errors"`
	}
	// Gateways answer some failures with non-JSON bodies; the status code
	// still carries the outcome.
	if len(data) > 0 && json.Unmarshal(data, &body) == nil {
		resp.Resources = body.Resources
		resp.Errors = body.Errors
	}
	return resp, nil
}

func (e *HTTPExecutor) backoff(attempt int, lastErr error) time.Duration {
	var ra *retryAfterError
	if errors.As(lastErr, &ra) && ra.wait > 0 {
		return min(ra.wait, e.maxWait)
	}
	wait := e.retryWait
	for i := 1; i < attempt; i++ {
		if wait > e.maxWait/2 {
			return e.maxWait
		}
		wait *= 2
	}
	return min(wait, e.maxWait)
}

type retryAfterError struct {
	status int
	wait   time.Duration
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("status %d", e.status)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

// endpointOf strips the query string.
func endpointOf(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
