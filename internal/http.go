package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

// Host selects which Twitter host a request is resolved against.
type Host int

const (
	// HostAPI is api.twitter.com (v2 and most v1.1 endpoints).
	HostAPI Host = iota
	// HostUpload is upload.twitter.com (chunked media upload).
	HostUpload
)

// Client manages communication with the Twitter API. App-only requests carry
// the bearer token; user-context requests go through the OAuth1 signing client.
type Client struct {
	app        *http.Client
	user       *http.Client
	stream     *http.Client
	BaseURL    *url.URL
	UploadURL  *url.URL
	UserAgent  string
	logger     zerolog.Logger
	maxRetries int
	retryDelay time.Duration

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time

	tokenMu     sync.Mutex
	token       string
	tokenSource TokenSource
}

// TokenSource produces the app-only bearer token.
type TokenSource func(ctx context.Context) (string, error)

// RateLimitConfig controls how requests are throttled before reaching Twitter.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

// ClientConfig holds everything NewClient needs.
type ClientConfig struct {
	// HTTPClient sends app-only requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// UserClient sends user-context requests and must sign them. Nil disables them.
	UserClient *http.Client
	// Token is the app-only bearer token.
	Token string
	// TokenSource is asked for the bearer token on the first app-only
	// request when Token is empty.
	TokenSource TokenSource
	BaseURL     string
	UploadURL   string
	UserAgent   string
	RateLimit   *RateLimitConfig
	MaxRetries  int
	// RetryDelay is the initial backoff interval. Defaults to one second.
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

const (
	DefaultRequestsPerMinute = 60
	DefaultRateLimitBurst    = 10
	DefaultRetryDelay        = time.Second
	SecondsPerMinute         = 60.0
	ParseFloatBitSize        = 64

	maxRetryInterval = 30 * time.Second
	maxResponseBytes = 16 << 20

	// MaxForcedDelay bounds how long response headers can pause the client.
	// The longest Twitter window is 24 hours.
	MaxForcedDelay = 24*time.Hour + time.Second
)

// NewClient returns a new Twitter API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	baseURL, err := parseBase(cfg.BaseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	uploadURL, err := parseBase(cfg.UploadURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "UploadURL", Message: err.Error()}
	}

	rateCfg := RateLimitConfig{}
	if cfg.RateLimit != nil {
		rateCfg = *cfg.RateLimit
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	// Long-lived streams must not be cut off by the client timeout.
	stream := *cfg.HTTPClient
	stream.Timeout = 0

	return &Client{
		app:         cfg.HTTPClient,
		user:        cfg.UserClient,
		stream:      &stream,
		BaseURL:     baseURL,
		UploadURL:   uploadURL,
		UserAgent:   cfg.UserAgent,
		logger:      cfg.Logger,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		limiter:     buildLimiter(rateCfg),
		token:       cfg.Token,
		tokenSource: cfg.TokenSource,
	}, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// AppToken returns the bearer token, asking the token source on first use.
// Concurrent callers share one fetch; a failed fetch is retried by the next call.
func (c *Client) AppToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	if c.tokenSource == nil {
		return "", pkgerrs.MissingCredential("bearer_token")
	}
	token, err := c.tokenSource(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// HasAppToken reports whether the bearer token has been resolved.
func (c *Client) HasAppToken() bool {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.token != ""
}

// HasUserContext reports whether user-context requests can be sent.
func (c *Client) HasUserContext() bool {
	return c.user != nil
}

// NewRequest creates an API request. A relative URL can be provided in path,
// in which case it is resolved relative to the BaseURL of the Client.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	return c.NewHostRequest(ctx, HostAPI, method, path, body)
}

// NewHostRequest creates a request resolved against the given host.
func (c *Client) NewHostRequest(ctx context.Context, host Host, method, path string, body io.Reader) (*http.Request, error) {
	base := c.BaseURL
	if host == HostUpload {
		base = c.UploadURL
	}

	u, err := base.Parse(path)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "build request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "build request", Err: err}
	}

	req.Header.Set("User-Agent", c.UserAgent)
	return req, nil
}

// NewJSONRequest creates a request whose body is payload encoded as JSON.
func (c *Client) NewJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "encode request", Err: err}
	}

	req, err := c.NewRequest(ctx, method, path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// NewFormRequest creates a url-encoded form request against the given host.
func (c *Client) NewFormRequest(ctx context.Context, host Host, method, path string, form url.Values) (*http.Request, error) {
	req, err := c.NewHostRequest(ctx, host, method, path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// Do sends an app-only request authorized with the bearer token. The body of
// a successful response is JSON decoded into v when v is non-nil; error
// responses are returned as *errors.APIError.
func (c *Client) Do(req *http.Request, v any) (*http.Response, error) {
	token, err := c.AppToken(req.Context())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(c.app, req, v)
}

// DoUser sends a request signed with the OAuth1 user credentials.
func (c *Client) DoUser(req *http.Request, v any) (*http.Response, error) {
	if c.user == nil {
		return nil, pkgerrs.MissingCredential("access_token")
	}
	return c.do(c.user, req, v)
}

// Open sends an app-only request and returns the response with its body
// still open. It makes a single attempt without the client timeout; callers
// own reconnection.
func (c *Client) Open(req *http.Request) (*http.Response, error) {
	token, err := c.AppToken(req.Context())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	if err := c.waitForRateLimit(req.Context()); err != nil {
		return nil, &pkgerrs.RequestError{Operation: "wait for rate limit", URL: req.URL.String(), Err: err}
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.String(), Err: err}
	}
	c.applyRateHeaders(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return resp, ParseAPIError(resp, body)
	}
	return resp, nil
}

func (c *Client) do(hc *http.Client, req *http.Request, v any) (*http.Response, error) {
	ctx := req.Context()
	logger := c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Logger()

	// A request that changes state may already have been applied when a
	// server error or a dropped connection is seen. Only 429 guarantees it
	// was not, so those are the only failures such requests retry on.
	replayable := isIdempotent(req.Method)

	var (
		resp  *http.Response
		body  []byte
		tries int
	)

	operation := func() error {
		attempt, err := cloneForAttempt(req, tries)
		if err != nil {
			return backoff.Permanent(err)
		}
		tries++

		if err := c.waitForRateLimit(ctx); err != nil {
			return backoff.Permanent(&pkgerrs.RequestError{Operation: "wait for rate limit", URL: req.URL.String(), Err: err})
		}

		start := time.Now()
		r, err := hc.Do(attempt)
		if err != nil {
			reqErr := &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.String(), Err: err}
			if ctx.Err() != nil || !replayable {
				return backoff.Permanent(reqErr)
			}
			return reqErr
		}

		data, readErr := io.ReadAll(io.LimitReader(r.Body, maxResponseBytes))
		r.Body.Close()
		c.applyRateHeaders(r)

		logger.Debug().
			Int("status", r.StatusCode).
			Int("attempt", tries).
			Dur("latency", time.Since(start)).
			Msg("twitter request")

		if readErr != nil {
			reqErr := &pkgerrs.RequestError{Operation: "read response", URL: req.URL.String(), Err: readErr}
			if !replayable {
				return backoff.Permanent(reqErr)
			}
			return reqErr
		}

		resp = r
		if apiErr := CheckResponse(r, data); apiErr != nil {
			if apiErr.IsRetryable() && (replayable || apiErr.StatusCode == http.StatusTooManyRequests) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		body = data
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("retrying twitter request")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return resp, err
	}

	if v != nil && len(body) > 0 && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(body, v); err != nil {
			return resp, &pkgerrs.ParseError{Operation: req.Method + " " + req.URL.Path, Err: err}
		}
	}

	return resp, nil
}

// isIdempotent reports whether sending the request twice has the same effect
// as sending it once.
func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = 0
	return b
}

// cloneForAttempt returns the request to send for the given attempt. Retries
// need a fresh body, which is only available when the request carries GetBody.
func cloneForAttempt(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, &pkgerrs.ClientError{Operation: "retry request", Message: "request body cannot be replayed"}
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "retry request", Err: err}
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context) error {
	if err := c.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(waitUntil)
			return nil
		}

		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil) {
		c.forceWaitUntil = time.Time{}
	}
	c.mu.Unlock()
}

// applyRateHeaders defers further requests when the window is exhausted.
// Twitter reports the window end as epoch seconds in x-rate-limit-reset.
func (c *Client) applyRateHeaders(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, ParseFloatBitSize); err == nil && seconds > 0 {
			seconds = math.Min(seconds, MaxForcedDelay.Seconds())
			c.deferRequests(time.Duration(seconds * float64(time.Second)))
		}
	}

	limit := ParseRateLimit(resp.Header)
	if limit == nil {
		return
	}

	if limit.Remaining <= 0 || resp.StatusCode == http.StatusTooManyRequests {
		wait := time.Until(limit.Reset) + time.Second
		c.logger.Warn().
			Int("limit", limit.Limit).
			Time("reset", limit.Reset).
			Dur("wait", wait).
			Msg("rate limit exhausted, deferring requests")
		c.deferRequests(wait)
	}
}

func (c *Client) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}
	d = min(d, MaxForcedDelay)

	until := time.Now().Add(d)

	c.mu.Lock()
	if until.After(c.forceWaitUntil) {
		c.forceWaitUntil = until
	}
	c.mu.Unlock()
}
