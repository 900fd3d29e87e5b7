package gotweet

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/validation"
)

const (
	// DefaultBaseURL is the default Twitter API base URL
	DefaultBaseURL = "https://api.twitter.com/"
	// DefaultUploadURL is the default media upload base URL
	DefaultUploadURL = "https://upload.twitter.com/"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-twitter-api-wrapper/0.1"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is how often a rate limited or failed request is retried
	DefaultMaxRetries = 3
	// DefaultCacheSize is the default number of cached tweets, users and messages
	DefaultCacheSize = internal.DefaultCacheSize
)

// RateLimitConfig controls client-side request pacing.
type RateLimitConfig = internal.RateLimitConfig

// Config holds the configuration for the Twitter client.
//
// App-only operations need BearerToken, or ConsumerKey and ConsumerSecret from
// which a bearer token is obtained. Operations acting on behalf of an account
// (posting, liking, messaging) need ConsumerKey, ConsumerSecret, AccessToken and
// AccessTokenSecret.
//
// Example:
//
//	config := &Config{
//		BearerToken:       os.Getenv("TWITTER_BEARER_TOKEN"),
//		ConsumerKey:       os.Getenv("TWITTER_CONSUMER_KEY"),
//		ConsumerSecret:    os.Getenv("TWITTER_CONSUMER_SECRET"),
//		AccessToken:       os.Getenv("TWITTER_ACCESS_TOKEN"),
//		AccessTokenSecret: os.Getenv("TWITTER_ACCESS_TOKEN_SECRET"),
//	}
type Config struct {
	// BearerToken is the OAuth 2.0 app-only token.
	BearerToken string

	// ConsumerKey and ConsumerSecret identify the app.
	ConsumerKey    string
	ConsumerSecret string

	// AccessToken and AccessTokenSecret identify the account the app acts for.
	AccessToken       string
	AccessTokenSecret string

	// UserAgent string to identify your application.
	// Defaults to DefaultUserAgent.
	UserAgent string

	// BaseURL for the Twitter API. Defaults to DefaultBaseURL.
	BaseURL string

	// UploadURL for chunked media uploads. Defaults to DefaultUploadURL.
	UploadURL string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics. Defaults to a disabled logger.
	Logger *zerolog.Logger

	// RateLimit overrides the client-side request pacing.
	RateLimit *RateLimitConfig

	// MaxRetries bounds retries of rate limited and 5xx responses.
	// Zero means DefaultMaxRetries; a negative value disables retries.
	MaxRetries int

	// RetryDelay is the initial backoff interval between retries.
	RetryDelay time.Duration

	// CacheSize is the capacity of each object cache.
	// Zero means DefaultCacheSize; a negative value disables caching.
	CacheSize int
}

// Client is the main Twitter API client.
// All methods connect lazily on first use, so calling Connect is optional.
type Client struct {
	client    *internal.Client
	auth      *internal.Authenticator
	config    *Config
	creds     internal.Credentials
	parser    *internal.Parser
	validator *internal.Validator
	cache     *internal.Cache
	conn      *internal.ConnectionManager
	logger    zerolog.Logger

	mu     sync.Mutex
	userID string
	lookup singleflight.Group
}

// New creates a client from the five credential strings. Empty strings are
// allowed; operations needing a missing credential fail with a ConfigError.
func New(bearerToken, consumerKey, consumerSecret, accessToken, accessTokenSecret string) (*Client, error) {
	return NewClient(&Config{
		BearerToken:       bearerToken,
		ConsumerKey:       consumerKey,
		ConsumerSecret:    consumerSecret,
		AccessToken:       accessToken,
		AccessTokenSecret: accessTokenSecret,
	})
}

// NewClient creates a new Twitter client with the provided configuration.
// It validates the configuration and applies defaults but does not touch the
// network. Returns an error if config is nil, if neither a bearer token nor a
// consumer key and secret are present, or if the user agent is not header-safe.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &pkgerrs.ConfigError{Message: "config cannot be nil"}
	}
	cfg := *config

	creds := internal.Credentials{
		BearerToken:       strings.TrimSpace(cfg.BearerToken),
		ConsumerKey:       strings.TrimSpace(cfg.ConsumerKey),
		ConsumerSecret:    strings.TrimSpace(cfg.ConsumerSecret),
		AccessToken:       strings.TrimSpace(cfg.AccessToken),
		AccessTokenSecret: strings.TrimSpace(cfg.AccessTokenSecret),
	}
	if !creds.HasAppAuth() {
		return nil, &pkgerrs.ConfigError{Field: "BearerToken", Message: "a bearer token or a consumer key and secret is required"}
	}

	// Set defaults
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("component", "gotweet").Logger()

	validator := internal.NewValidator()
	if err := validator.ValidateUserAgent(cfg.UserAgent); err != nil {
		return nil, err
	}

	auth, err := internal.NewAuthenticator(cfg.HTTPClient, creds, cfg.BaseURL, "")
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}

	cache, err := internal.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "CacheSize", Message: err.Error()}
	}

	logCredentialWarnings(logger, creds)

	return &Client{
		auth:      auth,
		config:    &cfg,
		creds:     creds,
		parser:    internal.NewParser(),
		validator: validator,
		cache:     cache,
		conn:      internal.NewConnectionManager(),
		logger:    logger,
	}, nil
}

func logCredentialWarnings(logger zerolog.Logger, creds internal.Credentials) {
	if creds.BearerToken == "" {
		logger.Error().Msg("bearer token is missing, it will be requested with the consumer credentials")
	}
	if creds.ConsumerKey == "" {
		logger.Warn().Msg("consumer key is missing, user-context actions are unavailable")
	}
	if creds.AccessToken == "" {
		logger.Warn().Msg("access token is missing, user-context actions are unavailable")
	}
	if creds.AccessToken != "" && creds.AccessTokenSecret == "" {
		logger.Warn().Msg("access token secret is missing, it is required when an access token is set")
	}
}

// Connect initializes the internal HTTP client and resolves the app-only
// bearer token. It is safe to call Connect multiple times; once it succeeds
// it does nothing. A failed attempt is retried by the next call.
//
// Requests connect on their own. User-context calls never fetch the bearer
// token; the first app-only request does.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.conn.Initialize(ctx, c.initialize); err != nil {
		return err
	}
	_, err := c.client.AppToken(ctx)
	return err
}

// initialize performs the underlying connection setup work.
func (c *Client) initialize(ctx context.Context) error {
	client, err := internal.NewClient(internal.ClientConfig{
		HTTPClient:  c.config.HTTPClient,
		UserClient:  c.auth.UserClient(ctx, c.config.HTTPClient),
		TokenSource: c.auth.GetToken,
		BaseURL:     c.config.BaseURL,
		UploadURL:   c.config.UploadURL,
		UserAgent:   c.config.UserAgent,
		RateLimit:   c.config.RateLimit,
		MaxRetries:  max(c.config.MaxRetries, 0),
		RetryDelay:  c.config.RetryDelay,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}

	c.client = client
	c.logger.Debug().Bool("user_context", client.HasUserContext()).Msg("client connected")
	return nil
}

// ensureConnected lazily initializes the client before handling a request.
func (c *Client) ensureConnected(ctx context.Context) error {
	if err := c.conn.Initialize(ctx, c.initialize); err != nil {
		return err
	}

	if !c.conn.IsInitialized() {
		return &pkgerrs.StateError{Message: "client not connected, call Connect() first"}
	}

	return nil
}

// requireUser connects and checks that user-context credentials are present.
func (c *Client) requireUser(ctx context.Context) error {
	if missing := c.creds.MissingUserCredential(); missing != "" {
		return pkgerrs.MissingCredential(missing)
	}
	return c.ensureConnected(ctx)
}

// IsConnected returns true if the client is initialized and holds a bearer token.
func (c *Client) IsConnected() bool {
	return c.conn.IsInitialized() && c.client.HasAppToken()
}

// UserID returns the id of the account the access token belongs to. The id is
// read from the token's "<id>-" prefix when present, else fetched once.
func (c *Client) UserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.userID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}

	if prefix, _, ok := strings.Cut(c.creds.AccessToken, "-"); ok && validation.IsValidID(prefix) {
		id = prefix
	} else {
		// A cancelled caller must not fail the others sharing the lookup.
		ch := c.lookup.DoChan("me", func() (any, error) {
			me, err := c.Me(context.WithoutCancel(ctx))
			if err != nil {
				return "", err
			}
			return me.ID, nil
		})
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return "", res.Err
			}
			id = res.Val.(string)
		}
	}

	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
	return id, nil
}

// CachedTweet returns a tweet fetched or posted earlier without a request.
func (c *Client) CachedTweet(id string) (*types.Tweet, bool) {
	return c.cache.Tweet(id)
}

// CachedUser returns a user fetched earlier without a request.
func (c *Client) CachedUser(id string) (*types.User, bool) {
	return c.cache.User(id)
}

// CachedMessage returns a direct message fetched or sent earlier without a request.
func (c *Client) CachedMessage(id string) (*types.DirectMessage, bool) {
	return c.cache.Message(id)
}

// PurgeCache drops every cached object.
func (c *Client) PurgeCache() {
	c.cache.Purge()
}

// wrap attaches the operation name to err.
func wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &pkgerrs.ClientError{Operation: operation, Err: err}
}
