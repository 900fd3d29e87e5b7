package adversarial_tests

import (
	"net/http"
	"testing"
	"time"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/test_helpers"
)

// userAccessToken carries the mock account id as its prefix, as real
// access tokens do.
const userAccessToken = test_helpers.MockUserID + "-accesstoken"

// newAppClient returns an app-only client against baseURL with retries and
// local rate limiting out of the way. Each option adjusts the config.
func newAppClient(t *testing.T, baseURL string, options ...func(*gotweet.Config)) *gotweet.Client {
	t.Helper()
	cfg := &gotweet.Config{
		BearerToken: "AAAA",
		BaseURL:     baseURL,
		UploadURL:   baseURL,
		MaxRetries:  -1,
		RateLimit:   &gotweet.RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000},
	}
	for _, opt := range options {
		opt(cfg)
	}
	client, err := gotweet.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

// newUserClient is newAppClient with OAuth1 user credentials.
func newUserClient(t *testing.T, baseURL string, options ...func(*gotweet.Config)) *gotweet.Client {
	t.Helper()
	withUser := func(cfg *gotweet.Config) {
		cfg.ConsumerKey = "consumer-key"
		cfg.ConsumerSecret = "consumer-secret"
		cfg.AccessToken = userAccessToken
		cfg.AccessTokenSecret = "access-secret"
	}
	return newAppClient(t, baseURL, append([]func(*gotweet.Config){withUser}, options...)...)
}

// retrying allows attempts fast retries.
func retrying(attempts int) func(*gotweet.Config) {
	return func(cfg *gotweet.Config) {
		cfg.MaxRetries = attempts
		cfg.RetryDelay = time.Millisecond
	}
}

// withHTTPClient installs hc as the client transport.
func withHTTPClient(hc *http.Client) func(*gotweet.Config) {
	return func(cfg *gotweet.Config) {
		cfg.HTTPClient = hc
	}
}

// assertNoRequests fails when the server saw any request.
func assertNoRequests(t *testing.T, server *test_helpers.TwitterMockServer) {
	t.Helper()
	if log := server.GetRequestLog(); len(log) > 0 {
		t.Errorf("expected no requests, server saw %d (first: %s %s)", len(log), log[0].Method, log[0].Path)
	}
}
