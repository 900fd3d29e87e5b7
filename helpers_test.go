package gotweet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/test_helpers"
)

// testConfig points every host at the mock server and disables pacing.
func testConfig(serverURL string) *gotweet.Config {
	return &gotweet.Config{
		BearerToken:       "AAAA",
		ConsumerKey:       "ck",
		ConsumerSecret:    "cs",
		AccessToken:       test_helpers.MockUserID + "-at",
		AccessTokenSecret: "ats",
		BaseURL:           serverURL,
		UploadURL:         serverURL,
		RateLimit:         &gotweet.RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000},
		RetryDelay:        time.Millisecond,
	}
}

func newTestClient(t *testing.T) (*gotweet.Client, *test_helpers.TwitterMockServer) {
	t.Helper()
	server := test_helpers.NewTwitterMockServer()
	t.Cleanup(server.Close)

	client, err := gotweet.NewClient(testConfig(server.URL()))
	require.NoError(t, err)
	return client, server
}

func newClientWith(t *testing.T, server *test_helpers.TwitterMockServer, mutate func(*gotweet.Config)) *gotweet.Client {
	t.Helper()
	cfg := testConfig(server.URL())
	mutate(cfg)
	client, err := gotweet.NewClient(cfg)
	require.NoError(t, err)
	return client
}

func lastRequest(t *testing.T, server *test_helpers.TwitterMockServer, path string) *test_helpers.RequestEntry {
	t.Helper()
	entry, err := server.GetLastRequest(path)
	require.NoError(t, err)
	return entry
}
