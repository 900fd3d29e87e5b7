package adversarial_tests

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/adversarial_tests/helpers"
	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
	"github.com/jamesprial/go-twitter-api-wrapper/test_helpers"
	"github.com/jamesprial/go-twitter-api-wrapper/webhook"
)

func TestMalformedTweetEnvelopes(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for name, body := range generator.GenerateMalformedTweetEnvelopes() {
		t.Run(name, func(t *testing.T) {
			server := test_helpers.NewTwitterMockServer()
			defer server.Close()
			server.SetJSON("GET /2/tweets/20", http.StatusOK, body)

			client := newAppClient(t, server.URL())
			tweet, err := client.FetchTweet(context.Background(), "20")
			if err == nil {
				t.Fatalf("expected an error, got tweet %+v", tweet)
			}
			var parseErr *gotweet.ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("expected ParseError, got %T: %v", err, err)
			}
			if _, cached := client.CachedTweet("20"); cached {
				t.Error("a failed parse must not be cached")
			}
		})
	}
}

func TestSurvivableTweetEnvelopes(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for name, body := range generator.GenerateSurvivableTweetEnvelopes() {
		t.Run(name, func(t *testing.T) {
			server := test_helpers.NewTwitterMockServer()
			defer server.Close()
			server.SetJSON("GET /2/tweets/20", http.StatusOK, body)

			client := newAppClient(t, server.URL())
			tweet, err := client.FetchTweet(context.Background(), "20")
			if err != nil {
				t.Fatalf("expected tweet to parse, got %v", err)
			}
			if tweet.ID != "20" {
				t.Errorf("expected tweet 20, got %q", tweet.ID)
			}
		})
	}
}

func TestMissingIncludesAreNotInvented(t *testing.T) {
	server := test_helpers.NewTwitterMockServer()
	defer server.Close()
	server.SetJSON("GET /2/tweets/20", http.StatusOK,
		`{"data": {"id": "20", "text": "x", "author_id": "404", "attachments": {"media_keys": ["3_1"], "poll_ids": ["9"]}}, "includes": {"users": [null]}}`)

	client := newAppClient(t, server.URL())
	tweet, err := client.FetchTweet(context.Background(), "20")
	if err != nil {
		t.Fatal(err)
	}
	if tweet.Author != nil || tweet.Poll != nil || len(tweet.Media) != 0 {
		t.Errorf("expected no expansions, got author=%v poll=%v media=%v", tweet.Author, tweet.Poll, tweet.Media)
	}
}

func TestProblemDocuments(t *testing.T) {
	generator := helpers.NewJSONGenerator()
	statuses := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusNotFound,
		http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
	}

	for name, body := range generator.GenerateProblemDocuments() {
		for _, status := range statuses {
			t.Run(name+"/"+http.StatusText(status), func(t *testing.T) {
				resp := &http.Response{StatusCode: status, Header: http.Header{}}
				apiErr := internal.ParseAPIError(resp, []byte(body))

				if apiErr.StatusCode != status {
					t.Errorf("expected status %d, got %d", status, apiErr.StatusCode)
				}
				msg := apiErr.Error()
				if msg == "" {
					t.Error("expected a message")
				}
				if len(apiErr.Detail) > 200 && !strings.HasPrefix(strings.TrimSpace(body), "{") {
					t.Errorf("raw body detail should be truncated, got %d bytes", len(apiErr.Detail))
				}
				if apiErr.IsRetryable() != (status == http.StatusTooManyRequests || status >= 500) {
					t.Errorf("unexpected retryable=%v for status %d", apiErr.IsRetryable(), status)
				}
			})
		}
	}
}

func TestProblemDocumentsThroughClient(t *testing.T) {
	generator := helpers.NewJSONGenerator()
	docs := generator.GenerateProblemDocuments()

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"v2 problem 404", http.StatusNotFound, docs["v2_problem"], gotweet.ErrNotFound},
		{"errors array on 200", http.StatusOK, docs["v2_errors_array"], gotweet.ErrNotFound},
		{"html 503", http.StatusServiceUnavailable, docs["html"], gotweet.ErrServer},
		{"plain text 401", http.StatusUnauthorized, docs["plain_text"], gotweet.ErrUnauthorized},
		{"truncated 429", http.StatusTooManyRequests, docs["truncated"], gotweet.ErrTooManyRequests},
		{"empty 400", http.StatusBadRequest, docs["empty"], gotweet.ErrBadRequest},
		{"mixed errors 403", http.StatusForbidden, docs["errors_with_strings"], gotweet.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := test_helpers.NewTwitterMockServer()
			defer server.Close()
			server.SetResponse("GET /2/tweets/20", &test_helpers.MockResponse{Status: tt.status, Body: tt.body})

			client := newAppClient(t, server.URL())
			_, err := client.FetchTweet(context.Background(), "20")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			var apiErr *gotweet.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
		})
	}
}

func TestProblemEntriesSkipNonObjects(t *testing.T) {
	body := helpers.NewJSONGenerator().GenerateProblemDocuments()["errors_with_strings"]
	apiErr := internal.ParseAPIError(&http.Response{StatusCode: http.StatusBadRequest, Header: http.Header{}}, []byte(body))

	if len(apiErr.Errors) != 1 {
		t.Fatalf("expected one problem entry, got %d", len(apiErr.Errors))
	}
	if apiErr.Title != "Real" {
		t.Errorf("expected title from the object entry, got %q", apiErr.Title)
	}
}

func TestMalformedRateLimitHeaders(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for name, headers := range generator.GenerateRateLimitHeaders() {
		t.Run(name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range headers {
				h.Set(k, v)
			}
			limit := internal.ParseRateLimit(h)
			if limit != nil && limit.Reset.Unix() <= 0 {
				t.Errorf("accepted a non-positive reset: %+v", limit)
			}

			// Whatever the headers say, a request with a deadline must finish.
			server := test_helpers.NewTwitterMockServer()
			defer server.Close()
			server.SetResponse("GET /2/tweets/20", &test_helpers.MockResponse{
				Status:  http.StatusOK,
				Body:    `{"data":{"id":"20","text":"x"}}`,
				Headers: headers,
			})
			server.SetJSON("GET /2/tweets/21", http.StatusOK, `{"data":{"id":"21","text":"y"}}`)

			client := newAppClient(t, server.URL())
			if _, err := client.FetchTweet(context.Background(), "20"); err != nil {
				t.Fatalf("first request failed: %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = client.FetchTweet(ctx, "21")
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("request did not honour its deadline")
			}
		})
	}
}

func TestJSONBombProtection(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for _, depth := range []int{100, 1000, 100000} {
		bomb := generator.GenerateJSONBomb(depth)

		server := test_helpers.NewTwitterMockServer()
		server.SetJSON("GET /2/tweets/20", http.StatusOK, `{"data":{"id":"20","text":"x","bomb":`+bomb+`}}`)

		client := newAppClient(t, server.URL())
		done := make(chan error, 1)
		go func() {
			_, err := client.FetchTweet(context.Background(), "20")
			done <- err
		}()

		select {
		case err := <-done:
			// Deep nesting may be rejected or skipped, but never crash or hang.
			t.Logf("depth %d: err=%v", depth, err)
		case <-time.After(10 * time.Second):
			t.Errorf("depth %d: parser did not return", depth)
		}
		server.Close()
	}
}

func TestLargeTweetPage(t *testing.T) {
	generator := helpers.NewJSONGenerator()
	server := test_helpers.NewTwitterMockServer()
	defer server.Close()
	server.SetJSON("GET /2/users/12/tweets", http.StatusOK, generator.GenerateLargeTweetPage(5000))

	client := newAppClient(t, server.URL())
	page, err := client.FetchTimeline(context.Background(), "12", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Tweets) != 5000 {
		t.Fatalf("expected 5000 tweets, got %d", len(page.Tweets))
	}
	for _, tweet := range page.Tweets {
		if tweet.Author == nil || tweet.Author.ID != "12" {
			t.Fatalf("tweet %s lost its author", tweet.ID)
		}
	}
}

func TestReplyCycleInConversation(t *testing.T) {
	generator := helpers.NewJSONGenerator()
	server := test_helpers.NewTwitterMockServer()
	defer server.Close()
	server.SetJSON("GET /2/tweets/20", http.StatusOK, `{"data":{"id":"20","text":"root","conversation_id":"20"}}`)
	server.SetJSON("GET /2/tweets/search/recent", http.StatusOK, generator.GenerateReplyCycle())

	client := newAppClient(t, server.URL())

	done := make(chan struct{})
	var thread *gotweet.Thread
	var err error
	go func() {
		defer close(done)
		thread, err = client.FetchConversation(context.Background(), "20")
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("building a cyclic conversation did not return")
	}

	if err != nil {
		t.Fatal(err)
	}
	if got := thread.Count(); got != 4 {
		t.Errorf("expected all 4 tweets reachable, got %d", got)
	}
	visited := 0
	thread.Walk(func(_ *types.Tweet, _ int) { visited++ })
	if visited != thread.Count() {
		t.Errorf("walk visited %d of %d tweets", visited, thread.Count())
	}
}

func TestMalformedWebhookDeliveries(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for name, body := range generator.GenerateMalformedDeliveries() {
		t.Run(name, func(t *testing.T) {
			events, err := webhook.ParseEvents([]byte(body))
			if err == nil {
				t.Fatalf("expected an error, got %d events", len(events))
			}
			var parseErr *gotweet.ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("expected ParseError, got %T", err)
			}
		})
	}
}

func TestOddWebhookDeliveries(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for name, body := range generator.GenerateOddDeliveries() {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("ParseEvents panicked: %v", r)
				}
			}()

			events, err := webhook.ParseEvents([]byte(body))
			if err != nil {
				t.Logf("rejected: %v", err)
				return
			}
			for _, ev := range events {
				if ev == nil {
					t.Fatal("nil event")
				}
				if ev.ForUserID != "12" {
					t.Errorf("expected for_user_id 12, got %q", ev.ForUserID)
				}
			}
		})
	}
}
