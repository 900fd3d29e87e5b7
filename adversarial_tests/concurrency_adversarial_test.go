package adversarial_tests

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/adversarial_tests/helpers"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
	"github.com/jamesprial/go-twitter-api-wrapper/test_helpers"
)

// lookupHandler answers GET /2/tweets?ids=... with one tweet per id, holding
// each request for hold so overlapping batches can be observed.
func lookupHandler(tracker *helpers.ConcurrencyTracker, hold time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			http.NotFound(w, r)
			return
		}
		leave := tracker.Enter()
		defer leave()

		select {
		case <-time.After(hold):
		case <-r.Context().Done():
			return
		}

		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		items := make([]string, len(ids))
		for i, id := range ids {
			items[i] = fmt.Sprintf(`{"id":%q,"text":"tweet %s"}`, id, id)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(items, ","))
	}
}

func sequentialIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}
	return ids
}

func TestBulkLookupParallelismIsBounded(t *testing.T) {
	tracker := &helpers.ConcurrencyTracker{}
	server := httptest.NewServer(lookupHandler(tracker, 30*time.Millisecond))
	defer server.Close()

	client := newAppClient(t, server.URL)
	ids := sequentialIDs(1000)

	tweets, err := client.FetchTweets(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}

	if tracker.Total() != 10 {
		t.Errorf("expected 10 batches of 100, got %d requests", tracker.Total())
	}
	if peak := tracker.Peak(); peak > 4 {
		t.Errorf("expected at most 4 lookups in flight, saw %d", peak)
	}
	if peak := tracker.Peak(); peak < 2 {
		t.Errorf("expected batches to overlap, peak was %d", peak)
	}

	if len(tweets) != len(ids) {
		t.Fatalf("expected %d tweets, got %d", len(ids), len(tweets))
	}
	for i, tweet := range tweets {
		if tweet.ID != ids[i] {
			t.Fatalf("result %d is tweet %s, batch order was lost", i, tweet.ID)
		}
	}
}

func TestBulkLookupFailureCancelsSiblings(t *testing.T) {
	var served atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if served.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, test_helpers.ProblemBody(http.StatusServiceUnavailable, "Service Unavailable", "Service Unavailable"))
			return
		}
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := newAppClient(t, server.URL)

	start := time.Now()
	_, err := client.FetchTweets(context.Background(), sequentialIDs(800))
	if !errors.Is(err, gotweet.ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("sibling lookups were not cancelled, took %v", elapsed)
	}
}

func TestBulkLookupHonoursDeadline(t *testing.T) {
	before := helpers.TakeGoroutineSnapshot()

	tracker := &helpers.ConcurrencyTracker{}
	server := httptest.NewServer(lookupHandler(tracker, 5*time.Second))
	transport := &http.Transport{}
	client := newAppClient(t, server.URL, withHTTPClient(&http.Client{Transport: transport}), retrying(3))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.FetchTweets(ctx, sequentialIDs(500))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("deadline not honoured, took %v", elapsed)
	}

	transport.CloseIdleConnections()
	server.Close()
	if err := helpers.WaitForGoroutineCleanup(before, 3*time.Second, 3); err != nil {
		t.Error(err)
	}
}

func TestStreamCancellationReleasesGoroutines(t *testing.T) {
	before := helpers.TakeGoroutineSnapshot()

	connected := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets/search/stream" {
			http.NotFound(w, r)
			return
		}
		flusher, _ := w.(http.Flusher)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		select {
		case connected <- struct{}{}:
		default:
		}

		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := w.Write([]byte("\r\n")); err != nil {
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}))
	transport := &http.Transport{}
	client := newAppClient(t, server.URL, withHTTPClient(&http.Client{Transport: transport}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.Stream(ctx, func(context.Context, *types.StreamEvent) error { return nil })
	}()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never connected")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}

	transport.CloseIdleConnections()
	server.Close()
	if err := helpers.WaitForGoroutineCleanup(before, 3*time.Second, 3); err != nil {
		t.Error(err)
	}
}

func TestStreamReconnectsAfterDrop(t *testing.T) {
	var connections atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := connections.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		// Each connection delivers one tweet and then drops.
		fmt.Fprintf(w, `{"data":{"id":"%d","text":"connection %d"}}`+"\r\n", 100+n, n)
	}))
	defer server.Close()

	client := newAppClient(t, server.URL)

	errStop := errors.New("stop")
	var seen []string
	err := client.Stream(context.Background(), func(_ context.Context, ev *types.StreamEvent) error {
		seen = append(seen, ev.Tweet.ID)
		if len(seen) == 2 {
			return errStop
		}
		return nil
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("expected the handler error, got %v", err)
	}
	if len(seen) != 2 || seen[0] != "101" || seen[1] != "102" {
		t.Errorf("expected one tweet from each of two connections, got %v", seen)
	}
	if connections.Load() != 2 {
		t.Errorf("expected 2 connections, got %d", connections.Load())
	}
}

func TestConcurrentFetchesUnderChaos(t *testing.T) {
	server := newTweetServer()
	defer server.Close()

	chaos := helpers.NewChaosTransport(helpers.ChaosConfig{
		Mode:        helpers.ChaosIntermittent,
		FailureRate: 0.3,
		Seed:        3,
	}, nil)
	client := newAppClient(t, server.URL(), withHTTPClient(chaos.Client(5*time.Second)), retrying(6))

	errs := test_helpers.RunConcurrent(40, func(i int) error {
		tweet, err := client.FetchTweet(context.Background(), "20")
		if err != nil {
			var (
				reqErr   *gotweet.RequestError
				parseErr *gotweet.ParseError
				apiErr   *gotweet.APIError
			)
			if errors.As(err, &reqErr) || errors.As(err, &parseErr) || errors.As(err, &apiErr) {
				return nil
			}
			return fmt.Errorf("goroutine %d: untyped error %T: %v", i, err, err)
		}
		if tweet.ID != "20" || tweet.Author == nil {
			return fmt.Errorf("goroutine %d: got a damaged tweet %+v", i, tweet)
		}
		return nil
	})
	for _, err := range errs {
		if err != nil {
			t.Error(err)
		}
	}

	if cached, ok := client.CachedTweet("20"); ok && cached.ID != "20" {
		t.Errorf("cache holds the wrong tweet: %+v", cached)
	}
}

func TestConcurrentUserIDResolution(t *testing.T) {
	server := test_helpers.NewTwitterMockServer()
	defer server.Close()

	// An access token without the "<id>-" prefix forces a lookup.
	client := newUserClient(t, server.URL(), func(cfg *gotweet.Config) {
		cfg.AccessToken = "opaquetoken"
	})

	errs := test_helpers.RunConcurrent(25, func(int) error {
		id, err := client.UserID(context.Background())
		if err != nil {
			return err
		}
		if id != test_helpers.MockUserID {
			return fmt.Errorf("expected user %s, got %s", test_helpers.MockUserID, id)
		}
		return nil
	})
	for _, err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
	if err := server.AssertRequestCount("/2/users/me", 1); err != nil {
		t.Error(err)
	}
}
