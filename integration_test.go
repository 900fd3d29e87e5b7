//go:build integration
// +build integration

package gotweet

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Integration tests require real Twitter API credentials.
// Set these environment variables:
//   - GOTWEET_BEARER_TOKEN: app-only bearer token
//   - GOTWEET_CONSUMER_KEY, GOTWEET_CONSUMER_SECRET: (optional) API key pair
//   - GOTWEET_ACCESS_TOKEN, GOTWEET_ACCESS_TOKEN_SECRET: (optional) user context
//
// Run with: go test -tags=integration -v

func getTestClient(t *testing.T) *Client {
	t.Helper()

	bearer := os.Getenv("GOTWEET_BEARER_TOKEN")
	consumerKey := os.Getenv("GOTWEET_CONSUMER_KEY")
	consumerSecret := os.Getenv("GOTWEET_CONSUMER_SECRET")

	if bearer == "" && (consumerKey == "" || consumerSecret == "") {
		t.Skip("Skipping integration test: GOTWEET_BEARER_TOKEN or GOTWEET_CONSUMER_KEY and GOTWEET_CONSUMER_SECRET must be set")
	}

	client, err := New(bearer, consumerKey, consumerSecret,
		os.Getenv("GOTWEET_ACCESS_TOKEN"), os.Getenv("GOTWEET_ACCESS_TOKEN_SECRET"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func requireUserContext(t *testing.T) {
	t.Helper()
	if os.Getenv("GOTWEET_ACCESS_TOKEN") == "" || os.Getenv("GOTWEET_ACCESS_TOKEN_SECRET") == "" {
		t.Skip("Skipping integration test: user context credentials are not set")
	}
}

func TestIntegration_FetchUserByUsername(t *testing.T) {
	client := getTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := client.FetchUserByUsername(ctx, "XDevelopers")
	if err != nil {
		t.Fatalf("FetchUserByUsername failed: %v", err)
	}
	if user.ID == "" || user.Username == "" {
		t.Errorf("Expected user id and username, got %+v", user)
	}
}

func TestIntegration_Timeline(t *testing.T) {
	client := getTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := client.FetchUserByUsername(ctx, "XDevelopers")
	if err != nil {
		t.Fatalf("FetchUserByUsername failed: %v", err)
	}

	resp, err := client.FetchTimeline(ctx, user.ID, &types.TimelineRequest{Pagination: types.Pagination{MaxResults: 5}})
	if err != nil {
		t.Fatalf("FetchTimeline failed: %v", err)
	}
	for i, tweet := range resp.Tweets {
		if tweet.ID == "" {
			t.Errorf("Tweet %d has empty ID", i)
		}
		if tweet.AuthorID != user.ID {
			t.Errorf("Tweet %d has author %s, want %s", i, tweet.AuthorID, user.ID)
		}
	}
}

func TestIntegration_Me(t *testing.T) {
	requireUserContext(t)
	client := getTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	me, err := client.Me(ctx)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	id, err := client.UserID(ctx)
	if err != nil {
		t.Fatalf("UserID failed: %v", err)
	}
	if me.ID != id {
		t.Errorf("Me returned %s, UserID returned %s", me.ID, id)
	}
}

func TestIntegration_TweetAndDelete(t *testing.T) {
	requireUserContext(t)
	if os.Getenv("GOTWEET_ALLOW_WRITES") == "" {
		t.Skip("Skipping write test: set GOTWEET_ALLOW_WRITES to post from the test account")
	}
	client := getTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tweet, err := client.Tweet(ctx, "integration test "+time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Tweet failed: %v", err)
	}
	if _, err := client.DeleteTweet(ctx, tweet.ID); err != nil {
		t.Fatalf("DeleteTweet failed: %v", err)
	}
}
