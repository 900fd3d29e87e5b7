// Package gotweet provides a Go wrapper for the Twitter API.
//
// # Overview
//
// The client covers the v2 endpoints for tweets, users, lists, spaces and
// the filtered stream, and the v1.1 endpoints that have no v2 equivalent:
// direct message events, chunked media upload and account settings.
//
// # Features
//
//   - App-only (bearer token) and user-context (OAuth 1.0a) authentication
//   - Bearer token exchange from the consumer key and secret
//   - Client-side rate limiting and retries with exponential backoff
//   - Structured logging via zerolog
//   - Generic iterators over paginated endpoints
//   - Conversation trees built from reply references
//   - LRU caches for tweets, users and direct messages
//
// # Quick Start
//
//	client, err := gotweet.New(bearerToken, consumerKey, consumerSecret, accessToken, accessTokenSecret)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	tweet, err := client.Tweet(ctx, "Hello from Go!")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(tweet.ID)
//
// # Connection Lifecycle
//
// NewClient only validates the configuration. The bearer token is resolved
// on the first request, or earlier by calling Connect. A failed Connect can
// be retried.
//
// # Authentication Types
//
// App-only authentication:
//   - Requires BearerToken, or ConsumerKey and ConsumerSecret
//   - Good for lookups, search and the filtered stream
//
// User-context authentication:
//   - Requires ConsumerKey, ConsumerSecret, AccessToken and AccessTokenSecret
//   - Required for posting, likes, follows, direct messages and media upload
//   - A missing credential is reported as a ConfigError naming it
//
// # Common Operations
//
// Post a tweet with a poll:
//
//	tweet, err := client.PostTweet(ctx, &types.PostTweetRequest{
//		Text: "Tabs or spaces?",
//		Poll: &types.PollRequest{Options: []string{"tabs", "spaces"}, DurationMinutes: 60},
//	})
//
// Post a tweet with an image:
//
//	file, err := gotweet.OpenMedia("gopher.png", "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	tweet, err := client.PostTweet(ctx, &types.PostTweetRequest{Text: "Look!", Media: []*types.File{file}})
//
// Look up a user:
//
//	user, err := client.FetchUserByUsername(ctx, "@TwitterDev")
//	if errors.Is(err, gotweet.ErrNotFound) {
//		// no such user
//	}
//
// # Pagination
//
// Page methods such as FetchTimeline take a types.Pagination and return the
// meta.next_token in the response. Iterators follow the tokens for you:
//
//	it := client.TimelineIter(ctx, userID, nil).WithLimit(100)
//	for it.HasNext() {
//		tweet, err := it.Next()
//		if errors.Is(err, gotweet.ErrIteratorDone) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		fmt.Println(tweet.Text)
//	}
//
// # Rate Limiting
//
// Requests are paced client-side (60 per minute with a burst of 10 by
// default). When a response reports an exhausted window the client waits for
// x-rate-limit-reset before sending more requests, and 429 and 5xx responses
// are retried with exponential backoff up to MaxRetries times.
//
// # Error Handling
//
// Errors returned by API calls wrap one of the following types:
//
//	_, err := client.FetchTweet(ctx, "20")
//	var apiErr *gotweet.APIError
//	switch {
//	case errors.Is(err, gotweet.ErrNotFound):
//		// tweet does not exist or was deleted
//	case errors.Is(err, gotweet.ErrTooManyRequests):
//		// rate limited after all retries
//	case errors.As(err, &apiErr):
//		// any other API error response
//	}
//
// ConfigError, ValidationError, AuthError, RequestError and ParseError
// describe configuration problems, rejected input, token failures, transport
// failures and undecodable responses.
package gotweet
