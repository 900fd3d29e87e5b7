package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

const exampleAccount = "XDevelopers"

func main() {
	// Get credentials from environment variables
	bearer := os.Getenv("GOTWEET_CREDENTIALS_BEARER_TOKEN")
	consumerKey := os.Getenv("GOTWEET_CREDENTIALS_CONSUMER_KEY")
	consumerSecret := os.Getenv("GOTWEET_CREDENTIALS_CONSUMER_SECRET")
	accessToken := os.Getenv("GOTWEET_CREDENTIALS_ACCESS_TOKEN")
	accessSecret := os.Getenv("GOTWEET_CREDENTIALS_ACCESS_TOKEN_SECRET")

	if bearer == "" && (consumerKey == "" || consumerSecret == "") {
		log.Fatal().Msg("GOTWEET_CREDENTIALS_BEARER_TOKEN or the consumer key and secret are required")
	}

	// Route structured logs to stderr; adjust the level as needed.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.DebugLevel).With().Timestamp().Logger()

	// Create client configuration
	config := &gotweet.Config{
		BearerToken:       bearer,
		ConsumerKey:       consumerKey,
		ConsumerSecret:    consumerSecret,
		AccessToken:       accessToken,
		AccessTokenSecret: accessSecret,
		UserAgent:         "example-bot/1.0",
		Logger:            &logger,
	}

	client, err := gotweet.NewClient(config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create client")
	}

	// Connect (exchanges the consumer credentials for a bearer token if needed)
	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Twitter")
	}
	fmt.Println("Successfully connected to Twitter!")

	// If we have user credentials, get account info
	if accessToken != "" && accessSecret != "" {
		me, err := client.Me(ctx)
		if err != nil {
			fmt.Printf("Failed to get account info: %v\n", err)
		} else {
			fmt.Printf("Authenticated as: @%s\n", me.Username)
		}
	}

	user, err := client.FetchUserByUsername(ctx, exampleAccount)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to look up account")
	}
	fmt.Printf("\n@%s: %s\n", user.Username, user.Description)
	if m := user.PublicMetrics; m != nil {
		fmt.Printf("Followers: %d | Tweets: %d\n", m.FollowersCount, m.TweetCount)
	}

	fmt.Println("\n=== PAGINATION & THREAD DEMOS ===")

	// 1. Simple pagination using next_token
	fmt.Println("\n1. Paging through the timeline:")
	var latest []*types.Tweet
	token := ""
	for page := 1; page <= 3; page++ {
		resp, err := client.FetchTimeline(ctx, user.ID, &types.TimelineRequest{
			Pagination: types.Pagination{MaxResults: 5, PaginationToken: token},
		})
		if err != nil {
			fmt.Printf("   Failed to get page %d: %v\n", page, err)
			break
		}
		fmt.Printf("   Page %d: %d tweets\n", page, len(resp.Tweets))
		for i, tweet := range resp.Tweets {
			if i < 2 {
				fmt.Printf("     - %.60s\n", tweet.Text)
			}
		}
		latest = append(latest, resp.Tweets...)

		token = resp.Meta.NextToken
		if token == "" {
			fmt.Println("   No more pages available")
			break
		}
	}

	// 2. The same with an iterator
	fmt.Println("\n2. Followers via iterator:")
	followers, err := client.FollowersIter(ctx, user.ID).WithLimit(10).Collect(10)
	if err != nil {
		fmt.Printf("   Failed to list followers: %v\n", err)
	}
	for _, f := range followers {
		fmt.Printf("   - @%s\n", f.Username)
	}

	// 3. Walk a reply thread
	if len(latest) > 0 {
		fmt.Println("\n3. Reply thread of the newest tweet:")
		thread, err := client.FetchConversation(ctx, latest[0].ID)
		if err != nil {
			fmt.Printf("   Failed to fetch conversation: %v\n", err)
			return
		}
		thread.Walk(func(tweet *types.Tweet, depth int) {
			fmt.Printf("   %*s- %.60s\n", depth*2, "", tweet.Text)
		})
		fmt.Printf("   %d tweets, depth %d\n", thread.Count(), thread.GetDepth())
	}
}
