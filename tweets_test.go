package gotweet_test

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
	"github.com/jamesprial/go-twitter-api-wrapper/test_generators"
	"github.com/jamesprial/go-twitter-api-wrapper/test_helpers"
	"github.com/jamesprial/go-twitter-api-wrapper/test_utils"
)

func TestTweet_PublishesText(t *testing.T) {
	client, server := newTestClient(t)

	tweet, err := client.Tweet(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, "1445880548472328192", tweet.ID)

	entry := lastRequest(t, server, "/2/tweets")
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "application/json", entry.Headers.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(entry.Headers.Get("Authorization"), "OAuth "), "tweets are signed with the user credentials")

	var body map[string]any
	require.NoError(t, entry.JSON(&body))
	assert.Equal(t, map[string]any{"text": "hello world"}, body)
}

func TestPostTweet_Payload(t *testing.T) {
	client, server := newTestClient(t)

	_, err := client.PostTweet(context.Background(), &types.PostTweetRequest{
		Text:                "which one?",
		Poll:                &types.PollRequest{Options: []string{"tabs", "spaces"}, DurationMinutes: 60},
		PlaceID:             "5a110d312052166f",
		QuoteTweetID:        "1409931481552543749",
		ReplySettings:       types.ReplyFollowing,
		InReplyToTweetID:    "1455953449422516226",
		ExcludeReplyUserIDs: []string{"6253282"},
	})
	require.NoError(t, err)

	var body struct {
		Text string `json:"text"`
		Poll struct {
			Options         []string `json:"options"`
			DurationMinutes int      `json:"duration_minutes"`
		} `json:"poll"`
		Geo struct {
			PlaceID string `json:"place_id"`
		} `json:"geo"`
		QuoteTweetID  string `json:"quote_tweet_id"`
		ReplySettings string `json:"reply_settings"`
		Reply         struct {
			InReplyToTweetID    string   `json:"in_reply_to_tweet_id"`
			ExcludeReplyUserIDs []string `json:"exclude_reply_user_ids"`
		} `json:"reply"`
		Media any `json:"media"`
	}
	require.NoError(t, lastRequest(t, server, "/2/tweets").JSON(&body))

	assert.Equal(t, "which one?", body.Text)
	assert.Equal(t, []string{"tabs", "spaces"}, body.Poll.Options)
	assert.Equal(t, 60, body.Poll.DurationMinutes)
	assert.Equal(t, "5a110d312052166f", body.Geo.PlaceID)
	assert.Equal(t, "1409931481552543749", body.QuoteTweetID)
	assert.Equal(t, "following", body.ReplySettings)
	assert.Equal(t, "1455953449422516226", body.Reply.InReplyToTweetID)
	assert.Equal(t, []string{"6253282"}, body.Reply.ExcludeReplyUserIDs)
	assert.Nil(t, body.Media)
}

func TestReply_SetsReference(t *testing.T) {
	client, server := newTestClient(t)

	reply, err := client.Reply(context.Background(), "1455953449422516226", &types.PostTweetRequest{Text: "agreed"})
	require.NoError(t, err)
	assert.True(t, reply.IsReply())
	assert.Equal(t, "1455953449422516226", reply.ReferencedID(types.RefRepliedTo))

	var body struct {
		Text  string `json:"text"`
		Reply struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		} `json:"reply"`
	}
	require.NoError(t, lastRequest(t, server, "/2/tweets").JSON(&body))
	assert.Equal(t, "agreed", body.Text)
	assert.Equal(t, "1455953449422516226", body.Reply.InReplyToTweetID)

	_, err = client.Reply(context.Background(), "nope", &types.PostTweetRequest{Text: "agreed"})
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "tweet_id", valErr.Field)
}

func TestPostTweet_ValidationFailsBeforeRequest(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   *types.PostTweetRequest
		field string
	}{
		{name: "empty", req: &types.PostTweetRequest{}, field: "text"},
		{name: "too long", req: &types.PostTweetRequest{Text: strings.Repeat("é", 281)}, field: "text"},
		{name: "one poll option", req: &types.PostTweetRequest{Text: "q", Poll: &types.PollRequest{Options: []string{"a"}, DurationMinutes: 10}}, field: "poll.options"},
		{name: "poll with media", req: &types.PostTweetRequest{Text: "q", MediaIDs: []string{"1"}, Poll: &types.PollRequest{Options: []string{"a", "b"}, DurationMinutes: 10}}, field: "poll"},
		{name: "bad reply setting", req: &types.PostTweetRequest{Text: "q", ReplySettings: "nobody"}, field: "reply_settings"},
		{name: "exclusions without reply", req: &types.PostTweetRequest{Text: "q", ExcludeReplyUserIDs: []string{"1"}}, field: "reply.exclude_reply_user_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.PostTweet(ctx, tt.req)
			var valErr *gotweet.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.field, valErr.Field)
		})
	}

	_, err := client.Tweet(ctx, strings.Repeat("a", 280))
	require.NoError(t, err, "280 characters are allowed")
	assert.Equal(t, 1, server.GetCallCount("/2/tweets"))
}

func TestFetchTweet_AttachesIncludesAndCaches(t *testing.T) {
	client, server := newTestClient(t)
	gen := test_generators.NewTweetGenerator(42)
	author := gen.GenerateUser()
	tweet := gen.GenerateTweet(author)
	server.SetupTweet(tweet, author)

	got, err := client.FetchTweet(context.Background(), tweet.ID)
	require.NoError(t, err)
	require.NoError(t, test_utils.AssertValidTweet(got))
	assert.Equal(t, tweet.Text, got.Text)
	require.NotNil(t, got.Author)
	assert.Equal(t, author.Username, got.Author.Username)
	assert.Equal(t, "https://twitter.com/"+author.Username+"/status/"+tweet.ID, got.URL())

	entry := lastRequest(t, server, "/2/tweets/"+tweet.ID)
	assert.Equal(t, "Bearer AAAA", entry.Headers.Get("Authorization"))
	assert.Contains(t, entry.Query.Get("expansions"), "author_id")
	assert.Contains(t, entry.Query.Get("tweet.fields"), "conversation_id")

	_, err = client.FetchTweet(context.Background(), tweet.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, server.GetCallCount("/2/tweets/"+tweet.ID), "second lookup is served from the cache")
}

func TestFetchTweet_NotFound(t *testing.T) {
	client, server := newTestClient(t)
	server.SetResponse("GET /2/tweets/20", &test_helpers.MockResponse{
		Status: http.StatusOK,
		Body: `{"errors":[{"value":"20","detail":"Could not find tweet with id: [20].","title":"Not Found Error",` +
			`"resource_type":"tweet","parameter":"id","resource_id":"20","type":"https://api.twitter.com/2/problems/resource-not-found"}]}`,
	})

	tweet, err := client.FetchTweet(context.Background(), "20")
	assert.Nil(t, tweet)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gotweet.ErrNotFound))
}

func TestFetchTweet_InvalidID(t *testing.T) {
	client, server := newTestClient(t)

	_, err := client.FetchTweet(context.Background(), "not-an-id")
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Empty(t, server.GetRequestLog())
}

func TestFetchTweets_ChunksLargeLookups(t *testing.T) {
	client, server := newTestClient(t)
	server.SetResponse("GET /2/tweets", &test_helpers.MockResponse{
		Status: http.StatusOK,
		Body:   `{"data":[{"id":"1","text":"one"}]}`,
	})

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}

	tweets, err := client.FetchTweets(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, tweets, 3)

	var sizes []int
	for _, entry := range server.GetRequestLog() {
		if entry.Path == "/2/tweets" {
			sizes = append(sizes, len(strings.Split(entry.Query.Get("ids"), ",")))
		}
	}
	sort.Ints(sizes)
	assert.Equal(t, []int{50, 100, 100}, sizes)
}

func TestFetchTweets_Empty(t *testing.T) {
	client, server := newTestClient(t)

	tweets, err := client.FetchTweets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tweets)
	assert.Empty(t, server.GetRequestLog())
}

func TestTweetActions(t *testing.T) {
	const tweetID = "1228393702244134912"
	client, server := newTestClient(t)
	ctx := context.Background()

	server.SetJSON("POST /2/users/12/likes", http.StatusOK, `{"data":{"liked":true}}`)
	server.SetJSON("DELETE /2/users/12/likes/"+tweetID, http.StatusOK, `{"data":{"liked":false}}`)
	server.SetJSON("POST /2/users/12/retweets", http.StatusOK, `{"data":{"retweeted":true}}`)
	server.SetJSON("DELETE /2/users/12/retweets/"+tweetID, http.StatusOK, `{"data":{"retweeted":false}}`)
	server.SetJSON("PUT /2/tweets/"+tweetID+"/hidden", http.StatusOK, `{"data":{"hidden":true}}`)
	server.SetJSON("DELETE /2/tweets/"+tweetID, http.StatusOK, `{"data":{"deleted":true}}`)

	rel, err := client.LikeTweet(ctx, tweetID)
	require.NoError(t, err)
	assert.True(t, rel.Liked)
	var payload map[string]string
	require.NoError(t, lastRequest(t, server, "/2/users/12/likes").JSON(&payload))
	assert.Equal(t, tweetID, payload["tweet_id"])

	rel, err = client.UnlikeTweet(ctx, tweetID)
	require.NoError(t, err)
	assert.False(t, rel.Liked)

	rel, err = client.Retweet(ctx, tweetID)
	require.NoError(t, err)
	assert.True(t, rel.Retweeted)

	rel, err = client.Unretweet(ctx, tweetID)
	require.NoError(t, err)
	assert.False(t, rel.Retweeted)

	rel, err = client.HideReply(ctx, tweetID)
	require.NoError(t, err)
	assert.True(t, rel.Hidden)
	var hidden map[string]bool
	require.NoError(t, lastRequest(t, server, "/2/tweets/"+tweetID+"/hidden").JSON(&hidden))
	assert.Equal(t, map[string]bool{"hidden": true}, hidden)

	rel, err = client.DeleteTweet(ctx, tweetID)
	require.NoError(t, err)
	assert.True(t, rel.Deleted)

	assert.Equal(t, 0, server.GetCallCount("/2/users/me"), "the user id comes from the access token")
}

func TestDeleteTweet_EvictsCache(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("DELETE /2/tweets/1445880548472328192", http.StatusOK, `{"data":{"deleted":true}}`)

	tweet, err := client.Tweet(context.Background(), "short lived")
	require.NoError(t, err)
	_, ok := client.CachedTweet(tweet.ID)
	require.True(t, ok)

	_, err = client.DeleteTweet(context.Background(), tweet.ID)
	require.NoError(t, err)
	_, ok = client.CachedTweet(tweet.ID)
	assert.False(t, ok)
}

func TestSearchRecent(t *testing.T) {
	client, server := newTestClient(t)
	gen := test_generators.NewTweetGenerator(7)
	users := gen.GenerateUsers(2)
	tweets := gen.GenerateTweets(4, users)
	server.SetJSON("GET /2/tweets/search/recent", http.StatusOK, test_generators.TweetPage(tweets, users, "b26v89c19zqg8o3fo7gesq314yb9l2l4ptqy"))

	resp, err := client.SearchRecent(context.Background(), &types.SearchRequest{
		Query:      "from:TwitterDev",
		Pagination: types.Pagination{MaxResults: 10},
		SortOrder:  "recency",
	})
	require.NoError(t, err)
	require.NoError(t, test_utils.AssertTweetListValid(resp.Tweets))
	assert.Len(t, resp.Tweets, 4)
	assert.Equal(t, "b26v89c19zqg8o3fo7gesq314yb9l2l4ptqy", resp.Meta.NextToken)
	for _, tweet := range resp.Tweets {
		require.NotNil(t, tweet.Author)
		assert.Equal(t, tweet.AuthorID, tweet.Author.ID)
	}

	entry := lastRequest(t, server, "/2/tweets/search/recent")
	assert.Equal(t, "from:TwitterDev", entry.Query.Get("query"))
	assert.Equal(t, "10", entry.Query.Get("max_results"))
	assert.Equal(t, "recency", entry.Query.Get("sort_order"))
}

func TestSearchRecent_Validation(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.SearchRecent(ctx, &types.SearchRequest{})
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "query", valErr.Field)

	_, err = client.SearchRecent(ctx, &types.SearchRequest{Query: "go", Pagination: types.Pagination{MaxResults: 5}})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "max_results", valErr.Field)
}

func TestFetchConversation_BuildsReplyTree(t *testing.T) {
	client, server := newTestClient(t)
	gen := test_generators.NewTweetGenerator(99)
	users := gen.GenerateUsers(3)
	conversation := gen.GenerateConversation(12, 4, users)
	root := conversation[0]

	server.SetupTweet(root, nil)
	server.SetJSON("GET /2/tweets/search/recent", http.StatusOK, test_generators.TweetPage(conversation[1:], users, ""))

	thread, err := client.FetchConversation(context.Background(), root.ID)
	require.NoError(t, err)

	assert.Equal(t, len(conversation), thread.Count())
	require.Len(t, thread.Roots, 1)
	assert.Equal(t, root.ID, thread.Roots[0].Tweet.ID)
	require.NoError(t, test_utils.AssertThreadValid(thread.Roots))
	assert.LessOrEqual(t, thread.GetDepth(), 5)

	entry := lastRequest(t, server, "/2/tweets/search/recent")
	assert.Equal(t, "conversation_id:"+root.ID, entry.Query.Get("query"))
}

func TestFetchLikingUsersAndRetweeters(t *testing.T) {
	client, server := newTestClient(t)
	gen := test_generators.NewTweetGenerator(3)
	users := gen.GenerateUsers(3)
	server.SetJSON("GET /2/tweets/20/liking_users", http.StatusOK, test_generators.UserPage(users, ""))
	server.SetJSON("GET /2/tweets/20/retweeted_by", http.StatusOK, test_generators.UserPage(users[:1], ""))

	liking, err := client.FetchLikingUsers(context.Background(), "20", types.Pagination{MaxResults: 100})
	require.NoError(t, err)
	require.NoError(t, test_utils.AssertUserListValid(liking.Users))
	assert.Len(t, liking.Users, 3)

	retweeters, err := client.FetchRetweeters(context.Background(), "20", types.Pagination{})
	require.NoError(t, err)
	assert.Len(t, retweeters.Users, 1)

	_, err = client.FetchLikingUsers(context.Background(), "20", types.Pagination{MaxResults: 101})
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
}
