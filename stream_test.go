package gotweet_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
	"github.com/jamesprial/go-twitter-api-wrapper/test_helpers"
)

func TestStreamRules(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("GET /2/tweets/search/stream/rules", http.StatusOK, `{"data":[{"id":"1165037377523306498","value":"dog has:images","tag":"dog pictures"}],"meta":{"sent":"2019-08-29T01:12:10.729Z","result_count":1}}`)

	resp, err := client.StreamRules(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Rules, 1)
	assert.Equal(t, "dog pictures", resp.Rules[0].Tag)

	entry := lastRequest(t, server, "/2/tweets/search/stream/rules")
	assert.Equal(t, "Bearer AAAA", entry.Headers.Get("Authorization"))
}

func TestAddStreamRules(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("POST /2/tweets/search/stream/rules", http.StatusCreated, `{"data":[{"value":"cat has:media","tag":"cats","id":"1273026480692322304"}],"meta":{"sent":"2020-06-16T22:55:39.356Z","summary":{"created":1,"not_created":0,"valid":1,"invalid":0}}}`)

	resp, err := client.AddStreamRules(context.Background(), []types.StreamRule{{Value: "cat has:media", Tag: "cats", ID: "ignored"}}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Summary.Created)
	require.Len(t, resp.Rules, 1)
	assert.Equal(t, "1273026480692322304", resp.Rules[0].ID)

	entry := lastRequest(t, server, "/2/tweets/search/stream/rules")
	assert.Equal(t, "true", entry.Query.Get("dry_run"))

	var body struct {
		Add []map[string]any `json:"add"`
	}
	require.NoError(t, entry.JSON(&body))
	require.Len(t, body.Add, 1)
	assert.Equal(t, "cat has:media", body.Add[0]["value"])
	assert.NotContains(t, body.Add[0], "id")
}

func TestAddStreamRules_PartialFailure(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("POST /2/tweets/search/stream/rules", http.StatusOK, `{"data":[{"value":"cats","id":"1"}],
"meta":{"summary":{"created":1,"not_created":1,"valid":1,"invalid":1}},
"errors":[{"value":"bad(","details":["Rules must balance parentheses"],"title":"UnprocessableEntity"}]}`)

	resp, err := client.AddStreamRules(context.Background(), []types.StreamRule{{Value: "cats"}, {Value: "bad("}}, false)
	require.NotNil(t, resp, "accepted rules are still returned")
	assert.Equal(t, 1, resp.Summary.Invalid)

	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "rules", valErr.Field)
	assert.Contains(t, valErr.Message, "bad(: Rules must balance parentheses")
}

func TestAddStreamRules_Rejected(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("POST /2/tweets/search/stream/rules", http.StatusOK, `{"meta":{"summary":{"invalid":1}},"errors":[{"title":"DuplicateRule","detail":"duplicate rule"}]}`)

	resp, err := client.AddStreamRules(context.Background(), []types.StreamRule{{Value: "cats"}}, false)
	assert.Nil(t, resp)
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "rules", valErr.Field)
	assert.Equal(t, "duplicate rule", valErr.Message)
}

func TestAddStreamRules_Validation(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.AddStreamRules(ctx, nil, false)
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "add", valErr.Field)

	_, err = client.AddStreamRules(ctx, []types.StreamRule{{Value: "ok"}, {Value: "  "}}, false)
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "add[1].value", valErr.Field)
}

func TestDeleteStreamRules(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("POST /2/tweets/search/stream/rules", http.StatusOK, `{"meta":{"sent":"2019-08-29T01:48:54.633Z","summary":{"deleted":1,"not_deleted":0}}}`)

	resp, err := client.DeleteStreamRules(context.Background(), []string{"1165037377523306498"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Summary.Deleted)
	assert.Empty(t, resp.Rules)

	var body struct {
		Delete struct {
			IDs []string `json:"ids"`
		} `json:"delete"`
	}
	entry := lastRequest(t, server, "/2/tweets/search/stream/rules")
	require.NoError(t, entry.JSON(&body))
	assert.Equal(t, []string{"1165037377523306498"}, body.Delete.IDs)
	assert.Empty(t, entry.Query.Get("dry_run"))

	_, err = client.DeleteStreamRules(context.Background(), []string{"abc"}, false)
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestStream_DeliversTweets(t *testing.T) {
	client, server := newTestClient(t)
	server.SetResponse("GET /2/tweets/search/stream", &test_helpers.MockResponse{
		Status: http.StatusOK,
		Body: "\r\n" +
			`{"data":{"id":"1067094924124872705","text":"first","author_id":"2244994945"},"includes":{"users":[{"id":"2244994945","name":"Dev","username":"dev"}]},"matching_rules":[{"id":"1","tag":"dev"}]}` + "\r\n" +
			"\r\n" +
			`{"errors":[{"title":"operational-disconnect"}]}` + "\r\n" +
			`{"data":{"id":"1067094924124872706","text":"second"},"matching_rules":[{"id":"1","tag":"dev"}]}` + "\r\n",
	})

	errStop := errors.New("stop")
	var events []*types.StreamEvent
	err := client.Stream(context.Background(), func(_ context.Context, ev *types.StreamEvent) error {
		events = append(events, ev)
		if len(events) == 2 {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "first", first.Tweet.Text)
	require.NotNil(t, first.Tweet.Author)
	assert.Equal(t, "dev", first.Tweet.Author.Username)
	require.Len(t, first.MatchingRules, 1)
	assert.Equal(t, "dev", first.MatchingRules[0].Tag)
	assert.Equal(t, "second", events[1].Tweet.Text)

	_, ok := client.CachedTweet("1067094924124872705")
	assert.True(t, ok)

	entry := lastRequest(t, server, "/2/tweets/search/stream")
	assert.Equal(t, "Bearer AAAA", entry.Headers.Get("Authorization"))
	assert.NotEmpty(t, entry.Query.Get("tweet.fields"))
}

func TestStream_Unauthorized(t *testing.T) {
	client, server := newTestClient(t)
	server.SetupError("GET /2/tweets/search/stream", http.StatusUnauthorized, "Unauthorized", "Unauthorized")

	err := client.Stream(context.Background(), func(context.Context, *types.StreamEvent) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, gotweet.ErrUnauthorized)
	assert.Equal(t, 1, server.GetCallCount("/2/tweets/search/stream"))
}

func TestStream_StopsOnCancel(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("GET /2/tweets/search/stream", http.StatusOK, `{"data":{"id":"1","text":"only"}}`+"\r\n")

	ctx, cancel := context.WithCancel(context.Background())
	err := client.Stream(ctx, func(context.Context, *types.StreamEvent) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream_NilHandler(t *testing.T) {
	client, _ := newTestClient(t)
	err := client.Stream(context.Background(), nil)
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "handler", valErr.Field)
}
