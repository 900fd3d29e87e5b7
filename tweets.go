package gotweet

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// maxParallelLookups bounds concurrent lookup requests in bulk fetches.
const maxParallelLookups = 4

type tweetPayload struct {
	Text                  string             `json:"text,omitempty"`
	Media                 *tweetMediaPayload `json:"media,omitempty"`
	Poll                  *tweetPollPayload  `json:"poll,omitempty"`
	Geo                   *tweetGeoPayload   `json:"geo,omitempty"`
	QuoteTweetID          string             `json:"quote_tweet_id,omitempty"`
	DirectMessageDeepLink string             `json:"direct_message_deep_link,omitempty"`
	ReplySettings         types.ReplySetting `json:"reply_settings,omitempty"`
	Reply                 *tweetReplyPayload `json:"reply,omitempty"`
	ForSuperFollowersOnly bool               `json:"for_super_followers_only,omitempty"`
}

type tweetMediaPayload struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetPollPayload struct {
	Options         []string `json:"options"`
	DurationMinutes int      `json:"duration_minutes"`
}

type tweetGeoPayload struct {
	PlaceID string `json:"place_id"`
}

type tweetReplyPayload struct {
	InReplyToTweetID    string   `json:"in_reply_to_tweet_id"`
	ExcludeReplyUserIDs []string `json:"exclude_reply_user_ids,omitempty"`
}

func newTweetPayload(req *types.PostTweetRequest, mediaIDs []string) *tweetPayload {
	payload := &tweetPayload{
		Text:                  req.Text,
		QuoteTweetID:          req.QuoteTweetID,
		DirectMessageDeepLink: req.DirectMessageDeepLink,
		ReplySettings:         req.ReplySettings,
		ForSuperFollowersOnly: req.ForSuperFollowersOnly,
	}
	if len(mediaIDs) > 0 {
		payload.Media = &tweetMediaPayload{MediaIDs: mediaIDs}
	}
	if req.Poll != nil {
		payload.Poll = &tweetPollPayload{Options: req.Poll.Options, DurationMinutes: req.Poll.DurationMinutes}
	}
	if req.PlaceID != "" {
		payload.Geo = &tweetGeoPayload{PlaceID: req.PlaceID}
	}
	if req.InReplyToTweetID != "" {
		payload.Reply = &tweetReplyPayload{
			InReplyToTweetID:    req.InReplyToTweetID,
			ExcludeReplyUserIDs: req.ExcludeReplyUserIDs,
		}
	}
	return payload
}

// Tweet publishes text under the authenticated account.
func (c *Client) Tweet(ctx context.Context, text string) (*types.Tweet, error) {
	return c.PostTweet(ctx, &types.PostTweetRequest{Text: text})
}

// PostTweet publishes a tweet. Files in req.Media are uploaded first and
// attached together with req.MediaIDs.
//
// Returns a ValidationError before any request is sent if the text is too
// long, the poll is malformed, or a poll is combined with media.
func (c *Client) PostTweet(ctx context.Context, req *types.PostTweetRequest) (*types.Tweet, error) {
	if err := c.validator.ValidatePostTweet(req); err != nil {
		return nil, err
	}
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}

	mediaIDs := append([]string(nil), req.MediaIDs...)
	for _, file := range req.Media {
		id, err := c.UploadMedia(ctx, file)
		if err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, id)
	}

	env, err := c.sendJSON(ctx, http.MethodPost, "2/tweets", newTweetPayload(req, mediaIDs))
	if err != nil {
		return nil, wrap("post tweet", err)
	}

	tweet, err := c.parser.ParseTweet(env)
	if err != nil {
		return nil, wrap("post tweet", err)
	}
	if req.InReplyToTweetID != "" {
		tweet.ReferencedTweets = append(tweet.ReferencedTweets, types.ReferencedTweet{Type: types.RefRepliedTo, ID: req.InReplyToTweetID})
	}

	c.logger.Debug().Str("tweet_id", tweet.ID).Msg("tweet posted")
	c.cache.AddTweet(tweet)
	return tweet, nil
}

// Reply posts req as a reply to tweetID.
func (c *Client) Reply(ctx context.Context, tweetID string, req *types.PostTweetRequest) (*types.Tweet, error) {
	if err := c.validator.ValidateID("tweet_id", tweetID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &ValidationError{Message: "tweet request is nil"}
	}
	reply := *req
	reply.InReplyToTweetID = tweetID
	return c.PostTweet(ctx, &reply)
}

// FetchTweet returns a tweet with its author, media, poll and place attached.
// Tweets are served from the cache when possible.
//
// A missing or deleted tweet yields an error matching ErrNotFound.
func (c *Client) FetchTweet(ctx context.Context, id string) (*types.Tweet, error) {
	if err := c.validator.ValidateID("tweet_id", id); err != nil {
		return nil, err
	}
	if tweet, ok := c.cache.Tweet(id); ok {
		return tweet, nil
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	env, err := c.getEnvelope(ctx, appAuth, "2/tweets/"+id, tweetQuery())
	if err != nil {
		return nil, wrap("fetch tweet", err)
	}

	tweet, err := c.parser.ParseTweet(env)
	if err != nil {
		return nil, wrap("fetch tweet", err)
	}

	c.cache.AddTweet(tweet)
	return tweet, nil
}

// FetchTweets looks up tweets by id. More than 100 ids are split into
// batches fetched in parallel. Ids the API could not find are left out.
func (c *Client) FetchTweets(ctx context.Context, ids []string) ([]*types.Tweet, error) {
	if len(ids) == 0 {
		return []*types.Tweet{}, nil
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	tweets, err := fetchChunked(ctx, ids, func(ctx context.Context, batch []string) ([]*types.Tweet, error) {
		if err := c.validator.ValidateIDs("ids", batch); err != nil {
			return nil, err
		}
		q := tweetQuery()
		q.Set("ids", joinIDs(batch))

		env, err := c.getEnvelope(ctx, appAuth, "2/tweets", q)
		if err != nil {
			return nil, err
		}
		resp, err := c.parser.ParseTweets(env)
		if err != nil {
			return nil, err
		}
		return resp.Tweets, nil
	})
	if err != nil {
		return nil, wrap("fetch tweets", err)
	}

	for _, t := range tweets {
		c.cache.AddTweet(t)
	}
	return tweets, nil
}

// fetchChunked splits ids into request-sized batches and runs fetch on them
// concurrently, keeping the results in batch order.
func fetchChunked[T any](ctx context.Context, ids []string, fetch func(context.Context, []string) ([]T, error)) ([]T, error) {
	var batches [][]string
	for start := 0; start < len(ids); start += internal.MaxIDsPerRequest {
		end := min(start+internal.MaxIDsPerRequest, len(ids))
		batches = append(batches, ids[start:end])
	}

	results := make([][]T, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for i, batch := range batches {
		g.Go(func() error {
			items, err := fetch(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []T
	for _, items := range results {
		all = append(all, items...)
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

// DeleteTweet deletes a tweet owned by the authenticated account.
func (c *Client) DeleteTweet(ctx context.Context, tweetID string) (*types.Relation, error) {
	if err := c.validator.ValidateID("tweet_id", tweetID); err != nil {
		return nil, err
	}
	rel, err := c.relation(ctx, "delete tweet", http.MethodDelete, "2/tweets/"+tweetID, nil)
	if err != nil {
		return nil, err
	}
	c.cache.RemoveTweet(tweetID)
	return rel, nil
}

// LikeTweet likes a tweet as the authenticated account.
func (c *Client) LikeTweet(ctx context.Context, tweetID string) (*types.Relation, error) {
	return c.tweetAction(ctx, "like tweet", http.MethodPost, "likes", tweetID)
}

// UnlikeTweet removes a like.
func (c *Client) UnlikeTweet(ctx context.Context, tweetID string) (*types.Relation, error) {
	return c.tweetAction(ctx, "unlike tweet", http.MethodDelete, "likes", tweetID)
}

// Retweet retweets a tweet as the authenticated account.
func (c *Client) Retweet(ctx context.Context, tweetID string) (*types.Relation, error) {
	return c.tweetAction(ctx, "retweet", http.MethodPost, "retweets", tweetID)
}

// Unretweet removes a retweet.
func (c *Client) Unretweet(ctx context.Context, tweetID string) (*types.Relation, error) {
	return c.tweetAction(ctx, "unretweet", http.MethodDelete, "retweets", tweetID)
}

// tweetAction creates (POST) or removes (DELETE) a like or retweet.
func (c *Client) tweetAction(ctx context.Context, operation, method, collection, tweetID string) (*types.Relation, error) {
	if err := c.validator.ValidateID("tweet_id", tweetID); err != nil {
		return nil, err
	}
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}
	userID, err := c.UserID(ctx)
	if err != nil {
		return nil, wrap(operation, err)
	}

	path := "2/users/" + userID + "/" + collection
	var payload any
	if method == http.MethodDelete {
		path += "/" + tweetID
	} else {
		payload = map[string]string{"tweet_id": tweetID}
	}
	return c.relation(ctx, operation, method, path, payload)
}

// HideReply hides a reply to a conversation started by the authenticated account.
func (c *Client) HideReply(ctx context.Context, tweetID string) (*types.Relation, error) {
	return c.setHidden(ctx, tweetID, true)
}

// UnhideReply makes a hidden reply visible again.
func (c *Client) UnhideReply(ctx context.Context, tweetID string) (*types.Relation, error) {
	return c.setHidden(ctx, tweetID, false)
}

func (c *Client) setHidden(ctx context.Context, tweetID string, hidden bool) (*types.Relation, error) {
	if err := c.validator.ValidateID("tweet_id", tweetID); err != nil {
		return nil, err
	}
	return c.relation(ctx, "hide reply", http.MethodPut, "2/tweets/"+tweetID+"/hidden", map[string]bool{"hidden": hidden})
}

// FetchLikingUsers returns a page of users who liked the tweet.
func (c *Client) FetchLikingUsers(ctx context.Context, tweetID string, page types.Pagination) (*types.UsersResponse, error) {
	return c.fetchUserPage(ctx, "fetch liking users", "2/tweets/"+tweetID+"/liking_users", tweetID, page, 1, 100)
}

// FetchRetweeters returns a page of users who retweeted the tweet.
func (c *Client) FetchRetweeters(ctx context.Context, tweetID string, page types.Pagination) (*types.UsersResponse, error) {
	return c.fetchUserPage(ctx, "fetch retweeters", "2/tweets/"+tweetID+"/retweeted_by", tweetID, page, 1, 100)
}

// SearchRecent searches tweets from the last seven days.
func (c *Client) SearchRecent(ctx context.Context, req *types.SearchRequest) (*types.TweetsResponse, error) {
	if req == nil || req.Query == "" {
		return nil, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if err := c.validator.ValidatePagination(&req.Pagination, 10, 100); err != nil {
		return nil, err
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	q := tweetQuery()
	q.Set("query", req.Query)
	setPagination(q, req.Pagination, "next_token")
	setTime(q, "start_time", req.StartTime)
	setTime(q, "end_time", req.EndTime)
	setIfNotEmpty(q, "since_id", req.SinceID)
	setIfNotEmpty(q, "until_id", req.UntilID)
	setIfNotEmpty(q, "sort_order", req.SortOrder)

	return c.fetchTweetPage(ctx, "search recent", "2/tweets/search/recent", q, appAuth)
}

// FetchConversation fetches the tweet and the recent replies in its
// conversation and links them into a reply tree.
func (c *Client) FetchConversation(ctx context.Context, tweetID string) (*Thread, error) {
	root, err := c.FetchTweet(ctx, tweetID)
	if err != nil {
		return nil, err
	}

	conversationID := root.ConversationID
	if conversationID == "" {
		conversationID = root.ID
	}

	it := c.SearchRecentIter(ctx, &types.SearchRequest{Query: "conversation_id:" + conversationID}).WithLimit(100)
	replies, err := it.Collect(0)
	if err != nil {
		return nil, wrap("fetch conversation", err)
	}

	if conversationID != root.ID {
		if start, err := c.FetchTweet(ctx, conversationID); err == nil {
			replies = append(replies, start)
		}
	}
	return BuildThread(append(replies, root)), nil
}

// fetchTweetPage sends a tweet list request and caches the results.
func (c *Client) fetchTweetPage(ctx context.Context, operation, path string, q url.Values, mode authMode) (*types.TweetsResponse, error) {
	env, err := c.getEnvelope(ctx, mode, path, q)
	if err != nil {
		return nil, wrap(operation, err)
	}
	resp, err := c.parser.ParseTweets(env)
	if err != nil {
		return nil, wrap(operation, err)
	}
	for _, t := range resp.Tweets {
		c.cache.AddTweet(t)
	}
	return resp, nil
}
