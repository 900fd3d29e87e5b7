package gotweet

import (
	"context"
	"errors"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Iterator walks a paginated endpoint one item at a time, following
// next_token until the API stops returning one.
type Iterator[T any] struct {
	pages *internal.PageIterator[T]
}

// TweetIterator iterates over tweets.
type TweetIterator = Iterator[*types.Tweet]

// UserIterator iterates over users.
type UserIterator = Iterator[*types.User]

func newIterator[T any](ctx context.Context, limit, min, max int, fetch internal.PageFunc[T]) *Iterator[T] {
	return &Iterator[T]{pages: internal.NewPageIterator(ctx, limit, min, max, fetch)}
}

// WithLimit sets the number of items to fetch per request. It is clamped to
// the range the endpoint accepts.
func (it *Iterator[T]) WithLimit(limit int) *Iterator[T] {
	it.pages.SetLimit(limit)
	return it
}

// HasNext returns true if there may be more items to iterate through.
func (it *Iterator[T]) HasNext() bool {
	return it.pages.HasNext()
}

// Next returns the next item. It returns ErrIteratorDone once the last page
// has been consumed.
func (it *Iterator[T]) Next() (T, error) {
	return it.pages.Next()
}

// Err returns any error encountered during iteration.
func (it *Iterator[T]) Err() error {
	return it.pages.Err()
}

// Reset resets the iterator to start from the first page.
func (it *Iterator[T]) Reset() {
	it.pages.Reset()
}

// Collect fetches all remaining items up to max. A max of zero or less
// collects everything.
func (it *Iterator[T]) Collect(max int) ([]T, error) {
	items := []T{}
	for it.HasNext() && (max <= 0 || len(items) < max) {
		item, err := it.Next()
		if errors.Is(err, ErrIteratorDone) {
			break
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func tweetPages(fetch func(context.Context, types.Pagination) (*types.TweetsResponse, error)) internal.PageFunc[*types.Tweet] {
	return func(ctx context.Context, page types.Pagination) ([]*types.Tweet, string, error) {
		resp, err := fetch(ctx, page)
		if err != nil {
			return nil, "", err
		}
		return resp.Tweets, resp.Meta.NextToken, nil
	}
}

func userPages(fetch func(context.Context, types.Pagination) (*types.UsersResponse, error)) internal.PageFunc[*types.User] {
	return func(ctx context.Context, page types.Pagination) ([]*types.User, string, error) {
		resp, err := fetch(ctx, page)
		if err != nil {
			return nil, "", err
		}
		return resp.Users, resp.Meta.NextToken, nil
	}
}

// SearchRecentIter iterates over every tweet matching req. The pagination
// fields of req are managed by the iterator.
func (c *Client) SearchRecentIter(ctx context.Context, req *types.SearchRequest) *TweetIterator {
	var base types.SearchRequest
	if req != nil {
		base = *req
	}
	return newIterator(ctx, 100, 10, 100, tweetPages(func(ctx context.Context, page types.Pagination) (*types.TweetsResponse, error) {
		r := base
		r.Pagination = page
		return c.SearchRecent(ctx, &r)
	}))
}

// TimelineIter iterates over the tweets posted by userID.
func (c *Client) TimelineIter(ctx context.Context, userID string, req *types.TimelineRequest) *TweetIterator {
	var base types.TimelineRequest
	if req != nil {
		base = *req
	}
	return newIterator(ctx, 100, 5, 100, tweetPages(func(ctx context.Context, page types.Pagination) (*types.TweetsResponse, error) {
		r := base
		r.Pagination = page
		return c.FetchTimeline(ctx, userID, &r)
	}))
}

// MentionsIter iterates over the tweets mentioning userID.
func (c *Client) MentionsIter(ctx context.Context, userID string, req *types.TimelineRequest) *TweetIterator {
	var base types.TimelineRequest
	if req != nil {
		base = *req
	}
	return newIterator(ctx, 100, 5, 100, tweetPages(func(ctx context.Context, page types.Pagination) (*types.TweetsResponse, error) {
		r := base
		r.Pagination = page
		return c.FetchMentions(ctx, userID, &r)
	}))
}

// LikedTweetsIter iterates over the tweets liked by userID.
func (c *Client) LikedTweetsIter(ctx context.Context, userID string) *TweetIterator {
	return newIterator(ctx, 100, 10, 100, tweetPages(func(ctx context.Context, page types.Pagination) (*types.TweetsResponse, error) {
		return c.FetchLikedTweets(ctx, userID, page)
	}))
}

// FollowersIter iterates over the accounts following userID.
func (c *Client) FollowersIter(ctx context.Context, userID string) *UserIterator {
	return newIterator(ctx, 100, 1, 1000, userPages(func(ctx context.Context, page types.Pagination) (*types.UsersResponse, error) {
		return c.FetchFollowers(ctx, userID, page)
	}))
}

// FollowingIter iterates over the accounts userID follows.
func (c *Client) FollowingIter(ctx context.Context, userID string) *UserIterator {
	return newIterator(ctx, 100, 1, 1000, userPages(func(ctx context.Context, page types.Pagination) (*types.UsersResponse, error) {
		return c.FetchFollowing(ctx, userID, page)
	}))
}

// LikingUsersIter iterates over the accounts that liked tweetID.
func (c *Client) LikingUsersIter(ctx context.Context, tweetID string) *UserIterator {
	return newIterator(ctx, 100, 1, 100, userPages(func(ctx context.Context, page types.Pagination) (*types.UsersResponse, error) {
		return c.FetchLikingUsers(ctx, tweetID, page)
	}))
}

// RetweetersIter iterates over the accounts that retweeted tweetID.
func (c *Client) RetweetersIter(ctx context.Context, tweetID string) *UserIterator {
	return newIterator(ctx, 100, 1, 100, userPages(func(ctx context.Context, page types.Pagination) (*types.UsersResponse, error) {
		return c.FetchRetweeters(ctx, tweetID, page)
	}))
}
