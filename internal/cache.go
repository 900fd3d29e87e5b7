package internal

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// DefaultCacheSize is the per-kind capacity used when none is configured.
const DefaultCacheSize = 512

// Cache keeps recently fetched or created objects keyed by id.
type Cache struct {
	tweets   *lru.Cache[string, *types.Tweet]
	users    *lru.Cache[string, *types.User]
	messages *lru.Cache[string, *types.DirectMessage]
}

// NewCache creates LRU caches holding up to size objects of each kind.
// A size below one disables caching.
func NewCache(size int) (*Cache, error) {
	if size < 1 {
		return &Cache{}, nil
	}

	tweets, err := lru.New[string, *types.Tweet](size)
	if err != nil {
		return nil, err
	}
	users, err := lru.New[string, *types.User](size)
	if err != nil {
		return nil, err
	}
	messages, err := lru.New[string, *types.DirectMessage](size)
	if err != nil {
		return nil, err
	}

	return &Cache{tweets: tweets, users: users, messages: messages}, nil
}

// AddTweet stores t and its expanded author.
func (c *Cache) AddTweet(t *types.Tweet) {
	if c.tweets == nil || t == nil || t.ID == "" {
		return
	}
	c.tweets.Add(t.ID, t)
	if t.Author != nil {
		c.AddUser(t.Author)
	}
}

// Tweet returns a cached tweet.
func (c *Cache) Tweet(id string) (*types.Tweet, bool) {
	if c.tweets == nil {
		return nil, false
	}
	return c.tweets.Get(id)
}

// RemoveTweet evicts a tweet, typically after it was deleted.
func (c *Cache) RemoveTweet(id string) {
	if c.tweets != nil {
		c.tweets.Remove(id)
	}
}

// AddUser stores u.
func (c *Cache) AddUser(u *types.User) {
	if c.users == nil || u == nil || u.ID == "" {
		return
	}
	c.users.Add(u.ID, u)
}

// User returns a cached user.
func (c *Cache) User(id string) (*types.User, bool) {
	if c.users == nil {
		return nil, false
	}
	return c.users.Get(id)
}

// AddMessage stores m.
func (c *Cache) AddMessage(m *types.DirectMessage) {
	if c.messages == nil || m == nil || m.ID == "" {
		return
	}
	c.messages.Add(m.ID, m)
}

// Message returns a cached direct message.
func (c *Cache) Message(id string) (*types.DirectMessage, bool) {
	if c.messages == nil {
		return nil, false
	}
	return c.messages.Get(id)
}

// RemoveMessage evicts a direct message.
func (c *Cache) RemoveMessage(id string) {
	if c.messages != nil {
		c.messages.Remove(id)
	}
}

// Purge empties every cache.
func (c *Cache) Purge() {
	if c.tweets != nil {
		c.tweets.Purge()
	}
	if c.users != nil {
		c.users.Purge()
	}
	if c.messages != nil {
		c.messages.Purge()
	}
}
