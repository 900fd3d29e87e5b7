package test_generators

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// firstID keeps generated ids in the snowflake range.
const firstID int64 = 1500000000000000000

// TweetGenerator generates realistic tweets and users for testing
type TweetGenerator struct {
	rand      *rand.Rand
	nextID    int64
	now       time.Time
	templates []string
	topics    []string
	names     []string
}

// NewTweetGenerator creates a new tweet generator. A zero seed picks one
// from the clock.
func NewTweetGenerator(seed int64) *TweetGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &TweetGenerator{
		rand:   rand.New(rand.NewSource(seed)),
		nextID: firstID,
		now:    time.Now().UTC().Truncate(time.Second),
		templates: []string{
			"Just shipped %s, feedback welcome",
			"Hot take: %s is underrated",
			"Thread on %s 🧵",
			"Anyone else debugging %s today?",
			"TIL about %s",
			"Reading up on %s this weekend",
			"%s changed how I work",
		},
		topics: []string{
			"golang", "rate limiting", "OAuth", "webhooks", "retries",
			"caching", "pagination", "streaming", "media uploads", "generics",
		},
		names: []string{
			"gopher", "dev_dana", "api_alex", "sre_sam", "ops_olive",
			"backend_bo", "cli_casey", "infra_ivy", "test_toni", "data_drew",
		},
	}
}

// NextID returns a fresh snowflake-shaped id.
func (g *TweetGenerator) NextID() string {
	g.nextID++
	return strconv.FormatInt(g.nextID, 10)
}

// GenerateUser creates a user with public metrics
func (g *TweetGenerator) GenerateUser() *types.User {
	name := g.names[g.rand.Intn(len(g.names))]
	created := g.now.Add(-time.Duration(g.rand.Intn(3650)) * 24 * time.Hour)
	id := g.NextID()

	return &types.User{
		ID:          id,
		Name:        name,
		Username:    fmt.Sprintf("%s%s", name, id[len(id)-3:]),
		Description: "Writes about " + g.topics[g.rand.Intn(len(g.topics))],
		CreatedAt:   &created,
		Verified:    g.rand.Float32() < 0.1,
		PublicMetrics: &types.UserPublicMetrics{
			FollowersCount: g.rand.Intn(100000),
			FollowingCount: g.rand.Intn(2000),
			TweetCount:     g.rand.Intn(50000),
			ListedCount:    g.rand.Intn(100),
		},
	}
}

// GenerateUsers creates count users
func (g *TweetGenerator) GenerateUsers(count int) []*types.User {
	users := make([]*types.User, count)
	for i := range users {
		users[i] = g.GenerateUser()
	}
	return users
}

// GenerateTweet creates a standalone tweet by author
func (g *TweetGenerator) GenerateTweet(author *types.User) *types.Tweet {
	created := g.now.Add(-time.Duration(g.rand.Intn(86400)) * time.Second)
	id := g.NextID()
	template := g.templates[g.rand.Intn(len(g.templates))]

	tweet := &types.Tweet{
		ID:                  id,
		Text:                fmt.Sprintf(template, g.topics[g.rand.Intn(len(g.topics))]),
		ConversationID:      id,
		CreatedAt:           &created,
		Lang:                "en",
		EditHistoryTweetIDs: []string{id},
		PublicMetrics: &types.TweetPublicMetrics{
			RetweetCount: g.rand.Intn(500),
			ReplyCount:   g.rand.Intn(100),
			LikeCount:    g.rand.Intn(5000),
			QuoteCount:   g.rand.Intn(50),
		},
	}
	if author != nil {
		tweet.AuthorID = author.ID
	}
	return tweet
}

// GenerateTweets creates count tweets spread over authors
func (g *TweetGenerator) GenerateTweets(count int, authors []*types.User) []*types.Tweet {
	tweets := make([]*types.Tweet, count)
	for i := range tweets {
		var author *types.User
		if len(authors) > 0 {
			author = authors[i%len(authors)]
		}
		tweets[i] = g.GenerateTweet(author)
	}
	return tweets
}

// GenerateReply creates a reply to parent inside parent's conversation
func (g *TweetGenerator) GenerateReply(parent *types.Tweet, author *types.User) *types.Tweet {
	reply := g.GenerateTweet(author)
	reply.ConversationID = parent.ConversationID
	reply.InReplyToUserID = parent.AuthorID
	reply.ReferencedTweets = []types.ReferencedTweet{{Type: types.RefRepliedTo, ID: parent.ID}}
	if parent.CreatedAt != nil {
		created := parent.CreatedAt.Add(time.Duration(1+g.rand.Intn(60)) * time.Second)
		reply.CreatedAt = &created
	}
	return reply
}

// GenerateConversation creates a root tweet followed by size replies, each
// attached to a random earlier tweet no deeper than maxDepth.
func (g *TweetGenerator) GenerateConversation(size, maxDepth int, authors []*types.User) []*types.Tweet {
	pick := func() *types.User {
		if len(authors) == 0 {
			return nil
		}
		return authors[g.rand.Intn(len(authors))]
	}

	root := g.GenerateTweet(pick())
	started := g.now.Add(-48 * time.Hour)
	root.CreatedAt = &started
	tweets := []*types.Tweet{root}
	depth := map[string]int{root.ID: 0}

	for len(tweets) < size+1 {
		parent := tweets[g.rand.Intn(len(tweets))]
		if depth[parent.ID] >= maxDepth {
			continue
		}
		reply := g.GenerateReply(parent, pick())
		depth[reply.ID] = depth[parent.ID] + 1
		tweets = append(tweets, reply)
	}
	return tweets
}

// TweetPage renders a v2 list response with users expanded.
func TweetPage(tweets []*types.Tweet, users []*types.User, nextToken string) map[string]any {
	meta := map[string]any{"result_count": len(tweets)}
	if nextToken != "" {
		meta["next_token"] = nextToken
	}
	if len(tweets) > 0 {
		meta["newest_id"] = tweets[0].ID
		meta["oldest_id"] = tweets[len(tweets)-1].ID
	}

	page := map[string]any{"meta": meta}
	if len(tweets) > 0 {
		page["data"] = tweets
	}
	if len(users) > 0 {
		page["includes"] = map[string]any{"users": users}
	}
	return page
}

// UserPage renders a v2 user list response.
func UserPage(users []*types.User, nextToken string) map[string]any {
	meta := map[string]any{"result_count": len(users)}
	if nextToken != "" {
		meta["next_token"] = nextToken
	}

	page := map[string]any{"meta": meta}
	if len(users) > 0 {
		page["data"] = users
	}
	return page
}
