package test_utils

import (
	"fmt"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/validation"
)

func AssertValidID(id string) error {
	if id == "" {
		return fmt.Errorf("id is empty")
	}
	if !validation.IsValidID(id) {
		return fmt.Errorf("id has invalid format: %s", id)
	}
	return nil
}

// AssertValidTweet validates that a tweet has all required fields and valid data
func AssertValidTweet(tweet *types.Tweet) error {
	return validation.ValidateTweet(tweet)
}

// AssertValidUser validates that a user has all required fields and valid data
func AssertValidUser(user *types.User) error {
	return validation.ValidateUser(user)
}

// AssertTweetListValid validates every tweet and rejects duplicate ids
func AssertTweetListValid(tweets []*types.Tweet) error {
	seen := make(map[string]bool, len(tweets))
	for i, tweet := range tweets {
		if err := AssertValidTweet(tweet); err != nil {
			return fmt.Errorf("tweet at index %d is invalid: %v", i, err)
		}
		if seen[tweet.ID] {
			return fmt.Errorf("duplicate tweet id at index %d: %s", i, tweet.ID)
		}
		seen[tweet.ID] = true
	}
	return nil
}

// AssertUserListValid validates every user and rejects duplicate ids
func AssertUserListValid(users []*types.User) error {
	seen := make(map[string]bool, len(users))
	for i, user := range users {
		if err := AssertValidUser(user); err != nil {
			return fmt.Errorf("user at index %d is invalid: %v", i, err)
		}
		if seen[user.ID] {
			return fmt.Errorf("duplicate user id at index %d: %s", i, user.ID)
		}
		seen[user.ID] = true
	}
	return nil
}

// AssertThreadValid checks that every reply in the tree references its parent
// and shares the root's conversation.
func AssertThreadValid(roots []*types.ThreadNode) error {
	for _, root := range roots {
		if root == nil || root.Tweet == nil {
			return fmt.Errorf("thread root is empty")
		}
		if err := assertReplies(root, root.Tweet.ConversationID); err != nil {
			return err
		}
	}
	return nil
}

func assertReplies(node *types.ThreadNode, conversationID string) error {
	for _, reply := range node.Replies {
		if reply == nil || reply.Tweet == nil {
			return fmt.Errorf("tweet %s has an empty reply", node.Tweet.ID)
		}
		if parent := reply.Tweet.ReferencedID(types.RefRepliedTo); parent != node.Tweet.ID {
			return fmt.Errorf("tweet %s replies to %s but is nested under %s", reply.Tweet.ID, parent, node.Tweet.ID)
		}
		if conversationID != "" && reply.Tweet.ConversationID != conversationID {
			return fmt.Errorf("tweet %s belongs to conversation %s, want %s", reply.Tweet.ID, reply.Tweet.ConversationID, conversationID)
		}
		if err := assertReplies(reply, conversationID); err != nil {
			return err
		}
	}
	return nil
}

// AssertRateLimit validates parsed rate limit counters
func AssertRateLimit(limit, remaining int) error {
	if limit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", limit)
	}
	if remaining < 0 || remaining > limit {
		return fmt.Errorf("remaining %d is outside 0..%d", remaining, limit)
	}
	return nil
}
