package gotweet

import (
	"net/url"
	"strings"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/validation"
)

const intentBase = "https://twitter.com/"

// escapeIntent escapes a query value with %20 for spaces.
func escapeIntent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ComposeTweetURL returns a link that opens the tweet composer, pre-filled
// with text when it is not empty.
func ComposeTweetURL(text string) string {
	if text == "" {
		return intentBase + "intent/tweet"
	}
	return intentBase + "intent/tweet?text=" + escapeIntent(text)
}

// ComposeUserActionURL returns a link that follows or messages userID.
// action is "follow" or "dm"; text pre-fills the message of a dm.
func ComposeUserActionURL(userID, action, text string) (string, error) {
	if !validation.IsValidID(userID) {
		return "", &ValidationError{Field: "user_id", Message: "must be a numeric id"}
	}

	switch strings.ToLower(action) {
	case "follow":
		return intentBase + "intent/user?user_id=" + userID, nil
	case "dm":
		link := intentBase + "messages/compose?recipient_id=" + userID
		if text != "" {
			link += "&text=" + escapeIntent(text)
		}
		return link, nil
	}
	return "", &ValidationError{Field: "action", Message: "must be either follow or dm"}
}

// ComposeTweetActionURL returns a link that retweets, likes or replies to
// tweetID. action is "retweet", "like" or "reply".
func ComposeTweetActionURL(tweetID, action string) (string, error) {
	if !validation.IsValidID(tweetID) {
		return "", &ValidationError{Field: "tweet_id", Message: "must be a numeric id"}
	}

	switch a := strings.ToLower(action); a {
	case "retweet", "like":
		return intentBase + "intent/" + a + "?tweet_id=" + tweetID, nil
	case "reply":
		return intentBase + "intent/tweet?in_reply_to=" + tweetID, nil
	}
	return "", &ValidationError{Field: "action", Message: "must be either retweet, like or reply"}
}
