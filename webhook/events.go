// Package webhook receives Account Activity deliveries: it answers CRC
// checks, verifies signatures, and fans events out to handlers.
package webhook

import (
	"encoding/json"
	"strconv"
	"time"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// EventType names one kind of account activity.
type EventType string

const (
	EventDirectMessage EventType = "direct_message"
	EventTyping        EventType = "typing"
	EventFollow        EventType = "follow"
	EventUnfollow      EventType = "unfollow"
	EventTweetCreate   EventType = "tweet_create"
	EventFavorite      EventType = "favorite"
)

// Event is one activity of the subscribed account. Only the fields that
// apply to Type are set.
type Event struct {
	Type      EventType
	ForUserID string
	CreatedAt time.Time

	Message *types.DirectMessage
	Tweet   *types.Tweet

	// Source acted on Target: the follower and the followed account, the
	// account that liked and the author, or the typing sender and recipient.
	Source *types.User
	Target *types.User
}

// v1 activity payloads use the v1.1 object shapes.
type activityUser struct {
	ID         string `json:"id_str"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
	Protected  bool   `json:"protected"`
	Verified   bool   `json:"verified"`
}

func (u *activityUser) toUser() *types.User {
	if u == nil || u.ID == "" {
		return nil
	}
	return &types.User{ID: u.ID, Username: u.ScreenName, Name: u.Name, Protected: u.Protected, Verified: u.Verified}
}

type activityStatus struct {
	ID                string        `json:"id_str"`
	Text              string        `json:"text"`
	FullText          string        `json:"full_text"`
	CreatedAt         string        `json:"created_at"`
	InReplyToStatusID string        `json:"in_reply_to_status_id_str"`
	InReplyToUserID   string        `json:"in_reply_to_user_id_str"`
	QuotedStatusID    string        `json:"quoted_status_id_str"`
	User              *activityUser `json:"user"`
	Lang              string        `json:"lang"`
}

// statusTime is the created_at layout of v1.1 objects.
const statusTime = "Mon Jan 02 15:04:05 -0700 2006"

func (s *activityStatus) toTweet() *types.Tweet {
	if s == nil || s.ID == "" {
		return nil
	}
	tweet := &types.Tweet{
		ID:              s.ID,
		Text:            s.Text,
		InReplyToUserID: s.InReplyToUserID,
		Lang:            s.Lang,
	}
	if s.FullText != "" {
		tweet.Text = s.FullText
	}
	if t, err := time.Parse(statusTime, s.CreatedAt); err == nil {
		t = t.UTC()
		tweet.CreatedAt = &t
	}
	if s.User != nil {
		tweet.AuthorID = s.User.ID
		tweet.Author = s.User.toUser()
	}
	if s.InReplyToStatusID != "" {
		tweet.ReferencedTweets = append(tweet.ReferencedTweets, types.ReferencedTweet{Type: types.RefRepliedTo, ID: s.InReplyToStatusID})
	}
	if s.QuotedStatusID != "" {
		tweet.ReferencedTweets = append(tweet.ReferencedTweets, types.ReferencedTweet{Type: types.RefQuoted, ID: s.QuotedStatusID})
	}
	return tweet
}

type activityPayload struct {
	ForUserID string `json:"for_user_id"`

	DirectMessageEvents []types.MessageEvent    `json:"direct_message_events"`
	TypingEvents        []typingEvent           `json:"direct_message_indicate_typing_events"`
	FollowEvents        []followEvent           `json:"follow_events"`
	TweetCreateEvents   []activityStatus        `json:"tweet_create_events"`
	FavoriteEvents      []favoriteEvent         `json:"favorite_events"`
	Users               map[string]activityUser `json:"users"`
}

type typingEvent struct {
	CreatedTimestamp string `json:"created_timestamp"`
	SenderID         string `json:"sender_id"`
	Target           struct {
		RecipientID string `json:"recipient_id"`
	} `json:"target"`
}

type followEvent struct {
	Type             string        `json:"type"`
	CreatedTimestamp string        `json:"created_timestamp"`
	Target           *activityUser `json:"target"`
	Source           *activityUser `json:"source"`
}

type favoriteEvent struct {
	ID              string          `json:"id"`
	CreatedAt       string          `json:"created_at"`
	TimestampMS     json.Number     `json:"timestamp_ms"`
	FavoritedStatus *activityStatus `json:"favorited_status"`
	User            *activityUser   `json:"user"`
}

func millis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// ParseEvents decodes an activity delivery. Keys it does not know are
// ignored, so a delivery of only unknown activity yields no events.
func ParseEvents(body []byte) ([]*Event, error) {
	var payload activityPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse activity", Err: err}
	}
	if payload.ForUserID == "" {
		return nil, &pkgerrs.ParseError{Operation: "parse activity", Message: "delivery has no for_user_id"}
	}

	users := make(map[string]*types.User, len(payload.Users))
	for id, u := range payload.Users {
		if u.ID == "" {
			u.ID = id
		}
		users[id] = u.toUser()
	}

	var events []*Event
	add := func(ev *Event) {
		ev.ForUserID = payload.ForUserID
		events = append(events, ev)
	}

	for i := range payload.DirectMessageEvents {
		msg := payload.DirectMessageEvents[i].ToMessage()
		msg.Recipient = users[msg.RecipientID]
		add(&Event{
			Type:      EventDirectMessage,
			CreatedAt: msg.CreatedAt,
			Message:   msg,
			Source:    users[msg.SenderID],
			Target:    msg.Recipient,
		})
	}

	for _, t := range payload.TypingEvents {
		add(&Event{
			Type:      EventTyping,
			CreatedAt: millis(t.CreatedTimestamp),
			Source:    userOrID(users, t.SenderID),
			Target:    userOrID(users, t.Target.RecipientID),
		})
	}

	for _, f := range payload.FollowEvents {
		typ := EventFollow
		if f.Type == "unfollow" {
			typ = EventUnfollow
		}
		add(&Event{
			Type:      typ,
			CreatedAt: millis(f.CreatedTimestamp),
			Source:    f.Source.toUser(),
			Target:    f.Target.toUser(),
		})
	}

	for i := range payload.TweetCreateEvents {
		tweet := payload.TweetCreateEvents[i].toTweet()
		if tweet == nil {
			continue
		}
		ev := &Event{Type: EventTweetCreate, Tweet: tweet, Source: tweet.Author}
		if tweet.CreatedAt != nil {
			ev.CreatedAt = *tweet.CreatedAt
		}
		add(ev)
	}

	for _, f := range payload.FavoriteEvents {
		tweet := f.FavoritedStatus.toTweet()
		ev := &Event{
			Type:      EventFavorite,
			CreatedAt: millis(f.TimestampMS.String()),
			Tweet:     tweet,
			Source:    f.User.toUser(),
		}
		if tweet != nil {
			ev.Target = tweet.Author
		}
		add(ev)
	}

	return events, nil
}

func userOrID(users map[string]*types.User, id string) *types.User {
	if u, ok := users[id]; ok && u != nil {
		return u
	}
	if id == "" {
		return nil
	}
	return &types.User{ID: id}
}
