package types

import (
	"io"
	"strings"
	"time"
)

// TwitterObject defines the common behavior for API objects addressed by id
// such as tweets, users, spaces and lists.
type TwitterObject interface {
	GetID() string
}

// ReplySetting controls who may reply to a tweet.
type ReplySetting string

const (
	ReplyEveryone       ReplySetting = "everyone"
	ReplyMentionedUsers ReplySetting = "mentionedUsers"
	ReplyFollowing      ReplySetting = "following"
)

// Valid reports whether s is a reply setting accepted by the API.
func (s ReplySetting) Valid() bool {
	switch s {
	case ReplyEveryone, ReplyMentionedUsers, ReplyFollowing:
		return true
	}
	return false
}

// SpaceState filters spaces by lifecycle state.
type SpaceState string

const (
	SpaceLive      SpaceState = "live"
	SpaceScheduled SpaceState = "scheduled"
	SpaceAll       SpaceState = "all"
	SpaceEnded     SpaceState = "ended"
)

// MediaType is the kind of an attached media object.
type MediaType string

const (
	MediaPhoto       MediaType = "photo"
	MediaVideo       MediaType = "video"
	MediaAnimatedGIF MediaType = "animated_gif"
)

// MediaCategory tells the upload endpoint how the media will be used.
type MediaCategory string

const (
	CategoryTweetImage MediaCategory = "tweet_image"
	CategoryTweetGIF   MediaCategory = "tweet_gif"
	CategoryTweetVideo MediaCategory = "tweet_video"
	CategoryDMImage    MediaCategory = "dm_image"
	CategoryDMGIF      MediaCategory = "dm_gif"
	CategoryDMVideo    MediaCategory = "dm_video"
)

// ReferenceType describes how a tweet references another tweet.
type ReferenceType string

const (
	RefRepliedTo ReferenceType = "replied_to"
	RefQuoted    ReferenceType = "quoted"
	RefRetweeted ReferenceType = "retweeted"
)

// ProcessingState is the asynchronous media processing state reported after FINALIZE.
type ProcessingState string

const (
	ProcessingPending    ProcessingState = "pending"
	ProcessingInProgress ProcessingState = "in_progress"
	ProcessingSucceeded  ProcessingState = "succeeded"
	ProcessingFailed     ProcessingState = "failed"
)

// Pagination captures the shared pagination parameters of v2 list endpoints.
type Pagination struct {
	// MaxResults is the page size. Zero leaves the API default in place.
	MaxResults int

	// PaginationToken is the next_token (or previous_token) from a prior page.
	PaginationToken string
}

// Meta is the "meta" object attached to v2 list responses.
type Meta struct {
	ResultCount   int    `json:"result_count"`
	NextToken     string `json:"next_token,omitempty"`
	PreviousToken string `json:"previous_token,omitempty"`
	NewestID      string `json:"newest_id,omitempty"`
	OldestID      string `json:"oldest_id,omitempty"`
}

// TweetPublicMetrics holds engagement counters of a tweet.
type TweetPublicMetrics struct {
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	QuoteCount      int `json:"quote_count"`
	BookmarkCount   int `json:"bookmark_count"`
	ImpressionCount int `json:"impression_count"`
}

// UserPublicMetrics holds follower and activity counters of a user.
type UserPublicMetrics struct {
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
	TweetCount     int `json:"tweet_count"`
	ListedCount    int `json:"listed_count"`
}

// ReferencedTweet links a tweet to the tweet it replies to, quotes or retweets.
type ReferencedTweet struct {
	Type ReferenceType `json:"type"`
	ID   string        `json:"id"`
}

// TweetAttachments lists keys resolved through the response includes.
type TweetAttachments struct {
	MediaKeys []string `json:"media_keys,omitempty"`
	PollIDs   []string `json:"poll_ids,omitempty"`
}

// TweetGeo is the place tagged on a tweet.
type TweetGeo struct {
	PlaceID string `json:"place_id"`
}

// Tweet represents a tweet with the fields requested by the client.
type Tweet struct {
	ID                  string              `json:"id"`
	Text                string              `json:"text"`
	AuthorID            string              `json:"author_id,omitempty"`
	ConversationID      string              `json:"conversation_id,omitempty"`
	CreatedAt           *time.Time          `json:"created_at,omitempty"`
	InReplyToUserID     string              `json:"in_reply_to_user_id,omitempty"`
	Lang                string              `json:"lang,omitempty"`
	PossiblySensitive   bool                `json:"possibly_sensitive,omitempty"`
	Source              string              `json:"source,omitempty"`
	ReplySettings       ReplySetting        `json:"reply_settings,omitempty"`
	ReferencedTweets    []ReferencedTweet   `json:"referenced_tweets,omitempty"`
	Attachments         *TweetAttachments   `json:"attachments,omitempty"`
	Geo                 *TweetGeo           `json:"geo,omitempty"`
	Entities            *Entities           `json:"entities,omitempty"`
	PublicMetrics       *TweetPublicMetrics `json:"public_metrics,omitempty"`
	EditHistoryTweetIDs []string            `json:"edit_history_tweet_ids,omitempty"`

	// Resolved from the response includes by the parser.
	Author *User    `json:"-"`
	Media  []*Media `json:"-"`
	Poll   *Poll    `json:"-"`
	Place  *Place   `json:"-"`
}

// GetID returns the tweet id.
func (t *Tweet) GetID() string { return t.ID }

// URL returns the public URL of the tweet. The author must have been expanded.
func (t *Tweet) URL() string {
	if t.Author == nil || t.Author.Username == "" {
		return ""
	}
	return "https://twitter.com/" + t.Author.Username + "/status/" + t.ID
}

// ReferencedID returns the id of the tweet referenced with the given type.
func (t *Tweet) ReferencedID(kind ReferenceType) string {
	for _, ref := range t.ReferencedTweets {
		if ref.Type == kind {
			return ref.ID
		}
	}
	return ""
}

// IsReply reports whether the tweet replies to another tweet.
func (t *Tweet) IsReply() bool {
	return t.ReferencedID(RefRepliedTo) != ""
}

// Mentions returns the usernames mentioned in the tweet, without the @.
func (t *Tweet) Mentions() []string {
	if t.Entities == nil {
		return nil
	}
	names := make([]string, 0, len(t.Entities.Mentions))
	for _, m := range t.Entities.Mentions {
		names = append(names, m.Username)
	}
	return names
}

// Entities are the parsed spans of a tweet or user description.
type Entities struct {
	Hashtags []Tag       `json:"hashtags,omitempty"`
	Cashtags []Tag       `json:"cashtags,omitempty"`
	Mentions []Mention   `json:"mentions,omitempty"`
	URLs     []URLEntity `json:"urls,omitempty"`
}

// Tag is a hashtag or cashtag span.
type Tag struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Tag   string `json:"tag"`
}

// Mention is an @username span.
type Mention struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Username string `json:"username"`
	ID       string `json:"id,omitempty"`
}

// URLEntity is a link span with its unwound metadata.
type URLEntity struct {
	Start       int           `json:"start"`
	End         int           `json:"end"`
	URL         string        `json:"url"`
	ExpandedURL string        `json:"expanded_url,omitempty"`
	DisplayURL  string        `json:"display_url,omitempty"`
	UnwoundURL  string        `json:"unwound_url,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Status      int           `json:"status,omitempty"`
	Images      []EntityImage `json:"images,omitempty"`
}

// EntityImage is a preview image of a link.
type EntityImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// User represents a Twitter account.
type User struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Username        string             `json:"username"`
	Description     string             `json:"description,omitempty"`
	CreatedAt       *time.Time         `json:"created_at,omitempty"`
	Location        string             `json:"location,omitempty"`
	URL             string             `json:"url,omitempty"`
	ProfileImageURL string             `json:"profile_image_url,omitempty"`
	Protected       bool               `json:"protected,omitempty"`
	Verified        bool               `json:"verified,omitempty"`
	PinnedTweetID   string             `json:"pinned_tweet_id,omitempty"`
	PublicMetrics   *UserPublicMetrics `json:"public_metrics,omitempty"`
	Entities        *UserEntities      `json:"entities,omitempty"`

	// PinnedTweet is resolved from the includes when the pinned tweet was expanded.
	PinnedTweet *Tweet `json:"-"`
}

// UserEntities are the entity spans of a user's profile.
type UserEntities struct {
	URL         *Entities `json:"url,omitempty"`
	Description *Entities `json:"description,omitempty"`
}

// GetID returns the user id.
func (u *User) GetID() string { return u.ID }

// Mention returns the "@username" form of the user.
func (u *User) Mention() string { return "@" + u.Username }

// ProfileURL returns the public profile URL of the user.
func (u *User) ProfileURL() string { return "https://twitter.com/" + u.Username }

// Media is an attached photo, video or GIF.
type Media struct {
	MediaKey        string    `json:"media_key"`
	Type            MediaType `json:"type"`
	URL             string    `json:"url,omitempty"`
	PreviewImageURL string    `json:"preview_image_url,omitempty"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	DurationMs      int       `json:"duration_ms,omitempty"`
	AltText         string    `json:"alt_text,omitempty"`
}

// Poll is a tweet poll.
type Poll struct {
	ID              string       `json:"id"`
	Options         []PollOption `json:"options"`
	DurationMinutes int          `json:"duration_minutes,omitempty"`
	EndDatetime     *time.Time   `json:"end_datetime,omitempty"`
	VotingStatus    string       `json:"voting_status,omitempty"`
}

// PollOption is one choice of a poll.
type PollOption struct {
	Position int    `json:"position"`
	Label    string `json:"label"`
	Votes    int    `json:"votes"`
}

// Place is a geo place referenced by a tweet.
type Place struct {
	ID          string         `json:"id"`
	FullName    string         `json:"full_name"`
	Name        string         `json:"name,omitempty"`
	Country     string         `json:"country,omitempty"`
	CountryCode string         `json:"country_code,omitempty"`
	PlaceType   string         `json:"place_type,omitempty"`
	Geo         *PlaceGeometry `json:"geo,omitempty"`
}

// PlaceGeometry is the GeoJSON bounding box of a place.
type PlaceGeometry struct {
	Type string    `json:"type"`
	BBox []float64 `json:"bbox"`
}

// Space is an audio space.
type Space struct {
	ID               string     `json:"id"`
	State            SpaceState `json:"state"`
	Title            string     `json:"title,omitempty"`
	CreatorID        string     `json:"creator_id,omitempty"`
	HostIDs          []string   `json:"host_ids,omitempty"`
	SpeakerIDs       []string   `json:"speaker_ids,omitempty"`
	InvitedUserIDs   []string   `json:"invited_user_ids,omitempty"`
	Lang             string     `json:"lang,omitempty"`
	IsTicketed       bool       `json:"is_ticketed,omitempty"`
	ParticipantCount int        `json:"participant_count,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	ScheduledStart   *time.Time `json:"scheduled_start,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
}

// GetID returns the space id.
func (s *Space) GetID() string { return s.ID }

// List is a Twitter list.
type List struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Private       bool       `json:"private,omitempty"`
	FollowerCount int        `json:"follower_count,omitempty"`
	MemberCount   int        `json:"member_count,omitempty"`
	OwnerID       string     `json:"owner_id,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// GetID returns the list id.
func (l *List) GetID() string { return l.ID }

// Relation is the result of a write action on a relationship or tweet state.
// Only the fields relevant to the action are set by the API.
type Relation struct {
	Following     bool `json:"following"`
	PendingFollow bool `json:"pending_follow"`
	Blocking      bool `json:"blocking"`
	Muting        bool `json:"muting"`
	Liked         bool `json:"liked"`
	Retweeted     bool `json:"retweeted"`
	Deleted       bool `json:"deleted"`
	Hidden        bool `json:"hidden"`
}

// File is media to upload. Reader is consumed once.
type File struct {
	Name     string
	Reader   io.Reader
	Size     int64
	MimeType string
	Category MediaCategory
	// DMOnly marks the media as shared so it can be attached to direct messages.
	DMOnly bool
}

// Close closes the underlying reader when it is an io.Closer.
func (f *File) Close() error {
	if c, ok := f.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// PollRequest describes a poll to attach to a new tweet.
type PollRequest struct {
	Options         []string
	DurationMinutes int
}

// PostTweetRequest describes a tweet to publish.
type PostTweetRequest struct {
	Text string

	// Media is uploaded before the tweet is created.
	Media []*File
	// MediaIDs are already-uploaded media ids.
	MediaIDs []string

	Poll                  *PollRequest
	PlaceID               string
	QuoteTweetID          string
	DirectMessageDeepLink string
	ReplySettings         ReplySetting
	InReplyToTweetID      string
	ExcludeReplyUserIDs   []string
	ForSuperFollowersOnly bool
}

// TimelineRequest filters a user's tweet timeline.
type TimelineRequest struct {
	Pagination
	StartTime time.Time
	EndTime   time.Time
	SinceID   string
	UntilID   string
	// Exclude may contain "retweets" and "replies".
	Exclude []string
}

// SearchRequest describes a recent-search query.
type SearchRequest struct {
	Query string
	Pagination
	StartTime time.Time
	EndTime   time.Time
	SinceID   string
	UntilID   string
	// SortOrder is "recency" or "relevancy".
	SortOrder string
}

// TweetsResponse is a page of tweets.
type TweetsResponse struct {
	Tweets []*Tweet
	Meta   Meta
}

// UsersResponse is a page of users.
type UsersResponse struct {
	Users []*User
	Meta  Meta
}

// ListsResponse is a page of lists.
type ListsResponse struct {
	Lists []*List
	Meta  Meta
}

// StreamRule is a filtered-stream rule.
type StreamRule struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
	Tag   string `json:"tag,omitempty"`
}

// StreamRulesSummary reports the outcome of a rules update.
type StreamRulesSummary struct {
	Created    int `json:"created"`
	NotCreated int `json:"not_created"`
	Valid      int `json:"valid"`
	Invalid    int `json:"invalid"`
	Deleted    int `json:"deleted"`
	NotDeleted int `json:"not_deleted"`
}

// StreamRulesResponse is the result of listing or modifying stream rules.
type StreamRulesResponse struct {
	Rules   []StreamRule
	Summary StreamRulesSummary
}

// StreamEvent is one tweet delivered by the filtered stream.
type StreamEvent struct {
	Tweet         *Tweet
	MatchingRules []StreamRule
}

// NormalizeUsername strips a leading "@" from a username.
func NormalizeUsername(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "@")
}

// ThreadNode is a tweet together with the replies to it inside a conversation.
type ThreadNode struct {
	Tweet   *Tweet
	Replies []*ThreadNode
}
