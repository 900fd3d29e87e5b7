package internal

import (
	"fmt"
	"strings"
	"unicode/utf8"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/validation"
)

const (
	// Tweet constraints
	maxTweetLength      = validation.MaxTweetLength
	minPollOptions      = 2
	maxPollOptions      = 4
	maxPollOptionLength = 25
	minPollDuration     = 5
	maxPollDuration     = 10080
	maxTweetMedia       = 4
	MaxIDsPerRequest    = 100

	// Direct message constraints
	maxMessageLength     = 10000
	maxQuickReplyOptions = 20
	maxCTAs              = 3

	// User agent constraints
	maxUserAgentLength = 256
)

// Validator provides validation operations for Twitter API parameters.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateID checks that id is a numeric snowflake.
func (v *Validator) ValidateID(field, id string) error {
	if id == "" {
		return &pkgerrs.ValidationError{Field: field, Message: "cannot be empty"}
	}
	if !validation.IsValidID(id) {
		return &pkgerrs.ValidationError{Field: field, Message: fmt.Sprintf("%q is not a numeric id", id)}
	}
	return nil
}

// ValidateIDs checks every id and the request size limit.
func (v *Validator) ValidateIDs(field string, ids []string) error {
	if len(ids) == 0 {
		return &pkgerrs.ValidationError{Field: field, Message: "at least one id is required"}
	}
	if len(ids) > MaxIDsPerRequest {
		return &pkgerrs.ValidationError{Field: field, Message: fmt.Sprintf("cannot request more than %d ids at once (got %d)", MaxIDsPerRequest, len(ids))}
	}
	for i, id := range ids {
		if err := v.ValidateID(fmt.Sprintf("%s[%d]", field, i), id); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUsername checks a handle with any leading @ already removed.
func (v *Validator) ValidateUsername(name string) error {
	if name == "" {
		return &pkgerrs.ValidationError{Field: "username", Message: "cannot be empty"}
	}
	if !validation.IsValidUsername(name) {
		return &pkgerrs.ValidationError{Field: "username", Message: fmt.Sprintf("%q is not a valid username", name)}
	}
	return nil
}

// ValidatePagination checks the page size against the endpoint's bounds.
func (v *Validator) ValidatePagination(p *types.Pagination, min, max int) error {
	if p == nil || p.MaxResults == 0 {
		return nil
	}
	if p.MaxResults < min || p.MaxResults > max {
		return &pkgerrs.ValidationError{Field: "max_results", Message: fmt.Sprintf("must be between %d and %d (got %d)", min, max, p.MaxResults)}
	}
	return nil
}

// ValidatePostTweet checks a tweet before any media is uploaded.
func (v *Validator) ValidatePostTweet(req *types.PostTweetRequest) error {
	if req == nil {
		return &pkgerrs.ValidationError{Message: "tweet request is nil"}
	}

	mediaCount := len(req.Media) + len(req.MediaIDs)
	if strings.TrimSpace(req.Text) == "" && mediaCount == 0 && req.Poll == nil && req.QuoteTweetID == "" {
		return &pkgerrs.ValidationError{Field: "text", Message: "text is required when no media, poll or quote is attached"}
	}
	if n := utf8.RuneCountInString(req.Text); n > maxTweetLength {
		return &pkgerrs.ValidationError{Field: "text", Message: fmt.Sprintf("exceeds %d characters (got %d)", maxTweetLength, n)}
	}
	if mediaCount > maxTweetMedia {
		return &pkgerrs.ValidationError{Field: "media", Message: fmt.Sprintf("at most %d media items can be attached (got %d)", maxTweetMedia, mediaCount)}
	}
	if req.Poll != nil && mediaCount > 0 {
		return &pkgerrs.ValidationError{Field: "poll", Message: "a tweet cannot carry both a poll and media"}
	}
	if req.Poll != nil {
		if err := v.validatePoll(req.Poll); err != nil {
			return err
		}
	}
	if req.ReplySettings != "" && !req.ReplySettings.Valid() {
		return &pkgerrs.ValidationError{Field: "reply_settings", Message: fmt.Sprintf("unknown reply setting %q", req.ReplySettings)}
	}
	if req.QuoteTweetID != "" {
		if err := v.ValidateID("quote_tweet_id", req.QuoteTweetID); err != nil {
			return err
		}
	}
	if req.InReplyToTweetID != "" {
		if err := v.ValidateID("reply.in_reply_to_tweet_id", req.InReplyToTweetID); err != nil {
			return err
		}
	} else if len(req.ExcludeReplyUserIDs) > 0 {
		return &pkgerrs.ValidationError{Field: "reply.exclude_reply_user_ids", Message: "only valid on replies"}
	}
	for i, f := range req.Media {
		if f == nil || f.Reader == nil {
			return &pkgerrs.ValidationError{Field: fmt.Sprintf("media[%d]", i), Message: "file has no reader"}
		}
	}
	return nil
}

func (v *Validator) validatePoll(poll *types.PollRequest) error {
	if n := len(poll.Options); n < minPollOptions || n > maxPollOptions {
		return &pkgerrs.ValidationError{Field: "poll.options", Message: fmt.Sprintf("a poll needs %d to %d options (got %d)", minPollOptions, maxPollOptions, n)}
	}
	for i, opt := range poll.Options {
		n := utf8.RuneCountInString(opt)
		if n == 0 || n > maxPollOptionLength {
			return &pkgerrs.ValidationError{Field: fmt.Sprintf("poll.options[%d]", i), Message: fmt.Sprintf("must be 1 to %d characters", maxPollOptionLength)}
		}
	}
	if poll.DurationMinutes < minPollDuration || poll.DurationMinutes > maxPollDuration {
		return &pkgerrs.ValidationError{Field: "poll.duration_minutes", Message: fmt.Sprintf("must be between %d and %d", minPollDuration, maxPollDuration)}
	}
	return nil
}

// ValidateMessage checks a direct message before any media is uploaded.
func (v *Validator) ValidateMessage(recipientID string, req *types.MessageRequest) error {
	if err := v.ValidateID("recipient_id", recipientID); err != nil {
		return err
	}
	if req == nil {
		return &pkgerrs.ValidationError{Message: "message request is nil"}
	}
	if req.Text == "" && req.Media == nil {
		return &pkgerrs.ValidationError{Field: "text", Message: "text or media is required"}
	}
	if n := utf8.RuneCountInString(req.Text); n > maxMessageLength {
		return &pkgerrs.ValidationError{Field: "text", Message: fmt.Sprintf("exceeds %d characters (got %d)", maxMessageLength, n)}
	}
	if req.QuickReply != nil {
		if n := len(req.QuickReply.Options); n == 0 || n > maxQuickReplyOptions {
			return &pkgerrs.ValidationError{Field: "quick_reply.options", Message: fmt.Sprintf("must have 1 to %d options (got %d)", maxQuickReplyOptions, n)}
		}
	}
	if len(req.CTAs) > maxCTAs {
		return &pkgerrs.ValidationError{Field: "ctas", Message: fmt.Sprintf("at most %d buttons are allowed (got %d)", maxCTAs, len(req.CTAs))}
	}
	for i, cta := range req.CTAs {
		if cta.Label == "" || cta.URL == "" {
			return &pkgerrs.ValidationError{Field: fmt.Sprintf("ctas[%d]", i), Message: "label and url are required"}
		}
	}
	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func (v *Validator) ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot be empty"}
	}

	if strings.ContainsAny(ua, "\r\n") {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot contain newline characters"}
	}

	// net/http refuses header values with other control bytes at send time.
	if strings.IndexFunc(ua, func(r rune) bool { return (r < 0x20 && r != '\t') || r == 0x7f }) >= 0 {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot contain control characters"}
	}

	if len(ua) > maxUserAgentLength {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: fmt.Sprintf("user agent too long (max %d characters)", maxUserAgentLength)}
	}

	return nil
}
