package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Regular expressions for validating Twitter data formats
var (
	// snowflakeRegex matches numeric snowflake IDs used for tweets, users, lists and DM events
	snowflakeRegex = regexp.MustCompile(`^[0-9]{1,19}$`)

	// usernameRegex matches valid handles (1-15 chars, alphanumeric + underscore)
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

	// mediaKeyRegex matches media keys such as "3_1460323737035677698"
	mediaKeyRegex = regexp.MustCompile(`^[0-9]+_[0-9]+$`)

	// spaceIDRegex matches space IDs such as "1DXxyRYNejbKM"
	spaceIDRegex = regexp.MustCompile(`^[A-Za-z0-9]{13}$`)
)

// MaxTweetLength is the character limit of a standard tweet.
const MaxTweetLength = 280

// twitterEpoch is the earliest plausible creation time of any object.
var twitterEpoch = time.Date(2006, 3, 21, 0, 0, 0, 0, time.UTC)

// IsValidID checks if a string is a numeric snowflake ID
func IsValidID(s string) bool {
	return snowflakeRegex.MatchString(s)
}

// IsValidUsername checks if a string is a valid Twitter handle, without the @
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// IsValidMediaKey checks if a string is a valid media key
func IsValidMediaKey(s string) bool {
	return mediaKeyRegex.MatchString(s)
}

// IsValidSpaceID checks if a string is a valid space ID
func IsValidSpaceID(s string) bool {
	return spaceIDRegex.MatchString(s)
}

// ValidateTwitterObject validates the ID of any object implementing TwitterObject.
func ValidateTwitterObject(obj types.TwitterObject) error {
	if obj == nil {
		return fmt.Errorf("twitter object is nil")
	}
	id := obj.GetID()
	if id == "" {
		return fmt.Errorf("ID is required")
	}
	if !IsValidID(id) {
		return fmt.Errorf("ID has invalid format: %s", id)
	}
	return nil
}

// ValidateCreatedAt checks that a creation timestamp is plausible.
func ValidateCreatedAt(t *time.Time) error {
	if t == nil {
		return nil
	}
	if t.Before(twitterEpoch) {
		return fmt.Errorf("CreatedAt is before Twitter existed: %s", t.Format(time.RFC3339))
	}
	if t.After(time.Now().Add(time.Hour)) {
		return fmt.Errorf("CreatedAt is in the future: %s", t.Format(time.RFC3339))
	}
	return nil
}

// ValidateTweet validates a Tweet struct's fields
func ValidateTweet(t *types.Tweet) error {
	if t == nil {
		return fmt.Errorf("tweet is nil")
	}

	var errs []error

	if err := ValidateTwitterObject(t); err != nil {
		errs = append(errs, err)
	}

	if t.Text == "" && (t.Attachments == nil || len(t.Attachments.MediaKeys) == 0) {
		errs = append(errs, fmt.Errorf("Text is required when the tweet has no media"))
	}

	if t.AuthorID != "" && !IsValidID(t.AuthorID) {
		errs = append(errs, fmt.Errorf("AuthorID has invalid format: %s", t.AuthorID))
	}

	if t.ConversationID != "" && !IsValidID(t.ConversationID) {
		errs = append(errs, fmt.Errorf("ConversationID has invalid format: %s", t.ConversationID))
	}

	if err := ValidateCreatedAt(t.CreatedAt); err != nil {
		errs = append(errs, err)
	}

	for i, ref := range t.ReferencedTweets {
		if !IsValidID(ref.ID) {
			errs = append(errs, fmt.Errorf("ReferencedTweets[%d] has invalid ID: %s", i, ref.ID))
		}
	}

	if t.Attachments != nil {
		for i, key := range t.Attachments.MediaKeys {
			if !IsValidMediaKey(key) {
				errs = append(errs, fmt.Errorf("Attachments.MediaKeys[%d] has invalid format: %s", i, key))
			}
		}
	}

	if t.PublicMetrics != nil {
		m := t.PublicMetrics
		if m.LikeCount < 0 || m.RetweetCount < 0 || m.ReplyCount < 0 || m.QuoteCount < 0 {
			errs = append(errs, fmt.Errorf("PublicMetrics cannot contain negative counts"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("tweet validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateUser validates a User struct's fields
func ValidateUser(u *types.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	var errs []error

	if err := ValidateTwitterObject(u); err != nil {
		errs = append(errs, err)
	}

	if u.Username == "" {
		errs = append(errs, fmt.Errorf("Username is required"))
	} else if !IsValidUsername(u.Username) {
		errs = append(errs, fmt.Errorf("Username has invalid format: %s", u.Username))
	}

	if utf8.RuneCountInString(u.Name) > 50 {
		errs = append(errs, fmt.Errorf("Name exceeds 50 characters"))
	}

	if u.PinnedTweetID != "" && !IsValidID(u.PinnedTweetID) {
		errs = append(errs, fmt.Errorf("PinnedTweetID has invalid format: %s", u.PinnedTweetID))
	}

	if err := ValidateCreatedAt(u.CreatedAt); err != nil {
		errs = append(errs, err)
	}

	if u.PublicMetrics != nil {
		m := u.PublicMetrics
		if m.FollowersCount < 0 || m.FollowingCount < 0 || m.TweetCount < 0 || m.ListedCount < 0 {
			errs = append(errs, fmt.Errorf("PublicMetrics cannot contain negative counts"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("user validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateMedia validates a Media struct's fields
func ValidateMedia(m *types.Media) error {
	if m == nil {
		return fmt.Errorf("media is nil")
	}

	var errs []error

	if !IsValidMediaKey(m.MediaKey) {
		errs = append(errs, fmt.Errorf("MediaKey has invalid format: %s", m.MediaKey))
	}

	switch m.Type {
	case types.MediaPhoto, types.MediaVideo, types.MediaAnimatedGIF:
	default:
		errs = append(errs, fmt.Errorf("Type is unknown: %q", m.Type))
	}

	if m.Width < 0 || m.Height < 0 {
		errs = append(errs, fmt.Errorf("dimensions cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("media validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateSpace validates a Space struct's fields
func ValidateSpace(s *types.Space) error {
	if s == nil {
		return fmt.Errorf("space is nil")
	}

	var errs []error

	if !IsValidSpaceID(s.ID) {
		errs = append(errs, fmt.Errorf("ID has invalid format: %s", s.ID))
	}

	switch s.State {
	case types.SpaceLive, types.SpaceScheduled, types.SpaceEnded:
	default:
		errs = append(errs, fmt.Errorf("State is unknown: %q", s.State))
	}

	for i, id := range s.HostIDs {
		if !IsValidID(id) {
			errs = append(errs, fmt.Errorf("HostIDs[%d] has invalid format: %s", i, id))
		}
	}

	if s.ParticipantCount < 0 {
		errs = append(errs, fmt.Errorf("ParticipantCount cannot be negative, got %d", s.ParticipantCount))
	}

	if len(errs) > 0 {
		return fmt.Errorf("space validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateDirectMessage validates a DirectMessage struct's fields
func ValidateDirectMessage(m *types.DirectMessage) error {
	if m == nil {
		return fmt.Errorf("message is nil")
	}

	var errs []error

	if err := ValidateTwitterObject(m); err != nil {
		errs = append(errs, err)
	}

	if m.SenderID != "" && !IsValidID(m.SenderID) {
		errs = append(errs, fmt.Errorf("SenderID has invalid format: %s", m.SenderID))
	}

	if m.RecipientID == "" {
		errs = append(errs, fmt.Errorf("RecipientID is required"))
	} else if !IsValidID(m.RecipientID) {
		errs = append(errs, fmt.Errorf("RecipientID has invalid format: %s", m.RecipientID))
	}

	if m.Text == "" && m.MediaID == "" {
		errs = append(errs, fmt.Errorf("Text or MediaID is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("message validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// joinValidationErrors combines multiple errors into a single error message
func joinValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
