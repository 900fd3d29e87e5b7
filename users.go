package gotweet

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Me returns the account the access token belongs to.
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}

	env, err := c.getEnvelope(ctx, userAuth, "2/users/me", userQuery())
	if err != nil {
		return nil, wrap("fetch me", err)
	}

	user, err := c.parser.ParseUser(env)
	if err != nil {
		return nil, wrap("fetch me", err)
	}

	c.mu.Lock()
	c.userID = user.ID
	c.mu.Unlock()
	c.cache.AddUser(user)
	return user, nil
}

// FetchUser returns a user by id, with the pinned tweet attached when set.
//
// A missing or suspended user yields an error matching ErrNotFound.
func (c *Client) FetchUser(ctx context.Context, id string) (*types.User, error) {
	if err := c.validator.ValidateID("user_id", id); err != nil {
		return nil, err
	}
	if user, ok := c.cache.User(id); ok {
		return user, nil
	}
	return c.fetchUser(ctx, "fetch user", "2/users/"+id)
}

// FetchUserByUsername returns a user by handle. A leading "@" is ignored.
func (c *Client) FetchUserByUsername(ctx context.Context, username string) (*types.User, error) {
	name := types.NormalizeUsername(username)
	if err := c.validator.ValidateUsername(name); err != nil {
		return nil, err
	}
	return c.fetchUser(ctx, "fetch user by username", "2/users/by/username/"+name)
}

func (c *Client) fetchUser(ctx context.Context, operation, path string) (*types.User, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	env, err := c.getEnvelope(ctx, appAuth, path, userQuery())
	if err != nil {
		return nil, wrap(operation, err)
	}

	user, err := c.parser.ParseUser(env)
	if err != nil {
		return nil, wrap(operation, err)
	}

	c.cache.AddUser(user)
	return user, nil
}

// FetchUsers looks up users by id. More than 100 ids are split into batches
// fetched in parallel. Ids the API could not find are left out.
func (c *Client) FetchUsers(ctx context.Context, ids []string) ([]*types.User, error) {
	if len(ids) == 0 {
		return []*types.User{}, nil
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	users, err := fetchChunked(ctx, ids, func(ctx context.Context, batch []string) ([]*types.User, error) {
		if err := c.validator.ValidateIDs("ids", batch); err != nil {
			return nil, err
		}
		q := userQuery()
		q.Set("ids", joinIDs(batch))

		env, err := c.getEnvelope(ctx, appAuth, "2/users", q)
		if err != nil {
			return nil, err
		}
		resp, err := c.parser.ParseUsers(env)
		if err != nil {
			return nil, err
		}
		return resp.Users, nil
	})
	if err != nil {
		return nil, wrap("fetch users", err)
	}

	for _, u := range users {
		c.cache.AddUser(u)
	}
	return users, nil
}

// FetchPinnedTweet returns the user's pinned tweet, or nil when none is pinned.
func (c *Client) FetchPinnedTweet(ctx context.Context, userID string) (*types.Tweet, error) {
	user, err := c.FetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.PinnedTweetID == "" {
		return nil, nil
	}
	if user.PinnedTweet != nil && user.PinnedTweet.Text != "" {
		return user.PinnedTweet, nil
	}
	return c.FetchTweet(ctx, user.PinnedTweetID)
}

// Follow follows targetID. Protected accounts report PendingFollow instead.
func (c *Client) Follow(ctx context.Context, targetID string) (*types.Relation, error) {
	return c.userAction(ctx, "follow", http.MethodPost, "following", targetID)
}

// Unfollow stops following targetID.
func (c *Client) Unfollow(ctx context.Context, targetID string) (*types.Relation, error) {
	return c.userAction(ctx, "unfollow", http.MethodDelete, "following", targetID)
}

// Block blocks targetID.
func (c *Client) Block(ctx context.Context, targetID string) (*types.Relation, error) {
	return c.userAction(ctx, "block", http.MethodPost, "blocking", targetID)
}

// Unblock unblocks targetID.
func (c *Client) Unblock(ctx context.Context, targetID string) (*types.Relation, error) {
	return c.userAction(ctx, "unblock", http.MethodDelete, "blocking", targetID)
}

// Mute mutes targetID.
func (c *Client) Mute(ctx context.Context, targetID string) (*types.Relation, error) {
	return c.userAction(ctx, "mute", http.MethodPost, "muting", targetID)
}

// Unmute unmutes targetID.
func (c *Client) Unmute(ctx context.Context, targetID string) (*types.Relation, error) {
	return c.userAction(ctx, "unmute", http.MethodDelete, "muting", targetID)
}

func (c *Client) userAction(ctx context.Context, operation, method, collection, targetID string) (*types.Relation, error) {
	if err := c.validator.ValidateID("target_user_id", targetID); err != nil {
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
		path += "/" + targetID
	} else {
		payload = map[string]string{"target_user_id": targetID}
	}
	return c.relation(ctx, operation, method, path, payload)
}

// ReportSpam reports userID as spam, optionally blocking it as well.
func (c *Client) ReportSpam(ctx context.Context, userID string, block bool) error {
	if err := c.validator.ValidateID("user_id", userID); err != nil {
		return err
	}
	if err := c.requireUser(ctx); err != nil {
		return err
	}

	form := url.Values{
		"user_id":       {userID},
		"perform_block": {strconv.FormatBool(block)},
	}
	return wrap("report spam", c.sendForm(ctx, internal.HostAPI, "1.1/users/report_spam.json", form, nil))
}

// FetchFollowers returns a page of accounts following userID.
func (c *Client) FetchFollowers(ctx context.Context, userID string, page types.Pagination) (*types.UsersResponse, error) {
	return c.fetchUserPage(ctx, "fetch followers", "2/users/"+userID+"/followers", userID, page, 1, 1000)
}

// FetchFollowing returns a page of accounts userID follows.
func (c *Client) FetchFollowing(ctx context.Context, userID string, page types.Pagination) (*types.UsersResponse, error) {
	return c.fetchUserPage(ctx, "fetch following", "2/users/"+userID+"/following", userID, page, 1, 1000)
}

// FetchBlocking returns a page of accounts blocked by the authenticated account.
func (c *Client) FetchBlocking(ctx context.Context, page types.Pagination) (*types.UsersResponse, error) {
	return c.fetchOwnUserPage(ctx, "fetch blocking", "blocking", page)
}

// FetchMuting returns a page of accounts muted by the authenticated account.
func (c *Client) FetchMuting(ctx context.Context, page types.Pagination) (*types.UsersResponse, error) {
	return c.fetchOwnUserPage(ctx, "fetch muting", "muting", page)
}

func (c *Client) fetchOwnUserPage(ctx context.Context, operation, collection string, page types.Pagination) (*types.UsersResponse, error) {
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}
	userID, err := c.UserID(ctx)
	if err != nil {
		return nil, wrap(operation, err)
	}
	return c.fetchUserPageAs(ctx, userAuth, operation, "2/users/"+userID+"/"+collection, userID, page, 1, 1000)
}

func (c *Client) fetchUserPage(ctx context.Context, operation, path, id string, page types.Pagination, min, max int) (*types.UsersResponse, error) {
	return c.fetchUserPageAs(ctx, appAuth, operation, path, id, page, min, max)
}

func (c *Client) fetchUserPageAs(ctx context.Context, mode authMode, operation, path, id string, page types.Pagination, min, max int) (*types.UsersResponse, error) {
	if err := c.validator.ValidateID("id", id); err != nil {
		return nil, err
	}
	if err := c.validator.ValidatePagination(&page, min, max); err != nil {
		return nil, err
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	q := userQuery()
	setPagination(q, page, "pagination_token")

	env, err := c.getEnvelope(ctx, mode, path, q)
	if err != nil {
		return nil, wrap(operation, err)
	}
	resp, err := c.parser.ParseUsers(env)
	if err != nil {
		return nil, wrap(operation, err)
	}
	for _, u := range resp.Users {
		c.cache.AddUser(u)
	}
	return resp, nil
}

// FetchTimeline returns a page of tweets posted by userID, newest first.
func (c *Client) FetchTimeline(ctx context.Context, userID string, req *types.TimelineRequest) (*types.TweetsResponse, error) {
	return c.fetchTimeline(ctx, "fetch timeline", "2/users/"+userID+"/tweets", userID, req, true)
}

// FetchMentions returns a page of tweets mentioning userID.
func (c *Client) FetchMentions(ctx context.Context, userID string, req *types.TimelineRequest) (*types.TweetsResponse, error) {
	return c.fetchTimeline(ctx, "fetch mentions", "2/users/"+userID+"/mentions", userID, req, false)
}

func (c *Client) fetchTimeline(ctx context.Context, operation, path, userID string, req *types.TimelineRequest, allowExclude bool) (*types.TweetsResponse, error) {
	if req == nil {
		req = &types.TimelineRequest{}
	}
	if err := c.validator.ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	if err := c.validator.ValidatePagination(&req.Pagination, 5, 100); err != nil {
		return nil, err
	}
	for _, e := range req.Exclude {
		if !allowExclude || (e != "retweets" && e != "replies") {
			return nil, &ValidationError{Field: "exclude", Message: "only retweets and replies can be excluded from a user timeline"}
		}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	q := tweetQuery()
	setPagination(q, req.Pagination, "pagination_token")
	setTime(q, "start_time", req.StartTime)
	setTime(q, "end_time", req.EndTime)
	setIfNotEmpty(q, "since_id", req.SinceID)
	setIfNotEmpty(q, "until_id", req.UntilID)
	if len(req.Exclude) > 0 {
		q.Set("exclude", joinIDs(req.Exclude))
	}

	return c.fetchTweetPage(ctx, operation, path, q, appAuth)
}

// FetchLikedTweets returns a page of tweets liked by userID.
func (c *Client) FetchLikedTweets(ctx context.Context, userID string, page types.Pagination) (*types.TweetsResponse, error) {
	if err := c.validator.ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	if err := c.validator.ValidatePagination(&page, 10, 100); err != nil {
		return nil, err
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	q := tweetQuery()
	setPagination(q, page, "pagination_token")
	return c.fetchTweetPage(ctx, "fetch liked tweets", "2/users/"+userID+"/liked_tweets", q, appAuth)
}

// FetchOwnedLists returns a page of lists owned by userID.
func (c *Client) FetchOwnedLists(ctx context.Context, userID string, page types.Pagination) (*types.ListsResponse, error) {
	return c.fetchLists(ctx, appAuth, "fetch owned lists", "2/users/"+userID+"/owned_lists", userID, page)
}

// FetchListMemberships returns a page of lists userID is a member of.
func (c *Client) FetchListMemberships(ctx context.Context, userID string, page types.Pagination) (*types.ListsResponse, error) {
	return c.fetchLists(ctx, appAuth, "fetch list memberships", "2/users/"+userID+"/list_memberships", userID, page)
}

// FetchFollowedLists returns a page of lists userID follows.
func (c *Client) FetchFollowedLists(ctx context.Context, userID string, page types.Pagination) (*types.ListsResponse, error) {
	return c.fetchLists(ctx, appAuth, "fetch followed lists", "2/users/"+userID+"/followed_lists", userID, page)
}

// FetchPinnedLists returns the lists pinned by the authenticated account.
func (c *Client) FetchPinnedLists(ctx context.Context) (*types.ListsResponse, error) {
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}
	userID, err := c.UserID(ctx)
	if err != nil {
		return nil, wrap("fetch pinned lists", err)
	}
	return c.fetchLists(ctx, userAuth, "fetch pinned lists", "2/users/"+userID+"/pinned_lists", userID, types.Pagination{})
}

func (c *Client) fetchLists(ctx context.Context, mode authMode, operation, path, userID string, page types.Pagination) (*types.ListsResponse, error) {
	if err := c.validator.ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	if err := c.validator.ValidatePagination(&page, 1, 100); err != nil {
		return nil, err
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	q := url.Values{"list.fields": {listFields}}
	setPagination(q, page, "pagination_token")

	env, err := c.getEnvelope(ctx, mode, path, q)
	if err != nil {
		return nil, wrap(operation, err)
	}
	resp, err := c.parser.ParseLists(env)
	if err != nil {
		return nil, wrap(operation, err)
	}
	return resp, nil
}

// FetchSettings returns the account settings of the authenticated account.
func (c *Client) FetchSettings(ctx context.Context) (*types.Settings, error) {
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, "1.1/account/settings.json", nil)
	if err != nil {
		return nil, err
	}

	var settings types.Settings
	if err := c.send(req, userAuth, &settings); err != nil {
		return nil, wrap("fetch settings", err)
	}
	return &settings, nil
}

// legacyUser is the v1.1 user object returned by account endpoints.
type legacyUser struct {
	IDStr           string `json:"id_str"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	Description     string `json:"description"`
	Location        string `json:"location"`
	URL             string `json:"url"`
	Protected       bool   `json:"protected"`
	Verified        bool   `json:"verified"`
	ProfileImageURL string `json:"profile_image_url_https"`
}

func (u *legacyUser) toUser() *types.User {
	return &types.User{
		ID:              u.IDStr,
		Name:            u.Name,
		Username:        u.ScreenName,
		Description:     u.Description,
		Location:        u.Location,
		URL:             u.URL,
		Protected:       u.Protected,
		Verified:        u.Verified,
		ProfileImageURL: u.ProfileImageURL,
	}
}

// UpdateProfile changes the profile fields that are set in update.
func (c *Client) UpdateProfile(ctx context.Context, update *types.ProfileUpdate) (*types.User, error) {
	if update == nil {
		return nil, &ValidationError{Message: "profile update is nil"}
	}

	form := url.Values{}
	for key, value := range map[string]*string{
		"name":        update.Name,
		"url":         update.URL,
		"location":    update.Location,
		"description": update.Description,
	} {
		if value != nil {
			form.Set(key, *value)
		}
	}
	if len(form) == 0 {
		return nil, &ValidationError{Message: "no profile fields to update"}
	}
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}

	var result legacyUser
	if err := c.sendForm(ctx, internal.HostAPI, "1.1/account/update_profile.json", form, &result); err != nil {
		return nil, wrap("update profile", err)
	}

	user := result.toUser()
	c.cache.AddUser(user)
	return user, nil
}

// UpdateProfileBanner uploads a new profile banner image.
func (c *Client) UpdateProfileBanner(ctx context.Context, image io.Reader) error {
	if image == nil {
		return &ValidationError{Field: "banner", Message: "image reader is nil"}
	}
	if err := c.requireUser(ctx); err != nil {
		return err
	}

	data, err := io.ReadAll(image)
	if err != nil {
		return wrap("update profile banner", err)
	}
	if len(data) == 0 {
		return &ValidationError{Field: "banner", Message: "image is empty"}
	}

	form := url.Values{"banner": {base64.StdEncoding.EncodeToString(data)}}
	return wrap("update profile banner", c.sendForm(ctx, internal.HostAPI, "1.1/account/update_profile_banner.json", form, nil))
}

// RemoveProfileBanner removes the profile banner.
func (c *Client) RemoveProfileBanner(ctx context.Context) error {
	if err := c.requireUser(ctx); err != nil {
		return err
	}
	return wrap("remove profile banner", c.sendForm(ctx, internal.HostAPI, "1.1/account/remove_profile_banner.json", url.Values{}, nil))
}
