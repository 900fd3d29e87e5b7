package gotweet

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Field sets requested on every v2 lookup so includes can be attached.
const (
	tweetFields = "attachments,author_id,conversation_id,created_at,edit_history_tweet_ids,entities,geo," +
		"id,in_reply_to_user_id,lang,possibly_sensitive,public_metrics,referenced_tweets,reply_settings,source,text"
	userFields = "created_at,description,entities,id,location,name,pinned_tweet_id,profile_image_url," +
		"protected,public_metrics,url,username,verified"
	mediaFields     = "alt_text,duration_ms,height,media_key,preview_image_url,type,url,width"
	placeFields     = "country,country_code,full_name,geo,id,name,place_type"
	pollFields      = "duration_minutes,end_datetime,id,options,voting_status"
	spaceFields     = "created_at,creator_id,ended_at,host_ids,id,invited_user_ids,is_ticketed,lang,participant_count,scheduled_start,speaker_ids,started_at,state,title"
	listFields      = "created_at,description,follower_count,id,member_count,name,owner_id,private"
	tweetExpansions = "attachments.media_keys,attachments.poll_ids,author_id,geo.place_id"
	userExpansions  = "pinned_tweet_id"
)

// authMode selects how a request is authorized.
type authMode int

const (
	appAuth authMode = iota
	userAuth
)

func tweetQuery() url.Values {
	return url.Values{
		"tweet.fields": {tweetFields},
		"user.fields":  {userFields},
		"media.fields": {mediaFields},
		"place.fields": {placeFields},
		"poll.fields":  {pollFields},
		"expansions":   {tweetExpansions},
	}
}

func userQuery() url.Values {
	return url.Values{
		"user.fields":  {userFields},
		"tweet.fields": {tweetFields},
		"expansions":   {userExpansions},
	}
}

// setPagination adds max_results and the page token under tokenParam.
func setPagination(q url.Values, p types.Pagination, tokenParam string) {
	if p.MaxResults > 0 {
		q.Set("max_results", strconv.Itoa(p.MaxResults))
	}
	if p.PaginationToken != "" {
		q.Set(tokenParam, p.PaginationToken)
	}
}

func setTime(q url.Values, key string, t time.Time) {
	if !t.IsZero() {
		q.Set(key, t.UTC().Format(time.RFC3339))
	}
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// getEnvelope sends a GET request and decodes the v2 response envelope.
func (c *Client) getEnvelope(ctx context.Context, mode authMode, path string, query url.Values) (*internal.Envelope, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	var env internal.Envelope
	if err := c.send(req, mode, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// sendJSON sends a user-context request with an optional JSON body and
// decodes the v2 response envelope.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) (*internal.Envelope, error) {
	var (
		req *http.Request
		err error
	)
	if payload != nil {
		req, err = c.client.NewJSONRequest(ctx, method, path, payload)
	} else {
		req, err = c.client.NewRequest(ctx, method, path, nil)
	}
	if err != nil {
		return nil, err
	}

	var env internal.Envelope
	if err := c.send(req, userAuth, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// sendForm sends a user-context form request, decoding the response into v.
func (c *Client) sendForm(ctx context.Context, host internal.Host, path string, form url.Values, v any) error {
	req, err := c.client.NewFormRequest(ctx, host, http.MethodPost, path, form)
	if err != nil {
		return err
	}
	return c.send(req, userAuth, v)
}

func (c *Client) send(req *http.Request, mode authMode, v any) error {
	var err error
	if mode == userAuth {
		_, err = c.client.DoUser(req, v)
	} else {
		_, err = c.client.Do(req, v)
	}
	return err
}

// relation sends a write action and returns the resulting relation flags.
func (c *Client) relation(ctx context.Context, operation, method, path string, payload any) (*types.Relation, error) {
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}

	env, err := c.sendJSON(ctx, method, path, payload)
	if err != nil {
		return nil, wrap(operation, err)
	}

	rel, err := c.parser.ParseRelation(env)
	if err != nil {
		return nil, wrap(operation, err)
	}
	return rel, nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}
