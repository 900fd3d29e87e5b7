package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/buger/jsonparser"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Includes is the "includes" object of a v2 response, holding the objects
// referenced by the requested expansions.
type Includes struct {
	Users  []*types.User  `json:"users,omitempty"`
	Tweets []*types.Tweet `json:"tweets,omitempty"`
	Media  []*types.Media `json:"media,omitempty"`
	Polls  []*types.Poll  `json:"polls,omitempty"`
	Places []*types.Place `json:"places,omitempty"`
}

// Envelope is the top-level shape of every v2 response.
type Envelope struct {
	Data     json.RawMessage `json:"data"`
	Includes Includes        `json:"includes"`
	Meta     types.Meta      `json:"meta"`
}

// Empty reports whether the envelope carries no data.
func (e *Envelope) Empty() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}

// Parser handles parsing of Twitter v2 responses
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseTweet extracts a single tweet and attaches its includes.
func (p *Parser) ParseTweet(env *Envelope) (*types.Tweet, error) {
	if env == nil || env.Empty() {
		return nil, &pkgerrs.ParseError{Operation: "parse tweet", Message: "response has no data"}
	}

	var tweet types.Tweet
	if err := json.Unmarshal(env.Data, &tweet); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse tweet", Err: err}
	}
	newIndex(&env.Includes).attachTweets([]*types.Tweet{&tweet})
	return &tweet, nil
}

// ParseTweets extracts a page of tweets. A result_count of zero yields an
// empty page.
func (p *Parser) ParseTweets(env *Envelope) (*types.TweetsResponse, error) {
	if env == nil {
		return nil, &pkgerrs.ParseError{Operation: "parse tweets", Message: "envelope is nil"}
	}

	resp := &types.TweetsResponse{Meta: env.Meta, Tweets: []*types.Tweet{}}
	if env.Empty() {
		return resp, nil
	}

	if err := json.Unmarshal(env.Data, &resp.Tweets); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse tweets", Err: err}
	}
	newIndex(&env.Includes).attachTweets(resp.Tweets)
	return resp, nil
}

// ParseUser extracts a single user and attaches a pinned tweet if expanded.
func (p *Parser) ParseUser(env *Envelope) (*types.User, error) {
	if env == nil || env.Empty() {
		return nil, &pkgerrs.ParseError{Operation: "parse user", Message: "response has no data"}
	}

	var user types.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse user", Err: err}
	}
	newIndex(&env.Includes).attachUsers([]*types.User{&user})
	return &user, nil
}

// ParseUsers extracts a page of users.
func (p *Parser) ParseUsers(env *Envelope) (*types.UsersResponse, error) {
	if env == nil {
		return nil, &pkgerrs.ParseError{Operation: "parse users", Message: "envelope is nil"}
	}

	resp := &types.UsersResponse{Meta: env.Meta, Users: []*types.User{}}
	if env.Empty() {
		return resp, nil
	}

	if err := json.Unmarshal(env.Data, &resp.Users); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse users", Err: err}
	}
	newIndex(&env.Includes).attachUsers(resp.Users)
	return resp, nil
}

// ParseLists extracts a page of lists.
func (p *Parser) ParseLists(env *Envelope) (*types.ListsResponse, error) {
	if env == nil {
		return nil, &pkgerrs.ParseError{Operation: "parse lists", Message: "envelope is nil"}
	}

	resp := &types.ListsResponse{Meta: env.Meta, Lists: []*types.List{}}
	if env.Empty() {
		return resp, nil
	}

	if err := json.Unmarshal(env.Data, &resp.Lists); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse lists", Err: err}
	}
	return resp, nil
}

// ParseSpace extracts a single space.
func (p *Parser) ParseSpace(env *Envelope) (*types.Space, error) {
	if env == nil || env.Empty() {
		return nil, &pkgerrs.ParseError{Operation: "parse space", Message: "response has no data"}
	}

	var space types.Space
	if err := json.Unmarshal(env.Data, &space); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse space", Err: err}
	}
	return &space, nil
}

// ParseSpaces extracts a list of spaces.
func (p *Parser) ParseSpaces(env *Envelope) ([]*types.Space, error) {
	if env == nil {
		return nil, &pkgerrs.ParseError{Operation: "parse spaces", Message: "envelope is nil"}
	}
	spaces := []*types.Space{}
	if env.Empty() {
		return spaces, nil
	}
	if err := json.Unmarshal(env.Data, &spaces); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse spaces", Err: err}
	}
	return spaces, nil
}

// ParseRelation extracts the boolean state returned by write actions.
func (p *Parser) ParseRelation(env *Envelope) (*types.Relation, error) {
	if env == nil || env.Empty() {
		return nil, &pkgerrs.ParseError{Operation: "parse relation", Message: "response has no data"}
	}

	var rel types.Relation
	if err := json.Unmarshal(env.Data, &rel); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "parse relation", Err: err}
	}
	return &rel, nil
}

type includeIndex struct {
	users  map[string]*types.User
	tweets map[string]*types.Tweet
	media  map[string]*types.Media
	polls  map[string]*types.Poll
	places map[string]*types.Place
}

func newIndex(inc *Includes) *includeIndex {
	idx := &includeIndex{
		users:  make(map[string]*types.User, len(inc.Users)),
		tweets: make(map[string]*types.Tweet, len(inc.Tweets)),
		media:  make(map[string]*types.Media, len(inc.Media)),
		polls:  make(map[string]*types.Poll, len(inc.Polls)),
		places: make(map[string]*types.Place, len(inc.Places)),
	}
	for _, u := range inc.Users {
		if u != nil {
			idx.users[u.ID] = u
		}
	}
	for _, t := range inc.Tweets {
		if t != nil {
			idx.tweets[t.ID] = t
		}
	}
	for _, m := range inc.Media {
		if m != nil {
			idx.media[m.MediaKey] = m
		}
	}
	for _, pl := range inc.Polls {
		if pl != nil {
			idx.polls[pl.ID] = pl
		}
	}
	for _, pl := range inc.Places {
		if pl != nil {
			idx.places[pl.ID] = pl
		}
	}
	return idx
}

func (idx *includeIndex) attachTweets(tweets []*types.Tweet) {
	for _, t := range tweets {
		if t == nil {
			continue
		}
		if u, ok := idx.users[t.AuthorID]; ok {
			t.Author = u
		}
		if t.Attachments != nil {
			for _, key := range t.Attachments.MediaKeys {
				if m, ok := idx.media[key]; ok {
					t.Media = append(t.Media, m)
				}
			}
			for _, id := range t.Attachments.PollIDs {
				if poll, ok := idx.polls[id]; ok {
					t.Poll = poll
					break
				}
			}
		}
		if t.Geo != nil {
			t.Place = idx.places[t.Geo.PlaceID]
		}
	}
}

func (idx *includeIndex) attachUsers(users []*types.User) {
	for _, u := range users {
		if u == nil || u.PinnedTweetID == "" {
			continue
		}
		if t, ok := idx.tweets[u.PinnedTweetID]; ok {
			u.PinnedTweet = t
		}
	}
}

// CheckResponse turns an error response into an *errors.APIError. Successful
// v2 responses are also inspected: a 200 that carries only an "errors" array
// (for example "Could not find tweet with id") is reported as an error.
func CheckResponse(resp *http.Response, body []byte) *pkgerrs.APIError {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ParseAPIError(resp, body)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if _, dataType, _, err := jsonparser.Get(body, "data"); err == nil && dataType != jsonparser.Null {
		return nil
	}
	if _, _, _, err := jsonparser.Get(body, "errors", "[0]"); err != nil {
		return nil
	}

	return ParseAPIError(resp, body)
}

// ParseAPIError builds an APIError from a v2 problem document, a v1.1
// errors array or, failing both, the raw body text.
func ParseAPIError(resp *http.Response, body []byte) *pkgerrs.APIError {
	apiErr := &pkgerrs.APIError{
		StatusCode: resp.StatusCode,
		RateLimit:  ParseRateLimit(resp.Header),
	}

	apiErr.Title, _ = jsonparser.GetString(body, "title")
	apiErr.Detail, _ = jsonparser.GetString(body, "detail")
	apiErr.Type, _ = jsonparser.GetString(body, "type")
	apiErr.Errors = parseProblems(body)

	if len(apiErr.Errors) > 0 {
		first := apiErr.Errors[0]
		if apiErr.Title == "" {
			apiErr.Title = first.Title
		}
		if apiErr.Detail == "" {
			apiErr.Detail = first.Detail
		}
		if apiErr.Detail == "" {
			apiErr.Detail = first.Message
		}
		if apiErr.Type == "" {
			apiErr.Type = first.Type
		}
	}

	if apiErr.Detail == "" {
		if msg, err := jsonparser.GetString(body, "error"); err == nil {
			apiErr.Detail = msg
		}
	}

	trimmed := bytes.TrimSpace(body)
	if apiErr.Title == "" && apiErr.Detail == "" && len(trimmed) > 0 && trimmed[0] != '{' {
		const maxText = 200
		if len(trimmed) > maxText {
			trimmed = trimmed[:maxText]
		}
		apiErr.Detail = string(trimmed)
	}

	return apiErr
}

func parseProblems(body []byte) []pkgerrs.ProblemDetail {
	var problems []pkgerrs.ProblemDetail
	_, _ = jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil || dataType != jsonparser.Object {
			return
		}
		var pd pkgerrs.ProblemDetail
		pd.Title, _ = jsonparser.GetString(value, "title")
		pd.Detail, _ = jsonparser.GetString(value, "detail")
		pd.Type, _ = jsonparser.GetString(value, "type")
		pd.Message, _ = jsonparser.GetString(value, "message")
		pd.ResourceType, _ = jsonparser.GetString(value, "resource_type")
		pd.Parameter, _ = jsonparser.GetString(value, "parameter")
		if code, err := jsonparser.GetInt(value, "code"); err == nil {
			pd.Code = int(code)
		}
		if raw, _, _, err := jsonparser.Get(value, "value"); err == nil {
			pd.Value = string(raw)
		}
		problems = append(problems, pd)
	}, "errors")
	return problems
}

// ParseRateLimit reads the x-rate-limit-* headers. It returns nil when the
// remaining count or the reset time is missing.
func ParseRateLimit(h http.Header) *pkgerrs.RateLimit {
	remaining, errRemaining := strconv.Atoi(h.Get("X-Rate-Limit-Remaining"))
	reset, errReset := strconv.ParseInt(h.Get("X-Rate-Limit-Reset"), 10, 64)
	if errRemaining != nil || errReset != nil || reset <= 0 {
		return nil
	}

	limit, _ := strconv.Atoi(h.Get("X-Rate-Limit-Limit"))
	return &pkgerrs.RateLimit{
		Limit:     limit,
		Remaining: remaining,
		Reset:     time.Unix(reset, 0),
	}
}
