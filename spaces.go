package gotweet

import (
	"context"
	"net/url"
	"strings"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/validation"
)

func spaceQuery() url.Values {
	return url.Values{"space.fields": {spaceFields}}
}

// FetchSpace returns a space by id.
func (c *Client) FetchSpace(ctx context.Context, id string) (*types.Space, error) {
	if !validation.IsValidSpaceID(id) {
		return nil, &ValidationError{Field: "space_id", Message: "must be 13 alphanumeric characters"}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	env, err := c.getEnvelope(ctx, appAuth, "2/spaces/"+id, spaceQuery())
	if err != nil {
		return nil, wrap("fetch space", err)
	}
	space, err := c.parser.ParseSpace(env)
	if err != nil {
		return nil, wrap("fetch space", err)
	}
	return space, nil
}

// SearchSpaces returns spaces whose title matches query. state is live,
// scheduled or all; empty means live.
func (c *Client) SearchSpaces(ctx context.Context, query string, state types.SpaceState) ([]*types.Space, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	switch state {
	case "":
		state = types.SpaceLive
	case types.SpaceLive, types.SpaceScheduled, types.SpaceAll:
	default:
		return nil, &ValidationError{Field: "state", Message: "must be live, scheduled or all"}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	q := spaceQuery()
	q.Set("query", query)
	q.Set("state", string(state))

	env, err := c.getEnvelope(ctx, appAuth, "2/spaces/search", q)
	if err != nil {
		return nil, wrap("search spaces", err)
	}
	spaces, err := c.parser.ParseSpaces(env)
	if err != nil {
		return nil, wrap("search spaces", err)
	}
	return spaces, nil
}
