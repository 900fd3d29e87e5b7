package gotweet_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

func TestFetchSpace(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("GET /2/spaces/1DXxyRYNejbKM", http.StatusOK, `{"data":{"id":"1DXxyRYNejbKM","state":"live","title":"hello world","host_ids":["2244994945"],"participant_count":12}}`)

	space, err := client.FetchSpace(context.Background(), "1DXxyRYNejbKM")
	require.NoError(t, err)
	assert.Equal(t, types.SpaceLive, space.State)
	assert.Equal(t, "hello world", space.Title)
	assert.Equal(t, 12, space.ParticipantCount)

	entry := lastRequest(t, server, "/2/spaces/1DXxyRYNejbKM")
	assert.NotEmpty(t, entry.Query.Get("space.fields"))
	assert.Equal(t, "Bearer AAAA", entry.Headers.Get("Authorization"))
}

func TestFetchSpace_InvalidID(t *testing.T) {
	client, server := newTestClient(t)

	_, err := client.FetchSpace(context.Background(), "1DXxy")
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "space_id", valErr.Field)
	assert.Empty(t, server.GetRequestLog())
}

func TestSearchSpaces(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("GET /2/spaces/search", http.StatusOK, `{"data":[{"id":"1DXxyRYNejbKM","state":"live","title":"hello"},{"id":"1nAJELYEEPvGL","state":"live","title":"hello again"}],"meta":{"result_count":2}}`)

	spaces, err := client.SearchSpaces(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Len(t, spaces, 2)

	entry := lastRequest(t, server, "/2/spaces/search")
	assert.Equal(t, "hello", entry.Query.Get("query"))
	assert.Equal(t, "live", entry.Query.Get("state"))

	_, err = client.SearchSpaces(context.Background(), "hello", types.SpaceScheduled)
	require.NoError(t, err)
	assert.Equal(t, "scheduled", lastRequest(t, server, "/2/spaces/search").Query.Get("state"))
}

func TestSearchSpaces_Validation(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.SearchSpaces(ctx, " ", "")
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "query", valErr.Field)

	_, err = client.SearchSpaces(ctx, "hello", types.SpaceEnded)
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "state", valErr.Field)
}

func TestSearchSpaces_NoResults(t *testing.T) {
	client, server := newTestClient(t)
	server.SetJSON("GET /2/spaces/search", http.StatusOK, `{"meta":{"result_count":0}}`)

	spaces, err := client.SearchSpaces(context.Background(), "nothing", types.SpaceAll)
	require.NoError(t, err)
	assert.Empty(t, spaces)
}
