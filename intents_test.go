package gotweet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
)

func TestComposeTweetURL(t *testing.T) {
	assert.Equal(t, "https://twitter.com/intent/tweet", gotweet.ComposeTweetURL(""))
	assert.Equal(t, "https://twitter.com/intent/tweet?text=hello%20world%20%26%20%23go", gotweet.ComposeTweetURL("hello world & #go"))
}

func TestComposeUserActionURL(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		action string
		text   string
		want   string
		field  string
	}{
		{name: "follow", userID: "2244994945", action: "follow", want: "https://twitter.com/intent/user?user_id=2244994945"},
		{name: "follow is case insensitive", userID: "2244994945", action: "Follow", want: "https://twitter.com/intent/user?user_id=2244994945"},
		{name: "dm", userID: "2244994945", action: "dm", want: "https://twitter.com/messages/compose?recipient_id=2244994945"},
		{name: "dm with text", userID: "2244994945", action: "dm", text: "hi there", want: "https://twitter.com/messages/compose?recipient_id=2244994945&text=hi%20there"},
		{name: "bad id", userID: "@dev", action: "follow", field: "user_id"},
		{name: "bad action", userID: "2244994945", action: "block", field: "action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gotweet.ComposeUserActionURL(tt.userID, tt.action, tt.text)
			if tt.field != "" {
				var valErr *gotweet.ValidationError
				require.ErrorAs(t, err, &valErr)
				assert.Equal(t, tt.field, valErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComposeTweetActionURL(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"retweet", "https://twitter.com/intent/retweet?tweet_id=1445880548472328192"},
		{"like", "https://twitter.com/intent/like?tweet_id=1445880548472328192"},
		{"reply", "https://twitter.com/intent/tweet?in_reply_to=1445880548472328192"},
	}
	for _, tt := range tests {
		got, err := gotweet.ComposeTweetActionURL("1445880548472328192", tt.action)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := gotweet.ComposeTweetActionURL("1445880548472328192", "bookmark")
	var valErr *gotweet.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "action", valErr.Field)

	_, err = gotweet.ComposeTweetActionURL("", "like")
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "tweet_id", valErr.Field)
}
