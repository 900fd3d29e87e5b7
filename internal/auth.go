package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dghubble/oauth1"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

const defaultTokenEndpointPath = "oauth2/token"

// Credentials is the full credential set of a Twitter app and the account it acts for.
type Credentials struct {
	BearerToken       string
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// HasAppAuth reports whether an app-only bearer token is available or can be obtained.
func (c Credentials) HasAppAuth() bool {
	return c.BearerToken != "" || (c.ConsumerKey != "" && c.ConsumerSecret != "")
}

// HasUserAuth reports whether all four OAuth1 credentials are present.
func (c Credentials) HasUserAuth() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// MissingUserCredential returns the first OAuth1 credential that is not set.
func (c Credentials) MissingUserCredential() string {
	switch {
	case c.ConsumerKey == "":
		return "consumer_key"
	case c.ConsumerSecret == "":
		return "consumer_secret"
	case c.AccessToken == "":
		return "access_token"
	case c.AccessTokenSecret == "":
		return "access_token_secret"
	}
	return ""
}

// Authenticator resolves the app-only bearer token and builds the OAuth1
// signing client for user-context requests.
type Authenticator struct {
	client   *http.Client
	creds    Credentials
	tokenURL *url.URL
}

// NewAuthenticator creates a new authenticator.
// The tokenPath parameter can be an empty string to use the default token endpoint.
func NewAuthenticator(httpClient *http.Client, creds Credentials, baseURL, tokenPath string) (*Authenticator, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.AuthError{Message: "invalid base URL", Err: err}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if tokenPath == "" {
		tokenPath = defaultTokenEndpointPath
	}

	resolvedTokenURL, err := parsedURL.Parse(tokenPath)
	if err != nil {
		return nil, &pkgerrs.AuthError{Message: "invalid token endpoint path", Err: err}
	}

	return &Authenticator{
		client:   httpClient,
		creds:    creds,
		tokenURL: resolvedTokenURL,
	}, nil
}

// GetToken returns the configured bearer token, or exchanges the consumer
// key and secret for an app-only token with the client credentials grant.
func (a *Authenticator) GetToken(ctx context.Context) (string, error) {
	if a.creds.BearerToken != "" {
		return a.creds.BearerToken, nil
	}
	if a.creds.ConsumerKey == "" || a.creds.ConsumerSecret == "" {
		return "", &pkgerrs.AuthError{Message: "no bearer token and no consumer credentials to obtain one"}
	}

	cfg := clientcredentials.Config{
		ClientID:     a.creds.ConsumerKey,
		ClientSecret: a.creds.ConsumerSecret,
		TokenURL:     a.tokenURL.String(),
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	tok, err := cfg.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", &pkgerrs.AuthError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
				Err:        err,
			}
		}
		return "", &pkgerrs.AuthError{Message: "token request failed", Err: err}
	}

	if tok.AccessToken == "" {
		return "", &pkgerrs.AuthError{Err: fmt.Errorf("access token was empty in response")}
	}

	return tok.AccessToken, nil
}

// UserClient returns an http.Client that signs every request with the OAuth1
// user credentials, sending through base's transport. It returns nil when the
// credential set is incomplete.
func (a *Authenticator) UserClient(ctx context.Context, base *http.Client) *http.Client {
	if !a.creds.HasUserAuth() {
		return nil
	}
	if base == nil {
		base = http.DefaultClient
	}

	config := oauth1.NewConfig(a.creds.ConsumerKey, a.creds.ConsumerSecret)
	token := oauth1.NewToken(a.creds.AccessToken, a.creds.AccessTokenSecret)

	ctx = context.WithValue(ctx, oauth1.HTTPClient, base)
	signed := config.Client(ctx, token)
	signed.Timeout = base.Timeout
	return signed
}
