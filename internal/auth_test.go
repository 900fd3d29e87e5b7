package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

// mockTokenServer stands in for the oauth2/token endpoint.
type mockTokenServer struct {
	t          *testing.T
	key        string
	secret     string
	statusCode int
	body       string
	calls      int
}

func (s *mockTokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls++
	if r.Method != http.MethodPost {
		s.t.Errorf("expected POST request, got %s", r.Method)
	}
	if r.URL.Path != "/oauth2/token" {
		s.t.Errorf("unexpected token path %s", r.URL.Path)
	}

	user, pass, ok := r.BasicAuth()
	if !ok || user != s.key || pass != s.secret {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errors":[{"code":99,"message":"Unable to verify your credentials","label":"authenticity_token_error"}]}`)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.t.Fatalf("failed to parse form: %v", err)
	}
	if got := r.Form.Get("grant_type"); got != "client_credentials" {
		s.t.Errorf("expected grant_type client_credentials, got %q", got)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.statusCode)
	fmt.Fprint(w, s.body)
}

func TestAuthenticator_StaticBearer(t *testing.T) {
	a, err := NewAuthenticator(nil, Credentials{BearerToken: "AAAA"}, "https://api.example.com", "")
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	token, err := a.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if token != "AAAA" {
		t.Errorf("expected static token, got %q", token)
	}
}

func TestAuthenticator_ClientCredentials(t *testing.T) {
	mock := &mockTokenServer{
		t:          t,
		key:        "consumer-key",
		secret:     "consumer-secret",
		statusCode: http.StatusOK,
		body:       `{"token_type":"bearer","access_token":"AAAAAAAAAAAAAAAAAAAAAMLheAAAAAAA0%2BuSeid"}`,
	}
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)

	creds := Credentials{ConsumerKey: "consumer-key", ConsumerSecret: "consumer-secret"}
	a, err := NewAuthenticator(server.Client(), creds, server.URL, "")
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	token, err := a.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if token != "AAAAAAAAAAAAAAAAAAAAAMLheAAAAAAA0%2BuSeid" {
		t.Errorf("unexpected token %q", token)
	}
	if mock.calls != 1 {
		t.Errorf("expected one token request, got %d", mock.calls)
	}
}

func TestAuthenticator_ClientCredentialsRejected(t *testing.T) {
	mock := &mockTokenServer{t: t, key: "right", secret: "right", statusCode: http.StatusOK, body: `{}`}
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)

	creds := Credentials{ConsumerKey: "wrong", ConsumerSecret: "wrong"}
	a, err := NewAuthenticator(server.Client(), creds, server.URL, "")
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	_, err = a.GetToken(context.Background())
	var authErr *pkgerrs.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T (%v)", err, err)
	}
	if authErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", authErr.StatusCode)
	}
	if !strings.Contains(authErr.Body, "Unable to verify") {
		t.Errorf("expected response body to be kept, got %q", authErr.Body)
	}
}

func TestAuthenticator_NoCredentials(t *testing.T) {
	a, err := NewAuthenticator(nil, Credentials{}, "https://api.example.com", "")
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}
	_, err = a.GetToken(context.Background())
	var authErr *pkgerrs.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T", err)
	}
}

func TestAuthenticator_InvalidBaseURL(t *testing.T) {
	_, err := NewAuthenticator(nil, Credentials{}, "://bad", "")
	var authErr *pkgerrs.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T", err)
	}
}

func TestAuthenticator_UserClientSignsRequests(t *testing.T) {
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"text":"hi"}` {
			t.Errorf("body altered by signing: %q", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	creds := Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "12-at", AccessTokenSecret: "ats"}
	a, err := NewAuthenticator(nil, creds, server.URL, "")
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	client := a.UserClient(context.Background(), server.Client())
	if client == nil {
		t.Fatal("expected a signing client")
	}

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/2/tweets", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	for _, want := range []string{"OAuth ", `oauth_consumer_key="ck"`, `oauth_token="12-at"`, "oauth_signature=", `oauth_signature_method="HMAC-SHA1"`} {
		if !strings.Contains(header, want) {
			t.Errorf("Authorization header %q missing %q", header, want)
		}
	}
}

func TestAuthenticator_UserClientNeedsAllCredentials(t *testing.T) {
	creds := Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at"}
	a, _ := NewAuthenticator(nil, creds, "https://api.example.com", "")
	if a.UserClient(context.Background(), nil) != nil {
		t.Error("expected nil client with incomplete credentials")
	}
	if got := creds.MissingUserCredential(); got != "access_token_secret" {
		t.Errorf("expected access_token_secret to be missing, got %q", got)
	}
	if !creds.HasAppAuth() || creds.HasUserAuth() {
		t.Error("unexpected credential classification")
	}
}
