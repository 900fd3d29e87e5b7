package test_helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// MockServer provides a configurable mock Twitter API server for testing.
// Responses are registered per route; a route is either a bare path
// ("/2/tweets") or a method and path ("POST /2/tweets"). The method form wins.
type MockServer struct {
	server *httptest.Server

	mutex       sync.Mutex
	responses   map[string][]*MockResponse
	defaultResp *MockResponse
	delay       time.Duration
	requestLog  []RequestEntry
	callCount   map[string]int
}

// RequestEntry logs incoming requests for assertions
type RequestEntry struct {
	Method       string
	Path         string
	Query        url.Values
	Headers      http.Header
	Body         string
	Timestamp    time.Time
	ResponseCode int
}

// Form parses the logged body as a URL-encoded form.
func (e *RequestEntry) Form() url.Values {
	values, _ := url.ParseQuery(e.Body)
	return values
}

// JSON decodes the logged body into v.
func (e *RequestEntry) JSON(v any) error {
	return json.Unmarshal([]byte(e.Body), v)
}

// MockResponse defines a mock API response
type MockResponse struct {
	Status  int
	Body    string
	Headers map[string]string
	Delay   time.Duration
	// MaxCalls limits how often the response is served; later calls get 404.
	MaxCalls int
}

// NewMockServer creates a new mock server instance
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string][]*MockResponse),
		callCount: make(map[string]int),
		defaultResp: &MockResponse{
			Status: http.StatusNotFound,
			Body:   `{"title":"Not Found Error","detail":"Sorry, that page does not exist.","type":"about:blank","status":404}`,
		},
	}
	ms.server = httptest.NewServer(ms)
	return ms
}

// URL returns the base URL of the mock server with a trailing slash.
func (ms *MockServer) URL() string {
	return ms.server.URL + "/"
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse configures the response for a route.
func (ms *MockServer) SetResponse(route string, response *MockResponse) {
	ms.SetResponses(route, response)
}

// SetResponses configures a sequence of responses for a route. Each call
// consumes the next response; the last one is repeated.
func (ms *MockServer) SetResponses(route string, responses ...*MockResponse) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.responses[route] = responses
}

// SetJSON registers a JSON body with the given status for a route.
func (ms *MockServer) SetJSON(route string, status int, body any) {
	ms.SetResponse(route, JSONResponse(status, body))
}

// SetDefaultResponse configures the response for unregistered routes.
func (ms *MockServer) SetDefaultResponse(response *MockResponse) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.defaultResp = response
}

// SetDelay adds delay to all responses
func (ms *MockServer) SetDelay(delay time.Duration) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.delay = delay
}

// GetRequestLog returns the request log
func (ms *MockServer) GetRequestLog() []RequestEntry {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return append([]RequestEntry{}, ms.requestLog...)
}

// GetCallCount returns the call count for a path
func (ms *MockServer) GetCallCount(path string) int {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.callCount[path]
}

// ClearLog clears the request log and call counts
func (ms *MockServer) ClearLog() {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.requestLog = ms.requestLog[:0]
	ms.callCount = make(map[string]int)
}

// ServeHTTP implements http.Handler
func (ms *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	entry := RequestEntry{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Headers:   r.Header.Clone(),
		Body:      string(body),
		Timestamp: time.Now(),
	}

	ms.mutex.Lock()
	ms.callCount[r.URL.Path]++
	calls := ms.callCount[r.URL.Path]
	response := ms.lookup(r.Method + " " + r.URL.Path)
	if response == nil {
		response = ms.lookup(r.URL.Path)
	}
	if response == nil {
		response = ms.defaultResp
	}
	delay := ms.delay + response.Delay
	ms.mutex.Unlock()

	status := response.Status
	if status == 0 {
		status = http.StatusOK
	}
	payload := response.Body
	if response.MaxCalls > 0 && calls > response.MaxCalls {
		status, payload = http.StatusNotFound, ""
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
	}

	w.Header().Set("Content-Type", "application/json")
	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(payload))

	entry.ResponseCode = status
	ms.mutex.Lock()
	ms.requestLog = append(ms.requestLog, entry)
	ms.mutex.Unlock()
}

// lookup pops the next response for route. Callers hold the mutex.
func (ms *MockServer) lookup(route string) *MockResponse {
	queue, ok := ms.responses[route]
	if !ok || len(queue) == 0 {
		return nil
	}
	if len(queue) > 1 {
		ms.responses[route] = queue[1:]
	}
	return queue[0]
}

// WaitForRequests waits for a specific number of requests to be made
func (ms *MockServer) WaitForRequests(count int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %d requests", count)
		case <-ticker.C:
			ms.mutex.Lock()
			total := len(ms.requestLog)
			ms.mutex.Unlock()

			if total >= count {
				return nil
			}
		}
	}
}

// AssertRequestCount asserts that a specific number of requests were made to a path
func (ms *MockServer) AssertRequestCount(path string, expectedCount int) error {
	actualCount := ms.GetCallCount(path)
	if actualCount != expectedCount {
		return fmt.Errorf("expected %d requests to %s, got %d", expectedCount, path, actualCount)
	}
	return nil
}

// GetLastRequest returns the last request made to a specific path
func (ms *MockServer) GetLastRequest(path string) (*RequestEntry, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	for i := len(ms.requestLog) - 1; i >= 0; i-- {
		if ms.requestLog[i].Path == path {
			entry := ms.requestLog[i]
			return &entry, nil
		}
	}

	return nil, fmt.Errorf("no requests found for path: %s", path)
}

// JSONResponse marshals body into a MockResponse.
func JSONResponse(status int, body any) *MockResponse {
	var payload string
	switch b := body.(type) {
	case string:
		payload = b
	case []byte:
		payload = string(b)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			panic(fmt.Sprintf("mock response: %v", err))
		}
		payload = string(data)
	}
	return &MockResponse{Status: status, Body: payload}
}

// TwitterMockServer provides Twitter-specific mock responses
type TwitterMockServer struct {
	*MockServer
}

// MockUserID is the id of the authenticated mock account. Access tokens
// handed to clients under test should start with "MockUserID-".
const MockUserID = "12"

// NewTwitterMockServer creates a mock server pre-configured with the token
// endpoint, the authenticated user and tweet creation.
func NewTwitterMockServer() *TwitterMockServer {
	server := &TwitterMockServer{MockServer: NewMockServer()}
	server.setupDefaultResponses()
	return server
}

func (tms *TwitterMockServer) setupDefaultResponses() {
	tms.SetResponse("POST /oauth2/token", &MockResponse{
		Status: http.StatusOK,
		Body:   `{"token_type":"bearer","access_token":"mock_token"}`,
	})

	tms.SetResponse("GET /2/users/me", &MockResponse{
		Status: http.StatusOK,
		Body:   `{"data":{"id":"` + MockUserID + `","name":"Mock Account","username":"mockaccount"}}`,
	})

	tms.SetResponse("POST /2/tweets", &MockResponse{
		Status: http.StatusCreated,
		Body:   `{"data":{"id":"1445880548472328192","text":"mock tweet"}}`,
	})
}

// SetupTweet serves GET /2/tweets/:id with the author expanded.
func (tms *TwitterMockServer) SetupTweet(tweet *types.Tweet, author *types.User) {
	body := map[string]any{"data": tweet}
	if author != nil {
		body["includes"] = map[string]any{"users": []*types.User{author}}
	}
	tms.SetJSON("GET /2/tweets/"+tweet.ID, http.StatusOK, body)
}

// SetupUser serves the user by id and by username.
func (tms *TwitterMockServer) SetupUser(user *types.User) {
	body := map[string]any{"data": user}
	tms.SetJSON("GET /2/users/"+user.ID, http.StatusOK, body)
	tms.SetJSON("GET /2/users/by/username/"+user.Username, http.StatusOK, body)
}

// SetupRateLimit adds x-rate-limit headers to every unregistered route.
func (tms *TwitterMockServer) SetupRateLimit(limit, remaining int, reset time.Time) {
	tms.SetDefaultResponse(&MockResponse{
		Status:  http.StatusOK,
		Body:    `{"data":[],"meta":{"result_count":0}}`,
		Headers: RateLimitHeaders(limit, remaining, reset),
	})
}

// SetupError serves a v2 problem response for route.
func (tms *TwitterMockServer) SetupError(route string, statusCode int, title, detail string) {
	tms.SetResponse(route, &MockResponse{
		Status: statusCode,
		Body:   ProblemBody(statusCode, title, detail),
	})
}

// RateLimitHeaders builds the x-rate-limit response headers.
func RateLimitHeaders(limit, remaining int, reset time.Time) map[string]string {
	return map[string]string{
		"x-rate-limit-limit":     strconv.Itoa(limit),
		"x-rate-limit-remaining": strconv.Itoa(remaining),
		"x-rate-limit-reset":     strconv.FormatInt(reset.Unix(), 10),
	}
}

// ProblemBody renders a v2 problem document.
func ProblemBody(status int, title, detail string) string {
	data, _ := json.Marshal(map[string]any{
		"title":  title,
		"detail": detail,
		"type":   "about:blank",
		"status": status,
	})
	return string(data)
}
