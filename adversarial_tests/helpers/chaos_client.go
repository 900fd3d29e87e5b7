package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// ChaosMode defines the type of chaos to inject
type ChaosMode int

const (
	// ChaosNone forwards requests untouched
	ChaosNone ChaosMode = iota

	// ChaosConnectionReset fails the round trip outright
	ChaosConnectionReset

	// ChaosDNSFailure fails the round trip with a lookup error
	ChaosDNSFailure

	// ChaosPartialRead forwards the request but cuts the body short
	ChaosPartialRead

	// ChaosEmptyBody answers 200 with no body
	ChaosEmptyBody

	// ChaosOversizedBody answers 200 with a body larger than the client reads
	ChaosOversizedBody

	// ChaosInvalidJSON answers 200 with a truncated v2 envelope
	ChaosInvalidJSON

	// ChaosHTMLError answers 502 with an HTML page, as a proxy in front of the API would
	ChaosHTMLError

	// ChaosIntermittent applies a random failure mode with probability FailureRate
	ChaosIntermittent
)

// OversizedBodyBytes is the body size ChaosOversizedBody serves.
const OversizedBodyBytes = 20 << 20

// ChaosConfig configures the chaos transport
type ChaosConfig struct {
	Mode ChaosMode

	// FailureRate is the probability of failure for ChaosIntermittent
	FailureRate float64

	// FailFirst applies Mode to the first FailFirst requests only. Zero
	// applies it to every request.
	FailFirst int

	// Delay is added before every round trip
	Delay time.Duration

	// PartialReadBytes is how much of the body ChaosPartialRead lets through
	PartialReadBytes int

	// Seed makes ChaosIntermittent reproducible. Zero uses the clock.
	Seed int64
}

// ChaosTransport is an http.RoundTripper that injects network and server
// failures in front of a real transport. Install it through
// gotweet.Config.HTTPClient.
type ChaosTransport struct {
	next   http.RoundTripper
	config ChaosConfig

	requests atomic.Int64
	failures atomic.Int64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewChaosTransport wraps next, or http.DefaultTransport when next is nil.
func NewChaosTransport(config ChaosConfig, next http.RoundTripper) *ChaosTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ChaosTransport{
		next:   next,
		config: config,
		rnd:    rand.New(rand.NewSource(seed)),
	}
}

// Client returns an http.Client using the transport.
func (c *ChaosTransport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: c, Timeout: timeout}
}

// Requests returns how many round trips were attempted.
func (c *ChaosTransport) Requests() int {
	return int(c.requests.Load())
}

// Failures returns how many round trips had chaos applied.
func (c *ChaosTransport) Failures() int {
	return int(c.failures.Load())
}

func (c *ChaosTransport) pickMode(n int64) ChaosMode {
	if c.config.FailFirst > 0 && n > int64(c.config.FailFirst) {
		return ChaosNone
	}
	if c.config.Mode != ChaosIntermittent {
		return c.config.Mode
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rnd.Float64() >= c.config.FailureRate {
		return ChaosNone
	}
	modes := []ChaosMode{
		ChaosConnectionReset,
		ChaosDNSFailure,
		ChaosPartialRead,
		ChaosEmptyBody,
		ChaosInvalidJSON,
		ChaosHTMLError,
	}
	return modes[c.rnd.Intn(len(modes))]
}

// RoundTrip implements http.RoundTripper
func (c *ChaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := c.requests.Add(1)

	if c.config.Delay > 0 {
		select {
		case <-time.After(c.config.Delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	mode := c.pickMode(n)
	if mode != ChaosNone {
		c.failures.Add(1)
	}

	// RoundTrippers must consume and close the request body.
	if mode != ChaosNone && mode != ChaosPartialRead && req.Body != nil {
		io.Copy(io.Discard, req.Body)
		req.Body.Close()
	}

	switch mode {
	case ChaosConnectionReset:
		return nil, errors.New("read tcp 127.0.0.1:443: connection reset by peer")

	case ChaosDNSFailure:
		return nil, &DNSError{Err: "no such host", Server: "8.8.8.8"}

	case ChaosPartialRead:
		resp, err := c.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		size := c.config.PartialReadBytes
		if size <= 0 || size >= len(body) {
			size = len(body) / 2
		}
		resp.Body = &partialReadCloser{reader: bytes.NewReader(body[:size]), failAfter: size}
		resp.ContentLength = -1
		return resp, nil

	case ChaosEmptyBody:
		return respond(req, http.StatusOK, "application/json", nil), nil

	case ChaosOversizedBody:
		// A valid envelope padded past the client's read limit.
		body := make([]byte, 0, OversizedBodyBytes+64)
		body = append(body, `{"data":{"id":"20","text":"`...)
		body = append(body, bytes.Repeat([]byte("A"), OversizedBodyBytes)...)
		body = append(body, `"}}`...)
		return respond(req, http.StatusOK, "application/json", body), nil

	case ChaosInvalidJSON:
		return respond(req, http.StatusOK, "application/json", []byte(`{"data":{"id":"20","text":"cut off`)), nil

	case ChaosHTMLError:
		return respond(req, http.StatusBadGateway, "text/html", []byte("<html><body><h1>502 Bad Gateway</h1></body></html>")), nil

	default:
		return c.next.RoundTrip(req)
	}
}

func respond(req *http.Request, status int, contentType string, body []byte) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", contentType)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
		Header:        header,
	}
}

// partialReadCloser is an io.ReadCloser that fails after reading a certain amount
type partialReadCloser struct {
	reader    io.Reader
	failAfter int
	totalRead int
}

func (p *partialReadCloser) Read(buf []byte) (int, error) {
	if p.totalRead >= p.failAfter {
		return 0, errors.New("connection reset during read")
	}

	n, err := p.reader.Read(buf)
	p.totalRead += n

	if p.totalRead >= p.failAfter {
		return n, errors.New("connection reset during read")
	}

	return n, err
}

func (p *partialReadCloser) Close() error {
	return nil
}

// DNSError simulates DNS lookup failures
type DNSError struct {
	Err    string
	Server string
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("lookup api.twitter.com: %s (server: %s)", e.Err, e.Server)
}

func (e *DNSError) Temporary() bool {
	return true
}

func (e *DNSError) Timeout() bool {
	return false
}
