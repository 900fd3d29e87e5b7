package gotweet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

const (
	streamRulesPath = "2/tweets/search/stream/rules"
	streamPath      = "2/tweets/search/stream"

	maxStreamLine        = 1 << 20
	maxStreamReconnect   = 5 * time.Minute
	streamInitialBackOff = time.Second
)

// StreamHandler receives every tweet delivered by the filtered stream.
// Returning an error stops the stream.
type StreamHandler func(ctx context.Context, event *types.StreamEvent) error

type streamRulesEnvelope struct {
	Data []types.StreamRule `json:"data"`
	Meta struct {
		Sent    string                   `json:"sent"`
		Summary types.StreamRulesSummary `json:"summary"`
	} `json:"meta"`
	Errors []streamRuleProblem `json:"errors"`
}

type streamRuleProblem struct {
	Value   string   `json:"value"`
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Details []string `json:"details"`
}

func (p streamRuleProblem) String() string {
	subject := p.Value
	if subject == "" {
		subject = p.ID
	}
	if len(p.Details) > 0 {
		return fmt.Sprintf("%s: %s", subject, strings.Join(p.Details, "; "))
	}
	return fmt.Sprintf("%s: %s", subject, p.Title)
}

// StreamRules returns the rules currently applied to the filtered stream.
func (c *Client) StreamRules(ctx context.Context) (*types.StreamRulesResponse, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, streamRulesPath, nil)
	if err != nil {
		return nil, err
	}

	var result streamRulesEnvelope
	if err := c.send(req, appAuth, &result); err != nil {
		return nil, wrap("fetch stream rules", err)
	}
	return newRulesResponse(&result), nil
}

// AddStreamRules adds rules to the filtered stream. With dryRun the rules
// are only validated. Rules the API rejects are reported as a
// ValidationError alongside the response.
func (c *Client) AddStreamRules(ctx context.Context, rules []types.StreamRule, dryRun bool) (*types.StreamRulesResponse, error) {
	if len(rules) == 0 {
		return nil, &ValidationError{Field: "add", Message: "at least one rule is required"}
	}
	add := make([]types.StreamRule, 0, len(rules))
	for i, r := range rules {
		if strings.TrimSpace(r.Value) == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("add[%d].value", i), Message: "cannot be empty"}
		}
		add = append(add, types.StreamRule{Value: r.Value, Tag: r.Tag})
	}
	return c.modifyStreamRules(ctx, "add stream rules", map[string]any{"add": add}, dryRun)
}

// DeleteStreamRules removes rules from the filtered stream by id.
func (c *Client) DeleteStreamRules(ctx context.Context, ids []string, dryRun bool) (*types.StreamRulesResponse, error) {
	if err := c.validator.ValidateIDs("delete.ids", ids); err != nil {
		return nil, err
	}
	payload := map[string]any{"delete": map[string][]string{"ids": ids}}
	return c.modifyStreamRules(ctx, "delete stream rules", payload, dryRun)
}

func (c *Client) modifyStreamRules(ctx context.Context, operation string, payload any, dryRun bool) (*types.StreamRulesResponse, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewJSONRequest(ctx, http.MethodPost, streamRulesPath, payload)
	if err != nil {
		return nil, err
	}
	if dryRun {
		req.URL.RawQuery = url.Values{"dry_run": {"true"}}.Encode()
	}

	var result streamRulesEnvelope
	if err := c.send(req, appAuth, &result); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusMultipleChoices {
			msg := apiErr.Detail
			if msg == "" {
				msg = apiErr.Title
			}
			return nil, &ValidationError{Field: "rules", Message: msg}
		}
		return nil, wrap(operation, err)
	}

	resp := newRulesResponse(&result)
	c.logger.Debug().
		Bool("dry_run", dryRun).
		Int("created", resp.Summary.Created).
		Int("not_created", resp.Summary.NotCreated).
		Int("deleted", resp.Summary.Deleted).
		Int("not_deleted", resp.Summary.NotDeleted).
		Int("invalid", resp.Summary.Invalid).
		Msg("stream rules updated")

	if len(result.Errors) > 0 {
		problems := make([]string, 0, len(result.Errors))
		for _, p := range result.Errors {
			problems = append(problems, p.String())
		}
		c.logger.Warn().Strs("problems", problems).Msg("stream rules rejected")
		return resp, &ValidationError{Field: "rules", Message: strings.Join(problems, ", ")}
	}
	return resp, nil
}

func newRulesResponse(env *streamRulesEnvelope) *types.StreamRulesResponse {
	rules := env.Data
	if rules == nil {
		rules = []types.StreamRule{}
	}
	return &types.StreamRulesResponse{Rules: rules, Summary: env.Meta.Summary}
}

// streamMessage is one line of the filtered stream.
type streamMessage struct {
	internal.Envelope
	MatchingRules []types.StreamRule `json:"matching_rules"`
	Errors        []json.RawMessage  `json:"errors"`
}

// Stream connects to the filtered stream and calls handler for every tweet
// matching the current rules. Dropped connections are re-established with
// exponential backoff. Stream returns when ctx is done, when the handler
// returns an error, or when the API rejects the connection outright.
func (c *Client) Stream(ctx context.Context, handler StreamHandler) error {
	if handler == nil {
		return &ValidationError{Field: "handler", Message: "cannot be nil"}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = streamInitialBackOff
	policy.MaxInterval = maxStreamReconnect
	policy.MaxElapsedTime = 0

	operation := func() error {
		return c.consumeStream(ctx, handler, policy)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Dur("reconnect_in", wait).Msg("stream disconnected")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// consumeStream reads one connection until it drops. Errors that reconnecting
// cannot fix are returned as permanent.
func (c *Client) consumeStream(ctx context.Context, handler StreamHandler, policy backoff.BackOff) error {
	req, err := c.client.NewRequest(ctx, http.MethodGet, streamPath, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	q := tweetQuery()
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Open(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			return backoff.Permanent(wrap("stream", err))
		}
		return err
	}
	defer resp.Body.Close()

	c.logger.Info().Msg("stream connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			// keep-alive
			continue
		}
		policy.Reset()

		var msg streamMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("skipping undecodable stream message")
			continue
		}
		if msg.Empty() {
			if len(msg.Errors) > 0 {
				c.logger.Warn().RawJSON("errors", msg.Errors[0]).Msg("stream reported an error")
			}
			continue
		}

		tweet, err := c.parser.ParseTweet(&msg.Envelope)
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping stream message without tweet")
			continue
		}
		c.cache.AddTweet(tweet)

		if err := handler(ctx, &types.StreamEvent{Tweet: tweet, MatchingRules: msg.MatchingRules}); err != nil {
			return backoff.Permanent(err)
		}
	}

	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}
	if err := scanner.Err(); err != nil {
		return &RequestError{Operation: "read stream", URL: req.URL.String(), Err: err}
	}
	return &RequestError{Operation: "read stream", URL: req.URL.String(), Message: "connection closed by server"}
}
