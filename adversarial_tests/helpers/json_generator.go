package helpers

import (
	"fmt"
	"strings"
)

// JSONGenerator creates malicious and malformed JSON for testing
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// GenerateMalformedTweetEnvelopes returns bodies that must not produce a tweet.
func (g *JSONGenerator) GenerateMalformedTweetEnvelopes() map[string]string {
	return map[string]string{
		"empty_object":    `{}`,
		"null_data":       `{"data": null}`,
		"data_as_string":  `{"data": "20"}`,
		"data_as_number":  `{"data": 20}`,
		"data_as_array":   `{"data": [{"id": "20"}]}`,
		"data_as_bool":    `{"data": true}`,
		"id_as_object":    `{"data": {"id": {"value": "20"}, "text": "x"}}`,
		"text_as_array":   `{"data": {"id": "20", "text": ["x"]}}`,
		"metrics_as_text": `{"data": {"id": "20", "text": "x", "public_metrics": "many"}}`,
		"bad_created_at":  `{"data": {"id": "20", "text": "x", "created_at": "yesterday"}}`,
		"created_at_int":  `{"data": {"id": "20", "text": "x", "created_at": 1136214245}}`,
		"includes_string": `{"data": {"id": "20", "text": "x"}, "includes": "none"}`,
		"users_as_object": `{"data": {"id": "20", "text": "x"}, "includes": {"users": {"id": "12"}}}`,
	}
}

// GenerateSurvivableTweetEnvelopes returns bodies with odd but legal
// content. Each must parse into tweet id 20.
func (g *JSONGenerator) GenerateSurvivableTweetEnvelopes() map[string]string {
	return map[string]string{
		"unknown_fields":  `{"data": {"id": "20", "text": "x", "future_field": {"a": [1, 2]}}, "extra": 1}`,
		"missing_author":  `{"data": {"id": "20", "text": "x", "author_id": "404"}, "includes": {"users": []}}`,
		"null_includes":   `{"data": {"id": "20", "text": "x"}, "includes": null}`,
		"null_entries":    `{"data": {"id": "20", "text": "x"}, "includes": {"users": [null, {"id": "12"}], "tweets": [null]}}`,
		"self_reference":  `{"data": {"id": "20", "text": "x", "referenced_tweets": [{"type": "quoted", "id": "20"}]}, "includes": {"tweets": [{"id": "20", "text": "x"}]}}`,
		"unicode_text":    `{"data": {"id": "20", "text": "\u202e\u0000🚀 \u200b"}}`,
		"escaped_html":    `{"data": {"id": "20", "text": "&lt;script&gt;alert(1)&lt;/script&gt;"}}`,
		"errors_and_data": `{"data": {"id": "20", "text": "x"}, "errors": [{"title": "Authorization Error", "detail": "Sorry, you are not authorized to see the quoted tweet."}]}`,
		"unknown_media":   `{"data": {"id": "20", "text": "x", "attachments": {"media_keys": ["3_1"]}}, "includes": {"media": [{"media_key": "3_1", "type": "hologram"}]}}`,
	}
}

// GenerateProblemDocuments returns error bodies the API or a proxy in front
// of it may send, keyed by description.
func (g *JSONGenerator) GenerateProblemDocuments() map[string]string {
	return map[string]string{
		"v2_problem":          `{"title": "Not Found Error", "detail": "Could not find tweet with id: [20].", "type": "https://api.twitter.com/2/problems/resource-not-found"}`,
		"v2_errors_array":     `{"errors": [{"value": "20", "detail": "Could not find tweet with id: [20].", "title": "Not Found Error", "resource_type": "tweet", "parameter": "id"}]}`,
		"v1_errors_array":     `{"errors": [{"code": 34, "message": "Sorry, that page does not exist."}]}`,
		"oauth_error":         `{"error": "invalid_request"}`,
		"errors_as_object":    `{"errors": {"code": 34}}`,
		"errors_with_strings": `{"errors": ["bad", 1, null, {"title": "Real"}]}`,
		"title_as_number":     `{"title": 404, "detail": false}`,
		"empty_object":        `{}`,
		"html":                `<html><body><h1>503 Service Temporarily Unavailable</h1></body></html>`,
		"plain_text":          `upstream connect error or disconnect/reset before headers`,
		"long_text":           strings.Repeat("x", 10000),
		"truncated":           `{"title": "Too Many Requests", "detail": "Too Many`,
		"empty":               ``,
		"whitespace":          "  \n\t ",
		"null":                `null`,
	}
}

// GenerateMalformedDeliveries returns webhook bodies that must be rejected.
func (g *JSONGenerator) GenerateMalformedDeliveries() map[string]string {
	return map[string]string{
		"empty":              ``,
		"null":               `null`,
		"array":              `[]`,
		"string":             `"for_user_id"`,
		"truncated":          `{"for_user_id": "12", "follow_events": [`,
		"missing_for_user":   `{"follow_events": []}`,
		"empty_for_user":     `{"for_user_id": ""}`,
		"for_user_as_number": `{"for_user_id": 12}`,
		"events_as_object":   `{"for_user_id": "12", "follow_events": {"type": "follow"}}`,
		"events_as_string":   `{"for_user_id": "12", "tweet_create_events": "none"}`,
	}
}

// GenerateOddDeliveries returns webhook bodies that are well formed but
// strange. They must parse without panicking.
func (g *JSONGenerator) GenerateOddDeliveries() map[string]string {
	return map[string]string{
		"only_unknown_keys": `{"for_user_id": "12", "tweet_delete_events": [{"status": {"id": "20"}}]}`,
		"empty_events":      `{"for_user_id": "12", "follow_events": [], "favorite_events": []}`,
		"null_events":       `{"for_user_id": "12", "follow_events": [null], "favorite_events": [null], "tweet_create_events": [null]}`,
		"null_users":        `{"for_user_id": "12", "follow_events": [{"type": "follow", "source": null, "target": null}]}`,
		"bad_timestamps":    `{"for_user_id": "12", "follow_events": [{"type": "follow", "created_timestamp": "soon", "source": {"id_str": "1"}, "target": {"id_str": "12"}}]}`,
		"negative_ts":       `{"for_user_id": "12", "direct_message_indicate_typing_events": [{"created_timestamp": "-1", "sender_id": "1", "target": {"recipient_id": "12"}}]}`,
		"dm_missing_fields": `{"for_user_id": "12", "direct_message_events": [{"type": "message_create", "id": "1"}]}`,
		"dm_unknown_sender": `{"for_user_id": "12", "direct_message_events": [{"type": "message_create", "id": "1", "message_create": {"sender_id": "999", "target": {"recipient_id": "12"}, "message_data": {"text": "hi"}}}], "users": {}}`,
		"favorite_no_tweet": `{"for_user_id": "12", "favorite_events": [{"id": "f1", "timestamp_ms": "1", "user": {"id_str": "1"}}]}`,
		"huge_numbers":      `{"for_user_id": "12", "favorite_events": [{"id": "f1", "timestamp_ms": 99999999999999999999}]}`,
		"bad_user_map":      `{"for_user_id": "12", "users": {"1": {"screen_name": "one", "followers_count": "many"}}}`,
	}
}

// GenerateTokenResponse creates various malformed token responses. Keys
// starting with "fail_" must be rejected; the rest must not panic.
func (g *JSONGenerator) GenerateTokenResponse() map[string]string {
	return map[string]string{
		"fail_empty_access_token": `{
			"access_token": "",
			"token_type": "bearer"
		}`,

		"fail_missing_access_token": `{
			"token_type": "bearer"
		}`,

		"fail_null_access_token": `{
			"access_token": null,
			"token_type": "bearer"
		}`,

		"fail_access_token_as_number": `{
			"access_token": 12345,
			"token_type": "bearer"
		}`,

		"fail_access_token_as_array": `{
			"access_token": ["token"],
			"token_type": "bearer"
		}`,

		"fail_invalid_json": `{
			"access_token": "valid_token",
			"token_type": "bearer"
			"expires_in": 3600
		}`,

		"fail_empty_object": `{}`,

		"fail_null": `null`,

		"fail_array": `[]`,

		"fail_string": `"not an object"`,

		"negative_expires_in": `{
			"access_token": "valid_token",
			"token_type": "bearer",
			"expires_in": -3600
		}`,

		"huge_expires_in": `{
			"access_token": "valid_token",
			"token_type": "bearer",
			"expires_in": 999999999999
		}`,

		"expires_in_as_float": `{
			"access_token": "valid_token",
			"token_type": "bearer",
			"expires_in": 3600.5
		}`,

		"unknown_token_type": `{
			"access_token": "valid_token",
			"token_type": "mac"
		}`,

		"very_long_token": `{
			"access_token": "` + strings.Repeat("A", 100000) + `",
			"token_type": "bearer"
		}`,
	}
}

// GenerateRateLimitHeaders creates various malformed rate limit header combinations
func (g *JSONGenerator) GenerateRateLimitHeaders() map[string]map[string]string {
	return map[string]map[string]string{
		"negative_remaining": {
			"X-Rate-Limit-Remaining": "-1",
			"X-Rate-Limit-Reset":     "1234567890",
		},
		"negative_reset": {
			"X-Rate-Limit-Remaining": "50",
			"X-Rate-Limit-Reset":     "-1",
		},
		"zero_reset": {
			"X-Rate-Limit-Remaining": "50",
			"X-Rate-Limit-Reset":     "0",
		},
		"huge_reset": {
			"X-Rate-Limit-Remaining": "0",
			"X-Rate-Limit-Reset":     "99999999999999999999",
		},
		"float_remaining": {
			"X-Rate-Limit-Remaining": "49.5",
			"X-Rate-Limit-Reset":     "1234567890",
		},
		"invalid_reset": {
			"X-Rate-Limit-Remaining": "50",
			"X-Rate-Limit-Reset":     "not_a_number",
		},
		"nan_remaining": {
			"X-Rate-Limit-Remaining": "NaN",
			"X-Rate-Limit-Reset":     "1234567890",
		},
		"empty_headers": {},
		"only_remaining": {
			"X-Rate-Limit-Remaining": "50",
		},
		"only_reset": {
			"X-Rate-Limit-Reset": "1234567890",
		},
	}
}

// GenerateJSONBomb creates a "JSON bomb" - deeply nested objects designed to exhaust parsers
func (g *JSONGenerator) GenerateJSONBomb(depth int) string {
	opening := strings.Repeat(`{"a":`, depth)
	closing := strings.Repeat(`}`, depth)
	return opening + `"value"` + closing
}

// GenerateLargeTweetPage creates a page with size tweets and one author.
func (g *JSONGenerator) GenerateLargeTweetPage(size int) string {
	elements := make([]string, size)
	for i := 0; i < size; i++ {
		elements[i] = fmt.Sprintf(`{"id":"%d","text":"tweet %d","author_id":"12"}`, 1000+i, i)
	}
	return `{"data":[` + strings.Join(elements, ",") + `],` +
		`"includes":{"users":[{"id":"12","name":"Mock Account","username":"mockaccount"}]},` +
		fmt.Sprintf(`"meta":{"result_count":%d}}`, size)
}

// GenerateReplyCycle returns a conversation whose tweets reply to each other
// in a loop, which no real conversation can produce.
func (g *JSONGenerator) GenerateReplyCycle() string {
	return `{"data": [
		{"id": "21", "text": "a", "conversation_id": "20", "referenced_tweets": [{"type": "replied_to", "id": "22"}]},
		{"id": "22", "text": "b", "conversation_id": "20", "referenced_tweets": [{"type": "replied_to", "id": "21"}]},
		{"id": "23", "text": "c", "conversation_id": "20", "referenced_tweets": [{"type": "replied_to", "id": "23"}]}
	], "meta": {"result_count": 3}}`
}
