package gotweet

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

const maxMessageHistoryCount = 50

type messageEventEnvelope struct {
	Event types.MessageEvent `json:"event"`
}

type messageEventList struct {
	Events     []types.MessageEvent `json:"events"`
	NextCursor string               `json:"next_cursor"`
}

func newMessageEvent(recipientID string, req *types.MessageRequest, mediaID string) *types.MessageEvent {
	ev := &types.MessageEvent{Type: "message_create"}
	ev.MessageCreate.Target.RecipientID = recipientID

	data := &ev.MessageCreate.MessageData
	data.Text = req.Text
	data.CustomProfileID = req.CustomProfileID
	if mediaID != "" {
		data.Attachment = &types.MessageAttachment{Type: "media"}
		data.Attachment.Media.ID = mediaID
	}
	if req.QuickReply != nil {
		data.QuickReply = &types.QuickReplyPayload{Type: "options", Options: req.QuickReply.Options}
	}
	for _, cta := range req.CTAs {
		data.CTAs = append(data.CTAs, types.CTAPayload{Type: "web_url", Label: cta.Label, URL: cta.URL})
	}
	return ev
}

// SendMessage sends a direct message to recipientID. Media in req is uploaded
// as DM-only media before the message is sent.
func (c *Client) SendMessage(ctx context.Context, recipientID string, req *types.MessageRequest) (*types.DirectMessage, error) {
	if err := c.validator.ValidateMessage(recipientID, req); err != nil {
		return nil, err
	}
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}

	var mediaID string
	if req.Media != nil {
		file := *req.Media
		file.DMOnly = true
		if file.Category == "" {
			file.Category = types.CategoryDMImage
		}
		id, err := c.UploadMedia(ctx, &file)
		if err != nil {
			return nil, err
		}
		mediaID = id
	}

	httpReq, err := c.client.NewJSONRequest(ctx, http.MethodPost, "1.1/direct_messages/events/new.json",
		map[string]any{"event": newMessageEvent(recipientID, req, mediaID)})
	if err != nil {
		return nil, err
	}

	var result messageEventEnvelope
	if err := c.send(httpReq, userAuth, &result); err != nil {
		return nil, wrap("send message", err)
	}

	msg := result.Event.ToMessage()
	if msg.RecipientID == "" {
		msg.RecipientID = recipientID
	}
	if user, ok := c.cache.User(recipientID); ok {
		msg.Recipient = user
	}

	c.logger.Debug().Str("event_id", msg.ID).Str("recipient_id", recipientID).Msg("direct message sent")
	c.cache.AddMessage(msg)
	return msg, nil
}

// FetchMessage returns a direct message event sent or received within the
// last 30 days.
func (c *Client) FetchMessage(ctx context.Context, eventID string) (*types.DirectMessage, error) {
	if err := c.validator.ValidateID("event_id", eventID); err != nil {
		return nil, err
	}
	if msg, ok := c.cache.Message(eventID); ok {
		return msg, nil
	}
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, "1.1/direct_messages/events/show.json", nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = url.Values{"id": {eventID}}.Encode()

	var result messageEventEnvelope
	if err := c.send(req, userAuth, &result); err != nil {
		return nil, wrap("fetch message", err)
	}

	msg := result.Event.ToMessage()
	c.cache.AddMessage(msg)
	return msg, nil
}

// FetchMessageHistory returns up to count direct message events, newest
// first. A count of 0 leaves the page size to the server. Pass the
// NextCursor of a previous page to continue.
func (c *Client) FetchMessageHistory(ctx context.Context, cursor string, count int) (*types.MessageHistory, error) {
	if count < 0 || count > maxMessageHistoryCount {
		return nil, &ValidationError{
			Field:   "count",
			Message: "must be between 0 and " + strconv.Itoa(maxMessageHistoryCount) + " (0 for the server default)",
		}
	}
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, "1.1/direct_messages/events/list.json", nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}
	setIfNotEmpty(q, "cursor", cursor)
	req.URL.RawQuery = q.Encode()

	var result messageEventList
	if err := c.send(req, userAuth, &result); err != nil {
		return nil, wrap("fetch message history", err)
	}

	history := &types.MessageHistory{
		Messages:   make([]*types.DirectMessage, 0, len(result.Events)),
		NextCursor: result.NextCursor,
	}
	for i := range result.Events {
		msg := result.Events[i].ToMessage()
		c.cache.AddMessage(msg)
		history.Messages = append(history.Messages, msg)
	}
	return history, nil
}

// DeleteMessage deletes a direct message event from the authenticated
// account's view of the conversation.
func (c *Client) DeleteMessage(ctx context.Context, eventID string) error {
	if err := c.validator.ValidateID("event_id", eventID); err != nil {
		return err
	}
	if err := c.requireUser(ctx); err != nil {
		return err
	}

	req, err := c.client.NewRequest(ctx, http.MethodDelete, "1.1/direct_messages/events/destroy.json", nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = url.Values{"id": {eventID}}.Encode()

	if err := c.send(req, userAuth, nil); err != nil {
		return wrap("delete message", err)
	}
	c.cache.RemoveMessage(eventID)
	return nil
}

// IndicateTyping shows the typing indicator to recipientID.
func (c *Client) IndicateTyping(ctx context.Context, recipientID string) error {
	if err := c.validator.ValidateID("recipient_id", recipientID); err != nil {
		return err
	}
	if err := c.requireUser(ctx); err != nil {
		return err
	}

	form := url.Values{"recipient_id": {recipientID}}
	return wrap("indicate typing", c.sendForm(ctx, internal.HostAPI, "1.1/direct_messages/indicate_typing.json", form, nil))
}

// MarkRead marks every message up to lastReadEventID from senderID as read.
func (c *Client) MarkRead(ctx context.Context, lastReadEventID, senderID string) error {
	if err := c.validator.ValidateID("last_read_event_id", lastReadEventID); err != nil {
		return err
	}
	if err := c.validator.ValidateID("recipient_id", senderID); err != nil {
		return err
	}
	if err := c.requireUser(ctx); err != nil {
		return err
	}

	form := url.Values{
		"last_read_event_id": {lastReadEventID},
		"recipient_id":       {senderID},
	}
	return wrap("mark read", c.sendForm(ctx, internal.HostAPI, "1.1/direct_messages/mark_read.json", form, nil))
}
