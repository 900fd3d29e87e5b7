package types

import (
	"strconv"
	"time"
)

// DirectMessage is a direct message event.
type DirectMessage struct {
	ID          string
	Type        string
	Text        string
	SenderID    string
	RecipientID string
	CreatedAt   time.Time
	MediaID     string
	// QuickReplyMetadata is set when the message answered a quick reply prompt.
	QuickReplyMetadata string

	// Recipient is resolved when the client could fetch the recipient user.
	Recipient *User
}

// GetID returns the event id.
func (m *DirectMessage) GetID() string { return m.ID }

// QuickReplyOption is one option of a quick reply prompt.
type QuickReplyOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

// QuickReply attaches predefined options to a direct message.
type QuickReply struct {
	Options []QuickReplyOption
}

// CTAButton is a call-to-action button attached to a direct message.
type CTAButton struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// MessageRequest describes a direct message to send.
type MessageRequest struct {
	Text            string
	Media           *File
	CustomProfileID string
	QuickReply      *QuickReply
	CTAs            []CTAButton
}

// MessageEvent is the wire form of a v1.1 direct message event.
type MessageEvent struct {
	Type             string        `json:"type"`
	ID               string        `json:"id,omitempty"`
	CreatedTimestamp string        `json:"created_timestamp,omitempty"`
	MessageCreate    MessageCreate `json:"message_create"`
}

// MessageCreate is the message_create object of a direct message event.
type MessageCreate struct {
	Target struct {
		RecipientID string `json:"recipient_id"`
	} `json:"target"`
	SenderID    string      `json:"sender_id,omitempty"`
	MessageData MessageData `json:"message_data"`
}

// MessageData carries the content of a direct message event.
type MessageData struct {
	Text               string              `json:"text"`
	Attachment         *MessageAttachment  `json:"attachment,omitempty"`
	CustomProfileID    string              `json:"custom_profile_id,omitempty"`
	QuickReply         *QuickReplyPayload  `json:"quick_reply,omitempty"`
	QuickReplyResponse *QuickReplyResponse `json:"quick_reply_response,omitempty"`
	CTAs               []CTAPayload        `json:"ctas,omitempty"`
}

// MessageAttachment references uploaded media.
type MessageAttachment struct {
	Type  string `json:"type"`
	Media struct {
		ID    string `json:"id,omitempty"`
		IDStr string `json:"id_str,omitempty"`
	} `json:"media"`
}

// QuickReplyPayload is the wire form of QuickReply.
type QuickReplyPayload struct {
	Type    string             `json:"type"`
	Options []QuickReplyOption `json:"options"`
}

// QuickReplyResponse is present on messages sent by tapping a quick reply option.
type QuickReplyResponse struct {
	Type     string `json:"type"`
	Metadata string `json:"metadata,omitempty"`
}

// CTAPayload is the wire form of CTAButton.
type CTAPayload struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ToMessage converts the wire event into a DirectMessage.
func (e *MessageEvent) ToMessage() *DirectMessage {
	msg := &DirectMessage{
		ID:          e.ID,
		Type:        e.Type,
		Text:        e.MessageCreate.MessageData.Text,
		SenderID:    e.MessageCreate.SenderID,
		RecipientID: e.MessageCreate.Target.RecipientID,
	}
	if ms, err := strconv.ParseInt(e.CreatedTimestamp, 10, 64); err == nil {
		msg.CreatedAt = time.UnixMilli(ms).UTC()
	}
	if att := e.MessageCreate.MessageData.Attachment; att != nil {
		msg.MediaID = att.Media.IDStr
		if msg.MediaID == "" {
			msg.MediaID = att.Media.ID
		}
	}
	if qr := e.MessageCreate.MessageData.QuickReplyResponse; qr != nil {
		msg.QuickReplyMetadata = qr.Metadata
	}
	return msg
}

// MessageHistory is a page of direct message events.
type MessageHistory struct {
	Messages   []*DirectMessage
	NextCursor string
}

// Settings are the v1.1 account settings of the authenticated user.
type Settings struct {
	ScreenName          string `json:"screen_name"`
	Protected           bool   `json:"protected"`
	Language            string `json:"language"`
	DiscoverableByEmail bool   `json:"discoverable_by_email"`
	DiscoverableByPhone bool   `json:"discoverable_by_mobile_phone"`
	DisplaySensitive    bool   `json:"display_sensitive_media"`
	AllowDMsFrom        string `json:"allow_dms_from"`
	AllowDMGroupsFrom   string `json:"allow_dm_groups_from"`
	TimeZone            *struct {
		Name       string `json:"name"`
		TZInfoName string `json:"tzinfo_name"`
		UTCOffset  int    `json:"utc_offset"`
	} `json:"time_zone,omitempty"`
}

// ProfileUpdate describes profile fields to change. Nil fields are left untouched.
type ProfileUpdate struct {
	Name        *string
	URL         *string
	Location    *string
	Description *string
}
