package models

import (
	"encoding/json"
	"fmt"

	"zipchat/pkg/apperrors"
)

type FrameType string

const (
	// client -> server
	FrameJoin               FrameType = "join"
	FrameMessage            FrameType = "message"
	FramePrivateMessage     FrameType = "private_message"
	FrameGetPrivateMessages FrameType = "get_private_messages"
	FramePresence           FrameType = "presence"
	FramePing               FrameType = "ping"

	// server -> client
	FrameJoined                 FrameType = "joined"
	FrameNewMessage             FrameType = "new_message"
	FrameNewPrivateMessage      FrameType = "new_private_message"
	FramePrivateMessageSent     FrameType = "private_message_sent"
	FramePrivateMessagesHistory FrameType = "private_messages_history"
	FrameUsersUpdated           FrameType = "users_updated"
	FrameUserJoined             FrameType = "user_joined"
	FrameUserLeft               FrameType = "user_left"
	FramePong                   FrameType = "pong"
	FrameError                  FrameType = "error"
)

// Frame is the transport envelope: one JSON object per socket frame.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client payloads. Each frame type carries a statically-shaped payload so
// malformed input is rejected at parse time.

type JoinPayload struct {
	Zipcode string `json:"zipcode"`
}

type MessagePayload struct {
	Content string `json:"content"`
}

type PrivateMessagePayload struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

type GetPrivateMessagesPayload struct {
	WithUserID string `json:"withUserId"`
	Limit      int    `json:"limit,omitempty"`
}

// Server payloads.

type JoinedPayload struct {
	UserID         string            `json:"userId"`
	Username       string            `json:"username"`
	Zipcode        string            `json:"zipcode"`
	RecentMessages []*Message        `json:"recentMessages"`
	ActiveUsers    []*PresenceRecord `json:"activeUsers"`
}

type UsersUpdatedPayload struct {
	Zipcode string            `json:"zipcode"`
	Users   []*PresenceRecord `json:"users"`
}

type UserEventPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Zipcode  string `json:"zipcode"`
}

type PrivateMessagesHistoryPayload struct {
	WithUserID string     `json:"withUserId"`
	Messages   []*Message `json:"messages"`
}

type ErrorPayload struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// ClientFrame is the decoded form of an inbound frame: the type tag plus its
// typed payload (nil for ping and presence).
type ClientFrame struct {
	Type    FrameType
	Join    *JoinPayload
	Message *MessagePayload
	Private *PrivateMessagePayload
	History *GetPrivateMessagesPayload
}

// DecodeClientFrame parses a raw inbound frame and validates its shape.
// Unknown types and missing required fields are malformed-frame errors.
func DecodeClientFrame(raw []byte) (*ClientFrame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, apperrors.MalformedFrame("unparseable frame")
	}

	cf := &ClientFrame{Type: f.Type}
	switch f.Type {
	case FrameJoin:
		p := &JoinPayload{}
		if err := unmarshalData(f.Data, p); err != nil {
			return nil, err
		}
		if p.Zipcode == "" {
			return nil, apperrors.MalformedFrame("join requires zipcode")
		}
		cf.Join = p

	case FrameMessage:
		p := &MessagePayload{}
		if err := unmarshalData(f.Data, p); err != nil {
			return nil, err
		}
		if p.Content == "" {
			return nil, apperrors.MalformedFrame("message requires content")
		}
		cf.Message = p

	case FramePrivateMessage:
		p := &PrivateMessagePayload{}
		if err := unmarshalData(f.Data, p); err != nil {
			return nil, err
		}
		if p.RecipientID == "" || p.Content == "" {
			return nil, apperrors.MalformedFrame("private_message requires recipientId and content")
		}
		cf.Private = p

	case FrameGetPrivateMessages:
		p := &GetPrivateMessagesPayload{}
		if err := unmarshalData(f.Data, p); err != nil {
			return nil, err
		}
		if p.WithUserID == "" {
			return nil, apperrors.MalformedFrame("get_private_messages requires withUserId")
		}
		cf.History = p

	case FramePing, FramePresence:
		// no payload

	default:
		return nil, apperrors.MalformedFrame(fmt.Sprintf("unknown frame type %q", f.Type))
	}

	return cf, nil
}

func unmarshalData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return apperrors.MalformedFrame("missing frame data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.MalformedFrame("invalid frame data")
	}
	return nil
}

// EncodeFrame marshals an outbound frame.
func EncodeFrame(t FrameType, data interface{}) ([]byte, error) {
	f := Frame{Type: t}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		f.Data = raw
	}
	return json.Marshal(f)
}

// ErrorFrame builds an error frame from a coded error.
func ErrorFrame(err error) []byte {
	payload := ErrorPayload{Code: apperrors.CodeOf(err), Message: err.Error()}
	b, mErr := EncodeFrame(FrameError, payload)
	if mErr != nil {
		return []byte(`{"type":"error"}`)
	}
	return b
}
