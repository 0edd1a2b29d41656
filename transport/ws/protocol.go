// Package ws exposes the delivery core over a websocket event channel.
// One connection carries JSON envelopes in both directions; client events
// are handled in arrival order and each one is acknowledged.
package ws

import (
	"encoding/json"
	"fmt"

	"chatorbit/domain"
	"chatorbit/domain/event"
)

// Client to server event types.
const (
	EventBindIdentity = "bind-identity"
	EventSendMessage  = "send-message"
	EventOpenSession  = "open-session"
	EventQueryOnline  = "query-online"
	EventFetchOffline = "fetch-offline"
)

// Server to client event types.
const (
	EventAck              = "ack"
	EventMessageDelivered = "message-delivered"
	EventSessionHistory   = "session-history"
	EventOnlineUsers      = "online-users"
	EventPresenceChanged  = "presence-changed"
	EventOfflineInbox     = "offline-inbox"
)

// Envelope is the wire frame for every event in either direction.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type BindIdentityPayload struct {
	UID          string `json:"uid" validate:"required"`
	ConnectionID string `json:"connectionId"`
}

type SendMessagePayload struct {
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type OpenSessionPayload struct {
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
}

// Ack answers every client event, naming the event type it answers.
// A send to an unknown receiver is a failed ack, not silence.
type Ack struct {
	Of    string `json:"of"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type MessageDeliveredPayload struct {
	Message domain.Message `json:"message"`
}

type SessionHistoryPayload struct {
	Messages []domain.Message `json:"messages"`
}

type OnlineUsersPayload struct {
	Users []event.OnlineUser `json:"users"`
}

type PresenceChangedPayload struct {
	UID    string `json:"uid"`
	Online bool   `json:"online"`
}

type OfflineInboxPayload struct {
	Messages []domain.OfflineMessage `json:"messages"`
}

func marshalEnvelope(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// EncodeEvent turns a fan-out event into its wire envelope. Unknown event
// kinds return ok=false and are simply not pushed.
func EncodeEvent(e event.DomainEvent) ([]byte, bool, error) {
	switch evt := e.(type) {
	case event.MessageDelivered:
		data, err := marshalEnvelope(EventMessageDelivered, MessageDeliveredPayload{Message: evt.Message})
		return data, true, err
	case event.SessionHistory:
		data, err := marshalEnvelope(EventSessionHistory, SessionHistoryPayload{Messages: evt.Messages})
		return data, true, err
	case event.OnlineUsers:
		data, err := marshalEnvelope(EventOnlineUsers, OnlineUsersPayload{Users: evt.Users})
		return data, true, err
	case event.PresenceChanged:
		data, err := marshalEnvelope(EventPresenceChanged, PresenceChangedPayload{UID: evt.UID, Online: evt.Online})
		return data, true, err
	case event.OfflineInbox:
		data, err := marshalEnvelope(EventOfflineInbox, OfflineInboxPayload{Messages: evt.Messages})
		return data, true, err
	default:
		return nil, false, nil
	}
}

// EncodeAck builds the ack envelope for one handled client event.
func EncodeAck(of string, err error) ([]byte, error) {
	ack := Ack{Of: of, OK: err == nil}
	if err != nil {
		ack.Error = err.Error()
	}
	return marshalEnvelope(EventAck, ack)
}
