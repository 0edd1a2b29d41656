// Package event defines the domain events flowing through the fan-out
// pipeline. Each event names its live-push recipients; permanent sinks
// (projection, telemetry) observe every event regardless.
package event

import (
	"chatorbit/domain"
)

// DomainEvent is anything the fan-out worker can deliver.
//
// Recipients returns the account UIDs whose live connections should receive
// the event. nil means every connected client; an empty slice means no live
// push at all (the event still reaches permanent sinks).
type DomainEvent interface {
	Recipients() []string
}

// MessageDelivered carries the authoritative stored copy of a message to
// both parties, including the server-assigned id and timestamp.
type MessageDelivered struct {
	Message domain.Message
	To      []string
}

func (e MessageDelivered) Recipients() []string { return e.To }

// OfflineQueued records that a message was durably queued for an offline
// receiver. Nobody is pushed to; only permanent sinks observe it.
type OfflineQueued struct {
	Message domain.OfflineMessage
}

func (OfflineQueued) Recipients() []string { return []string{} }

// SessionHistory replays the full ordered conversation between two accounts.
type SessionHistory struct {
	Between  [2]string
	Messages []domain.Message
	To       []string
}

func (e SessionHistory) Recipients() []string { return e.To }

// OnlineUsers answers a query-online request, targeted at the requester.
type OnlineUsers struct {
	Users []OnlineUser
	To    []string
}

type OnlineUser struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}

func (e OnlineUsers) Recipients() []string { return e.To }

// PresenceChanged is the incremental presence notification broadcast to all
// connected clients on every bind and disconnect.
type PresenceChanged struct {
	UID    string
	Online bool
}

func (PresenceChanged) Recipients() []string { return nil }

// OfflineInbox carries the drained offline queue to the requester.
type OfflineInbox struct {
	Messages []domain.OfflineMessage
	To       []string
}

func (e OfflineInbox) Recipients() []string { return e.To }
