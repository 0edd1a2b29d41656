// Package domain contains core concepts of the delivery system.
// This file defines the two disjoint message kinds.
// Messages are immutable once created, except for the delivery flags.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a durably stored, live-delivered message.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
	Delivered bool      `json:"delivered"`
	Seen      bool      `json:"seen"`
}

// OfflineMessage is a queued message for a receiver with no live connection.
// It lives in its own keyspace and is never promoted into Message.
type OfflineMessage struct {
	ID       uuid.UUID `json:"id"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}
