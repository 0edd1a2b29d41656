// Package domain contains core concepts of the delivery system.
// This file defines Account entities and the live-connection reference.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"
	"time"
)

// ConnectionRef identifies the single live transport session bound to an
// account. A nil *ConnectionRef on an Account means the account is offline;
// the absence is explicit rather than encoded as an empty-string sentinel.
type ConnectionRef struct {
	ID      string    `json:"id"`
	BoundAt time.Time `json:"bound_at"`
}

// Account is the durable user identity. Connection is mutated only by the
// presence registry; everything else is written once at signup.
type Account struct {
	UID        string         `json:"uid"`
	Username   string         `json:"username"`
	Email      string         `json:"email"`
	PhotoURL   string         `json:"photo_url,omitempty"`
	Connection *ConnectionRef `json:"connection,omitempty"`
}

func (a Account) Online() bool {
	return a.Connection != nil
}

// PairKey builds the canonical key for the unordered account pair {a, b}.
// Both directions of a conversation share the same key.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}
