// Package services implements the delivery-core operations on top of the
// presence registry, the durable stores, and the fan-out publisher.
package services

import (
	"context"
	"log/slog"
	"time"

	"chatorbit/contract"
	"chatorbit/domain"
	"chatorbit/domain/event"
)

// ConnState is the lifecycle of one transport session. A session starts at
// Connected, moves to Associated on an explicit bind, and terminates at
// Disconnected; there is no resume, a new session always rebinds.
type ConnState int

const (
	StateConnected ConnState = iota
	StateAssociated
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAssociated:
		return "associated"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Lifecycle drives a connection through its states, delegating the actual
// presence bookkeeping to the registry and announcing changes incrementally
// to every connected client.
type Lifecycle struct {
	log       *slog.Logger
	registry  contract.IPresence
	publisher contract.Publisher
}

func NewLifecycle(log *slog.Logger, registry contract.IPresence, publisher contract.Publisher) *Lifecycle {
	return &Lifecycle{log: log, registry: registry, publisher: publisher}
}

// Bind associates the uid with the connection (Connected -> Associated).
func (l *Lifecycle) Bind(_ context.Context, uid, connID string, sink contract.EventSink) error {
	ref := domain.ConnectionRef{ID: connID, BoundAt: time.Now().UTC()}
	if err := l.registry.Associate(uid, ref, sink); err != nil {
		return err
	}
	l.publisher.Publish(event.PresenceChanged{UID: uid, Online: true})
	return nil
}

// UIDForConnection resolves which identity the connection last bound.
func (l *Lifecycle) UIDForConnection(connID string) (string, bool) {
	return l.registry.UIDForConnection(connID)
}

// Disconnect moves the connection to its terminal state. It carries only
// the connection identifier: the registry's reverse index resolves the
// account, and a stale identifier is a silent no-op.
func (l *Lifecycle) Disconnect(_ context.Context, connID string) {
	uid, ok := l.registry.DisassociateByConnection(connID)
	if !ok {
		return
	}
	l.publisher.Publish(event.PresenceChanged{UID: uid, Online: false})
}
