// Package presence is the single owner of the uid <-> live-connection
// mapping. All mutations go through one mutex, which makes every
// association and disassociation an atomic compare-and-swap on the shared
// state instead of a read-modify-write open to lost updates.
package presence

import (
	"log/slog"
	"sort"
	"sync"

	"chatorbit/contract"
	"chatorbit/domain"
)

type binding struct {
	conn domain.ConnectionRef
	sink contract.EventSink
}

// Registry tracks at most one live connection per account (last-bind-wins)
// plus a reverse index connID -> uid, so a disconnect carrying only a
// connection identifier resolves in constant time instead of a scan.
// The durable connection reference on the account is written through inside
// the critical section.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	accounts contract.IAccountRepository
	byUID    map[string]binding
	byConn   map[string]string
}

func NewRegistry(log *slog.Logger, accounts contract.IAccountRepository) *Registry {
	return &Registry{
		log:      log,
		accounts: accounts,
		byUID:    make(map[string]binding),
		byConn:   make(map[string]string),
	}
}

// Associate binds the connection to the account, overwriting any prior
// binding. An unknown uid is a logged no-op: the returned error lets the
// caller ack the failure, nothing else changes.
func (r *Registry) Associate(uid string, conn domain.ConnectionRef, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.accounts.UpdateConnection(uid, &conn); err != nil {
		r.log.Warn("associate ignored", "uid", uid, "conn", conn.ID, "error", err)
		return err
	}

	if prev, ok := r.byUID[uid]; ok {
		delete(r.byConn, prev.conn.ID)
	}
	// The connection id itself may be rebound to another account. The old
	// holder must go fully offline, or it would stay routable behind a
	// sink nothing drains anymore.
	if holder, ok := r.byConn[conn.ID]; ok && holder != uid {
		delete(r.byUID, holder)
		if err := r.accounts.UpdateConnection(holder, nil); err != nil {
			r.log.Error("failed to clear stored connection", "uid", holder, "error", err)
		}
		r.log.Info("connection rebound, previous holder evicted", "conn", conn.ID, "evicted", holder)
	}
	r.byUID[uid] = binding{conn: conn, sink: sink}
	r.byConn[conn.ID] = uid

	r.log.Info("connection associated", "uid", uid, "conn", conn.ID)
	return nil
}

// DisassociateByConnection clears whichever account currently holds exactly
// this connection identifier. A stale identifier (already replaced by a
// newer bind, or never bound) loses the race silently: the newer binding
// must not be clobbered by a late disconnect.
func (r *Registry) DisassociateByConnection(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid, ok := r.byConn[connID]
	if !ok {
		r.log.Debug("disassociate ignored, connection not bound", "conn", connID)
		return "", false
	}
	delete(r.byConn, connID)
	delete(r.byUID, uid)

	if err := r.accounts.UpdateConnection(uid, nil); err != nil {
		// The in-memory state is authoritative for routing; the durable
		// reference will be overwritten on the next bind anyway.
		r.log.Error("failed to clear stored connection", "uid", uid, "error", err)
	}

	r.log.Info("connection disassociated", "uid", uid, "conn", connID)
	return uid, true
}

// UIDForConnection answers the reverse lookup, used by transports to
// resolve which identity a connection last bound.
func (r *Registry) UIDForConnection(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.byConn[connID]
	return uid, ok
}

func (r *Registry) IsOnline(uid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUID[uid]
	return ok
}

// ListOnline returns the uids of every account with a live connection,
// sorted for deterministic output.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uids := make([]string, 0, len(r.byUID))
	for uid := range r.byUID {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

func (r *Registry) SinkFor(uid string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byUID[uid]
	if !ok {
		return nil, false
	}
	return b.sink, true
}

// Sinks returns the sinks of every live connection, used for broadcast
// events such as incremental presence changes.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.byUID))
	for _, b := range r.byUID {
		sinks = append(sinks, b.sink)
	}
	return sinks
}
