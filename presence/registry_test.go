package presence

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chatorbit/domain"
	"chatorbit/domain/event"
	"chatorbit/errors"
	"chatorbit/repositories"
)

type Sink struct{}

func (s Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func newTestRegistry(t *testing.T, uids ...string) (*Registry, *repositories.AccountRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	accounts := repositories.NewAccountRepository(db)
	for _, uid := range uids {
		require.NoError(t, accounts.Create(domain.Account{UID: uid, Username: uid, Email: uid + "@example.com"}))
	}
	return NewRegistry(slog.Default(), accounts), accounts
}

func ref(connID string) domain.ConnectionRef {
	return domain.ConnectionRef{ID: connID, BoundAt: time.Now().UTC()}
}

func TestRegistry_Associate_Marks_Account_Online(t *testing.T) {
	req := require.New(t)
	registry, accounts := newTestRegistry(t, "alice")

	// Given alice is offline
	req.False(registry.IsOnline("alice"))

	// When alice binds a connection
	req.NoError(registry.Associate("alice", ref("c1"), Sink{}))

	// Then she is online, listed, and durably bound
	req.True(registry.IsOnline("alice"))
	req.Contains(registry.ListOnline(), "alice")

	stored, err := accounts.FindByUID("alice")
	req.NoError(err)
	req.True(stored.Online())
	req.Equal("c1", stored.Connection.ID)
}

func TestRegistry_Associate_Unknown_Account_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry, _ := newTestRegistry(t)

	err := registry.Associate("ghost", ref("c1"), Sink{})
	req.ErrorIs(err, errors.ErrAccountNotFound)
	req.False(registry.IsOnline("ghost"))
	req.Empty(registry.ListOnline())
}

func TestRegistry_Last_Bind_Wins(t *testing.T) {
	req := require.New(t)
	registry, accounts := newTestRegistry(t, "alice")

	// Given alice is bound on c1
	req.NoError(registry.Associate("alice", ref("c1"), Sink{}))

	// When she rebinds on c2
	req.NoError(registry.Associate("alice", ref("c2"), Sink{}))

	// Then only c2 is live: the stale c1 disconnect must not unbind her
	_, ok := registry.DisassociateByConnection("c1")
	req.False(ok)
	req.True(registry.IsOnline("alice"))

	stored, err := accounts.FindByUID("alice")
	req.NoError(err)
	req.Equal("c2", stored.Connection.ID)
}

func TestRegistry_Disassociate_By_Connection(t *testing.T) {
	req := require.New(t)
	registry, accounts := newTestRegistry(t, "alice")
	req.NoError(registry.Associate("alice", ref("c1"), Sink{}))

	// When the transport closes, carrying only the connection id
	uid, ok := registry.DisassociateByConnection("c1")

	// Then alice is resolved and goes offline, durably
	req.True(ok)
	req.Equal("alice", uid)
	req.False(registry.IsOnline("alice"))
	req.Empty(registry.ListOnline())

	stored, err := accounts.FindByUID("alice")
	req.NoError(err)
	req.False(stored.Online())
}

func TestRegistry_Disassociate_Unknown_Connection_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry, _ := newTestRegistry(t, "alice")
	req.NoError(registry.Associate("alice", ref("c1"), Sink{}))

	_, ok := registry.DisassociateByConnection("never-bound")
	req.False(ok)
	req.True(registry.IsOnline("alice"))
}

func TestRegistry_ListOnline_Only_Bound_Accounts(t *testing.T) {
	req := require.New(t)
	registry, _ := newTestRegistry(t, "alice", "bob")

	// Given alice is bound and bob is not
	req.NoError(registry.Associate("alice", ref("c1"), Sink{}))

	// Then the online set contains exactly alice
	req.Equal([]string{"alice"}, registry.ListOnline())
	req.False(registry.IsOnline("bob"))
}

func TestRegistry_Sinks_Track_Bindings(t *testing.T) {
	req := require.New(t)
	registry, _ := newTestRegistry(t, "alice", "bob")
	req.NoError(registry.Associate("alice", ref("c1"), Sink{}))
	req.NoError(registry.Associate("bob", ref("c2"), Sink{}))

	sink, ok := registry.SinkFor("alice")
	req.True(ok)
	req.NotNil(sink)
	req.Len(registry.Sinks(), 2)

	registry.DisassociateByConnection("c2")
	req.Len(registry.Sinks(), 1)
	_, ok = registry.SinkFor("bob")
	req.False(ok)
}

func TestRegistry_UIDForConnection(t *testing.T) {
	req := require.New(t)
	registry, _ := newTestRegistry(t, "alice")
	req.NoError(registry.Associate("alice", ref("c1"), Sink{}))

	uid, ok := registry.UIDForConnection("c1")
	req.True(ok)
	req.Equal("alice", uid)

	_, ok = registry.UIDForConnection("never-bound")
	req.False(ok)
}

func TestRegistry_Rebinding_A_Connection_Evicts_Previous_Holder(t *testing.T) {
	req := require.New(t)
	registry, accounts := newTestRegistry(t, "alice", "bob")

	// Given alice holds c1
	req.NoError(registry.Associate("alice", ref("c1"), Sink{}))

	// When bob binds the same connection id
	req.NoError(registry.Associate("bob", ref("c1"), Sink{}))

	// Then alice went fully offline, durably too
	req.False(registry.IsOnline("alice"))
	_, ok := registry.SinkFor("alice")
	req.False(ok)
	stored, err := accounts.FindByUID("alice")
	req.NoError(err)
	req.False(stored.Online())

	// And the connection's disconnect takes down bob, not alice
	uid, ok := registry.DisassociateByConnection("c1")
	req.True(ok)
	req.Equal("bob", uid)
	req.False(registry.IsOnline("bob"))
	req.Empty(registry.ListOnline())
}
