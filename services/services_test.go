package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chatorbit/contract"
	"chatorbit/domain"
	"chatorbit/domain/event"
	"chatorbit/errors"
	"chatorbit/moderation"
	"chatorbit/presence"
	"chatorbit/repositories"
)

// recordingPublisher captures published events instead of fanning them out.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (p *recordingPublisher) Publish(e event.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) all() []event.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.DomainEvent(nil), p.events...)
}

type nopSink struct{}

func (nopSink) Consume(ctx context.Context, e event.DomainEvent) error { return nil }

type fixture struct {
	services  *Services
	registry  *presence.Registry
	accounts  *repositories.AccountRepository
	messages  *repositories.MessageRepository
	offline   *repositories.OfflineRepository
	publisher *recordingPublisher
}

func newFixture(t *testing.T, uids ...string) *fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	accounts := repositories.NewAccountRepository(db)
	for _, uid := range uids {
		require.NoError(t, accounts.Create(domain.Account{UID: uid, Username: uid, Email: uid + "@example.com"}))
	}

	messages := repositories.NewMessageRepository(db, slog.Default())
	offline := repositories.NewOfflineRepository(db, slog.Default())
	registry := presence.NewRegistry(slog.Default(), accounts)

	moderator, err := moderation.NewModerator([]string{"moron"}, '*')
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	return &fixture{
		services:  New(slog.Default(), registry, accounts, messages, offline, moderator, publisher),
		registry:  registry,
		accounts:  accounts,
		messages:  messages,
		offline:   offline,
		publisher: publisher,
	}
}

func (f *fixture) bind(t *testing.T, uid, connID string) {
	t.Helper()
	require.NoError(t, f.services.Lifecycle.Bind(context.Background(), uid, connID, nopSink{}))
}

func Test_Bind_Publishes_Presence_Change(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice")

	f.bind(t, "alice", "c1")

	req.True(f.registry.IsOnline("alice"))
	events := f.publisher.all()
	req.Len(events, 1)
	req.Equal(event.PresenceChanged{UID: "alice", Online: true}, events[0])
}

func Test_Bind_Unknown_Account(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	err := f.services.Lifecycle.Bind(context.Background(), "ghost", "c1", nopSink{})
	req.ErrorIs(err, errors.ErrAccountNotFound)
	req.Empty(f.publisher.all())
}

func Test_Disconnect_Publishes_Presence_Change(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice")
	f.bind(t, "alice", "c1")

	f.services.Lifecycle.Disconnect(context.Background(), "c1")

	req.False(f.registry.IsOnline("alice"))
	events := f.publisher.all()
	req.Len(events, 2)
	req.Equal(event.PresenceChanged{UID: "alice", Online: false}, events[1])
}

func Test_Disconnect_Stale_Connection_Is_Silent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice")
	f.bind(t, "alice", "c1")
	// alice rebinds on a fresh connection
	f.bind(t, "alice", "c2")

	// When the stale connection finally reports its disconnect
	f.services.Lifecycle.Disconnect(context.Background(), "c1")

	// Then the new binding is untouched and no change is announced
	req.True(f.registry.IsOnline("alice"))
	for _, e := range f.publisher.all() {
		change, ok := e.(event.PresenceChanged)
		if ok {
			req.True(change.Online)
		}
	}
}

func Test_Send_To_Online_Receiver_Delivers_And_Persists(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice", "bob")
	f.bind(t, "bob", "c-bob")

	// When alice messages the online bob
	req.NoError(f.services.Router.Send(context.Background(), "alice", "bob", "hello"))

	// Then the message is durable under the pair
	stored, err := f.messages.FindBetween("alice", "bob")
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal("hello", stored[0].Content)

	// And a delivery targeting both parties was published
	events := f.publisher.all()
	delivered, ok := events[len(events)-1].(event.MessageDelivered)
	req.True(ok)
	req.ElementsMatch([]string{"bob", "alice"}, delivered.Recipients())

	// And nothing was queued offline
	queued, err := f.offline.Drain("bob")
	req.NoError(err)
	req.Empty(queued)
}

func Test_Send_To_Offline_Receiver_Queues(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice", "bob")

	req.NoError(f.services.Router.Send(context.Background(), "alice", "bob", "hello"))

	// Then the message went to bob's queue, not the conversation store
	stored, err := f.messages.FindBetween("alice", "bob")
	req.NoError(err)
	req.Empty(stored)

	queued, err := f.offline.Drain("bob")
	req.NoError(err)
	req.Len(queued, 1)
	req.Equal("hello", queued[0].Content)

	events := f.publisher.all()
	req.Len(events, 1)
	_, ok := events[0].(event.OfflineQueued)
	req.True(ok)
}

func Test_Send_To_Unknown_Receiver_Aborts(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice")

	err := f.services.Router.Send(context.Background(), "alice", "ghost", "hello")
	req.ErrorIs(err, errors.ErrAccountNotFound)
	req.Empty(f.publisher.all())
}

func Test_Send_From_Unknown_Sender_Still_Routes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "bob")

	req.NoError(f.services.Router.Send(context.Background(), "ghost", "bob", "hello"))

	queued, err := f.offline.Drain("bob")
	req.NoError(err)
	req.Len(queued, 1)
}

func Test_Send_Censors_Content(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice", "bob")
	f.bind(t, "bob", "c-bob")

	req.NoError(f.services.Router.Send(context.Background(), "alice", "bob", "you moron"))

	stored, err := f.messages.FindBetween("alice", "bob")
	req.NoError(err)
	req.Equal("you *****", stored[0].Content)
}

func Test_OpenSession_Replays_Both_Directions_In_Order(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice", "bob")
	f.bind(t, "alice", "c-alice")
	f.bind(t, "bob", "c-bob")

	req.NoError(f.services.Router.Send(context.Background(), "alice", "bob", "first"))
	req.NoError(f.services.Router.Send(context.Background(), "bob", "alice", "second"))
	req.NoError(f.services.Router.Send(context.Background(), "alice", "bob", "third"))

	req.NoError(f.services.History.OpenSession(context.Background(), "alice", "bob"))

	events := f.publisher.all()
	history, ok := events[len(events)-1].(event.SessionHistory)
	req.True(ok)
	req.ElementsMatch([]string{"alice", "bob"}, history.Recipients())
	req.Len(history.Messages, 3)
	req.Equal("first", history.Messages[0].Content)
	req.Equal("second", history.Messages[1].Content)
	req.Equal("third", history.Messages[2].Content)
}

func Test_OpenSession_With_Offline_Peer_Succeeds(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice", "bob")

	req.NoError(f.services.History.OpenSession(context.Background(), "alice", "bob"))

	// The push still targets both parties; the fan-out skips whoever is
	// offline.
	events := f.publisher.all()
	history, ok := events[len(events)-1].(event.SessionHistory)
	req.True(ok)
	req.ElementsMatch([]string{"alice", "bob"}, history.Recipients())
	req.Empty(history.Messages)
}

func Test_OpenSession_Unknown_Peer(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice")

	err := f.services.History.OpenSession(context.Background(), "alice", "ghost")
	req.ErrorIs(err, errors.ErrAccountNotFound)
}

func Test_QueryOnline_Targets_Requester_Only(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice", "bob", "carol")
	f.bind(t, "alice", "c-alice")
	f.bind(t, "bob", "c-bob")

	req.NoError(f.services.Broadcaster.QueryOnline(context.Background(), "alice"))

	events := f.publisher.all()
	online, ok := events[len(events)-1].(event.OnlineUsers)
	req.True(ok)
	req.Equal([]string{"alice"}, online.Recipients())
	req.Len(online.Users, 2)
	req.ElementsMatch(
		[]event.OnlineUser{{UID: "alice", Username: "alice"}, {UID: "bob", Username: "bob"}},
		online.Users,
	)
}

func Test_FetchOffline_Drains_Once(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice", "bob")
	req.NoError(f.services.Router.Send(context.Background(), "alice", "bob", "while away"))

	// When bob fetches his inbox
	req.NoError(f.services.Inbox.FetchOffline(context.Background(), "bob"))

	events := f.publisher.all()
	inbox, ok := events[len(events)-1].(event.OfflineInbox)
	req.True(ok)
	req.Equal([]string{"bob"}, inbox.Recipients())
	req.Len(inbox.Messages, 1)

	// Then a second fetch finds an empty, still answered, inbox
	req.NoError(f.services.Inbox.FetchOffline(context.Background(), "bob"))
	events = f.publisher.all()
	inbox, ok = events[len(events)-1].(event.OfflineInbox)
	req.True(ok)
	req.Empty(inbox.Messages)
}

var _ contract.Publisher = (*recordingPublisher)(nil)
