package services

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"chatorbit/contract"
	"chatorbit/domain/event"
)

// Broadcaster answers targeted online-set queries. Incremental presence
// updates are published by the lifecycle; the full snapshot here exists
// for clients that just connected and have no state yet.
type Broadcaster struct {
	log       *slog.Logger
	registry  contract.IPresence
	accounts  contract.IAccountRepository
	publisher contract.Publisher
}

func NewBroadcaster(log *slog.Logger, registry contract.IPresence, accounts contract.IAccountRepository, publisher contract.Publisher) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, accounts: accounts, publisher: publisher}
}

// QueryOnline pushes the current online set to the requester only.
func (b *Broadcaster) QueryOnline(ctx context.Context, requester string) error {
	uids := b.registry.ListOnline()

	users := lo.Map(uids, func(uid string, _ int) event.OnlineUser {
		acc, err := b.accounts.FindByUID(uid)
		if err != nil {
			b.log.Warn("Online account missing from store", "uid", uid, "error", err)
			return event.OnlineUser{UID: uid}
		}
		return event.OnlineUser{UID: uid, Username: acc.Username}
	})

	b.publisher.Publish(event.OnlineUsers{Users: users, To: []string{requester}})
	return nil
}
