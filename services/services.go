package services

import (
	"log/slog"

	"chatorbit/contract"
	"chatorbit/moderation"
)

// Services bundles every delivery-core operation behind one construction
// site, so transports only wire a single value.
type Services struct {
	Lifecycle   *Lifecycle
	Router      *Router
	History     *History
	Broadcaster *Broadcaster
	Inbox       *Inbox
}

func New(
	log *slog.Logger,
	registry contract.IPresence,
	accounts contract.IAccountRepository,
	messages contract.IMessageRepository,
	offline contract.IOfflineRepository,
	moderator *moderation.Moderator,
	publisher contract.Publisher,
) *Services {
	return &Services{
		Lifecycle:   NewLifecycle(log, registry, publisher),
		Router:      NewRouter(log, registry, accounts, messages, offline, moderator, publisher),
		History:     NewHistory(log, accounts, messages, publisher),
		Broadcaster: NewBroadcaster(log, registry, accounts, publisher),
		Inbox:       NewInbox(log, offline, publisher),
	}
}
