package services

import (
	"context"
	"fmt"
	"log/slog"

	"chatorbit/contract"
	"chatorbit/domain/event"
	apperrors "chatorbit/errors"
)

// Inbox hands out messages that were queued while their receiver was
// offline. Draining is destructive and only happens on an explicit fetch,
// never as a side effect of binding.
type Inbox struct {
	log       *slog.Logger
	offline   contract.IOfflineRepository
	publisher contract.Publisher
}

func NewInbox(log *slog.Logger, offline contract.IOfflineRepository, publisher contract.Publisher) *Inbox {
	return &Inbox{log: log, offline: offline, publisher: publisher}
}

// FetchOffline drains the requester's queue and pushes the batch back.
// An empty queue still answers, with an empty batch, so the client can
// tell "nothing pending" from "fetch lost".
func (i *Inbox) FetchOffline(ctx context.Context, requester string) error {
	msgs, err := i.offline.Drain(requester)
	if err != nil {
		return fmt.Errorf("%w: draining offline queue: %w", apperrors.ErrTransientStore, err)
	}
	i.publisher.Publish(event.OfflineInbox{Messages: msgs, To: []string{requester}})
	return nil
}
