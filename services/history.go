package services

import (
	"context"
	"fmt"
	"log/slog"

	"chatorbit/contract"
	"chatorbit/domain/event"
	apperrors "chatorbit/errors"
)

// History replays the stored conversation between two accounts when a
// chat session opens.
type History struct {
	log       *slog.Logger
	accounts  contract.IAccountRepository
	messages  contract.IMessageRepository
	publisher contract.Publisher
}

func NewHistory(log *slog.Logger, accounts contract.IAccountRepository, messages contract.IMessageRepository, publisher contract.Publisher) *History {
	return &History{log: log, accounts: accounts, messages: messages, publisher: publisher}
}

// OpenSession loads the full two-party history, oldest first, and pushes
// it to both participants' live connections. Both accounts must exist; an
// offline peer simply misses the push, the fan-out skips it.
func (h *History) OpenSession(ctx context.Context, requester, peer string) error {
	if _, err := h.accounts.FindByUID(requester); err != nil {
		return fmt.Errorf("resolving requester %q: %w", requester, err)
	}
	if _, err := h.accounts.FindByUID(peer); err != nil {
		return fmt.Errorf("resolving peer %q: %w", peer, err)
	}

	msgs, err := h.messages.FindBetween(requester, peer)
	if err != nil {
		return fmt.Errorf("%w: loading history: %w", apperrors.ErrTransientStore, err)
	}

	h.publisher.Publish(event.SessionHistory{
		Between:  [2]string{requester, peer},
		Messages: msgs,
		To:       []string{requester, peer},
	})
	return nil
}
