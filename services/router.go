package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chatorbit/contract"
	"chatorbit/domain"
	"chatorbit/domain/event"
	apperrors "chatorbit/errors"
	"chatorbit/moderation"
)

// Router decides, per message, between live push and the offline inbox.
// The decision is taken under the registry's current view, so a receiver
// going offline after the check at worst sees the message on its next
// explicit inbox fetch.
type Router struct {
	log       *slog.Logger
	registry  contract.IPresence
	accounts  contract.IAccountRepository
	messages  contract.IMessageRepository
	offline   contract.IOfflineRepository
	moderator *moderation.Moderator
	publisher contract.Publisher
}

func NewRouter(
	log *slog.Logger,
	registry contract.IPresence,
	accounts contract.IAccountRepository,
	messages contract.IMessageRepository,
	offline contract.IOfflineRepository,
	moderator *moderation.Moderator,
	publisher contract.Publisher,
) *Router {
	return &Router{
		log:       log,
		registry:  registry,
		accounts:  accounts,
		messages:  messages,
		offline:   offline,
		moderator: moderator,
		publisher: publisher,
	}
}

// Send routes one message from sender to receiver. An unknown receiver
// aborts the send; an unknown sender is only logged, the message still
// goes through so a half-provisioned account cannot lose outbound mail.
func (r *Router) Send(ctx context.Context, sender, receiver, content string) error {
	if _, err := r.accounts.FindByUID(receiver); err != nil {
		return fmt.Errorf("resolving receiver %q: %w", receiver, err)
	}
	if _, err := r.accounts.FindByUID(sender); err != nil {
		r.log.Warn("Sender account not found, routing anyway", "sender", sender, "error", err)
	}

	content = r.moderator.Censor(content)
	now := time.Now().UTC()

	if r.registry.IsOnline(receiver) {
		msg := domain.Message{
			ID:       uuid.New(),
			Sender:   sender,
			Receiver: receiver,
			Content:  content,
			SentAt:   now,
		}
		if err := r.messages.Store(msg); err != nil {
			return fmt.Errorf("%w: storing message: %w", apperrors.ErrTransientStore, err)
		}
		r.publisher.Publish(event.MessageDelivered{
			Message: msg,
			To:      []string{receiver, sender},
		})
		return nil
	}

	off := domain.OfflineMessage{
		ID:       uuid.New(),
		Sender:   sender,
		Receiver: receiver,
		Content:  content,
		SentAt:   now,
	}
	if err := r.offline.Enqueue(off); err != nil {
		return fmt.Errorf("%w: queueing offline message: %w", apperrors.ErrTransientStore, err)
	}
	r.publisher.Publish(event.OfflineQueued{Message: off})
	return nil
}
