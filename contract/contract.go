//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chatorbit/domain"
	"chatorbit/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives domain events for one live connection or for a
// permanent in-process consumer.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Publisher enqueues a domain event for asynchronous fan-out.
type Publisher interface {
	Publish(e event.DomainEvent)
}

// IPresence is the single owner of presence state: which account holds
// which live connection, and the sink behind it.
type IPresence interface {
	Associate(uid string, conn domain.ConnectionRef, sink EventSink) error
	DisassociateByConnection(connID string) (string, bool)
	UIDForConnection(connID string) (string, bool)
	IsOnline(uid string) bool
	ListOnline() []string
	SinkFor(uid string) (EventSink, bool)
	Sinks() []EventSink
}

type IAccountRepository interface {
	Create(account domain.Account) error
	FindByUID(uid string) (domain.Account, error)
	List() ([]domain.Account, error)
	UpdateConnection(uid string, ref *domain.ConnectionRef) error
}

type IMessageRepository interface {
	Store(message domain.Message) error
	FindBetween(a, b string) ([]domain.Message, error)
}

type IOfflineRepository interface {
	Enqueue(message domain.OfflineMessage) error
	Drain(receiver string) ([]domain.OfflineMessage, error)
}
