//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"

	"github.com/google/uuid"
)

// EventSink is one live connection's inbox. Implementations must be cheap
// and non-blocking: a slow consumer gets dropped events, never a stalled
// registry.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker lifecycle
// events, avoiding the need for manual naming in the Worker interface.
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

// IPresence is the source of truth for "who is online now". Operations
// never fail: presence is best-effort in-memory bookkeeping, rebuilt from
// zero when the process restarts.
type IPresence interface {
	Announce(ctx context.Context, identity string, sink EventSink)
	Withdraw(ctx context.Context, sink EventSink)
	IsOnline(identity string) bool
	OnlineSet() []string
	SinkOf(identity string) (EventSink, bool)
	Broadcast(ctx context.Context, e event.DomainEvent)
	BroadcastExcept(ctx context.Context, e event.DomainEvent, except EventSink)
}

type ITypingTracker interface {
	SetTyping(ctx context.Context, conversationID uuid.UUID, identity, displayName string, isTyping bool, origin EventSink)
	IsTyping(conversationID uuid.UUID, identity string) bool
	WithdrawIdentity(ctx context.Context, identity string)
}

type IRelay interface {
	Deliver(ctx context.Context, msg domain.Message, participants []string)
	DeliverConversation(ctx context.Context, conv domain.Conversation, creator string)
}

type IUserRepository interface {
	Create(user domain.User) error
	Get(email string) (domain.User, error)
	List() ([]domain.User, error)
}

type IConversationRepository interface {
	GetOrCreateDirect(a, b string) (domain.Conversation, bool, error)
	CreateGroup(name string, participants []string) (domain.Conversation, error)
	Get(id uuid.UUID) (domain.Conversation, error)
	ListByParticipant(identity string) ([]domain.Conversation, error)
	SetLastMessage(id uuid.UUID, messageID uuid.UUID, at time.Time) error
}

type IMessageRepository interface {
	Store(msg domain.Message) (domain.Message, error)
	List(conversationID uuid.UUID, limit int) ([]domain.Message, error)
	AppendReadReceipt(conversationID uuid.UUID, messageID uuid.UUID, reader string) (domain.Message, error)
}
