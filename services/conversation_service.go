//go:generate go run go.uber.org/mock/mockgen -source=conversation_service.go -destination=../mocks/mock_conversation_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
	apperrors "chat-relay/errors"

	"github.com/google/uuid"
)

type IConversationService interface {
	GetOrCreateDirect(ctx context.Context, requester, other string) (domain.Conversation, error)
	CreateGroup(ctx context.Context, requester, name string, participants []string) (domain.Conversation, error)
	Send(ctx context.Context, conversationID uuid.UUID, sender, senderName, content string, kind domain.ContentKind, fileName string) (domain.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, requester string, limit int) ([]domain.Message, error)
	ListConversations(ctx context.Context, requester string) ([]domain.Conversation, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID, requester string, messageID uuid.UUID) (domain.Message, error)
}

// ConversationService is the conversation manager: it enforces the direct
// uniqueness invariant, orders messages within a conversation, maintains the
// denormalized last-message pointer, and hands persisted messages to the
// relay. It is the only component allowed to create messages.
type ConversationService struct {
	log           *slog.Logger
	conversations contract.IConversationRepository
	messages      contract.IMessageRepository
	users         contract.IUserRepository
	relay         contract.IRelay
	historyLimit  int

	// sendLocks serializes persist+deliver per conversation, which is what
	// keeps delivery order equal to persistence order. Distinct
	// conversations never contend.
	mu        sync.Mutex
	sendLocks map[uuid.UUID]*sync.Mutex
}

func NewConversationService(
	log *slog.Logger,
	conversations contract.IConversationRepository,
	messages contract.IMessageRepository,
	users contract.IUserRepository,
	relay contract.IRelay,
	historyLimit int,
) *ConversationService {
	return &ConversationService{
		log:           log,
		conversations: conversations,
		messages:      messages,
		users:         users,
		relay:         relay,
		historyLimit:  historyLimit,
		sendLocks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// GetOrCreateDirect returns the unique direct conversation between the
// requester and another identity, creating it on first contact. Both call
// orders return the same conversation.
func (s *ConversationService) GetOrCreateDirect(ctx context.Context, requester, other string) (domain.Conversation, error) {
	if requester == other {
		return domain.Conversation{}, apperrors.ErrSelfConversation
	}
	if _, err := s.users.Get(other); err != nil {
		return domain.Conversation{}, err
	}

	conv, created, err := s.conversations.GetOrCreateDirect(requester, other)
	if err != nil {
		return domain.Conversation{}, err
	}
	if created {
		s.log.Info("Direct conversation created",
			"conversation", conv.ID, "requester", requester, "other", other)
		s.relay.DeliverConversation(ctx, conv, requester)
	}
	return conv, nil
}

func (s *ConversationService) CreateGroup(ctx context.Context, requester, name string, participants []string) (domain.Conversation, error) {
	members := map[string]struct{}{requester: {}}
	for _, p := range participants {
		members[p] = struct{}{}
	}
	if len(members) < 2 {
		return domain.Conversation{}, apperrors.ErrTooFewParticipants
	}

	all := make([]string, 0, len(members))
	for m := range members {
		all = append(all, m)
	}
	conv, err := s.conversations.CreateGroup(name, all)
	if err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info("Group conversation created", "conversation", conv.ID, "size", len(all))
	s.relay.DeliverConversation(ctx, conv, requester)
	return conv, nil
}

// Send validates, persists, updates the last-message pointer, and relays —
// in that order, under the conversation's ordering lock. A persistence
// failure aborts the send before any delivery: the message is simply not
// sent, and the caller may retry.
func (s *ConversationService) Send(ctx context.Context, conversationID uuid.UUID, sender, senderName, content string, kind domain.ContentKind, fileName string) (domain.Message, error) {
	conv, err := s.conversations.Get(conversationID)
	if err != nil {
		return domain.Message{}, err
	}
	if !conv.HasParticipant(sender) {
		return domain.Message{}, apperrors.ErrNotParticipant
	}
	if content == "" {
		return domain.Message{}, apperrors.ErrEmptyContent
	}
	if !kind.Valid() {
		return domain.Message{}, apperrors.ErrUnknownContentKind
	}

	lock := s.sendLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := s.messages.Store(domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         sender,
		SenderName:     senderName,
		Content:        content,
		Kind:           kind,
		FileName:       fileName,
	})
	if err != nil {
		return domain.Message{}, err
	}

	if err := s.conversations.SetLastMessage(conversationID, msg.ID, msg.CreatedAt); err != nil {
		return domain.Message{}, err
	}

	s.relay.Deliver(ctx, msg, conv.Participants)
	return msg, nil
}

// ListMessages returns up to limit messages oldest-first. The read is finite
// and restartable; no cursor state survives between calls.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID uuid.UUID, requester string, limit int) ([]domain.Message, error) {
	conv, err := s.conversations.Get(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requester) {
		return nil, apperrors.ErrNotParticipant
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.messages.List(conversationID, limit)
}

func (s *ConversationService) ListConversations(ctx context.Context, requester string) ([]domain.Conversation, error) {
	return s.conversations.ListByParticipant(requester)
}

// MarkRead appends a read receipt for the requester, at most once. The
// membership check runs against the cited conversation; the repository then
// rejects a message id that belongs to a different conversation, so citing
// one's own conversation never unlocks someone else's messages.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID uuid.UUID, requester string, messageID uuid.UUID) (domain.Message, error) {
	conv, err := s.conversations.Get(conversationID)
	if err != nil {
		return domain.Message{}, err
	}
	if !conv.HasParticipant(requester) {
		return domain.Message{}, apperrors.ErrNotParticipant
	}
	return s.messages.AppendReadReceipt(conversationID, messageID, requester)
}

func (s *ConversationService) sendLock(conversationID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sendLocks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.sendLocks[conversationID] = lock
	}
	return lock
}
