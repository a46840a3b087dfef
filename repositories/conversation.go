//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"chat-relay/domain"
	apperrors "chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

func conversationKey(id uuid.UUID) []byte {
	return []byte("chat:" + id.String())
}

// directIndexKey is the storage-level uniqueness constraint for direct
// conversations: both participants map to the same normalized pair key, so
// check-then-create runs inside one transaction instead of being a racy
// application-level lookup.
func directIndexKey(a, b string) []byte {
	return []byte("direct:" + domain.DirectPairKey(a, b))
}

// memberIndexKey lets ListByParticipant scan a participant's conversations
// without loading the whole chat keyspace.
func memberIndexKey(identity string, id uuid.UUID) []byte {
	return []byte("member:" + identity + ":" + id.String())
}

// GetOrCreateDirect returns the unique direct conversation for an unordered
// identity pair, creating it when absent. The boolean reports whether a new
// conversation was created. Concurrent calls from both parties are serialized
// by the transaction: badger aborts the losing create with ErrConflict, and
// the retry then observes the winner's index entry and returns the same
// conversation.
func (r *ConversationRepository) GetOrCreateDirect(a, b string) (domain.Conversation, bool, error) {
	for {
		conv, created, err := r.getOrCreateDirectOnce(a, b)
		if err == badger.ErrConflict {
			r.log.Debug("Direct conversation create raced, retrying",
				"pair", domain.DirectPairKey(a, b))
			continue
		}
		if err != nil {
			return domain.Conversation{}, false, apperrors.Upstream(err)
		}
		return conv, created, nil
	}
}

func (r *ConversationRepository) getOrCreateDirectOnce(a, b string) (domain.Conversation, bool, error) {
	var conv domain.Conversation
	var created bool

	err := r.db.Update(func(txn *badger.Txn) error {
		idxItem, err := txn.Get(directIndexKey(a, b))
		switch err {
		case nil:
			var id uuid.UUID
			if err := idxItem.Value(func(v []byte) error {
				parsed, err := uuid.Parse(string(v))
				id = parsed
				return err
			}); err != nil {
				return err
			}
			existing, err := getConversation(txn, id)
			if err != nil {
				return err
			}
			conv = existing
			return nil
		case badger.ErrKeyNotFound:
			// fall through to creation
		default:
			return err
		}

		participants := []string{a, b}
		sort.Strings(participants)
		conv = domain.Conversation{
			ID:           uuid.New(),
			Kind:         domain.KindDirect,
			Participants: participants,
			CreatedAt:    time.Now().UTC(),
		}
		created = true
		if err := putConversation(txn, conv); err != nil {
			return err
		}
		return txn.Set(directIndexKey(a, b), []byte(conv.ID.String()))
	})
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return conv, created, nil
}

// CreateGroup persists a group conversation with a flat participant list.
// Membership management beyond this list is out of scope.
func (r *ConversationRepository) CreateGroup(name string, participants []string) (domain.Conversation, error) {
	sorted := append([]string{}, participants...)
	sort.Strings(sorted)
	conv := domain.Conversation{
		ID:           uuid.New(),
		Kind:         domain.KindGroup,
		Name:         name,
		Participants: sorted,
		CreatedAt:    time.Now().UTC(),
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return putConversation(txn, conv)
	})
	if err != nil {
		return domain.Conversation{}, apperrors.Upstream(err)
	}
	return conv, nil
}

func (r *ConversationRepository) Get(id uuid.UUID) (domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := getConversation(txn, id)
		conv = found
		return err
	})
	if err == badger.ErrKeyNotFound {
		return domain.Conversation{}, apperrors.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, apperrors.Upstream(err)
	}
	return conv, nil
}

// ListByParticipant returns all conversations the identity belongs to,
// most recently touched first.
func (r *ConversationRepository) ListByParticipant(identity string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("member:" + identity + ":")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			id, err := uuid.Parse(string(key[len(prefix):]))
			if err != nil {
				return err
			}
			conv, err := getConversation(txn, id)
			if err != nil {
				return err
			}
			conversations = append(conversations, conv)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Upstream(err)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
	return conversations, nil
}

// SetLastMessage updates the denormalized last-message pointer. Each
// conversation is updated independently, so a plain read-modify-write in one
// transaction is enough.
func (r *ConversationRepository) SetLastMessage(id uuid.UUID, messageID uuid.UUID, at time.Time) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		conv, err := getConversation(txn, id)
		if err != nil {
			return err
		}
		conv.LastMessageID = &messageID
		conv.LastMessageAt = at
		return putConversation(txn, conv)
	})
	if err == badger.ErrKeyNotFound {
		return apperrors.ErrConversationNotFound
	}
	if err != nil {
		return apperrors.Upstream(err)
	}
	return nil
}

func getConversation(txn *badger.Txn, id uuid.UUID) (domain.Conversation, error) {
	item, err := txn.Get(conversationKey(id))
	if err != nil {
		return domain.Conversation{}, err
	}
	var conv domain.Conversation
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &conv)
	})
	return conv, err
}

// putConversation writes the record and refreshes the member index entries
// in the same transaction.
func putConversation(txn *badger.Txn, conv domain.Conversation) error {
	bytes, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	if err := txn.Set(conversationKey(conv.ID), bytes); err != nil {
		return err
	}
	for _, p := range conv.Participants {
		if err := txn.Set(memberIndexKey(p, conv.ID), nil); err != nil {
			return err
		}
	}
	return nil
}
