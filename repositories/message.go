//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-relay/domain"
	apperrors "chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	// lastStamp holds the highest sequence stamp handed out per conversation,
	// lazily restored from disk after a restart.
	mu        sync.Mutex
	lastStamp map[uuid.UUID]int64
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{
		db:        db,
		log:       log,
		lastStamp: make(map[uuid.UUID]int64),
	}
}

// messageKey formats the primary key as "msg:{conversation}:{stamp_padded}:{id}":
//  1. The 19-digit zero padding makes lexicographic order equal chronological
//     order within a conversation prefix.
//  2. The UUID suffix keeps keys unique even if two processes ever raced on
//     the same stamp.
func messageKey(conversationID uuid.UUID, stamp int64, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", conversationID, stamp, id))
}

func messagePrefix(conversationID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversationID))
}

// idIndexKey maps a message id to its primary key so read receipt updates
// can find a message without knowing its stamp.
func idIndexKey(id uuid.UUID) []byte {
	return []byte("msgid:" + id.String())
}

// nextStamp assigns the strictly increasing sequence stamp for a
// conversation: wall clock nanoseconds, bumped by one whenever the clock
// has not advanced past the previous stamp. Ties between concurrent sends
// are therefore resolved by assignment order.
func (m *MessageRepository) nextStamp(conversationID uuid.UUID, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.lastStamp[conversationID]
	if !ok {
		restored, err := m.highestStoredStamp(conversationID)
		if err != nil {
			return 0, err
		}
		last = restored
	}

	stamp := now.UnixNano()
	if stamp <= last {
		stamp = last + 1
	}
	m.lastStamp[conversationID] = stamp
	return stamp, nil
}

// highestStoredStamp seeks the newest message of a conversation to rebuild
// the in-memory counter after a restart. Returns zero for an empty log.
func (m *MessageRepository) highestStoredStamp(conversationID uuid.UUID) (int64, error) {
	var stamp int64
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the whole prefix range, then the first valid entry going
		// backwards is the newest message.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		it.Seek(seekKey)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		key := it.Item().Key()
		_, err := fmt.Sscanf(string(key[len(prefix):]), "%d", &stamp)
		return err
	})
	return stamp, err
}

// Store persists a message with a freshly assigned sequence stamp and
// creation time, and returns the stored record. The id index entry is
// written in the same transaction.
func (m *MessageRepository) Store(msg domain.Message) (domain.Message, error) {
	now := time.Now().UTC()
	stamp, err := m.nextStamp(msg.ConversationID, now)
	if err != nil {
		return domain.Message{}, apperrors.Upstream(err)
	}
	msg.Stamp = stamp
	msg.CreatedAt = time.Unix(0, stamp).UTC()

	bytes, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, apperrors.Upstream(err)
	}

	key := messageKey(msg.ConversationID, msg.Stamp, msg.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(idIndexKey(msg.ID), key)
	})
	if err != nil {
		return domain.Message{}, apperrors.Upstream(err)
	}
	return msg, nil
}

// List retrieves up to limit messages of a conversation in ascending
// creation order. Thanks to the padded stamp in the key, a plain forward
// prefix scan is already oldest-first.
func (m *MessageRepository) List(conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Upstream(err)
	}
	return messages, nil
}

// AppendReadReceipt adds a (reader, readAt) entry to a message, at most once
// per reader. Re-reading a message is a no-op, not an error. The message must
// belong to the given conversation: the id index spans all conversations, so
// the caller's membership check only holds if the cited conversation and the
// stored record agree. Concurrent readers of one message abort each other's
// transaction, so a conflicting append is retried against the fresh record.
func (m *MessageRepository) AppendReadReceipt(conversationID uuid.UUID, messageID uuid.UUID, reader string) (domain.Message, error) {
	for {
		updated, err := m.appendReadReceiptOnce(conversationID, messageID, reader)
		if err == badger.ErrConflict {
			m.log.Debug("Read receipt append raced, retrying", "message", messageID)
			continue
		}
		return updated, err
	}
}

func (m *MessageRepository) appendReadReceiptOnce(conversationID uuid.UUID, messageID uuid.UUID, reader string) (domain.Message, error) {
	var updated domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		idxItem, err := txn.Get(idIndexKey(messageID))
		if err != nil {
			return err
		}
		var key []byte
		if err := idxItem.Value(func(v []byte) error {
			key = append([]byte{}, v...)
			return nil
		}); err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var msg domain.Message
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &msg)
		}); err != nil {
			return err
		}
		if msg.ConversationID != conversationID {
			// The message exists, but not where the caller claims it does.
			return badger.ErrKeyNotFound
		}

		if !msg.WasReadBy(reader) {
			msg.ReadBy = append(msg.ReadBy, domain.ReadReceipt{
				Reader: reader,
				ReadAt: time.Now().UTC(),
			})
			bytes, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(key, bytes); err != nil {
				return err
			}
		}
		updated = msg
		return nil
	})
	switch err {
	case nil:
		return updated, nil
	case badger.ErrKeyNotFound:
		return domain.Message{}, apperrors.ErrMessageNotFound
	case badger.ErrConflict:
		return domain.Message{}, err
	default:
		return domain.Message{}, apperrors.Upstream(err)
	}
}
