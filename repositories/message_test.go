package repositories

import (
	"sync"
	"testing"

	"chat-relay/domain"
	apperrors "chat-relay/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func draftMessage(conversationID uuid.UUID, content string) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         "alice@example.com",
		SenderName:     "Alice",
		Content:        content,
		Kind:           domain.ContentText,
	}
}

func TestMessageRepository_Store_Assigns_Increasing_Stamps(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(testDB(t), testLogger())
	conversationID := uuid.New()

	first, err := repo.Store(draftMessage(conversationID, "one"))
	req.NoError(err)
	second, err := repo.Store(draftMessage(conversationID, "two"))
	req.NoError(err)

	req.Greater(second.Stamp, first.Stamp)
	req.False(second.CreatedAt.Before(first.CreatedAt))
}

func TestMessageRepository_List_Returns_Oldest_First(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(testDB(t), testLogger())
	conversationID := uuid.New()

	contents := []string{"one", "two", "three"}
	for _, c := range contents {
		_, err := repo.Store(draftMessage(conversationID, c))
		req.NoError(err)
	}

	messages, err := repo.List(conversationID, 0)
	req.NoError(err)
	req.Len(messages, 3)
	for i, msg := range messages {
		req.Equal(contents[i], msg.Content)
	}
}

func TestMessageRepository_List_Honors_Limit(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(testDB(t), testLogger())
	conversationID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := repo.Store(draftMessage(conversationID, "hello"))
		req.NoError(err)
	}

	messages, err := repo.List(conversationID, 2)
	req.NoError(err)
	req.Len(messages, 2)
}

func TestMessageRepository_List_Isolates_Conversations(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(testDB(t), testLogger())
	conversationID := uuid.New()
	other := uuid.New()

	_, err := repo.Store(draftMessage(conversationID, "mine"))
	req.NoError(err)
	_, err = repo.Store(draftMessage(other, "theirs"))
	req.NoError(err)

	messages, err := repo.List(conversationID, 0)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("mine", messages[0].Content)
}

func TestMessageRepository_Concurrent_Stores_Never_Share_A_Stamp(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(testDB(t), testLogger())
	conversationID := uuid.New()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Store(draftMessage(conversationID, "racy"))
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	messages, err := repo.List(conversationID, 0)
	req.NoError(err)
	req.Len(messages, writers)

	seen := make(map[int64]bool, writers)
	prev := int64(0)
	for _, msg := range messages {
		req.False(seen[msg.Stamp])
		seen[msg.Stamp] = true
		req.Greater(msg.Stamp, prev)
		prev = msg.Stamp
	}
}

func TestMessageRepository_Stamp_Counter_Survives_Reopen(t *testing.T) {
	req := require.New(t)
	db := testDB(t)
	conversationID := uuid.New()

	first := NewMessageRepository(db, testLogger())
	stored, err := first.Store(draftMessage(conversationID, "before"))
	req.NoError(err)

	// A fresh repository on the same store restores the counter from disk
	second := NewMessageRepository(db, testLogger())
	next, err := second.Store(draftMessage(conversationID, "after"))
	req.NoError(err)
	req.Greater(next.Stamp, stored.Stamp)
}

func TestMessageRepository_AppendReadReceipt_Is_At_Most_Once(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(testDB(t), testLogger())
	conversationID := uuid.New()

	stored, err := repo.Store(draftMessage(conversationID, "read me"))
	req.NoError(err)

	updated, err := repo.AppendReadReceipt(conversationID, stored.ID, "bob@example.com")
	req.NoError(err)
	req.Len(updated.ReadBy, 1)
	req.Equal("bob@example.com", updated.ReadBy[0].Reader)

	// Re-reading does not duplicate the receipt
	again, err := repo.AppendReadReceipt(conversationID, stored.ID, "bob@example.com")
	req.NoError(err)
	req.Len(again.ReadBy, 1)
}

func TestMessageRepository_AppendReadReceipt_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(testDB(t), testLogger())

	_, err := repo.AppendReadReceipt(uuid.New(), uuid.New(), "bob@example.com")
	req.ErrorIs(err, apperrors.ErrMessageNotFound)
}

func TestMessageRepository_AppendReadReceipt_Rejects_Wrong_Conversation(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(testDB(t), testLogger())
	conversationID := uuid.New()

	stored, err := repo.Store(draftMessage(conversationID, "private"))
	req.NoError(err)

	// Citing a different conversation for a real message id must not land
	_, err = repo.AppendReadReceipt(uuid.New(), stored.ID, "mallory@example.com")
	req.ErrorIs(err, apperrors.ErrMessageNotFound)

	messages, err := repo.List(conversationID, 0)
	req.NoError(err)
	req.Len(messages, 1)
	req.Empty(messages[0].ReadBy)
}
