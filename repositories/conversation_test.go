package repositories

import (
	"sync"
	"testing"
	"time"

	"chat-relay/domain"
	apperrors "chat-relay/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestConversationRepository_GetOrCreateDirect_Creates_Once(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(testDB(t), testLogger())

	conv, created, err := repo.GetOrCreateDirect("alice@example.com", "bob@example.com")
	req.NoError(err)
	req.True(created)
	req.Equal(domain.KindDirect, conv.Kind)
	req.Equal([]string{"alice@example.com", "bob@example.com"}, conv.Participants)

	// The reversed pair resolves to the same conversation
	same, created, err := repo.GetOrCreateDirect("bob@example.com", "alice@example.com")
	req.NoError(err)
	req.False(created)
	req.Equal(conv.ID, same.ID)
}

func TestConversationRepository_GetOrCreateDirect_Race_Yields_One_Conversation(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(testDB(t), testLogger())

	const callers = 10
	ids := make(chan uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, _, err := repo.GetOrCreateDirect("alice@example.com", "bob@example.com")
			require.NoError(t, err)
			ids <- conv.ID
		}()
	}
	wg.Wait()
	close(ids)

	unique := make(map[uuid.UUID]bool)
	for id := range ids {
		unique[id] = true
	}
	req.Len(unique, 1)
}

func TestConversationRepository_CreateGroup_And_Get(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(testDB(t), testLogger())

	conv, err := repo.CreateGroup("project", []string{
		"carol@example.com", "alice@example.com", "bob@example.com",
	})
	req.NoError(err)
	req.Equal(domain.KindGroup, conv.Kind)
	req.Equal("project", conv.Name)

	found, err := repo.Get(conv.ID)
	req.NoError(err)
	req.Equal([]string{"alice@example.com", "bob@example.com", "carol@example.com"},
		found.Participants)
}

func TestConversationRepository_Get_Unknown(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(testDB(t), testLogger())

	_, err := repo.Get(uuid.New())
	req.ErrorIs(err, apperrors.ErrConversationNotFound)
}

func TestConversationRepository_ListByParticipant_Orders_By_Activity(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(testDB(t), testLogger())

	older, _, err := repo.GetOrCreateDirect("alice@example.com", "bob@example.com")
	req.NoError(err)
	newer, _, err := repo.GetOrCreateDirect("alice@example.com", "carol@example.com")
	req.NoError(err)

	base := time.Now().UTC()
	req.NoError(repo.SetLastMessage(older.ID, uuid.New(), base.Add(-time.Hour)))
	req.NoError(repo.SetLastMessage(newer.ID, uuid.New(), base))

	conversations, err := repo.ListByParticipant("alice@example.com")
	req.NoError(err)
	req.Len(conversations, 2)
	req.Equal(newer.ID, conversations[0].ID)
	req.Equal(older.ID, conversations[1].ID)

	// The other party only sees their own conversation
	bobs, err := repo.ListByParticipant("bob@example.com")
	req.NoError(err)
	req.Len(bobs, 1)
	req.Equal(older.ID, bobs[0].ID)
}

func TestConversationRepository_SetLastMessage(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(testDB(t), testLogger())

	conv, _, err := repo.GetOrCreateDirect("alice@example.com", "bob@example.com")
	req.NoError(err)

	messageID := uuid.New()
	at := time.Now().UTC()
	req.NoError(repo.SetLastMessage(conv.ID, messageID, at))

	found, err := repo.Get(conv.ID)
	req.NoError(err)
	req.NotNil(found.LastMessageID)
	req.Equal(messageID, *found.LastMessageID)
	req.True(found.LastMessageAt.Equal(at))

	req.ErrorIs(repo.SetLastMessage(uuid.New(), messageID, at), apperrors.ErrConversationNotFound)
}
