package repositories

import (
	"testing"
	"time"

	"chat-relay/domain"
	apperrors "chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func testUser(email, name string) domain.User {
	return domain.User{
		Email:        email,
		Name:         name,
		Provider:     domain.ProviderCredentials,
		PasswordHash: "$argon2id$fake",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(testDB(t), testLogger())

	req.NoError(repo.Create(testUser("alice@example.com", "Alice")))

	found, err := repo.Get("alice@example.com")
	req.NoError(err)
	req.Equal("Alice", found.Name)
	req.Equal("$argon2id$fake", found.PasswordHash)
}

func TestUserRepository_Create_Duplicate_Address(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(testDB(t), testLogger())

	req.NoError(repo.Create(testUser("alice@example.com", "Alice")))

	err := repo.Create(testUser("alice@example.com", "Impostor"))
	req.ErrorIs(err, apperrors.ErrUserExists)

	// The original record is untouched
	found, err := repo.Get("alice@example.com")
	req.NoError(err)
	req.Equal("Alice", found.Name)
}

func TestUserRepository_Get_Unknown(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(testDB(t), testLogger())

	_, err := repo.Get("nobody@example.com")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

func TestUserRepository_List_Sorted_By_Name(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(testDB(t), testLogger())

	req.NoError(repo.Create(testUser("carol@example.com", "Carol")))
	req.NoError(repo.Create(testUser("alice@example.com", "Alice")))
	req.NoError(repo.Create(testUser("bob@example.com", "Bob")))

	users, err := repo.List()
	req.NoError(err)
	req.Len(users, 3)
	req.Equal("Alice", users[0].Name)
	req.Equal("Bob", users[1].Name)
	req.Equal("Carol", users[2].Name)
}
