//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"log/slog"
	"sort"

	"chat-relay/domain"
	apperrors "chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
)

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

func userKey(email string) []byte {
	return []byte("user:" + email)
}

// Create stores a new user. The contact address is the identity key, so the
// uniqueness check and the write share one transaction.
func (r *UserRepository) Create(user domain.User) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(user.Email))
		switch err {
		case nil:
			return apperrors.ErrUserExists
		case badger.ErrKeyNotFound:
			// proceed
		default:
			return err
		}
		bytes, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(user.Email), bytes)
	})
	if err == nil || err == apperrors.ErrUserExists {
		return err
	}
	return apperrors.Upstream(err)
}

func (r *UserRepository) Get(email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, apperrors.Upstream(err)
	}
	return user, nil
}

// List returns every known user sorted by display name, the order the
// contact picker shows them in.
func (r *UserRepository) List() ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var user domain.User
				if err := json.Unmarshal(v, &user); err != nil {
					return err
				}
				users = append(users, user)
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

	sort.Slice(users, func(i, j int) bool {
		return users[i].Name < users[j].Name
	})
	return users, nil
}
