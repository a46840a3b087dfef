package services

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	apperrors "chat-relay/errors"

	"github.com/samber/lo"
)

// UserService covers the thin account boundary the relay depends on:
// signup, login, and the contact list. Everything else about accounts lives
// outside this system.
type UserService struct {
	log    *slog.Logger
	users  contract.IUserRepository
	tokens *auth.Tokens
}

func NewUserService(log *slog.Logger, users contract.IUserRepository, tokens *auth.Tokens) *UserService {
	return &UserService{log: log, users: users, tokens: tokens}
}

func (s *UserService) Signup(ctx context.Context, name, email, mobile, password string) (domain.User, error) {
	if err := auth.ValidateSignup(auth.SignupRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}); err != nil {
		return domain.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		Email:        email,
		Name:         name,
		Mobile:       mobile,
		Provider:     domain.ProviderCredentials,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(user); err != nil {
		return domain.User{}, err
	}

	s.log.Info("User signed up", "identity", email)
	return user.Sanitized(), nil
}

// Login checks credentials and issues the JWT the transport layer expects.
func (s *UserService) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	user, err := s.users.Get(email)
	if err != nil {
		// Same declined response for unknown user and wrong password.
		return "", domain.User{}, apperrors.ErrBadCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, apperrors.ErrBadCredentials
	}

	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user.Sanitized(), nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) domain.User {
		return u.Sanitized()
	}), nil
}

func (s *UserService) Get(ctx context.Context, email string) (domain.User, error) {
	user, err := s.users.Get(email)
	if err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}
