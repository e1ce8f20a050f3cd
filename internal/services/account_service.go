package services

import (
	"context"
	"strings"

	"github.com/mrlokans/bookexchange/internal/crypto"
	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// RegisterInput is what a new user supplies.
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Address  string `json:"address"`
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Address  string `json:"address"`
}

// AccountService handles registration, login and profile changes.
type AccountService struct {
	users storage.UserStore
}

func NewAccountService(users storage.UserStore) *AccountService {
	return &AccountService{users: users}
}

// Register validates input and stores the new user. Username, password and
// email are required.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	user := &entities.User{
		Username: strings.TrimSpace(in.Username),
		Password: in.Password,
		Email:    strings.TrimSpace(in.Email),
		FullName: strings.TrimSpace(in.FullName),
		Address:  strings.TrimSpace(in.Address),
	}

	if err := required("username", user.Username); err != nil {
		return nil, err
	}
	if err := required("password", user.Password); err != nil {
		return nil, err
	}
	if len(user.Password) > crypto.MaxPasswordLength {
		return nil, &ValidationError{Field: "password", Message: "must be at most 72 bytes"}
	}
	if err := required("email", user.Email); err != nil {
		return nil, err
	}

	if err := s.users.RegisterUser(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Authenticate returns the user for valid credentials and
// ErrInvalidCredentials otherwise.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	ok, err := s.users.AuthenticateUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Profile returns the user named username or storage.ErrNotFound.
func (s *AccountService) Profile(ctx context.Context, username string) (*entities.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, username string, in ProfileInput) (*entities.User, error) {
	user, err := s.Profile(ctx, username)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.Email)
	if err := required("email", email); err != nil {
		return nil, err
	}

	user.Email = email
	user.FullName = strings.TrimSpace(in.FullName)
	user.Address = strings.TrimSpace(in.Address)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
