// Package service holds the snapshot server's business logic, delegating
// persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"regexp"
)

// ErrInvalidLogin is returned for logins that cannot be used as a
// certificate common name.
var ErrInvalidLogin = errors.New("login must be 1-64 characters of letters, digits, '.', '_', '@' or '-'")

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// UserExists returns true if a user with the given login exists.
	UserExists(ctx context.Context, login string) (bool, error)
	// RegisterUser creates a new user record with the given login.
	RegisterUser(ctx context.Context, login string) error
}

// Service implements authentication operations by delegating
// to an AuthRepository.
type Service struct {
	repo AuthRepository
}

// NewAuthService constructs a new Service using the provided repository.
func NewAuthService(repo AuthRepository) *Service {
	return &Service{repo: repo}
}

// UserExists checks whether a user with the specified login exists.
func (s *Service) UserExists(ctx context.Context, login string) (bool, error) {
	return s.repo.UserExists(ctx, login)
}

// RegisterUser validates login and registers it.
func (s *Service) RegisterUser(ctx context.Context, login string) error {
	if !loginPattern.MatchString(login) {
		return ErrInvalidLogin
	}
	return s.repo.RegisterUser(ctx, login)
}
