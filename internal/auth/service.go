package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/entities"
)

// UserStore is the subset of the users repository the service needs.
type UserStore interface {
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	TouchLastLogin(ctx context.Context, id uint, t time.Time) error
}

// Service verifies credentials and resolves session principals.
type Service struct {
	users  UserStore
	config config.Auth
	now    func() time.Time

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewService creates a new authentication service.
func NewService(users UserStore, cfg config.Auth) *Service {
	dummy, err := HashPassword("dummy-password", cfg.BcryptCost)
	if err != nil {
		log.Printf("auth: failed to prepare dummy hash: %v", err)
	}
	return &Service{
		users:     users,
		config:    cfg,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Authenticate checks username and password. Unknown users and wrong
// passwords both return apperr.ErrInvalidCredentials. On success the user's
// last_login is stamped.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entities.Principal, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			_ = CheckPassword(password, s.dummyHash)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		log.Printf("auth: failed to record last login for user %d: %v", user.ID, err)
	}

	return entities.PrincipalFromUser(user), nil
}

// PrincipalByID resolves a session's user id. Deleted users yield
// apperr.ErrUnauthenticated.
func (s *Service) PrincipalByID(ctx context.Context, id uint) (*entities.Principal, error) {
	if id == 0 {
		return nil, apperr.ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthenticated
		}
		return nil, err
	}
	return entities.PrincipalFromUser(user), nil
}

// HashPassword hashes with the configured bcrypt cost.
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.config.BcryptCost)
}

// CheckPassword verifies password against hash, reporting any mismatch as
// apperr.ErrInvalidCredentials.
func (s *Service) CheckPassword(password, hash string) error {
	if err := CheckPassword(password, hash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return apperr.ErrInvalidCredentials
		}
		return err
	}
	return nil
}
