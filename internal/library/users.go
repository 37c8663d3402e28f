package library

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/elibrary/internal/entities"
)

// ListUsers returns every regular account, newest first.
func (s *Service) ListUsers(ctx context.Context, principal *entities.Principal) ([]entities.User, error) {
	if err := authorize(principal, capAdmin); err != nil {
		return nil, err
	}
	return s.users.ListNonAdmin(ctx)
}

// GetUser loads one account.
func (s *Service) GetUser(ctx context.Context, principal *entities.Principal, id uint) (*entities.User, error) {
	if err := authorize(principal, capAdmin); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// CreateUser opens an account. Username and email must be unused.
func (s *Service) CreateUser(ctx context.Context, principal *entities.Principal, in UserInput) (*entities.User, error) {
	if err := authorize(principal, capAdmin); err != nil {
		return nil, err
	}

	in.normalize()
	if err := orNil(check(s.validate, in)); err != nil {
		return nil, err
	}

	hash, err := s.passwords.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("User %q created by %s (admin=%t)", user.Username, principal.Username, user.IsAdmin)
	return user, nil
}

// DeleteUser removes a regular account and its download history.
// Administrators cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, principal *entities.Principal, id uint) error {
	if err := authorize(principal, capAdmin); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("User %d deleted by %s", id, principal.Username)
	return nil
}
