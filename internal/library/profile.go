package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/database/downloads"
	"github.com/mrlokans/elibrary/internal/entities"
)

// Profile loads the caller's own account.
func (s *Service) Profile(ctx context.Context, principal *entities.Principal) (*entities.User, error) {
	if err := authorize(principal, capNonAdmin); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, principal.UserID)
}

// UpdateProfile changes the caller's username, email and full name.
func (s *Service) UpdateProfile(ctx context.Context, principal *entities.Principal, in ProfileInput) (*entities.User, error) {
	if err := authorize(principal, capNonAdmin); err != nil {
		return nil, err
	}

	in.normalize()
	if err := orNil(check(s.validate, in)); err != nil {
		return nil, err
	}

	return s.users.UpdateProfile(ctx, principal.UserID, in.Username, in.Email, in.FullName)
}

// ChangePassword replaces the caller's password after verifying the current
// one.
func (s *Service) ChangePassword(ctx context.Context, principal *entities.Principal, in PasswordInput) error {
	if err := authorize(principal, capNonAdmin); err != nil {
		return err
	}

	if err := orNil(check(s.validate, in)); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if err := s.passwords.CheckPassword(in.CurrentPassword, user.PasswordHash); err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			return apperr.NewValidationError("current_password", "Current password is incorrect.")
		}
		return err
	}

	hash, err := s.passwords.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdatePasswordHash(ctx, user.ID, hash)
}

// ProfileDownloads returns the caller's latest downloads.
func (s *Service) ProfileDownloads(ctx context.Context, principal *entities.Principal) ([]entities.Download, error) {
	if err := authorize(principal, capNonAdmin); err != nil {
		return nil, err
	}
	return s.downloads.Recent(ctx, downloads.Filter{UserID: principal.UserID}, profileRecentDownload)
}
