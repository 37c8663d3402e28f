// Package users provides database operations for library accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByUsername(ctx, "alice")
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/entities"
)

const (
	msgUsernameTaken = "Please use a different username."
	msgEmailTaken    = "Please use a different email address."
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts user. Username and email must be unused; the conflicting
// field is named in the returned ConflictError.
func (r *Repository) Create(ctx context.Context, user *entities.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, user.Username, user.Email, 0); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(user).Error
	})
	return mapWriteError(err)
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, database.NotFound(err, "user %d", id)
	}
	return &user, nil
}

// GetByUsername retrieves a user by exact username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, database.NotFound(err, "user %q", username)
	}
	return &user, nil
}

// UpdateProfile changes the username, email and full name of user id. The new
// username and email must not belong to another account.
func (r *Repository) UpdateProfile(ctx context.Context, id uint, username, email, fullName string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return database.NotFound(err, "user %d", id)
		}
		if err := checkUnique(tx, username, email, id); err != nil {
			return err
		}
		user.Username = username
		user.Email = email
		user.FullName = fullName
		return tx.Model(&user).Updates(map[string]any{
			"username":  username,
			"email":     email,
			"full_name": fullName,
		}).Error
	})
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &user, nil
}

// UpdatePasswordHash replaces the stored hash of user id.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// TouchLastLogin records a successful login at t.
func (r *Repository) TouchLastLogin(ctx context.Context, id uint, t time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Update("last_login", t).Error
}

// Delete removes a non-admin user together with their download history.
// Admins are never deleted, and neither are users who uploaded books.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, id).Error; err != nil {
			return database.NotFound(err, "user %d", id)
		}
		if user.IsAdmin {
			return apperr.Refuse(apperr.ErrForbidden, "Cannot delete admin users.")
		}

		var uploads int64
		if err := tx.Model(&entities.Book{}).Where("uploaded_by = ?", id).Count(&uploads).Error; err != nil {
			return err
		}
		if uploads > 0 {
			return apperr.Refuse(apperr.ErrConflict, "Cannot delete a user who has uploaded books.")
		}

		if err := tx.Where("user_id = ?", id).Delete(&entities.Download{}).Error; err != nil {
			return fmt.Errorf("failed to delete downloads: %w", err)
		}
		return tx.Delete(&user).Error
	})
}

// ListNonAdmin returns all regular users, newest first.
func (r *Repository) ListNonAdmin(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	err := r.db.WithContext(ctx).
		Where("is_admin = ?", false).
		Order("created_at DESC, id DESC").
		Find(&users).Error
	return users, err
}

// CountNonAdmin returns the number of regular users.
func (r *Repository) CountNonAdmin(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Where("is_admin = ?", false).Count(&count).Error
	return count, err
}

func checkUnique(tx *gorm.DB, username, email string, excludeID uint) error {
	var count int64
	q := tx.Model(&entities.User{}).Where("username = ?", username)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("username", msgUsernameTaken)
	}

	q = tx.Model(&entities.User{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("email", msgEmailTaken)
	}
	return nil
}

// mapWriteError turns a unique index failure that slipped past checkUnique
// (a concurrent insert) into a conflict.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("", "Username or email already in use.")
	}
	return err
}
