package library

import (
	"context"
	"time"

	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/database/books"
	"github.com/mrlokans/elibrary/internal/database/downloads"
	"github.com/mrlokans/elibrary/internal/entities"
)

// BookStore persists the catalog.
type BookStore interface {
	Create(ctx context.Context, book *entities.Book) error
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
	UpdateMetadata(ctx context.Context, id uint, title, author, description string, categoryID uint) (*entities.Book, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter books.Filter, page, pageSize int) (database.Page[entities.Book], error)
	Recent(ctx context.Context, limit int) ([]entities.Book, error)
	Count(ctx context.Context) (int64, error)
	FilePaths(ctx context.Context) ([]string, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	Create(ctx context.Context, category *entities.Category) error
	GetByID(ctx context.Context, id uint) (*entities.Category, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context) ([]entities.Category, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	UpdateProfile(ctx context.Context, id uint, username, email, fullName string) (*entities.User, error)
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
	Delete(ctx context.Context, id uint) error
	ListNonAdmin(ctx context.Context) ([]entities.User, error)
	CountNonAdmin(ctx context.Context) (int64, error)
}

// DownloadStore records the download audit trail.
type DownloadStore interface {
	Record(ctx context.Context, download *entities.Download) error
	List(ctx context.Context, filter downloads.Filter, page, pageSize int) (database.Page[entities.Download], error)
	Recent(ctx context.Context, filter downloads.Filter, limit int) ([]entities.Download, error)
	Count(ctx context.Context, filter downloads.Filter) (int64, error)
}

// PasswordHasher hashes and verifies passwords. CheckPassword returns
// apperr.ErrInvalidCredentials on a mismatch.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(password, hash string) error
}

// Clock returns the current time.
type Clock func() time.Time
