// Package dbtest opens throwaway databases for repository and service tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/entities"
)

// Open creates a migrated SQLite database in a temp dir. It is closed when
// the test finishes.
func Open(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.NewDatabaseWithLogger(config.Database{
		Path: filepath.Join(t.TempDir(), "test.db"),
	}, logger.Discard)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

// User inserts a user row with a placeholder password hash.
func User(t *testing.T, db *database.Database, username string, admin bool) *entities.User {
	t.Helper()

	user := &entities.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     username,
		PasswordHash: "x",
		IsAdmin:      admin,
	}
	require.NoError(t, db.DB.Create(user).Error)
	return user
}

// Category inserts a category row.
func Category(t *testing.T, db *database.Database, name string) *entities.Category {
	t.Helper()

	category := &entities.Category{Name: name}
	require.NoError(t, db.DB.Create(category).Error)
	return category
}

// Book inserts a book row owned by uploader in category.
func Book(t *testing.T, db *database.Database, title string, category *entities.Category, uploader *entities.User) *entities.Book {
	t.Helper()

	book := &entities.Book{
		Title:      title,
		Author:     "Author of " + title,
		Filename:   title + ".pdf",
		FilePath:   "blob_" + title + ".pdf",
		FileSize:   1024,
		CategoryID: category.ID,
		UploadedBy: uploader.ID,
	}
	require.NoError(t, db.DB.Omit("Category", "Uploader").Create(book).Error)
	return book
}

// Download inserts a download event.
func Download(t *testing.T, db *database.Database, user *entities.User, book *entities.Book) *entities.Download {
	t.Helper()

	download := &entities.Download{UserID: user.ID, BookID: book.ID, IPAddress: "127.0.0.1"}
	require.NoError(t, db.DB.Omit("User", "Book").Create(download).Error)
	return download
}
