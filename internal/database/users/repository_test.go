package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/database/dbtest"
	"github.com/mrlokans/elibrary/internal/entities"
)

func setupTestRepo(t *testing.T) (*Repository, *database.Database) {
	db := dbtest.Open(t)
	return NewRepository(db.DB), db
}

func newUser(username string) *entities.User {
	return &entities.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: "hash",
	}
}

func TestRepository_Create(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	user := newUser("alice")
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestRepository_Create_DuplicateUsername(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("alice")))

	dup := newUser("alice")
	dup.Email = "other@example.com"
	err := repo.Create(ctx, dup)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	var cerr *apperr.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "username", cerr.Field)
}

func TestRepository_Create_DuplicateEmail(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("alice")))

	dup := newUser("bob")
	dup.Email = "alice@example.com"
	err := repo.Create(ctx, dup)

	var cerr *apperr.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "email", cerr.Field)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, _ := setupTestRepo(t)

	_, err := repo.GetByID(context.Background(), 999)

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRepository_UpdateProfile(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	alice := newUser("alice")
	require.NoError(t, repo.Create(ctx, alice))
	require.NoError(t, repo.Create(ctx, newUser("bob")))

	t.Run("keeps own username and email", func(t *testing.T) {
		updated, err := repo.UpdateProfile(ctx, alice.ID, "alice", "alice@example.com", "Alice A.")
		require.NoError(t, err)
		assert.Equal(t, "Alice A.", updated.FullName)
	})

	t.Run("rejects another user's username", func(t *testing.T) {
		_, err := repo.UpdateProfile(ctx, alice.ID, "bob", "alice@example.com", "Alice")
		var cerr *apperr.ConflictError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "username", cerr.Field)
	})

	t.Run("rejects another user's email", func(t *testing.T) {
		_, err := repo.UpdateProfile(ctx, alice.ID, "alice", "bob@example.com", "Alice")
		var cerr *apperr.ConflictError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "email", cerr.Field)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.UpdateProfile(ctx, 999, "x", "x@example.com", "X")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestRepository_UpdatePasswordHash(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	user := newUser("alice")
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "newhash"))
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.PasswordHash)

	assert.True(t, errors.Is(repo.UpdatePasswordHash(ctx, 999, "x"), apperr.ErrNotFound))
}

func TestRepository_TouchLastLogin(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	user := newUser("alice")
	require.NoError(t, repo.Create(ctx, user))
	assert.Nil(t, user.LastLogin)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, now))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, now.Equal(got.LastLogin.UTC()))
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes user and their downloads", func(t *testing.T) {
		repo, db := setupTestRepo(t)
		admin := dbtest.User(t, db, "admin", true)
		reader := dbtest.User(t, db, "reader", false)
		book := dbtest.Book(t, db, "go", dbtest.Category(t, db, "Programming"), admin)
		dbtest.Download(t, db, reader, book)
		dbtest.Download(t, db, admin, book)

		require.NoError(t, repo.Delete(ctx, reader.ID))

		_, err := repo.GetByID(ctx, reader.ID)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))

		var remaining int64
		require.NoError(t, db.DB.Model(&entities.Download{}).Count(&remaining).Error)
		assert.Equal(t, int64(1), remaining)
	})

	t.Run("refuses admins", func(t *testing.T) {
		repo, db := setupTestRepo(t)
		admin := dbtest.User(t, db, "admin", true)

		err := repo.Delete(ctx, admin.ID)

		assert.True(t, errors.Is(err, apperr.ErrForbidden))
		_, err = repo.GetByID(ctx, admin.ID)
		assert.NoError(t, err)
	})

	t.Run("refuses users who uploaded books", func(t *testing.T) {
		repo, db := setupTestRepo(t)
		uploader := dbtest.User(t, db, "uploader", false)
		dbtest.Book(t, db, "mine", dbtest.Category(t, db, "Fiction"), uploader)

		err := repo.Delete(ctx, uploader.ID)

		assert.True(t, errors.Is(err, apperr.ErrConflict))
	})

	t.Run("missing user", func(t *testing.T) {
		repo, _ := setupTestRepo(t)
		assert.True(t, errors.Is(repo.Delete(ctx, 42), apperr.ErrNotFound))
	})
}

func TestRepository_ListNonAdmin(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()

	dbtest.User(t, db, "admin", true)
	dbtest.User(t, db, "first", false)
	dbtest.User(t, db, "second", false)

	users, err := repo.ListNonAdmin(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "second", users[0].Username)
	assert.Equal(t, "first", users[1].Username)

	count, err := repo.CountNonAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
