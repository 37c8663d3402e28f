package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/database/dbtest"
	"github.com/mrlokans/elibrary/internal/database/users"
	"github.com/mrlokans/elibrary/internal/entities"
)

func testAuthConfig() config.Auth {
	return config.Auth{
		SessionLifetime:  time.Hour,
		BcryptCost:       4, // Low cost for faster tests
		MaxLoginAttempts: 3,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
}

func setupService(t *testing.T) (*Service, *users.Repository) {
	t.Helper()
	db := dbtest.Open(t)
	repo := users.NewRepository(db.DB)
	return NewService(repo, testAuthConfig()), repo
}

func createUser(t *testing.T, repo *users.Repository, username, password string, admin bool) *entities.User {
	t.Helper()
	hash, err := HashPassword(password, 4)
	require.NoError(t, err)
	user := &entities.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Full " + username,
		PasswordHash: hash,
		IsAdmin:      admin,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestService_Authenticate(t *testing.T) {
	service, repo := setupService(t)
	ctx := context.Background()
	user := createUser(t, repo, "alice", "secret1", false)

	principal, err := service.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "Full alice", principal.FullName)
	assert.False(t, principal.IsAdmin)

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.WithinDuration(t, time.Now(), *stored.LastLogin, time.Minute)
}

func TestService_Authenticate_GenericFailure(t *testing.T) {
	service, repo := setupService(t)
	ctx := context.Background()
	user := createUser(t, repo, "alice", "secret1", false)

	_, wrongPassword := service.Authenticate(ctx, "alice", "nope")
	_, unknownUser := service.Authenticate(ctx, "mallory", "secret1")

	assert.ErrorIs(t, wrongPassword, apperr.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, apperr.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastLogin, "failed login must not stamp last_login")
}

func TestService_Authenticate_UsernameIsExact(t *testing.T) {
	service, repo := setupService(t)
	createUser(t, repo, "alice", "secret1", false)

	_, err := service.Authenticate(context.Background(), "alice@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestService_PrincipalByID(t *testing.T) {
	service, repo := setupService(t)
	ctx := context.Background()
	admin := createUser(t, repo, "root", "secret1", true)

	principal, err := service.PrincipalByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin)

	_, err = service.PrincipalByID(ctx, 0)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = service.PrincipalByID(ctx, admin.ID+10)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestService_Authenticate_BootstrapAdmin(t *testing.T) {
	db := dbtest.Open(t)
	repo := users.NewRepository(db.DB)
	service := NewService(repo, testAuthConfig())
	ctx := context.Background()

	_, err := db.Bootstrap(ctx, config.Bootstrap{
		AdminUsername: "admin",
		AdminEmail:    "admin@elibrary.com",
		AdminFullName: "Administrator",
		AdminPassword: config.DefaultAdminPassword,
	}, service.HashPassword)
	require.NoError(t, err)

	_, err = service.Authenticate(ctx, "admin", "wrongpass")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	principal, err := service.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin)

	admin, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.NotNil(t, admin.LastLogin)
}

func TestService_CheckPassword(t *testing.T) {
	service, _ := setupService(t)
	hash, err := service.HashPassword("secret1")
	require.NoError(t, err)

	assert.NoError(t, service.CheckPassword("secret1", hash))
	assert.ErrorIs(t, service.CheckPassword("nope", hash), apperr.ErrInvalidCredentials)
}
