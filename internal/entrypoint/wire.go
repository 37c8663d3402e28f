package entrypoint

import (
	"context"
	"fmt"

	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/blobstore"
	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/database/books"
	"github.com/mrlokans/elibrary/internal/database/categories"
	"github.com/mrlokans/elibrary/internal/database/downloads"
	"github.com/mrlokans/elibrary/internal/database/users"
	"github.com/mrlokans/elibrary/internal/library"
)

// App holds the long-lived services shared by the server and the CLI.
type App struct {
	DB      *database.Database
	Blobs   blobstore.Store
	Auth    *auth.Service
	Library *library.Service
}

// Open connects the database, seeds the default admin and categories, and
// builds the library service on top of the configured blob store.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app, err := build(ctx, db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, db *database.Database, cfg *config.Config) (*App, error) {
	userRepo := users.NewRepository(db.DB)
	authService := auth.NewService(userRepo, cfg.Auth)

	if _, err := db.Bootstrap(ctx, cfg.Bootstrap, authService.HashPassword); err != nil {
		return nil, fmt.Errorf("failed to bootstrap database: %w", err)
	}

	blobs, err := blobstore.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	lib := library.NewService(library.Dependencies{
		Books:      books.NewRepository(db.DB),
		Categories: categories.NewRepository(db.DB),
		Users:      userRepo,
		Downloads:  downloads.NewRepository(db.DB),
		Blobs:      blobs,
		Passwords:  authService,
		Upload:     cfg.Upload,
	})

	return &App{DB: db, Blobs: blobs, Auth: authService, Library: lib}, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.DB.Close()
}
