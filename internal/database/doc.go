// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or Postgres), migrations
//	├── bootstrap.go     # Default admin account and category seeding
//	├── users/           # Accounts, uniqueness checks, admin-protected delete
//	├── categories/      # Categories, delete blocked while books exist
//	├── books/           # Books, search/pagination, cascading delete
//	└── downloads/       # Append-only download log
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	usersRepo := users.NewRepository(db.DB)
//	booksRepo := books.NewRepository(db.DB)
//
//	page, err := booksRepo.List(ctx, books.Filter{Query: "dune"}, 1, 12)
//
// # Constraints
//
// Uniqueness (username, email, category name) is enforced by unique indexes.
// Repositories additionally check inside a transaction so that the conflicting
// field can be reported; both paths surface apperr.ErrConflict.
package database
