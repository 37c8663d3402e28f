package http

import (
	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/blobstore"
	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/library"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Library  *library.Service
	Database *database.Database
	Blobs    blobstore.Store // probed by /health

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte

	// UI paths. An empty TemplatesPath serves JSON only.
	TemplatesPath string
	StaticPath    string

	// MultipartMemory is how much of an upload is held in memory before
	// spilling to temp files. Zero keeps gin's default of 32 MiB.
	MultipartMemory int64

	// Page sizes
	Pagination config.Pagination

	// Application info
	Version string

	// Task queue client (optional)
	TaskQueue TaskQueue
	BlobSweep config.BlobSweep
}
