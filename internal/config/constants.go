package config

// Default paths and limits
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./elibrary.db"

	// DefaultUploadDir is where book files are stored by the local blob backend
	DefaultUploadDir = "./uploads"

	// DefaultMaxUploadBytes is the largest accepted book file (50 MiB)
	DefaultMaxUploadBytes = 50 * 1024 * 1024
)

// Storage backends
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// DefaultAdminPassword is the well-known bootstrap password. A warning is
// logged at startup while it is in use.
const DefaultAdminPassword = "admin123"
