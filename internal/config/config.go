package config

import (
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Storage
		Upload
		Auth
		Bootstrap
		Tasks
		BlobSweep
		Pagination
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string // SQLite file path, used when URL is empty
		URL  string // postgres://... selects the Postgres driver
	}
	UI struct {
		TemplatesPath string // Empty means JSON responses only
		StaticPath    string
	}
	Storage struct {
		Backend   string // "local" or "s3"
		UploadDir string

		S3Endpoint  string
		S3AccessKey string
		S3SecretKey string
		S3Bucket    string
		S3UseSSL    bool
	}
	Upload struct {
		MaxBytes          int64
		AllowedExtensions []string
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Bootstrap struct {
		AdminUsername string
		AdminEmail    string
		AdminFullName string
		AdminPassword string
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	BlobSweep struct {
		Enabled     bool
		Schedule    string        // Cron format: "30 3 * * *" = daily at 03:30
		GracePeriod time.Duration // Blobs younger than this are never swept
	}
	Pagination struct {
		AdminBooksPerPage  int
		PublicBooksPerPage int
		DownloadsPerPage   int
	}
)

// DefaultAllowedExtensions lists the book formats accepted on upload.
var DefaultAllowedExtensions = []string{"pdf", "epub", "mobi", "txt", "doc", "docx"}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_url", "")
	v.SetDefault("templates_path", "")
	v.SetDefault("static_path", "./static")

	// Storage defaults
	v.SetDefault("storage_backend", StorageBackendLocal)
	v.SetDefault("upload_dir", DefaultUploadDir)
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_bucket", "elibrary")
	v.SetDefault("s3_use_ssl", true)
	v.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)
	v.SetDefault("allowed_extensions", DefaultAllowedExtensions)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Bootstrap account
	v.SetDefault("bootstrap_admin_username", "admin")
	v.SetDefault("bootstrap_admin_email", "admin@elibrary.com")
	v.SetDefault("bootstrap_admin_full_name", "Administrator")
	v.SetDefault("bootstrap_admin_password", DefaultAdminPassword)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Orphan blob sweep
	v.SetDefault("blob_sweep_enabled", true)
	v.SetDefault("blob_sweep_schedule", "30 3 * * *")
	v.SetDefault("blob_sweep_grace_period", "1h")

	// Page sizes
	v.SetDefault("admin_books_per_page", 10)
	v.SetDefault("public_books_per_page", 12)
	v.SetDefault("downloads_per_page", 20)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
			URL:  v.GetString("DATABASE_URL"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Storage: Storage{
			Backend:     v.GetString("STORAGE_BACKEND"),
			UploadDir:   v.GetString("UPLOAD_DIR"),
			S3Endpoint:  v.GetString("S3_ENDPOINT"),
			S3AccessKey: v.GetString("S3_ACCESS_KEY"),
			S3SecretKey: v.GetString("S3_SECRET_KEY"),
			S3Bucket:    v.GetString("S3_BUCKET"),
			S3UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		Upload: Upload{
			MaxBytes:          v.GetInt64("MAX_UPLOAD_BYTES"),
			AllowedExtensions: extensionList(v, "ALLOWED_EXTENSIONS"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Bootstrap: Bootstrap{
			AdminUsername: v.GetString("BOOTSTRAP_ADMIN_USERNAME"),
			AdminEmail:    v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
			AdminFullName: v.GetString("BOOTSTRAP_ADMIN_FULL_NAME"),
			AdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		BlobSweep: BlobSweep{
			Enabled:     v.GetBool("BLOB_SWEEP_ENABLED"),
			Schedule:    v.GetString("BLOB_SWEEP_SCHEDULE"),
			GracePeriod: v.GetDuration("BLOB_SWEEP_GRACE_PERIOD"),
		},
		Pagination: Pagination{
			AdminBooksPerPage:  v.GetInt("ADMIN_BOOKS_PER_PAGE"),
			PublicBooksPerPage: v.GetInt("PUBLIC_BOOKS_PER_PAGE"),
			DownloadsPerPage:   v.GetInt("DOWNLOADS_PER_PAGE"),
		},
	}
}

// extensionList reads a list of file extensions. Environment values may
// separate entries with commas or spaces ("pdf,epub" or "pdf epub").
// Entries are lowercased and lose any leading dot.
func extensionList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	exts := make([]string, 0, len(fields))
	for _, f := range fields {
		exts = append(exts, strings.ToLower(strings.TrimPrefix(f, ".")))
	}
	return exts
}
