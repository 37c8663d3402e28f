package entrypoint

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/database"
	http_controllers "github.com/mrlokans/elibrary/internal/http"
	"github.com/mrlokans/elibrary/internal/scheduler"
	"github.com/mrlokans/elibrary/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(handler http.Handler, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Stop background work after in-flight requests have drained.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting eLibrary v%s", version)

	app, err := Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	log.Printf("Storage backend: %s", storageLabel(cfg.Storage))

	sessionManager, err := auth.NewSessionManager(sessionDB(app.DB), cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	csrfSecret, err := loadCSRFSecret(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}

	// Task queue and the sweep it runs
	var (
		taskClient    *tasks.Client
		taskCtxCancel context.CancelFunc
		taskQueue     http_controllers.TaskQueue
		enqueuer      scheduler.SweepEnqueuer
	)
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.NewSweepOrphanBlobsQueue(app.Library, cfg.BlobSweep.GracePeriod))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		taskQueue = taskClient
		enqueuer = taskClient
	} else {
		log.Printf("Task queue disabled, orphan sweeps run inline")
		enqueuer = scheduler.SweepFunc(func(grace time.Duration) (string, error) {
			_, err := app.Library.SweepOrphanBlobs(context.Background(), grace)
			return "", err
		})
	}

	sweepScheduler := scheduler.NewBlobSweepScheduler(enqueuer, cfg.BlobSweep)
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	if err := sweepScheduler.Start(schedCtx); err != nil {
		log.Fatalf("Failed to start blob sweep scheduler: %v", err)
	}

	router, err := http_controllers.NewRouter(http_controllers.RouterConfig{
		Library:        app.Library,
		Database:       app.DB,
		Blobs:          app.Blobs,
		AuthService:    app.Auth,
		SessionManager: sessionManager,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		Pagination:     cfg.Pagination,
		Version:        version,
		TaskQueue:      taskQueue,
		BlobSweep:      cfg.BlobSweep,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	onShutdown := func(ctx context.Context) {
		sweepScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		router.Close()
	}

	Serve(router, cfg, onShutdown)
}

// sessionDB returns the SQLite handle that persists sessions, or nil to keep
// them in memory.
func sessionDB(db *database.Database) *sql.DB {
	if db.Dialect != database.DialectSQLite {
		return nil
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Printf("Sessions kept in memory: %v", err)
		return nil
	}
	return sqlDB
}

// loadCSRFSecret decodes a hex secret, uses any other value as raw bytes,
// and generates a fresh one when none is configured.
func loadCSRFSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

func storageLabel(cfg config.Storage) string {
	if cfg.Backend == config.StorageBackendS3 {
		return fmt.Sprintf("s3 (%s/%s)", cfg.S3Endpoint, cfg.S3Bucket)
	}
	return fmt.Sprintf("local (%s)", cfg.UploadDir)
}
