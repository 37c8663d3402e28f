package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/entrypoint"
)

// SweepBlobsCommand deletes stored book files that no book references.
type SweepBlobsCommand struct {
	DatabasePath string
	GracePeriod  time.Duration

	config *config.Config
}

func NewSweepBlobsCommand(cfg *config.Config) *SweepBlobsCommand {
	return &SweepBlobsCommand{config: cfg}
}

func (cmd *SweepBlobsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sweep-blobs", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.config.Database.Path, "Path to the SQLite database (ignored when DATABASE_URL is set)")
	fs.DurationVar(&cmd.GracePeriod, "grace", cmd.config.BlobSweep.GracePeriod, "Keep unreferenced files younger than this")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sweep-blobs [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete files in the configured storage backend that no book references.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.GracePeriod < 0 {
		return fmt.Errorf("-grace must not be negative")
	}
	return nil
}

func (cmd *SweepBlobsCommand) Run() error {
	ctx := context.Background()
	cmd.config.Database.Path = cmd.DatabasePath

	app, err := entrypoint.Open(ctx, cmd.config)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Library.SweepOrphanBlobs(ctx, cmd.GracePeriod)
	if err != nil {
		return err
	}

	fmt.Printf("Scanned: %d\n", result.Scanned)
	fmt.Printf("Removed: %d\n", result.Removed)
	if result.Failed > 0 {
		return fmt.Errorf("%d files could not be removed", result.Failed)
	}
	return nil
}
