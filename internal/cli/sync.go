package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/syntrixbase/intelsync/internal/logging"
	"github.com/syntrixbase/intelsync/internal/services"
)

const (
	initTimeout     = time.Minute
	shutdownTimeout = 10 * time.Second
)

var syncFlags struct {
	dryRun   bool
	maxPages int
	interval time.Duration
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new indicators and advance the marker",
	Long: `Fetches every indicator newer than the stored marker, appends each one
to the document collection and advances the marker after every page.
With --interval the sync repeats until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFlags.dryRun, "dry-run", false, "fetch and validate pages without storing documents or the marker")
	syncCmd.Flags().IntVar(&syncFlags.maxPages, "max-pages", 0, "stop after this many pages (0 means no limit)")
	syncCmd.Flags().DurationVar(&syncFlags.interval, "interval", 0, "repeat the sync at this interval until interrupted")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.Logging, logging.Identity{App: appName, Version: version}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logging.Shutdown() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := services.NewManager(cfg, services.Options{
		DryRun:   syncFlags.dryRun,
		MaxPages: syncFlags.maxPages,
		Interval: syncFlags.interval,
		Logger:   slog.Default(),
	})

	runErr := initAndStart(ctx, mgr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Shutdown incomplete", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	if last, ok := mgr.Health().Last(); ok && syncFlags.interval <= 0 {
		cmd.Printf("Sync finished: %d new, %d duplicate, marker %q\n", last.Ingested, last.Duplicates, last.Marker)
	}
	return nil
}

func initAndStart(ctx context.Context, mgr *services.Manager) error {
	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := mgr.Init(initCtx); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	return mgr.Start(ctx)
}
