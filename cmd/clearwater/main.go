package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quillon/clearwater/internal/config"
	"github.com/quillon/clearwater/internal/database"
	"github.com/quillon/clearwater/internal/enrich"
	"github.com/quillon/clearwater/internal/event"
	"github.com/quillon/clearwater/internal/logging"
	"github.com/quillon/clearwater/internal/lookup/musicbrainz"
	"github.com/quillon/clearwater/internal/track"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CW_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	logger.Info("clearwater starting",
		"mode", string(cfg.Pipeline.Mode),
		"db", cfg.Database.Path)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	store := track.NewStore(db)

	client := musicbrainz.New(musicbrainz.Options{
		BaseURL:   cfg.Lookup.BaseURL,
		UserAgent: cfg.Lookup.UserAgent,
		Timeout:   cfg.Lookup.Timeout(),
	}, logger)

	bus := event.NewBus(logger, 256)
	go bus.Start()
	defer bus.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := enrich.NewOrchestrator(cfg, store, client, bus, logger)
	trigger := enrich.NewTrigger(ctx, orch, bus, logger)
	defer trigger.Close()

	// The embedding player publishes playback.track_started; the trigger
	// turns those into interactive enrichment attempts.
	bus.Subscribe(event.PlaybackTrackStarted, func(e event.Event) {
		id, _ := e.Data["track_id"].(string)
		if id == "" {
			return
		}
		force, _ := e.Data["force"].(bool)
		trigger.OnTrackStarted(id, force)
	})

	scheduler := enrich.NewScheduler(orch, store, bus, logger)
	if err := scheduler.ScanLocal(ctx); err != nil {
		logger.Error("initial local metadata scan failed", "error", err)
	}
	go scheduler.Start(ctx, cfg.Pipeline.BatchInterval())

	watcher := config.NewWatcher(configPath, func(next *config.Config) {
		logManager.Reconfigure(logging.Config{
			Level:    next.Logging.Level,
			Format:   next.Logging.Format,
			FilePath: next.Logging.FilePath,
		})
		orch.SetConfig(next)
		orch.ResetFatal()
		bus.Publish(event.Event{
			Type: event.ConfigReloaded,
			Data: map[string]any{"mode": string(next.Pipeline.Mode)},
		})
	}, logger)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("config watcher exited", "error", err)
		}
	}()

	go statusLoop(ctx, store, logger)

	logger.Info("clearwater started")
	<-ctx.Done()
	logger.Info("clearwater shutting down")
	return nil
}

// statusLoop logs a periodic rollup of track counts by metadata status.
func statusLoop(ctx context.Context, store *track.Store, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := store.CountByStatus(ctx)
			if err != nil {
				logger.Warn("status rollup failed", "error", err)
				continue
			}
			attrs := make([]any, 0, len(counts)*2)
			for _, s := range track.AllStatuses() {
				if n, ok := counts[s]; ok {
					attrs = append(attrs, string(s), n)
				}
			}
			logger.Info("library status", attrs...)
		}
	}
}
