package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexanderramin/tally/internal/api"
	"github.com/alexanderramin/tally/internal/cache"
	"github.com/alexanderramin/tally/internal/cli"
	"github.com/alexanderramin/tally/internal/config"
	"github.com/alexanderramin/tally/internal/db"
	"github.com/alexanderramin/tally/internal/logging"
	"github.com/alexanderramin/tally/internal/mirror"
	"github.com/alexanderramin/tally/internal/notify"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queryCache := cache.New(cache.WithDefaults(cfg.CacheDefaults()), cache.WithLogger(logger))
	go queryCache.Run(ctx, cfg.Cache.GCTime)

	client := api.NewClient(api.Config{
		BaseURL: cfg.API.URL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout,
	}, api.NewLogObserver(logger))
	storage := mirror.NewSQLiteStorage(database)

	app := &cli.App{
		Open: func(ctx context.Context, offline bool) (*reconcile.Workspace, error) {
			return reconcile.OpenWorkspace(ctx, client, queryCache, storage, reconcile.WorkspaceOptions{
				Cache:    cfg.CacheOverrides(),
				Offline:  offline,
				Logger:   logger,
				Observer: reconcile.NewLogUseCaseObserver(logger),
			})
		},
		Listen: func(ws *reconcile.Workspace) *notify.Listener {
			return notify.NewListener(notify.Config{
				URL:               cfg.Notifications.URL,
				Token:             cfg.API.Token,
				ReconnectAttempts: cfg.Notifications.ReconnectAttempts,
				ReconnectDelay:    cfg.Notifications.ReconnectDelay,
			}, ws.Notifications, logger)
		},
		// Detect interactive terminal for prompts and live views.
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
		Logger: logger,
	}

	logger.Debug("Starting", zap.String("api", cfg.API.URL), zap.String("db", cfg.DBPath), zap.String("config", cfg.File))
	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
