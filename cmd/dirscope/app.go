package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/sydlexius/dirscope/internal/catalog"
	"github.com/sydlexius/dirscope/internal/config"
	"github.com/sydlexius/dirscope/internal/database"
	"github.com/sydlexius/dirscope/internal/directory"
	"github.com/sydlexius/dirscope/internal/event"
	"github.com/sydlexius/dirscope/internal/history"
	"github.com/sydlexius/dirscope/internal/logging"
	"github.com/sydlexius/dirscope/internal/maintenance"
	"github.com/sydlexius/dirscope/internal/resource"
	"github.com/sydlexius/dirscope/internal/rpc"
	"github.com/sydlexius/dirscope/internal/scan"
	"github.com/sydlexius/dirscope/internal/settings"
)

// app holds the wired services shared by every command.
type app struct {
	cfg        *config.Config
	logManager *logging.Manager
	logger     *slog.Logger
	db         *sql.DB
	bus        *event.Bus

	settings    *settings.Service
	history     *history.Service
	maintenance *maintenance.Service
	directory   *directory.Client
	driver      *scan.Driver
	catalog     *catalog.Catalog
}

type appOptions struct {
	configPath string
	backendURL string
	dedupe     bool
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.backendURL != "" {
		cfg.Backend.URL = opts.backendURL
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()         //nolint:errcheck
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Debug("database ready", slog.String("path", cfg.Database.Path))

	settingsService := settings.NewService(db)
	loadDBLoggingConfig(settingsService, logManager, logger)

	bus := event.NewBus(logger, 256)
	go bus.Start()

	caller := rpc.New(cfg.Backend.URL, cfg.Backend.Timeout, logger)
	dirClient := directory.NewClient(caller)

	var accOpts []resource.Option
	if opts.dedupe {
		accOpts = append(accOpts, resource.WithDedupe())
	}
	historyService := history.NewService(db)
	driver := scan.NewDriver(dirClient, resource.NewAccumulator(accOpts...), logger)
	driver.SetPause(cfg.Scan.Pause)
	driver.SetEventBus(bus)
	driver.SetHistory(historyService)

	cat := catalog.New(dirClient, driver, logger)
	cat.SetOptions(settingsService, settings.ScanOptions{
		ShowHidden:        cfg.Scan.ShowHidden,
		IgnoreDirectories: directory.ParseIgnoreList(cfg.Scan.IgnoreDirectories),
		BatchSize:         cfg.Scan.BatchSize,
	})

	return &app{
		cfg:         cfg,
		logManager:  logManager,
		logger:      logger,
		db:          db,
		bus:         bus,
		settings:    settingsService,
		history:     historyService,
		maintenance: maintenance.NewService(db, cfg.Database.Path, historyService, cfg.Maintenance.HistoryKeep, logger),
		directory:   dirClient,
		driver:      driver,
		catalog:     cat,
	}, nil
}

// close drains the event bus and releases the database and log file.
func (a *app) close() {
	a.bus.Stop()
	a.bus.Wait()
	if err := a.db.Close(); err != nil {
		a.logger.Error("closing database", "error", err)
	}
	a.logManager.Close() //nolint:errcheck
}

// loadDBLoggingConfig applies persisted logging settings over the config
// file values.
func loadDBLoggingConfig(s *settings.Service, mgr *logging.Manager, logger *slog.Logger) {
	ctx := context.Background()
	level := s.String(ctx, settings.KeyLogLevel, "")
	format := s.String(ctx, settings.KeyLogFormat, "")
	if level == "" && format == "" {
		return
	}

	cfg := mgr.Config()
	if level != "" && logging.ValidLevel(level) {
		cfg.Level = level
	}
	if format != "" && logging.ValidFormat(format) {
		cfg.Format = format
	}
	mgr.Reconfigure(cfg)
	logger.Debug("applied DB logging overrides", "config", cfg.String())
}
