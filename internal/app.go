// Package internal assembles the application: configuration, logging, storage
// and the HTTP server.
package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karloscodes/cartridge"

	v1 "pulseboard/api/v1"
	"pulseboard/internal/config"
	"pulseboard/internal/database"
	"pulseboard/internal/events"
	"pulseboard/internal/http"
	"pulseboard/internal/summary"
	"pulseboard/internal/websites"
)

// Application wraps cartridge.Application with the event store and the
// migration-aware DB manager.
type Application struct {
	*cartridge.Application
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.DBManager
	Store     events.Store

	closeStore func()
}

// NewApp creates a new application instance from the process configuration.
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config. The
// database is migrated before the server is built.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store, closeStore, err := NewStore(context.Background(), cfg, dbManager, logger)
	if err != nil {
		return nil, err
	}

	catalog, err := events.LoadQRCatalog(cfg.QRCatalogPath)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to load qr catalog: %w", err)
	}

	completer := summary.NewOpenAIClient(summary.OpenAIOptions{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; summaries are disabled")
	}

	handlers := Handlers{
		Collector: v1.NewCollector(store),
		Dashboard: http.NewDashboard(http.DashboardOptions{
			Store:    store,
			Summary:  summary.NewService(completer, cfg.Location(), cfg.SummaryTimeout(), logger),
			Catalog:  catalog,
			Location: cfg.Location(),
			Workers:  cfg.GetMaxOpenConns(),
		}),
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		RouteMountFunc: func(srv *cartridge.Server) {
			MountAppRoutes(srv, cfg, handlers)
		},
	})
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		Config:      cfg,
		Logger:      logger,
		DBManager:   dbManager,
		Store:       store,
		closeStore:  closeStore,
	}, nil
}

// NewStore opens the configured event store. The returned func releases it.
func NewStore(ctx context.Context, cfg *config.Config, dbManager *database.DBManager, logger *slog.Logger) (events.Store, func(), error) {
	if cfg.DatabaseType != config.PostgresDatabase {
		return events.NewGormStore(dbManager, logger), func() {}, nil
	}

	checkSite := func(ctx context.Context, siteID string) error {
		_, err := websites.GetSiteOrNotFound(dbManager.GetConnection().WithContext(ctx), siteID)
		return err
	}
	store, err := events.NewPostgresStore(ctx, cfg.PostgresDSN, checkSite, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres event store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	logger.Info("Using PostgreSQL event store")
	return store, store.Close, nil
}

// Shutdown drains the HTTP server and background workers, then releases storage.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.Application.Shutdown(ctx)
	if closeErr := a.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the event store and the database without touching the server.
// Used by pulsectl, which never starts it.
func (a *Application) Close() error {
	a.closeStore()
	return a.DBManager.Close()
}
