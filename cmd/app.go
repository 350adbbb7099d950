package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/althingi/internal/service"
	"github.com/jjenkins/althingi/internal/store"
	"github.com/jjenkins/althingi/internal/store/memstore"
)

// app holds the wired dependencies of a command
type app struct {
	db       *sql.DB
	store    service.Store
	registry *service.Registry
	pipeline *service.Pipeline
	activity *service.ActivityService
}

// openStore connects to PostgreSQL and applies the schema. With dryRun the
// data is kept in memory and discarded on exit.
func openStore(ctx context.Context, dryRun bool) (service.Store, *sql.DB, error) {
	if dryRun {
		logger.Warn("Dry run: writing to an in-memory store")
		return memstore.New(), nil, nil
	}

	if cfg.Database.URL == "" {
		return nil, nil, &service.ConfigurationError{Msg: "DATABASE_URL or database.url is required"}
	}

	logger.Info("Connecting to database...")
	db, err := store.NewDB(store.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.New(db), db, nil
}

// newApp wires the pipeline on top of the configured store
func newApp(ctx context.Context, dryRun bool) (*app, error) {
	st, db, err := openStore(ctx, dryRun)
	if err != nil {
		return nil, err
	}

	client := service.NewAlthingiClient(service.ClientConfig{
		BaseURL:      cfg.Source.BaseURL,
		Timeout:      cfg.Source.Timeout,
		MaxRetries:   cfg.Source.MaxRetries,
		Backoff:      cfg.Source.Backoff,
		RequestDelay: cfg.Source.RequestDelay,
		UserAgent:    cfg.Source.UserAgent,
	})
	importer := service.NewImporter(client, service.NewParser(), st, logger)
	registry := service.NewRegistry(importer, cfg.Topics.Strategy)

	return &app{
		db:       db,
		store:    st,
		registry: registry,
		pipeline: service.NewPipeline(importer, registry, st, logger),
		activity: service.NewActivityService(st),
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
