package cmd

import (
	"context"
	"fmt"

	"diary-sync/core/config"
	"diary-sync/core/database"
	"diary-sync/core/lock"
	"diary-sync/core/logger"
	"diary-sync/core/reconcile"
	"diary-sync/core/repository"
	"diary-sync/core/storage"
	"diary-sync/feature/conflict"
	"diary-sync/feature/diary"
	"diary-sync/feature/integrity"
	"diary-sync/feature/remote"
	"diary-sync/feature/sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// configDir is where .env and config.yaml are read from.
var configDir string

// application holds the wired services shared by the server and the CLI.
type application struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	store  repository.Store
	source reconcile.Source
	engine *reconcile.Engine
	// client is set only for the s3 remote.
	client storage.Client

	diary     *diary.Service
	conflicts *conflict.Service
	sync      *sync.Service
	integrity *integrity.Service
}

// bootstrap loads the configuration and wires every service.
func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection required: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}
	logg = logg.With(zap.String("db", cfg.Database.Driver))

	deps := remote.Deps{Storage: cfg.Storage}
	if cfg.Remote.Kind == remote.KindS3 {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		deps.Client = client
	}
	source, err := remote.New(ctx, cfg.Remote, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote: %w", err)
	}

	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	store := repository.New(db)
	locks := lock.New()
	engine := reconcile.NewEngine(store, source, locks, logg, cfg.Sync.IndexTTL())
	diarySvc := diary.NewService(store, locks, logg, loc)

	app := &application{
		cfg:       cfg,
		logger:    logg,
		db:        db,
		store:     store,
		source:    source,
		engine:    engine,
		client:    deps.Client,
		diary:     diarySvc,
		conflicts: conflict.NewService(store, locks, logg, engine),
		sync:      sync.NewService(engine, diarySvc, cfg.Sync, logg),
	}
	app.integrity = integrity.NewService(db, store, source, integrity.Options{
		Client:        deps.Client,
		Bucket:        cfg.Storage.Bucket,
		Prefix:        cfg.Storage.Prefix,
		Region:        cfg.Storage.Region,
		RemoteTimeout: cfg.Sync.Options().FetchTimeout,
	}, logg)
	return app, nil
}

// close releases the database and flushes the logger.
func (a *application) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
