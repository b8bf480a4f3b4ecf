package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	importhandler "github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/handler"
	importrepo "github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/repository"
	importservice "github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/service"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/schema"

	"github.com/implementacao-techfala/dashboardfinanceiro/pkg/config"
	"github.com/implementacao-techfala/dashboardfinanceiro/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage; only the configured backend is set.
	DB    *db.DB
	Redis *redis.Client

	Templates     *schema.Registry
	DatasetRepo   importrepo.DatasetRepository
	ImportService *importservice.ImportService
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.ImportHandler = importhandler.NewImportHandler(deps.ImportService, deps.Logger)

	logger.Info("all dependencies initialized successfully",
		slog.String("storage_backend", cfg.Storage.Backend))
	return deps, nil
}

// initStorage connects the configured dataset backend.
func (d *Dependencies) initStorage() error {
	switch d.Config.Storage.Backend {
	case config.BackendPostgres:
		database, err := db.New(db.Config{
			DSN:             d.Config.Database.DSN(),
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: 5 * time.Minute,
			MaxConnIdleTime: 10 * time.Minute,
		}, d.Logger)
		if err != nil {
			return err
		}
		d.DB = database

		if err := d.DB.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		d.DatasetRepo = importrepo.NewPostgresDatasetRepository(d.DB.Pool)
		d.Logger.Info("database connected and migrations completed successfully")

	case config.BackendRedis:
		d.Redis = redis.NewClient(&redis.Options{
			Addr:     d.Config.Redis.Addr,
			Password: d.Config.Redis.Password,
			DB:       d.Config.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", d.Config.Redis.Addr, err)
		}
		d.DatasetRepo = importrepo.NewRedisDatasetRepository(d.Redis, d.Config.Redis.KeyPrefix)
		d.Logger.Info("redis connected", slog.String("addr", d.Config.Redis.Addr))

	case config.BackendMemory:
		d.DatasetRepo = importrepo.NewMemoryDatasetRepository()
		d.Logger.Warn("using in-memory dataset storage; data is lost on restart")

	default:
		return fmt.Errorf("unknown storage backend %q", d.Config.Storage.Backend)
	}
	return nil
}

func (d *Dependencies) initServices() error {
	templates, err := schema.LoadBuiltin()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	d.Templates = templates

	d.ImportService = importservice.NewImportService(d.DatasetRepo, d.Templates, d.Logger, importservice.Options{
		SessionTTL:          d.Config.Import.SessionTTL,
		MaxUploadBytes:      d.Config.Import.MaxUploadBytes,
		AutoAcceptThreshold: d.Config.Import.AutoAcceptThreshold,
	})

	d.Logger.Info("services initialized", slog.Int("templates", len(templates.IDs())))
	return nil
}

// StorageHealth pings the configured backend.
func (d *Dependencies) StorageHealth(ctx context.Context) error {
	switch {
	case d.DB != nil:
		return d.DB.Health()
	case d.Redis != nil:
		return d.Redis.Ping(ctx).Err()
	default:
		return nil
	}
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}
	d.Logger.Info("cleanup completed")
}
