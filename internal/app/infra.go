package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
	"github.com/Alijeyrad/ambulanz_backend/pkg/database"
	"github.com/Alijeyrad/ambulanz_backend/pkg/logs"
	"github.com/Alijeyrad/ambulanz_backend/pkg/observability"
	redispkg "github.com/Alijeyrad/ambulanz_backend/pkg/redis"
	s3pkg "github.com/Alijeyrad/ambulanz_backend/pkg/s3"
)

// InfraModule provides all infrastructure dependencies. Redis, NATS and S3
// are optional: an empty address yields a nil client and the features
// depending on it degrade.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideLogger),
	fx.Provide(ProvidePersister),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideS3Client),
	fx.Provide(ProvideNatsClient),
)

// ProvideLogger builds the process logger from config and installs it as
// the slog default, so package-level slog calls share its handler.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	log := logs.New(cfg)
	slog.SetDefault(log)
	return log
}

// ProvidePersister picks the backing storage for the appointment collection.
func ProvidePersister(lc fx.Lifecycle, cfg *config.Config) (store.Persister, error) {
	ctx, cancel := context.WithTimeout(context.Background(), serverTimeout(cfg))
	defer cancel()

	p, closeFn, err := OpenPersister(ctx, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing appointment storage")
			return closeFn()
		},
	})
	return p, nil
}

// OpenPersister opens the configured storage driver. The returned close
// function releases the database connection, if any.
func OpenPersister(ctx context.Context, cfg *config.Config) (store.Persister, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Storage.Driver) {
	case config.StorageDriverPostgres:
		drv, err := database.NewEntDriver(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(drv)
		if cfg.Database.Migrations.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				_ = drv.Close()
				return nil, nil, err
			}
		}
		return pg, drv.Close, nil
	case config.StorageDriverCSV:
		return store.NewCSVFile(cfg.Storage.CSVPath), noop, nil
	case config.StorageDriverMemory:
		return store.NewMemory(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ProvideStore loads the whole collection once; the process works on the
// in-memory view from then on.
func ProvideStore(cfg *config.Config, p store.Persister, log *slog.Logger) (*store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), serverTimeout(cfg))
	defer cancel()

	return store.Open(ctx, p, log)
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		log.Info("redis not configured, report cache and shared rate limit disabled")
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), serverTimeout(cfg))
	defer cancel()

	rdb, err := redispkg.NewRedisFromCentral(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideS3Client(cfg *config.Config, log *slog.Logger) (*s3pkg.Client, error) {
	if cfg.S3.Bucket == "" {
		log.Info("s3 not configured, backups disabled")
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), serverTimeout(cfg))
	defer cancel()
	return s3pkg.New(ctx, cfg.S3)
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*nats.Conn, error) {
	if cfg.Nats.URL == "" {
		log.Info("nats not configured, schedule events stay in process")
		return nil, nil
	}
	nc, err := nats.Connect(cfg.Nats.URL,
		nats.Name(cfg.Observability.ServiceName),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	log.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

func serverTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.Server.TimeoutSeconds) * time.Second
}
