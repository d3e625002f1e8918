package app

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
	"github.com/Alijeyrad/ambulanz_backend/internal/events"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/report"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/scheduling"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/transfer"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
	redispkg "github.com/Alijeyrad/ambulanz_backend/pkg/redis"
	s3pkg "github.com/Alijeyrad/ambulanz_backend/pkg/s3"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideCatalog,
		ProvideEngine,
		ProvideReportService,
		ProvideChangeFeed,
		ProvideSchedulingService,
		ProvideTransferService,
	),
)

// ProvideCatalog applies schedule.totals on top of the built-in totals.
// Unknown keys are logged and skipped.
func ProvideCatalog(cfg *config.Config, log *slog.Logger) *catalog.Catalog {
	overrides := make(map[catalog.SessionType]int, len(cfg.Schedule.Totals))
	for name, total := range cfg.Schedule.Totals {
		t, err := catalog.ParseSessionType(name)
		if err != nil {
			log.Warn("ignoring session total override", "type", name, "err", err)
			continue
		}
		overrides[t] = total
	}
	return catalog.New(overrides)
}

func ProvideEngine(c *catalog.Catalog) *scheduling.Engine {
	return scheduling.NewEngine(c)
}

func ProvideReportService(st *store.Store, rdb *redis.Client, cfg *config.Config, log *slog.Logger) report.Service {
	var cache report.Cache
	if rdb != nil {
		cache = report.NewRedisCache(rdb, redispkg.FromCentralConfig(cfg.Redis).ReportTTL())
	}
	return report.New(st, cache, report.SettingsFromConfig(cfg), log)
}

func ProvideChangeFeed(nc *nats.Conn, reports report.Service, log *slog.Logger) *ChangeFeed {
	var pub *events.Publisher
	if nc != nil {
		pub = events.NewPublisher(nc)
	}
	return NewChangeFeed(pub, reports, log)
}

func ProvideSchedulingService(
	st *store.Store,
	engine *scheduling.Engine,
	feed *ChangeFeed,
	cfg *config.Config,
	log *slog.Logger,
) scheduling.Service {
	return scheduling.New(st, engine, feed, log, cfg.Schedule.IntakeCount)
}

func ProvideTransferService(st *store.Store, s3 *s3pkg.Client, feed *ChangeFeed, log *slog.Logger) transfer.Service {
	var objects transfer.ObjectStore
	if s3 != nil {
		objects = s3
	}
	return transfer.New(st, objects, feed, log)
}

// ---------------------------------------------------------------------------
// Change feed
// ---------------------------------------------------------------------------

// ChangeFeed receives every persisted schedule change. With NATS configured
// the change is published and the report worker drops the cache; without it
// the cache is dropped in process.
type ChangeFeed struct {
	pub     *events.Publisher
	reports report.Service
	log     *slog.Logger
}

func NewChangeFeed(pub *events.Publisher, reports report.Service, log *slog.Logger) *ChangeFeed {
	if log == nil {
		log = slog.Default()
	}
	return &ChangeFeed{pub: pub, reports: reports, log: log}
}

func (f *ChangeFeed) ChainChanged(ctx context.Context, clientID, action string) error {
	if f.pub != nil {
		return f.pub.ChainChanged(ctx, clientID, action)
	}
	return f.reports.Invalidate(ctx)
}

func (f *ChangeFeed) SupervisionChanged(ctx context.Context, action string) error {
	if f.pub != nil {
		return f.pub.SupervisionChanged(ctx, action)
	}
	return f.reports.Invalidate(ctx)
}

func (f *ChangeFeed) ScheduleReplaced(ctx context.Context, action string) error {
	if f.pub != nil {
		return f.pub.ScheduleReplaced(ctx, action)
	}
	return f.reports.Invalidate(ctx)
}

var (
	_ scheduling.Notifier = (*ChangeFeed)(nil)
	_ transfer.Notifier   = (*ChangeFeed)(nil)
)
