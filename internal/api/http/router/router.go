package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"go.uber.org/fx"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/internal/api/http/handler"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/report"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/scheduling"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/transfer"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
	"github.com/Alijeyrad/ambulanz_backend/pkg/observability"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg           *config.Config
	Store         *store.Store
	SchedulingSvc scheduling.Service
	ReportSvc     report.Service
	TransferSvc   transfer.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Handlers
	clientH := handler.NewClientHandler(r.p.SchedulingSvc)
	scheduleH := handler.NewScheduleHandler(r.p.SchedulingSvc)
	reportH := handler.NewReportHandler(r.p.ReportSvc)
	transferH := handler.NewTransferHandler(r.p.TransferSvc)

	api := app.Group("/api/v1")

	// 3. Delegate to sub-files
	r.registerClientRoutes(api, clientH)
	r.registerScheduleRoutes(api, scheduleH)
	r.registerReportRoutes(api, reportH)
	r.registerTransferRoutes(api, transferH)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool { return r.p.Store != nil },
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(observability.MetricsHandler()))
	}
}
