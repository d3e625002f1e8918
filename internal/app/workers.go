package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/ambulanz_backend/internal/events"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/report"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc      fx.Lifecycle
	NC      *nats.Conn `optional:"true"`
	Reports report.Service
	Log     *slog.Logger
}

func RegisterWorkers(p WorkerParams) {
	if p.NC == nil {
		return
	}
	var sub *nats.Subscription
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			sub, err = startReportWorker(p.NC, p.Reports, p.Log)
			return err
		},
		OnStop: func(ctx context.Context) error {
			// Drain of the connection is handled by ProvideNatsClient.
			if sub == nil {
				return nil
			}
			return sub.Unsubscribe()
		},
	})
}

// ---------------------------------------------------------------------------
// report_worker
// ---------------------------------------------------------------------------

// startReportWorker drops cached forecasts whenever any part of the schedule
// changed, no matter which process made the change.
func startReportWorker(nc *nats.Conn, reports report.Service, log *slog.Logger) (*nats.Subscription, error) {
	return nc.Subscribe(events.WildcardAll, func(msg *nats.Msg) {
		handleScheduleEvent(msg.Subject, msg.Data, reports, log)
	})
}

func handleScheduleEvent(subject string, data []byte, reports report.Service, log *slog.Logger) {
	ev, err := events.Decode(data)
	if err != nil {
		log.Warn("report_worker: bad event", "subject", subject, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := reports.Invalidate(ctx); err != nil {
		log.Warn("report_worker: cache invalidation failed", "event", ev.ID, "err", err)
		return
	}
	log.Debug("report_worker: cache invalidated",
		"subject", subject,
		"action", ev.Action,
		"client_id", ev.ClientID,
	)
}
