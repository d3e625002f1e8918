// Package report derives the read-only views over the schedule: quarter
// billing forecasts, supervision compliance, progress towards the session
// goal, the legacy quarter capacity estimate and the calendar feed.
package report

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

const (
	PracticeIntern = "intern"
	PracticeExtern = "extern"
)

// Settings carries the billing and goal parameters.
type Settings struct {
	Practice          string
	Fees              map[catalog.SessionType]float64
	ExternalDeduction float64
	EstimateFactor    float64

	TotalRatio      float64
	IndividualRatio float64
	GroupRatio      float64

	Goal       int
	WindowDays int
}

var defaultFees = map[catalog.SessionType]float64{
	catalog.Sprechstunde: 46.80,
	catalog.Probatorik:   35.15,
	catalog.Anamnese:     35.05,
	catalog.KZT:          46.65,
	catalog.LZT:          46.65,
	catalog.RFP:          46.65,
	catalog.PTG:          38.20,
}

// DefaultSettings returns the EBM fees and ratios of an internal practice.
func DefaultSettings() Settings {
	fees := make(map[catalog.SessionType]float64, len(defaultFees))
	for t, f := range defaultFees {
		fees[t] = f
	}
	return Settings{
		Practice:          PracticeIntern,
		Fees:              fees,
		ExternalDeduction: 3,
		EstimateFactor:    10.0 / 12.0,
		TotalRatio:        1.0 / 4.0,
		IndividualRatio:   1.0 / 12.0,
		GroupRatio:        1.0 / 6.0,
		Goal:              600,
		WindowDays:        30,
	}
}

// SettingsFromConfig overlays the configured values on DefaultSettings.
// Fee keys are matched case-insensitively since viper lowercases map keys.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}
	if p := strings.ToLower(cfg.Billing.Practice); p == PracticeIntern || p == PracticeExtern {
		s.Practice = p
	}
	for name, fee := range cfg.Billing.Fees {
		if t, err := catalog.ParseSessionType(name); err == nil && t.IsTherapy() {
			s.Fees[t] = fee
		}
	}
	if cfg.Billing.ExternalDeduction >= 0 {
		s.ExternalDeduction = cfg.Billing.ExternalDeduction
	}
	if cfg.Billing.EstimateFactor > 0 {
		s.EstimateFactor = cfg.Billing.EstimateFactor
	}
	if cfg.Supervision.TotalRatio > 0 {
		s.TotalRatio = cfg.Supervision.TotalRatio
	}
	if cfg.Supervision.IndividualRatio > 0 {
		s.IndividualRatio = cfg.Supervision.IndividualRatio
	}
	if cfg.Supervision.GroupRatio > 0 {
		s.GroupRatio = cfg.Supervision.GroupRatio
	}
	if cfg.Progress.Goal > 0 {
		s.Goal = cfg.Progress.Goal
	}
	if cfg.Progress.WindowDays > 0 {
		s.WindowDays = cfg.Progress.WindowDays
	}
	return s
}

// Source is the read side of the appointment store.
type Source interface {
	All() []appointment.Entry
	ForQuarter(q appointment.Quarter) []appointment.Session
	Sessions() []appointment.Session
	Supervisions() []appointment.SupervisionEntry
}

type Service interface {
	Forecast(ctx context.Context, q appointment.Quarter, practice string) (*Forecast, error)
	Supervision(ctx context.Context, due time.Time) *SupervisionReport
	Progress(ctx context.Context, today time.Time) *Progress
	Capacity(ctx context.Context, in CapacityInput) (*Capacity, error)
	CalendarEvents(ctx context.Context) []CalendarEvent
	// Invalidate drops cached results after the schedule changed.
	Invalidate(ctx context.Context) error
}

type reportService struct {
	source   Source
	cache    Cache
	settings Settings
	log      *slog.Logger
}

// New returns the report service. cache may be nil.
func New(source Source, cache Cache, settings Settings, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &reportService{
		source:   source,
		cache:    cache,
		settings: settings,
		log:      log.With("component", "report"),
	}
}

func (s *reportService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(x*p) / p
}
