package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
)

const instrumentation = "github.com/Alijeyrad/ambulanz_backend/internal/service/scheduling"

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type ClientSummary struct {
	ClientID string              `json:"client_id"`
	Phase    catalog.SessionType `json:"phase"`
	Sessions int                 `json:"sessions"`
	First    time.Time           `json:"first_date"`
	Last     time.Time           `json:"last_date"`
}

type Overview struct {
	ClientSummary
	Counts  map[catalog.SessionType]int `json:"counts"`
	Allowed []catalog.SessionType       `json:"allowed_phases"`
}

type AbsenceResult struct {
	// Cancelled counts the shifted slots per client; clients without a hit are absent.
	Cancelled map[string]int `json:"cancelled"`
}

// Notifier is told about every persisted change. Failures are logged, never
// returned: the change itself already happened.
type Notifier interface {
	ChainChanged(ctx context.Context, clientID, action string) error
	SupervisionChanged(ctx context.Context, action string) error
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Clients
	Onboard(ctx context.Context, clientID string, startDate time.Time, count int) (appointment.Chain, error)
	Clients(ctx context.Context) []ClientSummary
	Chain(ctx context.Context, clientID string) appointment.Chain
	Overview(ctx context.Context, clientID string) (*Overview, error)

	// Phase transitions
	StartPhase(ctx context.Context, clientID string, typ catalog.SessionType, startNumber int) (appointment.Chain, error)
	ConvertKZTToLZT(ctx context.Context, clientID string, fromNumber int) (appointment.Chain, error)

	// Single appointments
	Cancel(ctx context.Context, clientID string, date time.Time) (appointment.Chain, error)
	MarkPTG(ctx context.Context, clientID string, date time.Time) (appointment.Chain, error)
	EndTherapy(ctx context.Context, clientID string, date time.Time) (appointment.Chain, error)
	RealignWeekday(ctx context.Context, clientID string, date time.Time, weekday int) (appointment.Chain, error)

	// Absences; target is a client ID or AllClients.
	ShiftAbsence(ctx context.Context, target string, start, end time.Time) (*AbsenceResult, error)

	// Schedule-wide
	Appointments(ctx context.Context, from, to time.Time) ([]appointment.Entry, error)
	Supervisions(ctx context.Context) []appointment.SupervisionEntry
	AddSupervision(ctx context.Context, date time.Time, kind appointment.SupervisionKind, hours int) (appointment.SupervisionEntry, error)
	DeleteSupervision(ctx context.Context, date time.Time) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

const maxSupervisionHours = 10

type schedulingService struct {
	engine      *Engine
	store       *store.Store
	notifier    Notifier
	log         *slog.Logger
	intakeCount int

	locks     *clientLocks
	tracer    trace.Tracer
	mutations metric.Int64Counter
}

func New(st *store.Store, engine *Engine, notifier Notifier, log *slog.Logger, intakeCount int) Service {
	if log == nil {
		log = slog.Default()
	}
	if intakeCount < 1 || intakeCount > catalog.MaxIntakeCount {
		intakeCount = catalog.DefaultIntakeCount
	}

	counter, err := otel.Meter(instrumentation).Int64Counter(
		"ambulanz.schedule.mutations",
		metric.WithDescription("Persisted schedule changes by action"),
	)
	if err != nil {
		log.Warn("scheduling: mutation counter unavailable", "err", err)
		counter = noop.Int64Counter{}
	}

	return &schedulingService{
		engine:      engine,
		store:       st,
		notifier:    notifier,
		log:         log.With("component", "scheduling"),
		intakeCount: intakeCount,
		locks:       newClientLocks(),
		tracer:      otel.Tracer(instrumentation),
		mutations:   counter,
	}
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

func (s *schedulingService) Onboard(ctx context.Context, clientID string, startDate time.Time, count int) (appointment.Chain, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || strings.EqualFold(clientID, AllClients) {
		return nil, fmt.Errorf("%w: client ID %q is not usable", ErrInvalidRange, clientID)
	}
	if count == 0 {
		count = s.intakeCount
	}

	return s.mutate(ctx, "onboard", clientID, func(chain appointment.Chain) (appointment.Chain, error) {
		if len(chain) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrClientExists, clientID)
		}
		return s.engine.GenerateIntake(clientID, startDate, count)
	})
}

func (s *schedulingService) Clients(_ context.Context) []ClientSummary {
	ids := s.store.Clients()
	out := make([]ClientSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, summarize(id, s.store.ForClient(id)))
	}
	return out
}

func (s *schedulingService) Chain(_ context.Context, clientID string) appointment.Chain {
	return s.store.ForClient(clientID)
}

func (s *schedulingService) Overview(_ context.Context, clientID string) (*Overview, error) {
	chain := s.store.ForClient(clientID)
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	return &Overview{
		ClientSummary: summarize(clientID, chain),
		Counts:        chain.CountByType(),
		Allowed:       Allowed(chain),
	}, nil
}

func summarize(clientID string, chain appointment.Chain) ClientSummary {
	sum := ClientSummary{ClientID: clientID, Sessions: len(chain)}
	if phase, ok := chain.Phase(); ok {
		sum.Phase = phase
		sum.First = chain[0].Date
		sum.Last = chain[len(chain)-1].Date
	}
	return sum
}

// ---------------------------------------------------------------------------
// Phase transitions
// ---------------------------------------------------------------------------

func (s *schedulingService) StartPhase(ctx context.Context, clientID string, typ catalog.SessionType, startNumber int) (appointment.Chain, error) {
	return s.mutate(ctx, "start_phase", clientID, func(chain appointment.Chain) (appointment.Chain, error) {
		return s.engine.StartPhase(chain, clientID, typ, startNumber)
	}, attribute.String("session.type", string(typ)))
}

func (s *schedulingService) ConvertKZTToLZT(ctx context.Context, clientID string, fromNumber int) (appointment.Chain, error) {
	return s.mutate(ctx, "convert_kzt_lzt", clientID, func(chain appointment.Chain) (appointment.Chain, error) {
		return s.engine.ConvertKZTToLZT(chain, clientID, fromNumber)
	}, attribute.Int("from_number", fromNumber))
}

// ---------------------------------------------------------------------------
// Single appointments
// ---------------------------------------------------------------------------

func (s *schedulingService) Cancel(ctx context.Context, clientID string, date time.Time) (appointment.Chain, error) {
	return s.mutate(ctx, "cancel", clientID, func(chain appointment.Chain) (appointment.Chain, error) {
		return s.engine.Cancel(chain, date)
	}, dateAttr(date))
}

func (s *schedulingService) MarkPTG(ctx context.Context, clientID string, date time.Time) (appointment.Chain, error) {
	return s.mutate(ctx, "mark_ptg", clientID, func(chain appointment.Chain) (appointment.Chain, error) {
		return s.engine.MarkPTG(chain, date)
	}, dateAttr(date))
}

func (s *schedulingService) EndTherapy(ctx context.Context, clientID string, date time.Time) (appointment.Chain, error) {
	return s.mutate(ctx, "end_therapy", clientID, func(chain appointment.Chain) (appointment.Chain, error) {
		if len(chain) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
		}
		return s.engine.EndTherapy(chain, date), nil
	}, dateAttr(date))
}

func (s *schedulingService) RealignWeekday(ctx context.Context, clientID string, date time.Time, weekday int) (appointment.Chain, error) {
	return s.mutate(ctx, "realign_weekday", clientID, func(chain appointment.Chain) (appointment.Chain, error) {
		return s.engine.RealignWeekday(chain, date, weekday)
	}, dateAttr(date), attribute.Int("weekday", weekday))
}

// ---------------------------------------------------------------------------
// Absences
// ---------------------------------------------------------------------------

func (s *schedulingService) ShiftAbsence(ctx context.Context, target string, start, end time.Time) (*AbsenceResult, error) {
	target = strings.TrimSpace(target)
	if !strings.EqualFold(target, AllClients) {
		res := &AbsenceResult{Cancelled: map[string]int{}}
		_, err := s.mutate(ctx, "shift_absence", target, func(chain appointment.Chain) (appointment.Chain, error) {
			if len(chain) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrClientNotFound, target)
			}
			next, n, err := s.engine.ShiftAbsence(chain, start, end)
			if n > 0 {
				res.Cancelled[target] = n
			}
			return next, err
		}, dateAttr(start))
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	ctx, span := s.tracer.Start(ctx, "scheduling.shift_absence_all", trace.WithAttributes(dateAttr(start)))
	defer span.End()

	unlock := s.locks.lockAll()
	defer unlock()

	res := &AbsenceResult{Cancelled: map[string]int{}}
	changed := make(map[string]appointment.Chain)
	for _, id := range s.store.Clients() {
		next, n, err := s.engine.ShiftAbsence(s.store.ForClient(id), start, end)
		if err != nil {
			return nil, s.fail(ctx, span, "shift_absence", AllClients, err)
		}
		if n > 0 {
			res.Cancelled[id] = n
			changed[id] = next
		}
	}
	if len(changed) == 0 {
		return res, nil
	}
	if err := s.store.ReplaceClientSlices(ctx, changed); err != nil {
		return nil, s.fail(ctx, span, "shift_absence", AllClients, err)
	}

	s.mutations.Add(ctx, int64(len(changed)), metric.WithAttributes(attribute.String("action", "shift_absence")))
	s.log.Info("absence applied to all clients",
		"start", start.Format(appointment.DateLayout),
		"end", end.Format(appointment.DateLayout),
		"clients", len(changed),
	)
	for id := range changed {
		s.notifyChain(ctx, id, "shift_absence")
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Schedule-wide
// ---------------------------------------------------------------------------

func (s *schedulingService) Appointments(_ context.Context, from, to time.Time) ([]appointment.Entry, error) {
	if appointment.Day(from).After(appointment.Day(to)) {
		return nil, fmt.Errorf("%w: range ends before it starts", ErrInvalidRange)
	}
	return s.store.ForRange(from, to), nil
}

func (s *schedulingService) Supervisions(_ context.Context) []appointment.SupervisionEntry {
	return s.store.Supervisions()
}

func (s *schedulingService) AddSupervision(ctx context.Context, date time.Time, kind appointment.SupervisionKind, hours int) (appointment.SupervisionEntry, error) {
	entry := appointment.SupervisionEntry{Date: appointment.Day(date), Kind: kind, Hours: hours}
	if hours < 1 || hours > maxSupervisionHours {
		return entry, fmt.Errorf("%w: supervision hours %d outside 1..%d", ErrInvalidRange, hours, maxSupervisionHours)
	}
	if _, err := appointment.ParseSupervisionKind(string(kind)); err != nil {
		return entry, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	err := s.changeSupervisions(ctx, "add", func(current []appointment.SupervisionEntry) ([]appointment.SupervisionEntry, error) {
		for _, sv := range current {
			if sv.Date.Equal(entry.Date) {
				return nil, fmt.Errorf("%w: %s", ErrSupervisionExists, entry.Date.Format(appointment.DateLayout))
			}
		}
		return append(current, entry), nil
	})
	return entry, err
}

func (s *schedulingService) DeleteSupervision(ctx context.Context, date time.Time) error {
	return s.changeSupervisions(ctx, "delete", func(current []appointment.SupervisionEntry) ([]appointment.SupervisionEntry, error) {
		i := slices.IndexFunc(current, func(sv appointment.SupervisionEntry) bool {
			return appointment.SameDay(sv.Date, date)
		})
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrSupervisionNotFound, appointment.Day(date).Format(appointment.DateLayout))
		}
		return slices.Delete(current, i, i+1), nil
	})
}

func (s *schedulingService) changeSupervisions(ctx context.Context, action string, fn func([]appointment.SupervisionEntry) ([]appointment.SupervisionEntry, error)) error {
	ctx, span := s.tracer.Start(ctx, "scheduling.supervision_"+action)
	defer span.End()

	unlock := s.locks.lockAll()
	defer unlock()

	next, err := fn(s.store.Supervisions())
	if err != nil {
		return s.fail(ctx, span, "supervision_"+action, "", err)
	}
	if err := s.store.ReplaceSupervisions(ctx, next); err != nil {
		return s.fail(ctx, span, "supervision_"+action, "", err)
	}

	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("action", "supervision_"+action)))
	s.log.Info("supervision entries updated", "action", action, "entries", len(next))
	if s.notifier != nil {
		if err := s.notifier.SupervisionChanged(ctx, action); err != nil {
			s.log.Warn("supervision change not published", "action", action, "err", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// mutate runs fn on the client's current chain inside the client's critical
// section and persists the result. Nothing is written when fn fails or
// returns the chain unchanged.
func (s *schedulingService) mutate(
	ctx context.Context,
	action, clientID string,
	fn func(appointment.Chain) (appointment.Chain, error),
	attrs ...attribute.KeyValue,
) (appointment.Chain, error) {
	attrs = append(attrs, attribute.String("client.id", clientID))
	ctx, span := s.tracer.Start(ctx, "scheduling."+action, trace.WithAttributes(attrs...))
	defer span.End()

	unlock := s.locks.lock(clientID)
	defer unlock()

	current := s.store.ForClient(clientID)
	next, err := fn(current)
	if err != nil {
		return nil, s.fail(ctx, span, action, clientID, err)
	}
	next = next.Sorted()
	if slices.Equal(current, next) {
		return next, nil
	}

	if err := s.store.ReplaceClientSlice(ctx, clientID, next); err != nil {
		return nil, s.fail(ctx, span, action, clientID, err)
	}

	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	s.log.Info("chain updated", "client_id", clientID, "action", action, "sessions", len(next))
	s.notifyChain(ctx, clientID, action)
	return next, nil
}

func (s *schedulingService) fail(ctx context.Context, span trace.Span, action, clientID string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	level := slog.LevelWarn
	if errors.Is(err, ErrPersistence) {
		level = slog.LevelError
	}
	s.log.Log(ctx, level, "schedule change rejected",
		"client_id", clientID, "action", action, "err", err)
	return err
}

func (s *schedulingService) notifyChain(ctx context.Context, clientID, action string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ChainChanged(ctx, clientID, action); err != nil {
		s.log.Warn("chain change not published", "client_id", clientID, "action", action, "err", err)
	}
}

func dateAttr(t time.Time) attribute.KeyValue {
	return attribute.String("appointment.date", appointment.Day(t).Format(appointment.DateLayout))
}

// clientLocks serializes changes per client. Operations spanning every
// client take the exclusive lock and wait for all per-client work.
type clientLocks struct {
	all      sync.RWMutex
	mu       sync.Mutex
	byClient map[string]*sync.Mutex
}

func newClientLocks() *clientLocks {
	return &clientLocks{byClient: make(map[string]*sync.Mutex)}
}

func (l *clientLocks) lock(clientID string) func() {
	l.all.RLock()
	l.mu.Lock()
	m, ok := l.byClient[clientID]
	if !ok {
		m = &sync.Mutex{}
		l.byClient[clientID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.all.RUnlock()
	}
}

func (l *clientLocks) lockAll() func() {
	l.all.Lock()
	return l.all.Unlock
}
