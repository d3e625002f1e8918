package scheduling

import (
	"fmt"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

// Engine holds the pure chain transformations. It never touches the store:
// every method takes a chain and returns the new one.
type Engine struct {
	catalog *catalog.Catalog
}

func NewEngine(c *catalog.Catalog) *Engine {
	if c == nil {
		c = catalog.Default()
	}
	return &Engine{catalog: c}
}

// Catalog returns the session totals the engine plans against.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Generate builds sessions start..end of typ. The first one lies exactly one
// interval after anchor, each following one a further interval later.
func (e *Engine) Generate(clientID string, anchor time.Time, typ catalog.SessionType, start, end int) (appointment.Chain, error) {
	if !typ.IsTherapy() {
		return nil, fmt.Errorf("%w: %s cannot be generated for a client", ErrInvalidRange, typ)
	}
	total := e.catalog.Total(typ)
	if start < 1 || start > end || end > total {
		return nil, fmt.Errorf("%w: %s %d..%d outside 1..%d", ErrInvalidRange, typ, start, end, total)
	}

	anchor = appointment.Day(anchor)
	out := make(appointment.Chain, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, appointment.Session{
			Date:     appointment.AddDays(anchor, (i-start+1)*catalog.SessionIntervalDays),
			ClientID: clientID,
			Type:     typ,
			Number:   i,
		})
	}
	return out, nil
}

// GenerateIntake builds the first count Sprechstunden; the first falls on
// startDate itself.
func (e *Engine) GenerateIntake(clientID string, startDate time.Time, count int) (appointment.Chain, error) {
	if count < 1 || count > catalog.MaxIntakeCount {
		return nil, fmt.Errorf("%w: intake count %d outside 1..%d", ErrInvalidRange, count, catalog.MaxIntakeCount)
	}
	startDate = appointment.Day(startDate)
	out := make(appointment.Chain, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, appointment.Session{
			Date:     appointment.AddDays(startDate, (i-1)*catalog.SessionIntervalDays),
			ClientID: clientID,
			Type:     catalog.Sprechstunde,
			Number:   i,
		})
	}
	return out, nil
}

// generateProbatorik builds the probation run followed by the single
// Anamnese session one interval after the last probation session.
func (e *Engine) generateProbatorik(clientID string, anchor time.Time, start int) (appointment.Chain, error) {
	run, err := e.Generate(clientID, anchor, catalog.Probatorik, start, e.catalog.Total(catalog.Probatorik))
	if err != nil {
		return nil, err
	}
	last := run[len(run)-1].Date
	return append(run, appointment.Session{
		Date:     appointment.AddDays(last, catalog.SessionIntervalDays),
		ClientID: clientID,
		Type:     catalog.Anamnese,
		Number:   1,
	}), nil
}
