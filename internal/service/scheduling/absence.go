package scheduling

import (
	"fmt"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
)

// AllClients targets every client in ShiftAbsence.
const AllClients = "ALL"

// ShiftAbsence cancels, in date order, every session dated within
// [start, end]. Each cancellation pushes the rest of the chain back one slot,
// so n hits extend the chain's tail by n intervals. It returns the new chain
// and the number of cancelled slots.
func (e *Engine) ShiftAbsence(chain appointment.Chain, start, end time.Time) (appointment.Chain, int, error) {
	start, end = appointment.Day(start), appointment.Day(end)
	if start.After(end) {
		return nil, 0, fmt.Errorf("%w: absence ends %s before it starts %s", ErrInvalidRange,
			end.Format(appointment.DateLayout), start.Format(appointment.DateLayout))
	}

	chain = chain.Sorted()
	var hits []time.Time
	for _, s := range chain {
		if !s.Date.Before(start) && !s.Date.After(end) {
			hits = append(hits, s.Date)
		}
	}

	for _, d := range hits {
		next, err := e.Cancel(chain, d)
		if err != nil {
			return nil, 0, err
		}
		chain = next
	}
	return chain, len(hits), nil
}
