package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
)

var (
	ErrInvalidTransition   = errors.New("phase transition not allowed")
	ErrQuotaExceeded       = errors.New("PTG quota for the quarter exhausted")
	ErrAppointmentNotFound = errors.New("no appointment on this date")
	ErrInvalidRange        = errors.New("value out of range")
	ErrClientExists        = errors.New("client already exists")
	ErrClientNotFound      = errors.New("client not found")
	ErrSupervisionExists   = errors.New("supervision already recorded on this date")
	ErrSupervisionNotFound = errors.New("no supervision on this date")

	// ErrPersistence is the store's failure sentinel, re-exported for callers
	// that only import this package.
	ErrPersistence = store.ErrPersistence
)

// QuotaExceededError lists the PTG dates that already use up the quarter.
type QuotaExceededError struct {
	Quarter appointment.Quarter
	Dates   []time.Time
}

func (e *QuotaExceededError) Error() string {
	dates := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		dates[i] = d.Format(appointment.DateLayout)
	}
	return fmt.Sprintf("%s: %s already has PTG on %s", ErrQuotaExceeded, e.Quarter, strings.Join(dates, ", "))
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
