package scheduling

import (
	"fmt"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

// The mutations treat a chain as two parallel lists: the dates, and the
// (type, number) labels in chronological order. Cancelling or inserting a
// slot edits one list and re-zips, so every later session moves by one slot
// while numbering stays contiguous.

func (e *Engine) locate(chain appointment.Chain, date time.Time) (appointment.Chain, int, error) {
	chain = chain.Sorted()
	i := chain.IndexOf(date)
	if i < 0 {
		return nil, -1, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointment.Day(date).Format(appointment.DateLayout))
	}
	return chain, i, nil
}

func tailDate(chain appointment.Chain) time.Time {
	return appointment.AddDays(chain.MaxDate(), catalog.SessionIntervalDays)
}

// Cancel removes the slot on date and appends one at the end of the chain.
// The session that was due on date and all later ones move one slot later.
// PTG sessions move with their slot even into a quarter that already holds
// catalog.PTGQuarterQuota of them; the quota only gates MarkPTG.
func (e *Engine) Cancel(chain appointment.Chain, date time.Time) (appointment.Chain, error) {
	chain, i, err := e.locate(chain, date)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(chain))
	for j, s := range chain {
		if j != i {
			dates = append(dates, s.Date)
		}
	}
	dates = append(dates, tailDate(chain))

	out := chain.Clone()
	for j := range out {
		out[j].Date = dates[j]
	}
	return out, nil
}

// MarkPTG inserts a PTG session on date, in front of the session due that
// day, and appends one slot so the chain keeps its length. At most
// catalog.PTGQuarterQuota PTG sessions fit in one quarter.
func (e *Engine) MarkPTG(chain appointment.Chain, date time.Time) (appointment.Chain, error) {
	chain, i, err := e.locate(chain, date)
	if err != nil {
		return nil, err
	}
	target := chain[i]
	if target.Type == catalog.PTG {
		return nil, fmt.Errorf("%w: session on %s is already PTG", ErrInvalidTransition, target.Date.Format(appointment.DateLayout))
	}

	q := appointment.QuarterOf(target.Date)
	var taken []time.Time
	for _, s := range chain {
		if s.Type == catalog.PTG && q.Contains(s.Date) {
			taken = append(taken, s.Date)
		}
	}
	if len(taken) >= catalog.PTGQuarterQuota {
		return nil, &QuotaExceededError{Quarter: q, Dates: taken}
	}

	labels := make(appointment.Chain, 0, len(chain)+1)
	labels = append(labels, chain[:i]...)
	labels = append(labels, appointment.Session{
		ClientID: target.ClientID,
		Type:     catalog.PTG,
		Number:   len(taken) + 1,
	})
	labels = append(labels, chain[i:]...)

	tail := tailDate(chain)
	for j := range labels {
		if j < len(chain) {
			labels[j].Date = chain[j].Date
		} else {
			labels[j].Date = tail
		}
	}
	return labels, nil
}

// EndTherapy keeps only the sessions strictly before date. Applying it again
// with the same or an earlier date changes nothing further.
func (e *Engine) EndTherapy(chain appointment.Chain, date time.Time) appointment.Chain {
	cut := appointment.Day(date)
	var out appointment.Chain
	for _, s := range chain.Sorted() {
		if s.Date.Before(cut) {
			out = append(out, s)
		}
	}
	return out
}

// Weekday numbers days Monday=0 through Sunday=6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// RealignWeekday moves the session on date and every later one forward to
// the next occurrence of weekday (Monday=0 .. Sunday=6). Sessions already on
// that weekday stay put.
func (e *Engine) RealignWeekday(chain appointment.Chain, date time.Time, weekday int) (appointment.Chain, error) {
	if weekday < 0 || weekday > 6 {
		return nil, fmt.Errorf("%w: weekday %d outside 0..6", ErrInvalidRange, weekday)
	}
	chain, i, err := e.locate(chain, date)
	if err != nil {
		return nil, err
	}

	out := chain.Clone()
	for j := i; j < len(out); j++ {
		diff := ((weekday-Weekday(out[j].Date))%7 + 7) % 7
		out[j].Date = appointment.AddDays(out[j].Date, diff)
	}
	return out.Sorted(), nil
}
