package appointment

import (
	"slices"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

// Chain is the ordered list of one client's sessions.
type Chain []Session

// Sorted returns a date-ascending copy. Sessions on the same date keep their
// relative order.
func (c Chain) Sorted() Chain {
	out := c.Clone()
	slices.SortStableFunc(out, func(a, b Session) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// Clone copies the chain.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	return append(Chain(nil), c...)
}

// Last returns the chronologically last session of a sorted chain.
func (c Chain) Last() (Session, bool) {
	if len(c) == 0 {
		return Session{}, false
	}
	return c[len(c)-1], true
}

// Phase is the type of the last session. It is derived on every call and
// never stored.
func (c Chain) Phase() (catalog.SessionType, bool) {
	last, ok := c.Last()
	if !ok {
		return "", false
	}
	return last.Type, true
}

// IndexOf returns the position of the first session on the given date, or -1.
func (c Chain) IndexOf(date time.Time) int {
	for i, s := range c {
		if SameDay(s.Date, date) {
			return i
		}
	}
	return -1
}

// MaxDate is the latest session date, zero for an empty chain.
func (c Chain) MaxDate() time.Time {
	var max time.Time
	for _, s := range c {
		if s.Date.After(max) {
			max = s.Date
		}
	}
	return max
}

// Has reports whether any session has one of the given types.
func (c Chain) Has(types ...catalog.SessionType) bool {
	for _, s := range c {
		if slices.Contains(types, s.Type) {
			return true
		}
	}
	return false
}

// OfType keeps the sessions of the given types.
func (c Chain) OfType(types ...catalog.SessionType) Chain {
	var out Chain
	for _, s := range c {
		if slices.Contains(types, s.Type) {
			out = append(out, s)
		}
	}
	return out
}

// CountByType counts sessions per type.
func (c Chain) CountByType() map[catalog.SessionType]int {
	out := make(map[catalog.SessionType]int)
	for _, s := range c {
		out[s.Type]++
	}
	return out
}
