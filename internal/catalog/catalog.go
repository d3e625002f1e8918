// Package catalog holds the session-type table the scheduler plans against:
// how many sessions each therapy phase has, the weekly cadence and the PTG
// quota.
package catalog

import (
	"fmt"
	"strings"
)

// SessionType is the closed set of appointment kinds.
type SessionType string

const (
	Sprechstunde SessionType = "Sprechstunde"
	Probatorik   SessionType = "Probatorik"
	Anamnese     SessionType = "Anamnese"
	KZT          SessionType = "KZT"
	LZT          SessionType = "LZT"
	RFP          SessionType = "RFP"
	PTG          SessionType = "PTG"
	Supervision  SessionType = "Supervision"

	// Split short-term therapy, only used by the quarter capacity estimate.
	KZT1 SessionType = "KZT1"
	KZT2 SessionType = "KZT2"
)

const (
	// SessionIntervalDays is the fixed weekly cadence.
	SessionIntervalDays = 7
	// PTGQuarterQuota is the number of PTG sessions allowed per client per quarter.
	PTGQuarterQuota = 3
	// DefaultIntakeCount is the number of Sprechstunde appointments created on onboarding.
	DefaultIntakeCount = 3
	// MaxIntakeCount bounds onboarding.
	MaxIntakeCount = 10
)

// TherapyTypes lists every session type a client chain may contain, in
// treatment order.
var TherapyTypes = []SessionType{Sprechstunde, Probatorik, Anamnese, KZT, LZT, RFP, PTG}

// ParseSessionType accepts the canonical names case-insensitively.
func ParseSessionType(s string) (SessionType, error) {
	if strings.EqualFold(s, string(Supervision)) {
		return Supervision, nil
	}
	for _, t := range TherapyTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown session type %q", s)
}

// IsTherapy reports whether t belongs in a client chain.
func (t SessionType) IsTherapy() bool {
	for _, tt := range TherapyTypes {
		if t == tt {
			return true
		}
	}
	return false
}

func (t SessionType) String() string { return string(t) }

// Catalog maps a session type to its total number of sessions.
type Catalog struct {
	totals map[SessionType]int
}

var defaultTotals = map[SessionType]int{
	Sprechstunde: 3,
	Probatorik:   4,
	Anamnese:     1,
	KZT:          24,
	LZT:          60,
	RFP:          20,
	PTG:          1,
}

// Default returns the standard catalog.
func Default() *Catalog {
	return New(nil)
}

// New returns the standard catalog with the given totals overriding the
// defaults. Non-positive overrides are ignored.
func New(overrides map[SessionType]int) *Catalog {
	totals := make(map[SessionType]int, len(defaultTotals))
	for t, n := range defaultTotals {
		totals[t] = n
	}
	for t, n := range overrides {
		if n > 0 && t.IsTherapy() {
			totals[t] = n
		}
	}
	return &Catalog{totals: totals}
}

// Split returns the catalog variant used by the legacy quarter estimate, where
// KZT is planned as KZT1 + KZT2 (12 + 12) and LZT as the remaining 46.
func Split() map[SessionType]int {
	return map[SessionType]int{
		Sprechstunde: 3,
		Probatorik:   4,
		Anamnese:     1,
		KZT1:         12,
		KZT2:         12,
		LZT:          46,
		RFP:          20,
	}
}

// Total returns the number of sessions of t, or 0 for unknown types and
// Supervision.
func (c *Catalog) Total(t SessionType) int {
	return c.totals[t]
}

// Totals returns a copy of the table.
func (c *Catalog) Totals() map[SessionType]int {
	out := make(map[SessionType]int, len(c.totals))
	for t, n := range c.totals {
		out[t] = n
	}
	return out
}
