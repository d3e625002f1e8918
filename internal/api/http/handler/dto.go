package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

// Entry is the JSON shape of one schedule row. Sessions fill client_id and
// number, supervision entries fill kind and hours.
type Entry struct {
	Date        string              `json:"date"`
	SessionType catalog.SessionType `json:"session_type"`
	ClientID    string              `json:"client_id,omitempty"`
	Number      int                 `json:"number,omitempty"`
	Kind        string              `json:"supervision_kind,omitempty"`
	Hours       int                 `json:"hours,omitempty"`
}

func sessionEntry(s appointment.Session) Entry {
	return Entry{
		Date:        s.Date.Format(appointment.DateLayout),
		SessionType: s.Type,
		ClientID:    s.ClientID,
		Number:      s.Number,
	}
}

func supervisionEntry(s appointment.SupervisionEntry) Entry {
	return Entry{
		Date:        s.Date.Format(appointment.DateLayout),
		SessionType: catalog.Supervision,
		Kind:        string(s.Kind),
		Hours:       s.Hours,
	}
}

func chainEntries(chain appointment.Chain) []Entry {
	out := make([]Entry, 0, len(chain))
	for _, s := range chain {
		out = append(out, sessionEntry(s))
	}
	return out
}

func scheduleEntries(entries []appointment.Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case appointment.Session:
			out = append(out, sessionEntry(v))
		case appointment.SupervisionEntry:
			out = append(out, supervisionEntry(v))
		}
	}
	return out
}

func supervisionEntries(entries []appointment.SupervisionEntry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, supervisionEntry(e))
	}
	return out
}

// dateParam parses a YYYY-MM-DD route parameter.
func dateParam(c fiber.Ctx, name string) (time.Time, bool) {
	t, err := appointment.ParseDate(c.Params(name))
	return t, err == nil
}

// dateQuery parses an optional YYYY-MM-DD query value, falling back to def.
func dateQuery(c fiber.Ctx, name string, def time.Time) (time.Time, bool) {
	s := c.Query(name)
	if s == "" {
		return def, true
	}
	t, err := appointment.ParseDate(s)
	return t, err == nil
}

// today is the current calendar date; replaced in tests.
var today = func() time.Time { return appointment.Day(time.Now()) }
