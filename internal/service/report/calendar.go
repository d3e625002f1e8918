package report

import (
	"context"
	"fmt"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

type CalendarEvent struct {
	Title      string `json:"title"`
	Start      string `json:"start"`
	Color      string `json:"color"`
	ResourceID string `json:"resourceId"`
}

const defaultEventColor = "#34495e"

var eventColors = map[catalog.SessionType]string{
	catalog.Sprechstunde: "#3498db",
	catalog.Probatorik:   "#9b59b6",
	catalog.Anamnese:     "#e74c3c",
	catalog.KZT:          "#2ecc71",
	catalog.LZT:          "#27ae60",
	catalog.RFP:          "#f39c12",
	catalog.PTG:          "#e67e22",
	catalog.Supervision:  "#95a5a6",
}

func (s *reportService) CalendarEvents(_ context.Context) []CalendarEvent {
	return BuildCalendar(s.source.All())
}

// BuildCalendar renders every entry as a calendar event, sessions titled
// "Client - Type #n" and supervision "Supervision (Kind) - Nh".
func BuildCalendar(entries []appointment.Entry) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case appointment.Session:
			out = append(out, CalendarEvent{
				Title:      fmt.Sprintf("%s - %s #%d", v.ClientID, v.Type, v.Number),
				Start:      v.Date.Format(appointment.DateLayout),
				Color:      colorOf(v.Type),
				ResourceID: v.ClientID,
			})
		case appointment.SupervisionEntry:
			title := string(catalog.Supervision)
			if v.Kind != "" {
				title += fmt.Sprintf(" (%s)", v.Kind)
			}
			if v.Hours > 0 {
				title += fmt.Sprintf(" - %dh", v.Hours)
			}
			out = append(out, CalendarEvent{
				Title:      title,
				Start:      v.Date.Format(appointment.DateLayout),
				Color:      colorOf(catalog.Supervision),
				ResourceID: string(catalog.Supervision),
			})
		}
	}
	return out
}

func colorOf(t catalog.SessionType) string {
	if c, ok := eventColors[t]; ok {
		return c
	}
	return defaultEventColor
}
