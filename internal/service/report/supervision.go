package report

import (
	"context"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
)

type SupervisionRow struct {
	// Kind is "total", "E-SV" or "G-SV".
	Kind       string  `json:"kind"`
	Required   float64 `json:"soll"`
	Actual     float64 `json:"ist"`
	Difference float64 `json:"difference"`
}

// SupervisionReport compares required and recorded supervision hours up to
// and including Due.
type SupervisionReport struct {
	Due      time.Time        `json:"due"`
	Sessions int              `json:"sessions"`
	Rows     []SupervisionRow `json:"rows"`
}

func (s *reportService) Supervision(_ context.Context, due time.Time) *SupervisionReport {
	return BuildSupervision(s.source.Sessions(), s.source.Supervisions(), due, s.settings)
}

func BuildSupervision(sessions []appointment.Session, supervisions []appointment.SupervisionEntry, due time.Time, st Settings) *SupervisionReport {
	due = appointment.Day(due)

	n := 0
	for _, sess := range sessions {
		if !sess.Date.After(due) {
			n++
		}
	}

	var total, individual, group int
	for _, sv := range supervisions {
		if sv.Date.After(due) {
			continue
		}
		total += sv.Hours
		switch sv.Kind {
		case appointment.SupervisionIndividual:
			individual += sv.Hours
		case appointment.SupervisionGroup:
			group += sv.Hours
		}
	}

	row := func(kind string, ratio float64, actual int) SupervisionRow {
		required := roundTo(float64(n)*ratio, 1)
		return SupervisionRow{
			Kind:       kind,
			Required:   required,
			Actual:     float64(actual),
			Difference: roundTo(float64(actual)-required, 1),
		}
	}

	return &SupervisionReport{
		Due:      due,
		Sessions: n,
		Rows: []SupervisionRow{
			row("total", st.TotalRatio, total),
			row(string(appointment.SupervisionIndividual), st.IndividualRatio, individual),
			row(string(appointment.SupervisionGroup), st.GroupRatio, group),
		},
	}
}
