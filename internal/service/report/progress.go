package report

import (
	"context"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
)

// Progress measures completed therapy sessions against the goal and projects
// when the goal is reached at the pace of the recent window.
type Progress struct {
	Today      time.Time `json:"today"`
	Completed  int       `json:"completed"`
	Planned    int       `json:"planned"`
	Goal       int       `json:"goal"`
	Percent    float64   `json:"percent"`
	Remaining  int       `json:"remaining"`
	WindowDays int       `json:"window_days"`
	Recent     int       `json:"recent"`
	PerDay     float64   `json:"per_day"`

	GoalReached bool       `json:"goal_reached"`
	DaysToGoal  int        `json:"days_to_goal,omitempty"`
	GoalDate    *time.Time `json:"goal_date,omitempty"`
}

func (s *reportService) Progress(_ context.Context, today time.Time) *Progress {
	return BuildProgress(s.source.Sessions(), today, s.settings)
}

func BuildProgress(sessions []appointment.Session, today time.Time, st Settings) *Progress {
	today = appointment.Day(today)
	windowStart := appointment.AddDays(today, -st.WindowDays)

	p := &Progress{Today: today, Goal: st.Goal, WindowDays: st.WindowDays}
	for _, sess := range sessions {
		if sess.Date.After(today) {
			p.Planned++
			continue
		}
		p.Completed++
		if !sess.Date.Before(windowStart) {
			p.Recent++
		}
	}

	if st.Goal > 0 {
		p.Percent = roundTo(float64(p.Completed)/float64(st.Goal)*100, 1)
	}
	p.Remaining = max(st.Goal-p.Completed, 0)
	p.GoalReached = p.Remaining == 0

	if st.WindowDays > 0 {
		p.PerDay = float64(p.Recent) / float64(st.WindowDays)
	}
	if !p.GoalReached && p.PerDay > 0 {
		p.DaysToGoal = int(float64(p.Remaining) / p.PerDay)
		date := appointment.AddDays(today, p.DaysToGoal)
		p.GoalDate = &date
	}
	p.PerDay = roundTo(p.PerDay, 3)
	return p
}
