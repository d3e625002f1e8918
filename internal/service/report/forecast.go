package report

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

type ForecastRow struct {
	SessionType catalog.SessionType `json:"session_type"`
	Count       int                 `json:"count"`
	Estimate    int                 `json:"estimate"`
	Fee         float64             `json:"fee"`
	Amount      float64             `json:"amount"`
}

type ForecastTotal struct {
	Count    int     `json:"count"`
	Estimate int     `json:"estimate"`
	Amount   float64 `json:"amount"`
}

// Forecast is the billing estimate of one quarter.
type Forecast struct {
	Quarter  string        `json:"quarter"`
	Practice string        `json:"practice"`
	Rows     []ForecastRow `json:"rows"`
	Total    ForecastTotal `json:"total"`
}

func (s *reportService) Forecast(ctx context.Context, q appointment.Quarter, practice string) (*Forecast, error) {
	practice = strings.ToLower(strings.TrimSpace(practice))
	if practice == "" {
		practice = s.settings.Practice
	}
	if practice != PracticeIntern && practice != PracticeExtern {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPractice, practice)
	}

	if s.cache != nil {
		f, ok, err := s.cache.Get(ctx, q.String(), practice)
		if err != nil {
			s.log.Warn("forecast cache read failed", "quarter", q.String(), "err", err)
		}
		if ok {
			return f, nil
		}
	}

	f := BuildForecast(s.source.ForQuarter(q), q, practice, s.settings)

	if s.cache != nil {
		if err := s.cache.Set(ctx, f); err != nil {
			s.log.Warn("forecast cache write failed", "quarter", q.String(), "err", err)
		}
	}
	return f, nil
}

// BuildForecast counts the sessions per type, scales each count by the
// estimate factor (half-to-even) and prices the estimate. Types without a
// session in the quarter are left out.
func BuildForecast(sessions []appointment.Session, q appointment.Quarter, practice string, st Settings) *Forecast {
	counts := make(map[catalog.SessionType]int)
	for _, sess := range sessions {
		if q.Contains(sess.Date) && sess.Type.IsTherapy() {
			counts[sess.Type]++
		}
	}

	f := &Forecast{Quarter: q.String(), Practice: practice, Rows: []ForecastRow{}}
	for _, t := range catalog.TherapyTypes {
		n := counts[t]
		if n == 0 {
			continue
		}
		fee := st.Fees[t]
		if practice == PracticeExtern {
			fee -= st.ExternalDeduction
		}
		fee = roundTo(fee, 2)
		// 3 * (10/12) must land on the tie 2.5, not just above it.
		est := int(math.RoundToEven(roundTo(float64(n)*st.EstimateFactor, 9)))
		row := ForecastRow{
			SessionType: t,
			Count:       n,
			Estimate:    est,
			Fee:         fee,
			Amount:      roundTo(float64(est)*fee, 2),
		}
		f.Rows = append(f.Rows, row)
		f.Total.Count += row.Count
		f.Total.Estimate += row.Estimate
		f.Total.Amount += row.Amount
	}
	f.Total.Amount = roundTo(f.Total.Amount, 2)
	return f
}
