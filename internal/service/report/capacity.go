package report

import (
	"context"
	"fmt"

	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

// quarterWeeks is the planning length of a quarter in the capacity estimate.
const quarterWeeks = 12

// capacityOrder is the treatment order of the split catalog.
var capacityOrder = []catalog.SessionType{
	catalog.Sprechstunde, catalog.Probatorik, catalog.Anamnese,
	catalog.KZT1, catalog.KZT2, catalog.LZT, catalog.RFP,
}

type CapacityInput struct {
	StartType         catalog.SessionType `json:"start_type"`
	StartNumber       int                 `json:"start_number"`
	StartWeek         int                 `json:"start_week"`
	Conversion        bool                `json:"conversion"`
	RelapsePrevention bool                `json:"relapse_prevention"`
}

type CapacityRow struct {
	SessionType catalog.SessionType `json:"session_type"`
	Sessions    int                 `json:"sessions"`
}

// Capacity is the number of sessions per type one client can still have in
// the quarter at one session per week.
type Capacity struct {
	Weeks int           `json:"weeks"`
	Rows  []CapacityRow `json:"rows"`
	Total int           `json:"total"`
}

func (s *reportService) Capacity(_ context.Context, in CapacityInput) (*Capacity, error) {
	return EstimateCapacity(in)
}

// EstimateCapacity walks the split catalog from the starting type and fills
// the remaining weeks of the quarter. KZT without a planned conversion ends
// after KZT2; with one, LZT adds 36 sessions to reach 60. A start in LZT or
// RFP treats both as one phase of 60 sessions, or 80 with relapse
// prevention.
func EstimateCapacity(in CapacityInput) (*Capacity, error) {
	totals := catalog.Split()
	base, ok := totals[in.StartType]
	if !ok {
		return nil, fmt.Errorf("%w: start type %q", ErrInvalidInput, in.StartType)
	}
	if in.StartNumber < 1 || in.StartNumber > base {
		return nil, fmt.Errorf("%w: start number %d outside 1..%d", ErrInvalidInput, in.StartNumber, base)
	}
	if in.StartWeek < 1 || in.StartWeek > quarterWeeks {
		return nil, fmt.Errorf("%w: start week %d outside 1..%d", ErrInvalidInput, in.StartWeek, quarterWeeks)
	}

	switch in.StartType {
	case catalog.KZT1, catalog.KZT2:
		totals[catalog.LZT] = 0
		if in.Conversion {
			totals[catalog.LZT] = 36
		}
		totals[catalog.RFP] = 0
	case catalog.LZT, catalog.RFP:
		phase := 60
		if in.RelapsePrevention {
			phase = 80
		}
		totals[catalog.LZT], totals[catalog.RFP] = 0, 0
		totals[in.StartType] = phase
	}

	weeks := quarterWeeks + 1 - in.StartWeek
	out := &Capacity{Weeks: weeks}
	started := false
	for _, t := range capacityOrder {
		n := 0
		switch {
		case t == in.StartType:
			started = true
			n = min(weeks, totals[t]-(in.StartNumber-1))
		case started && weeks > 0:
			n = min(weeks, totals[t])
		}
		n = max(n, 0)
		weeks -= n
		out.Rows = append(out.Rows, CapacityRow{SessionType: t, Sessions: n})
		out.Total += n
	}
	return out, nil
}
