package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

type fakeSource struct {
	sessions     []appointment.Session
	supervisions []appointment.SupervisionEntry
}

func (f *fakeSource) All() []appointment.Entry {
	var out []appointment.Entry
	for _, s := range f.sessions {
		out = append(out, s)
	}
	for _, sv := range f.supervisions {
		out = append(out, sv)
	}
	return out
}

func (f *fakeSource) ForQuarter(q appointment.Quarter) []appointment.Session {
	var out []appointment.Session
	for _, s := range f.sessions {
		if q.Contains(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSource) Sessions() []appointment.Session { return f.sessions }

func (f *fakeSource) Supervisions() []appointment.SupervisionEntry { return f.supervisions }

func run(client string, typ catalog.SessionType, first time.Time, from, to int) []appointment.Session {
	var out []appointment.Session
	for n := from; n <= to; n++ {
		out = append(out, appointment.Session{
			Date:     appointment.AddDays(first, (n-from)*7),
			ClientID: client,
			Type:     typ,
			Number:   n,
		})
	}
	return out
}

func q1Source() *fakeSource {
	var sessions []appointment.Session
	sessions = append(sessions, run("AB", catalog.Sprechstunde, appointment.Date(2025, 1, 6), 1, 3)...)
	sessions = append(sessions, run("CD", catalog.KZT, appointment.Date(2025, 1, 7), 1, 12)...)
	sessions = append(sessions, run("CD", catalog.KZT, appointment.Date(2025, 4, 1), 13, 13)...)
	sessions = append(sessions, run("EF", catalog.PTG, appointment.Date(2025, 2, 5), 1, 1)...)
	return &fakeSource{
		sessions: sessions,
		supervisions: []appointment.SupervisionEntry{
			{Date: appointment.Date(2025, 1, 14), Kind: appointment.SupervisionGroup, Hours: 2},
		},
	}
}

func TestBuildForecast(t *testing.T) {
	q := appointment.Quarter{Year: 2025, Q: 1}
	src := q1Source()

	tests := []struct {
		practice  string
		wantFees  []float64
		wantTotal float64
	}{
		{PracticeIntern, []float64{46.80, 46.65, 38.20}, 598.30},
		{PracticeExtern, []float64{43.80, 43.65, 35.20}, 559.30},
	}
	for _, tt := range tests {
		t.Run(tt.practice, func(t *testing.T) {
			f := BuildForecast(src.ForQuarter(q), q, tt.practice, DefaultSettings())

			require.Len(t, f.Rows, 3)
			assert.Equal(t, "2025Q1", f.Quarter)

			assert.Equal(t, catalog.Sprechstunde, f.Rows[0].SessionType)
			assert.Equal(t, 3, f.Rows[0].Count)
			assert.Equal(t, 2, f.Rows[0].Estimate, "2.5 rounds half to even")

			assert.Equal(t, catalog.KZT, f.Rows[1].SessionType)
			assert.Equal(t, 12, f.Rows[1].Count)
			assert.Equal(t, 10, f.Rows[1].Estimate)

			assert.Equal(t, catalog.PTG, f.Rows[2].SessionType)
			assert.Equal(t, 1, f.Rows[2].Estimate)

			for i, fee := range tt.wantFees {
				assert.InDelta(t, fee, f.Rows[i].Fee, 1e-9)
			}
			assert.Equal(t, 16, f.Total.Count)
			assert.Equal(t, 13, f.Total.Estimate)
			assert.InDelta(t, tt.wantTotal, f.Total.Amount, 1e-9)
		})
	}
}

func TestForecastRejectsUnknownPractice(t *testing.T) {
	svc := New(q1Source(), nil, DefaultSettings(), nil)
	_, err := svc.Forecast(context.Background(), appointment.Quarter{Year: 2025, Q: 1}, "mobile")
	assert.ErrorIs(t, err, ErrInvalidPractice)

	f, err := svc.Forecast(context.Background(), appointment.Quarter{Year: 2025, Q: 3}, "")
	require.NoError(t, err)
	assert.Equal(t, PracticeIntern, f.Practice)
	assert.Empty(t, f.Rows)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestForecastCache(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	src := q1Source()
	svc := New(src, NewRedisCache(client, 10*time.Minute), DefaultSettings(), nil)
	q := appointment.Quarter{Year: 2025, Q: 1}

	first, err := svc.Forecast(ctx, q, PracticeExtern)
	require.NoError(t, err)
	require.True(t, mr.Exists("ambulanz:report:forecast:2025Q1:extern"))
	assert.Equal(t, 10*time.Minute, mr.TTL("ambulanz:report:forecast:2025Q1:extern"))

	// Served from the cache until invalidated.
	src.sessions = src.sessions[:3]
	cached, err := svc.Forecast(ctx, q, PracticeExtern)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	require.NoError(t, svc.Invalidate(ctx))
	assert.False(t, mr.Exists("ambulanz:report:forecast:2025Q1:extern"))

	fresh, err := svc.Forecast(ctx, q, PracticeExtern)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Total.Count)
}

func TestForecastCacheUnavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	svc := New(q1Source(), NewRedisCache(client, time.Minute), DefaultSettings(), nil)
	f, err := svc.Forecast(context.Background(), appointment.Quarter{Year: 2025, Q: 1}, PracticeIntern)
	require.NoError(t, err, "a broken cache must not fail the report")
	assert.Equal(t, 16, f.Total.Count)
}

func TestBuildSupervision(t *testing.T) {
	due := appointment.Date(2025, 6, 16)
	sessions := run("AB", catalog.KZT, appointment.Date(2025, 1, 6), 1, 24) // last on 2025-06-16
	sessions = append(sessions, run("AB", catalog.LZT, appointment.Date(2025, 6, 23), 1, 2)...)
	supervisions := []appointment.SupervisionEntry{
		{Date: appointment.Date(2025, 2, 4), Kind: appointment.SupervisionIndividual, Hours: 1},
		{Date: appointment.Date(2025, 3, 4), Kind: appointment.SupervisionGroup, Hours: 2},
		{Date: appointment.Date(2025, 7, 1), Kind: appointment.SupervisionGroup, Hours: 3},
	}

	got := BuildSupervision(sessions, supervisions, due, DefaultSettings())

	assert.Equal(t, 24, got.Sessions)
	want := []SupervisionRow{
		{Kind: "total", Required: 6, Actual: 3, Difference: -3},
		{Kind: "E-SV", Required: 2, Actual: 1, Difference: -1},
		{Kind: "G-SV", Required: 4, Actual: 2, Difference: -2},
	}
	assert.Equal(t, want, got.Rows)
}

func TestBuildSupervisionRoundsToTenth(t *testing.T) {
	sessions := run("AB", catalog.KZT, appointment.Date(2025, 1, 6), 1, 7)
	got := BuildSupervision(sessions, nil, appointment.Date(2025, 12, 31), DefaultSettings())

	assert.InDelta(t, 1.8, got.Rows[0].Required, 1e-9) // 7/4 = 1.75
	assert.InDelta(t, 0.6, got.Rows[1].Required, 1e-9) // 7/12 = 0.583
	assert.InDelta(t, 1.2, got.Rows[2].Required, 1e-9) // 7/6 = 1.167
}

func TestBuildProgress(t *testing.T) {
	sessions := []appointment.Session{
		{Date: appointment.Date(2025, 1, 6), ClientID: "AB", Type: catalog.KZT, Number: 1},
		{Date: appointment.Date(2025, 1, 13), ClientID: "AB", Type: catalog.KZT, Number: 2},
		{Date: appointment.Date(2025, 3, 17), ClientID: "AB", Type: catalog.KZT, Number: 3},
		{Date: appointment.Date(2025, 3, 18), ClientID: "CD", Type: catalog.LZT, Number: 1},
		{Date: appointment.Date(2025, 3, 24), ClientID: "AB", Type: catalog.KZT, Number: 4},
		{Date: appointment.Date(2025, 3, 25), ClientID: "CD", Type: catalog.LZT, Number: 2},
		{Date: appointment.Date(2025, 4, 7), ClientID: "AB", Type: catalog.KZT, Number: 5},
	}
	st := DefaultSettings()
	st.Goal, st.WindowDays = 10, 16
	today := time.Date(2025, 3, 31, 15, 30, 0, 0, time.UTC)

	p := BuildProgress(sessions, today, st)

	assert.Equal(t, 6, p.Completed)
	assert.Equal(t, 1, p.Planned)
	assert.Equal(t, 4, p.Recent)
	assert.InDelta(t, 60.0, p.Percent, 1e-9)
	assert.Equal(t, 4, p.Remaining)
	assert.InDelta(t, 0.25, p.PerDay, 1e-9)
	assert.Equal(t, 16, p.DaysToGoal)
	require.NotNil(t, p.GoalDate)
	assert.Equal(t, appointment.Date(2025, 4, 16), *p.GoalDate)

	st.Goal = 5
	done := BuildProgress(sessions, today, st)
	assert.True(t, done.GoalReached)
	assert.Nil(t, done.GoalDate)

	idle := BuildProgress(sessions, appointment.Date(2025, 12, 1), DefaultSettings())
	assert.Zero(t, idle.Recent)
	assert.Nil(t, idle.GoalDate)
}

func TestEstimateCapacity(t *testing.T) {
	tests := []struct {
		name  string
		in    CapacityInput
		want  map[catalog.SessionType]int
		total int
	}{
		{
			name:  "intake from week one",
			in:    CapacityInput{StartType: catalog.Sprechstunde, StartNumber: 1, StartWeek: 1},
			want:  map[catalog.SessionType]int{catalog.Sprechstunde: 3, catalog.Probatorik: 4, catalog.Anamnese: 1, catalog.KZT1: 4},
			total: 12,
		},
		{
			name:  "KZT1 mid quarter",
			in:    CapacityInput{StartType: catalog.KZT1, StartNumber: 5, StartWeek: 7},
			want:  map[catalog.SessionType]int{catalog.KZT1: 6},
			total: 6,
		},
		{
			name:  "KZT2 without conversion stops",
			in:    CapacityInput{StartType: catalog.KZT2, StartNumber: 10, StartWeek: 1},
			want:  map[catalog.SessionType]int{catalog.KZT2: 3},
			total: 3,
		},
		{
			name:  "KZT2 with conversion",
			in:    CapacityInput{StartType: catalog.KZT2, StartNumber: 10, StartWeek: 1, Conversion: true},
			want:  map[catalog.SessionType]int{catalog.KZT2: 3, catalog.LZT: 9},
			total: 12,
		},
		{
			name:  "LZT near its end",
			in:    CapacityInput{StartType: catalog.LZT, StartNumber: 46, StartWeek: 1},
			want:  map[catalog.SessionType]int{catalog.LZT: 12},
			total: 12,
		},
		{
			name:  "RFP with relapse prevention",
			in:    CapacityInput{StartType: catalog.RFP, StartNumber: 20, StartWeek: 3, RelapsePrevention: true},
			want:  map[catalog.SessionType]int{catalog.RFP: 10},
			total: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimateCapacity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, 13-tt.in.StartWeek, got.Weeks)
			assert.Equal(t, tt.total, got.Total)
			require.Len(t, got.Rows, len(capacityOrder))
			for _, row := range got.Rows {
				assert.Equal(t, tt.want[row.SessionType], row.Sessions, row.SessionType)
			}
		})
	}
}

func TestEstimateCapacityValidation(t *testing.T) {
	bad := []CapacityInput{
		{StartType: catalog.KZT1, StartNumber: 1, StartWeek: 13},
		{StartType: catalog.KZT1, StartNumber: 13, StartWeek: 1},
		{StartType: catalog.PTG, StartNumber: 1, StartWeek: 1},
		{StartType: catalog.Probatorik, StartNumber: 0, StartWeek: 1},
	}
	for _, in := range bad {
		if _, err := EstimateCapacity(in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("EstimateCapacity(%+v) error = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestBuildCalendar(t *testing.T) {
	entries := []appointment.Entry{
		appointment.Session{Date: appointment.Date(2025, 3, 3), ClientID: "AB", Type: catalog.KZT, Number: 5},
		appointment.SupervisionEntry{Date: appointment.Date(2025, 3, 4), Kind: appointment.SupervisionIndividual, Hours: 2},
	}

	got := BuildCalendar(entries)

	assert.Equal(t, []CalendarEvent{
		{Title: "AB - KZT #5", Start: "2025-03-03", Color: "#2ecc71", ResourceID: "AB"},
		{Title: "Supervision (E-SV) - 2h", Start: "2025-03-04", Color: "#95a5a6", ResourceID: "Supervision"},
	}, got)
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Billing: config.BillingConfig{
			Practice:       "EXTERN",
			Fees:           map[string]float64{"kzt": 50, "unknown": 1},
			EstimateFactor: 0.9,
		},
		Progress: config.ProgressConfig{Goal: 400},
	}

	st := SettingsFromConfig(cfg)

	assert.Equal(t, PracticeExtern, st.Practice)
	assert.Equal(t, 50.0, st.Fees[catalog.KZT])
	assert.Equal(t, 46.80, st.Fees[catalog.Sprechstunde])
	assert.Equal(t, 0.9, st.EstimateFactor)
	assert.Equal(t, 400, st.Goal)
	assert.Equal(t, 30, st.WindowDays)
}
