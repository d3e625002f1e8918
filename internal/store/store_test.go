package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

type failingPersister struct {
	Memory
	err error
}

func (f *failingPersister) Save(context.Context, []appointment.Record) error { return f.err }

func session(client string, typ catalog.SessionType, n int, y int, m time.Month, d int) appointment.Session {
	return appointment.Session{
		Date:     appointment.Date(y, m, d),
		ClientID: client,
		Type:     typ,
		Number:   n,
	}
}

func seed(t *testing.T, p Persister) *Store {
	t.Helper()
	s := New(p, nil)
	err := s.ReplaceAll(context.Background(), []appointment.Entry{
		session("AB", catalog.Sprechstunde, 1, 2025, 1, 6),
		session("CD", catalog.KZT, 1, 2025, 1, 7),
		session("AB", catalog.Sprechstunde, 2, 2025, 1, 13),
		appointment.SupervisionEntry{Date: appointment.Date(2025, 1, 8), Kind: appointment.SupervisionGroup, Hours: 2},
		session("CD", catalog.KZT, 2, 2025, 4, 1),
	})
	require.NoError(t, err)
	return s
}

func TestStoreQueries(t *testing.T) {
	s := seed(t, nil)

	assert.Equal(t, []string{"AB", "CD"}, s.Clients())

	ab := s.ForClient("AB")
	require.Len(t, ab, 2)
	assert.Equal(t, 1, ab[0].Number)
	assert.Equal(t, 2, ab[1].Number)
	assert.Empty(t, s.ForClient("ZZ"))

	q1 := s.ForQuarter(appointment.Quarter{Year: 2025, Q: 1})
	assert.Len(t, q1, 3)

	rng := s.ForRange(appointment.Date(2025, 1, 7), appointment.Date(2025, 1, 8))
	require.Len(t, rng, 2)
	_, isSupervision := rng[1].(appointment.SupervisionEntry)
	assert.True(t, isSupervision)

	assert.Len(t, s.Supervisions(), 1)
	assert.Len(t, s.Sessions(), 4)
}

func TestReplaceClientSliceLeavesOthers(t *testing.T) {
	mem := NewMemory()
	s := seed(t, mem)
	ctx := context.Background()

	err := s.ReplaceClientSlice(ctx, "AB", appointment.Chain{
		session("AB", catalog.Probatorik, 1, 2025, 1, 20),
	})
	require.NoError(t, err)

	ab := s.ForClient("AB")
	require.Len(t, ab, 1)
	assert.Equal(t, catalog.Probatorik, ab[0].Type)
	assert.Len(t, s.ForClient("CD"), 2)
	assert.Len(t, s.Supervisions(), 1)

	stored, err := mem.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestReplaceClientSliceRejectsForeignSessions(t *testing.T) {
	s := seed(t, nil)
	err := s.ReplaceClientSlice(context.Background(), "AB", appointment.Chain{
		session("CD", catalog.KZT, 3, 2025, 4, 8),
	})
	assert.Error(t, err)
	assert.Len(t, s.ForClient("CD"), 2)
}

func TestFailedSaveKeepsPreviousState(t *testing.T) {
	fp := &failingPersister{}
	s := seed(t, fp)
	before := s.All()

	fp.err = errors.New("disk full")
	ctx := context.Background()

	err := s.ReplaceClientSlice(ctx, "AB", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	err = s.ReplaceSupervisions(ctx, nil)
	assert.ErrorIs(t, err, ErrPersistence)

	err = s.ReplaceAll(ctx, nil)
	assert.ErrorIs(t, err, ErrPersistence)

	assert.Equal(t, before, s.All())
}

func TestOpenLoadsPersistedRecords(t *testing.T) {
	mem := NewMemory()
	seed(t, mem)

	s, err := Open(context.Background(), mem, nil)
	require.NoError(t, err)
	assert.Len(t, s.All(), 5)
	assert.Equal(t, mem.records, s.Records())
}
