package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
)

const schedule = "Datum,Klient,Sitzungsart,Nummer,Art Supervision,Stundenanzahl\n" +
	"2025-01-06,AB,Sprechstunde,1,,\n" +
	"2025-01-07,,Supervision,,G-SV,2\n" +
	"2025-01-13,AB,Sprechstunde,2,,\n"

type memObjects struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (m *memObjects) Upload(_ context.Context, key, contentType string, body io.Reader, size int64) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memObjects) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://backups.example.test/" + key + "?X-Amz-Signature=abc", nil
}

type countingNotifier struct{ replaced []string }

func (n *countingNotifier) ScheduleReplaced(_ context.Context, action string) error {
	n.replaced = append(n.replaced, action)
	return nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(store.NewMemory(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	n := &countingNotifier{}
	svc := New(st, nil, n, nil)

	rows, err := svc.Import(ctx, strings.NewReader(schedule))
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	assert.Equal(t, []string{"import"}, n.replaced)

	chain := st.ForClient("AB")
	require.Len(t, chain, 2)
	assert.Equal(t, catalog.Sprechstunde, chain[1].Type)
	require.Len(t, st.Supervisions(), 1)

	var buf bytes.Buffer
	rows, err = svc.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	assert.Equal(t, schedule, buf.String())
}

func TestImportRejectsInvalidFileAndKeepsSchedule(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := New(st, nil, nil, nil)
	_, err := svc.Import(ctx, strings.NewReader(schedule))
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
	}{
		{"missing column", "Datum,Klient\n2025-01-06,AB\n"},
		{"bad date", "Datum,Klient,Sitzungsart,Nummer,Art Supervision,Stundenanzahl\n06.01.2025,AB,KZT,1,,\n"},
		{"unknown type", "Datum,Klient,Sitzungsart,Nummer,Art Supervision,Stundenanzahl\n2025-01-06,AB,Gruppe,1,,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrInvalidFile)
			assert.Len(t, st.All(), 3)
		})
	}
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	objects := &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
	svc := New(st, objects, nil, nil).(*transferService)
	svc.now = func() time.Time { return time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC) }

	_, err := svc.Import(ctx, strings.NewReader(schedule))
	require.NoError(t, err)

	b, err := svc.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backups/2025/03/termine-20250304T101500Z.csv", b.Key)
	assert.Equal(t, 3, b.Entries)
	assert.Contains(t, b.URL, b.Key)
	assert.Equal(t, schedule, string(objects.objects[b.Key]))
	assert.Equal(t, csvContentType, objects.types[b.Key])

	objects.err = errors.New("access denied")
	_, err = svc.Backup(ctx)
	assert.Error(t, err)
}

func TestBackupDisabled(t *testing.T) {
	svc := New(newTestStore(t), nil, nil, nil)
	_, err := svc.Backup(context.Background())
	assert.ErrorIs(t, err, ErrBackupDisabled)
}

func TestImportPersistenceFailure(t *testing.T) {
	st := store.New(failingPersister{}, nil)
	svc := New(st, nil, nil, nil)

	_, err := svc.Import(context.Background(), strings.NewReader(schedule))
	assert.ErrorIs(t, err, store.ErrPersistence)
	assert.Empty(t, st.All())
}

type failingPersister struct{}

func (failingPersister) Load(context.Context) ([]appointment.Record, error) { return nil, nil }

func (failingPersister) Save(context.Context, []appointment.Record) error {
	return errors.New("read-only file system")
}
