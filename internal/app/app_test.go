package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
	"github.com/Alijeyrad/ambulanz_backend/internal/events"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/report"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
)

type invalidations struct {
	report.Service
	calls int
	err   error
}

func (r *invalidations) Invalidate(context.Context) error {
	r.calls++
	return r.err
}

type publishedMsg struct {
	subject string
	data    []byte
}

type fakeConn struct{ msgs []publishedMsg }

func (c *fakeConn) Publish(subj string, data []byte) error {
	c.msgs = append(c.msgs, publishedMsg{subj, data})
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestChangeFeedWithoutNATSInvalidatesDirectly(t *testing.T) {
	ctx := context.Background()
	reports := &invalidations{}
	feed := NewChangeFeed(nil, reports, discard())

	require.NoError(t, feed.ChainChanged(ctx, "AB", "cancel"))
	require.NoError(t, feed.SupervisionChanged(ctx, "add_supervision"))
	require.NoError(t, feed.ScheduleReplaced(ctx, "import"))
	assert.Equal(t, 3, reports.calls)

	reports.err = errors.New("redis down")
	assert.Error(t, feed.ChainChanged(ctx, "AB", "cancel"))
}

func TestChangeFeedPublishes(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	reports := &invalidations{}
	feed := NewChangeFeed(events.NewPublisher(conn), reports, discard())

	require.NoError(t, feed.ChainChanged(ctx, "AB", "mark_ptg"))
	require.NoError(t, feed.ScheduleReplaced(ctx, "import"))

	assert.Zero(t, reports.calls)
	require.Len(t, conn.msgs, 2)
	assert.Equal(t, events.ChainChangedSubject("AB"), conn.msgs[0].subject)
	assert.Equal(t, events.SubjectScheduleReplaced, conn.msgs[1].subject)
}

func TestHandleScheduleEvent(t *testing.T) {
	reports := &invalidations{}
	data, err := json.Marshal(events.Event{ID: "1", Action: "cancel", ClientID: "AB"})
	require.NoError(t, err)

	handleScheduleEvent(events.ChainChangedSubject("AB"), data, reports, discard())
	assert.Equal(t, 1, reports.calls)

	handleScheduleEvent(events.SubjectScheduleReplaced, []byte("not json"), reports, discard())
	assert.Equal(t, 1, reports.calls)
}

func TestProvideCatalogSkipsUnknownTypes(t *testing.T) {
	cfg := &config.Config{}
	cfg.Schedule.Totals = map[string]int{"lzt": 80, "gruppe": 5}

	c := ProvideCatalog(cfg, discard())
	assert.Equal(t, 80, c.Total(catalog.LZT))
	assert.Equal(t, catalog.Default().Total(catalog.KZT), c.Total(catalog.KZT))
}

func TestProvideStoreLogsLoadOnce(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := &config.Config{}
	cfg.Storage.Driver = config.StorageDriverMemory

	st, err := ProvideStore(cfg, store.NewMemory(), log)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, strings.Count(buf.String(), "appointment store loaded"))
}
