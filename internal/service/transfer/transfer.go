// Package transfer moves the whole schedule in and out as CSV: download,
// full import and backups to object storage.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
)

var (
	ErrInvalidFile    = errors.New("invalid schedule file")
	ErrBackupDisabled = errors.New("backup storage not configured")
)

const (
	csvContentType = "text/csv; charset=utf-8"
	backupPrefix   = "backups/"
)

// ObjectStore is where backups go. *s3.Client implements it.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Notifier announces a full replacement of the schedule.
type Notifier interface {
	ScheduleReplaced(ctx context.Context, action string) error
}

type Backup struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Entries   int       `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
}

type Service interface {
	Export(ctx context.Context, w io.Writer) (int, error)
	Import(ctx context.Context, r io.Reader) (int, error)
	Backup(ctx context.Context) (*Backup, error)
}

type transferService struct {
	store    *store.Store
	objects  ObjectStore
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// New returns the transfer service. objects and notifier may be nil.
func New(st *store.Store, objects ObjectStore, notifier Notifier, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &transferService{
		store:    st,
		objects:  objects,
		notifier: notifier,
		log:      log.With("component", "transfer"),
		now:      time.Now,
	}
}

// Export writes the whole schedule and returns the number of rows.
func (s *transferService) Export(_ context.Context, w io.Writer) (int, error) {
	records := s.store.Records()
	if err := store.WriteCSV(w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Import replaces the whole schedule with the file's contents. Nothing is
// replaced when a single row is invalid.
func (s *transferService) Import(ctx context.Context, r io.Reader) (int, error) {
	records, err := store.ReadCSV(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	entries, err := appointment.FromRecords(records)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if err := s.store.ReplaceAll(ctx, entries); err != nil {
		s.log.Error("schedule import not persisted", "rows", len(entries), "err", err)
		return 0, err
	}

	s.log.Info("schedule imported", "rows", len(entries))
	if s.notifier != nil {
		if err := s.notifier.ScheduleReplaced(ctx, "import"); err != nil {
			s.log.Warn("schedule replacement not published", "err", err)
		}
	}
	return len(entries), nil
}

// Backup uploads the current schedule and returns a presigned download link.
func (s *transferService) Backup(ctx context.Context) (*Backup, error) {
	if s.objects == nil {
		return nil, ErrBackupDisabled
	}

	var buf bytes.Buffer
	n, err := s.Export(ctx, &buf)
	if err != nil {
		return nil, err
	}

	created := s.now().UTC()
	key := backupPrefix + created.Format("2006/01/termine-20060102T150405Z") + ".csv"
	if err := s.objects.Upload(ctx, key, csvContentType, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		s.log.Error("backup upload failed", "key", key, "err", err)
		return nil, err
	}
	url, err := s.objects.PresignDownload(ctx, key)
	if err != nil {
		return nil, err
	}

	s.log.Info("schedule backed up", "key", key, "rows", n)
	return &Backup{Key: key, URL: url, Entries: n, CreatedAt: created}, nil
}
