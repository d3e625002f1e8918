// Package store keeps the appointment collection of all clients in memory and
// writes every change through to a Persister before it becomes visible.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
)

// ErrPersistence wraps every failure of the underlying medium.
var ErrPersistence = errors.New("appointment store unavailable")

// Persister is the medium the store loads from and saves to.
type Persister interface {
	Load(ctx context.Context) ([]appointment.Record, error)
	Save(ctx context.Context, records []appointment.Record) error
}

// ClientSaver is implemented by persisters that can rewrite the rows of a few
// clients without touching the rest. records holds the complete new rows of
// exactly those clients.
type ClientSaver interface {
	SaveClients(ctx context.Context, clientIDs []string, records []appointment.Record) error
}

// Store is the ordered appointment collection. Reads are served from memory;
// writes are persisted first and only then swapped in, so a failed write
// leaves the previous state in place.
type Store struct {
	mu        sync.RWMutex
	entries   []appointment.Entry
	persister Persister
	log       *slog.Logger
}

// New returns an empty store backed by p. A nil p keeps data in memory only.
func New(p Persister, log *slog.Logger) *Store {
	if p == nil {
		p = NewMemory()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{persister: p, log: log}
}

// Open creates a store and loads the persisted collection.
func Open(ctx context.Context, p Persister, log *slog.Logger) (*Store, error) {
	s := New(p, log)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory state with the persisted collection.
func (s *Store) Load(ctx context.Context) error {
	records, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}
	entries, err := appointment.FromRecords(records)
	if err != nil {
		return fmt.Errorf("%w: decode: %w", ErrPersistence, err)
	}
	sortEntries(entries)

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.log.Info("appointment store loaded", "entries", len(entries))
	return nil
}

// All returns the whole collection in date order.
func (s *Store) All() []appointment.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Records returns the whole collection in its persisted shape.
func (s *Store) Records() []appointment.Record {
	return appointment.ToRecords(s.All())
}

// ReplaceAll discards everything and persists entries.
func (s *Store) ReplaceAll(ctx context.Context, entries []appointment.Entry) error {
	next := slices.Clone(entries)
	sortEntries(next)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.Save(ctx, appointment.ToRecords(next)); err != nil {
		return fmt.Errorf("%w: save: %w", ErrPersistence, err)
	}
	s.entries = next
	return nil
}

// ForClient returns the client's chain in date order. Unknown clients yield
// an empty chain.
func (s *Store) ForClient(clientID string) appointment.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out appointment.Chain
	for _, e := range s.entries {
		if sess, ok := e.(appointment.Session); ok && sess.ClientID == clientID {
			out = append(out, sess)
		}
	}
	return out
}

// ForQuarter returns every therapy session dated in q.
func (s *Store) ForQuarter(q appointment.Quarter) []appointment.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []appointment.Session
	for _, e := range s.entries {
		if sess, ok := e.(appointment.Session); ok && q.Contains(sess.Date) {
			out = append(out, sess)
		}
	}
	return out
}

// ForRange returns every entry dated within [from, to].
func (s *Store) ForRange(from, to time.Time) []appointment.Entry {
	from, to = appointment.Day(from), appointment.Day(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []appointment.Entry
	for _, e := range s.entries {
		d := e.When()
		if !d.Before(from) && !d.After(to) {
			out = append(out, e)
		}
	}
	return out
}

// Sessions returns every therapy session of every client in date order.
func (s *Store) Sessions() []appointment.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []appointment.Session
	for _, e := range s.entries {
		if sess, ok := e.(appointment.Session); ok {
			out = append(out, sess)
		}
	}
	return out
}

// Supervisions returns every supervision entry in date order.
func (s *Store) Supervisions() []appointment.SupervisionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []appointment.SupervisionEntry
	for _, e := range s.entries {
		if sv, ok := e.(appointment.SupervisionEntry); ok {
			out = append(out, sv)
		}
	}
	return out
}

// Clients returns the sorted distinct client IDs.
func (s *Store) Clients() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, e := range s.entries {
		sess, ok := e.(appointment.Session)
		if !ok {
			continue
		}
		if _, dup := seen[sess.ClientID]; !dup {
			seen[sess.ClientID] = struct{}{}
			out = append(out, sess.ClientID)
		}
	}
	slices.Sort(out)
	return out
}

// ReplaceClientSlice swaps the client's whole chain for chain in one step.
func (s *Store) ReplaceClientSlice(ctx context.Context, clientID string, chain appointment.Chain) error {
	return s.ReplaceClientSlices(ctx, map[string]appointment.Chain{clientID: chain})
}

// ReplaceClientSlices swaps the chains of several clients in one step: either
// all of them are persisted or none is.
func (s *Store) ReplaceClientSlices(ctx context.Context, chains map[string]appointment.Chain) error {
	if len(chains) == 0 {
		return nil
	}
	ids := make([]string, 0, len(chains))
	for id, chain := range chains {
		for _, sess := range chain {
			if sess.ClientID != id {
				return fmt.Errorf("chain of client %q contains a session of %q", id, sess.ClientID)
			}
			if !sess.Type.IsTherapy() {
				return fmt.Errorf("chain of client %q contains a %s entry", id, sess.Type)
			}
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]appointment.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if sess, ok := e.(appointment.Session); ok {
			if _, replaced := chains[sess.ClientID]; replaced {
				continue
			}
		}
		next = append(next, e)
	}
	var changed []appointment.Entry
	for _, id := range ids {
		for _, sess := range chains[id] {
			sess.Date = appointment.Day(sess.Date)
			changed = append(changed, sess)
		}
	}
	next = append(next, changed...)
	sortEntries(next)

	if err := s.persist(ctx, next, ids, changed); err != nil {
		return err
	}
	s.entries = next
	return nil
}

// ReplaceSupervisions swaps every supervision entry, leaving client chains untouched.
func (s *Store) ReplaceSupervisions(ctx context.Context, entries []appointment.SupervisionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]appointment.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if _, ok := e.(appointment.SupervisionEntry); !ok {
			next = append(next, e)
		}
	}
	for _, sv := range entries {
		sv.Date = appointment.Day(sv.Date)
		next = append(next, sv)
	}
	sortEntries(next)

	if err := s.persister.Save(ctx, appointment.ToRecords(next)); err != nil {
		return fmt.Errorf("%w: save: %w", ErrPersistence, err)
	}
	s.entries = next
	return nil
}

func (s *Store) persist(ctx context.Context, all []appointment.Entry, ids []string, changed []appointment.Entry) error {
	var err error
	if cs, ok := s.persister.(ClientSaver); ok {
		err = cs.SaveClients(ctx, ids, appointment.ToRecords(changed))
	} else {
		err = s.persister.Save(ctx, appointment.ToRecords(all))
	}
	if err != nil {
		s.log.Error("persisting client chains failed", "clients", ids, "error", err)
		return fmt.Errorf("%w: save: %w", ErrPersistence, err)
	}
	return nil
}

// sortEntries orders by date; entries on the same date keep their order.
func sortEntries(entries []appointment.Entry) {
	slices.SortStableFunc(entries, func(a, b appointment.Entry) int {
		return a.When().Compare(b.When())
	})
}
