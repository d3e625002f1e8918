// Package appointment defines the appointment model: therapy sessions that
// belong to a client chain and supervision entries that belong to nobody,
// plus the flat record shape both are persisted as.
package appointment

import (
	"fmt"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

// SupervisionKind distinguishes individual from group supervision.
type SupervisionKind string

const (
	SupervisionIndividual SupervisionKind = "E-SV"
	SupervisionGroup      SupervisionKind = "G-SV"
)

// ParseSupervisionKind accepts the short codes and the long names.
func ParseSupervisionKind(s string) (SupervisionKind, error) {
	switch s {
	case "E-SV", "individual", "Individual":
		return SupervisionIndividual, nil
	case "G-SV", "group", "Group":
		return SupervisionGroup, nil
	}
	return "", fmt.Errorf("unknown supervision kind %q", s)
}

// Entry is one row of the schedule: either a Session or a SupervisionEntry.
type Entry interface {
	When() time.Time
	isEntry()
}

// Session is a therapy appointment of one client.
type Session struct {
	Date     time.Time
	ClientID string
	Type     catalog.SessionType
	Number   int
}

func (s Session) When() time.Time { return s.Date }
func (Session) isEntry()          {}

// SupervisionEntry is a supervision appointment of the therapist.
type SupervisionEntry struct {
	Date  time.Time
	Kind  SupervisionKind
	Hours int
}

func (s SupervisionEntry) When() time.Time { return s.Date }
func (SupervisionEntry) isEntry()          {}

// Record is the persisted shape of an entry. Nullable columns are pointers.
type Record struct {
	Date             time.Time
	ClientID         *string
	SessionType      string
	SequenceNumber   *int
	SupervisionKind  *string
	SupervisionHours *int
}

// ToRecord flattens an entry.
func ToRecord(e Entry) Record {
	switch v := e.(type) {
	case Session:
		client, n := v.ClientID, v.Number
		return Record{
			Date:           Day(v.Date),
			ClientID:       &client,
			SessionType:    string(v.Type),
			SequenceNumber: &n,
		}
	case SupervisionEntry:
		kind, hours := string(v.Kind), v.Hours
		return Record{
			Date:             Day(v.Date),
			SessionType:      string(catalog.Supervision),
			SupervisionKind:  &kind,
			SupervisionHours: &hours,
		}
	}
	panic(fmt.Sprintf("appointment: unknown entry type %T", e))
}

// FromRecord rebuilds the entry a record describes, rejecting records that
// mix therapy and supervision columns.
func FromRecord(r Record) (Entry, error) {
	typ, err := catalog.ParseSessionType(r.SessionType)
	if err != nil {
		return nil, err
	}
	date := Day(r.Date)

	if typ == catalog.Supervision {
		if r.ClientID != nil && *r.ClientID != "" {
			return nil, fmt.Errorf("supervision on %s carries client %q", date.Format(DateLayout), *r.ClientID)
		}
		if r.SupervisionKind == nil || r.SupervisionHours == nil {
			return nil, fmt.Errorf("supervision on %s lacks kind or hours", date.Format(DateLayout))
		}
		kind, err := ParseSupervisionKind(*r.SupervisionKind)
		if err != nil {
			return nil, err
		}
		if *r.SupervisionHours <= 0 {
			return nil, fmt.Errorf("supervision on %s has non-positive hours", date.Format(DateLayout))
		}
		return SupervisionEntry{Date: date, Kind: kind, Hours: *r.SupervisionHours}, nil
	}

	if r.ClientID == nil || *r.ClientID == "" {
		return nil, fmt.Errorf("%s session on %s has no client", typ, date.Format(DateLayout))
	}
	if r.SupervisionKind != nil || r.SupervisionHours != nil {
		return nil, fmt.Errorf("%s session on %s carries supervision fields", typ, date.Format(DateLayout))
	}
	if r.SequenceNumber == nil || *r.SequenceNumber < 1 {
		return nil, fmt.Errorf("%s session on %s has no sequence number", typ, date.Format(DateLayout))
	}
	return Session{Date: date, ClientID: *r.ClientID, Type: typ, Number: *r.SequenceNumber}, nil
}

// ToRecords flattens entries preserving order.
func ToRecords(entries []Entry) []Record {
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToRecord(e))
	}
	return out
}

// FromRecords converts records, failing on the first invalid one.
func FromRecords(records []Record) ([]Entry, error) {
	out := make([]Entry, 0, len(records))
	for i, r := range records {
		e, err := FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}
