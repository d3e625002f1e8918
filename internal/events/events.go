// Package events publishes schedule changes on NATS so caches and other
// consumers can react without polling the store.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// SubjectChainChanged is followed by the client ID.
	SubjectChainChanged = "ambulanz.chain.changed"
	// SubjectSupervisionChanged carries no suffix; supervision belongs to nobody.
	SubjectSupervisionChanged = "ambulanz.supervision.changed"
	// SubjectScheduleReplaced announces a full import.
	SubjectScheduleReplaced = "ambulanz.schedule.replaced"

	// WildcardAll matches every subject above.
	WildcardAll = "ambulanz.>"
)

// ChainChangedSubject returns the subject for one client's chain.
func ChainChangedSubject(clientID string) string {
	return SubjectChainChanged + "." + subjectToken(clientID)
}

// subjectToken keeps client IDs from introducing extra subject levels.
func subjectToken(s string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}

// Event is the JSON payload of every message.
type Event struct {
	ID       string    `json:"id"`
	Action   string    `json:"action"`
	ClientID string    `json:"client_id,omitempty"`
	At       time.Time `json:"at"`
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

var _ Conn = (*nats.Conn)(nil)

type Publisher struct {
	conn Conn
	now  func() time.Time
}

func NewPublisher(conn Conn) *Publisher {
	return &Publisher{conn: conn, now: time.Now}
}

// ChainChanged announces that a client's chain was replaced by action.
func (p *Publisher) ChainChanged(_ context.Context, clientID, action string) error {
	return p.publish(ChainChangedSubject(clientID), Event{Action: action, ClientID: clientID})
}

// SupervisionChanged announces an added or removed supervision entry.
func (p *Publisher) SupervisionChanged(_ context.Context, action string) error {
	return p.publish(SubjectSupervisionChanged, Event{Action: action})
}

// ScheduleReplaced announces that the whole collection was replaced.
func (p *Publisher) ScheduleReplaced(_ context.Context, action string) error {
	return p.publish(SubjectScheduleReplaced, Event{Action: action})
}

func (p *Publisher) publish(subject string, ev Event) error {
	ev.ID = uuid.NewString()
	ev.At = p.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Decode parses a message payload.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
