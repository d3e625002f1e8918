package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recordingConn) Publish(subj string, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.subjects = append(r.subjects, subj)
	r.payloads = append(r.payloads, data)
	return nil
}

func TestChainChangedSubject(t *testing.T) {
	tests := []struct {
		client string
		want   string
	}{
		{"AB", "ambulanz.chain.changed.AB"},
		{"A.B", "ambulanz.chain.changed.A_B"},
		{"Frau M", "ambulanz.chain.changed.Frau_M"},
	}
	for _, tt := range tests {
		if got := ChainChangedSubject(tt.client); got != tt.want {
			t.Errorf("ChainChangedSubject(%q) = %q, want %q", tt.client, got, tt.want)
		}
	}
}

func TestPublisherChainChanged(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn)
	p.now = func() time.Time { return time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC) }

	if err := p.ChainChanged(context.Background(), "AB", "cancel"); err != nil {
		t.Fatalf("ChainChanged() error = %v", err)
	}
	if len(conn.subjects) != 1 || conn.subjects[0] != "ambulanz.chain.changed.AB" {
		t.Fatalf("published to %v", conn.subjects)
	}

	ev, err := Decode(conn.payloads[0])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.ClientID != "AB" || ev.Action != "cancel" || ev.ID == "" {
		t.Errorf("event = %+v", ev)
	}
	if !ev.At.Equal(p.now()) {
		t.Errorf("event time = %v, want %v", ev.At, p.now())
	}
}

func TestPublisherWrapsConnError(t *testing.T) {
	boom := errors.New("nats: connection closed")
	p := NewPublisher(&recordingConn{err: boom})
	if err := p.SupervisionChanged(context.Background(), "add"); !errors.Is(err, boom) {
		t.Errorf("SupervisionChanged() error = %v, want wrapping %v", err, boom)
	}
}
