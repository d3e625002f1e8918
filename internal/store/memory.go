package store

import (
	"context"
	"slices"
	"sync"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
)

// Memory is a Persister that keeps the last saved snapshot in process.
type Memory struct {
	mu      sync.Mutex
	records []appointment.Record
	saves   int
}

func NewMemory(records ...appointment.Record) *Memory {
	return &Memory{records: slices.Clone(records)}
}

func (m *Memory) Load(context.Context) ([]appointment.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records), nil
}

func (m *Memory) Save(_ context.Context, records []appointment.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = slices.Clone(records)
	m.saves++
	return nil
}

// Saves counts successful Save calls.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
