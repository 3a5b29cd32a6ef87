package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/google/uuid"
)

// Memory is a Store for development and tests.
type Memory struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]User
	records map[rpc.Resource]map[uuid.UUID]Record
	seq     int64
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[uuid.UUID]User),
		records: make(map[rpc.Resource]map[uuid.UUID]Record),
	}
}

func cloneUser(u User) User {
	u.FacilityIDs = slices.Clone(u.FacilityIDs)
	return u
}

func (m *Memory) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, ErrConflict)
	}
	for _, existing := range m.users {
		if existing.PhoneNumber == u.PhoneNumber {
			return fmt.Errorf("phone number: %w", ErrConflict)
		}
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *Memory) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	u = cloneUser(u)
	return &u, nil
}

func (m *Memory) UserByPhone(ctx context.Context, phone string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.PhoneNumber == phone {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with phone number: %w", common.ErrNotFound)
}

func (m *Memory) UpdateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return fmt.Errorf("user %s: %w", u.ID, common.ErrNotFound)
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *Memory) Upsert(ctx context.Context, resource rpc.Resource, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.records[resource]
	if !ok {
		table = make(map[uuid.UUID]Record)
		m.records[resource] = table
	}
	for _, r := range records {
		if existing, ok := table[r.ID]; ok && existing.UpdatedAt.After(r.UpdatedAt) {
			continue
		}
		m.seq++
		r.Seq = m.seq
		r.Data = slices.Clone(r.Data)
		table[r.ID] = r
	}
	return nil
}

func (m *Memory) ChangesSince(ctx context.Context, resource rpc.Resource, after int64, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, r := range m.records[resource] {
		if r.Seq > after {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Record) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
