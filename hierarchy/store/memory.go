// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/sku-allocator/hierarchy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	sessions    map[string]hierarchy.Session
	order       []string
	columns     map[string][]hierarchy.Column
	skus        map[string][]hierarchy.Sku
	allocations map[key][]hierarchy.Allocation
}

type key struct {
	SessionID string
	Period    string
}

func NewMemory() *Memory {
	return &Memory{
		sessions:    make(map[string]hierarchy.Session),
		columns:     make(map[string][]hierarchy.Column),
		skus:        make(map[string][]hierarchy.Sku),
		allocations: make(map[key][]hierarchy.Allocation),
	}
}

func (m *Memory) CreateSession(_ context.Context, s hierarchy.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if _, exists := m.sessions[s.ID]; !exists {
		m.order = append(m.order, s.ID)
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (hierarchy.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return hierarchy.Session{}, hierarchy.ErrSessionNotFound
	}
	return s, nil
}

func (m *Memory) ListSessions(_ context.Context) ([]hierarchy.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]hierarchy.Session, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.sessions[id])
	}
	return result, nil
}

func (m *Memory) UpdateBudget(_ context.Context, id string, totalBudget int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return hierarchy.ErrSessionNotFound
	}
	s.TotalBudget = totalBudget
	s.UpdatedAt = time.Now().UTC()
	m.sessions[id] = s
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return hierarchy.ErrSessionNotFound
	}
	delete(m.sessions, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.dropCatalogLocked(id)
	return nil
}

// ReplaceCatalog swaps columns and SKUs and drops all allocations atomically.
func (m *Memory) ReplaceCatalog(_ context.Context, sessionID string, columns []hierarchy.Column, skus []hierarchy.Sku) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return hierarchy.ErrSessionNotFound
	}
	m.dropCatalogLocked(sessionID)

	cols := append([]hierarchy.Column(nil), columns...)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Level < cols[j].Level })
	m.columns[sessionID] = cols

	copied := make([]hierarchy.Sku, len(skus))
	for i, s := range skus {
		copied[i] = copySku(s)
	}
	m.skus[sessionID] = copied
	return nil
}

func (m *Memory) dropCatalogLocked(sessionID string) {
	delete(m.columns, sessionID)
	delete(m.skus, sessionID)
	for k := range m.allocations {
		if k.SessionID == sessionID {
			delete(m.allocations, k)
		}
	}
}

func (m *Memory) LoadColumns(_ context.Context, sessionID string) ([]hierarchy.Column, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]hierarchy.Column(nil), m.columns[sessionID]...), nil
}

func (m *Memory) LoadSkus(_ context.Context, sessionID string) ([]hierarchy.Sku, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]hierarchy.Sku, len(m.skus[sessionID]))
	for i, s := range m.skus[sessionID] {
		result[i] = copySku(s)
	}
	return result, nil
}

func (m *Memory) LoadAllocations(_ context.Context, sessionID, period string) ([]hierarchy.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := key{SessionID: sessionID, Period: period}
	result := make([]hierarchy.Allocation, len(m.allocations[k]))
	copy(result, m.allocations[k])
	return result, nil
}

// ReplaceAllocations swaps the whole set for one period. Duplicate paths in
// the input collapse to the last occurrence, keeping one record per path.
func (m *Memory) ReplaceAllocations(_ context.Context, sessionID, period string, allocations []hierarchy.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return hierarchy.ErrSessionNotFound
	}

	pos := make(map[string]int, len(allocations))
	set := make([]hierarchy.Allocation, 0, len(allocations))
	for _, a := range allocations {
		a.Period = period
		if i, dup := pos[a.Path]; dup {
			set[i] = a
			continue
		}
		pos[a.Path] = len(set)
		set = append(set, a)
	}

	k := key{SessionID: sessionID, Period: period}
	if len(set) == 0 {
		delete(m.allocations, k)
		return nil
	}
	m.allocations[k] = set
	return nil
}

func (m *Memory) ListPeriods(_ context.Context, sessionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var named []string
	for k := range m.allocations {
		if k.SessionID == sessionID && k.Period != "" {
			named = append(named, k.Period)
		}
	}
	sort.Strings(named)
	return append([]string{""}, named...), nil
}

func copySku(s hierarchy.Sku) hierarchy.Sku {
	values := make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		values[k] = v
	}
	s.Values = values
	return s
}
