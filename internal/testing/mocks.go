package testing

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/sentinel-income/internal/modules/projection"
)

// MockRunStore is an in-memory projection.RunStore for testing
type MockRunStore struct {
	mu      sync.RWMutex
	runs    map[string]projection.Run
	records map[string][]projection.YearlyRecord
	nextID  int
	err     error
}

// NewMockRunStore creates a new mock run store
func NewMockRunStore() *MockRunStore {
	return &MockRunStore{
		runs:    make(map[string]projection.Run),
		records: make(map[string][]projection.YearlyRecord),
	}
}

// SetError makes every following call fail with err
func (m *MockRunStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Create stores a copy of the run, assigning sequential IDs when missing
func (m *MockRunStore) Create(run *projection.Run, records []projection.YearlyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if run.ID == "" {
		m.nextID++
		run.ID = fmt.Sprintf("run-%d", m.nextID)
	}
	if _, exists := m.runs[run.ID]; exists {
		return errors.New("duplicate run id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.runs[run.ID] = *run
	m.records[run.ID] = append([]projection.YearlyRecord(nil), records...)
	return nil
}

// GetByID returns the run or nil
func (m *MockRunStore) GetByID(id string) (*projection.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

// List returns runs, most recent first
func (m *MockRunStore) List(limit int) ([]projection.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	runs := make([]projection.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRecords returns the stored records of a run
func (m *MockRunStore) GetRecords(id string) ([]projection.YearlyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.records[id], nil
}

// Delete removes a run
func (m *MockRunStore) Delete(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.runs[id]
	delete(m.runs, id)
	delete(m.records, id)
	return ok, nil
}

// DeleteOlderThan removes runs created before cutoff
func (m *MockRunStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var deleted int64
	for id, run := range m.runs {
		if run.CreatedAt.Before(cutoff) {
			delete(m.runs, id)
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}
