// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/geoface/internal/database"
)

// MockAttendanceRepository is an in-memory database.AttendanceRepository
type MockAttendanceRepository struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord
	nextID  int64
	closed  bool

	// Now supplies default timestamps; time.Now when nil
	Now func() time.Time

	// Error injection
	RecordError error
	ListError   error
	CountError  error
}

// NewMockAttendanceRepository creates a new mock attendance repository
func NewMockAttendanceRepository() *MockAttendanceRepository {
	return &MockAttendanceRepository{nextID: 1}
}

// Record stores a copy of rec with an assigned id and timestamp
func (m *MockAttendanceRepository) Record(ctx context.Context, rec *database.AttendanceRecord) (*database.AttendanceRecord, error) {
	if m.RecordError != nil {
		return nil, m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	row := *rec
	row.ID = m.nextID
	m.nextID++
	if row.Timestamp.IsZero() {
		now := time.Now
		if m.Now != nil {
			now = m.Now
		}
		row.Timestamp = now().UTC()
	}
	m.records = append(m.records, row)
	return &row, nil
}

func (m *MockAttendanceRepository) matching(f database.AttendanceFilter) []database.AttendanceRecord {
	var out []database.AttendanceRecord
	for _, r := range m.records {
		if f.Name != "" && r.EmployeeName != f.Name {
			continue
		}
		if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// List returns matching records, newest first
func (m *MockAttendanceRepository) List(ctx context.Context, f database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.matching(f)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Count returns the number of matching records
func (m *MockAttendanceRepository) Count(ctx context.Context, f database.AttendanceFilter) (int64, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matching(f))), nil
}

// Close marks the repository closed
func (m *MockAttendanceRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockAttendanceRepository) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Records returns a copy of all stored records in insertion order
func (m *MockAttendanceRepository) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceRecord, len(m.records))
	copy(out, m.records)
	return out
}

var _ database.AttendanceRepository = (*MockAttendanceRepository)(nil)
