package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory ConversionStore.
type memStore struct {
	mu   sync.Mutex
	rows []ConversionRecord
	now  func() time.Time
	err  error
}

func newMemStore() *memStore {
	return &memStore{now: time.Now}
}

func (m *memStore) InsertConversion(_ context.Context, rec *ConversionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.rows = append(m.rows, *rec)
	return nil
}

func (m *memStore) GetConversion(_ context.Context, id uuid.UUID) (*ConversionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, ErrConversionNotFound
}

func (m *memStore) newestFirst() []ConversionRecord {
	out := append([]ConversionRecord(nil), m.rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListConversions(_ context.Context, limit, offset int) ([]ConversionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.newestFirst()
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	return rows[:min(limit, len(rows))], nil
}

func (m *memStore) ListByFingerprint(_ context.Context, fp string, limit int) ([]ConversionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ConversionRecord
	for _, r := range m.newestFirst() {
		if r.SourceFingerprint == fp && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) CountByStatus(context.Context) (map[ConversionStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[ConversionStatus]int64)
	for _, r := range m.rows {
		counts[r.Status]++
	}
	return counts, nil
}

func (m *memStore) DeleteConversionsBefore(_ context.Context, before time.Time, limit int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		kept    []ConversionRecord
		deleted int64
	)
	for _, r := range m.rows {
		if r.CreatedAt.Before(before) && deleted < int64(limit) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return deleted, nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
