package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
)

// In-memory implementations of the storage contracts.
// Useful for testing and development. Each store counts query executions so
// tests can assert the one-fetch-per-window resource bound.

// MeasurementStore is an in-memory storage.MeasurementStore.
type MeasurementStore struct {
	mu      sync.RWMutex
	records map[int64]*record.Measurement
	nextID  int64
	calls   map[string]int

	// NowFn supplies CreatedAt for appended records; tests override it.
	NowFn func() time.Time
}

// NewMeasurementStore creates an empty in-memory measurement store.
func NewMeasurementStore() *MeasurementStore {
	return &MeasurementStore{
		records: make(map[int64]*record.Measurement),
		calls:   make(map[string]int),
		NowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// CallCount returns how many times the named query ran.
func (s *MeasurementStore) CallCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[name]
}

func (s *MeasurementStore) Append(_ context.Context, m *record.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.NowFn()
	}
	m.Active = true
	m.MeasurementDate = calendar.Day(m.MeasurementDate)
	cp := *m
	s.records[m.ID] = &cp
	return nil
}

func (s *MeasurementStore) Get(_ context.Context, userID, id int64) (*record.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.records[id]
	if !ok || m.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MeasurementStore) Tombstone(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.records[id]
	if !ok || m.UserID != userID {
		return storage.ErrNotFound
	}
	if !m.Active {
		return storage.ErrTombstoned
	}
	now := s.NowFn()
	m.Active = false
	m.DeletedAt = &now
	return nil
}

func (s *MeasurementStore) RangeQuery(_ context.Context, userID int64, from, to time.Time) ([]record.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["range"]++
	return s.selectRange(userID, calendar.Day(from), calendar.Day(to)), nil
}

func (s *MeasurementStore) PointLookup(_ context.Context, userID int64, date time.Time) ([]record.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["point"]++
	day := calendar.Day(date)
	return s.selectRange(userID, day, day), nil
}

func (s *MeasurementStore) PriorLookup(_ context.Context, userID int64, date time.Time) ([]record.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["prior"]++
	day := calendar.Day(date)
	var out []record.Measurement
	for _, m := range s.records {
		if !m.Active || m.UserID != userID || m.MeasurementDate.After(day) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MeasurementDate.Equal(out[j].MeasurementDate) {
			return out[i].MeasurementDate.After(out[j].MeasurementDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MeasurementStore) selectRange(userID int64, from, to time.Time) []record.Measurement {
	var out []record.Measurement
	for _, m := range s.records {
		if !m.Active || m.UserID != userID {
			continue
		}
		if m.MeasurementDate.Before(from) || m.MeasurementDate.After(to) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MeasurementDate.Equal(out[j].MeasurementDate) {
			return out[i].MeasurementDate.Before(out[j].MeasurementDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExerciseStore is an in-memory storage.ExerciseStore.
type ExerciseStore struct {
	mu      sync.RWMutex
	records map[int64]*record.Exercise
	nextID  int64
	calls   map[string]int

	NowFn func() time.Time
}

// NewExerciseStore creates an empty in-memory exercise store.
func NewExerciseStore() *ExerciseStore {
	return &ExerciseStore{
		records: make(map[int64]*record.Exercise),
		calls:   make(map[string]int),
		NowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// CallCount returns how many times the named query ran.
func (s *ExerciseStore) CallCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[name]
}

func (s *ExerciseStore) Insert(_ context.Context, e *record.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.NowFn()
	}
	e.UpdatedAt = e.CreatedAt
	e.Active = true
	cp := *e
	s.records[e.ID] = &cp
	return nil
}

func (s *ExerciseStore) Get(_ context.Context, userID, id int64) (*record.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[id]
	if !ok || e.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *ExerciseStore) Update(_ context.Context, e *record.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[e.ID]
	if !ok || cur.UserID != e.UserID {
		return storage.ErrNotFound
	}
	if !cur.Active {
		return storage.ErrTombstoned
	}
	e.UpdatedAt = s.NowFn()
	cp := *e
	s.records[e.ID] = &cp
	return nil
}

func (s *ExerciseStore) Tombstone(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[id]
	if !ok || e.UserID != userID {
		return storage.ErrNotFound
	}
	if !e.Active {
		return storage.ErrTombstoned
	}
	now := s.NowFn()
	e.Active = false
	e.DeletedAt = &now
	e.UpdatedAt = now
	return nil
}

func (s *ExerciseStore) RangeQuery(_ context.Context, userID int64, from, until time.Time) ([]record.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["range"]++
	var out []record.Exercise
	for _, e := range s.records {
		if !e.Active || e.UserID != userID {
			continue
		}
		if e.OccurredAt.Before(from) || !e.OccurredAt.Before(until) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (s *ExerciseStore) ListByUser(_ context.Context, userID int64) ([]record.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []record.Exercise
	for _, e := range s.records {
		if e.Active && e.UserID == userID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

func (s *ExerciseStore) ExistingExternalRefs(_ context.Context, userID int64, refs []string, since time.Time) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		want[r] = struct{}{}
	}
	found := make(map[string]struct{})
	for _, e := range s.records {
		if !e.Active || e.UserID != userID || e.ExternalRef == "" {
			continue
		}
		if e.CreatedAt.Before(since) {
			continue
		}
		if _, ok := want[e.ExternalRef]; ok {
			found[e.ExternalRef] = struct{}{}
		}
	}
	return found, nil
}

// ReferenceStore is an in-memory storage.ReferenceStore seeded at creation.
type ReferenceStore struct {
	mu         sync.RWMutex
	types      []record.ExerciseType
	categories []record.ExerciseCategory
	calls      map[string]int
}

// NewReferenceStore creates a reference store with the given catalog.
func NewReferenceStore(types []record.ExerciseType, categories []record.ExerciseCategory) *ReferenceStore {
	return &ReferenceStore{
		types:      append([]record.ExerciseType(nil), types...),
		categories: append([]record.ExerciseCategory(nil), categories...),
		calls:      make(map[string]int),
	}
}

// CallCount returns how many times the named query ran.
func (s *ReferenceStore) CallCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[name]
}

func (s *ReferenceStore) ListTypes(_ context.Context) ([]record.ExerciseType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["types"]++
	return append([]record.ExerciseType(nil), s.types...), nil
}

func (s *ReferenceStore) ListCategories(_ context.Context) ([]record.ExerciseCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["categories"]++
	return append([]record.ExerciseCategory(nil), s.categories...), nil
}

// FavoriteStore is an in-memory storage.FavoriteStore.
type FavoriteStore struct {
	mu        sync.RWMutex
	favorites map[int64]map[int64]struct{}
}

// NewFavoriteStore creates an empty favorite store.
func NewFavoriteStore() *FavoriteStore {
	return &FavoriteStore{favorites: make(map[int64]map[int64]struct{})}
}

func (s *FavoriteStore) ListTypeIDs(_ context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.favorites[userID]))
	for id := range s.favorites[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *FavoriteStore) Add(_ context.Context, userID, typeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.favorites[userID] == nil {
		s.favorites[userID] = make(map[int64]struct{})
	}
	s.favorites[userID][typeID] = struct{}{}
	return nil
}

func (s *FavoriteStore) Remove(_ context.Context, userID, typeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.favorites[userID][typeID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.favorites[userID], typeID)
	return nil
}
