package reference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
)

// Catalog is an immutable indexed view of the exercise reference data.
// Build one per resolution call from the Provider; never mutate it.
type Catalog struct {
	Types      []record.ExerciseType
	Categories []record.ExerciseCategory

	typeByID     map[int64]record.ExerciseType
	categoryByID map[int64]record.ExerciseCategory
}

// NewCatalog indexes the given reference data.
func NewCatalog(types []record.ExerciseType, categories []record.ExerciseCategory) *Catalog {
	c := &Catalog{
		Types:        types,
		Categories:   categories,
		typeByID:     make(map[int64]record.ExerciseType, len(types)),
		categoryByID: make(map[int64]record.ExerciseCategory, len(categories)),
	}
	for _, t := range types {
		c.typeByID[t.ID] = t
	}
	for _, cat := range categories {
		c.categoryByID[cat.ID] = cat
	}
	return c
}

// TypeByID returns the exercise type with the given id.
func (c *Catalog) TypeByID(id int64) (record.ExerciseType, bool) {
	t, ok := c.typeByID[id]
	return t, ok
}

// CategoryByID returns the category with the given id.
func (c *Catalog) CategoryByID(id int64) (record.ExerciseCategory, bool) {
	cat, ok := c.categoryByID[id]
	return cat, ok
}

// CategoryByType maps every type id to its category id, for stats breakdowns.
func (c *Catalog) CategoryByType() map[int64]int64 {
	out := make(map[int64]int64, len(c.typeByID))
	for id, t := range c.typeByID {
		out[id] = t.CategoryID
	}
	return out
}

// Provider serves the catalog from a TTL cache backed by a ReferenceStore.
// Concurrent refreshes of an expired cache are collapsed into one store
// round-trip via singleflight.
type Provider struct {
	store storage.ReferenceStore
	ttl   time.Duration
	nowFn func() time.Time

	mu        sync.RWMutex
	cached    *Catalog
	expiresAt time.Time

	loadGroup singleflight.Group
}

// NewProvider creates a catalog provider. A non-positive ttl disables caching
// and every call hits the store.
func NewProvider(store storage.ReferenceStore, ttl time.Duration) *Provider {
	return &Provider{
		store: store,
		ttl:   ttl,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Catalog returns the current reference catalog, refreshing it when expired.
func (p *Provider) Catalog(ctx context.Context) (*Catalog, error) {
	now := p.nowFn()

	p.mu.RLock()
	if p.cached != nil && now.Before(p.expiresAt) {
		c := p.cached
		p.mu.RUnlock()
		return c, nil
	}
	p.mu.RUnlock()

	result, err, _ := p.loadGroup.Do("catalog", func() (interface{}, error) {
		// Double-check after winning the flight: a concurrent loader may
		// have refreshed the cache already.
		p.mu.RLock()
		if p.cached != nil && p.nowFn().Before(p.expiresAt) {
			c := p.cached
			p.mu.RUnlock()
			return c, nil
		}
		p.mu.RUnlock()

		types, err := p.store.ListTypes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load exercise types: %w", err)
		}
		categories, err := p.store.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load exercise categories: %w", err)
		}

		c := NewCatalog(types, categories)
		if p.ttl > 0 {
			p.mu.Lock()
			p.cached = c
			p.expiresAt = p.nowFn().Add(p.ttl)
			p.mu.Unlock()
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Catalog), nil
}

// Invalidate drops the cached catalog; the next call reloads from the store.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}
