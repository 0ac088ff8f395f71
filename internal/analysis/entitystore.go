package analysis

import (
	"context"
	"fmt"
	"sort"

	"ramstk/pkg/domain"
)

// Gateway is the persistence collaborator consumed by entity stores.
// core.Service satisfies it.
type Gateway interface {
	SelectAll(ctx context.Context, level domain.Level, scope domain.Scope, parent domain.Key) ([]domain.Record, error)
	Insert(ctx context.Context, rec domain.Record) (domain.Record, domain.Result, error)
	Update(ctx context.Context, rec domain.Record) (domain.Record, domain.Result, error)
	Delete(ctx context.Context, level domain.Level, scope domain.Scope, key domain.Key) (domain.Result, error)
}

// EntityStore caches the records of one level for one scope. The cache is
// the working set: lookups and deletes consult it rather than persistence.
type EntityStore struct {
	level   domain.Level
	scope   domain.Scope
	gateway Gateway
	records map[string]domain.Record
	lastID  int
}

// NewEntityStore returns an empty store for level.
func NewEntityStore(level domain.Level, scope domain.Scope, gateway Gateway) *EntityStore {
	return &EntityStore{
		level:   level,
		scope:   scope,
		gateway: gateway,
		records: make(map[string]domain.Record),
	}
}

// Level returns the level whose records the store holds.
func (s *EntityStore) Level() domain.Level { return s.level }

// Len returns the number of cached records.
func (s *EntityStore) Len() int { return len(s.records) }

// LastID returns the last id assigned or loaded.
func (s *EntityStore) LastID() int { return s.lastID }

// SelectAll loads every record under parent from persistence, replacing the
// cached rows under parent. No rows is a valid, empty result.
func (s *EntityStore) SelectAll(ctx context.Context, parent domain.Key) ([]domain.Record, error) {
	rows, err := s.gateway.SelectAll(ctx, s.level, s.scope, parent)
	if err != nil {
		return nil, err
	}
	s.Evict(parent)
	for _, rec := range rows {
		if rec.Level() != s.level || rec.Scope() != s.scope {
			return nil, fmt.Errorf("select %s: unexpected %s row for scope %s", s.level.Table(), rec.Level(), rec.Scope())
		}
		s.records[rec.Key().String()] = rec
		if id := rec.Key().ID(); id > s.lastID {
			s.lastID = id
		}
	}
	return s.Children(parent), nil
}

// Select returns the cached record at key.
func (s *EntityStore) Select(key domain.Key) (domain.Record, error) {
	rec, ok := s.records[key.String()]
	if !ok {
		return nil, domain.NotFoundError{Entity: s.level.Table(), ID: key.String()}
	}
	return rec, nil
}

// Insert persists a new default record beneath parent with the next id. A
// rejected insert leaves the id counter unchanged.
func (s *EntityStore) Insert(ctx context.Context, parent domain.Key) (domain.Record, error) {
	if len(parent) != s.level.Depth()-1 {
		return nil, fmt.Errorf("insert %s: parent key %v must have %d ids", s.level, parent, s.level.Depth()-1)
	}
	next := s.lastID + 1
	rec, err := domain.NewRecord(s.level, s.scope, parent.Child(next))
	if err != nil {
		return nil, err
	}
	stored, _, err := s.gateway.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.lastID = next
	s.records[stored.Key().String()] = stored
	return stored, nil
}

// Update writes attrs onto the cached record at key. Persistence happens on
// Save.
func (s *EntityStore) Update(key domain.Key, attrs map[string]any) (domain.Record, error) {
	current, err := s.Select(key)
	if err != nil {
		return nil, err
	}
	updated, err := domain.ApplyAttributes(current, attrs)
	if err != nil {
		return nil, err
	}
	s.records[key.String()] = updated
	return updated, nil
}

// Save persists the cached record at key.
func (s *EntityStore) Save(ctx context.Context, key domain.Key) error {
	rec, err := s.Select(key)
	if err != nil {
		return err
	}
	_, _, err = s.gateway.Update(ctx, rec)
	return err
}

// Delete removes the record at key from persistence and then from the
// cache. Descendant rows cascade in persistence; cached descendants in other
// stores are dropped with Evict.
func (s *EntityStore) Delete(ctx context.Context, key domain.Key) error {
	if _, err := s.Select(key); err != nil {
		return err
	}
	if _, err := s.gateway.Delete(ctx, s.level, s.scope, key); err != nil {
		return err
	}
	delete(s.records, key.String())
	return nil
}

// Evict drops every cached record whose key starts with prefix and returns
// how many were dropped. The id counter is kept.
func (s *EntityStore) Evict(prefix domain.Key) int {
	n := 0
	for k, rec := range s.records {
		if rec.Key().HasPrefix(prefix) {
			delete(s.records, k)
			n++
		}
	}
	return n
}

// Records returns every cached record ordered by key.
func (s *EntityStore) Records() []domain.Record {
	return s.Children(nil)
}

// Children returns the cached records whose key starts with parent, ordered
// by key.
func (s *EntityStore) Children(parent domain.Key) []domain.Record {
	out := make([]domain.Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Key().HasPrefix(parent) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out
}

// Stores groups the entity stores a tree is built from.
type Stores map[domain.Level]*EntityStore

// NewStores creates one store per level of h.
func NewStores(h domain.Hierarchy, scope domain.Scope, gateway Gateway) Stores {
	out := make(Stores, len(h.Levels()))
	for _, l := range h.Levels() {
		out[l] = NewEntityStore(l, scope, gateway)
	}
	return out
}
