// Package memory provides an in-memory implementation of the record
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ramstk/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Record aliases domain.Record stored per level.
	Record = domain.Record
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// rowKey identifies a record across scopes, e.g. "1/2/6.3.3".
func rowKey(scope domain.Scope, key domain.Key) string {
	return scope.String() + "/" + key.String()
}

type memoryState struct {
	records map[domain.Level]map[string]Record
}

func newMemoryState() memoryState {
	s := memoryState{records: make(map[domain.Level]map[string]Record, len(domain.AllLevels()))}
	for _, l := range domain.AllLevels() {
		s.records[l] = make(map[string]Record)
	}
	return s
}

func (s memoryState) clone() memoryState {
	out := memoryState{records: make(map[domain.Level]map[string]Record, len(s.records))}
	for level, rows := range s.records {
		cp := make(map[string]Record, len(rows))
		for k, v := range rows {
			cp[k] = v.Clone()
		}
		out.records[level] = cp
	}
	return out
}

func (s memoryState) find(level domain.Level, scope domain.Scope, key domain.Key) (Record, bool) {
	rec, ok := s.records[level][rowKey(scope, key)]
	return rec, ok
}

// Store provides an in-memory transactional store for FMEA and PoF records.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// List returns the records of level in scope under parent, ordered by key.
func (v transactionView) List(level domain.Level, scope domain.Scope, parent domain.Key) []Record {
	rows := v.state.records[level]
	out := make([]Record, 0, len(rows))
	for _, rec := range rows {
		if rec.Scope() != scope || !rec.Key().HasPrefix(parent) {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out
}

// Find returns a copy of a single record.
func (v transactionView) Find(level domain.Level, scope domain.Scope, key domain.Key) (Record, bool) {
	rec, ok := v.state.find(level, scope, key)
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Scopes lists every revision/hardware pair holding at least one record.
func (v transactionView) Scopes() []domain.Scope {
	seen := make(map[domain.Scope]struct{})
	for _, rows := range v.state.records {
		for _, rec := range rows {
			seen[rec.Scope()] = struct{}{}
		}
	}
	out := make([]domain.Scope, 0, len(seen))
	for sc := range seen {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RevisionID != out[j].RevisionID {
			return out[i].RevisionID < out[j].RevisionID
		}
		return out[i].HardwareID < out[j].HardwareID
	})
	return out
}

type transaction struct {
	state   memoryState
	changes []Change
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// Find exposes record lookup within the transaction scope.
func (tx *transaction) Find(level domain.Level, scope domain.Scope, key domain.Key) (Record, bool) {
	return newTransactionView(&tx.state).Find(level, scope, key)
}

// Insert stores a new record, enforcing parent existence and key uniqueness.
func (tx *transaction) Insert(rec Record) (Record, error) {
	level, scope, key := rec.Level(), rec.Scope(), rec.Key()
	if !level.Valid() || len(key) != level.Depth() {
		return nil, fmt.Errorf("insert: malformed %s key %v", level, key)
	}
	for _, id := range key {
		if id <= 0 {
			return nil, domain.ConstraintError{Entity: level.Table(), ID: key.String(), Reason: "ids must be positive"}
		}
	}
	if parent := level.Parent(); parent != 0 {
		if _, ok := tx.state.find(parent, scope, key.Parent()); !ok {
			return nil, domain.ConstraintError{
				Entity: level.Table(),
				ID:     key.String(),
				Reason: fmt.Sprintf("violates foreign key constraint: %s %s does not exist", parent.Table(), key.Parent()),
			}
		}
	}
	if _, exists := tx.state.find(level, scope, key); exists {
		return nil, domain.ConstraintError{Entity: level.Table(), ID: key.String(), Reason: "duplicate key value violates unique constraint"}
	}
	stored := rec.Clone()
	tx.state.records[level][rowKey(scope, key)] = stored
	tx.recordChange(Change{Level: level, Action: domain.ActionCreate, After: stored.Clone()})
	return stored.Clone(), nil
}

// Update replaces an existing record.
func (tx *transaction) Update(rec Record) (Record, error) {
	level, scope, key := rec.Level(), rec.Scope(), rec.Key()
	before, ok := tx.state.find(level, scope, key)
	if !ok {
		return nil, domain.NotFoundError{Entity: level.Table(), ID: key.String()}
	}
	stored := rec.Clone()
	tx.state.records[level][rowKey(scope, key)] = stored
	tx.recordChange(Change{Level: level, Action: domain.ActionUpdate, Before: before.Clone(), After: stored.Clone()})
	return stored.Clone(), nil
}

// Delete removes a record and cascades to every descendant level.
func (tx *transaction) Delete(level domain.Level, scope domain.Scope, key domain.Key) error {
	current, ok := tx.state.find(level, scope, key)
	if !ok {
		return domain.NotFoundError{Entity: level.Table(), ID: key.String()}
	}
	for _, child := range domain.AllLevels() {
		if !child.DescendsFrom(level) {
			continue
		}
		for k, rec := range tx.state.records[child] {
			if rec.Scope() == scope && rec.Key().HasPrefix(key) {
				delete(tx.state.records[child], k)
				tx.recordChange(Change{Level: child, Action: domain.ActionDelete, Before: rec})
			}
		}
	}
	delete(tx.state.records[level], rowKey(scope, key))
	tx.recordChange(Change{Level: level, Action: domain.ActionDelete, Before: current})
	return nil
}
