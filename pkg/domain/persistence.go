package domain

import "context"

// Transaction exposes the record operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	Find(level Level, scope Scope, key Key) (Record, bool)
	// Insert stores a new record. The parent record must exist and the key
	// must be free, otherwise a ConstraintError is returned.
	Insert(rec Record) (Record, error)
	// Update replaces an existing record. Missing records yield NotFoundError.
	Update(rec Record) (Record, error)
	// Delete removes a record together with every descendant row.
	Delete(level Level, scope Scope, key Key) error
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	// List returns the records of level in scope whose key starts with parent,
	// ordered by key.
	List(level Level, scope Scope, parent Key) []Record
	Find(level Level, scope Scope, key Key) (Record, bool)
	Scopes() []Scope
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
