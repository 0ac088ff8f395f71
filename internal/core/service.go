// Package core exposes transactional record operations over a persistent
// store together with the default validation rules.
package core

import (
	"context"
	"fmt"
	"log/slog"

	"ramstk/internal/infra/persistence/memory"
	"ramstk/pkg/domain"
)

// Service is the persistence collaborator of the analysis engine: it selects,
// inserts, updates, and deletes records one transaction at a time.
type Service struct {
	store  PersistentStore
	logger *slog.Logger
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithLogger routes rule warnings to logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService builds a service over a fresh in-memory store.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// SelectAll returns the records of level in scope whose key starts with
// parent. An empty result is not an error.
func (s *Service) SelectAll(ctx context.Context, level Level, scope Scope, parent Key) ([]Record, error) {
	var out []Record
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.List(level, scope, parent)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", level.Table(), err)
	}
	return out, nil
}

// Insert persists a new record.
func (s *Service) Insert(ctx context.Context, rec Record) (Record, Result, error) {
	var created Record
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.Insert(rec)
		return err
	})
	s.logViolations(ctx, "insert", res)
	return created, res, err
}

// Update persists changes to an existing record.
func (s *Service) Update(ctx context.Context, rec Record) (Record, Result, error) {
	var updated Record
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.Update(rec)
		return err
	})
	s.logViolations(ctx, "update", res)
	return updated, res, err
}

// Delete removes a record and its descendants.
func (s *Service) Delete(ctx context.Context, level Level, scope Scope, key Key) (Result, error) {
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.Delete(level, scope, key)
	})
	s.logViolations(ctx, "delete", res)
	return res, err
}

func (s *Service) logViolations(ctx context.Context, op string, res Result) {
	for _, v := range res.Violations {
		lvl := slog.LevelInfo
		if v.Severity != domain.SeverityLog {
			lvl = slog.LevelWarn
		}
		s.logger.LogAttrs(ctx, lvl, "rule violation",
			slog.String("operation", op),
			slog.String("rule", v.Rule),
			slog.String("severity", string(v.Severity)),
			slog.String("level", v.Level.String()),
			slog.String("key", v.Key),
			slog.String("message", v.Message),
		)
	}
}
