package worksheet

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"ramstk/pkg/domain"
)

// Inserter persists one record. core.Service satisfies it.
type Inserter interface {
	Insert(ctx context.Context, rec domain.Record) (domain.Record, domain.Result, error)
}

// Summary counts what an import wrote.
type Summary struct {
	Inserted   map[domain.Level]int
	Violations int
}

// Total returns the number of inserted records.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Inserted {
		n += c
	}
	return n
}

// Importer writes worksheets through an Inserter.
type Importer struct {
	Target Inserter
	Logger *slog.Logger
}

// Import inserts every entry of ws parent first. Each record is its own
// transaction: on error the records written so far stay persisted and the
// error names the offending key.
func (im Importer) Import(ctx context.Context, ws Worksheet) (Summary, error) {
	logger := im.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sum := Summary{Inserted: make(map[domain.Level]int)}
	scope := ws.Scope()
	for _, e := range ws.Modes {
		if err := im.insert(ctx, scope, domain.LevelMode, nil, e, &sum); err != nil {
			return sum, err
		}
	}
	logger.InfoContext(ctx, "worksheet imported", "scope", scope.String(), "records", sum.Total(), "violations", sum.Violations)
	return sum, nil
}

func (im Importer) insert(ctx context.Context, scope domain.Scope, level domain.Level, parent domain.Key, e Entry, sum *Summary) error {
	key := parent.Child(e.ID)
	if e.ID <= 0 {
		return fmt.Errorf("import %s %s: id must be positive", level, key)
	}
	rec, err := domain.NewRecord(level, scope, key)
	if err != nil {
		return fmt.Errorf("import %s %s: %w", level, key, err)
	}
	if len(e.Attributes) > 0 {
		if rec, err = domain.ApplyAttributes(rec, e.Attributes); err != nil {
			return fmt.Errorf("import %s %s: %w", level, key, err)
		}
	}
	_, res, err := im.Target.Insert(ctx, rec)
	if err != nil {
		return fmt.Errorf("import %s %s: %w", level, key, err)
	}
	sum.Inserted[level]++
	sum.Violations += len(res.Violations)

	allowed := childLevels(level)
	children := e.children()
	for _, child := range domain.AllLevels() {
		entries, ok := children[child]
		if !ok {
			continue
		}
		if !slices.Contains(allowed, child) {
			return fmt.Errorf("import %s %s: %s cannot be nested under %s", level, key, child, level)
		}
		for _, ce := range entries {
			if err := im.insert(ctx, scope, child, key, ce, sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// childLevels merges the FMEA and PoF children of l.
func childLevels(l domain.Level) []domain.Level {
	out := domain.HierarchyFMEA.Children(l)
	if l != domain.LevelMode {
		out = append(out, domain.HierarchyPoF.Children(l)...)
	}
	return out
}
