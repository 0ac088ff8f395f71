package analysis

import (
	"context"
	"log/slog"

	"ramstk/pkg/domain"
)

// Builder assembles a Tree from entity stores.
type Builder struct {
	Logger *slog.Logger
}

// Build assembles a tree for hierarchy h with the default logger.
func Build(h domain.Hierarchy, stores Stores, prefix domain.Key) *Tree {
	return Builder{}.Build(h, stores, prefix)
}

// Build assembles a fresh tree for hierarchy h from the records under
// prefix, top level first and depth-first. Descent stops at the first empty
// store on each branch, so a partially loaded set of stores yields a partial
// tree. Records whose parent has no node are skipped and logged at debug.
// PoF trees leave out mechanisms with pof_include unset.
func (b Builder) Build(h domain.Hierarchy, stores Stores, prefix domain.Key) *Tree {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tree := NewTree(h)
	top := stores[h.Top()]
	if top == nil || top.Len() == 0 {
		return tree
	}
	for _, rec := range top.Children(prefix) {
		if len(rec.Key()) != len(prefix)+1 {
			continue
		}
		if h == domain.HierarchyPoF && !includedInPoF(rec) {
			continue
		}
		path := Path{{Level: h.Top(), ID: rec.Key().ID()}}
		if err := tree.Add(path, rec); err != nil {
			logger.Debug("skipping record", "level", rec.Level().String(), "key", rec.Key().String(), "error", err)
			continue
		}
		b.descend(tree, stores, path, rec.Key())
	}
	b.logOrphans(logger, tree, stores, prefix)
	logger.Debug("tree built", "hierarchy", h.String(), "nodes", tree.Len())
	return tree
}

func (b Builder) descend(tree *Tree, stores Stores, path Path, key domain.Key) {
	for _, level := range tree.Hierarchy().Children(path.Level()) {
		store := stores[level]
		if store == nil || store.Len() == 0 {
			continue
		}
		for _, rec := range store.Records() {
			if !rec.Key().Parent().Equal(key) {
				continue
			}
			child := path.Child(level, rec.Key().ID())
			if err := tree.Add(child, rec); err != nil {
				continue
			}
			b.descend(tree, stores, child, rec.Key())
		}
	}
}

func (b Builder) logOrphans(logger *slog.Logger, tree *Tree, stores Stores, prefix domain.Key) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	h := tree.Hierarchy()
	for _, level := range h.Levels() {
		store := stores[level]
		if store == nil {
			continue
		}
		for _, rec := range store.Children(prefix) {
			path, err := PathOf(h, rec)
			if err != nil || tree.Contains(path) {
				continue
			}
			logger.Debug("record not attached",
				"level", level.String(),
				"key", rec.Key().String(),
				"path", path.String(),
			)
		}
	}
}

func includedInPoF(rec domain.Record) bool {
	m, ok := rec.(*domain.Mechanism)
	return !ok || m.PoFInclude
}
