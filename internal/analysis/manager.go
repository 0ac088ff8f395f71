// Package analysis builds FMEA and physics-of-failure trees from per-level
// entity stores, keeps them consistent across inserts, deletes, and
// attribute writes, and runs the RPN and criticality calculations over them.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"ramstk/pkg/domain"
)

// Option customises a Manager.
type Option func(*Manager)

// WithPublisher routes notifications to p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records per-operation outcomes.
func WithMetrics(rec MetricsRecorder) Option {
	return func(m *Manager) {
		if rec != nil {
			m.metrics = rec
		}
	}
}

// WithTracer wraps each operation in a span.
func WithTracer(t Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithMode scopes a PoF manager to one failure mode.
func WithMode(modeID int) Option {
	return func(m *Manager) {
		m.prefix = domain.Key{modeID}
	}
}

// Manager owns the entity stores and the tree of one hierarchy for one
// scope and coordinates every mutation between them. A Manager is not safe
// for concurrent use.
type Manager struct {
	hierarchy domain.Hierarchy
	scope     domain.Scope
	prefix    domain.Key
	stores    Stores
	tree      *Tree

	publisher Publisher
	logger    *slog.Logger
	metrics   MetricsRecorder
	tracer    Tracer
}

// NewManager constructs a manager over gateway. PoF managers require
// WithMode.
func NewManager(h domain.Hierarchy, scope domain.Scope, gateway Gateway, opts ...Option) (*Manager, error) {
	if h != domain.HierarchyFMEA && h != domain.HierarchyPoF {
		return nil, fmt.Errorf("new manager: unsupported hierarchy %s", h)
	}
	if gateway == nil {
		return nil, errors.New("new manager: nil gateway")
	}
	m := &Manager{
		hierarchy: h,
		scope:     scope,
		stores:    NewStores(h, scope, gateway),
		tree:      NewTree(h),
		publisher: noopPublisher{},
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if len(m.prefix) != h.ScopeDepth() {
		return nil, fmt.Errorf("new manager: %s trees need %d scope ids, have %d", h, h.ScopeDepth(), len(m.prefix))
	}
	m.logger = m.logger.With("hierarchy", h.String(), "scope", scope.String())
	return m, nil
}

// Hierarchy returns the managed hierarchy.
func (m *Manager) Hierarchy() domain.Hierarchy { return m.hierarchy }

// Scope returns the managed scope.
func (m *Manager) Scope() domain.Scope { return m.scope }

// Prefix returns the key ids fixed by the scope; the mode id for PoF
// managers, empty for FMEA.
func (m *Manager) Prefix() domain.Key { return m.prefix.Clone() }

// Tree returns the current tree. Trees are replaced on rebuild, so callers
// must not hold on to one across mutations.
func (m *Manager) Tree() *Tree { return m.tree }

// Store returns the entity store of level, or nil when level is outside the
// hierarchy.
func (m *Manager) Store(level domain.Level) *EntityStore { return m.stores[level] }

// SelectAll loads every level from persistence, top level first, and
// rebuilds the tree.
func (m *Manager) SelectAll(ctx context.Context) error {
	return m.run(ctx, "select_all", func(ctx context.Context) error {
		for _, level := range m.hierarchy.Levels() {
			if _, err := m.stores[level].SelectAll(ctx, m.prefix); err != nil {
				return fmt.Errorf("select %s: %w", level.Table(), err)
			}
		}
		m.rebuild(ctx)
		return nil
	})
}

// Rebuild replaces the tree with one freshly built from the cached stores.
func (m *Manager) Rebuild(ctx context.Context) *Tree {
	_ = m.run(ctx, "rebuild", func(ctx context.Context) error {
		m.rebuild(ctx)
		return nil
	})
	return m.tree
}

func (m *Manager) rebuild(ctx context.Context) {
	m.tree = Builder{Logger: m.logger}.Build(m.hierarchy, m.stores, m.prefix)
	m.publish(ctx, Event{Topic: TreeRetrievedTopic(m.hierarchy), Tree: m.tree})
}

// Insert creates a default record of level beneath parent and attaches it.
// Nothing is attached when persistence rejects the record.
func (m *Manager) Insert(ctx context.Context, parent Path, level domain.Level) (Path, error) {
	var out Path
	err := m.run(ctx, "insert", func(ctx context.Context) error {
		path, err := m.insert(ctx, parent, level)
		if err != nil {
			m.publish(ctx, Event{Topic: FailInsertTopic(level), NodeID: parent.String(), Err: err})
			return err
		}
		out = path
		m.publish(ctx, Event{Topic: InsertedTopic(level), NodeID: path.String(), Tree: m.tree})
		return nil
	})
	return out, err
}

func (m *Manager) insert(ctx context.Context, parent Path, level domain.Level) (Path, error) {
	if !slices.Contains(m.tree.allowed(parent.Level()), level) {
		return nil, fmt.Errorf("insert: %s cannot nest under %s in the %s tree", level, levelName(parent.Level()), m.hierarchy)
	}
	store := m.stores[level]
	rec, err := store.Insert(ctx, parent.Key(m.prefix))
	if err != nil {
		return nil, err
	}
	path := parent.Child(level, rec.Key().ID())
	if err := m.tree.Add(path, rec); err != nil {
		if derr := store.Delete(ctx, rec.Key()); derr != nil {
			m.logger.Warn("insert compensation failed", "key", rec.Key().String(), "error", derr)
		}
		return nil, err
	}
	return path, nil
}

// Delete removes the record at path, its descendants, and their nodes. The
// tree is left untouched when persistence refuses the delete.
func (m *Manager) Delete(ctx context.Context, path Path) error {
	return m.run(ctx, "delete", func(ctx context.Context) error {
		err := m.delete(ctx, path)
		if err != nil {
			m.publish(ctx, Event{Topic: FailDeleteTopic(m.hierarchy), NodeID: path.String(), Err: err})
			return err
		}
		m.publish(ctx, Event{Topic: DeletedTopic(path.Level()), NodeID: path.String(), Tree: m.tree})
		return nil
	})
}

func (m *Manager) delete(ctx context.Context, path Path) error {
	if path.IsRoot() {
		return errors.New("delete: the root cannot be deleted")
	}
	if !m.tree.Contains(path) {
		return domain.NotFoundError{Entity: "node", ID: path.String()}
	}
	key := path.Key(m.prefix)
	if err := m.stores[path.Level()].Delete(ctx, key); err != nil {
		m.logger.Warn("store delete failed", "node", path.String(), "error", err)
		return err
	}
	if _, err := m.tree.Remove(path); err != nil {
		return err
	}
	for _, level := range m.hierarchy.Levels() {
		if level.DescendsFrom(path.Level()) {
			m.stores[level].Evict(key)
		}
	}
	return nil
}

// GetAttributes returns every attribute of the record at path. The root
// holds no record; asking for it is a programming error and panics.
func (m *Manager) GetAttributes(path Path) (map[string]any, error) {
	if path.IsRoot() {
		panic("analysis: get attributes of the root node")
	}
	node, ok := m.tree.Get(path)
	if !ok || node.Record == nil {
		return nil, domain.NotFoundError{Entity: "node", ID: path.String()}
	}
	return domain.Attributes(node.Record)
}

// SetAttributes writes the keys present in attrs onto the record at path,
// leaving the rest untouched, and publishes one attribute_set per written
// key in name order. Identity keys are neither written nor published. The write is held in memory until Update or UpdateAll. The
// root panics as in GetAttributes.
func (m *Manager) SetAttributes(ctx context.Context, path Path, attrs map[string]any) error {
	if path.IsRoot() {
		panic("analysis: set attributes of the root node")
	}
	node, ok := m.tree.Get(path)
	if !ok || node.Record == nil {
		return domain.NotFoundError{Entity: "node", ID: path.String()}
	}
	updated, err := m.stores[path.Level()].Update(node.Record.Key(), attrs)
	if err != nil {
		return err
	}
	if err := m.tree.Replace(path, updated); err != nil {
		return err
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if domain.IsIdentityAttribute(path.Level(), name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.publish(ctx, Event{Topic: TopicAttributeSet, NodeID: path.String(), Attribute: name, Value: attrs[name]})
	}
	return nil
}

// Update applies attrs to the record at path, if any, and persists it.
func (m *Manager) Update(ctx context.Context, path Path, attrs map[string]any) error {
	return m.run(ctx, "update", func(ctx context.Context) error {
		err := m.update(ctx, path, attrs)
		if err != nil {
			m.publish(ctx, Event{Topic: FailUpdateTopic(m.hierarchy), NodeID: path.String(), Err: err})
			return err
		}
		m.publish(ctx, Event{Topic: UpdatedTopic(m.hierarchy), NodeID: path.String(), Tree: m.tree})
		return nil
	})
}

func (m *Manager) update(ctx context.Context, path Path, attrs map[string]any) error {
	if path.IsRoot() {
		return errors.New("update: the root holds no record")
	}
	if len(attrs) > 0 {
		if err := m.SetAttributes(ctx, path, attrs); err != nil {
			return err
		}
	}
	if !m.tree.Contains(path) {
		return domain.NotFoundError{Entity: "node", ID: path.String()}
	}
	return m.stores[path.Level()].Save(ctx, path.Key(m.prefix))
}

// UpdateAll persists every record in tree order. Failures do not stop the
// batch; each one is published, logged, and included in the joined error.
func (m *Manager) UpdateAll(ctx context.Context) error {
	return m.run(ctx, "update_all", func(ctx context.Context) error {
		var errs []error
		_ = m.tree.Walk(func(n Node) error {
			if err := m.stores[n.Path.Level()].Save(ctx, n.Path.Key(m.prefix)); err != nil {
				m.logger.Warn("update failed", "node", n.ID(), "error", err)
				m.publish(ctx, Event{Topic: FailUpdateTopic(m.hierarchy), NodeID: n.ID(), Err: err})
				errs = append(errs, fmt.Errorf("%s: %w", n.ID(), err))
			}
			return nil
		})
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		m.publish(ctx, Event{Topic: UpdatedTopic(m.hierarchy), NodeID: RootID, Tree: m.tree})
		return nil
	})
}

// CalculateRPN computes rpn and rpn_new for every mechanism or cause of
// every mode. All inputs are validated before anything is written. Each
// result is written as two attribute writes, rpn then rpn_new.
func (m *Manager) CalculateRPN(ctx context.Context, method RPNMethod) error {
	return m.run(ctx, "calculate_rpn", func(ctx context.Context) error {
		if m.hierarchy != domain.HierarchyFMEA {
			return fmt.Errorf("calculate rpn: not available for %s trees", m.hierarchy)
		}
		type pending struct {
			path   Path
			result RPNResult
		}
		var writes []pending
		for _, modeNode := range m.tree.Children(Path{}) {
			mode, ok := modeNode.Record.(*domain.Mode)
			if !ok {
				return fmt.Errorf("calculate rpn: node %s holds no mode", modeNode.ID())
			}
			var paths []Path
			var sources []domain.RPNSource
			for _, n := range m.rpnNodes(modeNode.Path, method) {
				src, ok := n.Record.(domain.RPNSource)
				if !ok {
					return fmt.Errorf("calculate rpn: node %s carries no ratings", n.ID())
				}
				paths = append(paths, n.Path)
				sources = append(sources, src)
			}
			results, err := CalculateRPN(mode, sources, method)
			if err != nil {
				return err
			}
			for i, r := range results {
				writes = append(writes, pending{path: paths[i], result: r})
			}
		}
		for _, w := range writes {
			if err := m.SetAttributes(ctx, w.path, map[string]any{"rpn": w.result.RPN}); err != nil {
				return err
			}
			if err := m.SetAttributes(ctx, w.path, map[string]any{"rpn_new": w.result.RPNNew}); err != nil {
				return err
			}
		}
		m.publish(ctx, Event{Topic: TopicRPNCalculated, Tree: m.tree})
		if method == RPNMethodMechanism {
			m.publish(ctx, Event{Topic: TopicMechanismRPNCalculated, Tree: m.tree})
		}
		return nil
	})
}

func (m *Manager) rpnNodes(mode Path, method RPNMethod) []Node {
	mechanisms := m.tree.Children(mode)
	if method == RPNMethodMechanism {
		return mechanisms
	}
	var out []Node
	for _, mech := range mechanisms {
		out = append(out, m.tree.Children(mech.Path)...)
	}
	return out
}

// CalculateCriticality computes the hazard rate and criticality of every
// mode from the item hazard rate and returns criticality summed by severity
// class. The first invalid mode aborts the calculation before anything is
// written.
func (m *Manager) CalculateCriticality(ctx context.Context, itemHR float64) (map[string]float64, error) {
	var item map[string]float64
	err := m.run(ctx, "calculate_criticality", func(ctx context.Context) error {
		if m.hierarchy != domain.HierarchyFMEA {
			return fmt.Errorf("calculate criticality: not available for %s trees", m.hierarchy)
		}
		nodes := m.tree.Children(Path{})
		modes := make([]*domain.Mode, 0, len(nodes))
		for _, n := range nodes {
			mode, ok := n.Record.(*domain.Mode)
			if !ok {
				return fmt.Errorf("calculate criticality: node %s holds no mode", n.ID())
			}
			modes = append(modes, mode)
		}
		totals, results, err := CalculateItemCriticality(itemHR, modes)
		if err != nil {
			return err
		}
		for i, res := range results {
			if err := m.SetAttributes(ctx, nodes[i].Path, map[string]any{
				"mode_hazard_rate": res.HazardRate,
				"mode_criticality": res.Criticality,
			}); err != nil {
				return err
			}
		}
		item = totals
		m.publish(ctx, Event{Topic: TopicCriticalityCalculated, ItemCriticality: totals})
		return nil
	})
	return item, err
}

func (m *Manager) publish(ctx context.Context, ev Event) {
	ev.ID = uuid.New()
	ev.Hierarchy = m.hierarchy
	ev.Scope = m.scope
	m.publisher.Publish(ctx, ev)
}

func (m *Manager) run(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	m.metrics.Observe(ctx, op, err == nil, time.Since(start))
	return err
}
