package analysis

import (
	"fmt"
	"slices"

	"ramstk/pkg/domain"
)

// Node is a read-only view of one tree position. Record is shared with the
// owning EntityStore and must not be mutated through the node.
type Node struct {
	Path   Path
	Record domain.Record
}

// ID returns the rendered composite identifier of the node.
func (n Node) ID() string { return n.Path.String() }

type arenaNode struct {
	path     Path
	record   domain.Record
	parent   int
	children []int
	live     bool
}

// Tree is an ordered forest beneath one synthetic root, stored as an arena
// of nodes indexed by rendered path. Removed slots are reused by later adds.
type Tree struct {
	hierarchy domain.Hierarchy
	nodes     []arenaNode
	index     map[string]int
	free      []int
}

// NewTree returns a tree holding only the root.
func NewTree(h domain.Hierarchy) *Tree {
	return &Tree{
		hierarchy: h,
		nodes:     []arenaNode{{parent: -1, live: true}},
		index:     map[string]int{RootID: 0},
	}
}

// Hierarchy reports which hierarchy the tree holds.
func (t *Tree) Hierarchy() domain.Hierarchy { return t.hierarchy }

// Len returns the number of nodes, excluding the root.
func (t *Tree) Len() int { return len(t.index) - 1 }

// Contains reports whether a node exists at p.
func (t *Tree) Contains(p Path) bool {
	_, ok := t.index[p.String()]
	return ok
}

// Get returns the node at p.
func (t *Tree) Get(p Path) (Node, bool) {
	i, ok := t.index[p.String()]
	if !ok {
		return Node{}, false
	}
	return t.view(i), true
}

func (t *Tree) view(i int) Node {
	n := t.nodes[i]
	return Node{Path: n.path, Record: n.record}
}

// Add attaches rec at p. The parent of p must already be present and the
// leaf level must nest directly under the parent's level.
func (t *Tree) Add(p Path, rec domain.Record) error {
	if p.IsRoot() {
		return fmt.Errorf("add: the root cannot be replaced")
	}
	parentPath := p.Parent()
	parent, ok := t.index[parentPath.String()]
	if !ok {
		return domain.NotFoundError{Entity: "node", ID: parentPath.String()}
	}
	if want := t.allowed(parentPath.Level()); !slices.Contains(want, p.Level()) {
		return fmt.Errorf("add %s: %s cannot nest under %s", p, p.Level(), levelName(parentPath.Level()))
	}
	id := p.String()
	if _, exists := t.index[id]; exists {
		return fmt.Errorf("add %s: node already exists", id)
	}
	node := arenaNode{path: append(Path(nil), p...), record: rec, parent: parent, live: true}
	var slot int
	if n := len(t.free); n > 0 {
		slot = t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[slot] = node
	} else {
		slot = len(t.nodes)
		t.nodes = append(t.nodes, node)
	}
	t.nodes[parent].children = append(t.nodes[parent].children, slot)
	t.index[id] = slot
	return nil
}

// Replace swaps the record held at p.
func (t *Tree) Replace(p Path, rec domain.Record) error {
	i, ok := t.index[p.String()]
	if !ok || i == 0 {
		return domain.NotFoundError{Entity: "node", ID: p.String()}
	}
	t.nodes[i].record = rec
	return nil
}

// Remove detaches the node at p together with its whole subtree and returns
// the removed paths in pre-order.
func (t *Tree) Remove(p Path) ([]Path, error) {
	if p.IsRoot() {
		return nil, fmt.Errorf("remove: the root cannot be removed")
	}
	i, ok := t.index[p.String()]
	if !ok {
		return nil, domain.NotFoundError{Entity: "node", ID: p.String()}
	}
	parent := &t.nodes[t.nodes[i].parent]
	for j, c := range parent.children {
		if c == i {
			parent.children = append(parent.children[:j:j], parent.children[j+1:]...)
			break
		}
	}
	var removed []Path
	t.preorder(i, func(slot int) {
		n := &t.nodes[slot]
		removed = append(removed, n.path)
		delete(t.index, n.path.String())
		*n = arenaNode{}
		t.free = append(t.free, slot)
	})
	return removed, nil
}

// Children returns the direct children of p in insertion order.
func (t *Tree) Children(p Path) []Node {
	i, ok := t.index[p.String()]
	if !ok {
		return nil
	}
	out := make([]Node, 0, len(t.nodes[i].children))
	for _, c := range t.nodes[i].children {
		out = append(out, t.view(c))
	}
	return out
}

// Walk visits every node except the root depth-first in insertion order.
// Walking stops at the first error returned by fn.
func (t *Tree) Walk(fn func(Node) error) error {
	var err error
	t.preorder(0, func(slot int) {
		if slot == 0 || err != nil {
			return
		}
		err = fn(t.view(slot))
	})
	return err
}

// Paths lists every node path in walk order.
func (t *Tree) Paths() []Path {
	out := make([]Path, 0, t.Len())
	_ = t.Walk(func(n Node) error {
		out = append(out, n.Path)
		return nil
	})
	return out
}

// IDs lists every rendered node identifier in walk order.
func (t *Tree) IDs() []string {
	paths := t.Paths()
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}

func (t *Tree) preorder(slot int, visit func(int)) {
	children := append([]int(nil), t.nodes[slot].children...)
	visit(slot)
	for _, c := range children {
		t.preorder(c, visit)
	}
}

func (t *Tree) allowed(parent domain.Level) []domain.Level {
	if parent == 0 {
		return []domain.Level{t.hierarchy.Top()}
	}
	return t.hierarchy.Children(parent)
}

func levelName(l domain.Level) string {
	if l == 0 {
		return "root"
	}
	return l.String()
}
