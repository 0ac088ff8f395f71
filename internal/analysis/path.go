package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"ramstk/pkg/domain"
)

// RootID is the rendered identifier of the synthetic tree root.
const RootID = "0"

// Segment is one step of a Path: a level and the record's own id at it.
type Segment struct {
	Level domain.Level
	ID    int
}

// Path addresses a node by the chain of segments leading to it from the
// root. The empty path is the root.
type Path []Segment

// IsRoot reports whether p addresses the synthetic root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Leaf returns the final segment. The root has a zero leaf.
func (p Path) Leaf() Segment {
	if len(p) == 0 {
		return Segment{}
	}
	return p[len(p)-1]
}

// Level returns the level of the addressed node, zero for the root.
func (p Path) Level() domain.Level { return p.Leaf().Level }

// Parent returns the path of the owning node.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[: len(p)-1 : len(p)-1]
}

// Child returns a new path extending p.
func (p Path) Child(level domain.Level, id int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = Segment{Level: level, ID: id}
	return out
}

// Equal compares two paths segment-wise.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix addresses p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && p[:len(prefix)].Equal(prefix)
}

// Key returns the record key of the addressed node given the ids fixed by
// the analysis scope (the mode id for PoF trees).
func (p Path) Key(prefix domain.Key) domain.Key {
	out := make(domain.Key, 0, len(prefix)+len(p))
	out = append(out, prefix...)
	for _, s := range p {
		out = append(out, s.ID)
	}
	return out
}

// String renders the composite identifier: ids joined by "." with the
// level suffix on the last segment, e.g. "6.3.3.3c". The root renders "0".
func (p Path) String() string {
	if len(p) == 0 {
		return RootID
	}
	var b strings.Builder
	for i, s := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(s.ID))
	}
	b.WriteString(p.Leaf().Level.Suffix())
	return b.String()
}

// ParsePath resolves a composite identifier within hierarchy h.
func ParsePath(h domain.Hierarchy, raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == RootID {
		return Path{}, nil
	}
	if raw == "" {
		return nil, fmt.Errorf("parse path: empty identifier")
	}
	parts := strings.Split(raw, ".")
	out := make(Path, 0, len(parts))
	var parent domain.Level
	for i, part := range parts {
		digits := strings.TrimRight(part, "abcdefghijklmnopqrstuvwxyz")
		suffix := part[len(digits):]
		if suffix != "" && i != len(parts)-1 {
			return nil, fmt.Errorf("parse path %q: suffix %q before the last segment", raw, suffix)
		}
		id, err := strconv.Atoi(digits)
		if err != nil {
			return nil, fmt.Errorf("parse path %q: %w", raw, err)
		}
		candidates := []domain.Level{h.Top()}
		if i > 0 {
			candidates = h.Children(parent)
		}
		level, ok := levelForSuffix(candidates, suffix)
		if !ok {
			return nil, fmt.Errorf("parse path %q: no %s level at depth %d with suffix %q", raw, h, i+1, suffix)
		}
		out = append(out, Segment{Level: level, ID: id})
		parent = level
	}
	return out, nil
}

func levelForSuffix(candidates []domain.Level, suffix string) (domain.Level, bool) {
	for _, l := range candidates {
		if l.Suffix() == suffix {
			return l, true
		}
	}
	return 0, false
}

// PathOf derives the tree path of rec within hierarchy h from its key.
func PathOf(h domain.Hierarchy, rec domain.Record) (Path, error) {
	var chain []domain.Level
	for l := rec.Level(); l != 0 && h.Contains(l); l = l.Parent() {
		chain = append(chain, l)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%s records are not part of the %s hierarchy", rec.Level(), h)
	}
	key := rec.Key()
	if len(key) < len(chain) {
		return nil, fmt.Errorf("malformed %s key %v", rec.Level(), key)
	}
	ids := key[len(key)-len(chain):]
	out := make(Path, len(chain))
	for i := range chain {
		out[i] = Segment{Level: chain[len(chain)-1-i], ID: ids[i]}
	}
	return out, nil
}
