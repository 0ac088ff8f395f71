package domain

import (
	"fmt"
	"strings"
)

// Level identifies one tier of the FMEA or PoF hierarchy.
type Level int

// Supported hierarchy levels. The zero value is not a valid level.
const (
	LevelMode Level = iota + 1
	LevelMechanism
	LevelCause
	LevelControl
	LevelAction
	LevelOpLoad
	LevelOpStress
	LevelTestMethod
)

// AllLevels returns every level in parent-before-child order.
func AllLevels() []Level {
	return []Level{
		LevelMode,
		LevelMechanism,
		LevelCause,
		LevelControl,
		LevelAction,
		LevelOpLoad,
		LevelOpStress,
		LevelTestMethod,
	}
}

// String returns the lower-case level name used in topics and worksheets.
func (l Level) String() string {
	switch l {
	case LevelMode:
		return "mode"
	case LevelMechanism:
		return "mechanism"
	case LevelCause:
		return "cause"
	case LevelControl:
		return "control"
	case LevelAction:
		return "action"
	case LevelOpLoad:
		return "opload"
	case LevelOpStress:
		return "opstress"
	case LevelTestMethod:
		return "test_method"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Table returns the persistence table backing the level.
func (l Level) Table() string {
	switch l {
	case LevelMode:
		return "ramstk_mode"
	case LevelMechanism:
		return "ramstk_mechanism"
	case LevelCause:
		return "ramstk_cause"
	case LevelControl:
		return "ramstk_control"
	case LevelAction:
		return "ramstk_action"
	case LevelOpLoad:
		return "ramstk_op_load"
	case LevelOpStress:
		return "ramstk_op_stress"
	case LevelTestMethod:
		return "ramstk_test_method"
	default:
		return ""
	}
}

// Suffix is appended to the last segment of a rendered node identifier so
// that sibling leaf kinds sharing a parent never collide.
func (l Level) Suffix() string {
	switch l {
	case LevelControl:
		return "c"
	case LevelAction:
		return "a"
	case LevelOpStress:
		return "s"
	case LevelTestMethod:
		return "t"
	default:
		return ""
	}
}

// Parent returns the level owning records of l. Modes have no parent level
// and return zero.
func (l Level) Parent() Level {
	switch l {
	case LevelMechanism:
		return LevelMode
	case LevelCause, LevelOpLoad:
		return LevelMechanism
	case LevelControl, LevelAction:
		return LevelCause
	case LevelOpStress, LevelTestMethod:
		return LevelOpLoad
	default:
		return 0
	}
}

// Depth is the number of ids in a record key at this level.
func (l Level) Depth() int {
	switch l {
	case LevelMode:
		return 1
	case LevelMechanism:
		return 2
	case LevelCause, LevelOpLoad:
		return 3
	case LevelControl, LevelAction, LevelOpStress, LevelTestMethod:
		return 4
	default:
		return 0
	}
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l >= LevelMode && l <= LevelTestMethod
}

// DescendsFrom reports whether ancestor appears in the parent chain of l.
func (l Level) DescendsFrom(ancestor Level) bool {
	for p := l.Parent(); p != 0; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

// ParseLevel resolves a level name. Matching is case-insensitive and accepts
// "testmethod" as an alias for "test_method".
func ParseLevel(name string) (Level, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "testmethod" {
		n = "test_method"
	}
	for _, l := range AllLevels() {
		if l.String() == n {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", name)
}

// Hierarchy selects which tree a manager assembles.
type Hierarchy int

// Supported hierarchies.
const (
	HierarchyFMEA Hierarchy = iota + 1
	HierarchyPoF
)

func (h Hierarchy) String() string {
	switch h {
	case HierarchyFMEA:
		return "fmea"
	case HierarchyPoF:
		return "pof"
	default:
		return fmt.Sprintf("hierarchy(%d)", int(h))
	}
}

// ParseHierarchy resolves "fmea" or "pof".
func ParseHierarchy(name string) (Hierarchy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fmea":
		return HierarchyFMEA, nil
	case "pof":
		return HierarchyPoF, nil
	default:
		return 0, fmt.Errorf("unknown hierarchy %q", name)
	}
}

// Top returns the level attached directly beneath the synthetic root.
func (h Hierarchy) Top() Level {
	if h == HierarchyPoF {
		return LevelMechanism
	}
	return LevelMode
}

// Levels lists the hierarchy's levels in build order.
func (h Hierarchy) Levels() []Level {
	switch h {
	case HierarchyFMEA:
		return []Level{LevelMode, LevelMechanism, LevelCause, LevelControl, LevelAction}
	case HierarchyPoF:
		return []Level{LevelMechanism, LevelOpLoad, LevelOpStress, LevelTestMethod}
	default:
		return nil
	}
}

// Children returns the levels nested directly under l within the hierarchy.
func (h Hierarchy) Children(l Level) []Level {
	var out []Level
	for _, c := range h.Levels() {
		if c.Parent() == l {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether l belongs to the hierarchy.
func (h Hierarchy) Contains(l Level) bool {
	for _, c := range h.Levels() {
		if c == l {
			return true
		}
	}
	return false
}

// ScopeDepth is the number of key ids fixed by the analysis scope before the
// top level begins. PoF trees are opened for a single failure mode.
func (h Hierarchy) ScopeDepth() int {
	return h.Top().Depth() - 1
}
