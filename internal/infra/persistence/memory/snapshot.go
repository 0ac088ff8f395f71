package memory

import (
	"fmt"

	"ramstk/pkg/domain"
)

// Snapshot captures a point-in-time clone of the store state, one map per
// level keyed by "revision/hardware/key".
type Snapshot struct {
	Modes       map[string]*domain.Mode       `json:"modes"`
	Mechanisms  map[string]*domain.Mechanism  `json:"mechanisms"`
	Causes      map[string]*domain.Cause      `json:"causes"`
	Controls    map[string]*domain.Control    `json:"controls"`
	Actions     map[string]*domain.Action     `json:"actions"`
	OpLoads     map[string]*domain.OpLoad     `json:"op_loads"`
	OpStresses  map[string]*domain.OpStress   `json:"op_stresses"`
	TestMethods map[string]*domain.TestMethod `json:"test_methods"`
}

// Buckets names the snapshot partitions written by durable stores, in
// parent-before-child order.
var Buckets = []string{
	"modes",
	"mechanisms",
	"causes",
	"controls",
	"actions",
	"op_loads",
	"op_stresses",
	"test_methods",
}

// Target returns a pointer to the map backing bucket, suitable for decoding.
func (s *Snapshot) Target(bucket string) (any, error) {
	switch bucket {
	case "modes":
		return &s.Modes, nil
	case "mechanisms":
		return &s.Mechanisms, nil
	case "causes":
		return &s.Causes, nil
	case "controls":
		return &s.Controls, nil
	case "actions":
		return &s.Actions, nil
	case "op_loads":
		return &s.OpLoads, nil
	case "op_stresses":
		return &s.OpStresses, nil
	case "test_methods":
		return &s.TestMethods, nil
	default:
		return nil, fmt.Errorf("unknown snapshot bucket %q", bucket)
	}
}

// Payload returns the map backing bucket, suitable for encoding.
func (s Snapshot) Payload(bucket string) (any, error) {
	target, err := s.Target(bucket)
	if err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case *map[string]*domain.Mode:
		return *t, nil
	case *map[string]*domain.Mechanism:
		return *t, nil
	case *map[string]*domain.Cause:
		return *t, nil
	case *map[string]*domain.Control:
		return *t, nil
	case *map[string]*domain.Action:
		return *t, nil
	case *map[string]*domain.OpLoad:
		return *t, nil
	case *map[string]*domain.OpStress:
		return *t, nil
	case *map[string]*domain.TestMethod:
		return *t, nil
	}
	return nil, fmt.Errorf("unhandled snapshot bucket %q", bucket)
}

// Len returns the total number of records across all buckets.
func (s Snapshot) Len() int {
	return len(s.Modes) + len(s.Mechanisms) + len(s.Causes) + len(s.Controls) +
		len(s.Actions) + len(s.OpLoads) + len(s.OpStresses) + len(s.TestMethods)
}

func exportLevel[T domain.Record](rows map[string]Record) map[string]T {
	out := make(map[string]T, len(rows))
	for k, v := range rows {
		out[k] = v.Clone().(T)
	}
	return out
}

// importLevel re-keys rows from their content so hand-edited snapshots with
// stale map keys still land on the right row.
func importLevel[T domain.Record](dst map[string]Record, rows map[string]T) {
	var zero T
	for _, v := range rows {
		if any(v) == any(zero) {
			continue
		}
		rec := v.Clone()
		dst[rowKey(rec.Scope(), rec.Key())] = rec
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	return Snapshot{
		Modes:       exportLevel[*domain.Mode](state.records[domain.LevelMode]),
		Mechanisms:  exportLevel[*domain.Mechanism](state.records[domain.LevelMechanism]),
		Causes:      exportLevel[*domain.Cause](state.records[domain.LevelCause]),
		Controls:    exportLevel[*domain.Control](state.records[domain.LevelControl]),
		Actions:     exportLevel[*domain.Action](state.records[domain.LevelAction]),
		OpLoads:     exportLevel[*domain.OpLoad](state.records[domain.LevelOpLoad]),
		OpStresses:  exportLevel[*domain.OpStress](state.records[domain.LevelOpStress]),
		TestMethods: exportLevel[*domain.TestMethod](state.records[domain.LevelTestMethod]),
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	importLevel(state.records[domain.LevelMode], s.Modes)
	importLevel(state.records[domain.LevelMechanism], s.Mechanisms)
	importLevel(state.records[domain.LevelCause], s.Causes)
	importLevel(state.records[domain.LevelControl], s.Controls)
	importLevel(state.records[domain.LevelAction], s.Actions)
	importLevel(state.records[domain.LevelOpLoad], s.OpLoads)
	importLevel(state.records[domain.LevelOpStress], s.OpStresses)
	importLevel(state.records[domain.LevelTestMethod], s.TestMethods)
	return state
}
