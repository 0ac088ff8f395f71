// Package worksheet reads nested FMEA/PoF worksheets into persistence and
// archives built analysis trees to a blob store.
package worksheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"ramstk/pkg/domain"
)

// Worksheet is the import document for one hardware item of one revision.
//
//	revision_id: 1
//	hardware_id: 1
//	modes:
//	  - id: 6
//	    attributes: {description: Relay fails open, rpn_severity: 8}
//	    mechanisms:
//	      - id: 3
//	        causes: [{id: 3, controls: [{id: 3}], actions: [{id: 3}]}]
//	        op_loads: [{id: 1, op_stresses: [{id: 1}], test_methods: [{id: 1}]}]
type Worksheet struct {
	RevisionID int     `yaml:"revision_id" json:"revision_id"`
	HardwareID int     `yaml:"hardware_id" json:"hardware_id"`
	Modes      []Entry `yaml:"modes" json:"modes"`
}

// Scope returns the worksheet scope.
func (w Worksheet) Scope() domain.Scope {
	return domain.Scope{RevisionID: w.RevisionID, HardwareID: w.HardwareID}
}

// Entry is one record plus its nested children. Only the child lists that
// belong under the entry's level may be populated.
type Entry struct {
	ID          int            `yaml:"id" json:"id"`
	Attributes  map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Mechanisms  []Entry        `yaml:"mechanisms,omitempty" json:"mechanisms,omitempty"`
	Causes      []Entry        `yaml:"causes,omitempty" json:"causes,omitempty"`
	Controls    []Entry        `yaml:"controls,omitempty" json:"controls,omitempty"`
	Actions     []Entry        `yaml:"actions,omitempty" json:"actions,omitempty"`
	OpLoads     []Entry        `yaml:"op_loads,omitempty" json:"op_loads,omitempty"`
	OpStresses  []Entry        `yaml:"op_stresses,omitempty" json:"op_stresses,omitempty"`
	TestMethods []Entry        `yaml:"test_methods,omitempty" json:"test_methods,omitempty"`
}

// children returns the populated child lists keyed by level.
func (e Entry) children() map[domain.Level][]Entry {
	out := make(map[domain.Level][]Entry)
	add := func(l domain.Level, entries []Entry) {
		if len(entries) > 0 {
			out[l] = entries
		}
	}
	add(domain.LevelMechanism, e.Mechanisms)
	add(domain.LevelCause, e.Causes)
	add(domain.LevelControl, e.Controls)
	add(domain.LevelAction, e.Actions)
	add(domain.LevelOpLoad, e.OpLoads)
	add(domain.LevelOpStress, e.OpStresses)
	add(domain.LevelTestMethod, e.TestMethods)
	return out
}

// Parse decodes a YAML worksheet. Unknown document fields are rejected.
func Parse(r io.Reader) (Worksheet, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var ws Worksheet
	if err := dec.Decode(&ws); err != nil {
		if errors.Is(err, io.EOF) {
			return Worksheet{}, errors.New("parse worksheet: empty document")
		}
		return Worksheet{}, fmt.Errorf("parse worksheet: %w", err)
	}
	if ws.RevisionID <= 0 || ws.HardwareID <= 0 {
		return Worksheet{}, fmt.Errorf("parse worksheet: revision_id and hardware_id must be positive, have %d/%d", ws.RevisionID, ws.HardwareID)
	}
	return ws, nil
}

// ParseFile reads a worksheet from path.
func ParseFile(path string) (Worksheet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Worksheet{}, fmt.Errorf("read worksheet: %w", err)
	}
	return Parse(bytes.NewReader(b))
}
