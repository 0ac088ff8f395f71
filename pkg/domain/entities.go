// Package domain defines the FMEA and physics-of-failure records, hierarchy
// levels, and rule evaluation primitives used by ramstk.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Scope pins an analysis to one hardware item of one revision.
type Scope struct {
	RevisionID int `json:"revision_id" yaml:"revision_id"`
	HardwareID int `json:"hardware_id" yaml:"hardware_id"`
}

func (s Scope) String() string {
	return fmt.Sprintf("%d/%d", s.RevisionID, s.HardwareID)
}

// Key is the ordered list of FMEA ancestor ids of a record followed by the
// record's own id, e.g. [mode, mechanism, cause, control].
type Key []int

// ID returns the record's own id, the last element of the key.
func (k Key) ID() int {
	if len(k) == 0 {
		return 0
	}
	return k[len(k)-1]
}

// Parent returns the key of the owning record.
func (k Key) Parent() Key {
	if len(k) == 0 {
		return nil
	}
	return k[: len(k)-1 : len(k)-1]
}

// Child returns a new key extending k with id.
func (k Key) Child(id int) Key {
	out := make(Key, len(k)+1)
	copy(out, k)
	out[len(k)] = id
	return out
}

// HasPrefix reports whether every element of prefix leads k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal compares two keys element-wise.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// Less orders keys lexicographically by id.
func (k Key) Less(other Key) bool {
	for i := 0; i < len(k) && i < len(other); i++ {
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return len(k) < len(other)
}

// Clone returns an independent copy.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}
	return append(Key(nil), k...)
}

// String renders the key as dot separated ids.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, id := range k {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ".")
}

// ParseKey parses the dot separated form produced by Key.String.
func ParseKey(raw string) (Key, error) {
	if strings.TrimSpace(raw) == "" {
		return Key{}, nil
	}
	parts := strings.Split(raw, ".")
	out := make(Key, len(parts))
	for i, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse key %q: %w", raw, err)
		}
		out[i] = id
	}
	return out, nil
}

// Record is the common behaviour of every FMEA and PoF row.
type Record interface {
	Level() Level
	Scope() Scope
	Key() Key
	Clone() Record
}

// RPNSource is implemented by the levels that carry occurrence and detection
// ratings: mechanisms and causes.
type RPNSource interface {
	Record
	RPNInputs() (occurrence, detection, occurrenceNew, detectionNew int)
	SetRPN(rpn, rpnNew int)
}

// Mode is a failure mode of a hardware item.
type Mode struct {
	RevisionID        int     `json:"revision_id"`
	HardwareID        int     `json:"hardware_id"`
	ModeID            int     `json:"mode_id"`
	CriticalItem      bool    `json:"critical_item"`
	Description       string  `json:"description"`
	DesignProvisions  string  `json:"design_provisions"`
	DetectionMethod   string  `json:"detection_method"`
	EffectEnd         string  `json:"effect_end"`
	EffectLocal       string  `json:"effect_local"`
	EffectNext        string  `json:"effect_next"`
	EffectProbability float64 `json:"effect_probability"`
	HazardRateSource  string  `json:"hazard_rate_source"`
	IsolationMethod   string  `json:"isolation_method"`
	Mission           string  `json:"mission"`
	MissionPhase      string  `json:"mission_phase"`
	ModeCriticality   float64 `json:"mode_criticality"`
	ModeHazardRate    float64 `json:"mode_hazard_rate"`
	ModeOpTime        float64 `json:"mode_op_time"`
	ModeProbability   string  `json:"mode_probability"`
	ModeRatio         float64 `json:"mode_ratio"`
	OperatorActions   string  `json:"operator_actions"`
	OtherIndications  string  `json:"other_indications"`
	Remarks           string  `json:"remarks"`
	RPNSeverity       int     `json:"rpn_severity"`
	RPNSeverityNew    int     `json:"rpn_severity_new"`
	SeverityClass     string  `json:"severity_class"`
	SinglePoint       bool    `json:"single_point"`
	TypeID            int     `json:"type_id"`
}

func (m *Mode) Level() Level  { return LevelMode }
func (m *Mode) Scope() Scope  { return Scope{RevisionID: m.RevisionID, HardwareID: m.HardwareID} }
func (m *Mode) Key() Key      { return Key{m.ModeID} }
func (m *Mode) Clone() Record { cp := *m; return &cp }

// Mechanism is a failure mechanism of a mode.
type Mechanism struct {
	RevisionID       int    `json:"revision_id"`
	HardwareID       int    `json:"hardware_id"`
	ModeID           int    `json:"mode_id"`
	MechanismID      int    `json:"mechanism_id"`
	Description      string `json:"description"`
	PoFInclude       bool   `json:"pof_include"`
	RPN              int    `json:"rpn"`
	RPNDetection     int    `json:"rpn_detection"`
	RPNDetectionNew  int    `json:"rpn_detection_new"`
	RPNNew           int    `json:"rpn_new"`
	RPNOccurrence    int    `json:"rpn_occurrence"`
	RPNOccurrenceNew int    `json:"rpn_occurrence_new"`
}

func (m *Mechanism) Level() Level  { return LevelMechanism }
func (m *Mechanism) Scope() Scope  { return Scope{RevisionID: m.RevisionID, HardwareID: m.HardwareID} }
func (m *Mechanism) Key() Key      { return Key{m.ModeID, m.MechanismID} }
func (m *Mechanism) Clone() Record { cp := *m; return &cp }

func (m *Mechanism) RPNInputs() (int, int, int, int) {
	return m.RPNOccurrence, m.RPNDetection, m.RPNOccurrenceNew, m.RPNDetectionNew
}

func (m *Mechanism) SetRPN(rpn, rpnNew int) { m.RPN, m.RPNNew = rpn, rpnNew }

// Cause is a root cause of a mechanism.
type Cause struct {
	RevisionID       int    `json:"revision_id"`
	HardwareID       int    `json:"hardware_id"`
	ModeID           int    `json:"mode_id"`
	MechanismID      int    `json:"mechanism_id"`
	CauseID          int    `json:"cause_id"`
	Description      string `json:"description"`
	RPN              int    `json:"rpn"`
	RPNDetection     int    `json:"rpn_detection"`
	RPNDetectionNew  int    `json:"rpn_detection_new"`
	RPNNew           int    `json:"rpn_new"`
	RPNOccurrence    int    `json:"rpn_occurrence"`
	RPNOccurrenceNew int    `json:"rpn_occurrence_new"`
}

func (c *Cause) Level() Level { return LevelCause }
func (c *Cause) Scope() Scope { return Scope{RevisionID: c.RevisionID, HardwareID: c.HardwareID} }
func (c *Cause) Key() Key     { return Key{c.ModeID, c.MechanismID, c.CauseID} }
func (c *Cause) Clone() Record {
	cp := *c
	return &cp
}

func (c *Cause) RPNInputs() (int, int, int, int) {
	return c.RPNOccurrence, c.RPNDetection, c.RPNOccurrenceNew, c.RPNDetectionNew
}

func (c *Cause) SetRPN(rpn, rpnNew int) { c.RPN, c.RPNNew = rpn, rpnNew }

// Control is a design or process control applied to a cause.
type Control struct {
	RevisionID  int    `json:"revision_id"`
	HardwareID  int    `json:"hardware_id"`
	ModeID      int    `json:"mode_id"`
	MechanismID int    `json:"mechanism_id"`
	CauseID     int    `json:"cause_id"`
	ControlID   int    `json:"control_id"`
	Description string `json:"description"`
	TypeID      string `json:"type_id"`
}

func (c *Control) Level() Level { return LevelControl }
func (c *Control) Scope() Scope { return Scope{RevisionID: c.RevisionID, HardwareID: c.HardwareID} }
func (c *Control) Key() Key     { return Key{c.ModeID, c.MechanismID, c.CauseID, c.ControlID} }
func (c *Control) Clone() Record {
	cp := *c
	return &cp
}

// Action is a corrective action recommended against a cause. Dates are
// ISO-8601 calendar dates.
type Action struct {
	RevisionID        int    `json:"revision_id"`
	HardwareID        int    `json:"hardware_id"`
	ModeID            int    `json:"mode_id"`
	MechanismID       int    `json:"mechanism_id"`
	CauseID           int    `json:"cause_id"`
	ActionID          int    `json:"action_id"`
	ActionApproveDate string `json:"action_approve_date"`
	ActionApproved    bool   `json:"action_approved"`
	ActionCategory    string `json:"action_category"`
	ActionCloseDate   string `json:"action_close_date"`
	ActionClosed      bool   `json:"action_closed"`
	ActionDueDate     string `json:"action_due_date"`
	ActionOwner       string `json:"action_owner"`
	ActionRecommended string `json:"action_recommended"`
	ActionStatus      string `json:"action_status"`
	ActionTaken       string `json:"action_taken"`
}

func (a *Action) Level() Level { return LevelAction }
func (a *Action) Scope() Scope { return Scope{RevisionID: a.RevisionID, HardwareID: a.HardwareID} }
func (a *Action) Key() Key     { return Key{a.ModeID, a.MechanismID, a.CauseID, a.ActionID} }
func (a *Action) Clone() Record {
	cp := *a
	return &cp
}

// OpLoad is an operating load acting on a mechanism.
type OpLoad struct {
	RevisionID  int    `json:"revision_id"`
	HardwareID  int    `json:"hardware_id"`
	ModeID      int    `json:"mode_id"`
	MechanismID int    `json:"mechanism_id"`
	LoadID      int    `json:"load_id"`
	DamageModel string `json:"damage_model"`
	Description string `json:"description"`
	PriorityID  int    `json:"priority_id"`
}

func (o *OpLoad) Level() Level { return LevelOpLoad }
func (o *OpLoad) Scope() Scope { return Scope{RevisionID: o.RevisionID, HardwareID: o.HardwareID} }
func (o *OpLoad) Key() Key     { return Key{o.ModeID, o.MechanismID, o.LoadID} }
func (o *OpLoad) Clone() Record {
	cp := *o
	return &cp
}

// OpStress is a stress produced by an operating load.
type OpStress struct {
	RevisionID          int    `json:"revision_id"`
	HardwareID          int    `json:"hardware_id"`
	ModeID              int    `json:"mode_id"`
	MechanismID         int    `json:"mechanism_id"`
	LoadID              int    `json:"load_id"`
	StressID            int    `json:"stress_id"`
	Description         string `json:"description"`
	LoadHistory         string `json:"load_history"`
	MeasurableParameter string `json:"measurable_parameter"`
	Remarks             string `json:"remarks"`
}

func (o *OpStress) Level() Level { return LevelOpStress }
func (o *OpStress) Scope() Scope { return Scope{RevisionID: o.RevisionID, HardwareID: o.HardwareID} }
func (o *OpStress) Key() Key     { return Key{o.ModeID, o.MechanismID, o.LoadID, o.StressID} }
func (o *OpStress) Clone() Record {
	cp := *o
	return &cp
}

// TestMethod is a test that exercises an operating load.
type TestMethod struct {
	RevisionID         int    `json:"revision_id"`
	HardwareID         int    `json:"hardware_id"`
	ModeID             int    `json:"mode_id"`
	MechanismID        int    `json:"mechanism_id"`
	LoadID             int    `json:"load_id"`
	TestID             int    `json:"test_id"`
	BoundaryConditions string `json:"boundary_conditions"`
	Description        string `json:"description"`
	Remarks            string `json:"remarks"`
}

func (t *TestMethod) Level() Level { return LevelTestMethod }
func (t *TestMethod) Scope() Scope { return Scope{RevisionID: t.RevisionID, HardwareID: t.HardwareID} }
func (t *TestMethod) Key() Key     { return Key{t.ModeID, t.MechanismID, t.LoadID, t.TestID} }
func (t *TestMethod) Clone() Record {
	cp := *t
	return &cp
}

// NewRecord builds a record for level populated with the insert defaults.
// The key must carry exactly level.Depth() ids.
func NewRecord(level Level, scope Scope, key Key) (Record, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("new record: invalid level %d", int(level))
	}
	if len(key) != level.Depth() {
		return nil, fmt.Errorf("new %s: key %v must have %d ids", level, key, level.Depth())
	}
	rev, hw := scope.RevisionID, scope.HardwareID
	switch level {
	case LevelMode:
		return &Mode{
			RevisionID:     rev,
			HardwareID:     hw,
			ModeID:         key[0],
			Description:    "New Failure Mode",
			RPNSeverity:    1,
			RPNSeverityNew: 1,
		}, nil
	case LevelMechanism:
		return &Mechanism{
			RevisionID:       rev,
			HardwareID:       hw,
			ModeID:           key[0],
			MechanismID:      key[1],
			Description:      "New Failure Mechanism",
			PoFInclude:       true,
			RPNDetection:     1,
			RPNDetectionNew:  1,
			RPNOccurrence:    1,
			RPNOccurrenceNew: 1,
		}, nil
	case LevelCause:
		return &Cause{
			RevisionID:       rev,
			HardwareID:       hw,
			ModeID:           key[0],
			MechanismID:      key[1],
			CauseID:          key[2],
			Description:      "New Failure Cause",
			RPNDetection:     1,
			RPNDetectionNew:  1,
			RPNOccurrence:    1,
			RPNOccurrenceNew: 1,
		}, nil
	case LevelControl:
		return &Control{
			RevisionID:  rev,
			HardwareID:  hw,
			ModeID:      key[0],
			MechanismID: key[1],
			CauseID:     key[2],
			ControlID:   key[3],
			Description: "New Control",
		}, nil
	case LevelAction:
		return &Action{
			RevisionID:        rev,
			HardwareID:        hw,
			ModeID:            key[0],
			MechanismID:       key[1],
			CauseID:           key[2],
			ActionID:          key[3],
			ActionRecommended: "Recommended Action",
		}, nil
	case LevelOpLoad:
		return &OpLoad{
			RevisionID:  rev,
			HardwareID:  hw,
			ModeID:      key[0],
			MechanismID: key[1],
			LoadID:      key[2],
			Description: "New Operating Load",
		}, nil
	case LevelOpStress:
		return &OpStress{
			RevisionID:  rev,
			HardwareID:  hw,
			ModeID:      key[0],
			MechanismID: key[1],
			LoadID:      key[2],
			StressID:    key[3],
			Description: "New Operating Stress",
		}, nil
	case LevelTestMethod:
		return &TestMethod{
			RevisionID:  rev,
			HardwareID:  hw,
			ModeID:      key[0],
			MechanismID: key[1],
			LoadID:      key[2],
			TestID:      key[3],
			Description: "New Test Method",
		}, nil
	}
	return nil, fmt.Errorf("new record: unhandled level %s", level)
}

// keyFields lists the identity attributes of each level. They are reported
// by Attributes but never written by ApplyAttributes.
func keyFields(level Level) []string {
	fields := []string{"revision_id", "hardware_id", "mode_id"}
	switch level {
	case LevelMode:
	case LevelMechanism:
		fields = append(fields, "mechanism_id")
	case LevelCause:
		fields = append(fields, "mechanism_id", "cause_id")
	case LevelControl:
		fields = append(fields, "mechanism_id", "cause_id", "control_id")
	case LevelAction:
		fields = append(fields, "mechanism_id", "cause_id", "action_id")
	case LevelOpLoad:
		fields = append(fields, "mechanism_id", "load_id")
	case LevelOpStress:
		fields = append(fields, "mechanism_id", "load_id", "stress_id")
	case LevelTestMethod:
		fields = append(fields, "mechanism_id", "load_id", "test_id")
	}
	return fields
}

// Change describes a mutation applied to a record during a transaction.
type Change struct {
	Level  Level
	Action ChangeAction
	Before Record
	After  Record
}

// ChangeAction indicates the type of modification performed.
type ChangeAction string

// Change actions captured by persistence transactions.
const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Level    Level
	Key      string
}

// Result aggregates rule violations for a transaction.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation blocks commit.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
