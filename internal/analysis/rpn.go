package analysis

import (
	"errors"
	"fmt"
	"strings"

	"ramstk/pkg/domain"
)

// Rating and RPN bounds.
const (
	MinRating = 1
	MaxRating = 10
	MinRPN    = 1
	MaxRPN    = 1000
)

// RPNMethod selects which level carries occurrence and detection.
type RPNMethod string

// Supported RPN methods.
const (
	RPNMethodMechanism RPNMethod = "mechanism"
	RPNMethodCause     RPNMethod = "cause"
)

// ParseRPNMethod resolves "mechanism" or "cause".
func ParseRPNMethod(raw string) (RPNMethod, error) {
	switch m := RPNMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case RPNMethodMechanism, RPNMethodCause:
		return m, nil
	default:
		return "", fmt.Errorf("unknown rpn method %q", raw)
	}
}

// Level returns the level whose records receive the RPN.
func (m RPNMethod) Level() domain.Level {
	if m == RPNMethodCause {
		return domain.LevelCause
	}
	return domain.LevelMechanism
}

// RPNResult is the computed pair for one mechanism or cause.
type RPNResult struct {
	Key    domain.Key
	RPN    int
	RPNNew int
}

// RPN multiplies severity, occurrence, and detection after checking each
// rating and the product against their bounds.
func RPN(severity, occurrence, detection int) (int, error) {
	for _, r := range []struct {
		field string
		value int
	}{
		{"severity", severity},
		{"occurrence", occurrence},
		{"detection", detection},
	} {
		if err := checkRating(r.field, r.value, ""); err != nil {
			return 0, err
		}
	}
	rpn := severity * occurrence * detection
	if rpn < MinRPN || rpn > MaxRPN {
		return 0, domain.OutOfRangeError{Field: "rpn", Value: float64(rpn), Min: MinRPN, Max: MaxRPN}
	}
	return rpn, nil
}

// CalculateRPN computes rpn and rpn_new for each child of mode. Children
// must all be at method's level. Every input is validated before any result
// is returned, so a single bad rating yields no results at all.
func CalculateRPN(mode *domain.Mode, children []domain.RPNSource, method RPNMethod) ([]RPNResult, error) {
	if mode == nil {
		return nil, fmt.Errorf("calculate rpn: nil mode")
	}
	node := mode.Key().String()
	if err := checkRating("rpn_severity", mode.RPNSeverity, node); err != nil {
		return nil, err
	}
	if err := checkRating("rpn_severity_new", mode.RPNSeverityNew, node); err != nil {
		return nil, err
	}
	out := make([]RPNResult, 0, len(children))
	for _, child := range children {
		if child.Level() != method.Level() {
			return nil, fmt.Errorf("calculate rpn: %s method given a %s record", method, child.Level())
		}
		if !child.Key().HasPrefix(mode.Key()) {
			return nil, fmt.Errorf("calculate rpn: %s %s is not beneath mode %s", child.Level(), child.Key(), node)
		}
		occ, det, occNew, detNew := child.RPNInputs()
		childNode := child.Key().String()
		for _, r := range []struct {
			field string
			value int
		}{
			{"rpn_occurrence", occ},
			{"rpn_detection", det},
			{"rpn_occurrence_new", occNew},
			{"rpn_detection_new", detNew},
		} {
			if err := checkRating(r.field, r.value, childNode); err != nil {
				return nil, err
			}
		}
		rpn, err := RPN(mode.RPNSeverity, occ, det)
		if err != nil {
			return nil, withNode(err, childNode)
		}
		rpnNew, err := RPN(mode.RPNSeverityNew, occNew, detNew)
		if err != nil {
			return nil, withNode(err, childNode)
		}
		out = append(out, RPNResult{Key: child.Key().Clone(), RPN: rpn, RPNNew: rpnNew})
	}
	return out, nil
}

func checkRating(field string, value int, node string) error {
	if value < MinRating || value > MaxRating {
		return domain.OutOfRangeError{Field: field, Value: float64(value), Min: MinRating, Max: MaxRating, Node: node}
	}
	return nil
}

func withNode(err error, node string) error {
	var oor domain.OutOfRangeError
	if errors.As(err, &oor) && oor.Node == "" {
		oor.Node = node
		return oor
	}
	return err
}
