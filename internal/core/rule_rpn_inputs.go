package core

import (
	"context"
	"fmt"

	"ramstk/pkg/domain"
)

// NewRPNInputsRule flags severity, occurrence, and detection ratings written
// outside [1, 10]. Records are still saved; the RPN calculator rejects them
// later.
func NewRPNInputsRule() domain.Rule {
	return rpnInputsRule{}
}

type rpnInputsRule struct{}

func (rpnInputsRule) Name() string { return "rpn_inputs" }

func (r rpnInputsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		for field, value := range ratings(change.After) {
			if value >= 1 && value <= 10 {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("%s = %d outside [1, 10]", field, value),
				Level:    change.Level,
				Key:      change.After.Key().String(),
			})
		}
	}
	return res, nil
}

func ratings(rec domain.Record) map[string]int {
	switch r := rec.(type) {
	case *domain.Mode:
		return map[string]int{"rpn_severity": r.RPNSeverity, "rpn_severity_new": r.RPNSeverityNew}
	case domain.RPNSource:
		occ, det, occNew, detNew := r.RPNInputs()
		return map[string]int{
			"rpn_occurrence":     occ,
			"rpn_detection":      det,
			"rpn_occurrence_new": occNew,
			"rpn_detection_new":  detNew,
		}
	default:
		return nil
	}
}
