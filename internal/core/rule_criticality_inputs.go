package core

import (
	"context"
	"fmt"

	"ramstk/pkg/domain"
)

// NewCriticalityInputsRule flags mode ratios and effect probabilities outside
// [0, 1] and negative operating times.
func NewCriticalityInputsRule() domain.Rule {
	return criticalityInputsRule{}
}

type criticalityInputsRule struct{}

func (criticalityInputsRule) Name() string { return "criticality_inputs" }

func (r criticalityInputsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		mode, ok := change.After.(*domain.Mode)
		if !ok {
			continue
		}
		warn := func(msg string) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  msg,
				Level:    domain.LevelMode,
				Key:      mode.Key().String(),
			})
		}
		if mode.ModeRatio < 0 || mode.ModeRatio > 1 {
			warn(fmt.Sprintf("mode_ratio = %g outside [0, 1]", mode.ModeRatio))
		}
		if mode.EffectProbability < 0 || mode.EffectProbability > 1 {
			warn(fmt.Sprintf("effect_probability = %g outside [0, 1]", mode.EffectProbability))
		}
		if mode.ModeOpTime < 0 {
			warn(fmt.Sprintf("mode_op_time = %g is negative", mode.ModeOpTime))
		}
	}
	return res, nil
}
