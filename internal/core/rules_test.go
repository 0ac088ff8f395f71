package core_test

import (
	"context"
	"testing"

	"ramstk/internal/core"
	"ramstk/pkg/domain"
)

func TestDefaultRulesEngineRegistersBuiltins(t *testing.T) {
	names := core.NewDefaultRulesEngine().Rules()
	want := map[string]bool{"rpn_inputs": false, "criticality_inputs": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Fatalf("rule %s not registered (have %v)", n, names)
		}
	}
}

func TestRPNInputsRuleWarnsOnCauseRatings(t *testing.T) {
	cause := mustRecord(t, domain.LevelCause, 1, 1, 1).(*domain.Cause)
	cause.RPNOccurrence = 0
	cause.RPNDetectionNew = 11
	res, err := core.NewRPNInputsRule().Evaluate(context.Background(), nil, []domain.Change{
		{Level: domain.LevelCause, Action: domain.ActionUpdate, After: cause},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", res.Violations)
	}
	for _, v := range res.Violations {
		if v.Severity != domain.SeverityWarn || v.Key != "1.1.1" {
			t.Fatalf("unexpected violation %+v", v)
		}
	}
}

func TestRPNInputsRuleIgnoresDeletesAndControls(t *testing.T) {
	res, err := core.NewRPNInputsRule().Evaluate(context.Background(), nil, []domain.Change{
		{Level: domain.LevelMode, Action: domain.ActionDelete, Before: mustRecord(t, domain.LevelMode, 1)},
		{Level: domain.LevelControl, Action: domain.ActionCreate, After: mustRecord(t, domain.LevelControl, 1, 1, 1, 1)},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("unexpected violations: %+v", res.Violations)
	}
}

func TestCriticalityInputsRule(t *testing.T) {
	mode := mustRecord(t, domain.LevelMode, 1).(*domain.Mode)
	mode.ModeRatio = 1.5
	mode.EffectProbability = 0.5
	mode.ModeOpTime = -1
	res, err := core.NewCriticalityInputsRule().Evaluate(context.Background(), nil, []domain.Change{
		{Level: domain.LevelMode, Action: domain.ActionUpdate, After: mode},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected ratio and op time violations, got %+v", res.Violations)
	}
}
