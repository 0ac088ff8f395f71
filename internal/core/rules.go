package core

import "ramstk/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewRPNInputsRule())
	engine.Register(NewCriticalityInputsRule())
	return engine
}
