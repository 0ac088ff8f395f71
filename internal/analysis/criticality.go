package analysis

import (
	"math"

	"ramstk/pkg/domain"
)

// ModeCriticality is the MIL-STD-1629A result for one failure mode.
type ModeCriticality struct {
	Key           domain.Key
	SeverityClass string
	HazardRate    float64
	Criticality   float64
}

// CalculateModeCriticality computes the mode hazard rate (item hazard rate
// times mode ratio) and the mode criticality (hazard rate times operating
// time times effect probability).
func CalculateModeCriticality(itemHR float64, mode *domain.Mode) (ModeCriticality, error) {
	node := mode.Key().String()
	if !(itemHR > 0) || math.IsInf(itemHR, 0) {
		return ModeCriticality{}, domain.OutOfRangeError{Field: "item_hazard_rate", Value: itemHR, Min: 0, Max: math.Inf(1), Node: node}
	}
	if !(mode.ModeRatio >= 0 && mode.ModeRatio <= 1) {
		return ModeCriticality{}, domain.OutOfRangeError{Field: "mode_ratio", Value: mode.ModeRatio, Min: 0, Max: 1, Node: node}
	}
	if !(mode.ModeOpTime >= 0) || math.IsInf(mode.ModeOpTime, 0) {
		return ModeCriticality{}, domain.OutOfRangeError{Field: "mode_op_time", Value: mode.ModeOpTime, Min: 0, Max: math.Inf(1), Node: node}
	}
	if !(mode.EffectProbability >= 0 && mode.EffectProbability <= 1) {
		return ModeCriticality{}, domain.OutOfRangeError{Field: "effect_probability", Value: mode.EffectProbability, Min: 0, Max: 1, Node: node}
	}
	hr := itemHR * mode.ModeRatio
	if !(hr >= 0) {
		return ModeCriticality{}, domain.OutOfRangeError{Field: "mode_hazard_rate", Value: hr, Min: 0, Max: math.Inf(1), Node: node}
	}
	crit := hr * mode.ModeOpTime * mode.EffectProbability
	if !(crit >= 0) {
		return ModeCriticality{}, domain.OutOfRangeError{Field: "mode_criticality", Value: crit, Min: 0, Max: math.Inf(1), Node: node}
	}
	return ModeCriticality{
		Key:           mode.Key().Clone(),
		SeverityClass: mode.SeverityClass,
		HazardRate:    hr,
		Criticality:   crit,
	}, nil
}

// CalculateItemCriticality computes every mode and sums mode criticality by
// severity class. The first invalid mode aborts the whole calculation.
func CalculateItemCriticality(itemHR float64, modes []*domain.Mode) (map[string]float64, []ModeCriticality, error) {
	if !(itemHR > 0) || math.IsInf(itemHR, 0) {
		return nil, nil, domain.OutOfRangeError{Field: "item_hazard_rate", Value: itemHR, Min: 0, Max: math.Inf(1)}
	}
	results := make([]ModeCriticality, 0, len(modes))
	item := make(map[string]float64)
	for _, mode := range modes {
		res, err := CalculateModeCriticality(itemHR, mode)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, res)
		item[res.SeverityClass] += res.Criticality
	}
	return item, results, nil
}
