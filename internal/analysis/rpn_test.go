package analysis_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramstk/internal/analysis"
	"ramstk/pkg/domain"
)

func rpnFixture(t *testing.T) (*domain.Mode, *domain.Mechanism) {
	t.Helper()
	mode := record(t, domain.LevelMode, 6).(*domain.Mode)
	mode.RPNSeverity, mode.RPNSeverityNew = 8, 8
	mech := record(t, domain.LevelMechanism, 6, 3).(*domain.Mechanism)
	mech.RPNOccurrence, mech.RPNDetection = 8, 3
	mech.RPNOccurrenceNew, mech.RPNDetectionNew = 4, 2
	return mode, mech
}

func TestCalculateRPNMechanism(t *testing.T) {
	mode, mech := rpnFixture(t)
	results, err := analysis.CalculateRPN(mode, []domain.RPNSource{mech}, analysis.RPNMethodMechanism)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 192, results[0].RPN)
	assert.Equal(t, 64, results[0].RPNNew)
	assert.Equal(t, domain.Key{6, 3}, results[0].Key)
	assert.Zero(t, mech.RPN, "calculation alone writes nothing")
}

func TestRPNWithinBoundsForAllValidRatings(t *testing.T) {
	for s := analysis.MinRating; s <= analysis.MaxRating; s++ {
		for o := analysis.MinRating; o <= analysis.MaxRating; o++ {
			for d := analysis.MinRating; d <= analysis.MaxRating; d++ {
				rpn, err := analysis.RPN(s, o, d)
				require.NoError(t, err)
				require.Equal(t, s*o*d, rpn)
				require.GreaterOrEqual(t, rpn, analysis.MinRPN)
				require.LessOrEqual(t, rpn, analysis.MaxRPN)
			}
		}
	}
}

func TestRPNRejectsOutOfRangeRatings(t *testing.T) {
	for _, in := range [][3]int{{0, 5, 5}, {11, 5, 5}, {5, 0, 5}, {5, 11, 5}, {5, 5, 0}, {5, 5, -3}} {
		_, err := analysis.RPN(in[0], in[1], in[2])
		assert.True(t, errors.Is(err, domain.ErrOutOfRange), "%v", in)
	}
}

func TestCalculateRPNRejectsBadInputsBeforeComputing(t *testing.T) {
	mode, mech := rpnFixture(t)
	good := record(t, domain.LevelMechanism, 6, 1).(*domain.Mechanism)
	mech.RPNDetectionNew = 11

	results, err := analysis.CalculateRPN(mode, []domain.RPNSource{good, mech}, analysis.RPNMethodMechanism)
	require.Error(t, err)
	assert.Nil(t, results)

	var oor domain.OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, "rpn_detection_new", oor.Field)
	assert.Equal(t, "6.3", oor.Node)

	mode.RPNSeverity = 0
	_, err = analysis.CalculateRPN(mode, nil, analysis.RPNMethodMechanism)
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, "rpn_severity", oor.Field)
}

func TestCalculateRPNChecksMethodLevel(t *testing.T) {
	mode, mech := rpnFixture(t)
	_, err := analysis.CalculateRPN(mode, []domain.RPNSource{mech}, analysis.RPNMethodCause)
	assert.Error(t, err)

	stranger := record(t, domain.LevelMechanism, 9, 1).(*domain.Mechanism)
	_, err = analysis.CalculateRPN(mode, []domain.RPNSource{stranger}, analysis.RPNMethodMechanism)
	assert.Error(t, err)
}

func TestCalculateRPNDeterministicAcrossOrder(t *testing.T) {
	mode, mech := rpnFixture(t)
	other := record(t, domain.LevelMechanism, 6, 4).(*domain.Mechanism)
	other.RPNOccurrence, other.RPNDetection = 2, 2

	forward, err := analysis.CalculateRPN(mode, []domain.RPNSource{mech, other}, analysis.RPNMethodMechanism)
	require.NoError(t, err)
	backward, err := analysis.CalculateRPN(mode, []domain.RPNSource{other, mech}, analysis.RPNMethodMechanism)
	require.NoError(t, err)
	again, err := analysis.CalculateRPN(mode, []domain.RPNSource{mech, other}, analysis.RPNMethodMechanism)
	require.NoError(t, err)

	assert.Equal(t, forward, again)
	assert.Equal(t, forward[0], backward[1])
	assert.Equal(t, forward[1], backward[0])
}

func TestParseRPNMethod(t *testing.T) {
	m, err := analysis.ParseRPNMethod(" Cause ")
	require.NoError(t, err)
	assert.Equal(t, analysis.RPNMethodCause, m)
	assert.Equal(t, domain.LevelCause, m.Level())
	_, err = analysis.ParseRPNMethod("mode")
	assert.Error(t, err)
}
