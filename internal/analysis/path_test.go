package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramstk/internal/analysis"
	"ramstk/pkg/domain"
)

func TestPathStringSuffixes(t *testing.T) {
	cause := analysis.Path{{Level: domain.LevelMode, ID: 6}, {Level: domain.LevelMechanism, ID: 3}, {Level: domain.LevelCause, ID: 3}}
	cases := map[string]analysis.Path{
		"0":        {},
		"6":        cause[:1],
		"6.3.3":    cause,
		"6.3.3.3c": cause.Child(domain.LevelControl, 3),
		"6.3.3.3a": cause.Child(domain.LevelAction, 3),
	}
	for want, p := range cases {
		assert.Equal(t, want, p.String())
	}

	load := analysis.Path{{Level: domain.LevelMechanism, ID: 3}, {Level: domain.LevelOpLoad, ID: 1}}
	assert.Equal(t, "3.1.1s", load.Child(domain.LevelOpStress, 1).String())
	assert.Equal(t, "3.1.1t", load.Child(domain.LevelTestMethod, 1).String())
}

func TestParsePathRoundTrip(t *testing.T) {
	for h, ids := range map[domain.Hierarchy][]string{
		domain.HierarchyFMEA: {"0", "6", "6.3", "6.3.3", "6.3.3.3c", "6.3.3.3a"},
		domain.HierarchyPoF:  {"3", "3.1", "3.1.1s", "3.1.1t"},
	} {
		for _, id := range ids {
			p, err := analysis.ParsePath(h, id)
			require.NoError(t, err, id)
			assert.Equal(t, id, p.String())
		}
	}
}

func TestParsePathRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "6.x", "6.3.3.3", "6.3.3.3s", "6c.3", "6.3.3.3.3c"} {
		_, err := analysis.ParsePath(domain.HierarchyFMEA, raw)
		assert.Error(t, err, raw)
	}
	_, err := analysis.ParsePath(domain.HierarchyPoF, "3.1.1c")
	assert.Error(t, err)
}

func TestControlAndActionWithSameIDsStayDistinct(t *testing.T) {
	cause := mustPath(t, domain.HierarchyFMEA, "1.1.1")
	control := cause.Child(domain.LevelControl, 1)
	action := cause.Child(domain.LevelAction, 1)
	assert.False(t, control.Equal(action))
	assert.NotEqual(t, control.String(), action.String())
	assert.Equal(t, control.Key(nil), action.Key(nil))
}

func TestPathOf(t *testing.T) {
	p, err := analysis.PathOf(domain.HierarchyFMEA, record(t, domain.LevelAction, 6, 3, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, "6.3.3.2a", p.String())

	p, err = analysis.PathOf(domain.HierarchyPoF, record(t, domain.LevelTestMethod, 6, 3, 1, 4))
	require.NoError(t, err)
	assert.Equal(t, "3.1.4t", p.String())
	assert.Equal(t, domain.Key{6, 3, 1, 4}, p.Key(domain.Key{6}))

	_, err = analysis.PathOf(domain.HierarchyFMEA, record(t, domain.LevelOpLoad, 6, 3, 1))
	assert.Error(t, err)

	_, err = analysis.PathOf(domain.HierarchyPoF, record(t, domain.LevelControl, 6, 3, 3, 3))
	assert.Error(t, err)
}

func TestPathPrefixAndParent(t *testing.T) {
	control := mustPath(t, domain.HierarchyFMEA, "6.3.3.3c")
	mech := mustPath(t, domain.HierarchyFMEA, "6.3")
	assert.True(t, control.HasPrefix(mech))
	assert.False(t, mech.HasPrefix(control))
	assert.Equal(t, "6.3.3", control.Parent().String())
	assert.True(t, analysis.Path{}.IsRoot())
	assert.Equal(t, domain.LevelControl, control.Level())
}
