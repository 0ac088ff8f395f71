package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelParentChain(t *testing.T) {
	assert.Equal(t, Level(0), LevelMode.Parent())
	assert.Equal(t, LevelMode, LevelMechanism.Parent())
	assert.Equal(t, LevelCause, LevelAction.Parent())
	assert.Equal(t, LevelOpLoad, LevelTestMethod.Parent())

	for _, l := range AllLevels() {
		if p := l.Parent(); p != 0 {
			assert.Equal(t, p.Depth()+1, l.Depth(), "depth of %s", l)
		}
	}
	assert.True(t, LevelControl.DescendsFrom(LevelMode))
	assert.True(t, LevelOpStress.DescendsFrom(LevelMechanism))
	assert.False(t, LevelOpStress.DescendsFrom(LevelCause))
	assert.False(t, LevelMode.DescendsFrom(LevelMode))
}

func TestLevelSuffixes(t *testing.T) {
	assert.Equal(t, "c", LevelControl.Suffix())
	assert.Equal(t, "a", LevelAction.Suffix())
	assert.Equal(t, "s", LevelOpStress.Suffix())
	assert.Equal(t, "t", LevelTestMethod.Suffix())
	assert.Empty(t, LevelCause.Suffix())
}

func TestParseLevel(t *testing.T) {
	for _, l := range AllLevels() {
		got, err := ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	got, err := ParseLevel("TestMethod")
	require.NoError(t, err)
	assert.Equal(t, LevelTestMethod, got)

	_, err = ParseLevel("hardware")
	assert.Error(t, err)
	assert.False(t, Level(0).Valid())
	assert.Equal(t, "level(42)", Level(42).String())
}

func TestHierarchyLevels(t *testing.T) {
	assert.Equal(t, LevelMode, HierarchyFMEA.Top())
	assert.Equal(t, LevelMechanism, HierarchyPoF.Top())
	assert.Equal(t, []Level{LevelControl, LevelAction}, HierarchyFMEA.Children(LevelCause))
	assert.Equal(t, []Level{LevelOpLoad}, HierarchyPoF.Children(LevelMechanism))
	assert.Equal(t, []Level{LevelCause}, HierarchyFMEA.Children(LevelMechanism))
	assert.True(t, HierarchyPoF.Contains(LevelOpStress))
	assert.False(t, HierarchyPoF.Contains(LevelMode))
	assert.Equal(t, 0, HierarchyFMEA.ScopeDepth())
	assert.Equal(t, 1, HierarchyPoF.ScopeDepth())

	h, err := ParseHierarchy("PoF")
	require.NoError(t, err)
	assert.Equal(t, HierarchyPoF, h)
	_, err = ParseHierarchy("fta")
	assert.Error(t, err)
}
