package analysis_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramstk/internal/analysis"
	"ramstk/pkg/domain"
)

func buildFMEATree(t *testing.T) *analysis.Tree {
	t.Helper()
	tree := analysis.NewTree(domain.HierarchyFMEA)
	for _, rec := range []domain.Record{
		record(t, domain.LevelMode, 6),
		record(t, domain.LevelMechanism, 6, 3),
		record(t, domain.LevelCause, 6, 3, 3),
		record(t, domain.LevelControl, 6, 3, 3, 3),
		record(t, domain.LevelAction, 6, 3, 3, 3),
		record(t, domain.LevelMode, 7),
	} {
		p, err := analysis.PathOf(domain.HierarchyFMEA, rec)
		require.NoError(t, err)
		require.NoError(t, tree.Add(p, rec))
	}
	return tree
}

func TestTreeAddRequiresParent(t *testing.T) {
	tree := analysis.NewTree(domain.HierarchyFMEA)
	err := tree.Add(mustPath(t, domain.HierarchyFMEA, "6.3"), record(t, domain.LevelMechanism, 6, 3))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 0, tree.Len())
}

func TestTreeAddRejectsWrongLevelAndDuplicates(t *testing.T) {
	tree := buildFMEATree(t)
	bad := mustPath(t, domain.HierarchyFMEA, "6").Child(domain.LevelCause, 9)
	assert.Error(t, tree.Add(bad, record(t, domain.LevelCause, 6, 9, 9)))
	assert.Error(t, tree.Add(mustPath(t, domain.HierarchyFMEA, "6.3"), record(t, domain.LevelMechanism, 6, 3)))
	assert.Error(t, tree.Add(analysis.Path{}, nil))
}

func TestTreeWalkOrderAndIDs(t *testing.T) {
	tree := buildFMEATree(t)
	assert.Equal(t, []string{"6", "6.3", "6.3.3", "6.3.3.3c", "6.3.3.3a", "7"}, tree.IDs())
	assert.Equal(t, 6, tree.Len())
	assert.True(t, tree.Contains(analysis.Path{}))

	children := tree.Children(mustPath(t, domain.HierarchyFMEA, "6.3.3"))
	require.Len(t, children, 2)
	assert.Equal(t, "6.3.3.3c", children[0].ID())
	assert.Equal(t, domain.LevelAction, children[1].Record.Level())
}

func TestTreeRemoveCascades(t *testing.T) {
	tree := buildFMEATree(t)
	removed, err := tree.Remove(mustPath(t, domain.HierarchyFMEA, "6.3"))
	require.NoError(t, err)

	ids := make([]string, len(removed))
	for i, p := range removed {
		ids[i] = p.String()
	}
	assert.Equal(t, []string{"6.3", "6.3.3", "6.3.3.3c", "6.3.3.3a"}, ids)
	assert.Equal(t, []string{"6", "7"}, tree.IDs())

	_, err = tree.Remove(mustPath(t, domain.HierarchyFMEA, "6.3"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = tree.Remove(analysis.Path{})
	assert.Error(t, err)
}

func TestTreeReusesRemovedSlots(t *testing.T) {
	tree := buildFMEATree(t)
	_, err := tree.Remove(mustPath(t, domain.HierarchyFMEA, "6.3"))
	require.NoError(t, err)

	require.NoError(t, tree.Add(mustPath(t, domain.HierarchyFMEA, "7.1"), record(t, domain.LevelMechanism, 7, 1)))
	node, ok := tree.Get(mustPath(t, domain.HierarchyFMEA, "7.1"))
	require.True(t, ok)
	assert.Equal(t, domain.Key{7, 1}, node.Record.Key())
	assert.Equal(t, []string{"6", "7", "7.1"}, tree.IDs())
}

func TestTreeWalkStopsOnError(t *testing.T) {
	tree := buildFMEATree(t)
	stop := errors.New("stop")
	visited := 0
	err := tree.Walk(func(analysis.Node) error {
		visited++
		if visited == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, visited)
}

func TestTreeReplace(t *testing.T) {
	tree := buildFMEATree(t)
	p := mustPath(t, domain.HierarchyFMEA, "7")
	repl := record(t, domain.LevelMode, 7).(*domain.Mode)
	repl.Description = "Short"
	require.NoError(t, tree.Replace(p, repl))
	node, _ := tree.Get(p)
	assert.Equal(t, "Short", node.Record.(*domain.Mode).Description)
	assert.Error(t, tree.Replace(analysis.Path{}, repl))
}
