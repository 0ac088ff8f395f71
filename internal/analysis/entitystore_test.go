package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramstk/internal/analysis"
	"ramstk/internal/core"
	"ramstk/pkg/domain"
)

func TestEntityStoreSelectAllEmptyIsNotAnError(t *testing.T) {
	store := analysis.NewEntityStore(domain.LevelMode, scope, core.NewInMemoryService(nil))
	rows, err := store.SelectAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, store.LastID())
}

func TestEntityStoreSelectAllTracksLastID(t *testing.T) {
	svc := newService(t)
	store := analysis.NewEntityStore(domain.LevelMechanism, scope, svc)
	rows, err := store.SelectAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.Key{6, 3}, rows[0].Key())
	assert.Equal(t, 3, store.LastID())

	under7, err := store.SelectAll(context.Background(), domain.Key{7})
	require.NoError(t, err)
	assert.Len(t, under7, 1)
	assert.Equal(t, 2, store.Len(), "reloading one parent keeps the others cached")
}

func TestEntityStoreInsertAssignsNextID(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	store := analysis.NewEntityStore(domain.LevelMechanism, scope, svc)
	_, err := store.SelectAll(ctx, nil)
	require.NoError(t, err)

	rec, err := store.Insert(ctx, domain.Key{7})
	require.NoError(t, err)
	assert.Equal(t, domain.Key{7, 4}, rec.Key())
	assert.Equal(t, "New Failure Mechanism", rec.(*domain.Mechanism).Description)
	assert.Equal(t, 4, store.LastID())

	persisted, err := svc.SelectAll(ctx, domain.LevelMechanism, scope, domain.Key{7})
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestEntityStoreInsertUnderMissingModeKeepsLastID(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	store := analysis.NewEntityStore(domain.LevelMechanism, scope, svc)
	_, err := store.SelectAll(ctx, nil)
	require.NoError(t, err)

	_, err = store.Insert(ctx, domain.Key{99})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConstraint))
	assert.Equal(t, 3, store.LastID())
	assert.Equal(t, 2, store.Len())

	_, err = store.Insert(ctx, domain.Key{6, 3})
	assert.Error(t, err, "a mechanism parent key carries one id")
}

func TestEntityStoreUpdateInMemoryUntilSave(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	store := analysis.NewEntityStore(domain.LevelMode, scope, svc)
	_, err := store.SelectAll(ctx, nil)
	require.NoError(t, err)

	updated, err := store.Update(domain.Key{7}, map[string]any{"remarks": "checked", "mode_ratio": 0.25})
	require.NoError(t, err)
	assert.Equal(t, "checked", updated.(*domain.Mode).Remarks)

	before, err := svc.SelectAll(ctx, domain.LevelMode, scope, domain.Key{7})
	require.NoError(t, err)
	assert.Empty(t, before[0].(*domain.Mode).Remarks)

	require.NoError(t, store.Save(ctx, domain.Key{7}))
	after, err := svc.SelectAll(ctx, domain.LevelMode, scope, domain.Key{7})
	require.NoError(t, err)
	assert.Equal(t, "checked", after[0].(*domain.Mode).Remarks)
	assert.InDelta(t, 0.25, after[0].(*domain.Mode).ModeRatio, 1e-12)
}

func TestEntityStoreUpdateErrors(t *testing.T) {
	svc := newService(t)
	store := analysis.NewEntityStore(domain.LevelMode, scope, svc)
	_, err := store.SelectAll(context.Background(), nil)
	require.NoError(t, err)

	_, err = store.Update(domain.Key{42}, map[string]any{"remarks": "x"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = store.Update(domain.Key{7}, map[string]any{"mode_ratio": map[string]any{"nested": 1}})
	assert.True(t, errors.Is(err, domain.ErrTypeMismatch))

	_, err = store.Update(domain.Key{7}, map[string]any{"no_such_field": 1})
	assert.True(t, errors.Is(err, domain.ErrTypeMismatch))
}

func TestEntityStoreDeleteConsultsCache(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	store := analysis.NewEntityStore(domain.LevelMode, scope, svc)

	err := store.Delete(ctx, domain.Key{7})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "persisted rows outside the working set are not found")

	_, err = store.SelectAll(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, domain.Key{7}))
	_, err = store.Select(domain.Key{7})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestEntityStoreEvict(t *testing.T) {
	svc := newService(t)
	store := analysis.NewEntityStore(domain.LevelMechanism, scope, svc)
	_, err := store.SelectAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Evict(domain.Key{6}))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 3, store.LastID())
	assert.Len(t, store.Children(domain.Key{7}), 1)
}
