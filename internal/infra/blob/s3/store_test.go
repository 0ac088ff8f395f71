package s3_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramstk/internal/blob/core"
	"ramstk/internal/infra/blob/s3"
	"ramstk/internal/infra/blob/s3/s3test"
)

func newFakeStore(t *testing.T) (*s3.Store, *s3test.FakeTransport) {
	t.Helper()
	cfg, rt := s3test.FakeConfig("ramstk-worksheets")
	s, err := s3.New(context.Background(), cfg)
	require.NoError(t, err)
	return s, rt
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := s3.New(context.Background(), s3.Config{})
	require.Error(t, err)
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, rt := newFakeStore(t)
	assert.Equal(t, core.DriverS3, s.Driver())
	assert.Equal(t, "ramstk-worksheets", s.Bucket())

	info, err := s.Put(ctx, "worksheets/1/1/fmea.json", strings.NewReader(`{"id":"0"}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"hierarchy": "fmea"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 10, info.Size)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Equal(t, "fmea", info.Metadata["hierarchy"])
	assert.Equal(t, []string{"worksheets/1/1/fmea.json"}, rt.Keys())

	got, rc, err := s.Get(ctx, "worksheets/1/1/fmea.json")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, `{"id":"0"}`, string(body))
	assert.Equal(t, info.ETag, got.ETag)

	_, err = s.Put(ctx, "worksheets/1/1/fmea.json", strings.NewReader("x"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrExists)
	info, err = s.Put(ctx, "worksheets/1/1/fmea.json", strings.NewReader("xy"), core.PutOptions{Overwrite: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.Size)

	ok, err := s.Delete(ctx, "worksheets/1/1/fmea.json")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "worksheets/1/1/fmea.json")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Head(ctx, "worksheets/1/1/fmea.json")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = s.Get(ctx, "worksheets/1/1/fmea.json")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	s, rt := newFakeStore(t)
	rt.PageSize = 1
	for _, key := range []string{"worksheets/1/1/pof.json", "worksheets/1/1/fmea.json", "other/x"} {
		_, err := s.Put(ctx, key, strings.NewReader("{}"), core.PutOptions{})
		require.NoError(t, err)
	}
	list, err := s.List(ctx, "worksheets/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "worksheets/1/1/fmea.json", list[0].Key)
	assert.Equal(t, "worksheets/1/1/pof.json", list[1].Key)
	assert.EqualValues(t, 2, list[0].Size)
}
