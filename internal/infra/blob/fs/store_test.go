package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramstk/internal/blob/core"
	"ramstk/internal/infra/blob/fs"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := fs.New(root)
	require.NoError(t, err)
	assert.Equal(t, core.DriverFilesystem, s.Driver())
	assert.Equal(t, root, s.Root())

	info, err := s.Put(ctx, "worksheets/1/1/fmea.yaml", strings.NewReader("id: \"0\"\n"), core.PutOptions{
		ContentType: "application/yaml",
		Metadata:    map[string]string{"hierarchy": "fmea"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 8, info.Size)
	assert.Len(t, info.ETag, 64)
	assert.FileExists(t, filepath.Join(root, "worksheets", "1", "1", "fmea.yaml"))
	assert.FileExists(t, filepath.Join(root, "worksheets", "1", "1", "fmea.yaml.meta"))

	head, err := s.Head(ctx, "worksheets/1/1/fmea.yaml")
	require.NoError(t, err)
	assert.Equal(t, info.ETag, head.ETag)
	assert.Equal(t, "fmea", head.Metadata["hierarchy"])

	got, rc, err := s.Get(ctx, "worksheets/1/1/fmea.yaml")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "id: \"0\"\n", string(body))
	assert.Equal(t, "application/yaml", got.ContentType)

	_, err = s.Put(ctx, "worksheets/1/1/fmea.yaml", strings.NewReader("x"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrExists)
	_, err = s.Put(ctx, "worksheets/1/1/fmea.yaml", strings.NewReader("x"), core.PutOptions{Overwrite: true})
	require.NoError(t, err)

	_, err = s.Put(ctx, "worksheets/2/1/pof.json", strings.NewReader("{}"), core.PutOptions{})
	require.NoError(t, err)
	list, err := s.List(ctx, "worksheets/1/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "worksheets/1/1/fmea.yaml", list[0].Key)
	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ok, err := s.Delete(ctx, "worksheets/2/1/pof.json")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "worksheets/2/1/pof.json")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = os.Stat(filepath.Join(root, "worksheets", "2", "1", "pof.json.meta"))
	assert.True(t, os.IsNotExist(err))

	_, err = s.Head(ctx, "worksheets/2/1/pof.json")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = s.Get(ctx, "worksheets/2/1/pof.json")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	s, err := fs.New(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "  ", "/etc/passwd", "../escape", "a/../../b", "x.meta"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{})
		assert.ErrorIs(t, err, core.ErrInvalid, key)
	}
}

func TestNewDefaultsRoot(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	s, err := fs.New("")
	require.NoError(t, err)
	assert.Equal(t, fs.DefaultRoot, s.Root())
	assert.DirExists(t, fs.DefaultRoot)
}
