package nsafero

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/keyfs/keyfs"
)

func setupTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := New(afero.NewMemMapFs(), afero.NewMemMapFs())
	require.NoError(t, err)
	require.NoError(t, backend.CreateBucket(context.Background(), "bucket"))
	return backend
}

func TestOsFsRefused(t *testing.T) {
	_, err := New(afero.NewOsFs(), nil)
	require.Error(t, err)

	// a rooted view of the host filesystem is fine
	_, err = New(afero.NewBasePathFs(afero.NewMemMapFs(), "base"), nil)
	require.NoError(t, err)
}

func TestBucketLifecycle(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	err := backend.CreateBucket(ctx, "bucket")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrBucketAlreadyExists))

	exists, err := backend.BucketExists(ctx, "bucket")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, backend.PutEntry(ctx, "bucket", &keyfs.Entry{Key: "a"}))
	err = backend.DeleteBucket(ctx, "bucket")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrBucketNotEmpty))

	require.NoError(t, backend.DeleteEntry(ctx, "bucket", "a"))
	require.NoError(t, backend.DeleteBucket(ctx, "bucket"))

	exists, err = backend.BucketExists(ctx, "bucket")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEntrySidecarState(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	in := &keyfs.Entry{
		Key:          "dir/file",
		Size:         42,
		Metadata:     map[string]string{"k": "v"},
		LastModified: time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, backend.PutEntry(ctx, "bucket", in))

	// logical size and metadata come from the sidecar, not the zero-byte
	// marker file
	out, err := backend.GetEntry(ctx, "bucket", "dir/file")
	require.NoError(t, err)
	require.Equal(t, int64(42), out.Size)
	require.Equal(t, map[string]string{"k": "v"}, out.Metadata)
	require.True(t, in.LastModified.Equal(out.LastModified))

	// the parent directory was materialized by the filesystem
	parent, err := backend.GetEntry(ctx, "bucket", "dir/")
	require.NoError(t, err)
	require.True(t, parent.IsDir())

	// a directory key never resolves as a file, and vice versa
	_, err = backend.GetEntry(ctx, "bucket", "dir")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrNoSuchEntry))
	_, err = backend.GetEntry(ctx, "bucket", "dir/file/")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrNoSuchEntry))
}

func TestListKeysSortedByPrefix(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	for _, key := range []string{"b", "a/z", "a/b/c", "a-x"} {
		require.NoError(t, backend.PutEntry(ctx, "bucket", &keyfs.Entry{Key: key}))
	}

	keys, err := backend.ListKeys(ctx, "bucket", "")
	require.NoError(t, err)
	require.Equal(t, []string{"a-x", "a/", "a/b/", "a/b/c", "a/z", "b"}, keys)

	keys, err = backend.ListKeys(ctx, "bucket", "a/")
	require.NoError(t, err)
	require.Equal(t, []string{"a/", "a/b/", "a/b/c", "a/z"}, keys)

	_, err = backend.ListKeys(ctx, "nope", "")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrNoSuchBucket))
}

func TestDeleteDirectoryKeyRemovesSubtree(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	for _, key := range []string{"a/b/file", "a/other", "keep"} {
		require.NoError(t, backend.PutEntry(ctx, "bucket", &keyfs.Entry{Key: key}))
	}

	require.NoError(t, backend.DeleteEntry(ctx, "bucket", "a/"))

	keys, err := backend.ListKeys(ctx, "bucket", "")
	require.NoError(t, err)
	require.Equal(t, []string{"keep"}, keys)

	// deleting a missing key is not an error
	require.NoError(t, backend.DeleteEntry(ctx, "bucket", "ghost"))
}
