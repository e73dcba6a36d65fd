package nsbolt

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyfs/keyfs"
)

func setupTestBackend(t *testing.T) (*Backend, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "nsbolt-test-")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	backend, err := NewFile(f.Name(), WithTimeSource(
		keyfs.FixedTimeSource(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, err)

	return backend, func() {
		require.NoError(t, backend.Close())
		require.NoError(t, os.Remove(f.Name()))
	}
}

func TestBucketLifecycle(t *testing.T) {
	backend, done := setupTestBackend(t)
	defer done()
	ctx := context.Background()

	require.NoError(t, backend.CreateBucket(ctx, "bucket"))
	err := backend.CreateBucket(ctx, "bucket")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrBucketAlreadyExists))

	exists, err := backend.BucketExists(ctx, "bucket")
	require.NoError(t, err)
	require.True(t, exists)

	buckets, err := backend.ListBuckets(ctx)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, "bucket", buckets[0].Name)
	require.Equal(t, 2021, buckets[0].CreationDate.Year())

	require.NoError(t, backend.PutEntry(ctx, "bucket", &keyfs.Entry{Key: "a"}))
	err = backend.DeleteBucket(ctx, "bucket")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrBucketNotEmpty))

	require.NoError(t, backend.DeleteEntry(ctx, "bucket", "a"))
	require.NoError(t, backend.DeleteBucket(ctx, "bucket"))

	exists, err = backend.BucketExists(ctx, "bucket")
	require.NoError(t, err)
	require.False(t, exists)

	err = backend.DeleteBucket(ctx, "bucket")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrNoSuchBucket))
}

func TestEntryRoundTrip(t *testing.T) {
	backend, done := setupTestBackend(t)
	defer done()
	ctx := context.Background()

	require.NoError(t, backend.CreateBucket(ctx, "bucket"))

	in := &keyfs.Entry{
		Key:          "dir/file",
		Size:         42,
		Metadata:     map[string]string{"k": "v"},
		LastModified: time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, backend.PutEntry(ctx, "bucket", in))

	out, err := backend.GetEntry(ctx, "bucket", "dir/file")
	require.NoError(t, err)
	require.Equal(t, in.Key, out.Key)
	require.Equal(t, in.Size, out.Size)
	require.Equal(t, in.Metadata, out.Metadata)
	require.True(t, in.LastModified.Equal(out.LastModified))

	_, err = backend.GetEntry(ctx, "bucket", "nope")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrNoSuchEntry))

	_, err = backend.GetEntry(ctx, "nope", "dir/file")
	require.True(t, keyfs.HasErrorCode(err, keyfs.ErrNoSuchBucket))

	require.NoError(t, backend.DeleteEntry(ctx, "bucket", "nope"))
}

func TestListKeysSortedByPrefix(t *testing.T) {
	backend, done := setupTestBackend(t)
	defer done()
	ctx := context.Background()

	require.NoError(t, backend.CreateBucket(ctx, "bucket"))
	for _, key := range []string{"b", "a/z", "a/", "a/b/c", "a-x", "c/"} {
		require.NoError(t, backend.PutEntry(ctx, "bucket", &keyfs.Entry{Key: key}))
	}

	for _, tc := range []struct {
		prefix string
		keys   []string
	}{
		{"", []string{"a-x", "a/", "a/b/c", "a/z", "b", "c/"}},
		{"a/", []string{"a/", "a/b/c", "a/z"}},
		{"zzz", nil},
	} {
		keys, err := backend.ListKeys(ctx, "bucket", tc.prefix)
		require.NoError(t, err)
		require.Equal(t, tc.keys, keys, "prefix %q", tc.prefix)
	}
}

func TestBucketMetadataPersists(t *testing.T) {
	f, err := os.CreateTemp("", "nsbolt-test-")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	defer os.Remove(f.Name())

	ctx := context.Background()

	backend, err := NewFile(f.Name())
	require.NoError(t, err)
	require.NoError(t, backend.CreateBucket(ctx, "bucket"))
	require.NoError(t, backend.SetBucketMetadata(ctx, "bucket", keyfs.FSOptimizedMetadata()))
	require.NoError(t, backend.Close())

	// reopen: layout selection must survive a restart
	backend, err = NewFile(f.Name())
	require.NoError(t, err)
	defer backend.Close()

	md, err := backend.BucketMetadata(ctx, "bucket")
	require.NoError(t, err)
	require.True(t, keyfs.IsFSOptimizedBucket(md))
}
