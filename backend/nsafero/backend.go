// Package nsafero provides a keyfs.Backend over an afero.Fs: buckets are
// top-level directories, directory-shaped keys map to directories and
// file-shaped keys to marker files. Because a filesystem cannot hold a
// key without its parents, every intermediate directory is always
// materialized, whatever the bucket layout says.
package nsafero

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/keyfs/keyfs"
)

type Backend struct {
	fs   afero.Fs
	meta *metaStore
}

var _ keyfs.Backend = &Backend{}

// New creates a Backend over fs. metaFs stores entry and bucket metadata
// sidecars; if it is nil an afero.NewMemMapFs() is used and metadata will
// not persist between runs.
func New(fs afero.Fs, metaFs afero.Fs) (*Backend, error) {
	if err := ensureNoOsFs("fs", fs); err != nil {
		return nil, err
	}
	if metaFs == nil {
		metaFs = afero.NewMemMapFs()
	} else if err := ensureNoOsFs("metaFs", metaFs); err != nil {
		return nil, err
	}
	return &Backend{fs: fs, meta: newMetaStore(metaFs)}, nil
}

// ensureNoOsFs mirrors the precaution the fs argument deserves: an
// unrooted afero.OsFs would expose the whole host filesystem as buckets.
func ensureNoOsFs(name string, fs afero.Fs) error {
	if _, ok := fs.(*afero.OsFs); ok {
		return keyfs.ResourceError(keyfs.ErrInternal,
			name+" is an afero.OsFs; wrap it in afero.NewBasePathFs to avoid exposing the entire filesystem")
	}
	return nil
}

func (db *Backend) bucketPath(bucket string) string { return bucket }

func (db *Backend) keyPath(bucket, key string) string {
	return bucket + "/" + keyfs.RemoveTrailingSlash(key)
}

func (db *Backend) CreateBucket(ctx context.Context, name string) error {
	exists, err := afero.DirExists(db.fs, db.bucketPath(name))
	if err != nil {
		return err
	}
	if exists {
		return keyfs.ResourceError(keyfs.ErrBucketAlreadyExists, name)
	}
	return db.fs.Mkdir(db.bucketPath(name), 0777)
}

func (db *Backend) BucketExists(ctx context.Context, name string) (bool, error) {
	return afero.DirExists(db.fs, db.bucketPath(name))
}

func (db *Backend) DeleteBucket(ctx context.Context, name string) error {
	exists, err := afero.DirExists(db.fs, db.bucketPath(name))
	if err != nil {
		return err
	}
	if !exists {
		return keyfs.ErrNoSuchBucket
	}
	empty, err := afero.IsEmpty(db.fs, db.bucketPath(name))
	if err != nil {
		return err
	}
	if !empty {
		return keyfs.ResourceError(keyfs.ErrBucketNotEmpty, name)
	}
	if err := db.fs.Remove(db.bucketPath(name)); err != nil {
		return err
	}
	return db.meta.deleteBucket(name)
}

func (db *Backend) ListBuckets(ctx context.Context) ([]keyfs.BucketInfo, error) {
	dirEntries, err := afero.ReadDir(db.fs, "")
	if err != nil {
		return nil, err
	}
	var buckets []keyfs.BucketInfo
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}
		buckets = append(buckets, keyfs.BucketInfo{
			Name:         dirEntry.Name(),
			CreationDate: dirEntry.ModTime(),
		})
	}
	return buckets, nil
}

func (db *Backend) BucketMetadata(ctx context.Context, name string) (map[string]string, error) {
	exists, err := afero.DirExists(db.fs, db.bucketPath(name))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, keyfs.BucketNotFound(name)
	}
	return db.meta.bucketMetadata(name)
}

func (db *Backend) SetBucketMetadata(ctx context.Context, name string, md map[string]string) error {
	exists, err := afero.DirExists(db.fs, db.bucketPath(name))
	if err != nil {
		return err
	}
	if !exists {
		return keyfs.BucketNotFound(name)
	}
	return db.meta.setBucketMetadata(name, md)
}

func (db *Backend) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	root := db.bucketPath(bucket)
	exists, err := afero.DirExists(db.fs, root)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, keyfs.BucketNotFound(bucket)
	}

	var keys []string
	err = afero.Walk(db.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		key := strings.TrimPrefix(path, root+"/")
		if info.IsDir() {
			key = keyfs.AddTrailingSlash(key)
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Walk visits parents before children, which is not quite
	// lexicographic order for keys ("a-x" sorts before "a/").
	sort.Strings(keys)

	filtered := keys[:0]
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			filtered = append(filtered, key)
		}
	}
	return filtered, nil
}

func (db *Backend) GetEntry(ctx context.Context, bucket, key string) (*keyfs.Entry, error) {
	exists, err := afero.DirExists(db.fs, db.bucketPath(bucket))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, keyfs.BucketNotFound(bucket)
	}

	info, err := db.fs.Stat(db.keyPath(bucket, key))
	if os.IsNotExist(err) {
		return nil, keyfs.EntryNotFound(key)
	} else if err != nil {
		return nil, err
	}
	if info.IsDir() != !keyfs.IsFile(key) {
		// shape mismatch: a file stored where the key asks for a
		// directory, or vice versa
		return nil, keyfs.EntryNotFound(key)
	}

	entry := &keyfs.Entry{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}
	sidecar, err := db.meta.load(bucket, key)
	if err != nil {
		return nil, err
	}
	if sidecar != nil {
		entry.Size = sidecar.Size
		entry.Metadata = sidecar.Meta
		if !sidecar.ModTime.IsZero() {
			entry.LastModified = sidecar.ModTime
		}
	}
	return entry, nil
}

func (db *Backend) PutEntry(ctx context.Context, bucket string, entry *keyfs.Entry) error {
	exists, err := afero.DirExists(db.fs, db.bucketPath(bucket))
	if err != nil {
		return err
	}
	if !exists {
		return keyfs.BucketNotFound(bucket)
	}

	path := db.keyPath(bucket, entry.Key)
	if !keyfs.IsFile(entry.Key) {
		if err := db.fs.MkdirAll(path, 0777); err != nil {
			return err
		}
	} else {
		parent := keyfs.Parent(entry.Key)
		if parent != "" {
			if err := db.fs.MkdirAll(db.keyPath(bucket, parent), 0777); err != nil {
				return err
			}
		}
		if err := afero.WriteFile(db.fs, path, nil, 0666); err != nil {
			return err
		}
	}
	return db.meta.save(bucket, entry.Key, &sidecarMeta{
		Size:    entry.Size,
		ModTime: entry.LastModified,
		Meta:    entry.Metadata,
	})
}

func (db *Backend) DeleteEntry(ctx context.Context, bucket, key string) error {
	exists, err := afero.DirExists(db.fs, db.bucketPath(bucket))
	if err != nil {
		return err
	}
	if !exists {
		return keyfs.BucketNotFound(bucket)
	}

	path := db.keyPath(bucket, key)
	if keyfs.IsFile(key) {
		err = db.fs.Remove(path)
	} else {
		// Directory keys delete their subtree; the filesystem cannot
		// keep children of a removed directory alive the way a flat
		// store can.
		err = db.fs.RemoveAll(path)
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return db.meta.delete(bucket, key)
}
