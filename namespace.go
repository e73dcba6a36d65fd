package keyfs

import (
	"context"
	"strings"
)

// Namespace emulates a POSIX-like directory tree on top of a flat-key
// Backend. Paths are absolute ("/a/b/c"); the corresponding flat keys
// drop the leading delimiter ("a/b/c"). Directory entries are stored
// under directory-shaped keys ("a/b/"), file entries under file-shaped
// keys, so a single sorted key scan can recover the tree.
//
// Buckets come in two layouts, selected by bucket metadata (see
// IsFSOptimizedBucket): filesystem-optimized buckets materialize every
// intermediate directory as a marker entry and reject structural
// conflicts, while flat buckets accept any key and let directories exist
// implicitly through their descendants.
type Namespace struct {
	backend    Backend
	timeSource TimeSource
}

func New(backend Backend, options ...Option) *Namespace {
	ns := &Namespace{backend: backend}
	for _, opt := range options {
		opt(ns)
	}
	if ns.timeSource == nil {
		ns.timeSource = DefaultTimeSource()
	}
	return ns
}

// splitKeys returns the file-shaped and directory-shaped key forms of a
// validated non-root path.
func splitKeys(path string) (fileKey, dirKey string) {
	fileKey = RemoveTrailingSlash(PathToKey(path))
	return fileKey, fileKey + Delimiter
}

func checkPath(path string) error {
	if !IsValidName(path) {
		return ResourceError(ErrInvalidPath, path)
	}
	return nil
}

func isRootPath(path string) bool {
	return ComponentCount(path) == 0
}

// Stat returns the entry at path. A file-shaped path is resolved as a
// file first and as a directory second; a directory-shaped path only as a
// directory. Directories that exist only implicitly, through descendant
// keys, resolve to a synthesized marker entry.
func (ns *Namespace) Stat(ctx context.Context, bucket, path string) (*Entry, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	if isRootPath(path) {
		return &Entry{Key: ""}, nil
	}
	fileKey, dirKey := splitKeys(path)

	if !strings.HasSuffix(path, Delimiter) {
		entry, err := ns.backend.GetEntry(ctx, bucket, fileKey)
		if err == nil {
			return entry, nil
		} else if !HasErrorCode(err, ErrNoSuchEntry) {
			return nil, err
		}
	}

	entry, err := ns.backend.GetEntry(ctx, bucket, dirKey)
	if err == nil {
		return entry, nil
	} else if !HasErrorCode(err, ErrNoSuchEntry) {
		return nil, err
	}

	// No marker entry; the directory may still exist implicitly.
	keys, err := ns.backend.ListKeys(ctx, bucket, dirKey)
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		return &Entry{Key: dirKey}, nil
	}
	return nil, EntryNotFound(path)
}

// Exists reports whether an entry exists at path. A missing bucket is
// still an error.
func (ns *Namespace) Exists(ctx context.Context, bucket, path string) (bool, error) {
	_, err := ns.Stat(ctx, bucket, path)
	if HasErrorCode(err, ErrNoSuchEntry) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the immediate children of the directory at path in
// ascending key order. Children that are themselves directories carry
// directory-shaped keys; deeper descendants fold into their top
// component, so each child appears exactly once.
func (ns *Namespace) List(ctx context.Context, bucket, path string) ([]*Entry, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}

	var ancestorKey, scanPrefix string
	if !isRootPath(path) {
		dirStat, err := ns.Stat(ctx, bucket, AddTrailingSlash(path))
		if err != nil {
			return nil, err
		}
		if !dirStat.IsDir() {
			return nil, ResourceError(ErrNotADirectory, path)
		}
		ancestorKey, scanPrefix = splitKeys(path)
	}

	keys, err := ns.backend.ListKeys(ctx, bucket, scanPrefix)
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	seen := map[string]bool{}
	for _, key := range keys {
		if key == scanPrefix {
			// the directory's own marker
			continue
		}
		child, ok := ImmediateChild(key, ancestorKey)
		if !ok || seen[child] {
			continue
		}
		seen[child] = true

		if IsFile(child) {
			// the key is its own immediate child, so the entry exists
			entry, err := ns.backend.GetEntry(ctx, bucket, child)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
			continue
		}

		entry, err := ns.backend.GetEntry(ctx, bucket, child)
		if HasErrorCode(err, ErrNoSuchEntry) {
			entry = &Entry{Key: child}
		} else if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// MkdirAll materializes directory marker entries for path and every
// missing ancestor. A file entry anywhere along the way fails with
// ErrNotADirectory. The root always exists.
func (ns *Namespace) MkdirAll(ctx context.Context, bucket, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if isRootPath(path) {
		return nil
	}
	_, dirKey := splitKeys(path)
	return ns.mkdirAll(ctx, bucket, dirKey)
}

func (ns *Namespace) mkdirAll(ctx context.Context, bucket, dirKey string) error {
	var pending []string

	for cur := RemoveTrailingSlash(dirKey); cur != ""; {
		if _, err := ns.backend.GetEntry(ctx, bucket, cur); err == nil {
			return ResourceError(ErrNotADirectory, Delimiter+cur)
		} else if !HasErrorCode(err, ErrNoSuchEntry) {
			return err
		}

		marker := AddTrailingSlash(cur)
		if _, err := ns.backend.GetEntry(ctx, bucket, marker); err == nil {
			break
		} else if !HasErrorCode(err, ErrNoSuchEntry) {
			return err
		}

		pending = append(pending, marker)
		cur = RemoveTrailingSlash(Parent(cur))
	}

	// Shallowest ancestor first, so a partial failure never leaves an
	// orphaned deep marker.
	for i := len(pending) - 1; i >= 0; i-- {
		entry := &Entry{Key: pending[i], LastModified: ns.timeSource.Now()}
		if err := ns.backend.PutEntry(ctx, bucket, entry); err != nil {
			return err
		}
	}
	return nil
}

// Create writes a file entry at path, overwriting any existing file
// there. The path must be file-shaped. On filesystem-optimized buckets
// missing parent directories are materialized and a directory standing at
// path is a conflict; on flat buckets the key is written as-is.
func (ns *Namespace) Create(ctx context.Context, bucket, path string, size int64, metadata map[string]string) (*Entry, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	if isRootPath(path) || strings.HasSuffix(path, Delimiter) {
		return nil, ResourceError(ErrInvalidPath, path)
	}
	fileKey, dirKey := splitKeys(path)

	md, err := ns.backend.BucketMetadata(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if IsFSOptimizedBucket(md) {
		if _, err := ns.backend.GetEntry(ctx, bucket, dirKey); err == nil {
			return nil, ResourceError(ErrEntryAlreadyExists, path)
		} else if !HasErrorCode(err, ErrNoSuchEntry) {
			return nil, err
		}
		if parent := Parent(fileKey); parent != "" {
			if err := ns.mkdirAll(ctx, bucket, parent); err != nil {
				return nil, err
			}
		}
	}

	entry := &Entry{
		Key:          fileKey,
		Size:         size,
		Metadata:     metadata,
		LastModified: ns.timeSource.Now(),
	}
	if err := ns.backend.PutEntry(ctx, bucket, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Rename moves the entry or subtree at src to dst. dst must not already
// exist and must not lie inside src. Entry contents and modification
// times travel unchanged; only the keys are rewritten.
func (ns *Namespace) Rename(ctx context.Context, bucket, src, dst string) error {
	if err := checkPath(src); err != nil {
		return err
	}
	if err := checkPath(dst); err != nil {
		return err
	}
	if isRootPath(src) || isRootPath(dst) {
		return ResourceError(ErrInvalidPath, src)
	}
	srcFile, srcDir := splitKeys(src)
	dstFile, dstDir := splitKeys(dst)
	if strings.HasPrefix(dstDir, srcDir) {
		return ResourceError(ErrInvalidPath, dst)
	}

	if _, err := ns.Stat(ctx, bucket, dst); err == nil {
		return ResourceError(ErrEntryAlreadyExists, dst)
	} else if !HasErrorCode(err, ErrNoSuchEntry) {
		return err
	}

	md, err := ns.backend.BucketMetadata(ctx, bucket)
	if err != nil {
		return err
	}
	if IsFSOptimizedBucket(md) {
		if parent := Parent(dstFile); parent != "" {
			if err := ns.mkdirAll(ctx, bucket, parent); err != nil {
				return err
			}
		}
	}

	var moved bool

	entry, err := ns.backend.GetEntry(ctx, bucket, srcFile)
	if err == nil {
		if err := ns.moveEntry(ctx, bucket, entry, dstFile); err != nil {
			return err
		}
		moved = true
	} else if !HasErrorCode(err, ErrNoSuchEntry) {
		return err
	}

	keys, err := ns.backend.ListKeys(ctx, bucket, srcDir)
	if err != nil {
		return err
	}
	for _, key := range keys {
		entry, err := ns.backend.GetEntry(ctx, bucket, key)
		if err != nil {
			return err
		}
		newKey := dstDir + strings.TrimPrefix(key, srcDir)
		if err := ns.moveEntry(ctx, bucket, entry, newKey); err != nil {
			return err
		}
		moved = true
	}

	if !moved {
		return EntryNotFound(src)
	}
	return nil
}

func (ns *Namespace) moveEntry(ctx context.Context, bucket string, entry *Entry, newKey string) error {
	oldKey := entry.Key
	entry.Key = newKey
	if err := ns.backend.PutEntry(ctx, bucket, entry); err != nil {
		return err
	}
	return ns.backend.DeleteEntry(ctx, bucket, oldKey)
}

// Remove deletes a single entry. Removing a directory that still has
// descendants fails with ErrDirectoryNotEmpty; use RemoveAll for
// recursive deletes.
func (ns *Namespace) Remove(ctx context.Context, bucket, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if isRootPath(path) {
		return ResourceError(ErrInvalidPath, path)
	}
	fileKey, dirKey := splitKeys(path)

	if !strings.HasSuffix(path, Delimiter) {
		if _, err := ns.backend.GetEntry(ctx, bucket, fileKey); err == nil {
			return ns.backend.DeleteEntry(ctx, bucket, fileKey)
		} else if !HasErrorCode(err, ErrNoSuchEntry) {
			return err
		}
	}

	keys, err := ns.backend.ListKeys(ctx, bucket, dirKey)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key != dirKey {
			return ResourceError(ErrDirectoryNotEmpty, path)
		}
	}
	if len(keys) == 0 {
		return EntryNotFound(path)
	}
	return ns.backend.DeleteEntry(ctx, bucket, dirKey)
}

// RemoveAll deletes the entry at path and everything beneath it. Like
// os.RemoveAll it succeeds when nothing exists there. RemoveAll of the
// root empties the bucket.
func (ns *Namespace) RemoveAll(ctx context.Context, bucket, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}

	var scanPrefix string
	if !isRootPath(path) {
		fileKey, dirKey := splitKeys(path)
		if err := ns.backend.DeleteEntry(ctx, bucket, fileKey); err != nil {
			return err
		}
		scanPrefix = dirKey
	}

	keys, err := ns.backend.ListKeys(ctx, bucket, scanPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := ns.backend.DeleteEntry(ctx, bucket, key); err != nil {
			return err
		}
	}
	return nil
}
