package keyfs

import (
	"context"
	"time"
)

// Entry is a single record in a bucket's flat key namespace. Directory
// entries carry directory-shaped keys (trailing delimiter), file entries
// carry file-shaped keys; see IsFile. Entries describe namespace
// structure only and carry no object payload.
type Entry struct {
	Key          string
	Size         int64
	Metadata     map[string]string
	LastModified time.Time
}

// IsDir reports whether the entry's key is directory-shaped.
func (e *Entry) IsDir() bool { return !IsFile(e.Key) }

// Copy returns a deep copy of the entry. Backends hand out copies so
// callers can't alias stored state.
func (e *Entry) Copy() *Entry {
	dup := *e
	if e.Metadata != nil {
		dup.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			dup.Metadata[k] = v
		}
	}
	return &dup
}

// Name returns the entry's leaf name.
func (e *Entry) Name() string { return FileName(e.Key) }

type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// Backend is a flat key-value store capable of hosting an emulated
// directory tree. Backends know nothing about hierarchy; all tree
// semantics live in Namespace, which drives them through this interface.
//
// Every method takes a context because some engines (nss3) sit on a
// network; the local engines ignore it.
type Backend interface {
	// CreateBucket creates the bucket if it does not already exist.
	//
	// If the bucket already exists, a ResourceError with
	// ErrBucketAlreadyExists MUST be returned.
	CreateBucket(ctx context.Context, name string) error

	// BucketExists should return a boolean indicating the bucket
	// existence, or an error if the backend was unable to determine it.
	BucketExists(ctx context.Context, name string) (bool, error)

	// DeleteBucket deletes a bucket if and only if it holds no entries.
	//
	// If the bucket is not empty, a ResourceError with ErrBucketNotEmpty
	// MUST be returned. If the bucket does not exist, ErrNoSuchBucket
	// MUST be returned.
	DeleteBucket(ctx context.Context, name string) error

	ListBuckets(ctx context.Context) ([]BucketInfo, error)

	// BucketMetadata returns the bucket's metadata mapping, never nil for
	// an existing bucket. Callers must not mutate the returned map. This
	// is the mapping read by IsFSOptimizedBucket.
	BucketMetadata(ctx context.Context, name string) (map[string]string, error)

	// SetBucketMetadata replaces the bucket's metadata mapping.
	SetBucketMetadata(ctx context.Context, name string, md map[string]string) error

	// ListKeys returns every key in the bucket starting with prefix, in
	// ascending lexicographic order. The empty prefix lists all keys.
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)

	// GetEntry must return ErrNoSuchEntry if nothing is stored under key.
	// See EntryNotFound() for a convenient way to create one.
	GetEntry(ctx context.Context, bucket, key string) (*Entry, error)

	// PutEntry stores the entry under entry.Key, overwriting any existing
	// entry.
	PutEntry(ctx context.Context, bucket string, entry *Entry) error

	// DeleteEntry removes the entry under key. Deleting a key that holds
	// no entry is not an error.
	DeleteEntry(ctx context.Context, bucket, key string) error
}
