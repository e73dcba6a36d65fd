// Package nsmem provides an in-memory keyfs.Backend. Entries live in a
// per-bucket skiplist keyed by flat key, so prefix scans come back in
// lexicographic order without sorting.
package nsmem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ryszard/goskiplist/skiplist"

	"github.com/keyfs/keyfs"
)

type Backend struct {
	buckets    map[string]*bucket
	timeSource keyfs.TimeSource
	lock       sync.Mutex
}

var _ keyfs.Backend = &Backend{}

type Option func(b *Backend)

func WithTimeSource(timeSource keyfs.TimeSource) Option {
	return func(b *Backend) { b.timeSource = timeSource }
}

func New(opts ...Option) *Backend {
	b := &Backend{
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.timeSource == nil {
		b.timeSource = keyfs.DefaultTimeSource()
	}
	return b
}

func (db *Backend) CreateBucket(ctx context.Context, name string) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.buckets[name] != nil {
		return keyfs.ResourceError(keyfs.ErrBucketAlreadyExists, name)
	}
	db.buckets[name] = newBucket(name, db.timeSource.Now())
	return nil
}

func (db *Backend) BucketExists(ctx context.Context, name string) (bool, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return db.buckets[name] != nil, nil
}

func (db *Backend) DeleteBucket(ctx context.Context, name string) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	bucket := db.buckets[name]
	if bucket == nil {
		return keyfs.ErrNoSuchBucket
	}
	if bucket.entries.Len() > 0 {
		return keyfs.ResourceError(keyfs.ErrBucketNotEmpty, name)
	}
	delete(db.buckets, name)
	return nil
}

func (db *Backend) ListBuckets(ctx context.Context) ([]keyfs.BucketInfo, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	var buckets = make([]keyfs.BucketInfo, 0, len(db.buckets))
	for _, bucket := range db.buckets {
		buckets = append(buckets, keyfs.BucketInfo{
			Name:         bucket.name,
			CreationDate: bucket.creationDate,
		})
	}
	return buckets, nil
}

func (db *Backend) BucketMetadata(ctx context.Context, name string) (map[string]string, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	bucket := db.buckets[name]
	if bucket == nil {
		return nil, keyfs.BucketNotFound(name)
	}
	return bucket.metadata, nil
}

func (db *Backend) SetBucketMetadata(ctx context.Context, name string, md map[string]string) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	bucket := db.buckets[name]
	if bucket == nil {
		return keyfs.BucketNotFound(name)
	}
	bucket.metadata = md
	return nil
}

func (db *Backend) ListKeys(ctx context.Context, bucketName, prefix string) ([]string, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	bucket := db.buckets[bucketName]
	if bucket == nil {
		return nil, keyfs.BucketNotFound(bucketName)
	}

	// Iterator() starts before the first element and is valid for an
	// empty list, unlike SeekToFirst.
	var keys []string
	iter := bucket.entries.Iterator()
	for iter.Next() {
		key := iter.Key().(string)
		if !strings.HasPrefix(key, prefix) {
			if key > prefix {
				break
			}
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (db *Backend) GetEntry(ctx context.Context, bucketName, key string) (*keyfs.Entry, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	bucket := db.buckets[bucketName]
	if bucket == nil {
		return nil, keyfs.BucketNotFound(bucketName)
	}
	value, ok := bucket.entries.Get(key)
	if !ok {
		return nil, keyfs.EntryNotFound(key)
	}
	return value.(*keyfs.Entry).Copy(), nil
}

func (db *Backend) PutEntry(ctx context.Context, bucketName string, entry *keyfs.Entry) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	bucket := db.buckets[bucketName]
	if bucket == nil {
		return keyfs.BucketNotFound(bucketName)
	}
	bucket.entries.Set(entry.Key, entry.Copy())
	return nil
}

func (db *Backend) DeleteEntry(ctx context.Context, bucketName, key string) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	bucket := db.buckets[bucketName]
	if bucket == nil {
		return keyfs.BucketNotFound(bucketName)
	}
	bucket.entries.Delete(key)
	return nil
}

type bucket struct {
	name         string
	creationDate time.Time
	metadata     map[string]string

	// entries maps flat key strings to *keyfs.Entry; the skiplist keeps
	// them sorted for prefix scans.
	entries *skiplist.SkipList
}

func newBucket(name string, at time.Time) *bucket {
	return &bucket{
		name:         name,
		creationDate: at,
		metadata:     map[string]string{},
		entries:      skiplist.NewStringMap(),
	}
}
