// Package nsbolt provides a keyfs.Backend stored in a single bolt
// database file. Each namespace bucket becomes a bolt bucket; bolt's
// sorted byte keys give prefix scans for free.
package nsbolt

import (
	"bytes"
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/keyfs/keyfs"
)

type Backend struct {
	bolt           *bolt.DB
	timeSource     keyfs.TimeSource
	metaBucketName []byte
}

var _ keyfs.Backend = &Backend{}

type Option func(b *Backend)

func WithTimeSource(timeSource keyfs.TimeSource) Option {
	return func(b *Backend) { b.timeSource = timeSource }
}

func NewFile(file string, opts ...Option) (*Backend, error) {
	if file == "" {
		return nil, fmt.Errorf("nsbolt: invalid bolt file name")
	}
	db, err := bolt.Open(file, 0600, nil)
	if err != nil {
		return nil, err
	}
	return New(db, opts...), nil
}

func New(db *bolt.DB, opts ...Option) *Backend {
	b := &Backend{
		bolt:           db,
		metaBucketName: []byte("_meta"), // Underscore guarantees no overlap with valid path components
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.timeSource == nil {
		b.timeSource = keyfs.DefaultTimeSource()
	}
	return b
}

// Close closes the underlying bolt database.
func (db *Backend) Close() error {
	return db.bolt.Close()
}

func (db *Backend) CreateBucket(ctx context.Context, name string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) != nil {
			return keyfs.ResourceError(keyfs.ErrBucketAlreadyExists, name)
		}
		if _, err := tx.CreateBucket([]byte(name)); err != nil {
			return err
		}
		meta, err := db.metaBucket(tx)
		if err != nil {
			return err
		}
		return meta.createBucket(name, db.timeSource.Now())
	})
}

func (db *Backend) BucketExists(ctx context.Context, name string) (exists bool, err error) {
	err = db.bolt.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket([]byte(name)) != nil
		return nil
	})
	return exists, err
}

func (db *Backend) DeleteBucket(ctx context.Context, name string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return keyfs.ErrNoSuchBucket
		}
		if b.Stats().KeyN > 0 {
			return keyfs.ResourceError(keyfs.ErrBucketNotEmpty, name)
		}
		if err := tx.DeleteBucket([]byte(name)); err != nil {
			return err
		}
		meta, err := db.metaBucket(tx)
		if err != nil {
			return err
		}
		return meta.deleteBucket(name)
	})
}

func (db *Backend) ListBuckets(ctx context.Context) ([]keyfs.BucketInfo, error) {
	var buckets []keyfs.BucketInfo

	err := db.bolt.View(func(tx *bolt.Tx) error {
		meta, err := db.metaBucket(tx)
		if err != nil {
			return err
		}

		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			if bytes.Equal(name, db.metaBucketName) {
				return nil
			}
			nameStr := string(name)
			info := keyfs.BucketInfo{Name: nameStr}
			if meta != nil {
				record, err := meta.bucketRecord(nameStr)
				if err != nil {
					return err
				}
				if record != nil {
					info.CreationDate = record.CreationDate
				}
			}
			buckets = append(buckets, info)
			return nil
		})
	})

	return buckets, err
}

func (db *Backend) BucketMetadata(ctx context.Context, name string) (map[string]string, error) {
	var md map[string]string

	err := db.bolt.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return keyfs.BucketNotFound(name)
		}
		meta, err := db.metaBucket(tx)
		if err != nil {
			return err
		}
		if meta == nil {
			md = map[string]string{}
			return nil
		}
		record, err := meta.bucketRecord(name)
		if err != nil {
			return err
		}
		if record == nil || record.Metadata == nil {
			md = map[string]string{}
		} else {
			md = record.Metadata
		}
		return nil
	})

	return md, err
}

func (db *Backend) SetBucketMetadata(ctx context.Context, name string, md map[string]string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return keyfs.BucketNotFound(name)
		}
		meta, err := db.metaBucket(tx)
		if err != nil {
			return err
		}
		record, err := meta.bucketRecord(name)
		if err != nil {
			return err
		}
		if record == nil {
			record = &boltBucket{CreationDate: db.timeSource.Now()}
		}
		record.Metadata = md
		return meta.putBucket(name, record)
	})
}

func (db *Backend) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string

	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return keyfs.BucketNotFound(bucket)
		}
		c := b.Cursor()
		pfx := []byte(prefix)
		for k, _ := c.Seek(pfx); k != nil && bytes.HasPrefix(k, pfx); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})

	return keys, err
}

func (db *Backend) GetEntry(ctx context.Context, bucket, key string) (*keyfs.Entry, error) {
	var entry *keyfs.Entry

	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return keyfs.BucketNotFound(bucket)
		}
		bts := b.Get([]byte(key))
		if bts == nil {
			return keyfs.EntryNotFound(key)
		}
		record, err := decodeEntry(bts)
		if err != nil {
			return err
		}
		entry = record.Entry(key)
		return nil
	})

	return entry, err
}

func (db *Backend) PutEntry(ctx context.Context, bucket string, entry *keyfs.Entry) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return keyfs.BucketNotFound(bucket)
		}
		bts, err := encodeEntry(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.Key), bts)
	})
}

func (db *Backend) DeleteEntry(ctx context.Context, bucket, key string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return keyfs.BucketNotFound(bucket)
		}
		return b.Delete([]byte(key))
	})
}
