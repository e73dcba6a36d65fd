package nsbolt

// The schema for the bolt database is described in here. External users
// of the database should consider it an internal implementation detail,
// subject to change without notice.

import (
	"time"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/mgo.v2/bson"

	"github.com/keyfs/keyfs"
)

type boltBucket struct {
	CreationDate time.Time
	Metadata     map[string]string
}

type boltEntry struct {
	Size         int64
	Metadata     map[string]string
	LastModified time.Time
}

func (r *boltEntry) Entry(key string) *keyfs.Entry {
	return &keyfs.Entry{
		Key:          key,
		Size:         r.Size,
		Metadata:     r.Metadata,
		LastModified: r.LastModified,
	}
}

func encodeEntry(entry *keyfs.Entry) ([]byte, error) {
	return bson.Marshal(&boltEntry{
		Size:         entry.Size,
		Metadata:     entry.Metadata,
		LastModified: entry.LastModified,
	})
}

func decodeEntry(bts []byte) (*boltEntry, error) {
	var record boltEntry
	if err := bson.Unmarshal(bts, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func bucketMetaKey(name string) []byte {
	return []byte("bucket/" + name)
}

// metaBucket manages access to the metadata bucket. The returned struct
// is valid only for the lifetime of the bolt.Tx.
func (db *Backend) metaBucket(tx *bolt.Tx) (*metaBucket, error) {
	var bucket *bolt.Bucket
	var err error

	if tx.Writable() {
		bucket, err = tx.CreateBucketIfNotExists(db.metaBucketName)
		if err != nil {
			return nil, err
		}
	} else {
		bucket = tx.Bucket(db.metaBucketName)
		if bucket == nil {
			return nil, nil
		}
	}

	return &metaBucket{bucket: bucket}, nil
}

type metaBucket struct {
	bucket *bolt.Bucket
}

func (mb *metaBucket) createBucket(name string, at time.Time) error {
	return mb.putBucket(name, &boltBucket{CreationDate: at})
}

func (mb *metaBucket) putBucket(name string, record *boltBucket) error {
	data, err := bson.Marshal(record)
	if err != nil {
		return err
	}
	return mb.bucket.Put(bucketMetaKey(name), data)
}

func (mb *metaBucket) deleteBucket(name string) error {
	return mb.bucket.Delete(bucketMetaKey(name))
}

func (mb *metaBucket) bucketRecord(name string) (*boltBucket, error) {
	bts := mb.bucket.Get(bucketMetaKey(name))
	if bts == nil {
		return nil, nil
	}
	var record boltBucket
	if err := bson.Unmarshal(bts, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
