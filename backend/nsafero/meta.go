package nsafero

import (
	"encoding/hex"
	"encoding/json"
	"hash/fnv"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// sidecarMeta is the JSON record kept alongside each entry. The main fs
// holds the tree shape; everything a filesystem cannot express (logical
// size, user metadata, the exact modification time) lives here.
type sidecarMeta struct {
	Size    int64
	ModTime time.Time
	Meta    map[string]string
}

type metaStore struct {
	fs afero.Fs
}

func newMetaStore(fs afero.Fs) *metaStore {
	return &metaStore{fs: fs}
}

// metaPath flattens a key into a single file name. Delimiters are
// replaced so the meta fs stays one level deep per bucket; the fnv hash
// keeps flattened names collision-free.
func (ms *metaStore) metaPath(bucket, key string) string {
	h := fnv.New128a()
	h.Write([]byte(key))
	flat := strings.Replace(key, "/", "_", -1)
	return bucket + "/" + flat + "-" + hex.EncodeToString(h.Sum(nil))
}

func (ms *metaStore) load(bucket, key string) (*sidecarMeta, error) {
	bts, err := afero.ReadFile(ms.fs, ms.metaPath(bucket, key))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var meta sidecarMeta
	if err := json.Unmarshal(bts, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (ms *metaStore) save(bucket, key string, meta *sidecarMeta) error {
	bts, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	// Don't care if this fails; it probably already exists (but may not)
	ms.fs.Mkdir(bucket, 0777)

	return afero.WriteFile(ms.fs, ms.metaPath(bucket, key), bts, 0666)
}

func (ms *metaStore) delete(bucket, key string) error {
	if err := ms.fs.Remove(ms.metaPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (ms *metaStore) bucketMetadata(bucket string) (map[string]string, error) {
	bts, err := afero.ReadFile(ms.fs, bucket+".bucket")
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	} else if err != nil {
		return nil, err
	}
	var md map[string]string
	if err := json.Unmarshal(bts, &md); err != nil {
		return nil, err
	}
	return md, nil
}

func (ms *metaStore) setBucketMetadata(bucket string, md map[string]string) error {
	bts, err := json.Marshal(md)
	if err != nil {
		return err
	}
	return afero.WriteFile(ms.fs, bucket+".bucket", bts, 0666)
}

func (ms *metaStore) deleteBucket(bucket string) error {
	if err := ms.fs.Remove(bucket + ".bucket"); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := ms.fs.RemoveAll(bucket); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
