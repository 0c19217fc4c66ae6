// Package bolt provides a vector index persisted to a bbolt file.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/codec"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// FileName is the bbolt file inside the vector store directory.
const FileName = "index.bolt"

var (
	bucketMeta    = []byte("meta")
	bucketChunks  = []byte("chunks")
	bucketVectors = []byte("vectors")
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps entries in memory and persists them to <dir>/index.bolt.
// Chunks and vectors live in parallel buckets keyed by big-endian sequence
// number, so a cursor walk returns them in insertion order.
type Index struct {
	*memory.Index
	dir string
}

// NewIndex creates an index rooted at dir. Nothing is read until Load.
func NewIndex(dir string, metric domain.Metric, model string) (*Index, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: vector store directory is required", domain.ErrConfiguration)
	}
	mem, err := memory.NewIndex(metric, model)
	if err != nil {
		return nil, err
	}
	return &Index{Index: mem, dir: dir}, nil
}

// Path returns the bbolt file path.
func (x *Index) Path() string {
	return filepath.Join(x.dir, FileName)
}

// Persist writes a fresh file and renames it over the previous one.
func (x *Index) Persist(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, info := x.Entries()
	info.BuiltAt = time.Now().UTC()

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", domain.ErrIndexPersistence, x.dir, err)
	}

	tmp := x.Path() + ".tmp"
	_ = os.Remove(tmp)

	if err := writeFile(tmp, entries, info); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: writing %s: %w", domain.ErrIndexPersistence, tmp, err)
	}
	if err := os.Rename(tmp, x.Path()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replacing %s: %w", domain.ErrIndexPersistence, x.Path(), err)
	}

	x.MarkBuilt(info.BuiltAt)
	logger.Debug("bolt: persisted %d entries to %s", len(entries), x.Path())
	return nil
}

// Load replaces the in-memory entries with the persisted ones.
// A missing file is an empty index.
func (x *Index) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := x.Path()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("bolt: no index at %s, starting empty", path)
			return x.Replace(nil, domain.IndexInfo{Metric: x.Metric()})
		}
		return fmt.Errorf("%w: %w", domain.ErrIndexPersistence, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", domain.ErrIndexPersistence, path, err)
	}
	defer db.Close()

	var (
		info    domain.IndexInfo
		entries []domain.IndexEntry
	)
	err = db.View(func(tx *bbolt.Tx) error {
		var err error
		if info, err = readInfo(tx); err != nil {
			return err
		}
		entries, err = readEntries(tx)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrIndexPersistence) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrIndexPersistence, err)
	}
	if len(entries) != info.Count {
		return fmt.Errorf("%w: index records %d entries, found %d",
			domain.ErrIndexPersistence, info.Count, len(entries))
	}

	if err := x.Replace(entries, info); err != nil {
		return err
	}
	logger.Debug("bolt: loaded %d entries from %s", len(entries), path)
	return nil
}

// Purge removes the file and clears the in-memory entries.
func (x *Index) Purge(_ context.Context) error {
	x.Reset()
	for _, p := range []string{x.Path(), x.Path() + ".tmp"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: removing %s: %w", domain.ErrIndexPersistence, p, err)
		}
	}
	return nil
}

func writeFile(path string, entries []domain.IndexEntry, info domain.IndexInfo) error {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		chunks, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return err
		}
		vectors, err := tx.CreateBucket(bucketVectors)
		if err != nil {
			return err
		}

		for k, v := range codec.InfoToMeta(info) {
			if err := meta.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}

		for i, e := range entries {
			key := seqKey(uint64(i))
			data, err := json.Marshal(codec.NewRecord(e))
			if err != nil {
				return fmt.Errorf("marshalling entry %d: %w", i, err)
			}
			if err := chunks.Put(key, data); err != nil {
				return err
			}
			if err := vectors.Put(key, codec.EncodeVector(e.Vector)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

func readInfo(tx *bbolt.Tx) (domain.IndexInfo, error) {
	b := tx.Bucket(bucketMeta)
	if b == nil {
		return domain.IndexInfo{}, fmt.Errorf("%w: missing meta bucket", domain.ErrIndexPersistence)
	}
	meta := make(map[string]string)
	err := b.ForEach(func(k, v []byte) error {
		meta[string(k)] = string(v)
		return nil
	})
	if err != nil {
		return domain.IndexInfo{}, err
	}
	return codec.MetaToInfo(meta)
}

func readEntries(tx *bbolt.Tx) ([]domain.IndexEntry, error) {
	chunks := tx.Bucket(bucketChunks)
	vectors := tx.Bucket(bucketVectors)
	if chunks == nil || vectors == nil {
		return nil, fmt.Errorf("%w: missing entry buckets", domain.ErrIndexPersistence)
	}

	var entries []domain.IndexEntry
	err := chunks.ForEach(func(k, v []byte) error {
		var rec codec.Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("%w: decoding chunk: %w", domain.ErrIndexPersistence, err)
		}
		blob := vectors.Get(k)
		if blob == nil {
			return fmt.Errorf("%w: chunk %s has no vector", domain.ErrIndexPersistence, rec.ID)
		}
		vec, err := codec.DecodeVector(blob)
		if err != nil {
			return err
		}
		entries = append(entries, rec.Entry(vec))
		return nil
	})
	return entries, err
}

func seqKey(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}
