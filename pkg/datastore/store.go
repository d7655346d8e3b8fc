// Package datastore implements the durable key-value Data Store: a "data"
// namespace holding user records and a "meta" namespace holding the
// durably-applied clock, backed by a single bbolt database. It also runs
// the simulated background flush/compaction loop the storage core reacts
// to.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// Namespace selects one of the two logical partitions of the data store.
type Namespace string

const (
	NamespaceData Namespace = "data"
	NamespaceMeta Namespace = "meta"
)

func bucketName(ns Namespace) []byte {
	return []byte(ns)
}

// Op is one operation in a WriteBatch.
type Op struct {
	Namespace Namespace
	Key       []byte
	Value     []byte // nil for Delete
	Delete    bool
}

// Batch accumulates Put/Delete operations applied atomically by WriteBatch.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put appends a put operation.
func (b *Batch) Put(ns Namespace, key, value []byte) {
	b.ops = append(b.ops, Op{Namespace: ns, Key: key, Value: value})
}

// Delete appends a delete operation.
func (b *Batch) Delete(ns Namespace, key []byte) {
	b.ops = append(b.ops, Op{Namespace: ns, Key: key, Delete: true})
}

// Len reports the number of accumulated operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// EventHandler receives the Data Store's background notifications. Any nil
// field is simply not called.
type EventHandler struct {
	OnFlushCompleted      func(ns Namespace)
	OnCompactionCompleted func(ns Namespace)
	OnBackgroundError      func(reason string, err error)
}

// Store is the bbolt-backed Data Store.
type Store struct {
	db  *bolt.DB
	ttl time.Duration // 0 disables TTL mode

	mu       sync.Mutex
	handlers EventHandler
	coreID   string

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens (creating if necessary) the data store rooted at dir. dir/wal
// is created empty for on-disk layout parity; bbolt keeps its own journal
// inside the single database file. ttlSeconds <= 0 disables TTL mode.
func Open(dir string, ttlSeconds int64, opts types.EngineOptions) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("datastore: create dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "wal"), 0o755); err != nil {
		return nil, fmt.Errorf("datastore: create wal dir: %w", err)
	}

	boltOpts := &bolt.Options{
		NoGrowSync:      opts.NoGrowSync,
		InitialMmapSize: opts.InitialMmapSize,
		Timeout:         opts.Timeout,
	}
	db, err := bolt.Open(filepath.Join(dir, "data.db"), 0o600, boltOpts)
	if err != nil {
		return nil, fmt.Errorf("datastore: open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketName(NamespaceData)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketName(NamespaceMeta))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: init buckets: %w", err)
	}

	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}

	return &Store{
		db:  db,
		ttl: ttl,
	}, nil
}

// Path returns the on-disk path of the underlying bbolt database.
func (s *Store) Path() string {
	return s.db.Path()
}

// TTLEnabled reports whether the store is running in TTL mode.
func (s *Store) TTLEnabled() bool {
	return s.ttl > 0
}

// SetEventHandler installs the callbacks the background loop invokes. Must
// be called before StartBackgroundLoop.
func (s *Store) SetEventHandler(h EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = h
}

// SetCoreID labels subsequent metrics emitted by the background loop with
// the owning core's identity.
func (s *Store) SetCoreID(coreID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coreID = coreID
}

// Close stops the background loop (if running) and closes the underlying
// database.
func (s *Store) Close() error {
	s.StopBackgroundLoop()
	return s.db.Close()
}

// Get returns the value for key in namespace ns, or (nil, false) if absent.
// In TTL mode on NamespaceData, a value whose suffix has already expired is
// treated as absent without waiting for the next compaction pass.
func (s *Store) Get(ns Namespace, key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName(ns)).Get(key)
		if v == nil {
			return nil
		}
		if ns == NamespaceData && s.TTLEnabled() {
			raw, ts, ok := splitTTL(v)
			if !ok || s.expired(ts) {
				return nil
			}
			value = append([]byte(nil), raw...)
			return nil
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("datastore: get: %w", err)
	}
	return value, value != nil, nil
}

// WriteBatch applies every operation in b atomically: either all are
// durable or none are.
func (s *Store) WriteBatch(b *Batch) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, op := range b.ops {
			bucket := tx.Bucket(bucketName(op.Namespace))
			if op.Delete {
				if err := bucket.Delete(op.Key); err != nil {
					return err
				}
				continue
			}
			value := op.Value
			if op.Namespace == NamespaceData && s.TTLEnabled() {
				value = withTTL(value, time.Now())
			}
			if err := bucket.Put(op.Key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("datastore: write_batch: %w: %w", types.ErrStorageFatal, err)
	}
	return nil
}

// ApproximateCount returns an approximate key count for namespace ns. bbolt
// tracks exact per-bucket key counts via Bucket.Stats, so this is exact for
// a quiescent database but may under/over-report relative to concurrent
// writers mid-transaction, matching the "may under/over-report" contract.
func (s *Store) ApproximateCount(ns Namespace) (uint64, error) {
	var count uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		count = uint64(tx.Bucket(bucketName(ns)).Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("datastore: approximate_count: %w", err)
	}
	return count, nil
}

// ApproximateSize returns an approximate byte size for namespace ns, derived
// from the bucket's page usage.
func (s *Store) ApproximateSize(ns Namespace) (uint64, error) {
	var size uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		stats := tx.Bucket(bucketName(ns)).Stats()
		size = uint64(stats.LeafAlloc + stats.BranchAlloc)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("datastore: approximate_size: %w", err)
	}
	return size, nil
}

// Compact hints background compaction. ForceCompaction performs the actual
// reclamation pass synchronously; Compact just fires a log line, matching
// the "hint" contract — actual work happens on the background loop's
// cadence or via ForceCompaction.
func (s *Store) Compact() error {
	log.WithComponent("datastore").Debug().Msg("compaction hint received")
	return nil
}

// expired reports whether a TTL timestamp is older than the configured TTL.
func (s *Store) expired(ts time.Time) bool {
	return s.TTLEnabled() && time.Since(ts) > s.ttl
}

// WriteCheckpoint implements checkpoint.Snapshotter: it writes a
// self-consistent, point-in-time copy of the database to dir via a
// read-only bbolt transaction, bbolt's own documented hot-backup
// primitive. The caller owns dir's lifecycle (staging, rename, cleanup).
func (s *Store) WriteCheckpoint(dir string) error {
	tx, err := s.db.Begin(false)
	if err != nil {
		return fmt.Errorf("datastore: begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("datastore: create checkpoint dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "data.db"))
	if err != nil {
		return fmt.Errorf("datastore: create checkpoint file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := tx.WriteTo(f); err != nil {
		return fmt.Errorf("datastore: write checkpoint: %w: %w", types.ErrStorageFatal, err)
	}
	return nil
}
