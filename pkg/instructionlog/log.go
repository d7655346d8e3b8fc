// Package instructionlog implements the durable ordered instruction log: a
// map from big-endian logical clock to opaque replayable payload, backed by
// a single bbolt database.
package instructionlog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketInstructions = []byte("instructions")

// Log is a durable ordered map from clock to opaque bytes, plus a single
// reserved CLOCK_K entry holding the accept tick.
type Log struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the instruction log rooted at dir.
// dir/wal is created empty to keep the on-disk layout consistent with the
// external contract; bbolt's own write-ahead journaling lives inside its
// single db file, so nothing is ever written under wal/.
func Open(dir string, opts types.EngineOptions) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("instructionlog: create dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "wal"), 0o755); err != nil {
		return nil, fmt.Errorf("instructionlog: create wal dir: %w", err)
	}

	boltOpts := &bolt.Options{
		NoGrowSync:      opts.NoGrowSync,
		InitialMmapSize: opts.InitialMmapSize,
		Timeout:         opts.Timeout,
	}
	db, err := bolt.Open(filepath.Join(dir, "instruction.db"), 0o600, boltOpts)
	if err != nil {
		return nil, fmt.Errorf("instructionlog: open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketInstructions)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("instructionlog: init bucket: %w", err)
	}

	return &Log{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Put persists payload under clock, append-only in spirit: callers are
// expected (but not required) to write strictly increasing clocks.
func (l *Log) Put(clock uint64, payload []byte) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInstructions).Put(types.EncodeClock(clock), payload)
	})
	if err != nil {
		return fmt.Errorf("instructionlog: put %d: %w: %w", clock, types.ErrStorageFatal, err)
	}
	return nil
}

// Get returns the payload previously Put at clock, or (nil, false) if none
// exists.
func (l *Log) Get(clock uint64) ([]byte, bool, error) {
	var payload []byte
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketInstructions).Get(types.EncodeClock(clock))
		if v == nil {
			return nil
		}
		payload = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("instructionlog: get %d: %w", clock, err)
	}
	return payload, payload != nil, nil
}

// Delete removes the instruction at clock. Idempotent: deleting an absent
// clock is not an error.
func (l *Log) Delete(clock uint64) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInstructions).Delete(types.EncodeClock(clock))
	})
	if err != nil {
		return fmt.Errorf("instructionlog: delete %d: %w: %w", clock, types.ErrStorageFatal, err)
	}
	return nil
}

// DeleteRange removes every key in the half-open range [lo, hi). Because
// keys are stored big-endian, this is a single cursor sweep bounded by the
// numeric range.
func (l *Log) DeleteRange(lo, hi uint64) error {
	loKey := types.EncodeClock(lo)
	hiKey := types.EncodeClock(hi)

	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInstructions)
		c := b.Cursor()
		var toDelete [][]byte
		for k, _ := c.Seek(loKey); k != nil && string(k) < string(hiKey); k, _ = c.Next() {
			toDelete = append(toDelete, append([]byte(nil), k...))
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("instructionlog: delete_range [%d,%d): %w: %w", lo, hi, types.ErrStorageFatal, err)
	}
	return nil
}

// ReadTick reads the single reserved CLOCK_K entry, returning 0 if absent.
func (l *Log) ReadTick() (uint64, error) {
	var tick uint64
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketInstructions).Get(types.ClockKey)
		if v == nil {
			return nil
		}
		var err error
		tick, err = types.DecodeClock(v)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("instructionlog: read_tick: %w", err)
	}
	return tick, nil
}

// WriteTick durably records the accept clock.
func (l *Log) WriteTick(clock uint64) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInstructions).Put(types.ClockKey, types.EncodeClock(clock))
	})
	if err != nil {
		return fmt.Errorf("instructionlog: write_tick %d: %w: %w", clock, types.ErrStorageFatal, err)
	}
	return nil
}

// Flush makes all prior Put/Delete/WriteTick calls durable. bbolt commits
// each Update transaction synchronously, so by the time Put/WriteTick
// return the data is already fsynced; Flush exists to satisfy callers that
// batch several logical writes under NoSync-style tuning and want an
// explicit durability point.
func (l *Log) Flush() error {
	if err := l.db.Sync(); err != nil {
		return fmt.Errorf("instructionlog: flush: %w: %w", types.ErrStorageFatal, err)
	}
	return nil
}

// Compact hints the storage engine to reclaim space. bbolt already
// reclaims freed pages onto its own freelist as part of every commit, so
// this is a Sync plus a log line rather than a heavyweight rewrite. It is
// the hook for the externally scheduled hourly compaction; the [0, c)
// sweep triggered by the storage core's ClearClock is DeleteRange.
func (l *Log) Compact() error {
	logger := log.WithComponent("instructionlog")
	if err := l.db.Sync(); err != nil {
		return fmt.Errorf("instructionlog: compact: %w: %w", types.ErrStorageFatal, err)
	}
	logger.Debug().Msg("compaction pass completed")
	return nil
}
