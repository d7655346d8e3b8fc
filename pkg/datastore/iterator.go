package datastore

import (
	"bytes"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// KV is one key/value pair yielded by an Iterator.
type KV struct {
	Key   []byte
	Value []byte
}

// Iterator is a finite, snapshot-isolated scan over one namespace: the
// view it returns is fixed at the moment Scan opens its underlying
// read-only transaction, regardless of concurrent writers. An Iterator is
// not rewound; a new pass needs a new Scan.
type Iterator struct {
	tx     *bolt.Tx
	cursor *bolt.Cursor
	ns     Namespace
	lo, hi []byte
	incLo  bool
	incHi  bool
	ttl    time.Duration

	started bool
	done    bool
	cur     KV
	err     error
}

// Scan opens a snapshot-isolated iterator over [lo, hi) in namespace ns.
// A nil lo/hi means unbounded on that side. includeLo/includeHi control
// endpoint inclusivity. The caller MUST call Close when done to release
// the underlying bbolt transaction.
func (s *Store) Scan(ns Namespace, lo, hi []byte, includeLo, includeHi bool) (*Iterator, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("datastore: begin scan tx: %w", err)
	}
	bucket := tx.Bucket(bucketName(ns))
	it := &Iterator{
		tx:     tx,
		cursor: bucket.Cursor(),
		ns:     ns,
		lo:     lo,
		hi:     hi,
		incLo:  includeLo,
		incHi:  includeHi,
	}
	if ns == NamespaceData {
		it.ttl = s.ttl
	}
	return it, nil
}

// Next advances the iterator and reports whether a value is available via
// KV. It skips keys outside the requested bounds and, in TTL mode, keys
// whose suffix has already expired.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}

	var k, v []byte
	if !it.started {
		it.started = true
		if it.lo != nil {
			k, v = it.cursor.Seek(it.lo)
			if k != nil && !it.incLo && bytes.Equal(k, it.lo) {
				k, v = it.cursor.Next()
			}
		} else {
			k, v = it.cursor.First()
		}
	} else {
		k, v = it.cursor.Next()
	}

	for {
		if k == nil {
			it.done = true
			return false
		}
		if it.hi != nil {
			cmp := bytes.Compare(k, it.hi)
			if cmp > 0 || (cmp == 0 && !it.incHi) {
				it.done = true
				return false
			}
		}
		if it.ttl > 0 {
			raw, ts, ok := splitTTL(v)
			if !ok || time.Since(ts) > it.ttl {
				k, v = it.cursor.Next()
				continue
			}
			it.cur = KV{Key: append([]byte(nil), k...), Value: append([]byte(nil), raw...)}
			return true
		}
		it.cur = KV{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)}
		return true
	}
}

// KV returns the key/value pair at the iterator's current position. Only
// valid after a call to Next that returned true.
func (it *Iterator) KV() KV {
	return it.cur
}

// Err returns any error encountered while iterating.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the iterator's underlying read-only transaction.
func (it *Iterator) Close() error {
	return it.tx.Rollback()
}
