package datastore

import (
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"
)

// withTTL suffixes value with an 8-byte big-endian nanosecond timestamp.
func withTTL(value []byte, at time.Time) []byte {
	out := make([]byte, len(value)+8)
	copy(out, value)
	binary.BigEndian.PutUint64(out[len(value):], uint64(at.UnixNano()))
	return out
}

// splitTTL separates a TTL-suffixed value back into its raw payload and
// timestamp. ok is false if v is too short to carry a suffix.
func splitTTL(v []byte) (raw []byte, ts time.Time, ok bool) {
	if len(v) < 8 {
		return nil, time.Time{}, false
	}
	nanos := binary.BigEndian.Uint64(v[len(v)-8:])
	return v[:len(v)-8], time.Unix(0, int64(nanos)), true
}

// reclaimExpired sweeps the data namespace, deleting every entry whose TTL
// suffix is older than ttl. Returns the number of keys reclaimed.
func (s *Store) reclaimExpired() (int, error) {
	if !s.TTLEnabled() {
		return 0, nil
	}

	var reclaimed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(NamespaceData))
		c := bucket.Cursor()

		var expiredKeys [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			_, ts, ok := splitTTL(v)
			if !ok {
				continue
			}
			if time.Since(ts) > s.ttl {
				expiredKeys = append(expiredKeys, append([]byte(nil), k...))
			}
		}
		for _, k := range expiredKeys {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		reclaimed = len(expiredKeys)
		return nil
	})
	return reclaimed, err
}
