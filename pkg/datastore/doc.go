/*
Package datastore implements the Data Store: a durable key-value engine
with a "data" namespace for user records and a "meta" namespace holding the
durably-applied clock, backed by go.etcd.io/bbolt.

# Storage

One bbolt database per core at <root>/db/data.db with buckets "data" and
"meta". <root>/db/wal/ is created empty on Open for on-disk layout parity;
bbolt's write-ahead journal lives inside the single database file.

# TTL mode

When opened with ttlSeconds > 0, every value written to the "data"
namespace is suffixed with an 8-byte big-endian nanosecond timestamp by
WriteBatch, and stripped again (after an expiry check) by Get and Scan. The
"meta" namespace is never subject to TTL; callers that need the round-trip
guarantee on CLOCK_K must encode it themselves with
types.EncodeClockTTL before writing it through WriteBatch, since WriteBatch
does not apply the TTL suffix outside the "data" namespace.

# Background events

bbolt exposes no asynchronous flush/compaction callback API. StartBackgroundLoop
runs a ticker (grounded on the teacher's reconciler loop idiom) that
periodically syncs the database and reclaims expired TTL entries, firing
the EventHandler callbacks the storage core reacts to. ForceFlush and
ForceCompaction let callers (and tests) trigger both synchronously.

# Snapshot isolation

Scan opens a dedicated read-only bbolt transaction and returns an Iterator
bound to it; the view is fixed at the moment of Scan regardless of
concurrent writers, and is released when the caller calls Iterator.Close.

# WriteCheckpoint

Store implements checkpoint.Snapshotter via bbolt.Tx.WriteTo, bbolt's own
documented hot-backup primitive, letting the Checkpoint Manager produce a
consistent on-disk copy without importing this package's concrete type.
*/
package datastore
