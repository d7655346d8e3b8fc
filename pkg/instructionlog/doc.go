/*
Package instructionlog stores every mutation a core accepts as a replayable
(clock, payload) pair, so a core that falls behind can recover by replaying
instructions with clock > clocked() up to tick().

# Storage

One bbolt database per core at <root>/instruction/instruction.db, bucket
"instructions", keyed by an 8-byte big-endian clock so lexical bucket order
equals numeric clock order. The reserved key types.ClockKey holds the
accept tick in the same bucket. <root>/instruction/wal/ is created empty on
Open for on-disk layout parity with cores that log their own WAL directory;
bbolt folds its WAL into the single database file, so nothing is ever
written there.

# Compaction

DeleteRange implements the periodic [0, c) sweep the storage core triggers
on every millionth ClearClock call. Compact is a lighter hint call used by the externally
scheduled hourly compaction job; because bbolt reclaims freed pages onto
its own freelist on every commit, Compact does not rewrite the file.

# Failure mode

Every I/O error is wrapped with types.ErrStorageFatal; callers should treat
any non-nil error from this package as fatal to the owning core.
*/
package instructionlog
