/*
Package checkpoint implements the Checkpoint Manager: creation, naming,
enumeration, pruning and atomic restoration of consistent on-disk snapshots
of the Data Store.

# Naming

Checkpoints live as directories under <core root>/checkpoint/, named
either "local-<20-digit zero-padded nanoseconds>" or the single staging
slot "remote-checkpoint". The zero-padding keeps lexical and creation
order identical indefinitely. Create stages into a "<name>.tmp" directory
and renames it into place atomically, so List/Latest never observe a
partially-written checkpoint; any one-shot Snapshotter implementation
(datastore.Store's bbolt-WriteTo path, or BackupStrategy's full copy) gets
this staging behavior for free.

# Pruning

Prune deletes all but the most recent keepCount local-* checkpoints,
skipping any name marked Pin — the storage core pins the checkpoint behind
an in-flight transfer so it is never reaped mid-stream.

# Swap protocol

RestoreFrom implements the five-step swap described by the external
contract: close the live Data Store, rename it aside, rename the named
checkpoint into its place, reopen, delete the old directory. RecoverFromCrash
runs once at process start and repairs a swap interrupted between those
steps, per the documented recovery policy: if the live directory is
missing and "remote-checkpoint" still exists, the rename-into-place step
is completed; if the live directory is missing and a
"will_delete_soon_*" directory exists instead, it is renamed back.

# Two snapshot strategies

Both Snapshotter implementations satisfy the same Create/RestoreFrom
contract: datastore.Store's bbolt.Tx.WriteTo-based hard-link-style path
(checkpoint mode, fast_snapshot=true) and BackupStrategy's full recursive
file copy (backup mode, fast_snapshot=false).
*/
package checkpoint
