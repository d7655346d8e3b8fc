// Package core implements the Storage Core, the public facade of one
// replicated storage unit. It holds the Instruction Log, Data Store,
// Checkpoint Manager and a Replication Transport Adapter client, and
// serializes control-plane operations (checkpoint creation, meta flush,
// transfer orchestration) through a single-producer taskrunner.Runner.
//
// Writes flow through Writer/Flush: a caller builds a batch scoped to one
// types.Instruction, and Flush commits it atomically together with the
// new durably-applied clock. Reads go straight to the Data Store via
// Reader, bypassing the control-plane serializer entirely, since the
// Data Store already provides snapshot-isolated scans.
//
// Background events from the Data Store (flush/compaction completed)
// drive automatic checkpoint creation through onFlushCompleted and
// onCompactionCompleted; these are the only two automatic triggers for a
// new checkpoint, matching the background-event wiring in the owning
// specification's Storage Core section. Role transitions arrive through
// ApplyRoleEvent and are republished to subscribers via
// pkg/roleevents.Broker.
//
// TransferTo implements the primary-to-follower snapshot transfer
// protocol end to end: local backup, pin, RPC to stage a remote
// directory, stream the checkpoint's files, RPC to swap it in, unpin.
// PrepareIncomingSnapshot and CommitIncomingSnapshot are the
// corresponding follower-side entry points, implementing
// replication.Backend so a replication.Service can be wired directly to
// a Core.
package core
