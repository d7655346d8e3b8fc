/*
Package types holds the value types shared across the storage core: core
identity, instructions, role events, configuration and the sentinel error
kinds that every other package wraps its own errors around.

Keeping these in one leaf package (it imports nothing from instructionlog,
datastore, checkpoint, replication or core) avoids import cycles and gives
every other package a single place to depend on for the core's vocabulary.

# Core Identity

A core is addressed by the tuple (MpuID, CoreID, Label, NetworkLocation).
Identity is used to target RPCs and to name thread pools and log files.

# Instructions and Clocks

An Instruction is an opaque, replayable payload stamped with a logical
clock. The clock is a strictly monotonic uint64 per core, encoded
big-endian everywhere it is persisted so lexical order matches numeric
order. Two clocks exist on disk: tick (accepted into the instruction log)
and clocked (durably applied to the data store), with clocked <= tick as
an invariant.

# Role Events

Role transitions are delivered as a RoleEvent tagged union rather than a
listener interface hierarchy: BecamePrimary, BecameBack, BecameMirror and
LostPrimary, each carrying the clock in effect at the transition.
*/
package types
