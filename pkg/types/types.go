package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ClockKeyLen is the length in bytes of an ordinary clock key, used to
// keep the reserved CLOCK_K meta key (see ClockKey) unambiguously outside
// the keyspace of big-endian-encoded clocks.
const ClockKeyLen = 8

// ClockKey is the reserved key under which the durably-applied clock is
// stored in the meta namespace. It is deliberately longer than the fixed
// 8-byte big-endian clock keys used everywhere else, so it can never
// collide with a user key regardless of namespace.
var ClockKey = []byte("\x00__clock_tick__")

// EncodeClock renders a logical clock as an 8-byte big-endian key, so
// lexical order over keys matches numeric order over clocks.
func EncodeClock(clock uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, clock)
	return buf
}

// DecodeClock is the inverse of EncodeClock.
func DecodeClock(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("types: bad clock encoding length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeClockTTL renders a clock suffixed with an 8-byte big-endian
// nanosecond timestamp, used for CLOCK_K when the data store runs in TTL
// mode so a round-trip through TTL compaction preserves the value.
func EncodeClockTTL(clock uint64, nanos int64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], clock)
	binary.BigEndian.PutUint64(buf[8:], uint64(nanos))
	return buf
}

// DecodeClockTTL accepts either the plain 8-byte encoding or the 16-byte
// TTL-suffixed encoding and returns the clock value in both cases.
func DecodeClockTTL(b []byte) (uint64, error) {
	switch len(b) {
	case 8:
		return DecodeClock(b)
	case 16:
		return binary.BigEndian.Uint64(b[:8]), nil
	default:
		return 0, fmt.Errorf("types: bad clocked encoding length %d", len(b))
	}
}

// Instruction is an opaque, replayable mutation stamped with the clock it
// was accepted at. The payload is meaningless to the core; only the SQL
// front-end and query planner that produced it can interpret it.
type Instruction struct {
	Clock   uint64
	Payload []byte
}

// CoreIdentity addresses a single replicated core: the storage unit that
// owns one key range. It is used to target RPCs and to name thread pools
// and log files.
type CoreIdentity struct {
	MpuID           string
	CoreID          string
	Label           string
	NetworkLocation string
}

// String renders a CoreIdentity for logging.
func (c CoreIdentity) String() string {
	return fmt.Sprintf("%s/%s(%s)@%s", c.MpuID, c.CoreID, c.Label, c.NetworkLocation)
}

// Role is the externally-assigned role of a core. Only a core in
// RolePrimary may accept writes; RoleBack and RoleMirror may serve reads.
type Role string

const (
	RoleIdle    Role = "idle"
	RolePrimary Role = "primary"
	RoleBack    Role = "back"
	RoleMirror  Role = "mirror"
)

// RoleEventType enumerates the role transitions an external arbiter can
// deliver to a core. Modeled as a tagged union (not a listener interface
// hierarchy with no-op default methods) per the design notes.
type RoleEventType string

const (
	BecamePrimary RoleEventType = "became_primary"
	BecameBack    RoleEventType = "became_back"
	BecameMirror  RoleEventType = "became_mirror"
	LostPrimary   RoleEventType = "lost_primary"
)

// RoleEvent is delivered to a core's role-event channel by the external
// membership/leader-election module.
type RoleEvent struct {
	Type      RoleEventType
	Clock     uint64
	Timestamp time.Time
}

// Config holds every option the storage core recognizes.
type Config struct {
	// DBPath is the filesystem root for this core's on-disk state.
	DBPath string

	// TTLSeconds, if > 0, enables TTL mode: data-namespace values carry an
	// 8-byte timestamp suffix and are reclaimed by background compaction
	// once older than this many seconds.
	TTLSeconds int64

	// SyncWrites records the fsync-per-batch setting. No package reads it:
	// both bbolt stores fsync every committed batch whatever its value.
	SyncWrites bool

	// FastSnapshot selects hard-link-style checkpoints (checkpoint mode,
	// the default) over full-copy backup mode.
	FastSnapshot bool

	// OpenStatisticsCollector enables the periodic statistics sampler.
	OpenStatisticsCollector bool

	// StatisticsCallbackIntervalSeconds is the sampler's period.
	StatisticsCallbackIntervalSeconds int

	// CheckpointKeepCount is how many checkpoints backup() retains.
	CheckpointKeepCount int

	// DBOptionsFile / LogOptionsFile optionally tune the data store and
	// instruction log storage engines; see EngineOptions.
	DBOptionsFile  string
	LogOptionsFile string
}

// DefaultConfig returns a Config with sensible defaults for checkpoint
// mode, no TTL, synchronous writes and a 3-checkpoint retention policy.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:              dbPath,
		SyncWrites:          true,
		FastSnapshot:        true,
		CheckpointKeepCount: 3,
	}
}

// EngineOptions is the shape of an optional db_options_file /
// log_options_file: a small set of knobs mapped onto bbolt.Options.
type EngineOptions struct {
	NoGrowSync      bool          `yaml:"no_grow_sync"`
	InitialMmapSize int           `yaml:"initial_mmap_size"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Sentinel error kinds per spec.md §7. Callers should use errors.Is
// against these, never string-matching.
var (
	// ErrStorageFatal marks a batch write, checkpoint create, or rename
	// failure. It is returned to the caller; the core does not latch into a
	// failed state, and later calls still attempt I/O.
	ErrStorageFatal = errors.New("storage core: fatal storage error")

	// ErrDestroyed is returned by any operation attempted on a core that
	// has already been destroy()ed.
	ErrDestroyed = errors.New("storage core: operation on destroyed core")

	// ErrTransferTransient marks a retryable file-stream or RPC failure
	// during transfer_to; the whole operation may be retried.
	ErrTransferTransient = errors.New("storage core: transient transfer error")

	// ErrCancelled marks an operation cancelled via an explicit
	// API_CANCEL signal.
	ErrCancelled = errors.New("storage core: operation cancelled")
)
