// Package checkpoint implements the Checkpoint Manager: creation, naming,
// enumeration, pruning and restoration of consistent on-disk snapshots of
// the Data Store.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/metrics"
	"github.com/cuemby/ridgedb/pkg/types"
)

// Snapshotter is the narrow capability the Checkpoint Manager needs from
// the Data Store: write a self-consistent point-in-time copy to dir. Kept
// as an interface so this package never imports pkg/datastore's concrete
// type.
type Snapshotter interface {
	WriteCheckpoint(dir string) error
}

// LocalPrefix and RemoteName are the two directory-name conventions a
// checkpoint can have: a timestamped local snapshot, or the single staging
// slot used to receive a remote one.
const (
	LocalPrefix = "local-"
	RemoteName  = "remote-checkpoint"
	tmpSuffix   = ".tmp"
)

// Manager creates, enumerates, prunes and restores checkpoints rooted at
// one core's checkpoint/ directory.
type Manager struct {
	root   string // <core root>/checkpoint
	coreID string

	mu     sync.Mutex
	pinned map[string]bool
}

// New returns a Manager rooted at <coreRoot>/checkpoint, creating the
// directory if necessary.
func New(coreRoot, coreID string) (*Manager, error) {
	root := filepath.Join(coreRoot, "checkpoint")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: create root: %w", err)
	}
	return &Manager{
		root:   root,
		coreID: coreID,
		pinned: make(map[string]bool),
	}, nil
}

// Root returns the checkpoint directory root.
func (m *Manager) Root() string {
	return m.root
}

// Create produces a new on-disk snapshot named prefix+<nanosecond
// timestamp>, staged under a .tmp directory and atomically renamed into
// place so list()/latest() never observe a partially-written checkpoint.
func (m *Manager) Create(snap Snapshotter, prefix string) (string, error) {
	logger := log.WithComponent("checkpoint")
	timer := metrics.NewTimer()

	name := prefix + zeroPadNanos(time.Now().UnixNano())
	finalDir := filepath.Join(m.root, name)
	stagingDir := finalDir + tmpSuffix

	if err := os.RemoveAll(stagingDir); err != nil {
		return "", fmt.Errorf("checkpoint: clear stale staging dir: %w", err)
	}
	if err := snap.WriteCheckpoint(stagingDir); err != nil {
		_ = os.RemoveAll(stagingDir)
		return "", fmt.Errorf("checkpoint: create %s: %w: %w", name, types.ErrStorageFatal, err)
	}
	if err := os.Rename(stagingDir, finalDir); err != nil {
		_ = os.RemoveAll(stagingDir)
		return "", fmt.Errorf("checkpoint: rename %s into place: %w: %w", name, types.ErrStorageFatal, err)
	}

	timer.ObserveDurationVec(metrics.CheckpointCreateDuration, m.coreID)
	metrics.CheckpointsCreated.WithLabelValues(m.coreID).Inc()
	logger.Info().Str("checkpoint", name).Msg("checkpoint created")
	return name, nil
}

// List returns every non-.tmp checkpoint name matching prefix, in
// directory-name (== creation) order.
func (m *Manager) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, tmpSuffix) {
			continue
		}
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Latest returns the lexicographically largest non-.tmp checkpoint name
// matching prefix, or "" if none exist.
func (m *Manager) Latest(prefix string) (string, error) {
	names, err := m.List(prefix)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[len(names)-1], nil
}

// PrepareRemoteStaging (re)creates an empty RemoteName directory, deleting
// any prior contents, and returns its absolute path. This is the
// receive_backup entry point: the replication adapter hands the returned
// path to the file-transfer primitive, which populates it; no Snapshotter
// is involved since the bytes arrive over the wire, not from a local
// point-in-time read.
func (m *Manager) PrepareRemoteStaging() (string, error) {
	dir := filepath.Join(m.root, RemoteName)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("checkpoint: prepare remote staging: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("checkpoint: prepare remote staging: %w", err)
	}
	return dir, nil
}

// Pin marks name as exempt from Prune, used by the storage core for the
// duration of an outbound transfer so the streamed snapshot is not reaped
// mid-flight.
func (m *Manager) Pin(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[name] = true
}

// Unpin releases a prior Pin.
func (m *Manager) Unpin(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pinned, name)
}

// Prune deletes all but the most recent keepCount non-.tmp checkpoints
// under LocalPrefix, skipping any name that is currently pinned.
func (m *Manager) Prune(keepCount int) error {
	names, err := m.List(LocalPrefix)
	if err != nil {
		return err
	}
	if len(names) <= keepCount {
		return nil
	}

	m.mu.Lock()
	pinnedCopy := make(map[string]bool, len(m.pinned))
	for k := range m.pinned {
		pinnedCopy[k] = true
	}
	m.mu.Unlock()

	toDelete := names[:len(names)-keepCount]
	logger := log.WithComponent("checkpoint")
	var pruned int
	for _, name := range toDelete {
		if pinnedCopy[name] {
			logger.Debug().Str("checkpoint", name).Msg("skipping prune of pinned checkpoint")
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.root, name)); err != nil {
			return fmt.Errorf("checkpoint: prune %s: %w: %w", name, types.ErrStorageFatal, err)
		}
		pruned++
	}
	if pruned > 0 {
		metrics.CheckpointsPruned.WithLabelValues(m.coreID).Add(float64(pruned))
	}
	return nil
}

// zeroPadNanos renders a nanosecond timestamp as a fixed-width 20-digit
// decimal string so lexical order matches numeric order for as long as the
// process can plausibly run.
func zeroPadNanos(nanos int64) string {
	return fmt.Sprintf("%020d", nanos)
}
