package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/ridgedb/pkg/checkpoint"
	"github.com/cuemby/ridgedb/pkg/datastore"
	"github.com/cuemby/ridgedb/pkg/instructionlog"
	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/metrics"
	"github.com/cuemby/ridgedb/pkg/roleevents"
	"github.com/cuemby/ridgedb/pkg/taskrunner"
	"github.com/cuemby/ridgedb/pkg/types"
)

// Core is the single per-core facade holding every subsystem handle.
type Core struct {
	identity types.CoreIdentity
	cfg      types.Config

	coreRoot string
	dbDir    string
	dbOpts   types.EngineOptions

	dsMu      sync.RWMutex // guards dataStore across apply_backup's close/reopen swap
	dataStore *datastore.Store

	instrLog    *instructionlog.Log
	checkpoints *checkpoint.Manager
	runner      *taskrunner.Runner
	roleBroker  *roleevents.Broker

	snapMu      sync.Mutex // guards which Snapshotter backup() uses
	snapshotter checkpoint.Snapshotter

	mu        sync.Mutex
	destroyed bool

	writeGate sync.RWMutex // RLock per flush, Lock while transitioning away from primary

	roleMu sync.Mutex
	role   types.Role

	clearClockCalls uint64

	statsStopCh chan struct{}
	statsDoneCh chan struct{}
}

// Open creates (on first start) or re-attaches to (on restart) the core
// directory rooted at cfg.DBPath, recovering a crash mid apply-backup swap
// before opening the live Data Store.
func Open(cfg types.Config, identity types.CoreIdentity) (*Core, error) {
	logger := log.WithCore("core", identity.String())

	coreRoot := cfg.DBPath
	if err := os.MkdirAll(coreRoot, 0o755); err != nil {
		return nil, fmt.Errorf("core: create root %s: %w: %w", coreRoot, types.ErrStorageFatal, err)
	}

	dbDir := filepath.Join(coreRoot, "db")
	instrDir := filepath.Join(coreRoot, "instruction")

	dbOpts, err := loadEngineOptions(cfg.DBOptionsFile)
	if err != nil {
		return nil, err
	}
	logOpts, err := loadEngineOptions(cfg.LogOptionsFile)
	if err != nil {
		return nil, err
	}

	checkpoints, err := checkpoint.New(coreRoot, identity.CoreID)
	if err != nil {
		return nil, err
	}

	// Only attempt apply_backup crash recovery on a restart: instrDir is
	// never swapped and survives every restart, so its absence means this
	// is the very first start and there is nothing to recover.
	if _, statErr := os.Stat(instrDir); statErr == nil {
		if err := checkpoints.RecoverFromCrash(dbDir, checkpoint.RemoteName); err != nil {
			return nil, fmt.Errorf("core: open: %w", err)
		}
	}

	instrLog, err := instructionlog.Open(instrDir, logOpts)
	if err != nil {
		return nil, err
	}

	dataStore, err := datastore.Open(dbDir, cfg.TTLSeconds, dbOpts)
	if err != nil {
		_ = instrLog.Close()
		return nil, err
	}
	dataStore.SetCoreID(identity.CoreID)

	var snapshotter checkpoint.Snapshotter = dataStore
	if !cfg.FastSnapshot {
		backupDir := filepath.Join(coreRoot, "backup")
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			_ = dataStore.Close()
			_ = instrLog.Close()
			return nil, fmt.Errorf("core: create backup dir: %w: %w", types.ErrStorageFatal, err)
		}
		snapshotter = &checkpoint.BackupStrategy{LiveDir: dbDir}
	}

	c := &Core{
		identity:    identity,
		cfg:         cfg,
		coreRoot:    coreRoot,
		dbDir:       dbDir,
		dbOpts:      dbOpts,
		dataStore:   dataStore,
		instrLog:    instrLog,
		checkpoints: checkpoints,
		snapshotter: snapshotter,
		runner:      taskrunner.New(identity.CoreID),
		roleBroker:  roleevents.NewBroker(),
		role:        types.RoleIdle,
	}

	c.roleBroker.Start()
	dataStore.SetEventHandler(datastore.EventHandler{
		OnFlushCompleted:      c.onFlushCompleted,
		OnCompactionCompleted: c.onCompactionCompleted,
		OnBackgroundError:     c.onBackgroundError,
	})
	dataStore.StartBackgroundLoop()

	if cfg.OpenStatisticsCollector {
		c.startStatisticsCollector()
	}

	logger.Info().Str("root", coreRoot).Bool("ttl", dataStore.TTLEnabled()).Msg("core opened")
	return c, nil
}

// Identity returns this core's identity.
func (c *Core) Identity() types.CoreIdentity {
	return c.identity
}

// store returns the current Data Store handle, safe to call concurrently
// with an apply_backup swap.
func (c *Core) store() *datastore.Store {
	c.dsMu.RLock()
	defer c.dsMu.RUnlock()
	return c.dataStore
}

func (c *Core) checkAlive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return fmt.Errorf("core: %w", types.ErrDestroyed)
	}
	return nil
}

// Reader hands out a snapshot-isolated read handle. No locking is
// required: the Data Store provides its own point-in-time scans.
func (c *Core) Reader() (*Reader, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	return &Reader{store: c.store()}, nil
}

// Writer returns a write-batch builder scoped to one Instruction.
func (c *Core) Writer(instruction types.Instruction) (*Writer, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	return &Writer{
		core:        c,
		instruction: instruction,
		batch:       datastore.NewBatch(),
	}, nil
}

// Flush commits w's accumulated batch atomically, augmented with the new
// clocked value in the meta namespace. On return the mutation is durable
// and Clocked() == w.instruction.Clock. Any error is fatal.
func (c *Core) Flush(w *Writer) error {
	if err := c.checkAlive(); err != nil {
		return err
	}

	c.writeGate.RLock()
	defer c.writeGate.RUnlock()

	if role := c.Role(); role != types.RolePrimary {
		return fmt.Errorf("core: flush: core is not primary (role=%s)", role)
	}

	timer := metrics.NewTimer()

	var metaValue []byte
	if c.store().TTLEnabled() {
		metaValue = types.EncodeClockTTL(w.instruction.Clock, time.Now().UnixNano())
	} else {
		metaValue = types.EncodeClock(w.instruction.Clock)
	}
	w.batch.Put(datastore.NamespaceMeta, types.ClockKey, metaValue)

	if err := c.store().WriteBatch(w.batch); err != nil {
		return fmt.Errorf("core: flush: %w", err)
	}

	metrics.FlushesTotal.WithLabelValues(c.identity.CoreID).Inc()
	timer.ObserveDurationVec(metrics.FlushDuration, c.identity.CoreID)
	metrics.ClockApplied.WithLabelValues(c.identity.CoreID).Set(float64(w.instruction.Clock))
	return nil
}

// Clocked reads the durably-applied clock from the meta namespace, or 0
// if no flush has ever committed.
func (c *Core) Clocked() (uint64, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	v, ok, err := c.store().Get(datastore.NamespaceMeta, types.ClockKey)
	if err != nil {
		return 0, fmt.Errorf("core: clocked: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return types.DecodeClockTTL(v)
}

// Clock reads the accept-clock from the instruction log's CLOCK_K, or 0
// if Tick has never been called.
func (c *Core) Clock() (uint64, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	return c.instrLog.ReadTick()
}

// Tick records that the core has accepted clock into the instruction log.
func (c *Core) Tick(clock uint64) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	if err := c.instrLog.WriteTick(clock); err != nil {
		return err
	}
	metrics.ClockTick.WithLabelValues(c.identity.CoreID).Set(float64(clock))
	return nil
}

// ApproximateCount delegates to the Data Store's data namespace.
func (c *Core) ApproximateCount() (uint64, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	n, err := c.store().ApproximateCount(datastore.NamespaceData)
	if err != nil {
		return 0, err
	}
	metrics.DataStoreApproximateCount.WithLabelValues(c.identity.CoreID).Set(float64(n))
	return n, nil
}

// ApproximateSize delegates to the Data Store's data namespace.
func (c *Core) ApproximateSize() (uint64, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	n, err := c.store().ApproximateSize(datastore.NamespaceData)
	if err != nil {
		return 0, err
	}
	metrics.DataStoreApproximateSize.WithLabelValues(c.identity.CoreID).Set(float64(n))
	return n, nil
}

// Destroy closes the Data Store, Instruction Log and background loops.
// The on-disk core directory is deliberately NOT removed, so a pending
// file handle elsewhere in the process never outlives a deleted path.
func (c *Core) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.mu.Unlock()

	c.stopStatisticsCollector()
	c.runner.Close()
	c.roleBroker.Stop()

	var firstErr error
	if err := c.store().Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.instrLog.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
