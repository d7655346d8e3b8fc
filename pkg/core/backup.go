package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cuemby/ridgedb/pkg/checkpoint"
	"github.com/cuemby/ridgedb/pkg/datastore"
	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/metrics"
	"github.com/cuemby/ridgedb/pkg/replication"
	"github.com/cuemby/ridgedb/pkg/types"
)

// backup creates a fresh local checkpoint and prunes to
// Config.CheckpointKeepCount. onFlushCompleted and onCompactionCompleted
// are the only two automatic callers of it; every other checkpoint is
// explicit (a call made on a caller's behalf, e.g. transfer_to).
func (c *Core) backup() error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	c.snapMu.Lock()
	snap := c.snapshotter
	c.snapMu.Unlock()

	if _, err := c.checkpoints.Create(snap, checkpoint.LocalPrefix); err != nil {
		return err
	}
	keep := c.cfg.CheckpointKeepCount
	if keep <= 0 {
		keep = 3
	}
	return c.checkpoints.Prune(keep)
}

// Backup is the exported entry point for explicitly triggering a backup
// (e.g. from a CLI command), identical to the automatic background path.
func (c *Core) Backup() error {
	return c.backup()
}

// TransferTo runs the primary-to-follower snapshot transfer protocol
// against the named follower, reachable at follower.NetworkLocation.
func (c *Core) TransferTo(ctx context.Context, follower types.CoreIdentity) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	logger := log.WithComponent("core").With().Str("follower", follower.String()).Logger()
	timer := metrics.NewTimer()

	if err := c.backup(); err != nil {
		metrics.TransfersTotal.WithLabelValues(c.identity.CoreID, "backup_failed").Inc()
		return fmt.Errorf("core: transfer_to: %w", err)
	}

	name, err := c.checkpoints.Latest(checkpoint.LocalPrefix)
	if err != nil || name == "" {
		metrics.TransfersTotal.WithLabelValues(c.identity.CoreID, "no_checkpoint").Inc()
		return fmt.Errorf("core: transfer_to: no local checkpoint available: %w", err)
	}
	c.checkpoints.Pin(name)
	defer c.checkpoints.Unpin(name)

	client, err := replication.Dial(ctx, follower.NetworkLocation)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues(c.identity.CoreID, "dial_failed").Inc()
		return fmt.Errorf("core: transfer_to: %w: %w", types.ErrTransferTransient, err)
	}
	defer client.Close()

	resp, err := client.TransferBackup(ctx, &replication.TransferBackupRequest{
		MpuID:  follower.MpuID,
		CoreID: follower.CoreID,
	})
	if err != nil {
		metrics.TransfersTotal.WithLabelValues(c.identity.CoreID, "receive_backup_failed").Inc()
		return fmt.Errorf("core: transfer_to: %w: %w", types.ErrTransferTransient, err)
	}

	localDir := filepath.Join(c.checkpoints.Root(), name)
	transferResp, err := client.SendDirectory(ctx, localDir, resp.Path)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues(c.identity.CoreID, "file_transfer_failed").Inc()
		return fmt.Errorf("core: transfer_to: %w: %w", types.ErrTransferTransient, err)
	}
	metrics.BytesTransferred.WithLabelValues(c.identity.CoreID).Add(float64(transferResp.BytesWritten))

	if _, err := client.ApplyBackup(ctx, &replication.ApplyBackupRequest{
		MpuID:  follower.MpuID,
		CoreID: follower.CoreID,
	}); err != nil {
		metrics.TransfersTotal.WithLabelValues(c.identity.CoreID, "apply_backup_failed").Inc()
		return fmt.Errorf("core: transfer_to: %w: %w", types.ErrTransferTransient, err)
	}

	metrics.TransfersTotal.WithLabelValues(c.identity.CoreID, "success").Inc()
	timer.ObserveDurationVec(metrics.TransferDuration, c.identity.CoreID)
	logger.Info().Str("checkpoint", name).Int64("bytes", transferResp.BytesWritten).Msg("transfer_to completed")
	return nil
}

// PrepareIncomingSnapshot implements replication.Backend: it is the
// follower-side receive_backup entry point, staging the fixed
// remote-checkpoint directory.
func (c *Core) PrepareIncomingSnapshot(mpuID, coreID string) (string, error) {
	if err := c.checkAlive(); err != nil {
		return "", err
	}
	if mpuID != c.identity.MpuID || coreID != c.identity.CoreID {
		return "", fmt.Errorf("core: receive_backup: identity mismatch (got %s/%s, have %s/%s)", mpuID, coreID, c.identity.MpuID, c.identity.CoreID)
	}
	return c.checkpoints.PrepareRemoteStaging()
}

// CommitIncomingSnapshot implements replication.Backend: it is the
// follower-side apply_backup entry point, swapping remote-checkpoint in
// as the live Data Store per the §4.5 protocol.
func (c *Core) CommitIncomingSnapshot(mpuID, coreID string) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	if mpuID != c.identity.MpuID || coreID != c.identity.CoreID {
		return fmt.Errorf("core: apply_backup: identity mismatch (got %s/%s, have %s/%s)", mpuID, coreID, c.identity.MpuID, c.identity.CoreID)
	}

	c.writeGate.Lock()
	defer c.writeGate.Unlock()

	closeLive := func() error {
		return c.store().Close()
	}
	reopenLive := func() error {
		store, err := datastore.Open(c.dbDir, c.cfg.TTLSeconds, c.dbOpts)
		if err != nil {
			return err
		}
		store.SetCoreID(c.identity.CoreID)
		store.SetEventHandler(datastore.EventHandler{
			OnFlushCompleted:      c.onFlushCompleted,
			OnCompactionCompleted: c.onCompactionCompleted,
			OnBackgroundError:     c.onBackgroundError,
		})
		store.StartBackgroundLoop()

		c.dsMu.Lock()
		c.dataStore = store
		c.dsMu.Unlock()

		c.snapMu.Lock()
		if c.cfg.FastSnapshot {
			c.snapshotter = store
		}
		c.snapMu.Unlock()
		return nil
	}

	return c.checkpoints.RestoreFrom(checkpoint.RemoteName, c.dbDir, closeLive, reopenLive)
}
