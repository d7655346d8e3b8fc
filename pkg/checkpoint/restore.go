package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/types"
)

const willDeletePrefix = "will_delete_soon_"

// RestoreFrom implements the atomic-against-restart swap protocol: the
// live Data Store directory is replaced by the named checkpoint. closeLive
// must close every handle onto the live Data Store (including this
// Manager's own callers' handles) before the rename dance begins;
// reopenLive must reopen a Data Store at liveDir afterward.
//
//  1. closeLive()
//  2. rename liveDir -> will_delete_soon_<name>
//  3. rename <checkpoint root>/name -> liveDir
//  4. reopenLive()
//  5. remove will_delete_soon_<name>
func (m *Manager) RestoreFrom(name, liveDir string, closeLive, reopenLive func() error) error {
	logger := log.WithComponent("checkpoint")
	checkpointDir := filepath.Join(m.root, name)

	if _, err := os.Stat(checkpointDir); err != nil {
		return fmt.Errorf("checkpoint: restore_from %s: %w: %w", name, types.ErrStorageFatal, err)
	}

	if err := closeLive(); err != nil {
		return fmt.Errorf("checkpoint: restore_from %s: close live: %w: %w", name, types.ErrStorageFatal, err)
	}

	staleDir := willDeleteDir(liveDir, name)
	if err := os.RemoveAll(staleDir); err != nil {
		return fmt.Errorf("checkpoint: restore_from %s: clear stale dir: %w", name, err)
	}

	if err := os.Rename(liveDir, staleDir); err != nil {
		return fmt.Errorf("checkpoint: restore_from %s: rename live aside: %w: %w", name, types.ErrStorageFatal, err)
	}

	if err := os.Rename(checkpointDir, liveDir); err != nil {
		// Best-effort: try to put the live directory back so the core can
		// still start, even though this swap has failed.
		_ = os.Rename(staleDir, liveDir)
		return fmt.Errorf("checkpoint: restore_from %s: rename checkpoint into place: %w: %w", name, types.ErrStorageFatal, err)
	}

	if err := reopenLive(); err != nil {
		return fmt.Errorf("checkpoint: restore_from %s: reopen live: %w: %w", name, types.ErrStorageFatal, err)
	}

	if err := os.RemoveAll(staleDir); err != nil {
		logger.Warn().Err(err).Str("dir", staleDir).Msg("failed to remove stale directory after successful swap")
	}

	logger.Info().Str("checkpoint", name).Msg("restore_from completed")
	return nil
}

// RecoverFromCrash repairs a swap interrupted between the rename-aside and
// rename-into-place steps. Call once at process start before opening the
// live Data Store. name is the checkpoint expected to have been swapping
// in (always RemoteName for apply_backup).
//
// Recovery policy: if liveDir is missing and a remote-checkpoint directory
// exists, the rename-into-place step never ran — complete it. Otherwise,
// if liveDir is missing and a will_delete_soon_* directory exists, the
// crash happened before the rename-into-place committed — rename the
// stale directory back.
func (m *Manager) RecoverFromCrash(liveDir, name string) error {
	logger := log.WithComponent("checkpoint")

	if _, err := os.Stat(liveDir); err == nil {
		return nil // live directory intact, nothing to recover
	}

	checkpointDir := filepath.Join(m.root, name)
	if _, err := os.Stat(checkpointDir); err == nil {
		logger.Warn().Str("checkpoint", name).Msg("recovering from crash mid-swap: completing pending rename")
		return os.Rename(checkpointDir, liveDir)
	}

	staleDir, err := findStaleDir(liveDir)
	if err != nil {
		return fmt.Errorf("checkpoint: recover_from_crash: %w", err)
	}
	if staleDir == "" {
		return fmt.Errorf("checkpoint: recover_from_crash: live dir %s missing and no recovery candidate found", liveDir)
	}

	logger.Warn().Str("dir", staleDir).Msg("recovering from crash mid-swap: restoring previous live directory")
	return os.Rename(staleDir, liveDir)
}

func willDeleteDir(liveDir, name string) string {
	return filepath.Join(filepath.Dir(liveDir), willDeletePrefix+name+"_"+filepath.Base(liveDir))
}

func findStaleDir(liveDir string) (string, error) {
	parent := filepath.Dir(liveDir)
	entries, err := os.ReadDir(parent)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), willDeletePrefix) {
			return filepath.Join(parent, e.Name()), nil
		}
	}
	return "", nil
}
