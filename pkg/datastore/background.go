package datastore

import (
	"time"

	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/metrics"
)

// backgroundInterval is the cadence of the simulated flush/compaction
// loop. bbolt has no asynchronous engine callbacks of its own, so the
// store fires on_flush_completed/on_compaction_completed itself on this
// ticker, the same idiom the teacher's reconciler used for its cluster
// reconciliation loop.
const backgroundInterval = 30 * time.Second

// StartBackgroundLoop launches the goroutine that periodically flushes,
// reclaims expired TTL entries, and invokes the configured EventHandler.
// It is a no-op if already running.
func (s *Store) StartBackgroundLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.runBackgroundLoop(s.stopCh, s.doneCh)
}

// StopBackgroundLoop stops the background loop, if running, and waits for
// it to exit.
func (s *Store) StopBackgroundLoop() {
	s.mu.Lock()
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.stopCh = nil
	s.doneCh = nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (s *Store) runBackgroundLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	logger := log.WithComponent("datastore")
	ticker := time.NewTicker(backgroundInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ForceFlush()
			s.ForceCompaction()
		case <-stopCh:
			logger.Debug().Msg("background loop stopped")
			return
		}
	}
}

// ForceFlush synchronously flushes the database and fires
// on_flush_completed(data), letting callers and tests trigger the event
// deterministically instead of waiting out the ticker.
func (s *Store) ForceFlush() {
	logger := log.WithComponent("datastore")
	timer := metrics.NewTimer()

	if err := s.db.Sync(); err != nil {
		s.fireBackgroundError("flush", err)
		return
	}
	s.mu.Lock()
	coreID := s.coreID
	s.mu.Unlock()
	timer.ObserveDurationVec(metrics.FlushDuration, coreID)
	logger.Debug().Msg("flush completed")

	s.mu.Lock()
	handler := s.handlers.OnFlushCompleted
	s.mu.Unlock()
	if handler != nil {
		handler(NamespaceData)
	}
}

// ForceCompaction synchronously reclaims expired TTL entries (a no-op
// outside TTL mode) and fires on_compaction_completed(data).
func (s *Store) ForceCompaction() {
	logger := log.WithComponent("datastore")

	reclaimed, err := s.reclaimExpired()
	if err != nil {
		s.fireBackgroundError("compaction", err)
		return
	}
	if reclaimed > 0 {
		s.mu.Lock()
		coreID := s.coreID
		s.mu.Unlock()
		metrics.CompactionsTotal.WithLabelValues(coreID, string(NamespaceData)).Inc()
	}
	logger.Debug().Int("reclaimed", reclaimed).Msg("compaction completed")

	s.mu.Lock()
	handler := s.handlers.OnCompactionCompleted
	s.mu.Unlock()
	if handler != nil {
		handler(NamespaceData)
	}
}

func (s *Store) fireBackgroundError(reason string, err error) {
	log.WithComponent("datastore").Error().Err(err).Str("reason", reason).Msg("background operation failed")

	s.mu.Lock()
	handler := s.handlers.OnBackgroundError
	s.mu.Unlock()
	if handler != nil {
		handler(reason, err)
	}
}
