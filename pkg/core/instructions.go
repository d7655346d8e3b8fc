package core

import "github.com/cuemby/ridgedb/pkg/metrics"

// rangeCompactionInterval is how often clear_clock also range-deletes
// everything below the clock it was called at.
const rangeCompactionInterval = 1_000_000

// SaveInstruction adds clock/payload to the replayable instruction log.
func (c *Core) SaveInstruction(clock uint64, payload []byte) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	if err := c.instrLog.Put(clock, payload); err != nil {
		return err
	}
	metrics.InstructionsSaved.WithLabelValues(c.identity.CoreID).Inc()
	return nil
}

// ReappearInstruction looks up the payload previously saved at clock.
func (c *Core) ReappearInstruction(clock uint64) ([]byte, bool, error) {
	if err := c.checkAlive(); err != nil {
		return nil, false, err
	}
	return c.instrLog.Get(clock)
}

// ClearClock removes the logged instruction at clock. Every
// rangeCompactionInterval calls (counted per Core, whatever the clock
// values), it also range-deletes [0, clock), so on those calls nothing in
// [0, clock] is left behind.
func (c *Core) ClearClock(clock uint64) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	if err := c.instrLog.Delete(clock); err != nil {
		return err
	}
	metrics.InstructionsCleared.WithLabelValues(c.identity.CoreID).Inc()

	c.mu.Lock()
	c.clearClockCalls++
	shouldCompact := c.clearClockCalls%rangeCompactionInterval == 0
	c.mu.Unlock()

	if shouldCompact {
		if err := c.instrLog.DeleteRange(0, clock); err != nil {
			return err
		}
	}
	return nil
}
