package core

import (
	"fmt"
	"testing"

	"github.com/cuemby/ridgedb/pkg/types"
)

// P1: after any successful flush(w) with w.instruction.clock = c, every
// subsequent clocked() returns a value >= c, and no prior clocked()
// observation exceeded c.
func TestPropertyClockedIsMonotoneAcrossFlushes(t *testing.T) {
	c := newTestCore(t, 0)

	var observed []uint64
	for clock := uint64(1); clock <= 10; clock++ {
		putAt(t, c, clock, []byte(fmt.Sprintf("k%d", clock)), []byte("v"))
		got, err := c.Clocked()
		if err != nil {
			t.Fatalf("Clocked(): %v", err)
		}
		if got < clock {
			t.Fatalf("Clocked() = %d after flush at clock %d; want >= %d", got, clock, clock)
		}
		observed = append(observed, got)
	}

	for i := 1; i < len(observed); i++ {
		if observed[i] < observed[i-1] {
			t.Fatalf("Clocked() went backwards: observed[%d]=%d < observed[%d]=%d", i, observed[i], i-1, observed[i-1])
		}
	}
}

// P2: a batch's writes and its CLOCK_K update land in one bbolt
// transaction, so either all of a flush's writes are readable and
// clocked() equals its clock, or none are and clocked() is smaller.
// bbolt's transactional commit makes the "none" half unreachable from
// application code (there is no partial-commit API to exercise), so this
// test asserts the "all" half holds across a run of multi-key batches.
func TestPropertyFlushIsAllOrNothingPerBatch(t *testing.T) {
	c := newTestCore(t, 0)
	reader, err := c.Reader()
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}

	for clock := uint64(1); clock <= 5; clock++ {
		w, err := c.Writer(types.Instruction{Clock: clock})
		if err != nil {
			t.Fatalf("Writer: %v", err)
		}
		keys := [][]byte{
			[]byte(fmt.Sprintf("batch%d-a", clock)),
			[]byte(fmt.Sprintf("batch%d-b", clock)),
			[]byte(fmt.Sprintf("batch%d-c", clock)),
		}
		for _, k := range keys {
			w.Put(k, []byte("v"))
		}
		if err := c.Flush(w); err != nil {
			t.Fatalf("Flush at clock %d: %v", clock, err)
		}

		clocked, err := c.Clocked()
		if err != nil || clocked != clock {
			t.Fatalf("Clocked() after flush at clock %d = %d, %v; want %d, nil", clock, clocked, err, clock)
		}
		for _, k := range keys {
			if _, ok, err := reader.Get(k); err != nil || !ok {
				t.Fatalf("key %s not readable immediately after its batch's flush (clock %d)", k, clock)
			}
		}
	}
}
