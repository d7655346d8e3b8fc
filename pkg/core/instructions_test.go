package core

import "testing"

// Scenario 5: save_instruction(7,"x"); save_instruction(8,"y");
// clear_clock(7); reappear_instruction(7)==nothing,
// reappear_instruction(8)=="y".
func TestScenarioClearClockRemovesOnlyTargetedInstruction(t *testing.T) {
	c := newTestCore(t, 0)

	if err := c.SaveInstruction(7, []byte("x")); err != nil {
		t.Fatalf("SaveInstruction(7): %v", err)
	}
	if err := c.SaveInstruction(8, []byte("y")); err != nil {
		t.Fatalf("SaveInstruction(8): %v", err)
	}
	if err := c.ClearClock(7); err != nil {
		t.Fatalf("ClearClock(7): %v", err)
	}

	_, ok, err := c.ReappearInstruction(7)
	if err != nil || ok {
		t.Fatalf("ReappearInstruction(7) = ok:%v, err:%v; want absent", ok, err)
	}
	payload, ok, err := c.ReappearInstruction(8)
	if err != nil || !ok || string(payload) != "y" {
		t.Fatalf("ReappearInstruction(8) = %q, %v, %v; want y, true, nil", payload, ok, err)
	}
}

func TestClearClockCompactsOnMillionthCall(t *testing.T) {
	c := newTestCore(t, 0)

	if err := c.SaveInstruction(3, []byte("three")); err != nil {
		t.Fatalf("SaveInstruction(3): %v", err)
	}

	c.mu.Lock()
	c.clearClockCalls = rangeCompactionInterval - 1
	c.mu.Unlock()

	// Clearing clock 10 only removes clock 3 through the [0, 10) range delete.
	if err := c.ClearClock(10); err != nil {
		t.Fatalf("ClearClock(10): %v", err)
	}

	_, ok, err := c.ReappearInstruction(3)
	if err != nil || ok {
		t.Fatalf("ReappearInstruction(3) after millionth ClearClock(10) = ok:%v, err:%v; want absent", ok, err)
	}
}
