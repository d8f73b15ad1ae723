package sim

import "testing"

func TestCountdownAdvance(t *testing.T) {
	var c Countdown
	c.Set(0.5)
	if !c.Active() {
		t.Fatal("expected active after Set")
	}

	expired, overflow := c.Advance(0.2)
	if expired || overflow != 0 {
		t.Errorf("expected no expiry, got expired=%v overflow=%f", expired, overflow)
	}
	if !approx(c.Remaining, 0.3, 1e-12) {
		t.Errorf("expected 0.3 remaining, got %f", c.Remaining)
	}

	expired, overflow = c.Advance(0.5)
	if !expired {
		t.Error("expected expiry")
	}
	if !approx(overflow, 0.2, 1e-12) {
		t.Errorf("expected overflow 0.2, got %f", overflow)
	}
	if c.Remaining != 0 {
		t.Errorf("expected clamp at 0, got %f", c.Remaining)
	}

	expired, _ = c.Advance(0.1)
	if expired {
		t.Error("idle timer must not report expiry again")
	}
}

func TestCountdownNegativeSet(t *testing.T) {
	var c Countdown
	c.Set(-1)
	if c.Active() || c.Remaining != 0 {
		t.Errorf("negative duration should clear, got %f", c.Remaining)
	}
}
