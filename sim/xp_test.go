package sim

import "testing"

func TestAddXPMultiLevel(t *testing.T) {
	p := NewPlayerState(catalogWithXP([]float64{100, 150, 200}, 1.2))
	cues := &recordedCues{}
	p.SetCueSink(cues)

	if got := p.AddXP(320); got != 2 {
		t.Errorf("gained %d levels, want 2", got)
	}
	if p.CurrentLevel != 3 || p.CurrentXP != 70 {
		t.Errorf("expected level 3 with 70 XP, got level %d with %f", p.CurrentLevel, p.CurrentXP)
	}
	if p.XPToNextLevel != 200 {
		t.Errorf("next threshold %f, want 200", p.XPToNextLevel)
	}
	if p.PendingLevelUps != 2 || p.LevelsGainedThisBatch != 2 {
		t.Errorf("pending %d batch %d, want 2/2", p.PendingLevelUps, p.LevelsGainedThisBatch)
	}
	if len(cues.keys) != 1 {
		t.Errorf("expected one level-up cue, got %v", cues.keys)
	}
}

func TestAddXPGeometricTail(t *testing.T) {
	p := NewPlayerState(catalogWithXP([]float64{100}, 1.5))
	p.AddXP(100)
	if p.CurrentLevel != 2 || p.XPToNextLevel != 150 {
		t.Fatalf("level %d threshold %f", p.CurrentLevel, p.XPToNextLevel)
	}
	p.AddXP(150)
	if p.CurrentLevel != 3 || p.XPToNextLevel != 225 {
		t.Errorf("threshold should compound, level %d threshold %f", p.CurrentLevel, p.XPToNextLevel)
	}
	p.AddXP(10000)
	if p.CurrentXP >= p.XPToNextLevel {
		t.Errorf("leftover XP %f should be below threshold %f", p.CurrentXP, p.XPToNextLevel)
	}
}

func TestLevelUpBatching(t *testing.T) {
	p := NewPlayerState(catalogWithXP([]float64{10, 10, 10, 10, 10, 10}, 1.2))

	p.AddXP(20)
	if p.PendingLevelUps != 2 || p.LevelsGainedThisBatch != 2 {
		t.Fatalf("pending %d batch %d", p.PendingLevelUps, p.LevelsGainedThisBatch)
	}
	if !p.ConsumeLevelUp() {
		t.Fatal("consume failed")
	}
	if p.PendingLevelUps != 1 || p.LevelsGainedThisBatch != 2 {
		t.Errorf("consume should not shrink the batch: pending %d batch %d", p.PendingLevelUps, p.LevelsGainedThisBatch)
	}

	p.AddXP(11)
	if p.PendingLevelUps != 2 || p.LevelsGainedThisBatch != 3 {
		t.Errorf("gain during open batch should extend it: pending %d batch %d", p.PendingLevelUps, p.LevelsGainedThisBatch)
	}

	p.ConsumeLevelUp()
	p.ConsumeLevelUp()
	if p.PendingLevelUps != 0 || p.LevelsGainedThisBatch != 3 {
		t.Errorf("batch should stay sticky: pending %d batch %d", p.PendingLevelUps, p.LevelsGainedThisBatch)
	}
	if p.ConsumeLevelUp() {
		t.Error("empty queue should not consume")
	}

	p.AddXP(11)
	if p.PendingLevelUps != 1 || p.LevelsGainedThisBatch != 1 {
		t.Errorf("new batch should restart the counter: pending %d batch %d", p.PendingLevelUps, p.LevelsGainedThisBatch)
	}
}

func TestAddXPIgnoresNonPositive(t *testing.T) {
	p := NewPlayerState(nil)
	p.AddXP(0)
	p.AddXP(-50)
	if p.CurrentXP != 0 || p.PendingLevelUps != 0 {
		t.Error("non-positive XP should be ignored")
	}
}
