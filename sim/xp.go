package sim

// AddXP accumulates experience and resolves every level-up it pays for.
// It returns the number of levels gained.
func (p *PlayerState) AddXP(amount float64) int {
	if !(amount > 0) {
		return 0
	}
	p.CurrentXP += amount

	gained := 0
	for p.XPToNextLevel > 0 && p.CurrentXP >= p.XPToNextLevel {
		p.CurrentXP -= p.XPToNextLevel
		p.CurrentLevel++
		p.XPToNextLevel = p.catalog.NextXPThreshold(p.CurrentLevel, p.XPToNextLevel)
		gained++
	}
	if gained == 0 {
		return 0
	}

	if p.PendingLevelUps == 0 {
		p.LevelsGainedThisBatch = gained
	} else {
		p.LevelsGainedThisBatch += gained
	}
	p.PendingLevelUps += gained
	p.emit(CueLevelUp)
	return gained
}

// ConsumeLevelUp pops one pending level-up. LevelsGainedThisBatch is left
// alone so the UI can keep showing the batch size.
func (p *PlayerState) ConsumeLevelUp() bool {
	if p.PendingLevelUps <= 0 {
		return false
	}
	p.PendingLevelUps--
	return true
}
