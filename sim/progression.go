package sim

import "math"

// AddFragments credits amount scaled by the fragment multiplier, rounded
// to a whole number. It returns what was credited.
func (p *PlayerState) AddFragments(amount float64) int {
	if !(amount > 0) {
		return 0
	}
	n := int(math.Round(amount * p.stats.FragmentMultiplier))
	p.Fragments += n
	return n
}

// SpendFragments deducts n if the balance covers it.
func (p *PlayerState) SpendFragments(n int) bool {
	if n < 0 || n > p.Fragments {
		return false
	}
	p.Fragments -= n
	return true
}

// SacrificeFragmentsForHP trades cost fragments for hp healing. It is
// rejected for destroyed or undamaged ships and when the balance is short.
func (p *PlayerState) SacrificeFragmentsForHP(cost int, hp float64) bool {
	if cost < 0 || hp <= 0 || p.CurrentHP <= 0 || p.CurrentHP >= p.MaxHP {
		return false
	}
	if !p.SpendFragments(cost) {
		return false
	}
	p.CurrentHP += hp
	p.clampHP()
	return true
}

// ApplyPermanentUpgrade buys the next level of upgrade id.
func (p *PlayerState) ApplyPermanentUpgrade(id string) bool {
	_, status := p.PurchaseUpgradeLevel(id, p.OwnedUpgrades[id]+1)
	return status == PurchaseOK
}

// PurchaseUpgradeLevel buys a specific level of upgrade id with run
// fragments and folds its bonus into the upgrade stage. Levels must be
// bought in order. On any failure nothing changes.
func (p *PlayerState) PurchaseUpgradeLevel(id string, level int) (UpgradeLevel, PurchaseStatus) {
	lvl, status := p.catalog.CheckPurchase(p.OwnedUpgrades, id, level, p.Fragments)
	if status != PurchaseOK {
		return lvl, status
	}
	p.Fragments -= lvl.Cost
	if p.OwnedUpgrades == nil {
		p.OwnedUpgrades = make(map[string]int)
	}
	p.OwnedUpgrades[id] = level

	foldUpgradeBonus(&p.UpgradeStats, &p.Charges, &p.LuckBonus, lvl.Bonus)
	if lvl.Bonus.Type == EffectHPMaxBonus {
		p.MaxHP += lvl.Bonus.Value
		if p.CurrentHP > 0 {
			p.CurrentHP += lvl.Bonus.Value
		}
		p.clampHP()
	}
	p.recomputeStats()
	p.emit(CueUpgrade)
	return lvl, PurchaseOK
}

// RefundPermanentUpgrades returns the fragments paid this run for levels
// above those the run started with and rolls the upgrade stage back to the
// run's permanent bonuses. Charges and luck granted by the refunded levels
// are taken back, never below zero. It returns the refunded amount.
func (p *PlayerState) RefundPermanentUpgrades() int {
	seeded := p.PermanentUpgradeBonuses.Owned
	refund := 0
	var (
		stage   Modifiers
		charges Charges
		luck    float64
	)
	for id, n := range p.OwnedUpgrades {
		u, ok := p.catalog.Upgrade(id)
		if !ok {
			continue
		}
		for i := seeded[id]; i < n && i < len(u.Levels); i++ {
			refund += u.Levels[i].Cost
			foldUpgradeBonus(&stage, &charges, &luck, u.Levels[i].Bonus)
		}
	}

	p.Fragments += refund
	p.OwnedUpgrades = make(map[string]int, len(seeded))
	for id, n := range seeded {
		p.OwnedUpgrades[id] = n
	}
	p.UpgradeStats = p.PermanentUpgradeBonuses.Modifiers
	p.Charges = p.Charges.Sub(charges)
	p.LuckBonus = math.Max(p.LuckBonus-luck, 0)

	prev := p.MaxHP
	p.rebuildMaxHP()
	if drop := prev - p.MaxHP; drop > 0 && p.CurrentHP > 0 {
		p.CurrentHP = math.Max(p.CurrentHP-drop, 1)
	}
	p.clampHP()
	p.recomputeStats()
	return refund
}

// AcceptDilemma applies a dilemma's bonus, then its malus. Each dilemma
// can be taken once per run.
func (p *PlayerState) AcceptDilemma(id string) bool {
	d, ok := p.catalog.Dilemma(id)
	if !ok || p.AcceptedDilemmas[id] {
		return false
	}
	if p.AcceptedDilemmas == nil {
		p.AcceptedDilemmas = make(map[string]bool)
	}
	p.AcceptedDilemmas[id] = true
	p.applyDilemmaEffect(d.Bonus)
	p.applyDilemmaEffect(d.Malus)
	p.recomputeStats()
	p.emit(CueDilemma)
	return true
}
