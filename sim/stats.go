package sim

import "math"

// Modifiers is one stacking stage. Ratios compose by multiplication,
// FlatHP by addition.
type Modifiers struct {
	DamageMult   float64 `msgpack:"dmg" json:"dmg"`
	SpeedMult    float64 `msgpack:"spd" json:"spd"`
	CooldownMult float64 `msgpack:"cd" json:"cd"`
	FragmentMult float64 `msgpack:"frag" json:"frag"`
	HPMaxMult    float64 `msgpack:"hpm" json:"hpm"`
	FlatHP       float64 `msgpack:"hp" json:"hp"`
}

// IdentityModifiers changes nothing.
func IdentityModifiers() Modifiers {
	return Modifiers{DamageMult: 1, SpeedMult: 1, CooldownMult: 1, FragmentMult: 1, HPMaxMult: 1}
}

// PermanentBonuses is the frozen result of folding an owned upgrade ladder.
type PermanentBonuses struct {
	Modifiers `msgpack:"mods" json:"mods"`
	Charges   Charges        `msgpack:"charges" json:"charges"`
	Luck      float64        `msgpack:"luck" json:"luck"`
	Owned     map[string]int `msgpack:"owned" json:"owned"`
}

// PermanentBonuses folds every owned level, in ladder order, into a snapshot.
func (c *Catalog) PermanentBonuses(owned map[string]int) PermanentBonuses {
	b := PermanentBonuses{
		Modifiers: IdentityModifiers(),
		Owned:     make(map[string]int, len(owned)),
	}
	for _, u := range c.Upgrades {
		n := owned[u.ID]
		if n > u.MaxLevel {
			n = u.MaxLevel
		}
		if n <= 0 {
			continue
		}
		b.Owned[u.ID] = n
		for i := 0; i < n; i++ {
			foldUpgradeBonus(&b.Modifiers, &b.Charges, &b.Luck, u.Levels[i].Bonus)
		}
	}
	return b
}

// foldUpgradeBonus applies one upgrade level to a stage. HP_MAX_BONUS
// lands in FlatHP; the caller decides how that reaches the hull.
func foldUpgradeBonus(m *Modifiers, ch *Charges, luck *float64, e Effect) {
	switch e.Type {
	case EffectDamageMult:
		m.DamageMult *= e.Value
	case EffectSpeedMult:
		m.SpeedMult *= e.Value
	case EffectCooldownMult:
		m.CooldownMult *= e.Value
	case EffectFragmentMult:
		m.FragmentMult *= e.Value
	case EffectHPMaxBonus:
		m.FlatHP += e.Value
	case EffectRevivalCharge:
		ch.Revival += int(e.Value)
	case EffectRerollCharge:
		ch.Reroll += int(e.Value)
	case EffectSkipCharge:
		ch.Skip += int(e.Value)
	case EffectBanishCharge:
		ch.Banish += int(e.Value)
	case EffectLuck:
		*luck += e.Value
	}
}

// EffectiveStats is the immutable bundle the per-frame code reads.
type EffectiveStats struct {
	MaxHP              float64 `msgpack:"maxHP" json:"maxHP"`
	ShipSpeed          float64 `msgpack:"shipSpeed" json:"shipSpeed"`
	SpeedMultiplier    float64 `msgpack:"speed" json:"speed"`
	DamageMultiplier   float64 `msgpack:"damage" json:"damage"`
	CooldownMultiplier float64 `msgpack:"cooldown" json:"cooldown"`
	FragmentMultiplier float64 `msgpack:"fragments" json:"fragments"`
	DashCooldown       float64 `msgpack:"dashCD" json:"dashCD"`
	Luck               float64 `msgpack:"luck" json:"luck"`
}

// composeStats folds the ship, upgrade and dilemma stages, in that order.
func composeStats(p *PlayerState) EffectiveStats {
	up, dil := p.UpgradeStats, p.DilemmaStats
	cd := up.CooldownMult * dil.CooldownMult
	return EffectiveStats{
		MaxHP:              p.MaxHP,
		ShipSpeed:          p.ShipBaseSpeed,
		SpeedMultiplier:    up.SpeedMult * dil.SpeedMult,
		DamageMultiplier:   p.ShipBaseDamageMultiplier * up.DamageMult * dil.DamageMult,
		CooldownMultiplier: cd,
		FragmentMultiplier: up.FragmentMult * dil.FragmentMult,
		DashCooldown:       DashCooldown * cd,
		Luck:               p.LuckBonus,
	}
}

// hpFloorEpsilon keeps 150×0.8 from flooring to 119.
const hpFloorEpsilon = 1e-9

// applyDilemmaEffect is shared by a dilemma's bonus and malus.
func (p *PlayerState) applyDilemmaEffect(e Effect) {
	switch e.Type {
	case EffectDamageMult:
		p.DilemmaStats.DamageMult *= e.Value
	case EffectSpeedMult:
		p.DilemmaStats.SpeedMult *= e.Value
	case EffectCooldownMult:
		p.DilemmaStats.CooldownMult *= e.Value
	case EffectHPMaxMult:
		p.DilemmaStats.HPMaxMult *= e.Value
		p.hpMults = append(p.hpMults, e.Value)
		prev := p.MaxHP
		p.MaxHP = scaleMaxHP(prev, e.Value)
		if e.Value >= 1 {
			if p.CurrentHP > 0 {
				p.CurrentHP += p.MaxHP - prev
			}
		}
		p.clampHP()
	}
}

func scaleMaxHP(hp, mult float64) float64 {
	return math.Max(math.Floor(hp*mult+hpFloorEpsilon), 1)
}

// rebuildMaxHP recomputes max HP in stage order: the level-scaled hull,
// the permanent flat bonus, then every HP dilemma.
func (p *PlayerState) rebuildMaxHP() {
	ship, ok := p.catalog.Ship(p.CurrentShipID)
	if !ok {
		return
	}
	hp := ship.BaseHP*p.catalog.ShipLevelMultiplier(ship, p.ShipLevel) + p.PermanentUpgradeBonuses.FlatHP
	for _, m := range p.hpMults {
		hp = scaleMaxHP(hp, m)
	}
	p.MaxHP = hp
}
