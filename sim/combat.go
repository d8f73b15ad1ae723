package sim

// TakeDamage applies a hit reduced by damageReduction (0..1). Guards run
// in order: god mode, invulnerability, contact cooldown. It returns false
// when a guard swallowed the hit.
func (p *PlayerState) TakeDamage(amount, damageReduction float64) bool {
	if p.GodMode || p.IsInvulnerable || p.Timers.ContactDamage.Active() {
		return false
	}
	if amount < 0 {
		amount = 0
	}
	dealt := amount * (1 - clamp(damageReduction, 0, 1))

	p.CurrentHP -= dealt
	p.clampHP()
	p.IsInvulnerable = true
	p.Timers.Invulnerability.Set(InvulnerabilityDuration)
	p.LastDamageTime = p.Clock
	p.Timers.ContactDamage.Set(ContactDamageCooldown)
	p.Timers.DamageFlash.Set(DamageFlashDuration)
	p.Timers.CameraShake.Set(CameraShakeDuration)
	p.ShakeIntensity = CameraShakeIntensity

	if dealt > 0 {
		if p.damage != nil {
			p.damage.SpawnDamageNumber(DamageNumber{
				Damage:         dealt,
				WorldX:         p.Position.X(),
				WorldZ:         p.Position.Y(),
				Color:          PlayerDamageColor,
				IsPlayerDamage: true,
			})
		}
		p.emit(CueHit)
	}
	return true
}

// StartDash begins a dash. Invulnerability lasts as long as the dash
// itself; the dash cooldown arms when the dash ends.
func (p *PlayerState) StartDash() bool {
	if p.IsDashing || p.Timers.DashCooldown.Active() {
		return false
	}
	p.IsDashing = true
	p.Timers.Dash.Set(DashDuration)
	p.IsInvulnerable = true
	p.emit(CueDash)
	return true
}

// TryRevive spends a revival charge to bring a destroyed ship back.
func (p *PlayerState) TryRevive() bool {
	if p.CurrentHP > 0 || p.Charges.Revival <= 0 {
		return false
	}
	p.Charges.Revival--
	p.CurrentHP = p.MaxHP * ReviveHPFraction
	p.clampHP()
	p.IsInvulnerable = true
	p.Timers.Invulnerability.Set(ReviveInvulnerability)
	p.emit(CueRevive)
	return true
}

// ActivateShield arms the shield timer, keeping the longer of the current
// and requested durations.
func (p *PlayerState) ActivateShield(d float64) bool {
	if d <= 0 {
		return false
	}
	if d > p.Timers.Shield.Remaining {
		p.Timers.Shield.Set(d)
	}
	p.emit(CueShield)
	return true
}

// ShieldActive reports whether the shield timer is running.
func (p *PlayerState) ShieldActive() bool {
	return p.Timers.Shield.Active()
}

func useCharge(n *int) bool {
	if *n <= 0 {
		return false
	}
	*n--
	return true
}

// UseReroll spends one reroll charge.
func (p *PlayerState) UseReroll() bool { return useCharge(&p.Charges.Reroll) }

// UseSkip spends one skip charge.
func (p *PlayerState) UseSkip() bool { return useCharge(&p.Charges.Skip) }

// UseBanish spends one banish charge.
func (p *PlayerState) UseBanish() bool { return useCharge(&p.Charges.Banish) }
