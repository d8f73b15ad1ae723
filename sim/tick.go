package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Input is one frame of movement axes. Up is -z, Right is +x.
type Input struct {
	Up, Down, Left, Right bool
}

// Direction returns the unit-length movement direction, or the zero
// vector and false when no axis resolves to movement.
func (in Input) Direction() (mgl64.Vec2, bool) {
	var d mgl64.Vec2
	if in.Left {
		d[0]--
	}
	if in.Right {
		d[0]++
	}
	if in.Up {
		d[1]--
	}
	if in.Down {
		d[1]++
	}
	if d[0] == 0 && d[1] == 0 {
		return d, false
	}
	return d.Normalize(), true
}

// Aim is the optional pointer target for a frame.
type Aim struct {
	Target mgl64.Vec2
	Active bool
}

// WrapAngle maps a to (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	a -= math.Pi
	if a == -math.Pi {
		return math.Pi
	}
	return a
}

// Heading is the yaw of v. Zero faces +z.
func Heading(v mgl64.Vec2) float64 {
	return math.Atan2(v.X(), v.Y())
}

// ease returns the blend factor for an exponential approach at rate over dt.
func ease(rate, dt float64) float64 {
	return 1 - math.Exp(-rate*dt)
}

// EffectiveSpeed is the top speed for the current ship at speedMultiplier.
func (p *PlayerState) EffectiveSpeed(speedMultiplier float64) float64 {
	v := p.ShipBaseSpeed / ReferenceShipSpeed * BaseMoveSpeed * speedMultiplier
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// Tick advances the player by delta seconds. speedMultiplier is the
// caller's product of all speed modifiers; arenaSize is the full width of
// the square arena centered on the origin; hpRegenRate is HP per second.
// A nil aim means aiming is inactive.
func (p *PlayerState) Tick(delta float64, in Input, speedMultiplier, arenaSize, hpRegenRate float64, aim *Aim) {
	if !(delta > 0) || math.IsInf(delta, 0) {
		return
	}
	m := p.Motion
	t := p.Timers
	invulnerable, dashing := p.IsInvulnerable, p.IsDashing
	shake := p.ShakeIntensity
	hp := p.CurrentHP

	speed := p.EffectiveSpeed(speedMultiplier)
	dir, moving := in.Direction()

	prevVel := m.Velocity
	if moving {
		rate := Acceleration / math.Max(speed, minEaseSpeed)
		target := dir.Mul(speed)
		m.Velocity = m.Velocity.Add(target.Sub(m.Velocity).Mul(ease(rate, delta)))
	} else {
		m.Velocity = m.Velocity.Mul(math.Exp(-FrictionRate * delta))
		if m.Velocity.Len() < StopSpeed {
			m.Velocity = mgl64.Vec2{}
		}
	}

	m.Position = m.Position.Add(m.Velocity.Mul(delta))
	half := arenaSize / 2
	if half > 0 {
		for axis := 0; axis < 2; axis++ {
			if m.Position[axis] > half {
				m.Position[axis] = half
				m.Velocity[axis] = 0
			} else if m.Position[axis] < -half {
				m.Position[axis] = -half
				m.Velocity[axis] = 0
			}
		}
	}
	m.Speed = m.Velocity.Len()

	if aim != nil && aim.Active {
		d := aim.Target.Sub(m.Position)
		if d.Len() > minAimDistance {
			n := d.Normalize()
			m.Aim = &n
		}
	} else {
		m.Aim = nil
	}

	targetYaw, turning := m.Yaw, false
	if m.Aim != nil {
		targetYaw, turning = Heading(*m.Aim), true
	} else if moving {
		targetYaw, turning = Heading(dir), true
	}
	if turning {
		diff := WrapAngle(targetYaw - m.Yaw)
		m.Yaw = WrapAngle(m.Yaw + diff*ease(RotationRate, delta))
	}

	targetBank := 0.0
	if m.Speed >= BankMinSpeed && prevVel.Len() >= BankMinSpeed {
		turnRate := WrapAngle(Heading(m.Velocity)-Heading(prevVel)) / delta
		sensitivity := BankSensitivityInput
		if m.Aim != nil {
			sensitivity = BankSensitivityAim
		}
		targetBank = clamp(-turnRate*sensitivity, -MaxBankAngle, MaxBankAngle)
	}
	m.Bank = clamp(m.Bank+(targetBank-m.Bank)*ease(BankRate, delta), -MaxBankAngle, MaxBankAngle)

	t.ContactDamage.Advance(delta)
	if expired, _ := t.Invulnerability.Advance(delta); expired && !dashing {
		invulnerable = false
	}
	cooldownArmed := false
	if dashing {
		if expired, overflow := t.Dash.Advance(delta); expired {
			dashing = false
			t.DashCooldown.Set(p.stats.DashCooldown - overflow)
			cooldownArmed = true
			if !t.Invulnerability.Active() {
				invulnerable = false
			}
		}
	}
	if !cooldownArmed {
		t.DashCooldown.Advance(delta)
	}
	t.DamageFlash.Advance(delta)
	t.CameraShake.Advance(delta)
	if !t.CameraShake.Active() {
		shake = 0
	}
	t.Shield.Advance(delta)

	if hpRegenRate > 0 && hp > 0 && hp < p.MaxHP {
		hp = math.Min(p.MaxHP, hp+hpRegenRate*delta)
	}

	p.Motion = m
	p.Timers = t
	p.IsInvulnerable = invulnerable
	p.IsDashing = dashing
	p.ShakeIntensity = shake
	p.CurrentHP = hp
	p.Clock += delta
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
