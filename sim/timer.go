package sim

// Countdown is a non-negative timer that decays toward zero.
type Countdown struct {
	Remaining float64 `msgpack:"r" json:"r"`
}

// Set arms the timer. Negative durations clear it.
func (c *Countdown) Set(d float64) {
	if d < 0 {
		d = 0
	}
	c.Remaining = d
}

// Clear stops the timer.
func (c *Countdown) Clear() {
	c.Remaining = 0
}

// Active reports whether time is left on the timer.
func (c Countdown) Active() bool {
	return c.Remaining > 0
}

// Advance decays the timer by dt. expired is true only on the call that
// takes the timer from positive to zero; overflow is the part of dt the
// timer did not consume.
func (c *Countdown) Advance(dt float64) (expired bool, overflow float64) {
	if c.Remaining <= 0 {
		c.Remaining = 0
		return false, dt
	}
	if dt >= c.Remaining {
		overflow = dt - c.Remaining
		c.Remaining = 0
		return true, overflow
	}
	c.Remaining -= dt
	return false, 0
}

// Timers groups every countdown owned by the player.
type Timers struct {
	Invulnerability Countdown `msgpack:"inv" json:"inv"`
	ContactDamage   Countdown `msgpack:"contact" json:"contact"`
	Dash            Countdown `msgpack:"dash" json:"dash"`
	DashCooldown    Countdown `msgpack:"dashCD" json:"dashCD"`
	DamageFlash     Countdown `msgpack:"flash" json:"flash"`
	CameraShake     Countdown `msgpack:"shake" json:"shake"`
	Shield          Countdown `msgpack:"shield" json:"shield"`
}
