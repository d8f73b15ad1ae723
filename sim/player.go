package sim

import "github.com/go-gl/mathgl/mgl64"

// Motion is the kinematic part of the player. Vectors are (x, z) on the
// ground plane.
type Motion struct {
	Position mgl64.Vec2
	Velocity mgl64.Vec2
	Speed    float64
	Yaw      float64
	Bank     float64
	// Aim is nil when heading follows movement input.
	Aim *mgl64.Vec2
}

// PlayerState is the single mutable aggregate owned by the simulation.
// Read it freely; change it only through its methods.
type PlayerState struct {
	Motion
	Timers         Timers
	ShakeIntensity float64

	CurrentHP      float64
	MaxHP          float64
	IsInvulnerable bool
	IsDashing      bool
	GodMode        bool
	Clock          float64
	LastDamageTime float64

	Fragments             int
	CurrentXP             float64
	CurrentLevel          int
	XPToNextLevel         float64
	PendingLevelUps       int
	LevelsGainedThisBatch int

	UpgradeStats            Modifiers
	DilemmaStats            Modifiers
	PermanentUpgradeBonuses PermanentBonuses
	OwnedUpgrades           map[string]int
	AcceptedDilemmas        map[string]bool
	Charges                 Charges
	LuckBonus               float64

	CurrentShipID            string
	ShipLevel                int
	ShipBaseHP               float64
	ShipBaseSpeed            float64
	ShipBaseDamageMultiplier float64

	stats   EffectiveStats
	hpMults []float64 // HP_MAX_MULT dilemma effects in acceptance order
	catalog *Catalog
	damage  DamageNumberSink
	cues    CueSink
}

// NewPlayerState builds a player on the catalog's default ship. A nil
// catalog selects the embedded one.
func NewPlayerState(c *Catalog) *PlayerState {
	if c == nil {
		c = DefaultCatalog()
	}
	p := &PlayerState{catalog: c}
	p.Reset(c.DefaultShip, 1)
	return p
}

// Catalog returns the catalog the player was built from.
func (p *PlayerState) Catalog() *Catalog {
	return p.catalog
}

// SetDamageSink routes damage numbers. nil disables them.
func (p *PlayerState) SetDamageSink(s DamageNumberSink) {
	p.damage = s
}

// SetCueSink routes audio and dialogue cues. nil disables them.
func (p *PlayerState) SetCueSink(s CueSink) {
	p.cues = s
}

// SetGodMode toggles the debug damage bypass.
func (p *PlayerState) SetGodMode(on bool) {
	p.GodMode = on
}

// Stats returns the current effective stat snapshot.
func (p *PlayerState) Stats() EffectiveStats {
	return p.stats
}

func (p *PlayerState) recomputeStats() {
	p.stats = composeStats(p)
}

func (p *PlayerState) emit(c Cue) {
	if p.cues == nil {
		return
	}
	if key, ok := CueKey(c); ok {
		p.cues.PlayCue(key)
	}
}

func (p *PlayerState) clampHP() {
	if p.MaxHP < 0 {
		p.MaxHP = 0
	}
	if p.CurrentHP > p.MaxHP {
		p.CurrentHP = p.MaxHP
	}
	if p.CurrentHP < 0 {
		p.CurrentHP = 0
	}
}

// Reset starts a new run on shipID at shipLevel. Everything run-scoped is
// cleared and stats are seeded with no permanent bonuses; call
// InitializeRunStats afterwards to layer them in. Unknown ships are
// rejected without touching the state.
func (p *PlayerState) Reset(shipID string, shipLevel int) bool {
	ship, ok := p.catalog.Ship(shipID)
	if !ok {
		return false
	}
	if shipLevel < 1 {
		shipLevel = 1
	}
	if shipLevel > p.catalog.ShipLevels.MaxLevel {
		shipLevel = p.catalog.ShipLevels.MaxLevel
	}

	p.ResetForNewSystem()
	p.GodMode = false
	p.Clock = 0
	p.LastDamageTime = 0

	p.Fragments = 0
	p.CurrentXP = 0
	p.CurrentLevel = 1
	p.XPToNextLevel = p.catalog.FirstXPThreshold()
	p.PendingLevelUps = 0
	p.LevelsGainedThisBatch = 0

	p.DilemmaStats = IdentityModifiers()
	p.hpMults = nil
	p.AcceptedDilemmas = make(map[string]bool)

	p.CurrentShipID = ship.ID
	p.ShipLevel = shipLevel
	p.ShipBaseHP = ship.BaseHP
	p.InitializeRunStats(p.catalog.PermanentBonuses(nil))
	return true
}

// ResetForNewSystem clears movement, aim and timers when advancing to the
// next area. XP, level, fragments, upgrade and dilemma effects, charges,
// ship selection and HP carry over.
func (p *PlayerState) ResetForNewSystem() {
	p.Motion = Motion{}
	p.Timers = Timers{}
	p.ShakeIntensity = 0
	p.IsInvulnerable = false
	p.IsDashing = false
}

// InitializeRunStats applies ship-level scaling to the current ship's base
// stats, then layers the permanent bonuses on top. Charges and luck are
// reset to the computed values rather than accumulated.
func (p *PlayerState) InitializeRunStats(b PermanentBonuses) {
	ship, ok := p.catalog.Ship(p.CurrentShipID)
	if !ok {
		return
	}
	mult := p.catalog.ShipLevelMultiplier(ship, p.ShipLevel)

	p.ShipBaseHP = ship.BaseHP
	p.ShipBaseSpeed = ship.BaseSpeed * mult
	p.ShipBaseDamageMultiplier = ship.BaseDamageMultiplier * mult
	p.MaxHP = ship.BaseHP*mult + b.FlatHP
	p.CurrentHP = p.MaxHP

	p.PermanentUpgradeBonuses = b
	p.UpgradeStats = b.Modifiers
	p.OwnedUpgrades = make(map[string]int, len(b.Owned))
	for id, n := range b.Owned {
		p.OwnedUpgrades[id] = n
	}
	p.Charges = ship.Charges.Add(b.Charges)
	p.LuckBonus = b.Luck
	p.clampHP()
	p.recomputeStats()
}

// IsDead reports whether the hull is gone.
func (p *PlayerState) IsDead() bool {
	return p.CurrentHP <= 0
}

// Snapshot is a read-only copy for rendering and UI.
type Snapshot struct {
	X              float64 `msgpack:"x" json:"x"`
	Z              float64 `msgpack:"z" json:"z"`
	VX             float64 `msgpack:"vx" json:"vx"`
	VZ             float64 `msgpack:"vz" json:"vz"`
	Speed          float64 `msgpack:"spd" json:"spd"`
	Yaw            float64 `msgpack:"yaw" json:"yaw"`
	Bank           float64 `msgpack:"bank" json:"bank"`
	AimX           float64 `msgpack:"ax,omitempty" json:"ax,omitempty"`
	AimZ           float64 `msgpack:"az,omitempty" json:"az,omitempty"`
	Aiming         bool    `msgpack:"aim" json:"aim"`
	HP             float64 `msgpack:"hp" json:"hp"`
	MaxHP          float64 `msgpack:"mhp" json:"mhp"`
	Invulnerable   bool    `msgpack:"inv" json:"inv"`
	Dashing        bool    `msgpack:"dash" json:"dash"`
	DashCooldown   float64 `msgpack:"dcd" json:"dcd"`
	DamageFlash    float64 `msgpack:"flash" json:"flash"`
	CameraShake    float64 `msgpack:"shake" json:"shake"`
	ShakeIntensity float64 `msgpack:"shakeI" json:"shakeI"`
	Shield         float64 `msgpack:"shield" json:"shield"`
	Fragments      int     `msgpack:"frag" json:"frag"`
	XP             float64 `msgpack:"xp" json:"xp"`
	XPToNext       float64 `msgpack:"xpn" json:"xpn"`
	Level          int     `msgpack:"lvl" json:"lvl"`
	PendingLevels  int     `msgpack:"pend" json:"pend"`
	BatchLevels    int     `msgpack:"batch" json:"batch"`
	Charges        Charges `msgpack:"ch" json:"ch"`
	Ship           string  `msgpack:"ship" json:"ship"`
	ShipLevel      int     `msgpack:"shipLvl" json:"shipLvl"`
}

// Snapshot copies the fields consumers need.
func (p *PlayerState) Snapshot() Snapshot {
	s := Snapshot{
		X:              p.Position.X(),
		Z:              p.Position.Y(),
		VX:             p.Velocity.X(),
		VZ:             p.Velocity.Y(),
		Speed:          p.Speed,
		Yaw:            p.Yaw,
		Bank:           p.Bank,
		HP:             p.CurrentHP,
		MaxHP:          p.MaxHP,
		Invulnerable:   p.IsInvulnerable,
		Dashing:        p.IsDashing,
		DashCooldown:   p.Timers.DashCooldown.Remaining,
		DamageFlash:    p.Timers.DamageFlash.Remaining,
		CameraShake:    p.Timers.CameraShake.Remaining,
		ShakeIntensity: p.ShakeIntensity,
		Shield:         p.Timers.Shield.Remaining,
		Fragments:      p.Fragments,
		XP:             p.CurrentXP,
		XPToNext:       p.XPToNextLevel,
		Level:          p.CurrentLevel,
		PendingLevels:  p.PendingLevelUps,
		BatchLevels:    p.LevelsGainedThisBatch,
		Charges:        p.Charges,
		Ship:           p.CurrentShipID,
		ShipLevel:      p.ShipLevel,
	}
	if p.Aim != nil {
		s.Aiming = true
		s.AimX = p.Aim.X()
		s.AimZ = p.Aim.Y()
	}
	return s
}
