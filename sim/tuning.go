package sim

// Movement tuning. Speeds are world units per second on the x/z plane.
const (
	ReferenceShipSpeed = 10.0 // catalog speed that maps to a 1.0 ratio
	BaseMoveSpeed      = 12.0
	Acceleration       = 96.0 // units/s², sets the ease-in time constant
	FrictionRate       = 5.0  // 1/s exponential decay with no input
	StopSpeed          = 0.05 // residual speed snapped to zero
	minEaseSpeed       = 1.0

	RotationRate = 12.0 // 1/s yaw easing

	MaxBankAngle         = 0.6 // radians
	BankSensitivityInput = 0.35
	BankSensitivityAim   = 0.2
	BankRate             = 8.0 // 1/s
	BankMinSpeed         = 0.5

	minAimDistance = 1e-4
)

// Combat timing, seconds.
const (
	InvulnerabilityDuration = 1.0
	ContactDamageCooldown   = 0.5
	DamageFlashDuration     = 0.15
	CameraShakeDuration     = 0.25
	CameraShakeIntensity    = 0.4

	DashDuration = 0.2
	DashCooldown = 1.2

	ReviveHPFraction      = 0.5
	ReviveInvulnerability = 2.0
)

// PlayerDamageColor tags damage numbers spawned for hits on the player.
const PlayerDamageColor = "#ff4d4d"
