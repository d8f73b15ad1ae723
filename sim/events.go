package sim

// DamageNumber is a floating combat number request.
type DamageNumber struct {
	Damage         float64 `msgpack:"dmg" json:"dmg"`
	WorldX         float64 `msgpack:"x" json:"x"`
	WorldZ         float64 `msgpack:"z" json:"z"`
	Color          string  `msgpack:"c" json:"c"`
	IsPlayerDamage bool    `msgpack:"p" json:"p"`
}

// DamageNumberSink receives damage numbers. Calls are fire-and-forget.
type DamageNumberSink interface {
	SpawnDamageNumber(n DamageNumber)
}

// Cue identifies an audio or dialogue trigger raised by the player core.
type Cue uint8

const (
	CueNone Cue = iota
	CueDash
	CueHit
	CueLevelUp
	CueRevive
	CueDilemma
	CueUpgrade
	CueShield
	cueCount
)

var cueKeys = [cueCount]string{
	CueDash:    "sfx_dash",
	CueHit:     "sfx_player_hit",
	CueLevelUp: "sfx_level_up",
	CueRevive:  "vo_revive",
	CueDilemma: "vo_dilemma_accepted",
	CueUpgrade: "sfx_upgrade_purchased",
	CueShield:  "sfx_shield_up",
}

// CueKey returns the asset key for c. Unknown cues report false.
func CueKey(c Cue) (string, bool) {
	if c >= cueCount {
		return "", false
	}
	k := cueKeys[c]
	return k, k != ""
}

// CueSink plays cues by asset key.
type CueSink interface {
	PlayCue(key string)
}
