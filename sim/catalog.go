package sim

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ErrInvalidCatalog is wrapped by every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

// EffectType names a stat the progression systems can change.
type EffectType string

const (
	EffectDamageMult    EffectType = "DAMAGE_MULT"
	EffectSpeedMult     EffectType = "SPEED_MULT"
	EffectCooldownMult  EffectType = "COOLDOWN_MULT"
	EffectHPMaxMult     EffectType = "HP_MAX_MULT"
	EffectHPMaxBonus    EffectType = "HP_MAX_BONUS"
	EffectFragmentMult  EffectType = "FRAGMENT_MULT"
	EffectRevivalCharge EffectType = "REVIVAL_CHARGE"
	EffectRerollCharge  EffectType = "REROLL_CHARGE"
	EffectSkipCharge    EffectType = "SKIP_CHARGE"
	EffectBanishCharge  EffectType = "BANISH_CHARGE"
	EffectLuck          EffectType = "LUCK_BONUS"
)

func (t EffectType) multiplicative() bool {
	switch t {
	case EffectDamageMult, EffectSpeedMult, EffectCooldownMult, EffectHPMaxMult, EffectFragmentMult:
		return true
	}
	return false
}

// Effect is a single typed stat change.
type Effect struct {
	Type  EffectType `yaml:"type" json:"type" msgpack:"type"`
	Value float64    `yaml:"value" json:"value" msgpack:"value"`
}

// UpgradeLevel is one rung of a permanent upgrade ladder.
type UpgradeLevel struct {
	Level int    `yaml:"level" json:"level"`
	Cost  int    `yaml:"cost" json:"cost"`
	Bonus Effect `yaml:"bonus" json:"bonus"`
}

// UpgradeDef is a permanent upgrade bought level by level.
type UpgradeDef struct {
	ID       string         `yaml:"id" json:"id"`
	Name     string         `yaml:"name" json:"name"`
	MaxLevel int            `yaml:"maxLevel" json:"maxLevel"`
	Levels   []UpgradeLevel `yaml:"levels" json:"levels"`
}

// DilemmaDef pairs a bonus with a malus. Accepted at most once per run.
type DilemmaDef struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Bonus       Effect `yaml:"bonus" json:"bonus"`
	Malus       Effect `yaml:"malus" json:"malus"`
}

// Charges counts the per-run meta resources.
type Charges struct {
	Revival int `yaml:"revival" json:"revival" msgpack:"revival"`
	Reroll  int `yaml:"reroll" json:"reroll" msgpack:"reroll"`
	Skip    int `yaml:"skip" json:"skip" msgpack:"skip"`
	Banish  int `yaml:"banish" json:"banish" msgpack:"banish"`
}

// Add returns the field-wise sum.
func (c Charges) Add(o Charges) Charges {
	return Charges{
		Revival: c.Revival + o.Revival,
		Reroll:  c.Reroll + o.Reroll,
		Skip:    c.Skip + o.Skip,
		Banish:  c.Banish + o.Banish,
	}
}

// Sub returns the field-wise difference, floored at zero.
func (c Charges) Sub(o Charges) Charges {
	return Charges{
		Revival: max(c.Revival-o.Revival, 0),
		Reroll:  max(c.Reroll-o.Reroll, 0),
		Skip:    max(c.Skip-o.Skip, 0),
		Banish:  max(c.Banish-o.Banish, 0),
	}
}

// ShipDef holds a ship's level-1 stats.
type ShipDef struct {
	ID                   string   `yaml:"id" json:"id"`
	Name                 string   `yaml:"name" json:"name"`
	BaseHP               float64  `yaml:"baseHP" json:"baseHP"`
	BaseSpeed            float64  `yaml:"baseSpeed" json:"baseSpeed"`
	BaseDamageMultiplier float64  `yaml:"baseDamageMultiplier" json:"baseDamageMultiplier"`
	Locked               bool     `yaml:"locked" json:"locked"`
	UnlockCost           int      `yaml:"unlockCost" json:"unlockCost"`
	LevelScaling         *float64 `yaml:"levelScaling,omitempty" json:"levelScaling,omitempty"`
	Charges              Charges  `yaml:"charges" json:"charges"`
}

// ShipLevelTable prices ship levels. Costs[i] buys level i+2.
type ShipLevelTable struct {
	MaxLevel       int     `yaml:"maxLevel" json:"maxLevel"`
	DefaultScaling float64 `yaml:"defaultScaling" json:"defaultScaling"`
	Costs          []int   `yaml:"costs" json:"costs"`
}

// XPCurve lists early level thresholds; past the table each threshold is
// the previous one times Growth.
type XPCurve struct {
	Thresholds []float64 `yaml:"thresholds" json:"thresholds"`
	Growth     float64   `yaml:"growth" json:"growth"`
}

// Catalog is the read-only progression data.
type Catalog struct {
	DefaultShip string         `yaml:"defaultShip" json:"defaultShip"`
	Upgrades    []UpgradeDef   `yaml:"upgrades" json:"upgrades"`
	Dilemmas    []DilemmaDef   `yaml:"dilemmas" json:"dilemmas"`
	Ships       []ShipDef      `yaml:"ships" json:"ships"`
	ShipLevels  ShipLevelTable `yaml:"shipLevels" json:"shipLevels"`
	XP          XPCurve        `yaml:"xp" json:"xp"`

	upgrades map[string]int
	dilemmas map[string]int
	ships    map[string]int
}

// DefaultCatalog returns the embedded catalog. It panics if the embedded
// data is invalid, which a test guards.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog parses and validates YAML catalog data.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, fmt.Sprintf(format, args...))
}

// Validate checks every catalog invariant and builds the lookup indexes.
func (c *Catalog) Validate() error {
	c.upgrades = make(map[string]int, len(c.Upgrades))
	for i, u := range c.Upgrades {
		if u.ID == "" {
			return invalid("upgrade %d has no id", i)
		}
		if _, dup := c.upgrades[u.ID]; dup {
			return invalid("duplicate upgrade %q", u.ID)
		}
		if u.MaxLevel < 1 || len(u.Levels) != u.MaxLevel {
			return invalid("upgrade %q: %d levels, maxLevel %d", u.ID, len(u.Levels), u.MaxLevel)
		}
		for j, lvl := range u.Levels {
			if lvl.Level != j+1 {
				return invalid("upgrade %q: level %d out of order", u.ID, lvl.Level)
			}
			if lvl.Cost <= 0 {
				return invalid("upgrade %q level %d: cost must be positive", u.ID, lvl.Level)
			}
			if j > 0 && lvl.Cost <= u.Levels[j-1].Cost {
				return invalid("upgrade %q level %d: cost not increasing", u.ID, lvl.Level)
			}
			if err := validateUpgradeEffect(lvl.Bonus); err != nil {
				return invalid("upgrade %q level %d: %v", u.ID, lvl.Level, err)
			}
		}
		c.upgrades[u.ID] = i
	}

	c.dilemmas = make(map[string]int, len(c.Dilemmas))
	for i, d := range c.Dilemmas {
		if d.ID == "" {
			return invalid("dilemma %d has no id", i)
		}
		if _, dup := c.dilemmas[d.ID]; dup {
			return invalid("duplicate dilemma %q", d.ID)
		}
		for _, e := range []Effect{d.Bonus, d.Malus} {
			if err := validateDilemmaEffect(e); err != nil {
				return invalid("dilemma %q: %v", d.ID, err)
			}
		}
		c.dilemmas[d.ID] = i
	}

	c.ships = make(map[string]int, len(c.Ships))
	for i, s := range c.Ships {
		if s.ID == "" {
			return invalid("ship %d has no id", i)
		}
		if _, dup := c.ships[s.ID]; dup {
			return invalid("duplicate ship %q", s.ID)
		}
		if s.BaseHP <= 0 || s.BaseSpeed <= 0 || s.BaseDamageMultiplier <= 0 {
			return invalid("ship %q: base stats must be positive", s.ID)
		}
		if s.LevelScaling != nil && *s.LevelScaling < 0 {
			return invalid("ship %q: negative level scaling", s.ID)
		}
		c.ships[s.ID] = i
	}
	def, ok := c.Ship(c.DefaultShip)
	if !ok {
		return invalid("default ship %q not in catalog", c.DefaultShip)
	}
	if def.Locked {
		return invalid("default ship %q is locked", c.DefaultShip)
	}

	sl := c.ShipLevels
	if sl.MaxLevel < 1 || len(sl.Costs) != sl.MaxLevel-1 {
		return invalid("ship levels: %d costs for max level %d", len(sl.Costs), sl.MaxLevel)
	}
	if sl.DefaultScaling < 0 {
		return invalid("ship levels: negative default scaling")
	}
	for i, cost := range sl.Costs {
		if cost <= 0 || (i > 0 && cost <= sl.Costs[i-1]) {
			return invalid("ship levels: cost %d not strictly increasing", i)
		}
	}

	if len(c.XP.Thresholds) == 0 {
		return invalid("xp curve is empty")
	}
	for i, t := range c.XP.Thresholds {
		if t <= 0 {
			return invalid("xp threshold %d must be positive", i)
		}
	}
	if c.XP.Growth <= 1 {
		return invalid("xp growth must exceed 1")
	}
	return nil
}

func validateUpgradeEffect(e Effect) error {
	switch e.Type {
	case EffectDamageMult, EffectSpeedMult, EffectCooldownMult, EffectFragmentMult:
		if e.Value <= 0 {
			return fmt.Errorf("%s must be positive", e.Type)
		}
	case EffectHPMaxBonus, EffectLuck:
		if e.Value < 0 {
			return fmt.Errorf("%s must not be negative", e.Type)
		}
	case EffectRevivalCharge, EffectRerollCharge, EffectSkipCharge, EffectBanishCharge:
		if e.Value < 1 || e.Value != float64(int(e.Value)) {
			return fmt.Errorf("%s must be a positive whole number", e.Type)
		}
	default:
		return fmt.Errorf("effect %q not allowed on upgrades", e.Type)
	}
	return nil
}

func validateDilemmaEffect(e Effect) error {
	switch e.Type {
	case EffectDamageMult, EffectSpeedMult, EffectHPMaxMult, EffectCooldownMult:
	default:
		return fmt.Errorf("effect %q not allowed on dilemmas", e.Type)
	}
	if e.Value <= 0 {
		return fmt.Errorf("%s must be positive", e.Type)
	}
	return nil
}

// Upgrade looks up an upgrade by id.
func (c *Catalog) Upgrade(id string) (UpgradeDef, bool) {
	i, ok := c.upgrades[id]
	if !ok {
		return UpgradeDef{}, false
	}
	return c.Upgrades[i], true
}

// Dilemma looks up a dilemma by id.
func (c *Catalog) Dilemma(id string) (DilemmaDef, bool) {
	i, ok := c.dilemmas[id]
	if !ok {
		return DilemmaDef{}, false
	}
	return c.Dilemmas[i], true
}

// Ship looks up a ship by id.
func (c *Catalog) Ship(id string) (ShipDef, bool) {
	i, ok := c.ships[id]
	if !ok {
		return ShipDef{}, false
	}
	return c.Ships[i], true
}

// PurchaseStatus explains the outcome of a purchase check.
type PurchaseStatus int

const (
	PurchaseOK PurchaseStatus = iota
	PurchaseUnknown
	PurchaseOwned
	PurchasePrerequisite
	PurchaseUnaffordable
)

func (s PurchaseStatus) String() string {
	switch s {
	case PurchaseOK:
		return "ok"
	case PurchaseUnknown:
		return "unknown upgrade"
	case PurchaseOwned:
		return "already owned"
	case PurchasePrerequisite:
		return "previous level not owned"
	case PurchaseUnaffordable:
		return "not enough fragments"
	}
	return "unknown"
}

// CheckPurchase validates buying level of upgrade id given the owned
// ladder levels and the available balance.
func (c *Catalog) CheckPurchase(owned map[string]int, id string, level, balance int) (UpgradeLevel, PurchaseStatus) {
	u, ok := c.Upgrade(id)
	if !ok || level < 1 {
		return UpgradeLevel{}, PurchaseUnknown
	}
	have := owned[id]
	if level <= have || have >= u.MaxLevel {
		return UpgradeLevel{}, PurchaseOwned
	}
	if level > u.MaxLevel {
		return UpgradeLevel{}, PurchaseUnknown
	}
	if level > have+1 {
		return UpgradeLevel{}, PurchasePrerequisite
	}
	lvl := u.Levels[level-1]
	if lvl.Cost > balance {
		return lvl, PurchaseUnaffordable
	}
	return lvl, PurchaseOK
}

// RefundValue sums the costs paid for every owned level.
func (c *Catalog) RefundValue(owned map[string]int) int {
	total := 0
	for id, n := range owned {
		u, ok := c.Upgrade(id)
		if !ok {
			continue
		}
		for i := 0; i < n && i < len(u.Levels); i++ {
			total += u.Levels[i].Cost
		}
	}
	return total
}

// ShipLevelMultiplier returns 1 + (level-1) × scaling for ship s.
func (c *Catalog) ShipLevelMultiplier(s ShipDef, level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > c.ShipLevels.MaxLevel {
		level = c.ShipLevels.MaxLevel
	}
	scaling := c.ShipLevels.DefaultScaling
	if s.LevelScaling != nil {
		scaling = *s.LevelScaling
	}
	return 1 + float64(level-1)*scaling
}

// ShipLevelCost is the price of going from level to level+1.
func (c *Catalog) ShipLevelCost(level int) (int, bool) {
	if level < 1 || level >= c.ShipLevels.MaxLevel {
		return 0, false
	}
	return c.ShipLevels.Costs[level-1], true
}

// FirstXPThreshold is the XP needed to leave level 1.
func (c *Catalog) FirstXPThreshold() float64 {
	return c.XP.Thresholds[0]
}

// NextXPThreshold returns the threshold for leaving level, given the
// threshold that was just consumed.
func (c *Catalog) NextXPThreshold(level int, prev float64) float64 {
	if level >= 1 && level <= len(c.XP.Thresholds) {
		return c.XP.Thresholds[level-1]
	}
	return prev * c.XP.Growth
}

// OfferDilemmas draws up to n distinct dilemmas that are not yet accepted.
func (c *Catalog) OfferDilemmas(rng *rand.Rand, n int, accepted map[string]bool) []DilemmaDef {
	pool := make([]DilemmaDef, 0, len(c.Dilemmas))
	for _, d := range c.Dilemmas {
		if !accepted[d.ID] {
			pool = append(pool, d)
		}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n < len(pool) {
		pool = pool[:n]
	}
	return pool
}
