package persist

import (
	"fmt"

	"spaceship-roguelite/sim"
)

// Profile is the meta-progression that survives between runs.
type Profile struct {
	Fragments     int             `msgpack:"fragments" json:"fragments"`
	OwnedUpgrades map[string]int  `msgpack:"owned_upgrades" json:"ownedUpgrades"`
	ShipLevels    map[string]int  `msgpack:"ship_levels" json:"shipLevels"`
	UnlockedShips map[string]bool `msgpack:"unlocked_ships" json:"unlockedShips"`
	SelectedShip  string          `msgpack:"selected_ship" json:"selectedShip"`
	BestLevel     int             `msgpack:"best_level" json:"bestLevel"`
	Runs          int             `msgpack:"runs" json:"runs"`
	Achievements  map[string]bool `msgpack:"achievements" json:"achievements"`
}

// ProfileKey is the store key for a player's profile.
func ProfileKey(playerID int64) string {
	return fmt.Sprintf("profile:%d", playerID)
}

// DefaultProfile is a fresh profile flying the catalog's default ship.
func DefaultProfile(c *sim.Catalog) *Profile {
	p := &Profile{
		OwnedUpgrades: make(map[string]int),
		ShipLevels:    make(map[string]int),
		UnlockedShips: make(map[string]bool),
		SelectedShip:  c.DefaultShip,
		Achievements:  make(map[string]bool),
	}
	for _, s := range c.Ships {
		if !s.Locked {
			p.UnlockedShips[s.ID] = true
		}
	}
	return p
}

// Sanitize drops entries the catalog no longer knows and clamps levels, so
// a profile written against an older catalog stays usable.
func (p *Profile) Sanitize(c *sim.Catalog) {
	if p.OwnedUpgrades == nil {
		p.OwnedUpgrades = make(map[string]int)
	}
	if p.ShipLevels == nil {
		p.ShipLevels = make(map[string]int)
	}
	if p.UnlockedShips == nil {
		p.UnlockedShips = make(map[string]bool)
	}
	if p.Achievements == nil {
		p.Achievements = make(map[string]bool)
	}
	if p.Fragments < 0 {
		p.Fragments = 0
	}
	for id, n := range p.OwnedUpgrades {
		u, ok := c.Upgrade(id)
		switch {
		case !ok || n <= 0:
			delete(p.OwnedUpgrades, id)
		case n > u.MaxLevel:
			p.OwnedUpgrades[id] = u.MaxLevel
		}
	}
	for id, lvl := range p.ShipLevels {
		if _, ok := c.Ship(id); !ok || lvl <= 1 {
			delete(p.ShipLevels, id)
		} else if lvl > c.ShipLevels.MaxLevel {
			p.ShipLevels[id] = c.ShipLevels.MaxLevel
		}
	}
	for id := range p.UnlockedShips {
		if _, ok := c.Ship(id); !ok {
			delete(p.UnlockedShips, id)
		}
	}
	for _, s := range c.Ships {
		if !s.Locked {
			p.UnlockedShips[s.ID] = true
		}
	}
	if !p.UnlockedShips[p.SelectedShip] {
		p.SelectedShip = c.DefaultShip
	}
}

// ShipLevel returns the level of ship id; ships start at level 1.
func (p *Profile) ShipLevel(id string) int {
	if lvl := p.ShipLevels[id]; lvl > 1 {
		return lvl
	}
	return 1
}

// BuyUpgrade purchases the next level of upgrade id from the bank.
func (p *Profile) BuyUpgrade(c *sim.Catalog, id string) sim.PurchaseStatus {
	lvl, status := c.CheckPurchase(p.OwnedUpgrades, id, p.OwnedUpgrades[id]+1, p.Fragments)
	if status != sim.PurchaseOK {
		return status
	}
	p.Fragments -= lvl.Cost
	p.OwnedUpgrades[id] = lvl.Level
	return status
}

// RefundUpgrades returns every upgrade's paid cost to the bank.
func (p *Profile) RefundUpgrades(c *sim.Catalog) int {
	n := c.RefundValue(p.OwnedUpgrades)
	p.Fragments += n
	p.OwnedUpgrades = make(map[string]int)
	return n
}

// LevelUpShip raises ship id one level if it is unlocked, below the cap,
// and affordable.
func (p *Profile) LevelUpShip(c *sim.Catalog, id string) bool {
	if !p.UnlockedShips[id] {
		return false
	}
	cur := p.ShipLevel(id)
	cost, ok := c.ShipLevelCost(cur)
	if !ok || cost > p.Fragments {
		return false
	}
	p.Fragments -= cost
	p.ShipLevels[id] = cur + 1
	return true
}

// UnlockShip pays a locked ship's unlock cost.
func (p *Profile) UnlockShip(c *sim.Catalog, id string) bool {
	s, ok := c.Ship(id)
	if !ok || p.UnlockedShips[id] || s.UnlockCost > p.Fragments {
		return false
	}
	p.Fragments -= s.UnlockCost
	p.UnlockedShips[id] = true
	return true
}

// SelectShip picks the ship for the next run.
func (p *Profile) SelectShip(c *sim.Catalog, id string) bool {
	if _, ok := c.Ship(id); !ok || !p.UnlockedShips[id] {
		return false
	}
	p.SelectedShip = id
	return true
}

// Bonuses folds the owned upgrades into run-start bonuses.
func (p *Profile) Bonuses(c *sim.Catalog) sim.PermanentBonuses {
	return c.PermanentBonuses(p.OwnedUpgrades)
}

// StartRun resets player for a run with the selected ship and the
// profile's permanent bonuses.
func (p *Profile) StartRun(c *sim.Catalog, player *sim.PlayerState) bool {
	if !player.Reset(p.SelectedShip, p.ShipLevel(p.SelectedShip)) {
		return false
	}
	player.InitializeRunStats(p.Bonuses(c))
	return true
}

// BankRun moves a finished run's fragments into the bank and records the
// run.
func (p *Profile) BankRun(fragments, level int) {
	if fragments > 0 {
		p.Fragments += fragments
	}
	if level > p.BestLevel {
		p.BestLevel = level
	}
	p.Runs++
}

// Unlock records achievement id, reporting whether it is new.
func (p *Profile) Unlock(id string) bool {
	if p.Achievements[id] {
		return false
	}
	if p.Achievements == nil {
		p.Achievements = make(map[string]bool)
	}
	p.Achievements[id] = true
	return true
}

// LoadProfile reads the profile stored under key. Missing, unreadable or
// corrupt data yields a default profile; err then says why, for logging.
func LoadProfile(s BlobStore, key string, c *sim.Catalog) (*Profile, error) {
	data, ok, err := s.GetBlob(key)
	if err != nil {
		return DefaultProfile(c), fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return DefaultProfile(c), nil
	}
	var p Profile
	if err := Decode(data, &p); err != nil {
		return DefaultProfile(c), fmt.Errorf("load %s: %w", key, err)
	}
	p.Sanitize(c)
	return &p, nil
}

// SaveProfile writes p under key.
func SaveProfile(s BlobStore, key string, p *Profile) error {
	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := s.SetBlob(key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
