package main

import (
	"spaceship-roguelite/persist"
	"spaceship-roguelite/sim"
)

// Achievement definitions
type AchievementDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var Achievements = []AchievementDef{
	{"first_flight", "First Flight", "Finish your first run"},
	{"veteran", "Veteran", "Reach level 10 in a run"},
	{"elite", "Elite", "Reach level 25 in a run"},
	{"hoarder", "Hoarder", "Bank 1000 fragments from a single run"},
	{"survivor", "Survivor", "Stay alive for 10 minutes in one run"},
	{"gambler", "Gambler", "Accept 5 dilemmas in one run"},
	{"phoenix", "Phoenix", "Revive during a run"},
	{"fleet", "Fleet Admiral", "Unlock every ship"},
	{"ace", "Ace Pilot", "Raise a ship to its maximum level"},
}

// runSummary is what a finished run contributes to achievement checks
type runSummary struct {
	Level     int
	Fragments int
	Duration  float64
	Dilemmas  int
	Revives   int
}

// CheckAchievements unlocks every achievement the profile now qualifies
// for and returns the newly unlocked ones.
func CheckAchievements(p *persist.Profile, c *sim.Catalog, s runSummary) []AchievementDef {
	check := func(id string) bool {
		switch id {
		case "first_flight":
			return p.Runs >= 1
		case "veteran":
			return s.Level >= 10
		case "elite":
			return s.Level >= 25
		case "hoarder":
			return s.Fragments >= 1000
		case "survivor":
			return s.Duration >= 600
		case "gambler":
			return s.Dilemmas >= 5
		case "phoenix":
			return s.Revives > 0
		case "fleet":
			for _, ship := range c.Ships {
				if !p.UnlockedShips[ship.ID] {
					return false
				}
			}
			return true
		case "ace":
			for _, ship := range c.Ships {
				if p.ShipLevel(ship.ID) >= c.ShipLevels.MaxLevel {
					return true
				}
			}
		}
		return false
	}

	var unlocked []AchievementDef
	for _, def := range Achievements {
		if !p.Achievements[def.ID] && check(def.ID) && p.Unlock(def.ID) {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}
