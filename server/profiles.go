package main

import (
	"log"
	"sync"

	"spaceship-roguelite/persist"
	"spaceship-roguelite/sim"
)

// Profiles serializes read-modify-write cycles on stored profiles, which
// both the shop API and live runs touch.
type Profiles struct {
	mu      sync.Mutex
	store   persist.BlobStore
	catalog *sim.Catalog
}

// NewProfiles creates a profile service over store.
func NewProfiles(store persist.BlobStore, catalog *sim.Catalog) *Profiles {
	return &Profiles{store: store, catalog: catalog}
}

// Get loads a player's profile, falling back to defaults.
func (ps *Profiles) Get(playerID int64) *persist.Profile {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.load(playerID)
}

func (ps *Profiles) load(playerID int64) *persist.Profile {
	p, err := persist.LoadProfile(ps.store, persist.ProfileKey(playerID), ps.catalog)
	if err != nil {
		log.Printf("profile %d: using defaults: %v", playerID, err)
	}
	return p
}

// Update applies fn to the stored profile and saves it. If fn fails the
// stored profile is left untouched.
func (ps *Profiles) Update(playerID int64, fn func(p *persist.Profile) error) (*persist.Profile, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p := ps.load(playerID)
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := persist.SaveProfile(ps.store, persist.ProfileKey(playerID), p); err != nil {
		log.Printf("profile %d: %v", playerID, err)
		return nil, err
	}
	return p, nil
}
