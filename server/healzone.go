package main

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Repair zone defaults; Config can override them.
const (
	RepairZoneRate     = 4.0  // HP/s while inside
	RepairZoneRadius   = 12.0 // world units
	RepairZoneDuration = 30.0 // seconds
	repairZoneMargin   = 0.8  // fraction of the arena half-extent zones may spawn in
)

// RepairZone is a temporary area that regenerates the ship's hull while
// it stays inside. One spawns at the start of each system.
type RepairZone struct {
	ID     int     `msgpack:"id"`
	X      float64 `msgpack:"x"`
	Z      float64 `msgpack:"z"`
	Radius float64 `msgpack:"r"`
	Rate   float64 `msgpack:"rate"`
	Life   float64 `msgpack:"life"`
}

// NewRepairZone places a zone at a random spot inside the arena
func NewRepairZone(id int, rng *rand.Rand, cfg *Config) *RepairZone {
	half := cfg.ArenaSize / 2 * repairZoneMargin
	return &RepairZone{
		ID:     id,
		X:      (rng.Float64()*2 - 1) * half,
		Z:      (rng.Float64()*2 - 1) * half,
		Radius: cfg.RepairZoneRadius,
		Rate:   cfg.RepairZoneRate,
		Life:   cfg.RepairZoneDuration,
	}
}

// Contains reports whether pos is inside the zone
func (z *RepairZone) Contains(pos mgl64.Vec2) bool {
	return mgl64.Vec2{z.X, z.Z}.Sub(pos).Len() <= z.Radius
}

// Update ticks the zone lifetime, returns false when expired
func (z *RepairZone) Update(dt float64) bool {
	z.Life -= dt
	return z.Life > 0
}

// regenAt sums the base regen rate and every zone covering pos.
func regenAt(base float64, zones []*RepairZone, pos mgl64.Vec2) float64 {
	rate := base
	for _, z := range zones {
		if z.Contains(pos) {
			rate += z.Rate
		}
	}
	return rate
}
