package main

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"

	"spaceship-roguelite/persist"
	"spaceship-roguelite/sim"
)

const (
	TickRate       = 60 // simulation ticks per second
	BroadcastRate  = 30 // snapshots per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate
)

// Broadcaster is where a run sends its output
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// RunDeps are the shared services a run talks to.
type RunDeps struct {
	Config   *Config
	Catalog  *sim.Catalog
	Profiles *Profiles
	Events   *Analytics
	DB       *DB
}

// Run is one player's in-progress run. The loop goroutine and the
// client's read pump both go through mu, so the player core only ever
// sees one caller at a time.
type Run struct {
	ID       string
	PlayerID int64

	mu      sync.Mutex
	deps    RunDeps
	player  *sim.PlayerState
	out     Broadcaster
	rng     *rand.Rand
	input   sim.Input
	aim     *sim.Aim
	tick    uint64
	system  int
	offered map[string]bool
	zones   []*RepairZone
	zoneSeq int
	revives int

	// Raised by the player core since the last frame; guarded by mu.
	damage []sim.DamageNumber
	cues   []string

	deathSent bool
	ended     bool
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewRun starts a run for playerID on the profile's selected ship.
func NewRun(deps RunDeps, playerID int64, profile *persist.Profile, out Broadcaster) (*Run, error) {
	r := &Run{
		ID:       GenerateUUID(),
		PlayerID: playerID,
		deps:     deps,
		player:   sim.NewPlayerState(deps.Catalog),
		out:      out,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:     make(chan struct{}),
	}
	r.player.SetDamageSink(r)
	r.player.SetCueSink(r)
	if !profile.StartRun(deps.Catalog, r.player) {
		return nil, fmt.Errorf("unknown ship %q", profile.SelectedShip)
	}
	r.spawnZone()
	r.track(EvtRunStart, map[string]interface{}{
		"ship":      r.player.CurrentShipID,
		"shipLevel": r.player.ShipLevel,
	})
	return r, nil
}

// SpawnDamageNumber implements sim.DamageNumberSink. Called with mu held.
func (r *Run) SpawnDamageNumber(n sim.DamageNumber) {
	r.damage = append(r.damage, n)
}

// PlayCue implements sim.CueSink. Called with mu held.
func (r *Run) PlayCue(key string) {
	r.cues = append(r.cues, key)
}

// spawnZone adds this system's repair zone. Called with mu held.
func (r *Run) spawnZone() {
	cfg := r.deps.Config
	if cfg.RepairZoneRate <= 0 || cfg.RepairZoneDuration <= 0 {
		return
	}
	r.zoneSeq++
	r.zones = append(r.zones, NewRepairZone(r.zoneSeq, r.rng, cfg))
}

func (r *Run) track(evt string, data map[string]interface{}) {
	if r.deps.Events != nil {
		r.deps.Events.Track(evt, r.PlayerID, r.ID, data)
	}
}

// Loop ticks the run until Stop is called
func (r *Run) Loop() {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.step(TickDuration.Seconds())
		case <-r.stop:
			return
		}
	}
}

// Stop terminates the loop
func (r *Run) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Run) step(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	p := r.player
	regen := regenAt(r.deps.Config.HPRegenRate, r.zones, p.Position)
	p.Tick(dt, r.input, p.Stats().SpeedMultiplier, r.deps.Config.ArenaSize, regen, r.aim)
	r.tick++

	live := r.zones[:0]
	for _, z := range r.zones {
		if z.Update(dt) {
			live = append(live, z)
		}
	}
	r.zones = live

	if p.IsDead() && !r.deathSent {
		r.deathSent = true
		r.track(EvtDeath, map[string]interface{}{"level": p.CurrentLevel})
		r.out.SendJSON(Envelope{T: MsgDeath, Data: map[string]int{"revivals": p.Charges.Revival}})
	}
	if r.tick%BroadcastEvery == 0 {
		r.broadcast()
	}
}

func (r *Run) broadcast() {
	frame := StateFrame{
		Tick:   r.tick,
		System: r.system,
		Player: r.player.Snapshot(),
		Damage: r.damage,
		Cues:   r.cues,
		Zones:  r.zones,
	}
	data, err := msgpack.Marshal(frame)
	r.damage = nil
	r.cues = nil
	if err != nil {
		return
	}
	r.out.SendBinary(data)
}

// SetInput replaces the held movement keys and aim
func (r *Run) SetInput(in InputMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = sim.Input{Up: in.Up, Down: in.Down, Left: in.Left, Right: in.Right}
	if in.Aim {
		r.aim = &sim.Aim{Target: mgl64.Vec2{in.AimX, in.AimZ}, Active: true}
	} else {
		r.aim = nil
	}
}

func (r *Run) Dash() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.ended && r.player.StartDash()
}

func (r *Run) Hit(amount, reduction float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended || !(amount > 0) {
		return false
	}
	return r.player.TakeDamage(amount, reduction)
}

// Collect credits pickups. It returns the fragments credited and levels
// gained.
func (r *Run) Collect(xp, fragments float64) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended || r.player.IsDead() {
		return 0, 0
	}
	credited := r.player.AddFragments(fragments)
	gained := r.player.AddXP(xp)
	if gained > 0 {
		r.track(EvtLevelUp, map[string]interface{}{"level": r.player.CurrentLevel, "gained": gained})
	}
	return credited, gained
}

// Offer draws the dilemma choices the player may accept next.
func (r *Run) Offer() []sim.DilemmaDef {
	r.mu.Lock()
	defer r.mu.Unlock()
	offers := r.deps.Catalog.OfferDilemmas(r.rng, r.deps.Config.DilemmaOffers, r.player.AcceptedDilemmas)
	r.offered = make(map[string]bool, len(offers))
	for _, d := range offers {
		r.offered[d.ID] = true
	}
	return offers
}

// AcceptDilemma accepts id, which must be in the current offer. An offer
// is spent by the first accept.
func (r *Run) AcceptDilemma(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended || !r.offered[id] {
		return false
	}
	if !r.player.AcceptDilemma(id) {
		return false
	}
	r.offered = nil
	r.track(EvtDilemma, map[string]interface{}{"id": id})
	return true
}

// BuyUpgrade spends run fragments on a permanent upgrade level and writes
// the new level to the player's profile. A level the profile already owns
// (bought from the shop mid-run) is refused before anything is spent.
func (r *Run) BuyUpgrade(id string, level int) sim.PurchaseStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return sim.PurchaseUnknown
	}
	if level <= 0 {
		level = r.player.OwnedUpgrades[id] + 1
	}

	var (
		lvl    sim.UpgradeLevel
		status sim.PurchaseStatus
	)
	if r.deps.Profiles == nil {
		lvl, status = r.player.PurchaseUpgradeLevel(id, level)
	} else {
		_, err := r.deps.Profiles.Update(r.PlayerID, func(p *persist.Profile) error {
			if p.OwnedUpgrades[id] >= level {
				status = sim.PurchaseOwned
				return purchaseError{status}
			}
			lvl, status = r.player.PurchaseUpgradeLevel(id, level)
			if status != sim.PurchaseOK {
				return purchaseError{status}
			}
			p.OwnedUpgrades[id] = lvl.Level
			return nil
		})
		if err != nil && status == sim.PurchaseOK {
			log.Printf("run %s: sync upgrade %s: %v", r.ID, id, err)
		}
	}
	if status != sim.PurchaseOK {
		return status
	}
	r.track(EvtUpgrade, map[string]interface{}{"id": id, "level": lvl.Level, "cost": lvl.Cost})
	return status
}

func (r *Run) ConsumeLevelUp() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.player.ConsumeLevelUp()
}

func (r *Run) Revive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended || !r.player.TryRevive() {
		return false
	}
	r.deathSent = false
	r.revives++
	r.track(EvtRevive, map[string]interface{}{"charges": r.player.Charges.Revival})
	return true
}

func (r *Run) Sacrifice(cost int, hp float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.ended && r.player.SacrificeFragmentsForHP(cost, hp)
}

// UseCharge spends a reroll, skip or banish charge.
func (r *Run) UseCharge(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return false
	}
	switch kind {
	case ChargeReroll:
		return r.player.UseReroll()
	case ChargeSkip:
		return r.player.UseSkip()
	case ChargeBanish:
		return r.player.UseBanish()
	}
	return false
}

func (r *Run) Shield(d float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.ended && r.player.ActivateShield(d)
}

// NextSystem moves the ship into the next area.
func (r *Run) NextSystem() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended || r.player.IsDead() {
		return false
	}
	r.player.ResetForNewSystem()
	r.input = sim.Input{}
	r.aim = nil
	r.system++
	r.zones = nil
	r.spawnZone()
	return true
}

func (r *Run) SetGodMode(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.player.SetGodMode(on)
}

// Stats returns the current effective stats
func (r *Run) Stats() sim.EffectiveStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.player.Stats()
}

// Snapshot returns the current player snapshot
func (r *Run) Snapshot() sim.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.player.Snapshot()
}

// Started describes the run for the client
func (r *Run) Started() RunStartedMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunStartedMsg{
		ID:        r.ID,
		Ship:      r.player.CurrentShipID,
		ShipLevel: r.player.ShipLevel,
		Stats:     r.player.Stats(),
	}
}

// End banks the run's fragments into the profile and records it. Only the
// first call has any effect.
func (r *Run) End() (RunEndedMsg, bool) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return RunEndedMsg{}, false
	}
	r.ended = true
	p := r.player
	msg := RunEndedMsg{ID: r.ID, Level: p.CurrentLevel, Banked: p.Fragments}
	row := RunRow{
		ID:        r.ID,
		PlayerID:  r.PlayerID,
		ShipID:    p.CurrentShipID,
		ShipLevel: p.ShipLevel,
		Level:     p.CurrentLevel,
		Fragments: p.Fragments,
		Duration:  p.Clock,
		Died:      p.IsDead(),
	}
	summary := runSummary{
		Level:     p.CurrentLevel,
		Fragments: p.Fragments,
		Duration:  p.Clock,
		Dilemmas:  len(p.AcceptedDilemmas),
		Revives:   r.revives,
	}
	r.mu.Unlock()
	r.Stop()

	if r.deps.Profiles != nil {
		prof, err := r.deps.Profiles.Update(r.PlayerID, func(pr *persist.Profile) error {
			pr.BankRun(msg.Banked, msg.Level)
			for _, a := range CheckAchievements(pr, r.deps.Catalog, summary) {
				msg.Achievements = append(msg.Achievements, a.ID)
			}
			return nil
		})
		if err == nil {
			msg.Bank = prof.Fragments
			msg.BestLevel = prof.BestLevel
		}
	}
	if r.deps.DB != nil {
		if err := r.deps.DB.RecordRun(row); err != nil {
			log.Printf("run %s: record: %v", r.ID, err)
		}
	}
	r.track(EvtRunEnd, map[string]interface{}{"level": msg.Level, "fragments": msg.Banked, "died": row.Died})
	return msg, true
}
