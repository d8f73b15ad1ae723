package main

import (
	"encoding/json"

	"spaceship-roguelite/sim"
)

// Client -> Server message types
const (
	MsgAuth           = "auth"
	MsgNewRun         = "new_run"
	MsgInput          = "input"
	MsgDash           = "dash"
	MsgHit            = "hit"     // contact damage reported by the client's enemy layer
	MsgCollect        = "collect" // xp / fragment pickups
	MsgOffer          = "offer"   // request dilemma choices
	MsgAcceptDilemma  = "accept_dilemma"
	MsgBuyUpgrade     = "buy_upgrade"
	MsgConsumeLevelUp = "consume_level_up"
	MsgRevive         = "revive"
	MsgSacrifice      = "sacrifice"
	MsgCharge         = "charge"
	MsgShield         = "shield"
	MsgNextSystem     = "next_system"
	MsgEndRun         = "end_run"
	MsgGod            = "god"
	MsgLeave          = "leave"
)

// Server -> Client message types
const (
	MsgState      = "state"
	MsgAuthOK     = "auth_ok"
	MsgRunStarted = "run_started"
	MsgStats      = "stats"
	MsgDilemmas   = "dilemmas"
	MsgResult     = "result"
	MsgDeath      = "death"
	MsgRunEnded   = "run_ended"
	MsgError      = "error"
)

// Charge kinds for MsgCharge
const (
	ChargeReroll = "reroll"
	ChargeSkip   = "skip"
	ChargeBanish = "banish"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until routed.
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// InputMsg is the per-frame input. Aim coordinates are world x/z.
type InputMsg struct {
	Up    bool    `json:"u"`
	Down  bool    `json:"dn"`
	Left  bool    `json:"l"`
	Right bool    `json:"r"`
	Aim   bool    `json:"aim"`
	AimX  float64 `json:"ax"`
	AimZ  float64 `json:"az"`
}

// AuthMsg presents a token from the REST auth endpoints
type AuthMsg struct {
	Token string `json:"token"`
}

// NewRunMsg starts a run; an empty ship uses the profile's selection.
type NewRunMsg struct {
	Ship string `json:"ship,omitempty"`
}

type HitMsg struct {
	Amount    float64 `json:"amount"`
	Reduction float64 `json:"reduction,omitempty"`
}

type CollectMsg struct {
	XP        float64 `json:"xp,omitempty"`
	Fragments float64 `json:"fragments,omitempty"`
}

type IDMsg struct {
	ID string `json:"id"`
}

type BuyUpgradeMsg struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"` // 0 buys the next level
}

type SacrificeMsg struct {
	Cost int     `json:"cost"`
	HP   float64 `json:"hp"`
}

type ChargeMsg struct {
	Kind string `json:"kind"`
}

type ShieldMsg struct {
	Duration float64 `json:"duration"`
}

type GodMsg struct {
	On bool `json:"on"`
}

// AuthOKMsg confirms a session identity
type AuthOKMsg struct {
	Token    string `json:"token,omitempty"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
	Guest    bool   `json:"guest"`
}

// RunStartedMsg describes a fresh run
type RunStartedMsg struct {
	ID        string             `json:"id"`
	Ship      string             `json:"ship"`
	ShipLevel int                `json:"shipLevel"`
	Stats     sim.EffectiveStats `json:"stats"`
}

// ResultMsg answers a discrete action
type ResultMsg struct {
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Value  int    `json:"value,omitempty"`
}

// RunEndedMsg reports what a run banked
type RunEndedMsg struct {
	ID        string `json:"id"`
	Level     int    `json:"level"`
	Banked    int    `json:"banked"`
	Bank      int    `json:"bank"`
	BestLevel int    `json:"bestLevel"`

	Achievements []string `json:"achievements,omitempty"`
}

// StateFrame is the msgpack snapshot broadcast at BroadcastRate. Damage
// numbers and cues raised since the previous frame ride along.
type StateFrame struct {
	Tick   uint64             `msgpack:"tick"`
	System int                `msgpack:"sys"`
	Player sim.Snapshot       `msgpack:"p"`
	Damage []sim.DamageNumber `msgpack:"dmg,omitempty"`
	Cues   []string           `msgpack:"cues,omitempty"`
	Zones  []*RepairZone      `msgpack:"zones,omitempty"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
