package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"spaceship-roguelite/persist"
	"spaceship-roguelite/sim"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120
	messageBurst      = 60
)

// Binary input frame: [0x01, flags, ax_hi, ax_lo, az_hi, az_lo]. Aim
// coordinates are int16 world units times binaryAimScale.
const (
	binaryInputTag = 0x01
	binaryInputLen = 6
	binaryAimScale = 100.0
	binaryMarker   = 0xFF

	flagUp    = 1 << 0
	flagDown  = 1 << 1
	flagLeft  = 1 << 2
	flagRight = 1 << 3
	flagAim   = 1 << 4
	flagDash  = 1 << 5
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	limiter    *rate.Limiter

	mu       sync.Mutex
	identity Identity // zero PlayerID = not yet authenticated
	runID    string
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		limiter:    rate.NewLimiter(maxMessagesPerSec, messageBurst),
	}
}

// RunID returns the client's live run, if any
func (c *Client) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

func (c *Client) run() *Run {
	id := c.RunID()
	if id == "" {
		return nil
	}
	return c.hub.runs.Get(id)
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		if !c.limiter.Allow() {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		if msgType == websocket.BinaryMessage && len(message) == binaryInputLen && message[0] == binaryInputTag {
			c.handleBinaryInput(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			var err error
			if len(message) > 0 && message[0] == binaryMarker {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.enqueue(data)
}

// SendBinary queues a binary frame. The marker byte tells WritePump to
// send it as a binary message; JSON text never starts with 0xFF.
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = binaryMarker
	copy(msg[1:], data)
	c.enqueue(msg)
}

func (c *Client) enqueue(data []byte) {
	// send may already be closed by the hub
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

func (c *Client) sendResult(action string, ok bool, reason string, value int) {
	c.SendJSON(Envelope{T: MsgResult, Data: ResultMsg{Action: action, OK: ok, Reason: reason, Value: value}})
}

// handleMessage routes incoming JSON messages
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgAuth:
		c.handleAuth(env.D)
		return
	case MsgNewRun:
		c.handleNewRun(env.D)
		return
	case MsgEndRun, MsgLeave:
		c.handleEndRun()
		return
	}

	r := c.run()
	if r == nil {
		c.sendError("no active run")
		return
	}

	switch env.T {
	case MsgInput:
		var in InputMsg
		if json.Unmarshal(env.D, &in) == nil {
			r.SetInput(in)
		}
	case MsgDash:
		c.sendResult(env.T, r.Dash(), "", 0)
	case MsgHit:
		var m HitMsg
		if json.Unmarshal(env.D, &m) == nil {
			r.Hit(m.Amount, m.Reduction)
		}
	case MsgCollect:
		var m CollectMsg
		if json.Unmarshal(env.D, &m) == nil {
			credited, _ := r.Collect(m.XP, m.Fragments)
			c.sendResult(env.T, true, "", credited)
		}
	case MsgOffer:
		c.SendJSON(Envelope{T: MsgDilemmas, Data: r.Offer()})
	case MsgAcceptDilemma:
		var m IDMsg
		if json.Unmarshal(env.D, &m) == nil {
			ok := r.AcceptDilemma(m.ID)
			c.sendResult(env.T, ok, "", 0)
			if ok {
				c.SendJSON(Envelope{T: MsgStats, Data: r.Stats()})
			}
		}
	case MsgBuyUpgrade:
		var m BuyUpgradeMsg
		if json.Unmarshal(env.D, &m) == nil {
			status := r.BuyUpgrade(m.ID, m.Level)
			ok := status == sim.PurchaseOK
			reason := ""
			if !ok {
				reason = status.String()
			}
			c.sendResult(env.T, ok, reason, 0)
			if ok {
				c.SendJSON(Envelope{T: MsgStats, Data: r.Stats()})
			}
		}
	case MsgConsumeLevelUp:
		c.sendResult(env.T, r.ConsumeLevelUp(), "", 0)
	case MsgRevive:
		c.sendResult(env.T, r.Revive(), "", 0)
	case MsgSacrifice:
		var m SacrificeMsg
		if json.Unmarshal(env.D, &m) == nil {
			c.sendResult(env.T, r.Sacrifice(m.Cost, m.HP), "", 0)
		}
	case MsgCharge:
		var m ChargeMsg
		if json.Unmarshal(env.D, &m) == nil {
			c.sendResult(env.T, r.UseCharge(m.Kind), "", 0)
		}
	case MsgShield:
		var m ShieldMsg
		if json.Unmarshal(env.D, &m) == nil {
			c.sendResult(env.T, r.Shield(m.Duration), "", 0)
		}
	case MsgNextSystem:
		c.sendResult(env.T, r.NextSystem(), "", 0)
	case MsgGod:
		if !c.hub.cfg.AllowGodMode {
			c.sendResult(env.T, false, "disabled", 0)
			return
		}
		var m GodMsg
		if json.Unmarshal(env.D, &m) == nil {
			r.SetGodMode(m.On)
			c.sendResult(env.T, true, "", 0)
		}
	}
}

// handleBinaryInput decodes a compact binary input frame
func (c *Client) handleBinaryInput(msg []byte) {
	r := c.run()
	if r == nil {
		return
	}
	flags := msg[1]
	in := InputMsg{
		Up:    flags&flagUp != 0,
		Down:  flags&flagDown != 0,
		Left:  flags&flagLeft != 0,
		Right: flags&flagRight != 0,
		Aim:   flags&flagAim != 0,
		AimX:  float64(int16(uint16(msg[2])<<8|uint16(msg[3]))) / binaryAimScale,
		AimZ:  float64(int16(uint16(msg[4])<<8|uint16(msg[5]))) / binaryAimScale,
	}
	r.SetInput(in)
	if flags&flagDash != 0 {
		r.Dash()
	}
}

func (c *Client) handleAuth(data json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Username: id.Username, PlayerID: id.PlayerID, Guest: id.Guest}})
}

// ensureIdentity makes a guest account for clients that start a run
// without authenticating.
func (c *Client) ensureIdentity() (Identity, bool) {
	c.mu.Lock()
	id := c.identity
	c.mu.Unlock()
	if id.PlayerID != 0 {
		return id, true
	}
	id, token, err := c.hub.auth.Guest()
	if err != nil {
		c.sendError(err.Error())
		return Identity{}, false
	}
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: id.Username, PlayerID: id.PlayerID, Guest: true}})
	return id, true
}

func (c *Client) handleNewRun(data json.RawMessage) {
	var msg NewRunMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	id, ok := c.ensureIdentity()
	if !ok {
		return
	}
	// Bank whatever run was in progress first
	c.handleEndRun()

	var profile *persist.Profile
	if msg.Ship != "" {
		p, err := c.hub.profiles.Update(id.PlayerID, func(p *persist.Profile) error {
			if !p.SelectShip(c.hub.catalog, msg.Ship) {
				return errShipUnavailable
			}
			return nil
		})
		if err != nil {
			c.sendError(err.Error())
			return
		}
		profile = p
	} else {
		profile = c.hub.profiles.Get(id.PlayerID)
	}

	r, err := NewRun(c.hub.RunDeps(), id.PlayerID, profile, c)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if !c.hub.runs.Add(r) {
		c.sendError("server full")
		return
	}
	c.mu.Lock()
	c.runID = r.ID
	c.mu.Unlock()
	c.SendJSON(Envelope{T: MsgRunStarted, Data: r.Started()})
}

func (c *Client) handleEndRun() {
	c.mu.Lock()
	id := c.runID
	c.runID = ""
	c.mu.Unlock()
	if id == "" {
		return
	}
	if res, ok := c.hub.runs.Finish(id); ok {
		c.SendJSON(Envelope{T: MsgRunEnded, Data: res})
	}
}
