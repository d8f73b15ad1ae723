package main

import (
	"sync"

	"spaceship-roguelite/sim"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub owns the shared services and tracks connected clients
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	runs       *RunManager
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	cfg       *Config
	catalog   *sim.Catalog
	db        *DB
	auth      *Auth
	profiles  *Profiles
	analytics *Analytics
}

// NewHub wires the services around db
func NewHub(cfg *Config, db *DB, catalog *sim.Catalog) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		runs:       NewRunManager(),
		ipConns:    make(map[string]int),
		cfg:        cfg,
		catalog:    catalog,
		db:         db,
		auth:       NewAuth(db, cfg.JWTSecret),
		profiles:   NewProfiles(db, catalog),
		analytics:  NewAnalytics(db),
	}
}

// RunDeps returns the services handed to each new run
func (h *Hub) RunDeps() RunDeps {
	return RunDeps{
		Config:   h.cfg,
		Catalog:  h.catalog,
		Profiles: h.profiles,
		Events:   h.analytics,
		DB:       h.db,
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			// A dropped connection still banks its run
			if id := client.RunID(); id != "" {
				go h.runs.Finish(id)
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown banks every live run and flushes pending events
func (h *Hub) Shutdown() {
	for _, id := range h.runs.IDs() {
		h.runs.Finish(id)
	}
	h.analytics.Stop()
}
