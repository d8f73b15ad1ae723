package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Run event types
const (
	EvtRunStart = "run_start"
	EvtRunEnd   = "run_end"
	EvtLevelUp  = "level_up"
	EvtDilemma  = "dilemma"
	EvtUpgrade  = "upgrade"
	EvtDeath    = "death"
	EvtRevive   = "revive"
)

const (
	eventBuffer     = 1024
	eventBatchSize  = 50
	eventFlushEvery = 5 * time.Second
)

// RunEvent is a single tracked run event
type RunEvent struct {
	Type      string
	PlayerID  int64
	RunID     string
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics writes run events to the database in batches
type Analytics struct {
	db     *DB
	events chan RunEvent
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAnalytics creates and starts the background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan RunEvent, eventBuffer),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event. It never blocks the run loop; a full queue
// drops the event.
func (a *Analytics) Track(evtType string, playerID int64, runID string, data map[string]interface{}) {
	var raw string
	if len(data) > 0 {
		if b, err := json.Marshal(data); err == nil {
			raw = string(b)
		}
	}
	select {
	case a.events <- RunEvent{
		Type:      evtType,
		PlayerID:  playerID,
		RunID:     runID,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}:
	default:
	}
}

// Stop flushes pending events and shuts the writer down
func (a *Analytics) Stop() {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]RunEvent, 0, eventBatchSize)
	ticker := time.NewTicker(eventFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= eventBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

func (a *Analytics) flush(events []RunEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.Printf("analytics: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO run_events (event_type, player_id, run_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("analytics: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullInt64{Int64: evt.PlayerID, Valid: evt.PlayerID > 0}
		rid := sql.NullString{String: evt.RunID, Valid: evt.RunID != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, pid, rid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			log.Printf("analytics: insert error: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("analytics: commit error: %v", err)
	}
}

// EventCounts returns counts of each event type for one run, or for all
// runs when runID is empty.
func (a *Analytics) EventCounts(runID string) (map[string]int, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM run_events
		WHERE ? = '' OR run_id = ?
		GROUP BY event_type
	`, runID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
