package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents a player record in the database
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	IsGuest   bool
	CreatedAt time.Time
}

// RunRow is one finished run.
type RunRow struct {
	ID        string    `json:"id"`
	PlayerID  int64     `json:"-"`
	ShipID    string    `json:"ship"`
	ShipLevel int       `json:"shipLevel"`
	Level     int       `json:"level"`
	Fragments int       `json:"fragments"`
	Duration  float64   `json:"duration"`
	Died      bool      `json:"died"`
	CreatedAt time.Time `json:"createdAt"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		is_guest INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		player_id INTEGER NOT NULL REFERENCES players(id),
		ship_id TEXT NOT NULL,
		ship_level INTEGER NOT NULL DEFAULT 1,
		level INTEGER NOT NULL DEFAULT 1,
		fragments INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		died INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS run_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		player_id INTEGER,
		run_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_player ON runs(player_id);
	CREATE INDEX IF NOT EXISTS idx_run_events_type ON run_events(event_type);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// CreatePlayer creates a new player account (returns player ID)
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO players (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateGuest creates a guest player (no password)
func (db *DB) CreateGuest(username string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO players (username, is_guest) VALUES (?, 1)",
		username,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanPlayer(row *sql.Row) (*PlayerRow, error) {
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.IsGuest, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlayerByUsername returns a player by username
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	return scanPlayer(db.conn.QueryRow(
		"SELECT id, username, pass_hash, is_guest, created_at FROM players WHERE username = ?",
		username,
	))
}

// GetPlayerByID returns a player by ID
func (db *DB) GetPlayerByID(id int64) (*PlayerRow, error) {
	return scanPlayer(db.conn.QueryRow(
		"SELECT id, username, pass_hash, is_guest, created_at FROM players WHERE id = ?",
		id,
	))
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetSetting returns a stored setting, or "" when unset.
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetSetting %s: %v", key, err)
	}
	return v
}

// SetSetting stores a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// GetBlob implements persist.BlobStore.
func (db *DB) GetBlob(key string) ([]byte, bool, error) {
	var b []byte
	err := db.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&b)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// SetBlob implements persist.BlobStore.
func (db *DB) SetBlob(key string, data []byte) error {
	_, err := db.conn.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, data,
	)
	return err
}

// RecordRun stores a finished run.
func (db *DB) RecordRun(r RunRow) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, player_id, ship_id, ship_level, level, fragments, duration, died)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PlayerID, r.ShipID, r.ShipLevel, r.Level, r.Fragments, r.Duration, r.Died,
	)
	return err
}

// GetRunHistory returns a player's most recent runs, newest first.
func (db *DB) GetRunHistory(playerID int64, limit int) ([]RunRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, player_id, ship_id, ship_level, level, fragments, duration, died, created_at
		FROM runs WHERE player_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		playerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.ShipID, &r.ShipLevel, &r.Level, &r.Fragments, &r.Duration, &r.Died, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
