package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite journal database
type DB struct {
	conn *sql.DB
}

// ScoreRow is one finished game
type ScoreRow struct {
	GameID    string    `json:"game_id"`
	SessionID string    `json:"session_id"`
	Score     int       `json:"score"`
	EndedAt   time.Time `json:"ended_at"`
}

// OpenDB opens (or creates) the SQLite database. ":memory:" keeps the
// journal for the life of the process.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	} else if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
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
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		session_id TEXT,
		game_id TEXT,
		score INTEGER NOT NULL DEFAULT 0,
		detail TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS games (
		game_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		ended_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	CREATE INDEX IF NOT EXISTS idx_games_score ON games(score DESC);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// WriteEvents stores a batch of journal events in one transaction. Game-over
// events also record the final score.
func (db *DB) WriteEvents(events []JournalEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (event_type, session_id, game_id, score, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare events: %w", err)
	}
	defer stmt.Close()

	for _, evt := range events {
		sid := sql.NullString{String: evt.SessionID, Valid: evt.SessionID != ""}
		gid := sql.NullString{String: evt.GameID, Valid: evt.GameID != ""}
		detail := sql.NullString{String: evt.Detail, Valid: evt.Detail != ""}
		ts := evt.Timestamp.UTC().Format(time.RFC3339Nano)
		if _, err := stmt.Exec(evt.Type, sid, gid, evt.Score, detail, ts); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if evt.Type == EventGameOver && evt.GameID != "" {
			_, err := tx.Exec(`INSERT OR REPLACE INTO games (game_id, session_id, score, ended_at) VALUES (?, ?, ?, ?)`,
				evt.GameID, evt.SessionID, evt.Score, ts)
			if err != nil {
				return fmt.Errorf("insert game: %w", err)
			}
		}
	}
	return tx.Commit()
}

// TopScores returns the best finished games, highest score first
func (db *DB) TopScores(limit int) ([]ScoreRow, error) {
	rows, err := db.conn.Query(`
		SELECT game_id, session_id, score, ended_at FROM games
		ORDER BY score DESC, ended_at ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScoreRow
	for rows.Next() {
		var r ScoreRow
		var ended string
		if err := rows.Scan(&r.GameID, &r.SessionID, &r.Score, &ended); err != nil {
			return nil, err
		}
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		result = append(result, r)
	}
	return result, rows.Err()
}

// EventCounts returns how many events of each type were journaled
func (db *DB) EventCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT event_type, COUNT(*) FROM events GROUP BY event_type`)
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
