package store

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ActivityLog persists an audit trail of room and lock activity. Writes are
// fire-and-forget: a failed insert is logged and never propagated into the
// collaboration handlers.
type ActivityLog struct {
	db *sql.DB
}

// Entry is one recorded activity row.
type Entry struct {
	ID         int64     `json:"id"`
	Event      string    `json:"event"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Open creates or opens the activity database at the given path.
func Open(dbPath string) (*ActivityLog, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS collaboration_activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_collaboration_activity_entity
		ON collaboration_activity(entity_type, entity_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Activity log initialized at %s", dbPath)
	return &ActivityLog{db: db}, nil
}

// Record inserts one activity row.
func (l *ActivityLog) Record(event, entityType string, entityID int64, userID string) {
	_, err := l.db.Exec(
		`INSERT INTO collaboration_activity (event, entity_type, entity_id, user_id) VALUES (?, ?, ?, ?)`,
		event, entityType, entityID, userID,
	)
	if err != nil {
		log.Printf("Failed to record %s activity: %v", event, err)
	}
}

// Recent returns the most recent activity rows, newest first.
func (l *ActivityLog) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, event, entity_type, entity_id, user_id, created_at
		 FROM collaboration_activity ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Event, &e.EntityType, &e.EntityID, &e.UserID, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (l *ActivityLog) Close() error {
	return l.db.Close()
}
