package events

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"portfolio/internal/model"
)

const dayLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS bookings (
	id               TEXT PRIMARY KEY,
	owner            TEXT NOT NULL,
	title            TEXT NOT NULL,
	day              TEXT NOT NULL,
	start_time       TEXT NOT NULL,
	end_time         TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL,
	type             TEXT NOT NULL,
	contact_name     TEXT NOT NULL,
	contact_phone    TEXT,
	contact_email    TEXT,
	created_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bookings_owner_day ON bookings (owner, day);
`

// DB is a durable booking database shared by all visitors. Each visitor
// gets its own view through For.
type DB struct {
	db  *sql.DB
	loc *time.Location
}

// OpenSQLite opens (and creates if needed) the booking database at path.
// Dates are read back as midnight in loc.
func OpenSQLite(path string, loc *time.Location) (*DB, error) {
	if loc == nil {
		loc = time.Local
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite does not like concurrent writers on one file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &DB{db: db, loc: loc}, nil
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// For returns the repository of a single owner (visitor session id).
func (d *DB) For(owner string) *SQLiteStore {
	return &SQLiteStore{db: d, owner: owner}
}

// SQLiteStore is a Repository backed by DB, scoped to one owner.
type SQLiteStore struct {
	db    *DB
	owner string
}

func (s *SQLiteStore) Add(ctx context.Context, ev model.CalendarEvent) error {
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO bookings (id, owner, title, day, start_time, end_time,
			duration_minutes, type, contact_name, contact_phone, contact_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, s.owner, ev.Title, ev.Date.Format(dayLayout), ev.StartTime, ev.EndTime,
		ev.DurationMinutes, ev.Type, ev.ContactName, ev.ContactPhone, ev.ContactEmail,
		ev.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.CalendarEvent, error) {
	return s.query(ctx, `
		SELECT id, title, day, start_time, end_time, duration_minutes, type,
			contact_name, COALESCE(contact_phone, ''), COALESCE(contact_email, ''), created_at
		FROM bookings WHERE owner = ? ORDER BY created_at, id`, s.owner)
}

func (s *SQLiteStore) OnDay(ctx context.Context, day time.Time) ([]model.CalendarEvent, error) {
	return s.query(ctx, `
		SELECT id, title, day, start_time, end_time, duration_minutes, type,
			contact_name, COALESCE(contact_phone, ''), COALESCE(contact_email, ''), created_at
		FROM bookings WHERE owner = ? AND day = ? ORDER BY created_at, id`,
		s.owner, day.In(s.db.loc).Format(dayLayout))
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]model.CalendarEvent, error) {
	rows, err := s.db.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	out := make([]model.CalendarEvent, 0)
	for rows.Next() {
		var (
			ev  model.CalendarEvent
			day string
		)
		if err := rows.Scan(&ev.ID, &ev.Title, &day, &ev.StartTime, &ev.EndTime,
			&ev.DurationMinutes, &ev.Type, &ev.ContactName, &ev.ContactPhone,
			&ev.ContactEmail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		ev.Date, err = time.ParseInLocation(dayLayout, day, s.db.loc)
		if err != nil {
			return nil, fmt.Errorf("bad booking day %q: %w", day, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
