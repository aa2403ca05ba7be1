// Package database is the sqlite persistence layer for schedules and
// reservations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection pool.
type DB struct {
	conn   *sql.DB
	logger *zerolog.Logger
}

// New opens the sqlite database at path, applies the connection
// settings and runs migrations.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// sqlite handles one writer at a time; a small pool avoids
	// needless lock contention.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("database ready")
	return db, nil
}

// Close closes the underlying pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies connectivity, for readiness checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS staff_schedules (
			staff TEXT NOT NULL,
			day_of_week INTEGER NOT NULL,
			is_working INTEGER NOT NULL DEFAULT 0,
			start_time TEXT NOT NULL DEFAULT '10:00',
			end_time TEXT NOT NULL DEFAULT '20:00',
			UNIQUE(staff, day_of_week)
		)`,
		`CREATE TABLE IF NOT EXISTS staff_exceptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			staff TEXT NOT NULL,
			date TEXT NOT NULL,
			is_working INTEGER NOT NULL DEFAULT 0,
			start_time TEXT NOT NULL DEFAULT '',
			end_time TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(staff, date)
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			staff TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_staff_date ON reservations(staff, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_exceptions_staff_date ON staff_exceptions(staff, date)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}

	// Additive migrations for databases created before a column existed.
	alters := []string{
		`ALTER TABLE reservations ADD COLUMN note TEXT NOT NULL DEFAULT ''`,
	}
	for _, stmt := range alters {
		if _, err := db.conn.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migrating tables: %w", err)
		}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
