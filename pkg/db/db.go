/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package db pkg/db/db.go provides SQLite persistence for FieldRadar: the audit log,
// schedules, liveness snapshots, accepted sensor readings and operator notifications.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// SQL statements for database initialization.
	createTablesSQL = `
	-- Append-only audit log
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		event TEXT NOT NULL,
		command_id TEXT,
		schedule_id TEXT,
		reason TEXT,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);

	-- Schedule definitions
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		node TEXT NOT NULL,
		action TEXT NOT NULL,
		params TEXT,
		recurrence TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		next_execution_at TIMESTAMP,
		last_executed_at TIMESTAMP,
		flagged BOOLEAN NOT NULL DEFAULT 0,
		last_error TEXT
	);

	-- Last known liveness per device
	CREATE TABLE IF NOT EXISTS liveness (
		device_id TEXT PRIMARY KEY,
		last_heartbeat_at TIMESTAMP,
		last_value REAL NOT NULL DEFAULT 0,
		online BOOLEAN NOT NULL DEFAULT 0,
		last_transition_at TIMESTAMP
	);

	-- Accepted sensor readings
	CREATE TABLE IF NOT EXISTS sensor_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		source_timestamp TIMESTAMP,
		boot_relative BOOLEAN NOT NULL DEFAULT 0,
		received_at TIMESTAMP NOT NULL
	);

	-- Operator notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alert_id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		owner_id TEXT,
		kind TEXT NOT NULL,
		command_id TEXT,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	);

	-- Indexes for better query performance
	CREATE INDEX IF NOT EXISTS idx_audit_device_time
		ON audit_log(device_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_schedules_enabled
		ON schedules(enabled);
	CREATE INDEX IF NOT EXISTS idx_readings_device_time
		ON sensor_readings(device_id, received_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_device_kind
		ON notifications(device_id, kind, resolved_at);
	`
)

// DB represents the database connection and operations.
type DB struct {
	conn *sql.DB
}

var _ Service = (*DB)(nil)

// New creates a new database connection and initializes the schema.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// SQLite allows a single writer; ":memory:" databases also exist per connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("%w: %w", ErrFailedToEnableWAL, err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return db, nil
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema() error {
	_, err := db.conn.Exec(createTablesSQL)

	return err
}

func (db *DB) Begin() (Transaction, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	return ToTransaction(tx), nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Exec(query string, args ...interface{}) (Result, error) {
	result, err := db.conn.Exec(query, args...)
	if err != nil {
		return nil, err
	}

	return &SQLResult{result}, nil
}

func (db *DB) Query(query string, args ...interface{}) (Rows, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}

	return &SQLRows{rows}, nil
}

func (db *DB) QueryRow(query string, args ...interface{}) Row {
	return &SQLRow{db.conn.QueryRow(query, args...)}
}

func rollbackOnError(tx Transaction, err error) {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Error rolling back transaction: %v", rbErr)
		}
	}
}

// utc normalizes timestamps so SQLite's text comparison orders them correctly.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}

	t := nt.Time

	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
