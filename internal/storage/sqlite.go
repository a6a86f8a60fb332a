// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_record (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// sqliteBackend keeps one row per key in the session_record table.
type sqliteBackend struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string, opts ...Option) (*RecordStore, error) {
	if path == "" {
		return nil, errors.New("storage: empty sqlite path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if path != ":memory:" {
		_ = os.Chmod(path, 0600)
	}

	return newRecordStore(&sqliteBackend{db: db}, opts...), nil
}

func (s *sqliteBackend) name() string { return "sqlite" }

func (s *sqliteBackend) load() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM session_record")
	if err != nil {
		return nil, fmt.Errorf("query session record: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		fields[k] = v
	}
	return fields, rows.Err()
}

func (s *sqliteBackend) put(fields map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO session_record (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for k, v := range fields {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteBackend) del() error {
	if _, err := s.db.Exec("DELETE FROM session_record"); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	return nil
}

func (s *sqliteBackend) close() error {
	return s.db.Close()
}
