// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// RegistryCache backs the TypeRegistry patch-cache described in spec.md
// §4.2 with an embedded, pure-Go sqlite database keyed on
// (registry_path, mtime), replacing the original implementation's flat
// JSON cache file. A single RegistryCache may be shared across many
// LoadRegistry calls; write access is serialized by a mutex standing in
// for the advisory file lock spec.md §5 calls for.
type RegistryCache struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenRegistryCache opens (creating if needed) a sqlite-backed patch cache
// at dbPath.
func OpenRegistryCache(dbPath string) (*RegistryCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("rsz: open registry cache: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS patched_registry (
	path  TEXT NOT NULL,
	mtime INTEGER NOT NULL,
	body  BLOB NOT NULL,
	PRIMARY KEY (path, mtime)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("rsz: init registry cache schema: %w", err)
	}
	return &RegistryCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *RegistryCache) Close() error {
	return c.db.Close()
}

// Get returns the cached patched-registry JSON blob for (path, mtime), if
// present.
func (c *RegistryCache) Get(path string, mtime int64) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := c.db.QueryRow(`SELECT body FROM patched_registry WHERE path = ? AND mtime = ?`, path, mtime)
	var body []byte
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return body, true, nil
}

// Put stores the patched-registry JSON blob for (path, mtime), evicting any
// stale entries for the same path first.
func (c *RegistryCache) Put(path string, mtime int64, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM patched_registry WHERE path = ? AND mtime != ?`, path, mtime); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO patched_registry (path, mtime, body) VALUES (?, ?, ?)`,
		path, mtime, body); err != nil {
		return err
	}
	return tx.Commit()
}
