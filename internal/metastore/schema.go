// Package metastore owns the wikimeta table: the per-page metadata records
// (owner, lifecycle state, priority) and their superseded history.
package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const (
	schemaVersion = 1
	versionKey    = "wikimeta_version"
)

const systemSQL = `
CREATE TABLE IF NOT EXISTS system (
	name  TEXT PRIMARY KEY,
	value TEXT
);
`

const schemaSQL = `
CREATE TABLE IF NOT EXISTS wikimeta (
	name     TEXT,
	owner    TEXT,
	state    TEXT,
	priority INTEGER,
	time     BIGINT,
	author   TEXT,
	current  INTEGER,
	PRIMARY KEY (name, owner, state, time)
);

CREATE INDEX IF NOT EXISTS idx_wikimeta_current ON wikimeta(current, priority);
CREATE INDEX IF NOT EXISTS idx_wikimeta_name ON wikimeta(name, current);
`

// migrate creates the wikimeta schema when the recorded version is behind.
func migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, systemSQL); err != nil {
		return fmt.Errorf("metastore: create system table: %w", err)
	}

	version, err := storedVersion(ctx, conn)
	if err != nil {
		return err
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metastore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("metastore: apply schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO system (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, versionKey, strconv.Itoa(schemaVersion)); err != nil {
		return fmt.Errorf("metastore: record version: %w", err)
	}
	return tx.Commit()
}

// storedVersion returns the recorded schema version, 0 when none.
func storedVersion(ctx context.Context, conn *sql.DB) (int, error) {
	var raw string
	err := conn.QueryRowContext(ctx, `SELECT value FROM system WHERE name = ?`, versionKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("metastore: read version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("metastore: bad version %q: %w", raw, err)
	}
	return v, nil
}
