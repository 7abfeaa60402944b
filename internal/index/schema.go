// Package index keeps a SQLite index of vault pages and their tags, plus the
// tag-to-category assignments used to group tags in filter options.
package index

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	name       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS page_tags (
	name TEXT NOT NULL,
	tag  TEXT NOT NULL,
	PRIMARY KEY (name, tag)
);

CREATE INDEX IF NOT EXISTS idx_page_tags_tag ON page_tags(tag);

CREATE TABLE IF NOT EXISTS tags_category (
	category TEXT NOT NULL,
	tag      TEXT NOT NULL,
	PRIMARY KEY (category, tag)
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// New applies the index schema to conn. The caller owns conn.
func New(conn *sql.DB) (*DB, error) {
	if _, err := conn.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}
