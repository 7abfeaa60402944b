package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PageRow represents a row in the pages table with its tags.
type PageRow struct {
	Name      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// UpsertPage inserts or replaces a page and its tag set within a transaction.
func (db *DB) UpsertPage(p PageRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO pages (name, title, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, p.Name, p.Title, p.Checksum, updated)
	if err != nil {
		return fmt.Errorf("index: upsert page: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM page_tags WHERE name = ?`, p.Name); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	if len(p.Tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO page_tags (name, tag) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range p.Tags {
			if _, err := stmt.Exec(p.Name, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePage removes a page and its tags.
func (db *DB) DeletePage(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM page_tags WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: delete tags: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM pages WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: delete page: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a page, or "" if it is not indexed.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM pages WHERE name = ?`, name).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns name → checksum for every indexed page.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// TagsForPage returns the sorted tag set of a page. Unknown pages have no tags.
func (db *DB) TagsForPage(ctx context.Context, name string) ([]string, error) {
	return db.queryStrings(ctx, `SELECT tag FROM page_tags WHERE name = ? ORDER BY tag`, name)
}

// AllTags returns every distinct tag in use, sorted.
func (db *DB) AllTags(ctx context.Context) ([]string, error) {
	return db.queryStrings(ctx, `SELECT DISTINCT tag FROM page_tags ORDER BY tag`)
}

func (db *DB) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query tags: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
