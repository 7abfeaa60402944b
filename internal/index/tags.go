package index

import (
	"context"
	"fmt"
	"sort"
)

// Uncategorized is the group name for tags without a category.
const Uncategorized = "uncategorized"

// TagGroup is a category with its tags, both sorted by name.
type TagGroup struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// SetTagCategory assigns tag to category. A tag may belong to several categories.
func (db *DB) SetTagCategory(ctx context.Context, tag, category string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO tags_category (category, tag) VALUES (?, ?)`, category, tag)
	if err != nil {
		return fmt.Errorf("index: set tag category: %w", err)
	}
	return nil
}

// RemoveTagCategory drops the assignment of tag to category.
func (db *DB) RemoveTagCategory(ctx context.Context, tag, category string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM tags_category WHERE category = ? AND tag = ?`, category, tag)
	if err != nil {
		return fmt.Errorf("index: remove tag category: %w", err)
	}
	return nil
}

// CategorizedTags groups tags by category. Tags used by pages but assigned to
// no category are collected in a trailing "uncategorized" group.
func (db *DB) CategorizedTags(ctx context.Context) ([]TagGroup, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT category, tag FROM tags_category ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("index: categorized tags: %w", err)
	}
	defer rows.Close()

	byCategory := make(map[string][]string)
	for rows.Next() {
		var category, tag string
		if err := rows.Scan(&category, &tag); err != nil {
			return nil, err
		}
		byCategory[category] = append(byCategory[category], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]TagGroup, 0, len(byCategory)+1)
	for category, tags := range byCategory {
		groups = append(groups, TagGroup{Category: category, Tags: tags})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })

	uncategorized, err := db.queryStrings(ctx, `
		SELECT DISTINCT tag FROM page_tags
		WHERE tag NOT IN (SELECT tag FROM tags_category)
		ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	if len(uncategorized) > 0 {
		groups = append(groups, TagGroup{Category: Uncategorized, Tags: uncategorized})
	}
	return groups, nil
}
