package index

import "context"

// PageIndex defines the page and tag index operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type PageIndex interface {
	UpsertPage(p PageRow) error
	DeletePage(name string) error
	GetChecksum(name string) (string, error)
	AllChecksums() (map[string]string, error)
	TagsForPage(ctx context.Context, name string) ([]string, error)
	AllTags(ctx context.Context) ([]string, error)
	SetTagCategory(ctx context.Context, tag, category string) error
	RemoveTagCategory(ctx context.Context, tag, category string) error
	CategorizedTags(ctx context.Context) ([]TagGroup, error)
}

var _ PageIndex = (*DB)(nil)
