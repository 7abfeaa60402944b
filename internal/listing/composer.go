// Package listing composes the filtered, ordered page listing shown by the
// wiki filter view.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/wikimeta/internal/metastore"
	"github.com/starford/wikimeta/internal/models"
)

// DateLayout formats DecoratedPage.LastModified.
const DateLayout = "2006.01.02"

// MetaSource yields current metadata records already filtered and ordered.
type MetaSource interface {
	ListCurrent(ctx context.Context, q metastore.Query) ([]models.MetaRecord, error)
}

// TagStore reports the tag set of a page.
type TagStore interface {
	TagsForPage(ctx context.Context, name string) ([]string, error)
}

// PageStore gives access to page content.
type PageStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Render(ctx context.Context, name string) (string, error)
	LastModified(ctx context.Context, name string) (time.Time, error)
}

// Filter selects pages. Zero values mean "all (non-obsolete)", any owner
// and no tag restriction.
type Filter struct {
	State string   `json:"state"`
	Owner string   `json:"owner"`
	Tags  []string `json:"tags"`
}

// Normalized returns f with wildcards filled in.
func (f Filter) Normalized() Filter {
	if f.State == "" {
		f.State = models.StateAllActive
	}
	if f.Owner == "" {
		f.Owner = models.OwnerAll
	}
	return f
}

// Lister produces the decorated listing for a filter.
type Lister interface {
	List(ctx context.Context, f Filter) ([]models.DecoratedPage, error)
}

var _ Lister = (*Composer)(nil)

// Composer joins metadata with tags and page content.
type Composer struct {
	meta   MetaSource
	tags   TagStore
	pages  PageStore
	logger *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(meta MetaSource, tags TagStore, pages PageStore, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{meta: meta, tags: tags, pages: pages, logger: logger}
}

// List returns the pages matching f in listing order. When filtering on the
// planned state, entries carry the neighbouring ranks they can swap with.
func (c *Composer) List(ctx context.Context, f Filter) ([]models.DecoratedPage, error) {
	f = f.Normalized()

	records, err := c.meta.ListCurrent(ctx, metastore.Query{Owner: f.Owner, State: f.State})
	if err != nil {
		return nil, err
	}

	out := make([]models.DecoratedPage, 0, len(records))
	for _, rec := range records {
		tags, err := c.tags.TagsForPage(ctx, rec.Name)
		if err != nil {
			return nil, fmt.Errorf("listing: tags for %q: %w", rec.Name, err)
		}
		if !isSubset(f.Tags, tags) {
			continue
		}

		exists, err := c.pages.Exists(ctx, rec.Name)
		if err != nil {
			return nil, fmt.Errorf("listing: page %q: %w", rec.Name, err)
		}
		if !exists {
			c.logger.Debug("listing: skipping page without content", slog.String("page", rec.Name))
			continue
		}
		html, err := c.pages.Render(ctx, rec.Name)
		if err != nil {
			return nil, fmt.Errorf("listing: render %q: %w", rec.Name, err)
		}
		modified, err := c.pages.LastModified(ctx, rec.Name)
		if err != nil {
			return nil, fmt.Errorf("listing: last modified %q: %w", rec.Name, err)
		}

		out = append(out, models.DecoratedPage{
			Meta:         rec,
			Tags:         tags,
			HTML:         html,
			LastModified: modified.Format(DateLayout),
		})
	}

	if f.State == string(models.StatePlanned) {
		decorate(out)
	}
	return out, nil
}

// decorate marks which entries can move and the rank each would take.
func decorate(pages []models.DecoratedPage) {
	if len(pages) < 2 {
		return
	}
	for i := range pages {
		if i > 0 {
			pages[i].Raisable = true
			pages[i].PrevPriority = pages[i-1].Meta.Priority
		}
		if i < len(pages)-1 {
			pages[i].Lowerable = true
			pages[i].NextPriority = pages[i+1].Meta.Priority
		}
	}
}

func isSubset(want, have []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
