package wiki

import (
	"context"
	"slices"
	"strings"

	"github.com/starford/wikimeta/internal/listing"
	"github.com/starford/wikimeta/internal/models"
)

// allTagsTitle is the combined title when no tag is selected.
const allTagsTitle = "all"

// Option is a selectable filter value.
type Option struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// TagOption is a tag checkbox in the filter form.
type TagOption struct {
	Tag     string `json:"tag"`
	Checked bool   `json:"checked"`
}

// TagCategory groups tag checkboxes under a category heading.
type TagCategory struct {
	Category string      `json:"category"`
	Tags     []TagOption `json:"tags"`
}

// FilterOptions is everything the filter form needs to render.
type FilterOptions struct {
	States        []Option      `json:"states"`
	Owners        []Option      `json:"owners"`
	Categories    []TagCategory `json:"categories"`
	CombinedTitle string        `json:"combined_title"`
}

// FilterOptions builds the filter form for the selection in f.
func (s *Service) FilterOptions(ctx context.Context, f listing.Filter) (*FilterOptions, error) {
	f = f.Normalized()

	states := make([]Option, 0, len(models.States)+1)
	states = append(states, Option{Value: models.StateAllActive, Selected: f.State == models.StateAllActive})
	for _, st := range models.States {
		states = append(states, Option{Value: string(st), Selected: f.State == string(st)})
	}

	users := s.users.KnownUsers(ctx)
	owners := make([]Option, 0, len(users)+1)
	owners = append(owners, Option{Value: models.OwnerAll, Selected: f.Owner == models.OwnerAll})
	for _, u := range users {
		owners = append(owners, Option{Value: u, Selected: f.Owner == u})
	}

	groups, err := s.index.CategorizedTags(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]TagCategory, 0, len(groups))
	for _, g := range groups {
		c := TagCategory{Category: g.Category, Tags: make([]TagOption, 0, len(g.Tags))}
		for _, t := range g.Tags {
			c.Tags = append(c.Tags, TagOption{Tag: t, Checked: slices.Contains(f.Tags, t)})
		}
		categories = append(categories, c)
	}

	return &FilterOptions{
		States:        states,
		Owners:        owners,
		Categories:    categories,
		CombinedTitle: combinedTitle(f.Tags),
	}, nil
}

func combinedTitle(tags []string) string {
	if len(tags) == 0 {
		return allTagsTitle
	}
	return strings.Join(tags, ", ")
}
