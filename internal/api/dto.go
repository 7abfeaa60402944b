package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wikimeta/internal/listing"
	"github.com/starford/wikimeta/internal/models"
	"github.com/starford/wikimeta/internal/wiki"
)

// CreatePageRequest is the request body for creating a page.
type CreatePageRequest struct {
	Name    string   `json:"name,omitempty" example:"Roadmap"`
	Content string   `json:"content,omitempty" example:"# Roadmap"`
	Owner   string   `json:"owner,omitempty" example:"alice"`
	State   string   `json:"state,omitempty" example:"planned"`
	Tags    []string `json:"tags,omitempty" example:"infra"`
}

// SetMetaRequest is the request body of the metadata edit form.
type SetMetaRequest struct {
	Owner string `json:"owner" example:"alice"`
	State string `json:"state" example:"planned"`
}

// Validate checks the request.
func (r SetMetaRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Owner, validation.Required),
		validation.Field(&r.State, validation.Required),
	)
}

// SetMetaResponse reports whether the save wrote a record, and the current one.
type SetMetaResponse struct {
	Changed bool               `json:"changed" example:"true"`
	Meta    *models.MetaRecord `json:"meta"`
}

// RenameRequest is the request body for renaming a page.
type RenameRequest struct {
	NewName string `json:"new_name" example:"Archive/Roadmap"`
}

// Validate checks the request.
func (r RenameRequest) Validate() error {
	return validation.ValidateStruct(&r, validation.Field(&r.NewName, validation.Required))
}

// ReorderRequest moves the planned page at rank From to rank To.
type ReorderRequest struct {
	From int `json:"from" example:"1"`
	To   int `json:"to" example:"3"`
}

// Validate checks the request.
func (r ReorderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Required, validation.Min(1)),
		validation.Field(&r.To, validation.Required, validation.Min(1)),
	)
}

// TagCategoryRequest assigns a tag to a category or removes the assignment.
type TagCategoryRequest struct {
	Tag      string `json:"tag" example:"infra"`
	Category string `json:"category" example:"area"`
}

// Validate checks the request.
func (r TagCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tag, validation.Required),
		validation.Field(&r.Category, validation.Required),
	)
}

// PageListResponse wraps the filtered listing.
type PageListResponse struct {
	Pages []models.DecoratedPage `json:"pages"`
	Total int                    `json:"total" example:"3"`
}

// UsersResponse wraps the known users.
type UsersResponse struct {
	Users []string `json:"users"`
}

// FilterOptions is the filter form payload (aliased from the domain layer).
type FilterOptions = wiki.FilterOptions

// EditDefaults is the edit form preselection (aliased from the domain layer).
type EditDefaults = wiki.EditDefaults

// filterFromQuery reads state, owner and repeated tag parameters. A single
// tag parameter may also hold a comma-separated list.
func filterFromQuery(q map[string][]string) listing.Filter {
	f := listing.Filter{}
	if v := q["state"]; len(v) > 0 {
		f.State = v[0]
	}
	if v := q["owner"]; len(v) > 0 {
		f.Owner = v[0]
	}
	for _, raw := range q["tag"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}
	return f
}
