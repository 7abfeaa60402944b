// Package wiki coordinates the vault, the tag index and the metadata store
// around the page lifecycle: create, edit metadata, rename, delete, reorder.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/starford/wikimeta/internal/apperr"
	"github.com/starford/wikimeta/internal/index"
	"github.com/starford/wikimeta/internal/listing"
	"github.com/starford/wikimeta/internal/metastore"
	"github.com/starford/wikimeta/internal/models"
	"github.com/starford/wikimeta/internal/pages"
	"github.com/starford/wikimeta/internal/parser"
	"github.com/starford/wikimeta/internal/storage"
)

const (
	// DefaultPageContent is the body of pages created without content.
	DefaultPageContent = "page content goes here"
	// untitledBase prefixes generated titles when no tags are selected.
	untitledBase  = "Misc"
	maxTitleIndex = 5000
)

// UserDirectory lists users that can own pages.
type UserDirectory interface {
	KnownUsers(ctx context.Context) []string
}

// MetaStore is the metadata surface the service needs.
type MetaStore interface {
	metastore.Accessor
	metastore.Reorderer
	Rename(ctx context.Context, oldName, newName string) error
	MarkDeleted(ctx context.Context, name string) error
	History(ctx context.Context, name string) ([]models.MetaRecord, error)
	ListCurrent(ctx context.Context, q metastore.Query) ([]models.MetaRecord, error)
}

// Service is the entry point used by the API and MCP layers.
type Service struct {
	vault  storage.Provider
	index  index.PageIndex
	meta   MetaStore
	pages  *pages.Store
	lister listing.Lister
	users  UserDirectory
	logger *slog.Logger

	// lifecycle serializes renames and deletes with watcher callbacks, so a
	// page caught mid-rename is never retired.
	lifecycle sync.Mutex
}

// NewService wires a Service.
func NewService(vault storage.Provider, idx index.PageIndex, meta MetaStore, users UserDirectory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ps := pages.New(vault)
	return &Service{
		vault:  vault,
		index:  idx,
		meta:   meta,
		pages:  ps,
		lister: listing.NewComposer(meta, idx, ps, logger),
		users:  users,
		logger: logger,
	}
}

// List returns the filtered page listing.
func (s *Service) List(ctx context.Context, f listing.Filter) ([]models.DecoratedPage, error) {
	return s.lister.List(ctx, f)
}

// GetMeta returns the current metadata of a page or apperr.ErrNotFound.
func (s *Service) GetMeta(ctx context.Context, name string) (*models.MetaRecord, error) {
	return s.meta.GetCurrent(ctx, name)
}

// History returns every metadata record of a page, oldest first.
func (s *Service) History(ctx context.Context, name string) ([]models.MetaRecord, error) {
	return s.meta.History(ctx, name)
}

// SetMeta applies an edit-form submission. It reports whether a new record
// was written; an unchanged owner and state write nothing.
func (s *Service) SetMeta(ctx context.Context, in SetMetaInput) (bool, error) {
	if err := in.Validate(); err != nil {
		return false, err
	}
	if err := s.requirePage(ctx, in.Name); err != nil {
		return false, err
	}
	prev, err := s.meta.GetCurrent(ctx, in.Name)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}
	changed, err := s.meta.Save(ctx, models.MetaRecord{
		Name:   in.Name,
		Owner:  in.Owner,
		State:  in.State,
		Author: in.Author,
	}, prev)
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.Info("meta updated",
			slog.String("page", in.Name),
			slog.String("owner", in.Owner),
			slog.String("state", string(in.State)),
			slog.String("author", in.Author))
	}
	return changed, nil
}

// EditDefaults is the preselection for a page's metadata edit form.
type EditDefaults struct {
	Owner        string         `json:"owner"`
	State        models.State   `json:"state"`
	OwnerOptions []string       `json:"owner_options"`
	StateOptions []models.State `json:"state_options"`
}

// EditDefaults returns the current owner and state of a page, falling back
// to user and planned when the page has no metadata yet.
func (s *Service) EditDefaults(ctx context.Context, name, user string) (*EditDefaults, error) {
	out := &EditDefaults{
		Owner:        user,
		State:        models.StatePlanned,
		OwnerOptions: s.users.KnownUsers(ctx),
		StateOptions: models.States,
	}
	cur, err := s.meta.GetCurrent(ctx, name)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		return nil, err
	case cur.Owner != "":
		out.Owner = cur.Owner
		out.State = cur.State
	}
	return out, nil
}

// CreatePage writes a page (unless it already exists) and records its
// metadata as the new current record. Tags are only written for new pages.
func (s *Service) CreatePage(ctx context.Context, in CreatePageInput) (*models.MetaRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	name := in.Name
	if name == "" {
		var err error
		if name, err = s.UnusedTitle(ctx, in.Tags); err != nil {
			return nil, err
		}
	}
	owner := in.Owner
	if owner == "" || owner == models.OwnerAll {
		owner = in.Author
	}
	state := models.State(in.State)
	if in.State == "" || in.State == models.StateAllActive {
		state = models.StatePlanned
	}
	if !state.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", apperr.ErrInvalid, in.State)
	}

	exists, err := s.pages.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		content := in.Content
		if content == "" {
			content = DefaultPageContent
		}
		src := parser.Compose(name, in.Tags, content)
		if err := s.vault.Write(storage.PagePath(name), src); err != nil {
			return nil, err
		}
		if err := index.IndexPage(s.index, name, src); err != nil {
			return nil, err
		}
	}

	rec, err := s.meta.Insert(ctx, models.MetaRecord{
		Name:   name,
		Owner:  owner,
		State:  state,
		Author: in.Author,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("page created",
		slog.String("page", name),
		slog.Bool("new_content", !exists),
		slog.Int("priority", rec.Priority))
	return &rec, nil
}

// RenamePage moves a page and all of its metadata history to newName.
func (s *Service) RenamePage(ctx context.Context, oldName, newName string) error {
	if err := validatePageName(newName); err != nil {
		return err
	}
	if err := s.requirePage(ctx, oldName); err != nil {
		return err
	}
	taken, err := s.pages.Exists(ctx, newName)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("wiki: rename to %q: %w", newName, apperr.ErrAlreadyExists)
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.vault.Move(storage.PagePath(oldName), storage.PagePath(newName)); err != nil {
		return err
	}
	if err := s.meta.Rename(ctx, oldName, newName); err != nil {
		if rbErr := s.vault.Move(storage.PagePath(newName), storage.PagePath(oldName)); rbErr != nil {
			s.logger.Error("rename rollback failed",
				slog.String("page", oldName),
				slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := s.index.DeletePage(oldName); err != nil {
		return err
	}
	data, err := s.vault.Read(storage.PagePath(newName))
	if err != nil {
		return err
	}
	if err := index.IndexPage(s.index, newName, data); err != nil {
		return err
	}
	s.logger.Info("page renamed", slog.String("from", oldName), slog.String("to", newName))
	return nil
}

// DeletePage removes the page file and clears its current metadata.
func (s *Service) DeletePage(ctx context.Context, name string) error {
	if err := s.requirePage(ctx, name); err != nil {
		return err
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.vault.Delete(storage.PagePath(name)); err != nil {
		return err
	}
	if err := s.index.DeletePage(name); err != nil {
		return err
	}
	if err := s.meta.MarkDeleted(ctx, name); err != nil {
		return err
	}
	s.logger.Info("page deleted", slog.String("page", name))
	return nil
}

// Reorder moves the planned page at rank from to rank to.
func (s *Service) Reorder(ctx context.Context, from, to int) error {
	return s.meta.Reorder(ctx, from, to)
}

// UnusedTitle proposes a page name that does not exist yet: the selected
// tags capitalized and concatenated (or "Misc"), followed by a number.
func (s *Service) UnusedTitle(ctx context.Context, tags []string) (string, error) {
	base := untitledBase
	if len(tags) > 0 {
		var b strings.Builder
		for _, t := range tags {
			b.WriteString(capitalize(t))
		}
		base = b.String()
	}
	for i := 1; i < maxTitleIndex; i++ {
		name := base + strconv.Itoa(i)
		exists, err := s.pages.Exists(ctx, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("wiki: no unused title for %q: %w", base, apperr.ErrAlreadyExists)
}

// Users lists the users that can own pages.
func (s *Service) Users(ctx context.Context) []string {
	return s.users.KnownUsers(ctx)
}

// SetTagCategory assigns a tag to a filter category.
func (s *Service) SetTagCategory(ctx context.Context, tag, category string) error {
	return s.index.SetTagCategory(ctx, tag, category)
}

// RemoveTagCategory removes a tag from a filter category.
func (s *Service) RemoveTagCategory(ctx context.Context, tag, category string) error {
	return s.index.RemoveTagCategory(ctx, tag, category)
}

// HandlePageEvent reacts to vault changes seen by the index watcher.
// Pages that are still missing from the vault lose their current metadata.
func (s *Service) HandlePageEvent(kind, name string) {
	if kind != index.EventDeleted {
		return
	}
	ctx := context.Background()

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	exists, err := s.pages.Exists(ctx, name)
	if err != nil {
		s.logger.Warn("page lookup failed", slog.String("page", name), slog.String("error", err.Error()))
		return
	}
	if exists {
		s.logger.Debug("page still present, metadata kept", slog.String("page", name))
		return
	}
	if err := s.meta.MarkDeleted(ctx, name); err != nil {
		s.logger.Warn("retire metadata failed", slog.String("page", name), slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("metadata retired for removed page", slog.String("page", name))
}

func (s *Service) requirePage(ctx context.Context, name string) error {
	exists, err := s.pages.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("wiki: page %q: %w", name, apperr.ErrNotFound)
	}
	return nil
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
