// Package userdir lists the users that can own wiki pages.
package userdir

import (
	"context"
	"log/slog"
)

// PeopleSource reports users already referenced by stored metadata.
type PeopleSource interface {
	People(ctx context.Context) ([]string, error)
}

// Directory merges the configured users with people found in metadata.
type Directory struct {
	configured []string
	people     PeopleSource
	logger     *slog.Logger
}

// New creates a Directory. people may be nil.
func New(configured []string, people PeopleSource, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{configured: configured, people: people, logger: logger}
}

// KnownUsers returns configured users in configuration order, followed by
// any other owners or authors found in metadata. Lookup failures only drop
// the second part.
func (d *Directory) KnownUsers(ctx context.Context) []string {
	seen := make(map[string]struct{}, len(d.configured))
	out := make([]string, 0, len(d.configured))
	add := func(u string) {
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	for _, u := range d.configured {
		add(u)
	}
	if d.people == nil {
		return out
	}
	people, err := d.people.People(ctx)
	if err != nil {
		d.logger.Warn("userdir: people lookup failed", slog.String("error", err.Error()))
		return out
	}
	for _, u := range people {
		add(u)
	}
	return out
}
