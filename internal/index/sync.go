package index

import (
	"log/slog"

	"github.com/starford/wikimeta/internal/parser"
	"github.com/starford/wikimeta/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after an index change with the page name.
type EventCallback func(kind string, name string)

// Sync walks the vault and brings the index up to date:
//   - new/changed pages are parsed and upserted
//   - pages removed from disk are deleted from the index and reported to cb
func Sync(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}
		if checksums[m.Name] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("page", m.Name), slog.String("error", err.Error()))
			continue
		}
		if err := IndexPage(db, m.Name, data); err != nil {
			logger.Warn("sync: index failed", slog.String("page", m.Name), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("page", m.Name))
	}

	for name := range checksums {
		if _, ok := disk[name]; ok {
			continue
		}
		if err := db.DeletePage(name); err != nil {
			logger.Warn("sync: delete failed", slog.String("page", name), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("page", name))
		if cb != nil {
			cb(EventDeleted, name)
		}
	}

	return nil
}

// IndexPage parses a page source and upserts its title and tags.
func IndexPage(db PageIndex, name string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return db.UpsertPage(PageRow{
		Name:     name,
		Title:    res.Title,
		Checksum: storage.Checksum(data),
		Tags:     res.Tags,
	})
}
