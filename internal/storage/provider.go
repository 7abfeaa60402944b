// Package storage defines the page vault abstraction.
package storage

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/wikimeta/internal/models"
)

// PageExt is the file extension of page files in the vault.
const PageExt = ".md"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every page file under dir (relative to vault root).
	List(dir string) ([]models.PageMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// ModTime returns the last modification time of the file at path.
	ModTime(path string) (time.Time, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root).
	Move(oldPath, newPath string) error
}

// PagePath maps a page name to its vault-relative file path.
func PagePath(name string) string {
	return filepath.FromSlash(name) + PageExt
}

// PageName maps a vault-relative file path to its page name.
// Names always use forward slashes.
func PageName(path string) string {
	return strings.TrimSuffix(filepath.ToSlash(path), PageExt)
}
