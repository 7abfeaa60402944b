// Package pages reads wiki pages from the vault for display.
package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/wikimeta/internal/parser"
	"github.com/starford/wikimeta/internal/storage"
)

// Raw HTML in page sources is escaped, not passed through.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Store resolves page names against a vault.
type Store struct {
	vault storage.Provider
}

// New creates a Store over vault.
func New(vault storage.Provider) *Store {
	return &Store{vault: vault}
}

// Exists reports whether the page file is present.
func (s *Store) Exists(_ context.Context, name string) (bool, error) {
	_, err := s.vault.ModTime(storage.PagePath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Render returns the page body, frontmatter stripped, as HTML.
func (s *Store) Render(_ context.Context, name string) (string, error) {
	data, err := s.vault.Read(storage.PagePath(name))
	if err != nil {
		return "", err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(res.Body), &buf); err != nil {
		return "", fmt.Errorf("pages: render %s: %w", name, err)
	}
	return buf.String(), nil
}

// LastModified returns the page file's modification time.
func (s *Store) LastModified(_ context.Context, name string) (time.Time, error) {
	return s.vault.ModTime(storage.PagePath(name))
}
