package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	fsys, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fsys
}

func TestPagePathRoundTrip(t *testing.T) {
	for _, name := range []string{"Roadmap", "team/Backlog", "Misc1"} {
		if got := PageName(PagePath(name)); got != name {
			t.Errorf("PageName(PagePath(%q)) = %q", name, got)
		}
	}
}

func TestWriteReadDelete(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Roadmap\n")
	if err := s.Write("Roadmap.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("Roadmap.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if err := s.Delete("Roadmap.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("Roadmap.md"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read after delete: err = %v, want ErrNotExist", err)
	}
}

func TestModTime(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("Page.md", []byte("x"))
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(s.Root(), "Page.md"), when, when); err != nil {
		t.Fatal(err)
	}
	got, err := s.ModTime("Page.md")
	if err != nil {
		t.Fatalf("ModTime: %v", err)
	}
	if !got.Equal(when) {
		t.Errorf("ModTime = %v, want %v", got, when)
	}
	if _, err := s.ModTime("Missing.md"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ModTime missing: err = %v", err)
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("Old.md", []byte("data"))
	if err := s.Move("Old.md", "sub/New.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/New.md")
	if err != nil || string(got) != "data" {
		t.Fatalf("Read after move: %q, %v", got, err)
	}
	if _, err := s.Read("Old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestMove_TargetExists(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("A.md", []byte("a"))
	_ = s.Write("B.md", []byte("b"))
	if err := s.Move("A.md", "B.md"); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("Move onto existing: err = %v, want ErrExist", err)
	}
	got, _ := s.Read("B.md")
	if string(got) != "b" {
		t.Errorf("target overwritten: %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("A.md", []byte("a"))
	_ = s.Write("sub/B.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not a page"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	names := map[string]string{}
	for _, it := range items {
		names[it.Name] = it.Checksum
	}
	if names["A"] != Checksum([]byte("a")) {
		t.Errorf("checksum for A = %q", names["A"])
	}
	if _, ok := names["sub/B"]; !ok {
		t.Errorf("missing sub/B in %v", names)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.md", []byte("original"))
	if err := s.Write("atomic.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".wikimeta-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_Invalid(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
	f, _ := os.CreateTemp(t.TempDir(), "file-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
