package pages

import (
	"context"
	"strings"
	"testing"

	"github.com/starford/wikimeta/internal/storage"
)

func TestStore(t *testing.T) {
	vault, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = vault.Write("Roadmap.md", []byte("---\ntitle: Roadmap\ntags: [urgent]\n---\n# Q3\n\n<script>x</script>\n"))
	s := New(vault)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "Roadmap")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	ok, err = s.Exists(ctx, "Missing")
	if err != nil || ok {
		t.Fatalf("Exists(Missing) = %v, %v", ok, err)
	}

	html, err := s.Render(ctx, "Roadmap")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(html, "<h1>Q3</h1>") {
		t.Errorf("html = %q", html)
	}
	if strings.Contains(html, "<script>") || strings.Contains(html, "title: Roadmap") {
		t.Errorf("html leaked raw content: %q", html)
	}

	if _, err := s.LastModified(ctx, "Roadmap"); err != nil {
		t.Errorf("LastModified: %v", err)
	}
}
