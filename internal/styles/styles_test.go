package styles

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "styles.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := r.Prompt("cartoon", "a boy and his dog")
	want := "a boy and his dog, children's picture book illustration, bright colors, soft lines"
	if got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	content := "styles:\n  - name: Gouache\n    prompt: gouache painting, flat shapes\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write styles: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Prompt("gouache", "a forest"); got != "a forest, gouache painting, flat shapes" {
		t.Errorf("prompt = %q", got)
	}
	// File replaces defaults entirely.
	if got := r.Prompt("cartoon", "x"); got != "x, cartoon style" {
		t.Errorf("unknown style fallback = %q", got)
	}
}

func TestPrompt_EmptyStylePassesTextThrough(t *testing.T) {
	r := NewRegistry(Defaults())
	if got := r.Prompt("", "just text"); got != "just text" {
		t.Errorf("prompt = %q", got)
	}
}
