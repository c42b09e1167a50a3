package skillsource

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadContent_PrefersSkillMdOverReadme(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "git", "SKILL.md"), "skill content")
	writeFile(t, filepath.Join(root, "git", "README.md"), "readme content")

	s := New(root, zap.NewNop())
	content, ok := s.LoadContent("git")
	if !ok || content != "skill content" {
		t.Fatalf("got (%q, %v)", content, ok)
	}
}

func TestLoadContent_FallsBackToReadme(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "git", "README.md"), "readme content")

	s := New(root, zap.NewNop())
	content, ok := s.LoadContent("git")
	if !ok || content != "readme content" {
		t.Fatalf("got (%q, %v)", content, ok)
	}
}

func TestLoadContent_FallsBackToFirstMarkdownFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "git", "zzz.md"), "z content")
	writeFile(t, filepath.Join(root, "git", "aaa.md"), "a content")

	s := New(root, zap.NewNop())
	content, ok := s.LoadContent("git")
	if !ok || content != "a content" {
		t.Fatalf("got (%q, %v)", content, ok)
	}
}

func TestLoadContent_MissingSlugReturnsFalseNotError(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	_, ok := s.LoadContent("nope")
	if ok {
		t.Fatal("expected ok=false for missing slug")
	}
}

func TestLoadRegistry_MalformedIndexYieldsEmptyList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.json"), "{not valid json")

	s := New(root, zap.NewNop())
	entries := s.LoadRegistry()
	if len(entries) != 0 {
		t.Fatalf("expected empty registry, got %v", entries)
	}
}

func TestLoadRegistry_ParsesAndSortsBySlug(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.json"), `[
		{"slug":"zeta","name":"Zeta","summary":"z"},
		{"slug":"alpha","name":"Alpha","summary":"a"}
	]`)

	s := New(root, zap.NewNop())
	entries := s.LoadRegistry()
	if len(entries) != 2 || entries[0].Slug != "alpha" {
		t.Fatalf("got %+v", entries)
	}
}

func TestRegistryTableMarkdown_EscapesPipesInCells(t *testing.T) {
	table := RegistryTableMarkdown([]Entry{{Slug: "a|b", Name: "N", Summary: "S"}})
	if !contains(table, "a\\|b") {
		t.Fatalf("expected escaped pipe in table: %q", table)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
