// Package skillsource implements SkillSource (spec §4.6): markdown skill
// content resolved by slug, plus a registry listing consulted by
// SystemPrompt Builder. Grounded in the teacher's SkillManager directory
// scan (tool.SkillManager), retargeted from the teacher's SKILL.md-only
// resolution to the three-step fallback the spec requires and from a
// scanned-directory catalog to an explicit index.json.
package skillsource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Entry is one row of the skill registry (spec §4.6 — slug | name | summary).
type Entry struct {
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// SkillSource resolves skill slugs to markdown content and exposes the
// registry listing, both read from disk under root.
type SkillSource struct {
	root   string
	logger *zap.Logger

	mu       sync.RWMutex
	registry []Entry
	loaded   bool
}

func New(root string, logger *zap.Logger) *SkillSource {
	return &SkillSource{root: root, logger: logger}
}

// LoadRegistry returns the skill catalog from index.json at root. A
// missing or malformed index yields an empty list, never an error —
// the prompt simply omits the Skills section in that case.
func (s *SkillSource) LoadRegistry() []Entry {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		out := make([]Entry, len(s.registry))
		copy(out, s.registry)
		return out
	}
	s.mu.RUnlock()

	entries := s.readIndex()

	s.mu.Lock()
	s.registry = entries
	s.loaded = true
	s.mu.Unlock()

	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Invalidate forces the next LoadRegistry call to re-read index.json,
// for use by a file-watch hot-reload hook.
func (s *SkillSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
}

func (s *SkillSource) readIndex() []Entry {
	data, err := os.ReadFile(filepath.Join(s.root, "index.json"))
	if err != nil {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("skill index.json parse failed, exposing empty registry", zap.Error(err))
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Slug < entries[j].Slug })
	return entries
}

// LoadContent resolves slug's markdown content by trying, in order,
// {slug}/SKILL.md, {slug}/README.md, then the first *.md file in
// {slug}/. Missing content reports ok=false rather than an error.
func (s *SkillSource) LoadContent(slug string) (string, bool) {
	dir := filepath.Join(s.root, slug)

	for _, candidate := range []string{"SKILL.md", "README.md"} {
		path := filepath.Join(dir, candidate)
		if data, err := os.ReadFile(path); err == nil {
			return string(data), true
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)

	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	if err != nil {
		return "", false
	}
	return string(data), true
}
