package toolexec

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestRunTerminalTool_RefusesDenylistedCommand(t *testing.T) {
	tool := NewRunTerminalTool(nil, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{"command": "sudo rm -rf /"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected denylisted command to be refused")
	}
}

func TestSearchFilesTool_TruncatesPastFiftyMatches(t *testing.T) {
	var matches []SearchMatch
	for i := 0; i < 80; i++ {
		matches = append(matches, SearchMatch{Path: "f.go", Line: i + 1, Text: "match"})
	}
	search := func(_ context.Context, _, _ string, _ SearchOptions) ([]SearchMatch, bool, error) {
		return matches, false, nil
	}

	tool := NewSearchFilesTool(".", search, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{"query": "match"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if want := "…(truncated, showing first 50 matches)"; !contains(res.Output, want) {
		t.Fatalf("expected truncation notice in output: %q", res.Output)
	}
}

func TestLoadSkillTool_UnknownSlugReturnsTextualError(t *testing.T) {
	tool := NewLoadSkillTool(nil, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{"slug": "nope"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for unconfigured skill source")
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
