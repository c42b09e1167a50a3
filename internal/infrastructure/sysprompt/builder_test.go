package sysprompt

import (
	"strings"
	"testing"

	"github.com/agentcore/core/internal/domain/agentcore"
)

func TestBuild_RulesAreNumberedContiguously(t *testing.T) {
	b := New(nil)
	out := b.Build(agentcore.AgentConfig{Rules: []string{"never force-push", "ask before deleting"}})
	if !strings.Contains(out, "Rule 1: never force-push") || !strings.Contains(out, "Rule 2: ask before deleting") {
		t.Fatalf("rules not numbered contiguously: %s", out)
	}
}

func TestBuild_NoRulesOmitsRulesSection(t *testing.T) {
	b := New(nil)
	out := b.Build(agentcore.AgentConfig{})
	if strings.Contains(out, "## Rules") {
		t.Fatal("expected no Rules section when rules are empty")
	}
}

func TestRuleReminder_EmptyRulesYieldsEmptyString(t *testing.T) {
	if got := RuleReminder(nil); got != "" {
		t.Fatalf("expected empty reminder, got %q", got)
	}
}

func TestRuleReminder_FormatsEachRuleWithIndex(t *testing.T) {
	got := RuleReminder([]string{"a", "b"})
	want := "[Rule review] Ensure your next action complies with: (1) a (2) b"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
