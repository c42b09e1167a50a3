package context

import (
	"strings"
	"testing"

	"github.com/agentcore/core/internal/domain/agentcore"
)

func bigMessage(role agentcore.Role, n int) agentcore.Message {
	return agentcore.Message{Role: role, Content: strings.Repeat("x", n)}
}

func TestPrepare_PreservesSystemAndTrimsContiguousPrefix(t *testing.T) {
	messages := []agentcore.Message{
		{Role: agentcore.RoleSystem, Content: "system prompt"},
	}
	// Build enough non-system messages to force a hard trim.
	for i := 0; i < 50; i++ {
		messages = append(messages, bigMessage(agentcore.RoleUser, 5000))
	}

	out := Prepare(messages, "", 10000)

	if len(out) == 0 || !out[0].IsSystem() {
		t.Fatalf("expected system message preserved at head, got %+v", out)
	}
	systemCount := 0
	for _, m := range out {
		if m.IsSystem() {
			systemCount++
		}
	}
	if systemCount != 1 {
		t.Fatalf("expected exactly 1 system message kept, got %d", systemCount)
	}
	if EstimateTokens(out) > 10000 {
		t.Fatalf("trimmed output still exceeds budget: %d", EstimateTokens(out))
	}
}

func TestPrepare_UnderThresholdReturnsUnchanged(t *testing.T) {
	messages := []agentcore.Message{
		{Role: agentcore.RoleSystem, Content: "sys"},
		{Role: agentcore.RoleUser, Content: "hello"},
	}
	out := Prepare(messages, "", 10000)
	if len(out) != len(messages) {
		t.Fatalf("expected unchanged length, got %d", len(out))
	}
}

func TestPrepare_InjectsMemorySummaryAfterSystem(t *testing.T) {
	messages := []agentcore.Message{
		{Role: agentcore.RoleSystem, Content: "sys"},
		{Role: agentcore.RoleUser, Content: "hi"},
	}
	out := Prepare(messages, "previous summary", 10000)
	if len(out) != 3 {
		t.Fatalf("expected 3 messages after injection, got %d", len(out))
	}
	if !out[1].IsSystem() || !strings.Contains(out[1].Content, "previous summary") {
		t.Fatalf("expected synthetic system memory message at index 1, got %+v", out[1])
	}
}

func TestEmergencyTruncate_KeepsLastSixNonSystem(t *testing.T) {
	messages := []agentcore.Message{{Role: agentcore.RoleSystem, Content: "sys"}}
	for i := 0; i < 20; i++ {
		messages = append(messages, bigMessage(agentcore.RoleUser, 10000))
	}
	out := EmergencyTruncate(messages, 10000)
	nonSystem := 0
	for _, m := range out {
		if !m.IsSystem() {
			nonSystem++
		}
	}
	if nonSystem != emergencyKeepTail {
		t.Fatalf("expected %d non-system messages kept, got %d", emergencyKeepTail, nonSystem)
	}
}

func TestCompressToolResults_ElidesOverLong(t *testing.T) {
	long := strings.Repeat("a", 4000)
	messages := []agentcore.Message{{Role: agentcore.RoleTool, Content: long, ToolCallID: "t1"}}
	out := compressToolResults(messages)
	if len(out[0].Content) >= len(long) {
		t.Fatalf("expected elided content shorter than original")
	}
	if !strings.Contains(out[0].Content, "elided") {
		t.Fatalf("expected elision marker in output: %q", out[0].Content)
	}
}
