package persistence

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agentcore/core/internal/domain/agentcore"
	"github.com/agentcore/core/internal/infrastructure/persistence/models"
)

func newTestStore(t *testing.T) *GormSessionStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&models.SessionMessageModel{}, &models.ToolLogModel{}, &models.SessionMemoryModel{}); err != nil {
		t.Fatal(err)
	}
	return NewGormSessionStore(db)
}

func TestGormSessionStore_AddAndGetMessagesPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddMessage(ctx, "sess1", agentcore.RoleUser, "hello", "", nil); err != nil {
		t.Fatal(err)
	}
	calls := []agentcore.ToolCall{{ID: "a", Name: "read_file", Arguments: map[string]interface{}{"path": "x"}}}
	if _, err := s.AddMessage(ctx, "sess1", agentcore.RoleAssistant, "", "", calls); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddMessage(ctx, "sess1", agentcore.RoleTool, "1 | content", "a", nil); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.GetMessages(ctx, "sess1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != agentcore.RoleUser || msgs[1].Role != agentcore.RoleAssistant || msgs[2].Role != agentcore.RoleTool {
		t.Fatalf("unexpected role order: %+v", msgs)
	}
	if len(msgs[1].ToolCalls) != 1 || msgs[1].ToolCalls[0].Name != "read_file" {
		t.Fatalf("expected round-tripped tool_calls, got %+v", msgs[1].ToolCalls)
	}
	if msgs[2].ToolCallID != "a" {
		t.Fatalf("expected tool_call_id 'a', got %q", msgs[2].ToolCallID)
	}
}

func TestGormSessionStore_SessionMemoryMissingReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetSessionMemory(ctx, "sess-none")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false for a session with no saved memory")
	}
}

func TestGormSessionStore_SaveSessionMemoryIsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSessionMemory(ctx, "sess2", "first summary"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSessionMemory(ctx, "sess2", "second summary"); err != nil {
		t.Fatal(err)
	}

	summary, ok, err := s.GetSessionMemory(ctx, "sess2")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || summary != "second summary" {
		t.Fatalf("expected upserted summary 'second summary', got (%q, %v)", summary, ok)
	}
}

func TestGormSessionStore_AddToolLogDoesNotAppearInMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddToolLog(ctx, "sess3", "read_file", `{"path":"x"}`, "1 | content"); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.GetMessages(ctx, "sess3")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected tool log to be invisible to GetMessages, got %+v", msgs)
	}
}
