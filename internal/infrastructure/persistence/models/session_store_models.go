package models

import "time"

// SessionMessageModel is one persisted turn message for the ReActDriver's
// reference Store (spec §6.1). ToolCallsJSON carries the assistant
// message's ordered tool_calls as JSON; empty for user/tool messages.
type SessionMessageModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	SessionID     string `gorm:"index;size:64;not null"`
	Role          string `gorm:"size:16;not null"`
	Content       string `gorm:"type:text"`
	ToolCallID    string `gorm:"size:64"`
	ToolCallsJSON string `gorm:"type:text"`
	CreatedAt     time.Time
	Seq           uint64 `gorm:"autoIncrement"`
}

func (SessionMessageModel) TableName() string { return "session_messages" }

// ToolLogModel is the audit log entry for one tool invocation, separate
// from the message history (spec §6.1 AddToolLog).
type ToolLogModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	SessionID  string `gorm:"index;size:64;not null"`
	Name       string `gorm:"size:128;not null"`
	ArgsJSON   string `gorm:"type:text"`
	ResultText string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (ToolLogModel) TableName() string { return "tool_logs" }

// SessionMemoryModel holds the single current compressed-history summary
// per session (spec §3 SessionMemory — opaque, never deleted by the core).
type SessionMemoryModel struct {
	SessionID string `gorm:"primaryKey;size:64"`
	Summary   string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (SessionMemoryModel) TableName() string { return "session_memories" }
