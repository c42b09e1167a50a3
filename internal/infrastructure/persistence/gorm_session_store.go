package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agentcore/core/internal/domain/agentcore"
	"github.com/agentcore/core/internal/infrastructure/persistence/models"
)

// GormSessionStore is the reference implementation of the ReActDriver's
// Store seam (spec §6.1, consumed not implemented by the core proper).
// Grounded on GormMessageRepository's Save/Find shape, retargeted from
// entity.Message's conversation model to the flat per-session role/
// content/tool_call tuple the driver persists every turn.
type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (s *GormSessionStore) AddMessage(ctx context.Context, sessionID string, role agentcore.Role, content string, toolCallID string, toolCalls []agentcore.ToolCall) (string, error) {
	var toolCallsJSON string
	if len(toolCalls) > 0 {
		b, err := json.Marshal(toolCalls)
		if err != nil {
			return "", err
		}
		toolCallsJSON = string(b)
	}

	model := &models.SessionMessageModel{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		Role:          string(role),
		Content:       content,
		ToolCallID:    toolCallID,
		ToolCallsJSON: toolCallsJSON,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

func (s *GormSessionStore) GetMessages(ctx context.Context, sessionID string) ([]agentcore.Message, error) {
	var rows []models.SessionMessageModel
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]agentcore.Message, 0, len(rows))
	for _, row := range rows {
		m := agentcore.Message{
			Role:       agentcore.Role(row.Role),
			Content:    row.Content,
			ToolCallID: row.ToolCallID,
		}
		if row.ToolCallsJSON != "" {
			var calls []agentcore.ToolCall
			if err := json.Unmarshal([]byte(row.ToolCallsJSON), &calls); err == nil {
				m.ToolCalls = calls
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *GormSessionStore) AddToolLog(ctx context.Context, sessionID, name, argsJSON, resultText string) error {
	return s.db.WithContext(ctx).Create(&models.ToolLogModel{
		SessionID:  sessionID,
		Name:       name,
		ArgsJSON:   argsJSON,
		ResultText: resultText,
	}).Error
}

func (s *GormSessionStore) GetSessionMemory(ctx context.Context, sessionID string) (string, bool, error) {
	var row models.SessionMemoryModel
	err := s.db.WithContext(ctx).First(&row, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Summary, true, nil
}

func (s *GormSessionStore) SaveSessionMemory(ctx context.Context, sessionID, summary string) error {
	row := &models.SessionMemoryModel{SessionID: sessionID, Summary: summary}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "updated_at"}),
	}).Create(row).Error
}
