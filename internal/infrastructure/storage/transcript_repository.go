package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/weatherbot/backend/internal/domain/chat"
)

var _ chat.TranscriptRepository = (*transcriptRepository)(nil)

// transcriptRepository 展示日志 SQLite 仓储实现
type transcriptRepository struct {
	db *sql.DB
}

// NewTranscriptRepository 创建展示日志仓储实例
func NewTranscriptRepository(db *sql.DB) chat.TranscriptRepository {
	return &transcriptRepository{db: db}
}

// Append 追加消息
func (r *transcriptRepository) Append(ctx context.Context, msg *chat.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transcript_messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID,
		msg.SessionID,
		string(msg.Role),
		msg.Content,
		msg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append transcript message: %w", err)
	}
	return nil
}

// FindBySession 按写入顺序获取会话消息
func (r *transcriptRepository) FindBySession(ctx context.Context, sessionID string) ([]*chat.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM transcript_messages
		WHERE session_id = ?
		ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var messages []*chat.Message
	for rows.Next() {
		var (
			msg       chat.Message
			role      string
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript message: %w", err)
		}
		msg.Role = chat.Role(role)
		msg.CreatedAt = time.UnixMilli(createdAt)
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
