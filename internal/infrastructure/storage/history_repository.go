package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/weatherbot/backend/internal/domain/chat"
)

var _ chat.HistoryRepository = (*historyRepository)(nil)

// historyRepository 对话历史 SQLite 仓储实现
type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository 创建对话历史仓储实例
func NewHistoryRepository(db *sql.DB) chat.HistoryRepository {
	return &historyRepository{db: db}
}

// Load 加载会话的对话历史
func (r *historyRepository) Load(ctx context.Context, sessionID string) (*chat.History, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, created_at
		FROM history_messages
		WHERE session_id = ?
		ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		msg := chat.Message{SessionID: sessionID, Role: chat.RoleUser}
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history message: %w", err)
		}
		msg.CreatedAt = time.UnixMilli(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return chat.NewHistory(sessionID, messages...), nil
}

// Save 在事务中整体替换会话的对话历史
func (r *historyRepository) Save(ctx context.Context, history *chat.History) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history_messages WHERE session_id = ?`, history.SessionID()); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history_messages (session_id, position, id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range history.Messages() {
		id := msg.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := msg.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, history.SessionID(), i, id, msg.Content, createdAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert history message: %w", err)
		}
	}

	return tx.Commit()
}
