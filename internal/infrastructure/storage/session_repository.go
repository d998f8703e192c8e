package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/weatherbot/backend/internal/domain/chat"
)

// 确保 sessionRepository 实现了 chat.SessionRepository 接口
var _ chat.SessionRepository = (*sessionRepository)(nil)

// sessionRepository 会话 SQLite 仓储实现
type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository 创建会话仓储实例
func NewSessionRepository(db *sql.DB) chat.SessionRepository {
	return &sessionRepository{db: db}
}

// Save 保存会话
func (r *sessionRepository) Save(ctx context.Context, session *chat.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	query := `
		INSERT INTO sessions (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Title,
		session.CreatedAt.UnixMilli(),
		session.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByID 根据 ID 查找会话
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*chat.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return session, nil
}

// FindAll 获取所有会话
func (r *sessionRepository) FindAll(ctx context.Context) ([]*chat.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*chat.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Delete 删除会话，消息通过外键级联删除
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// rowScanner sql.Row 与 sql.Rows 的公共部分
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*chat.Session, error) {
	var (
		session              chat.Session
		createdAt, updatedAt int64
	)
	if err := row.Scan(&session.ID, &session.Title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	session.CreatedAt = time.UnixMilli(createdAt)
	session.UpdatedAt = time.UnixMilli(updatedAt)
	return &session, nil
}
