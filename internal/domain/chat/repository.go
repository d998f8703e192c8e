package chat

import "context"

// SessionRepository 会话仓储接口
type SessionRepository interface {
	// Save 保存会话（创建或更新）
	Save(ctx context.Context, session *Session) error

	// FindByID 根据 ID 查找会话，不存在时返回 nil, nil
	FindByID(ctx context.Context, id string) (*Session, error)

	// FindAll 获取所有会话（按更新时间倒序）
	FindAll(ctx context.Context) ([]*Session, error)

	// Delete 删除会话及其消息
	Delete(ctx context.Context, id string) error
}

// TranscriptRepository 展示日志仓储接口
type TranscriptRepository interface {
	// Append 追加消息，ID 为空时自动生成
	Append(ctx context.Context, msg *Message) error

	// FindBySession 获取会话的全部消息（按写入顺序）
	FindBySession(ctx context.Context, sessionID string) ([]*Message, error)
}

// HistoryRepository 对话历史仓储接口
type HistoryRepository interface {
	// Load 加载会话的对话历史，不存在时返回空历史
	Load(ctx context.Context, sessionID string) (*History, error)

	// Save 以整体替换的方式保存对话历史
	Save(ctx context.Context, history *History) error
}
