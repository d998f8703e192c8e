// Package chat 定义对话领域模型：会话、展示日志与用作模型上下文的对话历史
package chat

import (
	"context"
	"time"
)

// Role 消息角色
type Role string

const (
	// RoleUser 用户消息
	RoleUser Role = "user"
	// RoleAssistant 助手回复
	RoleAssistant Role = "assistant"
)

// Message 单条对话消息
type Message struct {
	ID        string    // 唯一标识
	SessionID string    // 所属会话
	Role      Role      // 消息角色
	Content   string    // 消息内容
	CreatedAt time.Time // 创建时间
}

// Session 聊天会话（对应一个聊天窗口）
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch 更新会话活跃时间，标题为空时用首条消息生成标题
func (s *Session) Touch(firstMessage string) {
	s.UpdatedAt = time.Now()
	if s.Title == "" {
		s.Title = titleFrom(firstMessage)
	}
}

// maxTitleRunes 会话标题最大长度
const maxTitleRunes = 40

func titleFrom(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleRunes {
		return text
	}
	return string(runes[:maxTitleRunes]) + "…"
}

// Agent 外部对话代理：接收原始文本，返回回复
type Agent interface {
	// Respond 根据用户输入与先前的用户发言生成回复
	Respond(ctx context.Context, input string, turns []Message) (string, error)
}

// AgentFunc 函数类型的 Agent 适配器
type AgentFunc func(ctx context.Context, input string, turns []Message) (string, error)

// Respond 实现 Agent 接口
func (f AgentFunc) Respond(ctx context.Context, input string, turns []Message) (string, error) {
	return f(ctx, input, turns)
}
