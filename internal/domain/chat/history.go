package chat

import "time"

// History 对话历史：按时间顺序保存的用户发言，作为模型上下文使用
// 只保存用户消息，助手回复只进入展示日志
type History struct {
	sessionID string
	messages  []Message
}

// NewHistory 创建对话历史
func NewHistory(sessionID string, messages ...Message) *History {
	h := &History{sessionID: sessionID}
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		m.SessionID = sessionID
		h.messages = append(h.messages, m)
	}
	return h
}

// SessionID 所属会话
func (h *History) SessionID() string {
	return h.sessionID
}

// Messages 返回历史消息副本（最早的在前）
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Contents 返回历史消息内容
func (h *History) Contents() []string {
	out := make([]string, 0, len(h.messages))
	for _, m := range h.messages {
		out = append(out, m.Content)
	}
	return out
}

// AddUserMessage 追加一条用户消息
func (h *History) AddUserMessage(content string) Message {
	m := Message{
		SessionID: h.sessionID,
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	h.messages = append(h.messages, m)
	return m
}

// Clear 清空历史
func (h *History) Clear() {
	h.messages = nil
}

// Len 历史消息条数
func (h *History) Len() int {
	return len(h.messages)
}

// Transcript 展示日志：聊天窗口中显示的全部消息（用户与助手）
type Transcript struct {
	sessionID string
	messages  []Message
}

// NewTranscript 创建展示日志
func NewTranscript(sessionID string, messages ...Message) *Transcript {
	return &Transcript{sessionID: sessionID, messages: messages}
}

// Append 追加消息
func (t *Transcript) Append(role Role, content string) Message {
	m := Message{
		SessionID: t.sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	t.messages = append(t.messages, m)
	return m
}

// Messages 返回全部消息副本
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}
