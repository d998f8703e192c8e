package events

import (
	"time"

	"github.com/weatherbot/backend/internal/domain/chat"
)

// MessageEvent 展示日志新增消息事件
type MessageEvent struct {
	SessionID string
	Message   chat.Message
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *MessageEvent) Type() EventType {
	return MessageAppended
}

// Timestamp 实现 Event 接口
func (e *MessageEvent) Timestamp() time.Time {
	return e.EventTime
}

// HistoryResetEvent 对话历史重置事件
type HistoryResetEvent struct {
	SessionID string
	// SeededLocation 重置后作为首条历史写入的地点，为空表示仅清空
	SeededLocation string
	EventTime      time.Time
}

// Type 实现 Event 接口
func (e *HistoryResetEvent) Type() EventType {
	return HistoryReset
}

// Timestamp 实现 Event 接口
func (e *HistoryResetEvent) Timestamp() time.Time {
	return e.EventTime
}
