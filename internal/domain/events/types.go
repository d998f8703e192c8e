// Package events 定义领域事件类型和接口
// 用于对话服务与推送通道之间的解耦通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 对话相关事件类型
const (
	// MessageAppended 展示日志新增消息
	MessageAppended EventType = "chat.message.appended"
	// HistoryReset 对话历史被清空（可能以地点重新播种）
	HistoryReset EventType = "chat.history.reset"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
