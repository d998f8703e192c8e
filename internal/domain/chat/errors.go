package chat

import "errors"

var (
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyMessage 消息为空
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageTooLong 消息超长
	ErrMessageTooLong = errors.New("message is too long")
	// ErrAgentFailed 对话代理调用失败
	ErrAgentFailed = errors.New("chat agent failed to respond")
)
