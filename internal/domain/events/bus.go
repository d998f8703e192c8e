package events

// Handler 事件处理器接口
type Handler interface {
	// HandleEvent 处理事件，返回的 error 只记录日志
	HandleEvent(event Event) error
}

// HandlerFunc 函数类型的处理器适配器
type HandlerFunc func(event Event) error

// HandleEvent 实现 Handler 接口
func (f HandlerFunc) HandleEvent(event Event) error {
	return f(event)
}

// Unsubscribe 取消订阅函数
type Unsubscribe func()

// EventBus 事件总线接口
type EventBus interface {
	// Subscribe 订阅特定类型的事件
	Subscribe(eventType EventType, handler Handler) Unsubscribe

	// SubscribeMultiple 订阅多个类型的事件
	SubscribeMultiple(eventTypes []EventType, handler Handler) Unsubscribe

	// Publish 异步发布事件
	Publish(event Event)

	// Close 停止接收新事件，等待已发布事件处理完成
	Close()
}
