// Package eventbus 提供进程内的异步事件分发
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/weatherbot/backend/internal/domain/events"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

// queueSize 每个订阅的事件缓冲大小
const queueSize = 256

// subscription 单个订阅，事件按发布顺序逐个交给处理器
type subscription struct {
	id        uint64
	eventType events.EventType
	handler   events.Handler
	queue     chan events.Event
}

// eventBusImpl EventBus 的实现
type eventBusImpl struct {
	// handlers 按事件类型存储的订阅
	handlers map[events.EventType][]*subscription
	// mu 保护 handlers 和 closed
	mu     sync.RWMutex
	nextID uint64
	closed bool
	// wg 等待所有订阅的分发协程退出
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewEventBus 创建新的事件总线实例
func NewEventBus() events.EventBus {
	return &eventBusImpl{
		handlers: make(map[events.EventType][]*subscription),
		logger:   log.NewModuleLogger("eventbus", "bus"),
	}
}

// Subscribe 订阅特定类型的事件
func (b *eventBusImpl) Subscribe(eventType events.EventType, handler events.Handler) events.Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	sub := &subscription{
		id:        b.nextID,
		eventType: eventType,
		handler:   handler,
		queue:     make(chan events.Event, queueSize),
	}
	b.handlers[eventType] = append(b.handlers[eventType], sub)

	b.wg.Add(1)
	go b.run(sub)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(sub) })
	}
}

// SubscribeMultiple 订阅多个类型的事件
func (b *eventBusImpl) SubscribeMultiple(eventTypes []events.EventType, handler events.Handler) events.Unsubscribe {
	unsubscribers := make([]events.Unsubscribe, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		unsubscribers = append(unsubscribers, b.Subscribe(eventType, handler))
	}

	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}

// unsubscribe 按订阅 ID 移除并关闭队列
func (b *eventBusImpl) unsubscribe(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[sub.eventType]
	for i, s := range subs {
		if s.id == sub.id {
			b.handlers[sub.eventType] = append(subs[:i:i], subs[i+1:]...)
			close(sub.queue)
			return
		}
	}
}

// Publish 异步发布事件
func (b *eventBusImpl) Publish(event events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	subs := b.handlers[event.Type()]
	if len(subs) == 0 {
		return
	}

	b.logger.Debug("Publishing event",
		"type", event.Type(),
		"handlers_count", len(subs),
	)

	for _, sub := range subs {
		select {
		case sub.queue <- event:
		default:
			b.logger.Warn("Event queue full, dropping event",
				"type", event.Type(),
				"subscription", sub.id,
			)
		}
	}
}

// run 订阅的分发协程
func (b *eventBusImpl) run(sub *subscription) {
	defer b.wg.Done()
	for event := range sub.queue {
		b.dispatchToHandler(event, sub.handler)
	}
}

// dispatchToHandler 分发事件到单个处理器
func (b *eventBusImpl) dispatchToHandler(event events.Event, handler events.Handler) {
	// 捕获 panic，防止单个处理器崩溃影响其他事件
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				"type", event.Type(),
				"panic", r,
			)
		}
	}()

	if err := handler.HandleEvent(event); err != nil {
		b.logger.Error("Handler returned error",
			"type", event.Type(),
			"error", err,
		)
	}
}

// Close 关闭事件总线，等待已入队事件处理完成
func (b *eventBusImpl) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for eventType, subs := range b.handlers {
		for _, sub := range subs {
			close(sub.queue)
		}
		delete(b.handlers, eventType)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("Event bus closed")
}
