// Package websocket 向聊天窗口推送会话消息
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/weatherbot/backend/internal/infrastructure/log"
)

// Hub WebSocket 连接管理中心
type Hub struct {
	// 按会话 ID 分组的连接
	sessions map[string]map[*Connection]bool
	// 注册连接
	register chan *Connection
	// 注销连接
	unregister chan *Connection
	// 广播消息
	broadcast chan *Message
	stop      chan struct{}
	stopOnce  sync.Once
	mu        sync.RWMutex
	logger    *slog.Logger
}

// Connection 单个聊天窗口的连接
type Connection struct {
	SessionID string
	Send      chan []byte
}

// NewConnection 创建连接
func NewConnection(sessionID string) *Connection {
	return &Connection{
		SessionID: sessionID,
		Send:      make(chan []byte, sendBufferSize),
	}
}

// Message 广播消息
type Message struct {
	SessionID string
	Data      []byte
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message, 256),
		stop:       make(chan struct{}),
		logger:     log.NewModuleLogger("websocket", "hub"),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[*Connection]bool)
			}
			h.sessions[conn.SessionID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			h.remove(conn)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.sessions[msg.SessionID] {
				select {
				case conn.Send <- msg.Data:
				default:
					// 消费过慢的连接直接断开
					h.logger.Warn("Dropping slow websocket client",
						"session_id", msg.SessionID,
					)
					h.remove(conn)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for _, conns := range h.sessions {
				for conn := range conns {
					h.remove(conn)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove 需持有写锁
func (h *Hub) remove(conn *Connection) {
	conns, ok := h.sessions[conn.SessionID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	close(conn.Send)
	if len(conns) == 0 {
		delete(h.sessions, conn.SessionID)
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Stop 停止 Hub 并关闭全部连接
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.stop:
		close(conn.Send)
	}
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.stop:
	}
}

// ConnectionCount 会话当前的连接数
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// BroadcastToSession 向指定会话的全部连接广播消息
func (h *Hub) BroadcastToSession(sessionID string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &Message{SessionID: sessionID, Data: jsonData}:
	case <-h.stop:
	}
	return nil
}
